package cmd

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"solramp/pkg/quote"
	"solramp/pkg/types"
)

var titleColor = color.New(color.FgGreen)

func printJSON(v interface{}) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}

// formatAmount renders a token amount with thousands separators, keeping up
// to decimals fractional digits
func formatAmount(amount decimal.Decimal, decimals uint8) string {
	digits := int(decimals)
	if digits > 9 {
		digits = 9
	}
	return humanize.CommafWithDigits(amount.InexactFloat64(), digits)
}

// formatFee shows the estimate in SOL and, when a price is configured, in USD
func formatFee(fee quote.FeeEstimate, nativeUSD float64) string {
	s := fmt.Sprintf("%s SOL", fee.Native.String())
	if nativeUSD > 0 {
		usd := fee.Native.Mul(decimal.NewFromFloat(nativeUSD))
		s += fmt.Sprintf(" (~$%s)", humanize.CommafWithDigits(usd.InexactFloat64(), 4))
	}
	if fee.Floor {
		s += color.HiBlackString(" minimum")
	}
	return s
}

func stageColor(stage types.Stage) string {
	name := stage.String()
	switch stage {
	case types.StageDone:
		return color.GreenString(name)
	case types.StageFailed:
		return color.RedString(name)
	case types.StageJitSwap, types.StageSign:
		return color.MagentaString(name)
	default:
		return color.YellowString(name)
	}
}

func bigFromUint(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
