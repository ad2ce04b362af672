package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"solramp/pkg/balance"
	"solramp/pkg/parser"
	"solramp/pkg/types"
)

var balanceTokens []string

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show SOL and token balances",
	Long: `Show the SOL balance of an address and, with --tokens, its SPL token
balances. Without an address the configured wallet is used.

Examples:
  solramp balance
  solramp balance --tokens USDC,BONK
  solramp balance 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU`,
	Args: cobra.MaximumNArgs(1),
	Run:  runBalance,
}

func init() {
	rootCmd.AddCommand(balanceCmd)

	balanceCmd.Flags().StringSliceVarP(&balanceTokens, "tokens", "t", nil, "Token symbols or mints to include")
}

func runBalance(cmd *cobra.Command, args []string) {
	jsonOutput, _ := outputFlags(cmd)
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	var owner solana.PublicKey
	if len(args) == 1 {
		owner, err = solana.PublicKeyFromBase58(args[0])
		if err != nil {
			printError(fmt.Errorf("invalid address %q: %w", args[0], err))
			os.Exit(1)
		}
	} else {
		keypair, err := a.wallet()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		owner = keypair.PublicKey()
	}

	stopSpinner := startSpinner("Reading balances...", jsonOutput)
	lamports, err := a.balances.NativeBalance(ctx, owner)

	var held map[string]*balance.TokenAmount
	var list []*types.Token
	if err == nil && len(balanceTokens) > 0 {
		for _, symbol := range balanceTokens {
			var token *types.Token
			token, err = a.directory.Resolve(ctx, parser.NormalizeTokenSymbol(strings.ToUpper(symbol)))
			if err != nil {
				err = fmt.Errorf("%s: %w", symbol, err)
				break
			}
			list = append(list, token)
		}
		if err == nil {
			held, err = a.balances.Balances(ctx, owner, list)
		}
	}
	stopSpinner()

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	native := parser.FromBaseUnits(bigFromUint(lamports), types.NativeDecimals)

	if jsonOutput {
		printJSON(map[string]interface{}{
			"address":  owner.String(),
			"lamports": lamports,
			"sol":      native.String(),
			"tokens":   held,
		})
		return
	}

	banner("BALANCES", 60)
	fmt.Printf("\n  Address:   %s\n", color.CyanString(owner.String()))
	fmt.Printf("  SOL:       %s\n", formatAmount(native, types.NativeDecimals))
	for _, token := range list {
		amount := held[token.Address]
		if amount == nil {
			continue
		}
		fmt.Printf("  %-10s %s\n", color.YellowString(token.Symbol)+":", formatAmount(amount.UI, token.Decimals))
	}
	footer(60)
}
