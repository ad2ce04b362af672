package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"solramp/pkg/client"
	"solramp/pkg/ramp"
	"solramp/pkg/types"
)

var (
	rampEmail   string
	rampAddress string
)

var onrampCmd = &cobra.Command{
	Use:   "onramp <usdc-amount>",
	Short: "Buy USDC with naira",
	Long: `Start an on-ramp: pay in naira and receive USDC at your wallet.
The amount is in USD; it is converted at the current on-ramp rate.

Examples:
  solramp onramp 20 --email you@example.com
  solramp onramp 50 --email you@example.com --address <wallet>`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRamp(cmd, types.RampOn, args[0])
	},
}

var offrampCmd = &cobra.Command{
	Use:   "offramp <usdc-amount>",
	Short: "Sell USDC for naira",
	Long: `Start an off-ramp: send USDC and receive naira in your bank account.

Examples:
  solramp offramp 20 --email you@example.com`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRamp(cmd, types.RampOff, args[0])
	},
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show the current USDC/NGN rates",
	Run:   runRates,
}

func init() {
	rootCmd.AddCommand(onrampCmd)
	rootCmd.AddCommand(offrampCmd)
	rootCmd.AddCommand(ratesCmd)

	for _, c := range []*cobra.Command{onrampCmd, offrampCmd} {
		c.Flags().StringVarP(&rampEmail, "email", "e", "", "Email for the payment provider (REQUIRED)")
		c.Flags().StringVarP(&rampAddress, "address", "a", "", "Wallet address (defaults to the configured wallet)")
		_ = c.MarkFlagRequired("email")
	}
}

func runRamp(cmd *cobra.Command, rampType types.RampType, amount string) {
	jsonOutput, verbose := outputFlags(cmd)
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	svc, err := a.rampService()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	address := rampAddress
	if address == "" {
		keypair, err := a.wallet()
		if err != nil {
			printError(fmt.Errorf("pass --address or configure a wallet: %w", err))
			os.Exit(1)
		}
		address = keypair.PublicKey().String()
	}

	stopSpinner := startSpinner("Fetching exchange rate...", jsonOutput)
	preview, err := svc.Preview(ctx, rampType, amount)
	stopSpinner()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displayRampPreview(preview)
		if !confirm("Continue to payment?") {
			fmt.Println("\nCancelled.")
			return
		}
	}

	stopSpinner = startSpinner("Starting transaction...", jsonOutput)
	initiation, err := svc.Initiate(ctx, types.RampRequest{
		Type:    rampType,
		Amount:  amount,
		Address: address,
		Email:   rampEmail,
	})
	stopSpinner()

	if err != nil {
		var upstreamErr *client.UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.Message != "" && !verbose {
			err = errors.New(upstreamErr.Message)
		}
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(initiation)
		return
	}

	printSuccess(color.GreenString("✓ Transaction started. Complete it at:"))
	color.Cyan("  %s\n\n", initiation.Link)
}

func displayRampPreview(p *ramp.Preview) {
	title := "ON-RAMP"
	if p.Type == types.RampOff {
		title = "OFF-RAMP"
	}
	banner(title, 60)

	if p.Type == types.RampOn {
		fmt.Printf("\n  You pay:           %s\n", color.YellowString(ramp.FormatNGN(p.NGN)))
		fmt.Printf("  You receive:       %s USDC\n", p.USDC.String())
	} else {
		fmt.Printf("\n  You send:          %s USDC\n", p.USDC.String())
		fmt.Printf("  You receive:       %s\n", color.YellowString(ramp.FormatNGN(p.NGN)))
	}
	fmt.Printf("  Rate:              %s / USDC\n", ramp.FormatNGN(decimalFromFloat(p.Rate)))
	if p.Fallback {
		color.HiBlack("  (live rate unavailable, using fallback rate)")
	}

	footer(60)
}

func runRates(cmd *cobra.Command, args []string) {
	jsonOutput, _ := outputFlags(cmd)
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	svc, err := a.rampService()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	stopSpinner := startSpinner("Fetching exchange rates...", jsonOutput)
	rates := svc.Rates(ctx)
	stopSpinner()

	if jsonOutput {
		printJSON(map[string]interface{}{
			"onramp_ngn":  rates.OnrampNGN,
			"offramp_ngn": rates.OfframpNGN,
			"fallback":    rates.Fallback,
		})
		return
	}

	banner("USDC / NGN", 60)
	fmt.Printf("\n  On-ramp:           %s\n", ramp.FormatNGN(decimalFromFloat(rates.OnrampNGN)))
	fmt.Printf("  Off-ramp:          %s\n", ramp.FormatNGN(decimalFromFloat(rates.OfframpNGN)))
	if rates.Fallback {
		color.HiBlack("  (live rate unavailable, using fallback rate)")
	}
	footer(60)
}
