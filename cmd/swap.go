package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"solramp/pkg/quote"
	"solramp/pkg/swap"
	"solramp/pkg/types"
	"solramp/pkg/wallet"
)

var noConfirm bool

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <source-token> to <dest-token>",
	Short: "Swap tokens through the Jupiter aggregator",
	Long: `Quote and execute a token swap from the configured wallet.

When the wallet does not hold enough SOL for network fees and the input is
an SPL token, part of the input is first swapped to SOL (requires octane.url).
Every transaction is shown for approval before it is signed unless --yes is set.

Examples:
  solramp swap 1 SOL to USDC
  solramp swap 25 USDC to BONK --yes
  solramp swap 0.5 SOL to JUP --json --yes`,
	Args: cobra.MinimumNArgs(3),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Sign without asking for approval")
}

func runSwap(cmd *cobra.Command, args []string) {
	jsonOutput, verbose := outputFlags(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{serveMetrics: true})
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	keypair, err := a.wallet()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	stopSpinner := startSpinner("Fetching quote...", jsonOutput)
	intent, err := a.resolveIntent(ctx, args)
	var q *quote.Quote
	if err == nil {
		q, err = a.quoteService().GetQuote(ctx, intent.From, intent.To, intent.Amount)
	}
	stopSpinner()

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displayQuote(q, a.cfg.Display.NativeUSDPrice)
	}

	var signer swap.Signer = keypair
	if !noConfirm && !jsonOutput {
		signer = &wallet.Prompting{Signer: keypair, Approve: approveTransaction}
	}

	bus := swap.NewBus()
	if !jsonOutput {
		unsubscribe := bus.Subscribe(func(ev types.Event) { printEvent(ev, verbose) })
		defer unsubscribe()
	}

	pipeline := a.pipeline(signer, bus)
	result, err := pipeline.Submit(ctx, q)

	if jsonOutput {
		output := map[string]interface{}{
			"result": result,
			"status": "done",
		}
		if err != nil {
			output["status"] = "failed"
			output["kind"] = string(swap.KindOf(err))
			output["reason"] = swap.Reason(err)
		}
		printJSON(output)
		if err != nil {
			os.Exit(1)
		}
		return
	}

	if err != nil {
		if verbose {
			fmt.Printf("\nDebug: %v\n", err)
		}
		if result != nil && result.Signature != "" {
			fmt.Println("\nThe transaction was sent. Check it with:")
			color.Cyan("  solramp status %s --watch\n", result.Signature)
		}
		os.Exit(1)
	}

	displaySwapResult(result)
}

func approveTransaction(_ context.Context, tx *solana.Transaction) (bool, error) {
	feePayer := tx.Message.AccountKeys[0]
	fmt.Printf("\n  Transaction with %d instruction(s), fee payer %s\n",
		len(tx.Message.Instructions), color.CyanString(feePayer.String()))
	return confirm("Approve and sign?"), nil
}

func printEvent(ev types.Event, verbose bool) {
	switch ev.Stage {
	case types.StageDone:
		color.Green("  ✓ %s", ev.Message)
	case types.StageFailed:
		color.Red("  ✗ %s", ev.Message)
	default:
		fmt.Printf("  %s %s\n", color.CyanString("→"), ev.Message)
	}

	if verbose {
		fmt.Printf("      %s  stage=%s attempt=%s\n",
			color.HiBlackString(ev.At.Format(time.TimeOnly)), stageColor(ev.Stage), ev.AttemptID)
	}
}

func displayQuote(q *quote.Quote, nativeUSD float64) {
	banner("SWAP QUOTE", 60)

	fmt.Printf("\n  From:              %s %s\n", q.Intent.Amount, color.YellowString(q.Intent.From.Symbol))
	fmt.Printf("  To:                ~%s %s\n", formatAmount(q.OutputAmount, q.Intent.To.Decimals), color.YellowString(q.Intent.To.Symbol))
	if q.PriceImpactPct != "" {
		fmt.Printf("  Price Impact:      %s%%\n", q.PriceImpactPct)
	}
	fmt.Printf("  Network Fee:       %s\n", formatFee(q.Fee, nativeUSD))

	footer(60)
}

func displaySwapResult(result *swap.Result) {
	banner("SWAP COMPLETE", 60)

	fmt.Printf("\n  Signature:         %s\n", color.CyanString(result.Signature))
	if result.JitSignature != "" {
		fmt.Printf("  Fee Swap:          %s\n", color.HiBlackString(result.JitSignature))
	}
	fmt.Printf("  Attempt:           %s\n", result.AttemptID)

	footer(60)
}
