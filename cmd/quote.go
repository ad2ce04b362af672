package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"solramp/pkg/quote"
	"solramp/pkg/types"
)

var watchQuote bool

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Get a swap quote without executing it",
	Long: `Fetch the best route for a swap and the estimated network fee.

With --watch, every line read from stdin replaces the amount. Requests are
debounced and only the answer to the latest amount is shown.

Examples:
  solramp quote 1 SOL to USDC
  solramp quote 100 USDC to SOL --json
  solramp quote 1 SOL to USDC --watch`,
	Args: cobra.MinimumNArgs(3),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().BoolVarP(&watchQuote, "watch", "w", false, "Read new amounts from stdin")
}

func runQuote(cmd *cobra.Command, args []string) {
	jsonOutput, _ := outputFlags(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	stopSpinner := startSpinner("Fetching quote...", jsonOutput || watchQuote)
	intent, err := a.resolveIntent(ctx, args)
	if err != nil {
		stopSpinner()
		printError(err)
		os.Exit(1)
	}

	if watchQuote {
		stopSpinner()
		watchQuotes(ctx, a, intent, jsonOutput)
		return
	}

	q, err := a.quoteService().GetQuote(ctx, intent.From, intent.To, intent.Amount)
	stopSpinner()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(quoteOutput(q))
		return
	}
	displayQuote(q, a.cfg.Display.NativeUSDPrice)
}

func quoteOutput(q *quote.Quote) map[string]interface{} {
	return map[string]interface{}{
		"source_token":  q.Intent.From.Symbol,
		"dest_token":    q.Intent.To.Symbol,
		"source_amount": q.Intent.Amount,
		"in_amount":     q.InAmount.String(),
		"out_amount":    q.OutAmount.String(),
		"dest_amount":   q.OutputAmount.String(),
		"price_impact":  q.PriceImpactPct,
		"fee":           q.Fee,
		"generation":    q.Generation,
	}
}

func watchQuotes(ctx context.Context, a *app, intent types.SwapIntent, jsonOutput bool) {
	var lastShown atomic.Uint64

	tracker := quote.NewTracker(a.quoteService(), a.cfg.Quote.Debounce, func(u quote.Update) {
		defer lastShown.Store(u.Generation)

		switch {
		case u.Err != nil && jsonOutput:
			printJSON(map[string]interface{}{"generation": u.Generation, "error": u.Err.Error()})
		case u.Err != nil:
			color.Red("  [%d] %v", u.Generation, u.Err)
		case jsonOutput:
			printJSON(quoteOutput(u.Quote))
		default:
			fmt.Printf("  [%d] %s %s → ~%s %s  fee %s\n", u.Generation,
				u.Quote.Intent.Amount, u.Quote.Intent.From.Symbol,
				formatAmount(u.Quote.OutputAmount, u.Quote.Intent.To.Decimals), u.Quote.Intent.To.Symbol,
				formatFee(u.Quote.Fee, a.cfg.Display.NativeUSDPrice))
		}
	})
	defer tracker.Close()

	if !jsonOutput {
		fmt.Printf("\nQuoting %s → %s. Type an amount per line, Ctrl+D to finish.\n\n",
			color.YellowString(intent.From.Symbol), color.YellowString(intent.To.Symbol))
	}

	latest := tracker.Request(ctx, intent)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		intent.Amount = strings.TrimSpace(scanner.Text())
		latest = tracker.Request(ctx, intent)
	}

	// let the last debounced request finish
	deadline := time.Now().Add(a.cfg.Quote.Debounce + 30*time.Second)
	for lastShown.Load() != latest && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}
