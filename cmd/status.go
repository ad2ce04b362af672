package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"

	"solramp/pkg/chain"
)

var (
	watchStatus   bool
	watchInterval int
	watchTimeout  time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status <signature>",
	Short: "Check the status of a transaction",
	Long: `Check the confirmation status of a transaction by its signature.

With --watch the command polls until the transaction is finalized, fails on
chain or the timeout elapses.

Examples:
  solramp status 5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW
  solramp status <signature> --watch
  solramp status <signature> --watch --interval 5`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Wait until the transaction is finalized")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 2, "Polling interval in seconds (when watching)")
	statusCmd.Flags().DurationVar(&watchTimeout, "timeout", 2*time.Minute, "Give up watching after this long")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := outputFlags(cmd)

	sig, err := solana.SignatureFromBase58(args[0])
	if err != nil {
		printError(fmt.Errorf("invalid signature: %w", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	if watchStatus {
		if jsonOutput {
			fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
			os.Exit(1)
		}
		watchTransaction(ctx, a, sig)
		return
	}

	stopSpinner := startSpinner("Checking transaction status...", jsonOutput)
	status, err := chain.Status(ctx, a.rpc, sig, true)
	stopSpinner()

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"signature": sig.String(),
			"found":     status != nil,
			"status":    status,
		})
		return
	}
	displayStatus(sig, status)
}

func watchTransaction(ctx context.Context, a *app, sig solana.Signature) {
	fmt.Printf("\nWatching transaction %s\n", color.CyanString(sig.String()))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n", watchInterval)

	confirmer := chain.NewConfirmer(a.rpc, rpc.CommitmentFinalized, watchTimeout, time.Duration(watchInterval)*time.Second)

	stopSpinner := startSpinner("Waiting for finalization...", false)
	err := confirmer.Wait(ctx, sig, 0)
	stopSpinner()

	status, statusErr := chain.Status(context.Background(), a.rpc, sig, true)
	if statusErr == nil {
		displayStatus(sig, status)
	}

	switch {
	case err == nil:
		color.Green("✓ Transaction finalized.\n")
	case errors.Is(err, chain.ErrTransactionFailed):
		color.Red("✗ Transaction failed on chain.\n")
		os.Exit(1)
	case errors.Is(err, context.Canceled):
		fmt.Println("Stopped.")
	default:
		printError(err)
		os.Exit(1)
	}
}

func displayStatus(sig solana.Signature, status *rpc.SignatureStatusesResult) {
	banner("TRANSACTION STATUS", 70)

	fmt.Printf("\n  Signature:       %s\n", color.CyanString(sig.String()))
	if status == nil {
		fmt.Printf("  Status:          %s\n", color.MagentaString("NOT FOUND"))
		footer(70)
		return
	}

	fmt.Printf("  Status:          %s\n", getColoredStatus(status))
	fmt.Printf("  Slot:            %d\n", status.Slot)
	if status.Confirmations != nil {
		fmt.Printf("  Confirmations:   %d\n", *status.Confirmations)
	}
	if status.Err != nil {
		fmt.Printf("  Error:           %s\n", color.RedString("%v", status.Err))
	}

	footer(70)
}

func getColoredStatus(status *rpc.SignatureStatusesResult) string {
	if status.Err != nil {
		return color.RedString("FAILED")
	}

	name := strings.ToUpper(string(status.ConfirmationStatus))
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		return color.GreenString(name)
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusProcessed:
		return color.YellowString(name)
	default:
		return name
	}
}
