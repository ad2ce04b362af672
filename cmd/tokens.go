package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"solramp/pkg/tokens"
	"solramp/pkg/types"
)

var (
	tokenSearch  string
	tokenPage    int
	tokenRefresh bool
)

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"list-tokens", "ls"},
	Short:   "List verified tokens",
	Long: `List the verified token directory. The first page holds 30 tokens and every
following page 10. The directory is cached for five minutes.

Examples:
  solramp tokens
  solramp tokens --search "usd coin"
  solramp tokens --page 2
  solramp tokens --refresh`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVarP(&tokenSearch, "search", "s", "", "Filter by name or symbol (all words must match)")
	tokensCmd.Flags().IntVarP(&tokenPage, "page", "p", 0, "Page number, starting at 0")
	tokensCmd.Flags().BoolVar(&tokenRefresh, "refresh", false, "Ignore the cached directory")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := outputFlags(cmd)
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	if tokenRefresh {
		if err := a.directory.Invalidate(ctx); err != nil {
			a.log.WithError(err).Warn("failed to invalidate token cache")
		}
	}

	stopSpinner := startSpinner("Fetching tokens...", jsonOutput)
	page, err := a.directory.List(ctx, tokenSearch, tokenPage)
	stopSpinner()

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(page)
		return
	}
	displayTokens(page)
}

func displayTokens(page *tokens.Page) {
	if len(page.Items) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	banner("VERIFIED TOKENS", 90)
	fmt.Println()

	for _, token := range page.Items {
		fmt.Printf("  %-10s  %-28s %2d decimals  %s\n",
			color.YellowString(token.Symbol),
			truncate(token.Name, 28),
			token.Decimals,
			color.HiBlackString(tokenAddress(token)))
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nPage %d: %d of %d tokens\n", page.Page, len(page.Items), page.Total)
	if page.HasMore {
		color.Cyan("Next page: solramp tokens --page %d\n", page.NextPage)
	}
	fmt.Println()
}

func tokenAddress(token types.Token) string {
	if token.IsNative() {
		return token.Address + " (native)"
	}
	return token.Address
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
