package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"solramp/config"
)

var rootCmd = &cobra.Command{
	Use:   "solramp",
	Short: "Swap Solana tokens through Jupiter and move between USDC and naira",
	Long: `solramp is a command-line wallet companion for Solana. It quotes and executes
token swaps through the Jupiter aggregator, covers missing SOL fees with a
small just-in-time swap, and starts fiat on-ramp and off-ramp transactions.

Examples:
  solramp tokens --search usd
  solramp quote 1 SOL to USDC
  solramp swap 1 SOL to USDC
  solramp balance --tokens USDC,BONK
  solramp status <signature> --watch
  solramp onramp 20 --email you@example.com
  solramp rates`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.ConfigFile, _ = cmd.Flags().GetString("config")
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is $HOME/.solramp.yaml)")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

func outputFlags(cmd *cobra.Command) (jsonOutput, verbose bool) {
	jsonOutput, _ = cmd.Flags().GetBool("json")
	verbose, _ = cmd.Flags().GetBool("verbose")
	return jsonOutput, verbose
}

// startSpinner shows suffix while waiting; nothing is drawn in JSON mode
func startSpinner(suffix string, jsonOutput bool) func() {
	if jsonOutput {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

func confirm(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", question)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func banner(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	pad := (width - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	titleColor.Println(strings.Repeat(" ", pad) + title)
	fmt.Println(strings.Repeat("=", width))
}

func footer(width int) {
	fmt.Println("\n" + strings.Repeat("=", width) + "\n")
}
