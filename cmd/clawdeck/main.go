package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "clawdeck",
	Short: "ClawDeck agent dashboard backend",
	Long:  "ClawDeck keeps the state behind an agent dashboard: agents, API keys and their credit usage, recorded API metrics, and installed skills with their execution history.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
