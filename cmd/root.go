// Package cmd implements the maitred CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"
const logo = "🎩"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "maitred",
	Short: logo + " maitred — AI concierge tool server",
	Long:  logo + " maitred — books restaurants and activities by phone, exposed as MCP tools",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statusCmd)
}
