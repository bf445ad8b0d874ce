// vplan is a thin command-line client for the vplan engine's REST API.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var endpoint string

var rootCmd = &cobra.Command{
	Use:   "vplan",
	Short: "Manage vacation lighting plans",
	Long:  "Client for the vplan engine, which keeps switches at a remote home-automation provider following your vacation lighting plans.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "http://localhost:8080", "Engine API endpoint")
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(planCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
