// Package main provides the pcbuilder binary: a chat server that helps a
// user plan a PC build against live PCPartPicker listings.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "pcbuilder",
		Short: "Conversational PC build advisor backed by PCPartPicker",
		Long: `pcbuilder runs a chat server where an assistant interviews you about a
computer build, searches PCPartPicker for parts, proposes a build within
your budget and can save the approved list to your account.

Configuration is read from the environment and from a .env file in the
working directory.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(budgetCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
