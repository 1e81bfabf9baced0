package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guild",
	Short: "Guild is a member governed treasury chain",
	Long: `A CometBFT chain running the guild contracts: a membership registry,
a consultant payment registry, an income distributor and a governance engine.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(memberCmd)
	rootCmd.AddCommand(proposalCmd)
	rootCmd.AddCommand(treasuryCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(indexerCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
