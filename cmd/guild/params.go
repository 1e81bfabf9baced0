package main

import (
	"context"

	"github.com/spf13/cobra"
)

type paramsArguments struct {
	Url    string
	Output string
}

var paramsArgs paramsArguments

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Show contract addresses, owners, fees and treasury totals",
	Args:  cobra.NoArgs,
	RunE:  paramsRun,
}

func init() {
	urlFlag(paramsCmd, &paramsArgs.Url)
	outputFlag(paramsCmd, &paramsArgs.Output)
}

func paramsRun(cmd *cobra.Command, args []string) error {
	cli, err := newNodeClient(paramsArgs.Url)
	if err != nil {
		return err
	}
	p, err := cli.params(context.Background())
	if err != nil {
		return err
	}
	return writeOutput(paramsArgs.Output, p)
}
