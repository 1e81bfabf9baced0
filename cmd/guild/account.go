package main

import (
	"context"

	"github.com/calehh/guild-app/crypto"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type accountArguments struct {
	Url    string
	Key    string
	Output string
}

var accountArgs accountArguments

var accountCmd = &cobra.Command{
	Use:   "account [address]",
	Short: "Show the nonce and balance of an account",
	Long:  `Without an address the account of the key file is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  accountRun,
}

var transferArgs txFlags

var transferCmd = &cobra.Command{
	Use:   "transfer <to> <amount>",
	Short: "Send native tokens to an address",
	Args:  cobra.ExactArgs(2),
	RunE:  transferRun,
}

func init() {
	urlFlag(accountCmd, &accountArgs.Url)
	keyFlag(accountCmd, &accountArgs.Key)
	outputFlag(accountCmd, &accountArgs.Output)
	transferArgs.register(transferCmd)
	accountCmd.AddCommand(transferCmd)
}

// addressArg takes the first arg or falls back to the key file address.
func addressArg(args []string, key string) (common.Address, error) {
	if len(args) > 0 {
		return parseAddress(args[0])
	}
	k, err := crypto.LoadKey(keyPath(key))
	if err != nil {
		return common.Address{}, err
	}
	return k.Address(), nil
}

func accountRun(cmd *cobra.Command, args []string) error {
	addr, err := addressArg(args, accountArgs.Key)
	if err != nil {
		return err
	}
	cli, err := newNodeClient(accountArgs.Url)
	if err != nil {
		return err
	}
	act, err := cli.account(context.Background(), addr)
	if err != nil {
		return err
	}
	return writeOutput(accountArgs.Output, act)
}

func transferRun(cmd *cobra.Command, args []string) error {
	to, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	key, err := crypto.LoadKey(keyPath(transferArgs.Key))
	if err != nil {
		return err
	}
	cli, err := newNodeClient(transferArgs.Url)
	if err != nil {
		return err
	}
	res, err := cli.transfer(context.Background(), key, transferArgs.Nonce, to, amount)
	if err != nil {
		return err
	}
	return printBroadcast(transferArgs.Output, res)
}
