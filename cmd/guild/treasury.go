package main

import (
	"context"
	"strconv"

	"github.com/calehh/guild-app/contract"
	"github.com/calehh/guild-app/crypto"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

var treasuryCmd = &cobra.Command{
	Use:   "treasury",
	Short: "Payment registry and income distributor commands",
}

var (
	treasuryPayArgs        txFlags
	treasuryDistributeArgs txFlags
	treasuryRateArgs       txFlags
	treasuryPctArgs        txFlags
)

var treasuryPayCmd = &cobra.Command{
	Use:   "pay <amount>",
	Short: "Pay native tokens into the treasury",
	Args:  cobra.ExactArgs(1),
	RunE:  treasuryPayRun,
}

var treasuryDistributeCmd = &cobra.Command{
	Use:   "distribute <consultant> <work-units>",
	Short: "Pay a consultant for work units at the registered rate, owner only",
	Args:  cobra.ExactArgs(2),
	RunE:  treasuryDistributeRun,
}

var treasuryRateCmd = &cobra.Command{
	Use:   "rate <consultant> <rate>",
	Short: "Register a consultant's rate per work unit, owner only",
	Args:  cobra.ExactArgs(2),
	RunE:  treasuryRateRun,
}

var treasuryPctCmd = &cobra.Command{
	Use:   "percentage <basis-points>",
	Short: "Set the company income percentage, owner only",
	Args:  cobra.ExactArgs(1),
	RunE:  treasuryPctRun,
}

type rateOfArguments struct {
	Url    string
	Output string
}

var rateOfArgs rateOfArguments

var treasuryRateOfCmd = &cobra.Command{
	Use:   "rate-of <consultant>",
	Short: "Show a consultant's registered rate",
	Args:  cobra.ExactArgs(1),
	RunE:  treasuryRateOfRun,
}

func init() {
	treasuryPayArgs.register(treasuryPayCmd)
	for _, c := range []struct {
		cmd *cobra.Command
		f   *txFlags
	}{
		{treasuryDistributeCmd, &treasuryDistributeArgs},
		{treasuryRateCmd, &treasuryRateArgs},
		{treasuryPctCmd, &treasuryPctArgs},
	} {
		c.f.register(c.cmd)
		c.f.proposable(c.cmd)
	}
	urlFlag(treasuryRateOfCmd, &rateOfArgs.Url)
	outputFlag(treasuryRateOfCmd, &rateOfArgs.Output)
	treasuryCmd.AddCommand(treasuryPayCmd, treasuryDistributeCmd, treasuryRateCmd, treasuryPctCmd, treasuryRateOfCmd)
}

func treasuryPayRun(cmd *cobra.Command, args []string) error {
	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	key, err := crypto.LoadKey(keyPath(treasuryPayArgs.Key))
	if err != nil {
		return err
	}
	cli, err := newNodeClient(treasuryPayArgs.Url)
	if err != nil {
		return err
	}
	res, err := cli.transfer(context.Background(), key, treasuryPayArgs.Nonce, contract.ContractAddress(contract.IncomeName), amount)
	if err != nil {
		return err
	}
	return printBroadcast(treasuryPayArgs.Output, res)
}

func consultantAmount(args []string) (common.Address, *uint256.Int, error) {
	consultant, err := parseAddress(args[0])
	if err != nil {
		return consultant, nil, err
	}
	v, err := parseAmount(args[1])
	return consultant, v, err
}

func treasuryDistributeRun(cmd *cobra.Command, args []string) error {
	consultant, units, err := consultantAmount(args)
	if err != nil {
		return err
	}
	return sendOwnerCall(&treasuryDistributeArgs, contract.IncomeName, "distributeIncomeForConsultant", consultant, units.ToBig())
}

func treasuryRateRun(cmd *cobra.Command, args []string) error {
	consultant, rate, err := consultantAmount(args)
	if err != nil {
		return err
	}
	return sendOwnerCall(&treasuryRateArgs, contract.PaymentName, "setConsultantRate", consultant, rate.ToBig())
}

func treasuryPctRun(cmd *cobra.Command, args []string) error {
	pct, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return err
	}
	return sendOwnerCall(&treasuryPctArgs, contract.IncomeName, "setCompanyIncomePercentage", uint256.NewInt(pct).ToBig())
}

type consultantRate struct {
	Consultant common.Address `json:"consultant" yaml:"consultant"`
	Rate       string         `json:"rate" yaml:"rate"`
}

func treasuryRateOfRun(cmd *cobra.Command, args []string) error {
	consultant, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	data, err := contract.PaymentABI.Pack("getConsultantRate", consultant)
	if err != nil {
		return err
	}
	cli, err := newNodeClient(rateOfArgs.Url)
	if err != nil {
		return err
	}
	ret, err := cli.view(context.Background(), common.Address{}, contract.ContractAddress(contract.PaymentName), data)
	if err != nil {
		return err
	}
	outs, err := contract.PaymentABI.Unpack("getConsultantRate", ret)
	if err != nil {
		return err
	}
	return writeOutput(rateOfArgs.Output, &consultantRate{Consultant: consultant, Rate: abiUint(outs[0])})
}
