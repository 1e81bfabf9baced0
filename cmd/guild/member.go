package main

import (
	"context"

	"github.com/calehh/guild-app/contract"
	"github.com/calehh/guild-app/types"
	"github.com/spf13/cobra"
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Membership registry commands",
}

var (
	memberAddArgs  txFlags
	memberJoinArgs txFlags
	memberFeeArgs  txFlags
)

var memberAddCmd = &cobra.Command{
	Use:   "add <address>",
	Short: "Admit a voting member, owner only",
	Args:  cobra.ExactArgs(1),
	RunE:  memberAddRun,
}

var memberJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join as a voting member paying the current entry fee",
	Args:  cobra.NoArgs,
	RunE:  memberJoinRun,
}

var memberFeeCmd = &cobra.Command{
	Use:   "fee <amount>",
	Short: "Set the voting member entry fee, owner only",
	Args:  cobra.ExactArgs(1),
	RunE:  memberFeeRun,
}

type memberShowArguments struct {
	Url    string
	Key    string
	Output string
}

var memberShowArgs memberShowArguments

var memberShowCmd = &cobra.Command{
	Use:   "show [address]",
	Short: "Show one member, the key file account by default",
	Args:  cobra.MaximumNArgs(1),
	RunE:  memberShowRun,
}

var memberListArgs memberShowArguments

var memberListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every voting member in admission order",
	Args:  cobra.NoArgs,
	RunE:  memberListRun,
}

func init() {
	memberAddArgs.register(memberAddCmd)
	memberAddArgs.proposable(memberAddCmd)
	memberJoinArgs.register(memberJoinCmd)
	memberFeeArgs.register(memberFeeCmd)
	memberFeeArgs.proposable(memberFeeCmd)
	urlFlag(memberShowCmd, &memberShowArgs.Url)
	keyFlag(memberShowCmd, &memberShowArgs.Key)
	outputFlag(memberShowCmd, &memberShowArgs.Output)
	urlFlag(memberListCmd, &memberListArgs.Url)
	outputFlag(memberListCmd, &memberListArgs.Output)
	memberCmd.AddCommand(memberAddCmd, memberJoinCmd, memberFeeCmd, memberShowCmd, memberListCmd)
}

func memberAddRun(cmd *cobra.Command, args []string) error {
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	return sendOwnerCall(&memberAddArgs, contract.MembershipName, "addVotingMember", addr)
}

func memberJoinRun(cmd *cobra.Command, args []string) error {
	cli, err := newNodeClient(memberJoinArgs.Url)
	if err != nil {
		return err
	}
	p, err := cli.params(context.Background())
	if err != nil {
		return err
	}
	data, err := contract.MembershipABI.Pack("join")
	if err != nil {
		return err
	}
	return sendCall(&memberJoinArgs, p.Contracts.Membership, p.EntryFee, data)
}

func memberFeeRun(cmd *cobra.Command, args []string) error {
	fee, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	return sendOwnerCall(&memberFeeArgs, contract.MembershipName, "setVotingMemberEntryFee", fee.ToBig())
}

func memberShowRun(cmd *cobra.Command, args []string) error {
	addr, err := addressArg(args, memberShowArgs.Key)
	if err != nil {
		return err
	}
	cli, err := newNodeClient(memberShowArgs.Url)
	if err != nil {
		return err
	}
	var member types.Member
	if err = cli.queryJSON(context.Background(), "/members/", addr.Bytes(), &member); err != nil {
		return err
	}
	return writeOutput(memberShowArgs.Output, &member)
}

func memberListRun(cmd *cobra.Command, args []string) error {
	cli, err := newNodeClient(memberListArgs.Url)
	if err != nil {
		return err
	}
	var members []*types.Member
	if err = cli.queryJSON(context.Background(), "/members/", nil, &members); err != nil {
		return err
	}
	return writeOutput(memberListArgs.Output, members)
}
