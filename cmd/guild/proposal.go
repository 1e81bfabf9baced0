package main

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/calehh/guild-app/app"
	"github.com/calehh/guild-app/contract"
	"github.com/calehh/guild-app/types"
	"github.com/spf13/cobra"
)

var proposalCmd = &cobra.Command{
	Use:   "proposal",
	Short: "Governance proposal commands",
}

type proposalCreateArguments struct {
	txFlags
	Actions     []string
	Description string
}

var proposalCreateArgs proposalCreateArguments

var proposalCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a proposal, voting members only",
	Long: `Each --action is "target|signature|args|value". target is a contract
name (membership, payment, income, governance) or an address. With a
signature, args are comma separated values for its parameters; with an empty
signature, args is 0x prefixed raw calldata.

  guild proposal create -m "raise fee" \
    --action "membership|setVotingMemberEntryFee(uint256)|1000"`,
	Args: cobra.NoArgs,
	RunE: proposalCreateRun,
}

var proposalVoteArgs txFlags

var proposalVoteCmd = &cobra.Command{
	Use:   "vote <id> <yes|no>",
	Short: "Vote on an active proposal",
	Args:  cobra.ExactArgs(2),
	RunE:  proposalVoteRun,
}

type proposalExecuteArguments struct {
	txFlags
	Value string
}

var proposalExecuteArgs proposalExecuteArguments

var proposalExecuteCmd = &cobra.Command{
	Use:   "execute <id>",
	Short: "Execute a succeeded proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  proposalExecuteRun,
}

var proposalExtendArgs txFlags

var proposalExtendCmd = &cobra.Command{
	Use:   "extend <id> <end-time>",
	Short: "Move the end time of an active proposal, governance owner only",
	Args:  cobra.ExactArgs(2),
	RunE:  proposalExtendRun,
}

type proposalShowArguments struct {
	Url    string
	Output string
}

var proposalShowArgs proposalShowArguments

var proposalShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a proposal and its state",
	Args:  cobra.ExactArgs(1),
	RunE:  proposalShowRun,
}

var proposalListArgs proposalShowArguments

var proposalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest proposals",
	Args:  cobra.NoArgs,
	RunE:  proposalListRun,
}

var proposalVoteOfArgs proposalShowArguments

var proposalVoteOfCmd = &cobra.Command{
	Use:   "vote-of <id> <voter>",
	Short: "Show how an address voted on a proposal",
	Args:  cobra.ExactArgs(2),
	RunE:  proposalVoteOfRun,
}

func init() {
	proposalCreateArgs.register(proposalCreateCmd)
	proposalCreateCmd.Flags().StringArrayVarP(&proposalCreateArgs.Actions, "action", "a", nil, "proposal action, repeatable")
	proposalCreateCmd.Flags().StringVarP(&proposalCreateArgs.Description, "description", "m", "", "proposal description")
	proposalVoteArgs.register(proposalVoteCmd)
	proposalExecuteArgs.register(proposalExecuteCmd)
	proposalExecuteCmd.Flags().StringVar(&proposalExecuteArgs.Value, "value", "", "native tokens attached to the execution")
	proposalExtendArgs.register(proposalExtendCmd)
	for cmd, a := range map[*cobra.Command]*proposalShowArguments{
		proposalShowCmd:   &proposalShowArgs,
		proposalListCmd:   &proposalListArgs,
		proposalVoteOfCmd: &proposalVoteOfArgs,
	} {
		urlFlag(cmd, &a.Url)
		outputFlag(cmd, &a.Output)
	}
	proposalCmd.AddCommand(proposalCreateCmd, proposalVoteCmd, proposalExecuteCmd, proposalExtendCmd,
		proposalShowCmd, proposalListCmd, proposalVoteOfCmd)
}

func parseProposalId(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal id %q", s)
	}
	return id, nil
}

func parseSupport(s string) (bool, error) {
	switch s {
	case "yes", "for", "y":
		return true, nil
	case "no", "against", "n":
		return false, nil
	}
	return strconv.ParseBool(s)
}

var governanceAddr = contract.ContractAddress(contract.GovernanceName)

func proposalCreateRun(cmd *cobra.Command, args []string) error {
	acts := make([]*proposalAction, 0, len(proposalCreateArgs.Actions))
	for _, s := range proposalCreateArgs.Actions {
		act, err := parseAction(s)
		if err != nil {
			return err
		}
		acts = append(acts, act)
	}
	data, err := createProposalData(acts, proposalCreateArgs.Description)
	if err != nil {
		return err
	}
	return sendCall(&proposalCreateArgs.txFlags, governanceAddr, nil, data)
}

func proposalVoteRun(cmd *cobra.Command, args []string) error {
	id, err := parseProposalId(args[0])
	if err != nil {
		return err
	}
	support, err := parseSupport(args[1])
	if err != nil {
		return err
	}
	data, err := contract.GovernanceABI.Pack("vote", new(big.Int).SetUint64(id), support)
	if err != nil {
		return err
	}
	return sendCall(&proposalVoteArgs, governanceAddr, nil, data)
}

func proposalExecuteRun(cmd *cobra.Command, args []string) error {
	id, err := parseProposalId(args[0])
	if err != nil {
		return err
	}
	value, err := parseAmount(proposalExecuteArgs.Value)
	if err != nil {
		return err
	}
	data, err := contract.GovernanceABI.Pack("executeProposal", new(big.Int).SetUint64(id))
	if err != nil {
		return err
	}
	return sendCall(&proposalExecuteArgs.txFlags, governanceAddr, value, data)
}

func proposalExtendRun(cmd *cobra.Command, args []string) error {
	id, err := parseProposalId(args[0])
	if err != nil {
		return err
	}
	end, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid end time %q", args[1])
	}
	data, err := contract.GovernanceABI.Pack("updateProposalEndTime", new(big.Int).SetUint64(id), new(big.Int).SetUint64(end))
	if err != nil {
		return err
	}
	return sendCall(&proposalExtendArgs, governanceAddr, nil, data)
}

func proposalShowRun(cmd *cobra.Command, args []string) error {
	id, err := parseProposalId(args[0])
	if err != nil {
		return err
	}
	cli, err := newNodeClient(proposalShowArgs.Url)
	if err != nil {
		return err
	}
	var view types.ProposalView
	if err = cli.queryJSON(context.Background(), "/proposals/", app.EncodeProposalId(id), &view); err != nil {
		return err
	}
	return writeOutput(proposalShowArgs.Output, &view)
}

func proposalListRun(cmd *cobra.Command, args []string) error {
	cli, err := newNodeClient(proposalListArgs.Url)
	if err != nil {
		return err
	}
	var views []*types.ProposalView
	if err = cli.queryJSON(context.Background(), "/proposals/", nil, &views); err != nil {
		return err
	}
	return writeOutput(proposalListArgs.Output, views)
}

func proposalVoteOfRun(cmd *cobra.Command, args []string) error {
	id, err := parseProposalId(args[0])
	if err != nil {
		return err
	}
	voter, err := parseAddress(args[1])
	if err != nil {
		return err
	}
	cli, err := newNodeClient(proposalVoteOfArgs.Url)
	if err != nil {
		return err
	}
	var rec types.VoteRecord
	if err = cli.queryJSON(context.Background(), "/votes/", app.EncodeVoteKey(id, voter), &rec); err != nil {
		return err
	}
	return writeOutput(proposalVoteOfArgs.Output, &rec)
}
