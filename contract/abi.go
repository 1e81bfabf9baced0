package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const ownableABIMethods = `
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]}`

const membershipABIJSON = `[
	{"type":"function","name":"addVotingMember","stateMutability":"nonpayable","inputs":[{"name":"_member","type":"address"}],"outputs":[]},
	{"type":"function","name":"join","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"setVotingMemberEntryFee","stateMutability":"nonpayable","inputs":[{"name":"_fee","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"isVotingMember","stateMutability":"view","inputs":[{"name":"_member","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getCurrentVotingMemberEntryFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getTotalVotingMembers","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getMember","stateMutability":"view","inputs":[{"name":"_member","type":"address"}],"outputs":[{"name":"isVotingMember","type":"bool"},{"name":"memberType","type":"uint8"},{"name":"joinedAt","type":"uint256"}]},
	{"type":"function","name":"founder","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"feeRecipient","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},` + ownableABIMethods + `
]`

const paymentABIJSON = `[
	{"type":"function","name":"setConsultantRate","stateMutability":"nonpayable","inputs":[{"name":"_consultant","type":"address"},{"name":"_rate","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getConsultantRate","stateMutability":"view","inputs":[{"name":"_consultant","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},` + ownableABIMethods + `
]`

const incomeABIJSON = `[
	{"type":"function","name":"distributeIncomeForConsultant","stateMutability":"nonpayable","inputs":[{"name":"_consultant","type":"address"},{"name":"_workUnits","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"setCompanyIncomePercentage","stateMutability":"nonpayable","inputs":[{"name":"_percentage","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getCompanyIncomePercentage","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalReceived","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalDistributed","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"paymentContract","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},` + ownableABIMethods + `
]`

const governanceABIJSON = `[
	{"type":"function","name":"createProposal","stateMutability":"nonpayable","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"signatures","type":"string[]"},{"name":"calldatas","type":"bytes[]"},{"name":"description","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"vote","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"},{"name":"support","type":"bool"}],"outputs":[]},
	{"type":"function","name":"executeProposal","stateMutability":"payable","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"updateProposalEndTime","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"},{"name":"newEndTime","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getVotes","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getProposalCoreDetails","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"proposer","type":"address"},{"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"},{"name":"description","type":"string"},{"name":"forVotes","type":"uint256"},{"name":"againstVotes","type":"uint256"},{"name":"executed","type":"bool"},{"name":"canceled","type":"bool"}]},
	{"type":"function","name":"getProposalTargets","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"getProposalValues","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"getProposalSignatures","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"string[]"}]},
	{"type":"function","name":"getProposalCalldatas","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"bytes[]"}]},
	{"type":"function","name":"proposalCounter","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"hasVoted","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"},{"name":"voter","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"state","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"votingPeriod","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"membershipContract","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"incomeManagementContract","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"paymentContract","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},` + ownableABIMethods + `
]`

var (
	MembershipABI = mustParseABI(membershipABIJSON)
	PaymentABI    = mustParseABI(paymentABIJSON)
	IncomeABI     = mustParseABI(incomeABIJSON)
	GovernanceABI = mustParseABI(governanceABIJSON)
)

func mustParseABI(def string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return &parsed
}

// ABIByName returns the ABI of a built-in contract.
func ABIByName(name string) (*abi.ABI, bool) {
	switch name {
	case MembershipName:
		return MembershipABI, true
	case PaymentName:
		return PaymentABI, true
	case IncomeName:
		return IncomeABI, true
	case GovernanceName:
		return GovernanceABI, true
	}
	return nil, false
}
