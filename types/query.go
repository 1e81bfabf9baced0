package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// ProposalView is a stored proposal with its state at the last block.
type ProposalView struct {
	Proposal  `yaml:",inline"`
	State     ProposalState `json:"state" yaml:"state"`
	StateName string        `json:"state_name" yaml:"state_name"`
}

type ContractAddresses struct {
	Membership common.Address `json:"membership" yaml:"membership"`
	Payment    common.Address `json:"payment" yaml:"payment"`
	Income     common.Address `json:"income" yaml:"income"`
	Governance common.Address `json:"governance" yaml:"governance"`
}

type ContractOwners struct {
	Membership common.Address `json:"membership" yaml:"membership"`
	Payment    common.Address `json:"payment" yaml:"payment"`
	Income     common.Address `json:"income" yaml:"income"`
	Governance common.Address `json:"governance" yaml:"governance"`
}

// Params is the guild wide configuration and treasury books.
type Params struct {
	ChainId                 string            `json:"chain_id" yaml:"chain_id"`
	Height                  uint64            `json:"height" yaml:"height"`
	Contracts               ContractAddresses `json:"contracts" yaml:"contracts"`
	Owners                  ContractOwners    `json:"owners" yaml:"owners"`
	Founder                 common.Address    `json:"founder" yaml:"founder"`
	EntryFee                *uint256.Int      `json:"entry_fee" yaml:"entry_fee"`
	TotalVotingMembers      uint64            `json:"total_voting_members" yaml:"total_voting_members"`
	VotingPeriod            uint64            `json:"voting_period" yaml:"voting_period"`
	ProposalCount           uint64            `json:"proposal_count" yaml:"proposal_count"`
	CompanyIncomePercentage uint64            `json:"company_income_percentage" yaml:"company_income_percentage"`
	TotalReceived           *uint256.Int      `json:"total_received" yaml:"total_received"`
	TotalDistributed        *uint256.Int      `json:"total_distributed" yaml:"total_distributed"`
	TreasuryBalance         *uint256.Int      `json:"treasury_balance" yaml:"treasury_balance"`
}

// CallRequest is a read only contract call evaluated by the /call/ query.
type CallRequest struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *uint256.Int   `json:"value,omitempty"`
	Data  hexutil.Bytes  `json:"data"`
}
