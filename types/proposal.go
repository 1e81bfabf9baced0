package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

const MemberTypeVoting uint8 = 1

type Member struct {
	Address        common.Address `json:"address"`
	IsVotingMember bool           `json:"is_voting_member"`
	MemberType     uint8          `json:"member_type"`
	JoinedAt       uint64         `json:"joined_at"`
}

type Proposal struct {
	Id           uint64           `json:"id"`
	Proposer     common.Address   `json:"proposer"`
	StartTime    uint64           `json:"start_time"`
	EndTime      uint64           `json:"end_time"`
	Description  string           `json:"description"`
	Targets      []common.Address `json:"targets"`
	Values       []*uint256.Int   `json:"values"`
	Signatures   []string         `json:"signatures"`
	Calldatas    []hexutil.Bytes  `json:"calldatas"`
	ForVotes     uint64           `json:"for_votes"`
	AgainstVotes uint64           `json:"against_votes"`
	Executed     bool             `json:"executed"`
	Canceled     bool             `json:"canceled"`
}

// Action is one call carried by a proposal.
type Action struct {
	Target    common.Address
	Value     *uint256.Int
	Signature string
	Calldata  []byte
}

func (p *Proposal) Actions() []Action {
	acts := make([]Action, len(p.Targets))
	for i, target := range p.Targets {
		act := Action{Target: target, Value: new(uint256.Int)}
		if i < len(p.Values) && p.Values[i] != nil {
			act.Value = p.Values[i].Clone()
		}
		if i < len(p.Signatures) {
			act.Signature = p.Signatures[i]
		}
		if i < len(p.Calldatas) {
			act.Calldata = p.Calldatas[i]
		}
		acts[i] = act
	}
	return acts
}

func (p *Proposal) TotalVotes() uint64 {
	return p.ForVotes + p.AgainstVotes
}

type ProposalState uint64

const (
	ProposalStateActive    ProposalState = 1
	ProposalStateDefeated  ProposalState = 2
	ProposalStateSucceeded ProposalState = 3
	ProposalStateExecuted  ProposalState = 4
	ProposalStateCanceled  ProposalState = 5
)

func (s ProposalState) String() string {
	switch s {
	case ProposalStateActive:
		return "active"
	case ProposalStateDefeated:
		return "defeated"
	case ProposalStateSucceeded:
		return "succeeded"
	case ProposalStateExecuted:
		return "executed"
	case ProposalStateCanceled:
		return "canceled"
	}
	return "unknown"
}

type VoteRecord struct {
	ProposalId uint64         `json:"proposal_id"`
	Voter      common.Address `json:"voter"`
	Support    bool           `json:"support"`
	Weight     uint64         `json:"weight"`
}
