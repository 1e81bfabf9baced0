package contract

import (
	"fmt"
	"math/big"

	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const (
	keyVotingPeriod       = "votingPeriod"
	keyProposalCounter    = "proposalCounter"
	keyProposal           = "proposal/%d"
	keyVote               = "vote/%d/%s"
	keyMembershipContract = "membershipContract"
	keyIncomeContract     = "incomeManagementContract"
)

// Governance owns the proposal table. Proposals are never deleted.
type Governance struct {
	Ownable
	addr common.Address
}

func NewGovernance(addr common.Address) *Governance {
	return &Governance{Ownable: Ownable{addr: addr}, addr: addr}
}

func (g *Governance) Name() string            { return GovernanceName }
func (g *Governance) Address() common.Address { return g.addr }
func (g *Governance) ABI() *abi.ABI           { return GovernanceABI }

// Receive accepts value used to fund proposal actions.
func (g *Governance) Receive(env *Env) error {
	return nil
}

func (g *Governance) Init(env *Env, membership, income, payment common.Address, votingPeriod uint64) error {
	if err := g.setOwner(env, env.Caller); err != nil {
		return err
	}
	setAddress(env.State, g.addr, keyMembershipContract, membership)
	setAddress(env.State, g.addr, keyIncomeContract, income)
	setAddress(env.State, g.addr, keyPaymentContract, payment)
	setUint64(env.State, g.addr, keyVotingPeriod, votingPeriod)
	return nil
}

func (g *Governance) isVotingMember(env *Env, addr common.Address) (bool, error) {
	membership, err := g.MembershipContract(env.State)
	if err != nil {
		return false, err
	}
	outs, err := env.View(membership, MembershipABI, "isVotingMember", addr)
	if err != nil {
		return false, err
	}
	ok, _ := outs[0].(bool)
	return ok, nil
}

func (g *Governance) totalVotingMembers(env *Env) (uint64, error) {
	membership, err := g.MembershipContract(env.State)
	if err != nil {
		return 0, err
	}
	outs, err := env.View(membership, MembershipABI, "getTotalVotingMembers")
	if err != nil {
		return 0, err
	}
	return toUint64(outs[0])
}

func (g *Governance) onlyVotingMember(env *Env) error {
	ok, err := g.isVotingMember(env, env.Caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotVotingMember, env.Caller.Hex())
	}
	return nil
}

// CreateProposal stores a new proposal. targets, values and calldatas
// must have equal length; signatures is either empty or of that length.
func (g *Governance) CreateProposal(env *Env, targets []common.Address, values []*uint256.Int, signatures []string, calldatas [][]byte, description string) (id uint64, err error) {
	if err = g.onlyVotingMember(env); err != nil {
		return
	}
	n := len(targets)
	if len(values) != n || len(calldatas) != n || (len(signatures) != 0 && len(signatures) != n) {
		return 0, fmt.Errorf("%w: targets %d, values %d, signatures %d, calldatas %d",
			ErrProposalArity, n, len(values), len(signatures), len(calldatas))
	}
	period, err := g.VotingPeriod(env.State)
	if err != nil {
		return
	}
	id, err = g.ProposalCount(env.State)
	if err != nil {
		return
	}

	p := &types.Proposal{
		Id:          id,
		Proposer:    env.Caller,
		StartTime:   env.Time,
		EndTime:     env.Time + period,
		Description: description,
		Targets:     append([]common.Address{}, targets...),
		Values:      make([]*uint256.Int, n),
		Signatures:  make([]string, len(signatures)),
		Calldatas:   make([]hexutil.Bytes, n),
	}
	for i := 0; i < n; i++ {
		p.Values[i] = new(uint256.Int)
		if values[i] != nil {
			p.Values[i].Set(values[i])
		}
		p.Calldatas[i] = common.CopyBytes(calldatas[i])
	}
	copy(p.Signatures, signatures)
	if err = g.saveProposal(env.State, p); err != nil {
		return
	}
	setUint64(env.State, g.addr, keyProposalCounter, id+1)

	env.Emit(types.EncodeEventProposalCreated(&types.EventProposalCreated{
		Id:          p.Id,
		Proposer:    p.Proposer,
		Targets:     p.Targets,
		Values:      p.Values,
		Signatures:  p.Signatures,
		Calldatas:   p.Calldatas,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		Description: p.Description,
	}))
	return
}

func (g *Governance) Vote(env *Env, id uint64, support bool) error {
	if err := g.onlyVotingMember(env); err != nil {
		return err
	}
	p, err := g.Proposal(env.State, id)
	if err != nil {
		return err
	}
	if p.Executed || p.Canceled || env.Time < p.StartTime || env.Time >= p.EndTime {
		return fmt.Errorf("%w: %d", ErrProposalNotActive, id)
	}
	voted, err := g.HasVoted(env.State, id, env.Caller)
	if err != nil {
		return err
	}
	if voted {
		return fmt.Errorf("%w: %s on %d", ErrAlreadyVoted, env.Caller.Hex(), id)
	}
	weight, err := g.GetVotes(env, env.Caller)
	if err != nil {
		return err
	}
	if support {
		p.ForVotes += weight
	} else {
		p.AgainstVotes += weight
	}
	if err = g.saveProposal(env.State, p); err != nil {
		return err
	}
	rec := &types.VoteRecord{ProposalId: id, Voter: env.Caller, Support: support, Weight: weight}
	if err = env.State.SetStorageJSON(g.addr, fmt.Sprintf(keyVote, id, addrKey(env.Caller)), rec); err != nil {
		return err
	}
	env.Emit(types.EncodeEventVoted(&types.EventVoted{ProposalId: id, Voter: env.Caller, Support: support, Weight: weight}))
	return nil
}

// passed evaluates quorum strictly before majority.
func passed(p *types.Proposal, members uint64) error {
	if p.TotalVotes()*2 <= members {
		return fmt.Errorf("%w: %d of %d voted", ErrQuorumNotReached, p.TotalVotes(), members)
	}
	if p.ForVotes <= p.AgainstVotes {
		return fmt.Errorf("%w: %d for, %d against", ErrProposalDidNotPass, p.ForVotes, p.AgainstVotes)
	}
	return nil
}

// ExecuteProposal marks the proposal executed and then runs its actions
// in order. The host discards everything if any action fails.
func (g *Governance) ExecuteProposal(env *Env, id uint64) error {
	p, err := g.Proposal(env.State, id)
	if err != nil {
		return err
	}
	if p.Executed {
		return fmt.Errorf("%w: %d", ErrAlreadyExecuted, id)
	}
	if env.Time < p.EndTime {
		return fmt.Errorf("%w: ends at %d, now %d", ErrVotingPeriodNotEnded, p.EndTime, env.Time)
	}
	members, err := g.totalVotingMembers(env)
	if err != nil {
		return err
	}
	if err = passed(p, members); err != nil {
		return err
	}

	p.Executed = true
	if err = g.saveProposal(env.State, p); err != nil {
		return err
	}
	for i, act := range p.Actions() {
		input := act.Calldata
		if act.Signature != "" {
			input = append(crypto.Keccak256([]byte(act.Signature))[:4:4], act.Calldata...)
		}
		if _, err = env.Call(act.Target, act.Value, input); err != nil {
			return fmt.Errorf("%w: action %d to %s: %w", ErrExecutionFailed, i, act.Target.Hex(), err)
		}
	}
	env.Emit(types.EncodeEventProposalExecuted(&types.EventProposalExecuted{ProposalId: id}))
	return nil
}

// UpdateProposalEndTime lets the owner move the deadline of a proposal
// that is still open. The deadline may move in either direction, so the
// owner can also close a window early; no other caller can change it.
func (g *Governance) UpdateProposalEndTime(env *Env, id uint64, newEnd uint64) error {
	if err := g.onlyOwner(env); err != nil {
		return err
	}
	p, err := g.Proposal(env.State, id)
	if err != nil {
		return err
	}
	if p.Executed {
		return fmt.Errorf("%w: %d", ErrAlreadyExecuted, id)
	}
	if p.Canceled || env.Time >= p.EndTime {
		return fmt.Errorf("%w: %d", ErrProposalNotActive, id)
	}
	if newEnd <= env.Time {
		return fmt.Errorf("%w: %d", ErrInvalidEndTime, newEnd)
	}
	old := p.EndTime
	p.EndTime = newEnd
	if err = g.saveProposal(env.State, p); err != nil {
		return err
	}
	env.Emit(types.EncodeEventProposalEndTimeUpdated(&types.EventProposalEndTimeUpdated{
		ProposalId: id,
		OldEndTime: old,
		NewEndTime: newEnd,
	}))
	return nil
}

// GetVotes is 1 for voting members and 0 otherwise.
func (g *Governance) GetVotes(env *Env, addr common.Address) (uint64, error) {
	ok, err := g.isVotingMember(env, addr)
	if err != nil || !ok {
		return 0, err
	}
	return 1, nil
}

func (g *Governance) State(env *Env, id uint64) (s types.ProposalState, err error) {
	p, err := g.Proposal(env.State, id)
	if err != nil {
		return
	}
	switch {
	case p.Executed:
		return types.ProposalStateExecuted, nil
	case p.Canceled:
		return types.ProposalStateCanceled, nil
	case env.Time < p.EndTime:
		return types.ProposalStateActive, nil
	}
	members, err := g.totalVotingMembers(env)
	if err != nil {
		return
	}
	if passed(p, members) != nil {
		return types.ProposalStateDefeated, nil
	}
	return types.ProposalStateSucceeded, nil
}

func (g *Governance) saveProposal(st *state.State, p *types.Proposal) error {
	return st.SetStorageJSON(g.addr, fmt.Sprintf(keyProposal, p.Id), p)
}

func (g *Governance) Proposal(st *state.State, id uint64) (p *types.Proposal, err error) {
	p = new(types.Proposal)
	found, err := st.GetStorageJSON(g.addr, fmt.Sprintf(keyProposal, id), p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}
	return
}

func (g *Governance) HasVoted(st *state.State, id uint64, voter common.Address) (bool, error) {
	rec, err := g.VoteRecord(st, id, voter)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// VoteRecord is nil when voter has not voted on the proposal.
func (g *Governance) VoteRecord(st *state.State, id uint64, voter common.Address) (rec *types.VoteRecord, err error) {
	rec = new(types.VoteRecord)
	found, err := st.GetStorageJSON(g.addr, fmt.Sprintf(keyVote, id, addrKey(voter)), rec)
	if err != nil || !found {
		return nil, err
	}
	return
}

func (g *Governance) ProposalCount(st *state.State) (uint64, error) {
	return getUint64(st, g.addr, keyProposalCounter)
}

func (g *Governance) VotingPeriod(st *state.State) (uint64, error) {
	return getUint64(st, g.addr, keyVotingPeriod)
}

func (g *Governance) MembershipContract(st *state.State) (common.Address, error) {
	return getAddress(st, g.addr, keyMembershipContract)
}

func (g *Governance) IncomeContract(st *state.State) (common.Address, error) {
	return getAddress(st, g.addr, keyIncomeContract)
}

func (g *Governance) PaymentContract(st *state.State) (common.Address, error) {
	return getAddress(st, g.addr, keyPaymentContract)
}

func (g *Governance) Invoke(env *Env, method *abi.Method, args []any) (outs []any, err error) {
	if outs, handled, err := g.invokeOwnable(env, method, args); handled {
		return outs, err
	}
	st := env.State
	switch method.Name {
	case "createProposal":
		return g.invokeCreateProposal(env, args)
	case "vote":
		id, err := toUint64(args[0])
		if err != nil {
			return nil, err
		}
		support, _ := args[1].(bool)
		return nil, g.Vote(env, id, support)
	case "executeProposal":
		id, err := toUint64(args[0])
		if err != nil {
			return nil, err
		}
		return nil, g.ExecuteProposal(env, id)
	case "updateProposalEndTime":
		id, err := toUint64(args[0])
		if err != nil {
			return nil, err
		}
		newEnd, err := toUint64(args[1])
		if err != nil {
			return nil, err
		}
		return nil, g.UpdateProposalEndTime(env, id, newEnd)
	case "getVotes":
		addr, err := toAddress(args[0])
		if err != nil {
			return nil, err
		}
		weight, err := g.GetVotes(env, addr)
		return []any{bigUint(weight)}, err
	case "proposalCounter":
		n, err := g.ProposalCount(st)
		return []any{bigUint(n)}, err
	case "votingPeriod":
		n, err := g.VotingPeriod(st)
		return []any{bigUint(n)}, err
	case "hasVoted":
		id, err := toUint64(args[0])
		if err != nil {
			return nil, err
		}
		voter, err := toAddress(args[1])
		if err != nil {
			return nil, err
		}
		voted, err := g.HasVoted(st, id, voter)
		return []any{voted}, err
	case "state":
		id, err := toUint64(args[0])
		if err != nil {
			return nil, err
		}
		s, err := g.State(env, id)
		return []any{uint8(s)}, err
	case "membershipContract":
		addr, err := g.MembershipContract(st)
		return []any{addr}, err
	case "incomeManagementContract":
		addr, err := g.IncomeContract(st)
		return []any{addr}, err
	case "paymentContract":
		addr, err := g.PaymentContract(st)
		return []any{addr}, err
	case "getProposalCoreDetails", "getProposalTargets", "getProposalValues", "getProposalSignatures", "getProposalCalldatas":
		id, err := toUint64(args[0])
		if err != nil {
			return nil, err
		}
		p, err := g.Proposal(st, id)
		if err != nil {
			return nil, err
		}
		return proposalOutputs(method.Name, p), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method.Name)
}

func (g *Governance) invokeCreateProposal(env *Env, args []any) ([]any, error) {
	targets, ok := args[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: targets", ErrBadArgument)
	}
	rawValues, ok := args[1].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: values", ErrBadArgument)
	}
	values := make([]*uint256.Int, len(rawValues))
	for i, v := range rawValues {
		u, err := toUint256(v)
		if err != nil {
			return nil, err
		}
		values[i] = u
	}
	signatures, ok := args[2].([]string)
	if !ok {
		return nil, fmt.Errorf("%w: signatures", ErrBadArgument)
	}
	calldatas, ok := args[3].([][]byte)
	if !ok {
		return nil, fmt.Errorf("%w: calldatas", ErrBadArgument)
	}
	description, _ := args[4].(string)
	id, err := g.CreateProposal(env, targets, values, signatures, calldatas, description)
	if err != nil {
		return nil, err
	}
	return []any{bigUint(id)}, nil
}

func proposalOutputs(method string, p *types.Proposal) []any {
	switch method {
	case "getProposalTargets":
		return []any{p.Targets}
	case "getProposalValues":
		values := make([]*big.Int, len(p.Values))
		for i, v := range p.Values {
			values[i] = v.ToBig()
		}
		return []any{values}
	case "getProposalSignatures":
		return []any{p.Signatures}
	case "getProposalCalldatas":
		calldatas := make([][]byte, len(p.Calldatas))
		for i, c := range p.Calldatas {
			calldatas[i] = c
		}
		return []any{calldatas}
	}
	return []any{
		p.Proposer,
		bigUint(p.StartTime),
		bigUint(p.EndTime),
		p.Description,
		bigUint(p.ForVotes),
		bigUint(p.AgainstVotes),
		p.Executed,
		p.Canceled,
	}
}
