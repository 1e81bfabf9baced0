package contract

import (
	"fmt"

	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	keyFounder      = "founder"
	keyFeeRecipient = "feeRecipient"
	keyEntryFee     = "entryFee"
	keyMemberCount  = "memberCount"
	keyMember       = "member/%s"
	keyMemberAt     = "memberAt/%d"
)

// Membership tracks who may create proposals and vote.
type Membership struct {
	Ownable
	addr common.Address
}

func NewMembership(addr common.Address) *Membership {
	return &Membership{Ownable: Ownable{addr: addr}, addr: addr}
}

func (m *Membership) Name() string            { return MembershipName }
func (m *Membership) Address() common.Address { return m.addr }
func (m *Membership) ABI() *abi.ABI           { return MembershipABI }

func (m *Membership) Receive(env *Env) error {
	return ErrNoReceive
}

// Init runs once at genesis. The caller becomes owner and the founder
// is admitted as the first voting member.
func (m *Membership) Init(env *Env, founder, feeRecipient common.Address, fee *uint256.Int) error {
	if err := m.setOwner(env, env.Caller); err != nil {
		return err
	}
	setAddress(env.State, m.addr, keyFounder, founder)
	setAddress(env.State, m.addr, keyFeeRecipient, feeRecipient)
	env.State.SetStorageUint(m.addr, keyEntryFee, fee)
	return m.admit(env, founder)
}

func (m *Membership) admit(env *Env, addr common.Address) error {
	count, err := getUint64(env.State, m.addr, keyMemberCount)
	if err != nil {
		return err
	}
	member := &types.Member{
		Address:        addr,
		IsVotingMember: true,
		MemberType:     types.MemberTypeVoting,
		JoinedAt:       env.Time,
	}
	if err = env.State.SetStorageJSON(m.addr, fmt.Sprintf(keyMember, addrKey(addr)), member); err != nil {
		return err
	}
	env.State.SetStorage(m.addr, fmt.Sprintf(keyMemberAt, count), addr.Bytes())
	setUint64(env.State, m.addr, keyMemberCount, count+1)
	env.Emit(types.EncodeEventMemberAdded(&types.EventMemberAdded{Member: addr, MemberType: member.MemberType}))
	return nil
}

func (m *Membership) AddVotingMember(env *Env, addr common.Address) error {
	if err := m.onlyOwner(env); err != nil {
		return err
	}
	ok, err := m.IsVotingMember(env.State, addr)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s", ErrAlreadyMember, addr.Hex())
	}
	return m.admit(env, addr)
}

// Join admits the caller for exactly the current entry fee and forwards
// the fee to the fee recipient.
func (m *Membership) Join(env *Env) error {
	ok, err := m.IsVotingMember(env.State, env.Caller)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s", ErrAlreadyMember, env.Caller.Hex())
	}
	fee, err := m.GetCurrentVotingMemberEntryFee(env.State)
	if err != nil {
		return err
	}
	if !env.Value.Eq(fee) {
		return fmt.Errorf("%w: sent %s, fee is %s", ErrIncorrectFee, env.Value.Dec(), fee.Dec())
	}
	if err = m.admit(env, env.Caller); err != nil {
		return err
	}
	if env.Value.IsZero() {
		return nil
	}
	recipient, err := m.FeeRecipient(env.State)
	if err != nil {
		return err
	}
	if _, err = env.Call(recipient, env.Value, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrFeeTransferFailed, err)
	}
	return nil
}

func (m *Membership) SetVotingMemberEntryFee(env *Env, fee *uint256.Int) error {
	if err := m.onlyOwner(env); err != nil {
		return err
	}
	old, err := m.GetCurrentVotingMemberEntryFee(env.State)
	if err != nil {
		return err
	}
	env.State.SetStorageUint(m.addr, keyEntryFee, fee)
	env.Emit(types.EncodeEventVotingMemberEntryFeeSet(&types.EventVotingMemberEntryFeeSet{OldFee: old, NewFee: fee.Clone()}))
	return nil
}

func (m *Membership) Member(st *state.State, addr common.Address) (member *types.Member, err error) {
	member = new(types.Member)
	found, err := st.GetStorageJSON(m.addr, fmt.Sprintf(keyMember, addrKey(addr)), member)
	if err != nil {
		return nil, err
	}
	if !found {
		return &types.Member{Address: addr}, nil
	}
	return
}

func (m *Membership) IsVotingMember(st *state.State, addr common.Address) (bool, error) {
	member, err := m.Member(st, addr)
	if err != nil {
		return false, err
	}
	return member.IsVotingMember, nil
}

func (m *Membership) GetCurrentVotingMemberEntryFee(st *state.State) (*uint256.Int, error) {
	return st.GetStorageUint(m.addr, keyEntryFee)
}

func (m *Membership) GetTotalVotingMembers(st *state.State) (uint64, error) {
	return getUint64(st, m.addr, keyMemberCount)
}

// Members lists members in admission order.
func (m *Membership) Members(st *state.State) (members []*types.Member, err error) {
	count, err := m.GetTotalVotingMembers(st)
	if err != nil {
		return
	}
	members = make([]*types.Member, 0, count)
	for i := uint64(0); i < count; i++ {
		var addr common.Address
		addr, err = getAddress(st, m.addr, fmt.Sprintf(keyMemberAt, i))
		if err != nil {
			return nil, err
		}
		var member *types.Member
		member, err = m.Member(st, addr)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return
}

func (m *Membership) Founder(st *state.State) (common.Address, error) {
	return getAddress(st, m.addr, keyFounder)
}

func (m *Membership) FeeRecipient(st *state.State) (common.Address, error) {
	return getAddress(st, m.addr, keyFeeRecipient)
}

func (m *Membership) Invoke(env *Env, method *abi.Method, args []any) (outs []any, err error) {
	if outs, handled, err := m.invokeOwnable(env, method, args); handled {
		return outs, err
	}
	st := env.State
	switch method.Name {
	case "addVotingMember":
		addr, err := toAddress(args[0])
		if err != nil {
			return nil, err
		}
		return nil, m.AddVotingMember(env, addr)
	case "join":
		return nil, m.Join(env)
	case "setVotingMemberEntryFee":
		fee, err := toUint256(args[0])
		if err != nil {
			return nil, err
		}
		return nil, m.SetVotingMemberEntryFee(env, fee)
	case "isVotingMember":
		addr, err := toAddress(args[0])
		if err != nil {
			return nil, err
		}
		ok, err := m.IsVotingMember(st, addr)
		return []any{ok}, err
	case "getCurrentVotingMemberEntryFee":
		fee, err := m.GetCurrentVotingMemberEntryFee(st)
		if err != nil {
			return nil, err
		}
		return []any{fee.ToBig()}, nil
	case "getTotalVotingMembers":
		n, err := m.GetTotalVotingMembers(st)
		return []any{bigUint(n)}, err
	case "getMember":
		addr, err := toAddress(args[0])
		if err != nil {
			return nil, err
		}
		member, err := m.Member(st, addr)
		if err != nil {
			return nil, err
		}
		return []any{member.IsVotingMember, member.MemberType, bigUint(member.JoinedAt)}, nil
	case "founder":
		addr, err := m.Founder(st)
		return []any{addr}, err
	case "feeRecipient":
		addr, err := m.FeeRecipient(st)
		return []any{addr}, err
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method.Name)
}
