package contract

import (
	"math/big"
	"testing"

	"github.com/calehh/guild-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (c *testChain) isMember(addr common.Address) bool {
	outs := c.view(c.host.Membership.Address(), MembershipABI, "isVotingMember", addr)
	return outs[0].(bool)
}

func (c *testChain) memberCount() uint64 {
	outs := c.view(c.host.Membership.Address(), MembershipABI, "getTotalVotingMembers")
	return outs[0].(*big.Int).Uint64()
}

func (c *testChain) join(from common.Address, value *uint256.Int) error {
	_, _, err := c.send(from, c.host.Membership.Address(), value, MembershipABI, "join")
	return err
}

func TestFounderIsMemberFromGenesis(t *testing.T) {
	c := newTestChain(t, true)
	assert.True(t, c.isMember(founder))
	assert.False(t, c.isMember(alice))
	assert.Equal(t, uint64(1), c.memberCount())

	outs := c.view(c.host.Membership.Address(), MembershipABI, "founder")
	assert.Equal(t, founder, outs[0])
	outs = c.view(c.host.Membership.Address(), MembershipABI, "getCurrentVotingMemberEntryFee")
	assert.Zero(t, outs[0].(*big.Int).Sign())
}

func TestJoinAtZeroFee(t *testing.T) {
	c := newTestChain(t, true)
	_, events, err := c.send(alice, c.host.Membership.Address(), nil, MembershipABI, "join")
	require.NoError(t, err)
	assert.True(t, c.isMember(alice))
	assert.Equal(t, uint64(2), c.memberCount())

	ev, ok := findEvent(events, types.EventMemberAddedType)
	require.True(t, ok)
	added := types.DecodeEventMemberAdded(ev)
	require.NotNil(t, added)
	assert.Equal(t, alice, added.Member)
	assert.Equal(t, types.MemberTypeVoting, added.MemberType)

	outs := c.view(c.host.Membership.Address(), MembershipABI, "getMember", alice)
	assert.Equal(t, true, outs[0])
	assert.Equal(t, types.MemberTypeVoting, outs[1])
	assert.Equal(t, genesisTime, outs[2].(*big.Int).Uint64())

	assert.ErrorIs(t, c.join(alice, nil), ErrAlreadyMember)
	assert.ErrorIs(t, c.join(founder, nil), ErrAlreadyMember)
}

func TestJoinRequiresExactFee(t *testing.T) {
	c := newTestChain(t, false, types.GenesisBalance{Address: alice, Amount: ether(10)})
	_, _, err := c.send(founder, c.host.Membership.Address(), nil, MembershipABI, "setVotingMemberEntryFee", ether(1).ToBig())
	require.NoError(t, err)

	assert.ErrorIs(t, c.join(alice, nil), ErrIncorrectFee)
	assert.ErrorIs(t, c.join(alice, uint256.NewInt(1e18-1)), ErrIncorrectFee)
	assert.ErrorIs(t, c.join(alice, uint256.NewInt(1e18+1)), ErrIncorrectFee)
	assert.False(t, c.isMember(alice))
	assert.Equal(t, ether(10), c.balance(alice))

	require.NoError(t, c.join(alice, ether(1)))
	assert.True(t, c.isMember(alice))
	assert.Equal(t, ether(9), c.balance(alice))
	assert.Equal(t, ether(1), c.balance(c.host.Income.Address()))
	outs := c.view(c.host.Income.Address(), IncomeABI, "totalReceived")
	assertUint(t, ether(1), outs[0])

	assert.ErrorIs(t, c.join(alice, ether(1)), ErrAlreadyMember)
	assert.Equal(t, ether(9), c.balance(alice))
}

func TestJoinFeeForwardFailureReverts(t *testing.T) {
	c := newTestChain(t, false, types.GenesisBalance{Address: alice, Amount: ether(5)})
	sink := &rejecting{addr: common.HexToAddress("0x2222222222222222222222222222222222222222")}
	c.host.Register(sink)
	c.st.SetStorage(c.host.Membership.Address(), keyFeeRecipient, sink.addr.Bytes())
	_, _, err := c.send(founder, c.host.Membership.Address(), nil, MembershipABI, "setVotingMemberEntryFee", ether(1).ToBig())
	require.NoError(t, err)

	err = c.join(alice, ether(1))
	assert.ErrorIs(t, err, ErrFeeTransferFailed)
	assert.ErrorIs(t, err, ErrNoReceive)
	assert.False(t, c.isMember(alice))
	assert.Equal(t, uint64(1), c.memberCount())
	assert.Equal(t, ether(5), c.balance(alice))
	assert.True(t, c.balance(c.host.Membership.Address()).IsZero())
}

func TestAddVotingMemberOwnerOnly(t *testing.T) {
	c := newTestChain(t, false)
	m := c.host.Membership.Address()

	_, _, err := c.send(alice, m, nil, MembershipABI, "addVotingMember", bob)
	assert.ErrorIs(t, err, ErrNotPrivilegedCaller)

	_, _, err = c.send(founder, m, nil, MembershipABI, "addVotingMember", bob)
	require.NoError(t, err)
	assert.True(t, c.isMember(bob))

	_, _, err = c.send(founder, m, nil, MembershipABI, "addVotingMember", bob)
	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.Equal(t, uint64(2), c.memberCount())

	members, err := c.host.Membership.Members(c.st)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, founder, members[0].Address)
	assert.Equal(t, bob, members[1].Address)
}

func TestSetEntryFeeEmitsOldAndNew(t *testing.T) {
	c := newTestChain(t, false)
	m := c.host.Membership.Address()
	_, _, err := c.send(founder, m, nil, MembershipABI, "setVotingMemberEntryFee", big.NewInt(5))
	require.NoError(t, err)
	_, events, err := c.send(founder, m, nil, MembershipABI, "setVotingMemberEntryFee", big.NewInt(9))
	require.NoError(t, err)

	ev, ok := findEvent(events, types.EventVotingMemberEntryFeeSetType)
	require.True(t, ok)
	set := types.DecodeEventVotingMemberEntryFeeSet(ev)
	require.NotNil(t, set)
	assert.Equal(t, uint64(5), set.OldFee.Uint64())
	assert.Equal(t, uint64(9), set.NewFee.Uint64())
}

func TestSetEntryFeeAfterBootstrapNeedsGovernance(t *testing.T) {
	c := newTestChain(t, true)
	_, _, err := c.send(founder, c.host.Membership.Address(), nil, MembershipABI, "setVotingMemberEntryFee", big.NewInt(5))
	assert.ErrorIs(t, err, ErrNotPrivilegedCaller)
}
