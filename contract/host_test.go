package contract

import (
	"math/big"
	"testing"

	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	founder    = common.HexToAddress("0xf00000000000000000000000000000000000000f")
	alice      = common.HexToAddress("0xa00000000000000000000000000000000000000a")
	bob        = common.HexToAddress("0xb00000000000000000000000000000000000000b")
	carol      = common.HexToAddress("0xc00000000000000000000000000000000000000c")
	consultant = common.HexToAddress("0xd00000000000000000000000000000000000000d")
	client     = common.HexToAddress("0xe00000000000000000000000000000000000000e")
)

const (
	genesisTime = uint64(1_700_000_000)
	period      = uint64(3600)
)

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}

type testChain struct {
	t    *testing.T
	host *Host
	st   *state.State
	blk  BlockContext
}

func newTestChain(t *testing.T, bootstrap bool, balances ...types.GenesisBalance) *testChain {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	as := types.DefaultAppState(founder)
	as.VotingPeriod = period
	as.TransferOwnership = bootstrap
	as.Balances = balances
	require.NoError(t, as.ValidateAndComplete())

	c := &testChain{
		t:    t,
		host: NewHost(cmtlog.NewNopLogger()),
		st:   db.NewState(),
		blk:  BlockContext{Height: 1, Time: genesisTime},
	}
	_, err = c.host.Genesis(c.st, c.blk, as)
	require.NoError(t, err)
	return c
}

func (c *testChain) advance(seconds uint64) {
	c.blk.Height++
	c.blk.Time += seconds
}

func (c *testChain) send(from, to common.Address, value *uint256.Int, parsed *abi.ABI, method string, args ...any) ([]any, []abci.Event, error) {
	input, err := parsed.Pack(method, args...)
	require.NoError(c.t, err)
	ret, events, err := c.host.Call(c.st, c.blk, from, to, value, input)
	if err != nil {
		return nil, nil, err
	}
	outs, err := parsed.Unpack(method, ret)
	require.NoError(c.t, err)
	return outs, events, nil
}

func (c *testChain) view(to common.Address, parsed *abi.ABI, method string, args ...any) []any {
	outs, _, err := c.send(common.Address{}, to, nil, parsed, method, args...)
	require.NoError(c.t, err)
	return outs
}

func (c *testChain) balance(addr common.Address) *uint256.Int {
	bal, err := c.st.GetBalance(addr)
	require.NoError(c.t, err)
	return bal
}

func (c *testChain) fund(addr common.Address, amount *uint256.Int) {
	require.NoError(c.t, c.st.AddBalance(addr, amount))
}

func assertUint(t *testing.T, want *uint256.Int, got any) {
	t.Helper()
	b, ok := got.(*big.Int)
	require.True(t, ok, "want *big.Int, got %T", got)
	assert.Equal(t, want.Dec(), b.String())
}

func findEvent(events []abci.Event, typ string) (abci.Event, bool) {
	for _, ev := range events {
		if ev.Type == typ {
			return ev, true
		}
	}
	return abci.Event{}, false
}

// rejecting refuses every call.
type rejecting struct {
	addr common.Address
}

func (r *rejecting) Name() string            { return "rejecting" }
func (r *rejecting) Address() common.Address { return r.addr }
func (r *rejecting) ABI() *abi.ABI           { return PaymentABI }
func (r *rejecting) Receive(env *Env) error  { return ErrNoReceive }
func (r *rejecting) Invoke(env *Env, method *abi.Method, args []any) ([]any, error) {
	return nil, ErrUnknownMethod
}

// looping calls itself until the depth limit stops it.
type looping struct {
	addr common.Address
}

func (l *looping) Name() string            { return "looping" }
func (l *looping) Address() common.Address { return l.addr }
func (l *looping) ABI() *abi.ABI           { return PaymentABI }
func (l *looping) Receive(env *Env) error {
	env.State.SetStorageUint(l.addr, "depth", uint256.NewInt(uint64(env.depth)+1))
	_, err := env.Call(l.addr, nil, nil)
	return err
}
func (l *looping) Invoke(env *Env, method *abi.Method, args []any) ([]any, error) {
	return nil, ErrUnknownMethod
}

func TestContractAddressesAreFixed(t *testing.T) {
	h1 := NewHost(cmtlog.NewNopLogger())
	h2 := NewHost(cmtlog.NewNopLogger())
	assert.Equal(t, h1.Governance.Address(), h2.Governance.Address())
	assert.NotEqual(t, h1.Membership.Address(), h1.Income.Address())
	assert.True(t, h1.IsContract(ContractAddress(PaymentName)))
	assert.False(t, h1.IsContract(alice))
}

func TestGenesisBootstrapHandsOwnershipToGovernance(t *testing.T) {
	c := newTestChain(t, true)
	gov := c.host.Governance.Address()

	owner := c.view(c.host.Membership.Address(), MembershipABI, "owner")
	assert.Equal(t, gov, owner[0])
	owner = c.view(c.host.Income.Address(), IncomeABI, "owner")
	assert.Equal(t, gov, owner[0])
	owner = c.view(c.host.Payment.Address(), PaymentABI, "owner")
	assert.Equal(t, founder, owner[0])
	owner = c.view(gov, GovernanceABI, "owner")
	assert.Equal(t, founder, owner[0])

	link := c.view(gov, GovernanceABI, "membershipContract")
	assert.Equal(t, c.host.Membership.Address(), link[0])
	recipient := c.view(c.host.Membership.Address(), MembershipABI, "feeRecipient")
	assert.Equal(t, c.host.Income.Address(), recipient[0])
}

func TestGenesisRejectsContractBalance(t *testing.T) {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	defer db.Close()
	h := NewHost(cmtlog.NewNopLogger())
	as := types.DefaultAppState(founder)
	as.Balances = []types.GenesisBalance{{Address: h.Income.Address(), Amount: ether(1)}}

	_, err = h.Genesis(db.NewState(), BlockContext{Time: genesisTime}, as)
	assert.ErrorIs(t, err, ErrGenesisBalance)
}

func TestPlainTransferToAccount(t *testing.T) {
	c := newTestChain(t, true, types.GenesisBalance{Address: alice, Amount: ether(3)})
	_, events, err := c.host.Call(c.st, c.blk, alice, bob, ether(1), nil)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, ether(2), c.balance(alice))
	assert.Equal(t, ether(1), c.balance(bob))
}

func TestValueToNonPayableMethodRejected(t *testing.T) {
	c := newTestChain(t, false)
	c.fund(founder, ether(1))
	_, _, err := c.send(founder, c.host.Payment.Address(), ether(1), PaymentABI, "setConsultantRate", alice, big.NewInt(1))
	assert.ErrorIs(t, err, ErrNonPayable)
	assert.Equal(t, ether(1), c.balance(founder))
}

func TestUnknownSelectorRejected(t *testing.T) {
	c := newTestChain(t, false)
	_, _, err := c.host.Call(c.st, c.blk, founder, c.host.Membership.Address(), nil, []byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestCallDepthLimit(t *testing.T) {
	c := newTestChain(t, false)
	loop := &looping{addr: common.HexToAddress("0x1111111111111111111111111111111111111111")}
	c.host.Register(loop)

	_, _, err := c.host.Call(c.st, c.blk, alice, loop.addr, nil, nil)
	assert.ErrorIs(t, err, ErrCallDepth)
	depth, err := c.st.GetStorageUint(loop.addr, "depth")
	require.NoError(t, err)
	assert.True(t, depth.IsZero())
}

func TestEventsCarryContractAddress(t *testing.T) {
	c := newTestChain(t, false)
	_, events, err := c.send(founder, c.host.Payment.Address(), nil, PaymentABI, "setConsultantRate", alice, big.NewInt(7))
	require.NoError(t, err)
	require.Len(t, events, 1)
	addr, ok := types.EventContract(events[0])
	require.True(t, ok)
	assert.Equal(t, c.host.Payment.Address(), addr)
	ev := types.DecodeEventConsultantRateSet(events[0])
	require.NotNil(t, ev)
	assert.Equal(t, alice, ev.Consultant)
	assert.Equal(t, uint64(7), ev.Rate.Uint64())
}

func TestTransferOwnershipGuards(t *testing.T) {
	c := newTestChain(t, false)
	pay := c.host.Payment.Address()

	_, _, err := c.send(alice, pay, nil, PaymentABI, "transferOwnership", bob)
	assert.ErrorIs(t, err, ErrNotPrivilegedCaller)
	_, _, err = c.send(founder, pay, nil, PaymentABI, "transferOwnership", common.Address{})
	assert.ErrorIs(t, err, ErrZeroAddress)

	_, events, err := c.send(founder, pay, nil, PaymentABI, "transferOwnership", bob)
	require.NoError(t, err)
	ev, ok := findEvent(events, types.EventOwnershipTransferredType)
	require.True(t, ok)
	moved := types.DecodeEventOwnershipTransferred(ev)
	require.NotNil(t, moved)
	assert.Equal(t, founder, moved.PreviousOwner)
	assert.Equal(t, bob, moved.NewOwner)

	_, _, err = c.send(founder, pay, nil, PaymentABI, "setConsultantRate", alice, big.NewInt(1))
	assert.ErrorIs(t, err, ErrNotPrivilegedCaller)
}
