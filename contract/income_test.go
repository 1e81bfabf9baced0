package contract

import (
	"math/big"
	"testing"

	"github.com/calehh/guild-app/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTreasury sets a 0.8 rate for the consultant and books a 10 unit
// client payment into the treasury. The founder keeps ownership.
func newTreasury(t *testing.T) *testChain {
	c := newTestChain(t, false, types.GenesisBalance{Address: client, Amount: ether(100)})
	_, _, err := c.send(founder, c.host.Payment.Address(), nil, PaymentABI, "setConsultantRate", consultant, big.NewInt(8e17))
	require.NoError(t, err)

	_, events, err := c.host.Call(c.st, c.blk, client, c.host.Income.Address(), ether(10), nil)
	require.NoError(t, err)
	ev, ok := findEvent(events, types.EventPaymentReceivedType)
	require.True(t, ok)
	paid := types.DecodeEventPaymentReceived(ev)
	require.NotNil(t, paid)
	assert.Equal(t, client, paid.From)
	assert.Equal(t, ether(10), paid.Amount)
	return c
}

func TestDistributePaysRateTimesUnits(t *testing.T) {
	c := newTreasury(t)
	income := c.host.Income.Address()

	_, events, err := c.send(founder, income, nil, IncomeABI, "distributeIncomeForConsultant", consultant, big.NewInt(10))
	require.NoError(t, err)

	assert.Equal(t, ether(8), c.balance(consultant))
	assert.Equal(t, ether(2), c.balance(income))
	assertUint(t, ether(10), c.view(income, IncomeABI, "totalReceived")[0])
	assertUint(t, ether(8), c.view(income, IncomeABI, "totalDistributed")[0])

	ev, ok := findEvent(events, types.EventIncomeDistributedType)
	require.True(t, ok)
	dist := types.DecodeEventIncomeDistributed(ev)
	require.NotNil(t, dist)
	assert.Equal(t, consultant, dist.Consultant)
	assert.Equal(t, uint64(10), dist.WorkUnits.Uint64())
	assert.Equal(t, uint256.NewInt(8e17), dist.Rate)
	assert.Equal(t, ether(8), dist.Payout)
}

func TestDistributeInsufficientBalance(t *testing.T) {
	c := newTreasury(t)
	income := c.host.Income.Address()

	_, _, err := c.send(founder, income, nil, IncomeABI, "distributeIncomeForConsultant", consultant, big.NewInt(13))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.True(t, c.balance(consultant).IsZero())
	assert.Equal(t, ether(10), c.balance(income))
	assertUint(t, new(uint256.Int), c.view(income, IncomeABI, "totalDistributed")[0])

	_, _, err = c.send(founder, income, nil, IncomeABI, "distributeIncomeForConsultant", consultant, big.NewInt(12))
	require.NoError(t, err)
	assert.Equal(t, new(uint256.Int).Mul(uint256.NewInt(8e17), uint256.NewInt(12)), c.balance(consultant))
}

func TestDistributeUnratedConsultantPaysNothing(t *testing.T) {
	c := newTreasury(t)
	_, _, err := c.send(founder, c.host.Income.Address(), nil, IncomeABI, "distributeIncomeForConsultant", carol, big.NewInt(1000))
	require.NoError(t, err)
	assert.True(t, c.balance(carol).IsZero())
	assert.Equal(t, ether(10), c.balance(c.host.Income.Address()))
}

func TestDistributeOverflowIsAnError(t *testing.T) {
	c := newTreasury(t)
	maxRate := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	_, _, err := c.send(founder, c.host.Payment.Address(), nil, PaymentABI, "setConsultantRate", consultant, maxRate)
	require.NoError(t, err)

	_, _, err = c.send(founder, c.host.Income.Address(), nil, IncomeABI, "distributeIncomeForConsultant", consultant, big.NewInt(2))
	assert.ErrorIs(t, err, ErrPayoutOverflow)
}

func TestDistributeToRejectingContractReverts(t *testing.T) {
	c := newTreasury(t)
	membership := c.host.Membership.Address()
	_, _, err := c.send(founder, c.host.Payment.Address(), nil, PaymentABI, "setConsultantRate", membership, big.NewInt(1))
	require.NoError(t, err)

	_, _, err = c.send(founder, c.host.Income.Address(), nil, IncomeABI, "distributeIncomeForConsultant", membership, big.NewInt(5))
	assert.ErrorIs(t, err, ErrPayoutFailed)
	assert.ErrorIs(t, err, ErrNoReceive)
	assert.Equal(t, ether(10), c.balance(c.host.Income.Address()))
	assertUint(t, new(uint256.Int), c.view(c.host.Income.Address(), IncomeABI, "totalDistributed")[0])
}

func TestDistributeOwnerOnly(t *testing.T) {
	c := newTreasury(t)
	_, _, err := c.send(consultant, c.host.Income.Address(), nil, IncomeABI, "distributeIncomeForConsultant", consultant, big.NewInt(1))
	assert.ErrorIs(t, err, ErrNotPrivilegedCaller)
}

func TestCompanyIncomePercentage(t *testing.T) {
	c := newTestChain(t, false)
	income := c.host.Income.Address()
	assertUint(t, uint256.NewInt(types.DefaultCompanyIncomePercentage), c.view(income, IncomeABI, "getCompanyIncomePercentage")[0])

	_, _, err := c.send(founder, income, nil, IncomeABI, "setCompanyIncomePercentage", big.NewInt(10001))
	assert.ErrorIs(t, err, ErrInvalidPercentage)
	_, _, err = c.send(alice, income, nil, IncomeABI, "setCompanyIncomePercentage", big.NewInt(10))
	assert.ErrorIs(t, err, ErrNotPrivilegedCaller)

	_, events, err := c.send(founder, income, nil, IncomeABI, "setCompanyIncomePercentage", big.NewInt(10000))
	require.NoError(t, err)
	assertUint(t, uint256.NewInt(10000), c.view(income, IncomeABI, "getCompanyIncomePercentage")[0])
	ev, ok := findEvent(events, types.EventCompanyIncomePercentageSetType)
	require.True(t, ok)
	set := types.DecodeEventCompanyIncomePercentageSet(ev)
	require.NotNil(t, set)
	assert.Equal(t, types.DefaultCompanyIncomePercentage, set.OldPercentage)
	assert.Equal(t, uint64(10000), set.NewPercentage)
}

func TestTreasuryBalanceMatchesBooks(t *testing.T) {
	c := newTreasury(t)
	income := c.host.Income.Address()
	require.NoError(t, c.join(alice, nil))
	_, _, err := c.send(founder, income, nil, IncomeABI, "distributeIncomeForConsultant", consultant, big.NewInt(3))
	require.NoError(t, err)
	_, _, err = c.host.Call(c.st, c.blk, client, income, ether(4), nil)
	require.NoError(t, err)

	received, err := c.host.Income.TotalReceived(c.st)
	require.NoError(t, err)
	distributed, err := c.host.Income.TotalDistributed(c.st)
	require.NoError(t, err)
	assert.Equal(t, new(uint256.Int).Sub(received, distributed), c.balance(income))
}

func TestZeroValuePaymentIsRecorded(t *testing.T) {
	c := newTestChain(t, false)
	income := c.host.Income.Address()

	_, events, err := c.host.Call(c.st, c.blk, client, income, nil, nil)
	require.NoError(t, err)
	ev, ok := findEvent(events, types.EventPaymentReceivedType)
	require.True(t, ok)
	paid := types.DecodeEventPaymentReceived(ev)
	require.NotNil(t, paid)
	assert.Equal(t, client, paid.From)
	assert.True(t, paid.Amount.IsZero())
	assertUint(t, uint256.NewInt(0), c.view(income, IncomeABI, "totalReceived")[0])
}
