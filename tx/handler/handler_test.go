package handler

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/calehh/guild-app/contract"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	"github.com/calehh/guild-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chainId = "guild-test"

type fixture struct {
	host  *contract.Host
	st    *state.State
	blk   contract.BlockContext
	key   *ecdsa.PrivateKey
	owner common.Address
}

func newFixture(t *testing.T) *fixture {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)

	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := db.NewState()
	st.SetChainId(chainId)

	as := types.DefaultAppState(owner)
	as.Balances = []types.GenesisBalance{{Address: owner, Amount: uint256.NewInt(1000)}}
	require.NoError(t, as.ValidateAndComplete())
	host := contract.NewHost(cmtlog.NewNopLogger())
	blk := contract.BlockContext{Height: 1, Time: 1_700_000_000}
	_, err = host.Genesis(st, blk, as)
	require.NoError(t, err)
	return &fixture{host: host, st: st, blk: blk, key: key, owner: owner}
}

func (f *fixture) signed(t *testing.T, btx *tx.GuildTx) *tx.GuildTx {
	require.NoError(t, btx.Sign(f.key, chainId))
	return btx
}

func TestVerifyNonce(t *testing.T) {
	f := newFixture(t)
	btx := f.signed(t, tx.NewTransferTx(f.owner, 1, common.Address{9}, uint256.NewInt(1)))

	_, err := Verify(f.st, btx, false)
	assert.ErrorIs(t, err, ErrNonceMismatch)
	sender, err := Verify(f.st, btx, true)
	require.NoError(t, err)
	assert.Equal(t, f.owner, sender)

	require.NoError(t, f.st.IncNonce(f.owner))
	require.NoError(t, f.st.IncNonce(f.owner))
	_, err = Verify(f.st, btx, true)
	assert.ErrorIs(t, err, ErrNonceTooLow)
}

func TestVerifyRejectsForeignChain(t *testing.T) {
	f := newFixture(t)
	btx := tx.NewTransferTx(f.owner, 0, common.Address{9}, uint256.NewInt(1))
	require.NoError(t, btx.Sign(f.key, "other-chain"))
	_, err := Verify(f.st, btx, false)
	assert.Error(t, err)
}

func TestCallTxRunsContract(t *testing.T) {
	f := newFixture(t)
	h := NewCallTxHandler(f.host, cmtlog.NewNopLogger())
	other := common.HexToAddress("0x0b")
	data, err := contract.MembershipABI.Pack("addVotingMember", other)
	require.NoError(t, err)

	// ownership went to governance at genesis, so the owner cannot add directly
	btx := f.signed(t, tx.NewCallTx(f.owner, 0, f.host.Membership.Address(), nil, data))
	check, err := h.Check(context.Background(), f.st, btx)
	require.NoError(t, err)
	assert.Equal(t, CodeOK, check.Code)

	res, err := h.Process(context.Background(), f.st, f.blk, btx)
	require.NoError(t, err)
	assert.Equal(t, CodeRejected, res.Code)
	assert.Contains(t, res.Log, contract.ErrNotPrivilegedCaller.Error())
	nonce, err := f.st.GetNonce(f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)

	data, err = contract.GovernanceABI.Pack("createProposal", []common.Address{}, []*big.Int{}, []string{}, [][]byte{}, "hello")
	require.NoError(t, err)
	btx = f.signed(t, tx.NewCallTx(f.owner, 1, f.host.Governance.Address(), nil, data))
	res, err = h.Process(context.Background(), f.st, f.blk, btx)
	require.NoError(t, err)
	assert.Equal(t, CodeOK, res.Code, res.Log)
	require.Len(t, res.Events, 1)
	assert.Equal(t, types.EventProposalCreatedType, res.Events[0].Type)
}

func TestCallTxCheckRejects(t *testing.T) {
	f := newFixture(t)
	h := NewCallTxHandler(f.host, cmtlog.NewNopLogger())

	btx := f.signed(t, tx.NewCallTx(f.owner, 0, f.host.Governance.Address(), uint256.NewInt(5000), nil))
	res, err := h.Check(context.Background(), f.st, btx)
	require.NoError(t, err)
	assert.Equal(t, CodeRejected, res.Code)

	btx = f.signed(t, tx.NewCallTx(f.owner, 0, f.host.Governance.Address(), nil, []byte{0xde, 0xad, 0xbe, 0xef}))
	res, err = h.Check(context.Background(), f.st, btx)
	require.NoError(t, err)
	assert.Equal(t, CodeRejected, res.Code)
}

func TestTransferToTreasuryIsBooked(t *testing.T) {
	f := newFixture(t)
	h := NewTransferTxHandler(f.host, cmtlog.NewNopLogger())
	income := f.host.Income.Address()

	btx := f.signed(t, tx.NewTransferTx(f.owner, 0, income, uint256.NewInt(300)))
	res, err := h.Process(context.Background(), f.st, f.blk, btx)
	require.NoError(t, err)
	assert.Equal(t, CodeOK, res.Code, res.Log)
	require.Len(t, res.Events, 1)
	paid := types.DecodeEventPaymentReceived(res.Events[0])
	require.NotNil(t, paid)
	assert.Equal(t, f.owner, paid.From)

	received, err := f.host.Income.TotalReceived(f.st)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), received.Uint64())
	bal, err := f.st.GetBalance(income)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), bal.Uint64())
}

func TestTransferToRegistryReverts(t *testing.T) {
	f := newFixture(t)
	h := NewTransferTxHandler(f.host, cmtlog.NewNopLogger())

	btx := f.signed(t, tx.NewTransferTx(f.owner, 0, f.host.Payment.Address(), uint256.NewInt(1)))
	res, err := h.Process(context.Background(), f.st, f.blk, btx)
	require.NoError(t, err)
	assert.Equal(t, CodeRejected, res.Code)
	bal, err := f.st.GetBalance(f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), bal.Uint64())
}
