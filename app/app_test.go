package app

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/calehh/guild-app/config"
	"github.com/calehh/guild-app/contract"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	"github.com/calehh/guild-app/tx/handler"
	"github.com/calehh/guild-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testChainId  = "guild-test"
	votingPeriod = uint64(60)
)

var genesisTime = time.Unix(1_700_000_000, 0)

type account struct {
	key   *ecdsa.PrivateKey
	addr  common.Address
	nonce uint64
}

func newAccount(t *testing.T) *account {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &account{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

type testApp struct {
	t      *testing.T
	app    *GuildApp
	height int64
	now    time.Time
}

func newTestApp(t *testing.T, founder *account, balances ...types.GenesisBalance) *testApp {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	app := newGuildApp(config.DefaultAppConfig(t.TempDir()), db, cmtlog.NewNopLogger())
	t.Cleanup(app.Stop)

	as := types.DefaultAppState(founder.addr)
	as.VotingPeriod = votingPeriod
	as.Balances = balances
	raw, err := json.Marshal(as)
	require.NoError(t, err)
	res, err := app.InitChain(context.Background(), &abcitypes.RequestInitChain{
		Time:          genesisTime,
		ChainId:       testChainId,
		InitialHeight: 1,
		AppStateBytes: raw,
	})
	require.NoError(t, err)
	require.Len(t, res.AppHash, 32)
	return &testApp{t: t, app: app, now: genesisTime}
}

func (a *testApp) callTx(from *account, to common.Address, value *uint256.Int, parsed *abi.ABI, method string, args ...any) []byte {
	var data []byte
	if parsed != nil {
		var err error
		data, err = parsed.Pack(method, args...)
		require.NoError(a.t, err)
	}
	return a.sign(from, tx.NewCallTx(from.addr, from.nonce, to, value, data))
}

func (a *testApp) sign(from *account, btx *tx.GuildTx) []byte {
	require.NoError(a.t, btx.Sign(from.key, testChainId))
	dat, err := tx.MarshalGuildTx(btx)
	require.NoError(a.t, err)
	from.nonce++
	return dat
}

// block finalizes and commits txs at now+step.
func (a *testApp) block(step time.Duration, txs ...[]byte) []*abcitypes.ExecTxResult {
	a.height++
	a.now = a.now.Add(step)
	ctx := context.Background()
	res, err := a.app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{
		Txs:    txs,
		Height: a.height,
		Time:   a.now,
		Hash:   crypto.Keccak256([]byte{byte(a.height)}),
	})
	require.NoError(a.t, err)
	require.Len(a.t, res.TxResults, len(txs))
	_, err = a.app.Commit(ctx, &abcitypes.RequestCommit{})
	require.NoError(a.t, err)
	return res.TxResults
}

func (a *testApp) query(path string, data []byte) *abcitypes.ResponseQuery {
	res, err := a.app.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(a.t, err)
	return res
}

func (a *testApp) params() *types.Params {
	res := a.query("/params/", nil)
	require.Equal(a.t, QueryCodeOK, res.Code, res.Log)
	var p types.Params
	require.NoError(a.t, json.Unmarshal(res.Value, &p))
	return &p
}

func (a *testApp) proposal(id uint64) *types.ProposalView {
	res := a.query("/proposals/", EncodeProposalId(id))
	require.Equal(a.t, QueryCodeOK, res.Code, res.Log)
	var v types.ProposalView
	require.NoError(a.t, json.Unmarshal(res.Value, &v))
	return &v
}

func requireOK(t *testing.T, res *abcitypes.ExecTxResult) {
	require.Equal(t, handler.CodeOK, res.Code, res.Log)
}

func TestInitChainDeploysGuild(t *testing.T) {
	founder := newAccount(t)
	a := newTestApp(t, founder, types.GenesisBalance{Address: founder.addr, Amount: uint256.NewInt(5000)})

	p := a.params()
	assert.Equal(t, testChainId, p.ChainId)
	assert.Equal(t, founder.addr, p.Founder)
	assert.Equal(t, uint64(1), p.TotalVotingMembers)
	assert.Equal(t, votingPeriod, p.VotingPeriod)
	assert.Equal(t, types.DefaultCompanyIncomePercentage, p.CompanyIncomePercentage)
	assert.Equal(t, contract.ContractAddress(contract.GovernanceName), p.Contracts.Governance)
	assert.Equal(t, p.Contracts.Governance, p.Owners.Membership)
	assert.Equal(t, p.Contracts.Governance, p.Owners.Income)
	assert.Equal(t, founder.addr, p.Owners.Payment)
	assert.Equal(t, founder.addr, p.Owners.Governance)

	res := a.query("/accounts/", founder.addr.Bytes())
	require.Equal(t, QueryCodeOK, res.Code)
	var acnt state.Account
	require.NoError(t, acnt.UnmarshalJSON(res.Value))
	assert.Equal(t, uint64(5000), acnt.Balance.Uint64())

	res = a.query("/members", founder.addr.Bytes())
	require.Equal(t, QueryCodeOK, res.Code, res.Log)
	var m types.Member
	require.NoError(t, json.Unmarshal(res.Value, &m))
	assert.True(t, m.IsVotingMember)
	assert.Equal(t, types.MemberTypeVoting, m.MemberType)

	info, err := a.app.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.LastBlockHeight)
	assert.NotEmpty(t, info.LastBlockAppHash)
}

func TestInitChainRejectsBadAppState(t *testing.T) {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	app := newGuildApp(config.DefaultAppConfig(t.TempDir()), db, cmtlog.NewNopLogger())
	defer app.Stop()
	_, err = app.InitChain(context.Background(), &abcitypes.RequestInitChain{ChainId: testChainId, AppStateBytes: []byte(`{}`)})
	assert.ErrorIs(t, err, types.ErrGenesisNoFounder)
}

func TestGovernanceRoundTrip(t *testing.T) {
	founder := newAccount(t)
	a := newTestApp(t, founder)
	gov := contract.ContractAddress(contract.GovernanceName)
	membership := contract.ContractAddress(contract.MembershipName)

	feeCall, err := contract.MembershipABI.Pack("setVotingMemberEntryFee", big.NewInt(1000))
	require.NoError(t, err)
	results := a.block(time.Second,
		a.callTx(founder, gov, nil, contract.GovernanceABI, "createProposal",
			[]common.Address{membership}, []*big.Int{big.NewInt(0)}, []string{""}, [][]byte{feeCall}, "raise the entry fee"),
		a.callTx(founder, gov, nil, contract.GovernanceABI, "vote", big.NewInt(0), true),
	)
	requireOK(t, results[0])
	requireOK(t, results[1])
	created := types.DecodeEventProposalCreated(results[0].Events[0])
	require.NotNil(t, created)
	assert.Equal(t, uint64(0), created.Id)
	assert.Equal(t, "raise the entry fee", created.Description)

	v := a.proposal(0)
	assert.Equal(t, types.ProposalStateActive, v.State)
	assert.Equal(t, uint64(1), v.ForVotes)

	results = a.block(time.Second, a.callTx(founder, gov, nil, contract.GovernanceABI, "executeProposal", big.NewInt(0)))
	assert.Equal(t, handler.CodeRejected, results[0].Code)
	assert.Contains(t, results[0].Log, contract.ErrVotingPeriodNotEnded.Error())

	results = a.block(time.Duration(votingPeriod)*time.Second, a.callTx(founder, gov, nil, contract.GovernanceABI, "executeProposal", big.NewInt(0)))
	requireOK(t, results[0])

	v = a.proposal(0)
	assert.Equal(t, types.ProposalStateExecuted, v.State)
	assert.Equal(t, "executed", v.StateName)
	assert.Equal(t, uint64(1000), a.params().EntryFee.Uint64())

	res := a.query("/votes/", EncodeVoteKey(0, founder.addr))
	require.Equal(t, QueryCodeOK, res.Code, res.Log)
	var rec types.VoteRecord
	require.NoError(t, json.Unmarshal(res.Value, &rec))
	assert.True(t, rec.Support)
	assert.Equal(t, uint64(1), rec.Weight)

	res = a.query("/votes/", EncodeVoteKey(0, common.HexToAddress("0x01")))
	assert.Equal(t, QueryCodeNotFound, res.Code)
	res = a.query("/proposals/", EncodeProposalId(7))
	assert.Equal(t, QueryCodeNotFound, res.Code)
}

func TestJoinAndTreasuryFlow(t *testing.T) {
	founder := newAccount(t)
	alice := newAccount(t)
	client := newAccount(t)
	a := newTestApp(t, founder,
		types.GenesisBalance{Address: alice.addr, Amount: uint256.NewInt(100)},
		types.GenesisBalance{Address: client.addr, Amount: uint256.NewInt(1000)},
	)
	membership := contract.ContractAddress(contract.MembershipName)
	income := contract.ContractAddress(contract.IncomeName)

	results := a.block(time.Second,
		a.callTx(alice, membership, nil, contract.MembershipABI, "join"),
		a.sign(client, tx.NewTransferTx(client.addr, client.nonce, income, uint256.NewInt(400))),
	)
	requireOK(t, results[0])
	requireOK(t, results[1])

	p := a.params()
	assert.Equal(t, uint64(2), p.TotalVotingMembers)
	assert.Equal(t, uint64(400), p.TotalReceived.Uint64())
	assert.Equal(t, uint64(400), p.TreasuryBalance.Uint64())

	res := a.query("/members/", nil)
	require.Equal(t, QueryCodeOK, res.Code)
	var members []*types.Member
	require.NoError(t, json.Unmarshal(res.Value, &members))
	require.Len(t, members, 2)
	assert.Equal(t, founder.addr, members[0].Address)
	assert.Equal(t, alice.addr, members[1].Address)

	data, err := contract.MembershipABI.Pack("isVotingMember", alice.addr)
	require.NoError(t, err)
	req, err := json.Marshal(types.CallRequest{To: membership, Data: data})
	require.NoError(t, err)
	res = a.query("/call/", req)
	require.Equal(t, QueryCodeOK, res.Code, res.Log)
	outs, err := contract.MembershipABI.Unpack("isVotingMember", res.Value)
	require.NoError(t, err)
	assert.Equal(t, true, outs[0])
}

func TestRevertedCallUsesNonce(t *testing.T) {
	founder := newAccount(t)
	a := newTestApp(t, founder)
	membership := contract.ContractAddress(contract.MembershipName)

	results := a.block(time.Second,
		a.callTx(founder, membership, nil, contract.MembershipABI, "addVotingMember", common.HexToAddress("0x0a")),
		a.callTx(founder, membership, nil, contract.MembershipABI, "join"),
	)
	assert.Equal(t, handler.CodeRejected, results[0].Code)
	assert.Contains(t, results[0].Log, contract.ErrNotPrivilegedCaller.Error())
	assert.Equal(t, handler.CodeRejected, results[1].Code)
	assert.Contains(t, results[1].Log, contract.ErrAlreadyMember.Error())
	assert.Empty(t, results[1].Events)

	res := a.query("/accounts/", founder.addr.Bytes())
	var acnt state.Account
	require.NoError(t, acnt.UnmarshalJSON(res.Value))
	assert.Equal(t, uint64(2), acnt.Nonce)
	assert.Equal(t, uint64(1), a.params().TotalVotingMembers)
}

func TestFinalizeKeepsInvalidTxAsFailure(t *testing.T) {
	founder := newAccount(t)
	a := newTestApp(t, founder, types.GenesisBalance{Address: founder.addr, Amount: uint256.NewInt(10)})

	stale := a.sign(founder, tx.NewTransferTx(founder.addr, 5, common.HexToAddress("0x0b"), uint256.NewInt(1)))
	results := a.block(time.Second, []byte("not a tx"), stale)
	assert.Equal(t, handler.CodeRejected, results[0].Code)
	assert.Equal(t, handler.CodeRejected, results[1].Code)
	assert.Contains(t, results[1].Log, handler.ErrNonceMismatch.Error())

	res := a.query("/accounts/", founder.addr.Bytes())
	var acnt state.Account
	require.NoError(t, acnt.UnmarshalJSON(res.Value))
	assert.Equal(t, uint64(0), acnt.Nonce)
	assert.Equal(t, uint64(10), acnt.Balance.Uint64())
}

func TestCheckTx(t *testing.T) {
	founder := newAccount(t)
	a := newTestApp(t, founder, types.GenesisBalance{Address: founder.addr, Amount: uint256.NewInt(10)})
	ctx := context.Background()
	to := common.HexToAddress("0x0c")

	res, err := a.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: []byte("{}")})
	require.NoError(t, err)
	assert.Equal(t, handler.CodeRejected, res.Code)

	founder.nonce = 3
	res, err = a.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: a.sign(founder, tx.NewTransferTx(founder.addr, founder.nonce, to, uint256.NewInt(1)))})
	require.NoError(t, err)
	assert.Equal(t, handler.CodeOK, res.Code, res.Log)

	res, err = a.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: a.sign(founder, tx.NewTransferTx(founder.addr, founder.nonce, to, uint256.NewInt(11)))})
	require.NoError(t, err)
	assert.Equal(t, handler.CodeRejected, res.Code)

	other := newAccount(t)
	btx := tx.NewTransferTx(founder.addr, 0, to, uint256.NewInt(1))
	require.NoError(t, btx.Sign(other.key, testChainId))
	dat, err := tx.MarshalGuildTx(btx)
	require.NoError(t, err)
	res, err = a.app.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: dat})
	require.NoError(t, err)
	assert.Equal(t, handler.CodeRejected, res.Code)
}

func TestPrepareAndProcessProposal(t *testing.T) {
	founder := newAccount(t)
	a := newTestApp(t, founder, types.GenesisBalance{Address: founder.addr, Amount: uint256.NewInt(10)})
	ctx := context.Background()
	to := common.HexToAddress("0x0d")
	membership := contract.ContractAddress(contract.MembershipName)

	first := a.sign(founder, tx.NewTransferTx(founder.addr, 0, to, uint256.NewInt(4)))
	reverted := a.callTx(founder, membership, nil, contract.MembershipABI, "join")
	gap := a.sign(founder, tx.NewTransferTx(founder.addr, 7, to, uint256.NewInt(1)))
	tooMuch := a.sign(founder, tx.NewTransferTx(founder.addr, 2, to, uint256.NewInt(100)))

	prep, err := a.app.PrepareProposal(ctx, &abcitypes.RequestPrepareProposal{
		Txs:        [][]byte{first, reverted, gap, tooMuch},
		Height:     1,
		Time:       genesisTime.Add(time.Second),
		MaxTxBytes: 1 << 20,
	})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{first, reverted, tooMuch}, prep.Txs)

	proc, err := a.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Txs: prep.Txs, Height: 1, Time: genesisTime.Add(time.Second)})
	require.NoError(t, err)
	assert.Equal(t, abcitypes.ResponseProcessProposal_ACCEPT, proc.Status)

	proc, err = a.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Txs: [][]byte{first, gap}, Height: 1, Time: genesisTime.Add(time.Second)})
	require.NoError(t, err)
	assert.Equal(t, abcitypes.ResponseProcessProposal_REJECT, proc.Status)

	prep, err = a.app.PrepareProposal(ctx, &abcitypes.RequestPrepareProposal{
		Txs:        [][]byte{first, reverted},
		Height:     1,
		Time:       genesisTime.Add(time.Second),
		MaxTxBytes: int64(len(first)),
	})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{first}, prep.Txs)

	results := a.block(time.Second, first, reverted, tooMuch)
	requireOK(t, results[0])
	assert.Equal(t, handler.CodeRejected, results[1].Code)
	assert.Equal(t, handler.CodeRejected, results[2].Code)
	res := a.query("/accounts/", to.Bytes())
	var acnt state.Account
	require.NoError(t, acnt.UnmarshalJSON(res.Value))
	assert.Equal(t, uint64(4), acnt.Balance.Uint64())
}

func TestQueryRoutes(t *testing.T) {
	founder := newAccount(t)
	a := newTestApp(t, founder)

	assert.Equal(t, QueryCodeNoRoute, a.query("/validators/", nil).Code)
	assert.Equal(t, QueryCodeInvalid, a.query("/accounts/", []byte{1, 2}).Code)
	assert.Equal(t, QueryCodeNotFound, a.query("/members/", common.HexToAddress("0x0e").Bytes()).Code)
	assert.Equal(t, QueryCodeInvalid, a.query("/call/", []byte("nope")).Code)

	res := a.query("/proposals/", nil)
	require.Equal(t, QueryCodeOK, res.Code)
	var views []*types.ProposalView
	require.NoError(t, json.Unmarshal(res.Value, &views))
	assert.Empty(t, views)
}

func TestProposalListIsNewestFirst(t *testing.T) {
	founder := newAccount(t)
	a := newTestApp(t, founder)
	a.app.queriers["/proposals/"] = NewProposalQuerier(a.app.db, a.app.host, &a.app.lastBlk, 2, a.app.logger)
	gov := contract.ContractAddress(contract.GovernanceName)

	txs := make([][]byte, 0, 3)
	for _, desc := range []string{"a", "b", "c"} {
		txs = append(txs, a.callTx(founder, gov, nil, contract.GovernanceABI, "createProposal",
			[]common.Address{}, []*big.Int{}, []string{}, [][]byte{}, desc))
	}
	for _, r := range a.block(time.Second, txs...) {
		requireOK(t, r)
	}

	res := a.query("/proposals/", nil)
	require.Equal(t, QueryCodeOK, res.Code, res.Log)
	var views []*types.ProposalView
	require.NoError(t, json.Unmarshal(res.Value, &views))
	require.Len(t, views, 2)
	assert.Equal(t, "c", views[0].Description)
	assert.Equal(t, "b", views[1].Description)
}

func TestCommitWithoutFinalize(t *testing.T) {
	founder := newAccount(t)
	a := newTestApp(t, founder)
	_, err := a.app.Commit(context.Background(), &abcitypes.RequestCommit{})
	assert.ErrorIs(t, err, ErrNoPendingState)
}
