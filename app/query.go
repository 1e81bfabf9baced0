package app

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"strings"

	"github.com/calehh/guild-app/contract"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

const (
	QueryCodeOK       uint32 = 0
	QueryCodeNotFound uint32 = 1
	QueryCodeInvalid  uint32 = 2
	QueryCodeNoRoute  uint32 = 404
)

var ErrBadQueryData = errors.New("bad query data")

func (app *GuildApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = QueryCodeNoRoute
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

// EncodeProposalId is the query data addressing one proposal.
func EncodeProposalId(id uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}

// EncodeVoteKey is the query data addressing one voter on one proposal.
func EncodeVoteKey(id uint64, voter common.Address) []byte {
	return append(EncodeProposalId(id), voter.Bytes()...)
}

func queryError(res *abcitypes.ResponseQuery, code uint32, err error) *abcitypes.ResponseQuery {
	res.Code = code
	res.Log = err.Error()
	return res
}

func queryValue(res *abcitypes.ResponseQuery, height uint64, v any) *abcitypes.ResponseQuery {
	dat, err := json.Marshal(v)
	if err != nil {
		return queryError(res, QueryCodeInvalid, err)
	}
	res.Value = dat
	res.Height = int64(height)
	return res
}

type AccountQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) (q *AccountQuerier) {
	q = &AccountQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *AccountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) != common.AddressLength {
		return queryError(res, QueryCodeInvalid, ErrBadQueryData), nil
	}
	a, height, err := q.db.GetAccount(common.BytesToAddress(req.Data))
	if err != nil {
		q.logger.Error("query account fail", "err", err)
		return queryError(res, QueryCodeNotFound, err), nil
	}
	res.Value, _ = a.MarshalJSON()
	res.Height = int64(height)
	return
}

// MemberQuerier returns one member for a 20 byte address, or every member
// in admission order for empty data.
type MemberQuerier struct {
	db     *state.StateDB
	host   *contract.Host
	logger cmtlog.Logger
}

func NewMemberQuerier(db *state.StateDB, host *contract.Host, logger cmtlog.Logger) (q *MemberQuerier) {
	q = &MemberQuerier{
		db:     db,
		host:   host,
		logger: logger,
	}
	return
}

func (q *MemberQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	st, err := q.db.QueryState()
	if err != nil {
		return nil, err
	}
	switch len(req.Data) {
	case 0:
		members, err := q.host.Membership.Members(st)
		if err != nil {
			return queryError(res, QueryCodeInvalid, err), nil
		}
		return queryValue(res, st.Height(), members), nil
	case common.AddressLength:
		member, err := q.host.Membership.Member(st, common.BytesToAddress(req.Data))
		if err != nil {
			return queryError(res, QueryCodeInvalid, err), nil
		}
		if !member.IsVotingMember {
			return queryError(res, QueryCodeNotFound, state.ErrNotFound), nil
		}
		return queryValue(res, st.Height(), member), nil
	}
	return queryError(res, QueryCodeInvalid, ErrBadQueryData), nil
}

// ProposalQuerier returns one proposal for an 8 byte id, or the newest
// page of proposals, newest first, for empty data.
type ProposalQuerier struct {
	db       *state.StateDB
	host     *contract.Host
	blk      *finalizeBlock
	pageSize int
	logger   cmtlog.Logger
}

func NewProposalQuerier(db *state.StateDB, host *contract.Host, blk *finalizeBlock, pageSize int, logger cmtlog.Logger) (q *ProposalQuerier) {
	q = &ProposalQuerier{
		db:       db,
		host:     host,
		blk:      blk,
		pageSize: pageSize,
		logger:   logger,
	}
	return
}

func (q *ProposalQuerier) view(st *state.State, id uint64) (v *types.ProposalView, err error) {
	p, err := q.host.Governance.Proposal(st, id)
	if err != nil {
		return nil, err
	}
	var s types.ProposalState
	_, err = q.host.Execute(st, q.blk.Context(), common.Address{}, q.host.Governance.Address(), func(env *contract.Env) (err error) {
		s, err = q.host.Governance.State(env, id)
		return
	})
	if err != nil {
		return nil, err
	}
	return &types.ProposalView{Proposal: *p, State: s, StateName: s.String()}, nil
}

func (q *ProposalQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	st, err := q.db.QueryState()
	if err != nil {
		return nil, err
	}
	switch len(req.Data) {
	case 0:
		count, err := q.host.Governance.ProposalCount(st)
		if err != nil {
			return queryError(res, QueryCodeInvalid, err), nil
		}
		views := make([]*types.ProposalView, 0, q.pageSize)
		for id := count; id > 0 && len(views) < q.pageSize; id-- {
			v, err := q.view(st, id-1)
			if err != nil {
				return queryError(res, QueryCodeInvalid, err), nil
			}
			views = append(views, v)
		}
		return queryValue(res, st.Height(), views), nil
	case 8:
		v, err := q.view(st, binary.BigEndian.Uint64(req.Data))
		if errors.Is(err, contract.ErrProposalNotFound) {
			return queryError(res, QueryCodeNotFound, err), nil
		}
		if err != nil {
			return queryError(res, QueryCodeInvalid, err), nil
		}
		return queryValue(res, st.Height(), v), nil
	}
	return queryError(res, QueryCodeInvalid, ErrBadQueryData), nil
}

// VoteQuerier takes an 8 byte proposal id followed by the voter address.
type VoteQuerier struct {
	db     *state.StateDB
	host   *contract.Host
	logger cmtlog.Logger
}

func NewVoteQuerier(db *state.StateDB, host *contract.Host, logger cmtlog.Logger) (q *VoteQuerier) {
	q = &VoteQuerier{
		db:     db,
		host:   host,
		logger: logger,
	}
	return
}

func (q *VoteQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) != 8+common.AddressLength {
		return queryError(res, QueryCodeInvalid, ErrBadQueryData), nil
	}
	st, err := q.db.QueryState()
	if err != nil {
		return nil, err
	}
	id := binary.BigEndian.Uint64(req.Data[:8])
	rec, err := q.host.Governance.VoteRecord(st, id, common.BytesToAddress(req.Data[8:]))
	if err != nil {
		return queryError(res, QueryCodeInvalid, err), nil
	}
	if rec == nil {
		return queryError(res, QueryCodeNotFound, state.ErrNotFound), nil
	}
	return queryValue(res, st.Height(), rec), nil
}

type ParamsQuerier struct {
	db     *state.StateDB
	host   *contract.Host
	logger cmtlog.Logger
}

func NewParamsQuerier(db *state.StateDB, host *contract.Host, logger cmtlog.Logger) (q *ParamsQuerier) {
	q = &ParamsQuerier{
		db:     db,
		host:   host,
		logger: logger,
	}
	return
}

func (q *ParamsQuerier) params(st *state.State) (p *types.Params, err error) {
	h := q.host
	p = &types.Params{
		ChainId: st.ChainId(),
		Height:  st.Height(),
		Contracts: types.ContractAddresses{
			Membership: h.Membership.Address(),
			Payment:    h.Payment.Address(),
			Income:     h.Income.Address(),
			Governance: h.Governance.Address(),
		},
	}
	if p.Owners.Membership, err = h.Membership.Owner(st); err != nil {
		return
	}
	if p.Owners.Payment, err = h.Payment.Owner(st); err != nil {
		return
	}
	if p.Owners.Income, err = h.Income.Owner(st); err != nil {
		return
	}
	if p.Owners.Governance, err = h.Governance.Owner(st); err != nil {
		return
	}
	if p.Founder, err = h.Membership.Founder(st); err != nil {
		return
	}
	if p.EntryFee, err = h.Membership.GetCurrentVotingMemberEntryFee(st); err != nil {
		return
	}
	if p.TotalVotingMembers, err = h.Membership.GetTotalVotingMembers(st); err != nil {
		return
	}
	if p.VotingPeriod, err = h.Governance.VotingPeriod(st); err != nil {
		return
	}
	if p.ProposalCount, err = h.Governance.ProposalCount(st); err != nil {
		return
	}
	if p.CompanyIncomePercentage, err = h.Income.GetCompanyIncomePercentage(st); err != nil {
		return
	}
	if p.TotalReceived, err = h.Income.TotalReceived(st); err != nil {
		return
	}
	if p.TotalDistributed, err = h.Income.TotalDistributed(st); err != nil {
		return
	}
	p.TreasuryBalance, err = st.GetBalance(h.Income.Address())
	return
}

func (q *ParamsQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	st, err := q.db.QueryState()
	if err != nil {
		return nil, err
	}
	p, err := q.params(st)
	if err != nil {
		q.logger.Error("query params fail", "err", err)
		return queryError(res, QueryCodeInvalid, err), nil
	}
	return queryValue(res, st.Height(), p), nil
}

// CallQuerier evaluates a types.CallRequest against the last committed
// state. Writes the call makes are thrown away with the query state.
type CallQuerier struct {
	db     *state.StateDB
	host   *contract.Host
	blk    *finalizeBlock
	logger cmtlog.Logger
}

func NewCallQuerier(db *state.StateDB, host *contract.Host, blk *finalizeBlock, logger cmtlog.Logger) (q *CallQuerier) {
	q = &CallQuerier{
		db:     db,
		host:   host,
		blk:    blk,
		logger: logger,
	}
	return
}

func (q *CallQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	var call types.CallRequest
	if err = json.Unmarshal(req.Data, &call); err != nil {
		return queryError(res, QueryCodeInvalid, err), nil
	}
	st, err := q.db.QueryState()
	if err != nil {
		return nil, err
	}
	ret, _, err := q.host.Call(st, q.blk.Context(), call.From, call.To, call.Value, call.Data)
	if err != nil {
		return queryError(res, QueryCodeInvalid, err), nil
	}
	res.Value = ret
	res.Height = int64(st.Height())
	return
}
