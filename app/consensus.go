package app

import (
	"context"
	"errors"
	"time"

	"github.com/calehh/guild-app/contract"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	"github.com/calehh/guild-app/tx/handler"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
	ErrUnsupportedTx       = errors.New("unsupported tx")
	ErrNoPendingState      = errors.New("commit without finalized block")
)

func (app *GuildApp) getState() (st *state.State) {
	st = app.db.NewState()
	app.st = st
	return
}

func (app *GuildApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.GuildTx, h handler.TxHandler, err error) {
	btx, err = tx.UnmarshalGuildTx(txDat)
	if err != nil {
		return
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		return nil, nil, ErrUnsupportedTx
	}
	_, err = handler.Verify(st, btx, allowNonceGap)
	return
}

func (app *GuildApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: handler.CodeOK}
	st := app.db.State()
	btx, h, err := app.parseTx(st, check.Tx, true)
	if err != nil {
		app.logger.Info("check tx fail", "err", err)
		res.Code = handler.CodeRejected
		res.Log = err.Error()
		err = nil
		return
	}
	res, err = h.Check(ctx, st, btx)
	if err != nil {
		app.logger.Error("check tx fail", "type", btx.Type, "err", err)
		res = &abcitypes.ResponseCheckTx{Code: handler.CodeRejected, Log: err.Error()}
		err = nil
	}
	return
}

// PrepareProposal keeps every tx that verifies against the block being
// built, in mempool order, until MaxTxBytes is reached. A tx whose call
// reverts still goes in: it uses its nonce and reports a failed result.
func (app *GuildApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	st := app.db.NewState()
	blk := contract.BlockContext{Height: uint64(proposal.Height), Time: uint64(proposal.Time.Unix())}
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if proposal.MaxTxBytes > 0 && size+int64(len(stx)) > proposal.MaxTxBytes {
			droppedTxs.WithLabelValues("size").Inc()
			continue
		}
		btx, h, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Info("prepare drop tx", "err", err)
			droppedTxs.WithLabelValues("verify").Inc()
			continue
		}
		snap := st.Snapshot()
		result, err := h.Prepare(ctx, st, blk, btx)
		if err != nil || result == nil {
			app.logger.Error("prepare tx fail", "type", btx.Type, "err", err)
			st.RevertToSnapshot(snap)
			droppedTxs.WithLabelValues("prepare").Inc()
			continue
		}
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	app.logger.Info("PrepareProposal", "height", proposal.Height, "txs", len(txs), "offered", len(proposal.Txs))
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *GuildApp) process(ctx context.Context, st *state.State, blk contract.BlockContext, txs [][]byte) (err error) {
	for _, stx := range txs {
		btx, h, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Error("unexpected tx in proposal", "err", err)
			return err
		}
		result, err := h.Process(ctx, st, blk, btx)
		if err != nil {
			app.logger.Error("unexpected process tx fail", "type", btx.Type, "err", err)
			return ErrUnexpectedTxProcess
		}
		if result == nil {
			app.logger.Error("unexpected process tx nil result", "type", btx.Type)
			return ErrUnexpectedTxProcess
		}
	}
	return
}

func (app *GuildApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	if len(proposal.Txs) == 0 {
		res.Status = abcitypes.ResponseProcessProposal_ACCEPT
		return res, nil
	}
	st := app.db.NewState()
	blk := contract.BlockContext{Height: uint64(proposal.Height), Time: uint64(proposal.Time.Unix())}
	if err = app.process(ctx, st, blk, proposal.Txs); err != nil {
		app.logger.Error("process fail", "height", proposal.Height, "err", err)
		return res, nil
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	app.logger.Info("proposal accepted", "height", proposal.Height, "txs", len(proposal.Txs))
	return res, nil
}

// finalize never drops a tx: one that no longer verifies gets a failed
// result without touching state.
func (app *GuildApp) finalize(ctx context.Context, st *state.State, blk contract.BlockContext, txs [][]byte) (res []*abcitypes.ExecTxResult, err error) {
	res = make([]*abcitypes.ExecTxResult, len(txs))
	for i, stx := range txs {
		btx, h, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Error("finalize skip tx", "index", i, "err", err)
			res[i] = &abcitypes.ExecTxResult{Code: handler.CodeRejected, Log: err.Error()}
			txResults.WithLabelValues("invalid", codeLabel(handler.CodeRejected)).Inc()
			continue
		}
		result, err := h.Process(ctx, st, blk, btx)
		if err != nil {
			app.logger.Error("unexpected process tx fail", "type", btx.Type, "err", err)
			return nil, ErrUnexpectedTxProcess
		}
		if result == nil {
			app.logger.Error("unexpected process tx nil result", "type", btx.Type)
			return nil, ErrUnexpectedTxProcess
		}
		observeTxResult(btx.Type.String(), result)
		res[i] = result
	}
	return
}

func (app *GuildApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	begin := time.Now()
	var blkInfo finalizeBlock
	blkInfo.Set(req)
	st := app.getState()
	res, err := app.finalize(ctx, st, blkInfo.Context(), req.Txs)
	if err != nil {
		return nil, err
	}
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.lastBlk = blkInfo
	finalizeSeconds.Observe(time.Since(begin).Seconds())
	blockTxs.Observe(float64(len(req.Txs)))
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *GuildApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil {
		return nil, ErrNoPendingState
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	committedHeight.Set(float64(app.st.Height()))
	app.st = nil
	app.logger.Info("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}
