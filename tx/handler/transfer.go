package handler

import (
	"context"

	"github.com/calehh/guild-app/contract"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// TransferTxHandler moves value without calldata. Sending to the
// treasury goes through its receive hook so the payment is booked.
type TransferTxHandler struct {
	logger cmtlog.Logger
	host   *contract.Host
}

func NewTransferTxHandler(host *contract.Host, logger cmtlog.Logger) (h *TransferTxHandler) {
	logger = logger.With("module", "transferTx")
	h = &TransferTxHandler{
		logger: logger,
		host:   host,
	}
	return
}

func (h *TransferTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GuildTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: CodeOK}
	stx := btx.Tx.(*tx.TransferTx)
	if err1 := checkFunds(st, btx.From, stx.Amount); err1 != nil {
		h.logger.Info("CheckTx TransferTx fail", "err", err1)
		res.Code = CodeRejected
		res.Log = err1.Error()
	}
	return
}

func (h *TransferTxHandler) handle(ctx context.Context, st *state.State, blk contract.BlockContext, btx *tx.GuildTx) (res *abcitypes.ExecTxResult, err error) {
	stx := btx.Tx.(*tx.TransferTx)
	res, err = execute(h.host, st, blk, btx, stx.To, stx.Amount, nil)
	if err == nil && res.Code != CodeOK {
		h.logger.Info("transfer reverted", "from", btx.From, "to", stx.To, "nonce", btx.Nonce, "log", res.Log)
	}
	return
}

func (h *TransferTxHandler) Prepare(ctx context.Context, st *state.State, blk contract.BlockContext, btx *tx.GuildTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, blk, btx)
}

func (h *TransferTxHandler) Process(ctx context.Context, st *state.State, blk contract.BlockContext, btx *tx.GuildTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, blk, btx)
}
