package handler

import (
	"context"
	"fmt"

	"github.com/calehh/guild-app/contract"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type CallTxHandler struct {
	logger cmtlog.Logger
	host   *contract.Host
}

func NewCallTxHandler(host *contract.Host, logger cmtlog.Logger) (h *CallTxHandler) {
	logger = logger.With("module", "callTx")
	h = &CallTxHandler{
		logger: logger,
		host:   host,
	}
	return
}

func (h *CallTxHandler) Check(ctx context.Context, st *state.State, btx *tx.GuildTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: CodeOK}
	stx := btx.Tx.(*tx.CallTx)
	if err1 := checkFunds(st, btx.From, stx.Value); err1 != nil {
		h.logger.Info("CheckTx CallTx fail", "err", err1)
		res.Code = CodeRejected
		res.Log = err1.Error()
		return
	}
	if c, ok := h.host.Contract(stx.To); ok && len(stx.Data) > 0 {
		if _, err1 := c.ABI().MethodById(stx.Data); err1 != nil {
			h.logger.Info("CheckTx CallTx unknown method", "to", stx.To, "err", err1)
			res.Code = CodeRejected
			res.Log = fmt.Sprintf("%v: %v", contract.ErrUnknownMethod, err1)
		}
	}
	return
}

func (h *CallTxHandler) handle(ctx context.Context, st *state.State, blk contract.BlockContext, btx *tx.GuildTx) (res *abcitypes.ExecTxResult, err error) {
	stx := btx.Tx.(*tx.CallTx)
	res, err = execute(h.host, st, blk, btx, stx.To, stx.Value, stx.Data)
	if err == nil && res.Code != CodeOK {
		h.logger.Info("call reverted", "from", btx.From, "to", stx.To, "nonce", btx.Nonce, "log", res.Log)
	}
	return
}

func (h *CallTxHandler) Prepare(ctx context.Context, st *state.State, blk contract.BlockContext, btx *tx.GuildTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, blk, btx)
}

func (h *CallTxHandler) Process(ctx context.Context, st *state.State, blk contract.BlockContext, btx *tx.GuildTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, blk, btx)
}
