package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/calehh/guild-app/contract"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	CodeOK       uint32 = 0
	CodeRejected uint32 = 1
)

var (
	ErrNonceTooLow   = errors.New("nonce too low")
	ErrNonceMismatch = errors.New("nonce mismatch")
)

type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.GuildTx) (res *abcitypes.ResponseCheckTx, err error)
	Prepare(ctx context.Context, st *state.State, blk contract.BlockContext, btx *tx.GuildTx) (res *abcitypes.ExecTxResult, err error)
	Process(ctx context.Context, st *state.State, blk contract.BlockContext, btx *tx.GuildTx) (res *abcitypes.ExecTxResult, err error)
}

// Verify checks the signature against the state's chain id and the
// nonce against the sender account. The mempool allows nonces ahead of
// the account; blocks must use the exact next nonce.
func Verify(st *state.State, btx *tx.GuildTx, allowNonceGap bool) (sender common.Address, err error) {
	sender, err = btx.Sender(st.ChainId())
	if err != nil {
		return
	}
	nonce, err := st.GetNonce(sender)
	if err != nil {
		return
	}
	switch {
	case btx.Nonce < nonce:
		err = fmt.Errorf("%w: have %d, want %d", ErrNonceTooLow, btx.Nonce, nonce)
	case btx.Nonce > nonce && !allowNonceGap:
		err = fmt.Errorf("%w: have %d, want %d", ErrNonceMismatch, btx.Nonce, nonce)
	}
	return
}

// execute bumps the sender nonce and runs the call. A reverted call is a
// failed result, not an error: the nonce stays used and the block goes on.
func execute(host *contract.Host, st *state.State, blk contract.BlockContext, btx *tx.GuildTx, to common.Address, value *uint256.Int, data []byte) (res *abcitypes.ExecTxResult, err error) {
	if err = st.IncNonce(btx.From); err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{Code: CodeOK}
	ret, events, callErr := host.Call(st, blk, btx.From, to, value, data)
	if callErr != nil {
		res.Code = CodeRejected
		res.Log = callErr.Error()
		return
	}
	res.Data = ret
	res.Events = events
	return
}

// checkFunds rejects a tx whose sender cannot cover the value it sends.
func checkFunds(st *state.State, from common.Address, value *uint256.Int) error {
	bal, err := st.GetBalance(from)
	if err != nil {
		return err
	}
	if bal.Lt(value) {
		return fmt.Errorf("%w: %s has %s, need %s", state.ErrInsufficientFunds, from.Hex(), bal.Dec(), value.Dec())
	}
	return nil
}
