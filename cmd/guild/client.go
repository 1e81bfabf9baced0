package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/calehh/guild-app/app"
	"github.com/calehh/guild-app/contract"
	"github.com/calehh/guild-app/crypto"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	"github.com/calehh/guild-app/types"
	"github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

const (
	outputYAML = "yaml"
	outputJSON = "json"
)

var (
	ErrQueryNotFound = errors.New("not found")
	ErrBadOutput     = errors.New("unknown output format")
)

type nodeClient struct {
	cli     *http.HTTP
	chainId string
}

func newNodeClient(url string) (*nodeClient, error) {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	return &nodeClient{cli: cli}, nil
}

func (c *nodeClient) query(ctx context.Context, path string, data []byte) ([]byte, error) {
	res, err := c.cli.ABCIQuery(ctx, path, data)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", path, err)
	}
	switch res.Response.Code {
	case app.QueryCodeOK:
		return res.Response.Value, nil
	case app.QueryCodeNotFound:
		return nil, fmt.Errorf("query %s: %w", path, ErrQueryNotFound)
	}
	return nil, fmt.Errorf("query %s: code %d: %s", path, res.Response.Code, res.Response.Log)
}

func (c *nodeClient) queryJSON(ctx context.Context, path string, data []byte, v any) error {
	dat, err := c.query(ctx, path, data)
	if err != nil {
		return err
	}
	return json.Unmarshal(dat, v)
}

func (c *nodeClient) account(ctx context.Context, addr common.Address) (*state.Account, error) {
	var act state.Account
	if err := c.queryJSON(ctx, "/accounts/", addr.Bytes(), &act); err != nil {
		return nil, err
	}
	return &act, nil
}

func (c *nodeClient) params(ctx context.Context) (*types.Params, error) {
	var p types.Params
	if err := c.queryJSON(ctx, "/params/", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// view evaluates a read only call against the last committed state.
func (c *nodeClient) view(ctx context.Context, from, to common.Address, data []byte) ([]byte, error) {
	req, err := json.Marshal(&types.CallRequest{From: from, To: to, Data: data})
	if err != nil {
		return nil, err
	}
	return c.query(ctx, "/call/", req)
}

func (c *nodeClient) chainID(ctx context.Context) (string, error) {
	if c.chainId != "" {
		return c.chainId, nil
	}
	gres, err := c.cli.Genesis(ctx)
	if err != nil {
		return "", fmt.Errorf("get chain genesis: %w", err)
	}
	c.chainId = gres.Genesis.ChainID
	return c.chainId, nil
}

// send signs the tx built for the next nonce and broadcasts it.
func (c *nodeClient) send(ctx context.Context, key *crypto.Key, nonce int64, build func(nonce uint64) *tx.GuildTx) (*coretypes.ResultBroadcastTx, error) {
	chainId, err := c.chainID(ctx)
	if err != nil {
		return nil, err
	}
	if nonce < 0 {
		act, err := c.account(ctx, key.Address())
		if err != nil {
			return nil, err
		}
		nonce = int64(act.Nonce)
	}
	btx := build(uint64(nonce))
	if err = btx.Sign(key.PrivateKey(), chainId); err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	dat, err := tx.MarshalGuildTx(btx)
	if err != nil {
		return nil, fmt.Errorf("encode tx: %w", err)
	}
	res, err := c.cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return nil, fmt.Errorf("broadcast tx: %w", err)
	}
	return res, nil
}

func (c *nodeClient) call(ctx context.Context, key *crypto.Key, nonce int64, to common.Address, value *uint256.Int, data []byte) (*coretypes.ResultBroadcastTx, error) {
	return c.send(ctx, key, nonce, func(n uint64) *tx.GuildTx {
		return tx.NewCallTx(key.Address(), n, to, value, data)
	})
}

func (c *nodeClient) transfer(ctx context.Context, key *crypto.Key, nonce int64, to common.Address, amount *uint256.Int) (*coretypes.ResultBroadcastTx, error) {
	return c.send(ctx, key, nonce, func(n uint64) *tx.GuildTx {
		return tx.NewTransferTx(key.Address(), n, to, amount)
	})
}

// sendOwnerCall signs an owner only call, or a proposal carrying it.
func sendOwnerCall(f *txFlags, target string, method string, args ...any) error {
	parsed, _ := contract.ABIByName(target)
	to, data, err := ownerCall(parsed, contract.ContractAddress(target), f.Propose, method, args...)
	if err != nil {
		return err
	}
	return sendCall(f, to, nil, data)
}

func sendCall(f *txFlags, to common.Address, value *uint256.Int, data []byte) error {
	key, err := crypto.LoadKey(keyPath(f.Key))
	if err != nil {
		return err
	}
	cli, err := newNodeClient(f.Url)
	if err != nil {
		return err
	}
	res, err := cli.call(context.Background(), key, f.Nonce, to, value, data)
	if err != nil {
		return err
	}
	return printBroadcast(f.Output, res)
}

type broadcastResult struct {
	Hash string        `json:"hash" yaml:"hash"`
	Code uint32        `json:"code" yaml:"code"`
	Log  string        `json:"log,omitempty" yaml:"log,omitempty"`
	Data hexutil.Bytes `json:"data,omitempty" yaml:"data,omitempty"`
}

func newBroadcastResult(res *coretypes.ResultBroadcastTx) *broadcastResult {
	return &broadcastResult{
		Hash: res.Hash.String(),
		Code: res.Code,
		Log:  res.Log,
		Data: hexutil.Bytes(res.Data),
	}
}

func writeOutput(format string, v any) error {
	var (
		dat []byte
		err error
	)
	switch format {
	case outputYAML, "":
		dat, err = yaml.Marshal(v)
	case outputJSON:
		dat, err = json.MarshalIndent(v, "", "  ")
		dat = append(dat, '\n')
	default:
		return fmt.Errorf("%w: %s", ErrBadOutput, format)
	}
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(dat)
	return err
}

func printBroadcast(format string, res *coretypes.ResultBroadcastTx) error {
	if err := writeOutput(format, newBroadcastResult(res)); err != nil {
		return err
	}
	if res.Code != 0 {
		return fmt.Errorf("tx rejected by the mempool: code %d", res.Code)
	}
	return nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}
