package app

import (
	"context"

	"github.com/calehh/guild-app/config"
	"github.com/calehh/guild-app/contract"
	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/tx"
	"github.com/calehh/guild-app/tx/handler"
	"github.com/calehh/guild-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
)

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
	Time   uint64
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
	b.Time = uint64(blk.Time.Unix())
}

// Context is the block context queries evaluate against.
func (b *finalizeBlock) Context() contract.BlockContext {
	return contract.BlockContext{Height: b.Height, Time: b.Time}
}

var _ abcitypes.Application = &GuildApp{}

type GuildApp struct {
	cfg    *config.AppConfig
	logger cmtlog.Logger

	db       *state.StateDB
	host     *contract.Host
	lastBlk  finalizeBlock
	txHdlrs  map[tx.GuildTxType]handler.TxHandler
	queriers map[string]Querier

	st *state.State
}

func NewGuildApp(cfg *config.AppConfig, logger cmtlog.Logger) (app *GuildApp, err error) {
	db, err := state.NewStateDB(cfg.DataDir(), logger)
	if err != nil {
		return nil, err
	}
	return newGuildApp(cfg, db, logger), nil
}

func newGuildApp(cfg *config.AppConfig, db *state.StateDB, logger cmtlog.Logger) (app *GuildApp) {
	logger = logger.With("module", "app")
	app = &GuildApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		host:     contract.NewHost(logger),
		txHdlrs:  make(map[tx.GuildTxType]handler.TxHandler),
		queriers: make(map[string]Querier),
	}
	app.registerTxHandler()
	app.registerQuerier()
	return
}

// Start restores the last block context from the block store so queries
// see the same clock the contracts last ran with.
func (app *GuildApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
		app.lastBlk.Time = uint64(blk.Time.Unix())
	}
	committedHeight.Set(float64(height))
}

func (app *GuildApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("guild app stopped")
}

func (app *GuildApp) Host() *contract.Host {
	return app.host
}

func (app *GuildApp) registerTxHandler() {
	app.txHdlrs = map[tx.GuildTxType]handler.TxHandler{
		tx.GuildTxTypeCall:     handler.NewCallTxHandler(app.host, app.logger),
		tx.GuildTxTypeTransfer: handler.NewTransferTxHandler(app.host, app.logger),
	}
}

func (app *GuildApp) registerQuerier() {
	pageSize := app.cfg.QueryPageSize
	if pageSize <= 0 {
		pageSize = config.DefaultQueryPageSize
	}
	app.queriers["/accounts/"] = NewAccountQuerier(app.db, app.logger)
	app.queriers["/members/"] = NewMemberQuerier(app.db, app.host, app.logger)
	app.queriers["/proposals/"] = NewProposalQuerier(app.db, app.host, &app.lastBlk, pageSize, app.logger)
	app.queriers["/votes/"] = NewVoteQuerier(app.db, app.host, app.logger)
	app.queriers["/params/"] = NewParamsQuerier(app.db, app.host, app.logger)
	app.queriers["/call/"] = NewCallQuerier(app.db, app.host, &app.lastBlk, app.logger)
}

func (app *GuildApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	as, err := types.ParseAppState(chain.AppStateBytes)
	if err != nil {
		app.logger.Error("InitChain parse app_state fail", "err", err)
		return nil, err
	}
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	blk := contract.BlockContext{Height: uint64(chain.InitialHeight), Time: uint64(chain.Time.Unix())}
	events, err := app.host.Genesis(st, blk, as)
	if err != nil {
		app.logger.Error("InitChain deploy contracts fail", "err", err)
		return nil, err
	}
	var h common.Hash
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	app.lastBlk.Time = blk.Time
	app.logger.Info("InitChain", "chainId", chain.ChainId, "founder", as.Founder, "events", len(events), "appHash", h)
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *GuildApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *GuildApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *GuildApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *GuildApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{}, nil
}

func (app *GuildApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *GuildApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *GuildApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{}, nil
}
