package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/calehh/guild-app/types"
	"github.com/cenkalti/backoff/v4"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

var ErrSourceClosed = errors.New("block source unavailable")

const (
	KindEntryFee         = "entry_fee"
	KindCompanyIncomePct = "company_income_percentage"
	KindOwnership        = "ownership"
)

// BlockSource is the part of the CometBFT RPC client the indexer reads.
type BlockSource interface {
	Genesis(ctx context.Context) (*coretypes.ResultGenesis, error)
	Status(ctx context.Context) (*coretypes.ResultStatus, error)
	Block(ctx context.Context, height *int64) (*coretypes.ResultBlock, error)
	BlockResults(ctx context.Context, height *int64) (*coretypes.ResultBlockResults, error)
}

// Dialer opens a fresh BlockSource after the current one fails.
type Dialer func() (BlockSource, error)

func HTTPDialer(url string) Dialer {
	return func() (BlockSource, error) {
		return comethttp.New(url, "/websocket")
	}
}

type ChainIndexer struct {
	logger        cmtlog.Logger
	Height        int64
	db            *gorm.DB
	src           BlockSource
	dial          Dialer
	interval      time.Duration
	eventHandlers map[string]eventHandler
}

func OpenDB(dbPath string) (db *gorm.DB, err error) {
	db, err = gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err = db.AutoMigrate(&Height{}, &Member{}, &Proposal{}, &Vote{}, &Payment{}, &Distribution{}, &Consultant{}, &ParamChange{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	return
}

func NewChainIndexer(logger cmtlog.Logger, db *gorm.DB, dial Dialer) (*ChainIndexer, error) {
	h := Height{Id: 1}
	if err := db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c := &ChainIndexer{
		logger:   logger.With("module", "indexer"),
		Height:   int64(h.Height + 1),
		db:       db,
		dial:     dial,
		interval: time.Second,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventMemberAddedType:                c.handleEventMemberAdded,
		types.EventVotingMemberEntryFeeSetType:    c.handleEventEntryFeeSet,
		types.EventConsultantRateSetType:          c.handleEventConsultantRateSet,
		types.EventPaymentReceivedType:            c.handleEventPaymentReceived,
		types.EventIncomeDistributedType:          c.handleEventIncomeDistributed,
		types.EventCompanyIncomePercentageSetType: c.handleEventCompanyIncomePercentageSet,
		types.EventProposalCreatedType:            c.handleEventProposalCreated,
		types.EventVotedType:                      c.handleEventVoted,
		types.EventProposalExecutedType:           c.handleEventProposalExecuted,
		types.EventProposalEndTimeUpdatedType:     c.handleEventProposalEndTimeUpdated,
		types.EventOwnershipTransferredType:       c.handleEventOwnershipTransferred,
	}
	return c, nil
}

type eventMeta struct {
	Height int64
	TxHash string
}

type eventHandler func(tx *gorm.DB, event abci.Event, meta eventMeta) error

var errDecode = errors.New("decode event fail")

func (c *ChainIndexer) handleEvent(tx *gorm.DB, event abci.Event, meta eventMeta) error {
	h, ok := c.eventHandlers[event.Type]
	if !ok {
		return nil
	}
	if err := h(tx, event, meta); err != nil {
		return fmt.Errorf("%s at height %d: %w", event.Type, meta.Height, err)
	}
	return nil
}

func (c *ChainIndexer) handleEventMemberAdded(tx *gorm.DB, event abci.Event, meta eventMeta) error {
	ev := types.DecodeEventMemberAdded(event)
	if ev == nil {
		return errDecode
	}
	return tx.Save(&Member{
		Address:    ev.Member.Hex(),
		MemberType: ev.MemberType,
		Height:     uint64(meta.Height),
		TxHash:     meta.TxHash,
	}).Error
}

func (c *ChainIndexer) paramChange(tx *gorm.DB, kind string, event abci.Event, oldVal, newVal string, meta eventMeta) error {
	contract, _ := types.EventContract(event)
	return tx.Create(&ParamChange{
		Kind:     kind,
		Contract: contract.Hex(),
		Old:      oldVal,
		New:      newVal,
		Height:   uint64(meta.Height),
	}).Error
}

func (c *ChainIndexer) handleEventEntryFeeSet(tx *gorm.DB, event abci.Event, meta eventMeta) error {
	ev := types.DecodeEventVotingMemberEntryFeeSet(event)
	if ev == nil {
		return errDecode
	}
	return c.paramChange(tx, KindEntryFee, event, ev.OldFee.Dec(), ev.NewFee.Dec(), meta)
}

func (c *ChainIndexer) handleEventCompanyIncomePercentageSet(tx *gorm.DB, event abci.Event, meta eventMeta) error {
	ev := types.DecodeEventCompanyIncomePercentageSet(event)
	if ev == nil {
		return errDecode
	}
	return c.paramChange(tx, KindCompanyIncomePct, event, fmt.Sprint(ev.OldPercentage), fmt.Sprint(ev.NewPercentage), meta)
}

func (c *ChainIndexer) handleEventOwnershipTransferred(tx *gorm.DB, event abci.Event, meta eventMeta) error {
	ev := types.DecodeEventOwnershipTransferred(event)
	if ev == nil {
		return errDecode
	}
	return c.paramChange(tx, KindOwnership, event, ev.PreviousOwner.Hex(), ev.NewOwner.Hex(), meta)
}

func (c *ChainIndexer) handleEventConsultantRateSet(tx *gorm.DB, event abci.Event, meta eventMeta) error {
	ev := types.DecodeEventConsultantRateSet(event)
	if ev == nil {
		return errDecode
	}
	return tx.Save(&Consultant{
		Address: ev.Consultant.Hex(),
		Rate:    ev.Rate.Dec(),
		Height:  uint64(meta.Height),
	}).Error
}

func (c *ChainIndexer) handleEventPaymentReceived(tx *gorm.DB, event abci.Event, meta eventMeta) error {
	ev := types.DecodeEventPaymentReceived(event)
	if ev == nil {
		return errDecode
	}
	return tx.Create(&Payment{
		From:   ev.From.Hex(),
		Amount: ev.Amount.Dec(),
		Height: uint64(meta.Height),
		TxHash: meta.TxHash,
	}).Error
}

func (c *ChainIndexer) handleEventIncomeDistributed(tx *gorm.DB, event abci.Event, meta eventMeta) error {
	ev := types.DecodeEventIncomeDistributed(event)
	if ev == nil {
		return errDecode
	}
	return tx.Create(&Distribution{
		Consultant: ev.Consultant.Hex(),
		WorkUnits:  ev.WorkUnits.Dec(),
		Rate:       ev.Rate.Dec(),
		Payout:     ev.Payout.Dec(),
		Height:     uint64(meta.Height),
		TxHash:     meta.TxHash,
	}).Error
}

// ActionInfo is one proposal action as stored in Proposal.Actions.
type ActionInfo struct {
	Target    common.Address `json:"target"`
	Value     string         `json:"value"`
	Signature string         `json:"signature"`
	Calldata  hexutil.Bytes  `json:"calldata"`
}

func (c *ChainIndexer) handleEventProposalCreated(tx *gorm.DB, event abci.Event, meta eventMeta) error {
	ev := types.DecodeEventProposalCreated(event)
	if ev == nil {
		return errDecode
	}
	p := types.Proposal{
		Targets:    ev.Targets,
		Values:     ev.Values,
		Signatures: ev.Signatures,
		Calldatas:  ev.Calldatas,
	}
	acts := p.Actions()
	infos := make([]ActionInfo, len(acts))
	for i, act := range acts {
		infos[i] = ActionInfo{Target: act.Target, Value: act.Value.Dec(), Signature: act.Signature, Calldata: act.Calldata}
	}
	dat, err := json.Marshal(infos)
	if err != nil {
		return err
	}
	return tx.Create(&Proposal{
		ProposalId:   ev.Id,
		Proposer:     ev.Proposer.Hex(),
		Description:  ev.Description,
		Actions:      string(dat),
		StartTime:    ev.StartTime,
		EndTime:      ev.EndTime,
		CreateHeight: uint64(meta.Height),
	}).Error
}

func (c *ChainIndexer) handleEventVoted(tx *gorm.DB, event abci.Event, meta eventMeta) error {
	ev := types.DecodeEventVoted(event)
	if ev == nil {
		return errDecode
	}
	err := tx.Create(&Vote{
		Proposal: ev.ProposalId,
		Voter:    ev.Voter.Hex(),
		Support:  ev.Support,
		Weight:   ev.Weight,
		Height:   uint64(meta.Height),
	}).Error
	if err != nil {
		return err
	}
	column := "against_votes"
	if ev.Support {
		column = "for_votes"
	}
	return tx.Model(&Proposal{}).Where("proposal_id = ?", ev.ProposalId).
		UpdateColumn(column, gorm.Expr(column+" + ?", ev.Weight)).Error
}

func (c *ChainIndexer) handleEventProposalExecuted(tx *gorm.DB, event abci.Event, meta eventMeta) error {
	ev := types.DecodeEventProposalExecuted(event)
	if ev == nil {
		return errDecode
	}
	return tx.Model(&Proposal{}).Where("proposal_id = ?", ev.ProposalId).
		UpdateColumns(map[string]any{"executed": true, "executed_height": uint64(meta.Height)}).Error
}

func (c *ChainIndexer) handleEventProposalEndTimeUpdated(tx *gorm.DB, event abci.Event, meta eventMeta) error {
	ev := types.DecodeEventProposalEndTimeUpdated(event)
	if ev == nil {
		return errDecode
	}
	return tx.Model(&Proposal{}).Where("proposal_id = ?", ev.ProposalId).
		UpdateColumn("end_time", ev.NewEndTime).Error
}

// indexBlock writes every event of one block and the new height in a
// single transaction, so a failed block is retried from scratch.
func (c *ChainIndexer) indexBlock(ctx context.Context, height int64) (err error) {
	blk, err := c.src.Block(ctx, &height)
	if err != nil {
		return err
	}
	results, err := c.src.BlockResults(ctx, &height)
	if err != nil {
		return err
	}
	tx := c.db.Begin()
	if err = tx.Error; err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	for i, res := range results.TxsResults {
		if res.Code != abci.CodeTypeOK {
			continue
		}
		meta := eventMeta{Height: height}
		if i < len(blk.Block.Txs) {
			meta.TxHash = hexutil.Encode(blk.Block.Txs[i].Hash())
		}
		for _, event := range res.Events {
			if err = c.handleEvent(tx, event, meta); err != nil {
				return err
			}
		}
	}
	if err = tx.Save(&Height{Id: 1, Height: uint64(height)}).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}

// seedGenesis records the founder, who is admitted in InitChain and so
// never shows up in block results.
func (c *ChainIndexer) seedGenesis(ctx context.Context) error {
	gen, err := c.src.Genesis(ctx)
	if err != nil {
		return err
	}
	as, err := types.ParseAppState(gen.Genesis.AppState)
	if err != nil {
		return err
	}
	return c.db.Save(&Member{
		Address:    as.Founder.Hex(),
		MemberType: types.MemberTypeVoting,
	}).Error
}

// Sync indexes every block from c.Height up to the node's latest height.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	if c.src == nil {
		if c.dial == nil {
			return ErrSourceClosed
		}
		src, err := c.dial()
		if err != nil {
			return err
		}
		c.src = src
	}
	status, err := c.src.Status(ctx)
	if err != nil {
		c.src = nil
		return err
	}
	if c.Height == 1 {
		if err = c.seedGenesis(ctx); err != nil {
			return err
		}
	}
	for status.SyncInfo.LatestBlockHeight >= c.Height {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = c.indexBlock(ctx, c.Height); err != nil {
			c.logger.Error("index block fail", "height", c.Height, "err", err)
			return err
		}
		c.Height++
	}
	return nil
}

// Start polls the node until ctx is done, backing off exponentially while
// the node is unreachable.
func (c *ChainIndexer) Start(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	bo.MaxInterval = time.Minute
	wait := c.interval
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if err := c.Sync(ctx); err != nil {
			wait = bo.NextBackOff()
			c.logger.Error("indexer sync fail", "height", c.Height, "retry", wait, "err", err)
			continue
		}
		bo.Reset()
		wait = c.interval
	}
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}
