package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type GenesisState map[string]json.RawMessage

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for a CometBFT blockchain, in particular its validator set.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

const GuildModuleName = "guild"
const DefaultPower = 1000

const (
	DefaultVotingPeriod            = uint64(7 * 24 * 60 * 60)
	DefaultCompanyIncomePercentage = uint64(2000)
	MaxBasisPoints                 = uint64(10000)
)

var (
	ErrGenesisNoFounder         = errors.New("genesis app_state must name a founder")
	ErrGenesisVotingPeriod      = errors.New("genesis voting period must be positive")
	ErrGenesisInvalidPercentage = errors.New("genesis company income percentage out of range")
)

type GenesisBalance struct {
	Address common.Address `json:"address"`
	Amount  *uint256.Int   `json:"amount"`
}

// AppState is the app_state section of genesis.json. Contracts are
// deployed by Owner; when TransferOwnership is set the membership and
// income contracts are handed to governance right after deployment.
type AppState struct {
	Founder                 common.Address   `json:"founder"`
	Owner                   common.Address   `json:"owner"`
	VotingPeriod            uint64           `json:"voting_period"`
	CompanyIncomePercentage uint64           `json:"company_income_percentage"`
	EntryFee                *uint256.Int     `json:"entry_fee"`
	TransferOwnership       bool             `json:"transfer_ownership"`
	Balances                []GenesisBalance `json:"balances"`
}

func DefaultAppState(founder common.Address) *AppState {
	return &AppState{
		Founder:                 founder,
		Owner:                   founder,
		VotingPeriod:            DefaultVotingPeriod,
		CompanyIncomePercentage: DefaultCompanyIncomePercentage,
		EntryFee:                new(uint256.Int),
		TransferOwnership:       true,
		Balances:                []GenesisBalance{},
	}
}

func (as *AppState) ValidateAndComplete() error {
	if as.Founder == (common.Address{}) {
		return ErrGenesisNoFounder
	}
	if as.Owner == (common.Address{}) {
		as.Owner = as.Founder
	}
	if as.VotingPeriod == 0 {
		return ErrGenesisVotingPeriod
	}
	if as.CompanyIncomePercentage > MaxBasisPoints {
		return ErrGenesisInvalidPercentage
	}
	if as.EntryFee == nil {
		as.EntryFee = new(uint256.Int)
	}
	for i, b := range as.Balances {
		if b.Amount == nil {
			return fmt.Errorf("genesis balance %d has no amount", i)
		}
	}
	return nil
}

func ParseAppState(raw json.RawMessage) (as *AppState, err error) {
	as = new(AppState)
	if len(raw) == 0 {
		return nil, ErrGenesisNoFounder
	}
	if err = json.Unmarshal(raw, as); err != nil {
		return nil, fmt.Errorf("decode app_state: %w", err)
	}
	if err = as.ValidateAndComplete(); err != nil {
		return nil, err
	}
	return
}
