package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/guild-app/types"
	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
)

const (
	DefaultHomeDir       = "$HOME/.guild"
	DefaultIndexerListen = "127.0.0.1:8088"
	DefaultQueryPageSize = 50
	DefaultKeyFileName   = "owner_key"
)

type AppConfig struct {
	Home          string `mapstructure:"-"`
	VotingPeriod  uint64 `mapstructure:"voting_period"`
	IndexerDB     string `mapstructure:"indexer_db"`
	IndexerListen string `mapstructure:"indexer_listen"`
	IndexerRPC    string `mapstructure:"indexer_rpc"`
	QueryPageSize int    `mapstructure:"query_page_size"`
}

func DefaultAppConfig(home string) *AppConfig {
	return &AppConfig{
		Home:          home,
		VotingPeriod:  types.DefaultVotingPeriod,
		IndexerDB:     "data/indexer.db",
		IndexerListen: DefaultIndexerListen,
		QueryPageSize: DefaultQueryPageSize,
	}
}

// DataDir is where the state tree lives.
func (c *AppConfig) DataDir() string {
	return filepath.Join(c.Home, "data")
}

// IndexerDBPath resolves IndexerDB against the home directory.
func (c *AppConfig) IndexerDBPath() string {
	if filepath.IsAbs(c.IndexerDB) {
		return c.IndexerDB
	}
	return filepath.Join(c.Home, c.IndexerDB)
}

func (c *AppConfig) KeyFile() string {
	return filepath.Join(c.Home, "config", DefaultKeyFileName)
}

func (c *AppConfig) ValidateBasic() error {
	if c.VotingPeriod == 0 {
		return types.ErrGenesisVotingPeriod
	}
	if c.QueryPageSize <= 0 {
		return fmt.Errorf("query_page_size must be positive, got %d", c.QueryPageSize)
	}
	return nil
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *AppConfig `mapstructure:"app"`
}

func ExpandHome(home string) string {
	if len(home) == 0 {
		home = DefaultHomeDir
	}
	return os.ExpandEnv(home)
}

func DefaultConfig(home string) *Config {
	home = ExpandHome(home)
	cfg := &Config{
		DefaultGuildCometConfig(),
		DefaultAppConfig(home),
	}
	cfg.SetRoot(home)
	return cfg
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	return c.App.ValidateBasic()
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

// DefaultGuildCometConfig shortens the commit timeout so block time,
// which is the contract clock, advances about once a second.
func DefaultGuildCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1000
	cometConfig.Instrumentation.Namespace = "guild"
	return cometConfig
}
