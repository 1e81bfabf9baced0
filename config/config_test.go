package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLoadConfig(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig(home)
	cfg.App.VotingPeriod = 120
	cfg.App.IndexerListen = "127.0.0.1:9999"
	cfg.Consensus.TimeoutCommit *= 2
	WriteConfigFiles(cfg)

	loaded, err := LoadConfig(home)
	require.NoError(t, err)
	assert.Equal(t, home, loaded.RootDir)
	assert.Equal(t, home, loaded.App.Home)
	assert.Equal(t, uint64(120), loaded.App.VotingPeriod)
	assert.Equal(t, "127.0.0.1:9999", loaded.App.IndexerListen)
	assert.Equal(t, DefaultQueryPageSize, loaded.App.QueryPageSize)
	assert.Equal(t, cfg.Consensus.TimeoutCommit, loaded.Consensus.TimeoutCommit)
	assert.Equal(t, home+"/data/indexer.db", loaded.App.IndexerDBPath())
}

func TestLoadConfigWithoutAppFile(t *testing.T) {
	home := t.TempDir()
	WriteConfigFiles(DefaultConfig(home))
	require.NoError(t, os.Remove(AppConfigFile(home)))

	loaded, err := LoadConfig(home)
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(home), loaded.App)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestAppConfigValidate(t *testing.T) {
	c := DefaultAppConfig("/tmp/guild")
	require.NoError(t, c.ValidateBasic())
	c.QueryPageSize = 0
	assert.Error(t, c.ValidateBasic())
	c = DefaultAppConfig("/tmp/guild")
	c.VotingPeriod = 0
	assert.Error(t, c.ValidateBasic())
	c.IndexerDB = "/var/lib/guild.db"
	assert.Equal(t, "/var/lib/guild.db", c.IndexerDBPath())
}
