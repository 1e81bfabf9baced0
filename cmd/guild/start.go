package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calehh/guild-app/app"
	"github.com/calehh/guild-app/config"
	"github.com/calehh/guild-app/indexer"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	"github.com/spf13/cobra"
)

type startArguments struct {
	Home      string
	NoIndexer bool
}

var startArgs startArguments

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the guild node",
	Long:  `Run the CometBFT node with the guild application and, unless disabled, the event indexer and its HTTP service.`,
	Args:  cobra.NoArgs,
	RunE:  startRun,
}

func init() {
	homeFlag(startCmd, &startArgs.Home)
	startCmd.Flags().BoolVar(&startArgs.NoIndexer, "no-indexer", false, "do not run the event indexer")
}

func newLogger(level string) (cmtlog.Logger, error) {
	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err := cmtflags.ParseLogLevel(level, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	return logger, nil
}

// localRPC turns the node's rpc.laddr into an http url.
func localRPC(laddr string) (string, error) {
	rpcUrl, err := url.Parse(laddr)
	if err != nil {
		return "", err
	}
	rpcUrl.Scheme = "http"
	return rpcUrl.String(), nil
}

func startRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(startArgs.Home)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	pv := privval.LoadFilePV(
		cfg.PrivValidatorKeyFile(),
		cfg.PrivValidatorStateFile(),
	)
	nodeKey, err := p2p.LoadNodeKey(cfg.NodeKeyFile())
	if err != nil {
		return fmt.Errorf("failed to load node's key: %w", err)
	}

	guild, err := app.NewGuildApp(cfg.App, logger)
	if err != nil {
		return fmt.Errorf("new app: %w", err)
	}

	node, err := nm.NewNode(
		cfg.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(guild),
		nm.DefaultGenesisDocProviderFunc(cfg.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(cfg.Instrumentation),
		logger,
	)
	if err != nil {
		guild.Stop()
		return fmt.Errorf("creating node: %w", err)
	}

	guild.Start(node.BlockStore())
	if err = node.Start(); err != nil {
		guild.Stop()
		return fmt.Errorf("start comet node: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var idx *indexer.ChainIndexer
	if !startArgs.NoIndexer {
		idx, err = startIndexer(ctx, cfg, logger)
		if err != nil {
			logger.Error("indexer disabled", "err", err)
		}
	}

	defer func() {
		logger.Info("shut down...")
		done := make(chan struct{})
		go func() {
			defer close(done)
			cancel()
			if err := node.Stop(); err != nil {
				logger.Error("stop comet node", "err", err)
			}
			node.Wait()
			guild.Stop()
			if idx != nil {
				idx.Close()
			}
		}()
		timer := time.NewTimer(time.Second * 10)
		select {
		case <-timer.C:
			os.Exit(1)
		case <-done:
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	return nil
}

// startIndexer runs the indexer against IndexerRPC, or the local node
// when unset, and serves its HTTP API on IndexerListen.
func startIndexer(ctx context.Context, cfg *config.Config, logger cmtlog.Logger) (*indexer.ChainIndexer, error) {
	rpc := cfg.App.IndexerRPC
	if rpc == "" {
		local, err := localRPC(cfg.RPC.ListenAddress)
		if err != nil {
			return nil, err
		}
		rpc = local
	}
	db, err := indexer.OpenDB(cfg.App.IndexerDBPath())
	if err != nil {
		return nil, err
	}
	idx, err := indexer.NewChainIndexer(logger, db, indexer.HTTPDialer(rpc))
	if err != nil {
		db.Close()
		return nil, err
	}
	go idx.Start(ctx)
	if cfg.App.IndexerListen != "" {
		svc := indexer.NewService(cfg.App.IndexerListen, idx, cfg.App.QueryPageSize)
		go func() {
			if err := svc.Start(); err != nil {
				logger.Error("indexer service stopped", "err", err)
			}
		}()
	}
	return idx, nil
}

type indexerArguments struct {
	Home   string
	RPC    string
	DB     string
	Listen string
}

var indexerArgs indexerArguments

var indexerCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Run the event indexer and its HTTP service against a remote node",
	Args:  cobra.NoArgs,
	RunE:  indexerRun,
}

func init() {
	homeFlag(indexerCmd, &indexerArgs.Home)
	indexerCmd.Flags().StringVar(&indexerArgs.RPC, "rpc", defaultNodeUrl, "node rpc url to follow")
	indexerCmd.Flags().StringVar(&indexerArgs.DB, "db", "", "sqlite database path (default <home>/data/indexer.db)")
	indexerCmd.Flags().StringVar(&indexerArgs.Listen, "listen", config.DefaultIndexerListen, "http listen address")
}

func indexerRun(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig(indexerArgs.Home)
	if indexerArgs.DB != "" {
		cfg.App.IndexerDB = indexerArgs.DB
	}
	cfg.App.IndexerRPC = indexerArgs.RPC
	cfg.App.IndexerListen = indexerArgs.Listen
	if err := os.MkdirAll(cfg.App.DataDir(), config.DefaultDirPerm); err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	idx, err := startIndexer(ctx, cfg, logger)
	if err != nil {
		cancel()
		return err
	}
	defer func() {
		cancel()
		idx.Close()
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	return nil
}
