package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/calehh/guild-app/config"
	"github.com/calehh/guild-app/crypto"
	"github.com/calehh/guild-app/types"
	cmtos "github.com/cometbft/cometbft/libs/os"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type printInfo struct {
	ChainID    string          `json:"chain_id" yaml:"chain_id"`
	NodeID     string          `json:"node_id" yaml:"node_id"`
	Home       string          `json:"home" yaml:"home"`
	AppMessage json.RawMessage `json:"app_message" yaml:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)

	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize private validator, p2p, genesis, and application configuration files",
	Long: `Initialize validators's and node's configuration files. The founder is
admitted as the first voting member and deploys the contracts; without
--founder a key file is generated and its address is used.`,
	Args: cobra.NoArgs,
	RunE: initRun,
}

func init() {
	initCmd.Flags().BoolP(types.FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(types.FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().StringP(types.FlagHome, "d", "", "home directory (default "+config.DefaultHomeDir+")")
	initCmd.Flags().String(types.FlagFounder, "", "founder address")
	initCmd.Flags().Uint64("voting-period", types.DefaultVotingPeriod, "voting period in seconds")
	initCmd.Flags().Uint64("company-income-percentage", types.DefaultCompanyIncomePercentage, "company share of distributions in basis points")
	initCmd.Flags().Bool("keep-ownership", false, "leave membership and income owned by the founder instead of governance")
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(types.FlagHome)
	chainID, _ := cmd.Flags().GetString(types.FlagChainID)
	overwrite, _ := cmd.Flags().GetBool(types.FlagOverwrite)
	founderHex, _ := cmd.Flags().GetString(types.FlagFounder)
	votingPeriod, _ := cmd.Flags().GetUint64("voting-period")
	pct, _ := cmd.Flags().GetUint64("company-income-percentage")
	keepOwnership, _ := cmd.Flags().GetBool("keep-ownership")

	if chainID == "" {
		chainID = fmt.Sprintf("guild-chain-%v", rand.Uint64())
	}
	cfg := config.DefaultConfig(home)
	cfg.App.VotingPeriod = votingPeriod

	genFile := cfg.GenesisFile()
	if !overwrite && cmtos.FileExists(genFile) {
		return fmt.Errorf("genesis.json file already exists: %v", genFile)
	}

	var founder common.Address
	if founderHex != "" {
		addr, err := parseAddress(founderHex)
		if err != nil {
			return err
		}
		founder = addr
	} else {
		key, err := crypto.LoadOrGenKey(cfg.App.KeyFile())
		if err != nil {
			return err
		}
		founder = key.Address()
	}

	nodeID, pk, err := config.InitializeNodeValidatorFiles(cfg, nil)
	if err != nil {
		return err
	}
	vals := []types.GenesisValidator{{Address: pk.Address(), PubKey: pk, Power: types.DefaultPower}}

	as := types.DefaultAppState(founder)
	as.VotingPeriod = votingPeriod
	as.CompanyIncomePercentage = pct
	as.TransferOwnership = !keepOwnership
	if err = as.ValidateAndComplete(); err != nil {
		return err
	}
	appState, err := json.Marshal(as)
	if err != nil {
		return err
	}

	appGenesis := &types.GenesisDoc{
		GenesisTime:     time.Now(),
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators:      vals,
		AppState:        appState,
	}
	if err = types.ExportGenesisFile(appGenesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %w", err)
	}
	config.WriteConfigFiles(cfg)
	return displayInfo(printInfo{ChainID: chainID, NodeID: nodeID, Home: cfg.RootDir, AppMessage: appState})
}
