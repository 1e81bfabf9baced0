package main

import (
	"github.com/calehh/guild-app/config"
	"github.com/calehh/guild-app/types"
	"github.com/spf13/cobra"
)

const defaultNodeUrl = "http://127.0.0.1:26657"

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, "url", "u", defaultNodeUrl, "guild node rpc url")
}

func homeFlag(cmd *cobra.Command, home *string) {
	cmd.Flags().StringVarP(home, types.FlagHome, "d", "", "home directory (default "+config.DefaultHomeDir+")")
}

func keyFlag(cmd *cobra.Command, key *string) {
	cmd.Flags().StringVarP(key, "key", "k", "", "account key file (default <home>/config/"+config.DefaultKeyFileName+")")
}

func outputFlag(cmd *cobra.Command, output *string) {
	cmd.Flags().StringVarP(output, types.FlagOutput, "o", outputYAML, "output format, yaml or json")
}

// txFlags are shared by every command that signs and broadcasts a tx.
type txFlags struct {
	Url     string
	Key     string
	Nonce   int64
	Propose string
	Output  string
}

func (f *txFlags) register(cmd *cobra.Command) {
	urlFlag(cmd, &f.Url)
	keyFlag(cmd, &f.Key)
	outputFlag(cmd, &f.Output)
	cmd.Flags().Int64VarP(&f.Nonce, "nonce", "n", -1, "account nonce, queried from the node when negative")
}

// proposable marks owner only commands that can go through governance instead.
func (f *txFlags) proposable(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Propose, "propose", "", "create a governance proposal with this description instead of calling directly")
}

// keyPath resolves the key file, falling back to the default home.
func keyPath(key string) string {
	if key != "" {
		return key
	}
	return config.DefaultAppConfig(config.ExpandHome("")).KeyFile()
}
