package main

import (
	"github.com/calehh/guild-app/crypto"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type keygenArguments struct {
	Key    string
	Import string
	Show   bool
	Output string
}

var keygenArgs keygenArguments

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate, import or show the account key",
	Args:  cobra.NoArgs,
	RunE:  keygenRun,
}

func init() {
	keyFlag(keygenCmd, &keygenArgs.Key)
	outputFlag(keygenCmd, &keygenArgs.Output)
	keygenCmd.Flags().StringVar(&keygenArgs.Import, "import", "", "hex private key to import")
	keygenCmd.Flags().BoolVar(&keygenArgs.Show, "show", false, "print the address of an existing key")
}

type keyInfo struct {
	Address common.Address `json:"address" yaml:"address"`
	PubKey  string         `json:"pubkey" yaml:"pubkey"`
	File    string         `json:"file" yaml:"file"`
}

func keygenRun(cmd *cobra.Command, args []string) error {
	path := keyPath(keygenArgs.Key)
	var (
		key *crypto.Key
		err error
	)
	switch {
	case keygenArgs.Show:
		key, err = crypto.LoadKey(path)
	case keygenArgs.Import != "":
		key, err = crypto.ImportKey(path, keygenArgs.Import)
	default:
		key, err = crypto.GenerateKey(path)
	}
	if err != nil {
		return err
	}
	return writeOutput(keygenArgs.Output, &keyInfo{
		Address: key.Address(),
		PubKey:  common.Bytes2Hex(key.PublicKey()),
		File:    path,
	})
}
