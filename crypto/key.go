package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrKeyExists = errors.New("key file already exists")

// Key is a secp256k1 account key stored as hex in a file.
type Key struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

func newKey(priv *ecdsa.PrivateKey) *Key {
	return &Key{privateKey: priv, address: crypto.PubkeyToAddress(priv.PublicKey)}
}

func LoadKey(keyFilePath string) (*Key, error) {
	priv, err := crypto.LoadECDSA(keyFilePath)
	if err != nil {
		return nil, fmt.Errorf("load key %v: %w", keyFilePath, err)
	}
	return newKey(priv), nil
}

// GenerateKey writes a fresh key to keyFilePath and refuses to overwrite.
func GenerateKey(keyFilePath string) (*Key, error) {
	if cmtos.FileExists(keyFilePath) {
		return nil, ErrKeyExists
	}
	if err := cmtos.EnsureDir(filepath.Dir(keyFilePath), 0o700); err != nil {
		return nil, err
	}
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err = crypto.SaveECDSA(keyFilePath, priv); err != nil {
		return nil, err
	}
	return newKey(priv), nil
}

func ImportKey(keyFilePath string, hexKey string) (*Key, error) {
	if cmtos.FileExists(keyFilePath) {
		return nil, ErrKeyExists
	}
	priv, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, err
	}
	if err = cmtos.EnsureDir(filepath.Dir(keyFilePath), 0o700); err != nil {
		return nil, err
	}
	if err = crypto.SaveECDSA(keyFilePath, priv); err != nil {
		return nil, err
	}
	return newKey(priv), nil
}

func LoadOrGenKey(keyFilePath string) (*Key, error) {
	if _, err := os.Stat(keyFilePath); err == nil {
		return LoadKey(keyFilePath)
	}
	return GenerateKey(keyFilePath)
}

func (k *Key) Address() common.Address {
	return k.address
}

func (k *Key) PrivateKey() *ecdsa.PrivateKey {
	return k.privateKey
}

func (k *Key) PublicKey() []byte {
	return crypto.CompressPubkey(&k.privateKey.PublicKey)
}
