package tx

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

type GuildTx struct {
	Version uint8          `json:"version"`
	Type    GuildTxType    `json:"type"`
	Nonce   uint64         `json:"nonce"`
	From    common.Address `json:"from"`
	Tx      any            `json:"tx"`
	Sig     hexutil.Bytes  `json:"sig"`
}

// CallTx sends Value to To and, when To is a contract, invokes it with
// the ABI encoded Data.
type CallTx struct {
	To    common.Address `json:"to"`
	Value *uint256.Int   `json:"value"`
	Data  hexutil.Bytes  `json:"data"`
}

type TransferTx struct {
	To     common.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

type guildTxTmpl[Tx any] struct {
	Version uint8          `json:"version"`
	Type    GuildTxType    `json:"type"`
	Nonce   uint64         `json:"nonce"`
	From    common.Address `json:"from"`
	Tx      Tx             `json:"tx"`
	Sig     hexutil.Bytes  `json:"sig"`
}

func NewCallTx(from common.Address, nonce uint64, to common.Address, value *uint256.Int, data []byte) *GuildTx {
	if value == nil {
		value = new(uint256.Int)
	}
	return &GuildTx{
		Version: GuildTxVersion1,
		Type:    GuildTxTypeCall,
		Nonce:   nonce,
		From:    from,
		Tx:      &CallTx{To: to, Value: value, Data: data},
	}
}

func NewTransferTx(from common.Address, nonce uint64, to common.Address, amount *uint256.Int) *GuildTx {
	return &GuildTx{
		Version: GuildTxVersion1,
		Type:    GuildTxTypeTransfer,
		Nonce:   nonce,
		From:    from,
		Tx:      &TransferTx{To: to, Amount: amount},
	}
}

// SigData is the payload covered by the signature. The chain id takes
// the place of the signature so a tx cannot be replayed on another chain.
func (tx *GuildTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = ext
	dat, err = json.Marshal(ntx)
	return
}

func (tx *GuildTx) SigHash(chainId string) (h common.Hash, err error) {
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return
	}
	h = crypto.Keccak256Hash(dat)
	return
}

func (tx *GuildTx) Sign(key *ecdsa.PrivateKey, chainId string) (err error) {
	h, err := tx.SigHash(chainId)
	if err != nil {
		return
	}
	sig, err := crypto.Sign(h[:], key)
	if err != nil {
		return
	}
	tx.Sig = sig
	return
}

// Sender recovers the signer and checks it against From.
func (tx *GuildTx) Sender(chainId string) (addr common.Address, err error) {
	if len(tx.Sig) != crypto.SignatureLength {
		return addr, ErrTxSigInvalid
	}
	h, err := tx.SigHash(chainId)
	if err != nil {
		return
	}
	pub, err := crypto.SigToPub(h[:], tx.Sig)
	if err != nil {
		return addr, fmt.Errorf("%w: %v", ErrTxSigInvalid, err)
	}
	addr = crypto.PubkeyToAddress(*pub)
	if addr != tx.From {
		return addr, ErrTxSenderMismatch
	}
	return
}

func (tx *GuildTx) Hash() (h common.Hash, err error) {
	dat, err := MarshalGuildTx(tx)
	if err != nil {
		return
	}
	return crypto.Keccak256Hash(dat), nil
}

func (tx *GuildTx) ValidateBasic() error {
	if tx.Version != GuildTxVersion1 {
		return ErrUnsupportedTxVersion
	}
	switch stx := tx.Tx.(type) {
	case *CallTx:
		if len(stx.Data) > MaxTxDataLen {
			return ErrTxDataTooLarge
		}
		if stx.Value == nil {
			stx.Value = new(uint256.Int)
		}
	case *TransferTx:
		if stx.Amount == nil || stx.Amount.IsZero() {
			return fmt.Errorf("%w: transfer amount must be positive", ErrInvalidTx)
		}
	default:
		return ErrUnsupportedTxType
	}
	return nil
}

func parseGuildTxType(dat []byte) GuildTxType {
	var tx struct {
		Type GuildTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return GuildTxTypeUnknown
	}
	return tx.Type
}

func unmarshalGuildTx[Tx any](dat []byte) (btx *GuildTx, err error) {
	var txt guildTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	btx = new(GuildTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.From = txt.From
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalGuildTx(dat []byte) (btx *GuildTx, err error) {
	tp := parseGuildTxType(dat)
	switch tp {
	case GuildTxTypeCall:
		btx, err = unmarshalGuildTx[CallTx](dat)
	case GuildTxTypeTransfer:
		btx, err = unmarshalGuildTx[TransferTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	if err != nil {
		return nil, err
	}
	if err = btx.ValidateBasic(); err != nil {
		return nil, err
	}
	return
}

func MarshalGuildTx(btx *GuildTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
