package tx

import (
	"errors"
)

type GuildTxType uint8

const (
	GuildTxTypeUnknown  GuildTxType = 0
	GuildTxTypeCall     GuildTxType = 1
	GuildTxTypeTransfer GuildTxType = 2
)

func (t GuildTxType) String() string {
	switch t {
	case GuildTxTypeCall:
		return "call"
	case GuildTxTypeTransfer:
		return "transfer"
	}
	return "unknown"
}

const (
	GuildTxVersion0 uint8 = 0
	GuildTxVersion1 uint8 = 1
)

// MaxTxDataLen bounds calldata carried by a single call tx.
const MaxTxDataLen = 64 * 1024

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrTxSigInvalid         = errors.New("signature invalid")
	ErrTxSenderMismatch     = errors.New("signer does not match sender")
	ErrTxDataTooLarge       = errors.New("tx data too large")
)
