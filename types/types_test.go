package types

import (
	"encoding/json"
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposalCreatedKeepsAwkwardFields(t *testing.T) {
	ev := &EventProposalCreated{
		Id:          3,
		Proposer:    common.HexToAddress("0x01"),
		Targets:     []common.Address{common.HexToAddress("0x02"), common.HexToAddress("0x03")},
		Values:      []*uint256.Int{uint256.NewInt(0), uint256.NewInt(5)},
		Signatures:  []string{"transfer(address,uint256)", ""},
		Calldatas:   []hexutil.Bytes{{}, {0xab}},
		StartTime:   10,
		EndTime:     20,
		Description: "pay a, b and c",
	}
	decoded := DecodeEventProposalCreated(EncodeEventProposalCreated(ev))
	require.NotNil(t, decoded)
	assert.Equal(t, ev.Targets, decoded.Targets)
	assert.Equal(t, ev.Signatures, decoded.Signatures)
	require.Len(t, decoded.Calldatas, 2)
	assert.Empty(t, decoded.Calldatas[0])
	assert.Equal(t, hexutil.Bytes{0xab}, decoded.Calldatas[1])
	assert.Equal(t, uint64(5), decoded.Values[1].Uint64())
	assert.Equal(t, ev.Description, decoded.Description)
}

func TestProposalCreatedWithoutActions(t *testing.T) {
	ev := &EventProposalCreated{Id: 1, Description: "Test Proposal 1"}
	decoded := DecodeEventProposalCreated(EncodeEventProposalCreated(ev))
	require.NotNil(t, decoded)
	assert.Empty(t, decoded.Targets)
	assert.Empty(t, decoded.Values)
	assert.Empty(t, decoded.Signatures)
	assert.Empty(t, decoded.Calldatas)
}

func TestDecodeRejectsBadAttributes(t *testing.T) {
	bad := abci.Event{
		Type:       EventVotedType,
		Attributes: []abci.EventAttribute{{Key: "voter", Value: "not-an-address"}},
	}
	assert.Nil(t, DecodeEventVoted(bad))
	bad = abci.Event{
		Type:       EventPaymentReceivedType,
		Attributes: []abci.EventAttribute{{Key: "amount", Value: "-1"}},
	}
	assert.Nil(t, DecodeEventPaymentReceived(bad))
}

func TestAppStateDefaults(t *testing.T) {
	founder := common.HexToAddress("0xf0")
	raw, err := json.Marshal(map[string]any{"founder": founder, "voting_period": 60})
	require.NoError(t, err)
	as, err := ParseAppState(raw)
	require.NoError(t, err)
	assert.Equal(t, founder, as.Owner)
	assert.True(t, as.EntryFee.IsZero())
	assert.False(t, as.TransferOwnership)

	_, err = ParseAppState([]byte(`{"voting_period":60}`))
	assert.ErrorIs(t, err, ErrGenesisNoFounder)
	_, err = ParseAppState([]byte(`{"founder":"0x00000000000000000000000000000000000000f0"}`))
	assert.ErrorIs(t, err, ErrGenesisVotingPeriod)

	as = DefaultAppState(founder)
	as.CompanyIncomePercentage = MaxBasisPoints + 1
	assert.ErrorIs(t, as.ValidateAndComplete(), ErrGenesisInvalidPercentage)
}
