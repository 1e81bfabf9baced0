package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

const (
	EventMemberAddedType                = "member_added"
	EventVotingMemberEntryFeeSetType    = "voting_member_entry_fee_set"
	EventConsultantRateSetType          = "consultant_rate_set"
	EventPaymentReceivedType            = "payment_received"
	EventIncomeDistributedType          = "income_distributed"
	EventCompanyIncomePercentageSetType = "company_income_percentage_set"
	EventProposalCreatedType            = "proposal_created"
	EventVotedType                      = "voted"
	EventProposalExecutedType           = "proposal_executed"
	EventProposalEndTimeUpdatedType     = "proposal_end_time_updated"
	EventOwnershipTransferredType       = "ownership_transferred"
)

// AttrContract is appended to every event by the emitting contract.
const AttrContract = "contract"

func EventContract(originEvent abci.Event) (addr common.Address, ok bool) {
	for _, v := range originEvent.Attributes {
		if v.Key == AttrContract && common.IsHexAddress(v.Value) {
			return common.HexToAddress(v.Value), true
		}
	}
	return
}

func parseAddress(s string) (addr common.Address, ok bool) {
	if !common.IsHexAddress(s) {
		return addr, false
	}
	return common.HexToAddress(s), true
}

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

type EventMemberAdded struct {
	Member     common.Address `json:"member"`
	MemberType uint8          `json:"memberType"`
}

func EncodeEventMemberAdded(event *EventMemberAdded) abci.Event {
	return abci.Event{
		Type: EventMemberAddedType,
		Attributes: []abci.EventAttribute{
			{Key: "member", Value: event.Member.Hex(), Index: true},
			{Key: "memberType", Value: fmt.Sprintf("%v", event.MemberType), Index: false},
		},
	}
}

func DecodeEventMemberAdded(originEvent abci.Event) *EventMemberAdded {
	event := &EventMemberAdded{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "member":
			addr, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.Member = addr
		case "memberType":
			tp, err := strconv.ParseUint(v.Value, 10, 8)
			if err != nil {
				return nil
			}
			event.MemberType = uint8(tp)
		}
	}
	return event
}

type EventVotingMemberEntryFeeSet struct {
	OldFee *uint256.Int `json:"oldFee"`
	NewFee *uint256.Int `json:"newFee"`
}

func EncodeEventVotingMemberEntryFeeSet(event *EventVotingMemberEntryFeeSet) abci.Event {
	return abci.Event{
		Type: EventVotingMemberEntryFeeSetType,
		Attributes: []abci.EventAttribute{
			{Key: "oldFee", Value: formatAmount(event.OldFee), Index: false},
			{Key: "newFee", Value: formatAmount(event.NewFee), Index: false},
		},
	}
}

func DecodeEventVotingMemberEntryFeeSet(originEvent abci.Event) *EventVotingMemberEntryFeeSet {
	event := &EventVotingMemberEntryFeeSet{}
	var err error
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "oldFee":
			event.OldFee, err = uint256.FromDecimal(v.Value)
			if err != nil {
				return nil
			}
		case "newFee":
			event.NewFee, err = uint256.FromDecimal(v.Value)
			if err != nil {
				return nil
			}
		}
	}
	return event
}

type EventConsultantRateSet struct {
	Consultant common.Address `json:"consultant"`
	Rate       *uint256.Int   `json:"rate"`
}

func EncodeEventConsultantRateSet(event *EventConsultantRateSet) abci.Event {
	return abci.Event{
		Type: EventConsultantRateSetType,
		Attributes: []abci.EventAttribute{
			{Key: "consultant", Value: event.Consultant.Hex(), Index: true},
			{Key: "rate", Value: formatAmount(event.Rate), Index: false},
		},
	}
}

func DecodeEventConsultantRateSet(originEvent abci.Event) *EventConsultantRateSet {
	event := &EventConsultantRateSet{}
	var err error
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "consultant":
			addr, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.Consultant = addr
		case "rate":
			event.Rate, err = uint256.FromDecimal(v.Value)
			if err != nil {
				return nil
			}
		}
	}
	return event
}

type EventPaymentReceived struct {
	From   common.Address `json:"from"`
	Amount *uint256.Int   `json:"amount"`
}

func EncodeEventPaymentReceived(event *EventPaymentReceived) abci.Event {
	return abci.Event{
		Type: EventPaymentReceivedType,
		Attributes: []abci.EventAttribute{
			{Key: "from", Value: event.From.Hex(), Index: true},
			{Key: "amount", Value: formatAmount(event.Amount), Index: false},
		},
	}
}

func DecodeEventPaymentReceived(originEvent abci.Event) *EventPaymentReceived {
	event := &EventPaymentReceived{}
	var err error
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "from":
			addr, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.From = addr
		case "amount":
			event.Amount, err = uint256.FromDecimal(v.Value)
			if err != nil {
				return nil
			}
		}
	}
	return event
}

type EventIncomeDistributed struct {
	Consultant common.Address `json:"consultant"`
	WorkUnits  *uint256.Int   `json:"workUnits"`
	Rate       *uint256.Int   `json:"rate"`
	Payout     *uint256.Int   `json:"payout"`
}

func EncodeEventIncomeDistributed(event *EventIncomeDistributed) abci.Event {
	return abci.Event{
		Type: EventIncomeDistributedType,
		Attributes: []abci.EventAttribute{
			{Key: "consultant", Value: event.Consultant.Hex(), Index: true},
			{Key: "workUnits", Value: formatAmount(event.WorkUnits), Index: false},
			{Key: "rate", Value: formatAmount(event.Rate), Index: false},
			{Key: "payout", Value: formatAmount(event.Payout), Index: false},
		},
	}
}

func DecodeEventIncomeDistributed(originEvent abci.Event) *EventIncomeDistributed {
	event := &EventIncomeDistributed{}
	var err error
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "consultant":
			addr, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.Consultant = addr
		case "workUnits":
			event.WorkUnits, err = uint256.FromDecimal(v.Value)
		case "rate":
			event.Rate, err = uint256.FromDecimal(v.Value)
		case "payout":
			event.Payout, err = uint256.FromDecimal(v.Value)
		}
		if err != nil {
			return nil
		}
	}
	return event
}

type EventCompanyIncomePercentageSet struct {
	OldPercentage uint64 `json:"oldPercentage"`
	NewPercentage uint64 `json:"newPercentage"`
}

func EncodeEventCompanyIncomePercentageSet(event *EventCompanyIncomePercentageSet) abci.Event {
	return abci.Event{
		Type: EventCompanyIncomePercentageSetType,
		Attributes: []abci.EventAttribute{
			{Key: "oldPercentage", Value: fmt.Sprintf("%v", event.OldPercentage), Index: false},
			{Key: "newPercentage", Value: fmt.Sprintf("%v", event.NewPercentage), Index: false},
		},
	}
}

func DecodeEventCompanyIncomePercentageSet(originEvent abci.Event) *EventCompanyIncomePercentageSet {
	event := &EventCompanyIncomePercentageSet{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "oldPercentage":
			pct, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.OldPercentage = pct
		case "newPercentage":
			pct, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.NewPercentage = pct
		}
	}
	return event
}

type EventProposalCreated struct {
	Id          uint64           `json:"id"`
	Proposer    common.Address   `json:"proposer"`
	Targets     []common.Address `json:"targets"`
	Values      []*uint256.Int   `json:"values"`
	Signatures  []string         `json:"signatures"`
	Calldatas   []hexutil.Bytes  `json:"calldatas"`
	StartTime   uint64           `json:"startTime"`
	EndTime     uint64           `json:"endTime"`
	Description string           `json:"description"`
}

func EncodeEventProposalCreated(event *EventProposalCreated) abci.Event {
	targets := make([]string, len(event.Targets))
	for i, t := range event.Targets {
		targets[i] = t.Hex()
	}
	values := make([]string, len(event.Values))
	for i, v := range event.Values {
		values[i] = formatAmount(v)
	}
	calldatas := make([]string, len(event.Calldatas))
	for i, c := range event.Calldatas {
		calldatas[i] = hexutil.Encode(c)
	}
	// signatures carry commas of their own
	sigs, _ := json.Marshal(event.Signatures)
	return abci.Event{
		Type: EventProposalCreatedType,
		Attributes: []abci.EventAttribute{
			{Key: "id", Value: fmt.Sprintf("%v", event.Id), Index: true},
			{Key: "proposer", Value: event.Proposer.Hex(), Index: true},
			{Key: "targets", Value: strings.Join(targets, ","), Index: false},
			{Key: "values", Value: strings.Join(values, ","), Index: false},
			{Key: "signatures", Value: string(sigs), Index: false},
			{Key: "calldatas", Value: strings.Join(calldatas, ","), Index: false},
			{Key: "startTime", Value: fmt.Sprintf("%v", event.StartTime), Index: false},
			{Key: "endTime", Value: fmt.Sprintf("%v", event.EndTime), Index: false},
			{Key: "description", Value: event.Description, Index: false},
		},
	}
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func DecodeEventProposalCreated(originEvent abci.Event) *EventProposalCreated {
	event := &EventProposalCreated{
		Targets:    []common.Address{},
		Values:     []*uint256.Int{},
		Signatures: []string{},
		Calldatas:  []hexutil.Bytes{},
	}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "id":
			id, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Id = id
		case "proposer":
			addr, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.Proposer = addr
		case "targets":
			for _, s := range splitList(v.Value) {
				addr, ok := parseAddress(s)
				if !ok {
					return nil
				}
				event.Targets = append(event.Targets, addr)
			}
		case "values":
			for _, s := range splitList(v.Value) {
				val, err := uint256.FromDecimal(s)
				if err != nil {
					return nil
				}
				event.Values = append(event.Values, val)
			}
		case "signatures":
			if err := json.Unmarshal([]byte(v.Value), &event.Signatures); err != nil {
				return nil
			}
		case "calldatas":
			for _, s := range splitList(v.Value) {
				dat, err := hexutil.Decode(s)
				if err != nil {
					return nil
				}
				event.Calldatas = append(event.Calldatas, dat)
			}
		case "startTime":
			t, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.StartTime = t
		case "endTime":
			t, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.EndTime = t
		case "description":
			event.Description = v.Value
		}
	}
	return event
}

type EventVoted struct {
	ProposalId uint64         `json:"proposalId"`
	Voter      common.Address `json:"voter"`
	Support    bool           `json:"support"`
	Weight     uint64         `json:"weight"`
}

func EncodeEventVoted(event *EventVoted) abci.Event {
	return abci.Event{
		Type: EventVotedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposalId", Value: fmt.Sprintf("%v", event.ProposalId), Index: true},
			{Key: "voter", Value: event.Voter.Hex(), Index: true},
			{Key: "support", Value: fmt.Sprintf("%v", event.Support), Index: false},
			{Key: "weight", Value: fmt.Sprintf("%v", event.Weight), Index: false},
		},
	}
}

func DecodeEventVoted(originEvent abci.Event) *EventVoted {
	event := &EventVoted{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposalId":
			id, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalId = id
		case "voter":
			addr, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.Voter = addr
		case "support":
			support, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Support = support
		case "weight":
			weight, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Weight = weight
		}
	}
	return event
}

type EventProposalExecuted struct {
	ProposalId uint64 `json:"proposalId"`
}

func EncodeEventProposalExecuted(event *EventProposalExecuted) abci.Event {
	return abci.Event{
		Type: EventProposalExecutedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposalId", Value: fmt.Sprintf("%v", event.ProposalId), Index: true},
		},
	}
}

func DecodeEventProposalExecuted(originEvent abci.Event) *EventProposalExecuted {
	event := &EventProposalExecuted{}
	for _, v := range originEvent.Attributes {
		if v.Key == "proposalId" {
			id, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.ProposalId = id
		}
	}
	return event
}

type EventProposalEndTimeUpdated struct {
	ProposalId uint64 `json:"proposalId"`
	OldEndTime uint64 `json:"oldEndTime"`
	NewEndTime uint64 `json:"newEndTime"`
}

func EncodeEventProposalEndTimeUpdated(event *EventProposalEndTimeUpdated) abci.Event {
	return abci.Event{
		Type: EventProposalEndTimeUpdatedType,
		Attributes: []abci.EventAttribute{
			{Key: "proposalId", Value: fmt.Sprintf("%v", event.ProposalId), Index: true},
			{Key: "oldEndTime", Value: fmt.Sprintf("%v", event.OldEndTime), Index: false},
			{Key: "newEndTime", Value: fmt.Sprintf("%v", event.NewEndTime), Index: false},
		},
	}
}

func DecodeEventProposalEndTimeUpdated(originEvent abci.Event) *EventProposalEndTimeUpdated {
	event := &EventProposalEndTimeUpdated{}
	for _, v := range originEvent.Attributes {
		var target *uint64
		switch v.Key {
		case "proposalId":
			target = &event.ProposalId
		case "oldEndTime":
			target = &event.OldEndTime
		case "newEndTime":
			target = &event.NewEndTime
		default:
			continue
		}
		n, err := strconv.ParseUint(v.Value, 10, 64)
		if err != nil {
			return nil
		}
		*target = n
	}
	return event
}

type EventOwnershipTransferred struct {
	PreviousOwner common.Address `json:"previousOwner"`
	NewOwner      common.Address `json:"newOwner"`
}

func EncodeEventOwnershipTransferred(event *EventOwnershipTransferred) abci.Event {
	return abci.Event{
		Type: EventOwnershipTransferredType,
		Attributes: []abci.EventAttribute{
			{Key: "previousOwner", Value: event.PreviousOwner.Hex(), Index: true},
			{Key: "newOwner", Value: event.NewOwner.Hex(), Index: true},
		},
	}
}

func DecodeEventOwnershipTransferred(originEvent abci.Event) *EventOwnershipTransferred {
	event := &EventOwnershipTransferred{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "previousOwner":
			addr, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.PreviousOwner = addr
		case "newOwner":
			addr, ok := parseAddress(v.Value)
			if !ok {
				return nil
			}
			event.NewOwner = addr
		}
	}
	return event
}
