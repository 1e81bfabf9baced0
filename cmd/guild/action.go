package main

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/calehh/guild-app/contract"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

var ErrBadAction = errors.New("bad proposal action")

// proposalAction is one target/value/signature/calldata entry of a proposal.
type proposalAction struct {
	Target    common.Address
	Value     *uint256.Int
	Signature string
	Calldata  []byte
}

// resolveTarget accepts a built-in contract name or a hex address.
func resolveTarget(s string) (common.Address, error) {
	switch s {
	case contract.MembershipName, contract.PaymentName, contract.IncomeName, contract.GovernanceName:
		return contract.ContractAddress(s), nil
	}
	return parseAddress(s)
}

// parseAction reads "target|signature|args|value". With a signature, args
// are comma separated and encoded against its parameter types. Without
// one, args is the 0x prefixed raw calldata. value may be omitted.
func parseAction(s string) (*proposalAction, error) {
	parts := strings.Split(s, "|")
	if len(parts) < 2 || len(parts) > 4 {
		return nil, fmt.Errorf("%w: %q", ErrBadAction, s)
	}
	target, err := resolveTarget(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, err
	}
	act := &proposalAction{Target: target, Value: new(uint256.Int), Signature: strings.TrimSpace(parts[1])}
	var args string
	if len(parts) > 2 {
		args = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		if act.Value, err = parseAmount(strings.TrimSpace(parts[3])); err != nil {
			return nil, err
		}
	}
	if act.Signature == "" {
		if args == "" {
			return act, nil
		}
		if act.Calldata, err = hexutil.Decode(args); err != nil {
			return nil, fmt.Errorf("%w: raw calldata: %v", ErrBadAction, err)
		}
		return act, nil
	}
	act.Calldata, err = encodeArgs(act.Signature, args)
	if err != nil {
		return nil, err
	}
	return act, nil
}

func signatureTypes(sig string) ([]string, error) {
	open := strings.IndexByte(sig, '(')
	if open <= 0 || !strings.HasSuffix(sig, ")") {
		return nil, fmt.Errorf("%w: signature %q", ErrBadAction, sig)
	}
	inner := sig[open+1 : len(sig)-1]
	if inner == "" {
		return nil, nil
	}
	return strings.Split(inner, ","), nil
}

// encodeArgs abi encodes the comma separated args for the signature's
// parameter list, without the selector.
func encodeArgs(sig string, args string) ([]byte, error) {
	typs, err := signatureTypes(sig)
	if err != nil {
		return nil, err
	}
	var vals []string
	if args != "" {
		vals = strings.Split(args, ",")
	}
	if len(vals) != len(typs) {
		return nil, fmt.Errorf("%w: %s takes %d args, got %d", ErrBadAction, sig, len(typs), len(vals))
	}
	arguments := make(abi.Arguments, len(typs))
	values := make([]any, len(typs))
	for i, t := range typs {
		ty, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadAction, err)
		}
		arguments[i] = abi.Argument{Type: ty}
		if values[i], err = parseArg(t, strings.TrimSpace(vals[i])); err != nil {
			return nil, err
		}
	}
	return arguments.Pack(values...)
}

func parseArg(typ string, s string) (any, error) {
	switch typ {
	case "address":
		return parseAddress(s)
	case "bool":
		return strconv.ParseBool(s)
	case "string":
		return s, nil
	case "bytes":
		return hexutil.Decode(s)
	case "uint8":
		v, err := strconv.ParseUint(s, 10, 8)
		return uint8(v), err
	case "uint64":
		return strconv.ParseUint(s, 10, 64)
	case "uint256", "int256":
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("%w: bad integer %q", ErrBadAction, s)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: unsupported type %s", ErrBadAction, typ)
}

// createProposalData packs a createProposal call for the actions.
func createProposalData(acts []*proposalAction, description string) ([]byte, error) {
	targets := make([]common.Address, len(acts))
	values := make([]*big.Int, len(acts))
	sigs := make([]string, len(acts))
	calldatas := make([][]byte, len(acts))
	for i, act := range acts {
		targets[i] = act.Target
		values[i] = act.Value.ToBig()
		sigs[i] = act.Signature
		calldatas[i] = act.Calldata
	}
	return contract.GovernanceABI.Pack("createProposal", targets, values, sigs, calldatas, description)
}

// ownerCall is a call to an owner only method, sent either directly or
// wrapped in a governance proposal.
func ownerCall(parsed *abi.ABI, target common.Address, propose string, method string, args ...any) (to common.Address, data []byte, err error) {
	if propose == "" {
		data, err = parsed.Pack(method, args...)
		return target, data, err
	}
	m, ok := parsed.Methods[method]
	if !ok {
		return to, nil, fmt.Errorf("%w: no method %s", ErrBadAction, method)
	}
	calldata, err := m.Inputs.Pack(args...)
	if err != nil {
		return
	}
	act := &proposalAction{Target: target, Value: new(uint256.Int), Signature: m.Sig, Calldata: calldata}
	data, err = createProposalData([]*proposalAction{act}, propose)
	return contract.ContractAddress(contract.GovernanceName), data, err
}

// abiUint formats an unpacked uint256 output.
func abiUint(v any) string {
	if b, ok := v.(*big.Int); ok {
		return b.String()
	}
	return fmt.Sprint(v)
}
