package contract

import (
	"fmt"
	"math/big"

	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// MaxCallDepth bounds nested contract calls within one transaction.
const MaxCallDepth = 8

const (
	MembershipName = "membership"
	PaymentName    = "payment"
	IncomeName     = "income"
	GovernanceName = "governance"
)

// ContractAddress derives the fixed address a built-in contract lives at.
func ContractAddress(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("guild/" + name))[12:])
}

type BlockContext struct {
	Height uint64
	Time   uint64
}

type Contract interface {
	Name() string
	Address() common.Address
	ABI() *abi.ABI
	// Receive handles a call that carries no input.
	Receive(env *Env) error
	Invoke(env *Env, method *abi.Method, args []any) ([]any, error)
}

type eventLog struct {
	events []abci.Event
}

// Env is the context of one contract frame.
type Env struct {
	BlockContext
	State  *state.State
	Caller common.Address
	Self   common.Address
	Value  *uint256.Int

	host  *Host
	depth int
	log   *eventLog
}

func (e *Env) Emit(ev abci.Event) {
	ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: types.AttrContract, Value: e.Self.Hex(), Index: true})
	e.log.events = append(e.log.events, ev)
}

// Call runs a nested call with Self as the caller.
func (e *Env) Call(to common.Address, value *uint256.Int, input []byte) ([]byte, error) {
	return e.host.call(e.State, e.BlockContext, e.log, e.Self, to, value, input, e.depth+1)
}

// View calls a read accessor of another contract and returns its
// decoded outputs.
func (e *Env) View(to common.Address, parsed *abi.ABI, method string, args ...any) (outs []any, err error) {
	input, err := parsed.Pack(method, args...)
	if err != nil {
		return
	}
	ret, err := e.Call(to, nil, input)
	if err != nil {
		return
	}
	return parsed.Unpack(method, ret)
}

type Host struct {
	logger    cmtlog.Logger
	contracts map[common.Address]Contract

	Membership *Membership
	Payment    *Payment
	Income     *Income
	Governance *Governance
}

// NewHost registers the four guild contracts at their fixed addresses.
func NewHost(logger cmtlog.Logger) (h *Host) {
	h = &Host{
		logger:    logger.With("module", "contract"),
		contracts: make(map[common.Address]Contract),
	}
	h.Membership = NewMembership(ContractAddress(MembershipName))
	h.Payment = NewPayment(ContractAddress(PaymentName))
	h.Income = NewIncome(ContractAddress(IncomeName))
	h.Governance = NewGovernance(ContractAddress(GovernanceName))
	h.Register(h.Membership)
	h.Register(h.Payment)
	h.Register(h.Income)
	h.Register(h.Governance)
	return
}

func (h *Host) Register(c Contract) {
	h.contracts[c.Address()] = c
}

func (h *Host) Contract(addr common.Address) (c Contract, ok bool) {
	c, ok = h.contracts[addr]
	return
}

func (h *Host) IsContract(addr common.Address) bool {
	_, ok := h.contracts[addr]
	return ok
}

// Call runs a top level call. On error every write and event of the
// call is discarded.
func (h *Host) Call(st *state.State, blk BlockContext, from, to common.Address, value *uint256.Int, input []byte) (ret []byte, events []abci.Event, err error) {
	log := new(eventLog)
	ret, err = h.call(st, blk, log, from, to, value, input, 0)
	if err != nil {
		h.logger.Debug("call reverted", "from", from, "to", to, "err", err)
		return nil, nil, err
	}
	return ret, log.events, nil
}

// Execute runs fn in the frame of the contract at to without going
// through the ABI. Genesis uses it to construct contracts.
func (h *Host) Execute(st *state.State, blk BlockContext, caller, to common.Address, fn func(env *Env) error) (events []abci.Event, err error) {
	log := new(eventLog)
	snap := st.Snapshot()
	env := &Env{BlockContext: blk, State: st, Caller: caller, Self: to, Value: new(uint256.Int), host: h, log: log}
	if err = fn(env); err != nil {
		st.RevertToSnapshot(snap)
		return nil, err
	}
	return log.events, nil
}

func (h *Host) decode(c Contract, input []byte) (method *abi.Method, args []any, err error) {
	method, err = c.ABI().MethodById(input)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnknownMethod, err)
	}
	args, err = method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrBadArgument, method.Name, err)
	}
	return
}

func (h *Host) call(st *state.State, blk BlockContext, log *eventLog, from, to common.Address, value *uint256.Int, input []byte, depth int) (ret []byte, err error) {
	if depth > MaxCallDepth {
		return nil, ErrCallDepth
	}
	if value == nil {
		value = new(uint256.Int)
	}
	snap := st.Snapshot()
	mark := len(log.events)
	defer func() {
		if err != nil {
			st.RevertToSnapshot(snap)
			log.events = log.events[:mark]
		}
	}()

	c, isContract := h.contracts[to]
	var method *abi.Method
	var args []any
	if isContract && len(input) > 0 {
		method, args, err = h.decode(c, input)
		if err != nil {
			return
		}
		if !value.IsZero() && !method.IsPayable() {
			err = fmt.Errorf("%w: %s", ErrNonPayable, method.Name)
			return
		}
	}
	if err = st.Transfer(from, to, value); err != nil {
		return
	}
	if !isContract {
		return
	}

	env := &Env{
		BlockContext: blk,
		State:        st,
		Caller:       from,
		Self:         to,
		Value:        value,
		host:         h,
		depth:        depth,
		log:          log,
	}
	if method == nil {
		err = c.Receive(env)
		return
	}
	outs, err := c.Invoke(env, method, args)
	if err != nil {
		return
	}
	return method.Outputs.Pack(outs...)
}

func toUint256(v any) (*uint256.Int, error) {
	b, ok := v.(*big.Int)
	if !ok || b == nil || b.Sign() < 0 {
		return nil, fmt.Errorf("%w: want uint256, got %T", ErrBadArgument, v)
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: uint256 overflow", ErrBadArgument)
	}
	return u, nil
}

func toUint64(v any) (uint64, error) {
	u, err := toUint256(v)
	if err != nil {
		return 0, err
	}
	if !u.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit in 64 bits", ErrBadArgument, u.Dec())
	}
	return u.Uint64(), nil
}

func toAddress(v any) (common.Address, error) {
	addr, ok := v.(common.Address)
	if !ok {
		return addr, fmt.Errorf("%w: want address, got %T", ErrBadArgument, v)
	}
	return addr, nil
}

func bigUint(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func addrKey(addr common.Address) string {
	return fmt.Sprintf("%x", addr.Bytes())
}

func getUint64(st *state.State, contract common.Address, key string) (uint64, error) {
	v, err := st.GetStorageUint(contract, key)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

func setUint64(st *state.State, contract common.Address, key string, v uint64) {
	st.SetStorageUint(contract, key, uint256.NewInt(v))
}

func getAddress(st *state.State, contract common.Address, key string) (addr common.Address, err error) {
	v, err := st.GetStorage(contract, key)
	if err != nil {
		return
	}
	return common.BytesToAddress(v), nil
}

func setAddress(st *state.State, contract common.Address, key string, addr common.Address) {
	if addr == (common.Address{}) {
		st.SetStorage(contract, key, nil)
		return
	}
	st.SetStorage(contract, key, addr.Bytes())
}
