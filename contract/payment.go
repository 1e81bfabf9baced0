package contract

import (
	"fmt"

	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const keyRate = "rate/%s"

// Payment is the per consultant rate table read by Income.
type Payment struct {
	Ownable
	addr common.Address
}

func NewPayment(addr common.Address) *Payment {
	return &Payment{Ownable: Ownable{addr: addr}, addr: addr}
}

func (p *Payment) Name() string            { return PaymentName }
func (p *Payment) Address() common.Address { return p.addr }
func (p *Payment) ABI() *abi.ABI           { return PaymentABI }

func (p *Payment) Receive(env *Env) error {
	return ErrNoReceive
}

func (p *Payment) Init(env *Env) error {
	return p.setOwner(env, env.Caller)
}

func (p *Payment) SetConsultantRate(env *Env, consultant common.Address, rate *uint256.Int) error {
	if err := p.onlyOwner(env); err != nil {
		return err
	}
	env.State.SetStorageUint(p.addr, fmt.Sprintf(keyRate, addrKey(consultant)), rate)
	env.Emit(types.EncodeEventConsultantRateSet(&types.EventConsultantRateSet{Consultant: consultant, Rate: rate.Clone()}))
	return nil
}

// GetConsultantRate is zero for consultants never rated.
func (p *Payment) GetConsultantRate(st *state.State, consultant common.Address) (*uint256.Int, error) {
	return st.GetStorageUint(p.addr, fmt.Sprintf(keyRate, addrKey(consultant)))
}

func (p *Payment) Invoke(env *Env, method *abi.Method, args []any) (outs []any, err error) {
	if outs, handled, err := p.invokeOwnable(env, method, args); handled {
		return outs, err
	}
	switch method.Name {
	case "setConsultantRate":
		consultant, err := toAddress(args[0])
		if err != nil {
			return nil, err
		}
		rate, err := toUint256(args[1])
		if err != nil {
			return nil, err
		}
		return nil, p.SetConsultantRate(env, consultant, rate)
	case "getConsultantRate":
		consultant, err := toAddress(args[0])
		if err != nil {
			return nil, err
		}
		rate, err := p.GetConsultantRate(env.State, consultant)
		if err != nil {
			return nil, err
		}
		return []any{rate.ToBig()}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method.Name)
}
