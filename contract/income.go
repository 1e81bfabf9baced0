package contract

import (
	"fmt"

	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	keyCompanyPct       = "companyPct"
	keyTotalReceived    = "totalReceived"
	keyTotalDistributed = "totalDistributed"
	keyPaymentContract  = "paymentContract"
)

// Income is the treasury. Its balance always equals TotalReceived minus
// TotalDistributed.
type Income struct {
	Ownable
	addr common.Address
}

func NewIncome(addr common.Address) *Income {
	return &Income{Ownable: Ownable{addr: addr}, addr: addr}
}

func (in *Income) Name() string            { return IncomeName }
func (in *Income) Address() common.Address { return in.addr }
func (in *Income) ABI() *abi.ABI           { return IncomeABI }

func (in *Income) Init(env *Env, pct uint64, payment common.Address) error {
	if pct > types.MaxBasisPoints {
		return fmt.Errorf("%w: %d", ErrInvalidPercentage, pct)
	}
	if err := in.setOwner(env, env.Caller); err != nil {
		return err
	}
	setUint64(env.State, in.addr, keyCompanyPct, pct)
	setAddress(env.State, in.addr, keyPaymentContract, payment)
	return nil
}

// Receive books inbound value, zero included; the host has already moved it.
func (in *Income) Receive(env *Env) error {
	total, err := in.TotalReceived(env.State)
	if err != nil {
		return err
	}
	total, overflow := new(uint256.Int).AddOverflow(total, env.Value)
	if overflow {
		return state.ErrBalanceOverflow
	}
	env.State.SetStorageUint(in.addr, keyTotalReceived, total)
	env.Emit(types.EncodeEventPaymentReceived(&types.EventPaymentReceived{From: env.Caller, Amount: env.Value.Clone()}))
	return nil
}

// DistributeIncomeForConsultant pays rate x units to the consultant; the
// rest stays in the treasury.
func (in *Income) DistributeIncomeForConsultant(env *Env, consultant common.Address, units *uint256.Int) error {
	if err := in.onlyOwner(env); err != nil {
		return err
	}
	payment, err := in.PaymentContract(env.State)
	if err != nil {
		return err
	}
	outs, err := env.View(payment, PaymentABI, "getConsultantRate", consultant)
	if err != nil {
		return err
	}
	rate, err := toUint256(outs[0])
	if err != nil {
		return err
	}
	payout, overflow := new(uint256.Int).MulOverflow(rate, units)
	if overflow {
		return fmt.Errorf("%w: rate %s x units %s", ErrPayoutOverflow, rate.Dec(), units.Dec())
	}
	bal, err := env.State.GetBalance(in.addr)
	if err != nil {
		return err
	}
	if payout.Gt(bal) {
		return fmt.Errorf("%w: payout %s, balance %s", ErrInsufficientBalance, payout.Dec(), bal.Dec())
	}

	distributed, err := in.TotalDistributed(env.State)
	if err != nil {
		return err
	}
	env.State.SetStorageUint(in.addr, keyTotalDistributed, new(uint256.Int).Add(distributed, payout))
	env.Emit(types.EncodeEventIncomeDistributed(&types.EventIncomeDistributed{
		Consultant: consultant,
		WorkUnits:  units.Clone(),
		Rate:       rate,
		Payout:     payout.Clone(),
	}))
	if _, err = env.Call(consultant, payout, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrPayoutFailed, err)
	}
	return nil
}

func (in *Income) SetCompanyIncomePercentage(env *Env, pct *uint256.Int) error {
	if err := in.onlyOwner(env); err != nil {
		return err
	}
	if !pct.IsUint64() || pct.Uint64() > types.MaxBasisPoints {
		return fmt.Errorf("%w: %s", ErrInvalidPercentage, pct.Dec())
	}
	old, err := in.GetCompanyIncomePercentage(env.State)
	if err != nil {
		return err
	}
	setUint64(env.State, in.addr, keyCompanyPct, pct.Uint64())
	env.Emit(types.EncodeEventCompanyIncomePercentageSet(&types.EventCompanyIncomePercentageSet{
		OldPercentage: old,
		NewPercentage: pct.Uint64(),
	}))
	return nil
}

func (in *Income) GetCompanyIncomePercentage(st *state.State) (uint64, error) {
	return getUint64(st, in.addr, keyCompanyPct)
}

func (in *Income) TotalReceived(st *state.State) (*uint256.Int, error) {
	return st.GetStorageUint(in.addr, keyTotalReceived)
}

func (in *Income) TotalDistributed(st *state.State) (*uint256.Int, error) {
	return st.GetStorageUint(in.addr, keyTotalDistributed)
}

func (in *Income) PaymentContract(st *state.State) (common.Address, error) {
	return getAddress(st, in.addr, keyPaymentContract)
}

func (in *Income) Invoke(env *Env, method *abi.Method, args []any) (outs []any, err error) {
	if outs, handled, err := in.invokeOwnable(env, method, args); handled {
		return outs, err
	}
	st := env.State
	switch method.Name {
	case "distributeIncomeForConsultant":
		consultant, err := toAddress(args[0])
		if err != nil {
			return nil, err
		}
		units, err := toUint256(args[1])
		if err != nil {
			return nil, err
		}
		return nil, in.DistributeIncomeForConsultant(env, consultant, units)
	case "setCompanyIncomePercentage":
		pct, err := toUint256(args[0])
		if err != nil {
			return nil, err
		}
		return nil, in.SetCompanyIncomePercentage(env, pct)
	case "getCompanyIncomePercentage":
		pct, err := in.GetCompanyIncomePercentage(st)
		return []any{bigUint(pct)}, err
	case "totalReceived":
		v, err := in.TotalReceived(st)
		if err != nil {
			return nil, err
		}
		return []any{v.ToBig()}, nil
	case "totalDistributed":
		v, err := in.TotalDistributed(st)
		if err != nil {
			return nil, err
		}
		return []any{v.ToBig()}, nil
	case "paymentContract":
		addr, err := in.PaymentContract(st)
		return []any{addr}, err
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method.Name)
}
