package contract

import (
	"fmt"

	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const keyOwner = "owner"

// Ownable gives a contract a single privileged caller.
type Ownable struct {
	addr common.Address
}

func (o *Ownable) Owner(st *state.State) (common.Address, error) {
	return getAddress(st, o.addr, keyOwner)
}

func (o *Ownable) onlyOwner(env *Env) error {
	owner, err := o.Owner(env.State)
	if err != nil {
		return err
	}
	if env.Caller != owner {
		return fmt.Errorf("%w(%s)", ErrNotPrivilegedCaller, env.Caller.Hex())
	}
	return nil
}

func (o *Ownable) setOwner(env *Env, newOwner common.Address) error {
	prev, err := o.Owner(env.State)
	if err != nil {
		return err
	}
	setAddress(env.State, o.addr, keyOwner, newOwner)
	env.Emit(types.EncodeEventOwnershipTransferred(&types.EventOwnershipTransferred{
		PreviousOwner: prev,
		NewOwner:      newOwner,
	}))
	return nil
}

func (o *Ownable) TransferOwnership(env *Env, newOwner common.Address) error {
	if err := o.onlyOwner(env); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w(%s)", ErrZeroAddress, newOwner.Hex())
	}
	return o.setOwner(env, newOwner)
}

// invokeOwnable serves owner and transferOwnership for the embedding
// contract; handled is false for every other method.
func (o *Ownable) invokeOwnable(env *Env, method *abi.Method, args []any) (outs []any, handled bool, err error) {
	switch method.Name {
	case "owner":
		owner, err := o.Owner(env.State)
		return []any{owner}, true, err
	case "transferOwnership":
		newOwner, err := toAddress(args[0])
		if err != nil {
			return nil, true, err
		}
		return nil, true, o.TransferOwnership(env, newOwner)
	}
	return nil, false, nil
}
