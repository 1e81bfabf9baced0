package contract

import (
	"fmt"

	"github.com/calehh/guild-app/state"
	"github.com/calehh/guild-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
)

type genesisStep struct {
	c  Contract
	fn func(env *Env) error
}

// Genesis funds the genesis balances and constructs the four contracts
// as AppState.Owner. With TransferOwnership set, membership and income
// are then handed to governance.
func (h *Host) Genesis(st *state.State, blk BlockContext, as *types.AppState) (events []abci.Event, err error) {
	for _, b := range as.Balances {
		if h.IsContract(b.Address) {
			return nil, fmt.Errorf("%w: %s", ErrGenesisBalance, b.Address.Hex())
		}
		if err = st.AddBalance(b.Address, b.Amount); err != nil {
			return nil, err
		}
	}

	deployer := as.Owner
	steps := []genesisStep{
		{h.Payment, func(env *Env) error {
			return h.Payment.Init(env)
		}},
		{h.Income, func(env *Env) error {
			return h.Income.Init(env, as.CompanyIncomePercentage, h.Payment.Address())
		}},
		{h.Membership, func(env *Env) error {
			return h.Membership.Init(env, as.Founder, h.Income.Address(), as.EntryFee)
		}},
		{h.Governance, func(env *Env) error {
			return h.Governance.Init(env, h.Membership.Address(), h.Income.Address(), h.Payment.Address(), as.VotingPeriod)
		}},
	}
	if as.TransferOwnership {
		steps = append(steps,
			genesisStep{h.Membership, func(env *Env) error {
				return h.Membership.TransferOwnership(env, h.Governance.Address())
			}},
			genesisStep{h.Income, func(env *Env) error {
				return h.Income.TransferOwnership(env, h.Governance.Address())
			}},
		)
	}
	for _, step := range steps {
		evs, err := h.Execute(st, blk, deployer, step.c.Address(), step.fn)
		if err != nil {
			return nil, fmt.Errorf("genesis %s: %w", step.c.Name(), err)
		}
		events = append(events, evs...)
	}
	h.logger.Info("contracts deployed",
		"membership", h.Membership.Address(),
		"payment", h.Payment.Address(),
		"income", h.Income.Address(),
		"governance", h.Governance.Address(),
		"bootstrap", as.TransferOwnership)
	return
}
