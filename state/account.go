package state

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

type Account struct {
	Address common.Address
	Nonce   uint64
	Balance *uint256.Int
}

type accountRLP struct {
	Nonce   uint64
	Balance *big.Int
}

type accountSt struct {
	Address common.Address `json:"address"`
	Nonce   uint64         `json:"nonce"`
	Balance *uint256.Int   `json:"balance"`
}

func (a *Account) MarshalJSON() (dat []byte, err error) {
	o := accountSt{
		Address: a.Address,
		Nonce:   a.Nonce,
		Balance: a.Balance,
	}
	return json.Marshal(o)
}

func (a *Account) UnmarshalJSON(dat []byte) (err error) {
	var o accountSt
	err = json.Unmarshal(dat, &o)
	if err != nil {
		return
	}
	a.Address = o.Address
	a.Nonce = o.Nonce
	a.Balance = o.Balance
	if a.Balance == nil {
		a.Balance = new(uint256.Int)
	}
	return
}

func (a *Account) Clone() *Account {
	return &Account{
		Address: a.Address,
		Nonce:   a.Nonce,
		Balance: a.Balance.Clone(),
	}
}

// GetAccount never returns nil for a valid address; unknown accounts
// come back with zero nonce and balance.
func (s *State) GetAccount(addr common.Address) (acnt *Account, err error) {
	acnt = &Account{Address: addr, Balance: new(uint256.Int)}
	val, err := s.get(fmt.Sprintf(KeyAccountBody, addr.Bytes()))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return acnt, nil
	}
	var enc accountRLP
	if err = rlp.DecodeBytes(val, &enc); err != nil {
		return nil, err
	}
	acnt.Nonce = enc.Nonce
	if enc.Balance != nil {
		bal, overflow := uint256.FromBig(enc.Balance)
		if overflow {
			return nil, ErrBalanceOverflow
		}
		acnt.Balance = bal
	}
	return
}

func (s *State) setAccount(acnt *Account) error {
	key := fmt.Sprintf(KeyAccountBody, acnt.Address.Bytes())
	if acnt.Nonce == 0 && acnt.Balance.IsZero() {
		s.set(key, nil)
		return nil
	}
	val, err := rlp.EncodeToBytes(accountRLP{Nonce: acnt.Nonce, Balance: acnt.Balance.ToBig()})
	if err != nil {
		return err
	}
	s.set(key, val)
	return nil
}

func (s *State) GetBalance(addr common.Address) (*uint256.Int, error) {
	acnt, err := s.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return acnt.Balance, nil
}

func (s *State) AddBalance(addr common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	acnt, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	bal, overflow := new(uint256.Int).AddOverflow(acnt.Balance, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	acnt.Balance = bal
	return s.setAccount(acnt)
}

func (s *State) SubBalance(addr common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	acnt, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	if acnt.Balance.Lt(amount) {
		return fmt.Errorf("%w: %v has %v, need %v", ErrInsufficientFunds, addr.Hex(), acnt.Balance.Dec(), amount.Dec())
	}
	acnt.Balance = new(uint256.Int).Sub(acnt.Balance, amount)
	return s.setAccount(acnt)
}

// Transfer moves amount between accounts; nothing is written on failure.
func (s *State) Transfer(from, to common.Address, amount *uint256.Int) (err error) {
	if amount == nil || amount.IsZero() {
		return nil
	}
	snap := s.Snapshot()
	defer func() {
		if err != nil {
			s.RevertToSnapshot(snap)
		}
	}()
	if err = s.SubBalance(from, amount); err != nil {
		return
	}
	err = s.AddBalance(to, amount)
	return
}

func (s *State) GetNonce(addr common.Address) (uint64, error) {
	acnt, err := s.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acnt.Nonce, nil
}

func (s *State) IncNonce(addr common.Address) error {
	acnt, err := s.GetAccount(addr)
	if err != nil {
		return err
	}
	acnt.Nonce += 1
	return s.setAccount(acnt)
}
