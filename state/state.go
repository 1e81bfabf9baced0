package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds for transfer")
	ErrBalanceOverflow   = errors.New("balance overflow")
	ErrInvalidSnapshot   = errors.New("invalid snapshot id")
	ErrReadOnlyState     = errors.New("read only state")
)

var (
	KeyState       = "s"
	KeyAccountBody = "a%x"
	KeyStorage     = "c%x/%s"
)

type StateHeader struct {
	ChainId  string        `json:"chain_id"`
	Height   uint64        `json:"height"`
	RootHash hexutil.Bytes `json:"root_hash"`
	Hash     hexutil.Bytes `json:"hash"`
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.RootHash = common.CopyBytes(h.RootHash)
	n.Hash = common.CopyBytes(h.Hash)
	return &n
}

type kvReader interface {
	Get(key []byte) ([]byte, error)
}

type journalEntry struct {
	key     string
	prev    []byte
	written bool
}

// State is the working set of one block. Writes stay in memory until
// Update flushes them into the tree in key order.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	rd     kvReader
	dbVer  int64

	header   *StateHeader
	readOnly bool

	dirty   map[string][]byte
	journal []journalEntry
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	return &State{
		logger: logger,
		db:     db,
		rd:     db,
		header: new(StateHeader),
		dirty:  make(map[string][]byte),
	}
}

func (s *State) nextState() *State {
	n := &State{
		logger: s.logger,
		db:     s.db,
		rd:     s.db,
		dbVer:  s.dbVer,
		dirty:  make(map[string][]byte),
	}
	n.header = s.header.Clone()
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyState))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil
		}
		return err
	}
	if val != nil {
		err = json.Unmarshal(val, s.header)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = common.CopyBytes(rootHash)
		s.header.Hash = common.CopyBytes(h[:])
	}
	return
}

func (s *State) get(key string) (val []byte, err error) {
	if v, ok := s.dirty[key]; ok {
		return v, nil
	}
	val, err = s.rd.Get([]byte(key))
	if err != nil && errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	return
}

// set records val under key; an empty val deletes the key on flush.
func (s *State) set(key string, val []byte) {
	prev, ok := s.dirty[key]
	s.journal = append(s.journal, journalEntry{key: key, prev: prev, written: ok})
	if len(val) == 0 {
		s.dirty[key] = nil
		return
	}
	s.dirty[key] = common.CopyBytes(val)
}

// Snapshot returns an id that RevertToSnapshot can roll back to.
func (s *State) Snapshot() int {
	return len(s.journal)
}

func (s *State) RevertToSnapshot(id int) {
	if id < 0 || id > len(s.journal) {
		panic(fmt.Errorf("%w: %d", ErrInvalidSnapshot, id))
	}
	for i := len(s.journal) - 1; i >= id; i-- {
		e := s.journal[i]
		if e.written {
			s.dirty[e.key] = e.prev
		} else {
			delete(s.dirty, e.key)
		}
	}
	s.journal = s.journal[:id]
}

func (s *State) Update() (h common.Hash, err error) {
	if s.readOnly {
		return h, ErrReadOnlyState
	}
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	val, err := json.Marshal(s.header)
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyState), val)
	if err != nil {
		return
	}

	keys := make([]string, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := s.dirty[k]
		if v == nil {
			_, _, err = s.db.Remove([]byte(k))
		} else {
			_, err = s.db.Set([]byte(k), v)
		}
		if err != nil {
			return
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.dirty = make(map[string][]byte)
	s.journal = nil
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}

	s.dbVer = ver
	h = s.calcHash(hash, true)

	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Height() uint64 {
	return s.header.Height
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

func (s *State) ChainId() string {
	return s.header.ChainId
}

func (s *State) GetStorage(contract common.Address, key string) ([]byte, error) {
	return s.get(fmt.Sprintf(KeyStorage, contract.Bytes(), key))
}

func (s *State) SetStorage(contract common.Address, key string, val []byte) {
	s.set(fmt.Sprintf(KeyStorage, contract.Bytes(), key), val)
}

func (s *State) GetStorageUint(contract common.Address, key string) (*uint256.Int, error) {
	val, err := s.GetStorage(contract, key)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(val), nil
}

func (s *State) SetStorageUint(contract common.Address, key string, v *uint256.Int) {
	if v == nil || v.IsZero() {
		s.SetStorage(contract, key, nil)
		return
	}
	s.SetStorage(contract, key, v.Bytes())
}

func (s *State) GetStorageJSON(contract common.Address, key string, v any) (found bool, err error) {
	val, err := s.GetStorage(contract, key)
	if err != nil || val == nil {
		return false, err
	}
	if err = json.Unmarshal(val, v); err != nil {
		return false, err
	}
	return true, nil
}

func (s *State) SetStorageJSON(contract common.Address, key string, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.SetStorage(contract, key, val)
	return nil
}
