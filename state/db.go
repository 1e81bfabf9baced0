package state

import (
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	ldb, err := dbm.NewDB("guild", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	return newStateDB(ldb, dir, logger)
}

// NewMemStateDB keeps the tree in memory; nothing survives Close.
func NewMemStateDB(logger cmtlog.Logger) (db *StateDB, err error) {
	return newStateDB(dbm.NewMemDB(), "", logger)
}

func newStateDB(ldb dbm.DB, dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "guilddb")
	tdb := iavl.NewMutableTree(ldb, 128, true, Cometbft2CosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, logger)
	st.dbVer = version
	err = st.load()
	if err != nil {
		logger.Error("from guilddb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		dir:    dir,
		logger: logger,
		db:     tdb,
		state:  st,
	}
	return
}

func (db *StateDB) Close() (err error) {
	err = db.db.Close()
	return
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header().Clone()
	return
}

func (db *StateDB) State() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state
}

func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

// QueryState reads the last saved version. Writes made on it are
// discarded and it refuses Update.
func (db *StateDB) QueryState() (st *State, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	st.header.Height = db.state.header.Height
	st.readOnly = true
	if db.state.dbVer > 0 {
		itree, err := db.db.GetImmutable(db.state.dbVer)
		if err != nil {
			return nil, err
		}
		st.rd = itree
	}
	return
}

func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	db.state = st
	return
}

func (db *StateDB) GetAccount(addr common.Address) (acnt *Account, height uint64, err error) {
	st, err := db.QueryState()
	if err != nil {
		return
	}
	acnt, err = st.GetAccount(addr)
	height = st.Height()
	return
}
