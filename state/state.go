// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state manages the persistent account, checkpoint, and snapshot
// state of the governance engine.
package state

import (
	"errors"
	"fmt"

	"github.com/luxfi/cache"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"go.uber.org/zap"
)

var (
	AccountPrefix         = []byte("account")
	BalanceHistoryPrefix  = []byte("balanceHistory")
	VotesHistoryPrefix    = []byte("votesHistory")
	DelegateHistoryPrefix = []byte("delegateHistory")
	SingletonPrefix       = []byte("singleton")

	SnapshotCountKey = []byte("snapshotCount")
	TotalSupplyKey   = []byte("totalSupply")
)

// State persists account records, per-quantity checkpoint histories, the
// global snapshot counter, and the total supply.
//
// All writes land in a versiondb and are not visible on disk until Commit is
// called. Abort discards pending writes, so a rejected operation leaves no
// partial state behind.
type State struct {
	baseDB *versiondb.Database

	accountDB         database.Database
	balanceHistoryDB  database.Database
	votesHistoryDB    database.Database
	delegateHistoryDB database.Database
	singletonDB       database.Database

	accountCache cache.Cacher[ids.ShortID, *Account]

	currentSnapshot uint64
	totalSupply     uint64

	log log.Logger
}

// New creates a state manager on top of [db] and loads the snapshot counter
// and total supply.
func New(db database.Database, accountCacheSize int, logger log.Logger) (*State, error) {
	baseDB := versiondb.New(db)
	s := &State{
		baseDB:            baseDB,
		accountDB:         prefixdb.New(AccountPrefix, baseDB),
		balanceHistoryDB:  prefixdb.New(BalanceHistoryPrefix, baseDB),
		votesHistoryDB:    prefixdb.New(VotesHistoryPrefix, baseDB),
		delegateHistoryDB: prefixdb.New(DelegateHistoryPrefix, baseDB),
		singletonDB:       prefixdb.New(SingletonPrefix, baseDB),
		accountCache:      lru.NewCache[ids.ShortID, *Account](accountCacheSize),
		log:               logger,
	}

	snapshot, err := database.GetUInt64(s.singletonDB, SnapshotCountKey)
	switch {
	case err == nil:
		s.currentSnapshot = snapshot
	case errors.Is(err, database.ErrNotFound):
		// genesis
	default:
		return nil, fmt.Errorf("failed to load snapshot counter: %w", err)
	}

	supply, err := database.GetUInt64(s.singletonDB, TotalSupplyKey)
	switch {
	case err == nil:
		s.totalSupply = supply
	case errors.Is(err, database.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to load total supply: %w", err)
	}

	return s, nil
}

// GetAccount returns the record for [addr]. Accounts exist implicitly from
// genesis: an address with no record is returned as a fresh self-delegating
// account with zero balance.
func (s *State) GetAccount(addr ids.ShortID) (*Account, error) {
	if acct, ok := s.accountCache.Get(addr); ok {
		return acct, nil
	}

	bytes, err := s.accountDB.Get(addr[:])
	switch {
	case err == nil:
		acct := &Account{}
		if _, err := Codec.Unmarshal(bytes, acct); err != nil {
			return nil, fmt.Errorf("failed to unmarshal account %s: %w", addr, err)
		}
		s.accountCache.Put(addr, acct)
		return acct, nil
	case errors.Is(err, database.ErrNotFound):
		acct := &Account{
			Address:  addr,
			Delegate: addr,
		}
		s.accountCache.Put(addr, acct)
		return acct, nil
	default:
		return nil, err
	}
}

// PutAccount persists [acct] and refreshes the cache.
func (s *State) PutAccount(acct *Account) error {
	bytes, err := Codec.Marshal(CodecVersion, acct)
	if err != nil {
		return fmt.Errorf("failed to marshal account %s: %w", acct.Address, err)
	}
	if err := s.accountDB.Put(acct.Address[:], bytes); err != nil {
		return err
	}
	s.accountCache.Put(acct.Address, acct)
	return nil
}

// WriteBalanceCheckpoint records [value] as the balance of [addr] at the
// current snapshot. Writing twice at the same snapshot overwrites the entry.
func (s *State) WriteBalanceCheckpoint(addr ids.ShortID, value uint64) error {
	return s.balanceHistoryDB.Put(
		marshalCheckpointKey(addr[:], s.currentSnapshot),
		marshalUint64Value(value),
	)
}

// WriteVotesCheckpoint records [value] as the delegated votes of [addr] at
// the current snapshot.
func (s *State) WriteVotesCheckpoint(addr ids.ShortID, value uint64) error {
	return s.votesHistoryDB.Put(
		marshalCheckpointKey(addr[:], s.currentSnapshot),
		marshalUint64Value(value),
	)
}

// WriteDelegateCheckpoint records [delegate] as the delegate of [addr] at
// the current snapshot.
func (s *State) WriteDelegateCheckpoint(addr ids.ShortID, delegate ids.ShortID) error {
	return s.delegateHistoryDB.Put(
		marshalCheckpointKey(addr[:], s.currentSnapshot),
		delegate[:],
	)
}

// BalanceAt returns the balance of [addr] as of [snapshot], or zero if no
// checkpoint exists at or before [snapshot].
func (s *State) BalanceAt(addr ids.ShortID, snapshot uint64) (uint64, error) {
	return s.uint64At(s.balanceHistoryDB, addr, snapshot)
}

// VotesAt returns the delegated votes of [addr] as of [snapshot], or zero if
// no checkpoint exists at or before [snapshot].
func (s *State) VotesAt(addr ids.ShortID, snapshot uint64) (uint64, error) {
	return s.uint64At(s.votesHistoryDB, addr, snapshot)
}

// DelegateAt returns the delegate of [addr] as of [snapshot]. An address
// with no recorded delegation history is self-delegating from genesis.
func (s *State) DelegateAt(addr ids.ShortID, snapshot uint64) (ids.ShortID, error) {
	it := s.delegateHistoryDB.NewIteratorWithStartAndPrefix(
		marshalCheckpointKey(addr[:], snapshot),
		addr[:],
	)
	defer it.Release()

	if !it.Next() {
		return addr, it.Error()
	}
	return ids.ToShortID(it.Value())
}

func (s *State) uint64At(db database.Database, addr ids.ShortID, snapshot uint64) (uint64, error) {
	it := db.NewIteratorWithStartAndPrefix(
		marshalCheckpointKey(addr[:], snapshot),
		addr[:],
	)
	defer it.Release()

	if !it.Next() {
		return 0, it.Error()
	}
	return unmarshalUint64Value(it.Value())
}

// CurrentSnapshot returns the value of the global snapshot counter.
func (s *State) CurrentSnapshot() uint64 {
	return s.currentSnapshot
}

// CreateSnapshot increments the global snapshot counter and returns the new
// id. It performs no per-account writes: checkpoints are written lazily, by
// the next mutation that touches a quantity.
func (s *State) CreateSnapshot() (uint64, error) {
	next := s.currentSnapshot + 1
	if err := database.PutUInt64(s.singletonDB, SnapshotCountKey, next); err != nil {
		return 0, err
	}
	s.currentSnapshot = next
	return next, nil
}

// TotalSupply returns the current total supply.
func (s *State) TotalSupply() uint64 {
	return s.totalSupply
}

// SetTotalSupply persists [supply] as the total supply.
func (s *State) SetTotalSupply(supply uint64) error {
	if err := database.PutUInt64(s.singletonDB, TotalSupplyKey, supply); err != nil {
		return err
	}
	s.totalSupply = supply
	return nil
}

// Commit flushes pending writes to the underlying database.
func (s *State) Commit() error {
	return s.baseDB.Commit()
}

// Abort discards pending writes. The account cache is flushed and the
// singleton mirrors reloaded because they may alias mutations that are being
// rolled back.
func (s *State) Abort() {
	s.baseDB.Abort()
	s.accountCache.Flush()

	snapshot, err := database.GetUInt64(s.singletonDB, SnapshotCountKey)
	switch {
	case err == nil:
		s.currentSnapshot = snapshot
	case errors.Is(err, database.ErrNotFound):
		s.currentSnapshot = 0
	default:
		s.log.Error("failed to reload snapshot counter after abort", zap.Error(err))
	}

	supply, err := database.GetUInt64(s.singletonDB, TotalSupplyKey)
	switch {
	case err == nil:
		s.totalSupply = supply
	case errors.Is(err, database.ErrNotFound):
		s.totalSupply = 0
	default:
		s.log.Error("failed to reload total supply after abort", zap.Error(err))
	}
}

// Close commits pending writes and closes the state.
func (s *State) Close() error {
	if err := s.baseDB.Commit(); err != nil {
		return err
	}
	return s.baseDB.Close()
}
