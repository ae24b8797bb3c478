// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

func newTestState(t *testing.T, db *memdb.Database) *State {
	t.Helper()

	s, err := New(db, 1024, log.NewNoOpLogger())
	require.NoError(t, err)
	return s
}

func TestGetAccountDefaults(t *testing.T) {
	require := require.New(t)

	s := newTestState(t, memdb.New())
	addr := ids.GenerateTestShortID()

	acct, err := s.GetAccount(addr)
	require.NoError(err)
	require.Equal(addr, acct.Address)
	require.Equal(addr, acct.Delegate)
	require.True(acct.IsTerminal())
	require.Zero(acct.Balance)
	require.Zero(acct.DelegatedVotes)
	require.Zero(acct.LastForwarded)
}

func TestAccountRoundTrip(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	s := newTestState(t, db)

	addr := ids.GenerateTestShortID()
	delegate := ids.GenerateTestShortID()

	acct, err := s.GetAccount(addr)
	require.NoError(err)
	acct.Balance = 100
	acct.Delegate = delegate
	acct.DelegatedVotes = 40
	acct.LastForwarded = 140
	require.NoError(s.PutAccount(acct))
	require.NoError(s.Commit())

	// Reopen on the same database to force a read through the codec.
	reopened := newTestState(t, db)
	got, err := reopened.GetAccount(addr)
	require.NoError(err)
	require.Equal(acct, got)
	require.False(got.IsTerminal())
}

func TestCheckpointReadAt(t *testing.T) {
	require := require.New(t)

	s := newTestState(t, memdb.New())
	addr := ids.GenerateTestShortID()

	// Writes at snapshot 0.
	require.NoError(s.WriteBalanceCheckpoint(addr, 10))

	_, err := s.CreateSnapshot()
	require.NoError(err)
	_, err = s.CreateSnapshot()
	require.NoError(err)

	// Writes at snapshot 2.
	require.NoError(s.WriteBalanceCheckpoint(addr, 30))

	balance, err := s.BalanceAt(addr, 0)
	require.NoError(err)
	require.Equal(uint64(10), balance)

	// Nothing was written at snapshot 1; the snapshot 0 entry is the newest
	// one at or before it.
	balance, err = s.BalanceAt(addr, 1)
	require.NoError(err)
	require.Equal(uint64(10), balance)

	balance, err = s.BalanceAt(addr, 2)
	require.NoError(err)
	require.Equal(uint64(30), balance)

	balance, err = s.BalanceAt(addr, 99)
	require.NoError(err)
	require.Equal(uint64(30), balance)
}

func TestCheckpointDefaults(t *testing.T) {
	require := require.New(t)

	s := newTestState(t, memdb.New())
	addr := ids.GenerateTestShortID()

	balance, err := s.BalanceAt(addr, 5)
	require.NoError(err)
	require.Zero(balance)

	votes, err := s.VotesAt(addr, 5)
	require.NoError(err)
	require.Zero(votes)

	delegate, err := s.DelegateAt(addr, 5)
	require.NoError(err)
	require.Equal(addr, delegate)
}

func TestCheckpointOverwriteSameSnapshot(t *testing.T) {
	require := require.New(t)

	s := newTestState(t, memdb.New())
	addr := ids.GenerateTestShortID()

	require.NoError(s.WriteVotesCheckpoint(addr, 7))
	require.NoError(s.WriteVotesCheckpoint(addr, 11))

	votes, err := s.VotesAt(addr, 0)
	require.NoError(err)
	require.Equal(uint64(11), votes)
}

func TestDelegateCheckpointHistory(t *testing.T) {
	require := require.New(t)

	s := newTestState(t, memdb.New())
	addr := ids.GenerateTestShortID()
	first := ids.GenerateTestShortID()
	second := ids.GenerateTestShortID()

	require.NoError(s.WriteDelegateCheckpoint(addr, first))
	_, err := s.CreateSnapshot()
	require.NoError(err)
	require.NoError(s.WriteDelegateCheckpoint(addr, second))

	delegate, err := s.DelegateAt(addr, 0)
	require.NoError(err)
	require.Equal(first, delegate)

	delegate, err = s.DelegateAt(addr, 1)
	require.NoError(err)
	require.Equal(second, delegate)
}

func TestSnapshotCounterPersistence(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	s := newTestState(t, db)
	require.Zero(s.CurrentSnapshot())

	id, err := s.CreateSnapshot()
	require.NoError(err)
	require.Equal(uint64(1), id)

	id, err = s.CreateSnapshot()
	require.NoError(err)
	require.Equal(uint64(2), id)
	require.NoError(s.Commit())

	reopened := newTestState(t, db)
	require.Equal(uint64(2), reopened.CurrentSnapshot())
}

func TestTotalSupplyPersistence(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	s := newTestState(t, db)
	require.Zero(s.TotalSupply())

	require.NoError(s.SetTotalSupply(1_000_000))
	require.NoError(s.Commit())

	reopened := newTestState(t, db)
	require.Equal(uint64(1_000_000), reopened.TotalSupply())
}

func TestAbortRollsBackPendingWrites(t *testing.T) {
	require := require.New(t)

	s := newTestState(t, memdb.New())
	addr := ids.GenerateTestShortID()

	acct, err := s.GetAccount(addr)
	require.NoError(err)
	acct.Balance = 55
	require.NoError(s.PutAccount(acct))
	require.NoError(s.SetTotalSupply(55))
	_, err = s.CreateSnapshot()
	require.NoError(err)

	s.Abort()

	got, err := s.GetAccount(addr)
	require.NoError(err)
	require.Zero(got.Balance)
	require.Zero(s.TotalSupply())
	require.Zero(s.CurrentSnapshot())
}

func TestAbortPreservesCommittedWrites(t *testing.T) {
	require := require.New(t)

	s := newTestState(t, memdb.New())
	addr := ids.GenerateTestShortID()

	acct, err := s.GetAccount(addr)
	require.NoError(err)
	acct.Balance = 20
	require.NoError(s.PutAccount(acct))
	require.NoError(s.SetTotalSupply(20))
	require.NoError(s.Commit())

	acct, err = s.GetAccount(addr)
	require.NoError(err)
	acct.Balance = 99
	require.NoError(s.PutAccount(acct))

	s.Abort()

	got, err := s.GetAccount(addr)
	require.NoError(err)
	require.Equal(uint64(20), got.Balance)
	require.Equal(uint64(20), s.TotalSupply())
}
