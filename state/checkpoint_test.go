// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
)

func TestMarshalCheckpointKeyRoundTrip(t *testing.T) {
	require := require.New(t)

	addr := ids.GenerateTestShortID()
	for _, snapshot := range []uint64{0, 1, 7, 1<<32 + 5, ^uint64(0)} {
		key := marshalCheckpointKey(addr[:], snapshot)

		parsedAddr, parsedSnapshot, err := unmarshalCheckpointKey(key)
		require.NoError(err)
		require.Equal(addr[:], parsedAddr)
		require.Equal(snapshot, parsedSnapshot)
	}
}

func TestUnmarshalCheckpointKeyLength(t *testing.T) {
	require := require.New(t)

	_, _, err := unmarshalCheckpointKey([]byte("short"))
	require.ErrorIs(err, errUnexpectedCheckpointKeyLength)
}

// Seeking to (addr, S) must land on the newest entry recorded at or before
// S, and iteration must proceed through strictly older snapshots.
func TestCheckpointKeyIteration(t *testing.T) {
	require := require.New(t)

	db := memdb.New()

	addr0 := ids.ShortID{0x00}
	addr1 := ids.ShortID{0x01}

	addr0Snap1 := marshalCheckpointKey(addr0[:], 1)
	addr0Snap3 := marshalCheckpointKey(addr0[:], 3)
	addr1Snap2 := marshalCheckpointKey(addr1[:], 2)

	require.NoError(db.Put(addr0Snap1, nil))
	require.NoError(db.Put(addr0Snap3, nil))
	require.NoError(db.Put(addr1Snap2, nil))

	{
		// Seek at snapshot 2: snapshot 3 is in the future, snapshot 1 is
		// the newest visible entry.
		it := db.NewIteratorWithStartAndPrefix(marshalCheckpointKey(addr0[:], 2), addr0[:])
		defer it.Release()

		require.True(it.Next())
		require.Equal(addr0Snap1, it.Key())
		require.False(it.Next())
		require.NoError(it.Error())
	}

	{
		// Seek at snapshot 5: both entries are visible, newest first.
		it := db.NewIteratorWithStartAndPrefix(marshalCheckpointKey(addr0[:], 5), addr0[:])
		defer it.Release()

		expectedKeys := [][]byte{
			addr0Snap3,
			addr0Snap1,
		}
		for _, expectedKey := range expectedKeys {
			require.True(it.Next())
			require.Equal(expectedKey, it.Key())
		}
		require.False(it.Next())
		require.NoError(it.Error())
	}

	{
		// Seek at snapshot 0: no entry is old enough.
		it := db.NewIteratorWithStartAndPrefix(marshalCheckpointKey(addr0[:], 0), addr0[:])
		defer it.Release()

		require.False(it.Next())
		require.NoError(it.Error())
	}
}

func TestMarshalUint64ValueRoundTrip(t *testing.T) {
	require := require.New(t)

	for _, value := range []uint64{0, 1, 42, ^uint64(0)} {
		parsed, err := unmarshalUint64Value(marshalUint64Value(value))
		require.NoError(err)
		require.Equal(value, parsed)
	}

	_, err := unmarshalUint64Value([]byte{0x01})
	require.Error(err)
}
