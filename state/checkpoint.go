// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/database"
)

const (
	addressLen = 20 // length of an ids.ShortID

	// checkpointKey = [address] + [inverseSnapshot]
	checkpointKeyLength = addressLen + database.Uint64Size
)

var errUnexpectedCheckpointKeyLength = fmt.Errorf("expected checkpoint key length %d", checkpointKeyLength)

// marshalCheckpointKey builds the key under which a quantity's value at
// [snapshot] is recorded for [addr]. Writing at the same snapshot twice
// overwrites the prior entry, which is exactly the idempotent-per-snapshot
// contract checkpoints require.
func marshalCheckpointKey(addr []byte, snapshot uint64) []byte {
	key := make([]byte, checkpointKeyLength)
	copy(key, addr)
	packIterableSnapshot(key[addressLen:], snapshot)
	return key
}

func unmarshalCheckpointKey(key []byte) ([]byte, uint64, error) {
	if len(key) != checkpointKeyLength {
		return nil, 0, errUnexpectedCheckpointKeyLength
	}
	return key[:addressLen], unpackIterableSnapshot(key[addressLen:]), nil
}

// Note: [snapshot] is encoded as a bit flipped big endian number so that
// iterating lexicographically results in iterating in decreasing snapshots.
// Seeking to (addr, S) therefore lands on the newest entry recorded at or
// before S, making a point-in-time read a single seek.
//
// Invariant: [key] has sufficient length
func packIterableSnapshot(key []byte, snapshot uint64) {
	binary.BigEndian.PutUint64(key, ^snapshot)
}

// Invariant: [key] has sufficient length
func unpackIterableSnapshot(key []byte) uint64 {
	return ^binary.BigEndian.Uint64(key)
}

func marshalUint64Value(value uint64) []byte {
	bytes := make([]byte, database.Uint64Size)
	binary.BigEndian.PutUint64(bytes, value)
	return bytes
}

func unmarshalUint64Value(bytes []byte) (uint64, error) {
	if len(bytes) != database.Uint64Size {
		return 0, fmt.Errorf("expected checkpoint value length %d", database.Uint64Size)
	}
	return binary.BigEndian.Uint64(bytes), nil
}
