// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

var Default = Config{
	AccountCacheSize:   8192,
	MaxDelegationDepth: 8,
}

// Config contains the user-configurable parameters of the governance engine.
type Config struct {
	// AccountCacheSize is the number of account records kept in memory in
	// front of the account bucket.
	AccountCacheSize int `json:"account-cache-size"`

	// MaxDelegationDepth bounds the number of hops from any account to its
	// terminal node.
	MaxDelegationDepth int `json:"max-delegation-depth"`
}
