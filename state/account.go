// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"github.com/luxfi/ids"
)

// Account is the per-participant record maintained by the engine. Accounts
// are created implicitly on first use and are never deleted.
type Account struct {
	Address ids.ShortID `serialize:"true" json:"address"`

	// Balance is the amount of tokens owned by this account. While the
	// account is delegating, the entire balance is locked.
	Balance uint64 `serialize:"true" json:"balance"`

	// Delegate is the account this account currently delegates to. An
	// account delegating to itself is a terminal node.
	Delegate ids.ShortID `serialize:"true" json:"delegate"`

	// DelegatedVotes is the power that would be credited to this account if
	// it became terminal right now. It is maintained on every node along a
	// delegation path, not just the terminal node, so that detaching an
	// account's contribution never requires re-walking its subtree.
	DelegatedVotes uint64 `serialize:"true" json:"delegatedVotes"`

	// LastForwarded is the amount this account currently contributes to
	// every node on its forward chain. It is recomputed when the account
	// delegates and adjusted whenever a walk passes through this account,
	// which keeps the detach subtraction exact.
	LastForwarded uint64 `serialize:"true" json:"lastForwarded"`
}

// IsTerminal returns true if the account is self-delegating.
func (a *Account) IsTerminal() bool {
	return a.Delegate == a.Address
}
