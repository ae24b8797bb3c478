// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package delegation maintains the delegation forest: every account has
// exactly one outgoing delegate pointer (itself by default), chains are
// acyclic and bounded in depth, and every node on a chain carries the
// aggregate power that would land on it if it became terminal.
package delegation

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	safemath "github.com/luxfi/math"

	"github.com/luxfi/governance/state"
)

// DefaultMaxDepth bounds the number of hops from any account to its
// terminal node. Every chain walk is at most this many steps, which keeps
// the cost of a single delegation change a small constant.
const DefaultMaxDepth = 8

var (
	ErrDelegationCycle      = errors.New("delegation would create a cycle")
	ErrDelegationDepthLimit = errors.New("delegation chain depth limit exceeded")

	errChainTooLong = errors.New("existing delegation chain exceeds the depth limit")
)

// Maintainer is the only component allowed to mutate delegate pointers and
// delegated votes.
type Maintainer struct {
	state    *state.State
	log      log.Logger
	maxDepth int
}

func New(s *state.State, maxDepth int, logger log.Logger) *Maintainer {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Maintainer{
		state:    s,
		log:      logger,
		maxDepth: maxDepth,
	}
}

// SetDelegate points [mover]'s delegation at [target]. The proposed edge is
// fully validated before any state is written: a cycle or depth violation
// rejects the call with no state change.
func (m *Maintainer) SetDelegate(mover, target ids.ShortID) error {
	if mover == target {
		return m.Reset(mover)
	}

	targetPath, err := m.walk(target)
	if err != nil {
		return err
	}
	for _, acct := range targetPath {
		if acct.Address == mover {
			return ErrDelegationCycle
		}
	}
	// The mover's new edge sits on top of the target's chain: the resulting
	// path from mover has len(targetPath) hops.
	if len(targetPath) > m.maxDepth {
		return ErrDelegationDepthLimit
	}

	if err := m.detach(mover); err != nil {
		return err
	}

	// Read after detaching: the mover's delegated votes reflect only power
	// delegated to it by others, which the detach walk never touches.
	moverAcct, err := m.state.GetAccount(mover)
	if err != nil {
		return err
	}
	amount, err := safemath.Add64(moverAcct.Balance, moverAcct.DelegatedVotes)
	if err != nil {
		return err
	}
	moverAcct.LastForwarded = amount
	moverAcct.Delegate = target
	if err := m.state.PutAccount(moverAcct); err != nil {
		return err
	}
	if err := m.state.WriteDelegateCheckpoint(mover, target); err != nil {
		return err
	}

	if err := m.attach(target, amount); err != nil {
		return err
	}

	m.log.Debug("delegate set",
		log.Stringer("mover", mover),
		log.Stringer("target", target),
		log.Uint64("amount", amount),
	)
	return nil
}

// Reset makes [mover] terminal again. Resetting an already self-delegating
// account is a no-op. Power that was transiting through [mover] stays with
// it: after the detach walk its delegated votes already hold the full
// subtree sum, which is what makes reset correct without re-walking the
// subtree.
func (m *Maintainer) Reset(mover ids.ShortID) error {
	moverAcct, err := m.state.GetAccount(mover)
	if err != nil {
		return err
	}
	if moverAcct.IsTerminal() {
		return nil
	}

	if err := m.detach(mover); err != nil {
		return err
	}

	moverAcct, err = m.state.GetAccount(mover)
	if err != nil {
		return err
	}
	moverAcct.Delegate = mover
	moverAcct.LastForwarded = 0
	if err := m.state.PutAccount(moverAcct); err != nil {
		return err
	}
	if err := m.state.WriteDelegateCheckpoint(mover, mover); err != nil {
		return err
	}

	m.log.Debug("delegation reset", log.Stringer("mover", mover))
	return nil
}

// ChainDepth returns the number of hops from [addr] to its terminal node.
// A terminal account has depth 0.
func (m *Maintainer) ChainDepth(addr ids.ShortID) (int, error) {
	path, err := m.walk(addr)
	if err != nil {
		return 0, err
	}
	return len(path) - 1, nil
}

// walk returns the chain from [start] to its terminal node, inclusive of
// both. Cycle probing, depth measurement, and the detach/attach traversals
// all share this one primitive.
func (m *Maintainer) walk(start ids.ShortID) ([]*state.Account, error) {
	path := make([]*state.Account, 0, m.maxDepth+1)
	addr := start
	for {
		acct, err := m.state.GetAccount(addr)
		if err != nil {
			return nil, err
		}
		path = append(path, acct)
		if acct.IsTerminal() {
			return path, nil
		}
		if len(path) > m.maxDepth {
			return nil, errChainTooLong
		}
		addr = acct.Delegate
	}
}

// detach undoes [mover]'s current contribution: it walks the chain from the
// mover's delegate to the terminal node, subtracting the mover's forwarded
// amount from every node on the way. The forwarded amount of every
// non-terminal node shrinks by the same delta, since those nodes now
// contribute that much less to their own forward chains.
func (m *Maintainer) detach(mover ids.ShortID) error {
	moverAcct, err := m.state.GetAccount(mover)
	if err != nil {
		return err
	}
	if moverAcct.IsTerminal() {
		return nil
	}

	amount := moverAcct.LastForwarded
	path, err := m.walk(moverAcct.Delegate)
	if err != nil {
		return err
	}
	for _, acct := range path {
		acct.DelegatedVotes, err = safemath.Sub(acct.DelegatedVotes, amount)
		if err != nil {
			return fmt.Errorf("detaching %d from %s: %w", amount, acct.Address, err)
		}
		if !acct.IsTerminal() {
			acct.LastForwarded, err = safemath.Sub(acct.LastForwarded, amount)
			if err != nil {
				return fmt.Errorf("detaching %d from %s: %w", amount, acct.Address, err)
			}
		}
		if err := m.state.PutAccount(acct); err != nil {
			return err
		}
		if err := m.state.WriteVotesCheckpoint(acct.Address, acct.DelegatedVotes); err != nil {
			return err
		}
	}
	return nil
}

// attach adds [amount] to every node on the chain from [target] to its
// terminal node, inclusive. Non-terminal nodes also forward that much more,
// so their forwarded amounts grow by the same delta.
func (m *Maintainer) attach(target ids.ShortID, amount uint64) error {
	path, err := m.walk(target)
	if err != nil {
		return err
	}
	for _, acct := range path {
		acct.DelegatedVotes, err = safemath.Add64(acct.DelegatedVotes, amount)
		if err != nil {
			return fmt.Errorf("attaching %d to %s: %w", amount, acct.Address, err)
		}
		if !acct.IsTerminal() {
			acct.LastForwarded, err = safemath.Add64(acct.LastForwarded, amount)
			if err != nil {
				return fmt.Errorf("attaching %d to %s: %w", amount, acct.Address, err)
			}
		}
		if err := m.state.PutAccount(acct); err != nil {
			return err
		}
		if err := m.state.WriteVotesCheckpoint(acct.Address, acct.DelegatedVotes); err != nil {
			return err
		}
	}
	return nil
}
