// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package governance implements a token-weighted governance ledger: accounts
// hold balances, may delegate their voting weight to another account, and
// any past snapshot can be queried for the voting power an account
// controlled at that point.
package governance

import (
	"errors"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	safemath "github.com/luxfi/math"
	"github.com/luxfi/metric"
	"go.uber.org/zap"

	"github.com/luxfi/governance/config"
	"github.com/luxfi/governance/delegation"
	"github.com/luxfi/governance/ledger"
	"github.com/luxfi/governance/metrics"
	"github.com/luxfi/governance/state"
)

// Engine wires the ledger, the delegation graph maintainer, and the
// checkpointed state into one governance core. Every external call runs to
// completion under the engine lock and commits atomically; a rejected call
// leaves no state change behind.
type Engine struct {
	lock sync.RWMutex

	state      *state.State
	ledger     *ledger.Ledger
	delegation *delegation.Maintainer

	log     log.Logger
	metrics metrics.Metrics
}

// New creates an engine backed by [db].
func New(
	db database.Database,
	cfg config.Config,
	logger log.Logger,
	registerer metric.Registerer,
) (*Engine, error) {
	s, err := state.New(db, cfg.AccountCacheSize, logger)
	if err != nil {
		return nil, err
	}
	m, err := metrics.New(registerer)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		state:      s,
		ledger:     ledger.New(s, logger),
		delegation: delegation.New(s, cfg.MaxDelegationDepth, logger),
		log:        logger,
		metrics:    m,
	}
	e.metrics.SetTotalSupply(s.TotalSupply())

	logger.Info("governance engine initialized",
		log.Uint64("snapshot", s.CurrentSnapshot()),
		log.Uint64("totalSupply", s.TotalSupply()),
	)
	return e, nil
}

// SetDelegate points [mover]'s delegation at [target]. Delegating to self is
// equivalent to ResetDelegation.
func (e *Engine) SetDelegate(mover, target ids.ShortID) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if err := e.delegation.SetDelegate(mover, target); err != nil {
		e.state.Abort()
		if reason := rejectionReason(err); reason != "" {
			e.metrics.IncDelegationsRejected(reason)
		}
		return err
	}
	if err := e.state.Commit(); err != nil {
		e.state.Abort()
		return err
	}
	if mover == target {
		e.metrics.IncDelegationsReset()
	} else {
		e.metrics.IncDelegationsSet()
	}
	return nil
}

// ResetDelegation makes [mover] terminal again, unlocking its balance.
func (e *Engine) ResetDelegation(mover ids.ShortID) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if err := e.delegation.Reset(mover); err != nil {
		e.state.Abort()
		return err
	}
	if err := e.state.Commit(); err != nil {
		e.state.Abort()
		return err
	}
	e.metrics.IncDelegationsReset()
	return nil
}

// CreateSnapshot advances the global snapshot counter and returns the new
// id. It performs no per-account writes; checkpoints are written lazily by
// later mutations.
func (e *Engine) CreateSnapshot() (uint64, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	id, err := e.state.CreateSnapshot()
	if err != nil {
		e.state.Abort()
		return 0, err
	}
	if err := e.state.Commit(); err != nil {
		e.state.Abort()
		return 0, err
	}
	e.metrics.IncSnapshotsCreated()
	e.log.Info("snapshot created", log.Uint64("snapshot", id))
	return id, nil
}

// Mint credits [amount] new tokens to [addr], growing the total supply.
func (e *Engine) Mint(addr ids.ShortID, amount uint64) error {
	return e.mutateBalances(func() error {
		return e.ledger.Mint(addr, amount)
	})
}

// Burn destroys [amount] tokens held by [addr], shrinking the total supply.
func (e *Engine) Burn(addr ids.ShortID, amount uint64) error {
	return e.mutateBalances(func() error {
		return e.ledger.Burn(addr, amount)
	})
}

// Transfer moves [amount] tokens from [from] to [to].
func (e *Engine) Transfer(from, to ids.ShortID, amount uint64) error {
	return e.mutateBalances(func() error {
		return e.ledger.Transfer(from, to, amount)
	})
}

// Credit adds [amount] to the balance of [addr] without changing the supply.
func (e *Engine) Credit(addr ids.ShortID, amount uint64) error {
	return e.mutateBalances(func() error {
		return e.ledger.Credit(addr, amount)
	})
}

// Debit removes [amount] from the balance of [addr] without changing the
// supply. Subject to the delegation lock rule.
func (e *Engine) Debit(addr ids.ShortID, amount uint64) error {
	return e.mutateBalances(func() error {
		return e.ledger.Debit(addr, amount)
	})
}

func (e *Engine) mutateBalances(mutate func() error) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if err := mutate(); err != nil {
		e.state.Abort()
		return err
	}
	if err := e.state.Commit(); err != nil {
		e.state.Abort()
		return err
	}
	e.metrics.SetTotalSupply(e.state.TotalSupply())
	return nil
}

// EffectiveVotingPower returns the voting power [addr] controlled as of
// [snapshot]. An account that had delegated its power away controls none;
// a terminal account controls its balance plus everything delegated to it.
// This never walks the graph: the delegation maintainer keeps the terminal
// node's delegated votes equal to the full transitive sum.
func (e *Engine) EffectiveVotingPower(addr ids.ShortID, snapshot uint64) (uint64, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	delegate, err := e.state.DelegateAt(addr, snapshot)
	if err != nil {
		return 0, err
	}
	if delegate != addr {
		return 0, nil
	}

	balance, err := e.state.BalanceAt(addr, snapshot)
	if err != nil {
		return 0, err
	}
	votes, err := e.state.VotesAt(addr, snapshot)
	if err != nil {
		return 0, err
	}
	return safemath.Add64(balance, votes)
}

// Balance returns the current balance of [addr].
func (e *Engine) Balance(addr ids.ShortID) (uint64, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	acct, err := e.state.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Delegate returns the current delegate of [addr]; an account that has not
// delegated returns itself.
func (e *Engine) Delegate(addr ids.ShortID) (ids.ShortID, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	acct, err := e.state.GetAccount(addr)
	if err != nil {
		return ids.ShortEmpty, err
	}
	return acct.Delegate, nil
}

// DelegatedVotes returns the power currently credited to [addr] by its
// delegators, whether or not [addr] is terminal.
func (e *Engine) DelegatedVotes(addr ids.ShortID) (uint64, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	acct, err := e.state.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acct.DelegatedVotes, nil
}

// ChainDepth returns the number of hops from [addr] to its terminal node,
// letting callers warn users approaching the depth cap.
func (e *Engine) ChainDepth(addr ids.ShortID) (int, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.delegation.ChainDepth(addr)
}

// BalanceAt returns the balance of [addr] as of [snapshot].
func (e *Engine) BalanceAt(addr ids.ShortID, snapshot uint64) (uint64, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.state.BalanceAt(addr, snapshot)
}

// DelegatedVotesAt returns the delegated votes of [addr] as of [snapshot].
func (e *Engine) DelegatedVotesAt(addr ids.ShortID, snapshot uint64) (uint64, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.state.VotesAt(addr, snapshot)
}

// DelegateAt returns the delegate of [addr] as of [snapshot].
func (e *Engine) DelegateAt(addr ids.ShortID, snapshot uint64) (ids.ShortID, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.state.DelegateAt(addr, snapshot)
}

// TotalSupply returns the current total supply.
func (e *Engine) TotalSupply() uint64 {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.state.TotalSupply()
}

// CurrentSnapshot returns the current value of the global snapshot counter.
func (e *Engine) CurrentSnapshot() uint64 {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return e.state.CurrentSnapshot()
}

// Close flushes and closes the underlying state.
func (e *Engine) Close() error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if err := e.state.Close(); err != nil {
		e.log.Error("failed to close state", zap.Error(err))
		return err
	}
	return nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, delegation.ErrDelegationCycle):
		return metrics.ReasonCycle
	case errors.Is(err, delegation.ErrDelegationDepthLimit):
		return metrics.ReasonDepth
	default:
		return ""
	}
}
