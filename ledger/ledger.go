// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger manages account balances and the total supply. It is the
// single entry point for balance changes, which is where the delegation
// lock rule is enforced: a delegating account's entire balance is frozen
// until the account resets its delegation.
package ledger

import (
	"errors"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	safemath "github.com/luxfi/math"

	"github.com/luxfi/governance/state"
)

var (
	ErrInsufficientBalance         = errors.New("insufficient balance")
	ErrInsufficientUnlockedBalance = errors.New("balance is locked while delegated")
)

type Ledger struct {
	state *state.State
	log   log.Logger
}

func New(s *state.State, logger log.Logger) *Ledger {
	return &Ledger{
		state: s,
		log:   logger,
	}
}

// Credit adds [amount] to the balance of [addr] and checkpoints the new
// balance. Crediting a delegating account is legal; the new tokens do not
// flow up the chain until the account re-delegates.
func (l *Ledger) Credit(addr ids.ShortID, amount uint64) error {
	if amount == 0 {
		return nil
	}

	acct, err := l.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acct.Balance, err = safemath.Add64(acct.Balance, amount)
	if err != nil {
		return err
	}
	if err := l.state.PutAccount(acct); err != nil {
		return err
	}
	if err := l.state.WriteBalanceCheckpoint(addr, acct.Balance); err != nil {
		return err
	}

	l.log.Debug("credit",
		log.Stringer("account", addr),
		log.Uint64("amount", amount),
		log.Uint64("balance", acct.Balance),
	)
	return nil
}

// Debit removes [amount] from the balance of [addr] and checkpoints the new
// balance. A delegating account cannot be debited at all: its balance is
// locked until it resets its delegation.
func (l *Ledger) Debit(addr ids.ShortID, amount uint64) error {
	if amount == 0 {
		return nil
	}

	acct, err := l.state.GetAccount(addr)
	if err != nil {
		return err
	}
	if !acct.IsTerminal() {
		return ErrInsufficientUnlockedBalance
	}
	if acct.Balance < amount {
		return ErrInsufficientBalance
	}
	acct.Balance -= amount
	if err := l.state.PutAccount(acct); err != nil {
		return err
	}
	if err := l.state.WriteBalanceCheckpoint(addr, acct.Balance); err != nil {
		return err
	}

	l.log.Debug("debit",
		log.Stringer("account", addr),
		log.Uint64("amount", amount),
		log.Uint64("balance", acct.Balance),
	)
	return nil
}

// Mint credits [amount] to [addr] and grows the total supply.
func (l *Ledger) Mint(addr ids.ShortID, amount uint64) error {
	supply, err := safemath.Add64(l.state.TotalSupply(), amount)
	if err != nil {
		return err
	}
	if err := l.Credit(addr, amount); err != nil {
		return err
	}
	return l.state.SetTotalSupply(supply)
}

// Burn debits [amount] from [addr] and shrinks the total supply. Burning is
// subject to the same lock rule as any other debit.
func (l *Ledger) Burn(addr ids.ShortID, amount uint64) error {
	supply, err := safemath.Sub(l.state.TotalSupply(), amount)
	if err != nil {
		return err
	}
	if err := l.Debit(addr, amount); err != nil {
		return err
	}
	return l.state.SetTotalSupply(supply)
}

// Transfer moves [amount] from [from] to [to]. The debit side enforces the
// lock rule.
func (l *Ledger) Transfer(from, to ids.ShortID, amount uint64) error {
	if err := l.Debit(from, amount); err != nil {
		return err
	}
	return l.Credit(to, amount)
}
