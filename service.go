// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"fmt"
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/ids"

	"github.com/luxfi/governance/utils/json"
)

// Service exposes the engine's read operations over JSON-RPC. Mutations are
// not exposed: the core is an in-process structure and only its inspection
// surface is served.
type Service struct {
	engine *Engine
}

// CreateHandlers returns the HTTP handlers served by the engine.
func (e *Engine) CreateHandlers() (map[string]http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json.NewCodec(), "application/json")
	server.RegisterCodec(json.NewCodec(), "application/json;charset=UTF-8")
	if err := server.RegisterService(&Service{engine: e}, "governance"); err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"/rpc": server,
	}, nil
}

type GetVotingPowerArgs struct {
	Address string `json:"address"`
	// SnapshotID defaults to the current snapshot when omitted.
	SnapshotID *json.Uint64 `json:"snapshotID,omitempty"`
}

type GetVotingPowerReply struct {
	Power json.Uint64 `json:"power"`
}

// GetVotingPower returns the effective voting power of an address, at the
// given snapshot or at the current one.
func (s *Service) GetVotingPower(_ *http.Request, args *GetVotingPowerArgs, reply *GetVotingPowerReply) error {
	addr, err := ids.ShortFromString(args.Address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	snapshot := s.engine.CurrentSnapshot()
	if args.SnapshotID != nil {
		snapshot = uint64(*args.SnapshotID)
	}

	power, err := s.engine.EffectiveVotingPower(addr, snapshot)
	if err != nil {
		return err
	}
	reply.Power = json.Uint64(power)
	return nil
}

type GetBalanceArgs struct {
	Address    string       `json:"address"`
	SnapshotID *json.Uint64 `json:"snapshotID,omitempty"`
}

type GetBalanceReply struct {
	Balance json.Uint64 `json:"balance"`
}

// GetBalance returns the balance of an address, at the given snapshot or
// currently.
func (s *Service) GetBalance(_ *http.Request, args *GetBalanceArgs, reply *GetBalanceReply) error {
	addr, err := ids.ShortFromString(args.Address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	var balance uint64
	if args.SnapshotID != nil {
		balance, err = s.engine.BalanceAt(addr, uint64(*args.SnapshotID))
	} else {
		balance, err = s.engine.Balance(addr)
	}
	if err != nil {
		return err
	}
	reply.Balance = json.Uint64(balance)
	return nil
}

type GetDelegateArgs struct {
	Address    string       `json:"address"`
	SnapshotID *json.Uint64 `json:"snapshotID,omitempty"`
}

type GetDelegateReply struct {
	Delegate string `json:"delegate"`
}

// GetDelegate returns the delegate of an address; a non-delegating address
// reports itself.
func (s *Service) GetDelegate(_ *http.Request, args *GetDelegateArgs, reply *GetDelegateReply) error {
	addr, err := ids.ShortFromString(args.Address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	var delegate ids.ShortID
	if args.SnapshotID != nil {
		delegate, err = s.engine.DelegateAt(addr, uint64(*args.SnapshotID))
	} else {
		delegate, err = s.engine.Delegate(addr)
	}
	if err != nil {
		return err
	}
	reply.Delegate = delegate.String()
	return nil
}

type GetDelegatedVotesArgs struct {
	Address    string       `json:"address"`
	SnapshotID *json.Uint64 `json:"snapshotID,omitempty"`
}

type GetDelegatedVotesReply struct {
	DelegatedVotes json.Uint64 `json:"delegatedVotes"`
}

// GetDelegatedVotes returns the power credited to an address by its
// delegators.
func (s *Service) GetDelegatedVotes(_ *http.Request, args *GetDelegatedVotesArgs, reply *GetDelegatedVotesReply) error {
	addr, err := ids.ShortFromString(args.Address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	var votes uint64
	if args.SnapshotID != nil {
		votes, err = s.engine.DelegatedVotesAt(addr, uint64(*args.SnapshotID))
	} else {
		votes, err = s.engine.DelegatedVotes(addr)
	}
	if err != nil {
		return err
	}
	reply.DelegatedVotes = json.Uint64(votes)
	return nil
}

type GetChainDepthArgs struct {
	Address string `json:"address"`
}

type GetChainDepthReply struct {
	Depth json.Uint32 `json:"depth"`
}

// GetChainDepth returns the number of hops from an address to its terminal
// node, so clients can warn users approaching the depth cap.
func (s *Service) GetChainDepth(_ *http.Request, args *GetChainDepthArgs, reply *GetChainDepthReply) error {
	addr, err := ids.ShortFromString(args.Address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	depth, err := s.engine.ChainDepth(addr)
	if err != nil {
		return err
	}
	reply.Depth = json.Uint32(depth)
	return nil
}

type GetHeightReply struct {
	SnapshotID json.Uint64 `json:"snapshotID"`
}

// GetHeight returns the current value of the global snapshot counter.
func (s *Service) GetHeight(_ *http.Request, _ *struct{}, reply *GetHeightReply) error {
	reply.SnapshotID = json.Uint64(s.engine.CurrentSnapshot())
	return nil
}

type GetTotalSupplyReply struct {
	Supply json.Uint64 `json:"supply"`
}

// GetTotalSupply returns the current total supply.
func (s *Service) GetTotalSupply(_ *http.Request, _ *struct{}, reply *GetTotalSupplyReply) error {
	reply.Supply = json.Uint64(s.engine.TotalSupply())
	return nil
}
