/*
Package owner implements the two-phase handover of a single privileged role.

A single account holds the role at any time. Handover is a request/accept
protocol: the current holder nominates a successor, the successor must
actively accept before the previous holder's rights are revoked. A one-step
handover could lock the privileged operations behind a mistyped or
unreachable account forever.
*/
package owner

import (
	"fmt"

	"github.com/tokenledger-org/tokenledger-go-base/types"
)

type (
	// Gate tracks the holder of the privileged role and an optional
	// in-flight handover. Engines gate their privileged operations by
	// consulting a Gate instance.
	Gate struct {
		holder  types.Address
		pending types.Address
		sink    types.EventSink
	}

	Option func(*Gate)
)

// WithEventSink overrides the notification sink (defaults to an in-memory log).
func WithEventSink(sink types.EventSink) Option {
	return func(g *Gate) { g.sink = sink }
}

func NewGate(holder types.Address, opts ...Option) (*Gate, error) {
	if types.IsZero(holder) {
		return nil, fmt.Errorf("initial role holder: %w", types.ErrZeroAddress)
	}
	g := &Gate{holder: holder}
	for _, opt := range opts {
		opt(g)
	}
	if g.sink == nil {
		g.sink = &types.EventLog{}
	}
	return g, nil
}

// Holder returns the current holder of the privileged role.
func (g *Gate) Holder() types.Address {
	return g.holder
}

// Pending returns the nominated successor, or the zero address if no
// handover is in flight.
func (g *Gate) Pending() types.Address {
	return g.pending
}

// RequireHolder fails with ErrNotOwner unless caller holds the role.
func (g *Gate) RequireHolder(caller types.Address) error {
	if caller != g.holder {
		return fmt.Errorf("caller %s: %w", caller, types.ErrNotOwner)
	}
	return nil
}

// Request nominates newOwner as the successor. Only the current holder may
// nominate, only one handover can be in flight at a time.
func (g *Gate) Request(caller, newOwner types.Address) error {
	if err := g.RequireHolder(caller); err != nil {
		return err
	}
	if types.IsZero(newOwner) {
		return fmt.Errorf("new role holder: %w", types.ErrZeroAddress)
	}
	if newOwner == g.holder {
		return fmt.Errorf("nominating %s: %w", newOwner, types.ErrSelfHandover)
	}
	if !types.IsZero(g.pending) {
		return fmt.Errorf("handover to %s in flight: %w", g.pending, types.ErrHandoverPending)
	}
	g.pending = newOwner
	g.sink.Emit(types.HandoverRequestedEvent{Previous: g.holder, Pending: newOwner})
	return nil
}

// Accept commits the in-flight handover. Only the nominated successor may
// accept.
func (g *Gate) Accept(caller types.Address) error {
	if types.IsZero(g.pending) || caller != g.pending {
		return fmt.Errorf("caller %s: %w", caller, types.ErrNotPendingOwner)
	}
	previous := g.holder
	g.holder = g.pending
	g.pending = types.ZeroAddress
	g.sink.Emit(types.HandoverCommittedEvent{Previous: previous, New: g.holder})
	return nil
}

// Cancel discards the in-flight handover. Only the current holder may cancel.
func (g *Gate) Cancel(caller types.Address) error {
	if err := g.RequireHolder(caller); err != nil {
		return err
	}
	if types.IsZero(g.pending) {
		return types.ErrNoHandover
	}
	g.pending = types.ZeroAddress
	g.sink.Emit(types.HandoverCancelledEvent{Previous: g.holder})
	return nil
}
