package core

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// State is the externally visible phase of an auction.
type State int

const (
	StateCommitting State = iota
	StateRevealing
	StateAwaitingFinalizeSellerOnly
	StateAwaitingFinalizeAnyParticipant
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateCommitting:
		return "committing"
	case StateRevealing:
		return "revealing"
	case StateAwaitingFinalizeSellerOnly:
		return "awaiting_finalize_seller_only"
	case StateAwaitingFinalizeAnyParticipant:
		return "awaiting_finalize_any_participant"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// FinalizeDecision is the outcome of a finalize authorization check.
type FinalizeDecision int

const (
	// FinalizeAllowed means the caller may finalize now.
	FinalizeAllowed FinalizeDecision = iota
	// FinalizeNotYet means the reveal window has not ended.
	FinalizeNotYet
	// FinalizeSellerOnly means only the seller may finalize until the grace deadline.
	FinalizeSellerOnly
	// FinalizeDenied means the caller holds no commitment and is not the seller.
	FinalizeDenied
)

// Err maps a decision to the rejection a caller sees, or nil when allowed.
func (d FinalizeDecision) Err() error {
	switch d {
	case FinalizeAllowed:
		return nil
	case FinalizeNotYet:
		return ErrFinalizeTooEarly
	case FinalizeSellerOnly:
		return ErrFinalizeGraceActive
	default:
		return ErrOnlyParticipant
	}
}

// IsCommitOpen reports whether commitments are accepted at now.
func (c *Config) IsCommitOpen(now time.Time) bool {
	return now.Before(c.CommitDeadline)
}

// IsRevealOpen reports whether reveals are accepted at now.
func (c *Config) IsRevealOpen(now time.Time) bool {
	return !now.Before(c.CommitDeadline) && now.Before(c.RevealDeadline)
}

// FinalizeAuthorization decides whether caller may finalize at now.
// The seller may finalize as soon as the reveal window closes; anyone holding
// a commitment may do so once the grace period has also passed.
func (c *Config) FinalizeAuthorization(now time.Time, caller common.Address, hasCommitment bool) FinalizeDecision {
	if now.Before(c.RevealDeadline) {
		return FinalizeNotYet
	}
	if c.IsSeller(caller) {
		return FinalizeAllowed
	}
	if now.Before(c.FinalizeGraceDeadline) {
		return FinalizeSellerOnly
	}
	if !hasCommitment {
		return FinalizeDenied
	}
	return FinalizeAllowed
}

// State derives the auction state at now. Settled is terminal.
func (c *Config) State(now time.Time, settled bool) State {
	switch {
	case settled:
		return StateSettled
	case now.Before(c.CommitDeadline):
		return StateCommitting
	case now.Before(c.RevealDeadline):
		return StateRevealing
	case now.Before(c.FinalizeGraceDeadline):
		return StateAwaitingFinalizeSellerOnly
	default:
		return StateAwaitingFinalizeAnyParticipant
	}
}
