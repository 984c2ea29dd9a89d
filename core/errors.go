package core

import (
	"github.com/go-faster/errors"
)

// Class groups error codes by what the caller should do about them.
type Class string

const (
	// ClassValidation means the input was wrong; fix it and resubmit.
	ClassValidation Class = "validation"
	// ClassPhase means the call is not allowed for this caller at this time.
	ClassPhase Class = "phase"
	// ClassTerminal means the action has already happened.
	ClassTerminal Class = "terminal"
	// ClassInternal means the host failed while executing an otherwise valid call.
	ClassInternal Class = "internal"
)

// Code is a stable, enumerable identifier for a rejection.
type Code string

// Error is a rejection of a single call. No state changes accompany it.
type Error struct {
	Code  Code
	Class Class
	msg   string
}

func (e *Error) Error() string { return e.msg }

func newError(code Code, class Class, msg string) *Error {
	return &Error{Code: code, Class: class, msg: msg}
}

// Construction errors.
var (
	ErrInvalidK         = newError("invalid_k", ClassValidation, "k=0")
	ErrInvalidDurations = newError("invalid_durations", ClassValidation, "bad durations")
	ErrInvalidGrace     = newError("invalid_grace", ClassValidation, "bad finalize grace")
)

// Commit errors.
var (
	ErrCommitClosed     = newError("commit_closed", ClassPhase, "commit closed")
	ErrNotWhitelisted   = newError("not_whitelisted", ClassValidation, "not whitelisted")
	ErrDepositTooSmall  = newError("deposit_too_small", ClassValidation, "deposit too small")
	ErrAlreadyCommitted = newError("already_committed", ClassTerminal, "already committed")
)

// Reveal errors.
var (
	ErrRevealClosed    = newError("reveal_closed", ClassPhase, "reveal closed")
	ErrNoCommitment    = newError("no_commitment", ClassPhase, "no commit")
	ErrAlreadyRevealed = newError("already_revealed", ClassTerminal, "already revealed")
	ErrCommitMismatch  = newError("commit_mismatch", ClassValidation, "commit mismatch")
	ErrBadEscrow       = newError("bad_escrow", ClassValidation, "bad escrow")
)

// Finalize errors.
var (
	ErrAlreadySettled      = newError("already_settled", ClassTerminal, "settled")
	ErrFinalizeTooEarly    = newError("finalize_too_early", ClassPhase, "reveal not ended")
	ErrFinalizeGraceActive = newError("finalize_grace_active", ClassPhase, "finalize grace active")
	ErrOnlyParticipant     = newError("only_participant", ClassPhase, "only participant")
	ErrPayoutFailed        = newError("payout_failed", ClassInternal, "payout failed")
)

// AllErrors lists every rejection the settlement core can produce.
var AllErrors = []*Error{
	ErrInvalidK, ErrInvalidDurations, ErrInvalidGrace,
	ErrCommitClosed, ErrNotWhitelisted, ErrDepositTooSmall, ErrAlreadyCommitted,
	ErrRevealClosed, ErrNoCommitment, ErrAlreadyRevealed, ErrCommitMismatch, ErrBadEscrow,
	ErrAlreadySettled, ErrFinalizeTooEarly, ErrFinalizeGraceActive, ErrOnlyParticipant, ErrPayoutFailed,
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ClassOf returns the class of the first *Error in err's chain.
// Errors that did not originate here are reported as ClassInternal.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassInternal
}
