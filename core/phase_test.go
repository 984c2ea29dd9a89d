package core

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestPhaseGate_Windows(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		name       string
		at         time.Time
		commitOpen bool
		revealOpen bool
	}{
		{"at start", testStart, true, false},
		{"just before commit deadline", cfg.CommitDeadline.Add(-time.Nanosecond), true, false},
		{"at commit deadline", cfg.CommitDeadline, false, true},
		{"just before reveal deadline", cfg.RevealDeadline.Add(-time.Nanosecond), false, true},
		{"at reveal deadline", cfg.RevealDeadline, false, false},
		{"long after", cfg.FinalizeGraceDeadline.Add(24 * time.Hour), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check.Equal(t, tt.commitOpen, cfg.IsCommitOpen(tt.at))
			check.Equal(t, tt.revealOpen, cfg.IsRevealOpen(tt.at))
		})
	}
}

func TestFinalizeAuthorization(t *testing.T) {
	cfg := testConfig(t)
	duringGrace := cfg.RevealDeadline.Add(time.Minute)

	tests := []struct {
		name          string
		at            time.Time
		caller        string
		hasCommitment bool
		want          FinalizeDecision
		wantErr       error
	}{
		{"seller during reveal", cfg.CommitDeadline, "seller", false, FinalizeNotYet, ErrFinalizeTooEarly},
		{"seller at reveal deadline", cfg.RevealDeadline, "seller", false, FinalizeAllowed, nil},
		{"seller during grace", duringGrace, "seller", false, FinalizeAllowed, nil},
		{"participant during reveal", cfg.CommitDeadline, "bidder", true, FinalizeNotYet, ErrFinalizeTooEarly},
		{"participant during grace", duringGrace, "bidder", true, FinalizeSellerOnly, ErrFinalizeGraceActive},
		{"participant at grace deadline", cfg.FinalizeGraceDeadline, "bidder", true, FinalizeAllowed, nil},
		{"non-participant during grace", duringGrace, "bidder", false, FinalizeSellerOnly, ErrFinalizeGraceActive},
		{"non-participant after grace", cfg.FinalizeGraceDeadline, "bidder", false, FinalizeDenied, ErrOnlyParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := bidder1
			if tt.caller == "seller" {
				caller = seller
			}

			got := cfg.FinalizeAuthorization(tt.at, caller, tt.hasCommitment)
			check.Equal(t, tt.want, got)

			err := got.Err()
			if tt.wantErr == nil {
				check.Nil(t, err)
			} else {
				check.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestState_Transitions(t *testing.T) {
	cfg := testConfig(t)

	check.Equal(t, StateCommitting, cfg.State(testStart, false))
	check.Equal(t, StateRevealing, cfg.State(cfg.CommitDeadline, false))
	check.Equal(t, StateAwaitingFinalizeSellerOnly, cfg.State(cfg.RevealDeadline, false))
	check.Equal(t, StateAwaitingFinalizeAnyParticipant, cfg.State(cfg.FinalizeGraceDeadline, false))

	// Settled wins regardless of the clock.
	check.Equal(t, StateSettled, cfg.State(testStart, true))
	check.Equal(t, StateSettled, cfg.State(cfg.FinalizeGraceDeadline.Add(time.Hour), true))

	check.Equal(t, "awaiting_finalize_seller_only", StateAwaitingFinalizeSellerOnly.String())
}
