package core

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestNewConfig_Deadlines(t *testing.T) {
	cfg, err := NewConfig(testParams(), testStart)
	assert.NoError(t, err)

	check.Equal(t, seller, cfg.Seller)
	check.Equal(t, uint64(5), cfg.K)
	check.Equal(t, ether("0.1"), cfg.ReservePrice)
	check.Equal(t, ether("0.01"), cfg.MinDeposit)
	check.Equal(t, ether("0.005"), cfg.FinalizeReward)
	check.False(t, cfg.WhitelistOn)

	check.True(t, cfg.CommitDeadline.Equal(testStart.Add(time.Hour)))
	check.True(t, cfg.RevealDeadline.Equal(testStart.Add(2*time.Hour)))
	check.True(t, cfg.FinalizeGraceDeadline.Equal(testStart.Add(2*time.Hour+10*time.Minute)))
}

func TestNewConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
		want   error
	}{
		{"k=0", func(p *Params) { p.K = 0 }, ErrInvalidK},
		{"zero commit duration", func(p *Params) { p.CommitDuration = 0 }, ErrInvalidDurations},
		{"negative reveal duration", func(p *Params) { p.RevealDuration = -time.Second }, ErrInvalidDurations},
		{"zero finalize grace", func(p *Params) { p.FinalizeGrace = 0 }, ErrInvalidGrace},
		{"k checked before durations", func(p *Params) { p.K = 0; p.CommitDuration = 0 }, ErrInvalidK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(&p)

			_, err := NewConfig(p, testStart)
			check.True(t, errors.Is(err, tt.want))
			check.Equal(t, ClassValidation, ClassOf(err))
		})
	}
}

func TestNewConfig_SingleUnit(t *testing.T) {
	p := testParams()
	p.K = 1

	cfg, err := NewConfig(p, testStart)
	check.NoError(t, err)
	check.Equal(t, uint64(1), cfg.K)
}
