package core

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Params are the seller-chosen parameters of an auction, before deadlines are fixed.
type Params struct {
	Seller         common.Address
	K              uint64
	CommitDuration time.Duration
	RevealDuration time.Duration
	ReservePrice   uint256.Int
	MinDeposit     uint256.Int
	FinalizeGrace  time.Duration
	FinalizeReward uint256.Int
	WhitelistRoot  common.Hash
	WhitelistOn    bool
}

// Config is the immutable configuration of one auction instance.
// All deadlines are derived once from the start time.
type Config struct {
	Seller                common.Address
	K                     uint64
	ReservePrice          uint256.Int
	MinDeposit            uint256.Int
	StartTime             time.Time
	CommitDeadline        time.Time
	RevealDeadline        time.Time
	FinalizeGrace         time.Duration
	FinalizeGraceDeadline time.Time
	FinalizeReward        uint256.Int
	WhitelistRoot         common.Hash
	WhitelistOn           bool
}

// NewConfig validates params and fixes the phase deadlines relative to start.
func NewConfig(p Params, start time.Time) (Config, error) {
	if p.K < 1 {
		return Config{}, ErrInvalidK
	}
	if p.CommitDuration <= 0 || p.RevealDuration <= 0 {
		return Config{}, ErrInvalidDurations
	}
	if p.FinalizeGrace <= 0 {
		return Config{}, ErrInvalidGrace
	}

	commitDeadline := start.Add(p.CommitDuration)
	revealDeadline := commitDeadline.Add(p.RevealDuration)

	return Config{
		Seller:                p.Seller,
		K:                     p.K,
		ReservePrice:          p.ReservePrice,
		MinDeposit:            p.MinDeposit,
		StartTime:             start,
		CommitDeadline:        commitDeadline,
		RevealDeadline:        revealDeadline,
		FinalizeGrace:         p.FinalizeGrace,
		FinalizeGraceDeadline: revealDeadline.Add(p.FinalizeGrace),
		FinalizeReward:        p.FinalizeReward,
		WhitelistRoot:         p.WhitelistRoot,
		WhitelistOn:           p.WhitelistOn,
	}, nil
}

// IsSeller reports whether addr is the seller of this auction.
func (c *Config) IsSeller(addr common.Address) bool {
	return addr == c.Seller
}
