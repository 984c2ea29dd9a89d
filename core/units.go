package core

import (
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const etherDecimals int32 = 18

// ParseEther converts a decimal ether amount such as "0.5" to wei.
// Uses decimal arithmetic so no precision is lost on the way.
func ParseEther(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse ether amount %q", s)
	}
	if d.IsNegative() {
		return nil, errors.Errorf("negative ether amount %q", s)
	}
	wei := d.Shift(etherDecimals)
	if !wei.IsInteger() {
		return nil, errors.Errorf("ether amount %q has more than %d decimals", s, etherDecimals)
	}
	v, overflow := uint256.FromBig(wei.BigInt())
	if overflow {
		return nil, errors.Errorf("ether amount %q overflows 256 bits", s)
	}
	return v, nil
}

// MustParseEther is ParseEther for constants; it panics on bad input.
func MustParseEther(s string) *uint256.Int {
	v, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatEther renders a wei amount as a decimal ether string.
func FormatEther(wei *uint256.Int) string {
	return decimal.NewFromBigInt(wei.ToBig(), -etherDecimals).String()
}
