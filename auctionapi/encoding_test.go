package auctionapi

import (
	"encoding/base64"
	"regexp"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func samplePayload(t *testing.T) ReceiptCOSE {
	t.Helper()
	data, err := MarshalReceipt(&SettlementReceipt{
		AuctionID:     "7d3c0a52-8f1e-4d0b-9a55-0c4a8b0f2e11",
		Account:       "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		ClearingPrice: "200000000000000000",
		Bidders: []BidderOutcome{
			{Bidder: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", Qty: 2, Price: "200000000000000000", UnitsWon: 1},
		},
	})
	assert.NoError(t, err)
	return ReceiptCOSE(data)
}

func TestReceiptCOSE_TransportForms(t *testing.T) {
	raw := samplePayload(t)

	std := raw.EncodeBase64()
	decoded, err := std.Decode()
	assert.NoError(t, err)
	check.Equal(t, raw, decoded)

	url := ReceiptCOSEURLBase64(base64.RawURLEncoding.EncodeToString(raw))
	decoded, err = url.Decode()
	assert.NoError(t, err)
	check.Equal(t, raw, decoded)

	gz, err := raw.CompressGzip()
	assert.NoError(t, err)
	check.True(t, urlSafe.MatchString(gz.String()))
	check.True(t, strings.HasPrefix(gz.String(), "H4sI"))
	decoded, err = gz.Decompress()
	assert.NoError(t, err)
	check.Equal(t, raw, decoded)

	// The base64 form a finalize response carries converts straight to the
	// form bidders are sent.
	fromStd, err := std.CompressGzip()
	assert.NoError(t, err)
	check.Equal(t, gz, fromStd)
}

func TestReceiptCOSEURLBase64_Padding(t *testing.T) {
	tests := []struct {
		input ReceiptCOSEURLBase64
		want  string
	}{
		{"YWJj", "abc"},
		{"dGVzdA", "test"},
		{"dGVzdGluZw", "testing"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := tt.input.Decode()
			assert.NoError(t, err)
			check.Equal(t, tt.want, string(got))
		})
	}
}

func TestReceiptCOSEGzip_SizeLimit(t *testing.T) {
	atLimit, err := ReceiptCOSE(make([]byte, MaxReceiptSize)).CompressGzip()
	assert.NoError(t, err)
	raw, err := atLimit.Decompress()
	assert.NoError(t, err)
	check.Equal(t, MaxReceiptSize, len(raw))

	// highly compressible, so the encoded form stays small
	bomb, err := ReceiptCOSE(make([]byte, 4*MaxReceiptSize)).CompressGzip()
	assert.NoError(t, err)
	check.True(t, len(bomb) < MaxReceiptSize/64)
	raw, err = bomb.Decompress()
	assert.Error(t, err)
	check.Nil(t, raw)
	check.True(t, strings.Contains(err.Error(), "exceeds"))
}

func TestReceiptCOSE_DecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		decode  func() (ReceiptCOSE, error)
		errPart string
	}{
		{"base64 illegal characters", ReceiptCOSEBase64("not-valid-base64!!!@@@").Decode, "decode COSE base64"},
		{"base64 bad padding", ReceiptCOSEBase64("abc").Decode, "decode COSE base64"},
		{"gzip form not base64url", ReceiptCOSEGzip("!!!invalid!!!").Decompress, "decode base64url"},
		{"gzip form not gzip", ReceiptCOSEGzip("bW9jaw").Decompress, "gzip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.decode()
			assert.Error(t, err)
			check.Nil(t, got)
			check.True(t, strings.Contains(err.Error(), tt.errPart))
		})
	}
}
