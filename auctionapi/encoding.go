// Package auctionapi holds the wire types shared by the auction server, its
// clients and the receipt validator, plus the transport encodings of signed
// settlement receipts.
package auctionapi

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// MaxReceiptSize bounds a decompressed receipt.
const MaxReceiptSize = 1 << 20

// ReceiptCOSE is a raw COSE_Sign1 settlement receipt.
type ReceiptCOSE []byte

// ReceiptCOSEBase64 is a receipt in standard base64, as returned by finalize.
type ReceiptCOSEBase64 string

// ReceiptCOSEURLBase64 is a receipt in URL-safe base64, as pasted from a
// link or a wallet that re-encodes the finalize response.
type ReceiptCOSEURLBase64 string

// ReceiptCOSEGzip is a gzip-compressed receipt in unpadded URL-safe base64,
// compact enough for query strings.
type ReceiptCOSEGzip string

func (r ReceiptCOSE) EncodeBase64() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.StdEncoding.EncodeToString(r))
}

// CompressGzip compresses the receipt. The gzip header carries no name or
// timestamp, so equal input gives equal output.
func (r ReceiptCOSE) CompressGzip() (ReceiptCOSEGzip, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(r); err != nil {
		return "", fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip close: %w", err)
	}
	return ReceiptCOSEGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

func (s ReceiptCOSEBase64) String() string { return string(s) }

func (s ReceiptCOSEBase64) Decode() (ReceiptCOSE, error) {
	raw, err := base64.StdEncoding.DecodeString(string(s))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64: %w", err)
	}
	return ReceiptCOSE(raw), nil
}

func (s ReceiptCOSEBase64) CompressGzip() (ReceiptCOSEGzip, error) {
	raw, err := s.Decode()
	if err != nil {
		return "", err
	}
	return raw.CompressGzip()
}

func (s ReceiptCOSEURLBase64) String() string { return string(s) }

// Decode accepts the string with or without trailing padding.
func (s ReceiptCOSEURLBase64) Decode() (ReceiptCOSE, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(string(s), "="))
	if err != nil {
		return nil, fmt.Errorf("decode base64url: %w", err)
	}
	return ReceiptCOSE(raw), nil
}

func (s ReceiptCOSEGzip) String() string { return string(s) }

func (s ReceiptCOSEGzip) Decompress() (ReceiptCOSE, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(string(s))
	if err != nil {
		return nil, fmt.Errorf("decode base64url: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, MaxReceiptSize+1))
	if err != nil {
		return nil, fmt.Errorf("read gzip: %w", err)
	}
	if len(raw) > MaxReceiptSize {
		return nil, fmt.Errorf("gzip receipt exceeds %d bytes", MaxReceiptSize)
	}
	return ReceiptCOSE(raw), nil
}

var receiptEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// MarshalReceipt encodes r as deterministic CBOR, the signed payload of a
// receipt.
func MarshalReceipt(r *SettlementReceipt) ([]byte, error) {
	data, err := receiptEncMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}
	return data, nil
}

// UnmarshalReceipt decodes a receipt payload.
func UnmarshalReceipt(data []byte) (*SettlementReceipt, error) {
	var r SettlementReceipt
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &r, nil
}

// MarshalStatus encodes a snapshot as CBOR.
func MarshalStatus(s *AuctionStatus) ([]byte, error) {
	data, err := receiptEncMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}
	return data, nil
}
