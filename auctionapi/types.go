package auctionapi

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/cloudx-io/uniformauction/core"
)

// Request types accepted by the auction server.
const (
	TypePing          = "ping"
	TypeCreateAuction = "create_auction"
	TypeCommitBid     = "commit_bid"
	TypeRevealBid     = "reveal_bid"
	TypeFinalize      = "finalize"
	TypeAuctionStatus = "auction_status"
)

// Response types.
const (
	TypePong                  = "pong"
	TypeError                 = "error"
	TypeAck                   = "ack"
	TypeCreateAuctionResponse = "create_auction_response"
	TypeFinalizeResponse      = "finalize_response"
	TypeStatusResponse        = "auction_status_response"
)

// Request is the envelope every request shares. The server decodes it first
// to pick the concrete request type.
type Request struct {
	Type string `json:"type"`
}

// CreateAuctionRequest opens a new auction. Amounts are decimal wei strings
// and durations are whole seconds, counted from the server clock at receipt.
type CreateAuctionRequest struct {
	Type                  string `json:"type"`
	Seller                string `json:"seller"`
	K                     uint64 `json:"k"`
	CommitDurationSeconds int64  `json:"commit_duration_seconds"`
	RevealDurationSeconds int64  `json:"reveal_duration_seconds"`
	FinalizeGraceSeconds  int64  `json:"finalize_grace_seconds"`
	ReservePrice          string `json:"reserve_price"`
	MinDeposit            string `json:"min_deposit"`
	FinalizeReward        string `json:"finalize_reward"`
	WhitelistRoot         string `json:"whitelist_root,omitempty"`
	WhitelistOn           bool   `json:"whitelist_on"`
}

// CreateAuctionResponse returns the new auction's ID and escrow account.
type CreateAuctionResponse struct {
	Type      string        `json:"type"`
	AuctionID string        `json:"auction_id"`
	Account   string        `json:"account"`
	Status    AuctionStatus `json:"status"`
}

// CommitBidRequest submits a sealed bid. Deposit is the value sent with it.
type CommitBidRequest struct {
	Type       string   `json:"type"`
	AuctionID  string   `json:"auction_id"`
	Bidder     string   `json:"bidder"`
	CommitHash string   `json:"commit_hash"`
	Proof      []string `json:"proof,omitempty"`
	Deposit    string   `json:"deposit"`
}

// RevealBidRequest opens a sealed bid. Escrow must equal price*qty.
type RevealBidRequest struct {
	Type      string `json:"type"`
	AuctionID string `json:"auction_id"`
	Bidder    string `json:"bidder"`
	Qty       uint64 `json:"qty"`
	Price     string `json:"price"`
	Salt      string `json:"salt"`
	RandPart  string `json:"rand_part"`
	Escrow    string `json:"escrow"`
}

// FinalizeRequest settles an auction on behalf of Caller.
type FinalizeRequest struct {
	Type      string `json:"type"`
	AuctionID string `json:"auction_id"`
	Caller    string `json:"caller"`
}

// Snapshot encodings an auction_status request may ask for.
const (
	StatusEncodingJSON = "json"
	StatusEncodingCBOR = "cbor"
)

// AuctionStatusRequest asks for a snapshot of one auction. With Encoding
// "cbor" the response also carries the snapshot as deterministic CBOR.
type AuctionStatusRequest struct {
	Type      string `json:"type"`
	AuctionID string `json:"auction_id"`
	Encoding  string `json:"encoding,omitempty"`
}

// AckResponse confirms a commit or reveal.
type AckResponse struct {
	Type      string `json:"type"`
	AuctionID string `json:"auction_id"`
	Bidder    string `json:"bidder"`
}

// FinalizeResponse carries the settlement outcome and, when the server signs
// receipts, the COSE_Sign1 receipt in standard base64.
type FinalizeResponse struct {
	Type           string            `json:"type"`
	AuctionID      string            `json:"auction_id"`
	Sold           bool              `json:"sold"`
	ClearingPrice  string            `json:"clearing_price"`
	TotalUnitsSold uint64            `json:"total_units_sold"`
	SellerPayout   string            `json:"seller_payout"`
	Reward         string            `json:"reward"`
	Finalizer      string            `json:"finalizer"`
	Receipt        ReceiptCOSEBase64 `json:"receipt,omitempty"`
	ProcessingTime int64             `json:"processing_time_ms"`
}

// StatusResponse wraps a snapshot.
type StatusResponse struct {
	Type   string        `json:"type"`
	Status AuctionStatus `json:"status"`
	// StatusCBOR is the standard base64 of MarshalStatus(Status).
	StatusCBOR string `json:"status_cbor,omitempty"`
}

// PongResponse answers a ping.
type PongResponse struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorResponse reports a rejected request. Code and Class are stable and
// come from the core error taxonomy; malformed requests use class "validation"
// and code "bad_request".
type ErrorResponse struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Class   string `json:"class"`
	Message string `json:"message"`
}

// AuctionConfig is the wire form of core.Config. Deadlines are unix seconds.
type AuctionConfig struct {
	Seller                string `json:"seller"`
	K                     uint64 `json:"k"`
	ReservePrice          string `json:"reserve_price"`
	MinDeposit            string `json:"min_deposit"`
	StartTime             int64  `json:"start_time"`
	CommitDeadline        int64  `json:"commit_deadline"`
	RevealDeadline        int64  `json:"reveal_deadline"`
	FinalizeGraceDeadline int64  `json:"finalize_grace_deadline"`
	FinalizeReward        string `json:"finalize_reward"`
	WhitelistRoot         string `json:"whitelist_root"`
	WhitelistOn           bool   `json:"whitelist_on"`
}

// NewAuctionConfig converts cfg to its wire form.
func NewAuctionConfig(cfg core.Config) AuctionConfig {
	return AuctionConfig{
		Seller:                cfg.Seller.Hex(),
		K:                     cfg.K,
		ReservePrice:          cfg.ReservePrice.Dec(),
		MinDeposit:            cfg.MinDeposit.Dec(),
		StartTime:             cfg.StartTime.Unix(),
		CommitDeadline:        cfg.CommitDeadline.Unix(),
		RevealDeadline:        cfg.RevealDeadline.Unix(),
		FinalizeGraceDeadline: cfg.FinalizeGraceDeadline.Unix(),
		FinalizeReward:        cfg.FinalizeReward.Dec(),
		WhitelistRoot:         cfg.WhitelistRoot.Hex(),
		WhitelistOn:           cfg.WhitelistOn,
	}
}

// AuctionStatus is a point-in-time view of an auction.
type AuctionStatus struct {
	AuctionID   string             `json:"auction_id,omitempty"`
	Account     string             `json:"account"`
	Config      AuctionConfig      `json:"config"`
	State       string             `json:"state"`
	Settled     bool               `json:"settled"`
	AsOf        int64              `json:"as_of"`
	Commitments []CommitmentStatus `json:"commitments"`
	Reveals     []RevealStatus     `json:"reveals"`
	Result      *ResultSummary     `json:"result,omitempty"`
}

// CommitmentStatus is one bidder's commitment. Deposit reads "0" after reveal.
type CommitmentStatus struct {
	Bidder   string `json:"bidder"`
	Hash     string `json:"hash"`
	Deposit  string `json:"deposit"`
	Revealed bool   `json:"revealed"`
}

// RevealStatus is one opened bid, in reveal order.
type RevealStatus struct {
	Bidder   string `json:"bidder"`
	Qty      uint64 `json:"qty"`
	Price    string `json:"price"`
	RandPart string `json:"rand_part"`
	Seq      int    `json:"seq"`
}

// ResultSummary is the finalize outcome inside a snapshot.
type ResultSummary struct {
	Sold           bool   `json:"sold"`
	ClearingPrice  string `json:"clearing_price"`
	TotalUnitsSold uint64 `json:"total_units_sold"`
	SellerPayout   string `json:"seller_payout"`
	Reward         string `json:"reward"`
	Finalizer      string `json:"finalizer"`
	SettledAt      int64  `json:"settled_at"`
}

// SettlementReceipt is the signed record of one finalize. It holds enough to
// recheck allocation and conservation offline.
type SettlementReceipt struct {
	AuctionID      string             `json:"auction_id"`
	Account        string             `json:"account"`
	Config         AuctionConfig      `json:"config"`
	Sold           bool               `json:"sold"`
	ClearingPrice  string             `json:"clearing_price"`
	TotalUnitsSold uint64             `json:"total_units_sold"`
	Held           string             `json:"held"`
	SlashedPool    string             `json:"slashed_pool"`
	TotalProceeds  string             `json:"total_proceeds"`
	SellerPayout   string             `json:"seller_payout"`
	Reward         string             `json:"reward"`
	Finalizer      string             `json:"finalizer"`
	Bidders        []BidderOutcome    `json:"bidders"`
	Forfeited      []ForfeitedDeposit `json:"forfeited"`
	SettledAt      int64              `json:"settled_at"`
}

// BidderOutcome is one revealed bidder's settlement line.
type BidderOutcome struct {
	Bidder   string `json:"bidder"`
	Qty      uint64 `json:"qty"`
	Price    string `json:"price"`
	UnitsWon uint64 `json:"units_won"`
	Cost     string `json:"cost"`
	Refund   string `json:"refund"`
}

// ForfeitedDeposit is a deposit slashed because its bidder never revealed.
type ForfeitedDeposit struct {
	Bidder  string `json:"bidder"`
	Deposit string `json:"deposit"`
}

// NewSettlementReceipt builds the receipt body for a settled auction.
func NewSettlementReceipt(auctionID string, account common.Address, cfg core.Config, s *core.Settlement, settledAt int64) *SettlementReceipt {
	r := &SettlementReceipt{
		AuctionID:      auctionID,
		Account:        account.Hex(),
		Config:         NewAuctionConfig(cfg),
		Sold:           s.Allocation.Sold,
		ClearingPrice:  s.Allocation.ClearingPrice.Dec(),
		TotalUnitsSold: s.Allocation.TotalUnitsSold,
		Held:           s.Held.Dec(),
		SlashedPool:    s.SlashedPool.Dec(),
		TotalProceeds:  s.TotalProceeds.Dec(),
		SellerPayout:   s.SellerPayout.Dec(),
		Reward:         s.Reward.Dec(),
		Finalizer:      s.Finalizer.Hex(),
		Bidders:        make([]BidderOutcome, 0, len(s.Bidders)),
		Forfeited:      make([]ForfeitedDeposit, 0, len(s.Forfeited)),
		SettledAt:      settledAt,
	}
	for _, b := range s.Bidders {
		r.Bidders = append(r.Bidders, BidderOutcome{
			Bidder:   b.Bidder.Hex(),
			Qty:      b.Qty,
			Price:    b.Price.Dec(),
			UnitsWon: b.UnitsWon,
			Cost:     b.Cost.Dec(),
			Refund:   b.Refund.Dec(),
		})
	}
	for _, f := range s.Forfeited {
		r.Forfeited = append(r.Forfeited, ForfeitedDeposit{Bidder: f.Bidder.Hex(), Deposit: f.Deposit.Dec()})
	}
	return r
}
