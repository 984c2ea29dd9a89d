package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/cloudx-io/uniformauction/auction"
	"github.com/cloudx-io/uniformauction/auctionapi"
	"github.com/cloudx-io/uniformauction/auctionapi/parsing"
	"github.com/cloudx-io/uniformauction/core"
	"github.com/cloudx-io/uniformauction/receipt"
)

// ErrUnknownAuction is returned for an auction ID that is not registered.
var ErrUnknownAuction = errors.New("unknown auction")

// Codes for rejections that do not come from the settlement core.
const (
	CodeBadRequest     core.Code = "bad_request"
	CodeUnknownAuction core.Code = "unknown_auction"
	CodeInternal       core.Code = "internal"
)

// requestError marks a request that could not be decoded or parsed.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

// maxDurationSeconds is the largest whole-second count a time.Duration holds.
const maxDurationSeconds = int64(math.MaxInt64 / time.Second)

func durationSeconds(field string, secs int64) (time.Duration, error) {
	if secs > maxDurationSeconds || secs < -maxDurationSeconds {
		return 0, badRequest(errors.Errorf("%s: %d out of range", field, secs))
	}
	return time.Duration(secs) * time.Second, nil
}

func decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return badRequest(errors.Wrap(err, "decode request"))
	}
	return nil
}

// HandleRequest dispatches one raw JSON request and returns the response to
// encode. Rejections come back as auctionapi.ErrorResponse.
func (s *Server) HandleRequest(ctx context.Context, raw []byte) any {
	var base auctionapi.Request
	if err := decode(raw, &base); err != nil {
		observeOperation("unknown", string(CodeBadRequest))
		return errorResponse(err)
	}
	s.logger.Debug("Received request", zap.String("type", base.Type))

	var (
		response any
		err      error
		op       = base.Type
	)
	switch base.Type {
	case auctionapi.TypePing:
		response = auctionapi.PongResponse{
			Type:      auctionapi.TypePong,
			Message:   "auction server is healthy",
			Timestamp: s.now().Unix(),
		}
	case auctionapi.TypeCreateAuction:
		response, err = s.handleCreateAuction(raw)
	case auctionapi.TypeCommitBid:
		response, err = s.handleCommitBid(ctx, raw)
	case auctionapi.TypeRevealBid:
		response, err = s.handleRevealBid(ctx, raw)
	case auctionapi.TypeFinalize:
		response, err = s.handleFinalize(ctx, raw)
	case auctionapi.TypeAuctionStatus:
		response, err = s.handleAuctionStatus(raw)
	default:
		op = "unknown"
		err = badRequest(errors.Errorf("unknown request type %q", base.Type))
	}

	if err != nil {
		resp := errorResponse(err)
		observeOperation(op, resp.Code)
		s.logger.Info("Request rejected",
			zap.String("type", base.Type),
			zap.String("code", resp.Code),
			zap.Error(err),
		)
		return resp
	}
	observeOperation(op, "ok")
	return response
}

func errorResponse(err error) auctionapi.ErrorResponse {
	code, class := core.CodeOf(err), core.ClassOf(err)

	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		code, class = CodeBadRequest, core.ClassValidation
	case errors.Is(err, ErrUnknownAuction):
		code, class = CodeUnknownAuction, core.ClassValidation
	case code == "":
		code = CodeInternal
	}

	return auctionapi.ErrorResponse{
		Type:    auctionapi.TypeError,
		Code:    string(code),
		Class:   string(class),
		Message: err.Error(),
	}
}

func (s *Server) lookup(id string) (*auction.Auction, error) {
	a, ok := s.auctions.Load(id)
	if !ok {
		return nil, errors.Wrap(ErrUnknownAuction, id)
	}
	return a, nil
}

func (s *Server) handleCreateAuction(raw []byte) (any, error) {
	var req auctionapi.CreateAuctionRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}

	seller, err := parsing.ParseAddress(req.Seller)
	if err != nil {
		return nil, badRequest(err)
	}
	reserve, err := parsing.ParseWei(req.ReservePrice)
	if err != nil {
		return nil, badRequest(err)
	}
	minDeposit, err := parsing.ParseWei(req.MinDeposit)
	if err != nil {
		return nil, badRequest(err)
	}
	reward, err := parsing.ParseWei(req.FinalizeReward)
	if err != nil {
		return nil, badRequest(err)
	}
	root, err := parsing.ParseOptionalHash(req.WhitelistRoot)
	if err != nil {
		return nil, badRequest(err)
	}
	commitDuration, err := durationSeconds("commit_duration_seconds", req.CommitDurationSeconds)
	if err != nil {
		return nil, err
	}
	revealDuration, err := durationSeconds("reveal_duration_seconds", req.RevealDurationSeconds)
	if err != nil {
		return nil, err
	}
	grace, err := durationSeconds("finalize_grace_seconds", req.FinalizeGraceSeconds)
	if err != nil {
		return nil, err
	}

	id, a, err := s.CreateAuction(core.Params{
		Seller:         seller,
		K:              req.K,
		CommitDuration: commitDuration,
		RevealDuration: revealDuration,
		FinalizeGrace:  grace,
		ReservePrice:   *reserve,
		MinDeposit:     *minDeposit,
		FinalizeReward: *reward,
		WhitelistRoot:  root,
		WhitelistOn:    req.WhitelistOn,
	})
	if err != nil {
		return nil, err
	}

	status := a.Snapshot(s.now())
	status.AuctionID = id
	return auctionapi.CreateAuctionResponse{
		Type:      auctionapi.TypeCreateAuctionResponse,
		AuctionID: id,
		Account:   a.Account().Hex(),
		Status:    status,
	}, nil
}

func (s *Server) handleCommitBid(ctx context.Context, raw []byte) (any, error) {
	var req auctionapi.CommitBidRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	a, err := s.lookup(req.AuctionID)
	if err != nil {
		return nil, err
	}

	bidder, err := parsing.ParseAddress(req.Bidder)
	if err != nil {
		return nil, badRequest(err)
	}
	hash, err := parsing.ParseHash(req.CommitHash)
	if err != nil {
		return nil, badRequest(err)
	}
	proof, err := parsing.ParseProof(req.Proof)
	if err != nil {
		return nil, badRequest(err)
	}
	deposit, err := parsing.ParseWei(req.Deposit)
	if err != nil {
		return nil, badRequest(err)
	}

	call := auction.Call{From: bidder, Value: *deposit, At: s.now()}
	if err := a.CommitBid(ctx, call, hash, proof); err != nil {
		return nil, err
	}
	return auctionapi.AckResponse{Type: auctionapi.TypeAck, AuctionID: req.AuctionID, Bidder: bidder.Hex()}, nil
}

func (s *Server) handleRevealBid(ctx context.Context, raw []byte) (any, error) {
	var req auctionapi.RevealBidRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	a, err := s.lookup(req.AuctionID)
	if err != nil {
		return nil, err
	}

	bidder, err := parsing.ParseAddress(req.Bidder)
	if err != nil {
		return nil, badRequest(err)
	}
	price, err := parsing.ParseWei(req.Price)
	if err != nil {
		return nil, badRequest(err)
	}
	salt, err := parsing.ParseHash(req.Salt)
	if err != nil {
		return nil, badRequest(err)
	}
	randPart, err := parsing.ParseOptionalHash(req.RandPart)
	if err != nil {
		return nil, badRequest(err)
	}
	escrow, err := parsing.ParseWei(req.Escrow)
	if err != nil {
		return nil, badRequest(err)
	}

	call := auction.Call{From: bidder, Value: *escrow, At: s.now()}
	if err := a.RevealBid(ctx, call, req.Qty, price, salt, randPart); err != nil {
		return nil, err
	}
	return auctionapi.AckResponse{Type: auctionapi.TypeAck, AuctionID: req.AuctionID, Bidder: bidder.Hex()}, nil
}

func (s *Server) handleFinalize(ctx context.Context, raw []byte) (any, error) {
	startTime := time.Now()

	var req auctionapi.FinalizeRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	a, err := s.lookup(req.AuctionID)
	if err != nil {
		return nil, err
	}
	caller, err := parsing.ParseAddress(req.Caller)
	if err != nil {
		return nil, badRequest(err)
	}

	res, err := a.Finalize(ctx, auction.Call{From: caller, At: s.now()})
	if err != nil {
		return nil, err
	}

	resp := auctionapi.FinalizeResponse{
		Type:           auctionapi.TypeFinalizeResponse,
		AuctionID:      req.AuctionID,
		Sold:           res.Sold,
		ClearingPrice:  res.ClearingPrice.Dec(),
		TotalUnitsSold: res.TotalUnitsSold,
		SellerPayout:   res.SellerPayout.Dec(),
		Reward:         res.Reward.Dec(),
		Finalizer:      res.Finalizer.Hex(),
	}

	// The auction is settled at this point; a signing failure only costs
	// the receipt, not the response.
	if s.signer != nil {
		if msg, err := s.signReceipt(req.AuctionID, a); err != nil {
			s.logger.Error("Failed to sign settlement receipt", zap.String("auction_id", req.AuctionID), zap.Error(err))
		} else {
			resp.Receipt = msg.EncodeBase64()
		}
	}

	elapsed := time.Since(startTime)
	finalizeSeconds.Observe(elapsed.Seconds())
	resp.ProcessingTime = elapsed.Milliseconds()
	return resp, nil
}

func (s *Server) signReceipt(id string, a *auction.Auction) (auctionapi.ReceiptCOSE, error) {
	r, err := receipt.Build(id, a)
	if err != nil {
		return nil, err
	}
	return receipt.Sign(s.signer, r)
}

func (s *Server) handleAuctionStatus(raw []byte) (any, error) {
	var req auctionapi.AuctionStatusRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	a, err := s.lookup(req.AuctionID)
	if err != nil {
		return nil, err
	}

	status := a.Snapshot(s.now())
	status.AuctionID = req.AuctionID
	resp := auctionapi.StatusResponse{Type: auctionapi.TypeStatusResponse, Status: status}

	switch req.Encoding {
	case "", auctionapi.StatusEncodingJSON:
	case auctionapi.StatusEncodingCBOR:
		data, err := auctionapi.MarshalStatus(&status)
		if err != nil {
			return nil, err
		}
		resp.StatusCBOR = base64.StdEncoding.EncodeToString(data)
	default:
		return nil, badRequest(errors.Errorf("unknown status encoding %q", req.Encoding))
	}
	return resp, nil
}
