// Package server exposes auctions over a stream socket, TCP or AF_VSOCK.
// Each connection carries exactly one JSON request: the client writes it,
// half-closes, and reads a single JSON response.
//
// The server does not authenticate callers. Bidder, caller and seller
// addresses are taken from the request as given, so anyone who can reach the
// socket can act as any account in the ledger. Run it only behind a front end
// that verifies wallet signatures, or on a private socket such as a vsock
// channel to a trusted parent.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/mdlayher/vsock"
	"github.com/puzpuzpuz/xsync/v2"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/cloudx-io/uniformauction/auction"
	"github.com/cloudx-io/uniformauction/bank"
	"github.com/cloudx-io/uniformauction/config"
	"github.com/cloudx-io/uniformauction/core"
	"github.com/cloudx-io/uniformauction/receipt"
)

// Server owns the auction registry and the ledger they settle against.
type Server struct {
	cfg      config.ServerConfig
	bank     *bank.Memory
	auctions *xsync.MapOf[string, *auction.Auction]
	signer   *receipt.KeyManager
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now as the source of call timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithReceiptSigner makes finalize responses carry a signed receipt.
func WithReceiptSigner(km *receipt.KeyManager) Option {
	return func(s *Server) {
		s.signer = km
	}
}

// New creates a server settling against b.
func New(cfg config.ServerConfig, b *bank.Memory, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		bank:     b,
		auctions: xsync.NewMapOf[*auction.Auction](),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAuction starts a new auction now and registers it under a fresh ID.
func (s *Server) CreateAuction(params core.Params) (string, *auction.Auction, error) {
	cfg, err := core.NewConfig(params, s.now())
	if err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	account := accountFor(id)
	logger := s.logger.With(zap.String("auction_id", id))
	a := auction.New(account, cfg, s.bank,
		auction.WithLogger(logger),
		auction.WithEventSink(s.eventSink(logger)),
	)
	s.auctions.Store(id, a)
	auctionsGauge.Inc()

	logger.Info("Auction created",
		zap.Stringer("seller", cfg.Seller),
		zap.Stringer("account", account),
		zap.Uint64("k", cfg.K),
		zap.Time("commit_deadline", cfg.CommitDeadline),
		zap.Time("reveal_deadline", cfg.RevealDeadline),
		zap.Bool("whitelist", cfg.WhitelistOn),
	)
	return id, a, nil
}

// Auction looks up a registered auction.
func (s *Server) Auction(id string) (*auction.Auction, bool) {
	return s.auctions.Load(id)
}

// accountFor derives the escrow account of an auction from its ID.
func accountFor(id string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(id))[12:])
}

func (s *Server) eventSink(logger *zap.Logger) auction.EventSink {
	return auction.EventSinkFunc(func(e auction.Event) {
		eventsTotal.WithLabelValues(string(e.Kind)).Inc()
		logger.Debug("Auction event",
			zap.String("kind", string(e.Kind)),
			zap.Uint64("seq", e.Seq),
			zap.Stringer("bidder", e.Bidder),
		)
	})
}

// Listen opens the configured transport.
func (s *Server) Listen() (net.Listener, error) {
	switch s.cfg.Transport {
	case config.TransportVsock:
		ln, err := vsock.Listen(s.cfg.VsockPort, nil)
		if err != nil {
			return nil, errors.Wrap(err, "create vsock listener")
		}
		s.logger.Info("Server listening on vsock", zap.Uint32("port", s.cfg.VsockPort))
		return ln, nil
	default:
		ln, err := net.Listen("tcp", s.cfg.Addr)
		if err != nil {
			return nil, errors.Wrap(err, "create tcp listener")
		}
		s.logger.Info("Server listening on tcp", zap.Stringer("addr", ln.Addr()))
		return ln, nil
	}
}

// Serve accepts connections on ln until ctx is canceled, then waits for
// in-flight requests. At most MaxWorkers connections are served at once;
// extra connections are closed immediately.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	var wg conc.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() {
		if err := ln.Close(); err != nil {
			s.logger.Error("Failed to close listener", zap.Error(err))
		}
	})
	defer stop()

	semaphore := make(chan struct{}, s.cfg.MaxWorkers)
	s.logger.Info("Worker pool initialized", zap.Int("max_workers", s.cfg.MaxWorkers))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			wg.Go(func() {
				defer func() { <-semaphore }()
				s.handleConnection(ctx, conn)
			})
		default:
			rejectedConnections.Inc()
			s.logger.Info("No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				s.logger.Error("Failed to close rejected connection", zap.Error(err))
			}
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in handleConnection", zap.Any("panic", r))
		}
		if err := conn.Close(); err != nil {
			s.logger.Debug("Failed to close connection", zap.Error(err))
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		s.logger.Error("Failed to read request", zap.Error(err))
		return
	}

	response := s.HandleRequest(ctx, buf.Bytes())

	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
