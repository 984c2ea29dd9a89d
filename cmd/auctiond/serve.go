package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloudx-io/uniformauction/bank"
	"github.com/cloudx-io/uniformauction/config"
	"github.com/cloudx-io/uniformauction/receipt"
	"github.com/cloudx-io/uniformauction/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the auction server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "auctiond.yaml", "Path to config file")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ledger, err := genesisLedger(cfg.Bank)
	if err != nil {
		return err
	}
	logger.Info("Ledger initialized", zap.Int("accounts", len(cfg.Bank.Genesis)))

	opts := []server.Option{server.WithLogger(logger)}
	if cfg.Receipts.Enabled {
		km, err := loadSigner(cfg.Receipts.KeyFile)
		if err != nil {
			return err
		}
		pub, err := km.PublicKeyPEM()
		if err != nil {
			return err
		}
		logger.Info("Receipt signing enabled", zap.String("public_key", pub))
		opts = append(opts, server.WithReceiptSigner(km))
	}
	srv := server.New(cfg.Server, ledger, opts...)

	if cfg.DefaultAuction.Enabled {
		params, err := cfg.DefaultAuction.Params()
		if err != nil {
			return errors.Wrap(err, "default auction")
		}
		id, _, err := srv.CreateAuction(params)
		if err != nil {
			return errors.Wrap(err, "create default auction")
		}
		logger.Info("Default auction created", zap.String("auction_id", id))
	}

	if cfg.Metrics.Addr != "" {
		stopMetrics := serveMetrics(cfg.Metrics.Addr, logger)
		defer stopMetrics()
	}

	ln, err := srv.Listen()
	if err != nil {
		return err
	}
	return srv.Serve(ctx, ln)
}

func genesisLedger(cfg config.BankConfig) (*bank.Memory, error) {
	balances, err := cfg.Balances()
	if err != nil {
		return nil, err
	}
	ledger := bank.NewMemory()
	for addr, amount := range balances {
		if err := ledger.Mint(addr, amount); err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

func loadSigner(keyFile string) (*receipt.KeyManager, error) {
	if keyFile == "" {
		return receipt.NewKeyManager()
	}
	pemBytes, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "read receipt signing key")
	}
	return receipt.LoadKeyManager(pemBytes)
}

func serveMetrics(addr string, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Metrics listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("Metrics server shutdown failed", zap.Error(err))
		}
	}
}
