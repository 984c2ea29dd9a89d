// Package config loads auctiond settings from a YAML file and overlays
// AUCTION_* environment variables on top.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/cloudx-io/uniformauction/core"
	"github.com/cloudx-io/uniformauction/merkle"
)

const (
	TransportTCP   = "tcp"
	TransportVsock = "vsock"
)

// Config represents the complete daemon configuration
type Config struct {
	Server         ServerConfig   `yaml:"server"`
	Metrics        MetricsConfig  `yaml:"metrics"`
	Log            LogConfig      `yaml:"log"`
	Receipts       ReceiptsConfig `yaml:"receipts"`
	Bank           BankConfig     `yaml:"bank"`
	DefaultAuction AuctionConfig  `yaml:"default_auction"`
}

// ServerConfig contains listener settings
type ServerConfig struct {
	Transport   string        `yaml:"transport" env:"AUCTION_SERVER_TRANSPORT"` // "tcp" or "vsock"
	Addr        string        `yaml:"addr" env:"AUCTION_SERVER_ADDR"`           // tcp only
	VsockPort   uint32        `yaml:"vsock_port" env:"AUCTION_SERVER_VSOCK_PORT"`
	MaxWorkers  int           `yaml:"max_workers" env:"AUCTION_MAX_WORKERS"`
	ReadTimeout time.Duration `yaml:"read_timeout" env:"AUCTION_SERVER_READ_TIMEOUT"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" env:"AUCTION_METRICS_ADDR"` // "" disables
}

type LogConfig struct {
	Level  string `yaml:"level" env:"AUCTION_LOG_LEVEL"`
	Format string `yaml:"format" env:"AUCTION_LOG_FORMAT"` // "json" or "console"
}

// ReceiptsConfig controls settlement receipt signing.
type ReceiptsConfig struct {
	Enabled bool   `yaml:"enabled" env:"AUCTION_RECEIPTS_ENABLED"`
	KeyFile string `yaml:"key_file" env:"AUCTION_RECEIPTS_KEY_FILE"` // "" generates an ephemeral key
}

// BankConfig seeds the in-memory ledger. Balances are in ether.
type BankConfig struct {
	Genesis map[string]string `yaml:"genesis" env:"AUCTION_BANK_GENESIS"`
}

// AuctionConfig describes an auction created at boot. Prices are in ether.
type AuctionConfig struct {
	Enabled        bool          `yaml:"enabled" env:"AUCTION_DEFAULT_ENABLED"`
	Seller         string        `yaml:"seller" env:"AUCTION_DEFAULT_SELLER"`
	K              uint64        `yaml:"k" env:"AUCTION_DEFAULT_K"`
	CommitDuration time.Duration `yaml:"commit_duration" env:"AUCTION_DEFAULT_COMMIT_DURATION"`
	RevealDuration time.Duration `yaml:"reveal_duration" env:"AUCTION_DEFAULT_REVEAL_DURATION"`
	FinalizeGrace  time.Duration `yaml:"finalize_grace" env:"AUCTION_DEFAULT_FINALIZE_GRACE"`
	ReservePrice   string        `yaml:"reserve_price" env:"AUCTION_DEFAULT_RESERVE_PRICE"`
	MinDeposit     string        `yaml:"min_deposit" env:"AUCTION_DEFAULT_MIN_DEPOSIT"`
	FinalizeReward string        `yaml:"finalize_reward" env:"AUCTION_DEFAULT_FINALIZE_REWARD"`
	Whitelist      []string      `yaml:"whitelist" env:"AUCTION_DEFAULT_WHITELIST"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport:   TransportTCP,
			Addr:        "127.0.0.1:5000",
			VsockPort:   5000,
			MaxWorkers:  10,
			ReadTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Receipts: ReceiptsConfig{Enabled: true},
		Bank:     BankConfig{Genesis: map[string]string{}},
		DefaultAuction: AuctionConfig{
			K:              1,
			CommitDuration: 10 * time.Minute,
			RevealDuration: 10 * time.Minute,
			FinalizeGrace:  5 * time.Minute,
			ReservePrice:   "0",
			MinDeposit:     "0",
			FinalizeReward: "0",
		},
	}
}

// Load reads path (a missing file keeps the defaults), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrap(err, "read config file")
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(err, "parse config file")
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var err error

	switch c.Server.Transport {
	case TransportTCP:
		if c.Server.Addr == "" {
			err = multierr.Append(err, errors.New("server.addr is required for tcp transport"))
		}
	case TransportVsock:
		if c.Server.VsockPort == 0 {
			err = multierr.Append(err, errors.New("server.vsock_port is required for vsock transport"))
		}
	default:
		err = multierr.Append(err, errors.Errorf("invalid server.transport %q", c.Server.Transport))
	}
	if c.Server.MaxWorkers < 1 {
		err = multierr.Append(err, errors.Errorf("server.max_workers must be at least 1, got %d", c.Server.MaxWorkers))
	}
	if c.Server.ReadTimeout <= 0 {
		err = multierr.Append(err, errors.New("server.read_timeout must be positive"))
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		err = multierr.Append(err, errors.Errorf("invalid log.format %q", c.Log.Format))
	}

	if _, genesisErr := c.Bank.Balances(); genesisErr != nil {
		err = multierr.Append(err, genesisErr)
	}

	if c.DefaultAuction.Enabled {
		if _, paramsErr := c.DefaultAuction.Params(); paramsErr != nil {
			err = multierr.Append(err, errors.Wrap(paramsErr, "default_auction"))
		}
	}

	return err
}

// Balances parses the genesis table into wei amounts.
func (b BankConfig) Balances() (map[common.Address]*uint256.Int, error) {
	out := make(map[common.Address]*uint256.Int, len(b.Genesis))
	var err error
	for addr, ether := range b.Genesis {
		if !common.IsHexAddress(addr) {
			err = multierr.Append(err, errors.Errorf("bank.genesis: invalid address %q", addr))
			continue
		}
		wei, parseErr := core.ParseEther(ether)
		if parseErr != nil {
			err = multierr.Append(err, errors.Wrapf(parseErr, "bank.genesis[%s]", addr))
			continue
		}
		out[common.HexToAddress(addr)] = wei
	}
	return out, err
}

// Params converts the boot auction into core parameters. The whitelist, when
// present, is turned into a merkle root and enabled.
func (a AuctionConfig) Params() (core.Params, error) {
	if !common.IsHexAddress(a.Seller) {
		return core.Params{}, errors.Errorf("invalid seller %q", a.Seller)
	}
	p := core.Params{
		Seller:         common.HexToAddress(a.Seller),
		K:              a.K,
		CommitDuration: a.CommitDuration,
		RevealDuration: a.RevealDuration,
		FinalizeGrace:  a.FinalizeGrace,
	}

	amounts := []struct {
		name string
		src  string
		dst  *uint256.Int
	}{
		{"reserve_price", a.ReservePrice, &p.ReservePrice},
		{"min_deposit", a.MinDeposit, &p.MinDeposit},
		{"finalize_reward", a.FinalizeReward, &p.FinalizeReward},
	}
	for _, amt := range amounts {
		wei, err := core.ParseEther(amt.src)
		if err != nil {
			return core.Params{}, errors.Wrap(err, amt.name)
		}
		*amt.dst = *wei
	}

	if len(a.Whitelist) > 0 {
		addrs := make([]common.Address, 0, len(a.Whitelist))
		for _, s := range a.Whitelist {
			s = strings.TrimSpace(s)
			if !common.IsHexAddress(s) {
				return core.Params{}, errors.Errorf("invalid whitelist address %q", s)
			}
			addrs = append(addrs, common.HexToAddress(s))
		}
		tree, err := merkle.NewAddressTree(addrs)
		if err != nil {
			return core.Params{}, errors.Wrap(err, "build whitelist")
		}
		p.WhitelistRoot = tree.Root()
		p.WhitelistOn = true
	}

	// Durations and k are checked by core.NewConfig; run it against a fixed
	// start so bad values surface at load time.
	if _, err := core.NewConfig(p, time.Unix(0, 0)); err != nil {
		return core.Params{}, err
	}
	return p, nil
}
