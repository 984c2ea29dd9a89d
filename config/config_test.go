package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"go.uber.org/multierr"

	"github.com/cloudx-io/uniformauction/core"
	"github.com/cloudx-io/uniformauction/merkle"
)

const (
	seller  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	bidder1 = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	bidder2 = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auctiond.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
	check.Equal(t, DefaultConfig().Server, cfg.Server)
	check.Equal(t, "info", cfg.Log.Level)
	check.True(t, cfg.Receipts.Enabled)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
server:
  transport: vsock
  vsock_port: 5005
  max_workers: 4
  read_timeout: 3s
log:
  level: debug
  format: console
bank:
  genesis:
    "`+bidder1+`": "100"
    "`+bidder2+`": "0.5"
default_auction:
  enabled: true
  seller: "`+seller+`"
  k: 2
  commit_duration: 1m
  reveal_duration: 2m
  finalize_grace: 30s
  reserve_price: "0.1"
  min_deposit: "0.01"
  finalize_reward: "0.005"
`)

	cfg, err := Load(path)
	assert.NoError(t, err)
	check.Equal(t, TransportVsock, cfg.Server.Transport)
	check.Equal(t, uint32(5005), cfg.Server.VsockPort)
	check.Equal(t, 4, cfg.Server.MaxWorkers)
	check.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	check.Equal(t, "console", cfg.Log.Format)

	balances, err := cfg.Bank.Balances()
	assert.NoError(t, err)
	check.Equal(t, "100", core.FormatEther(balances[common.HexToAddress(bidder1)]))
	check.Equal(t, "0.5", core.FormatEther(balances[common.HexToAddress(bidder2)]))

	p, err := cfg.DefaultAuction.Params()
	assert.NoError(t, err)
	check.Equal(t, common.HexToAddress(seller), p.Seller)
	check.Equal(t, uint64(2), p.K)
	check.Equal(t, 2*time.Minute, p.RevealDuration)
	check.Equal(t, "0.1", core.FormatEther(&p.ReservePrice))
	check.Equal(t, "0.005", core.FormatEther(&p.FinalizeReward))
	check.False(t, p.WhitelistOn)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:6000"
log:
  level: warn
`)
	t.Setenv("AUCTION_SERVER_ADDR", "0.0.0.0:7000")
	t.Setenv("AUCTION_MAX_WORKERS", "32")
	t.Setenv("AUCTION_RECEIPTS_ENABLED", "false")

	cfg, err := Load(path)
	assert.NoError(t, err)
	check.Equal(t, "0.0.0.0:7000", cfg.Server.Addr)
	check.Equal(t, 32, cfg.Server.MaxWorkers)
	check.False(t, cfg.Receipts.Enabled)
	check.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	check.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Transport = "udp"
	cfg.Server.MaxWorkers = 0
	cfg.Log.Format = "xml"
	cfg.Bank.Genesis = map[string]string{"nobody": "1"}

	err := cfg.Validate()
	assert.Error(t, err)
	check.Equal(t, 4, len(multierr.Errors(err)))
}

func TestAuctionConfig_Params(t *testing.T) {
	base := func() AuctionConfig {
		a := DefaultConfig().DefaultAuction
		a.Seller = seller
		return a
	}

	t.Run("whitelist builds root", func(t *testing.T) {
		a := base()
		a.Whitelist = []string{bidder1, " " + bidder2}

		p, err := a.Params()
		assert.NoError(t, err)
		tree, err := merkle.NewAddressTree([]common.Address{common.HexToAddress(bidder1), common.HexToAddress(bidder2)})
		assert.NoError(t, err)
		check.True(t, p.WhitelistOn)
		check.Equal(t, tree.Root(), p.WhitelistRoot)
	})

	tests := []struct {
		name   string
		mutate func(a *AuctionConfig)
		want   error
	}{
		{"zero k", func(a *AuctionConfig) { a.K = 0 }, core.ErrInvalidK},
		{"zero reveal", func(a *AuctionConfig) { a.RevealDuration = 0 }, core.ErrInvalidDurations},
		{"zero grace", func(a *AuctionConfig) { a.FinalizeGrace = 0 }, core.ErrInvalidGrace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base()
			tt.mutate(&a)
			_, err := a.Params()
			check.True(t, errors.Is(err, tt.want))
		})
	}

	t.Run("bad inputs", func(t *testing.T) {
		a := base()
		a.Seller = "seller"
		_, err := a.Params()
		check.Error(t, err)

		a = base()
		a.ReservePrice = "-1"
		_, err = a.Params()
		check.Error(t, err)

		a = base()
		a.Whitelist = []string{"0x1234"}
		_, err = a.Params()
		check.Error(t, err)
	})
}
