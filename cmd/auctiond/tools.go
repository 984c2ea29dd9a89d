package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/cloudx-io/uniformauction/auctionapi/parsing"
	"github.com/cloudx-io/uniformauction/core"
	"github.com/cloudx-io/uniformauction/merkle"
	"github.com/cloudx-io/uniformauction/receipt"
)

func newCommitHashCmd() *cobra.Command {
	var (
		qty     uint64
		price   string
		salt    string
		saltHex string
		bidder  string
	)

	cmd := &cobra.Command{
		Use:   "commit-hash",
		Short: "Compute the sealed commitment for a bid",
		Example: `  auctiond commit-hash --bidder 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 \
    --qty 2 --price 0.2 --salt "my secret"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parsing.ParseAddress(bidder)
			if err != nil {
				return err
			}
			priceWei, err := core.ParseEther(price)
			if err != nil {
				return err
			}

			var saltHash common.Hash
			switch {
			case saltHex != "":
				if saltHash, err = parsing.ParseHash(saltHex); err != nil {
					return err
				}
			case salt != "":
				saltHash = core.SaltFromString(salt)
			default:
				return errors.New("one of --salt or --salt-hex is required")
			}

			escrow, ok := core.EscrowFor(qty, priceWei)
			if !ok {
				return errors.New("price x qty overflows")
			}

			out := map[string]any{
				"commit_hash": core.CommitHash(qty, priceWei, saltHash, addr).Hex(),
				"salt":        saltHash.Hex(),
				"qty":         qty,
				"price":       priceWei.Dec(),
				"escrow":      escrow.Dec(),
			}
			return writeJSON(cmd, out)
		},
	}

	flags := cmd.Flags()
	flags.Uint64Var(&qty, "qty", 1, "Units bid for")
	flags.StringVar(&price, "price", "", "Price per unit in ETH")
	flags.StringVar(&salt, "salt", "", "Secret phrase hashed into the salt (0x-hex is hashed as bytes)")
	flags.StringVar(&saltHex, "salt-hex", "", "Raw 32-byte salt as 0x-hex, used without hashing")
	flags.StringVar(&bidder, "bidder", "", "Bidder address")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("bidder")
	return cmd
}

func newWhitelistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whitelist <address>...",
		Short: "Build a whitelist root and per-address proofs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs := make([]common.Address, len(args))
			for i, a := range args {
				addr, err := parsing.ParseAddress(a)
				if err != nil {
					return err
				}
				addrs[i] = addr
			}

			tree, err := merkle.NewAddressTree(addrs)
			if err != nil {
				return err
			}

			proofs := make(map[string][]string, len(addrs))
			for _, addr := range addrs {
				proof, _ := tree.AddressProof(addr)
				proofs[addr.Hex()] = parsing.FormatProof(proof)
			}
			return writeJSON(cmd, map[string]any{
				"root":   tree.Root().Hex(),
				"proofs": proofs,
			})
		},
	}
}

func newKeygenCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a receipt signing key",
		Long:  "Writes a P-256 private key to --out and prints the public key bidders verify receipts with.",
		RunE: func(cmd *cobra.Command, args []string) error {
			km, err := receipt.NewKeyManager()
			if err != nil {
				return err
			}
			priv, err := km.PrivateKeyPEM()
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, priv, 0o600); err != nil {
				return errors.Wrap(err, "write private key")
			}
			pub, err := km.PublicKeyPEM()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), pub)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "receipt_signing.pem", "Private key output path")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
