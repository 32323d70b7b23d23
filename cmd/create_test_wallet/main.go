// Command create_test_wallet prints a signed login challenge for a fresh
// (or -seed given) Ed25519 wallet, ready to POST to /api/v1/auth/wallet.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"flag"
	"os"
	"time"

	"noizlabs/internal/logger"
	"noizlabs/internal/wallet"

	"github.com/mr-tron/base58"
)

func main() {
	seedB58 := flag.String("seed", "", "base58 private key seed to reuse a wallet")
	username := flag.String("username", "", "optional username for a new profile")
	flag.Parse()

	var priv ed25519.PrivateKey
	if *seedB58 != "" {
		seed, err := base58.Decode(*seedB58)
		if err != nil || len(seed) != ed25519.SeedSize {
			logger.Fatal("invalid seed")
		}
		priv = ed25519.NewKeyFromSeed(seed)
	} else {
		_, p, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			logger.Fatal("generate key", "error", err)
		}
		priv = p
	}

	address := wallet.Address(priv.Public().(ed25519.PublicKey))
	msg := wallet.BuildChallenge(address, time.Now())

	out := map[string]string{
		"walletAddress": address,
		"signature":     wallet.Sign(priv, msg),
		"message":       msg,
		"seed":          base58.Encode(priv.Seed()),
	}
	if *username != "" {
		out["username"] = *username
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatal("encode", "error", err)
	}
}
