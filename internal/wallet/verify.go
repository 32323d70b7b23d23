package wallet

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"
)

const (
	// ChallengeTTL is how long a signed challenge stays usable
	ChallengeTTL = 10 * time.Minute

	// MaxClockSkew tolerates clients whose clock runs ahead
	MaxClockSkew = time.Minute

	challengeHeader = "Sign this message to authenticate with NoizLabs."
)

var (
	ErrMissingAddress   = errors.New("challenge does not contain the wallet address")
	ErrMissingTimestamp = errors.New("challenge does not contain a timestamp")
	ErrChallengeExpired = errors.New("challenge expired")
	ErrChallengeFuture  = errors.New("challenge timestamp is in the future")
)

var timestampLine = regexp.MustCompile(`(?m)^Timestamp:\s*(\d+)\s*$`)

// Verify checks a detached Ed25519 signature over message. Address and
// signature are base58. Anything malformed yields false.
func Verify(address, signature, message string) bool {
	pub, err := DecodePublicKey(address)
	if err != nil {
		return false
	}

	sig, err := base58.Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(pub, []byte(message), sig)
}

// DecodePublicKey decodes a base58 wallet address into an Ed25519 key.
func DecodePublicKey(address string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address encoding: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("invalid public key size")
	}
	return ed25519.PublicKey(raw), nil
}

// ValidAddress reports whether address decodes to a 32 byte key.
func ValidAddress(address string) bool {
	_, err := DecodePublicKey(address)
	return err == nil
}

// BuildChallenge returns the canonical challenge text for address at ts.
func BuildChallenge(address string, ts time.Time) string {
	return fmt.Sprintf("%s\n\nWallet: %s\nTimestamp: %d", challengeHeader, address, ts.UnixMilli())
}

// ParseChallenge checks that message names address and carries a fresh
// millisecond timestamp. It returns the parsed timestamp.
func ParseChallenge(message, address string, now time.Time) (time.Time, error) {
	if !strings.Contains(message, address) {
		return time.Time{}, ErrMissingAddress
	}

	m := timestampLine.FindStringSubmatch(message)
	if m == nil {
		return time.Time{}, ErrMissingTimestamp
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, ErrMissingTimestamp
	}

	ts := time.UnixMilli(ms)
	if now.Sub(ts) > ChallengeTTL {
		return ts, ErrChallengeExpired
	}
	if ts.Sub(now) > MaxClockSkew {
		return ts, ErrChallengeFuture
	}
	return ts, nil
}

// Sign is the client side counterpart of Verify, used by tooling and tests.
func Sign(priv ed25519.PrivateKey, message string) string {
	return base58.Encode(ed25519.Sign(priv, []byte(message)))
}

// Address encodes a public key as a wallet address.
func Address(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}
