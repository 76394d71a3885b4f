package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Memewtoo/sol-secondary-market/pkg/ledger"
)

// Signer manages an ed25519 key pair for signing lifecycle requests.
// Party identities are the 32-byte ed25519 public keys.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	key        ledger.PublicKey
}

// GenerateKey creates a new random ed25519 key pair.
func GenerateKey() (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return newSigner(pub, priv)
}

// FromSeedHex creates a Signer from a hex-encoded 32-byte seed.
// Format: "0x1234..." (64 hex chars after the prefix).
func FromSeedHex(hexSeed string) (*Signer, error) {
	seed, err := hexutil.Decode(hexSeed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return newSigner(pub, priv)
}

func newSigner(pub ed25519.PublicKey, priv ed25519.PrivateKey) (*Signer, error) {
	key, err := ledger.PublicKeyFromBytes(pub)
	if err != nil {
		return nil, err
	}
	return &Signer{privateKey: priv, publicKey: pub, key: key}, nil
}

// PublicKey returns the party identity derived from the key pair.
func (s *Signer) PublicKey() ledger.PublicKey { return s.key }

// SeedHex returns the hex-encoded private seed, suitable for FromSeedHex.
func (s *Signer) SeedHex() string {
	return hexutil.Encode(s.privateKey.Seed())
}

// Sign signs a message and returns the 64-byte signature.
func (s *Signer) Sign(message []byte) []byte {
	return ed25519.Sign(s.privateKey, message)
}

// SignHex signs a message and returns the 0x-prefixed hex signature.
func (s *Signer) SignHex(message []byte) string {
	return hexutil.Encode(s.Sign(message))
}

// Verify reports whether sig is a valid signature of message by key.
func Verify(key ledger.PublicKey, message, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(key[:]), message, sig)
}

// VerifyHex verifies a 0x-prefixed hex signature.
func VerifyHex(key ledger.PublicKey, message []byte, sigHex string) bool {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return false
	}
	return Verify(key, message, sig)
}
