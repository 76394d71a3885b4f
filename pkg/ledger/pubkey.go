package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// PublicKey is a 32-byte identity: an ed25519 public key for signing
// parties, or a derived key for mints and custody authorities.
type PublicKey [32]byte

// PublicKeyFromBytes copies a 32-byte slice into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != len(k) {
		return PublicKey{}, fmt.Errorf("public key must be %d bytes, got %d", len(k), len(b))
	}
	copy(k[:], b)
	return k, nil
}

// ParsePublicKey parses a 0x-prefixed hex string into a PublicKey.
func ParsePublicKey(s string) (PublicKey, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("parse public key: %w", err)
	}
	return PublicKeyFromBytes(b)
}

// Hex returns the 0x-prefixed hex encoding of the key.
func (k PublicKey) Hex() string {
	return hexutil.Encode(k[:])
}

func (k PublicKey) String() string { return k.Hex() }

func (k PublicKey) IsZero() bool { return k == PublicKey{} }

// MarshalJSON encodes the key as a 0x-prefixed hex string.
func (k PublicKey) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.Hex() + `"`), nil
}

func (k *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
