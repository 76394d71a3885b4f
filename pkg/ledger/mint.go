package ledger

import "golang.org/x/crypto/sha3"

// NativeMint is the reserved sentinel identifying the native settlement
// currency. Orders priced against it settle in lamports rather than in a
// token balance. The zero key can never collide with a registered mint.
var NativeMint = PublicKey{}

const (
	// NativeDecimals is the decimal precision of the native currency.
	NativeDecimals = 9

	// LamportsPerUnit converts whole native units to the smallest
	// denomination (lamports).
	LamportsPerUnit uint64 = 1_000_000_000
)

// Mint describes a registered fungible token asset.
type Mint struct {
	Key      PublicKey `json:"key"`
	Symbol   string    `json:"symbol"`
	Decimals uint8     `json:"decimals"`
}

// MintKey derives a stable asset identity from a symbol:
// keccak256("mint:" || symbol). Used for locally issued assets; externally
// known mints are registered under their own keys.
func MintKey(symbol string) PublicKey {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("mint:"))
	h.Write([]byte(symbol))

	var key PublicKey
	copy(key[:], h.Sum(nil))
	return key
}
