package ledger

import "fmt"

// Pebble key schema.
// Balances are keyed by owner (and mint for token balances) so that a
// prefix scan yields every holding of one party.
const (
	prefixNative = "nat:"  // native balance, value = 8-byte big-endian lamports
	prefixToken  = "tok:"  // token balance, value = 8-byte big-endian base units
	prefixMint   = "mint:" // mint metadata, value = JSON
)

// nativeKey returns the key for an owner's native balance.
// Format: "nat:{owner}"
func nativeKey(owner PublicKey) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixNative, owner.Hex()))
}

// tokenKey returns the key for an owner's balance of one mint.
// Format: "tok:{owner}:{mint}"
func tokenKey(owner, mint PublicKey) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixToken, owner.Hex(), mint.Hex()))
}

// tokenPrefix returns the prefix covering all token balances of an owner.
// Format: "tok:{owner}:"
func tokenPrefix(owner PublicKey) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixToken, owner.Hex()))
}

// mintKey returns the key for a mint's metadata.
// Format: "mint:{mint}"
func mintKey(mint PublicKey) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixMint, mint.Hex()))
}

func mintPrefixAll() []byte {
	return []byte(prefixMint)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
