package market

import (
	"fmt"

	"github.com/Memewtoo/sol-secondary-market/pkg/ledger"
)

// Pebble key schema. Records are keyed by (creator, seed); the seed is
// zero-padded hex so a creator's orders scan in seed order.
const prefixOrder = "ord:"

// orderKey returns the key for one order record.
// Format: "ord:{creator}:{seed}"
func orderKey(creator ledger.PublicKey, seed uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%016x", prefixOrder, creator.Hex(), seed))
}

// creatorPrefix returns the prefix covering all orders of one creator.
// Format: "ord:{creator}:"
func creatorPrefix(creator ledger.PublicKey) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixOrder, creator.Hex()))
}

// orderPrefixAll returns the prefix covering every order record.
func orderPrefixAll() []byte {
	return []byte(prefixOrder)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
