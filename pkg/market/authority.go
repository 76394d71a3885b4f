package market

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/Memewtoo/sol-secondary-market/pkg/ledger"
)

// authorityTag is the fixed domain separator of custody derivations.
const authorityTag = "order"

// DeriveAuthority computes the custody authority key for (creator, seed):
// keccak256(tag || creator || seed_le || bump), searching bump downward
// from 255 until the digest is a usable key. The bump is persisted on the
// record so the derivation can be replayed without searching.
//
// The key is derived from public inputs, so anyone can compute it; only
// lifecycle operations wrap it in a ledger.Authority, which is what the
// gateway accepts as a signer.
func DeriveAuthority(creator ledger.PublicKey, seed uint64) (ledger.PublicKey, uint8) {
	for bump := 255; bump >= 0; bump-- {
		key := AuthorityForBump(creator, seed, uint8(bump))
		// The zero key is the native-currency sentinel and can never own
		// an escrow balance.
		if !key.IsZero() {
			return key, uint8(bump)
		}
	}
	// Unreachable: 256 keccak digests cannot all be zero.
	panic("custody authority derivation exhausted")
}

// AuthorityForBump replays the derivation with a known bump.
func AuthorityForBump(creator ledger.PublicKey, seed uint64, bump uint8) ledger.PublicKey {
	var seedBytes [8]byte
	binary.LittleEndian.PutUint64(seedBytes[:], seed)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(authorityTag))
	h.Write(creator[:])
	h.Write(seedBytes[:])
	h.Write([]byte{bump})

	var key ledger.PublicKey
	copy(key[:], h.Sum(nil))
	return key
}
