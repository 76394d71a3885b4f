package ledger

// Authority is the signing identity presented with a transfer. The gateway
// only debits a balance whose owner equals the authority's key.
//
// Construction implies the caller has established control of the key:
// either the API layer verified an ed25519 signature from the party, or a
// lifecycle operation reconstructed a custody authority from its
// derivation seeds. The handle is never handed to external callers.
type Authority struct {
	key PublicKey
}

// NewAuthority wraps an authenticated key as a transfer authority.
func NewAuthority(key PublicKey) Authority {
	return Authority{key: key}
}

// Key returns the public key this authority signs for.
func (a Authority) Key() PublicKey { return a.key }

// Controls reports whether the authority may debit owner's balances.
func (a Authority) Controls(owner PublicKey) bool { return a.key == owner }
