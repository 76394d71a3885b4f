package market

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Memewtoo/sol-secondary-market/pkg/ledger"
)

// orderTag is the leading discriminator of a persisted order record.
var orderTag = [8]byte{'s', 'e', 'c', 'o', 'r', 'd', 'e', 'r'}

// Persisted record layout, little-endian:
// tag(8) seed(8) creator(32) amount(8) remaining(8) price(8) mint(32)
// expiration(8) bump(1).
const orderRecordSize = 8 + 8 + 32 + 8 + 8 + 8 + 32 + 8 + 1

// Order is one seller-posted offer: Amount units of the vault asset at
// Price per unit, payable in PriceMint, valid until Expiration.
type Order struct {
	// Seed disambiguates multiple orders by one creator; (Creator, Seed)
	// is the record identity and fixes the custody authority derivation.
	Seed    uint64           `json:"seed"`
	Creator ledger.PublicKey `json:"creator"`

	// Amount is the nominal size as last set by creation or modification.
	// Remaining is what is still available to buy; fills decrement it but
	// never touch Amount.
	Amount    uint64 `json:"amount"`
	Remaining uint64 `json:"remaining"`

	// Price is the unit price in whole units of PriceMint. The native
	// sentinel (ledger.NativeMint) means payment in the native currency.
	Price     uint64           `json:"price"`
	PriceMint ledger.PublicKey `json:"priceMint"`

	// Expiration is the unix timestamp after which the order can no
	// longer be bought.
	Expiration int64 `json:"expiration"`

	// AuthorityBump reconstructs the custody authority derivation.
	AuthorityBump uint8 `json:"authorityBump"`
}

// Expired reports whether the order can no longer be bought at time now.
func (o *Order) Expired(now int64) bool {
	return now > o.Expiration
}

// Validate checks the record invariants.
func (o *Order) Validate() error {
	if o.Remaining > o.Amount {
		return fmt.Errorf("remaining %d exceeds amount %d", o.Remaining, o.Amount)
	}
	if o.Amount == 0 {
		return fmt.Errorf("order amount is zero")
	}
	return nil
}

// Encode serializes the record into its fixed-size layout.
func (o *Order) Encode() []byte {
	buf := make([]byte, orderRecordSize)
	n := copy(buf, orderTag[:])
	binary.LittleEndian.PutUint64(buf[n:], o.Seed)
	n += 8
	n += copy(buf[n:], o.Creator[:])
	binary.LittleEndian.PutUint64(buf[n:], o.Amount)
	n += 8
	binary.LittleEndian.PutUint64(buf[n:], o.Remaining)
	n += 8
	binary.LittleEndian.PutUint64(buf[n:], o.Price)
	n += 8
	n += copy(buf[n:], o.PriceMint[:])
	binary.LittleEndian.PutUint64(buf[n:], uint64(o.Expiration))
	n += 8
	buf[n] = o.AuthorityBump
	return buf
}

// DecodeOrder deserializes a fixed-size record, rejecting wrong sizes and
// unknown discriminators.
func DecodeOrder(data []byte) (*Order, error) {
	if len(data) != orderRecordSize {
		return nil, fmt.Errorf("order record must be %d bytes, got %d", orderRecordSize, len(data))
	}
	if !bytes.Equal(data[:8], orderTag[:]) {
		return nil, fmt.Errorf("unknown record discriminator %q", data[:8])
	}

	var o Order
	n := 8
	o.Seed = binary.LittleEndian.Uint64(data[n:])
	n += 8
	copy(o.Creator[:], data[n:])
	n += 32
	o.Amount = binary.LittleEndian.Uint64(data[n:])
	n += 8
	o.Remaining = binary.LittleEndian.Uint64(data[n:])
	n += 8
	o.Price = binary.LittleEndian.Uint64(data[n:])
	n += 8
	copy(o.PriceMint[:], data[n:])
	n += 32
	o.Expiration = int64(binary.LittleEndian.Uint64(data[n:]))
	n += 8
	o.AuthorityBump = data[n]

	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("corrupt order record: %w", err)
	}
	return &o, nil
}
