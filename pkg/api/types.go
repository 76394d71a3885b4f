package api

import "encoding/json"

// Request and response types for the REST surface.

// SignedRequest is the envelope of every state-changing request. The
// signature is an ed25519 signature by signer over the raw payload bytes
// exactly as transmitted.
type SignedRequest struct {
	Signer    string          `json:"signer"`    // 0x-hex 32-byte public key
	Signature string          `json:"signature"` // 0x-hex 64-byte signature
	Payload   json.RawMessage `json:"payload"`
}

// CreateOrderPayload posts a new order by the signer.
type CreateOrderPayload struct {
	Seed         uint64 `json:"seed"`
	PriceMint    string `json:"priceMint"` // empty or zero key = native currency
	Price        uint64 `json:"price"`
	Amount       uint64 `json:"amount"`
	DurationDays int64  `json:"durationDays"`
}

// BuyTokensPayload fills an order; the signer is the buyer.
type BuyTokensPayload struct {
	Creator string `json:"creator"`
	Seed    uint64 `json:"seed"`
	Amount  uint64 `json:"amount"`
}

// ModifyOrderPayload updates an order; absent fields stay unchanged.
// Creator defaults to the signer.
type ModifyOrderPayload struct {
	Creator         string  `json:"creator,omitempty"`
	Seed            uint64  `json:"seed"`
	NewAmount       *uint64 `json:"newAmount,omitempty"`
	NewPrice        *uint64 `json:"newPrice,omitempty"`
	NewDurationDays *int64  `json:"newDurationDays,omitempty"`
}

// CancelOrderPayload cancels an unfilled order. Creator defaults to the
// signer.
type CancelOrderPayload struct {
	Creator string `json:"creator,omitempty"`
	Seed    uint64 `json:"seed"`
}

// SettleOrderPayload reclaims an expired order's escrow for its creator.
// Any signer may submit it.
type SettleOrderPayload struct {
	Creator string `json:"creator"`
	Seed    uint64 `json:"seed"`
}

// OrderInfo is the REST view of an order record.
type OrderInfo struct {
	Creator    string `json:"creator"`
	Seed       uint64 `json:"seed"`
	Amount     uint64 `json:"amount"`
	Remaining  uint64 `json:"remaining"`
	Price      uint64 `json:"price"`
	PriceMint  string `json:"priceMint"`
	Expiration int64  `json:"expiration"`
}

// HoldingInfo is one token balance of a party.
type HoldingInfo struct {
	Mint    string `json:"mint"`
	Balance uint64 `json:"balance"`
}

// BalancesInfo is the full balance view of a party.
type BalancesInfo struct {
	Address  string        `json:"address"`
	Native   uint64        `json:"native"`
	Holdings []HoldingInfo `json:"holdings"`
}

// MintInfo is the REST view of a registered asset.
type MintInfo struct {
	Key      string `json:"key"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
