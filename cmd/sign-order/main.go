package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/Memewtoo/sol-secondary-market/pkg/api"
	"github.com/Memewtoo/sol-secondary-market/pkg/crypto"
)

// sign-order builds a signed create-order request ready to POST to the
// market API. Without -seed it generates a fresh keypair and prints the
// seed so the same identity can be reused.
func main() {
	seedHex := flag.String("seed", "", "hex-encoded 32-byte private seed (empty = generate)")
	seed := flag.Uint64("order-seed", 1, "order seed, unique per creator")
	priceMint := flag.String("price-mint", "", "price mint key (empty = native currency)")
	price := flag.Uint64("price", 1, "unit price in whole units of the price asset")
	amount := flag.Uint64("amount", 100, "order size in vault base units")
	days := flag.Int64("days", 7, "order lifetime in days")
	flag.Parse()

	var signer *crypto.Signer
	var err error
	if *seedHex != "" {
		signer, err = crypto.FromSeedHex(*seedHex)
	} else {
		signer, err = crypto.GenerateKey()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Identity: %s\n", signer.PublicKey().Hex())
	if *seedHex == "" {
		fmt.Printf("Seed: %s (KEEP SECRET!)\n", signer.SeedHex())
	}
	fmt.Println()

	payload := api.CreateOrderPayload{
		Seed:         *seed,
		PriceMint:    *priceMint,
		Price:        *price,
		Amount:       *amount,
		DurationDays: *days,
	}

	fmt.Println("Order Details:")
	fmt.Printf("  Seed: %d\n", payload.Seed)
	if payload.PriceMint == "" {
		fmt.Println("  Price Mint: native currency")
	} else {
		fmt.Printf("  Price Mint: %s\n", payload.PriceMint)
	}
	fmt.Printf("  Price: %d\n", payload.Price)
	fmt.Printf("  Amount: %d\n", payload.Amount)
	fmt.Printf("  Duration: %d days\n\n", payload.DurationDays)

	raw, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	// The signature covers the raw payload bytes exactly as transmitted.
	req := api.SignedRequest{
		Signer:    signer.PublicKey().Hex(),
		Signature: signer.SignHex(raw),
		Payload:   raw,
	}

	reqJSON, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling request: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Signed Request (JSON):")
	fmt.Println(string(reqJSON))
	fmt.Println()

	fmt.Println("Verifying signature...")
	if !crypto.VerifyHex(signer.PublicKey(), raw, req.Signature) {
		fmt.Println("Signature INVALID")
		os.Exit(1)
	}
	fmt.Println("Signature VALID")
	fmt.Println()

	fmt.Println("To submit this order:")
	fmt.Println("  POST http://localhost:8080/api/v1/orders")
	fmt.Println("  Content-Type: application/json")
	fmt.Println("  Body:")
	fmt.Println(string(reqJSON))
}
