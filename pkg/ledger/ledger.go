package ledger

import (
	"fmt"
)

// Ledger is the fund-transfer gateway: it tracks native-currency balances
// (lamports) and token balances (base units per mint) and moves them
// between parties under an authorizing signer.
//
// Native and token balances carry distinct unit conventions; the caller
// is responsible for any decimal scaling before invoking a transfer.
//
// Uses an in-memory cache over Pebble persistence. All mutations commit a
// batch before the cache is updated, so a storage failure leaves both
// views unchanged.
type Ledger struct {
	// The surrounding service serializes operations; the Ledger itself is
	// not safe for concurrent mutation and is guarded by its caller
	// (market.Manager holds the single-writer lock).
	store  *Store
	mints  map[PublicKey]Mint
	native map[PublicKey]uint64
	tokens map[PublicKey]map[PublicKey]uint64 // owner -> mint -> balance
}

// Open opens a ledger backed by a Pebble database at dbPath.
func Open(dbPath string) (*Ledger, error) {
	store, err := NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %w", err)
	}

	l := &Ledger{
		store:  store,
		mints:  make(map[PublicKey]Mint),
		native: make(map[PublicKey]uint64),
		tokens: make(map[PublicKey]map[PublicKey]uint64),
	}

	mints, err := store.LoadMints()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load mints: %w", err)
	}
	for _, m := range mints {
		l.mints[m.Key] = m
	}

	return l, nil
}

func (l *Ledger) Close() error {
	return l.store.Close()
}

// RegisterMint registers a token asset. The native sentinel and duplicate
// keys are rejected.
func (l *Ledger) RegisterMint(m Mint) error {
	if m.Key == NativeMint {
		return ErrNativeMint
	}
	if _, exists := l.mints[m.Key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMint, m.Key)
	}
	if err := l.store.SaveMint(m); err != nil {
		return err
	}
	l.mints[m.Key] = m
	return nil
}

// Decimals returns the decimal precision of an asset. The native sentinel
// answers with NativeDecimals.
func (l *Ledger) Decimals(mint PublicKey) (uint8, error) {
	if mint == NativeMint {
		return NativeDecimals, nil
	}
	m, exists := l.mints[mint]
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMint, mint)
	}
	return m.Decimals, nil
}

// MintInfo returns the metadata of a registered mint.
func (l *Ledger) MintInfo(mint PublicKey) (Mint, error) {
	m, exists := l.mints[mint]
	if !exists {
		return Mint{}, fmt.Errorf("%w: %s", ErrUnknownMint, mint)
	}
	return m, nil
}

// ListMints returns all registered mints.
func (l *Ledger) ListMints() []Mint {
	mints := make([]Mint, 0, len(l.mints))
	for _, m := range l.mints {
		mints = append(mints, m)
	}
	return mints
}

// NativeBalance returns an owner's lamport balance.
func (l *Ledger) NativeBalance(owner PublicKey) uint64 {
	bal, err := l.nativeBalance(owner)
	if err != nil {
		return 0
	}
	return bal
}

// TokenBalance returns an owner's balance of one mint in base units.
func (l *Ledger) TokenBalance(owner, mint PublicKey) uint64 {
	bal, err := l.tokenBalance(owner, mint)
	if err != nil {
		return 0
	}
	return bal
}

// Holdings returns every token balance of one owner.
func (l *Ledger) Holdings(owner PublicKey) ([]Holding, error) {
	return l.store.LoadHoldings(owner)
}

// CreditNative credits lamports to an owner. Genesis/bridge funding path;
// there is no authorizing signer because value enters from outside.
func (l *Ledger) CreditNative(owner PublicKey, lamports uint64) error {
	bal, err := l.nativeBalance(owner)
	if err != nil {
		return err
	}
	updated, ok := checkedAdd(bal, lamports)
	if !ok {
		return fmt.Errorf("native balance overflow for %s", owner)
	}
	return l.setNative(owner, updated)
}

// MintTo credits base units of a registered mint to an owner.
func (l *Ledger) MintTo(owner, mint PublicKey, units uint64) error {
	if _, exists := l.mints[mint]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownMint, mint)
	}
	bal, err := l.tokenBalance(owner, mint)
	if err != nil {
		return err
	}
	updated, ok := checkedAdd(bal, units)
	if !ok {
		return fmt.Errorf("token balance overflow for %s", owner)
	}
	return l.setToken(owner, mint, updated)
}

// Movement is one leg of an Execute call. The native sentinel in Mint
// moves lamports instead of token units.
type Movement struct {
	From   PublicKey
	To     PublicKey
	Mint   PublicKey
	Amount uint64
	Auth   Authority
}

// Execute applies a set of movements atomically: every authority,
// balance and overflow check runs before anything is written, and all
// legs commit in one batch. A failure on any leg leaves every balance
// untouched.
//
// A self-movement (From == To) verifies authority and balance but moves
// nothing, so it cannot mint value by crediting a stale read of its own
// debit.
func (l *Ledger) Execute(moves ...Movement) error {
	type slot struct {
		owner PublicKey
		mint  PublicKey
	}
	staged := make(map[slot]uint64)
	load := func(owner, mint PublicKey) (uint64, error) {
		s := slot{owner, mint}
		if bal, ok := staged[s]; ok {
			return bal, nil
		}
		var bal uint64
		var err error
		if mint == NativeMint {
			bal, err = l.nativeBalance(owner)
		} else {
			bal, err = l.tokenBalance(owner, mint)
		}
		if err != nil {
			return 0, err
		}
		staged[s] = bal
		return bal, nil
	}

	for _, mv := range moves {
		if mv.Mint != NativeMint {
			if _, exists := l.mints[mv.Mint]; !exists {
				return fmt.Errorf("%w: %s", ErrUnknownMint, mv.Mint)
			}
		}
		if !mv.Auth.Controls(mv.From) {
			return fmt.Errorf("%w: signer %s, source %s", ErrBadAuthority, mv.Auth.Key(), mv.From)
		}
		if mv.Amount == 0 {
			continue
		}
		fromBal, err := load(mv.From, mv.Mint)
		if err != nil {
			return err
		}
		if fromBal < mv.Amount {
			return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, mv.From, fromBal, mv.Amount)
		}
		if mv.From == mv.To {
			continue
		}
		staged[slot{mv.From, mv.Mint}] = fromBal - mv.Amount
		toBal, err := load(mv.To, mv.Mint)
		if err != nil {
			return err
		}
		updated, ok := checkedAdd(toBal, mv.Amount)
		if !ok {
			return fmt.Errorf("balance overflow for %s", mv.To)
		}
		staged[slot{mv.To, mv.Mint}] = updated
	}

	batch := l.store.NewBatch()
	defer batch.Close()
	for s, bal := range staged {
		var err error
		if s.mint == NativeMint {
			err = batch.SetNative(s.owner, bal)
		} else {
			err = batch.SetToken(s.owner, s.mint, bal)
		}
		if err != nil {
			return fmt.Errorf("failed to stage balance: %w", err)
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}

	for s, bal := range staged {
		if s.mint == NativeMint {
			l.native[s.owner] = bal
		} else {
			l.cacheToken(s.owner, s.mint, bal)
		}
	}
	return nil
}

// Transfer moves base units of a token mint from one party to another.
// The authority must control the source balance.
func (l *Ledger) Transfer(from, to PublicKey, mint PublicKey, units uint64, auth Authority) error {
	if _, exists := l.mints[mint]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownMint, mint)
	}
	return l.Execute(Movement{From: from, To: to, Mint: mint, Amount: units, Auth: auth})
}

// TransferNative moves lamports from one party to another. The authority
// must control the source balance.
func (l *Ledger) TransferNative(from, to PublicKey, lamports uint64, auth Authority) error {
	return l.Execute(Movement{From: from, To: to, Mint: NativeMint, Amount: lamports, Auth: auth})
}

func (l *Ledger) nativeBalance(owner PublicKey) (uint64, error) {
	if bal, cached := l.native[owner]; cached {
		return bal, nil
	}
	bal, err := l.store.LoadNative(owner)
	if err != nil {
		return 0, err
	}
	l.native[owner] = bal
	return bal, nil
}

func (l *Ledger) tokenBalance(owner, mint PublicKey) (uint64, error) {
	if holdings, cached := l.tokens[owner]; cached {
		if bal, ok := holdings[mint]; ok {
			return bal, nil
		}
	}
	bal, err := l.store.LoadToken(owner, mint)
	if err != nil {
		return 0, err
	}
	l.cacheToken(owner, mint, bal)
	return bal, nil
}

func (l *Ledger) setNative(owner PublicKey, lamports uint64) error {
	batch := l.store.NewBatch()
	defer batch.Close()
	if err := batch.SetNative(owner, lamports); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("failed to persist native balance: %w", err)
	}
	l.native[owner] = lamports
	return nil
}

func (l *Ledger) setToken(owner, mint PublicKey, units uint64) error {
	batch := l.store.NewBatch()
	defer batch.Close()
	if err := batch.SetToken(owner, mint, units); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("failed to persist token balance: %w", err)
	}
	l.cacheToken(owner, mint, units)
	return nil
}

func (l *Ledger) cacheToken(owner, mint PublicKey, units uint64) {
	holdings, ok := l.tokens[owner]
	if !ok {
		holdings = make(map[PublicKey]uint64)
		l.tokens[owner] = holdings
	}
	holdings[mint] = units
}

func checkedAdd(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}
