package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Store provides Pebble-based persistence for balances and mint metadata.
// Thread-safe: all operations go through the Ledger's mutex.
type Store struct {
	db *pebble.DB
}

// NewStore opens a Pebble database at the given path.
func NewStore(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(64 << 20),
		MemTableSize: 32 << 20,
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dbPath, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// getUint64 reads an 8-byte big-endian balance. Missing key means zero.
func (s *Store) getUint64(key []byte) (uint64, error) {
	data, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	defer closer.Close()

	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt balance entry: %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func encodeUint64(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

// LoadNative loads an owner's native balance in lamports.
func (s *Store) LoadNative(owner PublicKey) (uint64, error) {
	return s.getUint64(nativeKey(owner))
}

// LoadToken loads an owner's balance of one mint in base units.
func (s *Store) LoadToken(owner, mint PublicKey) (uint64, error) {
	return s.getUint64(tokenKey(owner, mint))
}

// SaveMint persists mint metadata.
func (s *Store) SaveMint(m Mint) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal mint: %w", err)
	}
	if err := s.db.Set(mintKey(m.Key), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save mint: %w", err)
	}
	return nil
}

// LoadMints loads all registered mints.
func (s *Store) LoadMints() ([]Mint, error) {
	prefix := mintPrefixAll()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate mints: %w", err)
	}
	defer iter.Close()

	var mints []Mint
	for iter.First(); iter.Valid(); iter.Next() {
		var m Mint
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue // Skip invalid entries
		}
		mints = append(mints, m)
	}
	return mints, nil
}

// Holding pairs a mint with an owner's balance of it.
type Holding struct {
	Mint    PublicKey `json:"mint"`
	Balance uint64    `json:"balance"`
}

// LoadHoldings loads all token balances of one owner.
func (s *Store) LoadHoldings(owner PublicKey) ([]Holding, error) {
	prefix := tokenPrefix(owner)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}
	defer iter.Close()

	var holdings []Holding
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		// Key layout: "tok:{owner}:{mint}", mint is the trailing segment.
		mintHex := string(key[len(prefix):])
		mint, err := ParsePublicKey(mintHex)
		if err != nil {
			continue
		}
		if len(iter.Value()) != 8 {
			continue
		}
		holdings = append(holdings, Holding{
			Mint:    mint,
			Balance: binary.BigEndian.Uint64(iter.Value()),
		})
	}
	return holdings, nil
}

// BalanceBatch stages balance writes so one transfer commits atomically.
type BalanceBatch struct {
	batch *pebble.Batch
}

// NewBatch creates a batch writer over the balance keyspace.
func (s *Store) NewBatch() *BalanceBatch {
	return &BalanceBatch{batch: s.db.NewBatch()}
}

func (b *BalanceBatch) SetNative(owner PublicKey, lamports uint64) error {
	return b.batch.Set(nativeKey(owner), encodeUint64(lamports), nil)
}

func (b *BalanceBatch) SetToken(owner, mint PublicKey, units uint64) error {
	return b.batch.Set(tokenKey(owner, mint), encodeUint64(units), nil)
}

// Commit writes the batch to Pebble atomically.
func (b *BalanceBatch) Commit() error {
	return b.batch.Commit(pebble.Sync)
}

// Close closes the batch without committing.
func (b *BalanceBatch) Close() error {
	return b.batch.Close()
}
