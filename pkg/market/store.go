package market

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/Memewtoo/sol-secondary-market/pkg/ledger"
)

// Store persists order records in Pebble using the fixed binary layout.
// Thread-safe: all mutations go through the Manager's mutex.
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

// Create persists a new record, failing if (creator, seed) is in use.
func (s *Store) Create(o *Order) error {
	key := orderKey(o.Creator, o.Seed)

	_, closer, err := s.db.Get(key)
	if err == nil {
		closer.Close()
		return fmt.Errorf("%w: creator %s seed %d", ErrDuplicateOrder, o.Creator, o.Seed)
	}
	if err != pebble.ErrNotFound {
		return fmt.Errorf("failed to check for existing order: %w", err)
	}

	if err := s.db.Set(key, o.Encode(), pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// Update overwrites an existing record in place.
func (s *Store) Update(o *Order) error {
	if err := s.db.Set(orderKey(o.Creator, o.Seed), o.Encode(), pebble.Sync); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// Delete removes a record. Deleting an absent record is not an error at
// this layer; lifecycle operations load the record first.
func (s *Store) Delete(creator ledger.PublicKey, seed uint64) error {
	if err := s.db.Delete(orderKey(creator, seed), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

// Get loads one record, or ErrOrderNotFound.
func (s *Store) Get(creator ledger.PublicKey, seed uint64) (*Order, error) {
	data, closer, err := s.db.Get(orderKey(creator, seed))
	if err == pebble.ErrNotFound {
		return nil, fmt.Errorf("%w: creator %s seed %d", ErrOrderNotFound, creator, seed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	defer closer.Close()

	return DecodeOrder(data)
}

// ListByCreator loads all open orders of one creator, in seed order.
func (s *Store) ListByCreator(creator ledger.PublicKey) ([]*Order, error) {
	return s.scan(creatorPrefix(creator))
}

// ListAll loads every open order record.
func (s *Store) ListAll() ([]*Order, error) {
	return s.scan(orderPrefixAll())
}

func (s *Store) scan(prefix []byte) ([]*Order, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	defer iter.Close()

	var orders []*Order
	for iter.First(); iter.Valid(); iter.Next() {
		o, err := DecodeOrder(iter.Value())
		if err != nil {
			continue // Skip invalid entries
		}
		orders = append(orders, o)
	}
	return orders, nil
}
