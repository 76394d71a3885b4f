package market

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Memewtoo/sol-secondary-market/pkg/ledger"
	"github.com/Memewtoo/sol-secondary-market/pkg/util"
)

// Config fixes the market-wide parameters of a Manager.
type Config struct {
	// VaultMint is the asset being sold through this market.
	VaultMint ledger.PublicKey

	// RecordDeposit is the native deposit (lamports) reserved per order
	// record and refunded to the creator when the record is closed.
	RecordDeposit uint64
}

// Manager runs the five order lifecycle operations against the order
// store and the fund-transfer gateway.
//
// One mutex serializes all writes: the surrounding service guarantees a
// single writer per record, and the manager realizes that guarantee
// in-process. Each operation checks every precondition, including source
// balances, before moving any funds, so a rejected operation leaves the
// record and all balances untouched.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	orders *Store
	ledger *ledger.Ledger
	clock  util.Clock
	log    *zap.SugaredLogger
	events EventSink
}

func NewManager(cfg Config, orders *Store, l *ledger.Ledger, clock util.Clock, log *zap.SugaredLogger) *Manager {
	return &Manager{
		cfg:    cfg,
		orders: orders,
		ledger: l,
		clock:  clock,
		log:    log,
	}
}

// SetEventSink attaches a lifecycle event sink (e.g. the websocket hub).
func (m *Manager) SetEventSink(sink EventSink) {
	m.events = sink
}

// VaultMint returns the asset this market sells.
func (m *Manager) VaultMint() ledger.PublicKey { return m.cfg.VaultMint }

// CreateOrder posts a new order: it reserves the record deposit, moves
// amount units of the vault asset into escrow under the order's custody
// authority, and persists the record with Remaining == Amount. priceMint
// names the payment asset; the native sentinel settles in lamports.
func (m *Manager) CreateOrder(creator ledger.PublicKey, seed uint64, priceMint ledger.PublicKey, price, amount uint64, durationDays int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if price == 0 || amount == 0 || durationDays <= 0 {
		return nil, fmt.Errorf("%w: price, amount and duration must be positive", ErrInvalidArgument)
	}
	if priceMint != ledger.NativeMint {
		if _, err := m.ledger.Decimals(priceMint); err != nil {
			return nil, fmt.Errorf("%w: unknown price mint %s", ErrInvalidArgument, priceMint)
		}
	}

	now := m.clock.Now().Unix()
	expiration, err := expirationAt(now, durationDays)
	if err != nil {
		return nil, err
	}

	if _, err := m.orders.Get(creator, seed); err == nil {
		return nil, fmt.Errorf("%w: creator %s seed %d", ErrDuplicateOrder, creator, seed)
	}

	if bal := m.ledger.TokenBalance(creator, m.cfg.VaultMint); bal < amount {
		return nil, fmt.Errorf("%w: creator holds %d of vault asset, order needs %d",
			ledger.ErrInsufficientFunds, bal, amount)
	}
	if bal := m.ledger.NativeBalance(creator); bal < m.cfg.RecordDeposit {
		return nil, fmt.Errorf("%w: creator holds %d lamports, record deposit is %d",
			ledger.ErrInsufficientFunds, bal, m.cfg.RecordDeposit)
	}

	custodyKey, bump := DeriveAuthority(creator, seed)
	creatorAuth := ledger.NewAuthority(creator)

	// Escrow and deposit commit in one batch.
	if err := m.ledger.Execute(
		ledger.Movement{From: creator, To: custodyKey, Mint: m.cfg.VaultMint, Amount: amount, Auth: creatorAuth},
		ledger.Movement{From: creator, To: custodyKey, Mint: ledger.NativeMint, Amount: m.cfg.RecordDeposit, Auth: creatorAuth},
	); err != nil {
		return nil, fmt.Errorf("escrow funding failed: %w", err)
	}

	order := &Order{
		Seed:          seed,
		Creator:       creator,
		Amount:        amount,
		Remaining:     amount,
		Price:         price,
		PriceMint:     priceMint,
		Expiration:    expiration,
		AuthorityBump: bump,
	}

	if err := m.orders.Create(order); err != nil {
		return nil, err
	}

	m.log.Infow("order_created",
		"creator", creator.Hex(), "seed", seed,
		"price", price, "amount", amount, "expiration", expiration)
	m.publish(Event{
		Kind: EventCreated, Creator: creator, Seed: seed,
		Amount: amount, Remaining: amount, Timestamp: now,
	})
	return order, nil
}

// expirationAt converts a duration in days to an absolute deadline with
// overflow-checked arithmetic.
func expirationAt(now, durationDays int64) (int64, error) {
	seconds, ok := mulI64(durationDays, 86400)
	if !ok {
		return 0, fmt.Errorf("%w: duration %d days", ErrOverflow, durationDays)
	}
	expiration, ok := addI64(now, seconds)
	if !ok {
		return 0, fmt.Errorf("%w: expiration timestamp", ErrOverflow)
	}
	return expiration, nil
}

// BuyTokens fills an order: amount vault units move from escrow to the
// buyer and the payment moves from the buyer to the creator. Reaching
// zero remaining closes the record and refunds the deposit.
//
// The requested amount is bounded by Remaining, not by the nominal
// Amount, so an over-ask fails with ErrAmountExceedsAvailable instead of
// underflowing the decrement.
func (m *Manager) BuyTokens(buyer, creator ledger.PublicKey, seed, amount uint64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.orders.Get(creator, seed)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now().Unix()
	if order.Expired(now) {
		return nil, fmt.Errorf("%w: deadline %d, now %d", ErrOrderExpired, order.Expiration, now)
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: buy amount must be positive", ErrInvalidArgument)
	}
	if amount > order.Remaining {
		return nil, fmt.Errorf("%w: requested %d, remaining %d", ErrAmountExceedsAvailable, amount, order.Remaining)
	}

	payment, err := m.paymentDue(order, amount)
	if err != nil {
		return nil, err
	}

	custodyKey := AuthorityForBump(creator, seed, order.AuthorityBump)
	if bal := m.ledger.TokenBalance(custodyKey, m.cfg.VaultMint); bal < amount {
		// Escrow must equal Remaining between operations; anything less
		// is a custody invariant violation, not a caller error.
		return nil, fmt.Errorf("escrow balance %d below remaining %d for creator %s seed %d",
			bal, order.Remaining, creator, seed)
	}
	if order.PriceMint == ledger.NativeMint {
		if bal := m.ledger.NativeBalance(buyer); bal < payment {
			return nil, fmt.Errorf("%w: buyer holds %d lamports, payment is %d",
				ledger.ErrInsufficientFunds, bal, payment)
		}
	} else {
		if bal := m.ledger.TokenBalance(buyer, order.PriceMint); bal < payment {
			return nil, fmt.Errorf("%w: buyer holds %d of price asset, payment is %d",
				ledger.ErrInsufficientFunds, bal, payment)
		}
	}

	custody := ledger.NewAuthority(custodyKey)
	buyerAuth := ledger.NewAuthority(buyer)

	// Both legs commit in one batch, so a rejected payment cannot leave
	// the buyer holding unpaid vault units.
	if err := m.ledger.Execute(
		ledger.Movement{From: custodyKey, To: buyer, Mint: m.cfg.VaultMint, Amount: amount, Auth: custody},
		ledger.Movement{From: buyer, To: creator, Mint: order.PriceMint, Amount: payment, Auth: buyerAuth},
	); err != nil {
		return nil, fmt.Errorf("fill transfer failed: %w", err)
	}

	order.Remaining -= amount
	closed := order.Remaining == 0
	if closed {
		if err := m.closeRecord(order, custodyKey, 0); err != nil {
			return nil, err
		}
	} else {
		if err := m.orders.Update(order); err != nil {
			return nil, err
		}
	}

	m.log.Infow("order_filled",
		"creator", creator.Hex(), "seed", seed, "buyer", buyer.Hex(),
		"amount", amount, "payment", payment, "remaining", order.Remaining, "closed", closed)
	m.publish(Event{
		Kind: EventFilled, Creator: creator, Seed: seed, Buyer: buyer.Hex(),
		Amount: amount, Remaining: order.Remaining, Closed: closed, Timestamp: now,
	})
	return order, nil
}

// paymentDue computes what the buyer owes for amount units, in the
// smallest denomination of the price asset: price*amount whole units,
// scaled by 10^decimals (or to lamports for the native sentinel).
func (m *Manager) paymentDue(order *Order, amount uint64) (uint64, error) {
	total, ok := mulU64(order.Price, amount)
	if !ok {
		return 0, fmt.Errorf("%w: price %d * amount %d", ErrOverflow, order.Price, amount)
	}

	var scale uint64
	if order.PriceMint == ledger.NativeMint {
		scale = ledger.LamportsPerUnit
	} else {
		decimals, err := m.ledger.Decimals(order.PriceMint)
		if err != nil {
			return 0, err
		}
		scale, ok = pow10(decimals)
		if !ok {
			return 0, fmt.Errorf("%w: 10^%d", ErrOverflow, decimals)
		}
	}

	payment, ok := mulU64(total, scale)
	if !ok {
		return 0, fmt.Errorf("%w: total %d * scale %d", ErrOverflow, total, scale)
	}
	return payment, nil
}

// ModifyParams carries the independently optional updates of ModifyOrder;
// a nil field leaves that aspect unchanged.
type ModifyParams struct {
	NewAmount       *uint64
	NewPrice        *uint64
	NewDurationDays *int64
}

// ModifyOrder updates an unfilled order: resize re-balances the escrow
// before the new size commits, reprice overwrites the unit price, and
// reschedule recomputes the deadline from now.
func (m *Manager) ModifyOrder(caller, creator ledger.PublicKey, seed uint64, params ModifyParams) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.orders.Get(creator, seed)
	if err != nil {
		return nil, err
	}
	if caller != order.Creator {
		return nil, fmt.Errorf("%w: caller %s, creator %s", ErrUnauthorized, caller, order.Creator)
	}
	if order.Remaining != order.Amount {
		return nil, fmt.Errorf("%w: remaining %d of %d", ErrOrderPartiallyFilled, order.Remaining, order.Amount)
	}

	if params.NewAmount != nil && *params.NewAmount == 0 {
		return nil, fmt.Errorf("%w: new amount must be positive", ErrInvalidArgument)
	}
	if params.NewPrice != nil && *params.NewPrice == 0 {
		return nil, fmt.Errorf("%w: new price must be positive", ErrInvalidArgument)
	}

	now := m.clock.Now().Unix()
	var newExpiration int64
	if params.NewDurationDays != nil {
		if *params.NewDurationDays <= 0 {
			return nil, fmt.Errorf("%w: new duration must be positive", ErrInvalidArgument)
		}
		newExpiration, err = expirationAt(now, *params.NewDurationDays)
		if err != nil {
			return nil, err
		}
	}

	custodyKey := AuthorityForBump(creator, seed, order.AuthorityBump)
	if params.NewAmount != nil {
		newAmount := *params.NewAmount
		if newAmount > order.Amount {
			diff := newAmount - order.Amount
			if bal := m.ledger.TokenBalance(creator, m.cfg.VaultMint); bal < diff {
				return nil, fmt.Errorf("%w: creator holds %d of vault asset, resize needs %d",
					ledger.ErrInsufficientFunds, bal, diff)
			}
			if err := m.ledger.Transfer(creator, custodyKey, m.cfg.VaultMint, diff, ledger.NewAuthority(creator)); err != nil {
				return nil, fmt.Errorf("escrow top-up failed: %w", err)
			}
		} else if newAmount < order.Amount {
			diff := order.Amount - newAmount
			if err := m.ledger.Transfer(custodyKey, creator, m.cfg.VaultMint, diff, ledger.NewAuthority(custodyKey)); err != nil {
				return nil, fmt.Errorf("escrow withdrawal failed: %w", err)
			}
		}
		order.Amount = newAmount
		order.Remaining = newAmount
	}

	if params.NewPrice != nil {
		order.Price = *params.NewPrice
	}
	if params.NewDurationDays != nil {
		order.Expiration = newExpiration
	}

	if err := m.orders.Update(order); err != nil {
		return nil, err
	}

	m.log.Infow("order_modified",
		"creator", creator.Hex(), "seed", seed,
		"amount", order.Amount, "price", order.Price, "expiration", order.Expiration)
	m.publish(Event{
		Kind: EventModified, Creator: creator, Seed: seed,
		Amount: order.Amount, Remaining: order.Remaining, Timestamp: now,
	})
	return order, nil
}

// CancelOrder withdraws the full escrow back to the creator and closes
// the record. Only legal before any fill.
func (m *Manager) CancelOrder(caller, creator ledger.PublicKey, seed uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.orders.Get(creator, seed)
	if err != nil {
		return err
	}
	if caller != order.Creator {
		return fmt.Errorf("%w: caller %s, creator %s", ErrUnauthorized, caller, order.Creator)
	}
	if order.Remaining != order.Amount {
		return fmt.Errorf("%w: remaining %d of %d", ErrOrderPartiallyFilled, order.Remaining, order.Amount)
	}

	custodyKey := AuthorityForBump(creator, seed, order.AuthorityBump)
	if err := m.closeRecord(order, custodyKey, order.Amount); err != nil {
		return err
	}

	now := m.clock.Now().Unix()
	m.log.Infow("order_cancelled", "creator", creator.Hex(), "seed", seed, "amount", order.Amount)
	m.publish(Event{
		Kind: EventCancelled, Creator: creator, Seed: seed,
		Amount: order.Amount, Closed: true, Timestamp: now,
	})
	return nil
}

// SettleExpiredOrder reclaims unsold escrow after the deadline. It
// withdraws Remaining, not the nominal Amount, so a partially filled
// order settles cleanly. Any caller may trigger settlement; the escrow
// and the record deposit always go to the creator.
func (m *Manager) SettleExpiredOrder(caller, creator ledger.PublicKey, seed uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.orders.Get(creator, seed)
	if err != nil {
		return err
	}

	now := m.clock.Now().Unix()
	if !order.Expired(now) {
		return fmt.Errorf("%w: deadline %d, now %d", ErrOrderNotExpired, order.Expiration, now)
	}

	custodyKey := AuthorityForBump(creator, seed, order.AuthorityBump)
	if err := m.closeRecord(order, custodyKey, order.Remaining); err != nil {
		return err
	}

	m.log.Infow("order_settled",
		"creator", creator.Hex(), "seed", seed, "caller", caller.Hex(),
		"reclaimed", order.Remaining)
	m.publish(Event{
		Kind: EventSettled, Creator: creator, Seed: seed,
		Amount: order.Remaining, Closed: true, Timestamp: now,
	})
	return nil
}

// closeRecord destroys the record and returns its funds: escrowUnits of
// the vault asset plus the custody authority's entire native balance
// (the storage deposit) sweep back to the creator in one batch, then the
// record leaves the store. After this the (creator, seed) pair behaves
// as if the order never existed.
func (m *Manager) closeRecord(order *Order, custodyKey ledger.PublicKey, escrowUnits uint64) error {
	custody := ledger.NewAuthority(custodyKey)
	deposit := m.ledger.NativeBalance(custodyKey)
	if err := m.ledger.Execute(
		ledger.Movement{From: custodyKey, To: order.Creator, Mint: m.cfg.VaultMint, Amount: escrowUnits, Auth: custody},
		ledger.Movement{From: custodyKey, To: order.Creator, Mint: ledger.NativeMint, Amount: deposit, Auth: custody},
	); err != nil {
		return fmt.Errorf("record close failed: %w", err)
	}
	return m.orders.Delete(order.Creator, order.Seed)
}

// GetOrder loads one order record.
func (m *Manager) GetOrder(creator ledger.PublicKey, seed uint64) (*Order, error) {
	return m.orders.Get(creator, seed)
}

// ListOrders loads all open orders of one creator.
func (m *Manager) ListOrders(creator ledger.PublicKey) ([]*Order, error) {
	return m.orders.ListByCreator(creator)
}

// ListAllOrders loads every open order.
func (m *Manager) ListAllOrders() ([]*Order, error) {
	return m.orders.ListAll()
}

func (m *Manager) publish(ev Event) {
	if m.events != nil {
		m.events.Publish(ev)
	}
}
