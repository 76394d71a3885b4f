package market

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Memewtoo/sol-secondary-market/pkg/ledger"
	"github.com/Memewtoo/sol-secondary-market/pkg/util"
)

var (
	alice = ledger.PublicKey{0xAA}
	bob   = ledger.PublicKey{0xBB}
	carol = ledger.PublicKey{0xCC}

	vaultMint = ledger.MintKey("SEC")
	usdcMint  = ledger.MintKey("USDC")
)

const testDeposit = 1_000_000

type testEnv struct {
	mgr    *Manager
	ledger *ledger.Ledger
	clock  *util.ManualClock
}

// newTestEnv builds a manager over fresh Pebble databases with the SEC
// vault mint and a USDC price mint registered, and funds alice as the
// seller and bob as the buyer.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	ledg, err := ledger.Open(filepath.Join(dir, "ledger"))
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(func() { ledg.Close() })

	orders, err := NewStore(filepath.Join(dir, "orders"))
	if err != nil {
		t.Fatalf("failed to open order store: %v", err)
	}
	t.Cleanup(func() { orders.Close() })

	for _, m := range []ledger.Mint{
		{Key: vaultMint, Symbol: "SEC", Decimals: 6},
		{Key: usdcMint, Symbol: "USDC", Decimals: 6},
	} {
		if err := ledg.RegisterMint(m); err != nil {
			t.Fatalf("failed to register mint %s: %v", m.Symbol, err)
		}
	}

	// Seller holds vault tokens plus lamports for record deposits; buyer
	// holds both payment assets.
	if err := ledg.MintTo(alice, vaultMint, 1_000); err != nil {
		t.Fatalf("funding failed: %v", err)
	}
	if err := ledg.CreditNative(alice, 10*testDeposit); err != nil {
		t.Fatalf("funding failed: %v", err)
	}
	if err := ledg.MintTo(bob, usdcMint, 10_000_000_000); err != nil {
		t.Fatalf("funding failed: %v", err)
	}
	if err := ledg.CreditNative(bob, 1_000_000_000_000); err != nil {
		t.Fatalf("funding failed: %v", err)
	}

	clock := util.NewManualClock(time.Unix(1_700_000_000, 0))
	mgr := NewManager(Config{
		VaultMint:     vaultMint,
		RecordDeposit: testDeposit,
	}, orders, ledg, clock, zap.NewNop().Sugar())

	return &testEnv{mgr: mgr, ledger: ledg, clock: clock}
}

func (e *testEnv) escrowKey(t *testing.T, creator ledger.PublicKey, seed uint64) ledger.PublicKey {
	t.Helper()
	order, err := e.mgr.GetOrder(creator, seed)
	if err != nil {
		t.Fatalf("failed to load order: %v", err)
	}
	return AuthorityForBump(creator, seed, order.AuthorityBump)
}

func TestCreateOrderFundsEscrow(t *testing.T) {
	env := newTestEnv(t)

	order, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if order.Remaining != order.Amount || order.Amount != 100 {
		t.Errorf("amount/remaining = %d/%d, want 100/100", order.Amount, order.Remaining)
	}
	wantExp := env.clock.Now().Unix() + 86400
	if order.Expiration != wantExp {
		t.Errorf("expiration = %d, want %d", order.Expiration, wantExp)
	}

	escrow := env.escrowKey(t, alice, 1)
	if bal := env.ledger.TokenBalance(escrow, vaultMint); bal != 100 {
		t.Errorf("escrow balance = %d, want 100", bal)
	}
	if bal := env.ledger.TokenBalance(alice, vaultMint); bal != 900 {
		t.Errorf("creator balance = %d, want 900", bal)
	}
	if bal := env.ledger.NativeBalance(escrow); bal != testDeposit {
		t.Errorf("record deposit = %d, want %d", bal, testDeposit)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 0, 100, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero price: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 0, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero amount: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, -1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative duration: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := env.mgr.CreateOrder(alice, 1, ledger.PublicKey{0x99}, 10, 100, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown price mint: err = %v, want ErrInvalidArgument", err)
	}

	// Expiration arithmetic must be overflow-checked, not wrapping.
	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1<<62); !errors.Is(err, ErrOverflow) {
		t.Errorf("huge duration: err = %v, want ErrOverflow", err)
	}

	// Insufficient vault holding is delegated to the gateway.
	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 5_000, 1); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Errorf("oversize order: err = %v, want ErrInsufficientFunds", err)
	}
}

func TestCreateOrderDuplicateSeed(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 7, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := env.mgr.CreateOrder(alice, 7, usdcMint, 20, 50, 2); !errors.Is(err, ErrDuplicateOrder) {
		t.Errorf("err = %v, want ErrDuplicateOrder", err)
	}

	// Different creator, same seed is a distinct identity.
	if err := env.ledger.MintTo(carol, vaultMint, 100); err != nil {
		t.Fatalf("funding failed: %v", err)
	}
	if err := env.ledger.CreditNative(carol, testDeposit); err != nil {
		t.Fatalf("funding failed: %v", err)
	}
	if _, err := env.mgr.CreateOrder(carol, 7, usdcMint, 5, 100, 1); err != nil {
		t.Errorf("same seed, different creator failed: %v", err)
	}
}

func TestBuyTokensPartialFill(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	escrow := env.escrowKey(t, alice, 1)

	order, err := env.mgr.BuyTokens(bob, alice, 1, 40)
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	if order.Remaining != 60 {
		t.Errorf("remaining = %d, want 60", order.Remaining)
	}
	if order.Amount != 100 {
		t.Errorf("nominal amount = %d, want 100 (fills must not touch it)", order.Amount)
	}
	if bal := env.ledger.TokenBalance(bob, vaultMint); bal != 40 {
		t.Errorf("buyer vault balance = %d, want 40", bal)
	}
	// price 10 * amount 40 = 400 whole units = 400 * 10^6 USDC base units
	wantPay := uint64(400_000_000)
	if bal := env.ledger.TokenBalance(alice, usdcMint); bal != wantPay {
		t.Errorf("creator payment = %d, want %d", bal, wantPay)
	}
	if bal := env.ledger.TokenBalance(bob, usdcMint); bal != 10_000_000_000-wantPay {
		t.Errorf("buyer payment balance = %d, want %d", bal, 10_000_000_000-wantPay)
	}
	// Custody invariant: escrow tracks remaining exactly.
	if bal := env.ledger.TokenBalance(escrow, vaultMint); bal != 60 {
		t.Errorf("escrow balance = %d, want 60", bal)
	}
}

func TestBuyTokensNativePayment(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, ledger.NativeMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	aliceNativeBefore := env.ledger.NativeBalance(alice)
	if _, err := env.mgr.BuyTokens(bob, alice, 1, 40); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	// 400 whole native units converted to lamports.
	wantPay := uint64(400) * ledger.LamportsPerUnit
	if got := env.ledger.NativeBalance(alice) - aliceNativeBefore; got != wantPay {
		t.Errorf("creator received %d lamports, want %d", got, wantPay)
	}
}

func TestBuyTokensFullFillClosesOrder(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	escrow := env.escrowKey(t, alice, 1)
	aliceNativeBefore := env.ledger.NativeBalance(alice)

	if _, err := env.mgr.BuyTokens(bob, alice, 1, 60); err != nil {
		t.Fatalf("first buy failed: %v", err)
	}
	order, err := env.mgr.BuyTokens(bob, alice, 1, 40)
	if err != nil {
		t.Fatalf("closing buy failed: %v", err)
	}
	if order.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", order.Remaining)
	}

	// Record destroyed, escrow empty, deposit refunded.
	if _, err := env.mgr.GetOrder(alice, 1); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("get after close: err = %v, want ErrOrderNotFound", err)
	}
	if bal := env.ledger.TokenBalance(escrow, vaultMint); bal != 0 {
		t.Errorf("escrow balance = %d, want 0", bal)
	}
	if bal := env.ledger.NativeBalance(escrow); bal != 0 {
		t.Errorf("escrow lamports = %d, want 0", bal)
	}
	if got := env.ledger.NativeBalance(alice) - aliceNativeBefore; got != testDeposit {
		t.Errorf("deposit refund = %d, want %d", got, testDeposit)
	}

	// The identity behaves as if the order never existed.
	if _, err := env.mgr.BuyTokens(bob, alice, 1, 1); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("buy after close: err = %v, want ErrOrderNotFound", err)
	}
}

func TestBuyTokensBoundedByRemaining(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := env.mgr.BuyTokens(bob, alice, 1, 40); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	// 60 remain; asking 61 must fail gracefully even though the nominal
	// amount is 100.
	if _, err := env.mgr.BuyTokens(bob, alice, 1, 61); !errors.Is(err, ErrAmountExceedsAvailable) {
		t.Errorf("err = %v, want ErrAmountExceedsAvailable", err)
	}

	// Exactly the remainder closes the order.
	if _, err := env.mgr.BuyTokens(bob, alice, 1, 60); err != nil {
		t.Errorf("boundary buy failed: %v", err)
	}
}

func TestBuyTokensExpired(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	env.clock.Advance(24*time.Hour + time.Second)
	if _, err := env.mgr.BuyTokens(bob, alice, 1, 10); !errors.Is(err, ErrOrderExpired) {
		t.Errorf("err = %v, want ErrOrderExpired", err)
	}

	// Rejection leaves the record untouched.
	order, err := env.mgr.GetOrder(alice, 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if order.Remaining != 100 {
		t.Errorf("remaining = %d, want 100", order.Remaining)
	}
}

func TestBuyTokensOverflow(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 1<<63, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := env.mgr.BuyTokens(bob, alice, 1, 100); !errors.Is(err, ErrOverflow) {
		t.Errorf("err = %v, want ErrOverflow", err)
	}
}

func TestBuyTokensInsufficientPaymentLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	escrow := env.escrowKey(t, alice, 1)

	// Carol holds no USDC at all.
	if _, err := env.mgr.BuyTokens(carol, alice, 1, 10); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	order, err := env.mgr.GetOrder(alice, 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if order.Remaining != 100 {
		t.Errorf("remaining = %d, want 100", order.Remaining)
	}
	if bal := env.ledger.TokenBalance(escrow, vaultMint); bal != 100 {
		t.Errorf("escrow balance = %d, want 100", bal)
	}
	if bal := env.ledger.TokenBalance(carol, vaultMint); bal != 0 {
		t.Errorf("carol vault balance = %d, want 0", bal)
	}
}

func TestBuyTokensSelfPurchase(t *testing.T) {
	env := newTestEnv(t)

	if err := env.ledger.MintTo(alice, usdcMint, 1_000_000_000); err != nil {
		t.Fatalf("funding failed: %v", err)
	}
	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	escrow := env.escrowKey(t, alice, 1)
	usdcBefore := env.ledger.TokenBalance(alice, usdcMint)

	order, err := env.mgr.BuyTokens(alice, alice, 1, 40)
	if err != nil {
		t.Fatalf("self buy failed: %v", err)
	}

	// Paying yourself must be value-neutral in the price asset.
	if bal := env.ledger.TokenBalance(alice, usdcMint); bal != usdcBefore {
		t.Errorf("payment balance = %d, want %d (self-payment may not create value)", bal, usdcBefore)
	}
	// The vault leg still fills normally: 40 back out of the 100 escrowed.
	if bal := env.ledger.TokenBalance(alice, vaultMint); bal != 940 {
		t.Errorf("vault balance = %d, want 940", bal)
	}
	if order.Remaining != 60 {
		t.Errorf("remaining = %d, want 60", order.Remaining)
	}
	if bal := env.ledger.TokenBalance(escrow, vaultMint); bal != 60 {
		t.Errorf("escrow balance = %d, want 60", bal)
	}
}

func TestBuyTokensPaymentFailureLeavesEscrowIntact(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	escrow := env.escrowKey(t, alice, 1)

	// The creator's payment balance has no headroom for the credit, so
	// the payment leg must fail after the escrow leg has been checked.
	if err := env.ledger.MintTo(alice, usdcMint, math.MaxUint64-5); err != nil {
		t.Fatalf("funding failed: %v", err)
	}

	if _, err := env.mgr.BuyTokens(bob, alice, 1, 40); err == nil {
		t.Fatal("buy with overflowing payment credit accepted")
	}

	// Neither leg may commit alone.
	if bal := env.ledger.TokenBalance(escrow, vaultMint); bal != 100 {
		t.Errorf("escrow balance = %d, want 100", bal)
	}
	if bal := env.ledger.TokenBalance(bob, vaultMint); bal != 0 {
		t.Errorf("buyer vault balance = %d, want 0 (no unpaid units)", bal)
	}
	if bal := env.ledger.TokenBalance(bob, usdcMint); bal != 10_000_000_000 {
		t.Errorf("buyer payment balance = %d, want unchanged", bal)
	}
	order, err := env.mgr.GetOrder(alice, 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if order.Remaining != 100 {
		t.Errorf("remaining = %d, want 100", order.Remaining)
	}
}

func TestModifyOrderResize(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	escrow := env.escrowKey(t, alice, 1)

	// Grow: the difference moves from the creator into escrow.
	amount := uint64(150)
	order, err := env.mgr.ModifyOrder(alice, alice, 1, ModifyParams{NewAmount: &amount})
	if err != nil {
		t.Fatalf("modify failed: %v", err)
	}
	if order.Amount != 150 || order.Remaining != 150 {
		t.Errorf("amount/remaining = %d/%d, want 150/150", order.Amount, order.Remaining)
	}
	if bal := env.ledger.TokenBalance(escrow, vaultMint); bal != 150 {
		t.Errorf("escrow balance = %d, want 150", bal)
	}
	if bal := env.ledger.TokenBalance(alice, vaultMint); bal != 850 {
		t.Errorf("creator balance = %d, want 850", bal)
	}

	// Shrink: the excess returns to the creator.
	amount = 20
	order, err = env.mgr.ModifyOrder(alice, alice, 1, ModifyParams{NewAmount: &amount})
	if err != nil {
		t.Fatalf("modify failed: %v", err)
	}
	if order.Amount != 20 || order.Remaining != 20 {
		t.Errorf("amount/remaining = %d/%d, want 20/20", order.Amount, order.Remaining)
	}
	if bal := env.ledger.TokenBalance(escrow, vaultMint); bal != 20 {
		t.Errorf("escrow balance = %d, want 20", bal)
	}
	if bal := env.ledger.TokenBalance(alice, vaultMint); bal != 980 {
		t.Errorf("creator balance = %d, want 980", bal)
	}
}

func TestModifyOrderPriceAndDuration(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	env.clock.Advance(6 * time.Hour)
	price := uint64(25)
	days := int64(3)
	order, err := env.mgr.ModifyOrder(alice, alice, 1, ModifyParams{NewPrice: &price, NewDurationDays: &days})
	if err != nil {
		t.Fatalf("modify failed: %v", err)
	}

	if order.Price != 25 {
		t.Errorf("price = %d, want 25", order.Price)
	}
	wantExp := env.clock.Now().Unix() + 3*86400
	if order.Expiration != wantExp {
		t.Errorf("expiration = %d, want %d (rescheduled from now)", order.Expiration, wantExp)
	}

	// Reschedule uses checked arithmetic.
	huge := int64(1 << 62)
	if _, err := env.mgr.ModifyOrder(alice, alice, 1, ModifyParams{NewDurationDays: &huge}); !errors.Is(err, ErrOverflow) {
		t.Errorf("err = %v, want ErrOverflow", err)
	}
}

func TestModifyOrderGates(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	price := uint64(25)
	if _, err := env.mgr.ModifyOrder(bob, alice, 1, ModifyParams{NewPrice: &price}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("foreign modify: err = %v, want ErrUnauthorized", err)
	}

	// Any fill, however small, forecloses modification permanently.
	if _, err := env.mgr.BuyTokens(bob, alice, 1, 1); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, err := env.mgr.ModifyOrder(alice, alice, 1, ModifyParams{NewPrice: &price}); !errors.Is(err, ErrOrderPartiallyFilled) {
		t.Errorf("post-fill modify: err = %v, want ErrOrderPartiallyFilled", err)
	}
}

func TestCancelOrderRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	vaultBefore := env.ledger.TokenBalance(alice, vaultMint)
	nativeBefore := env.ledger.NativeBalance(alice)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := env.mgr.CancelOrder(alice, alice, 1); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// Create immediately followed by cancel is a complete round trip.
	if bal := env.ledger.TokenBalance(alice, vaultMint); bal != vaultBefore {
		t.Errorf("vault balance = %d, want %d", bal, vaultBefore)
	}
	if bal := env.ledger.NativeBalance(alice); bal != nativeBefore {
		t.Errorf("native balance = %d, want %d", bal, nativeBefore)
	}
	if _, err := env.mgr.GetOrder(alice, 1); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("get after cancel: err = %v, want ErrOrderNotFound", err)
	}
}

func TestCancelOrderGates(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := env.mgr.CancelOrder(bob, alice, 1); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("foreign cancel: err = %v, want ErrUnauthorized", err)
	}

	if _, err := env.mgr.BuyTokens(bob, alice, 1, 30); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if err := env.mgr.CancelOrder(alice, alice, 1); !errors.Is(err, ErrOrderPartiallyFilled) {
		t.Errorf("post-fill cancel: err = %v, want ErrOrderPartiallyFilled", err)
	}
}

func TestSettleExpiredOrder(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := env.mgr.BuyTokens(bob, alice, 1, 40); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	escrow := env.escrowKey(t, alice, 1)

	if err := env.mgr.SettleExpiredOrder(alice, alice, 1); !errors.Is(err, ErrOrderNotExpired) {
		t.Fatalf("early settle: err = %v, want ErrOrderNotExpired", err)
	}

	env.clock.Advance(24*time.Hour + time.Second)

	vaultBefore := env.ledger.TokenBalance(alice, vaultMint)
	nativeBefore := env.ledger.NativeBalance(alice)

	// A partially filled order settles its true escrow balance, and any
	// caller may trigger the cleanup.
	if err := env.mgr.SettleExpiredOrder(carol, alice, 1); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	if got := env.ledger.TokenBalance(alice, vaultMint) - vaultBefore; got != 60 {
		t.Errorf("reclaimed %d vault units, want 60 (remaining, not nominal)", got)
	}
	if got := env.ledger.NativeBalance(alice) - nativeBefore; got != testDeposit {
		t.Errorf("deposit refund = %d, want %d", got, testDeposit)
	}
	if bal := env.ledger.TokenBalance(escrow, vaultMint); bal != 0 {
		t.Errorf("escrow balance = %d, want 0", bal)
	}
	if _, err := env.mgr.GetOrder(alice, 1); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("get after settle: err = %v, want ErrOrderNotFound", err)
	}
}

func TestListOrders(t *testing.T) {
	env := newTestEnv(t)

	for seed := uint64(1); seed <= 3; seed++ {
		if _, err := env.mgr.CreateOrder(alice, seed, usdcMint, 10, 50, 1); err != nil {
			t.Fatalf("create %d failed: %v", seed, err)
		}
	}

	orders, err := env.mgr.ListOrders(alice)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("got %d orders, want 3", len(orders))
	}
	for i, o := range orders {
		if o.Seed != uint64(i+1) {
			t.Errorf("orders[%d].Seed = %d, want %d (seed order)", i, o.Seed, i+1)
		}
	}

	all, err := env.mgr.ListAllOrders()
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d orders, want 3", len(all))
	}
}

// eventRecorder captures published lifecycle events for assertions.
type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) Publish(ev Event) { r.events = append(r.events, ev) }

func TestLifecycleEvents(t *testing.T) {
	env := newTestEnv(t)
	rec := &eventRecorder{}
	env.mgr.SetEventSink(rec)

	if _, err := env.mgr.CreateOrder(alice, 1, usdcMint, 10, 100, 1); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := env.mgr.BuyTokens(bob, alice, 1, 100); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	if len(rec.events) != 2 {
		t.Fatalf("got %d events, want 2", len(rec.events))
	}
	if rec.events[0].Kind != EventCreated {
		t.Errorf("events[0].Kind = %s, want created", rec.events[0].Kind)
	}
	if rec.events[1].Kind != EventFilled || !rec.events[1].Closed {
		t.Errorf("events[1] = %+v, want closing fill", rec.events[1])
	}
}
