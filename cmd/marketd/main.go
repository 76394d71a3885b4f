package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Memewtoo/sol-secondary-market/params"
	"github.com/Memewtoo/sol-secondary-market/pkg/api"
	"github.com/Memewtoo/sol-secondary-market/pkg/ledger"
	"github.com/Memewtoo/sol-secondary-market/pkg/market"
	"github.com/Memewtoo/sol-secondary-market/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("") // "" means load .env from current directory

	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.LogFile)

	// ---- Ledger + order store ----
	ledg, err := ledger.Open(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		sugar.Fatalw("ledger_open_failed", "err", err)
	}
	defer ledg.Close()

	orders, err := market.NewStore(filepath.Join(cfg.DataDir, "orders"))
	if err != nil {
		sugar.Fatalw("order_store_open_failed", "err", err)
	}
	defer orders.Close()

	// ---- Vault asset ----
	vaultMint := ledger.MintKey(cfg.Market.VaultSymbol)
	if cfg.Market.VaultMint != "" {
		vaultMint, err = ledger.ParsePublicKey(cfg.Market.VaultMint)
		if err != nil {
			sugar.Fatalw("bad_vault_mint", "err", err)
		}
	}
	if _, err := ledg.MintInfo(vaultMint); err != nil {
		if err := ledg.RegisterMint(ledger.Mint{
			Key:      vaultMint,
			Symbol:   cfg.Market.VaultSymbol,
			Decimals: cfg.Market.VaultDecimals,
		}); err != nil {
			sugar.Fatalw("vault_mint_register_failed", "err", err)
		}
		sugar.Infow("vault_mint_registered",
			"key", vaultMint.Hex(), "symbol", cfg.Market.VaultSymbol)
	}

	// ---- Lifecycle manager + API ----
	mgr := market.NewManager(market.Config{
		VaultMint:     vaultMint,
		RecordDeposit: cfg.Market.RecordDeposit,
	}, orders, ledg, util.RealClock{}, sugar)

	srv := api.NewServer(mgr, ledg, sugar, cfg.API.CORSOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.API.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		sugar.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Errorw("api_server_failed", "err", err)
		}
	}
}
