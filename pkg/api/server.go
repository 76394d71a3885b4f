package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Memewtoo/sol-secondary-market/pkg/crypto"
	"github.com/Memewtoo/sol-secondary-market/pkg/ledger"
	"github.com/Memewtoo/sol-secondary-market/pkg/market"
)

// Server exposes the order lifecycle over REST and streams lifecycle
// events over WebSocket. Every state-changing request arrives as a
// SignedRequest; the server verifies the ed25519 signature and hands the
// authenticated signer key to the lifecycle manager.
type Server struct {
	mgr    *market.Manager
	ledger *ledger.Ledger
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger

	corsOrigins []string
}

// NewServer wires the API against a lifecycle manager and ledger. The
// manager's event sink is pointed at the server's WebSocket hub.
func NewServer(mgr *market.Manager, l *ledger.Ledger, log *zap.SugaredLogger, corsOrigins []string) *Server {
	s := &Server{
		mgr:         mgr,
		ledger:      l,
		router:      mux.NewRouter(),
		hub:         NewHub(log),
		log:         log,
		corsOrigins: corsOrigins,
	}

	mgr.SetEventSink(s.hub)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Lifecycle operations (signed)
	api.HandleFunc("/orders", s.handleCreateOrder).Methods("POST")
	api.HandleFunc("/orders/buy", s.handleBuyTokens).Methods("POST")
	api.HandleFunc("/orders/modify", s.handleModifyOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/settle", s.handleSettleOrder).Methods("POST")

	// Queries
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders/{creator}/{seed}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/accounts/{key}/orders", s.handleAccountOrders).Methods("GET")
	api.HandleFunc("/accounts/{key}/balances", s.handleAccountBalances).Methods("GET")
	api.HandleFunc("/mints", s.handleGetMints).Methods("GET")

	// WebSocket event stream
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the CORS-wrapped root handler (also used by tests).
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start runs the WebSocket hub and serves the API.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// ==============================
// Lifecycle handlers
// ==============================

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	signer, payload, ok := s.verifySigned(w, r)
	if !ok {
		return
	}

	var req CreateOrderPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}

	priceMint := ledger.NativeMint
	if req.PriceMint != "" {
		var err error
		priceMint, err = ledger.ParsePublicKey(req.PriceMint)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid price mint", err.Error())
			return
		}
	}

	order, err := s.mgr.CreateOrder(signer, req.Seed, priceMint, req.Price, req.Amount, req.DurationDays)
	if err != nil {
		s.respondLifecycleError(w, "create", err)
		return
	}
	respondJSON(w, orderInfo(order))
}

func (s *Server) handleBuyTokens(w http.ResponseWriter, r *http.Request) {
	signer, payload, ok := s.verifySigned(w, r)
	if !ok {
		return
	}

	var req BuyTokensPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}

	creator, err := ledger.ParsePublicKey(req.Creator)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid creator", err.Error())
		return
	}

	order, err := s.mgr.BuyTokens(signer, creator, req.Seed, req.Amount)
	if err != nil {
		s.respondLifecycleError(w, "buy", err)
		return
	}
	respondJSON(w, orderInfo(order))
}

func (s *Server) handleModifyOrder(w http.ResponseWriter, r *http.Request) {
	signer, payload, ok := s.verifySigned(w, r)
	if !ok {
		return
	}

	var req ModifyOrderPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}

	creator, ok2 := s.creatorOrSigner(w, req.Creator, signer)
	if !ok2 {
		return
	}

	order, err := s.mgr.ModifyOrder(signer, creator, req.Seed, market.ModifyParams{
		NewAmount:       req.NewAmount,
		NewPrice:        req.NewPrice,
		NewDurationDays: req.NewDurationDays,
	})
	if err != nil {
		s.respondLifecycleError(w, "modify", err)
		return
	}
	respondJSON(w, orderInfo(order))
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	signer, payload, ok := s.verifySigned(w, r)
	if !ok {
		return
	}

	var req CancelOrderPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}

	creator, ok2 := s.creatorOrSigner(w, req.Creator, signer)
	if !ok2 {
		return
	}

	if err := s.mgr.CancelOrder(signer, creator, req.Seed); err != nil {
		s.respondLifecycleError(w, "cancel", err)
		return
	}
	respondJSON(w, map[string]string{"status": "cancelled"})
}

func (s *Server) handleSettleOrder(w http.ResponseWriter, r *http.Request) {
	signer, payload, ok := s.verifySigned(w, r)
	if !ok {
		return
	}

	var req SettleOrderPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}

	creator, err := ledger.ParsePublicKey(req.Creator)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid creator", err.Error())
		return
	}

	if err := s.mgr.SettleExpiredOrder(signer, creator, req.Seed); err != nil {
		s.respondLifecycleError(w, "settle", err)
		return
	}
	respondJSON(w, map[string]string{"status": "settled"})
}

// ==============================
// Query handlers
// ==============================

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.mgr.ListAllOrders()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list orders", err.Error())
		return
	}
	respondJSON(w, orderInfos(orders))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	creator, err := ledger.ParsePublicKey(vars["creator"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid creator", err.Error())
		return
	}
	seed, err := strconv.ParseUint(vars["seed"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid seed", err.Error())
		return
	}

	order, err := s.mgr.GetOrder(creator, seed)
	if err != nil {
		s.respondLifecycleError(w, "get", err)
		return
	}
	respondJSON(w, orderInfo(order))
}

func (s *Server) handleAccountOrders(w http.ResponseWriter, r *http.Request) {
	key, err := ledger.ParsePublicKey(mux.Vars(r)["key"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid key", err.Error())
		return
	}

	orders, err := s.mgr.ListOrders(key)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list orders", err.Error())
		return
	}
	respondJSON(w, orderInfos(orders))
}

func (s *Server) handleAccountBalances(w http.ResponseWriter, r *http.Request) {
	key, err := ledger.ParsePublicKey(mux.Vars(r)["key"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid key", err.Error())
		return
	}

	holdings, err := s.ledger.Holdings(key)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load holdings", err.Error())
		return
	}

	infos := make([]HoldingInfo, len(holdings))
	for i, h := range holdings {
		infos[i] = HoldingInfo{Mint: h.Mint.Hex(), Balance: h.Balance}
	}
	respondJSON(w, BalancesInfo{
		Address:  key.Hex(),
		Native:   s.ledger.NativeBalance(key),
		Holdings: infos,
	})
}

func (s *Server) handleGetMints(w http.ResponseWriter, r *http.Request) {
	mints := s.ledger.ListMints()
	infos := make([]MintInfo, len(mints))
	for i, m := range mints {
		infos[i] = MintInfo{Key: m.Key.Hex(), Symbol: m.Symbol, Decimals: m.Decimals}
	}
	respondJSON(w, infos)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

// verifySigned decodes the request envelope and verifies the signature
// over the raw payload bytes. Writes the error response itself so
// handlers can early-return on !ok.
func (s *Server) verifySigned(w http.ResponseWriter, r *http.Request) (ledger.PublicKey, json.RawMessage, bool) {
	var req SignedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return ledger.PublicKey{}, nil, false
	}
	if len(req.Payload) == 0 {
		respondError(w, http.StatusBadRequest, "missing payload", "")
		return ledger.PublicKey{}, nil, false
	}

	signer, err := ledger.ParsePublicKey(req.Signer)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid signer key", err.Error())
		return ledger.PublicKey{}, nil, false
	}

	if !crypto.VerifyHex(signer, req.Payload, req.Signature) {
		respondError(w, http.StatusUnauthorized, "invalid signature", "")
		return ledger.PublicKey{}, nil, false
	}

	return signer, req.Payload, true
}

// creatorOrSigner resolves an optional creator field, defaulting to the
// authenticated signer.
func (s *Server) creatorOrSigner(w http.ResponseWriter, creatorHex string, signer ledger.PublicKey) (ledger.PublicKey, bool) {
	if creatorHex == "" {
		return signer, true
	}
	creator, err := ledger.ParsePublicKey(creatorHex)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid creator", err.Error())
		return ledger.PublicKey{}, false
	}
	return creator, true
}

// respondLifecycleError maps the lifecycle error taxonomy onto HTTP
// status codes.
func (s *Server) respondLifecycleError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, market.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, market.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, market.ErrDuplicateOrder),
		errors.Is(err, market.ErrOrderPartiallyFilled):
		status = http.StatusConflict
	case errors.Is(err, market.ErrOrderExpired):
		status = http.StatusGone
	case errors.Is(err, market.ErrOrderNotExpired):
		status = http.StatusTooEarly
	case errors.Is(err, market.ErrAmountExceedsAvailable),
		errors.Is(err, market.ErrOverflow):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, market.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	}

	s.log.Warnw("lifecycle_rejected", "op", op, "status", status, "err", err)
	respondError(w, status, fmt.Sprintf("%s failed", op), err.Error())
}

func orderInfo(o *market.Order) OrderInfo {
	return OrderInfo{
		Creator:    o.Creator.Hex(),
		Seed:       o.Seed,
		Amount:     o.Amount,
		Remaining:  o.Remaining,
		Price:      o.Price,
		PriceMint:  o.PriceMint.Hex(),
		Expiration: o.Expiration,
	}
}

func orderInfos(orders []*market.Order) []OrderInfo {
	infos := make([]OrderInfo, len(orders))
	for i, o := range orders {
		infos[i] = orderInfo(o)
	}
	return infos
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
