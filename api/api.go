// Package api exposes the lending controller over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/DomeLiquid/lending/core"
	"github.com/DomeLiquid/lending/lending"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

// Service is the controller surface served by the router.
type Service interface {
	InitializeBank(ctx context.Context, asset string, cfg core.BankConfig) (*core.Bank, error)
	GetBank(ctx context.Context, asset string) (*core.Bank, error)
	ListBanks(ctx context.Context) ([]*core.Bank, error)
	InitializeUser(ctx context.Context, owner string) (*core.Position, error)
	GetPosition(ctx context.Context, owner string) (*core.Position, error)
	ListOperations(ctx context.Context, owner string, limit int) ([]*core.Operate, error)
	AccountHealth(ctx context.Context, owner string) (*lending.Health, error)

	Deposit(ctx context.Context, owner, asset string, amount decimal.Decimal) (*lending.Receipt, error)
	Withdraw(ctx context.Context, owner, asset string, amount decimal.Decimal) (*lending.Receipt, error)
	Borrow(ctx context.Context, owner, asset string, amount decimal.Decimal) (*lending.Receipt, error)
	Repay(ctx context.Context, owner, asset string, amount decimal.Decimal) (*lending.Receipt, error)
	WithdrawAll(ctx context.Context, owner, asset string) (*lending.Receipt, error)
	RepayAll(ctx context.Context, owner, asset string) (*lending.Receipt, error)
}

var _ Service = (*lending.Controller)(nil)

const defaultOperationsLimit = 50

type Option func(s *Server)

// WithMetrics mounts handler at path.
func WithMetrics(path string, handler http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metrics = handler
	}
}

type Server struct {
	service Service
	log     core.Log

	metricsPath string
	metrics     http.Handler

	router http.Handler
}

func New(service Service, log core.Log, opts ...Option) *Server {
	s := &Server{
		service: service,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, s.metricsPath, s.metrics)
	}

	r.Route("/banks", func(r chi.Router) {
		r.Get("/", s.listBanks)
		r.Post("/", s.initializeBank)
		r.Get("/{asset}", s.getBank)
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", s.initializeUser)
		r.Route("/{owner}", func(r chi.Router) {
			r.Get("/", s.getPosition)
			r.Get("/health", s.accountHealth)
			r.Get("/operations", s.listOperations)
			r.Post("/{action}", s.operate)
		})
	})

	return r
}

type bankResponse struct {
	*core.Bank
	DepositApy decimal.Decimal `json:"depositApy"`
	BorrowApy  decimal.Decimal `json:"borrowApy"`
}

func newBankResponse(bank *core.Bank) bankResponse {
	resp := bankResponse{Bank: bank}
	resp.DepositApy, resp.BorrowApy = bank.Apy()
	return resp
}

type initializeBankRequest struct {
	Asset  string          `json:"asset"`
	Config core.BankConfig `json:"config"`
}

func (s *Server) initializeBank(w http.ResponseWriter, r *http.Request) {
	var req initializeBankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid payload")
		return
	}

	bank, err := s.service.InitializeBank(r.Context(), req.Asset, req.Config)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBankResponse(bank))
}

func (s *Server) listBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := s.service.ListBanks(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := make([]bankResponse, 0, len(banks))
	for _, bank := range banks {
		resp = append(resp, newBankResponse(bank))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getBank(w http.ResponseWriter, r *http.Request) {
	bank, err := s.service.GetBank(r.Context(), chi.URLParam(r, "asset"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBankResponse(bank))
}

func (s *Server) initializeUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid payload")
		return
	}

	position, err := s.service.InitializeUser(r.Context(), req.Owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, position)
}

func (s *Server) getPosition(w http.ResponseWriter, r *http.Request) {
	position, err := s.service.GetPosition(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, position)
}

func (s *Server) accountHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.service.AccountHealth(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) listOperations(w http.ResponseWriter, r *http.Request) {
	limit := defaultOperationsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ops, err := s.service.ListOperations(r.Context(), chi.URLParam(r, "owner"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ops == nil {
		ops = []*core.Operate{}
	}
	writeJSON(w, http.StatusOK, ops)
}

type operateRequest struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) operate(w http.ResponseWriter, r *http.Request) {
	action, ok := core.ParseActionType(chi.URLParam(r, "action"))
	if !ok {
		writeError(w, http.StatusNotFound, "NotFound", "unknown action")
		return
	}

	var req operateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid payload")
		return
	}

	var (
		ctx   = r.Context()
		owner = chi.URLParam(r, "owner")

		receipt *lending.Receipt
		err     error
	)
	switch action {
	case core.ActionDeposit:
		receipt, err = s.service.Deposit(ctx, owner, req.Asset, req.Amount)
	case core.ActionWithdraw:
		receipt, err = s.service.Withdraw(ctx, owner, req.Asset, req.Amount)
	case core.ActionBorrow:
		receipt, err = s.service.Borrow(ctx, owner, req.Asset, req.Amount)
	case core.ActionRepay:
		receipt, err = s.service.Repay(ctx, owner, req.Asset, req.Amount)
	case core.ActionWithdrawAll:
		receipt, err = s.service.WithdrawAll(ctx, owner, req.Asset)
	case core.ActionRepayAll:
		receipt, err = s.service.RepayAll(ctx, owner, req.Asset)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
