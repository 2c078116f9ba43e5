package handlers

import (
	"net/http"

	"coinvest/internal/config"
	"coinvest/internal/db"
	"coinvest/internal/middleware"
	"coinvest/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	txRunner      db.TxRunner
	cfg           config.Config
	users         UserStore
	plans         PlanStore
	investments   InvestmentStore
	transactions  TransactionStore
	notifications NotificationStore
	accrualRuns   AccrualRunStore
	admin         AdminStore
	audit         AuditStore
	service       InvestmentService
	market        MarketFeed
	hub           *websocket.Hub
}

func New(txRunner db.TxRunner, cfg config.Config, users UserStore, plans PlanStore, investments InvestmentStore, transactions TransactionStore, notifications NotificationStore, accrualRuns AccrualRunStore, admin AdminStore, audit AuditStore, service InvestmentService, market MarketFeed, hub *websocket.Hub) *Handler {
	return &Handler{
		txRunner:      txRunner,
		cfg:           cfg,
		users:         users,
		plans:         plans,
		investments:   investments,
		transactions:  transactions,
		notifications: notifications,
		accrualRuns:   accrualRuns,
		admin:         admin,
		audit:         audit,
		service:       service,
		market:        market,
		hub:           hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})
	router.Get("/plans", h.ListPlans)
	router.Get("/plans/{id}", h.GetPlan)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/investments", h.RequestInvestment)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/investments", h.ListInvestments)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/transactions/deposit", h.RequestDeposit)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/transactions/withdraw", h.RequestWithdrawal)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/transactions", h.ListTransactions)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/notifications", h.ListNotifications)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/notifications/{id}/read", h.MarkNotificationRead)
	router.Get("/market/trades", h.MarketTrades)
	router.Get("/market/tokens", h.MarketTokens)
	router.Get("/ws/balances", h.WSBalances)

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.With(middleware.RequireAdmin(h.admin, "CanViewUsers")).Get("/users", h.AdminListUsers)
		r.With(middleware.RequireAdmin(h.admin, "CanEditUsers")).Post("/users/{id}/balance", h.AdminAdjustBalance)
		r.With(middleware.RequireAdmin(h.admin, "CanEditUsers")).Post("/users/{id}/plan", h.AdminSetUserPlan)
		r.With(middleware.RequireAdmin(h.admin, "CanEditPlans")).Post("/plans", h.AdminCreatePlan)
		r.With(middleware.RequireAdmin(h.admin, "CanEditPlans")).Put("/plans/{id}", h.AdminUpdatePlan)
		r.With(middleware.RequireAdmin(h.admin, "CanViewTransactions")).Get("/transactions", h.AdminListTransactions)
		r.With(middleware.RequireAdmin(h.admin, "CanEditTransactions")).Post("/transactions/{id}/confirm", h.AdminConfirmTransaction)
		r.With(middleware.RequireAdmin(h.admin, "CanEditTransactions")).Post("/transactions/{id}/reject", h.AdminRejectTransaction)
		r.With(middleware.RequireAdmin(h.admin, "CanViewTransactions")).Get("/accrual-runs", h.AdminListAccrualRuns)
		r.With(middleware.RequireAdmin(h.admin, "")).Post("/roles/grant", h.GrantRole)
		r.With(middleware.RequireAdmin(h.admin, "")).Post("/promote", h.PromoteAdmin)
		r.With(middleware.RequireAdmin(h.admin, "CanViewTransactions")).Get("/audit", h.ListAuditLogs)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
