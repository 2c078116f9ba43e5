package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinvest/internal/config"
	"coinvest/internal/db"
	"coinvest/internal/engine/accrual"
	"coinvest/internal/engine/marketsim"
	"coinvest/internal/handlers"
	"coinvest/internal/services"
	"coinvest/internal/store"
	"coinvest/internal/websocket"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	plans := store.NewPlanStore(database)
	investments := store.NewInvestmentStore(database)
	transactions := store.NewTransactionStore(database)
	notifications := store.NewNotificationStore(database)
	accrualRuns := store.NewAccrualRunStore(database)
	admin := store.NewAdminStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()
	service := services.NewInvestmentService(txRunner, users, plans, investments, transactions, notifications, audit, hub)

	accrualEngine := accrual.New(database, investments, plans, users, notifications, accrualRuns, hub, cfg.AccrualInterval)
	marketEngine := marketsim.New(database, transactions)

	if err := accrualEngine.Start(context.Background()); err != nil {
		log.Fatalf("failed to start accrual engine: %v", err)
	}
	go func() {
		for result := range accrualEngine.Results() {
			log.Printf("accrual tick: credited=%d skipped=%d users=%d failures=%d total=%s",
				result.InvestmentsCredited, result.InvestmentsSkipped, result.UsersCredited,
				result.Failures, result.TotalCredited.String())
		}
	}()
	if cfg.MarketSim {
		if err := marketEngine.Start(context.Background()); err != nil {
			log.Fatalf("failed to start market simulator: %v", err)
		}
	}

	handler := handlers.New(txRunner, cfg, users, plans, investments, transactions, notifications, accrualRuns, admin, audit, service, marketEngine, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("coinvest API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cfg.MarketSim {
		if err := marketEngine.Stop(ctx); err != nil {
			log.Printf("market simulator stop: %v", err)
		}
	}
	if err := accrualEngine.Stop(ctx); err != nil {
		log.Printf("accrual engine stop: %v", err)
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
