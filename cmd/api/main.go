package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bimerz/portal-service/internal/auth"
	"github.com/bimerz/portal-service/internal/backup"
	"github.com/bimerz/portal-service/internal/blog"
	"github.com/bimerz/portal-service/internal/cache"
	"github.com/bimerz/portal-service/internal/customer"
	"github.com/bimerz/portal-service/internal/installment"
	"github.com/bimerz/portal-service/internal/policy"
	"github.com/bimerz/portal-service/internal/router"
	"github.com/bimerz/portal-service/internal/storage"
	"github.com/bimerz/portal-service/pkg/database"
	"github.com/bimerz/portal-service/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting portal-service")

	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheCfg := cache.ConfigFromEnv()
	counts, err := cache.Connect(ctx, cacheCfg, sugar)
	if err != nil {
		sugar.Fatalf("redis connect: %v", err)
	}
	defer counts.Close()

	files, err := storage.NewLocal(storage.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("upload storage: %v", err)
	}

	authCfg := auth.ConfigFromEnv()
	customers := customer.NewCustomerService(db, nil, nil, sugar)
	policies := policy.NewService(db, nil, files, counts, sugar)
	installments := installment.NewService(db, nil, counts, sugar)
	blogs := blog.NewService(db, nil, files, sugar)
	authSvc, err := auth.NewAuthService(db, authCfg, customers, nil, sugar)
	if err != nil {
		sugar.Fatalf("auth: %v", err)
	}
	limiter := cache.NewRateLimiter(counts.Client(), authCfg.LoginLimit, authCfg.LoginWindow)
	backups := backup.NewService(backup.Sources{
		Customers:    customers.All,
		Policies:     policies.All,
		Installments: installments.All,
		Blogs:        blogs.All,
	})

	handler := router.RegisterRoutes(router.Deps{
		Logger:       sugar,
		DB:           db,
		Verifier:     authSvc,
		Auth:         auth.NewHandler(authSvc, limiter, sugar),
		Customers:    customer.NewHandler(customers, sugar),
		Policies:     policy.NewHandler(policies, sugar),
		Installments: installment.NewHandler(installments, sugar),
		Blogs:        blog.NewHandler(blogs, sugar),
		Backup:       backup.NewHandler(backups, sugar),
	})

	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("http server listening", "addr", addr, "redis", cacheCfg.Addr != "")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
