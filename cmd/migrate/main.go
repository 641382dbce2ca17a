package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/bimerz/portal-service/internal/customer"
	"github.com/bimerz/portal-service/internal/customer/entity"
	"github.com/bimerz/portal-service/pkg/database"
	"github.com/bimerz/portal-service/pkg/utilities"
)

// migrate applies the embedded schema and seeds the first admin from
// ADMIN_NATIONAL_CODE / ADMIN_INSURANCE_CODE / ADMIN_NAME / ADMIN_PHONE.
func main() {
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := database.Migrate(ctx, db.DB); err != nil {
		sugar.Fatalf("migrate: %v", err)
	}
	v, err := database.Version(ctx, db.DB)
	if err != nil {
		sugar.Fatalf("schema version: %v", err)
	}
	sugar.Infow("schema up to date", "version", v)

	code := os.Getenv("ADMIN_NATIONAL_CODE")
	if code == "" {
		sugar.Info("ADMIN_NATIONAL_CODE not set; skipping admin seed")
		return
	}
	name := os.Getenv("ADMIN_NAME")
	if name == "" {
		name = "مدیر سامانه"
	}
	created, err := customer.NewCustomerService(db, nil, nil, sugar).EnsureAdmin(ctx, entity.Input{
		FullName:      name,
		NationalCode:  code,
		InsuranceCode: os.Getenv("ADMIN_INSURANCE_CODE"),
		Phone:         os.Getenv("ADMIN_PHONE"),
	})
	if err != nil {
		sugar.Fatalf("seed admin: %v", err)
	}
	if created {
		sugar.Infow("admin account created", "national_code", code)
	} else {
		sugar.Info("admin account already present")
	}
}
