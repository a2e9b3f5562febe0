// createlicense inserts a full or dev activation code directly into the
// database, for VIP and developer access outside the purchase flow.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/recapstack/decide-api/internal/domain/license"
	"github.com/recapstack/decide-api/internal/storage/postgres"
	"github.com/recapstack/decide-api/internal/util"
	"go.uber.org/zap"
)

func main() {
	licenseType := flag.String("type", "full", "License type to create (full or dev)")
	code := flag.String("code", "", "Activation code (generated when empty)")
	email := flag.String("email", "", "Optional purchaser email")
	flag.Parse()

	if *licenseType != string(license.TypeFull) && *licenseType != string(license.TypeDev) {
		log.Fatalf("Invalid type %q: must be full or dev", *licenseType)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	newCode := *code
	if newCode == "" {
		generated, err := util.GenerateLicenseCode()
		if err != nil {
			log.Fatalf("Failed to generate code: %v", err)
		}
		newCode = generated
	}

	logger, _ := zap.NewDevelopment()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	repo := postgres.NewLicenseRepository(pool, logger)

	rec := &license.License{
		Code: newCode,
		Type: license.LicenseType(*licenseType),
	}
	if *email != "" {
		rec.Email = sql.NullString{String: *email, Valid: true}
	}

	id, err := repo.Create(context.Background(), rec)
	if err != nil {
		log.Fatalf("Failed to save license to database: %v", err)
	}

	fmt.Printf("License created:\n  ID:   %s\n  Code: %s\n  Type: %s\n", id, newCode, *licenseType)
	fmt.Println("\nThe code is unbound; the first device to verify it will claim it.")
}
