// Genera datos de muestra contra el store configurado. Los secretos en
// plaintext se guardan en un archivo aparte SOLO para probar en dev.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/keywarden/internal/config"
	"github.com/dropDatabas3/keywarden/internal/security/secretbox"
	"github.com/dropDatabas3/keywarden/internal/store"
	"github.com/dropDatabas3/keywarden/internal/store/core"
)

type sampleKey struct {
	id        string
	clientID  string
	alias     string
	status    core.KeyStatus
	expiresIn time.Duration // negativo = ya expirada
	createdIn time.Duration // negativo = creada en el pasado
	// cero = nunca desactivada
	deactivatedIn time.Duration
	label         string
}

func main() {
	var (
		flagConfig  = flag.String("config", "", "ruta a config.yaml (opcional)")
		flagEnvFile = flag.String("env-file", ".env", "ruta a .env")
		flagSecrets = flag.String("secrets-out", "", "archivo para los plaintext (default junto al store fs)")
	)
	flag.Parse()

	if *flagEnvFile != "" {
		_ = godotenv.Load(*flagEnvFile)
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	box, err := secretbox.New(cfg.Security.MasterPassword)
	if err != nil {
		log.Fatalf("secretbox: %v", err)
	}

	ctx := context.Background()
	stores, err := store.Open(ctx, store.Config{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		DSN:    cfg.Storage.DSN,
	})
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer stores.Close()

	day := 24 * time.Hour
	samples := []sampleKey{
		{"mlm-prod-key-001", "MLM_PROD", "MLM Prod Key 2025-Q1", core.StatusActive, 90 * day, -30 * day, 0, "MLM_PROD Active Key 1"},
		{"mlm-prod-key-002", "MLM_PROD", "MLM Prod Key 2025-Q2", core.StatusActive, 180 * day, -5 * day, 0, "MLM_PROD Active Key 2"},
		{"mlm-prod-key-003-inactive", "MLM_PROD", "MLM Prod Key 2024-Q4 (Deactivated)", core.StatusInactive, -10 * day, -120 * day, -10 * day, "MLM_PROD Inactive Key"},
		{"mlces-prod-key-001", "MLCES_PROD", "MLCES Prod Key 2025-Q1", core.StatusActive, 90 * day, -20 * day, 0, "MLCES_PROD Active Key"},
		{"mlcws-prod-key-001", "MLCWS_PROD", "MLCWS Prod Key 2025-Q1", core.StatusPendingDeactivation, 30 * day, -60 * day, 0, "MLCWS_PROD Pending Key"},
		{"mlcws-prod-key-002-expired", "MLCWS_PROD", "MLCWS Prod Key 2024-Q3 (Expired)", core.StatusInactive, -60 * day, -150 * day, -60 * day, "MLCWS_PROD Expired Key"},
	}

	now := time.Now().UTC()
	secrets := make([]string, 0, len(samples))
	for _, s := range samples {
		plain, err := box.GenerateSecret()
		if err != nil {
			log.Fatalf("generate secret: %v", err)
		}
		encrypted, err := box.Encrypt(plain)
		if err != nil {
			log.Fatalf("encrypt: %v", err)
		}

		exp := now.Add(s.expiresIn)
		rec := core.KeyRecord{
			ID:              s.id,
			ClientID:        s.clientID,
			KeyAlias:        s.alias,
			EncryptedSecret: encrypted,
			Status:          s.status,
			ExpirationDate:  &exp,
			CreatedBy:       "admin",
			CreatedAt:       now.Add(s.createdIn),
		}
		if s.deactivatedIn != 0 {
			d := now.Add(s.deactivatedIn)
			rec.DeactivatedAt = &d
		}

		if err := stores.Keys.Add(ctx, &rec); err != nil {
			log.Fatalf("add %s: %v", s.id, err)
		}
		secrets = append(secrets, fmt.Sprintf("%s: %s", s.label, plain))
	}

	fmt.Printf("Sample data generated: %d keys\n", len(samples))
	fmt.Println("  - MLM_PROD: 2 active, 1 inactive")
	fmt.Println("  - MLCES_PROD: 1 active")
	fmt.Println("  - MLCWS_PROD: 1 pending deactivation, 1 expired")

	secretsPath := *flagSecrets
	if secretsPath == "" {
		secretsPath = filepath.Join(filepath.Dir(cfg.Storage.Path), "plaintext_secrets.txt")
	}
	out := "# Plaintext secrets for testing (DO NOT COMMIT IN PRODUCTION!)\n\n"
	for _, line := range secrets {
		out += line + "\n"
	}
	if err := os.WriteFile(secretsPath, []byte(out), 0o600); err != nil {
		log.Fatalf("write secrets file: %v", err)
	}
	fmt.Printf("Plaintext secrets saved to %s for testing purposes\n", secretsPath)
}
