package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"clinicstock/m/internal/api"
	"clinicstock/m/internal/config"
	"clinicstock/m/internal/repository"
	"clinicstock/m/internal/seed"
	"clinicstock/m/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	st := store.New(cfg.DataFile)
	if err := st.Initialize(); err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	tables := store.NewTables(st)

	seed.EnsureClinics(tables)
	if cfg.CatalogCSV != "" {
		seed.LoadCatalog(tables, cfg.CatalogCSV)
	}

	repo := repository.New(tables)
	handler, err := api.New(repo, cfg.Secret, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("handler init failed: %v", err)
	}

	log.Printf("ClinicStock server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
