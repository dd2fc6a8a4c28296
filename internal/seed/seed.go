// Package seed prepares first-run data: the default clinics and an
// optional medicine catalog import.
package seed

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinicstock/m/domain"
	"clinicstock/m/internal/store"
)

var defaultClinics = []string{"Main Clinic", "Annex Clinic"}

// EnsureClinics seeds the default clinics when the table is empty. The
// first clinic becomes the default assignment for new users.
func EnsureClinics(tables *store.Tables) {
	if len(tables.Clinics.Load()) > 0 {
		return
	}
	clinics := make([]domain.Clinic, 0, len(defaultClinics))
	for _, name := range defaultClinics {
		clinics = append(clinics, domain.Clinic{ID: uuid.NewString(), Name: name})
	}
	if !tables.Clinics.AppendAll(clinics) {
		log.Printf("unable to seed default clinics")
		return
	}
	log.Printf("seeded %d default clinics", len(clinics))
}

// LoadCatalog ingests a CSV of name,category,quantity into the medicines
// table, ignoring duplicates case-insensitively.
func LoadCatalog(tables *store.Tables, csvPath string) {
	file, err := os.Open(csvPath)
	if err != nil {
		log.Printf("unable to load medicine catalog %s: %v", csvPath, err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Printf("unable to read catalog header: %v", err)
		return
	}

	existing := tables.Medicines.Load()
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[strings.ToLower(strings.TrimSpace(m.Name))] = true
	}

	var added []domain.Medicine
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("unable to read catalog row: %v", err)
			continue
		}
		if len(record) < 3 {
			continue
		}
		name := strings.TrimSpace(record[0])
		category := strings.TrimSpace(record[1])
		quantity, convErr := strconv.Atoi(strings.TrimSpace(record[2]))
		if name == "" || category == "" || convErr != nil || quantity < 0 {
			continue
		}
		if seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		added = append(added, domain.Medicine{
			ID:             uuid.NewString(),
			Name:           name,
			Category:       category,
			QuantityOnHand: quantity,
			LastUpdated:    time.Now(),
		})
	}

	if len(added) == 0 {
		return
	}
	if !tables.Medicines.AppendAll(added) {
		log.Printf("unable to store medicine catalog rows")
		return
	}
	log.Printf("seeded medicine catalog with %d rows", len(added))
}
