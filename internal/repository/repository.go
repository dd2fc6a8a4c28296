// Package repository enforces entity-level business rules on top of the
// tabular store: name uniqueness, input validation, clinic references and
// derived remaining stock.
package repository

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinicstock/m/domain"
	"clinicstock/m/internal/store"
)

// Repository serializes every read-modify-write with one mutex. The store
// itself is single-writer by contract and the HTTP layer handles requests
// concurrently, so the lock lives here.
type Repository struct {
	mu     sync.Mutex
	tables *store.Tables
	now    func() time.Time
}

// New constructs a Repository over tables.
func New(tables *store.Tables) *Repository {
	return &Repository{tables: tables, now: time.Now}
}

// UsageLine is one requested line item of a usage batch. Unconfirmed lines
// are ignored.
type UsageLine struct {
	MedicineID string
	Quantity   int
	Confirmed  bool
}

// AddMedicine appends a new medicine after validating inputs and the
// case-insensitive name uniqueness rule.
func (r *Repository) AddMedicine(name, category string, quantity int) (domain.Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	if name == "" || category == "" {
		return domain.Medicine{}, fmt.Errorf("%w: name and category are required", ErrValidation)
	}
	if quantity < 1 {
		return domain.Medicine{}, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	}
	medicines := r.tables.Medicines.Load()
	for _, m := range medicines {
		if strings.EqualFold(strings.TrimSpace(m.Name), name) {
			return domain.Medicine{}, fmt.Errorf("%w: medicine %q", ErrDuplicateName, m.Name)
		}
	}
	med := domain.Medicine{
		ID:             uuid.NewString(),
		Name:           name,
		Category:       category,
		QuantityOnHand: quantity,
		LastUpdated:    r.now(),
	}
	if !r.tables.Medicines.AppendAll([]domain.Medicine{med}) {
		return domain.Medicine{}, fmt.Errorf("%w: medicine %q", store.ErrStorageWrite, name)
	}
	return med, nil
}

// RestockMedicine increases quantityOnHand and stamps lastUpdated.
func (r *Repository) RestockMedicine(id string, quantity int) (domain.Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if quantity < 1 {
		return domain.Medicine{}, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	}
	medicines := r.tables.Medicines.Load()
	idx := -1
	for i, m := range medicines {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Medicine{}, fmt.Errorf("%w: medicine %s", ErrNotFound, id)
	}
	medicines[idx].QuantityOnHand += quantity
	medicines[idx].LastUpdated = r.now()
	if !r.tables.Medicines.SaveAll(medicines) {
		return domain.Medicine{}, fmt.Errorf("%w: medicine %s", store.ErrStorageWrite, id)
	}
	return medicines[idx], nil
}

// AddUser appends a new user. A blank clinicID resolves to the default
// (first seeded) clinic; a nonexistent one is a validation error.
func (r *Repository) AddUser(name, notes, clinicID string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	users := r.tables.Users.Load()
	for _, u := range users {
		if strings.EqualFold(strings.TrimSpace(u.Name), name) {
			return domain.User{}, fmt.Errorf("%w: user %q", ErrDuplicateName, u.Name)
		}
	}
	clinics := r.tables.Clinics.Load()
	clinicID = strings.TrimSpace(clinicID)
	if clinicID == "" {
		if len(clinics) == 0 {
			return domain.User{}, fmt.Errorf("%w: no clinics configured", ErrValidation)
		}
		clinicID = clinics[0].ID
	} else if findClinic(clinics, clinicID) == nil {
		return domain.User{}, fmt.Errorf("%w: clinic %s does not exist", ErrValidation, clinicID)
	}
	user := domain.User{
		ID:       uuid.NewString(),
		Name:     name,
		Notes:    strings.TrimSpace(notes),
		ClinicID: clinicID,
	}
	if !r.tables.Users.AppendAll([]domain.User{user}) {
		return domain.User{}, fmt.Errorf("%w: user %q", store.ErrStorageWrite, name)
	}
	return user, nil
}

// TransferUser moves the user to newClinicID in place.
func (r *Repository) TransferUser(userID, newClinicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if findClinic(r.tables.Clinics.Load(), newClinicID) == nil {
		return fmt.Errorf("%w: clinic %s", ErrNotFound, newClinicID)
	}
	users := r.tables.Users.Load()
	idx := -1
	for i, u := range users {
		if u.ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	users[idx].ClinicID = newClinicID
	if !r.tables.Users.SaveAll(users) {
		return fmt.Errorf("%w: user %s", store.ErrStorageWrite, userID)
	}
	return nil
}

// DeleteUser removes the user row. Usage events referencing the id are
// deliberately left untouched, so historical usage stays attributed to
// the deleted id.
func (r *Repository) DeleteUser(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.tables.Users.Load()
	kept := make([]domain.User, 0, len(users))
	found := false
	for _, u := range users {
		if u.ID == userID {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if !r.tables.Users.SaveAll(kept) {
		return fmt.Errorf("%w: user %s", store.ErrStorageWrite, userID)
	}
	return nil
}

// RecordUsage validates the whole batch of confirmed lines against derived
// remaining stock, then appends one event per line. The batch is
// all-or-nothing at the validation stage; the append itself inherits the
// store's non-transactional contract.
func (r *Repository) RecordUsage(userID string, lines []UsageLine) ([]domain.UsageEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := findUser(r.tables.Users.Load(), userID)
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	confirmed := make([]UsageLine, 0, len(lines))
	for _, line := range lines {
		if line.Confirmed {
			confirmed = append(confirmed, line)
		}
	}
	if len(confirmed) == 0 {
		return nil, fmt.Errorf("%w: no confirmed line items", ErrValidation)
	}

	medicines := r.tables.Medicines.Load()
	byID := make(map[string]domain.Medicine, len(medicines))
	for _, m := range medicines {
		byID[m.ID] = m
	}

	events := r.tables.UsageEvents.Load()
	used := make(map[string]int, len(events))
	for _, e := range events {
		used[e.MedicineID] += e.Quantity
	}

	requested := make(map[string]int, len(confirmed))
	for _, line := range confirmed {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
		}
		if _, ok := byID[line.MedicineID]; !ok {
			return nil, fmt.Errorf("%w: medicine %s", ErrNotFound, line.MedicineID)
		}
		requested[line.MedicineID] += line.Quantity
	}

	var shortages []StockShortage
	for _, m := range medicines {
		req, ok := requested[m.ID]
		if !ok {
			continue
		}
		remaining := m.QuantityOnHand - used[m.ID]
		if req > remaining {
			shortages = append(shortages, StockShortage{
				MedicineID:   m.ID,
				MedicineName: m.Name,
				Requested:    req,
				Remaining:    remaining,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}

	now := r.now()
	newEvents := make([]domain.UsageEvent, 0, len(confirmed))
	for _, line := range confirmed {
		newEvents = append(newEvents, domain.UsageEvent{
			ID:         uuid.NewString(),
			MedicineID: line.MedicineID,
			UserID:     user.ID,
			UserName:   user.Name,
			Notes:      user.Notes,
			Quantity:   line.Quantity,
			Timestamp:  now,
			ClinicID:   user.ClinicID,
		})
	}
	if !r.tables.UsageEvents.AppendAll(newEvents) {
		return nil, fmt.Errorf("%w: usage for user %s", store.ErrStorageWrite, userID)
	}
	return newEvents, nil
}

// Read accessors. They take the same mutex so reports never observe a
// half-written workbook.

func (r *Repository) Medicines() []domain.Medicine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables.Medicines.Load()
}

func (r *Repository) Users() []domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables.Users.Load()
}

func (r *Repository) UsageEvents() []domain.UsageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables.UsageEvents.Load()
}

func (r *Repository) Clinics() []domain.Clinic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tables.Clinics.Load()
}

func findClinic(clinics []domain.Clinic, id string) *domain.Clinic {
	for i := range clinics {
		if clinics[i].ID == id {
			return &clinics[i]
		}
	}
	return nil
}

func findUser(users []domain.User, id string) *domain.User {
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}
