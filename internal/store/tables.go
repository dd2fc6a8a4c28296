package store

import (
	"log"
	"strconv"
	"time"

	"clinicstock/m/domain"
)

// Table is the typed view over one named table. Rows are decoded at this
// boundary so nothing above the store handles raw cells.
type Table[T any] struct {
	store  *Store
	name   string
	decode func(Row) (T, error)
	encode func(T) Row
}

// Load reads every record in the table. Rows that fail to decode are
// logged and skipped, matching the store's degrade-to-empty read policy.
func (t Table[T]) Load() []T {
	rows := t.store.ReadTable(t.name)
	items := make([]T, 0, len(rows))
	for _, row := range rows {
		item, err := t.decode(row)
		if err != nil {
			log.Printf("store: skipping bad %s row %q: %v", t.name, row["id"], err)
			continue
		}
		items = append(items, item)
	}
	return items
}

// SaveAll overwrites the table with items in order.
func (t Table[T]) SaveAll(items []T) bool {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, t.encode(item))
	}
	return t.store.WriteTable(t.name, rows)
}

// AppendAll appends items after the existing records. Inherits the
// non-atomicity of Store.AppendTable.
func (t Table[T]) AppendAll(items []T) bool {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, t.encode(item))
	}
	return t.store.AppendTable(t.name, rows)
}

// Tables bundles the typed accessors for every table in the workbook.
type Tables struct {
	Medicines   Table[domain.Medicine]
	Users       Table[domain.User]
	UsageEvents Table[domain.UsageEvent]
	Clinics     Table[domain.Clinic]
}

// NewTables wires the typed layer over s.
func NewTables(s *Store) *Tables {
	return &Tables{
		Medicines: Table[domain.Medicine]{
			store:  s,
			name:   TableMedicines,
			decode: decodeMedicine,
			encode: encodeMedicine,
		},
		Users: Table[domain.User]{
			store:  s,
			name:   TableUsers,
			decode: decodeUser,
			encode: encodeUser,
		},
		UsageEvents: Table[domain.UsageEvent]{
			store:  s,
			name:   TableUsageEvents,
			decode: decodeUsageEvent,
			encode: encodeUsageEvent,
		},
		Clinics: Table[domain.Clinic]{
			store:  s,
			name:   TableClinics,
			decode: decodeClinic,
			encode: encodeClinic,
		},
	}
}

func decodeMedicine(row Row) (domain.Medicine, error) {
	qty, err := strconv.Atoi(row["quantity"])
	if err != nil {
		return domain.Medicine{}, err
	}
	updated, err := parseCellTime(row["lastUpdated"])
	if err != nil {
		return domain.Medicine{}, err
	}
	return domain.Medicine{
		ID:             row["id"],
		Name:           row["name"],
		Category:       row["category"],
		QuantityOnHand: qty,
		LastUpdated:    updated,
	}, nil
}

func encodeMedicine(m domain.Medicine) Row {
	return Row{
		"id":          m.ID,
		"name":        m.Name,
		"category":    m.Category,
		"quantity":    strconv.Itoa(m.QuantityOnHand),
		"lastUpdated": m.LastUpdated.Format(time.RFC3339),
	}
}

func decodeUser(row Row) (domain.User, error) {
	return domain.User{
		ID:       row["id"],
		Name:     row["name"],
		Notes:    row["notes"],
		ClinicID: row["clinicId"],
	}, nil
}

func encodeUser(u domain.User) Row {
	return Row{
		"id":       u.ID,
		"name":     u.Name,
		"notes":    u.Notes,
		"clinicId": u.ClinicID,
	}
}

func decodeUsageEvent(row Row) (domain.UsageEvent, error) {
	qty, err := strconv.Atoi(row["quantity"])
	if err != nil {
		return domain.UsageEvent{}, err
	}
	ts, err := parseCellTime(row["timestamp"])
	if err != nil {
		return domain.UsageEvent{}, err
	}
	return domain.UsageEvent{
		ID:         row["id"],
		MedicineID: row["medicineId"],
		UserID:     row["userId"],
		UserName:   row["userNameSnapshot"],
		Notes:      row["notes"],
		Quantity:   qty,
		Timestamp:  ts,
		ClinicID:   row["clinicId"],
	}, nil
}

func encodeUsageEvent(e domain.UsageEvent) Row {
	return Row{
		"id":               e.ID,
		"medicineId":       e.MedicineID,
		"userId":           e.UserID,
		"userNameSnapshot": e.UserName,
		"notes":            e.Notes,
		"quantity":         strconv.Itoa(e.Quantity),
		"timestamp":        e.Timestamp.Format(time.RFC3339),
		"clinicId":         e.ClinicID,
	}
}

func decodeClinic(row Row) (domain.Clinic, error) {
	return domain.Clinic{ID: row["id"], Name: row["name"]}, nil
}

func encodeClinic(c domain.Clinic) Row {
	return Row{"id": c.ID, "name": c.Name}
}

// parseCellTime accepts RFC3339 cells and plain dates left behind by
// hand-edited sheets.
func parseCellTime(cell string) (time.Time, error) {
	if cell == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, cell); err == nil {
		return ts, nil
	}
	return time.ParseInLocation("2006-01-02", cell, time.Local)
}
