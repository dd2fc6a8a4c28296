// Package store persists named two-dimensional tables inside one
// file-backed workbook, emulating database tables as spreadsheet sheets.
//
// Every operation reloads or rewrites the whole file, and AppendTable is a
// read-modify-write with no locking: the store is single-writer by
// contract. Callers that handle requests concurrently must serialize
// mutations themselves.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Table names.
const (
	TableMedicines   = "Medicines"
	TableUsers       = "Users"
	TableUsageEvents = "UsageEvents"
	TableClinics     = "Clinics"
)

var (
	ErrStorageInit  = errors.New("storage init failed")
	ErrStorageWrite = errors.New("storage write failed")
)

// Declared column order per table. WriteTable always serializes in this
// order so the on-disk layout stays stable across rewrites.
var schemas = map[string][]string{
	TableMedicines:   {"id", "name", "category", "quantity", "lastUpdated"},
	TableUsers:       {"id", "name", "notes", "clinicId"},
	TableUsageEvents: {"id", "medicineId", "userId", "userNameSnapshot", "notes", "quantity", "timestamp", "clinicId"},
	TableClinics:     {"id", "name"},
}

// Row is one record with cells labeled by column name. All cells are
// strings; typed decoding happens in the Table layer.
type Row map[string]string

type sheet struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

type workbook map[string]*sheet

// Store owns the workbook file. Construct once at startup and pass by
// reference; there is no package-level instance.
type Store struct {
	path string
}

// New returns a store backed by the workbook file at path. The file is not
// touched until Initialize or the first write.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the workbook file location.
func (s *Store) Path() string {
	return s.path
}

// Initialize ensures the backing file and every declared table exist,
// creating missing tables with their declared header rows. Safe to call on
// every startup.
func (s *Store) Initialize() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", ErrStorageInit, dir, err)
		}
	}

	wb, err := s.load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: reading %s: %v", ErrStorageInit, s.path, err)
		}
		wb = workbook{}
	}

	changed := false
	for name, cols := range schemas {
		if wb[name] == nil {
			wb[name] = &sheet{Header: append([]string(nil), cols...)}
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := s.save(wb); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorageInit, s.path, err)
	}
	return nil
}

// ReadTable loads the full table. Columns are labeled by the table's
// persisted header row, falling back to the declared header when the sheet
// has none. A missing or unreadable table degrades to an empty result;
// read failures are logged, never returned.
func (s *Store) ReadTable(name string) []Row {
	wb, err := s.load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("store: reading %s: %v", s.path, err)
		}
		return nil
	}
	sh := wb[name]
	if sh == nil {
		return nil
	}
	header := sh.Header
	if len(header) == 0 {
		header = schemas[name]
	}
	rows := make([]Row, 0, len(sh.Rows))
	for _, cells := range sh.Rows {
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(cells) {
				row[col] = cells[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteTable serializes rows in the table's declared column order and
// overwrites all existing rows in that table, leaving the other tables
// untouched. Returns false on failure so the caller can decide whether a
// failed write is fatal.
func (s *Store) WriteTable(name string, rows []Row) bool {
	cols, ok := schemas[name]
	if !ok {
		log.Printf("store: unknown table %q", name)
		return false
	}
	wb, err := s.load()
	if err != nil {
		// A corrupt file must fail the write rather than clobber the
		// other tables; only a missing file starts a fresh workbook.
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("store: reading %s before write: %v", s.path, err)
			return false
		}
		wb = workbook{}
		for n, c := range schemas {
			wb[n] = &sheet{Header: append([]string(nil), c...)}
		}
	}
	sh := &sheet{Header: append([]string(nil), cols...), Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = row[col]
		}
		sh.Rows = append(sh.Rows, cells)
	}
	wb[name] = sh
	if err := s.save(wb); err != nil {
		log.Printf("store: writing %s: %v", s.path, err)
		return false
	}
	return true
}

// AppendTable reads the table, concatenates newRows and writes the result
// back. Not atomic: two concurrent appends race on the whole file and one
// appender's rows can be lost. Single-writer contract, see package doc.
func (s *Store) AppendTable(name string, newRows []Row) bool {
	existing := s.ReadTable(name)
	return s.WriteTable(name, append(existing, newRows...))
}

func (s *Store) load() (workbook, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var wb workbook
	if err := json.Unmarshal(data, &wb); err != nil {
		return nil, err
	}
	return wb, nil
}

func (s *Store) save(wb workbook) error {
	data, err := json.MarshalIndent(wb, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
