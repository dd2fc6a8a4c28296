package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "data", "clinicstock.json"))
	require.NoError(t, s.Initialize())
	return s
}

func TestInitializeCreatesAllTables(t *testing.T) {
	s := newTestStore(t)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var wb map[string]struct {
		Header []string   `json:"header"`
		Rows   [][]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(data, &wb))

	for name, cols := range schemas {
		require.Contains(t, wb, name)
		require.Equal(t, cols, wb[name].Header)
		require.Empty(t, wb[name].Rows)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.True(t, s.WriteTable(TableClinics, []Row{{"id": "c1", "name": "Main"}}))

	require.NoError(t, s.Initialize())

	rows := s.ReadTable(TableClinics)
	require.Len(t, rows, 1)
	require.Equal(t, "Main", rows[0]["name"])
}

func TestInitializeFailsWhenDirectoryBlocked(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := New(filepath.Join(blocker, "sub", "wb.json"))
	err := s.Initialize()
	require.ErrorIs(t, err, ErrStorageInit)
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	rows := []Row{
		{"id": "m1", "name": "Paracetamol", "category": "Analgesic", "quantity": "10", "lastUpdated": "2026-01-05T09:00:00Z"},
		{"id": "m2", "name": "Amoxicillin", "category": "Antibiotic", "quantity": "4", "lastUpdated": "2026-01-05T09:30:00Z"},
	}
	require.True(t, s.WriteTable(TableMedicines, rows))

	got := s.ReadTable(TableMedicines)
	require.Equal(t, rows, got)
}

func TestAppendPreservesExistingAndOrder(t *testing.T) {
	s := newTestStore(t)

	first := Row{"id": "c1", "name": "Main"}
	second := Row{"id": "c2", "name": "Annex"}
	third := Row{"id": "c3", "name": "Outreach"}
	require.True(t, s.WriteTable(TableClinics, []Row{first}))
	require.True(t, s.AppendTable(TableClinics, []Row{second, third}))

	got := s.ReadTable(TableClinics)
	require.Equal(t, []Row{first, second, third}, got)
}

func TestWriteDoesNotTouchOtherTables(t *testing.T) {
	s := newTestStore(t)
	require.True(t, s.WriteTable(TableClinics, []Row{{"id": "c1", "name": "Main"}}))

	require.True(t, s.WriteTable(TableUsers, []Row{{"id": "u1", "name": "Asha", "clinicId": "c1"}}))

	require.Len(t, s.ReadTable(TableClinics), 1)
	require.Len(t, s.ReadTable(TableUsers), 1)
}

func TestReadMissingTableDegradesToEmpty(t *testing.T) {
	s := newTestStore(t)
	require.Empty(t, s.ReadTable("NoSuchTable"))
}

func TestReadMissingFileDegradesToEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created.json"))
	require.Empty(t, s.ReadTable(TableMedicines))
}

func TestReadCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wb.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := New(path)
	require.Empty(t, s.ReadTable(TableMedicines))
}

func TestReadFallsBackToDeclaredHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wb.json")
	raw := `{"Clinics": {"header": [], "rows": [["c1", "Main"]]}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	s := New(path)
	rows := s.ReadTable(TableClinics)
	require.Len(t, rows, 1)
	require.Equal(t, "c1", rows[0]["id"])
	require.Equal(t, "Main", rows[0]["name"])
}

func TestReadUsesPersistedHeaderOverDeclared(t *testing.T) {
	// Header drift: a sheet whose columns were reordered by hand still
	// decodes by its own header row.
	path := filepath.Join(t.TempDir(), "wb.json")
	raw := `{"Clinics": {"header": ["name", "id"], "rows": [["Main", "c1"]]}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	s := New(path)
	rows := s.ReadTable(TableClinics)
	require.Len(t, rows, 1)
	require.Equal(t, "c1", rows[0]["id"])
	require.Equal(t, "Main", rows[0]["name"])
}

func TestWriteUnknownTableFails(t *testing.T) {
	s := newTestStore(t)
	require.False(t, s.WriteTable("NoSuchTable", nil))
}

func TestShortRowsDecodeWithMissingCellsBlank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wb.json")
	raw := `{"Users": {"header": ["id", "name", "notes", "clinicId"], "rows": [["u1", "Asha"]]}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	s := New(path)
	rows := s.ReadTable(TableUsers)
	require.Len(t, rows, 1)
	require.Equal(t, "Asha", rows[0]["name"])
	require.Equal(t, "", rows[0]["clinicId"])
}
