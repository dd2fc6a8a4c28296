package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clinicstock/m/domain"
)

var (
	medicines = []domain.Medicine{
		{ID: "m1", Name: "Paracetamol", Category: "Analgesic", QuantityOnHand: 10},
		{ID: "m2", Name: "Amoxicillin", Category: "Antibiotic", QuantityOnHand: 5},
	}
	users = []domain.User{
		{ID: "u1", Name: "Asha", ClinicID: "c1"},
		{ID: "u2", Name: "Baraka", ClinicID: "c2"},
	}
	clinics = []domain.Clinic{
		{ID: "c1", Name: "Main Clinic"},
		{ID: "c2", Name: "Annex Clinic"},
	}
)

func event(id, medID, userID string, qty int, ts time.Time, clinicID string) domain.UsageEvent {
	return domain.UsageEvent{
		ID: id, MedicineID: medID, UserID: userID, UserName: "Asha",
		Quantity: qty, Timestamp: ts, ClinicID: clinicID,
	}
}

func TestBuildStockDashboard(t *testing.T) {
	ts := time.Date(2026, 1, 5, 9, 0, 0, 0, time.Local)
	events := []domain.UsageEvent{
		event("e1", "m1", "u1", 7, ts, "c1"),
		event("e2", "m1", "u2", 1, ts, "c2"),
	}

	dash := BuildStockDashboard(medicines, events)
	require.False(t, dash.Empty)
	require.Len(t, dash.Items, 2)
	require.Equal(t, 8, dash.Items[0].Used)
	require.Equal(t, 2, dash.Items[0].Remaining)
	require.Equal(t, 0, dash.Items[1].Used)
	require.Equal(t, 5, dash.Items[1].Remaining)
}

func TestBuildStockDashboardEmpty(t *testing.T) {
	dash := BuildStockDashboard(nil, nil)
	require.True(t, dash.Empty)
	require.Empty(t, dash.Items)
}

func TestUsageReportMonthFilter(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.Local)
	inside := time.Date(2026, 1, 3, 9, 0, 0, 0, time.Local)
	insideLater := time.Date(2026, 1, 3, 14, 30, 0, 0, time.Local)
	otherDay := time.Date(2026, 1, 20, 9, 0, 0, 0, time.Local)
	outside := time.Date(2025, 12, 31, 9, 0, 0, 0, time.Local)

	events := []domain.UsageEvent{
		event("e1", "m1", "u1", 2, inside, "c1"),
		event("e2", "m2", "u1", 1, insideLater, "c1"),
		event("e3", "m1", "u1", 3, otherDay, "c1"),
		event("e4", "m1", "u1", 9, outside, "c1"),
	}

	report := BuildUsageReport(Filter{Mode: ModeMonth, Now: now}, users, medicines, events)
	require.Len(t, report.Users, 1)

	u := report.Users[0]
	require.Equal(t, "u1", u.UserID)
	require.Equal(t, 6, u.Total)
	require.Len(t, u.Days, 2)
	require.Equal(t, "2026-01-03", u.Days[0].Day)
	require.Len(t, u.Days[0].Lines, 2)
	require.Equal(t, "Paracetamol", u.Days[0].Lines[0].MedicineName)
	require.Equal(t, "14:30", u.Days[0].Lines[1].TimeLabel)
	require.Equal(t, "2026-01-20", u.Days[1].Day)
}

func TestUsageReportWeekIsMondayAligned(t *testing.T) {
	// 2026-01-07 is a Wednesday; its week starts Monday 2026-01-05.
	now := time.Date(2026, 1, 7, 12, 0, 0, 0, time.Local)
	sunday := time.Date(2026, 1, 4, 23, 0, 0, 0, time.Local)
	monday := time.Date(2026, 1, 5, 0, 30, 0, 0, time.Local)

	events := []domain.UsageEvent{
		event("e1", "m1", "u1", 1, sunday, "c1"),
		event("e2", "m1", "u1", 2, monday, "c1"),
	}

	report := BuildUsageReport(Filter{Mode: ModeWeek, Now: now}, users, medicines, events)
	require.Len(t, report.Users, 1)
	require.Equal(t, 2, report.Users[0].Total)
	require.Len(t, report.Users[0].Days, 1)
	require.Equal(t, "2026-01-05", report.Users[0].Days[0].Day)
}

func TestUsageReportExplicitRangeInclusiveTo(t *testing.T) {
	from := time.Date(2026, 1, 10, 0, 0, 0, 0, time.Local)
	to := time.Date(2026, 1, 12, 0, 0, 0, 0, time.Local)

	events := []domain.UsageEvent{
		event("e1", "m1", "u1", 1, time.Date(2026, 1, 9, 23, 0, 0, 0, time.Local), "c1"),
		event("e2", "m1", "u1", 2, time.Date(2026, 1, 12, 18, 0, 0, 0, time.Local), "c1"),
		event("e3", "m1", "u1", 4, time.Date(2026, 1, 13, 1, 0, 0, 0, time.Local), "c1"),
	}

	report := BuildUsageReport(Filter{Mode: ModeRange, From: from, To: to}, users, medicines, events)
	require.Len(t, report.Users, 1)
	require.Equal(t, 2, report.Users[0].Total)
}

func TestUsageReportIncludesUsersWithNoUsageWhenAsked(t *testing.T) {
	ts := time.Date(2026, 1, 5, 9, 0, 0, 0, time.Local)
	events := []domain.UsageEvent{event("e1", "m1", "u1", 2, ts, "c1")}

	without := BuildUsageReport(Filter{Mode: ModeAll}, users, medicines, events)
	require.Len(t, without.Users, 1)

	with := BuildUsageReport(Filter{Mode: ModeAll, IncludeUsersWithNoUsage: true}, users, medicines, events)
	require.Len(t, with.Users, 2)
	require.Equal(t, "Baraka", with.Users[1].UserName)
	require.Equal(t, 0, with.Users[1].Total)
	require.Empty(t, with.Users[1].Days)
}

func TestUsageReportFallsBackToNameSnapshotForDeletedUsers(t *testing.T) {
	ts := time.Date(2026, 1, 5, 9, 0, 0, 0, time.Local)
	e := event("e1", "m1", "gone", 2, ts, "c1")
	e.UserName = "Deleted Dina"

	report := BuildUsageReport(Filter{Mode: ModeAll}, users, medicines, []domain.UsageEvent{e})
	require.Len(t, report.Users, 1)
	require.Equal(t, "Deleted Dina", report.Users[0].UserName)
}

func TestBuildClinicStatistics(t *testing.T) {
	ts := time.Date(2026, 1, 5, 9, 0, 0, 0, time.Local)
	events := []domain.UsageEvent{
		event("e1", "m1", "u1", 7, ts, "c1"),
		event("e2", "m2", "u1", 1, ts, "c1"),
		event("e3", "m2", "u3", 4, ts, "c2"),
	}

	stats := BuildClinicStatistics(clinics, users, medicines, events)
	require.Len(t, stats.Clinics, 2)

	main := stats.Clinics[0]
	require.Equal(t, "Main Clinic", main.ClinicName)
	require.Equal(t, 1, main.ActiveUsers)
	require.Equal(t, 0, main.InactiveUsers)
	require.Equal(t, 8, main.TotalConsumed)
	require.Equal(t, "Paracetamol", main.TopMedicine)

	annex := stats.Clinics[1]
	require.Equal(t, 0, annex.ActiveUsers)
	require.Equal(t, 1, annex.InactiveUsers)
	require.Equal(t, 4, annex.TotalConsumed)
	require.Equal(t, "Amoxicillin", annex.TopMedicine)

	require.Len(t, stats.MedicineRanking, 2)
	require.Equal(t, "Paracetamol", stats.MedicineRanking[0].MedicineName)
	require.Equal(t, 7, stats.MedicineRanking[0].Total)
	require.Equal(t, 5, stats.MedicineRanking[1].Total)
}

func TestWeekStart(t *testing.T) {
	// Monday stays put, Sunday belongs to the week that started six days
	// earlier.
	monday := time.Date(2026, 1, 5, 15, 0, 0, 0, time.Local)
	require.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.Local), weekStart(monday))

	sunday := time.Date(2026, 1, 11, 8, 0, 0, 0, time.Local)
	require.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.Local), weekStart(sunday))
}
