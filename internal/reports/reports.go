// Package reports builds the read-side views: stock dashboard, filtered
// usage report and per-clinic statistics. Everything here is a pure
// function over loaded records; no mutation, no storage access.
package reports

import (
	"sort"
	"time"

	"clinicstock/m/domain"
)

// Filter modes for the usage report.
type Mode string

const (
	ModeAll   Mode = "all"
	ModeDay   Mode = "day"
	ModeWeek  Mode = "week"
	ModeMonth Mode = "month"
	ModeRange Mode = "range"
)

// Filter selects the usage-report period. Now anchors the day/week/month
// modes; From/To bound ModeRange (To is inclusive, extended to end of
// day).
type Filter struct {
	Mode                    Mode
	From                    time.Time
	To                      time.Time
	Now                     time.Time
	IncludeUsersWithNoUsage bool
}

// StockRow is one medicine with its derived usage totals.
type StockRow struct {
	domain.Medicine
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// StockDashboard lists every medicine with used/remaining, flagging the
// empty-data condition.
type StockDashboard struct {
	Items []StockRow `json:"items"`
	Empty bool       `json:"empty"`
}

// BuildStockDashboard computes used and remaining stock per medicine.
// Remaining stock is always derived: quantityOnHand minus summed usage.
func BuildStockDashboard(medicines []domain.Medicine, events []domain.UsageEvent) StockDashboard {
	used := make(map[string]int, len(medicines))
	for _, e := range events {
		used[e.MedicineID] += e.Quantity
	}
	dash := StockDashboard{Empty: len(medicines) == 0, Items: make([]StockRow, 0, len(medicines))}
	for _, m := range medicines {
		dash.Items = append(dash.Items, StockRow{
			Medicine:  m,
			Used:      used[m.ID],
			Remaining: m.QuantityOnHand - used[m.ID],
		})
	}
	return dash
}

// UsageLine is one event rendered for display.
type UsageLine struct {
	MedicineName string    `json:"medicine_name"`
	Quantity     int       `json:"quantity"`
	Time         time.Time `json:"time"`
	TimeLabel    string    `json:"time_label"`
	Notes        string    `json:"notes,omitempty"`
}

// DayGroup is the usage of one user on one calendar day.
type DayGroup struct {
	Day   string      `json:"day"`
	Lines []UsageLine `json:"lines"`
}

// UserUsage groups a user's in-range usage by calendar day.
type UserUsage struct {
	UserID   string     `json:"user_id"`
	UserName string     `json:"user_name"`
	Total    int        `json:"total"`
	Days     []DayGroup `json:"days"`
}

// UsageReport is the filtered, grouped usage view.
type UsageReport struct {
	From  time.Time   `json:"from,omitempty"`
	To    time.Time   `json:"to,omitempty"`
	Users []UserUsage `json:"users"`
}

// BuildUsageReport filters events by period, groups them by user and then
// by calendar day, attaching medicine names and formatted local times.
// Deleted users keep appearing through their events' name snapshots.
func BuildUsageReport(f Filter, users []domain.User, medicines []domain.Medicine, events []domain.UsageEvent) UsageReport {
	from, to := f.bounds()

	medNames := make(map[string]string, len(medicines))
	for _, m := range medicines {
		medNames[m.ID] = m.Name
	}

	type userBucket struct {
		name  string
		total int
		days  map[string][]UsageLine
		order []string
	}
	buckets := make(map[string]*userBucket)
	var userOrder []string

	if f.IncludeUsersWithNoUsage {
		for _, u := range users {
			buckets[u.ID] = &userBucket{name: u.Name, days: map[string][]UsageLine{}}
			userOrder = append(userOrder, u.ID)
		}
	}

	for _, e := range events {
		if !inRange(e.Timestamp, from, to) {
			continue
		}
		b := buckets[e.UserID]
		if b == nil {
			b = &userBucket{name: e.UserName, days: map[string][]UsageLine{}}
			buckets[e.UserID] = b
			userOrder = append(userOrder, e.UserID)
		}
		local := e.Timestamp.Local()
		day := local.Format("2006-01-02")
		if _, seen := b.days[day]; !seen {
			b.order = append(b.order, day)
		}
		name := medNames[e.MedicineID]
		if name == "" {
			name = e.MedicineID
		}
		b.days[day] = append(b.days[day], UsageLine{
			MedicineName: name,
			Quantity:     e.Quantity,
			Time:         local,
			TimeLabel:    local.Format("15:04"),
			Notes:        e.Notes,
		})
		b.total += e.Quantity
	}

	report := UsageReport{From: from, To: to, Users: make([]UserUsage, 0, len(userOrder))}
	for _, id := range userOrder {
		b := buckets[id]
		uu := UserUsage{UserID: id, UserName: b.name, Total: b.total, Days: make([]DayGroup, 0, len(b.order))}
		for _, day := range b.order {
			uu.Days = append(uu.Days, DayGroup{Day: day, Lines: b.days[day]})
		}
		report.Users = append(report.Users, uu)
	}
	return report
}

// MedicineTotal ranks one medicine by total consumed quantity.
type MedicineTotal struct {
	MedicineID   string `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	Total        int    `json:"total"`
}

// ClinicStats aggregates one clinic.
type ClinicStats struct {
	ClinicID      string `json:"clinic_id"`
	ClinicName    string `json:"clinic_name"`
	ActiveUsers   int    `json:"active_users"`
	InactiveUsers int    `json:"inactive_users"`
	TotalConsumed int    `json:"total_consumed"`
	TopMedicine   string `json:"top_medicine,omitempty"`
}

// Statistics is the admin view: per-clinic aggregates plus the global
// most-consumed ranking.
type Statistics struct {
	Clinics         []ClinicStats   `json:"clinics"`
	MedicineRanking []MedicineTotal `json:"medicine_ranking"`
}

// BuildClinicStatistics counts active/inactive users per clinic (active
// means at least one usage event ever), sums per-clinic consumption with
// its top medicine, and ranks medicines globally by consumed quantity.
func BuildClinicStatistics(clinics []domain.Clinic, users []domain.User, medicines []domain.Medicine, events []domain.UsageEvent) Statistics {
	medNames := make(map[string]string, len(medicines))
	for _, m := range medicines {
		medNames[m.ID] = m.Name
	}

	everUsed := make(map[string]bool)
	clinicTotals := make(map[string]int)
	clinicMedTotals := make(map[string]map[string]int)
	globalTotals := make(map[string]int)
	for _, e := range events {
		everUsed[e.UserID] = true
		clinicTotals[e.ClinicID] += e.Quantity
		if clinicMedTotals[e.ClinicID] == nil {
			clinicMedTotals[e.ClinicID] = map[string]int{}
		}
		clinicMedTotals[e.ClinicID][e.MedicineID] += e.Quantity
		globalTotals[e.MedicineID] += e.Quantity
	}

	stats := Statistics{Clinics: make([]ClinicStats, 0, len(clinics))}
	for _, c := range clinics {
		cs := ClinicStats{ClinicID: c.ID, ClinicName: c.Name, TotalConsumed: clinicTotals[c.ID]}
		for _, u := range users {
			if u.ClinicID != c.ID {
				continue
			}
			if everUsed[u.ID] {
				cs.ActiveUsers++
			} else {
				cs.InactiveUsers++
			}
		}
		if top := topMedicine(clinicMedTotals[c.ID]); top != "" {
			if name := medNames[top]; name != "" {
				cs.TopMedicine = name
			} else {
				cs.TopMedicine = top
			}
		}
		stats.Clinics = append(stats.Clinics, cs)
	}

	for id, total := range globalTotals {
		name := medNames[id]
		if name == "" {
			name = id
		}
		stats.MedicineRanking = append(stats.MedicineRanking, MedicineTotal{MedicineID: id, MedicineName: name, Total: total})
	}
	sort.Slice(stats.MedicineRanking, func(i, j int) bool {
		a, b := stats.MedicineRanking[i], stats.MedicineRanking[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.MedicineName < b.MedicineName
	})
	return stats
}

// topMedicine picks the medicine id with the highest total, breaking ties
// by id so the answer is stable.
func topMedicine(totals map[string]int) string {
	best := ""
	bestTotal := 0
	for id, total := range totals {
		if total > bestTotal || (total == bestTotal && best != "" && id < best) {
			best = id
			bestTotal = total
		}
	}
	return best
}

// bounds resolves the filter to an inclusive [from, to) window. Zero
// times mean unbounded.
func (f Filter) bounds() (time.Time, time.Time) {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	switch f.Mode {
	case ModeDay:
		start := startOfDay(now)
		return start, start.AddDate(0, 0, 1)
	case ModeWeek:
		start := weekStart(now)
		return start, start.AddDate(0, 0, 7)
	case ModeMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0)
	case ModeRange:
		from, to := f.From, f.To
		if !to.IsZero() {
			to = startOfDay(to).AddDate(0, 0, 1)
		}
		return from, to
	default:
		return time.Time{}, time.Time{}
	}
}

func inRange(ts, from, to time.Time) bool {
	if !from.IsZero() && ts.Before(from) {
		return false
	}
	if !to.IsZero() && !ts.Before(to) {
		return false
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekStart returns the Monday 00:00 of t's week (ISO-8601 weeks).
func weekStart(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
