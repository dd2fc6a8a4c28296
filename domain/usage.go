package domain

import "time"

// UsageEvent is append-only: once recorded it is never edited or removed,
// even when the referenced user is later deleted.
type UsageEvent struct {
	ID         string    `json:"id"`
	MedicineID string    `json:"medicine_id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	Notes      string    `json:"notes,omitempty"`
	Quantity   int       `json:"quantity"`
	Timestamp  time.Time `json:"timestamp"`
	ClinicID   string    `json:"clinic_id"`
}
