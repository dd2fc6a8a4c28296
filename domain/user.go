package domain

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Notes    string `json:"notes,omitempty"`
	ClinicID string `json:"clinic_id"`
}
