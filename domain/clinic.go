package domain

type Clinic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
