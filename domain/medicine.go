package domain

import "time"

type Medicine struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	QuantityOnHand int       `json:"quantity_on_hand"`
	LastUpdated    time.Time `json:"last_updated"`
}
