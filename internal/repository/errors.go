package repository

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrDuplicateName     = errors.New("name already exists")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockShortage itemizes one medicine whose requested quantity exceeds the
// derived remaining stock.
type StockShortage struct {
	MedicineID   string `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	Requested    int    `json:"requested"`
	Remaining    int    `json:"remaining"`
}

// InsufficientStockError rejects a whole usage batch, listing every
// medicine that fell short.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s: requested %d, remaining %d only", s.MedicineName, s.Requested, s.Remaining))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
