// Package order is the read-only order repository the triage pipeline looks
// orders up in. Ids are always compared in normalized form.
package order

import (
	"context"
	"errors"
)

var ErrOrderNotFound = errors.New("order not found")

// Record is an order as stored by the shop. The pipeline never writes it.
type Record struct {
	OrderID      string  `json:"order_id" yaml:"order_id"`
	CustomerName string  `json:"customer_name" yaml:"customer_name"`
	Email        string  `json:"email" yaml:"email"`
	Item         string  `json:"item" yaml:"item"`
	Status       string  `json:"status" yaml:"status"`
	OrderDate    string  `json:"order_date,omitempty" yaml:"order_date,omitempty"`
	Total        float64 `json:"total,omitempty" yaml:"total,omitempty"`
}

// SearchQuery matches orders by customer email (case-insensitive, exact) or
// by free text that mentions an order id or the customer's full name.
type SearchQuery struct {
	Email string
	Text  string
}

func (q SearchQuery) Empty() bool {
	return q.Email == "" && q.Text == ""
}

type Repository interface {
	// GetByNormalizedID returns ErrOrderNotFound when no order matches.
	GetByNormalizedID(ctx context.Context, id string) (*Record, error)
	Search(ctx context.Context, q SearchQuery) ([]Record, error)
}
