// internal/models/product.go
package models

import "time"

// Product is a candidate item from the external catalog.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Location    string    `json:"location,omitempty"`
	Address     string    `json:"address,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DisplayName returns the label used in reason strings. Name and Title are
// treated as interchangeable; scoring never depends on either.
func (p Product) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Title
}

// EffectiveLocation returns the location used for matching, falling back to
// the address when the primary field is absent.
func (p Product) EffectiveLocation() string {
	if p.Location != "" {
		return p.Location
	}
	return p.Address
}
