// internal/models/user.go
package models

// Urgency drives the recency factor weighting.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// UserProfile is a read-only snapshot of one user's matching preferences,
// owned by the external preferences store. The engine never mutates it.
type UserProfile struct {
	ID                   string   `json:"id"`
	Email                string   `json:"email,omitempty"`
	Interests            []string `json:"interests"`
	MinPrice             float64  `json:"minPrice"`
	MaxPrice             float64  `json:"maxPrice"`
	PreferredLocations   []string `json:"preferredLocations"`
	Urgency              Urgency  `json:"urgency"`
	NotificationsEnabled bool     `json:"notificationsEnabled"`
}

// WantsCategory reports whether the profile constrains categories and
// includes the given one.
func (u UserProfile) WantsCategory(category string) bool {
	for _, interest := range u.Interests {
		if interest == category {
			return true
		}
	}
	return false
}
