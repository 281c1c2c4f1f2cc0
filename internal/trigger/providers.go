// internal/trigger/providers.go
package trigger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"match-engine/internal/models"
)

// ProfileProvider supplies the users eligible for a sweep.
type ProfileProvider interface {
	EligibleUsers(ctx context.Context) ([]models.UserProfile, error)
}

// CatalogProvider supplies recently created active products. The engine never
// queries the catalog beyond this window.
type CatalogProvider interface {
	RecentActiveProducts(ctx context.Context, since time.Time, limit int) ([]models.Product, error)
}

// PostgresProfileProvider reads matching preferences for users who opted into
// notifications. Malformed preference arrays degrade to empty, not errors:
// one bad profile must not sink the batch.
type PostgresProfileProvider struct {
	db *sql.DB
}

func NewPostgresProfileProvider(db *sql.DB) *PostgresProfileProvider {
	return &PostgresProfileProvider{db: db}
}

func (p *PostgresProfileProvider) EligibleUsers(ctx context.Context) ([]models.UserProfile, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, email, interests, min_price, max_price, preferred_locations, urgency
		FROM user_profiles
		WHERE notifications_enabled = true`)
	if err != nil {
		return nil, fmt.Errorf("query eligible users: %w", err)
	}
	defer rows.Close()

	var users []models.UserProfile
	for rows.Next() {
		var user models.UserProfile
		var interests, locations []byte
		var urgency string

		if err := rows.Scan(&user.ID, &user.Email, &interests, &user.MinPrice,
			&user.MaxPrice, &locations, &urgency); err != nil {
			return nil, fmt.Errorf("scan user profile: %w", err)
		}

		if err := json.Unmarshal(interests, &user.Interests); err != nil {
			user.Interests = []string{}
		}
		if err := json.Unmarshal(locations, &user.PreferredLocations); err != nil {
			user.PreferredLocations = []string{}
		}
		user.Urgency = models.Urgency(urgency)
		user.NotificationsEnabled = true

		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user profiles: %w", err)
	}

	return users, nil
}

// PostgresCatalogProvider reads active products created inside the window.
type PostgresCatalogProvider struct {
	db *sql.DB
}

func NewPostgresCatalogProvider(db *sql.DB) *PostgresCatalogProvider {
	return &PostgresCatalogProvider{db: db}
}

func (p *PostgresCatalogProvider) RecentActiveProducts(ctx context.Context, since time.Time, limit int) ([]models.Product, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, description, category, price, location, address, created_at
		FROM products
		WHERE status = 'active' AND created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		var description, location, address sql.NullString

		if err := rows.Scan(&product.ID, &product.Name, &description, &product.Category,
			&product.Price, &location, &address, &product.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}

		product.Description = description.String
		product.Location = location.String
		product.Address = address.String
		product.Status = "active"

		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}
