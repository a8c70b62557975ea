package admins

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AuthorizationChecker answers ownership from the bookings table and admin rights from the admins
// table.
type AuthorizationChecker struct {
	db *sqlx.DB
}

func NewAuthorizationChecker(db *sqlx.DB) *AuthorizationChecker {
	if db == nil {
		panic("db is nil")
	}

	return &AuthorizationChecker{db: db}
}

func (c *AuthorizationChecker) IsOwner(ctx context.Context, bookingID string, actorID string) (bool, error) {
	var owner bool
	err := c.db.GetContext(ctx, &owner, `
		SELECT EXISTS (
			SELECT 1 FROM bookings WHERE booking_id = $1 AND customer_id = $2
		)
	`, bookingID, actorID)
	if err != nil {
		return false, fmt.Errorf("could not check booking owner: %w", err)
	}

	return owner, nil
}

func (c *AuthorizationChecker) IsAdmin(ctx context.Context, actorID string) (bool, error) {
	var admin bool
	err := c.db.GetContext(ctx, &admin, `
		SELECT EXISTS (
			SELECT 1 FROM admins WHERE user_id = $1
		)
	`, actorID)
	if err != nil {
		return false, fmt.Errorf("could not check admin: %w", err)
	}

	return admin, nil
}

// Grant gives userIDs the admin role. Already granted users are skipped.
func (c *AuthorizationChecker) Grant(ctx context.Context, userIDs ...string) error {
	for _, userID := range userIDs {
		_, err := c.db.ExecContext(ctx, `
			INSERT INTO admins (user_id)
			VALUES ($1)
			ON CONFLICT (user_id) DO NOTHING
		`, userID)
		if err != nil {
			return fmt.Errorf("could not grant admin to %s: %w", userID, err)
		}
	}

	return nil
}
