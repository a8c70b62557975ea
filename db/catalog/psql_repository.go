package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"travel/db"
	"travel/entity"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return &PostgresRepository{db: db}
}

// ActivitiesByIDs returns the activities that exist; missing ids are silently skipped.
func (r *PostgresRepository) ActivitiesByIDs(ctx context.Context, activityIDs []string) ([]entity.Activity, error) {
	var activities []entity.Activity
	err := r.db.SelectContext(ctx, &activities, `
		SELECT activity_id, name, price, currency
		FROM activities
		WHERE activity_id = ANY($1)
	`, pq.Array(activityIDs))
	if err != nil {
		return nil, fmt.Errorf("could not get activities: %w", err)
	}

	return activities, nil
}

func (r *PostgresRepository) PackageByID(ctx context.Context, packageID string) (entity.Package, error) {
	var pkg entity.Package
	err := r.db.GetContext(ctx, &pkg, `
		SELECT package_id, name, base_price, currency
		FROM packages
		WHERE package_id = $1
	`, packageID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Package{}, fmt.Errorf("package %s: %w", packageID, entity.ErrNotFound)
	}
	if err != nil {
		return entity.Package{}, fmt.Errorf("could not get package: %w", err)
	}

	err = r.db.SelectContext(ctx, &pkg.ActivityIDs, `
		SELECT activity_id
		FROM package_activities
		WHERE package_id = $1
	`, packageID)
	if err != nil {
		return entity.Package{}, fmt.Errorf("could not get package activities: %w", err)
	}

	return pkg, nil
}

// StoreActivity inserts or updates an activity. Price changes never affect existing bookings.
func (r *PostgresRepository) StoreActivity(ctx context.Context, activity entity.Activity) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO activities (activity_id, name, price, currency)
		VALUES (:activity_id, :name, :price, :currency)
		ON CONFLICT (activity_id) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			currency = excluded.currency
	`, activity)
	if err != nil {
		return fmt.Errorf("could not store activity %s: %w", activity.ActivityID, err)
	}

	return nil
}

func (r *PostgresRepository) StorePackage(ctx context.Context, pkg entity.Package) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO packages (package_id, name, base_price, currency)
			VALUES (:package_id, :name, :base_price, :currency)
			ON CONFLICT (package_id) DO UPDATE SET
				name = excluded.name,
				base_price = excluded.base_price,
				currency = excluded.currency
		`, pkg)
		if err != nil {
			return fmt.Errorf("could not store package %s: %w", pkg.PackageID, err)
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM package_activities WHERE package_id = $1`, pkg.PackageID)
		if err != nil {
			return fmt.Errorf("could not clear package activities: %w", err)
		}

		for _, activityID := range pkg.ActivityIDs {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO package_activities (package_id, activity_id)
				VALUES ($1, $2)
			`, pkg.PackageID, activityID)
			if err != nil {
				return fmt.Errorf("could not add activity %s to package: %w", activityID, err)
			}
		}

		return nil
	})
}
