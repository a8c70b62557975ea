package catalog_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/db"
	"travel/db/catalog"
	"travel/entity"
)

func TestMain(m *testing.M) {
	os.Exit(db.RunWithPostgresContainer(m))
}

func TestPostgresRepository(t *testing.T) {
	ctx := context.Background()
	repo := catalog.NewPostgresRepository(db.GetDb(t))

	kayak := entity.Activity{
		ActivityID: uuid.NewString(),
		Name:       "Sea kayaking",
		Price:      decimal.RequireFromString("120.00"),
		Currency:   "USD",
	}
	hike := entity.Activity{
		ActivityID: uuid.NewString(),
		Name:       "Table Mountain hike",
		Price:      decimal.RequireFromString("80.00"),
		Currency:   "USD",
	}
	require.NoError(t, repo.StoreActivity(ctx, kayak))
	require.NoError(t, repo.StoreActivity(ctx, hike))

	pkg := entity.Package{
		PackageID:   uuid.NewString(),
		Name:        "Cape coast",
		BasePrice:   decimal.RequireFromString("100.00"),
		Currency:    "USD",
		ActivityIDs: []string{kayak.ActivityID, hike.ActivityID},
	}
	require.NoError(t, repo.StorePackage(ctx, pkg))

	t.Run("activities_by_ids", func(t *testing.T) {
		activities, err := repo.ActivitiesByIDs(ctx, []string{kayak.ActivityID, hike.ActivityID, "missing"})
		require.NoError(t, err)
		assert.Len(t, activities, 2)
	})

	t.Run("package_by_id", func(t *testing.T) {
		stored, err := repo.PackageByID(ctx, pkg.PackageID)
		require.NoError(t, err)

		assert.ElementsMatch(t, pkg.ActivityIDs, stored.ActivityIDs)
		assert.Equal(t, "100.00", entity.FormatAmount(stored.BasePrice))
	})

	t.Run("package_not_found", func(t *testing.T) {
		_, err := repo.PackageByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("store_package_replaces_activities", func(t *testing.T) {
		pkg.ActivityIDs = []string{kayak.ActivityID}
		require.NoError(t, repo.StorePackage(ctx, pkg))

		stored, err := repo.PackageByID(ctx, pkg.PackageID)
		require.NoError(t, err)
		assert.Equal(t, []string{kayak.ActivityID}, stored.ActivityIDs)
	})
}
