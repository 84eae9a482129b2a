package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/nicepick/backend/internal/admin"
	"github.com/nicepick/backend/internal/infrastructure/persistence/models"
	"github.com/nicepick/backend/internal/region"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// One in-memory sqlite database per connection; pin the pool to one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.UserModel{},
		&models.OrderModel{},
		&models.PaymentModel{},
		&models.ReleaseModel{},
		&models.DeviceStatModel{},
	))
	return db
}

func seedUsers(t *testing.T, db *gorm.DB, users ...models.UserModel) {
	t.Helper()
	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}
}

func at(offsetMinutes int) time.Time {
	return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC).Add(time.Duration(offsetMinutes) * time.Minute)
}

func TestUserFetcherOrdersNewestFirst(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db,
		models.UserModel{ID: "u-old", Email: "old@example.com", CreatedAt: at(-30)},
		models.UserModel{ID: "u-new", Email: "new@example.com", CreatedAt: at(0)},
		models.UserModel{ID: "u-mid", Email: "mid@example.com", CreatedAt: at(-15)},
	)

	res, err := UserFetcher(db)(context.Background(), region.INTL, admin.FetchParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "u-new", res.Rows[0].ID)
	assert.Equal(t, "u-mid", res.Rows[1].ID)
	assert.Equal(t, "u-old", res.Rows[2].ID)
	assert.Equal(t, region.INTL, res.Rows[0].Region)
	require.NotNil(t, res.Rows[0].CreatedAt)
}

func TestUserFetcherBreaksTiesByID(t *testing.T) {
	db := newTestDB(t)
	same := at(0)
	seedUsers(t, db,
		models.UserModel{ID: "u-b", CreatedAt: same},
		models.UserModel{ID: "u-a", CreatedAt: same},
		models.UserModel{ID: "u-c", CreatedAt: same},
	)

	res, err := UserFetcher(db)(context.Background(), region.INTL, admin.FetchParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"u-a", "u-b", "u-c"}, []string{res.Rows[0].ID, res.Rows[1].ID, res.Rows[2].ID})
}

func TestUserFetcherWindowing(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 25; i++ {
		seedUsers(t, db, models.UserModel{
			ID:        "u-" + string(rune('a'+i)),
			CreatedAt: at(-i),
		})
	}

	res, err := UserFetcher(db)(context.Background(), region.INTL, admin.FetchParams{Skip: 10, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(25), res.Total)
	require.Len(t, res.Rows, 5)
	// Newest first, so skip 10 lands on the 11th-newest row.
	assert.Equal(t, "u-"+string(rune('a'+10)), res.Rows[0].ID)
}

func TestUserFetcherSearchIsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db,
		models.UserModel{ID: "u-1", Email: "Alice@Example.com", Nickname: "ali", CreatedAt: at(0)},
		models.UserModel{ID: "u-2", Email: "bob@example.com", Nickname: "bobby", CreatedAt: at(-1)},
		models.UserModel{ID: "u-3", Email: "carol@other.net", Nickname: "ALIcia", CreatedAt: at(-2)},
	)

	res, err := UserFetcher(db)(context.Background(), region.INTL, admin.FetchParams{Query: "ali", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "u-1", res.Rows[0].ID)
	assert.Equal(t, "u-3", res.Rows[1].ID)
}

func TestUserFetcherFilters(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db,
		models.UserModel{ID: "u-1", Tier: "pro", Status: "active", CreatedAt: at(0)},
		models.UserModel{ID: "u-2", Tier: "pro", Status: "banned", CreatedAt: at(-1)},
		models.UserModel{ID: "u-3", Tier: "free", Status: "active", CreatedAt: at(-2)},
	)

	res, err := UserFetcher(db)(context.Background(), region.INTL, admin.FetchParams{
		Limit:   10,
		Filters: map[string]string{"tier": "pro", "status": "active"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "u-1", res.Rows[0].ID)
}

func TestUserFetcherCreatedRange(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db,
		models.UserModel{ID: "u-1", CreatedAt: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		models.UserModel{ID: "u-2", CreatedAt: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		models.UserModel{ID: "u-3", CreatedAt: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)},
	)

	res, err := UserFetcher(db)(context.Background(), region.INTL, admin.FetchParams{
		Limit:   10,
		Filters: map[string]string{"from": "2024-03-12", "to": "2024-03-18"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "u-2", res.Rows[0].ID)

	// Open-ended lower bound only.
	res, err = UserFetcher(db)(context.Background(), region.INTL, admin.FetchParams{
		Limit:   10,
		Filters: map[string]string{"from": "2024-03-12"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
}

func TestOrderFetcherStatusEquivalence(t *testing.T) {
	db := newTestDB(t)
	orders := []models.OrderModel{
		{ID: "o-1", Status: "completed", Amount: decimal.RequireFromString("9.99"), CreatedAt: at(0)},
		{ID: "o-2", Status: "success", Amount: decimal.RequireFromString("4.99"), CreatedAt: at(-1)},
		{ID: "o-3", Status: "pending", Amount: decimal.RequireFromString("1.99"), CreatedAt: at(-2)},
	}
	for i := range orders {
		require.NoError(t, db.Create(&orders[i]).Error)
	}

	// Legacy rows carry "success" where newer rows carry "completed";
	// a filter on either must return both.
	for _, filter := range []string{"completed", "success"} {
		res, err := OrderFetcher(db)(context.Background(), region.INTL, admin.FetchParams{
			Limit:   10,
			Filters: map[string]string{"status": filter},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Total, "filter %q", filter)
		require.Len(t, res.Rows, 2)
		assert.Equal(t, "o-1", res.Rows[0].ID)
		assert.Equal(t, "o-2", res.Rows[1].ID)
	}
}

func TestPaymentFetcherMethodFilter(t *testing.T) {
	db := newTestDB(t)
	payments := []models.PaymentModel{
		{ID: "p-1", OrderID: "o-1", Method: "card", Status: "success", CreatedAt: at(0)},
		{ID: "p-2", OrderID: "o-2", Method: "paypal", Status: "success", CreatedAt: at(-1)},
	}
	for i := range payments {
		require.NoError(t, db.Create(&payments[i]).Error)
	}

	res, err := PaymentFetcher(db)(context.Background(), region.INTL, admin.FetchParams{
		Limit:   10,
		Filters: map[string]string{"method": "paypal"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	assert.Equal(t, "p-2", res.Rows[0].ID)
}

func TestDeviceStatFetcherEventFilter(t *testing.T) {
	db := newTestDB(t)
	stats := []models.DeviceStatModel{
		{ID: "d-1", Platform: "ios", EventType: "install", Count: 10, CreatedAt: at(0)},
		{ID: "d-2", Platform: "android", EventType: "install", Count: 20, CreatedAt: at(-1)},
		{ID: "d-3", Platform: "ios", EventType: "crash", Count: 2, CreatedAt: at(-2)},
	}
	for i := range stats {
		require.NoError(t, db.Create(&stats[i]).Error)
	}

	res, err := DeviceStatFetcher(db)(context.Background(), region.INTL, admin.FetchParams{
		Limit:   10,
		Filters: map[string]string{"platform": "ios", "eventType": "install"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	assert.Equal(t, "d-1", res.Rows[0].ID)
	assert.Equal(t, int64(10), res.Rows[0].Count)
}

func TestReleaseFetcherChannelFilter(t *testing.T) {
	db := newTestDB(t)
	releases := []models.ReleaseModel{
		{ID: "r-1", Version: "2.3.0", Platform: "ios", Channel: "stable", CreatedAt: at(0)},
		{ID: "r-2", Version: "2.4.0-beta", Platform: "ios", Channel: "beta", CreatedAt: at(-1)},
	}
	for i := range releases {
		require.NoError(t, db.Create(&releases[i]).Error)
	}

	res, err := ReleaseFetcher(db)(context.Background(), region.INTL, admin.FetchParams{
		Limit:   10,
		Filters: map[string]string{"channel": "beta"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	assert.Equal(t, "r-2", res.Rows[0].ID)
}
