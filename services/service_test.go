package services

import (
	"context"
	"sync"
	"testing"

	"github.com/NIU1603490/eraswap-sub000/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openTestDB(t, ":memory:")
}

// newStrictTestDB turns foreign key enforcement on, matching the constraints
// the Postgres runtime applies.
func newStrictTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openTestDB(t, "file::memory:?_foreign_keys=on")
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Transaction{},
		&models.Conversation{},
		&models.Message{},
	))

	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()

	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		FullName: username,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, sellerID uint, title string) models.Product {
	t.Helper()

	product := models.Product{
		SellerID: sellerID,
		Title:    title,
		Price:    25,
		Currency: "EUR",
		Category: "books",
		Status:   models.ProductAvailable,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func productStatus(t *testing.T, db *gorm.DB, id uint) models.ProductStatus {
	t.Helper()

	var product models.Product
	require.NoError(t, db.First(&product, id).Error)
	return product.Status
}

// fakeBroadcaster records room publishes for assertions.
type fakeBroadcaster struct {
	mu       sync.Mutex
	rooms    []uint
	payloads [][]byte
}

func (f *fakeBroadcaster) PublishToRoom(roomID uint, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, roomID)
	f.payloads = append(f.payloads, payload)
}

// fakePublisher records domain events for assertions.
type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, routingKey)
	return nil
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
