// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/campuslink/backend/internal/database"
	"github.com/campuslink/backend/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// NewDB returns a migrated in-memory sqlite database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:campuslink_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "password123"

var passwordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// CreateUser inserts a user with a fake identity.
func CreateUser(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	if name == "" {
		name = gofakeit.Name()
	}
	user := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s.%d@campus.test", gofakeit.Username(), dbCounter.Add(1)),
		PasswordHash: passwordHash,
		Branch:       "CSE",
		Year:         2,
		Interests:    models.StringArray{"coding"},
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
