// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clinicorp/n0-error-tracker/internal/database"
	"github.com/clinicorp/n0-error-tracker/internal/models"
)

// OpenDB returns a migrated sqlite database living in t.TempDir().
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := gorm.Open(gormsqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedUser inserts a user and returns it with its assigned id.
func SeedUser(t testing.TB, db *gorm.DB, openID, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{OpenID: openID, Name: name, Email: openID + "@example.com", Role: role, LastSignedIn: time.Now().UTC()}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", openID, err)
	}
	return u
}

// Clock is a settable time source.
type Clock struct {
	T time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{T: t.UTC()} }

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }
