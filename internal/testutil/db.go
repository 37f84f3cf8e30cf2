// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"
	"time"

	"commentboard/internal/config"
	"commentboard/internal/database"
	"commentboard/internal/models"

	"gorm.io/gorm"
)

// NewSQLiteDB returns a migrated in-memory SQLite database that is closed with the test.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect(&config.Config{
		Env:        "test",
		DBDriver:   config.DriverSQLite,
		SQLitePath: ":memory:",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}

// InsertComments stores the given comments with their explicit IDs.
func InsertComments(t *testing.T, db *gorm.DB, comments ...*models.Comment) {
	t.Helper()
	for _, c := range comments {
		if c.Date.IsZero() {
			c.Date = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		}
		if err := db.Create(c).Error; err != nil {
			t.Fatalf("insert comment %d: %v", c.ID, err)
		}
	}
}
