package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsDuplicateKey reports whether err is a primary-key or unique-constraint violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// SyncIDSequence moves a PostgreSQL serial sequence past the largest stored ID, so rows
// inserted with explicit IDs do not collide with later auto-assigned ones. Other dialects
// derive the next ID from the table and need nothing.
func SyncIDSequence(ctx context.Context, db *gorm.DB, table string) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	query := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)",
		table,
	)
	if err := db.WithContext(ctx).Exec(query).Error; err != nil {
		return fmt.Errorf("sync %s id sequence: %w", table, err)
	}
	return nil
}
