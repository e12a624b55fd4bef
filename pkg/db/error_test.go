package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "postgres", err: fmt.Errorf("insert certificate: %w", &pgconn.PgError{Code: CodeUniqueViolation}), want: true},
		{name: "postgres_other", err: &pgconn.PgError{Code: CodeSerializationFailure}, want: false},
		{name: "mysql", err: fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), want: true},
		{name: "mysql_other", err: &mysql.MySQLError{Number: 1213}, want: false},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: progress.id"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}

func TestPGCode(t *testing.T) {
	assert.Equal(t, CodeLockNotAvailable, PGCode(fmt.Errorf("apply: %w", &pgconn.PgError{Code: CodeLockNotAvailable})))
	assert.Equal(t, "", PGCode(errors.New("boom")))
	assert.Equal(t, "", PGCode(nil))
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)

	d, err := Dialect(Config{Type: TypeSQLite, Path: "file::memory:"})
	assert.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())
}
