package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SQLSTATE codes the services classify.
const (
	CodeUniqueViolation      = "23505"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeLockNotAvailable     = "55P03"
)

const mysqlDuplicateEntry = 1062

// PGCode returns the SQLSTATE of the postgres error in err's chain, if any.
func PGCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsDuplicateKeyErr reports a unique or primary key violation. The progress
// and certificate tables have no unique key besides the snowflake id, so
// there it only fires on an id collision.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || PGCode(err) == CodeUniqueViolation {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}

	// glebarez/sqlite only reports constraint failures as text.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
