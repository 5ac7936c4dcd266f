package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Failure is a database error translated for the run log.
//
// Codes:
//
//	DB001 - Duplicate key in the identifier column
//	DB002 - Null value in a NOT NULL column
//	DB003 - Table does not exist
//	DB004 - Table or constraint already exists
//	DB005 - Unable to connect to database
//	DB006 - Operation timed out or was cancelled
//	DB007 - Database was busy or locked
//	DB008 - Value does not fit the column type
//	ERR000 - Unknown error
type Failure struct {
	Code     string // Reference code, see above
	SQLState string // PostgreSQL SQLSTATE or SQLite extended result code, if known
	Message  string // What happened
	Action   string // What to do about it
}

var (
	failDuplicateKey = Failure{Code: "DB001", Message: "Duplicate key values in the identifier column", Action: "Check the identifier column for repeated values"}
	failNotNull      = Failure{Code: "DB002", Message: "A required column contains null values", Action: "Check the identifier column for empty cells"}
	failNoTable      = Failure{Code: "DB003", Message: "Table does not exist", Action: "Verify the table name is correct"}
	failExists       = Failure{Code: "DB004", Message: "Table or constraint already exists", Action: "Drop the conflicting object or rename the target table"}
	failConnect      = Failure{Code: "DB005", Message: "Unable to connect to database", Action: "Check DATABASE_URL and that the server is running"}
	failTimeout      = Failure{Code: "DB006", Message: "Operation timed out", Action: "Please try again"}
	failBusy         = Failure{Code: "DB007", Message: "Database was busy with conflicting operations", Action: "Please try again"}
	failType         = Failure{Code: "DB008", Message: "A value does not fit its column type", Action: "Check the column types of the source file"}
	failUnknown      = Failure{Code: "ERR000", Message: "An unexpected error occurred", Action: "Check the console log for the original error"}
)

// pgStates maps SQLSTATE codes to failures. Class 08 is handled by prefix.
var pgStates = map[string]Failure{
	"23505": failDuplicateKey, // unique_violation
	"23502": failNotNull,      // not_null_violation
	"42P01": failNoTable,      // undefined_table
	"42P07": failExists,       // duplicate_table
	"42710": failExists,       // duplicate_object
	"42P16": failExists,       // invalid_table_definition (multiple primary keys)
	"57014": failTimeout,      // query_canceled
	"40P01": failBusy,         // deadlock_detected
	"55P03": failBusy,         // lock_not_available
	"22003": failType,         // numeric_value_out_of_range
	"22P02": failType,         // invalid_text_representation
	"42804": failType,         // datatype_mismatch
}

var sqliteCodes = map[sqlite3.ErrNoExtended]Failure{
	sqlite3.ErrConstraintPrimaryKey: failDuplicateKey,
	sqlite3.ErrConstraintUnique:     failDuplicateKey,
	sqlite3.ErrConstraintNotNull:    failNotNull,
}

// errorPatterns are matched case-insensitively against the error text when
// no driver code is available. The first match wins.
var errorPatterns = []struct {
	pattern string
	failure Failure
}{
	{"duplicate key", failDuplicateKey},
	{"unique constraint", failDuplicateKey},
	{"not null constraint", failNotNull},
	{"no such table", failNoTable},
	{"does not exist", failNoTable},
	{"already exists", failExists},
	{"already has a primary key", failExists},
	{"connection refused", failConnect},
	{"connection reset", failConnect},
	{"context deadline exceeded", failTimeout},
	{"context canceled", failTimeout},
	{"timeout", failTimeout},
	{"deadlock", failBusy},
	{"database is locked", failBusy},
	{"datatype mismatch", failType},
}

// Describe translates err into a Failure. The driver's own error code is
// preferred over matching the message text.
func Describe(err error) Failure {
	if err == nil {
		return Failure{}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		f, ok := pgStates[pgErr.Code]
		if !ok && strings.HasPrefix(pgErr.Code, "08") {
			f, ok = failConnect, true
		}
		if !ok {
			f = matchPattern(err)
		}
		f.SQLState = pgErr.Code
		return f
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		f, ok := sqliteCodes[sqliteErr.ExtendedCode]
		if !ok {
			switch sqliteErr.Code {
			case sqlite3.ErrBusy, sqlite3.ErrLocked:
				f, ok = failBusy, true
			case sqlite3.ErrMismatch:
				f, ok = failType, true
			case sqlite3.ErrCantOpen:
				f, ok = failConnect, true
			}
		}
		if !ok {
			f = matchPattern(err)
		}
		f.SQLState = strconv.Itoa(int(sqliteErr.ExtendedCode))
		return f
	}

	return matchPattern(err)
}

func matchPattern(err error) Failure {
	text := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(text, p.pattern) {
			return p.failure
		}
	}
	return failUnknown
}

// String renders "Message (Code: XXX). Action", with the SQL state appended
// when known.
func (f Failure) String() string {
	if f.Message == "" {
		return ""
	}
	s := fmt.Sprintf("%s (Code: %s). %s", f.Message, f.Code, f.Action)
	if f.SQLState != "" {
		s += " [SQL state " + f.SQLState + "]"
	}
	return s
}
