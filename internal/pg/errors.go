package pg

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/silodb/silo/internal/ident"
)

var (
	// ErrInvalidIdentifier re-exports the naming-rule violation so callers
	// can match it without importing ident.
	ErrInvalidIdentifier = ident.ErrInvalidIdentifier

	// ErrMalformedName re-exports the qualified-name violation.
	ErrMalformedName = ident.ErrMalformedName

	// ErrPermissionDenied marks failed privilege transactions and operations
	// the underlying role lacks rights for.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound marks repos and tables that are absent or not owned by
	// the caller.
	ErrNotFound = errors.New("not found")
)

// ImportError wraps a failed bulk import with the outcome of the best-effort
// cleanup drop of the partially created table.
type ImportError struct {
	Table      string
	Err        error // the original load failure
	CleanupErr error // nil when the cleanup drop succeeded
}

func (e *ImportError) Error() string {
	if e.CleanupErr != nil {
		return fmt.Sprintf("import into %s failed: %v (cleanup also failed: %v)", e.Table, e.Err, e.CleanupErr)
	}
	return fmt.Sprintf("import into %s failed: %v", e.Table, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// SQLSTATE classes used when translating driver errors into the error kinds
// above. Anything not listed passes through wrapped with context only.
const (
	codeInsufficientPrivilege = "42501"
	codeUndefinedTable        = "42P01"
	codeInvalidSchemaName     = "3F000"
	codeUndefinedDatabase     = "3D000"
	codeUndefinedObject       = "42704"
)

// classify translates a driver error at the engine boundary. Permission and
// missing-object SQLSTATEs map onto the sentinel kinds; everything else is
// returned unmodified for the caller to wrap with context.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeInsufficientPrivilege:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, pgErr.Message)
	case codeUndefinedTable, codeInvalidSchemaName, codeUndefinedDatabase, codeUndefinedObject:
		return fmt.Errorf("%w: %s", ErrNotFound, pgErr.Message)
	}
	return err
}
