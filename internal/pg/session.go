// Package pg implements the PostgreSQL administration engine: one live
// session per backend instance, schema-per-repo tenancy, transactional
// collaborator privileges, role lifecycle, catalog introspection, and bulk
// COPY transfer.
package pg

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/silodb/silo/internal/audit"
)

// Credentials identify the database login a session runs as. Host and port
// come from explicit configuration, never from process-wide globals.
type Credentials struct {
	User     string
	Password string
	Host     string
	Port     int
	SSLMode  string
}

// Executor runs one parameterized statement and captures its result.
// Parameters are bound positionally by the driver, never formatted into the
// statement text. Higher components depend on this interface so they can be
// exercised against fakes.
type Executor interface {
	Execute(ctx context.Context, sql string, args ...any) (*Result, error)
	Begin(ctx context.Context) (Tx, error)
}

// Tx is an explicit transaction for multi-statement operations that must be
// all-or-nothing. Single statements outside a Tx commit immediately
// (auto-commit).
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Session is one live connection bound to (credentials, database). The
// binding is immutable: switching databases goes through Rebind, which
// discards the session and opens a new one. A Session is not safe for
// concurrent use; provision one per logical caller.
type Session struct {
	conn     *pgx.Conn
	creds    Credentials
	database string
	auditLog *audit.Logger
}

// connString builds the driver connection URL for (creds, database).
func connString(creds Credentials, database string) string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", creds.Host, creds.Port),
		Path:   "/" + database,
	}
	if creds.Password != "" {
		u.User = url.UserPassword(creds.User, creds.Password)
	} else {
		u.User = url.User(creds.User)
	}
	if creds.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", creds.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Open establishes a session against the given database in auto-commit mode.
func Open(ctx context.Context, creds Credentials, database string) (*Session, error) {
	conn, err := pgx.Connect(ctx, connString(creds, database))
	if err != nil {
		return nil, fmt.Errorf("connect %s/%s: %w", creds.Host, database, err)
	}

	return &Session{
		conn:     conn,
		creds:    creds,
		database: database,
	}, nil
}

// Rebind closes this session and opens a new one against another database
// with the same credentials. The receiver must not be used afterwards.
func (s *Session) Rebind(ctx context.Context, database string) (*Session, error) {
	log := s.auditLog
	s.Close(ctx)
	next, err := Open(ctx, s.creds, database)
	if err != nil {
		return nil, err
	}
	next.auditLog = log
	return next, nil
}

// Close releases the session. Safe to call on every exit path.
func (s *Session) Close(ctx context.Context) {
	if s.conn != nil {
		_ = s.conn.Close(ctx)
		s.conn = nil
	}
}

// User returns the login the session is bound to.
func (s *Session) User() string { return s.creds.User }

// Database returns the database the session is bound to.
func (s *Session) Database() string { return s.database }

// SetAudit attaches a statement audit logger. A nil logger disables logging.
func (s *Session) SetAudit(log *audit.Logger) { s.auditLog = log }

// Execute runs one statement with positional binds and captures the result
// set when the statement produces one. Statements without a result set (DDL,
// COPY) return empty rows and the affected-row count; the absence of rows is
// never an error by itself.
func (s *Session) Execute(ctx context.Context, sql string, args ...any) (*Result, error) {
	start := time.Now()
	res, err := s.execute(ctx, sql, args...)

	if s.auditLog != nil {
		entry := audit.Entry{
			Timestamp:  start,
			Statement:  sql,
			Database:   s.database,
			User:       s.creds.User,
			DurationMS: time.Since(start).Milliseconds(),
			IsError:    err != nil,
		}
		if res != nil {
			entry.RowCount = res.RowCount
		}
		s.auditLog.Log(entry)
	}

	return res, err
}

func (s *Session) execute(ctx context.Context, sql string, args ...any) (*Result, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	cols := fieldDescToColumns(rows.FieldDescriptions())

	var tuples [][]string
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		tuples = append(tuples, valuesToStrings(vals))
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	rows.Close()

	rowCount := rows.CommandTag().RowsAffected()
	if len(tuples) > 0 {
		rowCount = int64(len(tuples))
	}

	return &Result{
		Succeeded: true,
		RowCount:  rowCount,
		Rows:      tuples,
		Columns:   cols,
	}, nil
}

// Begin opens an explicit transaction. Everything outside a transaction
// commits statement by statement.
func (s *Session) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return &sessionTx{tx: tx}, nil
}

type sessionTx struct {
	tx pgx.Tx
}

func (t *sessionTx) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := t.tx.Exec(ctx, sql, args...); err != nil {
		return classify(err)
	}
	return nil
}

func (t *sessionTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return classify(err)
	}
	return nil
}

func (t *sessionTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
