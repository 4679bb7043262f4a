package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/silodb/silo/internal/ident"
)

// Direction of a bulk transfer.
type Direction string

const (
	DirectionExport Direction = "export"
	DirectionImport Direction = "import"
)

// JobState is the lifecycle of one transfer job:
// Pending -> Running -> {Succeeded, Failed}.
type JobState int

const (
	JobPending JobState = iota
	JobRunning
	JobSucceeded
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	default:
		return "pending"
	}
}

// CopyOptions carry the COPY options for one transfer. Zero values fall back
// to the defaults: CSV, comma delimiter, header on, ISO-8859-1 encoding,
// double-quote quote character.
type CopyOptions struct {
	Format    string
	Delimiter string
	Header    bool
	Encoding  string
	Quote     string
}

// DefaultCopyOptions returns the standard CSV transfer options.
func DefaultCopyOptions() CopyOptions {
	return CopyOptions{
		Format:    "CSV",
		Delimiter: ",",
		Header:    true,
		Encoding:  "ISO-8859-1",
		Quote:     `"`,
	}
}

func (o *CopyOptions) fillDefaults() {
	if o.Format == "" {
		o.Format = "CSV"
	}
	if o.Delimiter == "" {
		o.Delimiter = ","
	}
	if o.Encoding == "" {
		o.Encoding = "ISO-8859-1"
	}
	if o.Quote == "" {
		o.Quote = `"`
	}
}

// headerOption is the literal interpolated into COPY for the header flag.
// It passes the identifier validator like every other interpolated token.
func (o *CopyOptions) headerOption() string {
	if o.Header {
		return "HEADER"
	}
	return ""
}

// Job is one transfer. Jobs are transient: they exist for the duration of a
// single call, and are handed to the recorder (when one is attached) in
// their terminal state.
type Job struct {
	ID        uuid.UUID
	Direction Direction
	Subject   string // table name or truncated query text
	Path      string
	Options   CopyOptions
	State     JobState
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// JobRecorder receives every finished transfer job. Recording is
// best-effort and must not fail the transfer.
type JobRecorder interface {
	Record(job *Job)
}

// Transfer moves tabular data between repo tables and files using the
// server's native COPY. Paths are resolved on the database server.
type Transfer struct {
	exec     Executor
	recorder JobRecorder // optional
}

// NewTransfer returns a transfer engine over exec. recorder may be nil.
func NewTransfer(exec Executor, recorder JobRecorder) *Transfer {
	return &Transfer{exec: exec, recorder: recorder}
}

// ExportTable streams a table's contents to path. The table name may be
// schema-qualified; every segment is validated.
func (t *Transfer) ExportTable(ctx context.Context, table, path string, opts CopyOptions) (*Job, error) {
	opts.fillDefaults()
	job := t.newJob(DirectionExport, table, path, opts)

	quoted, err := ident.QuoteQualified(table)
	if err != nil {
		return t.fail(job, err)
	}
	if err := validateCopyLiterals(&opts); err != nil {
		return t.fail(job, err)
	}

	stmt := joinSQL("COPY", quoted, "TO", ident.QuoteLiteral(path),
		"WITH", opts.Format, opts.headerOption(),
		"DELIMITER", ident.QuoteLiteral(opts.Delimiter))
	return t.run(ctx, job, stmt)
}

// ExportQuery streams a query's result set to path. The query is truncated
// at its first statement separator before use; this is a mitigation, not a
// safety guarantee, since the retained text is still trusted verbatim.
func (t *Transfer) ExportQuery(ctx context.Context, query, path string, opts CopyOptions) (*Job, error) {
	opts.fillDefaults()

	query = strings.TrimSpace(strings.SplitN(query, ";", 2)[0])
	job := t.newJob(DirectionExport, query, path, opts)

	if query == "" {
		return t.fail(job, fmt.Errorf("%w: empty query", ErrMalformedName))
	}
	if err := validateCopyLiterals(&opts); err != nil {
		return t.fail(job, err)
	}

	stmt := joinSQL("COPY", "("+query+")", "TO", ident.QuoteLiteral(path),
		"WITH", opts.Format, opts.headerOption(),
		"DELIMITER", ident.QuoteLiteral(opts.Delimiter))
	return t.run(ctx, job, stmt)
}

// Import bulk-loads a file into table. On any load failure the partially
// created table is dropped best-effort and the returned *ImportError carries
// the original cause plus the cleanup outcome; the job is Failed either way.
func (t *Transfer) Import(ctx context.Context, table, path string, opts CopyOptions) (*Job, error) {
	opts.fillDefaults()
	job := t.newJob(DirectionImport, table, path, opts)

	quoted, err := ident.QuoteQualified(table)
	if err != nil {
		return t.fail(job, err)
	}
	if err := validateCopyLiterals(&opts); err != nil {
		return t.fail(job, err)
	}

	stmt := joinSQL("COPY", quoted, "FROM", ident.QuoteLiteral(path),
		"WITH", opts.Format, opts.headerOption(),
		"DELIMITER", ident.QuoteLiteral(opts.Delimiter),
		"ENCODING", ident.QuoteLiteral(opts.Encoding),
		"QUOTE", ident.QuoteLiteral(opts.Quote))

	job.State = JobRunning
	job.StartedAt = time.Now()
	_, execErr := t.exec.Execute(ctx, stmt)
	job.Duration = time.Since(job.StartedAt)

	if execErr != nil {
		impErr := &ImportError{Table: table, Err: execErr}
		if _, cleanupErr := t.exec.Execute(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoted)); cleanupErr != nil {
			impErr.CleanupErr = cleanupErr
		}
		return t.fail(job, impErr)
	}

	job.State = JobSucceeded
	t.record(job)
	return job, nil
}

func (t *Transfer) newJob(dir Direction, subject, path string, opts CopyOptions) *Job {
	return &Job{
		ID:        uuid.New(),
		Direction: dir,
		Subject:   subject,
		Path:      path,
		Options:   opts,
		State:     JobPending,
	}
}

func (t *Transfer) run(ctx context.Context, job *Job, stmt string) (*Job, error) {
	job.State = JobRunning
	job.StartedAt = time.Now()
	_, err := t.exec.Execute(ctx, stmt)
	job.Duration = time.Since(job.StartedAt)
	if err != nil {
		return t.fail(job, fmt.Errorf("%s %s: %w", job.Direction, job.Subject, err))
	}
	job.State = JobSucceeded
	t.record(job)
	return job, nil
}

func (t *Transfer) fail(job *Job, err error) (*Job, error) {
	job.State = JobFailed
	job.Err = err
	t.record(job)
	return job, err
}

func (t *Transfer) record(job *Job) {
	if t.recorder != nil {
		t.recorder.Record(job)
	}
}

// validateCopyLiterals validates the tokens interpolated raw into COPY.
// Delimiter, encoding, quote character, and path are embedded as escaped
// string literals instead and need no identifier validation.
func validateCopyLiterals(opts *CopyOptions) error {
	if err := ident.Validate(opts.Format); err != nil {
		return err
	}
	if h := opts.headerOption(); h != "" {
		if err := ident.Validate(h); err != nil {
			return err
		}
	}
	return nil
}

// joinSQL joins non-empty fragments with single spaces.
func joinSQL(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
