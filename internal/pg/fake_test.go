package pg

import (
	"context"
	"errors"
	"strings"
)

// fakeExec is a scripted Executor. Results are matched by statement
// substring; statements with no scripted result succeed with an empty
// Result. An errOn substring makes the matching statement fail.
type fakeExec struct {
	calls    []string
	results  map[string]*Result
	errOn    string
	err      error
	tx       *fakeTx
	beginErr error
}

func (f *fakeExec) Execute(_ context.Context, sql string, args ...any) (*Result, error) {
	f.calls = append(f.calls, sql)
	if f.errOn != "" && strings.Contains(sql, f.errOn) {
		if f.err != nil {
			return nil, f.err
		}
		return nil, errors.New("scripted failure")
	}
	for key, res := range f.results {
		if strings.Contains(sql, key) {
			return res, nil
		}
	}
	return &Result{Succeeded: true}, nil
}

func (f *fakeExec) Begin(context.Context) (Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	if f.tx == nil {
		f.tx = &fakeTx{}
	}
	return f.tx, nil
}

// sent reports whether any executed statement contains substr.
func (f *fakeExec) sent(substr string) bool {
	for _, c := range f.calls {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

// fakeTx records transactional statements and their outcome.
type fakeTx struct {
	stmts      []string
	errOn      string
	err        error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) error {
	t.stmts = append(t.stmts, sql)
	if t.errOn != "" && strings.Contains(sql, t.errOn) {
		if t.err != nil {
			return t.err
		}
		return errors.New("scripted tx failure")
	}
	return nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

// rowsOf builds a single-column result.
func rowsOf(values ...string) *Result {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return &Result{Succeeded: true, RowCount: int64(len(values)), Rows: rows}
}
