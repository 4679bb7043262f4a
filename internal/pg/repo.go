package pg

import (
	"context"
	"fmt"
	"os"

	"github.com/silodb/silo/internal/ident"
)

// DirFunc maps (owner, repo) to the directory holding that repo's files.
// The engine never computes this path itself; the caller supplies it.
type DirFunc func(owner, repo string) string

// Repos manages the schema-per-repo lifecycle.
type Repos struct {
	exec   Executor
	dirFor DirFunc // optional; nil disables directory cleanup
}

// NewRepos returns a repo manager over exec. dirFor may be nil when no
// repo-associated files exist.
func NewRepos(exec Executor, dirFor DirFunc) *Repos {
	return &Repos{exec: exec, dirFor: dirFor}
}

// Create makes the schema for a repo, owned by owner. Creating a repo that
// already exists is a no-op success.
func (r *Repos) Create(ctx context.Context, owner, name string) error {
	if err := ident.ValidateAll(owner, name); err != nil {
		return err
	}

	stmt := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s AUTHORIZATION %s",
		ident.Quote(name), ident.Quote(owner))
	if _, err := r.exec.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("create repo %s: %w", name, err)
	}
	return nil
}

// List returns the names of the repos owned by owner.
func (r *Repos) List(ctx context.Context, owner string) ([]string, error) {
	res, err := r.exec.Execute(ctx,
		`SELECT schema_name FROM information_schema.schemata
		 WHERE schema_owner = $1`, owner)
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}

	repos := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		repos = append(repos, row[0])
	}
	return repos, nil
}

// Delete drops a repo. The directory holding the repo's files is removed
// first, best-effort; a missing or stubborn directory never blocks the drop.
// Without force the drop is RESTRICT and a non-empty schema surfaces the
// server's dependency error instead of silently cascading.
func (r *Repos) Delete(ctx context.Context, owner, name string, force bool) error {
	if err := ident.ValidateAll(owner, name); err != nil {
		return err
	}

	if r.dirFor != nil {
		if dir := r.dirFor(owner, name); dir != "" {
			_ = os.RemoveAll(dir)
		}
	}

	mode := "RESTRICT"
	if force {
		mode = "CASCADE"
	}
	stmt := fmt.Sprintf("DROP SCHEMA %s %s", ident.Quote(name), mode)
	if _, err := r.exec.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("delete repo %s: %w", name, err)
	}
	return nil
}
