package pg

import (
	"context"
	"fmt"

	"github.com/silodb/silo/internal/ident"
)

// Catalog answers schema questions for repos the session owner can see.
// Ownership is checked above raw database permissions: the executing login
// may technically see more schemas than the caller should.
type Catalog struct {
	exec  Executor
	repos *Repos
	owner string
}

// NewCatalog returns an introspection service scoped to owner's repos.
func NewCatalog(exec Executor, repos *Repos, owner string) *Catalog {
	return &Catalog{exec: exec, repos: repos, owner: owner}
}

// ListTables returns the base tables in repo. A repo the owner does not own
// is reported as not found, even when the login could see it.
func (c *Catalog) ListTables(ctx context.Context, repo string) ([]string, error) {
	return c.listRelations(ctx, repo, "BASE TABLE")
}

// ListViews returns the views in repo, under the same ownership check.
func (c *Catalog) ListViews(ctx context.Context, repo string) ([]string, error) {
	return c.listRelations(ctx, repo, "VIEW")
}

func (c *Catalog) listRelations(ctx context.Context, repo, kind string) ([]string, error) {
	if err := ident.Validate(repo); err != nil {
		return nil, err
	}
	if err := c.checkOwned(ctx, repo); err != nil {
		return nil, err
	}

	res, err := c.exec.Execute(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = $1 AND table_type = $2`, repo, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s in %s: %w", kind, repo, err)
	}

	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		names = append(names, row[0])
	}
	return names, nil
}

// DescribeTable returns the (column, type) pairs of a table named as
// repo.table. Exactly two segments are required.
func (c *Catalog) DescribeTable(ctx context.Context, qualifiedName string) ([]Column, error) {
	repo, table, err := ident.SplitQualified(qualifiedName)
	if err != nil {
		return nil, err
	}

	res, err := c.exec.Execute(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2
		 ORDER BY ordinal_position`, repo, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", qualifiedName, err)
	}
	if len(res.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, qualifiedName)
	}

	cols := make([]Column, 0, len(res.Rows))
	for _, row := range res.Rows {
		cols = append(cols, Column{Name: row[0], Type: row[1]})
	}
	return cols, nil
}

func (c *Catalog) checkOwned(ctx context.Context, repo string) error {
	owned, err := c.repos.List(ctx, c.owner)
	if err != nil {
		return err
	}
	for _, name := range owned {
		if name == repo {
			return nil
		}
	}
	return fmt.Errorf("%w: repository %s", ErrNotFound, repo)
}
