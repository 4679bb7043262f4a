package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/silodb/silo/internal/ident"
)

// Collaborator is a role holding some privilege set on a repo, derived from
// the repo's access-control lists rather than stored anywhere.
type Collaborator struct {
	Username   string
	Privileges []string
}

// Collaborators manages per-repo privilege grants.
type Collaborators struct {
	exec Executor
}

// NewCollaborators returns a privilege manager over exec.
func NewCollaborators(exec Executor) *Collaborators {
	return &Collaborators{exec: exec}
}

// Add grants username the given privileges on repo as one atomic unit:
// USAGE on the schema, the privilege set on all current tables, and default
// privileges so future tables inherit the same grant. If any step fails the
// transaction rolls back and the collaborator gains nothing.
func (c *Collaborators) Add(ctx context.Context, repo, username string, privileges []string) error {
	if err := ident.ValidateAll(repo, username); err != nil {
		return err
	}
	if len(privileges) == 0 {
		return fmt.Errorf("%w: no privileges requested", ErrPermissionDenied)
	}
	if err := ident.ValidateAll(privileges...); err != nil {
		return err
	}

	// Privilege tokens are keywords (SELECT, INSERT, ALL, ...); they are
	// validated but must not be identifier-quoted.
	privs := strings.Join(privileges, ", ")
	schema := ident.Quote(repo)
	grantee := ident.Quote(username)

	stmts := []string{
		fmt.Sprintf("GRANT USAGE ON SCHEMA %s TO %s", schema, grantee),
		fmt.Sprintf("GRANT %s ON ALL TABLES IN SCHEMA %s TO %s", privs, schema, grantee),
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA %s GRANT %s ON TABLES TO %s", schema, privs, grantee),
	}
	if err := c.transact(ctx, stmts); err != nil {
		return fmt.Errorf("%w: grant to %s on %s: %v", ErrPermissionDenied, username, repo, err)
	}
	return nil
}

// Remove atomically revokes all of username's privileges on repo at table,
// schema, and default-privilege scope.
func (c *Collaborators) Remove(ctx context.Context, repo, username string) error {
	if err := ident.ValidateAll(repo, username); err != nil {
		return err
	}

	schema := ident.Quote(repo)
	grantee := ident.Quote(username)

	stmts := []string{
		fmt.Sprintf("REVOKE ALL ON ALL TABLES IN SCHEMA %s FROM %s CASCADE", schema, grantee),
		fmt.Sprintf("REVOKE ALL ON SCHEMA %s FROM %s CASCADE", schema, grantee),
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA %s REVOKE ALL ON TABLES FROM %s", schema, grantee),
	}
	if err := c.transact(ctx, stmts); err != nil {
		return fmt.Errorf("%w: revoke from %s on %s: %v", ErrPermissionDenied, username, repo, err)
	}
	return nil
}

// transact runs stmts inside one transaction, rolling back on the first
// failure so no intermediate state is externally observable.
func (c *Collaborators) transact(ctx context.Context, stmts []string) error {
	tx, err := c.exec.Begin(ctx)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}
	return tx.Commit(ctx)
}

// List decodes the repo's access-control lists into collaborators. Entries
// from the schema ACL and the schema's default-privilege ACL are merged per
// grantee, preserving first-seen ACL order (stable, not sorted).
func (c *Collaborators) List(ctx context.Context, repo string) ([]Collaborator, error) {
	if err := ident.Validate(repo); err != nil {
		return nil, err
	}

	schemaACL, err := c.exec.Execute(ctx,
		`SELECT unnest(nspacl)::text FROM pg_namespace WHERE nspname = $1`, repo)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}

	defaultACL, err := c.exec.Execute(ctx,
		`SELECT unnest(d.defaclacl)::text
		 FROM pg_default_acl d
		 JOIN pg_namespace n ON n.oid = d.defaclnamespace
		 WHERE n.nspname = $1 AND d.defaclobjtype = 'r'`, repo)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}

	byUser := make(map[string]map[string]bool)
	var order []string
	for _, res := range []*Result{schemaACL, defaultACL} {
		for _, row := range res.Rows {
			username, privs, ok := decodeACLItem(row[0])
			if !ok {
				continue
			}
			set, seen := byUser[username]
			if !seen {
				set = make(map[string]bool)
				byUser[username] = set
				order = append(order, username)
			}
			for _, p := range privs {
				set[p] = true
			}
		}
	}

	collaborators := make([]Collaborator, 0, len(order))
	for _, username := range order {
		var privs []string
		for _, p := range aclPrivilegeOrder {
			if byUser[username][p] {
				privs = append(privs, p)
			}
		}
		collaborators = append(collaborators, Collaborator{Username: username, Privileges: privs})
	}
	return collaborators, nil
}

// aclPrivilegeOrder fixes the output ordering of a decoded privilege set.
var aclPrivilegeOrder = []string{
	"SELECT", "INSERT", "UPDATE", "DELETE",
	"TRUNCATE", "REFERENCES", "TRIGGER", "USAGE", "CREATE",
}

// aclLetter maps aclitem privilege letters to privilege names.
var aclLetter = map[byte]string{
	'r': "SELECT",
	'a': "INSERT",
	'w': "UPDATE",
	'd': "DELETE",
	'D': "TRUNCATE",
	'x': "REFERENCES",
	't': "TRIGGER",
	'U': "USAGE",
	'C': "CREATE",
}

// decodeACLItem parses one textual aclitem, e.g. "bob=arU/alice". An empty
// grantee means PUBLIC; '*' grant-option markers are ignored.
func decodeACLItem(item string) (username string, privileges []string, ok bool) {
	eq := strings.IndexByte(item, '=')
	if eq < 0 {
		return "", nil, false
	}
	username = item[:eq]
	if username == "" {
		username = "PUBLIC"
	}
	// Strip the surrounding quotes Postgres adds for unusual grantee names.
	username = strings.Trim(username, `"`)

	rest := item[eq+1:]
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		rest = rest[:slash]
	}

	for i := 0; i < len(rest); i++ {
		if rest[i] == '*' {
			continue
		}
		if p, known := aclLetter[rest[i]]; known {
			privileges = append(privileges, p)
		}
	}
	return username, privileges, true
}

// HasDatabasePrivilege reports whether login holds privilege on the current
// database.
func (c *Collaborators) HasDatabasePrivilege(ctx context.Context, login, database, privilege string) (bool, error) {
	return c.boolQuery(ctx, `SELECT has_database_privilege($1, $2, $3)`, login, database, privilege)
}

// HasRepoPrivilege reports whether login holds privilege on a repo's schema.
func (c *Collaborators) HasRepoPrivilege(ctx context.Context, login, repo, privilege string) (bool, error) {
	return c.boolQuery(ctx, `SELECT has_schema_privilege($1, $2, $3)`, login, repo, privilege)
}

// HasTablePrivilege reports whether login holds privilege on a table.
func (c *Collaborators) HasTablePrivilege(ctx context.Context, login, table, privilege string) (bool, error) {
	return c.boolQuery(ctx, `SELECT has_table_privilege($1, $2, $3)`, login, table, privilege)
}

// HasColumnPrivilege reports whether login holds privilege on a column.
func (c *Collaborators) HasColumnPrivilege(ctx context.Context, login, table, column, privilege string) (bool, error) {
	return c.boolQuery(ctx, `SELECT has_column_privilege($1, $2, $3, $4)`, login, table, column, privilege)
}

func (c *Collaborators) boolQuery(ctx context.Context, sql string, args ...any) (bool, error) {
	res, err := c.exec.Execute(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("privilege check: %w", err)
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return false, nil
	}
	return res.Rows[0][0] == "true" || res.Rows[0][0] == "t", nil
}
