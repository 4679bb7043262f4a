package pg

import (
	"context"
	"fmt"

	"github.com/silodb/silo/internal/ident"
)

// Roles manages database logins and their personal databases.
type Roles struct {
	exec Executor
}

// NewRoles returns a role manager over exec.
func NewRoles(exec Executor) *Roles {
	return &Roles{exec: exec}
}

// Create makes a login role explicitly forbidden from creating databases,
// roles, or other users. When createDB is set the role also gets a personal
// database of the same name.
//
// Passwords cannot be bound in role DDL, so the password is embedded as an
// escaped string literal.
func (r *Roles) Create(ctx context.Context, name, password string, createDB bool) error {
	if err := ident.Validate(name); err != nil {
		return err
	}

	stmt := fmt.Sprintf(
		"CREATE ROLE %s WITH LOGIN NOSUPERUSER NOCREATEDB NOCREATEROLE PASSWORD %s",
		ident.Quote(name), ident.QuoteLiteral(password))
	if _, err := r.exec.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("create user %s: %w", name, err)
	}

	if createDB {
		return r.CreateDatabase(ctx, name)
	}
	return nil
}

// CreateDatabase provisions a role's personal database. CREATE DATABASE
// cannot execute inside a transaction or a multi-statement string, so the
// creation and the ownership transfer are two separate statements. A failure
// between the two leaves an ownerless database; that window is a known
// limitation, not guarded here.
func (r *Roles) CreateDatabase(ctx context.Context, name string) error {
	if err := ident.Validate(name); err != nil {
		return err
	}

	db := ident.Quote(name)
	if _, err := r.exec.Execute(ctx, fmt.Sprintf("CREATE DATABASE %s", db)); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	if _, err := r.exec.Execute(ctx, fmt.Sprintf("ALTER DATABASE %s OWNER TO %s", db, ident.Quote(name))); err != nil {
		return fmt.Errorf("transfer ownership of database %s: %w", name, err)
	}
	return nil
}

// Remove drops a role, optionally dropping its personal database first.
// No cross-tenant dependency scan is performed: dropping a database whose
// objects other roles still reference fails with the server's error.
func (r *Roles) Remove(ctx context.Context, name string, removeDB bool) error {
	if err := ident.Validate(name); err != nil {
		return err
	}

	if removeDB {
		if _, err := r.exec.Execute(ctx, fmt.Sprintf("DROP DATABASE %s", ident.Quote(name))); err != nil {
			return fmt.Errorf("drop database %s: %w", name, err)
		}
	}

	if _, err := r.exec.Execute(ctx, fmt.Sprintf("DROP ROLE %s", ident.Quote(name))); err != nil {
		return fmt.Errorf("drop role %s: %w", name, err)
	}
	return nil
}

// ChangePassword alters a role's credential.
func (r *Roles) ChangePassword(ctx context.Context, name, password string) error {
	if err := ident.Validate(name); err != nil {
		return err
	}

	stmt := fmt.Sprintf("ALTER ROLE %s WITH PASSWORD %s",
		ident.Quote(name), ident.QuoteLiteral(password))
	if _, err := r.exec.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("change password for %s: %w", name, err)
	}
	return nil
}
