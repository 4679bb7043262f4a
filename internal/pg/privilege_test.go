package pg

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestCollaboratorsAdd(t *testing.T) {
	exec := &fakeExec{}
	c := NewCollaborators(exec)

	err := c.Add(context.Background(), "sales", "bob", []string{"SELECT", "INSERT"})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	tx := exec.tx
	if tx == nil {
		t.Fatal("Add() never opened a transaction")
	}
	if !tx.committed {
		t.Error("Add() did not commit")
	}
	if len(tx.stmts) != 3 {
		t.Fatalf("Add() sent %d statements, want 3: %v", len(tx.stmts), tx.stmts)
	}

	want := []string{
		`GRANT USAGE ON SCHEMA "sales" TO "bob"`,
		`GRANT SELECT, INSERT ON ALL TABLES IN SCHEMA "sales" TO "bob"`,
		`ALTER DEFAULT PRIVILEGES IN SCHEMA "sales" GRANT SELECT, INSERT ON TABLES TO "bob"`,
	}
	if !reflect.DeepEqual(tx.stmts, want) {
		t.Errorf("Add() statements =\n%s\nwant\n%s",
			strings.Join(tx.stmts, "\n"), strings.Join(want, "\n"))
	}
}

func TestCollaboratorsAddRollsBackOnFailure(t *testing.T) {
	// The default-privilege step fails; nothing may remain granted.
	tx := &fakeTx{errOn: "ALTER DEFAULT PRIVILEGES"}
	exec := &fakeExec{tx: tx}
	c := NewCollaborators(exec)

	err := c.Add(context.Background(), "sales", "bob", []string{"SELECT"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Add() = %v, want ErrPermissionDenied", err)
	}
	if !tx.rolledBack {
		t.Error("Add() did not roll back after the failed step")
	}
	if tx.committed {
		t.Error("Add() committed a failed transaction")
	}
}

func TestCollaboratorsAddValidatesEverything(t *testing.T) {
	exec := &fakeExec{}
	c := NewCollaborators(exec)
	ctx := context.Background()

	cases := []struct {
		repo, user string
		privs      []string
	}{
		{"-sales", "bob", []string{"SELECT"}},
		{"sales", "bob_", []string{"SELECT"}},
		{"sales", "bob", []string{"SELECT; DROP TABLE t"}},
	}
	for _, tt := range cases {
		if err := c.Add(ctx, tt.repo, tt.user, tt.privs); !errors.Is(err, ErrInvalidIdentifier) {
			t.Errorf("Add(%q, %q, %v) = %v, want ErrInvalidIdentifier", tt.repo, tt.user, tt.privs, err)
		}
	}
	if exec.tx != nil {
		t.Error("invalid input reached the transaction")
	}
}

func TestCollaboratorsRemove(t *testing.T) {
	exec := &fakeExec{}
	c := NewCollaborators(exec)

	if err := c.Remove(context.Background(), "sales", "bob"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	tx := exec.tx
	if tx == nil || !tx.committed {
		t.Fatal("Remove() did not run a committed transaction")
	}
	want := []string{
		`REVOKE ALL ON ALL TABLES IN SCHEMA "sales" FROM "bob" CASCADE`,
		`REVOKE ALL ON SCHEMA "sales" FROM "bob" CASCADE`,
		`ALTER DEFAULT PRIVILEGES IN SCHEMA "sales" REVOKE ALL ON TABLES FROM "bob"`,
	}
	if !reflect.DeepEqual(tx.stmts, want) {
		t.Errorf("Remove() statements =\n%s\nwant\n%s",
			strings.Join(tx.stmts, "\n"), strings.Join(want, "\n"))
	}
}

func TestCollaboratorsList(t *testing.T) {
	exec := &fakeExec{results: map[string]*Result{
		"pg_namespace WHERE nspname": rowsOf("alice=UC/alice", "bob=U/alice"),
		"pg_default_acl":             rowsOf("bob=ar/alice"),
	}}
	c := NewCollaborators(exec)

	got, err := c.List(context.Background(), "sales")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []Collaborator{
		{Username: "alice", Privileges: []string{"USAGE", "CREATE"}},
		{Username: "bob", Privileges: []string{"SELECT", "INSERT", "USAGE"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %+v, want %+v", got, want)
	}
}

func TestDecodeACLItem(t *testing.T) {
	tests := []struct {
		name      string
		item      string
		username  string
		privs     []string
		ok        bool
	}{
		{"usage only", "bob=U/alice", "bob", []string{"USAGE"}, true},
		{"select insert", "bob=ar/alice", "bob", []string{"SELECT", "INSERT"}, true},
		{"full table set", "carol=arwdDxt/alice", "carol", []string{"SELECT", "INSERT", "UPDATE", "DELETE", "TRUNCATE", "REFERENCES", "TRIGGER"}, true},
		{"grant option markers ignored", "bob=r*a*/alice", "bob", []string{"SELECT", "INSERT"}, true},
		{"public grantee", "=U/alice", "PUBLIC", []string{"USAGE"}, true},
		{"quoted grantee", `"odd-user"=U/alice`, "odd-user", []string{"USAGE"}, true},
		{"no equals sign", "garbage", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			username, privs, ok := decodeACLItem(tt.item)
			if ok != tt.ok {
				t.Fatalf("decodeACLItem(%q) ok = %v, want %v", tt.item, ok, tt.ok)
			}
			if !ok {
				return
			}
			if username != tt.username {
				t.Errorf("username = %q, want %q", username, tt.username)
			}
			if !reflect.DeepEqual(privs, tt.privs) {
				t.Errorf("privileges = %v, want %v", privs, tt.privs)
			}
		})
	}
}

func TestHasPrivilegeChecks(t *testing.T) {
	exec := &fakeExec{results: map[string]*Result{
		"has_schema_privilege": rowsOf("true"),
		"has_table_privilege":  rowsOf("false"),
	}}
	c := NewCollaborators(exec)
	ctx := context.Background()

	ok, err := c.HasRepoPrivilege(ctx, "bob", "sales", "USAGE")
	if err != nil || !ok {
		t.Errorf("HasRepoPrivilege() = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = c.HasTablePrivilege(ctx, "bob", "sales.customers", "DELETE")
	if err != nil || ok {
		t.Errorf("HasTablePrivilege() = (%v, %v), want (false, nil)", ok, err)
	}
}
