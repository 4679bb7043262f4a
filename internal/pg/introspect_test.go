package pg

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func newTestCatalog(exec *fakeExec) *Catalog {
	repos := NewRepos(exec, nil)
	return NewCatalog(exec, repos, "alice")
}

func TestCatalogListTables(t *testing.T) {
	exec := &fakeExec{results: map[string]*Result{
		"information_schema.schemata": rowsOf("sales"),
		"information_schema.tables":   rowsOf("customers", "orders"),
	}}
	cat := newTestCatalog(exec)

	got, err := cat.ListTables(context.Background(), "sales")
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"customers", "orders"}) {
		t.Errorf("ListTables() = %v, want [customers orders]", got)
	}
}

func TestCatalogRejectsUnownedRepo(t *testing.T) {
	// The login can see "finance" at the database level, but alice does not
	// own it; the ownership check must hide it.
	exec := &fakeExec{results: map[string]*Result{
		"information_schema.schemata": rowsOf("sales"),
		"information_schema.tables":   rowsOf("ledger"),
	}}
	cat := newTestCatalog(exec)

	if _, err := cat.ListTables(context.Background(), "finance"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ListTables(finance) = %v, want ErrNotFound", err)
	}
	if _, err := cat.ListViews(context.Background(), "finance"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ListViews(finance) = %v, want ErrNotFound", err)
	}
}

func TestCatalogListViews(t *testing.T) {
	exec := &fakeExec{results: map[string]*Result{
		"information_schema.schemata": rowsOf("sales"),
		"information_schema.tables":   rowsOf("active_customers"),
	}}
	cat := newTestCatalog(exec)

	got, err := cat.ListViews(context.Background(), "sales")
	if err != nil {
		t.Fatalf("ListViews() error = %v", err)
	}
	if len(got) != 1 || got[0] != "active_customers" {
		t.Errorf("ListViews() = %v, want [active_customers]", got)
	}
}

func TestCatalogDescribeTable(t *testing.T) {
	exec := &fakeExec{results: map[string]*Result{
		"information_schema.columns": {
			Succeeded: true,
			RowCount:  2,
			Rows:      [][]string{{"id", "integer"}, {"name", "text"}},
		},
	}}
	cat := newTestCatalog(exec)

	got, err := cat.DescribeTable(context.Background(), "sales.customers")
	if err != nil {
		t.Fatalf("DescribeTable() error = %v", err)
	}
	want := []Column{{Name: "id", Type: "integer"}, {Name: "name", Type: "text"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DescribeTable() = %v, want %v", got, want)
	}
}

func TestCatalogDescribeTableMalformedName(t *testing.T) {
	exec := &fakeExec{}
	cat := newTestCatalog(exec)
	ctx := context.Background()

	for _, bad := range []string{"customers", "a.b.c"} {
		if _, err := cat.DescribeTable(ctx, bad); !errors.Is(err, ErrMalformedName) {
			t.Errorf("DescribeTable(%q) = %v, want ErrMalformedName", bad, err)
		}
	}
	if len(exec.calls) != 0 {
		t.Error("malformed names reached the executor")
	}
}

func TestCatalogDescribeTableNotFound(t *testing.T) {
	exec := &fakeExec{results: map[string]*Result{
		"information_schema.columns": {Succeeded: true},
	}}
	cat := newTestCatalog(exec)

	if _, err := cat.DescribeTable(context.Background(), "sales.ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DescribeTable() = %v, want ErrNotFound", err)
	}
}
