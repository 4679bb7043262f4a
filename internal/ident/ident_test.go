package ident

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		token string
		ok    bool
	}{
		{"simple lowercase", "sales", true},
		{"mixed with hyphen and underscore", "my-repo_1", true},
		{"single character", "a", true},
		{"single digit", "7", true},
		{"digits only", "2024", true},
		{"uppercase", "Sales", true},
		{"interior hyphen", "a-b", true},
		{"interior underscore", "a_b", true},
		{"leading hyphen", "-bad", false},
		{"leading underscore", "_bad", false},
		{"trailing hyphen", "bad-", false},
		{"trailing underscore", "bad_", false},
		{"empty", "", false},
		{"lone hyphen", "-", false},
		{"lone underscore", "_", false},
		{"space", "two words", false},
		{"semicolon", "t;drop", false},
		{"quote", `t"x`, false},
		{"dot", "repo.table", false},
		{"classic injection", "x; DROP TABLE users", false},
		{"unicode letter", "café", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.token)
			if tt.ok && err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tt.token, err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatalf("Validate(%q) = nil, want error", tt.token)
				}
				if !errors.Is(err, ErrInvalidIdentifier) {
					t.Errorf("Validate(%q) = %v, want ErrInvalidIdentifier", tt.token, err)
				}
			}
		})
	}
}

func TestValidateAll(t *testing.T) {
	if err := ValidateAll("alice", "sales", "SELECT"); err != nil {
		t.Errorf("ValidateAll() = %v, want nil", err)
	}
	if err := ValidateAll("alice", "-bad"); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("ValidateAll() = %v, want ErrInvalidIdentifier", err)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sales", `"sales"`},
		{"my-repo_1", `"my-repo_1"`},
		{`odd"name`, `"odd""name"`},
	}
	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestQuoteQualified(t *testing.T) {
	got, err := QuoteQualified("sales.customers")
	if err != nil {
		t.Fatalf("QuoteQualified() error = %v", err)
	}
	if want := `"sales"."customers"`; got != want {
		t.Errorf("QuoteQualified() = %s, want %s", got, want)
	}

	got, err = QuoteQualified("customers")
	if err != nil {
		t.Fatalf("QuoteQualified() error = %v", err)
	}
	if want := `"customers"`; got != want {
		t.Errorf("QuoteQualified() = %s, want %s", got, want)
	}

	if _, err := QuoteQualified("sales.-bad"); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("QuoteQualified() = %v, want ErrInvalidIdentifier", err)
	}
}

func TestSplitQualified(t *testing.T) {
	repo, table, err := SplitQualified("sales.customers")
	if err != nil {
		t.Fatalf("SplitQualified() error = %v", err)
	}
	if repo != "sales" || table != "customers" {
		t.Errorf("SplitQualified() = (%q, %q), want (sales, customers)", repo, table)
	}

	for _, bad := range []string{"customers", "a.b.c", ""} {
		if _, _, err := SplitQualified(bad); !errors.Is(err, ErrMalformedName) {
			t.Errorf("SplitQualified(%q) = %v, want ErrMalformedName", bad, err)
		}
	}

	if _, _, err := SplitQualified("sales.bad_"); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("SplitQualified() = %v, want ErrInvalidIdentifier", err)
	}
}

func TestQuoteLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/tmp/out.csv", "'/tmp/out.csv'"},
		{"it's", "'it''s'"},
		{",", "','"},
	}
	for _, tt := range tests {
		if got := QuoteLiteral(tt.in); got != tt.want {
			t.Errorf("QuoteLiteral(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
