// Package ident guards SQL identifiers before they are interpolated into
// statement text. Bound parameter values never pass through here; only
// tokens that end up as raw identifiers (role names, repo names, table
// names, COPY option literals) do.
package ident

import (
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is returned for tokens that violate the naming rule.
var ErrInvalidIdentifier = fmt.Errorf("invalid identifier")

// ErrMalformedName is returned when a qualified name does not split into
// exactly two segments.
var ErrMalformedName = fmt.Errorf("malformed qualified name")

// validPattern accepts one or more letters, digits, hyphens, and underscores
// that neither start nor end with a hyphen or underscore.
var validPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9_-]*[A-Za-z0-9])?$`)

// Validate checks a single token against the naming rule. It must be called
// on every caller-supplied name before that name is embedded in SQL.
func Validate(token string) error {
	if !validPattern.MatchString(token) {
		return fmt.Errorf("%w: %q may only contain letters, digits, hyphens, and underscores, and must not begin or end with a hyphen or underscore", ErrInvalidIdentifier, token)
	}
	return nil
}

// ValidateAll validates every token in order, failing on the first bad one.
func ValidateAll(tokens ...string) error {
	for _, t := range tokens {
		if err := Validate(t); err != nil {
			return err
		}
	}
	return nil
}

// Quote wraps an identifier in double-quotes (ANSI style), escaping any
// embedded double-quotes by doubling them. Callers must Validate first;
// Quote alone is not an injection guard.
func Quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteQualified splits name on dots, validates each segment, and returns
// the dotted join of the quoted segments. Used for table references that
// may be schema-qualified.
func QuoteQualified(name string) (string, error) {
	segments := strings.Split(name, ".")
	quoted := make([]string, len(segments))
	for i, seg := range segments {
		if err := Validate(seg); err != nil {
			return "", err
		}
		quoted[i] = Quote(seg)
	}
	return strings.Join(quoted, "."), nil
}

// SplitQualified splits a qualified name into exactly (repo, table),
// validating both segments. Names with more or fewer than two segments are
// rejected.
func SplitQualified(name string) (repo, table string, err error) {
	segments := strings.Split(name, ".")
	if len(segments) != 2 {
		return "", "", fmt.Errorf("%w: %q (use <repo-name>.<table-name>)", ErrMalformedName, name)
	}
	if err := ValidateAll(segments...); err != nil {
		return "", "", err
	}
	return segments[0], segments[1], nil
}

// QuoteLiteral escapes a string for embedding as a SQL string literal.
// COPY options and role passwords cannot be bound server-side, so those few
// places embed values this way; everything else uses parameter binding.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
