package domain

import (
	"fmt"
	"strings"
)

// NamingStrategy controls how a Git branch name is turned into a database
// name: prefix/suffix wrap the sanitized branch name around a fixed
// identifier; replace sanitizes the branch name directly into a DB-safe
// identifier with no added prefix or suffix.
type NamingStrategy string

const (
	NamingPrefix  NamingStrategy = "prefix"
	NamingSuffix  NamingStrategy = "suffix"
	NamingReplace NamingStrategy = "replace"
)

// MaxPostgresIdentifierLength is the maximum length of an unquoted
// PostgreSQL identifier (NAMEDATALEN - 1 on stock builds).
const MaxPostgresIdentifierLength = 63

// DeriveDatabaseName computes the database name for branchName under the
// given strategy and fixed identifier (the configured database_prefix).
//
// The replace strategy lowercases the branch name and maps every
// character outside [A-Za-z0-9_] to '_' without collapsing runs of
// underscores or trimming a trailing one — each invalid input character
// becomes exactly one underscore in the output. The result is truncated
// to MaxPostgresIdentifierLength.
func DeriveDatabaseName(strategy NamingStrategy, fixed, branchName string) (string, error) {
	sanitized := sanitizeReplace(branchName)

	var full string
	switch strategy {
	case NamingPrefix:
		full = fmt.Sprintf("%s_%s", fixed, sanitized)
	case NamingSuffix:
		full = fmt.Sprintf("%s_%s", sanitized, fixed)
	case NamingReplace, "":
		full = sanitized
	default:
		return "", fmt.Errorf("unknown naming strategy %q", strategy)
	}

	if len(full) > MaxPostgresIdentifierLength {
		full = full[:MaxPostgresIdentifierLength]
	}
	return full, nil
}

// sanitizeReplace lowercases s and maps every character outside
// [a-z0-9_] to '_'.
func sanitizeReplace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
