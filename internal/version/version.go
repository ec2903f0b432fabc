// Package version compares mod version strings and checks game-version
// ranges; the CLI uses it for the scan/update compatibility check and to
// skip downloads whose remote version matches the local one.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Satisfies reports whether candidate satisfies a version-range expression
// as used in a mods.toml dependency table (e.g. "[1.20,1.21)", ">=2.0").
// A range that fails to parse is treated as unsatisfied rather than panicking,
// since constraint strings from third-party archives are untrusted input.
func Satisfies(rangeExpr, candidate string) bool {
	if rangeExpr == "" || rangeExpr == "*" {
		return true
	}

	constraint, err := semver.NewConstraint(normalizeRange(rangeExpr))
	if err != nil {
		return false
	}

	v, err := semver.NewVersion(candidate)
	if err != nil {
		return false
	}

	return constraint.Check(v)
}

// normalizeRange rewrites Maven-style interval notation ("[1.20,1.21)")
// into the comma-separated comparator form semver.NewConstraint accepts.
func normalizeRange(expr string) string {
	expr = strings.TrimSpace(expr)
	if len(expr) < 2 {
		return expr
	}

	openInclusive := expr[0] == '['
	closeInclusive := expr[len(expr)-1] == ']'
	if !openInclusive && expr[0] != '(' {
		return expr
	}
	if !closeInclusive && expr[len(expr)-1] != ')' {
		return expr
	}

	inner := expr[1 : len(expr)-1]
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return expr
	}

	lo := strings.TrimSpace(parts[0])
	hi := strings.TrimSpace(parts[1])

	var clauses []string
	if lo != "" {
		op := ">"
		if openInclusive {
			op = ">="
		}
		clauses = append(clauses, op+lo)
	}
	if hi != "" {
		op := "<"
		if closeInclusive {
			op = "<="
		}
		clauses = append(clauses, op+hi)
	}
	if len(clauses) == 0 {
		return "*"
	}
	return strings.Join(clauses, ", ")
}

// Equal reports whether two freeform version strings should be considered
// the same release for the purposes of pruning and freshness checks.
// Exact string equality is sufficient here: mod archive filenames already
// encode the version verbatim, so there is no normalization to perform.
func Equal(a, b string) bool {
	return a == b
}
