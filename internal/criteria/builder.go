// Package criteria turns a line item's targeting configuration into typed
// query predicates. Everything here is pure: no I/O, no store access.
//
// Predicates are expressed as (field, operator, patterns) conditions that
// downstream layers either translate to SQL (repository/postgres) or
// evaluate in memory (Condition.Matches). Keeping the field universe and
// operators explicit avoids stringly-typed query maps.
package criteria

import (
	"fmt"
	"regexp"
	"time"

	"github.com/ignite/audience-report/internal/domain"
)

// GraceDays is the fixed extension applied to every report window's upper
// bound, admitting clicks on deployments sent near the boundary.
const GraceDays = 7

// ErrUnsupportedMatchType is returned when an identity filter carries a
// match type outside {contains, starts, matches}.
var ErrUnsupportedMatchType = fmt.Errorf("unsupported identity filter match type")

// Op enumerates the predicate operators produced by the builder.
type Op string

const (
	// OpNotRegexAny passes when the field value matches none of the
	// condition's patterns (negated membership).
	OpNotRegexAny Op = "not_regex_any"

	// OpNotEmpty passes when the field value is present and non-empty.
	OpNotEmpty Op = "not_empty"
)

// Condition is a single field predicate. Conditions in a list are conjoined.
type Condition struct {
	Field    string   `json:"field"`
	Op       Op       `json:"op"`
	Patterns []string `json:"patterns,omitempty"`
}

// Matches evaluates the condition against a field value. Patterns are
// compiled case-insensitively; an invalid pattern fails closed (the value
// is treated as excluded) but cannot occur for builder-produced conditions
// since all term characters are escaped.
func (c Condition) Matches(value string) bool {
	switch c.Op {
	case OpNotEmpty:
		return value != ""
	case OpNotRegexAny:
		for _, p := range c.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return false
			}
			if re.MatchString(value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// BuildIdentityFilter converts the line item's identityFilters and
// requiredFields settings into a conjoined condition list.
//
// For each filter, every non-empty term becomes an escaped, case-insensitive
// pattern anchored per the match type: contains matches anywhere, starts is
// anchored at the beginning, matches at both ends. The resulting condition
// excludes identities whose field matches any term. Each required field adds
// a non-empty condition.
func BuildIdentityFilter(li *domain.LineItem) ([]Condition, error) {
	var conds []Condition

	for _, f := range li.IdentityFilters {
		patterns, err := buildTermPatterns(f)
		if err != nil {
			return nil, err
		}
		if len(patterns) == 0 {
			continue
		}
		conds = append(conds, Condition{Field: f.Key, Op: OpNotRegexAny, Patterns: patterns})
	}

	for _, field := range li.RequiredFields {
		conds = append(conds, Condition{Field: field, Op: OpNotEmpty})
	}
	return conds, nil
}

func buildTermPatterns(f domain.IdentityFilter) ([]string, error) {
	var prefix, suffix string
	switch f.MatchType {
	case domain.MatchContains:
	case domain.MatchStarts:
		prefix = "^"
	case domain.MatchMatches:
		prefix, suffix = "^", "$"
	default:
		return nil, fmt.Errorf("%w: %q on field %q", ErrUnsupportedMatchType, f.MatchType, f.Key)
	}

	var patterns []string
	for _, term := range f.Terms {
		if term == "" {
			continue
		}
		patterns = append(patterns, prefix+regexp.QuoteMeta(term)+suffix)
	}
	return patterns, nil
}

// EndDate returns the line item's effective window end: range.end plus the
// grace period.
func EndDate(li *domain.LineItem) time.Time {
	return li.Range.End.AddDate(0, 0, GraceDays)
}

// Window returns the effective report window, [range.start, EndDate].
func Window(li *domain.LineItem) domain.DateRange {
	return domain.DateRange{Start: li.Range.Start, End: EndDate(li)}
}
