package query

import (
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"golang.org/x/text/cases"
)

// Predicate is one optional filter condition. Expr is what SQL stores put in
// the WHERE clause, Match is the same condition evaluated in memory.
type Predicate[T any] struct {
	Name  string
	Expr  exp.Expression
	Match func(T) bool
}

// Spec is a conjunction of predicates. The zero value (and a nil *Spec)
// matches everything.
type Spec[T any] struct {
	preds []Predicate[T]
}

func New[T any]() *Spec[T] { return &Spec[T]{} }

func (s *Spec[T]) And(p Predicate[T]) *Spec[T] {
	s.preds = append(s.preds, p)
	return s
}

func (s *Spec[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.preds)
}

func (s *Spec[T]) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.preds))
	for _, p := range s.preds {
		names = append(names, p.Name)
	}
	return names
}

// Expressions returns the SQL side, ready for goqu's Where(...).
func (s *Spec[T]) Expressions() []exp.Expression {
	if s == nil {
		return nil
	}
	out := make([]exp.Expression, 0, len(s.preds))
	for _, p := range s.preds {
		out = append(out, p.Expr)
	}
	return out
}

func (s *Spec[T]) Matches(v T) bool {
	if s == nil {
		return true
	}
	for _, p := range s.preds {
		if !p.Match(v) {
			return false
		}
	}
	return true
}

// Filter keeps the values matching every predicate, in order.
func (s *Spec[T]) Filter(in []T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if s.Matches(v) {
			out = append(out, v)
		}
	}
	return out
}

// ===== matching helpers =====

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern turns needle into a lower-case %needle% pattern with the LIKE
// wildcards escaped.
func LikePattern(needle string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(needle)) + "%"
}

// ContainsExpr renders a case-insensitive substring test on col.
func ContainsExpr(col exp.Expression, needle string) exp.Expression {
	return goqu.Func("LOWER", col).ILike(LikePattern(needle))
}

// ContainsFold reports whether needle occurs in haystack, ignoring case.
func ContainsFold(haystack, needle string) bool {
	c := cases.Fold()
	return strings.Contains(c.String(haystack), c.String(needle))
}

// EqualFold compares two names with Unicode case folding.
func EqualFold(a, b string) bool {
	c := cases.Fold()
	return c.String(strings.TrimSpace(a)) == c.String(strings.TrimSpace(b))
}

// CompareFold orders strings ignoring case, like the *_ci collations.
func CompareFold(a, b string) int {
	c := cases.Fold()
	return strings.Compare(c.String(a), c.String(b))
}

// IntRange is an inclusive range where either bound may be missing.
type IntRange struct {
	Min *int
	Max *int
}

func (r IntRange) IsZero() bool { return r.Min == nil && r.Max == nil }

// Expr renders the bounds against two columns: lowCol >= Min, highCol <= Max.
// For a single column pass it twice.
func (r IntRange) Expr(lowCol, highCol string) exp.Expression {
	var parts []exp.Expression
	if r.Min != nil {
		parts = append(parts, goqu.I(lowCol).Gte(*r.Min))
	}
	if r.Max != nil {
		parts = append(parts, goqu.I(highCol).Lte(*r.Max))
	}
	return goqu.And(parts...)
}

func (r IntRange) Contains(low, high int) bool {
	if r.Min != nil && low < *r.Min {
		return false
	}
	if r.Max != nil && high > *r.Max {
		return false
	}
	return true
}

// Before and After are exclusive.
func Before(t *time.Time, limit time.Time) bool { return t != nil && t.Before(limit) }
func After(t *time.Time, limit time.Time) bool  { return t != nil && t.After(limit) }
