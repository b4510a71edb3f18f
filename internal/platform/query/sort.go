package query

import (
	"slices"
	"sort"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"cartel-backend/internal/platform/apperr"
)

type Sort struct {
	Field string
	Desc  bool
}

// SortField binds an API sort name to a column and an in-memory comparator.
type SortField[T any] struct {
	Column  string
	Compare func(a, b T) int
}

// Sorts is the whitelist of sortable fields of one entity.
type Sorts[T any] map[string]SortField[T]

// Parse validates field/order; empty values take def.
func (s Sorts[T]) Parse(field, order string, def Sort) (Sort, error) {
	out := def
	if f := strings.TrimSpace(field); f != "" {
		if _, ok := s[f]; !ok {
			return Sort{}, apperr.ErrInvalid("unknown sort field: " + f + " (allowed: " + strings.Join(s.Fields(), ", ") + ")")
		}
		out.Field = f
	}
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "":
	case "asc":
		out.Desc = false
	case "desc":
		out.Desc = true
	default:
		return Sort{}, apperr.ErrInvalid("order must be asc or desc")
	}
	return out, nil
}

func (s Sorts[T]) Fields() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Order renders the ORDER BY term. The field must have gone through Parse.
func (s Sorts[T]) Order(srt Sort) exp.OrderedExpression {
	col := goqu.I(s[srt.Field].Column)
	if srt.Desc {
		return col.Desc()
	}
	return col.Asc()
}

func (s Sorts[T]) Apply(items []T, srt Sort) {
	f, ok := s[srt.Field]
	if !ok {
		return
	}
	slices.SortStableFunc(items, func(a, b T) int {
		if srt.Desc {
			return f.Compare(b, a)
		}
		return f.Compare(a, b)
	})
}
