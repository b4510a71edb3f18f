package library

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"cartel-backend/internal/platform/query"
)

// SQL 側のエイリアス: items i / books b / games g / loans l / persons p / copies c

// ===== items =====

type ItemFilter struct {
	Title                *string
	Kind                 *ItemKind
	Format               *string
	Category             *string
	Publisher            *string
	Series               *string
	AuthorFirstName      *string
	AuthorSurname        *string
	IllustratorFirstName *string
	IllustratorSurname   *string
	Genre                *string
	Players              query.IntRange
	PlayTime             query.IntRange
}

func (f ItemFilter) Spec() *query.Spec[ItemView] {
	s := query.New[ItemView]()
	if v := f.Title; v != nil {
		needle := *v
		s.And(query.Predicate[ItemView]{
			Name:  "title",
			Expr:  query.ContainsExpr(goqu.I("i.name"), needle),
			Match: func(it ItemView) bool { return query.ContainsFold(it.Name, needle) },
		})
	}
	if v := f.Kind; v != nil {
		kind := *v
		s.And(query.Predicate[ItemView]{
			Name:  "kind",
			Expr:  goqu.I("i.kind").Eq(string(kind)),
			Match: func(it ItemView) bool { return it.Kind == kind },
		})
	}
	if v := f.Format; v != nil {
		format := *v
		s.And(query.Predicate[ItemView]{
			Name: "format",
			Expr: goqu.Func("LOWER", goqu.I("b.format")).Eq(strings.ToLower(format)),
			Match: func(it ItemView) bool {
				return it.Book != nil && query.EqualFold(it.Book.Format, format)
			},
		})
	}
	if v := f.Category; v != nil {
		category := *v
		s.And(query.Predicate[ItemView]{
			Name: "category",
			Expr: goqu.L("(LOWER(b.category) = ? OR JSON_CONTAINS(LOWER(g.categories), JSON_QUOTE(?)))",
				strings.ToLower(category), strings.ToLower(category)),
			Match: func(it ItemView) bool {
				if it.Book != nil && query.EqualFold(it.Book.Category, category) {
					return true
				}
				return it.Game != nil && slices.ContainsFunc(it.Game.Categories, func(c string) bool {
					return query.EqualFold(c, category)
				})
			},
		})
	}
	addContributorPredicate(s, "publisher", ContributorPublisher, "name", f.Publisher)
	addContributorPredicate(s, "series", ContributorSeries, "name", f.Series)
	addContributorPredicate(s, "genre", ContributorGenre, "name", f.Genre)
	addContributorPredicate(s, "author_firstname", ContributorAuthor, "firstname", f.AuthorFirstName)
	addContributorPredicate(s, "author_surname", ContributorAuthor, "surname", f.AuthorSurname)
	addContributorPredicate(s, "illustrator_firstname", ContributorIllustrator, "firstname", f.IllustratorFirstName)
	addContributorPredicate(s, "illustrator_surname", ContributorIllustrator, "surname", f.IllustratorSurname)

	if !f.Players.IsZero() {
		r := f.Players
		s.And(query.Predicate[ItemView]{
			Name: "players",
			Expr: r.Expr("g.min_players", "g.max_players"),
			Match: func(it ItemView) bool {
				return it.Game != nil && r.Contains(it.Game.MinPlayers, it.Game.MaxPlayers)
			},
		})
	}
	if !f.PlayTime.IsZero() {
		r := f.PlayTime
		s.And(query.Predicate[ItemView]{
			Name: "playtime",
			Expr: r.Expr("g.min_playtime", "g.max_playtime"),
			Match: func(it ItemView) bool {
				return it.Game != nil && r.Contains(it.Game.MinPlayTime, it.Game.MaxPlayTime)
			},
		})
	}
	return s
}

// contributor 系は item_contributors 経由のサブクエリ
type itemSpec = query.Spec[ItemView]

func addContributorPredicate(s *itemSpec, name string, kind ContributorKind, column string, v *string) {
	if v == nil {
		return
	}
	needle := *v
	pattern := query.LikePattern(needle)
	s.And(query.Predicate[ItemView]{
		Name: name,
		Expr: goqu.L("i.barcode IN (SELECT ic.barcode FROM item_contributors ic"+
			" JOIN contributors ct ON ct.id = ic.contributor_id"+
			" WHERE ct.kind = ? AND LOWER(ct."+column+") LIKE ?)", string(kind), pattern),
		Match: func(it ItemView) bool {
			for _, c := range it.Contributors {
				if c.Kind != kind {
					continue
				}
				var field string
				switch column {
				case "firstname":
					field = c.FirstName
				case "surname":
					field = c.Surname
				default:
					field = c.Name
				}
				if query.ContainsFold(field, needle) {
					return true
				}
			}
			return false
		},
	})
}

var ItemSorts = query.Sorts[ItemView]{
	"name":      {Column: "i.name", Compare: func(a, b ItemView) int { return query.CompareFold(a.Name, b.Name) }},
	"barcode":   {Column: "i.barcode", Compare: func(a, b ItemView) int { return query.CompareFold(a.Barcode, b.Barcode) }},
	"kind":      {Column: "i.kind", Compare: func(a, b ItemView) int { return strings.Compare(string(a.Kind), string(b.Kind)) }},
	"year":      {Column: "i.year", Compare: func(a, b ItemView) int { return compareIntPtr(a.Year, b.Year) }},
	"createdAt": {Column: "i.created_at", Compare: func(a, b ItemView) int { return a.CreatedAt.Compare(b.CreatedAt) }},
}

var DefaultItemSort = query.Sort{Field: "name"}

// ===== loans =====

type LoanFilter struct {
	Item        *string
	FirstName   *string
	Surname     *string
	PersonID    *int64
	StartBefore *time.Time
	StartAfter  *time.Time
	EndBefore   *time.Time
	EndAfter    *time.Time
	Active      *bool
}

func (f LoanFilter) Spec() *query.Spec[LoanView] {
	s := query.New[LoanView]()
	if v := f.Item; v != nil {
		needle := *v
		s.And(query.Predicate[LoanView]{
			Name:  "item",
			Expr:  query.ContainsExpr(goqu.L("COALESCE(i.name, l.item_name)"), needle),
			Match: func(l LoanView) bool { return query.ContainsFold(l.ItemName, needle) },
		})
	}
	if v := f.FirstName; v != nil {
		needle := *v
		s.And(query.Predicate[LoanView]{
			Name:  "firstname",
			Expr:  query.ContainsExpr(goqu.I("p.firstname"), needle),
			Match: func(l LoanView) bool { return query.ContainsFold(l.FirstName, needle) },
		})
	}
	if v := f.Surname; v != nil {
		needle := *v
		s.And(query.Predicate[LoanView]{
			Name:  "surname",
			Expr:  query.ContainsExpr(goqu.I("p.surname"), needle),
			Match: func(l LoanView) bool { return query.ContainsFold(l.Surname, needle) },
		})
	}
	if v := f.PersonID; v != nil {
		id := *v
		s.And(query.Predicate[LoanView]{
			Name:  "person",
			Expr:  goqu.I("l.person_id").Eq(id),
			Match: func(l LoanView) bool { return l.PersonID == id },
		})
	}
	if v := f.StartBefore; v != nil {
		t := *v
		s.And(query.Predicate[LoanView]{
			Name:  "start_before",
			Expr:  goqu.I("l.loan_date").Lt(t),
			Match: func(l LoanView) bool { return query.Before(&l.LoanDate, t) },
		})
	}
	if v := f.StartAfter; v != nil {
		t := *v
		s.And(query.Predicate[LoanView]{
			Name:  "start_after",
			Expr:  goqu.I("l.loan_date").Gt(t),
			Match: func(l LoanView) bool { return query.After(&l.LoanDate, t) },
		})
	}
	if v := f.EndBefore; v != nil {
		t := *v
		s.And(query.Predicate[LoanView]{
			Name:  "end_before",
			Expr:  goqu.I("l.end_date").Lt(t),
			Match: func(l LoanView) bool { return query.Before(l.EndDate, t) },
		})
	}
	if v := f.EndAfter; v != nil {
		t := *v
		s.And(query.Predicate[LoanView]{
			Name:  "end_after",
			Expr:  goqu.I("l.end_date").Gt(t),
			Match: func(l LoanView) bool { return query.After(l.EndDate, t) },
		})
	}
	if v := f.Active; v != nil {
		active := *v
		var e exp.Expression = goqu.I("l.end_date").IsNotNull()
		if active {
			e = goqu.I("l.end_date").IsNull()
		}
		s.And(query.Predicate[LoanView]{
			Name:  "active",
			Expr:  e,
			Match: func(l LoanView) bool { return l.Active() == active },
		})
	}
	return s
}

var LoanSorts = query.Sorts[LoanView]{
	"loanDate": {Column: "l.loan_date", Compare: func(a, b LoanView) int { return a.LoanDate.Compare(b.LoanDate) }},
	"endDate":  {Column: "l.end_date", Compare: func(a, b LoanView) int { return compareTimePtr(a.EndDate, b.EndDate) }},
	"id":       {Column: "l.id", Compare: func(a, b LoanView) int { return cmp.Compare(a.ID, b.ID) }},
	"itemName": {Column: "item_name", Compare: func(a, b LoanView) int { return query.CompareFold(a.ItemName, b.ItemName) }},
	"surname":  {Column: "p.surname", Compare: func(a, b LoanView) int { return query.CompareFold(a.Surname, b.Surname) }},
}

var DefaultLoanSort = query.Sort{Field: "loanDate", Desc: true}

// ===== persons =====

type PersonFilter struct {
	// 名 または 姓 に部分一致
	Name *string
}

func (f PersonFilter) Spec() *query.Spec[PersonView] {
	s := query.New[PersonView]()
	if v := f.Name; v != nil {
		needle := *v
		s.And(query.Predicate[PersonView]{
			Name: "name",
			Expr: goqu.Or(
				query.ContainsExpr(goqu.I("p.firstname"), needle),
				query.ContainsExpr(goqu.I("p.surname"), needle),
			),
			Match: func(p PersonView) bool {
				return query.ContainsFold(p.FirstName, needle) || query.ContainsFold(p.Surname, needle)
			},
		})
	}
	return s
}

var PersonSorts = query.Sorts[PersonView]{
	"surname":   {Column: "p.surname", Compare: func(a, b PersonView) int { return query.CompareFold(a.Surname, b.Surname) }},
	"firstname": {Column: "p.firstname", Compare: func(a, b PersonView) int { return query.CompareFold(a.FirstName, b.FirstName) }},
	"id":        {Column: "p.id", Compare: func(a, b PersonView) int { return cmp.Compare(a.ID, b.ID) }},
	"caution":   {Column: "p.caution", Compare: func(a, b PersonView) int { return cmp.Compare(a.Caution, b.Caution) }},
}

var DefaultPersonSort = query.Sort{Field: "surname"}

// NULL は先頭（MySQL の ASC と同じ）
func compareIntPtr(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}

func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}
