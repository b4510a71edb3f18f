package query_test

import (
	"strings"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/query"
)

type row struct {
	Name    string
	Players int
}

func nameContains(v string) query.Predicate[row] {
	return query.Predicate[row]{
		Name:  "name",
		Expr:  query.ContainsExpr(goqu.I("name"), v),
		Match: func(r row) bool { return query.ContainsFold(r.Name, v) },
	}
}

func Test_Spec_EmptyMatchesEverything(t *testing.T) {
	rows := []row{{Name: "Dune"}, {Name: "Carcassonne"}}

	var nilSpec *query.Spec[row]
	assert.Len(t, nilSpec.Filter(rows), 2)
	assert.Len(t, query.New[row]().Filter(rows), 2)
	assert.Empty(t, query.New[row]().Expressions())

	sql, _, err := goqu.Dialect("mysql").From("items").Where(query.New[row]().Expressions()...).ToSQL()
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE")
}

func Test_Spec_PredicatesAreAnded(t *testing.T) {
	rows := []row{
		{Name: "Dune", Players: 4},
		{Name: "Dune Imperium", Players: 2},
		{Name: "Azul", Players: 4},
	}
	four := 4
	players := query.IntRange{Min: &four}
	spec := query.New[row]().
		And(nameContains("dun")).
		And(query.Predicate[row]{
			Name:  "players",
			Expr:  players.Expr("players", "players"),
			Match: func(r row) bool { return players.Contains(r.Players, r.Players) },
		})

	got := spec.Filter(rows)

	require.Len(t, got, 1)
	assert.Equal(t, "Dune", got[0].Name)
	assert.Equal(t, []string{"name", "players"}, spec.Names())

	sql, _, err := goqu.Dialect("mysql").From("items").Where(spec.Expressions()...).ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "LOWER(`name`) LIKE '%dun%'")
	assert.Contains(t, sql, "`players` >= 4")
}

func Test_ContainsFold_IsCaseInsensitive(t *testing.T) {
	assert.True(t, query.ContainsFold("Dune", "dun"))
	assert.True(t, query.ContainsFold("Éléonore", "ÉLÉ"))
	assert.True(t, query.ContainsFold("anything", ""))
	assert.False(t, query.ContainsFold("Dune", "dunes"))
}

func Test_CompareFold_IgnoresCase(t *testing.T) {
	assert.Zero(t, query.CompareFold("Martin", "martin"))
	assert.Negative(t, query.CompareFold("de la Tour", "Dupont"))
	assert.Positive(t, query.CompareFold("zola", "Hugo"))
}

func Test_ContainsExpr_EscapesWildcards(t *testing.T) {
	sql, args, err := goqu.Dialect("mysql").From("items").Prepared(true).
		Where(query.ContainsExpr(goqu.I("name"), "50%_Off")).ToSQL()
	require.NoError(t, err)

	assert.Contains(t, sql, "LOWER(`name`) LIKE ?")
	require.Len(t, args, 1)
	assert.Equal(t, `%50\%\_off%`, args[0])
}

func Test_IntRange_Bounds(t *testing.T) {
	two, five := 2, 5
	tests := []struct {
		name      string
		r         query.IntRange
		low, high int
		want      bool
	}{
		{name: "no_bounds", r: query.IntRange{}, low: 1, high: 99, want: true},
		{name: "min_inclusive", r: query.IntRange{Min: &two}, low: 2, high: 3, want: true},
		{name: "below_min", r: query.IntRange{Min: &two}, low: 1, high: 3, want: false},
		{name: "max_inclusive", r: query.IntRange{Max: &five}, low: 1, high: 5, want: true},
		{name: "above_max", r: query.IntRange{Max: &five}, low: 1, high: 6, want: false},
		{name: "both", r: query.IntRange{Min: &two, Max: &five}, low: 2, high: 5, want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.r.Contains(tc.low, tc.high))
		})
	}
	assert.True(t, query.IntRange{}.IsZero())
}

func Test_BeforeAfter_AreExclusive(t *testing.T) {
	limit := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	same := limit
	earlier := limit.Add(-time.Hour)

	assert.False(t, query.Before(&same, limit))
	assert.False(t, query.After(&same, limit))
	assert.True(t, query.Before(&earlier, limit))
	assert.False(t, query.Before(nil, limit))
}

func Test_ParsePage_Validation(t *testing.T) {
	tests := []struct {
		name       string
		number     string
		size       string
		wantErr    bool
		wantNumber int
		wantSize   int
	}{
		{name: "defaults", wantNumber: 0, wantSize: query.DefaultPageSize},
		{name: "explicit", number: "2", size: "10", wantNumber: 2, wantSize: 10},
		{name: "negative_page", number: "-1", wantErr: true},
		{name: "zero_size", size: "0", wantErr: true},
		{name: "huge_size", size: "1000", wantErr: true},
		{name: "not_a_number", number: "two", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := query.ParsePage(tc.number, tc.size)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantNumber, p.Number)
			assert.Equal(t, tc.wantSize, p.Size)
		})
	}
}

func Test_Slice_And_Result(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}
	p := query.Page{Number: 1, Size: 2}

	assert.Equal(t, []int{3, 4}, query.Slice(all, p))
	assert.Equal(t, []int{5}, query.Slice(all, query.Page{Number: 2, Size: 2}))
	assert.Empty(t, query.Slice(all, query.Page{Number: 9, Size: 2}))

	res := query.NewResult([]int{3, 4}, 5, p)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 1, res.Page)

	empty := query.NewResult[int](nil, 0, p)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)
}

func Test_Sorts_ParseAndApply(t *testing.T) {
	sorts := query.Sorts[row]{
		"name": {Column: "name", Compare: func(a, b row) int { return strings.Compare(a.Name, b.Name) }},
	}
	def := query.Sort{Field: "name"}

	s, err := sorts.Parse("", "", def)
	require.NoError(t, err)
	assert.Equal(t, def, s)

	s, err = sorts.Parse("name", "DESC", def)
	require.NoError(t, err)
	assert.True(t, s.Desc)

	_, err = sorts.Parse("price", "asc", def)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	_, err = sorts.Parse("name", "sideways", def)
	require.Error(t, err)

	rows := []row{{Name: "b"}, {Name: "a"}, {Name: "c"}}
	sorts.Apply(rows, query.Sort{Field: "name", Desc: true})
	assert.Equal(t, "c", rows[0].Name)
	assert.Equal(t, "a", rows[2].Name)

	sql, _, err := goqu.Dialect("mysql").From("items").Order(sorts.Order(query.Sort{Field: "name"})).ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY `name` ASC")
}
