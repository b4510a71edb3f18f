package mysqlstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/query"
)

func ptr[T any](v T) *T { return &v }

func Test_MapErr_TranslatesDriverErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code apperr.Code
	}{
		{"duplicate key", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'items.PRIMARY'"}, apperr.CodeDuplicate},
		{"open copy key", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '7' for key 'loans.uq_loans_open_copy'"}, apperr.CodeConflict},
		{"still referenced", &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}, apperr.CodeConflict},
		{"missing parent", &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}, apperr.CodeInvalidArgument},
		{"check constraint", &mysql.MySQLError{Number: 3819, Message: "Check constraint 'chk_loans_dates' is violated."}, apperr.CodeInvalidArgument},
		{"wrapped", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1062}), apperr.CodeDuplicate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapErr(tc.err, "item", "ISBN1")
			assert.True(t, apperr.Is(got, tc.code), "got %v", got)
		})
	}
}

func Test_MapErr_PassesOtherErrorsThrough(t *testing.T) {
	plain := errors.New("connection reset")
	assert.Same(t, plain, mapErr(plain, "item", "x"))
	assert.NoError(t, mapErr(nil, "item", "x"))

	lock := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
	assert.Equal(t, error(lock), mapErr(lock, "loan", 1))
}

func Test_SplitStatements_SkipsBlankParts(t *testing.T) {
	got := splitStatements("CREATE TABLE a (id INT);\n\n  ;CREATE TABLE b (id INT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"}, got)
}

func Test_Schema_DeclaresOpenCopyKey(t *testing.T) {
	stmts := splitStatements(schemaSQL)
	require.NotEmpty(t, stmts)
	assert.Contains(t, schemaSQL, "uq_loans_open_copy")
	assert.Contains(t, schemaSQL, "chk_loans_dates")
}

func Test_ItemSearchSQL_NoFilters(t *testing.T) {
	list, args, count, countArgs, err := itemSearchSQL(library.ItemFilter{}.Spec(), query.DefaultPage(), library.DefaultItemSort)
	require.NoError(t, err)

	// copy_count のサブクエリには WHERE があるので外側だけ見る
	assert.NotContains(t, list, "ON (`g`.`barcode` = `i`.`barcode`) WHERE")
	assert.NotContains(t, count, "WHERE")
	assert.Contains(t, list, "ORDER BY `i`.`name` ASC, `i`.`barcode` ASC")
	assert.Contains(t, list, "LIMIT ?")
	// 0 ページ目は OFFSET を出さない
	assert.NotContains(t, list, "OFFSET")
	require.Len(t, args, 1)
	assert.EqualValues(t, 20, args[0])
	assert.Empty(t, countArgs)
}

func Test_ItemSearchSQL_FiltersAreAnded(t *testing.T) {
	f := library.ItemFilter{
		Title:     ptr("Dun"),
		Publisher: ptr("Laff"),
		Players:   query.IntRange{Min: ptr(2)},
	}
	p := query.Page{Number: 2, Size: 10}
	srt := query.Sort{Field: "year", Desc: true}

	list, args, count, countArgs, err := itemSearchSQL(f.Spec(), p, srt)
	require.NoError(t, err)

	assert.Contains(t, list, "LOWER(`i`.`name`) LIKE ?")
	assert.Contains(t, list, "i.barcode IN (SELECT ic.barcode FROM item_contributors ic")
	assert.Contains(t, list, "`g`.`min_players` >= ?")
	assert.Contains(t, list, " AND ")
	assert.Contains(t, list, "ORDER BY `i`.`year` DESC")

	assert.Contains(t, args, "%dun%")
	assert.Contains(t, args, "publisher")
	assert.Contains(t, args, "%laff%")
	assert.EqualValues(t, 10, args[len(args)-2])
	assert.EqualValues(t, 20, args[len(args)-1])

	// COUNT は LIMIT/OFFSET を持たない
	assert.NotContains(t, count, "LIMIT")
	assert.Len(t, countArgs, len(args)-2)
}

func Test_LoanSearchSQL_AlwaysFiltersKind(t *testing.T) {
	list, args, count, countArgs, err := loanSearchSQL(library.LoanByCartel, library.LoanFilter{}.Spec(), query.DefaultPage(), library.DefaultLoanSort)
	require.NoError(t, err)

	assert.Contains(t, list, "`l`.`kind` = ?")
	assert.Contains(t, list, "ORDER BY `l`.`loan_date` DESC, `l`.`id` DESC")
	assert.Equal(t, "by_cartel", args[0])
	assert.Contains(t, count, "`l`.`kind` = ?")
	assert.Equal(t, []any{"by_cartel"}, countArgs)
}

func Test_LoanSearchSQL_ActiveAndItemFilters(t *testing.T) {
	f := library.LoanFilter{Active: ptr(true), Item: ptr("Dune")}
	list, args, _, _, err := loanSearchSQL(library.LoanToCartel, f.Spec(), query.DefaultPage(), library.DefaultLoanSort)
	require.NoError(t, err)

	assert.Contains(t, list, "`l`.`end_date` IS NULL")
	assert.Contains(t, list, "LOWER(COALESCE(i.name, l.item_name)) LIKE ?")
	assert.Contains(t, args, "%dune%")
	assert.Equal(t, "to_cartel", args[0])

	f = library.LoanFilter{Active: ptr(false)}
	list, _, _, _, err = loanSearchSQL(library.LoanToCartel, f.Spec(), query.DefaultPage(), library.DefaultLoanSort)
	require.NoError(t, err)
	assert.Contains(t, list, "`l`.`end_date` IS NOT NULL")
}

func Test_PersonSearchSQL_NameMatchesEitherColumn(t *testing.T) {
	f := library.PersonFilter{Name: ptr("doe")}
	list, args, _, countArgs, err := personSearchSQL(f.Spec(), query.DefaultPage(), library.DefaultPersonSort)
	require.NoError(t, err)

	assert.Contains(t, list, "((LOWER(`p`.`firstname`) LIKE ?) OR (LOWER(`p`.`surname`) LIKE ?))")
	assert.Contains(t, list, "ORDER BY `p`.`surname` ASC, `p`.`id` ASC")
	assert.Equal(t, []any{"%doe%", "%doe%"}, countArgs)
	assert.Len(t, args, 3)
}
