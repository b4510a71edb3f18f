package members

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/query"
	"cartel-backend/internal/storage/memstore"
)

func intp(v int) *int { return &v }

func Test_CreatePerson_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	created, err := svc.CreatePerson(ctx, PersonRequest{
		FirstName: "Alice", Surname: "Doe", Contact: "alice@example.com", Caution: intp(20),
	})
	require.NoError(t, err)

	got, err := svc.GetPerson(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, PersonResponse{
		ID:        created.ID,
		FirstName: "Alice",
		Surname:   "Doe",
		Contact:   "alice@example.com",
		Caution:   20,
	}, *got)
	assert.Zero(t, got.LoanByCartelCount)
	assert.Zero(t, got.LoanToCartelCount)
}

func Test_CreatePerson_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	cases := []PersonRequest{
		{FirstName: "Alice", Surname: "Doe", Caution: intp(-1)},
		{FirstName: " ", Surname: "Doe"},
		{FirstName: "Alice", Surname: ""},
	}
	for i, req := range cases {
		_, err := svc.CreatePerson(ctx, req)
		assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument), "case %d: %v", i, err)
	}

	got, err := svc.CreatePerson(ctx, PersonRequest{FirstName: "Bob", Surname: "Roe"})
	require.NoError(t, err)
	assert.Zero(t, got.Caution)
}

func Test_Person_CountsAndDelete(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewService(st)

	alice, err := svc.CreatePerson(ctx, PersonRequest{FirstName: "Alice", Surname: "Doe"})
	require.NoError(t, err)

	it := library.Item{Barcode: "ISBN1", Kind: library.KindBook, Name: "Dune", Book: &library.BookDetails{}}
	require.NoError(t, st.InsertItem(ctx, &it))
	c := library.Copy{Barcode: "ISBN1", Available: true, Borrowable: true}
	require.NoError(t, st.InsertCopy(ctx, &c))
	loan := library.Loan{Ref: "R1", Kind: library.LoanToCartel, CopyID: &c.ID, PersonID: alice.ID, LoanDate: time.Now().UTC()}
	require.NoError(t, st.InsertLoan(ctx, &loan))

	got, err := svc.GetPerson(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LoanToCartelCount)
	assert.Equal(t, 0, got.LoanByCartelCount)

	assert.True(t, apperr.Is(svc.DeletePerson(ctx, alice.ID), apperr.CodeConflict))

	require.NoError(t, st.DeleteLoan(ctx, library.LoanToCartel, loan.ID))
	require.NoError(t, svc.DeletePerson(ctx, alice.ID))
	_, err = svc.GetPerson(ctx, alice.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func Test_UpdatePerson(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())
	p, err := svc.CreatePerson(ctx, PersonRequest{FirstName: "Alice", Surname: "Doe", Caution: intp(20)})
	require.NoError(t, err)

	got, err := svc.UpdatePerson(ctx, p.ID, PersonRequest{FirstName: "Alice", Surname: "Martin", Contact: "0600000000"})
	require.NoError(t, err)
	assert.Equal(t, "Martin", got.Surname)
	assert.Equal(t, "0600000000", got.Contact)
	assert.Zero(t, got.Caution)

	_, err = svc.UpdatePerson(ctx, 99, PersonRequest{FirstName: "x", Surname: "y"})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func Test_SearchPersons_MatchesFirstNameOrSurname(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())
	for _, req := range []PersonRequest{
		{FirstName: "Alice", Surname: "Doe"},
		{FirstName: "Bob", Surname: "Alison"},
		{FirstName: "Carol", Surname: "Smith"},
	} {
		_, err := svc.CreatePerson(ctx, req)
		require.NoError(t, err)
	}

	res, err := svc.SearchPersons(ctx, library.PersonFilter{Name: strPtr("ali")}, query.DefaultPage(), library.DefaultPersonSort)
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Total)
	// surname 昇順
	assert.Equal(t, "Alison", res.Items[0].Surname)
	assert.Equal(t, "Doe", res.Items[1].Surname)

	all, err := svc.SearchPersons(ctx, library.PersonFilter{}, query.DefaultPage(), query.Sort{Field: "id", Desc: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)
	assert.Equal(t, "Carol", all.Items[0].FirstName)

	_, err = svc.SearchPersons(ctx, library.PersonFilter{}, query.DefaultPage(), query.Sort{Field: "age"})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func Test_Handler_Persons(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, r, NewService(memstore.New()))

	do := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/persons", `{"firstname":"Alice","surname":"Doe","contact":"alice@example.com","caution":20}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/api/v1/persons/1", w.Header().Get("Location"))

	// caution が数値でなければ 400
	w = do(http.MethodPost, "/persons", `{"firstname":"Bob","surname":"Roe","caution":"twenty"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body apperr.ErrDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperr.CodeInvalidArgument, body.Error.Code)

	w = do(http.MethodGet, "/persons?name=DOE", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = do(http.MethodGet, "/persons/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"loan_by_cartel_count":0`)

	w = do(http.MethodGet, "/persons?size=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(http.MethodDelete, "/persons/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(http.MethodGet, "/persons/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func strPtr(v string) *string { return &v }
