package contributors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/storage/memstore"
)

func Test_Build(t *testing.T) {
	cases := []struct {
		name                   string
		kind                   library.ContributorKind
		first, surname, single string
		want                   library.Contributor
		wantErr                bool
	}{
		{name: "author full", kind: library.ContributorAuthor, first: " Frank ", surname: "Herbert",
			want: library.Contributor{Kind: library.ContributorAuthor, FirstName: "Frank", Surname: "Herbert", Name: "Frank Herbert"}},
		{name: "author single name", kind: library.ContributorAuthor, single: "Moebius",
			want: library.Contributor{Kind: library.ContributorAuthor, Surname: "Moebius", Name: "Moebius"}},
		{name: "publisher", kind: library.ContributorPublisher, single: " Gallimard ",
			want: library.Contributor{Kind: library.ContributorPublisher, Name: "Gallimard"}},
		{name: "publisher ignores person fields", kind: library.ContributorGenre, first: "x", single: "SF",
			want: library.Contributor{Kind: library.ContributorGenre, Name: "SF"}},
		{name: "empty author", kind: library.ContributorIllustrator, wantErr: true},
		{name: "empty series", kind: library.ContributorSeries, first: "a", wantErr: true},
		{name: "unknown kind", kind: "editor", single: "x", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Build(tc.kind, tc.first, tc.surname, tc.single)
			if tc.wantErr {
				assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_Add_DuplicateIsAnError(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	first, err := svc.Add(ctx, ContributorRequest{Kind: "author", FirstName: "Ursula", Surname: "Le Guin"})
	require.NoError(t, err)
	assert.Equal(t, "Ursula Le Guin", first.Name)

	_, err = svc.Add(ctx, ContributorRequest{Kind: "author", FirstName: "ursula", Surname: "LE GUIN"})
	assert.True(t, apperr.Is(err, apperr.CodeDuplicate), "got %v", err)
}

func Test_FindOrCreate_ReusesExisting(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	a, created, err := svc.FindOrCreate(ctx, ContributorRequest{Kind: "publisher", Name: "Days of Wonder"})
	require.NoError(t, err)
	assert.True(t, created)

	b, created, err := svc.FindOrCreate(ctx, ContributorRequest{Kind: "publisher", Name: "days of wonder"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "Days of Wonder", b.Name)

	list, err := svc.List(ctx, "publisher", "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func Test_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := NewService(st)

	g, err := svc.Add(ctx, ContributorRequest{Kind: "genre", Name: "Scifi"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, ContributorRequest{Kind: "genre", Name: "Fantasy"})
	require.NoError(t, err)

	up, err := svc.Update(ctx, g.ID, UpdateContributorRequest{Name: "Science fiction"})
	require.NoError(t, err)
	assert.Equal(t, "genre", up.Kind)
	assert.Equal(t, "Science fiction", up.Name)

	_, err = svc.Update(ctx, g.ID, UpdateContributorRequest{Name: "FANTASY"})
	assert.True(t, apperr.Is(err, apperr.CodeDuplicate))

	// item に紐づいている間は消せない
	it := library.Item{Barcode: "B1", Kind: library.KindBook, Name: "Dune", Book: &library.BookDetails{}}
	require.NoError(t, st.InsertItem(ctx, &it))
	require.NoError(t, st.LinkContributor(ctx, "B1", g.ID))
	assert.True(t, apperr.Is(svc.Delete(ctx, g.ID), apperr.CodeConflict))

	require.NoError(t, st.UnlinkContributors(ctx, "B1"))
	require.NoError(t, svc.Delete(ctx, g.ID))
	_, err = svc.Get(ctx, g.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func Test_List_Filters(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())
	for _, req := range []ContributorRequest{
		{Kind: "author", FirstName: "Frank", Surname: "Herbert"},
		{Kind: "author", FirstName: "Brian", Surname: "Herbert"},
		{Kind: "author", FirstName: "Dan", Surname: "Simmons"},
		{Kind: "series", Name: "Herbert's Dune"},
	} {
		_, err := svc.Add(ctx, req)
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, "author", "herb")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Brian Herbert", got[0].Name)

	got, err = svc.List(ctx, "", "herb")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = svc.List(ctx, "editor", "")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func Test_Handler_AddThenDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, r, NewService(memstore.New()))

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post("/contributors", `{"kind":"publisher","name":"Asmodee"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/api/v1/contributors/1", w.Header().Get("Location"))

	w = post("/contributors", `{"kind":"publisher","name":"ASMODEE"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"DUPLICATE"`)

	w = post("/contributors/find-or-create", `{"kind":"publisher","name":"asmodee"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = post("/contributors", `{"name":"no kind"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
