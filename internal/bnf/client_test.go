package bnf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const duneNotice = `<?xml version="1.0" encoding="UTF-8"?>
<srw:searchRetrieveResponse xmlns:srw="http://www.loc.gov/zing/srw/">
  <srw:version>1.2</srw:version>
  <srw:numberOfRecords>1</srw:numberOfRecords>
  <srw:records>
    <srw:record>
      <srw:recordSchema>dc</srw:recordSchema>
      <srw:recordPacking>xml</srw:recordPacking>
      <srw:recordData>
        <oai_dc:dc xmlns:oai_dc="http://www.openarchives.org/OAI/2.0/oai_dc/" xmlns:dc="http://purl.org/dc/elements/1.1/">
          <dc:identifier>https://catalogue.bnf.fr/ark:/12148/cb42668893z</dc:identifier>
          <dc:title>Dune / Frank Herbert ; traduit de l'américain par Michel Demuth</dc:title>
          <dc:creator>Herbert, Frank (1920-1986). Auteur du texte</dc:creator>
          <dc:contributor>Demuth, Michel (1939-2006). Traducteur</dc:contributor>
          <dc:contributor>Manchu (1956-....). Illustrateur</dc:contributor>
          <dc:publisher>Pocket (Paris)</dc:publisher>
          <dc:date>DL 2012</dc:date>
          <dc:description>Sur Arrakis,   la planète des sables</dc:description>
          <dc:language>fre</dc:language>
          <dc:identifier>ISBN 9782266233200</dc:identifier>
        </oai_dc:dc>
      </srw:recordData>
    </srw:record>
  </srw:records>
</srw:searchRetrieveResponse>`

const emptyAnswer = `<?xml version="1.0" encoding="UTF-8"?>
<srw:searchRetrieveResponse xmlns:srw="http://www.loc.gov/zing/srw/">
  <srw:version>1.2</srw:version>
  <srw:numberOfRecords>0</srw:numberOfRecords>
  <srw:records/>
</srw:searchRetrieveResponse>`

func serve(t *testing.T, status int, body string) (*Client, *string) {
	t.Helper()
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, time.Second), &gotQuery
}

func Test_LookupISBN_ParsesDublinCore(t *testing.T) {
	c, gotQuery := serve(t, http.StatusOK, duneNotice)

	rec, err := c.LookupISBN(context.Background(), " 9782266233200 ")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, `bib.isbn all "9782266233200"`, *gotQuery)
	assert.Equal(t, "Dune", rec.Title)
	assert.Equal(t, []Name{{FirstName: "Frank", Surname: "Herbert"}}, rec.Authors)
	assert.Equal(t, []Name{{Surname: "Manchu"}}, rec.Illustrators)
	assert.Equal(t, "Pocket", rec.Publisher)
	require.NotNil(t, rec.Year)
	assert.Equal(t, 2012, *rec.Year)
	assert.Equal(t, "fre", rec.Language)
	assert.Equal(t, "Sur Arrakis, la planète des sables", rec.Description)
	assert.Equal(t, coverURL+"ark:/12148/cb42668893z", rec.ImageURL)
}

func Test_LookupISBN_NoRecord(t *testing.T) {
	c, _ := serve(t, http.StatusOK, emptyAnswer)

	rec, err := c.LookupISBN(context.Background(), "0000000000")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func Test_LookupISBN_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusServiceUnavailable, "maintenance"},
		{"not xml", http.StatusOK, "{\"oops\":true}"},
		{"diagnostic", http.StatusOK, `<searchRetrieveResponse><numberOfRecords>0</numberOfRecords>
			<diagnostics><diagnostic><message>Query syntax error</message></diagnostic></diagnostics>
			</searchRetrieveResponse>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := serve(t, tc.status, tc.body)
			rec, err := c.LookupISBN(context.Background(), "9782266233200")
			assert.Error(t, err)
			assert.Nil(t, rec)
		})
	}
}

func Test_LookupISBN_QuotesOnlyISBNCharacters(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`978-2-266-23320-0`, `bib.isbn all "978-2-266-23320-0"`},
		{`207036002x`, `bib.isbn all "207036002X"`},
		{`9782266233200" or dc.title all "dune`, `bib.isbn all "9782266233200"`},
	}
	for _, tc := range cases {
		c, gotQuery := serve(t, http.StatusOK, emptyAnswer)
		_, err := c.LookupISBN(context.Background(), tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, *gotQuery)
	}

	// 数字がなければ問い合わせない
	c, gotQuery := serve(t, http.StatusOK, duneNotice)
	rec, err := c.LookupISBN(context.Background(), `"G-CATAN"`)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, *gotQuery)
}

func Test_LookupISBN_OversizedBody(t *testing.T) {
	body := `<searchRetrieveResponse><numberOfRecords>1</numberOfRecords><!--` + strings.Repeat("x", maxBody) + `--></searchRetrieveResponse>`
	c, _ := serve(t, http.StatusOK, body)
	rec, err := c.LookupISBN(context.Background(), "9782266233200")
	assert.Error(t, err)
	assert.Nil(t, rec)
}

func Test_LookupISBN_EmptyISBN(t *testing.T) {
	_, err := New("", 0).LookupISBN(context.Background(), "  ")
	assert.Error(t, err)
}

func Test_ParseCreator(t *testing.T) {
	cases := []struct {
		raw      string
		want     Name
		wantRole role
	}{
		{"Herbert, Frank (1920-1986). Auteur du texte", Name{FirstName: "Frank", Surname: "Herbert"}, roleAuthor},
		{"Le Guin, Ursula K.", Name{FirstName: "Ursula K.", Surname: "Le Guin"}, roleAuthor},
		{"Moebius (1938-2012). Illustrateur", Name{Surname: "Moebius"}, roleIllustrator},
		{"Demuth, Michel. Traducteur", Name{FirstName: "Michel", Surname: "Demuth"}, roleOther},
	}
	for _, tc := range cases {
		got, r := parseCreator(tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
		assert.Equal(t, tc.wantRole, r, tc.raw)
	}
}
