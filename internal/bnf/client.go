// Package bnf looks books up by ISBN in the Bibliothèque nationale de France
// SRU catalogue (Dublin Core record schema).
package bnf

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://catalogue.bnf.fr/api/SRU"

// SRU の応答は 1 件なので十分
const maxBody = 1 << 20

// Record is the part of a BnF notice the catalog imports.
type Record struct {
	Title        string
	Authors      []Name
	Illustrators []Name
	Publisher    string
	Year         *int
	Language     string
	Description  string
	ImageURL     string
}

type Name struct {
	FirstName string
	Surname   string
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// LookupISBN returns the first notice for isbn, or (nil, nil) when the
// catalogue has none.
func (c *Client) LookupISBN(ctx context.Context, isbn string) (*Record, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("bnf: empty isbn")
	}
	isbn = cleanISBN(isbn)
	if !strings.ContainsAny(isbn, "0123456789") {
		// ISBN になりえないバーコードは照会しない
		return nil, nil
	}
	q := url.Values{}
	q.Set("version", "1.2")
	q.Set("operation", "searchRetrieve")
	q.Set("recordSchema", "dublincore")
	q.Set("maximumRecords", "1")
	q.Set("query", fmt.Sprintf(`bib.isbn all "%s"`, isbn))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("bnf: build request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bnf: request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		// 本文は診断用に先頭だけ
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("bnf: status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var env searchResponse
	if err := xml.NewDecoder(io.LimitReader(res.Body, maxBody)).Decode(&env); err != nil {
		return nil, fmt.Errorf("bnf: decode: %w", err)
	}
	if len(env.Diagnostics) > 0 {
		return nil, fmt.Errorf("bnf: diagnostic: %s", strings.TrimSpace(env.Diagnostics[0]))
	}
	if env.NumberOfRecords == 0 || len(env.Records) == 0 {
		return nil, nil
	}
	rec := env.Records[0].toRecord()
	if rec.Title == "" {
		return nil, fmt.Errorf("bnf: notice without title for %s", isbn)
	}
	return &rec, nil
}

// cleanISBN keeps digits, hyphens and the X check digit so the value can be
// quoted in a CQL query as is.
func cleanISBN(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	return b.String()
}
