package query

import (
	"strconv"
	"strings"

	"cartel-backend/internal/platform/apperr"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Page is zero-based.
type Page struct {
	Number int
	Size   int
}

func DefaultPage() Page { return Page{Number: 0, Size: DefaultPageSize} }

// ParsePage reads ?page=&size= values. Empty strings fall back to defaults,
// anything non-numeric or out of range is rejected.
func ParsePage(number, size string) (Page, error) {
	p := DefaultPage()
	if s := strings.TrimSpace(number); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Page{}, apperr.ErrInvalid("page must be an integer")
		}
		p.Number = n
	}
	if s := strings.TrimSpace(size); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Page{}, apperr.ErrInvalid("size must be an integer")
		}
		p.Size = n
	}
	return p, p.Validate()
}

func (p Page) Validate() error {
	if p.Number < 0 {
		return apperr.ErrInvalid("page must be >= 0")
	}
	if p.Size <= 0 || p.Size > MaxPageSize {
		return apperr.ErrInvalid("size must be between 1 and " + strconv.Itoa(MaxPageSize))
	}
	return nil
}

func (p Page) Offset() int { return p.Number * p.Size }
func (p Page) Limit() int  { return p.Size }

// Slice cuts the page out of an already filtered and sorted list.
func Slice[T any](all []T, p Page) []T {
	start := p.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + p.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

type Result[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalPages int   `json:"total_pages"`
}

func NewResult[T any](items []T, total int64, p Page) Result[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Size > 0 {
		pages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return Result[T]{Items: items, Total: total, Page: p.Number, Size: p.Size, TotalPages: pages}
}

// Map converts the items of a result, keeping the paging fields.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	out := make([]U, 0, len(r.Items))
	for _, v := range r.Items {
		out = append(out, fn(v))
	}
	return Result[U]{Items: out, Total: r.Total, Page: r.Page, Size: r.Size, TotalPages: r.TotalPages}
}
