// Package memstore keeps the whole library in process memory. It backs the
// service tests and the `driver: memory` configuration.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"cartel-backend/internal/library"
)

type data struct {
	items        map[string]library.Item
	exchanges    map[string]library.Exchange
	contributors map[int64]library.Contributor
	links        map[string][]int64
	copies       map[int64]library.Copy
	persons      map[int64]library.Person
	loans        map[int64]library.Loan

	nextContributor int64
	nextCopy        int64
	nextPerson      int64
	nextLoan        int64
}

func newData() *data {
	return &data{
		items:        map[string]library.Item{},
		exchanges:    map[string]library.Exchange{},
		contributors: map[int64]library.Contributor{},
		links:        map[string][]int64{},
		copies:       map[int64]library.Copy{},
		persons:      map[int64]library.Person{},
		loans:        map[int64]library.Loan{},
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.items {
		c.items[k] = cloneItem(v)
	}
	for k, v := range d.exchanges {
		c.exchanges[k] = v
	}
	for k, v := range d.contributors {
		c.contributors[k] = v
	}
	for k, v := range d.links {
		c.links[k] = slices.Clone(v)
	}
	for k, v := range d.copies {
		c.copies[k] = v
	}
	for k, v := range d.persons {
		c.persons[k] = v
	}
	for k, v := range d.loans {
		c.loans[k] = cloneLoan(v)
	}
	c.nextContributor = d.nextContributor
	c.nextCopy = d.nextCopy
	c.nextPerson = d.nextPerson
	c.nextLoan = d.nextLoan
	return c
}

type Store struct {
	mu   *sync.Mutex
	root **data
	inTx bool
	now  func() time.Time
}

var _ library.Store = (*Store)(nil)

type Option func(*Store)

// WithClock replaces the clock used for created_at / updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	d := newData()
	s := &Store{
		mu:   &sync.Mutex{},
		root: &d,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) d() *data { return *s.root }

// lock is a no-op inside WithTx, which already holds the mutex.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTx serialises transactions behind the store mutex and restores the
// snapshot taken at the start when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(tx library.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d().clone()
	tx := &Store{mu: s.mu, root: s.root, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.root = snapshot
		return err
	}
	return nil
}

func cloneItem(it library.Item) library.Item {
	if it.Year != nil {
		y := *it.Year
		it.Year = &y
	}
	if it.Book != nil {
		b := *it.Book
		it.Book = &b
	}
	if it.Game != nil {
		g := *it.Game
		g.Categories = slices.Clone(g.Categories)
		it.Game = &g
	}
	return it
}

func cloneLoan(l library.Loan) library.Loan {
	if l.CopyID != nil {
		id := *l.CopyID
		l.CopyID = &id
	}
	if l.EndDate != nil {
		t := *l.EndDate
		l.EndDate = &t
	}
	return l
}
