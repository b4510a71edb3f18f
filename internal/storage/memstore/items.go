package memstore

import (
	"context"
	"slices"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/query"
)

// ===== items =====

func (s *Store) InsertItem(ctx context.Context, it *library.Item) error {
	defer s.lock()()
	d := s.d()
	if _, ok := d.items[it.Barcode]; ok {
		return apperr.ErrDuplicate("item", it.Barcode)
	}
	if it.Game != nil && it.Game.BaseGame != "" {
		if _, ok := d.items[it.Game.BaseGame]; !ok {
			return apperr.ErrInvalid("unknown base game: " + it.Game.BaseGame)
		}
	}
	now := s.now()
	it.CreatedAt, it.UpdatedAt = now, now
	d.items[it.Barcode] = cloneItem(*it)
	return nil
}

func (s *Store) GetItem(ctx context.Context, barcode string) (*library.Item, error) {
	defer s.lock()()
	it, ok := s.d().items[barcode]
	if !ok {
		return nil, apperr.ErrNotFound("item", barcode)
	}
	out := cloneItem(it)
	return &out, nil
}

func (s *Store) GetItemView(ctx context.Context, barcode string) (*library.ItemView, error) {
	defer s.lock()()
	it, ok := s.d().items[barcode]
	if !ok {
		return nil, apperr.ErrNotFound("item", barcode)
	}
	v := s.itemView(it)
	return &v, nil
}

func (s *Store) UpdateItem(ctx context.Context, it *library.Item) error {
	defer s.lock()()
	d := s.d()
	cur, ok := d.items[it.Barcode]
	if !ok {
		return apperr.ErrNotFound("item", it.Barcode)
	}
	it.CreatedAt = cur.CreatedAt
	it.UpdatedAt = s.now()
	d.items[it.Barcode] = cloneItem(*it)
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, barcode string) error {
	defer s.lock()()
	d := s.d()
	if _, ok := d.items[barcode]; !ok {
		return apperr.ErrNotFound("item", barcode)
	}
	for _, c := range d.copies {
		if c.Barcode == barcode {
			return apperr.ErrConflict("item still has copies: " + barcode)
		}
	}
	for _, it := range d.items {
		if it.Game != nil && it.Game.BaseGame == barcode {
			return apperr.ErrConflict("item is the base game of extension " + it.Barcode)
		}
	}
	delete(d.items, barcode)
	delete(d.links, barcode)
	delete(d.exchanges, barcode)
	return nil
}

func (s *Store) SearchItems(ctx context.Context, spec *query.Spec[library.ItemView], p query.Page, srt query.Sort) ([]library.ItemView, int64, error) {
	defer s.lock()()
	all := make([]library.ItemView, 0, len(s.d().items))
	for _, it := range s.d().items {
		v := s.itemView(it)
		if spec.Matches(v) {
			all = append(all, v)
		}
	}
	// map の順序に依存しないよう barcode で下地を揃える
	slices.SortFunc(all, func(a, b library.ItemView) int { return query.CompareFold(a.Barcode, b.Barcode) })
	library.ItemSorts.Apply(all, srt)
	return query.Slice(all, p), int64(len(all)), nil
}

func (s *Store) itemView(it library.Item) library.ItemView {
	d := s.d()
	v := library.ItemView{Item: cloneItem(it)}
	n := 0
	for _, c := range d.copies {
		if c.Barcode == it.Barcode {
			n++
		}
	}
	v.CopyCount = library.CopyCount(n)
	for _, id := range d.links[it.Barcode] {
		if c, ok := d.contributors[id]; ok {
			v.Contributors = append(v.Contributors, c)
		}
	}
	if ex, ok := d.exchanges[it.Barcode]; ok {
		v.Exchange = &ex
	}
	return v
}

// ===== exchange =====

func (s *Store) GetExchange(ctx context.Context, barcode string) (*library.Exchange, error) {
	defer s.lock()()
	ex, ok := s.d().exchanges[barcode]
	if !ok {
		return nil, apperr.ErrNotFound("exchange", barcode)
	}
	return &ex, nil
}

func (s *Store) UpsertExchange(ctx context.Context, ex *library.Exchange) error {
	defer s.lock()()
	d := s.d()
	if _, ok := d.items[ex.Barcode]; !ok {
		return apperr.ErrNotFound("item", ex.Barcode)
	}
	d.exchanges[ex.Barcode] = *ex
	return nil
}

func (s *Store) DeleteExchange(ctx context.Context, barcode string) error {
	defer s.lock()()
	d := s.d()
	if _, ok := d.exchanges[barcode]; !ok {
		return apperr.ErrNotFound("exchange", barcode)
	}
	delete(d.exchanges, barcode)
	return nil
}
