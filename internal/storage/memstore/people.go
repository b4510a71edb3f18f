package memstore

import (
	"cmp"
	"context"
	"slices"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/query"
)

// ===== contributors =====

func (s *Store) InsertContributor(ctx context.Context, c *library.Contributor) error {
	defer s.lock()()
	d := s.d()
	if findContributor(d, c.Kind, c.Name) != nil {
		return apperr.ErrDuplicate(string(c.Kind), c.Name)
	}
	d.nextContributor++
	c.ID = d.nextContributor
	d.contributors[c.ID] = *c
	return nil
}

func (s *Store) GetContributor(ctx context.Context, id int64) (*library.Contributor, error) {
	defer s.lock()()
	c, ok := s.d().contributors[id]
	if !ok {
		return nil, apperr.ErrNotFound("contributor", id)
	}
	return &c, nil
}

func (s *Store) FindContributor(ctx context.Context, kind library.ContributorKind, name string) (*library.Contributor, error) {
	defer s.lock()()
	return findContributor(s.d(), kind, name), nil
}

func findContributor(d *data, kind library.ContributorKind, name string) *library.Contributor {
	for _, c := range d.contributors {
		if c.Kind == kind && query.EqualFold(c.Name, name) {
			out := c
			return &out
		}
	}
	return nil
}

func (s *Store) ListContributors(ctx context.Context, kind library.ContributorKind, name string) ([]library.Contributor, error) {
	defer s.lock()()
	out := []library.Contributor{}
	for _, c := range s.d().contributors {
		if kind != "" && c.Kind != kind {
			continue
		}
		if name != "" && !query.ContainsFold(c.Name, name) {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b library.Contributor) int {
		if n := query.CompareFold(a.Name, b.Name); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) UpdateContributor(ctx context.Context, c *library.Contributor) error {
	defer s.lock()()
	d := s.d()
	if _, ok := d.contributors[c.ID]; !ok {
		return apperr.ErrNotFound("contributor", c.ID)
	}
	if other := findContributor(d, c.Kind, c.Name); other != nil && other.ID != c.ID {
		return apperr.ErrDuplicate(string(c.Kind), c.Name)
	}
	d.contributors[c.ID] = *c
	return nil
}

func (s *Store) DeleteContributor(ctx context.Context, id int64) error {
	defer s.lock()()
	d := s.d()
	if _, ok := d.contributors[id]; !ok {
		return apperr.ErrNotFound("contributor", id)
	}
	for barcode, ids := range d.links {
		if slices.Contains(ids, id) {
			return apperr.ErrConflict("contributor is linked to item " + barcode)
		}
	}
	delete(d.contributors, id)
	return nil
}

func (s *Store) ItemContributors(ctx context.Context, barcode string) ([]library.Contributor, error) {
	defer s.lock()()
	d := s.d()
	out := []library.Contributor{}
	for _, id := range d.links[barcode] {
		if c, ok := d.contributors[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) LinkContributor(ctx context.Context, barcode string, contributorID int64) error {
	defer s.lock()()
	d := s.d()
	if _, ok := d.items[barcode]; !ok {
		return apperr.ErrNotFound("item", barcode)
	}
	if _, ok := d.contributors[contributorID]; !ok {
		return apperr.ErrNotFound("contributor", contributorID)
	}
	if slices.Contains(d.links[barcode], contributorID) {
		return nil
	}
	d.links[barcode] = append(d.links[barcode], contributorID)
	return nil
}

func (s *Store) UnlinkContributors(ctx context.Context, barcode string) error {
	defer s.lock()()
	delete(s.d().links, barcode)
	return nil
}

// ===== persons =====

func (s *Store) InsertPerson(ctx context.Context, p *library.Person) error {
	defer s.lock()()
	d := s.d()
	d.nextPerson++
	p.ID = d.nextPerson
	d.persons[p.ID] = *p
	return nil
}

func (s *Store) GetPerson(ctx context.Context, id int64) (*library.Person, error) {
	defer s.lock()()
	p, ok := s.d().persons[id]
	if !ok {
		return nil, apperr.ErrNotFound("person", id)
	}
	return &p, nil
}

func (s *Store) GetPersonView(ctx context.Context, id int64) (*library.PersonView, error) {
	defer s.lock()()
	p, ok := s.d().persons[id]
	if !ok {
		return nil, apperr.ErrNotFound("person", id)
	}
	v := s.personView(p)
	return &v, nil
}

func (s *Store) UpdatePerson(ctx context.Context, p *library.Person) error {
	defer s.lock()()
	d := s.d()
	if _, ok := d.persons[p.ID]; !ok {
		return apperr.ErrNotFound("person", p.ID)
	}
	d.persons[p.ID] = *p
	return nil
}

func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	defer s.lock()()
	d := s.d()
	if _, ok := d.persons[id]; !ok {
		return apperr.ErrNotFound("person", id)
	}
	for _, l := range d.loans {
		if l.PersonID == id {
			return apperr.ErrConflict("person still has loans")
		}
	}
	delete(d.persons, id)
	return nil
}

func (s *Store) SearchPersons(ctx context.Context, spec *query.Spec[library.PersonView], p query.Page, srt query.Sort) ([]library.PersonView, int64, error) {
	defer s.lock()()
	all := make([]library.PersonView, 0, len(s.d().persons))
	for _, person := range s.d().persons {
		v := s.personView(person)
		if spec.Matches(v) {
			all = append(all, v)
		}
	}
	slices.SortFunc(all, func(a, b library.PersonView) int { return cmp.Compare(a.ID, b.ID) })
	library.PersonSorts.Apply(all, srt)
	return query.Slice(all, p), int64(len(all)), nil
}

func (s *Store) personView(p library.Person) library.PersonView {
	v := library.PersonView{Person: p}
	for _, l := range s.d().loans {
		if l.PersonID != p.ID {
			continue
		}
		switch l.Kind {
		case library.LoanByCartel:
			v.LoanByCartelCount++
		case library.LoanToCartel:
			v.LoanToCartelCount++
		}
	}
	return v
}
