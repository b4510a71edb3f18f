// Package members manages the cartel persons: the members who borrow from
// the cartel or lend their own items to it.
package members

import (
	"context"
	"log"
	"strings"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/query"
)

type Service struct {
	store library.Store
}

func NewService(store library.Store) *Service { return &Service{store: store} }

func (s *Service) CreatePerson(ctx context.Context, req PersonRequest) (*PersonResponse, error) {
	p, err := toPerson(req)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertPerson(ctx, &p); err != nil {
		return nil, err
	}
	log.Printf("[INFO] person created: id=%d %s %s", p.ID, p.FirstName, p.Surname)
	return s.GetPerson(ctx, p.ID)
}

// GetPerson returns the person with its loan counts.
func (s *Service) GetPerson(ctx context.Context, id int64) (*PersonResponse, error) {
	v, err := s.store.GetPersonView(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(*v)
	return &resp, nil
}

func (s *Service) UpdatePerson(ctx context.Context, id int64, req PersonRequest) (*PersonResponse, error) {
	p, err := toPerson(req)
	if err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.store.UpdatePerson(ctx, &p); err != nil {
		return nil, err
	}
	return s.GetPerson(ctx, id)
}

// DeletePerson fails with CONFLICT while loans still reference the person.
func (s *Service) DeletePerson(ctx context.Context, id int64) error {
	if err := s.store.DeletePerson(ctx, id); err != nil {
		return err
	}
	log.Printf("[INFO] person deleted: id=%d", id)
	return nil
}

func (s *Service) SearchPersons(ctx context.Context, f library.PersonFilter, p query.Page, srt query.Sort) (query.Result[PersonResponse], error) {
	if err := p.Validate(); err != nil {
		return query.Result[PersonResponse]{}, err
	}
	if _, ok := library.PersonSorts[srt.Field]; !ok {
		return query.Result[PersonResponse]{}, apperr.ErrInvalid("unknown sort field: " + srt.Field)
	}
	list, total, err := s.store.SearchPersons(ctx, f.Spec(), p, srt)
	if err != nil {
		return query.Result[PersonResponse]{}, err
	}
	return query.Map(query.NewResult(list, total, p), toResponse), nil
}

func toPerson(req PersonRequest) (library.Person, error) {
	p := library.Person{
		FirstName: strings.TrimSpace(req.FirstName),
		Surname:   strings.TrimSpace(req.Surname),
		Contact:   strings.TrimSpace(req.Contact),
	}
	if p.FirstName == "" || p.Surname == "" {
		return library.Person{}, apperr.ErrInvalid("firstname and surname are required")
	}
	if req.Caution != nil {
		if *req.Caution < 0 {
			return library.Person{}, apperr.ErrInvalid("caution must be >= 0")
		}
		p.Caution = *req.Caution
	}
	return p, nil
}
