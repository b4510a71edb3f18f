// Package contributors manages the master data attached to items: authors,
// illustrators, publishers, genres and series.
package contributors

import (
	"context"
	"log"
	"strings"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
)

type Service struct {
	store library.Store
}

func NewService(store library.Store) *Service { return &Service{store: store} }

// Build validates and normalises a contributor. Authors and illustrators are
// named by first name and surname, and Name is derived from them; the other
// kinds only carry Name.
func Build(kind library.ContributorKind, firstName, surname, name string) (library.Contributor, error) {
	if !kind.Valid() {
		return library.Contributor{}, apperr.ErrInvalid("unknown contributor kind: " + string(kind))
	}
	c := library.Contributor{Kind: kind}
	if kind.Personal() {
		c.FirstName = strings.TrimSpace(firstName)
		c.Surname = strings.TrimSpace(surname)
		if c.FirstName == "" && c.Surname == "" {
			// 名前が1つだけ来た場合は姓として扱う
			c.Surname = strings.TrimSpace(name)
		}
		if c.FirstName == "" && c.Surname == "" {
			return library.Contributor{}, apperr.ErrInvalid(string(kind) + " needs a firstname or surname")
		}
		c.Name = c.DisplayName()
		return c, nil
	}
	c.Name = strings.TrimSpace(name)
	if c.Name == "" {
		return library.Contributor{}, apperr.ErrInvalid(string(kind) + " name is required")
	}
	return c, nil
}

// FindOrCreate returns the contributor of the same kind whose name matches
// case-insensitively, inserting c when there is none. created reports which.
func FindOrCreate(ctx context.Context, st library.ContributorStore, c library.Contributor) (*library.Contributor, bool, error) {
	found, err := st.FindContributor(ctx, c.Kind, c.Name)
	if err != nil {
		return nil, false, err
	}
	if found != nil {
		return found, false, nil
	}
	if err := st.InsertContributor(ctx, &c); err != nil {
		if !apperr.Is(err, apperr.CodeDuplicate) {
			return nil, false, err
		}
		// 同時に作られた
		found, err = st.FindContributor(ctx, c.Kind, c.Name)
		if err != nil {
			return nil, false, err
		}
		if found == nil {
			return nil, false, apperr.ErrInternal("contributor vanished after duplicate insert")
		}
		return found, false, nil
	}
	return &c, true, nil
}

// Add creates a contributor and fails with DUPLICATE when one with the same
// name already exists in the kind.
func (s *Service) Add(ctx context.Context, req ContributorRequest) (*ContributorResponse, error) {
	c, err := Build(library.ContributorKind(req.Kind), req.FirstName, req.Surname, req.Name)
	if err != nil {
		return nil, err
	}
	found, err := s.store.FindContributor(ctx, c.Kind, c.Name)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return nil, apperr.ErrDuplicate(string(c.Kind), c.Name)
	}
	if err := s.store.InsertContributor(ctx, &c); err != nil {
		return nil, err
	}
	log.Printf("[INFO] contributor added: %s %q (id=%d)", c.Kind, c.Name, c.ID)
	resp := toResponse(c)
	return &resp, nil
}

func (s *Service) FindOrCreate(ctx context.Context, req ContributorRequest) (*ContributorResponse, bool, error) {
	c, err := Build(library.ContributorKind(req.Kind), req.FirstName, req.Surname, req.Name)
	if err != nil {
		return nil, false, err
	}
	got, created, err := FindOrCreate(ctx, s.store, c)
	if err != nil {
		return nil, false, err
	}
	resp := toResponse(*got)
	return &resp, created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*ContributorResponse, error) {
	c, err := s.store.GetContributor(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(*c)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, kind, name string) ([]ContributorResponse, error) {
	k := library.ContributorKind(strings.TrimSpace(kind))
	if k != "" && !k.Valid() {
		return nil, apperr.ErrInvalid("unknown contributor kind: " + string(k))
	}
	list, err := s.store.ListContributors(ctx, k, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	out := make([]ContributorResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toResponse(c))
	}
	return out, nil
}

// Update renames a contributor. The kind cannot change.
func (s *Service) Update(ctx context.Context, id int64, req UpdateContributorRequest) (*ContributorResponse, error) {
	cur, err := s.store.GetContributor(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := Build(cur.Kind, req.FirstName, req.Surname, req.Name)
	if err != nil {
		return nil, err
	}
	c.ID = cur.ID
	if err := s.store.UpdateContributor(ctx, &c); err != nil {
		return nil, err
	}
	resp := toResponse(c)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteContributor(ctx, id); err != nil {
		return err
	}
	log.Printf("[INFO] contributor deleted: id=%d", id)
	return nil
}
