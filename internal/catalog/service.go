// Package catalog manages the items of the collection (books, games and
// game extensions), their physical copies and their exchange status.
package catalog

import (
	"context"
	"log"
	"strings"

	"cartel-backend/internal/bnf"
	"cartel-backend/internal/contributors"
	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/query"
)

// BookLookup は外部書誌（BnF）への問い合わせ。該当なしは (nil, nil)
type BookLookup interface {
	LookupISBN(ctx context.Context, isbn string) (*bnf.Record, error)
}

type Service struct {
	store  library.Store
	lookup BookLookup
}

// NewService wires the catalog. lookup may be nil, in which case ImportItem
// always fails with EXTERNAL_LOOKUP.
func NewService(store library.Store, lookup BookLookup) *Service {
	return &Service{store: store, lookup: lookup}
}

// ===== items =====

func (s *Service) AddBook(ctx context.Context, req AddBookRequest) (*ItemResponse, error) {
	it, err := newItem(req.Barcode, library.KindBook, req.ItemFields)
	if err != nil {
		return nil, err
	}
	it.Book = &library.BookDetails{
		Format:   strings.TrimSpace(req.Format),
		Category: strings.TrimSpace(req.Category),
	}
	return s.create(ctx, it, req.Contributors)
}

func (s *Service) AddGame(ctx context.Context, req AddGameRequest) (*ItemResponse, error) {
	it, err := newItem(req.Barcode, library.KindGame, req.ItemFields)
	if err != nil {
		return nil, err
	}
	if it.Game, err = gameDetails(req.GameFields); err != nil {
		return nil, err
	}
	return s.create(ctx, it, req.Contributors)
}

func (s *Service) AddExtension(ctx context.Context, req AddExtensionRequest) (*ItemResponse, error) {
	it, err := newItem(req.Barcode, library.KindExtension, req.ItemFields)
	if err != nil {
		return nil, err
	}
	if it.Game, err = gameDetails(req.GameFields); err != nil {
		return nil, err
	}
	it.Game.BaseGame = strings.TrimSpace(req.BaseGame)
	if it.Game.BaseGame == "" {
		return nil, apperr.ErrInvalid("base_game is required")
	}
	if it.Game.BaseGame == it.Barcode {
		return nil, apperr.ErrInvalid("an extension cannot extend itself")
	}
	return s.create(ctx, it, req.Contributors)
}

// create は重複チェック → 親ゲーム確認 → INSERT → 関係者の紐付けを1トランザクションで
func (s *Service) create(ctx context.Context, it *library.Item, in ContributorsInput) (*ItemResponse, error) {
	var view *library.ItemView
	err := s.store.WithTx(ctx, func(tx library.Store) error {
		if _, err := tx.GetItem(ctx, it.Barcode); err == nil {
			return apperr.ErrDuplicate("item", it.Barcode)
		} else if !apperr.Is(err, apperr.CodeNotFound) {
			return err
		}
		if it.Kind == library.KindExtension {
			base, err := tx.GetItem(ctx, it.Game.BaseGame)
			if err != nil || base.Kind != library.KindGame {
				if err != nil && !apperr.Is(err, apperr.CodeNotFound) {
					return err
				}
				return apperr.ErrNotFound("game", it.Game.BaseGame)
			}
		}
		if err := tx.InsertItem(ctx, it); err != nil {
			return err
		}
		if err := linkContributors(ctx, tx, it.Barcode, in); err != nil {
			return err
		}
		v, err := tx.GetItemView(ctx, it.Barcode)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] item added: %s %s %q", it.Kind, it.Barcode, it.Name)
	resp := toItemResponse(*view)
	return &resp, nil
}

func (s *Service) GetItem(ctx context.Context, barcode string) (*ItemResponse, error) {
	v, err := s.store.GetItemView(ctx, strings.TrimSpace(barcode))
	if err != nil {
		return nil, err
	}
	resp := toItemResponse(*v)
	return &resp, nil
}

func (s *Service) UpdateItem(ctx context.Context, barcode string, req UpdateItemRequest) (*ItemResponse, error) {
	var view *library.ItemView
	err := s.store.WithTx(ctx, func(tx library.Store) error {
		cur, err := tx.GetItem(ctx, barcode)
		if err != nil {
			return err
		}
		next, err := newItem(cur.Barcode, cur.Kind, req.ItemFields)
		if err != nil {
			return err
		}
		next.Book, next.Game = cur.Book, cur.Game

		if req.Book != nil {
			if cur.Kind != library.KindBook {
				return apperr.ErrInvalid("book fields on a " + string(cur.Kind))
			}
			next.Book = &library.BookDetails{
				Format:   strings.TrimSpace(req.Book.Format),
				Category: strings.TrimSpace(req.Book.Category),
			}
		}
		if req.Game != nil {
			if cur.Kind == library.KindBook {
				return apperr.ErrInvalid("game fields on a book")
			}
			g, err := gameDetails(*req.Game)
			if err != nil {
				return err
			}
			// 拡張の親は変えない
			if cur.Game != nil {
				g.BaseGame = cur.Game.BaseGame
			}
			next.Game = g
		}
		if err := tx.UpdateItem(ctx, next); err != nil {
			return err
		}
		if req.Contributors != nil {
			if err := tx.UnlinkContributors(ctx, barcode); err != nil {
				return err
			}
			if err := linkContributors(ctx, tx, barcode, *req.Contributors); err != nil {
				return err
			}
		}
		view, err = tx.GetItemView(ctx, barcode)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := toItemResponse(*view)
	return &resp, nil
}

// DeleteItem removes an item that has no copies left.
func (s *Service) DeleteItem(ctx context.Context, barcode string) error {
	if err := s.store.DeleteItem(ctx, barcode); err != nil {
		return err
	}
	log.Printf("[INFO] item deleted: %s", barcode)
	return nil
}

func (s *Service) SearchItems(ctx context.Context, f library.ItemFilter, p query.Page, srt query.Sort) (query.Result[ItemResponse], error) {
	if err := p.Validate(); err != nil {
		return query.Result[ItemResponse]{}, err
	}
	if _, ok := library.ItemSorts[srt.Field]; !ok {
		return query.Result[ItemResponse]{}, apperr.ErrInvalid("unknown sort field: " + srt.Field)
	}
	if err := validRange("players", f.Players); err != nil {
		return query.Result[ItemResponse]{}, err
	}
	if err := validRange("playtime", f.PlayTime); err != nil {
		return query.Result[ItemResponse]{}, err
	}
	if f.Kind != nil && !f.Kind.Valid() {
		return query.Result[ItemResponse]{}, apperr.ErrInvalid("unknown item kind: " + string(*f.Kind))
	}
	list, total, err := s.store.SearchItems(ctx, f.Spec(), p, srt)
	if err != nil {
		return query.Result[ItemResponse]{}, err
	}
	return query.Map(query.NewResult(list, total, p), toItemResponse), nil
}

// ImportItem returns the item with this barcode, creating it from the BnF
// notice when it is not in the catalog yet. created tells which happened.
func (s *Service) ImportItem(ctx context.Context, barcode string) (*ItemResponse, bool, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, false, apperr.ErrInvalid("barcode is required")
	}
	if existing, err := s.GetItem(ctx, barcode); err == nil {
		return existing, false, nil
	} else if !apperr.Is(err, apperr.CodeNotFound) {
		return nil, false, err
	}

	if s.lookup == nil {
		return nil, false, apperr.ErrExternalLookup("bibliographic lookup is not configured", nil)
	}
	rec, err := s.lookup.LookupISBN(ctx, barcode)
	if err != nil {
		log.Printf("[WARN] bnf lookup failed for %s: %v", barcode, err)
		return nil, false, apperr.ErrExternalLookup("bibliographic lookup failed", err)
	}
	if rec == nil {
		return nil, false, apperr.ErrNotFound("bibliographic record", barcode)
	}

	resp, err := s.AddBook(ctx, bookFromRecord(barcode, rec))
	if apperr.Is(err, apperr.CodeDuplicate) {
		// 並行して同じ barcode が登録された
		existing, err := s.GetItem(ctx, barcode)
		return existing, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

func bookFromRecord(barcode string, rec *bnf.Record) AddBookRequest {
	req := AddBookRequest{
		Barcode: barcode,
		ItemFields: ItemFields{
			Name:        rec.Title,
			Description: rec.Description,
			Year:        rec.Year,
			Language:    rec.Language,
			ImageURL:    rec.ImageURL,
		},
	}
	for _, a := range rec.Authors {
		req.Contributors.Authors = append(req.Contributors.Authors, PersonName(a))
	}
	for _, a := range rec.Illustrators {
		req.Contributors.Illustrators = append(req.Contributors.Illustrators, PersonName(a))
	}
	if rec.Publisher != "" {
		req.Contributors.Publishers = []string{rec.Publisher}
	}
	return req
}

// ===== copies =====

func (s *Service) AddCopy(ctx context.Context, barcode string, req AddCopyRequest) (*CopyResponse, error) {
	c := library.Copy{
		Barcode:    barcode,
		Available:  boolOr(req.Available, true),
		Borrowable: boolOr(req.Borrowable, true),
	}
	if err := s.store.InsertCopy(ctx, &c); err != nil {
		return nil, err
	}
	log.Printf("[INFO] copy added: id=%d item=%s", c.ID, barcode)
	resp := toCopyResponse(c)
	return &resp, nil
}

func (s *Service) GetCopy(ctx context.Context, id int64) (*CopyResponse, error) {
	c, err := s.store.GetCopy(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toCopyResponse(*c)
	return &resp, nil
}

func (s *Service) ListCopies(ctx context.Context, barcode string) ([]CopyResponse, error) {
	if _, err := s.store.GetItem(ctx, barcode); err != nil {
		return nil, err
	}
	list, err := s.store.ListCopies(ctx, barcode)
	if err != nil {
		return nil, err
	}
	out := make([]CopyResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCopyResponse(c))
	}
	return out, nil
}

// UpdateCopy changes the flags of a copy. A copy cannot be marked available
// while a loan holds it.
func (s *Service) UpdateCopy(ctx context.Context, id int64, req UpdateCopyRequest) (*CopyResponse, error) {
	var out library.Copy
	err := s.store.WithTx(ctx, func(tx library.Store) error {
		c, err := tx.LockCopy(ctx, id)
		if err != nil {
			return err
		}
		if req.Available != nil && *req.Available && !c.Available {
			open, err := tx.OpenLoanForCopy(ctx, id)
			if err != nil {
				return err
			}
			if open != nil {
				return apperr.ErrConflict("copy is on loan")
			}
		}
		c.Available = boolOr(req.Available, c.Available)
		c.Borrowable = boolOr(req.Borrowable, c.Borrowable)
		if err := tx.UpdateCopy(ctx, c); err != nil {
			return err
		}
		out = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toCopyResponse(out)
	return &resp, nil
}

func (s *Service) DeleteCopy(ctx context.Context, id int64) error {
	err := s.store.WithTx(ctx, func(tx library.Store) error {
		if _, err := tx.LockCopy(ctx, id); err != nil {
			return err
		}
		open, err := tx.OpenLoanForCopy(ctx, id)
		if err != nil {
			return err
		}
		if open != nil {
			return apperr.ErrConflict("copy is on loan")
		}
		return tx.DeleteCopy(ctx, id)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] copy deleted: id=%d", id)
	return nil
}

// ===== exchange =====

func (s *Service) SetExchange(ctx context.Context, barcode string, req ExchangeRequest) (*ExchangeResponse, error) {
	status := library.ExchangeStatus(strings.TrimSpace(req.Status))
	if !status.Valid() {
		return nil, apperr.ErrInvalid("unknown exchange status: " + req.Status)
	}
	ex := library.Exchange{Barcode: barcode, Status: status, Note: strings.TrimSpace(req.Note)}
	if err := s.store.UpsertExchange(ctx, &ex); err != nil {
		return nil, err
	}
	return &ExchangeResponse{Status: string(ex.Status), Note: ex.Note}, nil
}

func (s *Service) ClearExchange(ctx context.Context, barcode string) error {
	return s.store.DeleteExchange(ctx, barcode)
}

// ===== helpers =====

func newItem(barcode string, kind library.ItemKind, f ItemFields) (*library.Item, error) {
	it := &library.Item{
		Barcode:     strings.TrimSpace(barcode),
		Kind:        kind,
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		Year:        f.Year,
		Language:    strings.TrimSpace(f.Language),
		ImageURL:    strings.TrimSpace(f.ImageURL),
	}
	if it.Barcode == "" {
		return nil, apperr.ErrInvalid("barcode is required")
	}
	if it.Name == "" {
		return nil, apperr.ErrInvalid("name is required")
	}
	if it.Year != nil && (*it.Year < 0 || *it.Year > 9999) {
		return nil, apperr.ErrInvalid("year is out of range")
	}
	return it, nil
}

func gameDetails(f GameFields) (*library.GameDetails, error) {
	if f.MinPlayers < 0 || f.MaxPlayers < 0 || f.MinPlayTime < 0 || f.MaxPlayTime < 0 {
		return nil, apperr.ErrInvalid("players and playtime must not be negative")
	}
	if f.MaxPlayers > 0 && f.MinPlayers > f.MaxPlayers {
		return nil, apperr.ErrInvalid("min_players exceeds max_players")
	}
	if f.MaxPlayTime > 0 && f.MinPlayTime > f.MaxPlayTime {
		return nil, apperr.ErrInvalid("min_playtime exceeds max_playtime")
	}
	g := &library.GameDetails{
		MinPlayers:  f.MinPlayers,
		MaxPlayers:  f.MaxPlayers,
		MinPlayTime: f.MinPlayTime,
		MaxPlayTime: f.MaxPlayTime,
	}
	for _, c := range f.Categories {
		if c = strings.TrimSpace(c); c != "" {
			g.Categories = append(g.Categories, c)
		}
	}
	return g, nil
}

// linkContributors は名前から find-or-create して item に紐付ける
func linkContributors(ctx context.Context, tx library.Store, barcode string, in ContributorsInput) error {
	var wanted []library.Contributor
	add := func(kind library.ContributorKind, first, surname, name string) error {
		c, err := contributors.Build(kind, first, surname, name)
		if err != nil {
			return err
		}
		wanted = append(wanted, c)
		return nil
	}
	for _, n := range in.Authors {
		if err := add(library.ContributorAuthor, n.FirstName, n.Surname, ""); err != nil {
			return err
		}
	}
	for _, n := range in.Illustrators {
		if err := add(library.ContributorIllustrator, n.FirstName, n.Surname, ""); err != nil {
			return err
		}
	}
	for _, name := range in.Publishers {
		if err := add(library.ContributorPublisher, "", "", name); err != nil {
			return err
		}
	}
	for _, name := range in.Genres {
		if err := add(library.ContributorGenre, "", "", name); err != nil {
			return err
		}
	}
	for _, name := range in.Series {
		if err := add(library.ContributorSeries, "", "", name); err != nil {
			return err
		}
	}
	for _, c := range wanted {
		got, _, err := contributors.FindOrCreate(ctx, tx, c)
		if err != nil {
			return err
		}
		if err := tx.LinkContributor(ctx, barcode, got.ID); err != nil {
			return err
		}
	}
	return nil
}

func validRange(name string, r query.IntRange) error {
	if r.Min != nil && *r.Min < 0 || r.Max != nil && *r.Max < 0 {
		return apperr.ErrInvalid(name + " bounds must not be negative")
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return apperr.ErrInvalid(name + " min exceeds max")
	}
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
