package mysqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	jsoniter "github.com/json-iterator/go"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/query"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// itemRow は items + books + games の LEFT JOIN 1行
type itemRow struct {
	Barcode     string         `db:"barcode"`
	Kind        string         `db:"kind"`
	Name        string         `db:"name"`
	Description string         `db:"description"`
	Year        sql.NullInt64  `db:"year"`
	Language    string         `db:"language"`
	ImageURL    string         `db:"image_url"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	Format      sql.NullString `db:"format"`
	Category    sql.NullString `db:"category"`
	MinPlayers  sql.NullInt64  `db:"min_players"`
	MaxPlayers  sql.NullInt64  `db:"max_players"`
	MinPlayTime sql.NullInt64  `db:"min_playtime"`
	MaxPlayTime sql.NullInt64  `db:"max_playtime"`
	Categories  sql.NullString `db:"categories"`
	BaseGame    sql.NullString `db:"base_game"`
	CopyCount   int            `db:"copy_count"`
}

func (r itemRow) toItem() (library.Item, error) {
	it := library.Item{
		Barcode:     r.Barcode,
		Kind:        library.ItemKind(r.Kind),
		Name:        r.Name,
		Description: r.Description,
		Language:    r.Language,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Year.Valid {
		y := int(r.Year.Int64)
		it.Year = &y
	}
	switch it.Kind {
	case library.KindBook:
		it.Book = &library.BookDetails{Format: r.Format.String, Category: r.Category.String}
	case library.KindGame, library.KindExtension:
		g := &library.GameDetails{
			MinPlayers:  int(r.MinPlayers.Int64),
			MaxPlayers:  int(r.MaxPlayers.Int64),
			MinPlayTime: int(r.MinPlayTime.Int64),
			MaxPlayTime: int(r.MaxPlayTime.Int64),
			BaseGame:    r.BaseGame.String,
		}
		if r.Categories.Valid && r.Categories.String != "" {
			if err := json.UnmarshalFromString(r.Categories.String, &g.Categories); err != nil {
				return library.Item{}, err
			}
		}
		it.Game = g
	}
	return it, nil
}

func itemSelect() *goqu.SelectDataset {
	return dialect.From(goqu.T("items").As("i")).
		LeftJoin(goqu.T("books").As("b"), goqu.On(goqu.I("b.barcode").Eq(goqu.I("i.barcode")))).
		LeftJoin(goqu.T("games").As("g"), goqu.On(goqu.I("g.barcode").Eq(goqu.I("i.barcode")))).
		Select(
			goqu.I("i.barcode"), goqu.I("i.kind"), goqu.I("i.name"), goqu.I("i.description"),
			goqu.I("i.year"), goqu.I("i.language"), goqu.I("i.image_url"),
			goqu.I("i.created_at"), goqu.I("i.updated_at"),
			goqu.I("b.format"), goqu.I("b.category"),
			goqu.I("g.min_players"), goqu.I("g.max_players"),
			goqu.I("g.min_playtime"), goqu.I("g.max_playtime"),
			goqu.I("g.categories"), goqu.I("g.base_game"),
			goqu.L("(SELECT COUNT(*) FROM copies c WHERE c.barcode = i.barcode)").As("copy_count"),
		)
}

// ===== items =====

func (s *Store) InsertItem(ctx context.Context, it *library.Item) error {
	return s.WithTx(ctx, func(tx library.Store) error {
		t := tx.(*Store)
		const q = `
INSERT INTO items (barcode, kind, name, description, year, language, image_url)
VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := t.q.ExecContext(ctx, q,
			it.Barcode, string(it.Kind), it.Name, it.Description, nullInt(it.Year), it.Language, it.ImageURL,
		); err != nil {
			return mapErr(err, "item", it.Barcode)
		}
		if err := t.writeDetails(ctx, it); err != nil {
			return err
		}
		// created_at / updated_at はDB側の値を返す
		cur, err := t.GetItem(ctx, it.Barcode)
		if err != nil {
			return err
		}
		it.CreatedAt, it.UpdatedAt = cur.CreatedAt, cur.UpdatedAt
		return nil
	})
}

func (s *Store) writeDetails(ctx context.Context, it *library.Item) error {
	if it.Book != nil {
		const q = `
INSERT INTO books (barcode, format, category) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE format = VALUES(format), category = VALUES(category)`
		if _, err := s.q.ExecContext(ctx, q, it.Barcode, it.Book.Format, it.Book.Category); err != nil {
			return mapErr(err, "item", it.Barcode)
		}
	}
	if it.Game != nil {
		cats, err := json.MarshalToString(nonNil(it.Game.Categories))
		if err != nil {
			return err
		}
		const q = `
INSERT INTO games (barcode, min_players, max_players, min_playtime, max_playtime, categories, base_game)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  min_players = VALUES(min_players), max_players = VALUES(max_players),
  min_playtime = VALUES(min_playtime), max_playtime = VALUES(max_playtime),
  categories = VALUES(categories), base_game = VALUES(base_game)`
		if _, err := s.q.ExecContext(ctx, q,
			it.Barcode, it.Game.MinPlayers, it.Game.MaxPlayers, it.Game.MinPlayTime, it.Game.MaxPlayTime,
			cats, nullString(it.Game.BaseGame),
		); err != nil {
			if apperr.Is(mapErr(err, "item", it.Barcode), apperr.CodeInvalidArgument) {
				return apperr.ErrInvalid("unknown base game: " + it.Game.BaseGame)
			}
			return mapErr(err, "item", it.Barcode)
		}
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, barcode string) (*library.Item, error) {
	v, err := s.GetItemView(ctx, barcode)
	if err != nil {
		return nil, err
	}
	return &v.Item, nil
}

func (s *Store) GetItemView(ctx context.Context, barcode string) (*library.ItemView, error) {
	q, args, err := itemSelect().Prepared(true).Where(goqu.I("i.barcode").Eq(barcode)).ToSQL()
	if err != nil {
		return nil, err
	}
	var row itemRow
	if err := s.q.GetContext(ctx, &row, q, args...); err != nil {
		return nil, notFound(err, "item", barcode)
	}
	it, err := row.toItem()
	if err != nil {
		return nil, err
	}
	v := library.ItemView{Item: it, CopyCount: library.CopyCount(row.CopyCount)}
	if err := s.fillItemViews(ctx, []*library.ItemView{&v}); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) UpdateItem(ctx context.Context, it *library.Item) error {
	return s.WithTx(ctx, func(tx library.Store) error {
		t := tx.(*Store)
		const q = `
UPDATE items
SET name = ?, description = ?, year = ?, language = ?, image_url = ?
WHERE barcode = ?`
		if err := t.execOne(ctx, "item", it.Barcode, q,
			it.Name, it.Description, nullInt(it.Year), it.Language, it.ImageURL, it.Barcode,
		); err != nil {
			return err
		}
		if err := t.writeDetails(ctx, it); err != nil {
			return err
		}
		cur, err := t.GetItem(ctx, it.Barcode)
		if err != nil {
			return err
		}
		it.CreatedAt, it.UpdatedAt = cur.CreatedAt, cur.UpdatedAt
		return nil
	})
}

func (s *Store) DeleteItem(ctx context.Context, barcode string) error {
	const q = `DELETE FROM items WHERE barcode = ?`
	return s.execOne(ctx, "item", barcode, q, barcode)
}

// itemSearchSQL は一覧と件数の2本を組み立てる
func itemSearchSQL(spec *query.Spec[library.ItemView], p query.Page, srt query.Sort) (string, []any, string, []any, error) {
	where := spec.Expressions()
	list, args, err := itemSelect().Prepared(true).
		Where(where...).
		Order(library.ItemSorts.Order(srt), goqu.I("i.barcode").Asc()).
		Limit(uint(p.Limit())).
		Offset(uint(p.Offset())).
		ToSQL()
	if err != nil {
		return "", nil, "", nil, err
	}
	count, countArgs, err := dialect.From(goqu.T("items").As("i")).Prepared(true).
		LeftJoin(goqu.T("books").As("b"), goqu.On(goqu.I("b.barcode").Eq(goqu.I("i.barcode")))).
		LeftJoin(goqu.T("games").As("g"), goqu.On(goqu.I("g.barcode").Eq(goqu.I("i.barcode")))).
		Select(goqu.COUNT("*")).
		Where(where...).
		ToSQL()
	if err != nil {
		return "", nil, "", nil, err
	}
	return list, args, count, countArgs, nil
}

func (s *Store) SearchItems(ctx context.Context, spec *query.Spec[library.ItemView], p query.Page, srt query.Sort) ([]library.ItemView, int64, error) {
	list, args, count, countArgs, err := itemSearchSQL(spec, p, srt)
	if err != nil {
		return nil, 0, err
	}

	var rows []itemRow
	if err := s.q.SelectContext(ctx, &rows, list, args...); err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.q.GetContext(ctx, &total, count, countArgs...); err != nil {
		return nil, 0, err
	}

	out := make([]library.ItemView, 0, len(rows))
	for _, r := range rows {
		it, err := r.toItem()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, library.ItemView{Item: it, CopyCount: library.CopyCount(r.CopyCount)})
	}
	ptrs := make([]*library.ItemView, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := s.fillItemViews(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// fillItemViews loads contributors and exchange status for a page of items
// with one query each.
func (s *Store) fillItemViews(ctx context.Context, views []*library.ItemView) error {
	if len(views) == 0 {
		return nil
	}
	byBarcode := make(map[string]*library.ItemView, len(views))
	barcodes := make([]any, 0, len(views))
	for _, v := range views {
		byBarcode[v.Barcode] = v
		barcodes = append(barcodes, v.Barcode)
	}

	q, args, err := dialect.From(goqu.T("item_contributors").As("ic")).Prepared(true).
		Join(goqu.T("contributors").As("ct"), goqu.On(goqu.I("ct.id").Eq(goqu.I("ic.contributor_id")))).
		Select(goqu.I("ic.barcode"), goqu.I("ct.id"), goqu.I("ct.kind"), goqu.I("ct.firstname"), goqu.I("ct.surname"), goqu.I("ct.name")).
		Where(goqu.I("ic.barcode").In(barcodes...)).
		Order(goqu.I("ic.barcode").Asc(), goqu.I("ic.position").Asc(), goqu.I("ct.id").Asc()).
		ToSQL()
	if err != nil {
		return err
	}
	var links []linkRow
	if err := s.q.SelectContext(ctx, &links, q, args...); err != nil {
		return err
	}
	for _, l := range links {
		if v, ok := byBarcode[l.Barcode]; ok {
			v.Contributors = append(v.Contributors, l.toContributor())
		}
	}

	q, args, err = dialect.From("exchanges").Prepared(true).
		Select("barcode", "status", "note").
		Where(goqu.C("barcode").In(barcodes...)).
		ToSQL()
	if err != nil {
		return err
	}
	var exs []exchangeRow
	if err := s.q.SelectContext(ctx, &exs, q, args...); err != nil {
		return err
	}
	for _, e := range exs {
		if v, ok := byBarcode[e.Barcode]; ok {
			ex := e.toExchange()
			v.Exchange = &ex
		}
	}
	return nil
}

type linkRow struct {
	Barcode   string `db:"barcode"`
	ID        int64  `db:"id"`
	Kind      string `db:"kind"`
	FirstName string `db:"firstname"`
	Surname   string `db:"surname"`
	Name      string `db:"name"`
}

func (r linkRow) toContributor() library.Contributor {
	return contributorRow{ID: r.ID, Kind: r.Kind, FirstName: r.FirstName, Surname: r.Surname, Name: r.Name}.toContributor()
}

// ===== exchange =====

type exchangeRow struct {
	Barcode string `db:"barcode"`
	Status  string `db:"status"`
	Note    string `db:"note"`
}

func (r exchangeRow) toExchange() library.Exchange {
	return library.Exchange{Barcode: r.Barcode, Status: library.ExchangeStatus(r.Status), Note: r.Note}
}

func (s *Store) GetExchange(ctx context.Context, barcode string) (*library.Exchange, error) {
	const q = `SELECT barcode, status, note FROM exchanges WHERE barcode = ?`
	var r exchangeRow
	if err := s.q.GetContext(ctx, &r, q, barcode); err != nil {
		return nil, notFound(err, "exchange", barcode)
	}
	ex := r.toExchange()
	return &ex, nil
}

func (s *Store) UpsertExchange(ctx context.Context, ex *library.Exchange) error {
	const q = `
INSERT INTO exchanges (barcode, status, note) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE status = VALUES(status), note = VALUES(note)`
	if _, err := s.q.ExecContext(ctx, q, ex.Barcode, string(ex.Status), ex.Note); err != nil {
		if apperr.Is(mapErr(err, "exchange", ex.Barcode), apperr.CodeInvalidArgument) {
			return apperr.ErrNotFound("item", ex.Barcode)
		}
		return mapErr(err, "exchange", ex.Barcode)
	}
	return nil
}

func (s *Store) DeleteExchange(ctx context.Context, barcode string) error {
	const q = `DELETE FROM exchanges WHERE barcode = ?`
	return s.execOne(ctx, "exchange", barcode, q, barcode)
}

// ===== helpers =====

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
