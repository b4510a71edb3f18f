package mysqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/query"
)

type contributorRow struct {
	ID        int64  `db:"id"`
	Kind      string `db:"kind"`
	FirstName string `db:"firstname"`
	Surname   string `db:"surname"`
	Name      string `db:"name"`
}

func (r contributorRow) toContributor() library.Contributor {
	return library.Contributor{
		ID:        r.ID,
		Kind:      library.ContributorKind(r.Kind),
		FirstName: r.FirstName,
		Surname:   r.Surname,
		Name:      r.Name,
	}
}

func (s *Store) InsertContributor(ctx context.Context, c *library.Contributor) error {
	const q = `INSERT INTO contributors (kind, firstname, surname, name) VALUES (?, ?, ?, ?)`
	res, err := s.q.ExecContext(ctx, q, string(c.Kind), c.FirstName, c.Surname, c.Name)
	if err != nil {
		return mapErr(err, string(c.Kind), c.Name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (s *Store) GetContributor(ctx context.Context, id int64) (*library.Contributor, error) {
	const q = `SELECT id, kind, firstname, surname, name FROM contributors WHERE id = ?`
	var r contributorRow
	if err := s.q.GetContext(ctx, &r, q, id); err != nil {
		return nil, notFound(err, "contributor", id)
	}
	c := r.toContributor()
	return &c, nil
}

// name 列は _ai_ci 照合順序なので = で大文字小文字を無視して一致する
func (s *Store) FindContributor(ctx context.Context, kind library.ContributorKind, name string) (*library.Contributor, error) {
	const q = `SELECT id, kind, firstname, surname, name FROM contributors WHERE kind = ? AND name = ? LIMIT 1`
	var r contributorRow
	if err := s.q.GetContext(ctx, &r, q, string(kind), name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c := r.toContributor()
	return &c, nil
}

func (s *Store) ListContributors(ctx context.Context, kind library.ContributorKind, name string) ([]library.Contributor, error) {
	ds := dialect.From("contributors").Prepared(true).
		Select("id", "kind", "firstname", "surname", "name").
		Order(goqu.C("name").Asc(), goqu.C("id").Asc())
	if kind != "" {
		ds = ds.Where(goqu.C("kind").Eq(string(kind)))
	}
	if name != "" {
		ds = ds.Where(query.ContainsExpr(goqu.C("name"), name))
	}
	q, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	var rows []contributorRow
	if err := s.q.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]library.Contributor, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toContributor())
	}
	return out, nil
}

func (s *Store) UpdateContributor(ctx context.Context, c *library.Contributor) error {
	const q = `UPDATE contributors SET firstname = ?, surname = ?, name = ? WHERE id = ?`
	return s.execOne(ctx, string(c.Kind), c.Name, q, c.FirstName, c.Surname, c.Name, c.ID)
}

func (s *Store) DeleteContributor(ctx context.Context, id int64) error {
	const q = `DELETE FROM contributors WHERE id = ?`
	return s.execOne(ctx, "contributor", id, q, id)
}

func (s *Store) ItemContributors(ctx context.Context, barcode string) ([]library.Contributor, error) {
	const q = `
SELECT ct.id, ct.kind, ct.firstname, ct.surname, ct.name
FROM item_contributors ic
JOIN contributors ct ON ct.id = ic.contributor_id
WHERE ic.barcode = ?
ORDER BY ic.position, ct.id`
	var rows []contributorRow
	if err := s.q.SelectContext(ctx, &rows, q, barcode); err != nil {
		return nil, err
	}
	out := make([]library.Contributor, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toContributor())
	}
	return out, nil
}

func (s *Store) LinkContributor(ctx context.Context, barcode string, contributorID int64) error {
	const q = `
INSERT INTO item_contributors (barcode, contributor_id, position)
SELECT ?, ?, COALESCE(MAX(position), -1) + 1 FROM item_contributors WHERE barcode = ?
ON DUPLICATE KEY UPDATE position = item_contributors.position`
	if _, err := s.q.ExecContext(ctx, q, barcode, contributorID, barcode); err != nil {
		return mapErr(err, "item", barcode)
	}
	return nil
}

func (s *Store) UnlinkContributors(ctx context.Context, barcode string) error {
	const q = `DELETE FROM item_contributors WHERE barcode = ?`
	_, err := s.q.ExecContext(ctx, q, barcode)
	return err
}
