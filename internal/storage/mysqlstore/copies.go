package mysqlstore

import (
	"context"
	"time"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
)

type copyRow struct {
	ID         int64     `db:"id"`
	Barcode    string    `db:"barcode"`
	Available  bool      `db:"available"`
	Borrowable bool      `db:"borrowable"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r copyRow) toCopy() library.Copy {
	return library.Copy{ID: r.ID, Barcode: r.Barcode, Available: r.Available, Borrowable: r.Borrowable, CreatedAt: r.CreatedAt}
}

func (s *Store) InsertCopy(ctx context.Context, c *library.Copy) error {
	const q = `INSERT INTO copies (barcode, available, borrowable) VALUES (?, ?, ?)`
	res, err := s.q.ExecContext(ctx, q, c.Barcode, c.Available, c.Borrowable)
	if err != nil {
		if apperr.Is(mapErr(err, "copy", c.Barcode), apperr.CodeInvalidArgument) {
			return apperr.ErrNotFound("item", c.Barcode)
		}
		return mapErr(err, "copy", c.Barcode)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	got, err := s.GetCopy(ctx, id)
	if err != nil {
		return err
	}
	c.CreatedAt = got.CreatedAt
	return nil
}

func (s *Store) GetCopy(ctx context.Context, id int64) (*library.Copy, error) {
	const q = `SELECT id, barcode, available, borrowable, created_at FROM copies WHERE id = ?`
	return s.getCopy(ctx, q, id)
}

// LockCopy: 同じ現物への同時貸出を直列化する
func (s *Store) LockCopy(ctx context.Context, id int64) (*library.Copy, error) {
	const q = `SELECT id, barcode, available, borrowable, created_at FROM copies WHERE id = ? FOR UPDATE`
	return s.getCopy(ctx, q, id)
}

func (s *Store) getCopy(ctx context.Context, q string, id int64) (*library.Copy, error) {
	var r copyRow
	if err := s.q.GetContext(ctx, &r, q, id); err != nil {
		return nil, notFound(err, "copy", id)
	}
	c := r.toCopy()
	return &c, nil
}

func (s *Store) UpdateCopy(ctx context.Context, c *library.Copy) error {
	const q = `UPDATE copies SET available = ?, borrowable = ? WHERE id = ?`
	return s.execOne(ctx, "copy", c.ID, q, c.Available, c.Borrowable, c.ID)
}

func (s *Store) DeleteCopy(ctx context.Context, id int64) error {
	const q = `DELETE FROM copies WHERE id = ?`
	return s.execOne(ctx, "copy", id, q, id)
}

func (s *Store) ListCopies(ctx context.Context, barcode string) ([]library.Copy, error) {
	const q = `SELECT id, barcode, available, borrowable, created_at FROM copies WHERE barcode = ? ORDER BY id`
	var rows []copyRow
	if err := s.q.SelectContext(ctx, &rows, q, barcode); err != nil {
		return nil, err
	}
	out := make([]library.Copy, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCopy())
	}
	return out, nil
}

func (s *Store) CountCopies(ctx context.Context, barcode string) (int, error) {
	const q = `SELECT COUNT(*) FROM copies WHERE barcode = ?`
	var n int
	if err := s.q.GetContext(ctx, &n, q, barcode); err != nil {
		return 0, err
	}
	return n, nil
}
