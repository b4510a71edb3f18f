package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/query"
)

type loanRow struct {
	ID          int64         `db:"id"`
	Ref         string        `db:"ref"`
	Kind        string        `db:"kind"`
	CopyID      sql.NullInt64 `db:"copy_id"`
	PersonID    int64         `db:"person_id"`
	LoanDate    time.Time     `db:"loan_date"`
	EndDate     sql.NullTime  `db:"end_date"`
	ItemName    string        `db:"item_name"`
	ItemBarcode string        `db:"item_barcode"`
	FirstName   string        `db:"firstname"`
	Surname     string        `db:"surname"`
}

func (r loanRow) toLoan() library.Loan {
	l := library.Loan{
		ID:          r.ID,
		Ref:         r.Ref,
		Kind:        library.LoanKind(r.Kind),
		PersonID:    r.PersonID,
		LoanDate:    r.LoanDate,
		ItemName:    r.ItemName,
		ItemBarcode: r.ItemBarcode,
	}
	if r.CopyID.Valid {
		id := r.CopyID.Int64
		l.CopyID = &id
	}
	if r.EndDate.Valid {
		t := r.EndDate.Time
		l.EndDate = &t
	}
	return l
}

const loanColumns = `id, ref, kind, copy_id, person_id, loan_date, end_date, item_name, item_barcode`

// loans → persons / copies → items。copy が消えた後はスナップショット列を使う
func loanViewSelect() *goqu.SelectDataset {
	return dialect.From(goqu.T("loans").As("l")).
		Join(goqu.T("persons").As("p"), goqu.On(goqu.I("p.id").Eq(goqu.I("l.person_id")))).
		LeftJoin(goqu.T("copies").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("l.copy_id")))).
		LeftJoin(goqu.T("items").As("i"), goqu.On(goqu.I("i.barcode").Eq(goqu.I("c.barcode")))).
		Select(
			goqu.I("l.id"), goqu.I("l.ref"), goqu.I("l.kind"), goqu.I("l.copy_id"), goqu.I("l.person_id"),
			goqu.I("l.loan_date"), goqu.I("l.end_date"),
			goqu.L("COALESCE(i.name, l.item_name)").As("item_name"),
			goqu.L("COALESCE(i.barcode, l.item_barcode)").As("item_barcode"),
			goqu.I("p.firstname"), goqu.I("p.surname"),
		)
}

func (s *Store) InsertLoan(ctx context.Context, l *library.Loan) error {
	const q = `
INSERT INTO loans (ref, kind, copy_id, person_id, loan_date, end_date, item_name, item_barcode)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.q.ExecContext(ctx, q,
		l.Ref, string(l.Kind), nullInt64(l.CopyID), l.PersonID, l.LoanDate, nullTime(l.EndDate), l.ItemName, l.ItemBarcode,
	)
	if err != nil {
		return mapErr(err, "loan", l.Ref)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

func (s *Store) GetLoan(ctx context.Context, kind library.LoanKind, id int64) (*library.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE id = ? AND kind = ?`
	return s.getLoan(ctx, id, q, id, string(kind))
}

func (s *Store) GetLoanByRef(ctx context.Context, kind library.LoanKind, ref string) (*library.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE ref = ? AND kind = ?`
	return s.getLoan(ctx, ref, q, ref, string(kind))
}

// LockLoan: 完了・取消の二重実行を防ぐ
func (s *Store) LockLoan(ctx context.Context, kind library.LoanKind, id int64) (*library.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE id = ? AND kind = ? FOR UPDATE`
	return s.getLoan(ctx, id, q, id, string(kind))
}

func (s *Store) getLoan(ctx context.Context, key any, q string, args ...any) (*library.Loan, error) {
	var r loanRow
	if err := s.q.GetContext(ctx, &r, q, args...); err != nil {
		return nil, notFound(err, "loan", key)
	}
	l := r.toLoan()
	return &l, nil
}

func (s *Store) GetLoanView(ctx context.Context, kind library.LoanKind, id int64) (*library.LoanView, error) {
	q, args, err := loanViewSelect().Prepared(true).
		Where(goqu.I("l.id").Eq(id), goqu.I("l.kind").Eq(string(kind))).
		ToSQL()
	if err != nil {
		return nil, err
	}
	var r loanRow
	if err := s.q.GetContext(ctx, &r, q, args...); err != nil {
		return nil, notFound(err, "loan", id)
	}
	return &library.LoanView{Loan: r.toLoan(), FirstName: r.FirstName, Surname: r.Surname}, nil
}

func (s *Store) UpdateLoan(ctx context.Context, l *library.Loan) error {
	const q = `
UPDATE loans
SET copy_id = ?, person_id = ?, loan_date = ?, end_date = ?, item_name = ?, item_barcode = ?
WHERE id = ? AND kind = ?`
	return s.execOne(ctx, "loan", l.ID, q,
		nullInt64(l.CopyID), l.PersonID, l.LoanDate, nullTime(l.EndDate), l.ItemName, l.ItemBarcode,
		l.ID, string(l.Kind),
	)
}

func (s *Store) DeleteLoan(ctx context.Context, kind library.LoanKind, id int64) error {
	const q = `DELETE FROM loans WHERE id = ? AND kind = ?`
	return s.execOne(ctx, "loan", id, q, id, string(kind))
}

func (s *Store) OpenLoanForCopy(ctx context.Context, copyID int64) (*library.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE copy_id = ? AND end_date IS NULL LIMIT 1`
	var r loanRow
	if err := s.q.GetContext(ctx, &r, q, copyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	l := r.toLoan()
	return &l, nil
}

func loanSearchSQL(kind library.LoanKind, spec *query.Spec[library.LoanView], p query.Page, srt query.Sort) (string, []any, string, []any, error) {
	where := append([]exp.Expression{goqu.I("l.kind").Eq(string(kind))}, spec.Expressions()...)
	list, args, err := loanViewSelect().Prepared(true).
		Where(where...).
		Order(library.LoanSorts.Order(srt), goqu.I("l.id").Desc()).
		Limit(uint(p.Limit())).
		Offset(uint(p.Offset())).
		ToSQL()
	if err != nil {
		return "", nil, "", nil, err
	}
	count, countArgs, err := dialect.From(goqu.T("loans").As("l")).Prepared(true).
		Join(goqu.T("persons").As("p"), goqu.On(goqu.I("p.id").Eq(goqu.I("l.person_id")))).
		LeftJoin(goqu.T("copies").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("l.copy_id")))).
		LeftJoin(goqu.T("items").As("i"), goqu.On(goqu.I("i.barcode").Eq(goqu.I("c.barcode")))).
		Select(goqu.COUNT("*")).
		Where(where...).
		ToSQL()
	if err != nil {
		return "", nil, "", nil, err
	}
	return list, args, count, countArgs, nil
}

func (s *Store) SearchLoans(ctx context.Context, kind library.LoanKind, spec *query.Spec[library.LoanView], p query.Page, srt query.Sort) ([]library.LoanView, int64, error) {
	list, args, count, countArgs, err := loanSearchSQL(kind, spec, p, srt)
	if err != nil {
		return nil, 0, err
	}
	var rows []loanRow
	if err := s.q.SelectContext(ctx, &rows, list, args...); err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.q.GetContext(ctx, &total, count, countArgs...); err != nil {
		return nil, 0, err
	}
	out := make([]library.LoanView, 0, len(rows))
	for _, r := range rows {
		out = append(out, library.LoanView{Loan: r.toLoan(), FirstName: r.FirstName, Surname: r.Surname})
	}
	return out, total, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
