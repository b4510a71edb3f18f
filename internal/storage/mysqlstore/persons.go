package mysqlstore

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/query"
)

type personRow struct {
	ID                int64  `db:"id"`
	FirstName         string `db:"firstname"`
	Surname           string `db:"surname"`
	Contact           string `db:"contact"`
	Caution           int    `db:"caution"`
	LoanByCartelCount int    `db:"loan_by_cartel_count"`
	LoanToCartelCount int    `db:"loan_to_cartel_count"`
}

func (r personRow) toView() library.PersonView {
	return library.PersonView{
		Person: library.Person{
			ID:        r.ID,
			FirstName: r.FirstName,
			Surname:   r.Surname,
			Contact:   r.Contact,
			Caution:   r.Caution,
		},
		LoanByCartelCount: r.LoanByCartelCount,
		LoanToCartelCount: r.LoanToCartelCount,
	}
}

// 件数は都度 COUNT する（Person 側に保持しない）
func personSelect() *goqu.SelectDataset {
	return dialect.From(goqu.T("persons").As("p")).
		Select(
			goqu.I("p.id"), goqu.I("p.firstname"), goqu.I("p.surname"), goqu.I("p.contact"), goqu.I("p.caution"),
			goqu.L("(SELECT COUNT(*) FROM loans l WHERE l.person_id = p.id AND l.kind = 'by_cartel')").As("loan_by_cartel_count"),
			goqu.L("(SELECT COUNT(*) FROM loans l WHERE l.person_id = p.id AND l.kind = 'to_cartel')").As("loan_to_cartel_count"),
		)
}

func (s *Store) InsertPerson(ctx context.Context, p *library.Person) error {
	const q = `INSERT INTO persons (firstname, surname, contact, caution) VALUES (?, ?, ?, ?)`
	res, err := s.q.ExecContext(ctx, q, p.FirstName, p.Surname, p.Contact, p.Caution)
	if err != nil {
		return mapErr(err, "person", p.Surname)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (s *Store) GetPerson(ctx context.Context, id int64) (*library.Person, error) {
	const q = `SELECT id, firstname, surname, contact, caution FROM persons WHERE id = ?`
	var r personRow
	if err := s.q.GetContext(ctx, &r, q, id); err != nil {
		return nil, notFound(err, "person", id)
	}
	p := r.toView().Person
	return &p, nil
}

func (s *Store) GetPersonView(ctx context.Context, id int64) (*library.PersonView, error) {
	q, args, err := personSelect().Prepared(true).Where(goqu.I("p.id").Eq(id)).ToSQL()
	if err != nil {
		return nil, err
	}
	var r personRow
	if err := s.q.GetContext(ctx, &r, q, args...); err != nil {
		return nil, notFound(err, "person", id)
	}
	v := r.toView()
	return &v, nil
}

func (s *Store) UpdatePerson(ctx context.Context, p *library.Person) error {
	const q = `UPDATE persons SET firstname = ?, surname = ?, contact = ?, caution = ? WHERE id = ?`
	return s.execOne(ctx, "person", p.ID, q, p.FirstName, p.Surname, p.Contact, p.Caution, p.ID)
}

func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	const q = `DELETE FROM persons WHERE id = ?`
	return s.execOne(ctx, "person", id, q, id)
}

func personSearchSQL(spec *query.Spec[library.PersonView], p query.Page, srt query.Sort) (string, []any, string, []any, error) {
	where := spec.Expressions()
	list, args, err := personSelect().Prepared(true).
		Where(where...).
		Order(library.PersonSorts.Order(srt), goqu.I("p.id").Asc()).
		Limit(uint(p.Limit())).
		Offset(uint(p.Offset())).
		ToSQL()
	if err != nil {
		return "", nil, "", nil, err
	}
	count, countArgs, err := dialect.From(goqu.T("persons").As("p")).Prepared(true).
		Select(goqu.COUNT("*")).
		Where(where...).
		ToSQL()
	if err != nil {
		return "", nil, "", nil, err
	}
	return list, args, count, countArgs, nil
}

func (s *Store) SearchPersons(ctx context.Context, spec *query.Spec[library.PersonView], p query.Page, srt query.Sort) ([]library.PersonView, int64, error) {
	list, args, count, countArgs, err := personSearchSQL(spec, p, srt)
	if err != nil {
		return nil, 0, err
	}
	var rows []personRow
	if err := s.q.SelectContext(ctx, &rows, list, args...); err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.q.GetContext(ctx, &total, count, countArgs...); err != nil {
		return nil, 0, err
	}
	out := make([]library.PersonView, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toView())
	}
	return out, total, nil
}
