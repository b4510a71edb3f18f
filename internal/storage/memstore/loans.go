package memstore

import (
	"cmp"
	"context"
	"slices"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/query"
)

// ===== copies =====

func (s *Store) InsertCopy(ctx context.Context, c *library.Copy) error {
	defer s.lock()()
	d := s.d()
	if _, ok := d.items[c.Barcode]; !ok {
		return apperr.ErrNotFound("item", c.Barcode)
	}
	d.nextCopy++
	c.ID = d.nextCopy
	c.CreatedAt = s.now()
	d.copies[c.ID] = *c
	return nil
}

func (s *Store) GetCopy(ctx context.Context, id int64) (*library.Copy, error) {
	defer s.lock()()
	c, ok := s.d().copies[id]
	if !ok {
		return nil, apperr.ErrNotFound("copy", id)
	}
	return &c, nil
}

// LockCopy is GetCopy: transactions are already serialised.
func (s *Store) LockCopy(ctx context.Context, id int64) (*library.Copy, error) {
	return s.GetCopy(ctx, id)
}

func (s *Store) UpdateCopy(ctx context.Context, c *library.Copy) error {
	defer s.lock()()
	d := s.d()
	cur, ok := d.copies[c.ID]
	if !ok {
		return apperr.ErrNotFound("copy", c.ID)
	}
	c.Barcode, c.CreatedAt = cur.Barcode, cur.CreatedAt
	d.copies[c.ID] = *c
	return nil
}

func (s *Store) DeleteCopy(ctx context.Context, id int64) error {
	defer s.lock()()
	d := s.d()
	if _, ok := d.copies[id]; !ok {
		return apperr.ErrNotFound("copy", id)
	}
	for _, l := range d.loans {
		if l.CopyID != nil && *l.CopyID == id {
			return apperr.ErrConflict("copy is referenced by loans")
		}
	}
	delete(d.copies, id)
	return nil
}

func (s *Store) ListCopies(ctx context.Context, barcode string) ([]library.Copy, error) {
	defer s.lock()()
	out := []library.Copy{}
	for _, c := range s.d().copies {
		if c.Barcode == barcode {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b library.Copy) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) CountCopies(ctx context.Context, barcode string) (int, error) {
	defer s.lock()()
	n := 0
	for _, c := range s.d().copies {
		if c.Barcode == barcode {
			n++
		}
	}
	return n, nil
}

// ===== loans =====

func (s *Store) InsertLoan(ctx context.Context, l *library.Loan) error {
	defer s.lock()()
	d := s.d()
	if err := checkLoanRefs(d, l); err != nil {
		return err
	}
	d.nextLoan++
	l.ID = d.nextLoan
	d.loans[l.ID] = cloneLoan(*l)
	return nil
}

func (s *Store) GetLoan(ctx context.Context, kind library.LoanKind, id int64) (*library.Loan, error) {
	defer s.lock()()
	l, ok := s.d().loans[id]
	if !ok || l.Kind != kind {
		return nil, apperr.ErrNotFound("loan", id)
	}
	out := cloneLoan(l)
	return &out, nil
}

func (s *Store) GetLoanByRef(ctx context.Context, kind library.LoanKind, ref string) (*library.Loan, error) {
	defer s.lock()()
	for _, l := range s.d().loans {
		if l.Ref == ref && l.Kind == kind {
			out := cloneLoan(l)
			return &out, nil
		}
	}
	return nil, apperr.ErrNotFound("loan", ref)
}

func (s *Store) GetLoanView(ctx context.Context, kind library.LoanKind, id int64) (*library.LoanView, error) {
	defer s.lock()()
	l, ok := s.d().loans[id]
	if !ok || l.Kind != kind {
		return nil, apperr.ErrNotFound("loan", id)
	}
	v := s.loanView(l)
	return &v, nil
}

func (s *Store) LockLoan(ctx context.Context, kind library.LoanKind, id int64) (*library.Loan, error) {
	return s.GetLoan(ctx, kind, id)
}

func (s *Store) UpdateLoan(ctx context.Context, l *library.Loan) error {
	defer s.lock()()
	d := s.d()
	cur, ok := d.loans[l.ID]
	if !ok || cur.Kind != l.Kind {
		return apperr.ErrNotFound("loan", l.ID)
	}
	if err := checkLoanRefs(d, l); err != nil {
		return err
	}
	d.loans[l.ID] = cloneLoan(*l)
	return nil
}

func (s *Store) DeleteLoan(ctx context.Context, kind library.LoanKind, id int64) error {
	defer s.lock()()
	d := s.d()
	l, ok := d.loans[id]
	if !ok || l.Kind != kind {
		return apperr.ErrNotFound("loan", id)
	}
	delete(d.loans, id)
	return nil
}

func (s *Store) OpenLoanForCopy(ctx context.Context, copyID int64) (*library.Loan, error) {
	defer s.lock()()
	if l := openLoanForCopy(s.d(), copyID, 0); l != nil {
		out := cloneLoan(*l)
		return &out, nil
	}
	return nil, nil
}

func (s *Store) SearchLoans(ctx context.Context, kind library.LoanKind, spec *query.Spec[library.LoanView], p query.Page, srt query.Sort) ([]library.LoanView, int64, error) {
	defer s.lock()()
	all := []library.LoanView{}
	for _, l := range s.d().loans {
		if l.Kind != kind {
			continue
		}
		v := s.loanView(l)
		if spec.Matches(v) {
			all = append(all, v)
		}
	}
	// 同値は id 降順 (mysqlstore と同じ)
	slices.SortFunc(all, func(a, b library.LoanView) int { return cmp.Compare(b.ID, a.ID) })
	library.LoanSorts.Apply(all, srt)
	return query.Slice(all, p), int64(len(all)), nil
}

func (s *Store) loanView(l library.Loan) library.LoanView {
	d := s.d()
	v := library.LoanView{Loan: cloneLoan(l)}
	if p, ok := d.persons[l.PersonID]; ok {
		v.FirstName, v.Surname = p.FirstName, p.Surname
	}
	if l.CopyID != nil {
		if c, ok := d.copies[*l.CopyID]; ok {
			if it, ok := d.items[c.Barcode]; ok {
				v.ItemName, v.ItemBarcode = it.Name, it.Barcode
			}
		}
	}
	return v
}

// checkLoanRefs mirrors the foreign keys and the unique open-copy key of the
// loans table.
func checkLoanRefs(d *data, l *library.Loan) error {
	if _, ok := d.persons[l.PersonID]; !ok {
		return apperr.ErrNotFound("person", l.PersonID)
	}
	if l.CopyID == nil {
		return nil
	}
	if _, ok := d.copies[*l.CopyID]; !ok {
		return apperr.ErrNotFound("copy", *l.CopyID)
	}
	if l.EndDate == nil && openLoanForCopy(d, *l.CopyID, l.ID) != nil {
		return apperr.ErrConflict("copy already has an open loan")
	}
	return nil
}

func openLoanForCopy(d *data, copyID, exceptLoanID int64) *library.Loan {
	for _, l := range d.loans {
		if l.ID != exceptLoanID && l.EndDate == nil && l.CopyID != nil && *l.CopyID == copyID {
			out := l
			return &out
		}
	}
	return nil
}
