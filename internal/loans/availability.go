package loans

import (
	"context"

	"cartel-backend/internal/library"
)

// State is the derived real-world state of a copy.
type State string

const (
	StateAvailable  State = "available"
	StateOnLoan     State = "on_loan"
	StateBorrowedIn State = "borrowed_in"
)

// Availability answers the three questions asked about a copy. The open
// loans are the source of truth; the copy's available flag is only a hint
// kept in step by the lifecycle operations.
type Availability struct {
	CopyID      int64
	State       State
	Borrowable  bool
	CanTakeIn   bool
	Consultable bool
}

func availabilityOf(ctx context.Context, st library.LoanStore, c *library.Copy) (Availability, error) {
	open, err := st.OpenLoanForCopy(ctx, c.ID)
	if err != nil {
		return Availability{}, err
	}
	a := Availability{
		CopyID:      c.ID,
		State:       StateAvailable,
		Consultable: c.Borrowable,
	}
	if open != nil {
		switch open.Kind {
		case library.LoanByCartel:
			a.State = StateOnLoan
		case library.LoanToCartel:
			a.State = StateBorrowedIn
		}
	}
	a.Borrowable = open == nil && c.Available
	a.CanTakeIn = open == nil || open.Kind != library.LoanToCartel
	return a, nil
}

func (s *Service) Availability(ctx context.Context, copyID int64) (*Availability, error) {
	c, err := s.store.GetCopy(ctx, copyID)
	if err != nil {
		return nil, err
	}
	a, err := availabilityOf(ctx, s.store, c)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// IsBorrowable: available フラグが立っていて、どの向きの貸出にも使われていない
func (s *Service) IsBorrowable(ctx context.Context, copyID int64) (bool, error) {
	a, err := s.Availability(ctx, copyID)
	if err != nil {
		return false, err
	}
	return a.Borrowable, nil
}

// CanTakeIn: 預かり中（to_cartel が開いている）でない
func (s *Service) CanTakeIn(ctx context.Context, copyID int64) (bool, error) {
	a, err := s.Availability(ctx, copyID)
	if err != nil {
		return false, err
	}
	return a.CanTakeIn, nil
}

// IsConsultable returns the stored borrowable flag of the copy.
func (s *Service) IsConsultable(ctx context.Context, copyID int64) (bool, error) {
	c, err := s.store.GetCopy(ctx, copyID)
	if err != nil {
		return false, err
	}
	return c.Borrowable, nil
}
