package loans

import (
	"time"

	"cartel-backend/internal/library"
)

type CreateByCartelRequest struct {
	PersonID int64 `json:"person_id" binding:"required"`
	CopyID   int64 `json:"copy_id" binding:"required"`
}

type CreateToCartelRequest struct {
	PersonID int64  `json:"person_id" binding:"required"`
	Barcode  string `json:"barcode" binding:"required"`
}

type LoanResponse struct {
	ID   int64  `json:"id"`
	Ref  string `json:"ref"`
	Kind string `json:"kind"`
	// by_cartel なら borrower、to_cartel なら owner
	PersonRole  string     `json:"person_role"`
	PersonID    int64      `json:"person_id"`
	FirstName   string     `json:"firstname"`
	Surname     string     `json:"surname"`
	CopyID      *int64     `json:"copy_id,omitempty"`
	ItemName    string     `json:"item_name"`
	ItemBarcode string     `json:"item_barcode"`
	LoanDate    time.Time  `json:"loan_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Active      bool       `json:"active"`
}

func toResponse(v library.LoanView) LoanResponse {
	role := "borrower"
	if v.Kind == library.LoanToCartel {
		role = "owner"
	}
	return LoanResponse{
		ID:          v.ID,
		Ref:         v.Ref,
		Kind:        string(v.Kind),
		PersonRole:  role,
		PersonID:    v.PersonID,
		FirstName:   v.FirstName,
		Surname:     v.Surname,
		CopyID:      v.CopyID,
		ItemName:    v.ItemName,
		ItemBarcode: v.ItemBarcode,
		LoanDate:    v.LoanDate,
		EndDate:     v.EndDate,
		Active:      v.Active(),
	}
}

type AvailabilityResponse struct {
	CopyID      int64  `json:"copy_id"`
	State       string `json:"state"`
	Borrowable  bool   `json:"borrowable"`
	CanTakeIn   bool   `json:"can_take_in"`
	Consultable bool   `json:"consultable"`
}

func toAvailabilityResponse(a *Availability) AvailabilityResponse {
	return AvailabilityResponse{
		CopyID:      a.CopyID,
		State:       string(a.State),
		Borrowable:  a.Borrowable,
		CanTakeIn:   a.CanTakeIn,
		Consultable: a.Consultable,
	}
}
