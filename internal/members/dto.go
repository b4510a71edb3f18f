package members

import "cartel-backend/internal/library"

type PersonRequest struct {
	FirstName string `json:"firstname" binding:"required"`
	Surname   string `json:"surname" binding:"required"`
	Contact   string `json:"contact"`
	Caution   *int   `json:"caution,omitempty"` // 省略時 0、負数は不可
}

type PersonResponse struct {
	ID                int64  `json:"id"`
	FirstName         string `json:"firstname"`
	Surname           string `json:"surname"`
	Contact           string `json:"contact"`
	Caution           int    `json:"caution"`
	LoanByCartelCount int    `json:"loan_by_cartel_count"`
	LoanToCartelCount int    `json:"loan_to_cartel_count"`
}

func toResponse(v library.PersonView) PersonResponse {
	return PersonResponse{
		ID:                v.ID,
		FirstName:         v.FirstName,
		Surname:           v.Surname,
		Contact:           v.Contact,
		Caution:           v.Caution,
		LoanByCartelCount: v.LoanByCartelCount,
		LoanToCartelCount: v.LoanToCartelCount,
	}
}
