package contributors

import "cartel-backend/internal/library"

type ContributorRequest struct {
	Kind      string `json:"kind" binding:"required"`
	FirstName string `json:"firstname"`
	Surname   string `json:"surname"`
	Name      string `json:"name"`
}

type UpdateContributorRequest struct {
	FirstName string `json:"firstname"`
	Surname   string `json:"surname"`
	Name      string `json:"name"`
}

type ContributorResponse struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	FirstName string `json:"firstname,omitempty"`
	Surname   string `json:"surname,omitempty"`
	Name      string `json:"name"`
}

func toResponse(c library.Contributor) ContributorResponse {
	return ContributorResponse{
		ID:        c.ID,
		Kind:      string(c.Kind),
		FirstName: c.FirstName,
		Surname:   c.Surname,
		Name:      c.Name,
	}
}
