package catalog

import (
	"time"

	"cartel-backend/internal/library"
)

// ===== Requests =====

type PersonName struct {
	FirstName string `json:"firstname"`
	Surname   string `json:"surname"`
}

// ContributorsInput は名前で受け取り、サービス側で find-or-create する
type ContributorsInput struct {
	Authors      []PersonName `json:"authors,omitempty"`
	Illustrators []PersonName `json:"illustrators,omitempty"`
	Publishers   []string     `json:"publishers,omitempty"`
	Genres       []string     `json:"genres,omitempty"`
	Series       []string     `json:"series,omitempty"`
}

type ItemFields struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Year        *int   `json:"year,omitempty"`
	Language    string `json:"language"`
	ImageURL    string `json:"image_url"`
}

type BookFields struct {
	Format   string `json:"format"`
	Category string `json:"category"`
}

type GameFields struct {
	MinPlayers  int      `json:"min_players"`
	MaxPlayers  int      `json:"max_players"`
	MinPlayTime int      `json:"min_playtime"`
	MaxPlayTime int      `json:"max_playtime"`
	Categories  []string `json:"categories,omitempty"`
}

type AddBookRequest struct {
	Barcode string `json:"barcode" binding:"required"`
	ItemFields
	BookFields
	Contributors ContributorsInput `json:"contributors"`
}

type AddGameRequest struct {
	Barcode string `json:"barcode" binding:"required"`
	ItemFields
	GameFields
	Contributors ContributorsInput `json:"contributors"`
}

type AddExtensionRequest struct {
	Barcode  string `json:"barcode" binding:"required"`
	BaseGame string `json:"base_game" binding:"required"`
	ItemFields
	GameFields
	Contributors ContributorsInput `json:"contributors"`
}

// UpdateItemRequest replaces the common fields. Book / Game / Contributors
// are only touched when present.
type UpdateItemRequest struct {
	ItemFields
	Book         *BookFields        `json:"book,omitempty"`
	Game         *GameFields        `json:"game,omitempty"`
	Contributors *ContributorsInput `json:"contributors,omitempty"`
}

// 省略時はどちらも true
type AddCopyRequest struct {
	Available  *bool `json:"available,omitempty"`
	Borrowable *bool `json:"borrowable,omitempty"`
}

type UpdateCopyRequest struct {
	Available  *bool `json:"available,omitempty"`
	Borrowable *bool `json:"borrowable,omitempty"`
}

type ExchangeRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// ===== Responses =====

type ContributorRef struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstname,omitempty"`
	Surname   string `json:"surname,omitempty"`
	Name      string `json:"name"`
}

type ContributorsResponse struct {
	Authors      []ContributorRef `json:"authors"`
	Illustrators []ContributorRef `json:"illustrators"`
	Publishers   []ContributorRef `json:"publishers"`
	Genres       []ContributorRef `json:"genres"`
	Series       []ContributorRef `json:"series"`
}

type GameResponse struct {
	GameFields
	BaseGame string `json:"base_game,omitempty"`
}

type ExchangeResponse struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type ItemResponse struct {
	Barcode      string               `json:"barcode"`
	Kind         string               `json:"kind"`
	Name         string               `json:"name"`
	Description  string               `json:"description,omitempty"`
	Year         *int                 `json:"year,omitempty"`
	Language     string               `json:"language,omitempty"`
	ImageURL     string               `json:"image_url,omitempty"`
	CopyCount    int                  `json:"copy_count"`
	Book         *BookFields          `json:"book,omitempty"`
	Game         *GameResponse        `json:"game,omitempty"`
	Contributors ContributorsResponse `json:"contributors"`
	Exchange     *ExchangeResponse    `json:"exchange,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

type CopyResponse struct {
	ID         int64     `json:"id"`
	Barcode    string    `json:"barcode"`
	Available  bool      `json:"available"`
	Borrowable bool      `json:"borrowable"`
	CreatedAt  time.Time `json:"created_at"`
}

type ImportResponse struct {
	Created bool          `json:"created"`
	Item    *ItemResponse `json:"item"`
}

// ===== mapping =====

func toItemResponse(v library.ItemView) ItemResponse {
	r := ItemResponse{
		Barcode:     v.Barcode,
		Kind:        string(v.Kind),
		Name:        v.Name,
		Description: v.Description,
		Year:        v.Year,
		Language:    v.Language,
		ImageURL:    v.ImageURL,
		CopyCount:   v.CopyCount,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
		Contributors: ContributorsResponse{
			Authors:      refs(v.ContributorsOf(library.ContributorAuthor)),
			Illustrators: refs(v.ContributorsOf(library.ContributorIllustrator)),
			Publishers:   refs(v.ContributorsOf(library.ContributorPublisher)),
			Genres:       refs(v.ContributorsOf(library.ContributorGenre)),
			Series:       refs(v.ContributorsOf(library.ContributorSeries)),
		},
	}
	if b := v.Book; b != nil {
		r.Book = &BookFields{Format: b.Format, Category: b.Category}
	}
	if g := v.Game; g != nil {
		r.Game = &GameResponse{
			GameFields: GameFields{
				MinPlayers:  g.MinPlayers,
				MaxPlayers:  g.MaxPlayers,
				MinPlayTime: g.MinPlayTime,
				MaxPlayTime: g.MaxPlayTime,
				Categories:  g.Categories,
			},
			BaseGame: g.BaseGame,
		}
	}
	if ex := v.Exchange; ex != nil {
		r.Exchange = &ExchangeResponse{Status: string(ex.Status), Note: ex.Note}
	}
	return r
}

func refs(list []library.Contributor) []ContributorRef {
	out := make([]ContributorRef, 0, len(list))
	for _, c := range list {
		out = append(out, ContributorRef{ID: c.ID, FirstName: c.FirstName, Surname: c.Surname, Name: c.Name})
	}
	return out
}

func toCopyResponse(c library.Copy) CopyResponse {
	return CopyResponse{
		ID:         c.ID,
		Barcode:    c.Barcode,
		Available:  c.Available,
		Borrowable: c.Borrowable,
		CreatedAt:  c.CreatedAt,
	}
}
