package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/httpx"
)

type Handler struct{ svc *Service }

func RegisterRoutes(public, protected gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// items
	public.GET("/items", h.SearchItems)
	public.GET("/items/:barcode", h.GetItem)
	protected.POST("/items/books", h.AddBook)
	protected.POST("/items/games", h.AddGame)
	protected.POST("/items/extensions", h.AddExtension)
	protected.POST("/items/import/:barcode", h.ImportItem)
	protected.PUT("/items/:barcode", h.UpdateItem)
	protected.DELETE("/items/:barcode", h.DeleteItem)

	// copies（/copies/:id は loans の availability と param 名を揃える）
	public.GET("/items/:barcode/copies", h.ListCopies)
	public.GET("/copies/:id", h.GetCopy)
	protected.POST("/items/:barcode/copies", h.AddCopy)
	protected.PUT("/copies/:id", h.UpdateCopy)
	protected.DELETE("/copies/:id", h.DeleteCopy)

	// exchange
	protected.PUT("/items/:barcode/exchange", h.SetExchange)
	protected.DELETE("/items/:barcode/exchange", h.ClearExchange)
}

// ===== items =====

func (h *Handler) AddBook(c *gin.Context) {
	var req AddBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	h.created(c)(h.svc.AddBook(c.Request.Context(), req))
}

func (h *Handler) AddGame(c *gin.Context) {
	var req AddGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	h.created(c)(h.svc.AddGame(c.Request.Context(), req))
}

func (h *Handler) AddExtension(c *gin.Context) {
	var req AddExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	h.created(c)(h.svc.AddExtension(c.Request.Context(), req))
}

func (h *Handler) created(c *gin.Context) func(*ItemResponse, error) {
	return func(res *ItemResponse, err error) {
		if err != nil {
			httpx.Error(c, err)
			return
		}
		httpx.Created(c, itemLocation(res.Barcode), res)
	}
}

// 既存なら 200、BnF から作成したら 201
func (h *Handler) ImportItem(c *gin.Context) {
	res, created, err := h.svc.ImportItem(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	body := ImportResponse{Created: created, Item: res}
	if created {
		httpx.Created(c, itemLocation(res.Barcode), body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) GetItem(c *gin.Context) {
	res, err := h.svc.GetItem(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	res, err := h.svc.UpdateItem(c.Request.Context(), c.Param("barcode"), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteItem(c *gin.Context) {
	if err := h.svc.DeleteItem(c.Request.Context(), c.Param("barcode")); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SearchItems(c *gin.Context) {
	f, err := itemFilterFrom(c)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	p, err := httpx.Page(c)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	srt, err := httpx.Sort(c, library.ItemSorts, library.DefaultItemSort)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	res, err := h.svc.SearchItems(c.Request.Context(), f, p, srt)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func itemFilterFrom(c *gin.Context) (library.ItemFilter, error) {
	f := library.ItemFilter{
		Title:                httpx.OptString(c, "title"),
		Format:               httpx.OptString(c, "format"),
		Category:             httpx.OptString(c, "category"),
		Publisher:            httpx.OptString(c, "publisher"),
		Series:               httpx.OptString(c, "series"),
		Genre:                httpx.OptString(c, "genre"),
		AuthorFirstName:      httpx.OptString(c, "author_firstname"),
		AuthorSurname:        httpx.OptString(c, "author_surname"),
		IllustratorFirstName: httpx.OptString(c, "illustrator_firstname"),
		IllustratorSurname:   httpx.OptString(c, "illustrator_surname"),
	}
	if v := httpx.OptString(c, "kind"); v != nil {
		k := library.ItemKind(*v)
		f.Kind = &k
	}
	ranges := []struct {
		key string
		dst **int
	}{
		{"min_players", &f.Players.Min},
		{"max_players", &f.Players.Max},
		{"min_playtime", &f.PlayTime.Min},
		{"max_playtime", &f.PlayTime.Max},
	}
	for _, r := range ranges {
		v, err := httpx.OptInt(c, r.key)
		if err != nil {
			return library.ItemFilter{}, err
		}
		*r.dst = v
	}
	return f, nil
}

func itemLocation(barcode string) string { return "/api/v1/items/" + barcode }

// ===== copies =====

func (h *Handler) AddCopy(c *gin.Context) {
	var req AddCopyRequest
	// 本文なしも許可（既定値で作成）
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadJSON(c, err)
			return
		}
	}
	res, err := h.svc.AddCopy(c.Request.Context(), c.Param("barcode"), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Created(c, "/api/v1/copies/"+strconv.FormatInt(res.ID, 10), res)
}

func (h *Handler) GetCopy(c *gin.Context) {
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		httpx.Error(c, err)
		return
	}
	res, err := h.svc.GetCopy(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListCopies(c *gin.Context) {
	res, err := h.svc.ListCopies(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "total": len(res)})
}

func (h *Handler) UpdateCopy(c *gin.Context) {
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		httpx.Error(c, err)
		return
	}
	var req UpdateCopyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	res, err := h.svc.UpdateCopy(c.Request.Context(), id, req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteCopy(c *gin.Context) {
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if err := h.svc.DeleteCopy(c.Request.Context(), id); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ===== exchange =====

func (h *Handler) SetExchange(c *gin.Context) {
	var req ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	res, err := h.svc.SetExchange(c.Request.Context(), c.Param("barcode"), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ClearExchange(c *gin.Context) {
	if err := h.svc.ClearExchange(c.Request.Context(), c.Param("barcode")); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
