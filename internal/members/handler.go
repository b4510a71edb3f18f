package members

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
	public.GET("/persons", h.Search)
	public.GET("/persons/:id", h.Get)
	protected.POST("/persons", h.Create)
	protected.PUT("/persons/:id", h.Update)
	protected.DELETE("/persons/:id", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var req PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	res, err := h.svc.CreatePerson(c.Request.Context(), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Created(c, "/api/v1/persons/"+strconv.FormatInt(res.ID, 10), res)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		httpx.Error(c, err)
		return
	}
	res, err := h.svc.GetPerson(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		httpx.Error(c, err)
		return
	}
	var req PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	res, err := h.svc.UpdatePerson(c.Request.Context(), id, req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if err := h.svc.DeletePerson(c.Request.Context(), id); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /persons?name=&page=&size=&sort=&order=
func (h *Handler) Search(c *gin.Context) {
	p, err := httpx.Page(c)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	srt, err := httpx.Sort(c, library.PersonSorts, library.DefaultPersonSort)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	f := library.PersonFilter{Name: httpx.OptString(c, "name")}
	res, err := h.svc.SearchPersons(c.Request.Context(), f, p, srt)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
