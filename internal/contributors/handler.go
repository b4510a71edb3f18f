package contributors

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cartel-backend/internal/platform/httpx"
)

type Handler struct{ svc *Service }

func RegisterRoutes(public, protected gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	public.GET("/contributors", h.List)
	public.GET("/contributors/:id", h.Get)
	protected.POST("/contributors", h.Add)
	protected.POST("/contributors/find-or-create", h.FindOrCreate)
	protected.PUT("/contributors/:id", h.Update)
	protected.DELETE("/contributors/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), c.Query("kind"), c.Query("name"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": resp, "total": len(resp)})
}

func (h *Handler) Get(c *gin.Context) {
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		httpx.Error(c, err)
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Add(c *gin.Context) {
	var req ContributorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	resp, err := h.svc.Add(c.Request.Context(), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Created(c, "/api/v1/contributors/"+strconv.FormatInt(resp.ID, 10), resp)
}

// 既存なら 200、作成したら 201
func (h *Handler) FindOrCreate(c *gin.Context) {
	var req ContributorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	resp, created, err := h.svc.FindOrCreate(c.Request.Context(), req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if created {
		httpx.Created(c, "/api/v1/contributors/"+strconv.FormatInt(resp.ID, 10), resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		httpx.Error(c, err)
		return
	}
	var req UpdateContributorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
