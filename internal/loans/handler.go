package loans

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cartel-backend/internal/library"
	"cartel-backend/internal/platform/httpx"
)

type Handler struct{ svc *Service }

// URL 上の向き
var kindPaths = map[library.LoanKind]string{
	library.LoanByCartel: "/loans/by-cartel",
	library.LoanToCartel: "/loans/to-cartel",
}

func RegisterRoutes(public, protected gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	for kind, base := range kindPaths {
		public.GET(base, h.List(kind))
		public.GET(base+"/:id", h.Get(kind))
		protected.POST(base+"/:id/complete", h.Complete(kind))
		protected.DELETE(base+"/:id", h.Remove(kind))
	}
	protected.POST("/loans/by-cartel", h.CreateByCartel)
	protected.POST("/loans/to-cartel", h.CreateToCartel)
	protected.POST("/loans/to-cartel/:id/cancel", h.CancelToCartel)

	public.GET("/copies/:id/availability", h.Availability)
}

func (h *Handler) CreateByCartel(c *gin.Context) {
	var req CreateByCartelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	res, err := h.svc.CreateByCartel(c.Request.Context(), req.PersonID, req.CopyID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Created(c, "/api/v1/loans/by-cartel/"+strconv.FormatInt(res.ID, 10), res)
}

func (h *Handler) CreateToCartel(c *gin.Context) {
	var req CreateToCartelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadJSON(c, err)
		return
	}
	res, err := h.svc.CreateToCartel(c.Request.Context(), req.PersonID, req.Barcode)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.Created(c, "/api/v1/loans/to-cartel/"+strconv.FormatInt(res.ID, 10), res)
}

// :id は数値IDでも ref(ULID) でも良い
func (h *Handler) Get(kind library.LoanKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := h.svc.Get(c.Request.Context(), kind, c.Param("id"))
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) List(kind library.LoanKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := loanFilterFrom(c)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		p, err := httpx.Page(c)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		srt, err := httpx.Sort(c, library.LoanSorts, library.DefaultLoanSort)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		res, err := h.svc.Search(c.Request.Context(), kind, f, p, srt)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) Complete(kind library.LoanKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			httpx.Error(c, err)
			return
		}
		res, err := h.svc.Complete(c.Request.Context(), kind, id)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) Remove(kind library.LoanKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			httpx.Error(c, err)
			return
		}
		if err := h.svc.Remove(c.Request.Context(), kind, id); err != nil {
			httpx.Error(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) CancelToCartel(c *gin.Context) {
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		httpx.Error(c, err)
		return
	}
	if err := h.svc.CancelToCartel(c.Request.Context(), id); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Availability(c *gin.Context) {
	id, err := httpx.ParamID(c, "id")
	if err != nil {
		httpx.Error(c, err)
		return
	}
	a, err := h.svc.Availability(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, toAvailabilityResponse(a))
}

func loanFilterFrom(c *gin.Context) (library.LoanFilter, error) {
	f := library.LoanFilter{
		Item:      httpx.OptString(c, "item"),
		FirstName: httpx.OptString(c, "firstname"),
		Surname:   httpx.OptString(c, "surname"),
	}
	var err error
	if f.PersonID, err = httpx.OptInt64(c, "person_id"); err != nil {
		return f, err
	}
	if f.StartBefore, err = httpx.OptTime(c, "start_before"); err != nil {
		return f, err
	}
	if f.StartAfter, err = httpx.OptTime(c, "start_after"); err != nil {
		return f, err
	}
	if f.EndBefore, err = httpx.OptTime(c, "end_before"); err != nil {
		return f, err
	}
	if f.EndAfter, err = httpx.OptTime(c, "end_after"); err != nil {
		return f, err
	}
	if f.Active, err = httpx.OptBool(c, "active"); err != nil {
		return f, err
	}
	return f, nil
}
