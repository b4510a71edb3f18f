// Package httpx holds the gin helpers shared by the feature handlers: error
// rendering, query parameter parsing and the request-id / access-log
// middleware.
package httpx

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/query"
)

const (
	HeaderRequestID = "X-Request-ID"
	CtxRequestIDKey = "request_id"
)

// ===== responses =====

// Error writes err as the JSON error envelope. Unexpected errors are logged
// with the request id and rendered as INTERNAL.
func Error(c *gin.Context, err error) {
	status := apperr.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s (req=%s): %v", c.Request.Method, c.Request.URL.Path, RequestIDOf(c), err)
	}
	c.JSON(status, apperr.From(err))
}

// BadJSON answers a body that failed ShouldBindJSON.
func BadJSON(c *gin.Context, err error) {
	log.Printf("[WARN] %s %s: bind error: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusBadRequest, apperr.Body(apperr.CodeInvalidArgument, "invalid json"))
}

// Created sets Location and answers 201.
func Created(c *gin.Context, location string, body any) {
	c.Header("Location", location)
	c.JSON(http.StatusCreated, body)
}

// ===== params =====

// ParamID reads a positive integer path parameter.
func ParamID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.ErrInvalid(name + " must be a positive integer")
	}
	return id, nil
}

func Page(c *gin.Context) (query.Page, error) {
	return query.ParsePage(c.Query("page"), c.Query("size"))
}

// Sort reads ?sort=&order= against the whitelist.
func Sort[T any](c *gin.Context, sorts query.Sorts[T], def query.Sort) (query.Sort, error) {
	return sorts.Parse(c.Query("sort"), c.Query("order"), def)
}

// OptString returns nil for an absent or blank parameter.
func OptString(c *gin.Context, key string) *string {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	return &v
}

func OptInt(c *gin.Context, key string) (*int, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apperr.ErrInvalid(key + " must be an integer")
	}
	return &n, nil
}

func OptInt64(c *gin.Context, key string) (*int64, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, apperr.ErrInvalid(key + " must be an integer")
	}
	return &n, nil
}

func OptBool(c *gin.Context, key string) (*bool, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apperr.ErrInvalid(key + " must be true or false")
	}
	return &b, nil
}

// 日付は YYYY-MM-DD か RFC3339
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02"}

func OptTime(c *gin.Context, key string) (*time.Time, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.ErrInvalid(fmt.Sprintf("%s must be YYYY-MM-DD or RFC3339", key))
}

// ===== middleware =====

// RequestID reuses an incoming X-Request-ID or issues a new UUID, and echoes
// it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(CtxRequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func RequestIDOf(c *gin.Context) string {
	return c.GetString(CtxRequestIDKey)
}

// AccessLog is gin's logger with the request id appended.
func AccessLog() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		id, _ := p.Keys[CtxRequestIDKey].(string)
		return fmt.Sprintf("[GIN] %s | %3d | %13v | %15s | %-7s %#v req=%s %s\n",
			p.TimeStamp.Format("2006/01/02 - 15:04:05"),
			p.StatusCode,
			p.Latency,
			p.ClientIP,
			p.Method,
			p.Path,
			id,
			p.ErrorMessage,
		)
	})
}
