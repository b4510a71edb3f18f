package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartel-backend/internal/platform/apperr"
)

func init() { gin.SetMode(gin.TestMode) }

func ctxFor(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func Test_Error_RendersEnvelope(t *testing.T) {
	c, w := ctxFor("/x")
	Error(c, apperr.ErrNotFound("loan", 7))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body apperr.ErrDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperr.CodeNotFound, body.Error.Code)
	assert.Equal(t, "loan", body.Error.Entity)
	assert.Equal(t, "7", body.Error.Key)
}

func Test_Error_HidesUnexpectedErrors(t *testing.T) {
	c, w := ctxFor("/x")
	Error(c, errors.New("dial tcp: refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "refused")
}

func Test_ParamID(t *testing.T) {
	cases := map[string]bool{"12": true, "0": false, "-3": false, "abc": false}
	for raw, ok := range cases {
		c, _ := ctxFor("/x")
		c.Params = gin.Params{{Key: "id", Value: raw}}
		id, err := ParamID(c, "id")
		if ok {
			require.NoError(t, err, raw)
			assert.EqualValues(t, 12, id)
		} else {
			assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument), raw)
		}
	}
}

func Test_OptionalParams(t *testing.T) {
	c, _ := ctxFor("/x?name=%20doe%20&n=4&big=9000000000&active=false&from=2024-03-01&blank=")

	assert.Equal(t, "doe", *OptString(c, "name"))
	assert.Nil(t, OptString(c, "blank"))
	assert.Nil(t, OptString(c, "missing"))

	n, err := OptInt(c, "n")
	require.NoError(t, err)
	assert.Equal(t, 4, *n)

	big, err := OptInt64(c, "big")
	require.NoError(t, err)
	assert.EqualValues(t, 9000000000, *big)

	active, err := OptBool(c, "active")
	require.NoError(t, err)
	assert.False(t, *active)

	from, err := OptTime(c, "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *from)

	missing, err := OptInt(c, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func Test_OptionalParams_Invalid(t *testing.T) {
	c, _ := ctxFor("/x?n=four&active=maybe&from=yesterday")

	_, err := OptInt(c, "n")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	_, err = OptBool(c, "active")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	_, err = OptTime(c, "from")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}

func Test_RequestID_IssuesAndEchoes(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, RequestIDOf(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	issued := w.Header().Get(HeaderRequestID)
	assert.Len(t, issued, 36)
	assert.Equal(t, issued, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "abc-123", w.Body.String())
}
