package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/config"
)

const secret = "0123456789abcdef0123456789abcdef"

func newService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewService(config.AuthConfig{
		AdminUser:         "admin",
		AdminPasswordHash: string(hash),
		JWTSecret:         secret,
		TokenTTL:          time.Hour,
	})
	svc.now = func() time.Time { return time.Now().Truncate(time.Second) }
	return svc
}

func Test_Login(t *testing.T) {
	svc := newService(t)

	token, exp, err := svc.Login(context.Background(), "admin", "s3cret")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return []byte(secret), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "admin", claims["sub"])
	assert.Equal(t, RoleAdmin, claims["role"])

	for _, tc := range []struct{ user, pass string }{
		{"admin", "wrong"},
		{"root", "s3cret"},
		{"", ""},
	} {
		_, _, err := svc.Login(context.Background(), tc.user, tc.pass)
		assert.True(t, apperr.Is(err, apperr.CodeUnauthorized), "%s/%s: %v", tc.user, tc.pass, err)
	}
}

func Test_HashPassword(t *testing.T) {
	h, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("pw")))
}

func sign(t *testing.T, key string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func Test_RequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", RequireAuth([]byte(secret)), RequireRole(RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserIDKey))
	})
	future := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"other key", "Bearer " + sign(t, "another-key", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin", "role": "admin", "exp": future}), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin", "role": "admin", "exp": time.Now().Add(-time.Minute).Unix()}), http.StatusUnauthorized},
		{"no exp", "Bearer " + sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin", "role": "admin"}), http.StatusUnauthorized},
		{"hs512", "Bearer " + sign(t, secret, jwt.SigningMethodHS512, jwt.MapClaims{"sub": "admin", "role": "admin", "exp": future}), http.StatusUnauthorized},
		{"no sub", "Bearer " + sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin", "exp": future}), http.StatusUnauthorized},
		{"wrong role", "Bearer " + sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "bob", "role": "user", "exp": future}), http.StatusForbidden},
		{"ok", "Bearer " + sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin", "role": "admin", "exp": future}), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "admin", w.Body.String())
				return
			}
			var body apperr.ErrDTO
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			want := apperr.CodeUnauthorized
			if tc.status == http.StatusForbidden {
				want = apperr.CodeForbidden
			}
			assert.Equal(t, want, body.Error.Code)
		})
	}
}

func Test_Handler_Login(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newService(t))

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"username":"admin","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Token)

	assert.Equal(t, http.StatusUnauthorized, post(`{"username":"admin","password":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"username":"admin"}`).Code)
}
