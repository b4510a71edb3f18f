package auth

import (
	"context"
	"crypto/subtle"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"cartel-backend/internal/platform/apperr"
	"cartel-backend/internal/platform/config"
)

const RoleAdmin = "admin"

// 存在しないユーザーでも bcrypt を1回走らせて応答時間を揃える
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("cartel-dummy-password"), bcrypt.MinCost)

// Service authenticates the single administrative account from the
// configuration and issues HS256 tokens for it.
type Service struct {
	user   string
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(cfg config.AuthConfig) *Service {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		user:   cfg.AdminUser,
		hash:   []byte(cfg.AdminPasswordHash),
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *Service) Secret() []byte { return s.secret }

// Login checks the credentials and returns a signed token with its expiry.
func (s *Service) Login(ctx context.Context, user, password string) (string, time.Time, error) {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.user)) == 1
	hash := s.hash
	if !userOK {
		hash = dummyHash
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !userOK {
		log.Printf("[WARN] login failed for %q", user)
		return "", time.Time{}, apperr.ErrUnauthorized("invalid username or password")
	}

	exp := s.now().Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  s.user,
		"role": RoleAdmin,
		"exp":  exp.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, apperr.ErrInternal("sign token")
	}
	return signed, exp, nil
}

// HashPassword produces the value expected in auth.admin_password_hash.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
