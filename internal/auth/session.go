// Package auth resolves who is making a request. Handlers only see the
// SessionProvider interface, so the cookie/JWT mechanics stay here.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const CookieName = "session"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNoSession means the request carries no usable session; the
	// requester is anonymous.
	ErrNoSession = errors.New("no valid session")
)

type SessionProvider interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	Establish(w http.ResponseWriter, user *models.User) error
	Destroy(w http.ResponseWriter)
	Current(r *http.Request) (*models.User, error)
}

// UserLookup is the part of the user repository sessions need.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// JWTSessions keeps the user id in an HS256 signed token, carried in an
// HttpOnly cookie or an "Authorization: Bearer" header.
type JWTSessions struct {
	Users  UserLookup
	Secret []byte
	TTL    time.Duration
	Secure bool
}

func NewJWTSessions(users UserLookup, secret string, ttl time.Duration, secure bool) *JWTSessions {
	return &JWTSessions{Users: users, Secret: []byte(secret), TTL: ttl, Secure: secure}
}

// compared against when the username is unknown so both failure paths cost
// one bcrypt comparison
var dummyHash, _ = HashPassword("dummy-password-for-timing")

func (s *JWTSessions) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.Users.GetByUsername(ctx, username)
	if errors.Is(err, db.ErrNotFound) {
		CheckPassword(dummyHash, password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *JWTSessions) Establish(w http.ResponseWriter, user *models.User) error {
	token, err := s.IssueToken(user.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *JWTSessions) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Current returns the user behind the request. ErrNoSession is returned for
// anonymous requests, including ones with bad or expired tokens.
func (s *JWTSessions) Current(r *http.Request) (*models.User, error) {
	tokenString := tokenFromRequest(r)
	if tokenString == "" {
		return nil, ErrNoSession
	}
	userID, err := s.parseToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	user, err := s.Users.GetByID(r.Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user %s", ErrNoSession, userID)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// IssueToken signs a session token for userID.
func (s *JWTSessions) IssueToken(userID uuid.UUID) (string, error) {
	if len(s.Secret) == 0 {
		return "", errors.New("session secret is not set")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
	})
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return signed, nil
}

func (s *JWTSessions) parseToken(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return uuid.Nil, errors.New("token missing sub")
	}
	return uuid.Parse(claims.Subject)
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}
