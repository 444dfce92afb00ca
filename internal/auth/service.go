package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"taskchat/internal/apperr"
	"taskchat/internal/config"
	"taskchat/internal/database"
	"taskchat/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingToken = apperr.Auth("authenticate", "missing token", nil)
	ErrInvalidToken = apperr.Auth("authenticate", "invalid token", nil)
	errBadLogin     = apperr.Auth("login", "invalid credentials", nil)
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Claims is the session token payload. LegacyID accepts tokens that
// carry the user id under "id".
type Claims struct {
	UserID   int64  `json:"userId,omitempty"`
	LegacyID int64  `json:"id,omitempty"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Service struct {
	users database.UserRepository
	cfg   config.JWTConfig
	now   func() time.Time
}

func NewService(users database.UserRepository, cfg config.JWTConfig) *Service {
	return &Service{
		users: users,
		cfg:   cfg,
		now:   time.Now,
	}
}

// CookieName is the cookie carrying the session token.
func (s *Service) CookieName() string {
	if s.cfg.CookieName == "" {
		return "token"
	}
	return s.cfg.CookieName
}

func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error) {
	// Validate input
	if err := validateRegistrationRequest(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, req.Username, req.Email, string(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	user.PasswordHash = ""
	return &models.LoginResponse{
		Token: token,
		User:  *user,
	}, nil
}

func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	// Get user by email
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, errBadLogin
		}
		return nil, err
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errBadLogin
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// Remove sensitive data
	user.PasswordHash = ""

	return &models.LoginResponse{
		Token: token,
		User:  *user,
	}, nil
}

// IssueToken signs a session token for user.
func (s *Service) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ExpiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.Secret)
}

// VerifyToken checks the signature and expiry of tokenString and returns
// the identity it carries. A well-signed token without a user id yields
// an Identity whose Valid reports false; callers decide how to treat it.
func (s *Service) VerifyToken(tokenString string) (models.Identity, error) {
	if strings.TrimSpace(tokenString) == "" {
		return models.Identity{}, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.Secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return models.Identity{}, apperr.Auth("authenticate", "invalid token", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return models.Identity{}, ErrInvalidToken
	}

	userID := claims.UserID
	if userID == 0 {
		userID = claims.LegacyID
	}
	return models.Identity{
		UserID:   userID,
		Username: claims.Username,
	}, nil
}

// TokenFromRequest reads the session token from the cookie, falling back
// to an "Authorization: Bearer" header.
func (s *Service) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(s.CookieName()); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// Authenticate resolves the identity of an HTTP request. Unlike the
// websocket gate it rejects tokens without a user id.
func (s *Service) Authenticate(r *http.Request) (models.Identity, error) {
	identity, err := s.VerifyToken(s.TokenFromRequest(r))
	if err != nil {
		return models.Identity{}, err
	}
	if !identity.Valid() {
		return models.Identity{}, apperr.Auth("authenticate", "invalid token structure", nil)
	}
	return identity, nil
}

// SessionCookie builds the cookie set at login.
func (s *Service) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     s.CookieName(),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.ExpiresIn.Seconds()),
	}
}

// ClearedCookie expires the session cookie.
func (s *Service) ClearedCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.CookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}

func validateRegistrationRequest(req *models.RegisterRequest) error {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return apperr.Validation("register", "missing required fields")
	}

	// Validate email format
	req.Email = strings.TrimSpace(req.Email)
	if !emailRegex.MatchString(req.Email) {
		return apperr.Validation("register", "invalid email format")
	}

	// Validate password strength
	if len(req.Password) < 8 {
		return apperr.Validation("register", "password must be at least 8 characters long")
	}

	// Sanitize and validate username
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 || len(req.Username) > 30 {
		return apperr.Validation("register", "username must be 3-30 characters long")
	}

	return nil
}
