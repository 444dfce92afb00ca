package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskchat/internal/apperr"
	"taskchat/internal/config"
	"taskchat/internal/database"
	"taskchat/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func newTestService(t *testing.T) (*Service, *database.MemoryDB) {
	t.Helper()
	db := database.NewMemoryDB()
	svc := NewService(db, config.JWTConfig{Secret: testSecret, ExpiresIn: time.Hour, CookieName: "token"})
	return svc, db
}

func signClaims(t *testing.T, secret []byte, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &models.RegisterRequest{Username: " alice ", Email: "alice@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if resp.User.Username != "alice" || resp.Token == "" {
		t.Fatalf("unexpected register response: %+v", resp)
	}

	login, err := svc.Login(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if login.User.PasswordHash != "" {
		t.Error("password hash leaked from Login")
	}

	identity, err := svc.VerifyToken(login.Token)
	if err != nil {
		t.Fatalf("VerifyToken() error: %v", err)
	}
	if identity.UserID != resp.User.ID || identity.Username != "alice" {
		t.Errorf("identity = %+v, want user %d alice", identity, resp.User.ID)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.Register(ctx, &models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"})

	for _, req := range []*models.LoginRequest{
		{Email: "alice@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "password123"},
	} {
		if _, err := svc.Login(ctx, req); !errors.Is(err, apperr.ErrAuth) {
			t.Errorf("Login(%s) error = %v, want auth error", req.Email, err)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	tests := []models.RegisterRequest{
		{Username: "", Email: "a@example.com", Password: "password123"},
		{Username: "alice", Email: "not-an-email", Password: "password123"},
		{Username: "alice", Email: "a@example.com", Password: "short"},
		{Username: "al", Email: "a@example.com", Password: "password123"},
	}
	for _, req := range tests {
		req := req
		if _, err := svc.Register(context.Background(), &req); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Register(%+v) error = %v, want validation error", req, err)
		}
	}
}

func TestVerifyToken(t *testing.T) {
	svc, _ := newTestService(t)
	valid := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	tests := []struct {
		name    string
		token   string
		wantErr bool
		wantID  int64
	}{
		{name: "valid", token: signClaims(t, testSecret, Claims{UserID: 5, Username: "eve", RegisteredClaims: valid}), wantID: 5},
		{name: "legacy id claim", token: signClaims(t, testSecret, Claims{LegacyID: 6, Username: "eve", RegisteredClaims: valid}), wantID: 6},
		{name: "missing user id", token: signClaims(t, testSecret, Claims{Username: "eve", RegisteredClaims: valid}), wantID: 0},
		{name: "empty", token: "", wantErr: true},
		{name: "garbage", token: "not.a.jwt", wantErr: true},
		{name: "wrong secret", token: signClaims(t, []byte("other"), Claims{UserID: 5, RegisteredClaims: valid}), wantErr: true},
		{name: "expired", token: signClaims(t, testSecret, Claims{UserID: 5, RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}), wantErr: true},
		{name: "no expiry", token: signClaims(t, testSecret, Claims{UserID: 5}), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := svc.VerifyToken(tt.token)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrAuth) {
					t.Fatalf("expected auth error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyToken() error: %v", err)
			}
			if identity.UserID != tt.wantID {
				t.Errorf("UserID = %d, want %d", identity.UserID, tt.wantID)
			}
		})
	}
}

func TestAuthenticateReadsCookieAndBearer(t *testing.T) {
	svc, _ := newTestService(t)
	token, _ := svc.IssueToken(&models.User{ID: 3, Username: "carol"})

	cookieReq := httptest.NewRequest(http.MethodGet, "/", nil)
	cookieReq.AddCookie(&http.Cookie{Name: "token", Value: token})
	if id, err := svc.Authenticate(cookieReq); err != nil || id.UserID != 3 {
		t.Errorf("cookie auth = %+v, %v", id, err)
	}

	bearerReq := httptest.NewRequest(http.MethodGet, "/", nil)
	bearerReq.Header.Set("Authorization", "Bearer "+token)
	if id, err := svc.Authenticate(bearerReq); err != nil || id.UserID != 3 {
		t.Errorf("bearer auth = %+v, %v", id, err)
	}

	anonymous := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := svc.Authenticate(anonymous); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("expected auth error without credentials, got %v", err)
	}

	noID := signClaims(t, testSecret, Claims{Username: "ghost", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	noIDReq := httptest.NewRequest(http.MethodGet, "/", nil)
	noIDReq.AddCookie(&http.Cookie{Name: "token", Value: noID})
	if _, err := svc.Authenticate(noIDReq); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("expected auth error for token without user id, got %v", err)
	}
}
