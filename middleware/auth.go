package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"deckeditor/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserIDKey contextKey = "userID"

const (
	Realm           = "Sli.dev Editor"
	DefaultTokenTTL = 12 * time.Hour
	anonymousUser   = "editor"
)

// Auth guards the editor with a single shared password. Clients send it as HTTP
// Basic credentials (any username) or exchange it for a bearer token first.
// An empty password disables the check.
type Auth struct {
	Password string
	TokenTTL time.Duration
	now      func() time.Time
}

func NewAuth(password string) *Auth {
	return &Auth{Password: password, TokenTTL: DefaultTokenTTL, now: time.Now}
}

// Enabled reports whether requests need credentials.
func (a *Auth) Enabled() bool {
	return a.Password != ""
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, withUser(r, anonymousUser))
			return
		}

		// Browsers cannot set headers on websocket upgrades, so the token may
		// come in the query string.
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if tokenString != "" {
			userID, err := a.parseToken(tokenString)
			if err != nil {
				logger.Sugar.Debugf("Invalid token: %v", err)
				a.challenge(w, "Unauthorized: Invalid or expired token")
				return
			}
			next.ServeHTTP(w, withUser(r, userID))
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(password), []byte(a.Password)) != 1 {
			a.challenge(w, "Unauthorized")
			return
		}
		if username == "" {
			username = anonymousUser
		}
		next.ServeHTTP(w, withUser(r, username))
	})
}

// IssueToken signs an HS256 token for userID with the editor password as secret.
func (a *Auth) IssueToken(userID string) (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.Password))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session issues a bearer token to a caller that already passed Middleware.
func (a *Auth) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !a.Enabled() {
		http.Error(w, "Authentication is disabled", http.StatusNotFound)
		return
	}

	userID, _ := r.Context().Value(UserIDKey).(string)
	token, expires, err := a.IssueToken(userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to sign session token: %v", err)
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionResponse{Token: token, ExpiresAt: expires})
}

func (a *Auth) parseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.Password), nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("token is not valid")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("subject claim is missing")
	}
	return sub, nil
}

func (a *Auth) challenge(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm=%q`, Realm))
	http.Error(w, msg, http.StatusUnauthorized)
}

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
}
