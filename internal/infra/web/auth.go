package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminRole         = "admin"
	sessionCookieName = "admin_session"
	defaultSessionTTL = 30 * time.Minute
)

// AuthManager issues and checks admin sessions for the single configured
// operator account.
type AuthManager struct {
	secret       []byte
	email        string
	passwordHash []byte // bcrypt
	secure       bool
	domain       string
	ttl          time.Duration
}

func NewAuthManager(secret, adminEmail, passwordHash string, secure bool, domain string, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &AuthManager{
		secret:       []byte(secret),
		email:        strings.ToLower(strings.TrimSpace(adminEmail)),
		passwordHash: []byte(passwordHash),
		secure:       secure,
		domain:       domain, // empty means a host-only cookie
		ttl:          ttl,
	}
}

var (
	errMissingSession = errors.New("missing session")
	errInvalidSession = errors.New("invalid session")
	errAuthDisabled   = errors.New("admin auth disabled")
)

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// CheckCredentials compares against the configured admin account. The bcrypt
// comparison runs even for a wrong email so both failures take equal time.
func (a *AuthManager) CheckCredentials(email, password string) bool {
	if len(a.passwordHash) == 0 || len(a.secret) == 0 {
		return false
	}
	given := strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(given), []byte(a.email)) == 1
	pwErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	return emailOK && pwErr == nil
}

// Mint signs a session token for subject and sets it as the session cookie.
// The token is also returned for bearer use.
func (a *AuthManager) Mint(w http.ResponseWriter, subject string) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, a.cookie(signed, int(a.ttl.Seconds())))
	return signed, nil
}

// Clear expires the session cookie.
func (a *AuthManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, a.cookie("", -1))
}

func (a *AuthManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   a.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*AdminClaims, error) {
	const bearer = "bearer "
	if hdr := r.Header.Get("Authorization"); len(hdr) > len(bearer) && strings.EqualFold(hdr[:len(bearer)], bearer) {
		return a.parse(strings.TrimSpace(hdr[len(bearer):]))
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return a.parse(c.Value)
	}
	return nil, errMissingSession
}

func (a *AuthManager) parse(tok string) (*AdminClaims, error) {
	if len(a.secret) == 0 {
		return nil, errAuthDisabled
	}
	claims := &AdminClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.Role != adminRole {
		return nil, errInvalidSession
	}
	return claims, nil
}

type adminKey struct{}

// RequireAdmin rejects requests without a valid session and stores the
// admin's subject for handlers.
func (a *AuthManager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), adminKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(adminKey{}).(string); ok && v != "" {
		return v
	}
	return adminRole
}
