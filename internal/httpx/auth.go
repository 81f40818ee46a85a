package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ariefcatur/go-checkout-orders/internal/logging"
)

const RoleAdmin = "admin"

// Identity is the caller resolved from a bearer token.
type Identity struct {
	UserID int64
	Role   string
}

type identityKey struct{}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 tokens. The sub claim carries the user id as
// a decimal string.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue signs a token for userID. Used by tests and local tooling; real
// tokens come from the auth service.
func (a *Authenticator) Issue(userID int64, role string, ttl time.Duration) (string, error) {
	now := a.now()
	c := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
}

func (a *Authenticator) parse(raw string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second), // small clock skew
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	var c Claims
	if _, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return a.secret, nil }, opts...); err != nil {
		return Identity{}, err
	}
	uid, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || uid <= 0 {
		return Identity{}, errors.New("sub is not a user id")
	}
	return Identity{UserID: uid, Role: c.Role}, nil
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			unauth(w, "invalid_request", "missing bearer token")
			return
		}
		id, err := a.parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			logging.FromCtx(r.Context()).Debug("rejected token", "err", err)
			unauth(w, "invalid_token", "invalid jwt")
			return
		}
		ctx := withIdentity(r.Context(), id)
		ctx = logging.WithCtx(ctx, logging.FromCtx(ctx).With("user_id", id.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole must run after Middleware.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok || id.Role != role {
				forbidden(w, "insufficient_scope", role+" role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type authErrorResp struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func unauth(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	writeJSON(w, http.StatusUnauthorized, authErrorResp{Error: code, ErrorDescription: desc})
}

func forbidden(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	writeJSON(w, http.StatusForbidden, authErrorResp{Error: code, ErrorDescription: desc})
}

func mustIdentity(r *http.Request) Identity {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		panic("httpx: handler mounted without auth middleware")
	}
	return id
}
