package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/okian/squadmarket/pkg/logger"
)

// PrincipalClaim names the token claim that carries the team id. The
// registered "sub" claim is used when it is absent.
const PrincipalClaim = "username"

const defaultClockSkew = 30 * time.Second

type contextKey string

const contextKeyPrincipal contextKey = "squadmarket.principal"

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	HMACSecret string
	Issuer     string
	ClockSkew  time.Duration
}

// Authenticator verifies HS256 bearer tokens and stores the principal in
// the request context.
type Authenticator struct {
	cfg    AuthConfig
	secret []byte
	logger logger.Logger
}

// NewAuthenticator creates an authenticator. A nil log falls back to the
// global logger.
func NewAuthenticator(cfg AuthConfig, log logger.Logger) *Authenticator {
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = defaultClockSkew
	}
	if log == nil {
		log = logger.Get()
	}
	return &Authenticator{
		cfg:    cfg,
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
		logger: log,
	}
}

// Middleware rejects requests without a valid bearer token with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearer(r.Header.Get("Authorization"))
		if tokenString == "" {
			writeMessage(w, http.StatusUnauthorized, MsgUnauthorized)
			return
		}
		principal, err := a.Principal(tokenString)
		if err != nil {
			a.logger.Debug(r.Context(), "token rejected", logger.Error(err))
			writeMessage(w, http.StatusUnauthorized, MsgUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// Principal verifies tokenString and returns the team id it names.
func (a *Authenticator) Principal(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("%w: secret not configured", ErrUnauthorized)
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims type", ErrUnauthorized)
	}
	if v, ok := claims[PrincipalClaim].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", fmt.Errorf("%w: token names no principal", ErrUnauthorized)
	}
	return strings.TrimSpace(sub), nil
}

// IssueToken signs an HS256 token naming principal. It is used by tools and
// tests that talk to the API.
func IssueToken(secret, issuer, principal string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("empty secret")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		PrincipalClaim: principal,
		"sub":          principal,
		"iat":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// WithPrincipal returns ctx carrying principal.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, principal)
}

// PrincipalFrom returns the authenticated principal stored in ctx.
func PrincipalFrom(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(contextKeyPrincipal).(string)
	return p, ok && p != ""
}

func extractBearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
