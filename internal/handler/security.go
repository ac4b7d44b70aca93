package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xenking/orderflow/internal/domain/user"
)

// Claims carries the actor in a bearer token.
type Claims struct {
	Role user.Role `json:"role"`
	jwt.RegisteredClaims
}

// SecurityHandler authenticates requests with HS256 bearer tokens.
type SecurityHandler struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewSecurityHandler creates a SecurityHandler. An empty issuer accepts any.
func NewSecurityHandler(secret []byte, issuer string) *SecurityHandler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &SecurityHandler{
		secret: secret,
		issuer: issuer,
		parser: jwt.NewParser(opts...),
	}
}

// Issue signs a token for actor valid for ttl.
func (s *SecurityHandler) Issue(actor user.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Authenticate resolves the actor from a raw token.
func (s *SecurityHandler) Authenticate(raw string) (user.Actor, error) {
	var claims Claims
	_, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return user.Actor{}, errors.Wrap(err, "parse token")
	}
	if claims.Subject == "" {
		return user.Actor{}, errors.New("token has no subject")
	}
	if !claims.Role.Valid() {
		return user.Actor{}, errors.Errorf("unknown role %q", claims.Role)
	}
	return user.Actor{UserID: claims.Subject, Role: claims.Role}, nil
}

// Require rejects requests without a valid bearer token with 401 and
// stores the actor in the request context.
func (s *SecurityHandler) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, raw, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
			unauthorized(w, "missing bearer token")
			return
		}
		actor, err := s.Authenticate(strings.TrimSpace(raw))
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="orderflow"`)
	writeJSON(w, http.StatusUnauthorized, errorResponse{Code: http.StatusUnauthorized, Message: msg})
}

type actorKey struct{}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor user.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the authenticated actor.
func ActorFrom(ctx context.Context) (user.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(user.Actor)
	return a, ok
}
