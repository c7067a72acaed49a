package middleware

import (
	"context"
	"strconv"
	"strings"

	"commune/internal/config"
	"commune/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityResolver extracts a caller identity from a request. Implementations
// decide what counts as proof; handlers only ever see a user id. Swapping the
// resolver must never require touching a handler.
type IdentityResolver interface {
	// Resolve returns the caller's user id, or ok=false when the request
	// carries no usable identity.
	Resolve(c *fiber.Ctx) (userID uint, ok bool)
}

// HeaderResolver trusts an integer user id asserted in a single request
// header (default X-User-Id). No signature or expiry is checked; this is
// only safe behind a gateway that strips the header from outside traffic.
type HeaderResolver struct {
	Header string
}

// NewHeaderResolver returns a HeaderResolver for the given header name.
func NewHeaderResolver(header string) *HeaderResolver {
	if header == "" {
		header = "X-User-Id"
	}
	return &HeaderResolver{Header: header}
}

func (r *HeaderResolver) Resolve(c *fiber.Ctx) (uint, bool) {
	raw := strings.TrimSpace(c.Get(r.Header))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// JWTResolver validates an HS256 bearer token and extracts the user id from
// the subject claim. It is the drop-in replacement for HeaderResolver once
// real authentication is wanted.
type JWTResolver struct {
	Secret   string
	Issuer   string
	Audience string
}

// NewJWTResolver returns a JWTResolver configured from app config.
func NewJWTResolver(cfg *config.Config) *JWTResolver {
	return &JWTResolver{
		Secret:   cfg.JWTSecret,
		Issuer:   "commune-api",
		Audience: "commune-client",
	}
}

func (r *JWTResolver) Resolve(c *fiber.Ctx) (uint, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return 0, false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, false
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(r.Secret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != r.Issuer {
		return 0, false
	}
	if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != r.Audience {
		return 0, false
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, false
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, false
	}
	return uint(userID), true
}

// IdentityRequired returns middleware that fails closed with 401 when the
// resolver yields no identity. On success the user id is stored both in
// Fiber locals and in the user context for logging.
func IdentityRequired(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := resolver.Resolve(c)
		if !ok {
			return models.RespondWithError(c, models.NewUnauthenticatedError())
		}

		c.Locals("userID", userID)
		ctx := context.WithValue(c.UserContext(), UserIDKey, userID)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// OptionalIdentity resolves identity when present but never rejects. Public
// endpoints use it so logs still carry a user id when one was asserted.
func OptionalIdentity(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID, ok := resolver.Resolve(c); ok {
			c.Locals("userID", userID)
			ctx := context.WithValue(c.UserContext(), UserIDKey, userID)
			c.SetUserContext(ctx)
		}
		return c.Next()
	}
}
