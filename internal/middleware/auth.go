package middleware

import (
	"context"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID = "userID"
	localClaims = "claims"
)

// MsgNoAccess is the message answered for every authentication failure.
const MsgNoAccess = "Нет доступа"

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RevocationChecker reports whether a token ID was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Guard resolves the subject of a request from its bearer token.
type Guard struct {
	tokens      TokenVerifier
	revocations RevocationChecker
}

// NewGuard returns a Guard. revocations may be nil.
func NewGuard(tokens TokenVerifier, revocations RevocationChecker) *Guard {
	return &Guard{tokens: tokens, revocations: revocations}
}

// Authenticate extracts and verifies the bearer token. On success the subject
// is stored in c.Locals and in the request context; every failure is an
// UNAUTHENTICATED AppError.
func (g *Guard) Authenticate(c *fiber.Ctx) (uint, error) {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return 0, models.NewUnauthenticatedError(MsgNoAccess, nil)
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return 0, models.NewUnauthenticatedError(MsgNoAccess, err)
	}
	userID, err := claims.SubjectID()
	if err != nil {
		return 0, models.NewUnauthenticatedError(MsgNoAccess, err)
	}

	if g.revocations != nil {
		revoked, err := g.revocations.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "token revocation check failed", "error", err)
		} else if revoked {
			return 0, models.NewUnauthenticatedError(MsgNoAccess, auth.ErrTokenInvalid)
		}
	}

	c.Locals(localUserID, userID)
	c.Locals(localClaims, claims)
	c.SetUserContext(WithUserID(c.UserContext(), userID))
	return userID, nil
}

// Handler is the Fiber middleware form of Authenticate.
func (g *Guard) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := g.Authenticate(c); err != nil {
			Logger.DebugContext(c.UserContext(), "request rejected by guard", "path", c.Path(), "error", err)
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		return c.Next()
	}
}

// UserID returns the subject stored by the guard.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(localUserID).(uint)
	return id, ok
}

// Claims returns the verified token claims stored by the guard.
func Claims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(localClaims).(*auth.Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
