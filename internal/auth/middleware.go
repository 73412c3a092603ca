package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"petani-backend/internal/apperr"
	"petani-backend/internal/store"
	"petani-backend/internal/websession"
)

const ctxIdentityKey = "auth.identity"

// Identity is the authenticated user of the current request.
type Identity struct {
	UserID   uint
	Username string
}

func (i Identity) Actor() store.Actor {
	return store.Actor{UserID: i.UserID, Username: i.Username}
}

// CurrentUser returns the identity stored by RequireSession.
func CurrentUser(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(ctxIdentityKey).(Identity)
	return id, ok && id.UserID != 0
}

// RequireSession admits requests carrying a logged-in session or a valid
// bearer token. Browsers are sent to /login; /api callers get 401.
func RequireSession(sessions *websession.Manager, tokens *TokenIssuer, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := identify(c, sessions, tokens)
		if err == nil {
			c.Locals(ctxIdentityKey, id)
			return c.Next()
		}

		log.Debug("unauthenticated request", zap.String("path", c.Path()), zap.Error(err))
		if strings.HasPrefix(c.Path(), "/api/") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": apperr.Message(apperr.ErrUnauthenticated),
			})
		}
		return sessions.Redirect(c, "/login", websession.FlashError, apperr.Message(apperr.ErrUnauthenticated))
	}
}

func identify(c *fiber.Ctx, sessions *websession.Manager, tokens *TokenIssuer) (Identity, error) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || tokens == nil {
			return Identity{}, apperr.ErrUnauthenticated
		}
		return tokens.Parse(strings.TrimSpace(parts[1]))
	}

	userID, username, ok, err := sessions.User(c)
	if err != nil {
		return Identity{}, err
	}
	if !ok {
		return Identity{}, apperr.ErrUnauthenticated
	}
	return Identity{UserID: userID, Username: username}, nil
}
