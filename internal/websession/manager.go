// Package websession keeps per-browser state: the logged-in user and the
// flash messages shown on the next page.
package websession

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

const (
	CookieName = "petani_session"

	keyUserID   = "user_id"
	keyUsername = "username"
	keyFlashes  = "_flashes"
	localsKey   = "websession.session"
	flashSep    = "\x1f"
)

const (
	FlashSuccess = "success"
	FlashError   = "danger"
	FlashInfo    = "info"
)

type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type Options struct {
	TTL     time.Duration
	Secure  bool
	Storage fiber.Storage // nil selects fiber's in-memory storage
}

type Manager struct {
	store *session.Store
	log   *zap.Logger
}

func New(opts Options, log *zap.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	return &Manager{
		store: session.New(session.Config{
			Expiration:     opts.TTL,
			Storage:        opts.Storage,
			KeyLookup:      "cookie:" + CookieName,
			CookieHTTPOnly: true,
			CookieSecure:   opts.Secure,
			CookieSameSite: "Lax",
		}),
		log: log,
	}
}

// CookieKey derives the encryptcookie key from the application secret.
func CookieKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Middleware loads the session lazily and saves it once after the handler
// chain, so a request that both logs in and flashes touches one session.
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		sess, ok := c.Locals(localsKey).(*session.Session)
		if !ok || sess == nil {
			return err
		}
		c.Locals(localsKey, nil)
		if sess.Fresh() && len(sess.Keys()) == 0 {
			return err
		}
		if saveErr := sess.Save(); saveErr != nil {
			m.log.Error("session save failed", zap.Error(saveErr), zap.String("path", c.Path()))
			if err == nil {
				err = saveErr
			}
		}
		return err
	}
}

func (m *Manager) get(c *fiber.Ctx) (*session.Session, error) {
	if sess, ok := c.Locals(localsKey).(*session.Session); ok && sess != nil {
		return sess, nil
	}
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, err
	}
	c.Locals(localsKey, sess)
	return sess, nil
}

// Login binds the session to a user under a fresh session id.
func (m *Manager) Login(c *fiber.Ctx, userID uint, username string) error {
	sess, err := m.get(c)
	if err != nil {
		return err
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(keyUserID, userID)
	sess.Set(keyUsername, username)
	return nil
}

// Logout drops all session data and rotates the id. Safe to call without a
// session.
func (m *Manager) Logout(c *fiber.Ctx) error {
	sess, err := m.get(c)
	if err != nil {
		return err
	}
	return sess.Reset()
}

// User returns the identity stored at login.
func (m *Manager) User(c *fiber.Ctx) (uint, string, bool, error) {
	sess, err := m.get(c)
	if err != nil {
		return 0, "", false, err
	}
	id, ok := sess.Get(keyUserID).(uint)
	if !ok || id == 0 {
		return 0, "", false, nil
	}
	name, _ := sess.Get(keyUsername).(string)
	return id, name, true, nil
}

func (m *Manager) Flash(c *fiber.Ctx, category, message string) error {
	sess, err := m.get(c)
	if err != nil {
		return err
	}
	list, _ := sess.Get(keyFlashes).([]string)
	sess.Set(keyFlashes, append(list, category+flashSep+message))
	return nil
}

// Flashes returns and clears the pending messages.
func (m *Manager) Flashes(c *fiber.Ctx) ([]Flash, error) {
	sess, err := m.get(c)
	if err != nil {
		return nil, err
	}
	list, _ := sess.Get(keyFlashes).([]string)
	out := make([]Flash, 0, len(list))
	for _, raw := range list {
		cat, msg, found := strings.Cut(raw, flashSep)
		if !found {
			cat, msg = FlashInfo, raw
		}
		out = append(out, Flash{Category: cat, Message: msg})
	}
	if len(list) > 0 {
		sess.Delete(keyFlashes)
	}
	return out, nil
}

// Redirect flashes message (when not empty) and redirects with 302.
func (m *Manager) Redirect(c *fiber.Ctx, to, category, message string) error {
	if message != "" {
		if err := m.Flash(c, category, message); err != nil {
			m.log.Warn("flash failed", zap.Error(err))
		}
	}
	return c.Redirect(to, fiber.StatusFound)
}

// Render answers a page view: the page name, pending flashes and page data.
// HTML rendering of these models lives outside this service.
func (m *Manager) Render(c *fiber.Ctx, page string, data fiber.Map) error {
	flashes, err := m.Flashes(c)
	if err != nil {
		m.log.Warn("read flashes failed", zap.Error(err))
		flashes = []Flash{}
	}
	if data == nil {
		data = fiber.Map{}
	}
	return c.JSON(fiber.Map{
		"page":    page,
		"flashes": flashes,
		"data":    data,
	})
}
