package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"petani-backend/internal/apperr"
	"petani-backend/internal/models"
	"petani-backend/internal/store"
	"petani-backend/internal/validation"
	"petani-backend/internal/websession"
)

const msgRegisterRules = "Username harus 3-50 karakter dan password 6-72 karakter."

// bcrypt refuses longer input
const maxPasswordBytes = 72

type credentials struct {
	Username string `form:"username" json:"username" validate:"required,min=3,max=50"`
	Password string `form:"password" json:"password" validate:"required,min=6,max=72"`
}

type Handler struct {
	users     store.UserStore
	hasher    PasswordHasher
	sessions  *websession.Manager
	tokens    *TokenIssuer
	log       *zap.Logger
	dummyHash string
}

// NewHandler hashes a throwaway password once so that logins for unknown
// usernames cost the same bcrypt comparison as real ones.
func NewHandler(users store.UserStore, hasher PasswordHasher, sessions *websession.Manager, tokens *TokenIssuer, log *zap.Logger) (*Handler, error) {
	dummy, err := hasher.Hash("petani-dummy-password")
	if err != nil {
		return nil, err
	}
	return &Handler{
		users:     users,
		hasher:    hasher,
		sessions:  sessions,
		tokens:    tokens,
		log:       log,
		dummyHash: dummy,
	}, nil
}

// GET / and /login
func (h *Handler) LoginPageHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, _, ok, _ := h.sessions.User(c); ok {
			return c.Redirect("/dashboard", fiber.StatusFound)
		}
		return h.sessions.Render(c, "login", nil)
	}
}

// POST /login
func (h *Handler) LoginHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body credentials
		if err := c.BodyParser(&body); err != nil {
			return h.sessions.Redirect(c, "/login", websession.FlashError, apperr.Message(apperr.ErrInvalidCredentials))
		}

		u, err := h.authenticate(c.UserContext(), body.Username, body.Password)
		if err != nil {
			if !errors.Is(err, apperr.ErrInvalidCredentials) {
				h.log.Error("login lookup failed", zap.Error(err))
			}
			return h.sessions.Redirect(c, "/login", websession.FlashError, apperr.Message(err))
		}

		if err := h.sessions.Login(c, u.ID, u.Username); err != nil {
			return err
		}
		h.log.Info("user logged in", zap.Uint("user_id", u.ID))
		return h.sessions.Redirect(c, "/dashboard", websession.FlashSuccess, "Login berhasil. Selamat datang, "+u.Username+"!")
	}
}

// POST /register
func (h *Handler) RegisterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body credentials
		if err := c.BodyParser(&body); err != nil {
			return h.sessions.Redirect(c, "/login", websession.FlashError, msgRegisterRules)
		}
		body.Username = strings.TrimSpace(body.Username)
		if err := validation.Struct(body); err != nil || len(body.Password) > maxPasswordBytes {
			return h.sessions.Redirect(c, "/login", websession.FlashError, msgRegisterRules)
		}

		hash, err := h.hasher.Hash(body.Password)
		if err != nil {
			h.log.Error("hash password failed", zap.Error(err))
			return h.sessions.Redirect(c, "/login", websession.FlashError, "Registrasi gagal. Silakan coba lagi.")
		}

		u := &models.User{Username: body.Username, PasswordHash: hash}
		if err := h.users.Create(c.UserContext(), u); err != nil {
			if !errors.Is(err, apperr.ErrDuplicateUsername) {
				h.log.Error("register failed", zap.String("username", body.Username), zap.Error(err))
			}
			return h.sessions.Redirect(c, "/login", websession.FlashError, apperr.Message(err))
		}

		h.log.Info("user registered", zap.Uint("user_id", u.ID))
		return h.sessions.Redirect(c, "/login", websession.FlashSuccess, "Registrasi berhasil. Silakan login.")
	}
}

// GET /logout
func (h *Handler) LogoutHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.sessions.Logout(c); err != nil {
			h.log.Warn("logout failed", zap.Error(err))
		}
		return h.sessions.Redirect(c, "/login", websession.FlashInfo, "Anda telah logout.")
	}
}

// POST /api/token
func (h *Handler) TokenHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body credentials
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body tidak valid")
		}

		u, err := h.authenticate(c.UserContext(), body.Username, body.Password)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalidCredentials) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": apperr.Message(err)})
			}
			h.log.Error("token lookup failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": apperr.Message(err)})
		}

		token, exp, err := h.tokens.Issue(Identity{UserID: u.ID, Username: u.Username})
		if err != nil {
			h.log.Error("sign token failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Token tidak dapat dibuat")
		}
		return c.JSON(fiber.Map{
			"token":      token,
			"token_type": "Bearer",
			"expires_at": exp,
		})
	}
}

// authenticate returns apperr.ErrInvalidCredentials for an unknown user and
// for a wrong password alike.
func (h *Handler) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		_ = h.hasher.Compare(h.dummyHash, password)
		return nil, apperr.ErrInvalidCredentials
	}

	u, err := h.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			_ = h.hasher.Compare(h.dummyHash, password)
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := h.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return u, nil
}
