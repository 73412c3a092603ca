// Package dashboard serves the landing page after login and the user's
// activity log.
package dashboard

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"petani-backend/internal/apperr"
	"petani-backend/internal/audit"
	"petani-backend/internal/auth"
	"petani-backend/internal/models"
	"petani-backend/internal/store"
	"petani-backend/internal/websession"
)

type ActivityLister interface {
	List(ctx context.Context, userID uint, f audit.Filter) ([]models.AuditLog, error)
}

type Handler struct {
	farmers  store.FarmerStore
	activity ActivityLister
	sessions *websession.Manager
	log      *zap.Logger
}

func NewHandler(farmers store.FarmerStore, activity ActivityLister, sessions *websession.Manager, log *zap.Logger) *Handler {
	return &Handler{farmers: farmers, activity: activity, sessions: sessions, log: log}
}

// GET /dashboard
func (h *Handler) DashboardHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		summary, err := h.farmers.Summary(c.UserContext(), user.UserID)
		if err != nil {
			h.log.Error("dashboard summary failed", zap.Uint("user_id", user.UserID), zap.Error(err))
			flashErr := h.sessions.Flash(c, websession.FlashError, apperr.Message(err))
			if flashErr != nil {
				h.log.Warn("flash failed", zap.Error(flashErr))
			}
			summary = &store.Summary{Terbaru: []store.FarmerOption{}}
		}
		return h.sessions.Render(c, "dashboard", fiber.Map{
			"username": user.Username,
			"summary":  summary,
		})
	}
}

type ActivityEntry struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	Before      json.RawMessage    `json:"before"`
	After       json.RawMessage    `json:"after"`
}

// GET /log_aktivitas?entity_type=petani&entity_id=1&limit=20
func (h *Handler) ActivityHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		f := audit.Filter{EntityType: c.Query("entity_type")}
		if v, err := strconv.ParseUint(c.Query("entity_id"), 10, 64); err == nil {
			f.EntityID = uint(v)
		}
		if v, err := strconv.Atoi(c.Query("limit")); err == nil {
			f.Limit = v
		}

		logs, err := h.activity.List(c.UserContext(), user.UserID, f)
		if err != nil {
			h.log.Error("list activity failed", zap.Uint("user_id", user.UserID), zap.Error(err))
			return h.sessions.Redirect(c, "/dashboard", websession.FlashError, apperr.Message(err))
		}

		entries := make([]ActivityEntry, 0, len(logs))
		for _, l := range logs {
			entries = append(entries, ActivityEntry{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				Before:      rawJSON(l.BeforeData),
				After:       rawJSON(l.AfterData),
			})
		}
		return h.sessions.Render(c, "log_aktivitas", fiber.Map{"logs": entries})
	}
}

func rawJSON(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}
