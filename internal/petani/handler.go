// Package petani serves the farmer pages: create, edit, delete, history,
// spreadsheet export and the parcel GeoJSON feed.
package petani

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"petani-backend/internal/apperr"
	"petani-backend/internal/auth"
	"petani-backend/internal/export"
	"petani-backend/internal/store"
	"petani-backend/internal/websession"
)

const (
	pathForm    = "/form_petani"
	pathHistory = "/riwayat_petani"
)

type Handler struct {
	farmers  store.FarmerStore
	sessions *websession.Manager
	log      *zap.Logger
}

func NewHandler(farmers store.FarmerStore, sessions *websession.Manager, log *zap.Logger) *Handler {
	return &Handler{farmers: farmers, sessions: sessions, log: log}
}

// GET /form_petani
func (h *Handler) FormHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return h.sessions.Render(c, "form_petani", nil)
	}
}

// POST /form_petani
func (h *Handler) CreateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		var form createForm
		if err := c.BodyParser(&form); err != nil {
			return h.sessions.Redirect(c, pathForm, websession.FlashError, apperr.Message(apperr.ErrValidation))
		}
		in, err := form.input()
		if err != nil {
			return h.sessions.Redirect(c, pathForm, websession.FlashError, apperr.Message(err))
		}

		id, err := h.farmers.Create(c.UserContext(), user.Actor(), in)
		if err != nil {
			h.log.Error("create petani failed", zap.Uint("user_id", user.UserID), zap.Error(err))
			return h.sessions.Redirect(c, pathForm, websession.FlashError, apperr.Message(err))
		}

		h.log.Info("petani created", zap.Uint("user_id", user.UserID), zap.Uint("petani_id", id))
		return h.sessions.Redirect(c, editPath(id), websession.FlashSuccess, "Data petani berhasil disimpan.")
	}
}

// GET /edit_petani/:id
func (h *Handler) EditFormHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		id, err := farmerID(c)
		if err != nil {
			return h.sessions.Redirect(c, pathHistory, websession.FlashError, apperr.Message(err))
		}
		p, err := h.farmers.FindForOwner(c.UserContext(), id, user.UserID)
		if err != nil {
			h.logStoreError("find petani failed", user, id, err)
			return h.sessions.Redirect(c, pathHistory, websession.FlashError, apperr.Message(err))
		}
		return h.sessions.Render(c, "edit_petani", fiber.Map{"petani": p})
	}
}

// POST /edit_petani/:id
func (h *Handler) UpdateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		id, err := farmerID(c)
		if err != nil {
			return h.sessions.Redirect(c, pathHistory, websession.FlashError, apperr.Message(err))
		}

		var form updateForm
		if err := c.BodyParser(&form); err != nil {
			return h.sessions.Redirect(c, editPath(id), websession.FlashError, apperr.Message(apperr.ErrValidation))
		}
		in, err := form.input()
		if err != nil {
			return h.sessions.Redirect(c, editPath(id), websession.FlashError, apperr.Message(err))
		}

		if err := h.farmers.Update(c.UserContext(), user.Actor(), id, in); err != nil {
			h.logStoreError("update petani failed", user, id, err)
			if errors.Is(err, apperr.ErrNotFound) {
				return h.sessions.Redirect(c, pathHistory, websession.FlashError, apperr.Message(err))
			}
			return h.sessions.Redirect(c, editPath(id), websession.FlashError, apperr.Message(err))
		}

		h.log.Info("petani updated", zap.Uint("user_id", user.UserID), zap.Uint("petani_id", id))
		return h.sessions.Redirect(c, pathHistory, websession.FlashSuccess, "Data petani berhasil diperbarui.")
	}
}

// GET /hapus_petani/:id
func (h *Handler) DeleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		id, err := farmerID(c)
		if err != nil {
			return h.sessions.Redirect(c, pathHistory, websession.FlashError, apperr.Message(err))
		}
		if err := h.farmers.Delete(c.UserContext(), user.Actor(), id); err != nil {
			h.logStoreError("delete petani failed", user, id, err)
			return h.sessions.Redirect(c, pathHistory, websession.FlashError, apperr.Message(err))
		}

		h.log.Info("petani deleted", zap.Uint("user_id", user.UserID), zap.Uint("petani_id", id))
		return h.sessions.Redirect(c, pathHistory, websession.FlashSuccess, "Data petani berhasil dihapus.")
	}
}

// GET /riwayat_petani
func (h *Handler) HistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		rows, err := h.farmers.ListByOwner(c.UserContext(), user.UserID)
		if err != nil {
			h.log.Error("list petani failed", zap.Uint("user_id", user.UserID), zap.Error(err))
			return h.sessions.Redirect(c, "/dashboard", websession.FlashError, apperr.Message(err))
		}
		if rows == nil {
			rows = []store.FarmerView{}
		}
		return h.sessions.Render(c, "riwayat_petani", fiber.Map{"petani": rows})
	}
}

// GET /riwayat_petani/export
func (h *Handler) ExportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		rows, err := h.farmers.ListByOwner(c.UserContext(), user.UserID)
		if err != nil {
			h.log.Error("export list failed", zap.Uint("user_id", user.UserID), zap.Error(err))
			return h.sessions.Redirect(c, pathHistory, websession.FlashError, apperr.Message(err))
		}
		data, err := export.Farmers(rows)
		if err != nil {
			h.log.Error("export build failed", zap.Uint("user_id", user.UserID), zap.Error(err))
			return h.sessions.Redirect(c, pathHistory, websession.FlashError, "Gagal membuat file export.")
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="riwayat_petani.xlsx"`)
		return c.Send(data)
	}
}

type feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties fiber.Map       `json:"properties"`
}

// GET /api/lahan
func (h *Handler) ParcelsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		parcels, err := h.farmers.Parcels(c.UserContext(), user.UserID)
		if err != nil {
			h.log.Error("list parcels failed", zap.Uint("user_id", user.UserID), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": apperr.Message(err)})
		}

		features := make([]feature, 0, len(parcels))
		for _, p := range parcels {
			if p.GeoJSON == "" {
				continue
			}
			features = append(features, feature{
				Type:     "Feature",
				Geometry: json.RawMessage(p.GeoJSON),
				Properties: fiber.Map{
					"id":         p.ID,
					"nama":       p.Nama,
					"luas_lahan": p.LuasLahan,
				},
			})
		}
		return c.JSON(fiber.Map{
			"type":     "FeatureCollection",
			"features": features,
		})
	}
}

func (h *Handler) logStoreError(msg string, user auth.Identity, id uint, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		h.log.Info(msg, zap.Uint("user_id", user.UserID), zap.Uint("petani_id", id), zap.Error(err))
		return
	}
	h.log.Error(msg, zap.Uint("user_id", user.UserID), zap.Uint("petani_id", id), zap.Error(err))
}

// farmerID reads :id; an id that cannot exist is reported as not found.
func farmerID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.ErrNotFound
	}
	return uint(id), nil
}

func editPath(id uint) string {
	return fmt.Sprintf("/edit_petani/%d", id)
}
