package petani

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"petani-backend/internal/apperr"
	"petani-backend/internal/auth"
	"petani-backend/internal/export"
	"petani-backend/internal/websession"
)

const maxReportedLines = 5

// POST /riwayat_petani/import (multipart, field "file")
//
// Each row goes through the same checks as the create form and is stored on
// its own, so one bad row does not block the rest.
func (h *Handler) ImportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		fh, err := c.FormFile("file")
		if err != nil {
			return h.sessions.Redirect(c, pathHistory, websession.FlashError, "Pilih file .xlsx untuk diimpor.")
		}
		if !strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
			return h.sessions.Redirect(c, pathHistory, websession.FlashError, "Hanya file .xlsx yang dapat diimpor.")
		}
		file, err := fh.Open()
		if err != nil {
			h.log.Error("open upload failed", zap.Error(err))
			return h.sessions.Redirect(c, pathHistory, websession.FlashError, "File tidak dapat dibuka.")
		}
		defer file.Close()

		rows, err := export.ReadFarmers(file)
		if err != nil {
			h.log.Info("unreadable import", zap.Uint("user_id", user.UserID), zap.Error(err))
			return h.sessions.Redirect(c, pathHistory, websession.FlashError, "File Excel tidak dapat dibaca.")
		}

		var imported int
		var failed []string
		for _, r := range rows {
			form := createForm{
				Nama:         r.Nama,
				NIK:          r.NIK,
				TanggalLahir: r.TanggalLahir,
				NoHP:         r.NoHP,
				Alamat:       r.Alamat,
				Latitude:     r.Latitude,
				Longitude:    r.Longitude,
				Polygon:      r.Lahan,
				LuasLahan:    r.LuasLahan,
			}
			in, err := form.input()
			if err == nil {
				_, err = h.farmers.Create(c.UserContext(), user.Actor(), in)
				if apperr.IsDatabase(err) {
					h.log.Error("import row failed", zap.Int("line", r.Line), zap.Error(err))
				}
			}
			if err != nil {
				failed = append(failed, strconv.Itoa(r.Line))
				continue
			}
			imported++
		}

		h.log.Info("petani imported",
			zap.Uint("user_id", user.UserID),
			zap.Int("imported", imported),
			zap.Int("failed", len(failed)))

		if len(failed) == 0 {
			return h.sessions.Redirect(c, pathHistory, websession.FlashSuccess,
				fmt.Sprintf("%d data petani berhasil diimpor.", imported))
		}
		lines := failed
		if len(lines) > maxReportedLines {
			lines = append(lines[:maxReportedLines:maxReportedLines], "...")
		}
		return h.sessions.Redirect(c, pathHistory, websession.FlashError,
			fmt.Sprintf("%d data petani diimpor, %d baris gagal (baris %s).", imported, len(failed), strings.Join(lines, ", ")))
	}
}
