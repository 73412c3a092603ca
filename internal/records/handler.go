package records

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"petani-backend/internal/apperr"
	"petani-backend/internal/auth"
	"petani-backend/internal/store"
	"petani-backend/internal/validation"
	"petani-backend/internal/websession"
)

const (
	msgAmount = "Nilai harus berupa angka dan tidak boleh negatif."
	msgDate   = "Format tanggal harus YYYY-MM-DD."
)

// recordForm holds the submitted values; the form field names come from Kind.
type recordForm struct {
	PetaniID string `form:"petani_id" validate:"required,number"`
	Name     string `form:"nama_komoditas" validate:"required"`
	Amount   string `form:"amount" validate:"required,nonneg_number"`
	Date     string `form:"date" validate:"required,date_ymd"`
}

type Handler struct {
	farmers  store.FarmerStore
	records  store.RecordStore
	sessions *websession.Manager
	log      *zap.Logger
}

func NewHandler(farmers store.FarmerStore, records store.RecordStore, sessions *websession.Manager, log *zap.Logger) *Handler {
	return &Handler{farmers: farmers, records: records, sessions: sessions, log: log}
}

// Page answers GET for kind with the owner's farmers to choose from.
func (h *Handler) PageHandler(kind Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		options, err := h.farmers.Options(c.UserContext(), user.UserID)
		if err != nil {
			h.log.Error("list petani options failed", zap.Uint("user_id", user.UserID), zap.Error(err))
			return h.sessions.Redirect(c, "/dashboard", websession.FlashError, apperr.Message(err))
		}
		if options == nil {
			options = []store.FarmerOption{}
		}
		return h.sessions.Render(c, kind.Page, fiber.Map{
			"petani": options,
			"fields": fiber.Map{
				"amount": fiber.Map{"name": kind.AmountField, "label": kind.AmountLabel},
				"date":   fiber.Map{"name": kind.DateField, "label": kind.DateLabel},
			},
		})
	}
}

// Submit answers POST for kind.
func (h *Handler) SubmitHandler(kind Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		form := recordForm{
			PetaniID: strings.TrimSpace(c.FormValue("petani_id")),
			Name:     strings.TrimSpace(c.FormValue("nama_komoditas")),
			Amount:   strings.TrimSpace(c.FormValue(kind.AmountField)),
			Date:     strings.TrimSpace(c.FormValue(kind.DateField)),
		}
		rec, err := form.record()
		if err != nil {
			return h.sessions.Redirect(c, kind.Path, websession.FlashError, message(err))
		}

		if err := h.records.Create(c.UserContext(), user.Actor(), kind.Table, rec); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				h.log.Info("record for foreign petani", zap.Uint("user_id", user.UserID), zap.Uint("petani_id", rec.PetaniID))
			} else {
				h.log.Error("insert record failed",
					zap.String("table", kind.Table.Table),
					zap.Uint("user_id", user.UserID),
					zap.Error(err))
			}
			return h.sessions.Redirect(c, kind.Path, websession.FlashError, apperr.Message(err))
		}

		h.log.Info("record saved", zap.String("table", kind.Table.Table), zap.Uint("petani_id", rec.PetaniID))
		return h.sessions.Redirect(c, "/dashboard", websession.FlashSuccess, kind.Success)
	}
}

type formError struct {
	cause error
	text  string
}

func (e *formError) Error() string { return e.text }
func (e *formError) Unwrap() error { return e.cause }

func message(err error) string {
	var fe *formError
	if errors.As(err, &fe) {
		return fe.text
	}
	return apperr.Message(err)
}

func (f recordForm) record() (store.ChildRecord, error) {
	if err := validation.Struct(f); err != nil {
		var verr *validation.Error
		switch {
		case !errors.As(err, &verr), verr.HasTag("required"):
			return store.ChildRecord{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
		case verr.Has("amount"):
			return store.ChildRecord{}, &formError{cause: apperr.ErrValidation, text: msgAmount}
		case verr.Has("date"):
			return store.ChildRecord{}, &formError{cause: apperr.ErrValidation, text: msgDate}
		default:
			return store.ChildRecord{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
		}
	}

	id, err := strconv.ParseUint(f.PetaniID, 10, 64)
	if err != nil || id == 0 {
		return store.ChildRecord{}, apperr.ErrNotFound
	}
	amount, _ := validation.NonNegative(f.Amount)
	date, _ := time.Parse(validation.DateLayout, f.Date)
	return store.ChildRecord{
		PetaniID: uint(id),
		Name:     f.Name,
		Amount:   amount,
		Date:     date,
	}, nil
}
