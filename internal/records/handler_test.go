package records_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"petani-backend/internal/apperr"
	"petani-backend/internal/auth"
	"petani-backend/internal/mocks"
	"petani-backend/internal/records"
	"petani-backend/internal/store"
	"petani-backend/internal/websession"
)

var alice = store.Actor{UserID: 1, Username: "alice"}

type fixture struct {
	app     *fiber.App
	farmers *mocks.FarmerStore
	records *mocks.RecordStore
	bearer  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	sessions := websession.New(websession.Options{}, log)
	tokens := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	token, _, err := tokens.Issue(auth.Identity{UserID: alice.UserID, Username: alice.Username})
	require.NoError(t, err)

	f := &fixture{farmers: new(mocks.FarmerStore), records: new(mocks.RecordStore), bearer: "Bearer " + token}
	h := records.NewHandler(f.farmers, f.records, sessions, log)

	app := fiber.New()
	app.Use(sessions.Middleware())
	app.Use(auth.RequireSession(sessions, tokens, log))
	for _, k := range []records.Kind{records.Komoditas, records.HasilPanen} {
		app.Get(k.Path, h.PageHandler(k))
		app.Post(k.Path, h.SubmitHandler(k))
	}
	app.Get("/flashes", func(c *fiber.Ctx) error { return sessions.Render(c, "flashes", nil) })
	f.app = app
	return f
}

func (f *fixture) do(t *testing.T, method, path string, form url.Values, cookie string) *http.Response {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}
	req.Header.Set(fiber.HeaderAuthorization, f.bearer)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: websession.CookieName, Value: cookie})
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func (f *fixture) flash(t *testing.T, resp *http.Response) string {
	t.Helper()
	var cookie string
	for _, c := range resp.Cookies() {
		if c.Name == websession.CookieName {
			cookie = c.Value
		}
	}
	require.NotEmpty(t, cookie)
	var p struct {
		Flashes []websession.Flash `json:"flashes"`
	}
	require.NoError(t, json.NewDecoder(f.do(t, http.MethodGet, "/flashes", nil, cookie).Body).Decode(&p))
	require.Len(t, p.Flashes, 1)
	return p.Flashes[0].Message
}

func TestPageListsOwnedFarmers(t *testing.T) {
	f := newFixture(t)
	f.farmers.On("Options", mock.Anything, alice.UserID).
		Return([]store.FarmerOption{{ID: 1, Nama: "Budi"}}, nil).Once()

	resp := f.do(t, http.MethodGet, "/isi_hasil_panen", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var p struct {
		Page string `json:"page"`
		Data struct {
			Petani []store.FarmerOption `json:"petani"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, "isi_hasil_panen", p.Page)
	assert.Equal(t, []store.FarmerOption{{ID: 1, Nama: "Budi"}}, p.Data.Petani)
}

func TestSubmitCommodity(t *testing.T) {
	f := newFixture(t)
	want := store.ChildRecord{
		PetaniID: 3,
		Name:     "Padi",
		Amount:   0.75,
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	f.records.On("Create", mock.Anything, alice, store.KomoditasTable, want).Return(nil).Once()

	resp := f.do(t, http.MethodPost, "/isi_komoditas", url.Values{
		"petani_id":      {"3"},
		"nama_komoditas": {"Padi"},
		"luas_tanam":     {"0.75"},
		"tanggal_tanam":  {"2024-03-01"},
	}, "")

	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	assert.Equal(t, records.Komoditas.Success, f.flash(t, resp))
	f.records.AssertExpectations(t)
}

func TestSubmitHarvestUsesHarvestColumns(t *testing.T) {
	f := newFixture(t)
	f.records.On("Create", mock.Anything, alice, store.HasilPanenTable, mock.MatchedBy(func(r store.ChildRecord) bool {
		return r.PetaniID == 3 && r.Amount == 1200
	})).Return(nil).Once()

	resp := f.do(t, http.MethodPost, "/isi_hasil_panen", url.Values{
		"petani_id":      {"3"},
		"nama_komoditas": {"Padi"},
		"jumlah_panen":   {"1200"},
		"tanggal_panen":  {"2024-07-15"},
	}, "")

	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	f.records.AssertExpectations(t)
}

func TestSubmitRejectsBadInputWithoutInsert(t *testing.T) {
	base := url.Values{
		"petani_id":      {"3"},
		"nama_komoditas": {"Jagung"},
		"luas_tanam":     {"2"},
		"tanggal_tanam":  {"2024-03-01"},
	}
	cases := []struct {
		name    string
		field   string
		value   string
		message string
	}{
		{"missing name", "nama_komoditas", "", apperr.Message(apperr.ErrValidation)},
		{"bad date", "tanggal_tanam", "01/03/2024", "Format tanggal harus YYYY-MM-DD."},
		{"negative amount", "luas_tanam", "-2", "Nilai harus berupa angka dan tidak boleh negatif."},
		{"amount not a number", "luas_tanam", "dua", "Nilai harus berupa angka dan tidak boleh negatif."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			form := url.Values{}
			for k, v := range base {
				form[k] = v
			}
			form.Set(tc.field, tc.value)

			resp := f.do(t, http.MethodPost, "/isi_komoditas", form, "")

			assert.Equal(t, "/isi_komoditas", resp.Header.Get("Location"))
			assert.Equal(t, tc.message, f.flash(t, resp))
			f.records.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitForeignFarmerIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.records.On("Create", mock.Anything, alice, store.KomoditasTable, mock.Anything).Return(apperr.ErrNotFound).Once()

	resp := f.do(t, http.MethodPost, "/isi_komoditas", url.Values{
		"petani_id":      {"77"},
		"nama_komoditas": {"Padi"},
		"luas_tanam":     {"1"},
		"tanggal_tanam":  {"2024-03-01"},
	}, "")

	assert.Equal(t, "/isi_komoditas", resp.Header.Get("Location"))
	assert.Equal(t, "Data petani tidak ditemukan.", f.flash(t, resp))
}
