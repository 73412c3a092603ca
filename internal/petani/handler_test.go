package petani_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
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
	"petani-backend/internal/export"
	"petani-backend/internal/mocks"
	"petani-backend/internal/petani"
	"petani-backend/internal/store"
	"petani-backend/internal/websession"
)

var alice = store.Actor{UserID: 1, Username: "alice"}

type fixture struct {
	app     *fiber.App
	farmers *mocks.FarmerStore
	bearer  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	sessions := websession.New(websession.Options{}, log)
	tokens := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	token, _, err := tokens.Issue(auth.Identity{UserID: alice.UserID, Username: alice.Username})
	require.NoError(t, err)

	f := &fixture{farmers: new(mocks.FarmerStore), bearer: "Bearer " + token}
	h := petani.NewHandler(f.farmers, sessions, log)

	app := fiber.New()
	app.Use(sessions.Middleware())
	app.Use(auth.RequireSession(sessions, tokens, log))
	app.Get("/form_petani", h.FormHandler())
	app.Post("/form_petani", h.CreateHandler())
	app.Get("/edit_petani/:id", h.EditFormHandler())
	app.Post("/edit_petani/:id", h.UpdateHandler())
	app.Get("/hapus_petani/:id", h.DeleteHandler())
	app.Get("/riwayat_petani", h.HistoryHandler())
	app.Get("/riwayat_petani/export", h.ExportHandler())
	app.Post("/riwayat_petani/import", h.ImportHandler())
	app.Get("/api/lahan", h.ParcelsHandler())
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

// flash returns the single flash message a redirect left behind.
func (f *fixture) flash(t *testing.T, resp *http.Response) websession.Flash {
	t.Helper()
	var cookie string
	for _, c := range resp.Cookies() {
		if c.Name == websession.CookieName {
			cookie = c.Value
		}
	}
	require.NotEmpty(t, cookie, "redirect did not set a session")

	var p struct {
		Flashes []websession.Flash `json:"flashes"`
	}
	next := f.do(t, http.MethodGet, "/form_petani", nil, cookie)
	require.NoError(t, json.NewDecoder(next.Body).Decode(&p))
	require.Len(t, p.Flashes, 1)
	return p.Flashes[0]
}

func validForm() url.Values {
	return url.Values{
		"nama":          {"Budi"},
		"nik":           {"3201010101800001"},
		"tanggal_lahir": {"1980-05-17"},
		"no_hp":         {"08123456789"},
		"alamat":        {"Desa Sukamaju"},
		"latitude":      {"-6.2"},
		"longitude":     {"106.8"},
		"polygon":       {"polygon((0 0,0 1,1 1,1 0,0 0))"},
		"luas_lahan":    {"1.5"},
	}
}

func TestCreateNormalizesAndRedirectsToEdit(t *testing.T) {
	f := newFixture(t)
	f.farmers.On("Create", mock.Anything, alice, mock.MatchedBy(func(in store.FarmerInput) bool {
		return in.Nama == "Budi" &&
			in.LahanWKT == "MULTIPOLYGON(((0 0,0 1,1 1,1 0,0 0)))" &&
			in.Lokasi != nil && in.Lokasi.Lat == -6.2 && in.Lokasi.Lon == 106.8 &&
			in.LuasLahan != nil && *in.LuasLahan == 1.5 &&
			in.TanggalLahir != nil && in.TanggalLahir.Format("2006-01-02") == "1980-05-17"
	})).Return(uint(5), nil).Once()

	resp := f.do(t, http.MethodPost, "/form_petani", validForm(), "")

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/edit_petani/5", resp.Header.Get("Location"))
	assert.Equal(t, websession.FlashSuccess, f.flash(t, resp).Category)
	f.farmers.AssertExpectations(t)
}

func TestCreateRejectsBadInputWithoutInsert(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(url.Values)
		cause error
	}{
		{"missing nama", func(v url.Values) { v.Del("nama") }, apperr.ErrValidation},
		{"blank alamat", func(v url.Values) { v.Set("alamat", "   ") }, apperr.ErrValidation},
		{"bad date", func(v url.Values) { v.Set("tanggal_lahir", "17-05-1980") }, apperr.ErrValidation},
		{"latitude out of range", func(v url.Values) { v.Set("latitude", "91") }, apperr.ErrValidation},
		{"latitude not a number", func(v url.Values) { v.Set("latitude", "NaN") }, apperr.ErrValidation},
		{"infinite longitude", func(v url.Values) { v.Set("longitude", "+Inf") }, apperr.ErrValidation},
		{"polygon with z", func(v url.Values) { v.Set("polygon", "POLYGON((0 0 5,0 1 5,1 1 5,0 0 5))") }, apperr.ErrInvalidGeometry},
		{"negative area", func(v url.Values) { v.Set("luas_lahan", "-1") }, apperr.ErrInvalidArea},
		{"area not a number", func(v url.Values) { v.Set("luas_lahan", "satu") }, apperr.ErrInvalidArea},
		{"not a polygon", func(v url.Values) { v.Set("polygon", "LINESTRING(0 0,1 1)") }, apperr.ErrInvalidGeometry},
		{"missing polygon", func(v url.Values) { v.Del("polygon") }, apperr.ErrInvalidGeometry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			form := validForm()
			tc.edit(form)

			resp := f.do(t, http.MethodPost, "/form_petani", form, "")

			assert.Equal(t, "/form_petani", resp.Header.Get("Location"))
			got := f.flash(t, resp)
			assert.Equal(t, websession.FlashError, got.Category)
			assert.Equal(t, apperr.Message(tc.cause), got.Message)
			f.farmers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCreateDatabaseErrorShowsGenericNotice(t *testing.T) {
	f := newFixture(t)
	driverErr := errors.New(`pq: parse error - invalid geometry near "((0"`)
	f.farmers.On("Create", mock.Anything, alice, mock.Anything).
		Return(uint(0), fmt.Errorf("%w: %w", apperr.ErrDatabase, driverErr)).Once()

	resp := f.do(t, http.MethodPost, "/form_petani", validForm(), "")

	assert.Equal(t, "/form_petani", resp.Header.Get("Location"))
	got := f.flash(t, resp)
	assert.Equal(t, "Terjadi kesalahan pada database.", got.Message)
	assert.NotContains(t, got.Message, "pq:")
}

func TestEditForeignFarmerIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.farmers.On("FindForOwner", mock.Anything, uint(99), alice.UserID).Return(nil, apperr.ErrNotFound).Once()

	resp := f.do(t, http.MethodGet, "/edit_petani/99", nil, "")

	assert.Equal(t, "/riwayat_petani", resp.Header.Get("Location"))
	assert.Equal(t, "Data petani tidak ditemukan.", f.flash(t, resp).Message)
}

func TestEditFormRendersOwnedFarmer(t *testing.T) {
	f := newFixture(t)
	f.farmers.On("FindForOwner", mock.Anything, uint(5), alice.UserID).
		Return(&store.FarmerView{ID: 5, Nama: "Budi", LahanWKT: "MULTIPOLYGON(((0 0,0 1,1 1,1 0,0 0)))"}, nil).Once()

	resp := f.do(t, http.MethodGet, "/edit_petani/5", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var p struct {
		Page string `json:"page"`
		Data struct {
			Petani store.FarmerView `json:"petani"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, "edit_petani", p.Page)
	assert.Equal(t, "Budi", p.Data.Petani.Nama)
}

func TestUpdateKeepsBlankOptionalFields(t *testing.T) {
	f := newFixture(t)
	f.farmers.On("Update", mock.Anything, alice, uint(5), mock.MatchedBy(func(in store.FarmerInput) bool {
		return in.Nama == "Budi Santoso" && in.Lokasi == nil && in.LahanWKT == "" &&
			in.LuasLahan == nil && in.TanggalLahir == nil
	})).Return(nil).Once()

	form := url.Values{
		"nama":   {"Budi Santoso"},
		"nik":    {"3201010101800001"},
		"no_hp":  {"08123456789"},
		"alamat": {"Desa Sukamaju"},
	}
	resp := f.do(t, http.MethodPost, "/edit_petani/5", form, "")

	assert.Equal(t, "/riwayat_petani", resp.Header.Get("Location"))
	f.farmers.AssertExpectations(t)
}

func TestUpdateRejectsHalfALocation(t *testing.T) {
	f := newFixture(t)
	form := url.Values{
		"nama":     {"Budi"},
		"nik":      {"1"},
		"no_hp":    {"0812"},
		"alamat":   {"Desa"},
		"latitude": {"-6.2"},
	}

	resp := f.do(t, http.MethodPost, "/edit_petani/5", form, "")

	assert.Equal(t, "/edit_petani/5", resp.Header.Get("Location"))
	f.farmers.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateForeignFarmerIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.farmers.On("Update", mock.Anything, alice, uint(42), mock.Anything).Return(apperr.ErrNotFound).Once()
	form := url.Values{"nama": {"x"}, "nik": {"1"}, "no_hp": {"0812"}, "alamat": {"Desa"}}

	resp := f.do(t, http.MethodPost, "/edit_petani/42", form, "")

	assert.Equal(t, "/riwayat_petani", resp.Header.Get("Location"))
	assert.Equal(t, "Data petani tidak ditemukan.", f.flash(t, resp).Message)
}

func TestDeleteForeignFarmerIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.farmers.On("Delete", mock.Anything, alice, uint(42)).Return(apperr.ErrNotFound).Once()

	resp := f.do(t, http.MethodGet, "/hapus_petani/42", nil, "")

	assert.Equal(t, "/riwayat_petani", resp.Header.Get("Location"))
	got := f.flash(t, resp)
	assert.Equal(t, websession.FlashError, got.Category)
	assert.Equal(t, "Data petani tidak ditemukan.", got.Message)
}

func TestDeleteRejectsMalformedID(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/hapus_petani/abc", nil, "")

	assert.Equal(t, "/riwayat_petani", resp.Header.Get("Location"))
	f.farmers.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestHistoryListsOwnedFarmers(t *testing.T) {
	f := newFixture(t)
	f.farmers.On("ListByOwner", mock.Anything, alice.UserID).
		Return([]store.FarmerView{{ID: 2, Nama: "Siti"}, {ID: 1, Nama: "Budi"}}, nil).Once()

	resp := f.do(t, http.MethodGet, "/riwayat_petani", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var p struct {
		Data struct {
			Petani []store.FarmerView `json:"petani"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	require.Len(t, p.Data.Petani, 2)
	assert.Equal(t, "Siti", p.Data.Petani[0].Nama)
}

func TestExportServesWorkbook(t *testing.T) {
	f := newFixture(t)
	f.farmers.On("ListByOwner", mock.Anything, alice.UserID).Return([]store.FarmerView{{ID: 1, Nama: "Budi"}}, nil).Once()

	resp := f.do(t, http.MethodGet, "/riwayat_petani/export", nil, "")

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "riwayat_petani.xlsx")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, len(body) > 4 && string(body[:2]) == "PK", "xlsx is a zip archive")
}

func TestParcelsFeatureCollection(t *testing.T) {
	f := newFixture(t)
	f.farmers.On("Parcels", mock.Anything, alice.UserID).Return([]store.Parcel{{
		ID:        1,
		Nama:      "Budi",
		LuasLahan: 1.5,
		GeoJSON:   `{"type":"MultiPolygon","coordinates":[[[[0,0],[0,1],[1,1],[1,0],[0,0]]]]}`,
	}}, nil).Once()

	resp := f.do(t, http.MethodGet, "/api/lahan", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "MultiPolygon", fc.Features[0].Geometry.Type)
	assert.Equal(t, "Budi", fc.Features[0].Properties["nama"])
}

func TestImportCreatesValidRowsAndReportsBadOnes(t *testing.T) {
	f := newFixture(t)

	lat, lon := -6.2, 106.8
	lahir := time.Date(1980, 5, 17, 0, 0, 0, 0, time.UTC)
	good := store.FarmerView{
		Nama: "Budi", NIK: "1", TanggalLahir: &lahir, NoHP: "0812", Alamat: "Desa",
		Latitude: &lat, Longitude: &lon, LuasLahan: 1,
		LahanWKT: "MULTIPOLYGON(((0 0,0 1,1 1,0 0)))",
	}
	bad := good
	bad.Nama = "Siti"
	bad.LahanWKT = "LINESTRING(0 0,1 1)"
	workbook, err := export.Farmers([]store.FarmerView{good, bad})
	require.NoError(t, err)

	f.farmers.On("Create", mock.Anything, alice, mock.MatchedBy(func(in store.FarmerInput) bool {
		return in.Nama == "Budi"
	})).Return(uint(10), nil).Once()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "petani.xlsx")
	require.NoError(t, err)
	_, err = part.Write(workbook)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/riwayat_petani/import", &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, f.bearer)
	resp, err := f.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "/riwayat_petani", resp.Header.Get("Location"))
	f.farmers.AssertExpectations(t)
	f.farmers.AssertNumberOfCalls(t, "Create", 1)
}

func TestImportUnreadableFileShowsFixedNotice(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "petani.xlsx")
	require.NoError(t, err)
	_, err = part.Write([]byte("nama,nik\nBudi,1\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/riwayat_petani/import", &body)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, f.bearer)
	resp, err := f.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "/riwayat_petani", resp.Header.Get("Location"))
	got := f.flash(t, resp)
	assert.Equal(t, websession.FlashError, got.Category)
	assert.Equal(t, "File Excel tidak dapat dibaca.", got.Message)
	assert.NotContains(t, got.Message, "zip")
	f.farmers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}
