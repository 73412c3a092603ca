package petani

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"petani-backend/internal/apperr"
	"petani-backend/internal/geometry"
	"petani-backend/internal/store"
	"petani-backend/internal/validation"
)

// createForm is the body of POST /form_petani. Every field is mandatory.
type createForm struct {
	Nama         string `form:"nama" validate:"required"`
	NIK          string `form:"nik" validate:"required"`
	TanggalLahir string `form:"tanggal_lahir" validate:"required,date_ymd"`
	NoHP         string `form:"no_hp" validate:"required"`
	Alamat       string `form:"alamat" validate:"required"`
	Latitude     string `form:"latitude" validate:"required"`
	Longitude    string `form:"longitude" validate:"required"`
	Polygon      string `form:"polygon" validate:"wkt_polygon"`
	LuasLahan    string `form:"luas_lahan" validate:"required,nonneg_number"`
}

// updateForm is the body of POST /edit_petani/:id. Blank optional fields keep
// the stored value; latitude and longitude travel as a pair.
type updateForm struct {
	Nama         string `form:"nama" validate:"required"`
	NIK          string `form:"nik" validate:"required"`
	TanggalLahir string `form:"tanggal_lahir" validate:"omitempty,date_ymd"`
	NoHP         string `form:"no_hp" validate:"required"`
	Alamat       string `form:"alamat" validate:"required"`
	Latitude     string `form:"latitude" validate:"required_with=Longitude"`
	Longitude    string `form:"longitude" validate:"required_with=Latitude"`
	Polygon      string `form:"polygon" validate:"omitempty,wkt_polygon"`
	LuasLahan    string `form:"luas_lahan" validate:"omitempty,nonneg_number"`
}

func (f *createForm) input() (store.FarmerInput, error) {
	trimStrings(f)
	if err := check(f); err != nil {
		return store.FarmerInput{}, err
	}
	return build(fields(*f))
}

func (f *updateForm) input() (store.FarmerInput, error) {
	trimStrings(f)
	if err := check(f); err != nil {
		return store.FarmerInput{}, err
	}
	return build(fields(*f))
}

// fields is the common shape of both forms after validation.
type fields struct {
	Nama, NIK, TanggalLahir, NoHP, Alamat string
	Latitude, Longitude, Polygon          string
	LuasLahan                             string
}

func build(f fields) (store.FarmerInput, error) {
	in := store.FarmerInput{
		Nama:   f.Nama,
		NIK:    f.NIK,
		NoHP:   f.NoHP,
		Alamat: f.Alamat,
	}
	if f.TanggalLahir != "" {
		d, err := time.Parse(validation.DateLayout, f.TanggalLahir)
		if err != nil {
			return in, fmt.Errorf("%w: tanggal_lahir", apperr.ErrValidation)
		}
		in.TanggalLahir = &d
	}
	if f.Latitude != "" || f.Longitude != "" {
		p, err := geometry.ParsePoint(f.Latitude, f.Longitude)
		if err != nil {
			return in, err
		}
		in.Lokasi = &p
	}
	if f.LuasLahan != "" {
		area, ok := validation.NonNegative(f.LuasLahan)
		if !ok {
			return in, apperr.ErrInvalidArea
		}
		in.LuasLahan = &area
	}
	if f.Polygon != "" {
		wkt, err := geometry.Normalize(f.Polygon)
		if err != nil {
			return in, err
		}
		in.LahanWKT = wkt
	}
	return in, nil
}

// check runs the struct rules and maps the failures onto the error taxonomy:
// a missing field outranks a bad area, which outranks a bad polygon.
func check(form interface{}) error {
	err := validation.Struct(form)
	if err == nil {
		return nil
	}
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	switch {
	case verr.HasTag("required"), verr.HasTag("required_with"):
		return fmt.Errorf("%w: %v", apperr.ErrValidation, verr)
	case verr.Has("luas_lahan"):
		return fmt.Errorf("%w: %v", apperr.ErrInvalidArea, verr)
	case verr.Has("polygon"):
		return fmt.Errorf("%w: %v", apperr.ErrInvalidGeometry, verr)
	default:
		return fmt.Errorf("%w: %v", apperr.ErrValidation, verr)
	}
}

// trimStrings trims every string field of the struct ptr points to.
func trimStrings(ptr interface{}) {
	v := reflect.ValueOf(ptr).Elem()
	for i := 0; i < v.NumField(); i++ {
		if f := v.Field(i); f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}
