// Package validation wraps go-playground/validator with the form rules used by
// the farmer registry.
//
// Fields are reported by their `form` tag so handlers can talk about the same
// names the browser submitted. Custom tags:
//
//	wkt_polygon    POLYGON/MULTIPOLYGON literal (see package geometry)
//	date_ymd       calendar date in YYYY-MM-DD form
//	nonneg_number  decimal text that parses as a finite number >= 0
package validation

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"petani-backend/internal/geometry"
)

const DateLayout = "2006-01-02"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func get() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		mustRegister(v, "wkt_polygon", func(fl validator.FieldLevel) bool {
			return geometry.Validate(fl.Field().String()) == nil
		})
		mustRegister(v, "date_ymd", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(DateLayout, strings.TrimSpace(fl.Field().String()))
			return err == nil
		})
		mustRegister(v, "nonneg_number", func(fl validator.FieldLevel) bool {
			_, ok := NonNegative(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("validation: register " + tag + ": " + err.Error())
	}
}

// NonNegative parses s as a finite number >= 0.
func NonNegative(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

// FieldError is one failed rule.
type FieldError struct {
	Field string
	Tag   string
}

// Error collects every failed rule of one struct.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Tag)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Has reports whether field failed any rule.
func (e *Error) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// HasTag reports whether any field failed the given rule.
func (e *Error) HasTag(tag string) bool {
	for _, f := range e.Fields {
		if f.Tag == tag {
			return true
		}
	}
	return false
}

// Struct validates s and returns nil or *Error.
func Struct(s interface{}) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Tag: fe.Tag()})
	}
	return out
}
