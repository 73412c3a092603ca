package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"petani-backend/internal/apperr"
)

type Point struct {
	Lat float64
	Lon float64
}

// ParsePoint parses form text for latitude and longitude and checks ranges.
func ParsePoint(lat, lon string) (Point, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: latitude %q", apperr.ErrValidation, lat)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: longitude %q", apperr.ErrValidation, lon)
	}
	p := Point{Lat: la, Lon: lo}
	return p, p.Validate()
}

func (p Point) Validate() error {
	if !finite(p.Lat) || !finite(p.Lon) {
		return fmt.Errorf("%w: coordinates must be finite", apperr.ErrValidation)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", apperr.ErrValidation, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", apperr.ErrValidation, p.Lon)
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// WKT renders the point in x/y (lon lat) order.
func (p Point) WKT() string {
	return fmt.Sprintf("POINT(%s %s)",
		strconv.FormatFloat(p.Lon, 'f', -1, 64),
		strconv.FormatFloat(p.Lat, 'f', -1, 64))
}
