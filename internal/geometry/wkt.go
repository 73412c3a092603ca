// Package geometry checks and normalizes the WKT text submitted for land
// parcels before it reaches PostGIS.
//
// The check is syntactic only: keyword, parenthesis nesting and numeric
// coordinates. Ring closure and self-intersection are left to PostGIS, which
// may still reject a shape at insert time.
package geometry

import (
	"fmt"
	"strconv"
	"strings"

	"petani-backend/internal/apperr"
)

// SRID of every geometry column (WGS 84 lon/lat).
const SRID = 4326

// Ring is a sequence of coordinates, each kept as its normalized "x y" text.
type Ring []string

// Polygon is an outer ring followed by optional holes.
type Polygon []Ring

type MultiPolygon []Polygon

// WKT renders m in canonical upper-case form.
func (m MultiPolygon) WKT() string {
	var b strings.Builder
	b.WriteString("MULTIPOLYGON(")
	for i, p := range m {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for j, r := range p {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('(')
			b.WriteString(strings.Join(r, ","))
			b.WriteByte(')')
		}
		b.WriteByte(')')
	}
	b.WriteByte(')')
	return b.String()
}

// Parse reads a POLYGON or MULTIPOLYGON literal. A POLYGON comes back as a
// multipolygon of one.
func Parse(text string) (MultiPolygon, error) {
	s := &scanner{src: strings.TrimSpace(text)}
	if s.src == "" {
		return nil, fmt.Errorf("%w: empty", apperr.ErrInvalidGeometry)
	}

	kw := strings.ToUpper(s.word())
	var (
		out MultiPolygon
		err error
	)
	switch kw {
	case "POLYGON":
		var p Polygon
		p, err = s.polygon()
		out = MultiPolygon{p}
	case "MULTIPOLYGON":
		out, err = s.multiPolygon()
	default:
		return nil, fmt.Errorf("%w: expected POLYGON, got %q", apperr.ErrInvalidGeometry, kw)
	}
	if err != nil {
		return nil, err
	}
	s.skipSpace()
	if !s.eof() {
		return nil, s.fail("trailing input")
	}
	return out, nil
}

// Validate reports whether text is an acceptable parcel literal.
func Validate(text string) error {
	_, err := Parse(text)
	return err
}

// Normalize parses text and returns its MULTIPOLYGON form.
func Normalize(text string) (string, error) {
	m, err := Parse(text)
	if err != nil {
		return "", err
	}
	return m.WKT(), nil
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) fail(what string) error {
	return fmt.Errorf("%w: %s at offset %d", apperr.ErrInvalidGeometry, what, s.pos)
}

func (s *scanner) skipSpace() {
	for !s.eof() {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) word() string {
	s.skipSpace()
	start := s.pos
	for !s.eof() {
		c := s.src[s.pos]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			break
		}
		s.pos++
	}
	return s.src[start:s.pos]
}

func (s *scanner) expect(c byte) error {
	s.skipSpace()
	if s.eof() || s.src[s.pos] != c {
		return s.fail(fmt.Sprintf("expected %q", c))
	}
	s.pos++
	return nil
}

// more consumes a ',' and returns true, or returns false at ')'.
func (s *scanner) more() (bool, error) {
	s.skipSpace()
	if s.eof() {
		return false, s.fail("unbalanced parentheses")
	}
	switch s.src[s.pos] {
	case ',':
		s.pos++
		return true, nil
	case ')':
		s.pos++
		return false, nil
	}
	return false, s.fail("expected ',' or ')'")
}

func (s *scanner) multiPolygon() (MultiPolygon, error) {
	if err := s.expect('('); err != nil {
		return nil, err
	}
	var out MultiPolygon
	for {
		p, err := s.polygon()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		next, err := s.more()
		if err != nil {
			return nil, err
		}
		if !next {
			return out, nil
		}
	}
}

func (s *scanner) polygon() (Polygon, error) {
	if err := s.expect('('); err != nil {
		return nil, err
	}
	var out Polygon
	for {
		r, err := s.ring()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		next, err := s.more()
		if err != nil {
			return nil, err
		}
		if !next {
			return out, nil
		}
	}
}

func (s *scanner) ring() (Ring, error) {
	if err := s.expect('('); err != nil {
		return nil, err
	}
	var out Ring
	for {
		c, err := s.coordinate()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		next, err := s.more()
		if err != nil {
			return nil, err
		}
		if !next {
			return out, nil
		}
	}
}

// coordinate reads exactly two whitespace separated numbers (x y); the
// lahan column is two-dimensional.
func (s *scanner) coordinate() (string, error) {
	var parts []string
	for {
		s.skipSpace()
		start := s.pos
		for !s.eof() && strings.IndexByte("+-.0123456789eE", s.src[s.pos]) >= 0 {
			s.pos++
		}
		if start == s.pos {
			break
		}
		tok := s.src[start:s.pos]
		if _, err := strconv.ParseFloat(tok, 64); err != nil {
			return "", s.fail(fmt.Sprintf("bad number %q", tok))
		}
		parts = append(parts, tok)
	}
	if len(parts) != 2 {
		return "", s.fail("coordinate needs exactly 2 numbers")
	}
	return strings.Join(parts, " "), nil
}
