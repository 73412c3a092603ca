package apperr

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidArea         = errors.New("invalid area")
	ErrInvalidGeometry     = errors.New("invalid geometry")
	ErrDuplicateUsername   = errors.New("duplicate username")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrNotFound            = errors.New("not found")
	ErrDatabaseUnavailable = errors.New("database unavailable")
	ErrDatabase            = errors.New("database error")
)

// Message returns the text shown to the user for err. Driver errors never leak
// through here; anything unknown collapses to the generic database notice.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "Semua field wajib diisi dengan format yang benar."
	case errors.Is(err, ErrInvalidArea):
		return "Luas lahan harus berupa angka dan tidak boleh negatif."
	case errors.Is(err, ErrInvalidGeometry):
		return "Format polygon tidak valid. Contoh: POLYGON((106.8 -6.2, 106.9 -6.2, 106.9 -6.3, 106.8 -6.2))"
	case errors.Is(err, ErrDuplicateUsername):
		return "Username sudah terdaftar."
	case errors.Is(err, ErrInvalidCredentials):
		return "Username atau password salah."
	case errors.Is(err, ErrUnauthenticated):
		return "Silakan login terlebih dahulu."
	case errors.Is(err, ErrNotFound):
		return "Data petani tidak ditemukan."
	case errors.Is(err, ErrDatabaseUnavailable):
		return "Database tidak dapat dihubungi. Silakan coba lagi nanti."
	default:
		return "Terjadi kesalahan pada database."
	}
}

// IsDatabase reports whether err came from the database rather than from
// user input.
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase) || errors.Is(err, ErrDatabaseUnavailable)
}
