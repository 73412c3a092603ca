package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"petani-backend/internal/apperr"
	"petani-backend/internal/models"
)

// GormUserStore implements UserStore using GORM.
type GormUserStore struct{ db *gorm.DB }

func NewUserStore(db *gorm.DB) *GormUserStore { return &GormUserStore{db: db} }

func (s *GormUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, classify(err)
	}
	return &u, nil
}

// Create relies on the unique index for concurrent registrations; the
// lookup beforehand only saves a failed INSERT in the common case.
func (s *GormUserStore) Create(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ?", u.Username).Count(&n).Error; err != nil {
			return classify(err)
		}
		if n > 0 {
			return apperr.ErrDuplicateUsername
		}
		if err := tx.Create(u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", apperr.ErrDuplicateUsername, u.Username)
			}
			return classify(err)
		}
		return nil
	})
}
