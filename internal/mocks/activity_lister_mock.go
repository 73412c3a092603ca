package mocks

import (
	"context"

	"petani-backend/internal/audit"
	"petani-backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type ActivityLister struct{ mock.Mock }

func (m *ActivityLister) List(ctx context.Context, userID uint, f audit.Filter) ([]models.AuditLog, error) {
	args := m.Called(ctx, userID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditLog), args.Error(1)
}
