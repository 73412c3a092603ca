package mocks

import (
	"context"

	"petani-backend/internal/store"

	"github.com/stretchr/testify/mock"
)

type RecordStore struct{ mock.Mock }

func (m *RecordStore) Create(ctx context.Context, actor store.Actor, table store.ChildTable, rec store.ChildRecord) error {
	return m.Called(ctx, actor, table, rec).Error(0)
}
