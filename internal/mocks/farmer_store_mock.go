package mocks

import (
	"context"

	"petani-backend/internal/store"

	"github.com/stretchr/testify/mock"
)

type FarmerStore struct{ mock.Mock }

func (m *FarmerStore) Create(ctx context.Context, actor store.Actor, in store.FarmerInput) (uint, error) {
	args := m.Called(ctx, actor, in)
	return args.Get(0).(uint), args.Error(1)
}

func (m *FarmerStore) ListByOwner(ctx context.Context, ownerID uint) ([]store.FarmerView, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.FarmerView), args.Error(1)
}

func (m *FarmerStore) FindForOwner(ctx context.Context, id, ownerID uint) (*store.FarmerView, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.FarmerView), args.Error(1)
}

func (m *FarmerStore) Update(ctx context.Context, actor store.Actor, id uint, in store.FarmerInput) error {
	return m.Called(ctx, actor, id, in).Error(0)
}

func (m *FarmerStore) Delete(ctx context.Context, actor store.Actor, id uint) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *FarmerStore) Options(ctx context.Context, ownerID uint) ([]store.FarmerOption, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.FarmerOption), args.Error(1)
}

func (m *FarmerStore) Parcels(ctx context.Context, ownerID uint) ([]store.Parcel, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Parcel), args.Error(1)
}

func (m *FarmerStore) Summary(ctx context.Context, ownerID uint) (*store.Summary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Summary), args.Error(1)
}
