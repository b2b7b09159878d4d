package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studytask-api/internal/domain"
	"github.com/phrazzld/studytask-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockTaskStore mocks store.TaskStore. WithTx returns the mock itself.
type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskStore) LockByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskStore) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Task), args.Error(1)
}

func (m *MockTaskStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.TaskState, updatedAt time.Time) error {
	args := m.Called(ctx, id, state, updatedAt)
	return args.Error(0)
}

func (m *MockTaskStore) WithTx(*sql.Tx) store.TaskStore {
	return m
}

// MockVerificationAttemptStore mocks store.VerificationAttemptStore.
type MockVerificationAttemptStore struct {
	mock.Mock
}

func (m *MockVerificationAttemptStore) Create(ctx context.Context, attempt *domain.VerificationAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockVerificationAttemptStore) ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*domain.VerificationAttempt, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VerificationAttempt), args.Error(1)
}

func (m *MockVerificationAttemptStore) WithTx(*sql.Tx) store.VerificationAttemptStore {
	return m
}
