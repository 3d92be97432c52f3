package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/repository"
)

// MockMessageRepository implements repository.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Create creates a new message
func (m *MockMessageRepository) Create(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// GetByID retrieves a message by its ID
func (m *MockMessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// Find returns messages matching a query
func (m *MockMessageRepository) Find(ctx context.Context, q repository.Query) ([]models.Message, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// UpdateStatus sets a message status
func (m *MockMessageRepository) UpdateStatus(ctx context.Context, id string, status models.MessageStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MarkSent moves a draft to sent
func (m *MockMessageRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// AddReadReceipt records a read receipt
func (m *MockMessageRepository) AddReadReceipt(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, userID, at)
	return args.Bool(0), args.Error(1)
}

// Ping checks store reachability
func (m *MockMessageRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ repository.MessageRepository = (*MockMessageRepository)(nil)
