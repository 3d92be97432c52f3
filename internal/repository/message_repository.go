package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	Find(ctx context.Context, q Query) ([]models.Message, error)
	UpdateStatus(ctx context.Context, id string, status models.MessageStatus) error
	MarkSent(ctx context.Context, id string, at time.Time) error
	AddReadReceipt(ctx context.Context, id, userID string, at time.Time) (bool, error)
	Ping(ctx context.Context) error
}

// messageRepository implements MessageRepository using GORM
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository instance
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create inserts a message together with its department rows.
// An id is assigned when the message has none.
func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	if message == nil {
		return ErrInvalidInput
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}

	message.Departments = make([]models.MessageDepartment, 0, len(message.RecipientDepartments))
	for _, d := range message.RecipientDepartments {
		message.Departments = append(message.Departments, models.MessageDepartment{MessageID: message.ID, Department: d})
	}
	message.Receipts = nil

	result := r.db.WithContext(ctx).Create(message)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create message: %w", result.Error)
	}
	message.SyncViews()
	return nil
}

// GetByID retrieves a message by its ID with departments and read receipts
func (r *messageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	var message models.Message
	result := r.db.WithContext(ctx).
		Preload("Departments").
		Preload("Receipts").
		First(&message, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message by ID: %w", result.Error)
	}
	return &message, nil
}

// Find returns every message matching q
func (r *messageRepository) Find(ctx context.Context, q Query) ([]models.Message, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Preload("Departments").
		Preload("Receipts")

	if q.Status != "" {
		tx = tx.Where("messages.status = ?", q.Status)
	}
	if q.To != "" {
		tx = tx.Where("messages.recipient_email = ?", q.To)
	}
	if q.Department != "" {
		tx = tx.Where("EXISTS (SELECT 1 FROM message_departments md WHERE md.message_id = messages.id AND md.department = ?)", q.Department)
	}
	switch {
	case q.SenderEmail != "" && len(q.SenderIDs) > 0:
		tx = tx.Where("(messages.sender_id IN ? OR messages.sender_email = ?)", q.SenderIDs, q.SenderEmail)
	case q.SenderEmail != "":
		tx = tx.Where("messages.sender_email = ?", q.SenderEmail)
	case len(q.SenderIDs) > 0:
		tx = tx.Where("messages.sender_id IN ?", q.SenderIDs)
	}
	if q.OrderByTimestamp {
		tx = tx.Order("messages.sent_at DESC").Order("messages.id ASC")
	}

	var messages []models.Message
	if err := tx.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	return messages, nil
}

// UpdateStatus sets the status of a message
func (r *messageRepository) UpdateStatus(ctx context.Context, id string, status models.MessageStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update message status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSent moves a message to sent and restamps its timestamp
func (r *messageRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":  models.StatusSent,
		"sent_at": at,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to send message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddReadReceipt records that userID read the message.
// It reports false when the receipt already existed; repeated calls never duplicate it.
func (r *messageRepository) AddReadReceipt(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	added := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Message{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up message: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}

		receipt := models.ReadReceipt{MessageID: id, UserID: userID, ReadAt: at}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&receipt)
		if result.Error != nil {
			return fmt.Errorf("failed to add read receipt: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		added = true

		if err := tx.Model(&models.Message{}).Where("id = ?", id).Update("read_at", at).Error; err != nil {
			return fmt.Errorf("failed to stamp read time: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// Ping checks that the store is reachable
func (r *messageRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
