package models

import (
	"time"

	"gorm.io/gorm"
)

// MessageStatus controls whether a message is visible to inbox and sent views
type MessageStatus string

const (
	StatusSent     MessageStatus = "sent"
	StatusDraft    MessageStatus = "draft"
	StatusArchived MessageStatus = "archived"
	StatusDeleted  MessageStatus = "deleted"
)

// Valid reports whether s is a known status
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusSent, StatusDraft, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// Priority of a message
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Message is a single document in the shared messages collection.
// Sender fields are denormalized at send time and never refreshed.
type Message struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	SenderID    string        `gorm:"not null;size:255;index" json:"senderId"`
	SenderEmail string        `gorm:"size:255;index" json:"senderEmail"`
	SenderName  string        `gorm:"size:255" json:"senderName"`
	To          string        `gorm:"column:recipient_email;size:255;index:idx_messages_to_status" json:"to,omitempty"`
	Subject     string        `json:"subject"`
	Body        string        `gorm:"column:body" json:"message"`
	Status      MessageStatus `gorm:"size:20;not null;default:'sent';index:idx_messages_to_status" json:"status"`
	Priority    Priority      `gorm:"size:10;default:'normal'" json:"priority"`
	Category    string        `gorm:"size:100" json:"category,omitempty"`
	Timestamp   time.Time     `gorm:"column:sent_at;index" json:"timestamp"`
	ReadAt      *time.Time    `json:"readAt,omitempty"`

	AttachedFile *AttachedFile `gorm:"type:text;serializer:json" json:"attachedFile,omitempty"`

	// Wire-level views of the relation rows below, filled after every load
	RecipientDepartments []string `gorm:"-" json:"recipientDepartments,omitempty"`
	ReadBy               []string `gorm:"-" json:"readBy"`

	// Relationships
	Departments []MessageDepartment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
	Receipts    []ReadReceipt       `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// AfterFind projects relation rows onto the wire-level slices
func (m *Message) AfterFind(tx *gorm.DB) error {
	m.SyncViews()
	return nil
}

// SyncViews rebuilds RecipientDepartments and ReadBy from the loaded relations.
// Views are left untouched when the relations were not loaded.
func (m *Message) SyncViews() {
	if m.Departments != nil {
		m.RecipientDepartments = make([]string, 0, len(m.Departments))
		for _, d := range m.Departments {
			m.RecipientDepartments = append(m.RecipientDepartments, d.Department)
		}
	}
	if m.Receipts != nil {
		m.ReadBy = make([]string, 0, len(m.Receipts))
		for _, r := range m.Receipts {
			m.ReadBy = append(m.ReadBy, r.UserID)
		}
	}
	if m.ReadBy == nil {
		m.ReadBy = []string{}
	}
}

// IsReadBy reports whether userID is a member of ReadBy
func (m *Message) IsReadBy(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// HasDepartment reports whether department is one of the recipient departments
func (m *Message) HasDepartment(department string) bool {
	if department == "" {
		return false
	}
	for _, d := range m.RecipientDepartments {
		if d == department {
			return true
		}
	}
	return false
}

// HasAttachment reports whether a file is embedded in the message
func (m *Message) HasAttachment() bool {
	return m.AttachedFile != nil && m.AttachedFile.Base64Content != ""
}

// HasRecipient reports whether the message is addressed to anyone at all
func (m *Message) HasRecipient() bool {
	return m.To != "" || len(m.RecipientDepartments) > 0
}

// MessageDepartment is one department a message is broadcast to
type MessageDepartment struct {
	MessageID  string `gorm:"primaryKey;size:36" json:"messageId"`
	Department string `gorm:"primaryKey;size:255;index" json:"department"`
}

// TableName returns the table name for MessageDepartment
func (MessageDepartment) TableName() string {
	return "message_departments"
}

// ReadReceipt records that a user has viewed a message.
// The composite key makes repeated reads by the same user a no-op.
type ReadReceipt struct {
	MessageID string    `gorm:"primaryKey;size:36" json:"messageId"`
	UserID    string    `gorm:"primaryKey;size:255" json:"userId"`
	ReadAt    time.Time `gorm:"not null" json:"readAt"`
}

// TableName returns the table name for ReadReceipt
func (ReadReceipt) TableName() string {
	return "read_receipts"
}
