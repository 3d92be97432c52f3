package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
)

// Identities used throughout the tests
var (
	Alice = models.Identity{UID: "user-a", Email: "alice@example.com", Department: "Finance", FullName: "Alice Adams"}
	Bob   = models.Identity{UID: "user-b", Email: "bob@example.com", Department: "HR", FullName: "Bob Brown"}
	Carol = models.Identity{UID: "user-c", Email: "carol@example.com", Department: "IT", FullName: "Carol Chen"}
)

// MessageBuilder creates test Message instances with fluent API
type MessageBuilder struct {
	message models.Message
}

// NewMessageBuilder creates a new MessageBuilder with sensible defaults
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		message: models.Message{
			ID:          uuid.NewString(),
			SenderID:    Alice.UID,
			SenderEmail: Alice.Email,
			SenderName:  Alice.FullName,
			Subject:     "Test Subject",
			Body:        "Test body",
			Status:      models.StatusSent,
			Priority:    models.PriorityNormal,
			Timestamp:   time.Now(),
			ReadBy:      []string{},
		},
	}
}

// WithID sets the message ID
func (b *MessageBuilder) WithID(id string) *MessageBuilder {
	b.message.ID = id
	return b
}

// From sets the sender fields from an identity
func (b *MessageBuilder) From(identity models.Identity) *MessageBuilder {
	b.message.SenderID = identity.UID
	b.message.SenderEmail = identity.Email
	b.message.SenderName = identity.DisplayName()
	return b
}

// To sets the direct recipient
func (b *MessageBuilder) To(email string) *MessageBuilder {
	b.message.To = email
	return b
}

// ToDepartments sets the recipient departments
func (b *MessageBuilder) ToDepartments(departments ...string) *MessageBuilder {
	b.message.RecipientDepartments = departments
	return b
}

// WithSubject sets the subject
func (b *MessageBuilder) WithSubject(subject string) *MessageBuilder {
	b.message.Subject = subject
	return b
}

// WithStatus sets the status
func (b *MessageBuilder) WithStatus(status models.MessageStatus) *MessageBuilder {
	b.message.Status = status
	return b
}

// WithPriority sets the priority
func (b *MessageBuilder) WithPriority(priority models.Priority) *MessageBuilder {
	b.message.Priority = priority
	return b
}

// WithTimestamp sets the timestamp
func (b *MessageBuilder) WithTimestamp(ts time.Time) *MessageBuilder {
	b.message.Timestamp = ts
	return b
}

// ReadBy sets the reader ids
func (b *MessageBuilder) ReadBy(userIDs ...string) *MessageBuilder {
	b.message.ReadBy = userIDs
	return b
}

// WithAttachment embeds a small text attachment
func (b *MessageBuilder) WithAttachment(name string) *MessageBuilder {
	b.message.AttachedFile = &models.AttachedFile{
		Name:          name,
		Size:          5,
		Type:          "text/plain",
		Base64Content: "aGVsbG8=",
	}
	return b
}

// Build returns the constructed Message
func (b *MessageBuilder) Build() models.Message {
	return b.message
}

// BuildPtr returns a pointer to the constructed Message
func (b *MessageBuilder) BuildPtr() *models.Message {
	m := b.message
	return &m
}
