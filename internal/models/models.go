package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Thread is a chat conversation made of ordered messages.
type Thread struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Title     *string   `gorm:"size:255" json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Messages  []Message `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
	Summaries []Summary `gorm:"constraint:OnDelete:CASCADE" json:"summaries,omitempty"`
}

func (t *Thread) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// DisplayTitle returns the thread title or fallback when it is unset.
func (t *Thread) DisplayTitle(fallback string) string {
	if t.Title == nil || strings.TrimSpace(*t.Title) == "" {
		return fallback
	}
	return *t.Title
}

// ThreadListItem is a thread with the sizes of its child collections.
type ThreadListItem struct {
	Thread
	MessageCount int64 `json:"messageCount"`
	SummaryCount int64 `json:"summaryCount"`
}

// ThreadRef is the thin projection of a thread embedded in other resources.
type ThreadRef struct {
	ID    string  `json:"id"`
	Title *string `json:"title"`
}

// Message is one turn in a thread. Messages are never updated.
type Message struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Role      Role      `gorm:"type:varchar(16);not null" json:"role"`
	ThreadID  string    `gorm:"type:uuid;not null;index:idx_messages_thread_created,priority:1" json:"threadId"`
	CreatedAt time.Time `gorm:"index:idx_messages_thread_created,priority:2" json:"createdAt"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ChatTurn is a role/content pair handed to the language model.
type ChatTurn struct {
	Role    Role
	Content string
}
