package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SummaryStatus string

const (
	SummaryPending  SummaryStatus = "pending"
	SummaryApproved SummaryStatus = "approved"
	SummarySaved    SummaryStatus = "saved"
)

func (s SummaryStatus) Valid() bool {
	switch s {
	case SummaryPending, SummaryApproved, SummarySaved:
		return true
	}
	return false
}

// Summary is a user-curated digest of a thread.
type Summary struct {
	ID        string        `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string        `gorm:"size:255;not null" json:"title"`
	Content   string        `gorm:"type:text;not null" json:"content"`
	ThreadID  string        `gorm:"type:uuid;not null;index" json:"threadId"`
	Status    SummaryStatus `gorm:"type:varchar(16);not null;default:pending" json:"status"`
	NotionURL *string       `gorm:"column:notion_url" json:"notionUrl"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (s *Summary) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = SummaryPending
	}
	return nil
}
