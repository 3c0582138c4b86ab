package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
)

func (s ArticleStatus) Valid() bool {
	return s == ArticleDraft || s == ArticlePublished
}

// Article is a long-form text derived from a thread. Once published to Qiita
// the status is "published" and QiitaURL holds the canonical URL.
type Article struct {
	ID        string        `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string        `gorm:"size:255;not null" json:"title"`
	Content   string        `gorm:"type:text;not null" json:"content"`
	Status    ArticleStatus `gorm:"type:varchar(16);not null;default:draft" json:"status"`
	QiitaURL  *string       `gorm:"column:qiita_url" json:"qiitaUrl"`
	ThreadID  *string       `gorm:"type:uuid;index" json:"threadId"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`

	Thread *Thread `gorm:"constraint:OnDelete:SET NULL" json:"-"`
}

func (a *Article) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = ArticleDraft
	}
	return nil
}

// Published reports whether the article already went out to Qiita.
func (a *Article) Published() bool {
	return a.Status == ArticlePublished && a.QiitaURL != nil && *a.QiitaURL != ""
}

// Slide is a Marp-formatted presentation derived from a thread.
type Slide struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ThreadID  *string   `gorm:"type:uuid;index" json:"threadId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Thread *Thread `gorm:"constraint:OnDelete:SET NULL" json:"-"`
}

func (s *Slide) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SlideDetail is a slide together with a projection of its source thread.
type SlideDetail struct {
	Slide
	Thread *ThreadRef `json:"thread"`
}
