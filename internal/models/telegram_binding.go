package models

import "time"

// TelegramBinding records which thread a Telegram chat is currently writing into.
type TelegramBinding struct {
	ChatID    int64     `gorm:"primaryKey;autoIncrement:false" json:"chatId"`
	ThreadID  string    `gorm:"type:uuid;not null;index" json:"threadId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Thread *Thread `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
