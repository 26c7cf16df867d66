package models

import "time"

// ModerationOperation identifies which pipeline asked for the check.
type ModerationOperation string

const (
	ModerationOpGenerate ModerationOperation = "generate"
	ModerationOpEdit     ModerationOperation = "edit"
)

// ModerationRejection is one entry in the append-only audit log of prompts
// the watchdog turned down. Entries are never mutated or deleted.
type ModerationRejection struct {
	ID        uint                `gorm:"column:id;primaryKey" json:"id"`
	Prompt    string              `gorm:"column:prompt;type:text;not null" json:"prompt"`
	Reason    string              `gorm:"column:reason;type:text;not null" json:"reason"`
	Operation ModerationOperation `gorm:"column:operation;size:20;not null;index" json:"operation"`
	CreatedAt time.Time           `gorm:"column:created_at;index" json:"created_at"`
}

func (ModerationRejection) TableName() string {
	return "moderation_rejections"
}
