package models

import "time"

// AuditLog records one privileged admin action.
type AuditLog struct {
	ID         uint      `gorm:"column:id;primaryKey" json:"id"`
	Action     string    `gorm:"column:action;size:20;not null;index" json:"action"` // create, update, delete
	Method     string    `gorm:"column:method;size:10;not null" json:"method"`
	Path       string    `gorm:"column:path;size:255;not null" json:"path"`
	IPAddress  string    `gorm:"column:ip_address;size:50" json:"ip_address"`
	UserAgent  string    `gorm:"column:user_agent;size:255" json:"user_agent"`
	Detail     string    `gorm:"column:detail;type:text" json:"detail"`
	StatusCode int       `gorm:"column:status_code" json:"status_code"`
	CreatedAt  time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
