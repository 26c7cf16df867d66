package models

import "time"

// AccessPassword is an admin-issued shared secret that gates AI capacity.
// Limits and expiry are fixed at creation; an admin replaces the record
// wholesale or deletes it, there is no partial mutation.
type AccessPassword struct {
	ID              uint      `gorm:"column:id;primaryKey" json:"id"`
	Code            string    `gorm:"column:code;size:100;uniqueIndex;not null" json:"code"`
	ImageLimit      int       `gorm:"column:image_limit;not null;default:10" json:"image_limit"`
	SuggestionLimit int       `gorm:"column:suggestion_limit;not null;default:30" json:"suggestion_limit"`
	BypassWatchdog  bool      `gorm:"column:bypass_watchdog;not null;default:false" json:"bypass_watchdog"`
	ExpiresAt       time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`

	// Derived at read time, never stored.
	IsExpired bool `gorm:"-" json:"is_expired"`
}

func (AccessPassword) TableName() string {
	return "access_passwords"
}

// Expired reports whether the password is past its expiry at the given time.
func (p *AccessPassword) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// UsageRecord tracks per-(user, password) consumption. Counters only ever
// grow, and the admission service increments them with a conditional update
// so a counter can never pass its owning password's limit.
type UsageRecord struct {
	ID              uint      `gorm:"column:id;primaryKey" json:"id"`
	UserGUID        string    `gorm:"column:user_guid;size:64;uniqueIndex:idx_usage_user_password;not null" json:"user_guid"`
	PasswordCode    string    `gorm:"column:password_code;size:100;uniqueIndex:idx_usage_user_password;not null" json:"password_code"`
	ImagesGenerated int       `gorm:"column:images_generated;not null;default:0" json:"images_generated"`
	SuggestionsUsed int       `gorm:"column:suggestions_used;not null;default:0" json:"suggestions_used"`
	FirstUsedAt     time.Time `gorm:"column:first_used_at" json:"first_used_at"`
	LastUsedAt      time.Time `gorm:"column:last_used_at" json:"last_used_at"`
}

func (UsageRecord) TableName() string {
	return "usage_records"
}
