package models

import "time"

// User is an anonymous browser identity. Possession of the GUID is the only
// form of authentication; the GUID lives in a cookie on the client side.
type User struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"-"`
	GUID      string    `gorm:"column:guid;size:64;uniqueIndex;not null" json:"guid"`
	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}
