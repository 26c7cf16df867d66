package models

import "time"

// Image is the metadata record for one generated picture. The file itself
// lives under the configured images directory; Filename is the final on-disk
// name and FilePath the full path used for serving and deletion.
type Image struct {
	ID           string    `gorm:"column:id;size:64;primaryKey" json:"id"`
	UserGUID     string    `gorm:"column:user_guid;size:64;not null;index" json:"user_guid"`
	FilePath     string    `gorm:"column:file_path;size:500;not null" json:"file_path"`
	Filename     string    `gorm:"column:filename;size:100;not null" json:"filename"`
	Prompt       string    `gorm:"column:prompt;type:text;not null" json:"prompt"`
	Description  string    `gorm:"column:description;type:text" json:"description"`
	PasswordCode string    `gorm:"column:password_code;size:100;index" json:"password_code"`
	CreatedAt    time.Time `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Image) TableName() string {
	return "images"
}
