package models

// Setting is a system-wide key/value preference. The moderation guidelines
// text lives here under SettingKeyGuidelines.
type Setting struct {
	ID        uint   `gorm:"column:id;primaryKey" json:"id"`
	Key       string `gorm:"column:key;size:100;uniqueIndex;not null" json:"key"`
	Value     string `gorm:"column:value;type:text" json:"value"`
	ValueType string `gorm:"column:value_type;size:20;default:string" json:"value_type"` // string, int, bool, json
}

func (Setting) TableName() string {
	return "settings"
}

const SettingKeyGuidelines = "moderation_guidelines"

// DefaultGuidelines is the compiled-in moderation policy used whenever the
// admin has not stored a custom one.
const DefaultGuidelines = `Reject prompts that request violent, sexual, hateful or otherwise harmful imagery, depictions of real people, or content that could endanger minors. Approve everything else.`
