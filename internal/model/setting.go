package model

import "time"

// Setting keys.
const (
	SettingNotificationsEnabled = "notifications_enabled"
	SettingAccessToken          = "access_token"
)

// Setting is a global key/value preference.
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

// DayPreference holds the per-calendar-day half-day toggle.
type DayPreference struct {
	Date      string `gorm:"primaryKey;size:10"`
	HalfDay   bool   `gorm:"not null"`
	UpdatedAt time.Time
}
