package model

import "time"

// NotificationFlag is one persisted "already notified" value. Value is 1 for
// boolean flags and the watermark in minutes for the overtime trigger.
type NotificationFlag struct {
	Trigger   string    `gorm:"primaryKey;size:64"`
	PeriodKey string    `gorm:"primaryKey;size:16"`
	Value     int       `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}
