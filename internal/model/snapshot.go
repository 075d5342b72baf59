package model

import (
	"time"

	"worktime-tracker-backend/internal/attendance"
)

// SnapshotID is the primary key of the single snapshot row.
const SnapshotID = 1

// Snapshot is the latest computed state, mirrored for the foreground reader.
type Snapshot struct {
	ID                 int64  `gorm:"primaryKey"`
	DayKey             string `gorm:"size:10;not null"`
	DataHash           string `gorm:"size:64;not null"`
	TotalWorkedMinutes int    `gorm:"not null"`
	IsClockedIn        bool   `gorm:"not null"`
	IsHalfDay          bool   `gorm:"not null"`

	Today      attendance.TodayView    `gorm:"type:text;serializer:json"`
	Metrics    attendance.Metrics      `gorm:"type:text;serializer:json"`
	LeaveTimes attendance.LeaveTimes   `gorm:"type:text;serializer:json"`
	Weekly     *attendance.PeriodStats `gorm:"type:text;serializer:json"`
	Monthly    *attendance.PeriodStats `gorm:"type:text;serializer:json"`

	// ComputedAt is when TotalWorkedMinutes was last accumulated.
	ComputedAt time.Time `gorm:"not null"`
	UpdatedAt  time.Time
}
