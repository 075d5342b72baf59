package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"worktime-tracker-backend/internal/model"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store defines the interface for all database operations. The database is
// a local mirror of the portal, never a source of truth.
type Store interface {
	DB() *gorm.DB

	LoadSnapshot(ctx context.Context) (*model.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap *model.Snapshot) error

	ActiveFlags(ctx context.Context, now time.Time) ([]model.NotificationFlag, error)
	SaveFlags(ctx context.Context, flags []model.NotificationFlag) error
	PurgeExpiredFlags(ctx context.Context, now time.Time) (int64, error)

	HalfDay(ctx context.Context, date string) (bool, error)
	SetHalfDay(ctx context.Context, date string, halfDay bool) error

	NotificationsEnabled(ctx context.Context) (bool, error)
	SetNotificationsEnabled(ctx context.Context, enabled bool) error

	AccessToken(ctx context.Context) (string, error)
	SetAccessToken(ctx context.Context, token string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// LoadSnapshot returns the single snapshot row, or ErrNotFound before the
// first successful cycle.
func (s *gormStore) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := s.db.WithContext(ctx).First(&snap, model.SnapshotID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return &snap, nil
}

// SaveSnapshot replaces the snapshot row.
func (s *gormStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	snap.ID = model.SnapshotID
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(snap).Error; err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// ActiveFlags returns every flag that has not expired at now.
func (s *gormStore) ActiveFlags(ctx context.Context, now time.Time) ([]model.NotificationFlag, error) {
	var flags []model.NotificationFlag
	if err := s.db.WithContext(ctx).Where("expires_at > ?", now.UTC()).Find(&flags).Error; err != nil {
		return nil, fmt.Errorf("failed to load notification flags: %w", err)
	}
	return flags, nil
}

// SaveFlags upserts flags in one statement. Expiry times are stored in UTC
// so they compare correctly as text on sqlite.
func (s *gormStore) SaveFlags(ctx context.Context, flags []model.NotificationFlag) error {
	if len(flags) == 0 {
		return nil
	}
	for i := range flags {
		flags[i].ExpiresAt = flags[i].ExpiresAt.UTC()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trigger"}, {Name: "period_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&flags).Error
	})
}

// PurgeExpiredFlags deletes flags whose period has ended.
func (s *gormStore) PurgeExpiredFlags(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&model.NotificationFlag{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge notification flags: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// HalfDay reports the half-day toggle for a "2006-01-02" date.
func (s *gormStore) HalfDay(ctx context.Context, date string) (bool, error) {
	var pref model.DayPreference
	err := s.db.WithContext(ctx).Where(&model.DayPreference{Date: date}).Take(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load half-day flag: %w", err)
	}
	return pref.HalfDay, nil
}

func (s *gormStore) SetHalfDay(ctx context.Context, date string, halfDay bool) error {
	pref := model.DayPreference{Date: date, HalfDay: halfDay}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"half_day", "updated_at"}),
	}).Create(&pref).Error
}

// NotificationsEnabled is false until explicitly switched on.
func (s *gormStore) NotificationsEnabled(ctx context.Context) (bool, error) {
	raw, err := s.setting(ctx, model.SettingNotificationsEnabled)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(raw)
}

func (s *gormStore) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	return s.setSetting(ctx, model.SettingNotificationsEnabled, strconv.FormatBool(enabled))
}

// AccessToken returns "" when no token is stored.
func (s *gormStore) AccessToken(ctx context.Context) (string, error) {
	token, err := s.setting(ctx, model.SettingAccessToken)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return token, err
}

func (s *gormStore) SetAccessToken(ctx context.Context, token string) error {
	return s.setSetting(ctx, model.SettingAccessToken, token)
}

func (s *gormStore) setting(ctx context.Context, key string) (string, error) {
	var setting model.Setting
	err := s.db.WithContext(ctx).Where(&model.Setting{Key: key}).Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load setting %s: %w", key, err)
	}
	return setting.Value, nil
}

func (s *gormStore) setSetting(ctx context.Context, key, value string) error {
	setting := model.Setting{Key: key, Value: value}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}
