package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AngelCh415/campaign-analyzer/internal/modifiers"
)

// Keys of the two persisted settings.
const (
	KeyCampaignModifiers = "campaignModifiers"
	KeyAIModifiers       = "aiModifiers"
)

// Setting is one JSON document stored under a key.
type Setting struct {
	Key       string `gorm:"primaryKey;column:name"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

// SettingsStore persists settings across sessions. Values are replaced
// wholesale on every save.
type SettingsStore struct{ db *gorm.DB }

// OpenSettings opens (creating if needed) the sqlite database at path.
func OpenSettings(path string) (*SettingsStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("settings dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	if err := db.AutoMigrate(&Setting{}); err != nil {
		return nil, fmt.Errorf("migrate settings: %w", err)
	}
	return &SettingsStore{db: db}, nil
}

func (s *SettingsStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping backs /readyz.
func (s *SettingsStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Get decodes the value under key into v. It reports false when the key
// has never been saved.
func (s *SettingsStore) Get(ctx context.Context, key string, v any) (bool, error) {
	var row Setting
	err := s.db.WithContext(ctx).Where("name = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(row.Value), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Put replaces the value under key.
func (s *SettingsStore) Put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	row := Setting{Key: key, Value: string(b), UpdatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// CampaignModifiers returns the saved benchmark table, or the defaults when
// nothing was saved. The bool reports whether the value came from storage.
func (s *SettingsStore) CampaignModifiers(ctx context.Context) (modifiers.Table, bool, error) {
	var t modifiers.Table
	ok, err := s.Get(ctx, KeyCampaignModifiers, &t)
	if err != nil {
		return nil, false, err
	}
	if !ok || t == nil {
		return modifiers.Default(), false, nil
	}
	return t, true, nil
}

func (s *SettingsStore) SaveCampaignModifiers(ctx context.Context, t modifiers.Table) error {
	return s.Put(ctx, KeyCampaignModifiers, t)
}

// AIModifiers returns the saved AI settings or the defaults.
func (s *SettingsStore) AIModifiers(ctx context.Context) (modifiers.AIModifiers, error) {
	a := modifiers.DefaultAI()
	if _, err := s.Get(ctx, KeyAIModifiers, &a); err != nil {
		return modifiers.DefaultAI(), err
	}
	return a, nil
}

func (s *SettingsStore) SaveAIModifiers(ctx context.Context, a modifiers.AIModifiers) error {
	if err := a.Normalize(); err != nil {
		return err
	}
	return s.Put(ctx, KeyAIModifiers, a)
}
