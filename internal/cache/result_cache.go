// Package cache memoizes analysis-engine runs keyed by content. Saving a
// range of commits re-reads mostly identical blobs; the cache turns those
// repeat analyses into lookups. It is an optimization only: every failure
// degrades to running the engine.
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/crittrail/crittrail/models"
)

// CachedResult is one memoized engine run. The unique key covers everything
// that can change the engine's answer for a given content.
type CachedResult struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Engine      string    `gorm:"uniqueIndex:idx_result_key;not null"`
	ContentHash string    `gorm:"uniqueIndex:idx_result_key;not null"`
	ProfileHash string    `gorm:"uniqueIndex:idx_result_key;not null"`
	MinSeverity int       `gorm:"uniqueIndex:idx_result_key;not null"`
	Payload     string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"index"`
}

func (CachedResult) TableName() string {
	return "analysis_results"
}

// Key identifies one memoized run.
type Key struct {
	Engine      string
	ContentHash string
	ProfileHash string
	MinSeverity int
}

type payload struct {
	Violations []models.Violation `json:"violations"`
	Metrics    models.FileMetrics `json:"metrics"`
}

// ResultCache stores memoized runs in a GORM-managed SQLite file.
type ResultCache struct {
	db *gorm.DB
}

// DefaultDir returns the per-user cache directory.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".cache", "crittrail"), nil
}

// NewResultCache opens (creating if needed) the cache database under dir.
func NewResultCache(dir string) (*ResultCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "results.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open result cache %s: %w", dbPath, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying cache connection: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return nil, fmt.Errorf("configure result cache: %w", err)
		}
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	if err := db.AutoMigrate(&CachedResult{}); err != nil {
		return nil, fmt.Errorf("migrate result cache: %w", err)
	}

	return &ResultCache{db: db}, nil
}

// Get returns the memoized run for key, or ok=false on a miss.
func (c *ResultCache) Get(key Key) (*models.ViolationSet, models.FileMetrics, bool, error) {
	var row CachedResult
	err := c.db.Where(
		"engine = ? AND content_hash = ? AND profile_hash = ? AND min_severity = ?",
		key.Engine, key.ContentHash, key.ProfileHash, key.MinSeverity,
	).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.FileMetrics{}, false, nil
	}
	if err != nil {
		return nil, models.FileMetrics{}, false, fmt.Errorf("cache lookup: %w", err)
	}

	var stored payload
	if err := json.Unmarshal([]byte(row.Payload), &stored); err != nil {
		return nil, models.FileMetrics{}, false, fmt.Errorf("decode cached result: %w", err)
	}

	set := models.NewViolationSet()
	for _, v := range stored.Violations {
		set.Add(v)
	}
	return set, stored.Metrics, true, nil
}

// Put memoizes one run, replacing any previous entry for the key.
func (c *ResultCache) Put(key Key, set *models.ViolationSet, metrics models.FileMetrics) error {
	encoded, err := json.Marshal(payload{Violations: set.All(), Metrics: metrics})
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	return c.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where(
			"engine = ? AND content_hash = ? AND profile_hash = ? AND min_severity = ?",
			key.Engine, key.ContentHash, key.ProfileHash, key.MinSeverity,
		).Delete(&CachedResult{}).Error
		if err != nil {
			return fmt.Errorf("evict stale result: %w", err)
		}

		row := CachedResult{
			Engine:      key.Engine,
			ContentHash: key.ContentHash,
			ProfileHash: key.ProfileHash,
			MinSeverity: key.MinSeverity,
			Payload:     string(encoded),
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("store result: %w", err)
		}
		return nil
	})
}

func (c *ResultCache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ContentHash hashes source content for cache keying.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// FileHash hashes a file's content for cache keying.
func FileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return ContentHash(data), nil
}
