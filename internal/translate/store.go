package translate

import (
	"fmt"
	"time"

	"github.com/overlate/overlate/internal/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Record is a persisted translation
type Record struct {
	ID          uint   `gorm:"primarykey"`
	Source      string `gorm:"uniqueIndex:idx_source_langs"`
	SourceLang  string `gorm:"uniqueIndex:idx_source_langs"`
	TargetLang  string `gorm:"uniqueIndex:idx_source_langs"`
	Translation string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store persists translations to SQLite so the cache survives restarts
type Store struct {
	db *gorm.DB
}

// OpenStore opens (or creates) the translation database at path
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open translation store: %w", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate translation store: %w", err)
	}

	logger.WithComponent("translate-store").Debug().
		Str("path", path).
		Msg("Translation store opened")
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Load returns up to limit of the most recently updated translations
// for the language pair, oldest first so that replaying them into the
// LRU cache leaves the newest entries most recent.
func (s *Store) Load(sourceLang, targetLang string, limit int) ([]Record, error) {
	var records []Record
	err := s.db.
		Where("source_lang = ? AND target_lang = ?", sourceLang, targetLang).
		Order("updated_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}

	// Reverse to oldest-first
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Save upserts a translation
func (s *Store) Save(source, sourceLang, targetLang, translation string) error {
	record := Record{
		Source:      source,
		SourceLang:  sourceLang,
		TargetLang:  targetLang,
		Translation: translation,
	}

	err := s.db.
		Where("source = ? AND source_lang = ? AND target_lang = ?", source, sourceLang, targetLang).
		Assign(Record{Translation: translation}).
		FirstOrCreate(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save translation: %w", err)
	}
	return nil
}

// Count returns the number of stored translations
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&Record{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
