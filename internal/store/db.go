package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Preference{}, &Analysis{}, &ExpertFeedback{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AppendPreference writes a new preference row. Existing rows are never
// touched; the log is append-only.
func (d *Database) AppendPreference(agentType, context string, value float64) error {
	if d == nil {
		return errors.New("database is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	row := &Preference{AgentType: agentType, Context: context, Value: value}
	return d.gorm.Create(row).Error
}

// LatestPreference returns the most recently appended value for the key, or
// 1.0 when no row exists.
func (d *Database) LatestPreference(agentType, context string) (float64, error) {
	if d == nil {
		return 0, errors.New("database is nil")
	}
	var row Preference
	err := d.gorm.
		Where("agent_type = ? AND context = ?", agentType, context).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1.0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Value, nil
}

// SaveAnalysis appends an analysis history row.
func (d *Database) SaveAnalysis(a *Analysis) error {
	if a == nil {
		return errors.New("analysis is nil")
	}
	a.URL = strings.TrimSpace(a.URL)
	a.URLNormalized = normalizeURLKey(a.URL)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(a).Error
}

// RecentAnalyses returns the latest history rows, newest first.
func (d *Database) RecentAnalyses(limit int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []Analysis
	if err := d.gorm.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AnalysisByURL returns the most recent analysis for the URL, or
// gorm.ErrRecordNotFound when none exists.
func (d *Database) AnalysisByURL(url string) (*Analysis, error) {
	var row Analysis
	err := d.gorm.
		Where("url_normalized = ?", normalizeURLKey(url)).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveFeedback appends an expert feedback row.
func (d *Database) SaveFeedback(f *ExpertFeedback) error {
	if f == nil {
		return errors.New("feedback is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(f).Error
}

// CountAnalyses returns the number of stored analysis rows.
func (d *Database) CountAnalyses() (int64, error) {
	var count int64
	if err := d.gorm.Model(&Analysis{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountPreferences returns the number of preference log rows.
func (d *Database) CountPreferences() (int64, error) {
	var count int64
	if err := d.gorm.Model(&Preference{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func normalizeURLKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
