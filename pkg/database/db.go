package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	KeyPreview string     `json:"key_preview"`
	Name       string     `gorm:"not null" json:"name"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage is the per-key daily usage ledger. AttemptCount counts every
// solve the key started and drives the rate limit; the other counters only
// grow on successful solves
type APIUsage struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	KeyID           uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date            string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	AttemptCount    int    `gorm:"default:0" json:"attempt_count"`
	RequestCount    int    `gorm:"default:0" json:"request_count"`
	TotalShiftUnits int    `gorm:"default:0" json:"total_shift_units"`
	TotalWorkers    int    `gorm:"default:0" json:"total_workers"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SolveRecord is an audit row written for every solve attempt
type SolveRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RequestID   string    `gorm:"uniqueIndex;not null" json:"request_id"`
	KeyID       *uint     `gorm:"index" json:"key_id"`
	Status      string    `gorm:"not null" json:"status"`
	Objective   *float64  `json:"objective"`
	Workers     int       `json:"workers"`
	Days        int       `json:"days"`
	Variables   int       `json:"variables"`
	Constraints int       `json:"constraints"`
	DurationMS  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Options selects the backing store. A non-empty DatabaseURL selects
// Postgres; otherwise SQLite at DataPath is used
type Options struct {
	DatabaseURL string
	DataPath    string
	Debug       bool
}

// InitDB opens the database and migrates the schema
func InitDB(opts Options) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if opts.Debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	if opts.DatabaseURL != "" {
		dialector = postgres.New(postgres.Config{
			DSN:                  opts.DatabaseURL,
			PreferSimpleProtocol: true,
		})
	} else {
		path := opts.DataPath
		if path == "" {
			path = "roster.db"
		}
		dialector = sqlite.Open(path)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&APIKey{}, &APIUsage{}, &MasterUser{}, &SolveRecord{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
