// Package historydb persists a one-row-per-attempt publication ledger in
// sqlite, so a user can see the outcome of past publish attempts even
// after closing the uploader.
package historydb

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Outcome is the terminal state of one publication attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Publication is one row in the ledger: one avatar publish attempt.
type Publication struct {
	ID          uint `gorm:"primaryKey"`
	BlueprintID string
	Name        string
	Username    string
	Platforms   StringArray
	Outcome     Outcome
	ErrorMsg    string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// DB wraps a gorm handle scoped to the publication ledger.
type DB struct {
	gorm *gorm.DB
}

// Open connects to a sqlite database at path, creating it if absent, and
// ensures the Publication table exists.
func Open(path string) (*DB, error) {
	dialector := sqlite.Open(path)
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("historydb: open %s: %w", path, err)
	}
	if err := gdb.AutoMigrate(&Publication{}); err != nil {
		return nil, fmt.Errorf("historydb: migrate: %w", err)
	}
	return &DB{gorm: gdb}, nil
}

// Record inserts a new ledger row for an attempt that is about to start,
// returning its id so the caller can later call Finish.
func (d *DB) Record(blueprintID, name, username string, platforms []string) (uint, error) {
	row := Publication{
		BlueprintID: blueprintID,
		Name:        name,
		Username:    username,
		Platforms:   platforms,
		StartedAt:   time.Now(),
	}
	if err := d.gorm.Create(&row).Error; err != nil {
		return 0, fmt.Errorf("historydb: record publication: %w", err)
	}
	return row.ID, nil
}

// Finish updates a previously recorded row with its terminal outcome.
func (d *DB) Finish(id uint, outcome Outcome, err error) error {
	updates := map[string]any{
		"outcome":     outcome,
		"finished_at": time.Now(),
	}
	if err != nil {
		updates["error_msg"] = err.Error()
	}
	if res := d.gorm.Model(&Publication{}).Where("id = ?", id).Updates(updates); res.Error != nil {
		return fmt.Errorf("historydb: finish publication %d: %w", id, res.Error)
	}
	return nil
}

// Recent returns the most recent n publication attempts, newest first.
func (d *DB) Recent(n int) ([]Publication, error) {
	var rows []Publication
	if err := d.gorm.Order("started_at DESC").Limit(n).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("historydb: list recent: %w", err)
	}
	return rows, nil
}

// ForBlueprint returns every recorded attempt for one avatar, newest first.
func (d *DB) ForBlueprint(blueprintID string) ([]Publication, error) {
	var rows []Publication
	if err := d.gorm.Where("blueprint_id = ?", blueprintID).Order("started_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("historydb: list for blueprint %s: %w", blueprintID, err)
	}
	return rows, nil
}

// Close releases the underlying sqlite connection.
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
