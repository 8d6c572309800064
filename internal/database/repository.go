package database

import (
	"github.com/pkg/errors"

	"github.com/xusing/xusing/internal/models"
)

// Repository appends activity records and error logs. It offers no
// read-side queries; the log file is the record of truth.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new activity record into the database
func (r *Repository) Create(record *models.ActivityRecord) error {
	result := r.db.Create(record)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert activity record")
	}
	return nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}
