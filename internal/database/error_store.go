package database

import (
	"log/slog"
	"time"

	"github.com/xusing/xusing/internal/models"
)

// ErrorStore records non-fatal runtime errors in the error_logs table
type ErrorStore struct {
	repo   *Repository
	logger *slog.Logger
}

func NewErrorStore(repo *Repository, logger *slog.Logger) *ErrorStore {
	return &ErrorStore{repo: repo, logger: logger}
}

func (s *ErrorStore) StoreError(source string, err error) {
	errorLog := &models.ErrorLog{
		Timestamp: time.Now(),
		Source:    source,
		ErrorMsg:  err.Error(),
	}

	if dbErr := s.repo.CreateErrorLog(errorLog); dbErr != nil {
		s.logger.Warn("failed to store error in database", "error", dbErr, "original_error", err)
	}
}
