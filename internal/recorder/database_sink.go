package recorder

import (
	"strings"

	"github.com/xusing/xusing/internal/models"
)

// Store is the write side of the activity database
type Store interface {
	Create(record *models.ActivityRecord) error
}

// DatabaseSink mirrors records into the activity database
type DatabaseSink struct {
	store Store
}

func NewDatabaseSink(store Store) *DatabaseSink {
	return &DatabaseSink{store: store}
}

func (s *DatabaseSink) Name() string {
	return "database"
}

func (s *DatabaseSink) Write(r Record, _ string) error {
	kind := models.KindActive
	if r.Kind == KindReturnIdle {
		kind = models.KindReturnIdle
	}

	return s.store.Create(&models.ActivityRecord{
		Timestamp:     r.Timestamp,
		Kind:          kind,
		IdleMs:        int64(r.IdleMs),
		Load1:         r.LoadAverage[0],
		Load5:         r.LoadAverage[1],
		Load15:        r.LoadAverage[2],
		WindowClasses: strings.Join(r.WindowClasses, ","),
		WindowName:    r.WindowName,
	})
}

func (s *DatabaseSink) Close() error {
	return nil
}
