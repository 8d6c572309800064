package database

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xusing/xusing/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Connect(filepath.Join(t.TempDir(), "nested", "xusing.db"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConnectEmptyPath(t *testing.T) {
	_, err := Connect("")
	assert.Error(t, err)
}

func TestCreate(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)

	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	record := &models.ActivityRecord{
		Timestamp:     ts,
		Kind:          models.KindActive,
		IdleMs:        120,
		Load1:         0.5,
		Load5:         0.25,
		Load15:        0.1,
		WindowClasses: "Navigator,firefox",
		WindowName:    "Mozilla Firefox",
	}
	require.NoError(t, repo.Create(record))
	assert.NotZero(t, record.ID)

	var stored models.ActivityRecord
	require.NoError(t, db.First(&stored, record.ID).Error)
	assert.Equal(t, models.KindActive, stored.Kind)
	assert.Equal(t, int64(120), stored.IdleMs)
	assert.Equal(t, "Navigator,firefox", stored.WindowClasses)
	assert.True(t, ts.Equal(stored.Timestamp))
}

func TestCreateErrorLog(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.CreateErrorLog(&models.ErrorLog{
		Timestamp: time.Now(),
		Source:    "file",
		ErrorMsg:  "disk full",
	}))

	var count int64
	require.NoError(t, db.Model(&models.ErrorLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestErrorStore(t *testing.T) {
	db := openTestDB(t)
	store := NewErrorStore(NewRepository(db), slog.New(slog.NewTextHandler(io.Discard, nil)))

	store.StoreError("focus", errors.New("bad window"))

	var logs []models.ErrorLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "focus", logs[0].Source)
	assert.Equal(t, "bad window", logs[0].ErrorMsg)
}
