// Package journal persists a history of generation jobs in a local
// SQLite database: one record per job, success or failure. The journal
// is bookkeeping, not control flow — a write failure is logged and the
// job result stands.
package journal

import (
	"context"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/fluxnodes/types"
)

// Record is one journaled generation job.
type Record struct {
	ID          string `gorm:"primaryKey;size:36"`
	JobID       string `gorm:"size:64;index"`
	Endpoint    string `gorm:"size:64;index"`
	PayloadHash string `gorm:"size:96"`
	// Status is the terminal classification: ready, moderated, failed,
	// timeout, error.
	Status     string `gorm:"size:16;index"`
	AssetURL   string
	Seed       *int64
	Attempts   int
	DurationMS int64
	ErrorCode  string `gorm:"size:32"`
	CreatedAt  time.Time
}

// Journal stores generation history.
type Journal struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the SQLite journal at path. Use
// ":memory:" for an ephemeral journal.
func Open(path string, logger *zap.Logger) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, types.NewError(types.ErrStore, "failed to open journal database").WithCause(err)
	}
	return New(db, logger)
}

// New wraps an existing gorm DB and migrates the schema.
func New(db *gorm.DB, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, types.NewError(types.ErrStore, "failed to migrate journal schema").WithCause(err)
	}
	return &Journal{db: db, logger: logger}, nil
}

// Append writes one record, assigning ID and CreatedAt if unset.
func (j *Journal) Append(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if err := j.db.WithContext(ctx).Create(rec).Error; err != nil {
		return types.NewError(types.ErrStore, "failed to append journal record").WithCause(err)
	}
	return nil
}

// Recent returns the newest n records, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Record, error) {
	var records []Record
	err := j.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(n).
		Find(&records).Error
	if err != nil {
		return nil, types.NewError(types.ErrStore, "failed to query journal").WithCause(err)
	}
	return records, nil
}

// CountByStatus aggregates job counts per terminal status.
func (j *Journal) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := j.db.WithContext(ctx).
		Model(&Record{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, types.NewError(types.ErrStore, "failed to aggregate journal").WithCause(err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
