// Package sqlite is the file-backed approval store used for local development,
// where running MySQL is not worth it.
package sqlite

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type approval struct {
	ReviewID  int64 `gorm:"primaryKey;autoIncrement:false"`
	Approved  bool  `gorm:"not null;index"`
	UpdatedAt time.Time
}

func (approval) TableName() string { return "review_approvals" }

type ApprovalStore struct{ db *gorm.DB }

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*ApprovalStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&approval{}); err != nil {
		return nil, err
	}
	return &ApprovalStore{db: db}, nil
}

func (s *ApprovalStore) SetApproved(ctx context.Context, id int64, approved bool) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "review_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"approved", "updated_at"}),
	}).Create(&approval{ReviewID: id, Approved: approved}).Error
}

func (s *ApprovalStore) ApprovedSet(ctx context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var found []int64
	err := s.db.WithContext(ctx).Model(&approval{}).
		Where("approved = ? AND review_id IN ?", true, ids).
		Pluck("review_id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

func (s *ApprovalStore) ListApproved(ctx context.Context) ([]int64, error) {
	out := []int64{}
	err := s.db.WithContext(ctx).Model(&approval{}).
		Where("approved = ?", true).
		Order("review_id").
		Pluck("review_id", &out).Error
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []int64{}
	}
	return out, nil
}

func (s *ApprovalStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
