package repository

import (
	"context"

	"gorm.io/gorm"

	"studio-schedule/backend/internal/model"
)

// ScheduleHistoryRepository 排程历史数据访问接口（仅追加）
type ScheduleHistoryRepository interface {
	Create(ctx context.Context, entry *model.ScheduleHistory) error
	ListBySchedule(ctx context.Context, scheduleID string, offset, limit int) ([]model.ScheduleHistory, int64, error)
}

type scheduleHistoryRepo struct {
	db *gorm.DB
}

// NewScheduleHistoryRepo 创建 ScheduleHistoryRepository 实例
func NewScheduleHistoryRepo(db *gorm.DB) ScheduleHistoryRepository {
	return &scheduleHistoryRepo{db: db}
}

func (r *scheduleHistoryRepo) Create(ctx context.Context, entry *model.ScheduleHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *scheduleHistoryRepo) ListBySchedule(ctx context.Context, scheduleID string, offset, limit int) ([]model.ScheduleHistory, int64, error) {
	var entries []model.ScheduleHistory
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ScheduleHistory{}).
		Where("schedule_id = ?", scheduleID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at ASC, history_id ASC").
		Find(&entries).Error
	return entries, total, err
}
