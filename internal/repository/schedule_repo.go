package repository

import (
	"context"

	"gorm.io/gorm"

	"studio-schedule/backend/internal/model"
	pkgerrors "studio-schedule/backend/pkg/errors"
)

// ScheduleFilter 排程查询条件，零值字段不参与过滤
type ScheduleFilter struct {
	ShootDate       string
	DateFrom        string
	DateTo          string
	StudioIDs       []string
	ShootingType    string
	ProfessorID     string
	GroupID         string
	ActiveOnly      bool
	ExcludeStatuses []model.ScheduleStatus
	ExcludeIDs      []string
	ExcludeGroupID  string
}

// ScheduleRepository 排程数据访问接口
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.Schedule) error
	BatchCreate(ctx context.Context, schedules []*model.Schedule) error
	GetByID(ctx context.Context, id string) (*model.Schedule, error)
	List(ctx context.Context, filter ScheduleFilter) ([]model.Schedule, error)
	Update(ctx context.Context, schedule *model.Schedule) error
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
}

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) Create(ctx context.Context, schedule *model.Schedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *scheduleRepo) BatchCreate(ctx context.Context, schedules []*model.Schedule) error {
	if len(schedules) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&schedules).Error
}

func (r *scheduleRepo) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	var schedule model.Schedule
	err := r.db.WithContext(ctx).
		Preload("Studio").
		Where("schedule_id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) List(ctx context.Context, f ScheduleFilter) ([]model.Schedule, error) {
	var schedules []model.Schedule
	db := r.db.WithContext(ctx).Model(&model.Schedule{})

	if f.ShootDate != "" {
		db = db.Where("shoot_date = ?", f.ShootDate)
	}
	if f.DateFrom != "" {
		db = db.Where("shoot_date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		db = db.Where("shoot_date <= ?", f.DateTo)
	}
	if len(f.StudioIDs) > 0 {
		db = db.Where("studio_id IN ?", f.StudioIDs)
	}
	if f.ShootingType != "" {
		db = db.Where("shooting_type = ?", f.ShootingType)
	}
	if f.ProfessorID != "" {
		db = db.Where("professor_id = ?", f.ProfessorID)
	}
	if f.GroupID != "" {
		db = db.Where("schedule_group_id = ?", f.GroupID)
	}
	if f.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}
	if len(f.ExcludeStatuses) > 0 {
		db = db.Where("approval_status NOT IN ?", f.ExcludeStatuses)
	}
	if len(f.ExcludeIDs) > 0 {
		db = db.Where("schedule_id NOT IN ?", f.ExcludeIDs)
	}
	if f.ExcludeGroupID != "" {
		db = db.Where("(schedule_group_id IS NULL OR schedule_group_id <> ?)", f.ExcludeGroupID)
	}

	err := db.Preload("Studio").
		Order("shoot_date ASC, start_time ASC, created_at ASC").
		Find(&schedules).Error
	return schedules, err
}

// Update 乐观锁更新全部可变字段
func (r *scheduleRepo) Update(ctx context.Context, schedule *model.Schedule) error {
	oldVersion := schedule.Version
	result := r.db.WithContext(ctx).
		Model(&model.Schedule{}).
		Where("schedule_id = ? AND version = ?", schedule.ScheduleID, oldVersion).
		Updates(map[string]interface{}{
			"shoot_date":       schedule.ShootDate,
			"start_time":       schedule.StartTime,
			"end_time":         schedule.EndTime,
			"course_name":      schedule.CourseName,
			"course_code":      schedule.CourseCode,
			"shooting_type":    schedule.ShootingType,
			"studio_id":        schedule.StudioID,
			"approval_status":  schedule.ApprovalStatus,
			"previous_status":  schedule.PreviousStatus,
			"is_active":        schedule.IsActive,
			"break_enabled":    schedule.BreakEnabled,
			"break_start_time": schedule.BreakStartTime,
			"break_end_time":   schedule.BreakEndTime,
			"deletion_reason":  schedule.DeletionReason,
			"request_reason":   schedule.RequestReason,
			"notes":            schedule.Notes,
			"approved_by":      schedule.ApprovedBy,
			"approved_at":      schedule.ApprovedAt,
			"updated_by":       schedule.UpdatedBy,
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	schedule.Version = oldVersion + 1
	return nil
}

// UpdateFields 按主键更新指定字段（不校验版本，供拆分/补偿等幂等写入使用）
func (r *scheduleRepo) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	result := r.db.WithContext(ctx).
		Model(&model.Schedule{}).
		Where("schedule_id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
