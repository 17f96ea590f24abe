package dto

import "encoding/json"

// ── 排程模块 DTO ──

// RegisterScheduleRequest 登记排程请求
type RegisterScheduleRequest struct {
	ShootDate      string  `json:"shoot_date"       binding:"required,datetime=2006-01-02"`
	StartTime      string  `json:"start_time"       binding:"required"`
	EndTime        string  `json:"end_time"         binding:"required"`
	ShootingType   string  `json:"shooting_type"    binding:"required,max=50"`
	CourseName     string  `json:"course_name"      binding:"required,max=100"`
	CourseCode     string  `json:"course_code"      binding:"omitempty,max=50"`
	ProfessorID    *string `json:"professor_id"     binding:"omitempty,uuid"` // 管理员代登记时指定
	ProfessorName  string  `json:"professor_name"   binding:"omitempty,max=50"`
	StudioID       *string `json:"studio_id"        binding:"omitempty,uuid"` // 为空时自动分配
	BreakEnabled   bool    `json:"break_enabled"`
	BreakStartTime *string `json:"break_start_time"`
	BreakEndTime   *string `json:"break_end_time"`
	Notes          string  `json:"notes"            binding:"omitempty,max=2000"`
	Submit         bool    `json:"submit"` // true 时登记后直接提交审批
}

// EditScheduleRequest 直接修改排程请求，nil 字段保持不变
type EditScheduleRequest struct {
	ShootDate      *string `json:"shoot_date"       binding:"omitempty,datetime=2006-01-02"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	ShootingType   *string `json:"shooting_type"    binding:"omitempty,max=50"`
	StudioID       *string `json:"studio_id"        binding:"omitempty,uuid"`
	CourseName     *string `json:"course_name"      binding:"omitempty,max=100"`
	CourseCode     *string `json:"course_code"      binding:"omitempty,max=50"`
	BreakEnabled   *bool   `json:"break_enabled"`
	BreakStartTime *string `json:"break_start_time"`
	BreakEndTime   *string `json:"break_end_time"`
	Notes          *string `json:"notes"            binding:"omitempty,max=2000"`
	Version        int     `json:"version"          binding:"omitempty,min=1"` // 乐观锁版本，0 表示不校验
}

// TransitionRequest 状态迁移请求
type TransitionRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// ScheduleListRequest 排程列表查询参数
type ScheduleListRequest struct {
	DateFrom     string `form:"date_from"     binding:"omitempty,datetime=2006-01-02"`
	DateTo       string `form:"date_to"       binding:"omitempty,datetime=2006-01-02"`
	StudioID     string `form:"studio_id"     binding:"omitempty,uuid"`
	ShootingType string `form:"shooting_type" binding:"omitempty,max=50"`
	ProfessorID  string `form:"professor_id"  binding:"omitempty,uuid"`
	ActiveOnly   bool   `form:"active_only"`
}

// ScheduleHistoryListRequest 历史列表查询参数
type ScheduleHistoryListRequest struct {
	PaginationRequest
}

// ── 响应 ──

// StudioBrief 摄影棚摘要
type StudioBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ScheduleResponse 排程响应
type ScheduleResponse struct {
	ID               string       `json:"id"`
	ShootDate        string       `json:"shoot_date"`
	StartTime        string       `json:"start_time"`
	EndTime          string       `json:"end_time"`
	ProfessorID      *string      `json:"professor_id,omitempty"`
	ProfessorName    string       `json:"professor_name"`
	CourseName       string       `json:"course_name"`
	CourseCode       string       `json:"course_code,omitempty"`
	ShootingType     string       `json:"shooting_type"`
	StudioID         *string      `json:"studio_id,omitempty"`
	Studio           *StudioBrief `json:"studio,omitempty"`
	Status           string       `json:"status"`
	PreviousStatus   string       `json:"previous_status,omitempty"`
	IsActive         bool         `json:"is_active"`
	BreakEnabled     bool         `json:"break_enabled"`
	BreakStartTime   *string      `json:"break_start_time,omitempty"`
	BreakEndTime     *string      `json:"break_end_time,omitempty"`
	ScheduleGroupID  *string      `json:"schedule_group_id,omitempty"`
	ParentScheduleID *string      `json:"parent_schedule_id,omitempty"`
	IsSplit          bool         `json:"is_split"`
	IsSplitSchedule  bool         `json:"is_split_schedule"`
	SplitReason      string       `json:"split_reason,omitempty"`
	DeletionReason   string       `json:"deletion_reason,omitempty"`
	RequestReason    string       `json:"request_reason,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	ApprovedBy       *string      `json:"approved_by,omitempty"`
	ApprovedAt       *string      `json:"approved_at,omitempty"`
	Version          int          `json:"version"`
	CreatedAt        string       `json:"created_at"`
	UpdatedAt        string       `json:"updated_at"`
}

// HistoryResponse 排程历史响应
type HistoryResponse struct {
	ID         string          `json:"id"`
	ScheduleID string          `json:"schedule_id"`
	ChangeType string          `json:"change_type"`
	ActorID    string          `json:"actor_id"`
	Reason     string          `json:"reason,omitempty"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

// [自证通过] internal/dto/schedule.go
