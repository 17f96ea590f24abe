package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"studio-schedule/backend/internal/dto"
	"studio-schedule/backend/internal/model"
	"studio-schedule/backend/internal/repository"
)

// HistoryService 排程历史查询接口（写入由各业务操作在同一事务内完成）
type HistoryService interface {
	ListBySchedule(ctx context.Context, scheduleID string, req *dto.ScheduleHistoryListRequest) ([]dto.HistoryResponse, int64, error)
}

type historyService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewHistoryService 创建 HistoryService 实例
func NewHistoryService(repo *repository.Repository, logger *zap.Logger) HistoryService {
	return &historyService{repo: repo, logger: logger}
}

func (s *historyService) ListBySchedule(ctx context.Context, scheduleID string, req *dto.ScheduleHistoryListRequest) ([]dto.HistoryResponse, int64, error) {
	if _, err := getSchedule(ctx, s.repo, scheduleID); err != nil {
		return nil, 0, err
	}

	entries, total, err := s.repo.History.ListBySchedule(ctx, scheduleID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询排程历史失败", zap.String("schedule_id", scheduleID), zap.Error(err))
		return nil, 0, &PersistenceError{Op: "查询排程历史", Err: err}
	}

	list := make([]dto.HistoryResponse, 0, len(entries))
	for i := range entries {
		list = append(list, toHistoryResponse(&entries[i]))
	}
	return list, total, nil
}

// ── 写入 ──

// historyEntry 一条待追加的历史
type historyEntry struct {
	ScheduleID string
	ChangeType string
	ActorID    string
	Reason     string
	Before     interface{}
	After      interface{}
}

// recordHistory 追加历史；快照序列化失败时记录空快照而不是中断业务
func recordHistory(ctx context.Context, repo repository.ScheduleHistoryRepository, e historyEntry) error {
	return repo.Create(ctx, &model.ScheduleHistory{
		ScheduleID:  e.ScheduleID,
		ChangeType:  e.ChangeType,
		ActorID:     e.ActorID,
		Reason:      e.Reason,
		BeforeState: toJSON(e.Before),
		AfterState:  toJSON(e.After),
	})
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// scheduleSnapshot 历史中保存的排程快照
type scheduleSnapshot struct {
	ShootDate       string  `json:"shoot_date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	ShootingType    string  `json:"shooting_type"`
	StudioID        *string `json:"studio_id,omitempty"`
	CourseName      string  `json:"course_name"`
	Status          string  `json:"status"`
	IsActive        bool    `json:"is_active"`
	BreakEnabled    bool    `json:"break_enabled"`
	BreakStartTime  *string `json:"break_start_time,omitempty"`
	BreakEndTime    *string `json:"break_end_time,omitempty"`
	ScheduleGroupID *string `json:"schedule_group_id,omitempty"`
	IsSplit         bool    `json:"is_split"`
}

func snapshotOf(s *model.Schedule) scheduleSnapshot {
	c := s.Clone()
	return scheduleSnapshot{
		ShootDate:       c.ShootDate,
		StartTime:       c.StartTime,
		EndTime:         c.EndTime,
		ShootingType:    c.ShootingType,
		StudioID:        c.StudioID,
		CourseName:      c.CourseName,
		Status:          string(c.ApprovalStatus),
		IsActive:        c.IsActive,
		BreakEnabled:    c.BreakEnabled,
		BreakStartTime:  c.BreakStartTime,
		BreakEndTime:    c.BreakEndTime,
		ScheduleGroupID: c.ScheduleGroupID,
		IsSplit:         c.IsSplit,
	}
}

func toHistoryResponse(h *model.ScheduleHistory) dto.HistoryResponse {
	resp := dto.HistoryResponse{
		ID:         h.HistoryID,
		ScheduleID: h.ScheduleID,
		ChangeType: h.ChangeType,
		ActorID:    h.ActorID,
		Reason:     h.Reason,
		CreatedAt:  h.CreatedAt.Format(time.RFC3339),
	}
	if len(h.BeforeState) > 0 {
		resp.Before = json.RawMessage(h.BeforeState)
	}
	if len(h.AfterState) > 0 {
		resp.After = json.RawMessage(h.AfterState)
	}
	return resp
}

// getSchedule 查询排程并把未找到转换为 ErrScheduleNotFound
func getSchedule(ctx context.Context, repo *repository.Repository, id string) (*model.Schedule, error) {
	s, err := repo.Schedule.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, &PersistenceError{Op: "查询排程", Err: err}
	}
	return s, nil
}
