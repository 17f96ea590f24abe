package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"studio-schedule/backend/internal/dto"
	"studio-schedule/backend/internal/policy"
	"studio-schedule/backend/internal/repository"
	"studio-schedule/backend/pkg/timeutil"
)

// 附加在 AllowedActions 中的非迁移动作
const (
	actionEdit  = "edit"
	actionSplit = "split"
)

// PolicyService 登记窗口与修改资格查询
type PolicyService interface {
	Window(now time.Time) *dto.PolicyWindowResponse
	ForSchedule(ctx context.Context, id string, actor Actor, now time.Time) (*dto.SchedulePolicyResponse, error)
}

type policyService struct {
	repo   *repository.Repository
	opts   Options
	logger *zap.Logger
}

// NewPolicyService 创建 PolicyService 实例
func NewPolicyService(repo *repository.Repository, opts Options, logger *zap.Logger) PolicyService {
	return &policyService{repo: repo, opts: opts, logger: logger}
}

func (s *policyService) Window(now time.Time) *dto.PolicyWindowResponse {
	now = now.In(s.opts.Location)
	w := policy.RegistrationWindow(now)
	return &dto.PolicyWindowResponse{
		Now:               now.Format(time.RFC3339),
		RegistrationStart: timeutil.FormatDate(w.Start),
		RegistrationEnd:   timeutil.FormatDate(w.End),
		EditDeadline:      policy.EditDeadline(now).Format(time.RFC3339),
		CanEditOnline:     s.opts.Hours.CanEditOnline(now),
		Status:            s.opts.Hours.StatusMessage(now),
	}
}

func (s *policyService) ForSchedule(ctx context.Context, id string, actor Actor, now time.Time) (*dto.SchedulePolicyResponse, error) {
	sched, err := getSchedule(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	now = now.In(s.opts.Location)

	resp := &dto.SchedulePolicyResponse{
		ScheduleID:     sched.ScheduleID,
		ShootDate:      sched.ShootDate,
		Status:         string(sched.ApprovalStatus),
		AllowedActions: []string{},
	}
	if date, err := timeutil.ParseDate(sched.ShootDate, s.opts.Location); err == nil {
		resp.Policy = s.opts.Hours.ScheduleEditPolicy(date, now)
	} else {
		resp.Policy = s.opts.Hours.ScheduleEditPolicy(time.Time{}, now)
	}

	for _, a := range AllowedActions(sched, actor) {
		resp.AllowedActions = append(resp.AllowedActions, string(a))
	}
	if checkEditable(sched, actor) == nil && checkEditPolicy(s.opts.Hours, s.opts.Location, sched, actor, now) == nil {
		resp.AllowedActions = append(resp.AllowedActions, actionEdit)
	}
	if actor.IsAdmin() && sched.IsActive && !sched.IsSplit && !sched.IsSplitSchedule && !sched.ApprovalStatus.IsTerminal() {
		resp.AllowedActions = append(resp.AllowedActions, actionSplit)
	}
	return resp, nil
}
