package service

import (
	"fmt"
	"strings"
	"time"

	"studio-schedule/backend/internal/model"
	"studio-schedule/backend/internal/policy"
	"studio-schedule/backend/pkg/timeutil"
)

// ── 排程生命周期 ──
//
//	pending ──submit──▶ approval_requested ──approve──▶ approved ──confirm──▶ confirmed
//	approved|confirmed ──request_modification──▶ modification_requested
//	    ──approve_modification──▶ modification_approved ──complete_modification──▶ approved
//	approved|confirmed ──request_cancellation──▶ cancellation_requested
//	    ──approve_cancellation──▶ cancelled
//	申请态 ──revoke──▶ 申请前的状态；pending ──delete──▶ deleted
//	cancelled / deleted 为吸收态

// transitionRule 一条迁移规则
type transitionRule struct {
	from           []model.ScheduleStatus
	to             model.ScheduleStatus // 为空表示恢复申请前的状态
	adminOnly      bool
	requesterOnly  bool
	reasonRequired bool
	rememberPrev   bool   // 记录申请前状态与申请人
	recordApproval bool   // 记录审批人与审批时间
	deactivate     string // 非空时置 is_active=false 并写入 deletion_reason
}

var transitionTable = map[model.ScheduleAction]transitionRule{
	model.ActionSubmit: {
		from:         []model.ScheduleStatus{model.StatusPending},
		to:           model.StatusApprovalRequested,
		rememberPrev: true,
	},
	model.ActionApprove: {
		from:           []model.ScheduleStatus{model.StatusApprovalRequested},
		to:             model.StatusApproved,
		adminOnly:      true,
		recordApproval: true,
	},
	model.ActionConfirm: {
		from:      []model.ScheduleStatus{model.StatusApproved},
		to:        model.StatusConfirmed,
		adminOnly: true,
	},
	model.ActionRequestModification: {
		from:           []model.ScheduleStatus{model.StatusApproved, model.StatusConfirmed},
		to:             model.StatusModificationRequested,
		reasonRequired: true,
		rememberPrev:   true,
	},
	model.ActionApproveModification: {
		from:           []model.ScheduleStatus{model.StatusModificationRequested},
		to:             model.StatusModificationApproved,
		adminOnly:      true,
		recordApproval: true,
	},
	model.ActionCompleteModification: {
		from: []model.ScheduleStatus{model.StatusModificationApproved},
		to:   model.StatusApproved,
	},
	model.ActionRequestCancellation: {
		from:           []model.ScheduleStatus{model.StatusApproved, model.StatusConfirmed},
		to:             model.StatusCancellationRequested,
		reasonRequired: true,
		rememberPrev:   true,
	},
	model.ActionApproveCancellation: {
		from:           []model.ScheduleStatus{model.StatusCancellationRequested},
		to:             model.StatusCancelled,
		adminOnly:      true,
		recordApproval: true,
		deactivate:     model.DeletionReasonCancelled,
	},
	model.ActionAdminCancel: {
		from: []model.ScheduleStatus{
			model.StatusPending,
			model.StatusApprovalRequested,
			model.StatusApproved,
			model.StatusConfirmed,
			model.StatusModificationRequested,
			model.StatusModificationApproved,
			model.StatusCancellationRequested,
		},
		to:         model.StatusCancelled,
		adminOnly:  true,
		deactivate: model.DeletionReasonCancelled,
	},
	model.ActionRevoke: {
		from: []model.ScheduleStatus{
			model.StatusApprovalRequested,
			model.StatusModificationRequested,
			model.StatusCancellationRequested,
		},
		requesterOnly: true,
	},
	model.ActionDelete: {
		from:       []model.ScheduleStatus{model.StatusPending},
		to:         model.StatusDeleted,
		deactivate: model.DeletionReasonDeleted,
	},
}

// AllActions 全部动作，按生命周期顺序
var AllActions = []model.ScheduleAction{
	model.ActionSubmit,
	model.ActionApprove,
	model.ActionConfirm,
	model.ActionRequestModification,
	model.ActionApproveModification,
	model.ActionCompleteModification,
	model.ActionRequestCancellation,
	model.ActionApproveCancellation,
	model.ActionAdminCancel,
	model.ActionRevoke,
	model.ActionDelete,
}

// NextStatus 仅按迁移表计算目标状态，不检查权限与理由
func NextStatus(current, previous model.ScheduleStatus, action model.ScheduleAction) (model.ScheduleStatus, error) {
	rule, ok := transitionTable[action]
	if !ok {
		return "", ErrUnknownAction
	}
	if current.IsTerminal() || !containsStatus(rule.from, current) {
		return "", ErrInvalidTransition
	}
	if rule.to != "" {
		return rule.to, nil
	}
	return revertTarget(current, previous), nil
}

// revertTarget 撤回申请时的目标状态；未记录申请前状态时按申请类型推断
func revertTarget(current, previous model.ScheduleStatus) model.ScheduleStatus {
	if previous != "" && previous.IsValid() && !previous.IsTerminal() && !previous.IsRequest() {
		return previous
	}
	if current == model.StatusApprovalRequested {
		return model.StatusPending
	}
	return model.StatusApproved
}

// checkTransition 校验动作是否允许并返回目标状态
func checkTransition(s *model.Schedule, action model.ScheduleAction, actor Actor, reason string) (transitionRule, model.ScheduleStatus, error) {
	rule, ok := transitionTable[action]
	if !ok {
		return rule, "", ErrUnknownAction
	}
	if s.IsSplit {
		return rule, "", ErrScheduleSplitParent
	}
	to, err := NextStatus(s.ApprovalStatus, s.PreviousStatus, action)
	if err != nil {
		return rule, "", err
	}
	switch {
	case rule.adminOnly && !actor.IsAdmin():
		return rule, "", ErrAdminRequired
	case rule.requesterOnly && !isRequester(s, actor):
		return rule, "", ErrNotOwner
	case !actor.IsAdmin() && !isOwner(s, actor):
		return rule, "", ErrNotOwner
	case rule.reasonRequired && strings.TrimSpace(reason) == "":
		return rule, "", ErrReasonRequired
	}
	return rule, to, nil
}

// applyTransition 在内存中应用迁移
func applyTransition(s *model.Schedule, action model.ScheduleAction, rule transitionRule, to model.ScheduleStatus, actor Actor, reason string, now time.Time) {
	from := s.ApprovalStatus
	actorID := actor.ID

	switch {
	case rule.rememberPrev:
		s.PreviousStatus = from
		s.RequestedBy = &actorID
		s.RequestReason = strings.TrimSpace(reason)
	case action == model.ActionRevoke:
		s.PreviousStatus = ""
		s.RequestReason = ""
	}
	if rule.recordApproval {
		at := now
		s.ApprovedBy = &actorID
		s.ApprovedAt = &at
	}
	if rule.deactivate != "" {
		s.IsActive = false
		s.DeletionReason = rule.deactivate
	}
	s.ApprovalStatus = to
	s.UpdatedBy = &actorID
}

// AllowedActions actor 对该排程当前可执行的动作（不含需要理由之外的输入校验）
func AllowedActions(s *model.Schedule, actor Actor) []model.ScheduleAction {
	out := make([]model.ScheduleAction, 0)
	for _, action := range AllActions {
		if _, _, err := checkTransition(s, action, actor, "-"); err == nil {
			out = append(out, action)
		}
	}
	return out
}

func isOwner(s *model.Schedule, actor Actor) bool {
	if actor.ID == "" {
		return false
	}
	for _, id := range []*string{s.ProfessorID, s.RequestedBy, s.CreatedBy} {
		if id != nil && *id == actor.ID {
			return true
		}
	}
	return false
}

// isRequester 撤回只能由提出申请的人执行
func isRequester(s *model.Schedule, actor Actor) bool {
	if s.RequestedBy != nil {
		return *s.RequestedBy == actor.ID
	}
	return isOwner(s, actor)
}

func containsStatus(list []model.ScheduleStatus, st model.ScheduleStatus) bool {
	for _, v := range list {
		if v == st {
			return true
		}
	}
	return false
}

// ── 直接修改的时间门槛 ──

// 可以直接修改的状态
var editableStatuses = []model.ScheduleStatus{
	model.StatusPending,
	model.StatusApprovalRequested,
	model.StatusApproved,
	model.StatusConfirmed,
	model.StatusModificationApproved,
}

// checkEditable 状态与归属校验
func checkEditable(s *model.Schedule, actor Actor) error {
	if s.IsSplit {
		return ErrScheduleSplitParent
	}
	if !s.IsActive || !containsStatus(editableStatuses, s.ApprovalStatus) {
		return ErrScheduleNotEditable
	}
	if !actor.IsAdmin() && !isOwner(s, actor) {
		return ErrNotOwner
	}
	return nil
}

// checkEditPolicy 非管理员直接修改受时间策略约束；
// 修改申请已获批准（modification_approved）时不再受在线修改时段限制，但仍不能改过去或当天的排程
func checkEditPolicy(hours policy.Hours, loc *time.Location, s *model.Schedule, actor Actor, now time.Time) error {
	if actor.IsAdmin() {
		return nil
	}
	date, err := timeutil.ParseDate(s.ShootDate, loc)
	if err != nil {
		return nil
	}
	p := hours.ScheduleEditPolicy(date, now)

	switch {
	case p.IsPast || p.DaysLeft == 0:
		return &PolicyViolation{Kind: ViolationTooLate, Message: p.Reason, Policy: &p}
	case s.ApprovalStatus == model.StatusModificationApproved:
		return nil
	case p.ContactRequired:
		return &PolicyViolation{Kind: ViolationContactRequired, Message: p.Reason, Policy: &p}
	case !p.CanDirectEdit:
		return &PolicyViolation{
			Kind:    ViolationOutsideEditWindow,
			Message: fmt.Sprintf("%s（在线修改开放时间：工作日 %02d:00 起，截止每周四 23:59）", p.Reason, hours.Open),
			Policy:  &p,
		}
	}
	return nil
}

// [自证通过] internal/service/lifecycle.go
