package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"studio-schedule/backend/internal/dto"
	"studio-schedule/backend/internal/model"
	"studio-schedule/backend/internal/notify"
	"studio-schedule/backend/internal/policy"
	"studio-schedule/backend/internal/repository"
	pkgerrors "studio-schedule/backend/pkg/errors"
	"studio-schedule/backend/pkg/timeutil"
)

// ScheduleService 排程业务接口
//
// 所有依赖"当前时间"的操作都显式接收 now，由调用方从时钟（或测试模式下的模拟时间）取得。
type ScheduleService interface {
	// 登记新排程：校验 → 登记窗口 → 冲突检测与分配摄影棚 → 写入
	Register(ctx context.Context, req *dto.RegisterScheduleRequest, actor Actor, now time.Time) (*dto.ScheduleResponse, error)
	Get(ctx context.Context, id string) (*dto.ScheduleResponse, error)
	List(ctx context.Context, req *dto.ScheduleListRequest) ([]dto.ScheduleResponse, error)
	// 生命周期迁移
	Transition(ctx context.Context, id string, action model.ScheduleAction, req *dto.TransitionRequest, actor Actor, now time.Time) (*dto.ScheduleResponse, error)
	// 直接修改（受时间策略约束，管理员除外）
	DirectEdit(ctx context.Context, id string, req *dto.EditScheduleRequest, actor Actor, now time.Time) (*dto.ScheduleResponse, error)
}

type scheduleService struct {
	repo      *repository.Repository
	conflict  ConflictService
	publisher notify.Publisher
	locker    Locker
	opts      Options
	logger    *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(
	repo *repository.Repository,
	conflict ConflictService,
	publisher notify.Publisher,
	locker Locker,
	opts Options,
	logger *zap.Logger,
) ScheduleService {
	return &scheduleService{
		repo:      repo,
		conflict:  conflict,
		publisher: publisher,
		locker:    locker,
		opts:      opts,
		logger:    logger,
	}
}

// ════════════════════════════════════════════════════════════
// Register
// ════════════════════════════════════════════════════════════

func (s *scheduleService) Register(ctx context.Context, req *dto.RegisterScheduleRequest, actor Actor, now time.Time) (*dto.ScheduleResponse, error) {
	actorID := actor.ID
	sched := &model.Schedule{
		ShootDate:      strings.TrimSpace(req.ShootDate),
		StartTime:      strings.TrimSpace(req.StartTime),
		EndTime:        strings.TrimSpace(req.EndTime),
		ShootingType:   strings.TrimSpace(req.ShootingType),
		CourseName:     strings.TrimSpace(req.CourseName),
		CourseCode:     strings.TrimSpace(req.CourseCode),
		ApprovalStatus: model.StatusPending,
		IsActive:       true,
		BreakEnabled:   req.BreakEnabled,
		BreakStartTime: req.BreakStartTime,
		BreakEndTime:   req.BreakEndTime,
		Notes:          req.Notes,
	}
	sched.CreatedBy = &actorID
	sched.UpdatedBy = &actorID

	// 教授本人登记；管理员可代登记
	if actor.IsAdmin() && req.ProfessorID != nil {
		sched.ProfessorID = req.ProfessorID
		sched.ProfessorName = req.ProfessorName
	} else {
		sched.ProfessorID = &actorID
		sched.ProfessorName = actor.Name
	}

	if err := validateSchedule(sched, s.opts.Location); err != nil {
		return nil, err
	}

	// 登记窗口：下周一起两周
	if !actor.IsAdmin() && !s.opts.AllowOutsideWindow {
		date, _ := timeutil.ParseDate(sched.ShootDate, s.opts.Location)
		w := policy.RegistrationWindow(now.In(s.opts.Location))
		if !w.Contains(date) {
			return nil, &PolicyViolation{
				Kind: ViolationOutsideRegistrationWindow,
				Message: fmt.Sprintf("当前仅可登记 %s 至 %s 的排程",
					timeutil.FormatDate(w.Start), timeutil.FormatDate(w.End)),
			}
		}
	}

	release, err := lockDate(ctx, s.locker, s.opts.LockTTL, sched.ShootDate, s.logger)
	if err != nil {
		return nil, err
	}
	defer release()

	studioID, err := s.assignStudio(ctx, sched, req.StudioID, false)
	if err != nil {
		return nil, err
	}
	sched.StudioID = &studioID

	if req.Submit {
		sched.ApprovalStatus = model.StatusApprovalRequested
		sched.PreviousStatus = model.StatusPending
		sched.RequestedBy = &actorID
	}

	err = runInTx(ctx, s.repo, func(r *repository.Repository) error {
		if err := r.Schedule.Create(ctx, sched); err != nil {
			return &PersistenceError{Op: "创建排程", Err: err}
		}
		return asPersistence("记录排程历史", recordHistory(ctx, r.History, historyEntry{
			ScheduleID: sched.ScheduleID,
			ChangeType: model.ChangeCreated,
			ActorID:    actorID,
			After:      snapshotOf(sched),
		}))
	})
	if err != nil {
		s.logger.Error("登记排程失败", zap.String("date", sched.ShootDate), zap.Error(err))
		return nil, err
	}

	s.logger.Info("排程已登记",
		zap.String("schedule_id", sched.ScheduleID),
		zap.String("date", sched.ShootDate),
		zap.String("studio_id", studioID),
	)

	event := newScheduleEvent(notify.EventScheduleCreated, sched, actorID, now)
	publish(ctx, s.publisher, s.logger, event)

	resp := toScheduleResponse(sched)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *scheduleService) Get(ctx context.Context, id string) (*dto.ScheduleResponse, error) {
	sched, err := getSchedule(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	resp := toScheduleResponse(sched)
	return &resp, nil
}

func (s *scheduleService) List(ctx context.Context, req *dto.ScheduleListRequest) ([]dto.ScheduleResponse, error) {
	filter := repository.ScheduleFilter{
		DateFrom:     req.DateFrom,
		DateTo:       req.DateTo,
		ShootingType: req.ShootingType,
		ProfessorID:  req.ProfessorID,
		ActiveOnly:   req.ActiveOnly,
	}
	if req.StudioID != "" {
		filter.StudioIDs = []string{req.StudioID}
	}
	schedules, err := s.repo.Schedule.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询排程列表失败", zap.Error(err))
		return nil, &PersistenceError{Op: "查询排程列表", Err: err}
	}
	list := make([]dto.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		list = append(list, toScheduleResponse(&schedules[i]))
	}
	return list, nil
}

// ════════════════════════════════════════════════════════════
// Transition — 按迁移表执行状态变更
// ════════════════════════════════════════════════════════════

func (s *scheduleService) Transition(ctx context.Context, id string, action model.ScheduleAction, req *dto.TransitionRequest, actor Actor, now time.Time) (*dto.ScheduleResponse, error) {
	sched, err := getSchedule(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	reason := ""
	if req != nil {
		reason = strings.TrimSpace(req.Reason)
	}
	rule, to, err := checkTransition(sched, action, actor, reason)
	if err != nil {
		return nil, err
	}

	before := snapshotOf(sched)
	from := sched.ApprovalStatus
	applyTransition(sched, action, rule, to, actor, reason, now)

	err = runInTx(ctx, s.repo, func(r *repository.Repository) error {
		if err := r.Schedule.Update(ctx, sched); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return err
			}
			return &PersistenceError{Op: "更新排程状态", Err: err}
		}
		return asPersistence("记录排程历史", recordHistory(ctx, r.History, historyEntry{
			ScheduleID: sched.ScheduleID,
			ChangeType: string(action),
			ActorID:    actor.ID,
			Reason:     reason,
			Before:     before,
			After:      snapshotOf(sched),
		}))
	})
	if err != nil {
		s.logger.Error("排程状态迁移失败",
			zap.String("schedule_id", id),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return nil, err
	}

	event := newScheduleEvent(notify.EventScheduleTransition, sched, actor.ID, now)
	event.Action = string(action)
	event.FromStatus = string(from)
	event.ToStatus = string(to)
	event.Reason = reason
	publish(ctx, s.publisher, s.logger, event)

	resp := toScheduleResponse(sched)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// DirectEdit — 时间策略 → 字段校验 → 冲突检测 → 乐观锁更新
// ════════════════════════════════════════════════════════════

func (s *scheduleService) DirectEdit(ctx context.Context, id string, req *dto.EditScheduleRequest, actor Actor, now time.Time) (*dto.ScheduleResponse, error) {
	sched, err := getSchedule(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := checkEditable(sched, actor); err != nil {
		return nil, err
	}
	if err := checkEditPolicy(s.opts.Hours, s.opts.Location, sched, actor, now.In(s.opts.Location)); err != nil {
		return nil, err
	}
	if req.Version > 0 && req.Version != sched.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	before := snapshotOf(sched)
	updated := sched.Clone()
	slotChanged := applyEdit(updated, req)

	if err := validateSchedule(updated, s.opts.Location); err != nil {
		return nil, err
	}
	// 改到的新日期也不能是过去或当天
	if updated.ShootDate != sched.ShootDate {
		if err := checkEditPolicy(s.opts.Hours, s.opts.Location, updated, actor, now.In(s.opts.Location)); err != nil {
			var pv *PolicyViolation
			if errors.As(err, &pv) && pv.Kind == ViolationTooLate {
				return nil, err
			}
		}
	}

	if slotChanged {
		release, err := lockDate(ctx, s.locker, s.opts.LockTTL, updated.ShootDate, s.logger)
		if err != nil {
			return nil, err
		}
		defer release()

		explicit := req.StudioID != nil && *req.StudioID != ""
		preferred := updated.StudioID
		studioID, err := s.assignStudio(ctx, updated, preferred, !explicit)
		if err != nil {
			return nil, err
		}
		updated.StudioID = &studioID
	}

	actorID := actor.ID
	updated.UpdatedBy = &actorID
	err = runInTx(ctx, s.repo, func(r *repository.Repository) error {
		if err := r.Schedule.Update(ctx, updated); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return err
			}
			return &PersistenceError{Op: "修改排程", Err: err}
		}
		return asPersistence("记录排程历史", recordHistory(ctx, r.History, historyEntry{
			ScheduleID: updated.ScheduleID,
			ChangeType: model.ChangeDirectEdit,
			ActorID:    actorID,
			Before:     before,
			After:      snapshotOf(updated),
		}))
	})
	if err != nil {
		s.logger.Error("修改排程失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, err
	}

	event := newScheduleEvent(notify.EventScheduleEdited, updated, actorID, now)
	event.Old = &notify.Segment{StartTime: sched.StartTime, EndTime: sched.EndTime}
	event.New = []notify.Segment{{ScheduleID: updated.ScheduleID, StartTime: updated.StartTime, EndTime: updated.EndTime}}
	publish(ctx, s.publisher, s.logger, event)

	resp := toScheduleResponse(updated)
	return &resp, nil
}

// applyEdit 合并修改字段，返回日期/时段/拍摄类型/摄影棚是否变化（需要重新检测冲突）
func applyEdit(s *model.Schedule, req *dto.EditScheduleRequest) bool {
	changed := false
	setSlot := func(dst *string, v *string) {
		if v != nil && strings.TrimSpace(*v) != *dst {
			*dst = strings.TrimSpace(*v)
			changed = true
		}
	}
	setSlot(&s.ShootDate, req.ShootDate)
	setSlot(&s.StartTime, canonicalTime(req.StartTime))
	setSlot(&s.EndTime, canonicalTime(req.EndTime))
	setSlot(&s.ShootingType, req.ShootingType)
	if req.StudioID != nil && *req.StudioID != "" && (s.StudioID == nil || *s.StudioID != *req.StudioID) {
		id := *req.StudioID
		s.StudioID = &id
		changed = true
	}

	if req.CourseName != nil {
		s.CourseName = strings.TrimSpace(*req.CourseName)
	}
	if req.CourseCode != nil {
		s.CourseCode = strings.TrimSpace(*req.CourseCode)
	}
	if req.Notes != nil {
		s.Notes = *req.Notes
	}
	if req.BreakEnabled != nil {
		s.BreakEnabled = *req.BreakEnabled
	}
	if req.BreakStartTime != nil {
		s.BreakStartTime = req.BreakStartTime
	}
	if req.BreakEndTime != nil {
		s.BreakEndTime = req.BreakEndTime
	}
	return changed
}

// canonicalTime 可解析时返回规范化的 HH:MM，否则原样返回交由 validateSchedule 报错
func canonicalTime(v *string) *string {
	if v == nil {
		return nil
	}
	if n, err := timeutil.Normalize(*v); err == nil {
		return &n
	}
	return v
}

// assignStudio 通过冲突检测确定摄影棚
// preferred 为空时取推荐棚；fallback=true 时 preferred 不可用则退回推荐棚，否则返回冲突
func (s *scheduleService) assignStudio(ctx context.Context, sched *model.Schedule, preferred *string, fallback bool) (string, error) {
	req := &dto.ConflictCheckRequest{
		ShootDate:         sched.ShootDate,
		StartTime:         sched.StartTime,
		EndTime:           sched.EndTime,
		ShootingType:      sched.ShootingType,
		ExcludeScheduleID: sched.ScheduleID,
	}
	if sched.ScheduleGroupID != nil {
		req.ExcludeGroupID = *sched.ScheduleGroupID
	}
	if sched.ParentScheduleID != nil {
		req.ParentScheduleID = *sched.ParentScheduleID
	}

	result, err := s.conflict.Check(ctx, req)
	if err != nil {
		return "", err
	}
	if preferred == nil || *preferred == "" {
		return result.Recommended.StudioID, nil
	}

	want := *preferred
	if result.Recommended.StudioID == want {
		return want, nil
	}
	for _, alt := range result.Alternatives {
		if alt.StudioID == want {
			return want, nil
		}
	}
	if fallback {
		return result.Recommended.StudioID, nil
	}

	free := append([]dto.StudioOption{*result.Recommended}, result.Alternatives...)
	for _, b := range result.Busy {
		if b.StudioID == want {
			return "", &ConflictError{
				Message:      "指定的摄影棚在该时段已被占用",
				Busy:         result.Busy,
				Alternatives: free,
			}
		}
	}
	return "", newValidationError("studio_id", "该摄影棚不支持所选拍摄类型")
}

// ── 校验 ──

// validateSchedule 日期、时段与休息时间
// 休息时间需满足 start ≤ break_start < break_end ≤ end；未启用时清空
func validateSchedule(s *model.Schedule, loc *time.Location) error {
	verr := &ValidationError{}
	if _, err := timeutil.ParseDate(s.ShootDate, loc); err != nil {
		verr.Add("shoot_date", "日期格式应为 YYYY-MM-DD")
	}
	if s.ShootingType == "" {
		verr.Add("shooting_type", "拍摄类型不能为空")
	}
	if s.CourseName == "" {
		verr.Add("course_name", "课程名称不能为空")
	}

	start, end, err := parseRange(s.StartTime, s.EndTime)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			for k, v := range ve.Fields {
				verr.Add(k, v)
			}
		}
		return verr.OrNil()
	}
	// 以规范化的 HH:MM 入库，文本比较与排序才与时间顺序一致
	s.StartTime, s.EndTime = timeutil.FormatMinutes(start), timeutil.FormatMinutes(end)

	if !s.BreakEnabled {
		s.BreakStartTime, s.BreakEndTime = nil, nil
		return verr.OrNil()
	}
	if s.BreakStartTime == nil || s.BreakEndTime == nil {
		verr.Add("break_start_time", "启用休息时间时必须填写开始与结束时间")
		return verr.OrNil()
	}
	bs, err1 := timeutil.ToMinutes(*s.BreakStartTime)
	be, err2 := timeutil.ToMinutes(*s.BreakEndTime)
	switch {
	case err1 != nil || err2 != nil:
		verr.Add("break_start_time", "时刻格式应为 HH:MM")
	case bs >= be:
		verr.Add("break_end_time", "休息结束时间必须晚于开始时间")
	case bs < start || be > end:
		verr.Add("break_start_time", "休息时间必须在拍摄时段内")
	default:
		bStart, bEnd := timeutil.FormatMinutes(bs), timeutil.FormatMinutes(be)
		s.BreakStartTime, s.BreakEndTime = &bStart, &bEnd
	}
	return verr.OrNil()
}

// ── 转换 ──

func toScheduleResponse(s *model.Schedule) dto.ScheduleResponse {
	resp := dto.ScheduleResponse{
		ID:               s.ScheduleID,
		ShootDate:        s.ShootDate,
		StartTime:        s.StartTime,
		EndTime:          s.EndTime,
		ProfessorID:      s.ProfessorID,
		ProfessorName:    s.ProfessorName,
		CourseName:       s.CourseName,
		CourseCode:       s.CourseCode,
		ShootingType:     s.ShootingType,
		StudioID:         s.StudioID,
		Status:           string(s.ApprovalStatus),
		PreviousStatus:   string(s.PreviousStatus),
		IsActive:         s.IsActive,
		BreakEnabled:     s.BreakEnabled,
		BreakStartTime:   s.BreakStartTime,
		BreakEndTime:     s.BreakEndTime,
		ScheduleGroupID:  s.ScheduleGroupID,
		ParentScheduleID: s.ParentScheduleID,
		IsSplit:          s.IsSplit,
		IsSplitSchedule:  s.IsSplitSchedule,
		SplitReason:      s.SplitReason,
		DeletionReason:   s.DeletionReason,
		RequestReason:    s.RequestReason,
		Notes:            s.Notes,
		ApprovedBy:       s.ApprovedBy,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        s.UpdatedAt.Format(time.RFC3339),
	}
	if s.Studio != nil {
		resp.Studio = &dto.StudioBrief{ID: s.Studio.StudioID, Name: s.Studio.Name}
	}
	if s.ApprovedAt != nil {
		at := s.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &at
	}
	return resp
}

func newScheduleEvent(typ notify.EventType, s *model.Schedule, actorID string, now time.Time) notify.Event {
	event := notify.NewEvent(typ, s.ScheduleID, actorID, now)
	event.ShootDate = s.ShootDate
	event.CourseName = s.CourseName
	return event
}

// [自证通过] internal/service/schedule_service.go
