package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studio-schedule/backend/internal/dto"
	"studio-schedule/backend/internal/model"
	"studio-schedule/backend/internal/notify"
	"studio-schedule/backend/internal/repository"
	"studio-schedule/backend/pkg/timeutil"
)

const defaultSplitReason = "管理员拆分"

// SplitService 排程拆分接口
type SplitService interface {
	// Split 在分割点处把排程拆成首尾相接的多段
	Split(ctx context.Context, id string, req *dto.SplitScheduleRequest, actor Actor, now time.Time) (*dto.SplitResponse, error)
	// Unsplit 撤销拆分：停用子排程并恢复原排程
	Unsplit(ctx context.Context, id string, req *dto.UnsplitScheduleRequest, actor Actor, now time.Time) (*dto.ScheduleResponse, error)
	// ListGroups 按拆分组合并后的排程视图
	ListGroups(ctx context.Context, req *dto.ScheduleGroupListRequest) ([]dto.ScheduleGroupResponse, error)
}

type splitService struct {
	repo      *repository.Repository
	publisher notify.Publisher
	locker    Locker
	opts      Options
	logger    *zap.Logger
}

// NewSplitService 创建 SplitService 实例
func NewSplitService(repo *repository.Repository, publisher notify.Publisher, locker Locker, opts Options, logger *zap.Logger) SplitService {
	return &splitService{repo: repo, publisher: publisher, locker: locker, opts: opts, logger: logger}
}

// Segment 拆分后的一段 [Start, End)
type Segment struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// BuildSegments 以 start、各分割点、end 为边界生成首尾相接的时间段
// 分割点去重排序，只保留严格位于 (start, end) 内的点；不足两段时返回 ValidationError
func BuildSegments(start, end string, points []string) ([]Segment, error) {
	s, e, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(points))
	cuts := make([]int, 0, len(points))
	for _, p := range points {
		m, err := timeutil.ToMinutes(p)
		if err != nil {
			return nil, newValidationError("split_points", "分割时刻格式应为 HH:MM: "+p)
		}
		if m <= s || m >= e || seen[m] {
			continue
		}
		seen[m] = true
		cuts = append(cuts, m)
	}
	sort.Ints(cuts)

	bounds := make([]int, 0, len(cuts)+2)
	bounds = append(bounds, s)
	bounds = append(bounds, cuts...)
	bounds = append(bounds, e)

	segments := make([]Segment, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		segments = append(segments, Segment{
			Start: timeutil.FormatMinutes(bounds[i]),
			End:   timeutil.FormatMinutes(bounds[i+1]),
		})
	}
	if len(segments) < 2 {
		return nil, newValidationError("split_points", "未产生有效的拆分时间段，分割点必须位于排程时段内部")
	}
	return segments, nil
}

// ════════════════════════════════════════════════════════════
// Split
// ════════════════════════════════════════════════════════════
//
// 先停用原排程再插入子排程，避免原时段被冲突检测重复计算。
// 仓储支持事务时两步在同一事务内完成；否则子排程插入失败时执行补偿，恢复原排程。

func (s *splitService) Split(ctx context.Context, id string, req *dto.SplitScheduleRequest, actor Actor, now time.Time) (*dto.SplitResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}

	original, err := getSchedule(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	switch {
	case original.IsSplit:
		return nil, ErrAlreadySplit
	case original.IsSplitSchedule:
		return nil, ErrSplitChild
	case !original.IsActive || original.ApprovalStatus.IsTerminal():
		return nil, ErrScheduleNotEditable
	}

	segments, err := BuildSegments(original.StartTime, original.EndTime, req.SplitPoints)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultSplitReason
	}

	release, err := lockDate(ctx, s.locker, s.opts.LockTTL, original.ShootDate, s.logger)
	if err != nil {
		return nil, err
	}
	defer release()

	groupID := uuid.New().String()
	splitAt := now
	actorID := actor.ID
	children := buildChildren(original, segments, groupID, reason, splitAt, actorID)

	deactivate := map[string]interface{}{
		"is_active":         false,
		"is_split":          true,
		"schedule_group_id": groupID,
		"split_reason":      reason,
		"split_at":          splitAt,
		"deletion_reason":   model.DeletionReasonSplitConverted,
		"updated_by":        actorID,
	}
	history := historyEntry{
		ScheduleID: original.ScheduleID,
		ChangeType: model.ChangeSplit,
		ActorID:    actorID,
		Reason:     reason,
		Before:     Segment{Start: original.StartTime, End: original.EndTime},
	}

	if s.repo.Tx != nil {
		err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
			if err := tx.Schedule.UpdateFields(ctx, original.ScheduleID, deactivate); err != nil {
				return &PersistenceError{Op: "停用原排程", Err: err}
			}
			if err := tx.Schedule.BatchCreate(ctx, children); err != nil {
				return &PersistenceError{Op: "创建拆分子排程", Err: err}
			}
			history.After = splitAfterState(groupID, children)
			return asPersistence("记录拆分历史", recordHistory(ctx, tx.History, history))
		})
		if err != nil {
			s.logger.Error("拆分排程失败（事务已回滚）", zap.String("schedule_id", id), zap.Error(err))
			return nil, err
		}
	} else {
		if err := s.splitWithCompensation(ctx, original.ScheduleID, deactivate, children); err != nil {
			return nil, err
		}
		history.After = splitAfterState(groupID, children)
		if err := recordHistory(ctx, s.repo.History, history); err != nil {
			// 没有审计记录的拆分不保留：撤销子排程并恢复原排程
			s.logger.Error("记录拆分历史失败，撤销拆分", zap.String("schedule_id", id), zap.Error(err))
			if rbErr := s.revertSplit(ctx, original.ScheduleID, children, actorID); rbErr != nil {
				s.logger.Error("撤销拆分失败", zap.String("schedule_id", id), zap.Error(rbErr))
				return nil, &PersistenceError{Op: "记录拆分历史", Err: errors.Join(err, rbErr)}
			}
			return nil, &PersistenceError{Op: "记录拆分历史", Err: err}
		}
	}

	// 同步内存中的原排程
	original.IsActive = false
	original.IsSplit = true
	original.ScheduleGroupID = &groupID
	original.SplitReason = reason
	original.SplitAt = &splitAt
	original.DeletionReason = model.DeletionReasonSplitConverted
	original.UpdatedBy = &actorID

	s.logger.Info("排程已拆分",
		zap.String("schedule_id", id),
		zap.String("group_id", groupID),
		zap.Int("segments", len(children)),
	)

	event := newScheduleEvent(notify.EventScheduleSplit, original, actorID, now)
	event.Reason = reason
	event.Old = &notify.Segment{ScheduleID: original.ScheduleID, StartTime: original.StartTime, EndTime: original.EndTime}
	for _, c := range children {
		event.New = append(event.New, notify.Segment{ScheduleID: c.ScheduleID, StartTime: c.StartTime, EndTime: c.EndTime})
	}
	publish(ctx, s.publisher, s.logger, event)

	resp := &dto.SplitResponse{
		GroupID:  groupID,
		Original: toScheduleResponse(original),
		Children: make([]dto.ScheduleResponse, 0, len(children)),
	}
	for _, c := range children {
		resp.Children = append(resp.Children, toScheduleResponse(c))
	}
	return resp, nil
}

// splitWithCompensation 无事务时的顺序写入
func (s *splitService) splitWithCompensation(ctx context.Context, originalID string, deactivate map[string]interface{}, children []*model.Schedule) error {
	if err := s.repo.Schedule.UpdateFields(ctx, originalID, deactivate); err != nil {
		s.logger.Error("停用原排程失败", zap.String("schedule_id", originalID), zap.Error(err))
		return &PersistenceError{Op: "停用原排程", Err: err}
	}

	if err := s.repo.Schedule.BatchCreate(ctx, children); err != nil {
		s.logger.Error("创建拆分子排程失败，执行补偿", zap.String("schedule_id", originalID), zap.Error(err))
		if rbErr := restoreOriginal(ctx, s.repo.Schedule, originalID); rbErr != nil {
			s.logger.Error("补偿恢复原排程失败", zap.String("schedule_id", originalID), zap.Error(rbErr))
			return &PersistenceError{Op: "创建拆分子排程", Err: errors.Join(err, rbErr)}
		}
		return &PersistenceError{Op: "创建拆分子排程", Err: err}
	}
	return nil
}

// revertSplit 停用已插入的子排程并恢复原排程；可重复执行
func (s *splitService) revertSplit(ctx context.Context, originalID string, children []*model.Schedule, actorID string) error {
	var errs []error
	for _, c := range children {
		if err := s.repo.Schedule.UpdateFields(ctx, c.ScheduleID, map[string]interface{}{
			"is_active":       false,
			"deletion_reason": model.DeletionReasonSplitReverted,
			"updated_by":      actorID,
		}); err != nil {
			errs = append(errs, err)
		}
	}
	if err := restoreOriginal(ctx, s.repo.Schedule, originalID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// restoreOriginal 恢复原排程为未拆分状态；可重复执行
func restoreOriginal(ctx context.Context, repo repository.ScheduleRepository, id string) error {
	return repo.UpdateFields(ctx, id, map[string]interface{}{
		"is_active":         true,
		"is_split":          false,
		"schedule_group_id": nil,
		"split_reason":      "",
		"split_at":          nil,
		"deletion_reason":   "",
	})
}

// buildChildren 复制原排程的业务字段生成子排程
// 休息时间只保留给完整包含它的那一段
func buildChildren(original *model.Schedule, segments []Segment, groupID, reason string, splitAt time.Time, actorID string) []*model.Schedule {
	children := make([]*model.Schedule, 0, len(segments))
	for _, seg := range segments {
		c := original.Clone()
		c.ScheduleID = ""
		c.CreatedAt = time.Time{}
		c.UpdatedAt = time.Time{}
		c.Version = 0
		c.StartTime = seg.Start
		c.EndTime = seg.End
		c.IsActive = true
		c.IsSplit = false
		c.IsSplitSchedule = true
		c.ParentScheduleID = &original.ScheduleID
		c.ScheduleGroupID = &groupID
		c.SplitReason = reason
		at := splitAt
		c.SplitAt = &at
		c.DeletionReason = ""
		c.CreatedBy = &actorID
		c.UpdatedBy = &actorID

		if c.BreakEnabled && !breakInside(c.BreakStartTime, c.BreakEndTime, seg) {
			c.BreakEnabled = false
			c.BreakStartTime, c.BreakEndTime = nil, nil
		}
		children = append(children, c)
	}
	return children
}

func breakInside(bs, be *string, seg Segment) bool {
	if bs == nil || be == nil {
		return false
	}
	b1, b2 := timeutil.MustMinutes(*bs), timeutil.MustMinutes(*be)
	s1, s2 := timeutil.MustMinutes(seg.Start), timeutil.MustMinutes(seg.End)
	return b1 >= s1 && b2 <= s2 && b1 < b2
}

type splitChildState struct {
	ScheduleID string `json:"schedule_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

func splitAfterState(groupID string, children []*model.Schedule) interface{} {
	list := make([]splitChildState, 0, len(children))
	for _, c := range children {
		list = append(list, splitChildState{ScheduleID: c.ScheduleID, StartTime: c.StartTime, EndTime: c.EndTime})
	}
	return map[string]interface{}{
		"group_id": groupID,
		"segments": list,
	}
}

// ════════════════════════════════════════════════════════════
// Unsplit
// ════════════════════════════════════════════════════════════

func (s *splitService) Unsplit(ctx context.Context, id string, req *dto.UnsplitScheduleRequest, actor Actor, now time.Time) (*dto.ScheduleResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}

	original, err := getSchedule(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !original.IsSplit || original.ScheduleGroupID == nil {
		return nil, ErrNotSplitParent
	}
	groupID := *original.ScheduleGroupID

	reason := ""
	if req != nil {
		reason = strings.TrimSpace(req.Reason)
	}

	release, err := lockDate(ctx, s.locker, s.opts.LockTTL, original.ShootDate, s.logger)
	if err != nil {
		return nil, err
	}
	defer release()

	children, err := s.repo.Schedule.List(ctx, repository.ScheduleFilter{GroupID: groupID, ActiveOnly: true})
	if err != nil {
		return nil, &PersistenceError{Op: "查询拆分子排程", Err: err}
	}

	if err := s.checkRestorable(ctx, original, groupID); err != nil {
		return nil, err
	}

	before := splitAfterState(groupID, childPointers(children))
	actorID := actor.ID

	err = runInTx(ctx, s.repo, func(r *repository.Repository) error {
		for _, c := range children {
			if c.ParentScheduleID == nil || *c.ParentScheduleID != original.ScheduleID {
				continue
			}
			if err := r.Schedule.UpdateFields(ctx, c.ScheduleID, map[string]interface{}{
				"is_active":       false,
				"deletion_reason": model.DeletionReasonSplitReverted,
				"updated_by":      actorID,
			}); err != nil {
				return &PersistenceError{Op: "停用拆分子排程", Err: err}
			}
		}
		if err := restoreOriginal(ctx, r.Schedule, original.ScheduleID); err != nil {
			return &PersistenceError{Op: "恢复原排程", Err: err}
		}
		return asPersistence("记录取消拆分历史", recordHistory(ctx, r.History, historyEntry{
			ScheduleID: original.ScheduleID,
			ChangeType: model.ChangeUnsplit,
			ActorID:    actorID,
			Reason:     reason,
			Before:     before,
			After:      Segment{Start: original.StartTime, End: original.EndTime},
		}))
	})
	if err != nil {
		s.logger.Error("取消拆分失败", zap.String("schedule_id", id), zap.Error(err))
		return nil, err
	}

	original.IsActive = true
	original.IsSplit = false
	original.ScheduleGroupID = nil
	original.SplitReason = ""
	original.SplitAt = nil
	original.DeletionReason = ""

	event := newScheduleEvent(notify.EventScheduleUnsplit, original, actorID, now)
	event.Reason = reason
	publish(ctx, s.publisher, s.logger, event)

	resp := toScheduleResponse(original)
	return &resp, nil
}

// checkRestorable 子排程被取消后原时段可能已被他人占用，恢复前需要重新检测
func (s *splitService) checkRestorable(ctx context.Context, original *model.Schedule, groupID string) error {
	if original.StudioID == nil {
		return nil
	}
	bookings, err := s.repo.Schedule.List(ctx, repository.ScheduleFilter{
		ShootDate:       original.ShootDate,
		StudioIDs:       []string{*original.StudioID},
		ActiveOnly:      true,
		ExcludeStatuses: nonOccupyingStatuses,
		ExcludeGroupID:  groupID,
	})
	if err != nil {
		return &PersistenceError{Op: "查询当日排程", Err: err}
	}
	start, end, err := parseRange(original.StartTime, original.EndTime)
	if err != nil {
		return err
	}
	studio := []dto.StudioOption{{StudioID: *original.StudioID}}
	if original.Studio != nil {
		studio[0].Name = original.Studio.Name
	}
	if _, busy := partitionStudios(studio, bookings, start, end, ""); len(busy) > 0 {
		return &ConflictError{Message: "原排程时段已被其他排程占用，无法取消拆分", Busy: busy}
	}
	return nil
}

func childPointers(list []model.Schedule) []*model.Schedule {
	out := make([]*model.Schedule, 0, len(list))
	for i := range list {
		out = append(out, &list[i])
	}
	return out
}

// ════════════════════════════════════════════════════════════
// 分组视图
// ════════════════════════════════════════════════════════════

// ScheduleGroup 同一拆分组的排程，有效区间为 [min(start), max(end)]
type ScheduleGroup struct {
	GroupID   string
	ShootDate string
	StartTime string
	EndTime   string
	Schedules []model.Schedule
}

// IsGroup 只有一个成员的组按普通排程处理
func (g ScheduleGroup) IsGroup() bool {
	return len(g.Schedules) > 1
}

// GroupSplitSchedules 合并共享 schedule_group_id 的拆分子排程，保持首次出现的顺序
func GroupSplitSchedules(schedules []model.Schedule) []ScheduleGroup {
	groups := make([]ScheduleGroup, 0, len(schedules))
	index := make(map[string]int)

	for _, sc := range schedules {
		if !sc.IsSplitSchedule || sc.ScheduleGroupID == nil {
			groups = append(groups, ScheduleGroup{
				ShootDate: sc.ShootDate,
				StartTime: sc.StartTime,
				EndTime:   sc.EndTime,
				Schedules: []model.Schedule{sc},
			})
			continue
		}
		gid := *sc.ScheduleGroupID
		i, ok := index[gid]
		if !ok {
			index[gid] = len(groups)
			groups = append(groups, ScheduleGroup{
				GroupID:   gid,
				ShootDate: sc.ShootDate,
				StartTime: sc.StartTime,
				EndTime:   sc.EndTime,
				Schedules: []model.Schedule{sc},
			})
			continue
		}
		g := &groups[i]
		g.Schedules = append(g.Schedules, sc)
		if timeutil.MustMinutes(sc.StartTime) < timeutil.MustMinutes(g.StartTime) {
			g.StartTime = sc.StartTime
		}
		if timeutil.MustMinutes(sc.EndTime) > timeutil.MustMinutes(g.EndTime) {
			g.EndTime = sc.EndTime
		}
	}

	for i := range groups {
		members := groups[i].Schedules
		sort.SliceStable(members, func(a, b int) bool {
			return timeutil.MustMinutes(members[a].StartTime) < timeutil.MustMinutes(members[b].StartTime)
		})
	}
	return groups
}

func (s *splitService) ListGroups(ctx context.Context, req *dto.ScheduleGroupListRequest) ([]dto.ScheduleGroupResponse, error) {
	if err := checkDateRange(req.DateRangeRequest, s.opts.Location, 0); err != nil {
		return nil, err
	}
	filter := repository.ScheduleFilter{
		DateFrom:        req.DateFrom,
		DateTo:          req.DateTo,
		ActiveOnly:      true,
		ExcludeStatuses: nonOccupyingStatuses,
	}
	if req.StudioID != "" {
		filter.StudioIDs = []string{req.StudioID}
	}
	schedules, err := s.repo.Schedule.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询排程失败", zap.Error(err))
		return nil, &PersistenceError{Op: "查询排程", Err: err}
	}

	groups := GroupSplitSchedules(schedules)
	list := make([]dto.ScheduleGroupResponse, 0, len(groups))
	for _, g := range groups {
		item := dto.ScheduleGroupResponse{
			ShootDate: g.ShootDate,
			StartTime: g.StartTime,
			EndTime:   g.EndTime,
			IsGroup:   g.IsGroup(),
			Schedules: make([]dto.ScheduleResponse, 0, len(g.Schedules)),
		}
		if g.IsGroup() {
			item.GroupID = g.GroupID
		}
		for i := range g.Schedules {
			item.Schedules = append(item.Schedules, toScheduleResponse(&g.Schedules[i]))
		}
		list = append(list, item)
	}
	return list, nil
}

// [自证通过] internal/service/split_service.go
