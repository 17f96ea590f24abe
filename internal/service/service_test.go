package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"studio-schedule/backend/config"
	"studio-schedule/backend/internal/model"
	pkgerrors "studio-schedule/backend/pkg/errors"
)

var (
	professor = Actor{ID: "prof-1", Name: "金教授", Role: RoleProfessor}
	otherProf = Actor{ID: "prof-2", Name: "李教授", Role: RoleProfessor}
	admin     = Actor{ID: "admin-1", Name: "管理员", Role: RoleAdmin}
)

func zapNop() *zap.Logger { return zap.NewNop() }

func testOptions() Options {
	return DefaultOptions()
}

func strPtr(s string) *string { return &s }

// at UTC 时间
func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

// seed 直接写入一条有效排程
func (env *testEnv) seed(date, start, end, studioID string, status model.ScheduleStatus, mutate ...func(*model.Schedule)) *model.Schedule {
	s := &model.Schedule{
		ShootDate:      date,
		StartTime:      start,
		EndTime:        end,
		ShootingType:   "PPT",
		CourseName:     "数据结构",
		ApprovalStatus: status,
		IsActive:       true,
		ProfessorID:    strPtr(professor.ID),
		ProfessorName:  professor.Name,
	}
	if studioID != "" {
		s.StudioID = strPtr(studioID)
	}
	for _, fn := range mutate {
		fn(s)
	}
	env.schedules.put(s)
	return env.schedules.schedules[s.ScheduleID]
}

// threeStudios studio-a/b/c 都支持 PPT，studio-b 为首选
func (env *testEnv) threeStudios() {
	env.studios.addStudio("studio-a", "A棚", nil, "PPT", "访谈")
	env.studios.addStudio("studio-b", "B棚", []string{"PPT"}, "PPT")
	env.studios.addStudio("studio-c", "C棚", nil, "PPT", "绿幕")
}

func TestActor_IsAdmin(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{RoleAdmin, true},
		{RoleManager, true},
		{RoleProfessor, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := (Actor{Role: tt.role}).IsAdmin(); got != tt.want {
			t.Errorf("角色 %q: 期望 IsAdmin=%v，实际=%v", tt.role, tt.want, got)
		}
	}
}

func TestNewOptions(t *testing.T) {
	cfg := &config.Config{
		Scheduling: config.SchedulingConfig{
			Timezone:       "Asia/Seoul",
			WorkStart:      "08:30",
			WorkEnd:        "20:00",
			SuggestionStep: 15,
			MaxSuggestions: 5,
			EditOpenHour:   10,
			EditCloseHour:  18,
			LockTTL:        3 * time.Second,
		},
		Feature: config.FeatureConfig{AllowOutsideWindow: true},
	}
	opts := NewOptions(cfg)

	if opts.Location.String() != "Asia/Seoul" {
		t.Errorf("期望时区 Asia/Seoul，实际=%s", opts.Location)
	}
	if opts.WorkStart != 8*60+30 || opts.WorkEnd != 20*60 {
		t.Errorf("工作时段解析错误: %d-%d", opts.WorkStart, opts.WorkEnd)
	}
	if opts.SuggestionStep != 15 || opts.MaxSuggestions != 5 || opts.LockTTL != 3*time.Second {
		t.Errorf("参数未生效: %+v", opts)
	}
	if opts.Hours.Open != 10 || opts.Hours.Close != 18 || !opts.AllowOutsideWindow {
		t.Errorf("营业时段/功能开关未生效: %+v", opts)
	}
}

func TestNewOptions_InvalidFallsBack(t *testing.T) {
	cfg := &config.Config{Scheduling: config.SchedulingConfig{
		Timezone:  "Mars/Olympus",
		WorkStart: "bad",
		WorkEnd:   "07:00",
	}}
	opts := NewOptions(cfg)
	def := DefaultOptions()
	if opts.Location != time.UTC {
		t.Errorf("无效时区应回退 UTC，实际=%s", opts.Location)
	}
	if opts.WorkStart != def.WorkStart || opts.WorkEnd != def.WorkEnd {
		t.Errorf("无效工作时段应回退默认值，实际=%d-%d", opts.WorkStart, opts.WorkEnd)
	}
	if opts.SuggestionStep != def.SuggestionStep || opts.MaxSuggestions != def.MaxSuggestions {
		t.Errorf("未配置时应使用默认值，实际=%+v", opts)
	}
}

func TestLockDate(t *testing.T) {
	ctx := context.Background()
	logger := zapNop()

	t.Run("nil locker 不加锁", func(t *testing.T) {
		release, err := lockDate(ctx, nil, time.Second, "2025-09-01", logger)
		if err != nil || release == nil {
			t.Fatalf("期望无锁执行，实际 err=%v", err)
		}
		release()
	})

	t.Run("锁被占用返回 ErrScheduleBusy", func(t *testing.T) {
		l := newMockLocker()
		l.held["date:2025-09-01"] = true
		_, err := lockDate(ctx, l, time.Second, "2025-09-01", logger)
		if !errors.Is(err, ErrScheduleBusy) {
			t.Errorf("期望 ErrScheduleBusy，实际=%v", err)
		}
	})

	t.Run("Redis 故障降级为无锁", func(t *testing.T) {
		l := newMockLocker()
		l.err = errInjected
		release, err := lockDate(ctx, l, time.Second, "2025-09-01", logger)
		if err != nil {
			t.Fatalf("期望降级执行，实际 err=%v", err)
		}
		release()
	})

	t.Run("释放后可再次获取", func(t *testing.T) {
		l := newMockLocker()
		release, err := lockDate(ctx, l, time.Second, "2025-09-02", logger)
		if err != nil {
			t.Fatal(err)
		}
		release()
		if _, err := lockDate(ctx, l, time.Second, "2025-09-02", logger); err != nil {
			t.Errorf("释放后应可再次加锁，实际=%v", err)
		}
	})
}

func TestAsPersistence(t *testing.T) {
	if asPersistence("x", nil) != nil {
		t.Error("nil 应原样返回")
	}

	ve := newValidationError("f", "bad")
	if got := asPersistence("x", ve); got != error(ve) {
		t.Errorf("业务错误应原样返回，实际=%v", got)
	}

	err := asPersistence("写入", errInjected)
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Op != "写入" || !errors.Is(err, errInjected) {
		t.Errorf("期望包装为 PersistenceError，实际=%v", err)
	}

	// 乐观锁错误同样按存储错误处理
	if !errors.Is(asPersistence("写入", pkgerrors.ErrOptimisticLock), pkgerrors.ErrOptimisticLock) {
		t.Error("包装后应仍可识别原始错误")
	}
}

func TestValidationError(t *testing.T) {
	v := &ValidationError{}
	if v.OrNil() != nil {
		t.Error("无字段时 OrNil 应返回 nil")
	}
	v.Add("start_time", "格式错误")
	v.Add("start_time", "第二条被忽略")
	v.Add("end_time", "早于开始")
	if v.Fields["start_time"] != "格式错误" {
		t.Errorf("同一字段应保留第一条，实际=%q", v.Fields["start_time"])
	}
	want := "参数校验失败: end_time: 早于开始; start_time: 格式错误"
	if v.Error() != want {
		t.Errorf("期望 %q，实际 %q", want, v.Error())
	}
}

// [自证通过] internal/service/service_test.go
