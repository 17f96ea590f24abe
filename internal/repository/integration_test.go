//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"studio-schedule/backend/internal/dto"
	"studio-schedule/backend/internal/model"
	"studio-schedule/backend/internal/repository"
	"studio-schedule/backend/internal/service"
	"studio-schedule/backend/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=studio password=studio_password dbname=studio_schedule_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 使用正式迁移脚本建表，保证与生产结构一致
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "数据库迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// setupStudios 创建三个支持同一拍摄类型的摄影棚（第二个为首选），返回拍摄类型与清理函数
func setupStudios(t *testing.T, repo *repository.Repository) (shootingType string, studios []*model.Studio, cleanup func()) {
	t.Helper()
	ctx := context.Background()
	shootingType = fmt.Sprintf("PPT-%d", time.Now().UnixNano())

	for i := 0; i < 3; i++ {
		st := &model.Studio{Name: fmt.Sprintf("测试棚-%d", i+1), SortOrder: i + 1, IsActive: true}
		require.NoError(t, repo.Studio.Create(ctx, st))
		require.NoError(t, repo.Studio.AddShootingType(ctx, &model.StudioShootingType{
			StudioID:     st.StudioID,
			ShootingType: shootingType,
			IsPrimary:    i == 1,
			SortOrder:    i + 1,
		}))
		studios = append(studios, st)
	}

	cleanup = func() {
		ids := make([]string, 0, len(studios))
		for _, st := range studios {
			ids = append(ids, st.StudioID)
		}
		var scheduleIDs []string
		testDB.Unscoped().Model(&model.Schedule{}).Where("studio_id IN ?", ids).Pluck("schedule_id", &scheduleIDs)
		if len(scheduleIDs) > 0 {
			testDB.Unscoped().Where("schedule_id IN ?", scheduleIDs).Delete(&model.ScheduleHistory{})
			testDB.Unscoped().Model(&model.Schedule{}).Where("schedule_id IN ?", scheduleIDs).Update("parent_schedule_id", nil)
			testDB.Unscoped().Where("schedule_id IN ?", scheduleIDs).Delete(&model.Schedule{})
		}
		testDB.Unscoped().Where("studio_id IN ?", ids).Delete(&model.StudioShootingType{})
		testDB.Unscoped().Where("studio_id IN ?", ids).Delete(&model.Studio{})
	}
	return
}

// ═══════════════════════════════════════════════════════════
// Schema Constraints
// ═══════════════════════════════════════════════════════════

func TestIntegration_RangeCheckConstraint(t *testing.T) {
	repo := repository.NewRepository(testDB)
	shootingType, studios, cleanup := setupStudios(t, repo)
	defer cleanup()

	studioID := studios[0].StudioID
	err := repo.Schedule.Create(context.Background(), &model.Schedule{
		ShootDate:    "2025-09-08",
		StartTime:    "12:00",
		EndTime:      "10:00",
		ShootingType: shootingType,
		StudioID:     &studioID,
		IsActive:     true,
	})
	assert.Error(t, err, "结束时间早于开始时间应被数据库拒绝")
}

func TestIntegration_HistoryJSONB(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	scheduleID := uuid.New().String()
	defer testDB.Unscoped().Where("schedule_id = ?", scheduleID).Delete(&model.ScheduleHistory{})

	require.NoError(t, repo.History.Create(ctx, &model.ScheduleHistory{
		ScheduleID: scheduleID,
		ChangeType: string(model.ActionApprove),
		ActorID:    "admin-1",
		AfterState: datatypes.JSON(`{"status":"approved","start_time":"10:00"}`),
	}))

	list, total, err := repo.History.ListBySchedule(ctx, scheduleID, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.JSONEq(t, `{"status":"approved","start_time":"10:00"}`, string(list[0].AfterState))
	assert.Empty(t, list[0].BeforeState)
}

// ═══════════════════════════════════════════════════════════
// Register → Split → Unsplit（真实事务）
// ═══════════════════════════════════════════════════════════

func TestIntegration_RegisterSplitUnsplit(t *testing.T) {
	repo := repository.NewRepository(testDB)
	shootingType, studios, cleanup := setupStudios(t, repo)
	defer cleanup()

	ctx := context.Background()
	svc := service.NewService(service.DefaultOptions(), repo, nil, nil, zap.NewNop())
	professor := service.Actor{ID: uuid.New().String(), Name: "张教授", Role: service.RoleProfessor}
	admin := service.Actor{ID: uuid.New().String(), Name: "管理员", Role: service.RoleAdmin}
	now := time.Date(2025, 9, 3, 10, 0, 0, 0, time.UTC) // 周三

	// 登记：自动分配首选棚
	created, err := svc.Schedule.Register(ctx, &dto.RegisterScheduleRequest{
		ShootDate:    "2025-09-08",
		StartTime:    "10:00",
		EndTime:      "14:30",
		ShootingType: shootingType,
		CourseName:   "数据结构",
	}, professor, now)
	require.NoError(t, err)
	require.NotNil(t, created.StudioID)
	assert.Equal(t, studios[1].StudioID, *created.StudioID, "应分配首选棚")

	// 同一时段再次登记：落到其余空闲棚
	second, err := svc.Schedule.Register(ctx, &dto.RegisterScheduleRequest{
		ShootDate:    "2025-09-08",
		StartTime:    "11:00",
		EndTime:      "12:00",
		ShootingType: shootingType,
		CourseName:   "操作系统",
	}, professor, now)
	require.NoError(t, err)
	assert.NotEqual(t, *created.StudioID, *second.StudioID)

	// 拆分
	split, err := svc.Split.Split(ctx, created.ID, &dto.SplitScheduleRequest{SplitPoints: []string{"12:00"}}, admin, now)
	require.NoError(t, err)
	require.Len(t, split.Children, 2)
	assert.Equal(t, "10:00", split.Children[0].StartTime)
	assert.Equal(t, "12:00", split.Children[0].EndTime)
	assert.Equal(t, "14:30", split.Children[1].EndTime)

	original, err := repo.Schedule.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, original.IsActive)
	assert.True(t, original.IsSplit)

	// 取消拆分
	restored, err := svc.Split.Unsplit(ctx, created.ID, &dto.UnsplitScheduleRequest{}, admin, now)
	require.NoError(t, err)
	assert.True(t, restored.IsActive)
	assert.False(t, restored.IsSplit)

	children, err := repo.Schedule.List(ctx, repository.ScheduleFilter{GroupID: split.GroupID, ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, children, "取消拆分后子排程应全部停用")

	// 历史：created → split → unsplit
	history, total, err := repo.History.ListBySchedule(ctx, created.ID, 0, 20)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, int64(3))
	types := make(map[string]bool)
	for _, h := range history {
		types[h.ChangeType] = true
	}
	assert.True(t, types[model.ChangeCreated] && types[model.ChangeSplit] && types[model.ChangeUnsplit], "历史记录缺失: %v", types)
}
