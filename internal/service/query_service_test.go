package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"studio-schedule/backend/internal/dto"
	"studio-schedule/backend/internal/model"
	"studio-schedule/backend/internal/policy"
)

// ── 历史 ──

func TestHistory_ListBySchedule(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	s := env.seed("2025-09-10", "10:00", "12:00", "studio-a", model.StatusPending)

	for _, step := range []struct {
		action model.ScheduleAction
		actor  Actor
	}{
		{model.ActionSubmit, professor},
		{model.ActionApprove, admin},
		{model.ActionConfirm, admin},
	} {
		if _, err := env.svc.Schedule.Transition(ctx, s.ScheduleID, step.action, nil, step.actor, wednesday); err != nil {
			t.Fatal(err)
		}
	}

	req := &dto.ScheduleHistoryListRequest{PaginationRequest: dto.PaginationRequest{Page: 1, PageSize: 2}}
	list, total, err := env.svc.History.ListBySchedule(ctx, s.ScheduleID, req)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(list) != 2 {
		t.Fatalf("期望共 3 条、本页 2 条，实际 total=%d len=%d", total, len(list))
	}
	if list[0].ChangeType != string(model.ActionSubmit) || list[0].ActorID != professor.ID {
		t.Errorf("第一条历史错误: %+v", list[0])
	}

	var before, after scheduleSnapshot
	if err := json.Unmarshal(list[1].Before, &before); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(list[1].After, &after); err != nil {
		t.Fatal(err)
	}
	if before.Status != string(model.StatusApprovalRequested) || after.Status != string(model.StatusApproved) {
		t.Errorf("快照应记录迁移前后状态: before=%s after=%s", before.Status, after.Status)
	}

	if _, _, err := env.svc.History.ListBySchedule(ctx, "missing", req); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("期望 ErrScheduleNotFound，实际=%v", err)
	}
}

// ── 策略 ──

func TestPolicy_Window(t *testing.T) {
	env := newTestEnv(true)
	resp := env.svc.Policy.Window(wednesday)
	if resp.RegistrationStart != "2025-09-08" || resp.RegistrationEnd != "2025-09-21" {
		t.Errorf("登记窗口错误: %s ~ %s", resp.RegistrationStart, resp.RegistrationEnd)
	}
	if !resp.CanEditOnline || resp.Status.Level != policy.UrgencySafe {
		t.Errorf("周三上午应可在线修改: %+v", resp)
	}
	if !strings.HasPrefix(resp.EditDeadline, "2025-09-04T23:59:59") {
		t.Errorf("修改截止应为周四 23:59:59，实际=%s", resp.EditDeadline)
	}
}

func TestPolicy_ForSchedule(t *testing.T) {
	env := newTestEnv(true)
	ctx := context.Background()
	s := env.seed("2025-09-10", "10:00", "12:00", "studio-a", model.StatusApproved)

	resp, err := env.svc.Policy.ForSchedule(ctx, s.ScheduleID, professor, monday)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Policy.DaysLeft != 9 || !resp.Policy.CanDirectEdit {
		t.Errorf("策略错误: %+v", resp.Policy)
	}
	want := []string{"request_modification", "request_cancellation", "edit"}
	if strings.Join(resp.AllowedActions, ",") != strings.Join(want, ",") {
		t.Errorf("期望 %v，实际=%v", want, resp.AllowedActions)
	}

	resp, err = env.svc.Policy.ForSchedule(ctx, s.ScheduleID, admin, friday)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Join(resp.AllowedActions, ",")
	if !strings.Contains(got, "edit") || !strings.HasSuffix(got, "split") || !strings.Contains(got, "admin_cancel") {
		t.Errorf("管理员应可修改、拆分与取消，实际=%v", resp.AllowedActions)
	}

	resp, err = env.svc.Policy.ForSchedule(ctx, s.ScheduleID, professor, friday)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(strings.Join(resp.AllowedActions, ","), "edit") {
		t.Errorf("周五教授不可直接修改，实际=%v", resp.AllowedActions)
	}
}

// ── 摄影棚 ──

func TestStudio_List(t *testing.T) {
	env := newTestEnv(true)
	env.threeStudios()
	inactive := env.studios.addStudio("studio-d", "D棚", nil, "PPT")
	inactive.IsActive = false
	ctx := context.Background()

	list, err := env.svc.Studio.List(ctx, &dto.StudioListRequest{})
	if err != nil || len(list) != 3 {
		t.Fatalf("期望 3 个有效摄影棚，实际 len=%d err=%v", len(list), err)
	}
	if list[0].ID != "studio-a" || len(list[0].ShootingTypes) != 2 {
		t.Errorf("摄影棚列表错误: %+v", list[0])
	}

	list, _ = env.svc.Studio.List(ctx, &dto.StudioListRequest{IncludeInactive: true})
	if len(list) != 4 {
		t.Errorf("包含停用时期望 4 个，实际=%d", len(list))
	}

	list, err = env.svc.Studio.List(ctx, &dto.StudioListRequest{ShootingType: "PPT"})
	if err != nil || len(list) != 3 {
		t.Fatalf("按拍摄类型筛选期望 3 个，实际 len=%d err=%v", len(list), err)
	}
	if !list[1].ShootingTypes[0].IsPrimary || list[0].ShootingTypes[0].IsPrimary {
		t.Errorf("首选标记错误: %+v", list)
	}

	if _, err := env.svc.Studio.Get(ctx, "studio-x"); !errors.Is(err, ErrStudioNotFound) {
		t.Errorf("期望 ErrStudioNotFound，实际=%v", err)
	}
	if st, err := env.svc.Studio.Get(ctx, "studio-b"); err != nil || st.Name != "B棚" {
		t.Errorf("Get 失败: %v", err)
	}
}

// ── 导出 ──

func seedExport(env *testEnv) {
	env.threeStudios()
	env.seed("2025-09-08", "10:00", "12:00", "studio-a", model.StatusApproved)
	env.seed("2025-09-09", "09:00", "10:30", "studio-b", model.StatusConfirmed, func(s *model.Schedule) {
		s.BreakEnabled = true
		s.BreakStartTime = strPtr("09:30")
		s.BreakEndTime = strPtr("09:45")
	})
	env.seed("2025-09-09", "13:00", "14:00", "studio-a", model.StatusCancelled)
}

func TestExportSchedules(t *testing.T) {
	env := newTestEnv(true)
	seedExport(env)
	req := &dto.ExportRequest{DateRangeRequest: dto.DateRangeRequest{DateFrom: "2025-09-08", DateTo: "2025-09-14"}}

	buf, filename, err := env.svc.Export.ExportSchedules(context.Background(), req)
	if err != nil {
		t.Fatalf("期望导出成功，实际=%v", err)
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名错误: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows("排程明细")
	if err != nil {
		t.Fatal(err)
	}
	// 标题 + 表头 + 2 条有效排程（已取消的不导出）
	if len(rows) != 4 {
		t.Fatalf("期望 4 行，实际=%d", len(rows))
	}
	if rows[2][0] != "2025-09-08" || rows[2][1] != "周一" || rows[2][8] != "已批准" {
		t.Errorf("第一条数据错误: %v", rows[2])
	}

	summary, err := f.GetRows("按摄影棚汇总")
	if err != nil {
		t.Fatal(err)
	}
	if len(summary) != 3 {
		t.Errorf("汇总应有表头与 2 个摄影棚，实际=%d", len(summary))
	}
}

func TestExportCalendar(t *testing.T) {
	env := newTestEnv(true)
	seedExport(env)
	req := &dto.ExportRequest{DateRangeRequest: dto.DateRangeRequest{DateFrom: "2025-09-08", DateTo: "2025-09-14"}}

	data, filename, err := env.svc.Export.ExportCalendar(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名错误: %s", filename)
	}
	body := string(data)
	if !strings.HasPrefix(body, "BEGIN:VCALENDAR") {
		t.Errorf("不是有效的 iCalendar: %.40s", body)
	}
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("期望 2 个事件，实际=%d", n)
	}
	if !strings.Contains(body, "DTSTART:20250908T100000Z") {
		t.Errorf("缺少开始时间，实际=%s", body)
	}
}

func TestExport_InvalidRange(t *testing.T) {
	env := newTestEnv(true)
	seedExport(env)
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to string
		wantErr  error
	}{
		{"结束早于开始", "2025-09-10", "2025-09-01", nil},
		{"超过最大天数", "2025-01-01", "2025-12-31", nil},
		{"范围内没有排程", "2025-10-01", "2025-10-07", ErrExportEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &dto.ExportRequest{DateRangeRequest: dto.DateRangeRequest{DateFrom: tt.from, DateTo: tt.to}}
			_, _, err := env.svc.Export.ExportSchedules(ctx, req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("期望 %v，实际=%v", tt.wantErr, err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("期望 ValidationError，实际=%v", err)
			}
		})
	}
}
