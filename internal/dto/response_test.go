package dto

import (
	"errors"
	"testing"
	"time"
)

func TestDateRangeRequest_Days(t *testing.T) {
	seoul, _ := time.LoadLocation("Asia/Seoul")
	tests := []struct {
		name      string
		from, to  string
		wantDays  int
		wantField string
		wantErr   error
	}{
		{"同一天", "2025-09-08", "2025-09-08", 1, "", nil},
		{"一周", "2025-09-08", "2025-09-14", 7, "", nil},
		{"跨月", "2025-09-29", "2025-10-05", 7, "", nil},
		{"结束早于开始", "2025-09-14", "2025-09-08", 0, "date_to", ErrDateRangeReversed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, field, err := DateRangeRequest{DateFrom: tt.from, DateTo: tt.to}.Days(seoul)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v，期望 %v", err, tt.wantErr)
			}
			if days != tt.wantDays || field != tt.wantField {
				t.Errorf("Days() = %d,%q，期望 %d,%q", days, field, tt.wantDays, tt.wantField)
			}
		})
	}
}

func TestDateRangeRequest_Days_BadFormat(t *testing.T) {
	_, field, err := DateRangeRequest{DateFrom: "2025/09/08", DateTo: "2025-09-14"}.Days(time.UTC)
	if err == nil || field != "date_from" {
		t.Errorf("格式错误应指向 date_from，实际 field=%q err=%v", field, err)
	}
	_, field, err = DateRangeRequest{DateFrom: "2025-09-08", DateTo: "bad"}.Days(time.UTC)
	if err == nil || field != "date_to" {
		t.Errorf("格式错误应指向 date_to，实际 field=%q err=%v", field, err)
	}
}

func TestPaginationRequest_Defaults(t *testing.T) {
	var p PaginationRequest
	if p.GetPage() != 1 || p.GetPageSize() != 20 || p.GetOffset() != 0 {
		t.Errorf("默认分页错误: page=%d size=%d offset=%d", p.GetPage(), p.GetPageSize(), p.GetOffset())
	}
	p = PaginationRequest{Page: 3, PageSize: 10}
	if p.GetOffset() != 20 {
		t.Errorf("offset = %d，期望 20", p.GetOffset())
	}
}
