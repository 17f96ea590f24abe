// Package policy 计算滚动两周登记窗口与排程在线修改资格。
//
// 所有函数都是显式 now 的纯函数：now 可能来自真实时钟，也可能是测试模式下注入的模拟时间，
// 因此结果不得跨请求缓存。无效输入按宽松默认值处理，不返回错误。
package policy

import (
	"fmt"
	"math"
	"time"
)

// Urgency 紧急程度
type Urgency string

const (
	UrgencySafe    Urgency = "safe"
	UrgencyWarning Urgency = "warning"
	UrgencyContact Urgency = "contact"
	UrgencyDanger  Urgency = "danger"
)

// 默认在线修改时段 [09:00, 24:00)
const (
	DefaultOpenHour  = 9
	DefaultCloseHour = 24
)

const (
	directEditMinDays = 4
	dangerHours       = 12
	warningHours      = 36
)

// Hours 在线修改的营业时段
type Hours struct {
	Open  int
	Close int
}

// DefaultHours 默认营业时段
var DefaultHours = Hours{Open: DefaultOpenHour, Close: DefaultCloseHour}

// Window 闭区间日期窗口
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains 判断日期（按自然日）是否落在窗口内
func (w Window) Contains(date time.Time) bool {
	d := startOfDay(date.In(w.Start.Location()))
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days 窗口覆盖的自然日数
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// CurrentWeekMonday 返回 now 所在周的周一 00:00（周日视为上一周第 7 天）
func CurrentWeekMonday(now time.Time) time.Time {
	offset := int(now.Weekday()) - 1
	if now.Weekday() == time.Sunday {
		offset = 6
	}
	return startOfDay(now).AddDate(0, 0, -offset)
}

// NextWeekMonday 下周一 00:00
func NextWeekMonday(now time.Time) time.Time {
	return CurrentWeekMonday(now).AddDate(0, 0, 7)
}

// RegistrationWindow 新登记开放的日期窗口：[下周一, 下周一+13天]
func RegistrationWindow(now time.Time) Window {
	start := NextWeekMonday(now)
	return Window{Start: start, End: start.AddDate(0, 0, 13)}
}

// EditDeadline 本周四 23:59:59.999
func EditDeadline(now time.Time) time.Time {
	thursday := CurrentWeekMonday(now).AddDate(0, 0, 3)
	return thursday.Add(24*time.Hour - time.Millisecond)
}

// CanEditOnline 当前时刻是否开放在线修改（默认营业时段）
func CanEditOnline(now time.Time) bool {
	return DefaultHours.CanEditOnline(now)
}

// CanEditOnline 周末关闭；营业时段外关闭；否则截止时间前开放
func (h Hours) CanEditOnline(now time.Time) bool {
	if now.IsZero() {
		return true
	}
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if hour := now.Hour(); hour < h.Open || hour >= h.Close {
		return false
	}
	return !now.After(EditDeadline(now))
}

// EditPolicy 单个排程的修改策略
type EditPolicy struct {
	DaysLeft        int     `json:"days_left"`
	CanDirectEdit   bool    `json:"can_direct_edit"`
	ContactRequired bool    `json:"contact_required"`
	IsPast          bool    `json:"is_past"`
	Urgency         Urgency `json:"urgency"`
	Reason          string  `json:"reason"`
}

// ScheduleEditPolicy 按剩余天数为排程分类（默认营业时段）
func ScheduleEditPolicy(scheduleDate, now time.Time) EditPolicy {
	return DefaultHours.ScheduleEditPolicy(scheduleDate, now)
}

// ScheduleEditPolicy daysLeft = ceil((scheduleDate - now) / 1天)
//   - daysLeft < 0：已过期，不可修改
//   - daysLeft == 0：当天，不可修改
//   - 1 ≤ daysLeft ≤ 3：需联系管理员
//   - daysLeft ≥ 4：在线修改开放时可直接修改
func (h Hours) ScheduleEditPolicy(scheduleDate, now time.Time) EditPolicy {
	if scheduleDate.IsZero() || now.IsZero() {
		return EditPolicy{
			DaysLeft:      directEditMinDays,
			CanDirectEdit: true,
			Urgency:       UrgencySafe,
			Reason:        "日期未知，按可修改处理",
		}
	}

	day := startOfDay(scheduleDate.In(now.Location()))
	daysLeft := int(math.Ceil(day.Sub(now).Hours() / 24))

	switch {
	case daysLeft < 0:
		return EditPolicy{
			DaysLeft: daysLeft,
			IsPast:   true,
			Urgency:  UrgencyDanger,
			Reason:   "拍摄日期已过，无法修改",
		}
	case daysLeft == 0:
		return EditPolicy{
			DaysLeft: daysLeft,
			Urgency:  UrgencyDanger,
			Reason:   "拍摄当天无法修改",
		}
	case daysLeft < directEditMinDays:
		return EditPolicy{
			DaysLeft:        daysLeft,
			ContactRequired: true,
			Urgency:         UrgencyContact,
			Reason:          fmt.Sprintf("距拍摄仅剩 %d 天，请联系管理员修改", daysLeft),
		}
	default:
		open := h.CanEditOnline(now)
		reason := "可在线修改"
		if !open {
			reason = "当前不在在线修改开放时间内"
		}
		return EditPolicy{
			DaysLeft:      daysLeft,
			CanDirectEdit: open,
			Urgency:       UrgencySafe,
			Reason:        reason,
		}
	}
}

// Status 修改截止提示横幅
type Status struct {
	CanEdit        bool      `json:"can_edit"`
	Level          Urgency   `json:"level"`
	Message        string    `json:"message"`
	Deadline       time.Time `json:"deadline"`
	RemainingHours float64   `json:"remaining_hours"`
}

// StatusMessage 基于默认营业时段生成提示
func StatusMessage(now time.Time) Status {
	return DefaultHours.StatusMessage(now)
}

// StatusMessage 剩余 ≤12h 为 danger，≤36h 为 warning，其余 safe；不可修改时固定 danger
func (h Hours) StatusMessage(now time.Time) Status {
	deadline := EditDeadline(now)

	if !h.CanEditOnline(now) {
		return Status{
			CanEdit:  false,
			Level:    UrgencyDanger,
			Message:  closedMessage(h, now, deadline),
			Deadline: deadline,
		}
	}

	remaining := deadline.Sub(now)
	st := Status{
		CanEdit:        true,
		Deadline:       deadline,
		RemainingHours: math.Round(remaining.Hours()*10) / 10,
	}

	switch {
	case remaining <= dangerHours*time.Hour:
		st.Level = UrgencyDanger
		st.Message = fmt.Sprintf("修改即将截止，剩余 %s", formatRemaining(remaining))
	case remaining <= warningHours*time.Hour:
		st.Level = UrgencyWarning
		st.Message = fmt.Sprintf("请尽快完成修改，剩余 %s", formatRemaining(remaining))
	default:
		st.Level = UrgencySafe
		st.Message = fmt.Sprintf("本周修改截止于周四 23:59，剩余 %s", formatRemaining(remaining))
	}
	return st
}

func closedMessage(h Hours, now, deadline time.Time) string {
	switch {
	case now.Weekday() == time.Saturday || now.Weekday() == time.Sunday:
		return "周末不开放在线修改，请于工作日再试"
	case now.Hour() < h.Open || now.Hour() >= h.Close:
		return fmt.Sprintf("在线修改开放时间为 %02d:00–%02d:00", h.Open, h.Close)
	case now.After(deadline):
		return "本周修改已截止（周四 23:59），请联系管理员"
	default:
		return "当前无法在线修改"
	}
}

func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%d天%d小时", days, hours)
	}
	return fmt.Sprintf("%d小时%d分钟", hours, minutes)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
