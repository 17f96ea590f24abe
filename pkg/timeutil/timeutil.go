// Package timeutil 提供排程使用的时刻/日期换算工具。
//
// 时刻统一以 "HH:MM" 字符串存储，计算时转换为当日分钟数（0–1440）。
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 日期字符串格式
const DateLayout = "2006-01-02"

// MinutesPerDay 一天的分钟数，"24:00" 对应该值
const MinutesPerDay = 24 * 60

// ToMinutes 将严格的 "HH:MM"（两位时、两位分，允许 "24:00"）转换为当日分钟数
// "9:00"、"10:00:00"、"+9:00" 等写法一律拒绝：时刻以文本存储并参与比较与排序
func ToMinutes(hhmm string) (int, error) {
	v := strings.TrimSpace(hhmm)
	if len(v) != 5 || v[2] != ':' || !isDigit(v[0]) || !isDigit(v[1]) || !isDigit(v[3]) || !isDigit(v[4]) {
		return 0, fmt.Errorf("无效时刻 %q，应为 HH:MM", hhmm)
	}
	h := int(v[0]-'0')*10 + int(v[1]-'0')
	m := int(v[3]-'0')*10 + int(v[4]-'0')
	if m > 59 {
		return 0, fmt.Errorf("无效时刻 %q", hhmm)
	}
	total := h*60 + m
	if total > MinutesPerDay {
		return 0, fmt.Errorf("无效时刻 %q", hhmm)
	}
	return total, nil
}

// Normalize 校验并返回规范化的 "HH:MM"
func Normalize(hhmm string) (string, error) {
	m, err := ToMinutes(hhmm)
	if err != nil {
		return "", err
	}
	return FormatMinutes(m), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// MustMinutes 解析失败时返回 -1，供已校验过的数据使用
func MustMinutes(hhmm string) int {
	m, err := ToMinutes(hhmm)
	if err != nil {
		return -1
	}
	return m
}

// FormatMinutes 将分钟数格式化为 "HH:MM"
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > MinutesPerDay {
		minutes = MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// TimeOptions 生成 [startMin, endMin] 区间内按 step 递增的时刻选项
func TimeOptions(startMin, endMin, step int) []string {
	if step <= 0 || startMin > endMin {
		return []string{}
	}
	opts := make([]string, 0, (endMin-startMin)/step+1)
	for m := startMin; m <= endMin; m += step {
		opts = append(opts, FormatMinutes(m))
	}
	return opts
}

// DurationMinutes 返回 [start, end) 的分钟数；格式错误或 end<=start 时返回 0
func DurationMinutes(start, end string) int {
	s, err1 := ToMinutes(start)
	e, err2 := ToMinutes(end)
	if err1 != nil || err2 != nil || e <= s {
		return 0
	}
	return e - s
}

// ParseDate 以指定时区解析 "YYYY-MM-DD"，返回当日 00:00
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}

// FormatDate 格式化为 "YYYY-MM-DD"
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay 返回 t 所在日期的 00:00（保持时区）
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// At 将日期与 "HH:MM" 组合为具体时间点
func At(date time.Time, hhmm string) (time.Time, error) {
	m, err := ToMinutes(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(date).Add(time.Duration(m) * time.Minute), nil
}

// ── 休息时间建议 ──

const breakSuggestThreshold = 4 * 60

// 优先尝试的固定休息时段（午餐、晚餐）
var preferredBreaks = [][2]int{
	{12 * 60, 13 * 60},
	{18 * 60, 19 * 60},
}

// SuggestBreak 为 4 小时以上的拍摄推荐 1 小时休息时间
// 优先 12:00–13:00，其次 18:00–19:00（需完整落在拍摄区间内部），
// 否则取区间中点附近、按 30 分钟向下取整的 1 小时
func SuggestBreak(start, end string) (breakStart, breakEnd string, ok bool) {
	s, err1 := ToMinutes(start)
	e, err2 := ToMinutes(end)
	if err1 != nil || err2 != nil || e-s < breakSuggestThreshold {
		return "", "", false
	}

	for _, b := range preferredBreaks {
		if b[0] >= s && b[1] <= e {
			return FormatMinutes(b[0]), FormatMinutes(b[1]), true
		}
	}

	mid := s + (e-s)/2
	bs := (mid - 30) / 30 * 30
	if bs <= s {
		bs = s + 30
	}
	be := bs + 60
	if be >= e {
		return "", "", false
	}
	return FormatMinutes(bs), FormatMinutes(be), true
}
