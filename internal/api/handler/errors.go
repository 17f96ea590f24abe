package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studio-schedule/backend/internal/service"
	pkgerrors "studio-schedule/backend/pkg/errors"
	"studio-schedule/backend/pkg/response"
)

// 策略拒绝原因 → 业务码
var violationCodes = map[service.PolicyViolationKind]int{
	service.ViolationContactRequired:           20201,
	service.ViolationTooLate:                   20202,
	service.ViolationOutsideEditWindow:         20203,
	service.ViolationOutsideRegistrationWindow: 20204,
}

// handleServiceError 将 Service 层错误映射为 HTTP 响应
func handleServiceError(c *gin.Context, err error) {
	var (
		validation *service.ValidationError
		violation  *service.PolicyViolation
		conflict   *service.ConflictError
	)
	// 供请求日志记录原始错误
	_ = c.Error(err)

	switch {
	case errors.As(err, &validation):
		response.ErrorWithData(c, http.StatusBadRequest, 10001, "参数校验失败", gin.H{"fields": validation.Fields})
	case errors.As(err, &violation):
		code, ok := violationCodes[violation.Kind]
		if !ok {
			code = 20200
		}
		response.UnprocessableEntity(c, code, violation.Message, gin.H{"kind": violation.Kind, "policy": violation.Policy})
	case errors.As(err, &conflict):
		response.Conflict(c, 21101, conflict.Error(), gin.H{
			"busy":         conflict.Busy,
			"alternatives": conflict.Alternatives,
			"suggestions":  conflict.Suggestions,
		})

	// ── 资源不存在 ──
	case errors.Is(err, service.ErrScheduleNotFound):
		response.NotFound(c, 20101, err.Error())
	case errors.Is(err, service.ErrStudioNotFound):
		response.NotFound(c, 23101, err.Error())
	case errors.Is(err, service.ErrExportEmpty):
		response.NotFound(c, 25101, err.Error())

	// ── 权限 ──
	case errors.Is(err, service.ErrAdminRequired):
		response.Forbidden(c, 10003, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		response.Forbidden(c, 20104, err.Error())

	// ── 生命周期 ──
	case errors.Is(err, service.ErrUnknownAction):
		response.BadRequest(c, 20102, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		response.BadRequest(c, 20103, err.Error())
	case errors.Is(err, service.ErrReasonRequired):
		response.BadRequest(c, 20105, err.Error())
	case errors.Is(err, service.ErrScheduleNotEditable):
		response.BadRequest(c, 20106, err.Error())
	case errors.Is(err, service.ErrNoCompatibleStudio):
		response.BadRequest(c, 21102, err.Error())

	// ── 拆分 ──
	case errors.Is(err, service.ErrScheduleSplitParent):
		response.BadRequest(c, 22101, err.Error())
	case errors.Is(err, service.ErrAlreadySplit):
		response.BadRequest(c, 22102, err.Error())
	case errors.Is(err, service.ErrSplitChild):
		response.BadRequest(c, 22103, err.Error())
	case errors.Is(err, service.ErrNotSplitParent):
		response.BadRequest(c, 22104, err.Error())

	// ── 并发 ──
	case errors.Is(err, service.ErrScheduleBusy):
		response.TooManyRequests(c, 20107, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 20108, err.Error(), nil)

	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/errors.go
