package handler

import (
	"github.com/gin-gonic/gin"

	"studio-schedule/backend/internal/service"
	"studio-schedule/backend/pkg/response"
)

// PolicyHandler 时间策略查询 HTTP 处理器
type PolicyHandler struct {
	policySvc service.PolicyService
	clock     *RequestClock
}

// NewPolicyHandler 创建 PolicyHandler
func NewPolicyHandler(policySvc service.PolicyService, clock *RequestClock) *PolicyHandler {
	return &PolicyHandler{policySvc: policySvc, clock: clock}
}

// Window 当前登记窗口与修改截止提示
// GET /api/v1/policy/window
func (h *PolicyHandler) Window(c *gin.Context) {
	now, ok := h.clock.Now(c)
	if !ok {
		return
	}
	response.OK(c, h.policySvc.Window(now))
}

// ForSchedule 单个排程的修改策略与可执行动作
// GET /api/v1/schedules/:id/policy
func (h *PolicyHandler) ForSchedule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 20001, "排程ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	now, ok := h.clock.Now(c)
	if !ok {
		return
	}

	result, err := h.policySvc.ForSchedule(c.Request.Context(), id, actor, now)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
