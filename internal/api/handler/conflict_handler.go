package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"studio-schedule/backend/internal/dto"
	"studio-schedule/backend/internal/service"
	"studio-schedule/backend/pkg/response"
)

// ConflictHandler 冲突检测 HTTP 处理器
type ConflictHandler struct {
	conflictSvc service.ConflictService
}

// NewConflictHandler 创建 ConflictHandler
func NewConflictHandler(conflictSvc service.ConflictService) *ConflictHandler {
	return &ConflictHandler{conflictSvc: conflictSvc}
}

// Check 检测候选时段
// POST /api/v1/conflicts/check
// 全部棚被占用属于正常查询结果：返回 200 且 available=false，附带替代时段
func (h *ConflictHandler) Check(c *gin.Context) {
	var req dto.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21001, "参数校验失败")
		return
	}

	result, err := h.conflictSvc.Check(c.Request.Context(), &req)
	if err != nil {
		var conflict *service.ConflictError
		if result != nil && errors.As(err, &conflict) {
			response.OK(c, result)
			return
		}
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
