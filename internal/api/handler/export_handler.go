package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"studio-schedule/backend/internal/dto"
	"studio-schedule/backend/internal/service"
	"studio-schedule/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportSchedules 导出排程明细 Excel
// GET /api/v1/export/schedules?date_from=&date_to=&studio_id=
func (h *ExportHandler) ExportSchedules(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 25001, "date_from 与 date_to 不能为空")
		return
	}

	buf, filename, err := h.exportSvc.ExportSchedules(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	writeAttachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// ExportCalendar 导出 iCalendar 日历
// GET /api/v1/export/calendar?date_from=&date_to=&studio_id=
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 25001, "date_from 与 date_to 不能为空")
		return
	}

	data, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	writeAttachment(c, filename, contentTypeICS, data)
}

// writeAttachment 设置下载响应头并写出文件
func writeAttachment(c *gin.Context, filename, contentType string, data []byte) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, data)
}
