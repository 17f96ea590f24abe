package dto

// ExportRequest 导出参数
type ExportRequest struct {
	DateRangeRequest
	StudioID string `form:"studio_id" binding:"omitempty,uuid"`
}
