package dto

// ── 摄影棚模块 DTO ──

// StudioListRequest 摄影棚列表查询参数
type StudioListRequest struct {
	ShootingType    string `form:"shooting_type"    binding:"omitempty,max=50"`
	IncludeInactive bool   `form:"include_inactive"`
}

// StudioShootingTypeResponse 摄影棚支持的拍摄类型
type StudioShootingTypeResponse struct {
	ShootingType string `json:"shooting_type"`
	IsPrimary    bool   `json:"is_primary"`
}

// StudioResponse 摄影棚响应
type StudioResponse struct {
	ID            string                       `json:"id"`
	Name          string                       `json:"name"`
	SortOrder     int                          `json:"sort_order"`
	IsActive      bool                         `json:"is_active"`
	ShootingTypes []StudioShootingTypeResponse `json:"shooting_types"`
}
