package dto

// ── 时间段目录 DTO ──

// CreateTimeSlotRequest 创建时间段请求
type CreateTimeSlotRequest struct {
	SlotIndex int    `json:"slot_index" validate:"min=1,max=20"`
	Label     string `json:"label"      validate:"required,min=1,max=50"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"` // "08:00"
	EndTime   string `json:"end_time"   validate:"required,datetime=15:04"` // "10:00"
}

// UpdateTimeSlotRequest 更新时间段请求
type UpdateTimeSlotRequest struct {
	Label     *string `json:"label"      validate:"omitempty,min=1,max=50"`
	StartTime *string `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime   *string `json:"end_time"   validate:"omitempty,datetime=15:04"`
	IsActive  *bool   `json:"is_active"`
}

// TimeSlotListRequest 时间段列表查询参数
type TimeSlotListRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

// TimeSlotResponse 时间段信息响应
type TimeSlotResponse struct {
	ID        string `json:"id"`
	SlotIndex int    `json:"slot_index"`
	Label     string `json:"label"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
