package dto

// ── 可用性登记 DTO ──

// CellRequest 单个格子坐标
type CellRequest struct {
	Week int `json:"week" form:"week" validate:"min=1"`
	Day  int `json:"day"  form:"day"  validate:"min=1"`
	Slot int `json:"slot" form:"slot" validate:"min=1,max=20"`
}

// SetRangeRequest 批量设置可用性：周区间 × 星期集合 × 时间段集合
// Days / Slots 为空表示全部
type SetRangeRequest struct {
	WeekFrom  int   `json:"week_from" validate:"min=1"`
	WeekTo    int   `json:"week_to"   validate:"min=1,gtefield=WeekFrom"`
	Days      []int `json:"days"      validate:"omitempty,dive,min=1"`
	Slots     []int `json:"slots"     validate:"omitempty,dive,min=1,max=20"`
	Available *bool `json:"available" validate:"required"`
}

// WeekQuery 按周查询
type WeekQuery struct {
	Week int `form:"week" binding:"required,min=1"`
}

// AvailabilityCellResponse 单格可用性
type AvailabilityCellResponse struct {
	Kind      string `json:"kind"`
	EntityID  string `json:"entity_id"`
	Week      int    `json:"week"`
	Day       int    `json:"day"`
	Slot      int    `json:"slot"`
	Available bool   `json:"available"`
}

// SetRangeResponse 批量设置结果
type SetRangeResponse struct {
	AffectedCells int `json:"affected_cells"`
}

// AvailabilityWeekResponse 实体某周的可用性位图（星期 × 时间段）
type AvailabilityWeekResponse struct {
	Kind     string            `json:"kind"`
	EntityID string            `json:"entity_id"`
	Week     int               `json:"week"`
	Policy   string            `json:"policy"`
	Days     []AvailabilityDay `json:"days"`
}

// AvailabilityDay 某天的时间段可用性
type AvailabilityDay struct {
	Day   int                `json:"day"`
	Name  string             `json:"name"`
	Slots []AvailabilitySlot `json:"slots"`
}

// AvailabilitySlot 时间段可用性
type AvailabilitySlot struct {
	Slot      int    `json:"slot"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
	Explicit  bool   `json:"explicit"` // 是否为显式登记（否则来自默认策略）
}

// ICSImportResponse 教师日历导入结果
type ICSImportResponse struct {
	Events        int      `json:"events"`                // 解析出的忙碌区间数
	AffectedCells int      `json:"affected_cells"`        // 置为不可用的格子数
	SkippedCells  int      `json:"skipped_cells"`         // 已有课次占用而跳过的格子数
	SessionIDs    []string `json:"session_ids,omitempty"` // 占用这些格子的课次
}
