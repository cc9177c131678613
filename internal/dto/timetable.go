package dto

// ── 周视图 DTO ──

// WeekViewRequest 周视图过滤条件（至多一个生效时每格至多一个课次）
type WeekViewRequest struct {
	GroupID   string `form:"group_id"   binding:"omitempty,uuid"`
	TeacherID string `form:"teacher_id" binding:"omitempty,uuid"`
	RoomID    string `form:"room_id"    binding:"omitempty,uuid"`
}

// WeekGrid 周课表网格：星期 × 时间段
type WeekGrid struct {
	Week      int       `json:"week"`
	StartDate string    `json:"start_date"` // 本周周一
	Slots     []SlotRef `json:"slots"`
	Days      []GridDay `json:"days"`
}

// SlotRef 时间段表头
type SlotRef struct {
	Slot      int    `json:"slot"`
	Label     string `json:"label"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// GridDay 某天的格子
type GridDay struct {
	Day   int        `json:"day"`
	Name  string     `json:"name"`
	Date  string     `json:"date"`
	Cells []GridCell `json:"cells"`
}

// GridCell 单个格子，Sessions 为空表示空闲
type GridCell struct {
	Slot     int           `json:"slot"`
	Sessions []GridSession `json:"sessions"`
}

// GridSession 格子内的课次摘要
type GridSession struct {
	ID          string `json:"id"`
	CourseCode  string `json:"course_code"`
	CourseName  string `json:"course_name"`
	Type        string `json:"type"`
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	GroupID     string `json:"group_id"`
	GroupName   string `json:"group_name"`
	RoomID      string `json:"room_id"`
	RoomName    string `json:"room_name"`
	Status      string `json:"status"`
}

// ── 导出 ──

// ExportRow 导出用的平铺行
type ExportRow struct {
	Week      int
	Day       int
	DayName   string
	Date      string
	Slot      int
	SlotLabel string
	StartTime string
	EndTime   string
	Session   GridSession
}

// ExportXLSXRequest Excel 导出参数（每周一个工作表）
type ExportXLSXRequest struct {
	WeekFrom  int    `form:"week_from"  binding:"required,min=1"`
	WeekTo    int    `form:"week_to"    binding:"omitempty,min=1"`
	GroupID   string `form:"group_id"   binding:"omitempty,uuid"`
	TeacherID string `form:"teacher_id" binding:"omitempty,uuid"`
	RoomID    string `form:"room_id"    binding:"omitempty,uuid"`
}

// ExportICSRequest 日历导出参数
type ExportICSRequest struct {
	Kind     string `form:"kind"      binding:"required,oneof=teacher group room"`
	ID       string `form:"id"        binding:"required,uuid"`
	WeekFrom int    `form:"week_from" binding:"required,min=1"`
	WeekTo   int    `form:"week_to"   binding:"omitempty,min=1"`
}
