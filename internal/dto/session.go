package dto

// ── 课次模块 DTO ──

// SessionCandidate 候选课次（创建与检查共用）
type SessionCandidate struct {
	CourseID  string `json:"course_id"  validate:"required,uuid"`
	TeacherID string `json:"teacher_id" validate:"required,uuid"`
	GroupID   string `json:"group_id"   validate:"required,uuid"`
	RoomID    string `json:"room_id"    validate:"required,uuid"`
	Type      string `json:"type"       validate:"required,course_type"`
	Week      int    `json:"week"       validate:"min=1"`
	Day       int    `json:"day"        validate:"min=1"`
	Slot      int    `json:"slot"       validate:"min=1,max=20"`
}

// MoveSessionRequest 移动课次请求；RoomID 为空表示保留原教室
type MoveSessionRequest struct {
	Week    int     `json:"week"    validate:"min=1"`
	Day     int     `json:"day"     validate:"min=1"`
	Slot    int     `json:"slot"    validate:"min=1,max=20"`
	RoomID  *string `json:"room_id" validate:"omitempty,uuid"`
	Version *int    `json:"version" validate:"omitempty,min=1"` // 客户端持有的版本，提供时做乐观锁校验
}

// UpdateSessionStatusRequest 课次状态变更请求
type UpdateSessionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=scheduled in_progress completed cancelled"`
}

// SessionListRequest 课次列表查询参数
type SessionListRequest struct {
	Week      int    `form:"week"       binding:"omitempty,min=1"`
	Day       int    `form:"day"        binding:"omitempty,min=1"`
	TeacherID string `form:"teacher_id" binding:"omitempty,uuid"`
	RoomID    string `form:"room_id"    binding:"omitempty,uuid"`
	GroupID   string `form:"group_id"   binding:"omitempty,uuid"`
	CourseID  string `form:"course_id"  binding:"omitempty,uuid"`
	Status    string `form:"status"     binding:"omitempty,oneof=scheduled in_progress completed cancelled"`
	PaginationRequest
}

// SessionResponse 课次信息响应
type SessionResponse struct {
	ID        string        `json:"id"`
	Course    *CourseBrief  `json:"course,omitempty"`
	Teacher   *TeacherBrief `json:"teacher,omitempty"`
	Group     *GroupBrief   `json:"group,omitempty"`
	Room      *RoomBrief    `json:"room,omitempty"`
	CourseID  string        `json:"course_id"`
	TeacherID string        `json:"teacher_id"`
	GroupID   string        `json:"group_id"`
	RoomID    string        `json:"room_id"`
	Type      string        `json:"type"`
	Week      int           `json:"week"`
	Day       int           `json:"day"`
	Slot      int           `json:"slot"`
	Status    string        `json:"status"`
	Version   int           `json:"version"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

// ChangeLogListRequest 变更日志查询参数
type ChangeLogListRequest struct {
	SessionID string `form:"session_id" binding:"omitempty,uuid"`
	PaginationRequest
}

// ChangeLogResponse 变更日志响应
type ChangeLogResponse struct {
	ID         string  `json:"id"`
	SessionID  string  `json:"session_id"`
	ChangeType string  `json:"change_type"`
	OldWeek    *int    `json:"old_week,omitempty"`
	OldDay     *int    `json:"old_day,omitempty"`
	OldSlot    *int    `json:"old_slot,omitempty"`
	OldRoomID  *string `json:"old_room_id,omitempty"`
	NewWeek    *int    `json:"new_week,omitempty"`
	NewDay     *int    `json:"new_day,omitempty"`
	NewSlot    *int    `json:"new_slot,omitempty"`
	NewRoomID  *string `json:"new_room_id,omitempty"`
	OldStatus  string  `json:"old_status,omitempty"`
	NewStatus  string  `json:"new_status,omitempty"`
	OperatorID string  `json:"operator_id"`
	CreatedAt  string  `json:"created_at"`
}

// ── 冲突报告 ──

// 冲突规则标识（按检测顺序）
const (
	RuleTeacherDoubleBooking = "teacher_double_booking"
	RuleRoomDoubleBooking    = "room_double_booking"
	RuleGroupDoubleBooking   = "group_double_booking"
	RuleRoomTypeMismatch     = "room_type_mismatch"
	RuleRoomCapacity         = "room_capacity_exceeded"
	RuleTeacherUnavailable   = "teacher_unavailable"
	RuleRoomUnavailable      = "room_unavailable"
)

// RuleTypeNotOffered 修改课程后，已有课次的教学形式不再被课程开设
const RuleTypeNotOffered = "type_not_offered"

// Conflict 单条违反的规则
type Conflict struct {
	Rule       string   `json:"rule"`
	Message    string   `json:"message"`
	SessionIDs []string `json:"session_ids,omitempty"` // 相撞的已有课次
}

// ConflictReport 冲突检测结果；Conflicts 为空表示可以落位
type ConflictReport struct {
	OK        bool       `json:"ok"`
	Conflicts []Conflict `json:"conflicts"`
}

// HasRule 报告中是否包含指定规则
func (r *ConflictReport) HasRule(rule string) bool {
	for _, c := range r.Conflicts {
		if c.Rule == rule {
			return true
		}
	}
	return false
}
