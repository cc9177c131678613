package model

import "time"

// Session 课次表 — 对应 sessions
// 坐标为 (week, day, slot)，day 1=周一，slot 对应 time_slots.slot_index
type Session struct {
	SessionID string        `gorm:"type:uuid;primaryKey"                          json:"session_id"`
	CourseID  string        `gorm:"type:uuid;not null"                            json:"course_id"`
	TeacherID string        `gorm:"type:uuid;not null"                            json:"teacher_id"`
	GroupID   string        `gorm:"type:uuid;not null"                            json:"group_id"`
	RoomID    string        `gorm:"type:uuid;not null"                            json:"room_id"`
	Type      CourseType    `gorm:"type:varchar(2);not null"                      json:"type"`
	Week      int           `gorm:"type:smallint;not null"                        json:"week"`
	Day       Weekday       `gorm:"type:smallint;not null"                        json:"day"`
	Slot      int           `gorm:"type:smallint;not null"                        json:"slot"`
	Status    SessionStatus `gorm:"type:varchar(20);not null;default:'scheduled'" json:"status"`
	VersionedModel

	// 关联
	Course  *Course  `gorm:"foreignKey:CourseID;references:CourseID"   json:"course,omitempty"`
	Teacher *Teacher `gorm:"foreignKey:TeacherID;references:TeacherID" json:"teacher,omitempty"`
	Group   *Group   `gorm:"foreignKey:GroupID;references:GroupID"     json:"group,omitempty"`
	Room    *Room    `gorm:"foreignKey:RoomID;references:RoomID"       json:"room,omitempty"`
}

// TableName 指定表名
func (Session) TableName() string { return "sessions" }

// SameCell 是否与给定坐标处于同一格
func (s *Session) SameCell(week int, day Weekday, slot int) bool {
	return s.Week == week && s.Day == day && s.Slot == slot
}

// 变更类型
const (
	ChangeCreate = "create"
	ChangeMove   = "move"
	ChangeRemove = "remove"
	ChangeStatus = "status"
)

// SessionChangeLog 课次变更记录表 — 对应 session_change_logs（纯审计日志）
// 课次物理删除后日志仍保留，因此 session_id 不设外键
type SessionChangeLog struct {
	ChangeLogID string         `gorm:"type:uuid;primaryKey"               json:"change_log_id"`
	SessionID   string         `gorm:"type:uuid;not null;index"           json:"session_id"`
	ChangeType  string         `gorm:"type:varchar(20);not null"          json:"change_type"` // create | move | remove | status
	OldWeek     *int           `gorm:"type:smallint"                      json:"old_week,omitempty"`
	OldDay      *int           `gorm:"type:smallint"                      json:"old_day,omitempty"`
	OldSlot     *int           `gorm:"type:smallint"                      json:"old_slot,omitempty"`
	OldRoomID   *string        `gorm:"type:uuid"                          json:"old_room_id,omitempty"`
	NewWeek     *int           `gorm:"type:smallint"                      json:"new_week,omitempty"`
	NewDay      *int           `gorm:"type:smallint"                      json:"new_day,omitempty"`
	NewSlot     *int           `gorm:"type:smallint"                      json:"new_slot,omitempty"`
	NewRoomID   *string        `gorm:"type:uuid"                          json:"new_room_id,omitempty"`
	OldStatus   *SessionStatus `gorm:"type:varchar(20)"                   json:"old_status,omitempty"`
	NewStatus   *SessionStatus `gorm:"type:varchar(20)"                   json:"new_status,omitempty"`
	OperatorID  string         `gorm:"type:varchar(64);not null"          json:"operator_id"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (SessionChangeLog) TableName() string { return "session_change_logs" }
