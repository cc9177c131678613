package model

// TimeSlot 每日时间段目录 — 对应 time_slots
// SlotIndex 为课次坐标中的 slot，周一至周六共用同一目录
type TimeSlot struct {
	TimeSlotID string `gorm:"type:uuid;primaryKey"              json:"time_slot_id"`
	SlotIndex  int    `gorm:"type:smallint;not null;uniqueIndex" json:"slot_index"`
	Label      string `gorm:"type:varchar(50);not null"         json:"label"`
	StartTime  string `gorm:"type:varchar(5);not null"          json:"start_time"` // HH:MM
	EndTime    string `gorm:"type:varchar(5);not null"          json:"end_time"`
	IsActive   bool   `gorm:"not null;default:true"             json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (TimeSlot) TableName() string { return "time_slots" }

// Overlaps 两个时间段是否重叠（HH:MM 字符串可直接比较）
func (t *TimeSlot) Overlaps(other *TimeSlot) bool {
	return t.StartTime < other.EndTime && other.StartTime < t.EndTime
}

// DurationMinutes 时间段时长（分钟）
func (t *TimeSlot) DurationMinutes() int {
	return clockMinutes(t.EndTime) - clockMinutes(t.StartTime)
}

func clockMinutes(s string) int {
	if len(s) != 5 {
		return 0
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h*60 + m
}
