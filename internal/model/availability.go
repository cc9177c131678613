package model

import "time"

// AvailabilityCell 周可用性格子 — 对应 availability_cells
// 主键 (entity_kind, entity_id, week, day, slot)；未登记的格子按全局策略解释
type AvailabilityCell struct {
	EntityKind EntityKind `gorm:"type:varchar(10);primaryKey" json:"entity_kind"`
	EntityID   string     `gorm:"type:uuid;primaryKey"        json:"entity_id"`
	Week       int        `gorm:"type:smallint;primaryKey"    json:"week"`
	Day        Weekday    `gorm:"type:smallint;primaryKey"    json:"day"`
	Slot       int        `gorm:"type:smallint;primaryKey"    json:"slot"`
	Available  bool       `gorm:"not null"                    json:"available"`
	UpdatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy  *string    `gorm:"type:varchar(64)"            json:"updated_by,omitempty"`
}

// TableName 指定表名
func (AvailabilityCell) TableName() string { return "availability_cells" }

// RoomClosure 教室临时关闭 — 对应 room_closures
// 创建时把覆盖日期的全部格子置为不可用，删除时恢复
type RoomClosure struct {
	ClosureID string    `gorm:"type:uuid;primaryKey"   json:"closure_id"`
	RoomID    string    `gorm:"type:uuid;not null;index" json:"room_id"`
	StartDate time.Time `gorm:"type:date;not null"     json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null"     json:"end_date"`
	Reason    string    `gorm:"type:varchar(500)"      json:"reason,omitempty"`
	BaseModel
}

// TableName 指定表名
func (RoomClosure) TableName() string { return "room_closures" }
