package model

// Room 教室表 — 对应 rooms
type Room struct {
	RoomID       string   `gorm:"type:uuid;primaryKey"       json:"room_id"`
	Name         string   `gorm:"type:varchar(100);not null" json:"name"`
	Capacity     int      `gorm:"not null"                   json:"capacity"`
	Type         RoomType `gorm:"type:varchar(20);not null"  json:"type"`
	Building     string   `gorm:"type:varchar(100)"          json:"building,omitempty"`
	Floor        int      `gorm:"type:smallint;not null;default:0" json:"floor"`
	HasComputers bool     `gorm:"not null;default:false"     json:"has_computers"`
	HasProjector bool     `gorm:"not null;default:false"     json:"has_projector"`
	SoftDeleteModel
}

// TableName 指定表名
func (Room) TableName() string { return "rooms" }
