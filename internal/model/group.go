package model

// Group 学生班组表 — 对应 student_groups
// 班组可挂在父班组下（如 G1-A 属于 G1），层级必须无环
type Group struct {
	GroupID   string  `gorm:"type:uuid;primaryKey"      json:"group_id"`
	Name      string  `gorm:"type:varchar(20);not null" json:"name"` // G1 / G1-A，唯一
	Semester  int     `gorm:"type:smallint;not null"    json:"semester"`
	Program   Program `gorm:"type:varchar(4);not null"  json:"program"`
	Headcount int     `gorm:"not null;default:0"        json:"headcount"`
	ParentID  *string `gorm:"type:uuid"                 json:"parent_id,omitempty"`
	SoftDeleteModel

	// 关联
	Parent *Group `gorm:"foreignKey:ParentID;references:GroupID" json:"parent,omitempty"`
}

// TableName 指定表名
func (Group) TableName() string { return "student_groups" }
