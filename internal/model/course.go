package model

// Course 课程表 — 对应 courses
type Course struct {
	CourseID    string     `gorm:"type:uuid;primaryKey"       json:"course_id"`
	Code        string     `gorm:"type:varchar(7);not null"   json:"code"` // 如 INF101，唯一
	Name        string     `gorm:"type:varchar(200);not null" json:"name"`
	Credits     int        `gorm:"type:smallint;not null"     json:"credits"`  // 1-10
	Semester    int        `gorm:"type:smallint;not null"     json:"semester"` // 1-6
	Program     Program    `gorm:"type:varchar(4);not null"   json:"program"`
	TotalHours  int        `gorm:"not null"                   json:"total_hours"`
	WeeklyHours int        `gorm:"not null;default:0"         json:"weekly_hours"`
	MinCapacity int        `gorm:"not null;default:0"         json:"min_capacity"` // 所需最少座位数
	Type        CourseType `gorm:"type:varchar(2);not null"   json:"type"`
	SoftDeleteModel

	// 关联
	Loads       []CourseLoad       `gorm:"foreignKey:CourseID;references:CourseID" json:"loads,omitempty"`
	Assignments []CourseAssignment `gorm:"foreignKey:CourseID;references:CourseID" json:"assignments,omitempty"`
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// AllowsType 课次的教学形式必须是课程本身形式，或课程声明了课时的形式
func (c *Course) AllowsType(t CourseType) bool {
	if c.Type == t {
		return true
	}
	for _, l := range c.Loads {
		if l.Type == t {
			return true
		}
	}
	return false
}

// CourseLoad 课程分类型课时 — 对应 course_loads，(course_id, type) 唯一
type CourseLoad struct {
	CourseLoadID string     `gorm:"type:uuid;primaryKey"     json:"course_load_id"`
	CourseID     string     `gorm:"type:uuid;not null"       json:"course_id"`
	Type         CourseType `gorm:"type:varchar(2);not null" json:"type"`
	Hours        int        `gorm:"not null"                 json:"hours"`
}

// TableName 指定表名
func (CourseLoad) TableName() string { return "course_loads" }

// CourseAssignment 课程分类型负责教师 — 对应 course_assignments，(course_id, type) 唯一
type CourseAssignment struct {
	CourseAssignmentID string     `gorm:"type:uuid;primaryKey"     json:"course_assignment_id"`
	CourseID           string     `gorm:"type:uuid;not null"       json:"course_id"`
	Type               CourseType `gorm:"type:varchar(2);not null" json:"type"`
	TeacherID          string     `gorm:"type:uuid;not null"       json:"teacher_id"`
	GroupID            *string    `gorm:"type:uuid"                json:"group_id,omitempty"`

	// 关联
	Teacher *Teacher `gorm:"foreignKey:TeacherID;references:TeacherID" json:"teacher,omitempty"`
	Group   *Group   `gorm:"foreignKey:GroupID;references:GroupID"     json:"group,omitempty"`
}

// TableName 指定表名
func (CourseAssignment) TableName() string { return "course_assignments" }
