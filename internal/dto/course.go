package dto

// ── 课程模块 DTO ──

// CourseLoadInput 分类型课时
type CourseLoadInput struct {
	Type  string `json:"type"  validate:"required,course_type"`
	Hours int    `json:"hours" validate:"gte=0,lte=1000"`
}

// CourseAssignmentInput 分类型负责教师
type CourseAssignmentInput struct {
	Type      string  `json:"type"       validate:"required,course_type"`
	TeacherID string  `json:"teacher_id" validate:"required,uuid"`
	GroupID   *string `json:"group_id"   validate:"omitempty,uuid"`
}

// CreateCourseRequest 创建课程请求
type CreateCourseRequest struct {
	Code        string                  `json:"code"         validate:"required,course_code"`
	Name        string                  `json:"name"         validate:"required,min=2,max=200"`
	Credits     int                     `json:"credits"      validate:"min=1,max=10"`
	Semester    int                     `json:"semester"     validate:"min=1,max=6"`
	Program     string                  `json:"program"      validate:"required,program"`
	TotalHours  int                     `json:"total_hours"  validate:"gte=0,lte=1000"`
	WeeklyHours int                     `json:"weekly_hours" validate:"gte=0,lte=60"`
	MinCapacity int                     `json:"min_capacity" validate:"gte=0"`
	Type        string                  `json:"type"         validate:"required,course_type"`
	Loads       []CourseLoadInput       `json:"loads"        validate:"omitempty,dive"`
	Assignments []CourseAssignmentInput `json:"assignments"  validate:"omitempty,dive"`
}

// UpdateCourseRequest 更新课程请求（nil 字段不修改；Loads/Assignments 非 nil 时整体替换）
type UpdateCourseRequest struct {
	Code        *string                  `json:"code"         validate:"omitempty,course_code"`
	Name        *string                  `json:"name"         validate:"omitempty,min=2,max=200"`
	Credits     *int                     `json:"credits"      validate:"omitempty,min=1,max=10"`
	Semester    *int                     `json:"semester"     validate:"omitempty,min=1,max=6"`
	Program     *string                  `json:"program"      validate:"omitempty,program"`
	TotalHours  *int                     `json:"total_hours"  validate:"omitempty,gte=0,lte=1000"`
	WeeklyHours *int                     `json:"weekly_hours" validate:"omitempty,gte=0,lte=60"`
	MinCapacity *int                     `json:"min_capacity" validate:"omitempty,gte=0"`
	Type        *string                  `json:"type"         validate:"omitempty,course_type"`
	Loads       *[]CourseLoadInput       `json:"loads"        validate:"omitempty,dive"`
	Assignments *[]CourseAssignmentInput `json:"assignments"  validate:"omitempty,dive"`
}

// CourseListRequest 课程列表查询参数
type CourseListRequest struct {
	Program  string `form:"program"`
	Semester int    `form:"semester" binding:"omitempty,min=1,max=6"`
	Type     string `form:"type"`
	Keyword  string `form:"keyword"`
	PaginationRequest
}

// CourseResponse 课程信息响应
type CourseResponse struct {
	ID          string                     `json:"id"`
	Code        string                     `json:"code"`
	Name        string                     `json:"name"`
	Credits     int                        `json:"credits"`
	Semester    int                        `json:"semester"`
	Program     string                     `json:"program"`
	TotalHours  int                        `json:"total_hours"`
	WeeklyHours int                        `json:"weekly_hours"`
	MinCapacity int                        `json:"min_capacity"`
	Type        string                     `json:"type"`
	Loads       []CourseLoadResponse       `json:"loads"`
	Assignments []CourseAssignmentResponse `json:"assignments"`
	CreatedAt   string                     `json:"created_at"`
	UpdatedAt   string                     `json:"updated_at"`
}

// CourseLoadResponse 分类型课时响应
type CourseLoadResponse struct {
	Type  string `json:"type"`
	Hours int    `json:"hours"`
}

// CourseAssignmentResponse 分类型负责教师响应
type CourseAssignmentResponse struct {
	Type      string        `json:"type"`
	Teacher   *TeacherBrief `json:"teacher"`
	GroupID   *string       `json:"group_id,omitempty"`
	GroupName string        `json:"group_name,omitempty"`
}

// CourseBrief 课程简要信息
type CourseBrief struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// CourseProgressResponse 课程排课进度：已排课时与计划课时对比
type CourseProgressResponse struct {
	Course CourseBrief          `json:"course"`
	Items  []CourseProgressItem `json:"items"`
}

// CourseProgressItem 单一教学形式的进度
type CourseProgressItem struct {
	Type           string  `json:"type"`
	PlannedHours   int     `json:"planned_hours"`
	ScheduledHours float64 `json:"scheduled_hours"`
	Sessions       int     `json:"sessions"`
}
