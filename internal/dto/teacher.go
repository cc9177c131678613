package dto

// ── 教师模块 DTO ──

// CreateTeacherRequest 创建教师请求
type CreateTeacherRequest struct {
	Name      string `json:"name"      validate:"required,min=2,max=100"`
	Email     string `json:"email"     validate:"required,email,max=255"`
	Specialty string `json:"specialty" validate:"omitempty,max=100"`
}

// UpdateTeacherRequest 更新教师请求
type UpdateTeacherRequest struct {
	Name      *string `json:"name"      validate:"omitempty,min=2,max=100"`
	Email     *string `json:"email"     validate:"omitempty,email,max=255"`
	Specialty *string `json:"specialty" validate:"omitempty,max=100"`
}

// TeacherListRequest 教师列表查询参数
type TeacherListRequest struct {
	Keyword string `form:"keyword"`
	PaginationRequest
}

// TeacherResponse 教师信息响应
type TeacherResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Specialty string `json:"specialty,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// TeacherBrief 教师简要信息
type TeacherBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
