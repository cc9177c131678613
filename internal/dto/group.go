package dto

// ── 班组模块 DTO ──

// CreateGroupRequest 创建班组请求
type CreateGroupRequest struct {
	Name      string  `json:"name"      validate:"required,group_name"`
	Semester  int     `json:"semester"  validate:"min=1,max=6"`
	Program   string  `json:"program"   validate:"required,program"`
	Headcount int     `json:"headcount" validate:"gte=0,lte=2000"`
	ParentID  *string `json:"parent_id" validate:"omitempty,uuid"`
}

// UpdateGroupRequest 更新班组请求
// ClearParent 为 true 时把班组移到顶层
type UpdateGroupRequest struct {
	Name        *string `json:"name"         validate:"omitempty,group_name"`
	Semester    *int    `json:"semester"     validate:"omitempty,min=1,max=6"`
	Program     *string `json:"program"      validate:"omitempty,program"`
	Headcount   *int    `json:"headcount"    validate:"omitempty,gte=0,lte=2000"`
	ParentID    *string `json:"parent_id"    validate:"omitempty,uuid"`
	ClearParent bool    `json:"clear_parent"`
}

// GroupListRequest 班组列表查询参数
type GroupListRequest struct {
	Program  string `form:"program"`
	Semester int    `form:"semester"  binding:"omitempty,min=1,max=6"`
	ParentID string `form:"parent_id" binding:"omitempty,uuid"`
	PaginationRequest
}

// GroupResponse 班组信息响应
type GroupResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Semester  int         `json:"semester"`
	Program   string      `json:"program"`
	Headcount int         `json:"headcount"`
	Parent    *GroupBrief `json:"parent,omitempty"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

// GroupBrief 班组简要信息
type GroupBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
