package dto

// ── 教室模块 DTO ──

// CreateRoomRequest 创建教室请求
type CreateRoomRequest struct {
	Name         string `json:"name"          validate:"required,min=1,max=100"`
	Capacity     int    `json:"capacity"      validate:"min=1,max=2000"`
	Type         string `json:"type"          validate:"required,room_type"`
	Building     string `json:"building"      validate:"omitempty,max=100"`
	Floor        int    `json:"floor"         validate:"gte=-5,lte=50"`
	HasComputers bool   `json:"has_computers"`
	HasProjector bool   `json:"has_projector"`
}

// UpdateRoomRequest 更新教室请求
type UpdateRoomRequest struct {
	Name         *string `json:"name"          validate:"omitempty,min=1,max=100"`
	Capacity     *int    `json:"capacity"      validate:"omitempty,min=1,max=2000"`
	Type         *string `json:"type"          validate:"omitempty,room_type"`
	Building     *string `json:"building"      validate:"omitempty,max=100"`
	Floor        *int    `json:"floor"         validate:"omitempty,gte=-5,lte=50"`
	HasComputers *bool   `json:"has_computers"`
	HasProjector *bool   `json:"has_projector"`
}

// RoomListRequest 教室列表查询参数
type RoomListRequest struct {
	Type        string `form:"type"`
	MinCapacity int    `form:"min_capacity" binding:"omitempty,min=1"`
	Building    string `form:"building"`
	PaginationRequest
}

// RoomResponse 教室信息响应
type RoomResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Capacity     int    `json:"capacity"`
	Type         string `json:"type"`
	Building     string `json:"building,omitempty"`
	Floor        int    `json:"floor"`
	HasComputers bool   `json:"has_computers"`
	HasProjector bool   `json:"has_projector"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// RoomBrief 教室简要信息
type RoomBrief struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Capacity int    `json:"capacity"`
}

// ── 教室临时关闭 ──

// CreateRoomClosureRequest 创建教室关闭请求（日期 YYYY-MM-DD，含首尾）
type CreateRoomClosureRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date"   validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason"     validate:"omitempty,max=500"`
}

// RoomClosureResponse 教室关闭响应
type RoomClosureResponse struct {
	ID            string `json:"id"`
	RoomID        string `json:"room_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Reason        string `json:"reason,omitempty"`
	AffectedCells int    `json:"affected_cells"`
	CreatedAt     string `json:"created_at"`
}
