package dto

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 50
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// DeleteRequest 删除实体时的级联选项
type DeleteRequest struct {
	Cascade bool `form:"cascade"`
}

// ReferenceInfo 引用完整性错误的详情
type ReferenceInfo struct {
	Entity     string   `json:"entity"`
	ID         string   `json:"id"`
	Reason     string   `json:"reason"`
	SessionIDs []string `json:"session_ids,omitempty"`
}
