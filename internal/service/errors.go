package service

import (
	"fmt"
	"strings"

	"campus-planning/backend/internal/dto"
)

// ── 结构化业务错误 ──
//
// ValidationError / ReferentialIntegrityError / ConflictError 均直接返回给调用方，
// 不自动重试，返回时不留下部分写入。

// FieldError 单个字段的校验失败
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 实体局部约束不满足
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "参数校验失败: " + strings.Join(parts, "; ")
}

// invalidField 构造单字段校验错误
func invalidField(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// ReferentialIntegrityError 引用了不存在的实体，或删除仍被引用的实体
type ReferentialIntegrityError struct {
	Entity     string
	ID         string
	Reason     string
	SessionIDs []string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("引用完整性错误: %s %s %s", e.Entity, e.ID, e.Reason)
}

// Info 转为响应体
func (e *ReferentialIntegrityError) Info() dto.ReferenceInfo {
	return dto.ReferenceInfo{Entity: e.Entity, ID: e.ID, Reason: e.Reason, SessionIDs: e.SessionIDs}
}

func missingRef(entity, id string) *ReferentialIntegrityError {
	return &ReferentialIntegrityError{Entity: entity, ID: id, Reason: "不存在"}
}

// ConflictError 候选课次违反落位规则，携带完整冲突报告
type ConflictError struct {
	Report *dto.ConflictReport
}

func (e *ConflictError) Error() string {
	rules := make([]string, 0, len(e.Report.Conflicts))
	for _, c := range e.Report.Conflicts {
		rules = append(rules, c.Rule)
	}
	return "排课冲突: " + strings.Join(rules, ", ")
}
