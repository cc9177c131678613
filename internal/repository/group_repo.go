package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-planning/backend/internal/model"
)

// GroupFilter 班组列表过滤条件
type GroupFilter struct {
	Program  string
	Semester int
	ParentID string
}

// GroupRepository 班组数据访问接口
type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	GetByID(ctx context.Context, id string) (*model.Group, error)
	GetByName(ctx context.Context, name string) (*model.Group, error)
	List(ctx context.Context, filter GroupFilter, offset, limit int) ([]model.Group, int64, error)
	ListAll(ctx context.Context) ([]model.Group, error)
	ListChildren(ctx context.Context, parentID string) ([]model.Group, error)
	Update(ctx context.Context, group *model.Group) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type groupRepo struct {
	db *gorm.DB
}

// NewGroupRepo 创建 GroupRepository 实例
func NewGroupRepo(db *gorm.DB) GroupRepository {
	return &groupRepo{db: db}
}

func (r *groupRepo) Create(ctx context.Context, group *model.Group) error {
	return r.db.WithContext(ctx).Omit("Parent").Create(group).Error
}

func (r *groupRepo) GetByID(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).
		Preload("Parent").
		Where("group_id = ?", id).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepo) GetByName(ctx context.Context, name string) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepo) List(ctx context.Context, filter GroupFilter, offset, limit int) ([]model.Group, int64, error) {
	var groups []model.Group
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Group{})
	if filter.Program != "" {
		db = db.Where("program = ?", filter.Program)
	}
	if filter.Semester > 0 {
		db = db.Where("semester = ?", filter.Semester)
	}
	if filter.ParentID != "" {
		db = db.Where("parent_id = ?", filter.ParentID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Parent").
		Offset(offset).Limit(limit).
		Order("name ASC").
		Find(&groups).Error
	return groups, total, err
}

// ListAll 全部班组（用于层级关系计算，数量有限）
func (r *groupRepo) ListAll(ctx context.Context) ([]model.Group, error) {
	var groups []model.Group
	err := r.db.WithContext(ctx).Order("name ASC").Find(&groups).Error
	return groups, err
}

func (r *groupRepo) ListChildren(ctx context.Context, parentID string) ([]model.Group, error) {
	var groups []model.Group
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("name ASC").
		Find(&groups).Error
	return groups, err
}

func (r *groupRepo) Update(ctx context.Context, group *model.Group) error {
	return r.db.WithContext(ctx).Omit("Parent").Save(group).Error
}

func (r *groupRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return softDelete(r.db.WithContext(ctx), &model.Group{}, "group_id", id, deletedBy)
}
