package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-planning/backend/internal/model"
)

// CourseFilter 课程列表过滤条件
type CourseFilter struct {
	Program  string
	Semester int
	Type     string
	Keyword  string
}

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	List(ctx context.Context, filter CourseFilter, offset, limit int) ([]model.Course, int64, error)
	Update(ctx context.Context, course *model.Course) error
	Delete(ctx context.Context, id string, deletedBy string) error
	// CountAssignmentRefs 统计引用某教师或某班组的负责教师记录（仅统计未删除课程）
	CountAssignmentRefs(ctx context.Context, teacherID, groupID string) (int64, error)
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

// Create 课程与课时、负责教师一并写入
func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Preload("Loads").
		Preload("Assignments").Preload("Assignments.Teacher").Preload("Assignments.Group").
		Where("course_id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) List(ctx context.Context, filter CourseFilter, offset, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Course{})
	if filter.Program != "" {
		db = db.Where("program = ?", filter.Program)
	}
	if filter.Semester > 0 {
		db = db.Where("semester = ?", filter.Semester)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		db = db.Where("code ILIKE ? OR name ILIKE ?", kw, kw)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Loads").
		Preload("Assignments").Preload("Assignments.Teacher").
		Offset(offset).Limit(limit).
		Order("code ASC").
		Find(&courses).Error
	return courses, total, err
}

// Update 更新课程主体，并整体替换课时与负责教师
func (r *courseRepo) Update(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Loads", "Assignments").Save(course).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", course.CourseID).Delete(&model.CourseLoad{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", course.CourseID).Delete(&model.CourseAssignment{}).Error; err != nil {
			return err
		}
		if len(course.Loads) > 0 {
			if err := tx.Create(&course.Loads).Error; err != nil {
				return err
			}
		}
		if len(course.Assignments) > 0 {
			if err := tx.Omit("Teacher", "Group").Create(&course.Assignments).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *courseRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return softDelete(r.db.WithContext(ctx), &model.Course{}, "course_id", id, deletedBy)
}

func (r *courseRepo) CountAssignmentRefs(ctx context.Context, teacherID, groupID string) (int64, error) {
	var n int64
	db := r.db.WithContext(ctx).
		Model(&model.CourseAssignment{}).
		Joins("JOIN courses ON courses.course_id = course_assignments.course_id AND courses.deleted_at IS NULL")
	if teacherID != "" {
		db = db.Where("course_assignments.teacher_id = ?", teacherID)
	}
	if groupID != "" {
		db = db.Where("course_assignments.group_id = ?", groupID)
	}
	err := db.Count(&n).Error
	return n, err
}
