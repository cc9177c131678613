package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-planning/backend/internal/model"
	pkgerrors "campus-planning/backend/pkg/errors"
)

// SessionFilter 课次查询条件，零值字段不参与过滤
type SessionFilter struct {
	Week      int
	WeekFrom  int
	WeekTo    int
	Day       int
	Slot      int
	CourseID  string
	TeacherID string
	RoomID    string
	GroupIDs  []string
	Status    model.SessionStatus
	// ActiveOnly 排除已取消课次（取消的课次不占格子）
	ActiveOnly bool
}

// SessionRepository 课次数据访问接口
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	List(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	ListPage(ctx context.Context, filter SessionFilter, offset, limit int) ([]model.Session, int64, error)
	Update(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, id string) error
	DeleteByIDs(ctx context.Context, ids []string) error
}

// SessionChangeLogRepository 课次变更日志数据访问接口
type SessionChangeLogRepository interface {
	Create(ctx context.Context, log *model.SessionChangeLog) error
	List(ctx context.Context, sessionID string, offset, limit int) ([]model.SessionChangeLog, int64, error)
}

// ── Session Repository 实现 ──

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).
		Omit("Course", "Teacher", "Group", "Room").
		Create(session).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.preload(r.db.WithContext(ctx)).
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) List(ctx context.Context, filter SessionFilter) ([]model.Session, error) {
	var sessions []model.Session
	err := r.preload(applySessionFilter(r.db.WithContext(ctx), filter)).
		Order("week ASC, day ASC, slot ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ListPage(ctx context.Context, filter SessionFilter, offset, limit int) ([]model.Session, int64, error) {
	var sessions []model.Session
	var total int64

	db := applySessionFilter(r.db.WithContext(ctx).Model(&model.Session{}), filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.preload(db).
		Offset(offset).Limit(limit).
		Order("week ASC, day ASC, slot ASC").
		Find(&sessions).Error
	return sessions, total, err
}

// Update 移动 / 状态变更，带版本号校验
func (r *sessionRepo) Update(ctx context.Context, session *model.Session) error {
	oldVersion := session.Version
	result := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("session_id = ? AND version = ?", session.SessionID, oldVersion).
		Updates(map[string]interface{}{
			"room_id":    session.RoomID,
			"week":       session.Week,
			"day":        session.Day,
			"slot":       session.Slot,
			"status":     session.Status,
			"updated_by": session.UpdatedBy,
			"updated_at": gorm.Expr("NOW()"),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	session.Version = oldVersion + 1
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", id).
		Delete(&model.Session{}).Error
}

func (r *sessionRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("session_id IN ?", ids).
		Delete(&model.Session{}).Error
}

// preload 关联实体包含已软删除的记录，历史课次仍可显示名称
func (r *sessionRepo) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Course", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Preload("Teacher", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Preload("Group", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Preload("Room", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() })
}

func applySessionFilter(db *gorm.DB, f SessionFilter) *gorm.DB {
	if f.Week > 0 {
		db = db.Where("week = ?", f.Week)
	}
	if f.WeekFrom > 0 {
		db = db.Where("week >= ?", f.WeekFrom)
	}
	if f.WeekTo > 0 {
		db = db.Where("week <= ?", f.WeekTo)
	}
	if f.Day > 0 {
		db = db.Where("day = ?", f.Day)
	}
	if f.Slot > 0 {
		db = db.Where("slot = ?", f.Slot)
	}
	if f.CourseID != "" {
		db = db.Where("course_id = ?", f.CourseID)
	}
	if f.TeacherID != "" {
		db = db.Where("teacher_id = ?", f.TeacherID)
	}
	if f.RoomID != "" {
		db = db.Where("room_id = ?", f.RoomID)
	}
	if len(f.GroupIDs) > 0 {
		db = db.Where("group_id IN ?", f.GroupIDs)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.ActiveOnly {
		db = db.Where("status <> ?", model.SessionCancelled)
	}
	return db
}

// ── SessionChangeLog Repository 实现 ──

type sessionChangeLogRepo struct {
	db *gorm.DB
}

// NewSessionChangeLogRepo 创建 SessionChangeLogRepository 实例
func NewSessionChangeLogRepo(db *gorm.DB) SessionChangeLogRepository {
	return &sessionChangeLogRepo{db: db}
}

func (r *sessionChangeLogRepo) Create(ctx context.Context, log *model.SessionChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *sessionChangeLogRepo) List(ctx context.Context, sessionID string, offset, limit int) ([]model.SessionChangeLog, int64, error) {
	var logs []model.SessionChangeLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.SessionChangeLog{})
	if sessionID != "" {
		db = db.Where("session_id = ?", sessionID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, total, err
}
