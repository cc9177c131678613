package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Course       CourseRepository
	Teacher      TeacherRepository
	Group        GroupRepository
	Room         RoomRepository
	TimeSlot     TimeSlotRepository
	Session      SessionRepository
	ChangeLog    SessionChangeLogRepository
	Availability AvailabilityRepository
	RoomClosure  RoomClosureRepository
	Tx           TxManager
}

// TxManager 事务入口：fn 中拿到的 Repository 全部绑定在同一事务上
type TxManager interface {
	Transaction(ctx context.Context, fn func(repo *Repository) error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Course:       NewCourseRepo(db),
		Teacher:      NewTeacherRepo(db),
		Group:        NewGroupRepo(db),
		Room:         NewRoomRepo(db),
		TimeSlot:     NewTimeSlotRepo(db),
		Session:      NewSessionRepo(db),
		ChangeLog:    NewSessionChangeLogRepo(db),
		Availability: NewAvailabilityRepo(db),
		RoomClosure:  NewRoomClosureRepo(db),
		Tx:           &gormTx{db: db},
	}
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) Transaction(ctx context.Context, fn func(repo *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// softDelete 软删除并记录删除人
func softDelete(db *gorm.DB, m interface{}, pk, id, deletedBy string) error {
	return db.Model(m).
		Where(pk+" = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
