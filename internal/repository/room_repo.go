package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"campus-planning/backend/internal/model"
)

// RoomFilter 教室列表过滤条件
type RoomFilter struct {
	Type        string
	MinCapacity int
	Building    string
}

// RoomRepository 教室数据访问接口
type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	List(ctx context.Context, filter RoomFilter, offset, limit int) ([]model.Room, int64, error)
	Update(ctx context.Context, room *model.Room) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

// RoomClosureRepository 教室临时关闭数据访问接口
type RoomClosureRepository interface {
	Create(ctx context.Context, closure *model.RoomClosure) error
	GetByID(ctx context.Context, id string) (*model.RoomClosure, error)
	ListByRoom(ctx context.Context, roomID string) ([]model.RoomClosure, error)
	// ListOverlapping 与 [start, end] 有交集的关闭记录
	ListOverlapping(ctx context.Context, roomID string, start, end time.Time) ([]model.RoomClosure, error)
	Delete(ctx context.Context, id string) error
}

// ── Room Repository 实现 ──

type roomRepo struct {
	db *gorm.DB
}

// NewRoomRepo 创建 RoomRepository 实例
func NewRoomRepo(db *gorm.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Where("room_id = ?", id).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) List(ctx context.Context, filter RoomFilter, offset, limit int) ([]model.Room, int64, error) {
	var rooms []model.Room
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Room{})
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.MinCapacity > 0 {
		db = db.Where("capacity >= ?", filter.MinCapacity)
	}
	if filter.Building != "" {
		db = db.Where("building = ?", filter.Building)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("building ASC, name ASC").
		Find(&rooms).Error
	return rooms, total, err
}

func (r *roomRepo) Update(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *roomRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return softDelete(r.db.WithContext(ctx), &model.Room{}, "room_id", id, deletedBy)
}

// ── RoomClosure Repository 实现 ──

type roomClosureRepo struct {
	db *gorm.DB
}

// NewRoomClosureRepo 创建 RoomClosureRepository 实例
func NewRoomClosureRepo(db *gorm.DB) RoomClosureRepository {
	return &roomClosureRepo{db: db}
}

func (r *roomClosureRepo) Create(ctx context.Context, closure *model.RoomClosure) error {
	return r.db.WithContext(ctx).Create(closure).Error
}

func (r *roomClosureRepo) GetByID(ctx context.Context, id string) (*model.RoomClosure, error) {
	var closure model.RoomClosure
	err := r.db.WithContext(ctx).
		Where("closure_id = ?", id).
		First(&closure).Error
	if err != nil {
		return nil, err
	}
	return &closure, nil
}

func (r *roomClosureRepo) ListByRoom(ctx context.Context, roomID string) ([]model.RoomClosure, error) {
	var closures []model.RoomClosure
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("start_date ASC").
		Find(&closures).Error
	return closures, err
}

func (r *roomClosureRepo) ListOverlapping(ctx context.Context, roomID string, start, end time.Time) ([]model.RoomClosure, error) {
	var closures []model.RoomClosure
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND start_date <= ? AND end_date >= ?", roomID, end, start).
		Find(&closures).Error
	return closures, err
}

func (r *roomClosureRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("closure_id = ?", id).
		Delete(&model.RoomClosure{}).Error
}
