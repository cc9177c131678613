package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus-planning/backend/internal/model"
)

// AvailabilityRepository 周可用性格子数据访问接口
type AvailabilityRepository interface {
	Get(ctx context.Context, kind model.EntityKind, entityID string, week int, day model.Weekday, slot int) (*model.AvailabilityCell, error)
	ListByWeek(ctx context.Context, kind model.EntityKind, entityID string, week int) ([]model.AvailabilityCell, error)
	Upsert(ctx context.Context, cell *model.AvailabilityCell) error
	UpsertBatch(ctx context.Context, cells []model.AvailabilityCell) error
	DeleteByEntity(ctx context.Context, kind model.EntityKind, entityID string) error
}

type availabilityRepo struct {
	db *gorm.DB
}

// NewAvailabilityRepo 创建 AvailabilityRepository 实例
func NewAvailabilityRepo(db *gorm.DB) AvailabilityRepository {
	return &availabilityRepo{db: db}
}

func (r *availabilityRepo) Get(ctx context.Context, kind model.EntityKind, entityID string, week int, day model.Weekday, slot int) (*model.AvailabilityCell, error) {
	var cell model.AvailabilityCell
	err := r.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ? AND week = ? AND day = ? AND slot = ?", kind, entityID, week, day, slot).
		First(&cell).Error
	if err != nil {
		return nil, err
	}
	return &cell, nil
}

func (r *availabilityRepo) ListByWeek(ctx context.Context, kind model.EntityKind, entityID string, week int) ([]model.AvailabilityCell, error) {
	var cells []model.AvailabilityCell
	err := r.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ? AND week = ?", kind, entityID, week).
		Order("day ASC, slot ASC").
		Find(&cells).Error
	return cells, err
}

func (r *availabilityRepo) Upsert(ctx context.Context, cell *model.AvailabilityCell) error {
	return r.db.WithContext(ctx).
		Clauses(upsertCellClause()).
		Create(cell).Error
}

// UpsertBatch 分批写入，单批 500 格
func (r *availabilityRepo) UpsertBatch(ctx context.Context, cells []model.AvailabilityCell) error {
	if len(cells) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(upsertCellClause()).
		CreateInBatches(&cells, 500).Error
}

func (r *availabilityRepo) DeleteByEntity(ctx context.Context, kind model.EntityKind, entityID string) error {
	return r.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ?", kind, entityID).
		Delete(&model.AvailabilityCell{}).Error
}

func upsertCellClause() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{
			{Name: "entity_kind"}, {Name: "entity_id"}, {Name: "week"}, {Name: "day"}, {Name: "slot"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"available", "updated_at", "updated_by"}),
	}
}
