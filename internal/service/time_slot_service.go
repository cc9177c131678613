package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-planning/backend/config"
	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
)

// ── 时间段模块业务错误 ──

var (
	ErrTimeSlotNotFound   = errors.New("时间段不存在")
	ErrTimeSlotIndexTaken = errors.New("时间段序号已存在")
)

// TimeSlotService 时间段目录业务接口
type TimeSlotService interface {
	Create(ctx context.Context, req *dto.CreateTimeSlotRequest, callerID string) (*dto.TimeSlotResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TimeSlotResponse, error)
	List(ctx context.Context, req *dto.TimeSlotListRequest) ([]dto.TimeSlotResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateTimeSlotRequest, callerID string) (*dto.TimeSlotResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	// SeedDefaults 目录为空时按配置写入默认时间段
	SeedDefaults(ctx context.Context, slots []config.SlotConfig) error
}

type timeSlotService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTimeSlotService 创建 TimeSlotService 实例
func NewTimeSlotService(repo *repository.Repository, logger *zap.Logger) TimeSlotService {
	return &timeSlotService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *timeSlotService) Create(ctx context.Context, req *dto.CreateTimeSlotRequest, callerID string) (*dto.TimeSlotResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.TimeSlot.GetByIndex(ctx, req.SlotIndex); err == nil {
		return nil, ErrTimeSlotIndexTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	slot := &model.TimeSlot{
		TimeSlotID: uuid.NewString(),
		SlotIndex:  req.SlotIndex,
		Label:      req.Label,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		IsActive:   true,
	}
	if err := s.checkRange(ctx, slot); err != nil {
		return nil, err
	}
	slot.SetAudit(callerID)

	if err := s.repo.TimeSlot.Create(ctx, slot); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTimeSlotIndexTaken
		}
		s.logger.Error("创建时间段失败", zap.Error(err))
		return nil, err
	}

	return toTimeSlotResponse(slot), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *timeSlotService) GetByID(ctx context.Context, id string) (*dto.TimeSlotResponse, error) {
	slot, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTimeSlotResponse(slot), nil
}

// ────────────────────── List ──────────────────────

func (s *timeSlotService) List(ctx context.Context, req *dto.TimeSlotListRequest) ([]dto.TimeSlotResponse, error) {
	slots, err := s.repo.TimeSlot.List(ctx, req.IncludeInactive)
	if err != nil {
		s.logger.Error("列出时间段失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.TimeSlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, *toTimeSlotResponse(&slots[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *timeSlotService) Update(ctx context.Context, id string, req *dto.UpdateTimeSlotRequest, callerID string) (*dto.TimeSlotResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	slot, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		slot.Label = *req.Label
	}
	if req.StartTime != nil {
		slot.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		slot.EndTime = *req.EndTime
	}
	if req.IsActive != nil {
		slot.IsActive = *req.IsActive
	}
	if err := s.checkRange(ctx, slot); err != nil {
		return nil, err
	}
	slot.UpdatedBy = &callerID

	if err := s.repo.TimeSlot.Update(ctx, slot); err != nil {
		s.logger.Error("更新时间段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toTimeSlotResponse(slot), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 已被课次使用的时间段只能停用，不能删除
func (s *timeSlotService) Delete(ctx context.Context, id string, callerID string) error {
	slot, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	used, err := s.repo.Session.List(ctx, repository.SessionFilter{Slot: slot.SlotIndex})
	if err != nil {
		return err
	}
	if len(used) > 0 {
		return &ReferentialIntegrityError{
			Entity:     "time_slot",
			ID:         id,
			Reason:     "已被课次使用，请改为停用",
			SessionIDs: sessionIDs(used),
		}
	}

	if err := s.repo.TimeSlot.Delete(ctx, id); err != nil {
		s.logger.Error("删除时间段失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("删除时间段", zap.Int("slot_index", slot.SlotIndex), zap.String("operator", callerID))
	return nil
}

// ────────────────────── SeedDefaults ──────────────────────

func (s *timeSlotService) SeedDefaults(ctx context.Context, defaults []config.SlotConfig) error {
	n, err := s.repo.TimeSlot.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	slots := make([]model.TimeSlot, 0, len(defaults))
	for i, d := range defaults {
		label := d.Label
		if label == "" {
			label = fmt.Sprintf("%s-%s", d.Start, d.End)
		}
		slots = append(slots, model.TimeSlot{
			TimeSlotID: uuid.NewString(),
			SlotIndex:  i + 1,
			Label:      label,
			StartTime:  d.Start,
			EndTime:    d.End,
			IsActive:   true,
		})
	}
	if err := s.repo.TimeSlot.BatchCreate(ctx, slots); err != nil {
		return err
	}

	s.logger.Info("已写入默认时间段", zap.Int("count", len(slots)))
	return nil
}

// ── 内部辅助方法 ──

func (s *timeSlotService) get(ctx context.Context, id string) (*model.TimeSlot, error) {
	slot, err := s.repo.TimeSlot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimeSlotNotFound
		}
		s.logger.Error("查询时间段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return slot, nil
}

// checkRange 开始早于结束，且启用的时间段之间互不重叠
func (s *timeSlotService) checkRange(ctx context.Context, slot *model.TimeSlot) error {
	if slot.StartTime >= slot.EndTime {
		return invalidField("end_time", "结束时间必须晚于开始时间")
	}
	if !slot.IsActive {
		return nil
	}

	others, err := s.repo.TimeSlot.List(ctx, false)
	if err != nil {
		return err
	}
	for i := range others {
		o := &others[i]
		if o.TimeSlotID == slot.TimeSlotID {
			continue
		}
		if slot.Overlaps(o) {
			return invalidField("start_time", fmt.Sprintf("与时间段 %d (%s) 重叠", o.SlotIndex, o.Label))
		}
	}
	return nil
}

func toTimeSlotResponse(slot *model.TimeSlot) *dto.TimeSlotResponse {
	return &dto.TimeSlotResponse{
		ID:        slot.TimeSlotID,
		SlotIndex: slot.SlotIndex,
		Label:     slot.Label,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		IsActive:  slot.IsActive,
		CreatedAt: fmtTime(slot.CreatedAt),
		UpdatedAt: fmtTime(slot.UpdatedAt),
	}
}
