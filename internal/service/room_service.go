package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
)

// ── 教室模块业务错误 ──

var (
	ErrRoomNotFound = errors.New("教室不存在")
)

// RoomService 教室业务接口
type RoomService interface {
	Create(ctx context.Context, req *dto.CreateRoomRequest, callerID string) (*dto.RoomResponse, error)
	GetByID(ctx context.Context, id string) (*dto.RoomResponse, error)
	List(ctx context.Context, req *dto.RoomListRequest) ([]dto.RoomResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateRoomRequest, callerID string) (*dto.RoomResponse, error)
	Delete(ctx context.Context, id string, cascade bool, callerID string) error
}

type roomService struct {
	repo    *repository.Repository
	locker  Locker
	remover *entityRemover
	logger  *zap.Logger
}

// NewRoomService 创建 RoomService 实例
func NewRoomService(repo *repository.Repository, locker Locker, logger *zap.Logger) RoomService {
	return &roomService{
		repo:    repo,
		locker:  locker,
		remover: &entityRemover{repo: repo, locker: locker, logger: logger},
		logger:  logger,
	}
}

func (s *roomService) Create(ctx context.Context, req *dto.CreateRoomRequest, callerID string) (*dto.RoomResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	room := &model.Room{
		RoomID:       uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Capacity:     req.Capacity,
		Type:         model.RoomType(req.Type),
		Building:     req.Building,
		Floor:        req.Floor,
		HasComputers: req.HasComputers,
		HasProjector: req.HasProjector,
	}
	room.SetAudit(callerID)

	if err := s.repo.Room.Create(ctx, room); err != nil {
		s.logger.Error("创建教室失败", zap.Error(err))
		return nil, err
	}
	return toRoomResponse(room), nil
}

func (s *roomService) GetByID(ctx context.Context, id string) (*dto.RoomResponse, error) {
	room, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRoomResponse(room), nil
}

func (s *roomService) List(ctx context.Context, req *dto.RoomListRequest) ([]dto.RoomResponse, int64, error) {
	filter := repository.RoomFilter{Type: req.Type, MinCapacity: req.MinCapacity, Building: req.Building}
	rooms, total, err := s.repo.Room.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出教室失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.RoomResponse, 0, len(rooms))
	for i := range rooms {
		result = append(result, *toRoomResponse(&rooms[i]))
	}
	return result, total, nil
}

// Update 修改类型或容量时持有教室锁，已有课次放不下则整体拒绝（ConflictError）
func (s *roomService) Update(ctx context.Context, id string, req *dto.UpdateRoomRequest, callerID string) (*dto.RoomResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	placement := req.Type != nil || req.Capacity != nil
	if placement {
		unlock, err := s.locker.Lock(ctx, subjectLockKey("room", id))
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	room, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		room.Name = strings.TrimSpace(*req.Name)
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.Type != nil {
		room.Type = model.RoomType(*req.Type)
	}
	if req.Building != nil {
		room.Building = *req.Building
	}
	if req.Floor != nil {
		room.Floor = *req.Floor
	}
	if req.HasComputers != nil {
		room.HasComputers = *req.HasComputers
	}
	if req.HasProjector != nil {
		room.HasProjector = *req.HasProjector
	}
	room.UpdatedBy = &callerID

	if placement {
		if err := s.recheck(ctx, room); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Room.Update(ctx, room); err != nil {
		s.logger.Error("更新教室失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toRoomResponse(room), nil
}

func (s *roomService) Delete(ctx context.Context, id string, cascade bool, callerID string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}

	return s.remover.remove(ctx, "room", id, repository.SessionFilter{RoomID: id}, cascade, callerID,
		func(tx *repository.Repository) error {
			if err := tx.Availability.DeleteByEntity(ctx, model.EntityRoom, id); err != nil {
				return err
			}
			return tx.Room.Delete(ctx, id, callerID)
		})
}

func (s *roomService) get(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.repo.Room.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询教室失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return room, nil
}

// recheck 已排在该教室的课次在新类型 / 容量下仍须满足形式与容量规则
func (s *roomService) recheck(ctx context.Context, room *model.Room) error {
	sessions, err := s.repo.Session.List(ctx, repository.SessionFilter{RoomID: room.RoomID, ActiveOnly: true})
	if err != nil {
		s.logger.Error("查询教室课次失败", zap.String("id", room.RoomID), zap.Error(err))
		return err
	}
	return recheckSessions(sessions, func(ss *model.Session, hit func(string, string, ...string)) {
		if !ss.Type.AcceptsRoom(room.Type) {
			hit(dto.RuleRoomTypeMismatch, fmt.Sprintf("%s 类型教室不能承接已排的课次", room.Type))
		}
		if ss.Course != nil && ss.Group != nil && requiredSeats(ss.Course, ss.Group) > room.Capacity {
			hit(dto.RuleRoomCapacity, fmt.Sprintf("容量 %d 容纳不下已排的课次", room.Capacity))
		}
	})
}

func toRoomResponse(r *model.Room) *dto.RoomResponse {
	return &dto.RoomResponse{
		ID:           r.RoomID,
		Name:         r.Name,
		Capacity:     r.Capacity,
		Type:         string(r.Type),
		Building:     r.Building,
		Floor:        r.Floor,
		HasComputers: r.HasComputers,
		HasProjector: r.HasProjector,
		CreatedAt:    fmtTime(r.CreatedAt),
		UpdatedAt:    fmtTime(r.UpdatedAt),
	}
}
