package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
)

// ── 教师模块业务错误 ──

var (
	ErrTeacherNotFound   = errors.New("教师不存在")
	ErrTeacherEmailTaken = errors.New("该邮箱已被其他教师使用")
)

// TeacherService 教师业务接口
type TeacherService interface {
	Create(ctx context.Context, req *dto.CreateTeacherRequest, callerID string) (*dto.TeacherResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TeacherResponse, error)
	List(ctx context.Context, req *dto.TeacherListRequest) ([]dto.TeacherResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateTeacherRequest, callerID string) (*dto.TeacherResponse, error)
	Delete(ctx context.Context, id string, cascade bool, callerID string) error
}

type teacherService struct {
	repo    *repository.Repository
	remover *entityRemover
	logger  *zap.Logger
}

// NewTeacherService 创建 TeacherService 实例
func NewTeacherService(repo *repository.Repository, locker Locker, logger *zap.Logger) TeacherService {
	return &teacherService{
		repo:    repo,
		remover: &entityRemover{repo: repo, locker: locker, logger: logger},
		logger:  logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *teacherService) Create(ctx context.Context, req *dto.CreateTeacherRequest, callerID string) (*dto.TeacherResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(req.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	teacher := &model.Teacher{
		TeacherID: uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Specialty: req.Specialty,
	}
	teacher.SetAudit(callerID)

	if err := s.repo.Teacher.Create(ctx, teacher); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTeacherEmailTaken
		}
		s.logger.Error("创建教师失败", zap.Error(err))
		return nil, err
	}

	return toTeacherResponse(teacher), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *teacherService) GetByID(ctx context.Context, id string) (*dto.TeacherResponse, error) {
	teacher, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTeacherResponse(teacher), nil
}

// ────────────────────── List ──────────────────────

func (s *teacherService) List(ctx context.Context, req *dto.TeacherListRequest) ([]dto.TeacherResponse, int64, error) {
	teachers, total, err := s.repo.Teacher.List(ctx, req.Keyword, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出教师失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.TeacherResponse, 0, len(teachers))
	for i := range teachers {
		result = append(result, *toTeacherResponse(&teachers[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *teacherService) Update(ctx context.Context, id string, req *dto.UpdateTeacherRequest, callerID string) (*dto.TeacherResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	teacher, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		teacher.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !strings.EqualFold(email, teacher.Email) {
			if err := s.ensureEmailFree(ctx, email, id); err != nil {
				return nil, err
			}
		}
		teacher.Email = email
	}
	if req.Specialty != nil {
		teacher.Specialty = *req.Specialty
	}
	teacher.UpdatedBy = &callerID

	if err := s.repo.Teacher.Update(ctx, teacher); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTeacherEmailTaken
		}
		s.logger.Error("更新教师失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toTeacherResponse(teacher), nil
}

// ────────────────────── Delete ──────────────────────

func (s *teacherService) Delete(ctx context.Context, id string, cascade bool, callerID string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}

	n, err := s.repo.Course.CountAssignmentRefs(ctx, id, "")
	if err != nil {
		s.logger.Error("查询课程负责人引用失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if n > 0 {
		return &ReferentialIntegrityError{Entity: "teacher", ID: id, Reason: "仍是课程负责教师"}
	}

	return s.remover.remove(ctx, "teacher", id, repository.SessionFilter{TeacherID: id}, cascade, callerID,
		func(tx *repository.Repository) error {
			if err := tx.Availability.DeleteByEntity(ctx, model.EntityTeacher, id); err != nil {
				return err
			}
			return tx.Teacher.Delete(ctx, id, callerID)
		})
}

// ── 内部辅助方法 ──

func (s *teacherService) get(ctx context.Context, id string) (*model.Teacher, error) {
	teacher, err := s.repo.Teacher.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		s.logger.Error("查询教师失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return teacher, nil
}

func (s *teacherService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.Teacher.GetByEmail(ctx, email)
	if err == nil && existing.TeacherID != selfID {
		return ErrTeacherEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询教师邮箱失败", zap.Error(err))
		return err
	}
	return nil
}

func toTeacherResponse(t *model.Teacher) *dto.TeacherResponse {
	return &dto.TeacherResponse{
		ID:        t.TeacherID,
		Name:      t.Name,
		Email:     t.Email,
		Specialty: t.Specialty,
		CreatedAt: fmtTime(t.CreatedAt),
		UpdatedAt: fmtTime(t.UpdatedAt),
	}
}
