package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound  = errors.New("课程不存在")
	ErrCourseCodeTaken = errors.New("课程编号已存在")
)

// CourseService 课程业务接口
type CourseService interface {
	Create(ctx context.Context, req *dto.CreateCourseRequest, callerID string) (*dto.CourseResponse, error)
	GetByID(ctx context.Context, id string) (*dto.CourseResponse, error)
	List(ctx context.Context, req *dto.CourseListRequest) ([]dto.CourseResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateCourseRequest, callerID string) (*dto.CourseResponse, error)
	Delete(ctx context.Context, id string, cascade bool, callerID string) error
	// Progress 各教学形式计划课时与已排课时对比
	Progress(ctx context.Context, id string) (*dto.CourseProgressResponse, error)
}

type courseService struct {
	repo    *repository.Repository
	locker  Locker
	remover *entityRemover
	logger  *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, locker Locker, logger *zap.Logger) CourseService {
	return &courseService{
		repo:    repo,
		locker:  locker,
		remover: &entityRemover{repo: repo, locker: locker, logger: logger},
		logger:  logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *courseService) Create(ctx context.Context, req *dto.CreateCourseRequest, callerID string) (*dto.CourseResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, req.Code, ""); err != nil {
		return nil, err
	}

	course := &model.Course{
		CourseID:    uuid.NewString(),
		Code:        req.Code,
		Name:        req.Name,
		Credits:     req.Credits,
		Semester:    req.Semester,
		Program:     model.Program(req.Program),
		TotalHours:  req.TotalHours,
		WeeklyHours: req.WeeklyHours,
		MinCapacity: req.MinCapacity,
		Type:        model.CourseType(req.Type),
	}
	if err := s.applyChildren(ctx, course, req.Loads, req.Assignments); err != nil {
		return nil, err
	}
	course.SetAudit(callerID)

	if err := s.repo.Course.Create(ctx, course); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCourseCodeTaken
		}
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, course.CourseID)
}

// ────────────────────── GetByID ──────────────────────

func (s *courseService) GetByID(ctx context.Context, id string) (*dto.CourseResponse, error) {
	course, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCourseResponse(course), nil
}

// ────────────────────── List ──────────────────────

func (s *courseService) List(ctx context.Context, req *dto.CourseListRequest) ([]dto.CourseResponse, int64, error) {
	filter := repository.CourseFilter{
		Program:  req.Program,
		Semester: req.Semester,
		Type:     req.Type,
		Keyword:  req.Keyword,
	}
	courses, total, err := s.repo.Course.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出课程失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		result = append(result, *toCourseResponse(&courses[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

// Update 提供 loads / assignments 时整体替换
// 修改形式、课时构成或最小容量时持有课程锁，已有课次不再合规则整体拒绝
func (s *courseService) Update(ctx context.Context, id string, req *dto.UpdateCourseRequest, callerID string) (*dto.CourseResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	placement := req.Type != nil || req.Loads != nil || req.MinCapacity != nil
	if placement {
		unlock, err := s.locker.Lock(ctx, subjectLockKey("course", id))
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	course, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Code != nil && *req.Code != course.Code {
		if err := s.ensureCodeFree(ctx, *req.Code, id); err != nil {
			return nil, err
		}
		course.Code = *req.Code
	}
	if req.Name != nil {
		course.Name = *req.Name
	}
	if req.Credits != nil {
		course.Credits = *req.Credits
	}
	if req.Semester != nil {
		course.Semester = *req.Semester
	}
	if req.Program != nil {
		course.Program = model.Program(*req.Program)
	}
	if req.TotalHours != nil {
		course.TotalHours = *req.TotalHours
	}
	if req.WeeklyHours != nil {
		course.WeeklyHours = *req.WeeklyHours
	}
	if req.MinCapacity != nil {
		course.MinCapacity = *req.MinCapacity
	}
	if req.Type != nil {
		course.Type = model.CourseType(*req.Type)
	}

	loads := loadInputs(course.Loads)
	if req.Loads != nil {
		loads = *req.Loads
	}
	assignments := assignmentInputs(course.Assignments)
	if req.Assignments != nil {
		assignments = *req.Assignments
	}
	if err := s.applyChildren(ctx, course, loads, assignments); err != nil {
		return nil, err
	}
	course.UpdatedBy = &callerID

	if placement {
		if err := s.recheck(ctx, course); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Course.Update(ctx, course); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCourseCodeTaken
		}
		s.logger.Error("更新课程失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

func (s *courseService) Delete(ctx context.Context, id string, cascade bool, callerID string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return s.remover.remove(ctx, "course", id, repository.SessionFilter{CourseID: id}, cascade, callerID,
		func(tx *repository.Repository) error {
			return tx.Course.Delete(ctx, id, callerID)
		})
}

// ────────────────────── Progress ──────────────────────

func (s *courseService) Progress(ctx context.Context, id string) (*dto.CourseProgressResponse, error) {
	course, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	sessions, err := s.repo.Session.List(ctx, repository.SessionFilter{CourseID: id, ActiveOnly: true})
	if err != nil {
		s.logger.Error("查询课程课次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	slots, err := s.repo.TimeSlot.List(ctx, true)
	if err != nil {
		return nil, err
	}
	minutes := make(map[int]int, len(slots))
	for i := range slots {
		minutes[slots[i].SlotIndex] = slots[i].DurationMinutes()
	}

	planned := make(map[model.CourseType]int)
	for _, l := range course.Loads {
		planned[l.Type] = l.Hours
	}
	if len(course.Loads) == 0 {
		planned[course.Type] = course.TotalHours
	}

	scheduled := make(map[model.CourseType]int)
	counts := make(map[model.CourseType]int)
	for i := range sessions {
		scheduled[sessions[i].Type] += minutes[sessions[i].Slot]
		counts[sessions[i].Type]++
	}

	resp := &dto.CourseProgressResponse{
		Course: dto.CourseBrief{ID: course.CourseID, Code: course.Code, Name: course.Name},
		Items:  []dto.CourseProgressItem{},
	}
	for _, t := range model.CourseTypes {
		_, isPlanned := planned[t]
		if !isPlanned && counts[t] == 0 {
			continue
		}
		resp.Items = append(resp.Items, dto.CourseProgressItem{
			Type:           string(t),
			PlannedHours:   planned[t],
			ScheduledHours: float64(scheduled[t]) / 60,
			Sessions:       counts[t],
		})
	}
	return resp, nil
}

// ── 内部辅助方法 ──

// recheck 已有课次的形式须仍被课程开设，教室须仍容得下新的最小容量
func (s *courseService) recheck(ctx context.Context, course *model.Course) error {
	sessions, err := s.repo.Session.List(ctx, repository.SessionFilter{CourseID: course.CourseID, ActiveOnly: true})
	if err != nil {
		s.logger.Error("查询课程课次失败", zap.String("id", course.CourseID), zap.Error(err))
		return err
	}
	return recheckSessions(sessions, func(ss *model.Session, hit func(string, string, ...string)) {
		if !course.AllowsType(ss.Type) {
			hit(dto.RuleTypeNotOffered, "已有课次的教学形式不再被课程开设")
		}
		if ss.Group != nil && ss.Room != nil && requiredSeats(course, ss.Group) > ss.Room.Capacity {
			hit(dto.RuleRoomCapacity, fmt.Sprintf("最小容量 %d 超出已排课次所在教室的容量", course.MinCapacity))
		}
	})
}

func (s *courseService) get(ctx context.Context, id string) (*model.Course, error) {
	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return course, nil
}

func (s *courseService) ensureCodeFree(ctx context.Context, code, selfID string) error {
	existing, err := s.repo.Course.GetByCode(ctx, code)
	if err == nil && existing.CourseID != selfID {
		return ErrCourseCodeTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

// applyChildren 校验并重建课时与负责教师：每种形式至多一条，引用的教师 / 班组必须存在
func (s *courseService) applyChildren(
	ctx context.Context,
	course *model.Course,
	loads []dto.CourseLoadInput,
	assignments []dto.CourseAssignmentInput,
) error {
	ve := &ValidationError{}

	course.Loads = make([]model.CourseLoad, 0, len(loads))
	seen := make(map[string]bool)
	for i, l := range loads {
		if seen[l.Type] {
			ve.Fields = append(ve.Fields, FieldError{Field: fmt.Sprintf("loads[%d].type", i), Message: "教学形式重复"})
			continue
		}
		seen[l.Type] = true
		course.Loads = append(course.Loads, model.CourseLoad{
			CourseLoadID: uuid.NewString(),
			CourseID:     course.CourseID,
			Type:         model.CourseType(l.Type),
			Hours:        l.Hours,
		})
	}

	course.Assignments = make([]model.CourseAssignment, 0, len(assignments))
	seenAssign := make(map[string]bool)
	for i, a := range assignments {
		field := fmt.Sprintf("assignments[%d].type", i)
		if seenAssign[a.Type] {
			ve.Fields = append(ve.Fields, FieldError{Field: field, Message: "教学形式重复"})
			continue
		}
		seenAssign[a.Type] = true
		if !course.AllowsType(model.CourseType(a.Type)) {
			ve.Fields = append(ve.Fields, FieldError{Field: field, Message: "课程未开设该教学形式"})
			continue
		}
		course.Assignments = append(course.Assignments, model.CourseAssignment{
			CourseAssignmentID: uuid.NewString(),
			CourseID:           course.CourseID,
			Type:               model.CourseType(a.Type),
			TeacherID:          a.TeacherID,
			GroupID:            a.GroupID,
		})
	}
	if len(ve.Fields) > 0 {
		return ve
	}

	for _, a := range course.Assignments {
		if _, err := s.repo.Teacher.GetByID(ctx, a.TeacherID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return missingRef("teacher", a.TeacherID)
			}
			return err
		}
		if a.GroupID != nil {
			if _, err := s.repo.Group.GetByID(ctx, *a.GroupID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return missingRef("group", *a.GroupID)
				}
				return err
			}
		}
	}
	return nil
}

func loadInputs(loads []model.CourseLoad) []dto.CourseLoadInput {
	out := make([]dto.CourseLoadInput, 0, len(loads))
	for _, l := range loads {
		out = append(out, dto.CourseLoadInput{Type: string(l.Type), Hours: l.Hours})
	}
	return out
}

func assignmentInputs(assignments []model.CourseAssignment) []dto.CourseAssignmentInput {
	out := make([]dto.CourseAssignmentInput, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, dto.CourseAssignmentInput{Type: string(a.Type), TeacherID: a.TeacherID, GroupID: a.GroupID})
	}
	return out
}

func toCourseResponse(c *model.Course) *dto.CourseResponse {
	resp := &dto.CourseResponse{
		ID:          c.CourseID,
		Code:        c.Code,
		Name:        c.Name,
		Credits:     c.Credits,
		Semester:    c.Semester,
		Program:     string(c.Program),
		TotalHours:  c.TotalHours,
		WeeklyHours: c.WeeklyHours,
		MinCapacity: c.MinCapacity,
		Type:        string(c.Type),
		Loads:       make([]dto.CourseLoadResponse, 0, len(c.Loads)),
		Assignments: make([]dto.CourseAssignmentResponse, 0, len(c.Assignments)),
		CreatedAt:   fmtTime(c.CreatedAt),
		UpdatedAt:   fmtTime(c.UpdatedAt),
	}
	for _, l := range c.Loads {
		resp.Loads = append(resp.Loads, dto.CourseLoadResponse{Type: string(l.Type), Hours: l.Hours})
	}
	for _, a := range c.Assignments {
		item := dto.CourseAssignmentResponse{Type: string(a.Type), GroupID: a.GroupID}
		if a.Teacher != nil {
			item.Teacher = &dto.TeacherBrief{ID: a.Teacher.TeacherID, Name: a.Teacher.Name}
		} else {
			item.Teacher = &dto.TeacherBrief{ID: a.TeacherID}
		}
		if a.Group != nil {
			item.GroupName = a.Group.Name
		}
		resp.Assignments = append(resp.Assignments, item)
	}
	return resp
}
