package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-planning/backend/config"
	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/metrics"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
	pkgerrors "campus-planning/backend/pkg/errors"
)

// ── 排课模块业务错误 ──

var (
	ErrSessionNotFound          = errors.New("课次不存在")
	ErrSessionNotMovable        = errors.New("已取消或已完成的课次不能调整")
	ErrInvalidStatusTransition  = errors.New("不允许的课次状态变更")
	ErrSessionCellTaken         = errors.New("该时段已被并发写入占用，请刷新后重试")
	ErrIdempotencyKeyMismatched = errors.New("幂等键已用于其他课次")
)

// 指标中的操作名与结果
const (
	opCreate = "create"
	opMove   = "move"
	opRemove = "remove"
	opStatus = "status"

	resultOK       = "ok"
	resultConflict = "conflict"
	resultInvalid  = "invalid"
	resultError    = "error"
)

// AssignmentService 课次的唯一写入口
//
// 所有写操作先取得相关周（和课次）的锁，在锁内完成校验与提交；
// 新建与移动还持有引用实体的锁，校验失败时不产生任何写入。
type AssignmentService interface {
	// Check 只评估候选课次，不写入
	Check(ctx context.Context, req *dto.SessionCandidate) (*dto.ConflictReport, error)
	Create(ctx context.Context, req *dto.SessionCandidate, idemKey, callerID string) (*dto.SessionResponse, error)
	Move(ctx context.Context, id string, req *dto.MoveSessionRequest, idemKey, callerID string) (*dto.SessionResponse, error)
	Remove(ctx context.Context, id string, callerID string) error
	UpdateStatus(ctx context.Context, id string, req *dto.UpdateSessionStatusRequest, callerID string) (*dto.SessionResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SessionResponse, error)
	List(ctx context.Context, req *dto.SessionListRequest) ([]dto.SessionResponse, int64, error)
	ListChangeLogs(ctx context.Context, req *dto.ChangeLogListRequest) ([]dto.ChangeLogResponse, int64, error)
}

type assignmentService struct {
	repo     *repository.Repository
	detector ConflictDetector
	locker   Locker
	idem     IdempotencyStore
	calendar planningCalendar
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(
	cfg *config.PlanningConfig,
	repo *repository.Repository,
	detector ConflictDetector,
	locker Locker,
	idem IdempotencyStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) AssignmentService {
	return &assignmentService{
		repo:     repo,
		detector: detector,
		locker:   locker,
		idem:     idem,
		calendar: newPlanningCalendar(cfg),
		metrics:  m,
		logger:   logger,
	}
}

// ════════════════════════════════════════════════════════════
// Check — 预检
// ════════════════════════════════════════════════════════════

func (s *assignmentService) Check(ctx context.Context, req *dto.SessionCandidate) (*dto.ConflictReport, error) {
	p, err := s.resolveCandidate(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.detector.Evaluate(ctx, p)
}

// ════════════════════════════════════════════════════════════
// Create — 新建课次
// ════════════════════════════════════════════════════════════

func (s *assignmentService) Create(ctx context.Context, req *dto.SessionCandidate, idemKey, callerID string) (*dto.SessionResponse, error) {
	key := ""
	if idemKey != "" {
		key = idempotencyKey(opCreate, callerID, idemKey)
		if resp, ok, err := s.replay(ctx, key); err != nil || ok {
			return resp, err
		}
	}

	if err := validateStruct(req); err != nil {
		s.metrics.RecordSessionMutation(opCreate, resultInvalid)
		return nil, err
	}

	keys := subjectLockKeys(req.CourseID, req.TeacherID, req.GroupID, req.RoomID)
	unlock, err := s.locker.Lock(ctx, append(keys, weekLockKey(req.Week))...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// 拿到锁后再查一次，并发的相同请求只提交一次
	if key != "" {
		if resp, ok, err := s.replay(ctx, key); err != nil || ok {
			return resp, err
		}
	}

	// 引用在锁内解析，提交前不会被并发删除或修改
	p, err := s.resolveCandidate(ctx, req)
	if err != nil {
		s.metrics.RecordSessionMutation(opCreate, resultInvalid)
		return nil, err
	}

	report, err := s.detector.Evaluate(ctx, p)
	if err != nil {
		s.metrics.RecordSessionMutation(opCreate, resultError)
		return nil, err
	}
	if !report.OK {
		s.metrics.RecordSessionMutation(opCreate, resultConflict)
		return nil, &ConflictError{Report: report}
	}

	session := &model.Session{
		SessionID: uuid.NewString(),
		CourseID:  p.Course.CourseID,
		TeacherID: p.Teacher.TeacherID,
		GroupID:   p.Group.GroupID,
		RoomID:    p.Room.RoomID,
		Type:      p.Type,
		Week:      p.Week,
		Day:       p.Day,
		Slot:      p.Slot,
		Status:    model.SessionScheduled,
	}
	session.SetAudit(callerID)

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Session.Create(ctx, session); err != nil {
			return err
		}
		return tx.ChangeLog.Create(ctx, creationLog(session, callerID))
	})
	if err != nil {
		s.metrics.RecordSessionMutation(opCreate, resultError)
		return nil, s.commitError(err, "创建课次失败")
	}

	if key != "" {
		if err := s.idem.Put(ctx, key, session.SessionID); err != nil {
			s.logger.Warn("保存幂等键失败", zap.String("session_id", session.SessionID), zap.Error(err))
		}
	}

	s.metrics.RecordSessionMutation(opCreate, resultOK)
	s.logger.Info("课次已创建",
		zap.String("session_id", session.SessionID),
		zap.Int("week", session.Week), zap.Int("day", int(session.Day)), zap.Int("slot", session.Slot),
		zap.String("operator", callerID),
	)
	return s.GetByID(ctx, session.SessionID)
}

// ════════════════════════════════════════════════════════════
// Move — 调整时间 / 教室（原子：失败时原课次不变）
// ════════════════════════════════════════════════════════════

func (s *assignmentService) Move(ctx context.Context, id string, req *dto.MoveSessionRequest, idemKey, callerID string) (*dto.SessionResponse, error) {
	if err := validateStruct(req); err != nil {
		s.metrics.RecordSessionMutation(opMove, resultInvalid)
		return nil, err
	}

	key := ""
	if idemKey != "" {
		key = idempotencyKey(opMove+":"+id, callerID, idemKey)
		if resp, ok, err := s.replay(ctx, key); err != nil || ok {
			return resp, err
		}
	}

	// 先锁课次，读到原坐标后再锁引用实体与新旧两周
	unlockSession, err := s.locker.Lock(ctx, sessionLockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlockSession()

	session, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	roomID := session.RoomID
	if req.RoomID != nil {
		roomID = *req.RoomID
	}
	keys := subjectLockKeys(session.CourseID, session.TeacherID, session.GroupID, roomID)
	keys = append(keys, subjectLockKey("room", session.RoomID), weekLockKey(session.Week), weekLockKey(req.Week))
	unlockWeeks, err := s.locker.Lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlockWeeks()

	if key != "" {
		if resp, ok, err := s.replay(ctx, key); err != nil || ok {
			return resp, err
		}
	}

	if session.Status == model.SessionCancelled || session.Status == model.SessionCompleted {
		s.metrics.RecordSessionMutation(opMove, resultInvalid)
		return nil, ErrSessionNotMovable
	}
	if req.Version != nil && *req.Version != session.Version {
		s.metrics.RecordSessionMutation(opMove, resultConflict)
		return nil, pkgerrors.ErrOptimisticLock
	}

	p, err := s.resolvePlacement(ctx, session.CourseID, session.TeacherID, session.GroupID, roomID, session.Type, req.Week, req.Day, req.Slot)
	if err != nil {
		s.metrics.RecordSessionMutation(opMove, resultInvalid)
		return nil, err
	}
	p.SessionID = session.SessionID

	report, err := s.detector.Evaluate(ctx, p)
	if err != nil {
		s.metrics.RecordSessionMutation(opMove, resultError)
		return nil, err
	}
	if !report.OK {
		s.metrics.RecordSessionMutation(opMove, resultConflict)
		return nil, &ConflictError{Report: report}
	}

	entry := moveLog(session, p, callerID)
	moved := *session
	moved.Course, moved.Teacher, moved.Group, moved.Room = nil, nil, nil, nil
	moved.Week, moved.Day, moved.Slot, moved.RoomID = p.Week, p.Day, p.Slot, p.Room.RoomID
	moved.UpdatedBy = &callerID

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Session.Update(ctx, &moved); err != nil {
			return err
		}
		return tx.ChangeLog.Create(ctx, entry)
	})
	if err != nil {
		s.metrics.RecordSessionMutation(opMove, resultError)
		return nil, s.commitError(err, "移动课次失败")
	}

	if key != "" {
		if err := s.idem.Put(ctx, key, id); err != nil {
			s.logger.Warn("保存幂等键失败", zap.String("session_id", id), zap.Error(err))
		}
	}

	s.metrics.RecordSessionMutation(opMove, resultOK)
	s.logger.Info("课次已移动",
		zap.String("session_id", id),
		zap.Int("from_week", session.Week), zap.Int("to_week", p.Week),
		zap.String("operator", callerID),
	)
	return s.GetByID(ctx, id)
}

// ════════════════════════════════════════════════════════════
// Remove — 删除课次（无条件）
// ════════════════════════════════════════════════════════════

func (s *assignmentService) Remove(ctx context.Context, id string, callerID string) error {
	unlockSession, err := s.locker.Lock(ctx, sessionLockKey(id))
	if err != nil {
		return err
	}
	defer unlockSession()

	session, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	unlockWeek, err := s.locker.Lock(ctx, weekLockKey(session.Week))
	if err != nil {
		return err
	}
	defer unlockWeek()

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Session.Delete(ctx, id); err != nil {
			return err
		}
		return tx.ChangeLog.Create(ctx, removalLog(session, callerID))
	})
	if err != nil {
		s.metrics.RecordSessionMutation(opRemove, resultError)
		s.logger.Error("删除课次失败", zap.String("session_id", id), zap.Error(err))
		return err
	}

	s.metrics.RecordSessionMutation(opRemove, resultOK)
	s.logger.Info("课次已删除", zap.String("session_id", id), zap.String("operator", callerID))
	return nil
}

// ════════════════════════════════════════════════════════════
// UpdateStatus — 状态流转
// ════════════════════════════════════════════════════════════

func (s *assignmentService) UpdateStatus(ctx context.Context, id string, req *dto.UpdateSessionStatusRequest, callerID string) (*dto.SessionResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	next := model.SessionStatus(req.Status)

	unlockSession, err := s.locker.Lock(ctx, sessionLockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlockSession()

	session, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanTransitionTo(next) {
		s.metrics.RecordSessionMutation(opStatus, resultInvalid)
		return nil, ErrInvalidStatusTransition
	}

	unlockWeek, err := s.locker.Lock(ctx, weekLockKey(session.Week))
	if err != nil {
		return nil, err
	}
	defer unlockWeek()

	prev := session.Status
	updated := *session
	updated.Course, updated.Teacher, updated.Group, updated.Room = nil, nil, nil, nil
	updated.Status = next
	updated.UpdatedBy = &callerID

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Session.Update(ctx, &updated); err != nil {
			return err
		}
		return tx.ChangeLog.Create(ctx, &model.SessionChangeLog{
			ChangeLogID: uuid.NewString(),
			SessionID:   id,
			ChangeType:  model.ChangeStatus,
			OldStatus:   &prev,
			NewStatus:   &next,
			OperatorID:  callerID,
			CreatedAt:   time.Now(),
		})
	})
	if err != nil {
		s.metrics.RecordSessionMutation(opStatus, resultError)
		s.logger.Error("更新课次状态失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}

	s.metrics.RecordSessionMutation(opStatus, resultOK)
	return s.GetByID(ctx, id)
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *assignmentService) GetByID(ctx context.Context, id string) (*dto.SessionResponse, error) {
	session, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSessionResponse(session), nil
}

func (s *assignmentService) List(ctx context.Context, req *dto.SessionListRequest) ([]dto.SessionResponse, int64, error) {
	filter := repository.SessionFilter{
		Week:      req.Week,
		Day:       req.Day,
		TeacherID: req.TeacherID,
		RoomID:    req.RoomID,
		CourseID:  req.CourseID,
		Status:    model.SessionStatus(req.Status),
	}
	if req.GroupID != "" {
		filter.GroupIDs = []string{req.GroupID}
	}

	sessions, total, err := s.repo.Session.ListPage(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出课次失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, *toSessionResponse(&sessions[i]))
	}
	return result, total, nil
}

func (s *assignmentService) ListChangeLogs(ctx context.Context, req *dto.ChangeLogListRequest) ([]dto.ChangeLogResponse, int64, error) {
	logs, total, err := s.repo.ChangeLog.List(ctx, req.SessionID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出课次变更记录失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ChangeLogResponse, 0, len(logs))
	for i := range logs {
		result = append(result, toChangeLogResponse(&logs[i]))
	}
	return result, total, nil
}

// ── 内部辅助方法 ──

func (s *assignmentService) get(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.repo.Session.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return session, nil
}

// replay 幂等键已提交过时返回当时的课次
func (s *assignmentService) replay(ctx context.Context, key string) (*dto.SessionResponse, bool, error) {
	id, ok, err := s.idem.Get(ctx, key)
	if err != nil {
		s.logger.Warn("读取幂等键失败", zap.Error(err))
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	resp, err := s.GetByID(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		// 课次已被删除，幂等键指向的结果不复存在
		return nil, false, ErrIdempotencyKeyMismatched
	}
	return resp, err == nil, err
}

func (s *assignmentService) resolveCandidate(ctx context.Context, req *dto.SessionCandidate) (*Placement, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return s.resolvePlacement(ctx, req.CourseID, req.TeacherID, req.GroupID, req.RoomID,
		model.CourseType(req.Type), req.Week, req.Day, req.Slot)
}

// resolvePlacement 解析引用并做边界校验；引用缺失返回 ReferentialIntegrityError
func (s *assignmentService) resolvePlacement(
	ctx context.Context,
	courseID, teacherID, groupID, roomID string,
	typ model.CourseType,
	week, day, slot int,
) (*Placement, error) {
	slots, err := activeSlots(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	if err := s.calendar.checkCell(week, day, slot, slots); err != nil {
		return nil, err
	}

	p := &Placement{Type: typ, Week: week, Day: model.Weekday(day), Slot: slot}

	if p.Course, err = s.repo.Course.GetByID(ctx, courseID); err != nil {
		return nil, refError(err, "course", courseID)
	}
	if p.Teacher, err = s.repo.Teacher.GetByID(ctx, teacherID); err != nil {
		return nil, refError(err, "teacher", teacherID)
	}
	if p.Group, err = s.repo.Group.GetByID(ctx, groupID); err != nil {
		return nil, refError(err, "group", groupID)
	}
	if p.Room, err = s.repo.Room.GetByID(ctx, roomID); err != nil {
		return nil, refError(err, "room", roomID)
	}

	if !p.Course.AllowsType(typ) {
		return nil, invalidField("type", "课程未开设该教学形式")
	}
	return p, nil
}

// commitError 存储层唯一索引兜底命中时返回冲突
func (s *assignmentService) commitError(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSessionCellTaken
	}
	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		return err
	}
	s.logger.Error(msg, zap.Error(err))
	return err
}

// subjectLockKeys 落位引用的四个实体的锁
func subjectLockKeys(courseID, teacherID, groupID, roomID string) []string {
	return []string{
		subjectLockKey("course", courseID),
		subjectLockKey("teacher", teacherID),
		subjectLockKey("group", groupID),
		subjectLockKey("room", roomID),
	}
}

func refError(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return missingRef(entity, id)
	}
	return err
}

func creationLog(s *model.Session, callerID string) *model.SessionChangeLog {
	week, day, slot, room, status := s.Week, int(s.Day), s.Slot, s.RoomID, s.Status
	return &model.SessionChangeLog{
		ChangeLogID: uuid.NewString(),
		SessionID:   s.SessionID,
		ChangeType:  model.ChangeCreate,
		NewWeek:     &week,
		NewDay:      &day,
		NewSlot:     &slot,
		NewRoomID:   &room,
		NewStatus:   &status,
		OperatorID:  callerID,
		CreatedAt:   time.Now(),
	}
}

func moveLog(s *model.Session, p *Placement, callerID string) *model.SessionChangeLog {
	oldWeek, oldDay, oldSlot, oldRoom := s.Week, int(s.Day), s.Slot, s.RoomID
	newWeek, newDay, newSlot, newRoom := p.Week, int(p.Day), p.Slot, p.Room.RoomID
	return &model.SessionChangeLog{
		ChangeLogID: uuid.NewString(),
		SessionID:   s.SessionID,
		ChangeType:  model.ChangeMove,
		OldWeek:     &oldWeek,
		OldDay:      &oldDay,
		OldSlot:     &oldSlot,
		OldRoomID:   &oldRoom,
		NewWeek:     &newWeek,
		NewDay:      &newDay,
		NewSlot:     &newSlot,
		NewRoomID:   &newRoom,
		OperatorID:  callerID,
		CreatedAt:   time.Now(),
	}
}

func toSessionResponse(s *model.Session) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:        s.SessionID,
		CourseID:  s.CourseID,
		TeacherID: s.TeacherID,
		GroupID:   s.GroupID,
		RoomID:    s.RoomID,
		Type:      string(s.Type),
		Week:      s.Week,
		Day:       int(s.Day),
		Slot:      s.Slot,
		Status:    string(s.Status),
		Version:   s.Version,
		CreatedAt: fmtTime(s.CreatedAt),
		UpdatedAt: fmtTime(s.UpdatedAt),
	}
	if s.Course != nil {
		resp.Course = &dto.CourseBrief{ID: s.Course.CourseID, Code: s.Course.Code, Name: s.Course.Name}
	}
	if s.Teacher != nil {
		resp.Teacher = &dto.TeacherBrief{ID: s.Teacher.TeacherID, Name: s.Teacher.Name}
	}
	if s.Group != nil {
		resp.Group = &dto.GroupBrief{ID: s.Group.GroupID, Name: s.Group.Name}
	}
	if s.Room != nil {
		resp.Room = &dto.RoomBrief{ID: s.Room.RoomID, Name: s.Room.Name, Type: string(s.Room.Type), Capacity: s.Room.Capacity}
	}
	return resp
}

func toChangeLogResponse(l *model.SessionChangeLog) dto.ChangeLogResponse {
	resp := dto.ChangeLogResponse{
		ID:         l.ChangeLogID,
		SessionID:  l.SessionID,
		ChangeType: l.ChangeType,
		OldWeek:    l.OldWeek,
		OldDay:     l.OldDay,
		OldSlot:    l.OldSlot,
		OldRoomID:  l.OldRoomID,
		NewWeek:    l.NewWeek,
		NewDay:     l.NewDay,
		NewSlot:    l.NewSlot,
		NewRoomID:  l.NewRoomID,
		OperatorID: l.OperatorID,
		CreatedAt:  fmtTime(l.CreatedAt),
	}
	if l.OldStatus != nil {
		resp.OldStatus = string(*l.OldStatus)
	}
	if l.NewStatus != nil {
		resp.NewStatus = string(*l.NewStatus)
	}
	return resp
}
