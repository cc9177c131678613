package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/metrics"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
)

// Placement 一次待评估的落位：实体已解析，坐标已通过边界校验
type Placement struct {
	// SessionID 移动时为被移动课次，自身不参与撞课判断
	SessionID string
	Course    *model.Course
	Teacher   *model.Teacher
	Group     *model.Group
	Room      *model.Room
	Type      model.CourseType
	Week      int
	Day       model.Weekday
	Slot      int
}

// availabilityChecker 冲突检测所需的可用性查询
type availabilityChecker interface {
	IsAvailable(ctx context.Context, kind model.EntityKind, id string, week int, day model.Weekday, slot int) (bool, error)
}

// ConflictDetector 依次完整评估全部落位规则，不在首个违规处停止
//
//  1. 教师撞课
//  2. 教室撞课
//  3. 班组撞课（同一班组或其任意祖先 / 后代）
//  4. 教室类型与容量
//  5. 教师与教室可用性
type ConflictDetector interface {
	Evaluate(ctx context.Context, p *Placement) (*dto.ConflictReport, error)
}

type conflictDetector struct {
	repo         *repository.Repository
	availability availabilityChecker
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewConflictDetector 创建 ConflictDetector 实例
func NewConflictDetector(repo *repository.Repository, availability availabilityChecker, m *metrics.Metrics, logger *zap.Logger) ConflictDetector {
	return &conflictDetector{repo: repo, availability: availability, metrics: m, logger: logger}
}

func (d *conflictDetector) Evaluate(ctx context.Context, p *Placement) (*dto.ConflictReport, error) {
	// 同格的全部有效课次一次取出，三类撞课在内存中判断
	occupants, err := d.repo.Session.List(ctx, repository.SessionFilter{
		Week:       p.Week,
		Day:        int(p.Day),
		Slot:       p.Slot,
		ActiveOnly: true,
	})
	if err != nil {
		d.logger.Error("查询同格课次失败", zap.Int("week", p.Week), zap.Int("day", int(p.Day)), zap.Int("slot", p.Slot), zap.Error(err))
		return nil, err
	}
	lineage, err := groupLineage(ctx, d.repo, p.Group.GroupID)
	if err != nil {
		return nil, err
	}
	inLineage := make(map[string]bool, len(lineage))
	for _, id := range lineage {
		inLineage[id] = true
	}

	var teacherHits, roomHits, groupHits []string
	for i := range occupants {
		o := &occupants[i]
		if o.SessionID == p.SessionID || !o.Status.OccupiesCell() {
			continue
		}
		if o.TeacherID == p.Teacher.TeacherID {
			teacherHits = append(teacherHits, o.SessionID)
		}
		if o.RoomID == p.Room.RoomID {
			roomHits = append(roomHits, o.SessionID)
		}
		if inLineage[o.GroupID] {
			groupHits = append(groupHits, o.SessionID)
		}
	}

	report := &dto.ConflictReport{Conflicts: []dto.Conflict{}}
	add := func(rule, msg string, ids []string) {
		report.Conflicts = append(report.Conflicts, dto.Conflict{Rule: rule, Message: msg, SessionIDs: ids})
		d.metrics.RecordConflict(rule)
	}

	// ── 1-3 撞课 ──
	if len(teacherHits) > 0 {
		add(dto.RuleTeacherDoubleBooking, fmt.Sprintf("教师 %s 在该时段已有课", p.Teacher.Name), teacherHits)
	}
	if len(roomHits) > 0 {
		add(dto.RuleRoomDoubleBooking, fmt.Sprintf("教室 %s 在该时段已被占用", p.Room.Name), roomHits)
	}
	if len(groupHits) > 0 {
		add(dto.RuleGroupDoubleBooking, fmt.Sprintf("班组 %s（含上下级班组）在该时段已有课", p.Group.Name), groupHits)
	}

	// ── 4 教室类型与容量 ──
	if !p.Type.AcceptsRoom(p.Room.Type) {
		add(dto.RuleRoomTypeMismatch, fmt.Sprintf("%s 课不能安排在 %s 类型教室", p.Type, p.Room.Type), nil)
	}
	if need := requiredSeats(p.Course, p.Group); need > p.Room.Capacity {
		add(dto.RuleRoomCapacity, fmt.Sprintf("需要 %d 个座位，教室 %s 只有 %d 个", need, p.Room.Name, p.Room.Capacity), nil)
	}

	// ── 5 可用性 ──
	ok, err := d.availability.IsAvailable(ctx, model.EntityTeacher, p.Teacher.TeacherID, p.Week, p.Day, p.Slot)
	if err != nil {
		return nil, err
	}
	if !ok {
		add(dto.RuleTeacherUnavailable, fmt.Sprintf("教师 %s 在该时段不可用", p.Teacher.Name), nil)
	}
	ok, err = d.availability.IsAvailable(ctx, model.EntityRoom, p.Room.RoomID, p.Week, p.Day, p.Slot)
	if err != nil {
		return nil, err
	}
	if !ok {
		add(dto.RuleRoomUnavailable, fmt.Sprintf("教室 %s 在该时段不可用", p.Room.Name), nil)
	}

	report.OK = len(report.Conflicts) == 0
	return report, nil
}

// requiredSeats 班组人数与课程最少座位数取大
func requiredSeats(course *model.Course, group *model.Group) int {
	need := group.Headcount
	if course.MinCapacity > need {
		need = course.MinCapacity
	}
	return need
}
