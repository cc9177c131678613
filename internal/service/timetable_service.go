package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-planning/backend/config"
	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/metrics"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
)

// ── TimetableService ───────────────────────────────────────
//
// 周视图投影：只读，每次都从已提交的课次重新计算，不做缓存。
//   - 网格为 周一…max_day × 时间段目录
//   - 每格为课次列表；按教师 / 教室过滤时每格至多一个
//     （班组过滤含同一父班组下的兄弟子班组，可能同格多个）
//   - 班组过滤包含其祖先与后代班组的课次
//   - 已取消的课次不出现在网格中
// ─────────────────────────────────────────────────────────────

// WeekFilter 周视图过滤条件
type WeekFilter struct {
	GroupID   string
	TeacherID string
	RoomID    string
}

// TimetableService 周视图投影接口
type TimetableService interface {
	Project(ctx context.Context, week int, filter WeekFilter) (*dto.WeekGrid, error)
}

type timetableService struct {
	repo     *repository.Repository
	calendar planningCalendar
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(cfg *config.PlanningConfig, repo *repository.Repository, m *metrics.Metrics, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, calendar: newPlanningCalendar(cfg), metrics: m, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Project — 周视图
// ════════════════════════════════════════════════════════════

func (s *timetableService) Project(ctx context.Context, week int, filter WeekFilter) (*dto.WeekGrid, error) {
	started := time.Now()
	defer func() { s.metrics.RecordProjection(time.Since(started).Seconds()) }()

	if err := s.calendar.checkWeek("week", week); err != nil {
		return nil, err
	}

	sf := repository.SessionFilter{
		Week:       week,
		TeacherID:  filter.TeacherID,
		RoomID:     filter.RoomID,
		ActiveOnly: true,
	}
	if filter.GroupID != "" {
		if _, err := s.repo.Group.GetByID(ctx, filter.GroupID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrGroupNotFound
			}
			return nil, err
		}
		lineage, err := groupLineage(ctx, s.repo, filter.GroupID)
		if err != nil {
			return nil, err
		}
		sf.GroupIDs = lineage
	}

	sessions, err := s.repo.Session.List(ctx, sf)
	if err != nil {
		s.logger.Error("查询周课次失败", zap.Int("week", week), zap.Error(err))
		return nil, err
	}
	catalog, err := s.repo.TimeSlot.List(ctx, true)
	if err != nil {
		return nil, err
	}

	slots := gridSlots(catalog, sessions)
	grid := &dto.WeekGrid{
		Week:      week,
		StartDate: s.calendar.DateOf(week, model.Monday).Format("2006-01-02"),
		Slots:     make([]dto.SlotRef, 0, len(slots)),
		Days:      make([]dto.GridDay, 0, s.calendar.maxDay),
	}
	for i := range slots {
		grid.Slots = append(grid.Slots, dto.SlotRef{
			Slot:      slots[i].SlotIndex,
			Label:     slots[i].Label,
			StartTime: slots[i].StartTime,
			EndTime:   slots[i].EndTime,
		})
	}

	type cellKey struct {
		day  model.Weekday
		slot int
	}
	byCell := make(map[cellKey][]dto.GridSession, len(sessions))
	for i := range sessions {
		k := cellKey{sessions[i].Day, sessions[i].Slot}
		byCell[k] = append(byCell[k], toGridSession(&sessions[i]))
	}

	for _, d := range s.calendar.Days() {
		day := dto.GridDay{
			Day:   int(d),
			Name:  d.String(),
			Date:  s.calendar.DateOf(week, d).Format("2006-01-02"),
			Cells: make([]dto.GridCell, 0, len(slots)),
		}
		for i := range slots {
			items := byCell[cellKey{d, slots[i].SlotIndex}]
			if items == nil {
				items = []dto.GridSession{}
			}
			day.Cells = append(day.Cells, dto.GridCell{Slot: slots[i].SlotIndex, Sessions: items})
		}
		grid.Days = append(grid.Days, day)
	}
	return grid, nil
}

// gridSlots 启用的时间段，加上本周仍有课次的已停用时间段
func gridSlots(catalog []model.TimeSlot, sessions []model.Session) []model.TimeSlot {
	used := make(map[int]bool, len(sessions))
	for i := range sessions {
		used[sessions[i].Slot] = true
	}
	out := make([]model.TimeSlot, 0, len(catalog))
	for i := range catalog {
		if catalog[i].IsActive || used[catalog[i].SlotIndex] {
			out = append(out, catalog[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotIndex < out[j].SlotIndex })
	return out
}

func toGridSession(s *model.Session) dto.GridSession {
	g := dto.GridSession{
		ID:        s.SessionID,
		Type:      string(s.Type),
		TeacherID: s.TeacherID,
		GroupID:   s.GroupID,
		RoomID:    s.RoomID,
		Status:    string(s.Status),
	}
	if s.Course != nil {
		g.CourseCode = s.Course.Code
		g.CourseName = s.Course.Name
	}
	if s.Teacher != nil {
		g.TeacherName = s.Teacher.Name
	}
	if s.Group != nil {
		g.GroupName = s.Group.Name
	}
	if s.Room != nil {
		g.RoomName = s.Room.Name
	}
	return g
}
