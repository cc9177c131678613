package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-planning/backend/config"
	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
)

// ── 可用性模块业务错误 ──

var (
	ErrUnknownEntityKind = errors.New("可用性主体类型只能为 teacher 或 room")
	ErrClosureNotFound   = errors.New("教室关闭记录不存在")
)

// 可用性默认策略
const (
	PolicyOpen   = "open"   // 未登记 ⇒ 可用
	PolicyStrict = "strict" // 未登记 ⇒ 不可用
)

const closureMaxDays = 366

// AvailabilityService 教师 / 教室周可用性登记
//
// 只维护可用性格子本身，从不修改课次。
// 已有课次占用的格子不能置为不可用：单格 / 批量 / 教室关闭整体拒绝（ConflictError），
// ICS 导入跳过这些格子并在结果中列出占用的课次。
type AvailabilityService interface {
	IsAvailable(ctx context.Context, kind model.EntityKind, id string, week int, day model.Weekday, slot int) (bool, error)
	Check(ctx context.Context, kind, id string, req *dto.CellRequest) (*dto.AvailabilityCellResponse, error)
	Toggle(ctx context.Context, kind, id string, req *dto.CellRequest, callerID string) (*dto.AvailabilityCellResponse, error)
	SetRange(ctx context.Context, kind, id string, req *dto.SetRangeRequest, callerID string) (*dto.SetRangeResponse, error)
	GetWeek(ctx context.Context, kind, id string, week int) (*dto.AvailabilityWeekResponse, error)

	ListClosures(ctx context.Context, roomID string) ([]dto.RoomClosureResponse, error)
	CreateClosure(ctx context.Context, roomID string, req *dto.CreateRoomClosureRequest, callerID string) (*dto.RoomClosureResponse, error)
	DeleteClosure(ctx context.Context, roomID, closureID, callerID string) error

	// ImportICS 把教师外部日历中的忙碌时段登记为不可用
	ImportICS(ctx context.Context, teacherID string, r io.Reader, callerID string) (*dto.ICSImportResponse, error)
}

type availabilityService struct {
	repo     *repository.Repository
	locker   Locker
	calendar planningCalendar
	policy   string
	logger   *zap.Logger
}

// NewAvailabilityService 创建 AvailabilityService 实例
func NewAvailabilityService(cfg *config.PlanningConfig, repo *repository.Repository, locker Locker, logger *zap.Logger) AvailabilityService {
	policy := cfg.AvailabilityPolicy
	if policy != PolicyStrict {
		policy = PolicyOpen
	}
	return &availabilityService{
		repo:     repo,
		locker:   locker,
		calendar: newPlanningCalendar(cfg),
		policy:   policy,
		logger:   logger,
	}
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *availabilityService) IsAvailable(ctx context.Context, kind model.EntityKind, id string, week int, day model.Weekday, slot int) (bool, error) {
	cell, err := s.repo.Availability.Get(ctx, kind, id, week, day, slot)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.defaultAvailable(), nil
		}
		s.logger.Error("查询可用性失败",
			zap.String("kind", string(kind)), zap.String("id", id),
			zap.Int("week", week), zap.Int("day", int(day)), zap.Int("slot", slot),
			zap.Error(err),
		)
		return false, err
	}
	return cell.Available, nil
}

func (s *availabilityService) Check(ctx context.Context, kind, id string, req *dto.CellRequest) (*dto.AvailabilityCellResponse, error) {
	k, err := s.resolveEntity(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCell(ctx, req); err != nil {
		return nil, err
	}

	ok, err := s.IsAvailable(ctx, k, id, req.Week, model.Weekday(req.Day), req.Slot)
	if err != nil {
		return nil, err
	}
	return cellResponse(k, id, req.Week, req.Day, req.Slot, ok), nil
}

func (s *availabilityService) GetWeek(ctx context.Context, kind, id string, week int) (*dto.AvailabilityWeekResponse, error) {
	k, err := s.resolveEntity(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.calendar.checkWeek("week", week); err != nil {
		return nil, err
	}

	slots, err := activeSlots(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	cells, err := s.repo.Availability.ListByWeek(ctx, k, id, week)
	if err != nil {
		s.logger.Error("查询周可用性失败", zap.String("id", id), zap.Int("week", week), zap.Error(err))
		return nil, err
	}
	explicit := make(map[[2]int]bool, len(cells))
	for _, c := range cells {
		explicit[[2]int{int(c.Day), c.Slot}] = c.Available
	}

	resp := &dto.AvailabilityWeekResponse{
		Kind:     string(k),
		EntityID: id,
		Week:     week,
		Policy:   s.policy,
		Days:     make([]dto.AvailabilityDay, 0, s.calendar.maxDay),
	}
	for _, d := range s.calendar.Days() {
		day := dto.AvailabilityDay{Day: int(d), Name: d.String(), Slots: make([]dto.AvailabilitySlot, 0, len(slots))}
		for i := range slots {
			available, ok := explicit[[2]int{int(d), slots[i].SlotIndex}]
			if !ok {
				available = s.defaultAvailable()
			}
			day.Slots = append(day.Slots, dto.AvailabilitySlot{
				Slot:      slots[i].SlotIndex,
				Label:     slots[i].Label,
				Available: available,
				Explicit:  ok,
			})
		}
		resp.Days = append(resp.Days, day)
	}
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// 修改
// ════════════════════════════════════════════════════════════

// Toggle 翻转单个格子的当前有效值（未登记的格子按默认策略取值后翻转）
func (s *availabilityService) Toggle(ctx context.Context, kind, id string, req *dto.CellRequest, callerID string) (*dto.AvailabilityCellResponse, error) {
	k, err := s.resolveEntity(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCell(ctx, req); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, weekLockKey(req.Week))
	if err != nil {
		return nil, err
	}
	defer unlock()

	day := model.Weekday(req.Day)
	current, err := s.IsAvailable(ctx, k, id, req.Week, day, req.Slot)
	if err != nil {
		return nil, err
	}

	cell := &model.AvailabilityCell{
		EntityKind: k,
		EntityID:   id,
		Week:       req.Week,
		Day:        day,
		Slot:       req.Slot,
		Available:  !current,
		UpdatedAt:  time.Now(),
		UpdatedBy:  &callerID,
	}
	if err := s.rejectOccupied(ctx, []model.AvailabilityCell{*cell}); err != nil {
		return nil, err
	}
	if err := s.repo.Availability.Upsert(ctx, cell); err != nil {
		s.logger.Error("更新可用性失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return cellResponse(k, id, req.Week, req.Day, req.Slot, cell.Available), nil
}

// SetRange 批量设置 [week_from, week_to] × days × slots；days / slots 为空表示全部
func (s *availabilityService) SetRange(ctx context.Context, kind, id string, req *dto.SetRangeRequest, callerID string) (*dto.SetRangeResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	k, err := s.resolveEntity(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.calendar.checkWeek("week_to", req.WeekTo); err != nil {
		return nil, err
	}

	slots, err := activeSlots(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	days, err := s.resolveDays(req.Days)
	if err != nil {
		return nil, err
	}
	slotIdx, err := resolveSlots(req.Slots, slots)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cells := make([]model.AvailabilityCell, 0, (req.WeekTo-req.WeekFrom+1)*len(days)*len(slotIdx))
	keys := make([]string, 0, req.WeekTo-req.WeekFrom+1)
	for w := req.WeekFrom; w <= req.WeekTo; w++ {
		keys = append(keys, weekLockKey(w))
		for _, d := range days {
			for _, sl := range slotIdx {
				cells = append(cells, model.AvailabilityCell{
					EntityKind: k, EntityID: id,
					Week: w, Day: d, Slot: sl,
					Available: *req.Available,
					UpdatedAt: now, UpdatedBy: &callerID,
				})
			}
		}
	}

	if err := s.writeCells(ctx, keys, cells); err != nil {
		var ce *ConflictError
		if !errors.As(err, &ce) {
			s.logger.Error("批量设置可用性失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("批量设置可用性",
		zap.String("kind", string(k)), zap.String("id", id),
		zap.Int("cells", len(cells)), zap.Bool("available", *req.Available),
	)
	return &dto.SetRangeResponse{AffectedCells: len(cells)}, nil
}

// ════════════════════════════════════════════════════════════
// 教室临时关闭
// ════════════════════════════════════════════════════════════

func (s *availabilityService) ListClosures(ctx context.Context, roomID string) ([]dto.RoomClosureResponse, error) {
	if _, err := s.resolveEntity(ctx, string(model.EntityRoom), roomID); err != nil {
		return nil, err
	}
	closures, err := s.repo.RoomClosure.ListByRoom(ctx, roomID)
	if err != nil {
		s.logger.Error("查询教室关闭记录失败", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.RoomClosureResponse, 0, len(closures))
	for i := range closures {
		result = append(result, *toClosureResponse(&closures[i], 0))
	}
	return result, nil
}

// CreateClosure 关闭期间每天的全部时间段置为不可用；周日与学期外日期跳过
func (s *availabilityService) CreateClosure(ctx context.Context, roomID string, req *dto.CreateRoomClosureRequest, callerID string) (*dto.RoomClosureResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.resolveEntity(ctx, string(model.EntityRoom), roomID); err != nil {
		return nil, err
	}
	start, end, err := s.parseClosureDates(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	slots, err := activeSlots(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	cells, keys := s.closureCells(roomID, start, end, slots, false, callerID, nil)

	closure := &model.RoomClosure{
		ClosureID: uuid.NewString(),
		RoomID:    roomID,
		StartDate: start,
		EndDate:   end,
		Reason:    req.Reason,
	}
	closure.SetAudit(callerID)

	unlock, err := s.locker.Lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.rejectOccupied(ctx, cells); err != nil {
		return nil, err
	}

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.RoomClosure.Create(ctx, closure); err != nil {
			return err
		}
		if len(cells) == 0 {
			return nil
		}
		return tx.Availability.UpsertBatch(ctx, cells)
	})
	if err != nil {
		s.logger.Error("创建教室关闭失败", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("教室临时关闭",
		zap.String("room_id", roomID),
		zap.String("start", req.StartDate), zap.String("end", req.EndDate),
		zap.Int("cells", len(cells)),
	)
	return toClosureResponse(closure, len(cells)), nil
}

// DeleteClosure 删除关闭记录并重新开放对应格子；仍被其他关闭记录覆盖的日期保持不可用
func (s *availabilityService) DeleteClosure(ctx context.Context, roomID, closureID, callerID string) error {
	closure, err := s.repo.RoomClosure.GetByID(ctx, closureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClosureNotFound
		}
		return err
	}
	if closure.RoomID != roomID {
		return ErrClosureNotFound
	}

	others, err := s.repo.RoomClosure.ListOverlapping(ctx, roomID, closure.StartDate, closure.EndDate)
	if err != nil {
		return err
	}
	stillClosed := func(d time.Time) bool {
		for i := range others {
			o := &others[i]
			if o.ClosureID == closure.ClosureID {
				continue
			}
			if !d.Before(dateOnly(o.StartDate, d.Location())) && !d.After(dateOnly(o.EndDate, d.Location())) {
				return true
			}
		}
		return false
	}

	slots, err := activeSlots(ctx, s.repo)
	if err != nil {
		return err
	}
	start := dateOnly(closure.StartDate, s.calendar.Location())
	end := dateOnly(closure.EndDate, s.calendar.Location())
	cells, keys := s.closureCells(roomID, start, end, slots, true, callerID, stillClosed)

	unlock, err := s.locker.Lock(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.RoomClosure.Delete(ctx, closureID); err != nil {
			return err
		}
		if len(cells) == 0 {
			return nil
		}
		return tx.Availability.UpsertBatch(ctx, cells)
	})
	if err != nil {
		s.logger.Error("删除教室关闭失败", zap.String("closure_id", closureID), zap.Error(err))
		return err
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// ICS 导入
// ════════════════════════════════════════════════════════════

func (s *availabilityService) ImportICS(ctx context.Context, teacherID string, r io.Reader, callerID string) (*dto.ICSImportResponse, error) {
	if _, err := s.resolveEntity(ctx, string(model.EntityTeacher), teacherID); err != nil {
		return nil, err
	}

	busy, err := parseBusyCalendar(r, s.calendar.Location(), s.calendar.Start(), s.calendar.End())
	if err != nil {
		return nil, invalidField("file", err.Error())
	}

	slots, err := activeSlots(ctx, s.repo)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	seen := make(map[[3]int]bool)
	var cells []model.AvailabilityCell
	var keys []string
	for _, b := range busy {
		for _, c := range s.busyCells(b, slots) {
			if seen[c] {
				continue
			}
			seen[c] = true
			keys = append(keys, weekLockKey(c[0]))
			cells = append(cells, model.AvailabilityCell{
				EntityKind: model.EntityTeacher, EntityID: teacherID,
				Week: c[0], Day: model.Weekday(c[1]), Slot: c[2],
				Available: false,
				UpdatedAt: now, UpdatedBy: &callerID,
			})
		}
	}

	resp := &dto.ICSImportResponse{Events: len(busy)}
	if len(cells) > 0 {
		if err := s.importCells(ctx, keys, cells, resp); err != nil {
			s.logger.Error("导入教师日历失败", zap.String("teacher_id", teacherID), zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("导入教师日历",
		zap.String("teacher_id", teacherID),
		zap.Int("events", len(busy)),
		zap.Int("cells", resp.AffectedCells),
		zap.Int("skipped", resp.SkippedCells),
	)
	return resp, nil
}

// importCells 已有课次占用的格子保留原值，其余写入
func (s *availabilityService) importCells(ctx context.Context, keys []string, cells []model.AvailabilityCell, resp *dto.ICSImportResponse) error {
	unlock, err := s.locker.Lock(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	occupied, err := s.occupiedCells(ctx, cells)
	if err != nil {
		return err
	}
	free := make([]model.AvailabilityCell, 0, len(cells))
	for i := range cells {
		ids := occupied[[3]int{cells[i].Week, int(cells[i].Day), cells[i].Slot}]
		if len(ids) > 0 {
			resp.SkippedCells++
			resp.SessionIDs = append(resp.SessionIDs, ids...)
			continue
		}
		free = append(free, cells[i])
	}
	resp.AffectedCells = len(free)
	if len(free) == 0 {
		return nil
	}

	return s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Availability.UpsertBatch(ctx, free)
	})
}

// busyCells 忙碌区间覆盖的 (week, day, slot)；跨天的区间按天切分
func (s *availabilityService) busyCells(b busyInterval, slots []model.TimeSlot) [][3]int {
	loc := s.calendar.Location()
	var out [][3]int
	for day := dateOnly(b.Start, loc); day.Before(b.End); day = day.AddDate(0, 0, 1) {
		week, wd, ok := s.calendar.CellOf(day)
		if !ok {
			continue
		}
		from, to := b.Start, b.End
		if from.Before(day) {
			from = day
		}
		next := day.AddDate(0, 0, 1)
		endClock := "24:00"
		if to.Before(next) {
			endClock = to.In(loc).Format("15:04")
		}
		startClock := from.In(loc).Format("15:04")

		for i := range slots {
			if slots[i].StartTime < endClock && startClock < slots[i].EndTime {
				out = append(out, [3]int{week, int(wd), slots[i].SlotIndex})
			}
		}
	}
	return out
}

// ── 内部辅助方法 ──

func (s *availabilityService) defaultAvailable() bool {
	return s.policy != PolicyStrict
}

// resolveEntity 校验主体类型并确认主体存在
func (s *availabilityService) resolveEntity(ctx context.Context, kind, id string) (model.EntityKind, error) {
	k := model.EntityKind(kind)
	switch k {
	case model.EntityTeacher:
		if _, err := s.repo.Teacher.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrTeacherNotFound
			}
			return "", err
		}
	case model.EntityRoom:
		if _, err := s.repo.Room.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrRoomNotFound
			}
			return "", err
		}
	default:
		return "", ErrUnknownEntityKind
	}
	return k, nil
}

func (s *availabilityService) checkCell(ctx context.Context, req *dto.CellRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	slots, err := activeSlots(ctx, s.repo)
	if err != nil {
		return err
	}
	return s.calendar.checkCell(req.Week, req.Day, req.Slot, slots)
}

func (s *availabilityService) resolveDays(days []int) ([]model.Weekday, error) {
	if len(days) == 0 {
		return s.calendar.Days(), nil
	}
	seen := make(map[int]bool, len(days))
	out := make([]model.Weekday, 0, len(days))
	for _, d := range days {
		if d > s.calendar.maxDay {
			return nil, invalidField("days", fmt.Sprintf("星期必须在 1-%d 之间", s.calendar.maxDay))
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, model.Weekday(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func resolveSlots(indexes []int, catalog []model.TimeSlot) ([]int, error) {
	if len(indexes) == 0 {
		out := make([]int, 0, len(catalog))
		for i := range catalog {
			out = append(out, catalog[i].SlotIndex)
		}
		return out, nil
	}
	seen := make(map[int]bool, len(indexes))
	out := make([]int, 0, len(indexes))
	for _, idx := range indexes {
		if findSlot(catalog, idx) == nil {
			return nil, invalidField("slots", fmt.Sprintf("时间段 %d 不存在或已停用", idx))
		}
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out, nil
}

// writeCells 持有相关周的锁后在一个事务内写入
func (s *availabilityService) writeCells(ctx context.Context, keys []string, cells []model.AvailabilityCell) error {
	unlock, err := s.locker.Lock(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.rejectOccupied(ctx, cells); err != nil {
		return err
	}
	return s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Availability.UpsertBatch(ctx, cells)
	})
}

// occupiedCells 要置为不可用的格子中，被主体已有课次占用的格子 → 课次 ID
// 调用方须持有相关周的锁；cells 属于同一主体
func (s *availabilityService) occupiedCells(ctx context.Context, cells []model.AvailabilityCell) (map[[3]int][]string, error) {
	wanted := make(map[[3]int]bool, len(cells))
	var kind model.EntityKind
	var id string
	from, to := 0, 0
	for i := range cells {
		c := &cells[i]
		if c.Available {
			continue
		}
		kind, id = c.EntityKind, c.EntityID
		wanted[[3]int{c.Week, int(c.Day), c.Slot}] = true
		if from == 0 || c.Week < from {
			from = c.Week
		}
		if c.Week > to {
			to = c.Week
		}
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	filter := repository.SessionFilter{WeekFrom: from, WeekTo: to, ActiveOnly: true}
	if kind == model.EntityRoom {
		filter.RoomID = id
	} else {
		filter.TeacherID = id
	}
	sessions, err := s.repo.Session.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询占用格子的课次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	occupied := make(map[[3]int][]string)
	for i := range sessions {
		ss := &sessions[i]
		k := [3]int{ss.Week, int(ss.Day), ss.Slot}
		if ss.Status.OccupiesCell() && wanted[k] {
			occupied[k] = append(occupied[k], ss.SessionID)
		}
	}
	return occupied, nil
}

// rejectOccupied 任一格子被已有课次占用时整体拒绝
func (s *availabilityService) rejectOccupied(ctx context.Context, cells []model.AvailabilityCell) error {
	occupied, err := s.occupiedCells(ctx, cells)
	if err != nil || len(occupied) == 0 {
		return err
	}

	var ids []string
	for _, list := range occupied {
		ids = append(ids, list...)
	}
	sort.Strings(ids)

	rule := dto.RuleTeacherUnavailable
	if cells[0].EntityKind == model.EntityRoom {
		rule = dto.RuleRoomUnavailable
	}
	return &ConflictError{Report: &dto.ConflictReport{Conflicts: []dto.Conflict{{
		Rule:       rule,
		Message:    fmt.Sprintf("%d 个格子已有课次，先调整课次再登记不可用", len(occupied)),
		SessionIDs: ids,
	}}}}
}

func (s *availabilityService) parseClosureDates(startStr, endStr string) (time.Time, time.Time, error) {
	loc := s.calendar.Location()
	start, err := time.ParseInLocation("2006-01-02", startStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, invalidField("start_date", "格式应为 2006-01-02")
	}
	end, err := time.ParseInLocation("2006-01-02", endStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, invalidField("end_date", "格式应为 2006-01-02")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, invalidField("end_date", "结束日期不能早于开始日期")
	}
	if end.Sub(start) > closureMaxDays*24*time.Hour {
		return time.Time{}, time.Time{}, invalidField("end_date", fmt.Sprintf("关闭时长不能超过 %d 天", closureMaxDays))
	}
	return start, end, nil
}

// closureCells 关闭日期范围内的全部格子；skip 返回 true 的日期不生成
func (s *availabilityService) closureCells(
	roomID string,
	start, end time.Time,
	slots []model.TimeSlot,
	available bool,
	callerID string,
	skip func(time.Time) bool,
) ([]model.AvailabilityCell, []string) {
	now := time.Now()
	var cells []model.AvailabilityCell
	var keys []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		week, day, ok := s.calendar.CellOf(d)
		if !ok || (skip != nil && skip(d)) {
			continue
		}
		keys = append(keys, weekLockKey(week))
		for i := range slots {
			cells = append(cells, model.AvailabilityCell{
				EntityKind: model.EntityRoom, EntityID: roomID,
				Week: week, Day: day, Slot: slots[i].SlotIndex,
				Available: available,
				UpdatedAt: now, UpdatedBy: &callerID,
			})
		}
	}
	return cells, keys
}

// dateOnly 取 t 在 loc 下的日期零点（date 列读回时为 UTC 零点）
func dateOnly(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func cellResponse(k model.EntityKind, id string, week, day, slot int, available bool) *dto.AvailabilityCellResponse {
	return &dto.AvailabilityCellResponse{
		Kind: string(k), EntityID: id,
		Week: week, Day: day, Slot: slot,
		Available: available,
	}
}

func toClosureResponse(c *model.RoomClosure, affected int) *dto.RoomClosureResponse {
	return &dto.RoomClosureResponse{
		ID:            c.ClosureID,
		RoomID:        c.RoomID,
		StartDate:     c.StartDate.Format("2006-01-02"),
		EndDate:       c.EndDate.Format("2006-01-02"),
		Reason:        c.Reason,
		AffectedCells: affected,
		CreatedAt:     fmtTime(c.CreatedAt),
	}
}
