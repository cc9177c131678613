package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
	pkgerrors "campus-planning/backend/pkg/errors"
)

// ── 测试仓储聚合 ──

type testRepos struct {
	course       *mockCourseRepo
	teacher      *mockTeacherRepo
	group        *mockGroupRepo
	room         *mockRoomRepo
	closure      *mockRoomClosureRepo
	timeSlot     *mockTimeSlotRepo
	session      *mockSessionRepo
	changeLog    *mockChangeLogRepo
	availability *mockAvailabilityRepo
}

func newTestRepos() *testRepos {
	r := &testRepos{
		course:       newMockCourseRepo(),
		teacher:      newMockTeacherRepo(),
		group:        newMockGroupRepo(),
		room:         newMockRoomRepo(),
		closure:      newMockRoomClosureRepo(),
		timeSlot:     newMockTimeSlotRepo(),
		changeLog:    newMockChangeLogRepo(),
		availability: newMockAvailabilityRepo(),
	}
	r.session = newMockSessionRepo(r)
	return r
}

func (r *testRepos) toRepository() *repository.Repository {
	repo := &repository.Repository{
		Course:       r.course,
		Teacher:      r.teacher,
		Group:        r.group,
		Room:         r.room,
		RoomClosure:  r.closure,
		TimeSlot:     r.timeSlot,
		Session:      r.session,
		ChangeLog:    r.changeLog,
		Availability: r.availability,
	}
	repo.Tx = &mockTxManager{repos: r, repo: repo}
	return repo
}

// ── Mock TxManager ──
// 失败时恢复课次、变更日志、可用性与关闭记录，模拟事务回滚

type mockTxManager struct {
	repos *testRepos
	repo  *repository.Repository
}

func (m *mockTxManager) Transaction(_ context.Context, fn func(repo *repository.Repository) error) error {
	sessions := make(map[string]model.Session, len(m.repos.session.sessions))
	for k, v := range m.repos.session.sessions {
		sessions[k] = *v
	}
	logs := append([]model.SessionChangeLog(nil), m.repos.changeLog.logs...)
	cells := make(map[availKey]model.AvailabilityCell, len(m.repos.availability.cells))
	for k, v := range m.repos.availability.cells {
		cells[k] = v
	}
	closures := make(map[string]model.RoomClosure, len(m.repos.closure.closures))
	for k, v := range m.repos.closure.closures {
		closures[k] = *v
	}

	if err := fn(m.repo); err != nil {
		m.repos.session.sessions = make(map[string]*model.Session, len(sessions))
		for k, v := range sessions {
			v := v
			m.repos.session.sessions[k] = &v
		}
		m.repos.changeLog.logs = logs
		m.repos.availability.cells = cells
		m.repos.closure.closures = make(map[string]*model.RoomClosure, len(closures))
		for k, v := range closures {
			v := v
			m.repos.closure.closures[k] = &v
		}
		return err
	}
	return nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[string]*model.Course
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	for _, c := range m.courses {
		if c.Code == course.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *course
	m.courses[course.CourseID] = &cp
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) GetByCode(_ context.Context, code string) (*model.Course, error) {
	for _, c := range m.courses {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) List(_ context.Context, filter repository.CourseFilter, offset, limit int) ([]model.Course, int64, error) {
	var result []model.Course
	for _, c := range m.courses {
		if filter.Program != "" && string(c.Program) != filter.Program {
			continue
		}
		if filter.Semester > 0 && c.Semester != filter.Semester {
			continue
		}
		if filter.Type != "" && string(c.Type) != filter.Type {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(c.Code+" "+c.Name, filter.Keyword) {
			continue
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return page(result, offset, limit), int64(len(result)), nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	cp := *course
	m.courses[course.CourseID] = &cp
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) CountAssignmentRefs(_ context.Context, teacherID, groupID string) (int64, error) {
	var n int64
	for _, c := range m.courses {
		for _, a := range c.Assignments {
			if teacherID != "" && a.TeacherID != teacherID {
				continue
			}
			if groupID != "" && (a.GroupID == nil || *a.GroupID != groupID) {
				continue
			}
			n++
		}
	}
	return n, nil
}

// ── Mock TeacherRepository ──

type mockTeacherRepo struct {
	teachers map[string]*model.Teacher
}

func newMockTeacherRepo() *mockTeacherRepo {
	return &mockTeacherRepo{teachers: make(map[string]*model.Teacher)}
}

func (m *mockTeacherRepo) Create(_ context.Context, teacher *model.Teacher) error {
	cp := *teacher
	m.teachers[teacher.TeacherID] = &cp
	return nil
}

func (m *mockTeacherRepo) GetByID(_ context.Context, id string) (*model.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeacherRepo) GetByEmail(_ context.Context, email string) (*model.Teacher, error) {
	for _, t := range m.teachers {
		if strings.EqualFold(t.Email, email) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeacherRepo) List(_ context.Context, keyword string, offset, limit int) ([]model.Teacher, int64, error) {
	var result []model.Teacher
	for _, t := range m.teachers {
		if keyword != "" && !strings.Contains(t.Name+" "+t.Email, keyword) {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return page(result, offset, limit), int64(len(result)), nil
}

func (m *mockTeacherRepo) Update(_ context.Context, teacher *model.Teacher) error {
	cp := *teacher
	m.teachers[teacher.TeacherID] = &cp
	return nil
}

func (m *mockTeacherRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.teachers, id)
	return nil
}

// ── Mock GroupRepository ──

type mockGroupRepo struct {
	groups map[string]*model.Group
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{groups: make(map[string]*model.Group)}
}

func (m *mockGroupRepo) Create(_ context.Context, group *model.Group) error {
	cp := *group
	cp.Parent = nil
	m.groups[group.GroupID] = &cp
	return nil
}

func (m *mockGroupRepo) GetByID(_ context.Context, id string) (*model.Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *g
	if g.ParentID != nil {
		if p, ok := m.groups[*g.ParentID]; ok {
			pc := *p
			cp.Parent = &pc
		}
	}
	return &cp, nil
}

func (m *mockGroupRepo) GetByName(_ context.Context, name string) (*model.Group, error) {
	for _, g := range m.groups {
		if g.Name == name {
			cp := *g
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGroupRepo) List(ctx context.Context, filter repository.GroupFilter, offset, limit int) ([]model.Group, int64, error) {
	all, _ := m.ListAll(ctx)
	var result []model.Group
	for _, g := range all {
		if filter.Program != "" && string(g.Program) != filter.Program {
			continue
		}
		if filter.Semester > 0 && g.Semester != filter.Semester {
			continue
		}
		if filter.ParentID != "" && (g.ParentID == nil || *g.ParentID != filter.ParentID) {
			continue
		}
		result = append(result, g)
	}
	return page(result, offset, limit), int64(len(result)), nil
}

func (m *mockGroupRepo) ListAll(_ context.Context) ([]model.Group, error) {
	result := make([]model.Group, 0, len(m.groups))
	for _, g := range m.groups {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockGroupRepo) ListChildren(_ context.Context, parentID string) ([]model.Group, error) {
	var result []model.Group
	for _, g := range m.groups {
		if g.ParentID != nil && *g.ParentID == parentID {
			result = append(result, *g)
		}
	}
	return result, nil
}

func (m *mockGroupRepo) Update(_ context.Context, group *model.Group) error {
	cp := *group
	cp.Parent = nil
	m.groups[group.GroupID] = &cp
	return nil
}

func (m *mockGroupRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.groups, id)
	return nil
}

// ── Mock RoomRepository ──

type mockRoomRepo struct {
	rooms map[string]*model.Room
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{rooms: make(map[string]*model.Room)}
}

func (m *mockRoomRepo) Create(_ context.Context, room *model.Room) error {
	cp := *room
	m.rooms[room.RoomID] = &cp
	return nil
}

func (m *mockRoomRepo) GetByID(_ context.Context, id string) (*model.Room, error) {
	if r, ok := m.rooms[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomRepo) List(_ context.Context, filter repository.RoomFilter, offset, limit int) ([]model.Room, int64, error) {
	var result []model.Room
	for _, r := range m.rooms {
		if filter.Type != "" && string(r.Type) != filter.Type {
			continue
		}
		if filter.MinCapacity > 0 && r.Capacity < filter.MinCapacity {
			continue
		}
		if filter.Building != "" && r.Building != filter.Building {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return page(result, offset, limit), int64(len(result)), nil
}

func (m *mockRoomRepo) Update(_ context.Context, room *model.Room) error {
	cp := *room
	m.rooms[room.RoomID] = &cp
	return nil
}

func (m *mockRoomRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.rooms, id)
	return nil
}

// ── Mock RoomClosureRepository ──

type mockRoomClosureRepo struct {
	closures map[string]*model.RoomClosure
}

func newMockRoomClosureRepo() *mockRoomClosureRepo {
	return &mockRoomClosureRepo{closures: make(map[string]*model.RoomClosure)}
}

func (m *mockRoomClosureRepo) Create(_ context.Context, closure *model.RoomClosure) error {
	cp := *closure
	m.closures[closure.ClosureID] = &cp
	return nil
}

func (m *mockRoomClosureRepo) GetByID(_ context.Context, id string) (*model.RoomClosure, error) {
	if c, ok := m.closures[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomClosureRepo) ListByRoom(_ context.Context, roomID string) ([]model.RoomClosure, error) {
	var result []model.RoomClosure
	for _, c := range m.closures {
		if c.RoomID == roomID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.Before(result[j].StartDate) })
	return result, nil
}

func (m *mockRoomClosureRepo) ListOverlapping(_ context.Context, roomID string, start, end time.Time) ([]model.RoomClosure, error) {
	var result []model.RoomClosure
	for _, c := range m.closures {
		if c.RoomID == roomID && !c.StartDate.After(end) && !c.EndDate.Before(start) {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockRoomClosureRepo) Delete(_ context.Context, id string) error {
	delete(m.closures, id)
	return nil
}

// ── Mock TimeSlotRepository ──

type mockTimeSlotRepo struct {
	slots map[string]*model.TimeSlot
}

func newMockTimeSlotRepo() *mockTimeSlotRepo {
	return &mockTimeSlotRepo{slots: make(map[string]*model.TimeSlot)}
}

func (m *mockTimeSlotRepo) Create(_ context.Context, slot *model.TimeSlot) error {
	for _, s := range m.slots {
		if s.SlotIndex == slot.SlotIndex {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *slot
	if cp.Version == 0 {
		cp.Version = 1
	}
	m.slots[slot.TimeSlotID] = &cp
	return nil
}

func (m *mockTimeSlotRepo) BatchCreate(ctx context.Context, slots []model.TimeSlot) error {
	for i := range slots {
		if err := m.Create(ctx, &slots[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockTimeSlotRepo) GetByID(_ context.Context, id string) (*model.TimeSlot, error) {
	if s, ok := m.slots[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTimeSlotRepo) GetByIndex(_ context.Context, index int) (*model.TimeSlot, error) {
	for _, s := range m.slots {
		if s.SlotIndex == index {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTimeSlotRepo) List(_ context.Context, includeInactive bool) ([]model.TimeSlot, error) {
	var result []model.TimeSlot
	for _, s := range m.slots {
		if !includeInactive && !s.IsActive {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SlotIndex < result[j].SlotIndex })
	return result, nil
}

func (m *mockTimeSlotRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.slots)), nil
}

func (m *mockTimeSlotRepo) Update(_ context.Context, slot *model.TimeSlot) error {
	cur, ok := m.slots[slot.TimeSlotID]
	if !ok || cur.Version != slot.Version {
		return pkgerrors.ErrOptimisticLock
	}
	slot.Version++
	cp := *slot
	m.slots[slot.TimeSlotID] = &cp
	return nil
}

func (m *mockTimeSlotRepo) Delete(_ context.Context, id string) error {
	delete(m.slots, id)
	return nil
}

// ── Mock SessionRepository ──
// Create / Update 模拟存储层部分唯一索引：有效课次的教师 / 教室 / 班组同格唯一

type mockSessionRepo struct {
	sessions map[string]*model.Session
	refs     *testRepos
}

func newMockSessionRepo(refs *testRepos) *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session), refs: refs}
}

func (m *mockSessionRepo) violatesUnique(s *model.Session) bool {
	if !s.Status.OccupiesCell() {
		return false
	}
	for _, o := range m.sessions {
		if o.SessionID == s.SessionID || !o.Status.OccupiesCell() || !o.SameCell(s.Week, s.Day, s.Slot) {
			continue
		}
		if o.TeacherID == s.TeacherID || o.RoomID == s.RoomID || o.GroupID == s.GroupID {
			return true
		}
	}
	return false
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.Session) error {
	if m.violatesUnique(session) {
		return gorm.ErrDuplicatedKey
	}
	cp := *session
	cp.Course, cp.Teacher, cp.Group, cp.Room = nil, nil, nil, nil
	if cp.Version == 0 {
		cp.Version = 1
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
		cp.UpdatedAt = cp.CreatedAt
	}
	m.sessions[session.SessionID] = &cp
	return nil
}

func (m *mockSessionRepo) hydrate(s model.Session) model.Session {
	if c, ok := m.refs.course.courses[s.CourseID]; ok {
		cp := *c
		s.Course = &cp
	}
	if t, ok := m.refs.teacher.teachers[s.TeacherID]; ok {
		cp := *t
		s.Teacher = &cp
	}
	if g, ok := m.refs.group.groups[s.GroupID]; ok {
		cp := *g
		s.Group = &cp
	}
	if r, ok := m.refs.room.rooms[s.RoomID]; ok {
		cp := *r
		s.Room = &cp
	}
	return s
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	h := m.hydrate(*s)
	return &h, nil
}

func (m *mockSessionRepo) List(_ context.Context, f repository.SessionFilter) ([]model.Session, error) {
	groups := make(map[string]bool, len(f.GroupIDs))
	for _, id := range f.GroupIDs {
		groups[id] = true
	}

	var result []model.Session
	for _, s := range m.sessions {
		switch {
		case f.Week > 0 && s.Week != f.Week,
			f.WeekFrom > 0 && s.Week < f.WeekFrom,
			f.WeekTo > 0 && s.Week > f.WeekTo,
			f.Day > 0 && int(s.Day) != f.Day,
			f.Slot > 0 && s.Slot != f.Slot,
			f.CourseID != "" && s.CourseID != f.CourseID,
			f.TeacherID != "" && s.TeacherID != f.TeacherID,
			f.RoomID != "" && s.RoomID != f.RoomID,
			len(groups) > 0 && !groups[s.GroupID],
			f.Status != "" && s.Status != f.Status,
			f.ActiveOnly && s.Status == model.SessionCancelled:
			continue
		}
		result = append(result, m.hydrate(*s))
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Week != b.Week {
			return a.Week < b.Week
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.SessionID < b.SessionID
	})
	return result, nil
}

func (m *mockSessionRepo) ListPage(ctx context.Context, f repository.SessionFilter, offset, limit int) ([]model.Session, int64, error) {
	all, _ := m.List(ctx, f)
	return page(all, offset, limit), int64(len(all)), nil
}

func (m *mockSessionRepo) Update(_ context.Context, session *model.Session) error {
	cur, ok := m.sessions[session.SessionID]
	if !ok || cur.Version != session.Version {
		return pkgerrors.ErrOptimisticLock
	}
	if m.violatesUnique(session) {
		return gorm.ErrDuplicatedKey
	}
	session.Version++
	cp := *session
	cp.Course, cp.Teacher, cp.Group, cp.Room = nil, nil, nil, nil
	cp.UpdatedAt = time.Now()
	m.sessions[session.SessionID] = &cp
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteByIDs(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(m.sessions, id)
	}
	return nil
}

// ── Mock SessionChangeLogRepository ──

type mockChangeLogRepo struct {
	logs []model.SessionChangeLog
}

func newMockChangeLogRepo() *mockChangeLogRepo {
	return &mockChangeLogRepo{}
}

func (m *mockChangeLogRepo) Create(_ context.Context, log *model.SessionChangeLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockChangeLogRepo) List(_ context.Context, sessionID string, offset, limit int) ([]model.SessionChangeLog, int64, error) {
	var result []model.SessionChangeLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		if sessionID == "" || m.logs[i].SessionID == sessionID {
			result = append(result, m.logs[i])
		}
	}
	return page(result, offset, limit), int64(len(result)), nil
}

func (m *mockChangeLogRepo) byType(changeType string) []model.SessionChangeLog {
	var result []model.SessionChangeLog
	for _, l := range m.logs {
		if l.ChangeType == changeType {
			result = append(result, l)
		}
	}
	return result
}

// ── Mock AvailabilityRepository ──

type availKey struct {
	kind model.EntityKind
	id   string
	week int
	day  model.Weekday
	slot int
}

type mockAvailabilityRepo struct {
	cells map[availKey]model.AvailabilityCell
}

func newMockAvailabilityRepo() *mockAvailabilityRepo {
	return &mockAvailabilityRepo{cells: make(map[availKey]model.AvailabilityCell)}
}

func (m *mockAvailabilityRepo) Get(_ context.Context, kind model.EntityKind, id string, week int, day model.Weekday, slot int) (*model.AvailabilityCell, error) {
	c, ok := m.cells[availKey{kind, id, week, day, slot}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (m *mockAvailabilityRepo) ListByWeek(_ context.Context, kind model.EntityKind, id string, week int) ([]model.AvailabilityCell, error) {
	var result []model.AvailabilityCell
	for k, c := range m.cells {
		if k.kind == kind && k.id == id && k.week == week {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockAvailabilityRepo) Upsert(_ context.Context, cell *model.AvailabilityCell) error {
	m.cells[availKey{cell.EntityKind, cell.EntityID, cell.Week, cell.Day, cell.Slot}] = *cell
	return nil
}

func (m *mockAvailabilityRepo) UpsertBatch(ctx context.Context, cells []model.AvailabilityCell) error {
	for i := range cells {
		_ = m.Upsert(ctx, &cells[i])
	}
	return nil
}

func (m *mockAvailabilityRepo) DeleteByEntity(_ context.Context, kind model.EntityKind, id string) error {
	for k := range m.cells {
		if k.kind == kind && k.id == id {
			delete(m.cells, k)
		}
	}
	return nil
}

// set 直接写入一个格子
func (m *mockAvailabilityRepo) set(kind model.EntityKind, id string, week int, day model.Weekday, slot int, available bool) {
	m.cells[availKey{kind, id, week, day, slot}] = model.AvailabilityCell{
		EntityKind: kind, EntityID: id, Week: week, Day: day, Slot: slot, Available: available,
	}
}

// ── 辅助 ──

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
