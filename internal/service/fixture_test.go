package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campus-planning/backend/config"
	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
)

// ── 测试辅助 ──

// testPlanning 一套基于内存仓储的完整排课服务
type testPlanning struct {
	cfg    *config.Config
	repos  *testRepos
	repo   *repository.Repository
	locker Locker
	svc    *Service
}

// 学期第 1 周周一为 2025-09-01
func testPlanningConfig(policy string) *config.Config {
	return &config.Config{
		Planning: config.PlanningConfig{
			TermStart:          "2025-09-01",
			Weeks:              16,
			MaxDay:             6,
			AvailabilityPolicy: policy,
			IdempotencyTTL:     time.Hour,
			LockTTL:            time.Second,
		},
	}
}

func setupTestPlanning(policy string) *testPlanning {
	cfg := testPlanningConfig(policy)
	repos := newTestRepos()
	repo := repos.toRepository()
	locker := NewLocalLocker(time.Second)
	svc := NewService(cfg, repo, locker, NewMemoryIdempotencyStore(time.Hour), nil, zap.NewNop())

	// 时间段：1=08-10 2=10-12 3=14-16 4=16-18
	for i, sl := range [][2]string{{"08:00", "10:00"}, {"10:00", "12:00"}, {"14:00", "16:00"}, {"16:00", "18:00"}} {
		_ = repos.timeSlot.Create(context.Background(), &model.TimeSlot{
			TimeSlotID: uuid.NewString(),
			SlotIndex:  i + 1,
			Label:      sl[0] + "-" + sl[1],
			StartTime:  sl[0],
			EndTime:    sl[1],
			IsActive:   true,
		})
	}

	return &testPlanning{cfg: cfg, repos: repos, repo: repo, locker: locker, svc: svc}
}

func (p *testPlanning) addTeacher(name string) *model.Teacher {
	t := &model.Teacher{TeacherID: uuid.NewString(), Name: name, Email: uuid.NewString()[:8] + "@univ.example"}
	_ = p.repos.teacher.Create(context.Background(), t)
	return t
}

func (p *testPlanning) addGroup(name string, headcount int, parent *model.Group) *model.Group {
	g := &model.Group{GroupID: uuid.NewString(), Name: name, Semester: 1, Program: model.ProgramTC, Headcount: headcount}
	if parent != nil {
		g.ParentID = &parent.GroupID
	}
	_ = p.repos.group.Create(context.Background(), g)
	return g
}

func (p *testPlanning) addRoom(name string, typ model.RoomType, capacity int) *model.Room {
	r := &model.Room{RoomID: uuid.NewString(), Name: name, Type: typ, Capacity: capacity}
	_ = p.repos.room.Create(context.Background(), r)
	return r
}

// addCourse 课程本身形式为 typ，extra 为额外开设的形式（各 10 小时）
func (p *testPlanning) addCourse(code string, typ model.CourseType, extra ...model.CourseType) *model.Course {
	c := &model.Course{
		CourseID:   uuid.NewString(),
		Code:       code,
		Name:       "Cours " + code,
		Credits:    3,
		Semester:   1,
		Program:    model.ProgramTC,
		TotalHours: 30,
		Type:       typ,
	}
	for _, t := range extra {
		c.Loads = append(c.Loads, model.CourseLoad{CourseLoadID: uuid.NewString(), CourseID: c.CourseID, Type: t, Hours: 10})
	}
	_ = p.repos.course.Create(context.Background(), c)
	return c
}

// insertSession 绕过服务直接写入课次（用于构造已有数据）
func (p *testPlanning) insertSession(c *model.Course, t *model.Teacher, g *model.Group, r *model.Room, typ model.CourseType, week int, day model.Weekday, slot int) *model.Session {
	s := &model.Session{
		SessionID: uuid.NewString(),
		CourseID:  c.CourseID,
		TeacherID: t.TeacherID,
		GroupID:   g.GroupID,
		RoomID:    r.RoomID,
		Type:      typ,
		Week:      week,
		Day:       day,
		Slot:      slot,
		Status:    model.SessionScheduled,
	}
	p.repos.session.sessions[s.SessionID] = s
	return s
}

func candidate(c *model.Course, t *model.Teacher, g *model.Group, r *model.Room, typ model.CourseType, week int, day model.Weekday, slot int) *dto.SessionCandidate {
	return &dto.SessionCandidate{
		CourseID:  c.CourseID,
		TeacherID: t.TeacherID,
		GroupID:   g.GroupID,
		RoomID:    r.RoomID,
		Type:      string(typ),
		Week:      week,
		Day:       int(day),
		Slot:      slot,
	}
}

func ptr[T any](v T) *T { return &v }
