package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/model"
	pkgerrors "campus-planning/backend/pkg/errors"
)

// ── 场景：教师撞课与移动释放格子 ──

func TestAssignmentService_TeacherDoubleBooking_ThenMoveFreesCell(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	teacher := p.addTeacher("Dupont")
	group := p.addGroup("G1", 15, nil)
	other := p.addGroup("G2", 15, nil)
	room := p.addRoom("TP 101", model.RoomTypeSalleTP, 20)
	room2 := p.addRoom("TP 102", model.RoomTypeSalleTP, 20)
	course := p.addCourse("INF101", model.CourseTypeTP)

	a, err := p.svc.Assignment.Create(ctx, candidate(course, teacher, group, room, model.CourseTypeTP, 3, model.Tuesday, 3), "", "admin")
	if err != nil {
		t.Fatalf("创建课次 A 应成功: %v", err)
	}
	if a.Status != string(model.SessionScheduled) || a.Version != 1 {
		t.Errorf("期望 scheduled / version=1，实际=%s / %d", a.Status, a.Version)
	}

	_, err = p.svc.Assignment.Create(ctx, candidate(course, teacher, other, room2, model.CourseTypeTP, 3, model.Tuesday, 3), "", "admin")
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("期望 ConflictError，实际: %v", err)
	}
	if !ce.Report.HasRule(dto.RuleTeacherDoubleBooking) {
		t.Errorf("期望包含教师撞课，实际=%+v", ce.Report.Conflicts)
	}
	if len(ce.Report.Conflicts) != 1 || len(ce.Report.Conflicts[0].SessionIDs) != 1 || ce.Report.Conflicts[0].SessionIDs[0] != a.ID {
		t.Errorf("期望唯一冲突指向课次 A，实际=%+v", ce.Report.Conflicts)
	}
	if len(p.repos.session.sessions) != 1 {
		t.Fatalf("冲突时不应写入，实际课次数=%d", len(p.repos.session.sessions))
	}

	moved, err := p.svc.Assignment.Move(ctx, a.ID, &dto.MoveSessionRequest{Week: 3, Day: int(model.Tuesday), Slot: 4}, "", "admin")
	if err != nil {
		t.Fatalf("移动课次 A 应成功: %v", err)
	}
	if moved.Slot != 4 || moved.Version != 2 {
		t.Errorf("期望 slot=4 version=2，实际 slot=%d version=%d", moved.Slot, moved.Version)
	}

	grid, err := p.svc.Timetable.Project(ctx, 3, WeekFilter{})
	if err != nil {
		t.Fatalf("Project 应成功: %v", err)
	}
	tuesday := grid.Days[int(model.Tuesday)-1]
	if n := len(tuesday.Cells[2].Sessions); n != 0 {
		t.Errorf("原格子应已释放，实际 %d 个课次", n)
	}
	if n := len(tuesday.Cells[3].Sessions); n != 1 || tuesday.Cells[3].Sessions[0].ID != a.ID {
		t.Errorf("课次 A 应出现在 16:00-18:00，实际=%+v", tuesday.Cells[3].Sessions)
	}

	if _, err := p.svc.Assignment.Create(ctx, candidate(course, teacher, other, room2, model.CourseTypeTP, 3, model.Tuesday, 3), "", "admin"); err != nil {
		t.Errorf("格子释放后创建课次 B 应成功: %v", err)
	}
}

// ── 场景：TP 课不能排进阶梯教室 ──

func TestAssignmentService_Create_TPInAmphiRejected(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)

	amphi := p.addRoom("Amphi A", model.RoomTypeAmphi, 200)
	course := p.addCourse("INF102", model.CourseTypeCM, model.CourseTypeTP)

	_, err := p.svc.Assignment.Create(context.Background(),
		candidate(course, p.addTeacher("Martin"), p.addGroup("G1", 30, nil), amphi, model.CourseTypeTP, 1, model.Monday, 1), "", "admin")

	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("期望 ConflictError，实际: %v", err)
	}
	if !ce.Report.HasRule(dto.RuleRoomTypeMismatch) {
		t.Errorf("期望教室类型冲突，实际=%+v", ce.Report.Conflicts)
	}
}

// ── 冲突检测：一次报告全部违规 ──

func TestAssignmentService_Check_ReportsEveryViolation(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	teacher := p.addTeacher("Bernard")
	group := p.addGroup("G1", 50, nil)
	room := p.addRoom("Amphi B", model.RoomTypeAmphi, 40)
	course := p.addCourse("MAT101", model.CourseTypeCM, model.CourseTypeTD)

	p.insertSession(course, teacher, group, room, model.CourseTypeCM, 2, model.Monday, 1)
	p.repos.availability.set(model.EntityTeacher, teacher.TeacherID, 2, model.Monday, 1, false)
	p.repos.availability.set(model.EntityRoom, room.RoomID, 2, model.Monday, 1, false)

	report, err := p.svc.Assignment.Check(ctx, candidate(course, teacher, group, room, model.CourseTypeTD, 2, model.Monday, 1))
	if err != nil {
		t.Fatalf("Check 应成功: %v", err)
	}
	if report.OK {
		t.Fatal("期望 OK=false")
	}
	want := []string{
		dto.RuleTeacherDoubleBooking,
		dto.RuleRoomDoubleBooking,
		dto.RuleGroupDoubleBooking,
		dto.RuleRoomTypeMismatch,
		dto.RuleRoomCapacity,
		dto.RuleTeacherUnavailable,
		dto.RuleRoomUnavailable,
	}
	if len(report.Conflicts) != len(want) {
		t.Fatalf("期望 %d 条冲突，实际=%+v", len(want), report.Conflicts)
	}
	for i, rule := range want {
		if report.Conflicts[i].Rule != rule {
			t.Errorf("第 %d 条期望 %s，实际=%s", i, rule, report.Conflicts[i].Rule)
		}
	}
	if len(p.repos.session.sessions) != 1 {
		t.Error("Check 不应写入")
	}
}

func TestAssignmentService_Check_CapacityUsesCourseMinimum(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)

	course := p.addCourse("PHY101", model.CourseTypeTD)
	course.MinCapacity = 35
	_ = p.repos.course.Update(context.Background(), course)

	report, err := p.svc.Assignment.Check(context.Background(),
		candidate(course, p.addTeacher("Petit"), p.addGroup("G1", 20, nil), p.addRoom("TD 1", model.RoomTypeSalleTD, 30), model.CourseTypeTD, 1, model.Monday, 1))
	if err != nil {
		t.Fatalf("Check 应成功: %v", err)
	}
	if !report.HasRule(dto.RuleRoomCapacity) || len(report.Conflicts) != 1 {
		t.Errorf("期望仅容量冲突，实际=%+v", report.Conflicts)
	}
}

// ── 班组层级 ──

func TestAssignmentService_Create_GroupLineageConflict(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	parent := p.addGroup("G1", 60, nil)
	childA := p.addGroup("G1-A", 30, parent)
	childB := p.addGroup("G1-B", 30, parent)
	course := p.addCourse("INF201", model.CourseTypeCM, model.CourseTypeTD)

	if _, err := p.svc.Assignment.Create(ctx,
		candidate(course, p.addTeacher("Roux"), childA, p.addRoom("TD 1", model.RoomTypeSalleTD, 40), model.CourseTypeTD, 4, model.Wednesday, 2), "", "admin"); err != nil {
		t.Fatalf("子班组 A 的课次应成功: %v", err)
	}

	// 兄弟班组互不冲突
	if _, err := p.svc.Assignment.Create(ctx,
		candidate(course, p.addTeacher("Morel"), childB, p.addRoom("TD 2", model.RoomTypeSalleTD, 40), model.CourseTypeTD, 4, model.Wednesday, 2), "", "admin"); err != nil {
		t.Fatalf("兄弟班组的课次应成功: %v", err)
	}

	// 父班组与两个子班组都冲突
	_, err := p.svc.Assignment.Create(ctx,
		candidate(course, p.addTeacher("Fournier"), parent, p.addRoom("Amphi C", model.RoomTypeAmphi, 100), model.CourseTypeCM, 4, model.Wednesday, 2), "", "admin")
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("期望 ConflictError，实际: %v", err)
	}
	if !ce.Report.HasRule(dto.RuleGroupDoubleBooking) {
		t.Fatalf("期望班组撞课，实际=%+v", ce.Report.Conflicts)
	}
	if n := len(ce.Report.Conflicts[0].SessionIDs); n != 2 {
		t.Errorf("期望与 2 个子班组课次冲突，实际 %d", n)
	}
}

// ── 移动 ──

func TestAssignmentService_Move_SameCellOtherRoom(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	course := p.addCourse("INF301", model.CourseTypeCM)
	s, err := p.svc.Assignment.Create(ctx,
		candidate(course, p.addTeacher("Girard"), p.addGroup("G1", 30, nil), p.addRoom("Amphi A", model.RoomTypeAmphi, 100), model.CourseTypeCM, 5, model.Friday, 1), "", "admin")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	newRoom := p.addRoom("Amphi B", model.RoomTypeAmphi, 100)
	moved, err := p.svc.Assignment.Move(ctx, s.ID, &dto.MoveSessionRequest{Week: 5, Day: int(model.Friday), Slot: 1, RoomID: &newRoom.RoomID}, "", "admin")
	if err != nil {
		t.Fatalf("同格换教室不应与自身冲突: %v", err)
	}
	if moved.RoomID != newRoom.RoomID {
		t.Errorf("期望教室=%s，实际=%s", newRoom.RoomID, moved.RoomID)
	}

	logs := p.repos.changeLog.byType(model.ChangeMove)
	if len(logs) != 1 || *logs[0].OldRoomID != s.RoomID || *logs[0].NewRoomID != newRoom.RoomID {
		t.Errorf("期望一条移动日志记录新旧教室，实际=%+v", logs)
	}
}

func TestAssignmentService_Move_ConflictLeavesSessionUnchanged(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	teacher := p.addTeacher("Lambert")
	room := p.addRoom("Amphi A", model.RoomTypeAmphi, 100)
	course := p.addCourse("INF302", model.CourseTypeCM)

	if _, err := p.svc.Assignment.Create(ctx, candidate(course, teacher, p.addGroup("G1", 30, nil), room, model.CourseTypeCM, 6, model.Monday, 1), "", "admin"); err != nil {
		t.Fatalf("Create A 应成功: %v", err)
	}
	b, err := p.svc.Assignment.Create(ctx, candidate(course, teacher, p.addGroup("G2", 30, nil), room, model.CourseTypeCM, 6, model.Monday, 2), "", "admin")
	if err != nil {
		t.Fatalf("Create B 应成功: %v", err)
	}

	_, err = p.svc.Assignment.Move(ctx, b.ID, &dto.MoveSessionRequest{Week: 6, Day: int(model.Monday), Slot: 1}, "", "admin")
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("期望 ConflictError，实际: %v", err)
	}

	after, _ := p.svc.Assignment.GetByID(ctx, b.ID)
	if after.Slot != 2 || after.Version != b.Version {
		t.Errorf("失败的移动不应修改课次，实际 slot=%d version=%d", after.Slot, after.Version)
	}
	if n := len(p.repos.changeLog.byType(model.ChangeMove)); n != 0 {
		t.Errorf("失败的移动不应写日志，实际 %d 条", n)
	}
}

func TestAssignmentService_Move_StaleVersion(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	course := p.addCourse("INF303", model.CourseTypeCM)
	s, _ := p.svc.Assignment.Create(ctx,
		candidate(course, p.addTeacher("Bonnet"), p.addGroup("G1", 30, nil), p.addRoom("Amphi A", model.RoomTypeAmphi, 100), model.CourseTypeCM, 7, model.Monday, 1), "", "admin")

	if _, err := p.svc.Assignment.Move(ctx, s.ID, &dto.MoveSessionRequest{Week: 7, Day: 2, Slot: 1, Version: ptr(s.Version)}, "", "admin"); err != nil {
		t.Fatalf("第一次移动应成功: %v", err)
	}
	_, err := p.svc.Assignment.Move(ctx, s.ID, &dto.MoveSessionRequest{Week: 7, Day: 3, Slot: 1, Version: ptr(s.Version)}, "", "admin")
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}

func TestAssignmentService_Move_CancelledNotMovable(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	course := p.addCourse("INF304", model.CourseTypeCM)
	s, _ := p.svc.Assignment.Create(ctx,
		candidate(course, p.addTeacher("Faure"), p.addGroup("G1", 30, nil), p.addRoom("Amphi A", model.RoomTypeAmphi, 100), model.CourseTypeCM, 8, model.Monday, 1), "", "admin")
	if _, err := p.svc.Assignment.UpdateStatus(ctx, s.ID, &dto.UpdateSessionStatusRequest{Status: "cancelled"}, "admin"); err != nil {
		t.Fatalf("取消应成功: %v", err)
	}

	_, err := p.svc.Assignment.Move(ctx, s.ID, &dto.MoveSessionRequest{Week: 8, Day: 2, Slot: 1}, "", "admin")
	if !errors.Is(err, ErrSessionNotMovable) {
		t.Errorf("期望 ErrSessionNotMovable，实际: %v", err)
	}
}

func TestAssignmentService_Move_NotFound(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)

	_, err := p.svc.Assignment.Move(context.Background(), "00000000-0000-0000-0000-000000000000",
		&dto.MoveSessionRequest{Week: 1, Day: 1, Slot: 1}, "", "admin")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际: %v", err)
	}
}

// ── 状态与删除 ──

func TestAssignmentService_UpdateStatus_Transitions(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	teacher := p.addTeacher("Mercier")
	group := p.addGroup("G1", 30, nil)
	room := p.addRoom("Amphi A", model.RoomTypeAmphi, 100)
	course := p.addCourse("INF305", model.CourseTypeCM)
	s, _ := p.svc.Assignment.Create(ctx, candidate(course, teacher, group, room, model.CourseTypeCM, 9, model.Monday, 1), "", "admin")

	_, err := p.svc.Assignment.UpdateStatus(ctx, s.ID, &dto.UpdateSessionStatusRequest{Status: "completed"}, "admin")
	if !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("scheduled → completed 期望 ErrInvalidStatusTransition，实际: %v", err)
	}

	resp, err := p.svc.Assignment.UpdateStatus(ctx, s.ID, &dto.UpdateSessionStatusRequest{Status: "cancelled"}, "admin")
	if err != nil {
		t.Fatalf("scheduled → cancelled 应成功: %v", err)
	}
	if resp.Status != "cancelled" {
		t.Errorf("期望 cancelled，实际=%s", resp.Status)
	}

	// 取消后格子空出
	if _, err := p.svc.Assignment.Create(ctx, candidate(course, teacher, group, room, model.CourseTypeCM, 9, model.Monday, 1), "", "admin"); err != nil {
		t.Errorf("取消后同格创建应成功: %v", err)
	}
}

func TestAssignmentService_Remove(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	course := p.addCourse("INF306", model.CourseTypeCM)
	s, _ := p.svc.Assignment.Create(ctx,
		candidate(course, p.addTeacher("Blanc"), p.addGroup("G1", 30, nil), p.addRoom("Amphi A", model.RoomTypeAmphi, 100), model.CourseTypeCM, 10, model.Monday, 1), "", "admin")

	if err := p.svc.Assignment.Remove(ctx, s.ID, "admin"); err != nil {
		t.Fatalf("Remove 应成功: %v", err)
	}
	if _, err := p.svc.Assignment.GetByID(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("删除后期望 ErrSessionNotFound，实际: %v", err)
	}
	if n := len(p.repos.changeLog.byType(model.ChangeRemove)); n != 1 {
		t.Errorf("期望 1 条删除日志，实际 %d", n)
	}
	if err := p.svc.Assignment.Remove(ctx, s.ID, "admin"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("重复删除期望 ErrSessionNotFound，实际: %v", err)
	}
}

// ── 校验与引用 ──

func TestAssignmentService_Create_Validation(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	teacher := p.addTeacher("Garnier")
	group := p.addGroup("G1", 30, nil)
	room := p.addRoom("Amphi A", model.RoomTypeAmphi, 100)
	course := p.addCourse("INF307", model.CourseTypeCM)

	tests := []struct {
		name  string
		req   *dto.SessionCandidate
		field string
	}{
		{"周次为 0", candidate(course, teacher, group, room, model.CourseTypeCM, 0, model.Monday, 1), "week"},
		{"周次超出学期", candidate(course, teacher, group, room, model.CourseTypeCM, 17, model.Monday, 1), "week"},
		{"周日", candidate(course, teacher, group, room, model.CourseTypeCM, 1, model.Sunday, 1), "day"},
		{"时间段不在目录中", candidate(course, teacher, group, room, model.CourseTypeCM, 1, model.Monday, 9), "slot"},
		{"课程未开设该形式", candidate(course, teacher, group, room, model.CourseTypeTD, 1, model.Monday, 1), "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.svc.Assignment.Create(ctx, tt.req, "", "admin")
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("期望 ValidationError，实际: %v", err)
			}
			found := false
			for _, f := range ve.Fields {
				if f.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("期望字段 %s，实际=%+v", tt.field, ve.Fields)
			}
		})
	}
	if len(p.repos.session.sessions) != 0 {
		t.Error("校验失败不应写入")
	}
}

func TestAssignmentService_Create_MissingReference(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)

	req := candidate(p.addCourse("INF308", model.CourseTypeCM), p.addTeacher("Henry"), p.addGroup("G1", 30, nil), p.addRoom("Amphi A", model.RoomTypeAmphi, 100), model.CourseTypeCM, 1, model.Monday, 1)
	req.RoomID = "11111111-1111-1111-1111-111111111111"

	_, err := p.svc.Assignment.Create(context.Background(), req, "", "admin")
	var re *ReferentialIntegrityError
	if !errors.As(err, &re) {
		t.Fatalf("期望 ReferentialIntegrityError，实际: %v", err)
	}
	if re.Entity != "room" {
		t.Errorf("期望 room，实际=%s", re.Entity)
	}
}

// 删除先拿到教师锁时，等待中的新建在锁内解析引用，看到的是删除后的状态
func TestAssignmentService_Create_ResolvesReferencesUnderLock(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	teacher := p.addTeacher("Henry")
	req := candidate(p.addCourse("INF309", model.CourseTypeCM), teacher, p.addGroup("G1", 30, nil), p.addRoom("Amphi A", model.RoomTypeAmphi, 100), model.CourseTypeCM, 3, model.Tuesday, 3)

	unlock, err := p.locker.Lock(ctx, subjectLockKey("teacher", teacher.TeacherID))
	if err != nil {
		t.Fatalf("加锁失败: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := p.svc.Assignment.Create(ctx, req, "", "admin")
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	delete(p.repos.teacher.teachers, teacher.TeacherID)
	unlock()

	err = <-done
	var re *ReferentialIntegrityError
	if !errors.As(err, &re) || re.Entity != "teacher" {
		t.Fatalf("期望 teacher 的 ReferentialIntegrityError，实际: %v", err)
	}
	if n := len(p.repos.session.sessions); n != 0 {
		t.Errorf("不应提交引用已删除教师的课次，实际 %d 个", n)
	}
}

// ── 幂等 ──

func TestAssignmentService_Create_IdempotencyKeyReplays(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	req := candidate(p.addCourse("INF309", model.CourseTypeCM), p.addTeacher("Chevalier"), p.addGroup("G1", 30, nil), p.addRoom("Amphi A", model.RoomTypeAmphi, 100), model.CourseTypeCM, 11, model.Monday, 1)

	first, err := p.svc.Assignment.Create(ctx, req, "key-1", "admin")
	if err != nil {
		t.Fatalf("第一次创建应成功: %v", err)
	}
	second, err := p.svc.Assignment.Create(ctx, req, "key-1", "admin")
	if err != nil {
		t.Fatalf("重放应返回原结果: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("期望同一课次，实际 %s != %s", first.ID, second.ID)
	}
	if len(p.repos.session.sessions) != 1 {
		t.Errorf("期望只写入一次，实际 %d", len(p.repos.session.sessions))
	}

	// 不同调用人的同名键互不影响
	_, err = p.svc.Assignment.Create(ctx, req, "key-1", "other")
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Errorf("其他调用人应重新评估并冲突，实际: %v", err)
	}
}

// ── 并发 ──

func TestAssignmentService_Create_ConcurrentSameTeacher(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	teacher := p.addTeacher("Robin")
	course := p.addCourse("INF310", model.CourseTypeCM)
	const n = 8
	reqs := make([]*dto.SessionCandidate, n)
	for i := 0; i < n; i++ {
		reqs[i] = candidate(course, teacher,
			p.addGroup(fmt.Sprintf("G%d", i+1), 30, nil),
			p.addRoom(fmt.Sprintf("Amphi %d", i+1), model.RoomTypeAmphi, 100),
			model.CourseTypeCM, 12, model.Thursday, 3)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.svc.Assignment.Create(ctx, reqs[i], "", "admin")
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		var ce *ConflictError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &ce):
			conflicts++
		default:
			t.Errorf("意外错误: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Errorf("期望 1 个成功 %d 个冲突，实际 %d / %d", n-1, ok, conflicts)
	}
}

// ── 查询 ──

func TestAssignmentService_ListAndChangeLogs(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	teacher := p.addTeacher("Gauthier")
	group := p.addGroup("G1", 30, nil)
	room := p.addRoom("Amphi A", model.RoomTypeAmphi, 100)
	course := p.addCourse("INF311", model.CourseTypeCM)
	s, _ := p.svc.Assignment.Create(ctx, candidate(course, teacher, group, room, model.CourseTypeCM, 13, model.Monday, 1), "", "admin")
	_, _ = p.svc.Assignment.Create(ctx, candidate(course, teacher, group, room, model.CourseTypeCM, 13, model.Monday, 2), "", "admin")
	_, _ = p.svc.Assignment.Move(ctx, s.ID, &dto.MoveSessionRequest{Week: 13, Day: 2, Slot: 1}, "", "admin")

	list, total, err := p.svc.Assignment.List(ctx, &dto.SessionListRequest{Week: 13, TeacherID: teacher.TeacherID})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Errorf("期望 2 个课次，实际 total=%d len=%d", total, len(list))
	}
	if list[0].Course == nil || list[0].Course.Code != "INF311" {
		t.Errorf("期望带课程摘要，实际=%+v", list[0].Course)
	}

	logs, total, err := p.svc.Assignment.ListChangeLogs(ctx, &dto.ChangeLogListRequest{SessionID: s.ID})
	if err != nil {
		t.Fatalf("ListChangeLogs 应成功: %v", err)
	}
	if total != 2 || logs[0].ChangeType != model.ChangeMove || logs[1].ChangeType != model.ChangeCreate {
		t.Errorf("期望 [move, create]，实际=%+v", logs)
	}
}
