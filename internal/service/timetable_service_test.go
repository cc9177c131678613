package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/model"
)

// cellOf 取网格中 (day, slot) 格子的课次
func cellOf(t *testing.T, grid *dto.WeekGrid, day model.Weekday, slot int) []dto.GridSession {
	t.Helper()
	for _, d := range grid.Days {
		if d.Day != int(day) {
			continue
		}
		for _, c := range d.Cells {
			if c.Slot == slot {
				return c.Sessions
			}
		}
	}
	t.Fatalf("网格中不存在格子 day=%d slot=%d", day, slot)
	return nil
}

func countSessions(grid *dto.WeekGrid) int {
	n := 0
	for _, d := range grid.Days {
		for _, c := range d.Cells {
			n += len(c.Sessions)
		}
	}
	return n
}

// ── 网格结构 ──

func TestTimetableService_Project_GridShape(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)

	grid, err := p.svc.Timetable.Project(context.Background(), 1, WeekFilter{})
	if err != nil {
		t.Fatalf("投影失败: %v", err)
	}
	if grid.Week != 1 || grid.StartDate != "2025-09-01" {
		t.Errorf("期望第 1 周起始 2025-09-01，实际 %d / %s", grid.Week, grid.StartDate)
	}
	if len(grid.Days) != 6 || len(grid.Slots) != 4 {
		t.Fatalf("期望 6 天 × 4 时间段，实际 %d × %d", len(grid.Days), len(grid.Slots))
	}
	if grid.Days[0].Name != "Lundi" || grid.Days[5].Name != "Samedi" {
		t.Errorf("期望 Lundi … Samedi，实际 %s … %s", grid.Days[0].Name, grid.Days[5].Name)
	}
	if grid.Days[2].Date != "2025-09-03" {
		t.Errorf("周三日期期望 2025-09-03，实际 %s", grid.Days[2].Date)
	}
	for _, d := range grid.Days {
		if len(d.Cells) != 4 {
			t.Fatalf("%s 期望 4 格，实际 %d", d.Name, len(d.Cells))
		}
		for _, c := range d.Cells {
			if c.Sessions == nil || len(c.Sessions) != 0 {
				t.Errorf("空周的格子应为空列表，%s slot %d", d.Name, c.Slot)
			}
		}
	}

	later, _ := p.svc.Timetable.Project(context.Background(), 3, WeekFilter{})
	if later.StartDate != "2025-09-15" {
		t.Errorf("第 3 周起始期望 2025-09-15，实际 %s", later.StartDate)
	}
}

func TestTimetableService_Project_InvalidWeek(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)

	for _, week := range []int{0, 17} {
		_, err := p.svc.Timetable.Project(context.Background(), week, WeekFilter{})
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("第 %d 周期望 ValidationError，实际 %v", week, err)
		}
	}
}

// ── 内容 ──

func TestTimetableService_Project_PlacesSessionsAndSkipsCancelled(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)

	teacher := p.addTeacher("Dupont")
	group := p.addGroup("G1", 20, nil)
	amphi := p.addRoom("Amphi A", model.RoomTypeAmphi, 100)
	course := p.addCourse("INF101", model.CourseTypeCM)

	kept := p.insertSession(course, teacher, group, amphi, model.CourseTypeCM, 2, model.Wednesday, 3)
	cancelled := p.insertSession(course, teacher, group, amphi, model.CourseTypeCM, 2, model.Friday, 1)
	cancelled.Status = model.SessionCancelled
	p.insertSession(course, teacher, group, amphi, model.CourseTypeCM, 3, model.Wednesday, 3)

	grid, err := p.svc.Timetable.Project(context.Background(), 2, WeekFilter{})
	if err != nil {
		t.Fatalf("投影失败: %v", err)
	}
	if countSessions(grid) != 1 {
		t.Fatalf("期望仅 1 个课次（取消与其他周不显示），实际 %d", countSessions(grid))
	}

	items := cellOf(t, grid, model.Wednesday, 3)
	if len(items) != 1 || items[0].ID != kept.SessionID {
		t.Fatalf("周三第 3 节期望课次 %s，实际 %+v", kept.SessionID, items)
	}
	got := items[0]
	if got.CourseCode != "INF101" || got.TeacherName != "Dupont" || got.RoomName != "Amphi A" || got.GroupName != "G1" {
		t.Errorf("课次摘要字段不完整: %+v", got)
	}
	if len(cellOf(t, grid, model.Friday, 1)) != 0 {
		t.Error("已取消课次不应占用格子")
	}
}

func TestTimetableService_Project_InactiveSlotShownOnlyWhenUsed(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	slot4, _ := p.repos.timeSlot.GetByIndex(ctx, 4)
	slot4.IsActive = false
	_ = p.repos.timeSlot.Update(ctx, slot4)

	teacher := p.addTeacher("Dupont")
	group := p.addGroup("G1", 20, nil)
	room := p.addRoom("Amphi A", model.RoomTypeAmphi, 100)
	course := p.addCourse("INF101", model.CourseTypeCM)
	p.insertSession(course, teacher, group, room, model.CourseTypeCM, 5, model.Monday, 4)

	empty, _ := p.svc.Timetable.Project(ctx, 4, WeekFilter{})
	if len(empty.Slots) != 3 {
		t.Errorf("无课次的周不显示停用时间段，期望 3 个，实际 %d", len(empty.Slots))
	}

	used, _ := p.svc.Timetable.Project(ctx, 5, WeekFilter{})
	if len(used.Slots) != 4 || used.Slots[3].Slot != 4 {
		t.Fatalf("有课次的停用时间段应显示，实际 %+v", used.Slots)
	}
	if len(cellOf(t, used, model.Monday, 4)) != 1 {
		t.Error("停用时间段上的课次应出现在网格中")
	}
}

// ── 过滤 ──

func TestTimetableService_Project_TeacherAndRoomFilter(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)

	dupont := p.addTeacher("Dupont")
	martin := p.addTeacher("Martin")
	g1 := p.addGroup("G1", 20, nil)
	g2 := p.addGroup("G2", 20, nil)
	a := p.addRoom("Amphi A", model.RoomTypeAmphi, 100)
	b := p.addRoom("Amphi B", model.RoomTypeAmphi, 100)
	course := p.addCourse("INF101", model.CourseTypeCM)

	p.insertSession(course, dupont, g1, a, model.CourseTypeCM, 1, model.Monday, 1)
	p.insertSession(course, martin, g2, b, model.CourseTypeCM, 1, model.Monday, 1)
	p.insertSession(course, martin, g1, a, model.CourseTypeCM, 1, model.Tuesday, 2)

	all, _ := p.svc.Timetable.Project(context.Background(), 1, WeekFilter{})
	if n := len(cellOf(t, all, model.Monday, 1)); n != 2 {
		t.Errorf("无过滤时同格应有 2 个课次，实际 %d", n)
	}

	byTeacher, _ := p.svc.Timetable.Project(context.Background(), 1, WeekFilter{TeacherID: martin.TeacherID})
	if countSessions(byTeacher) != 2 {
		t.Errorf("Martin 期望 2 个课次，实际 %d", countSessions(byTeacher))
	}
	for _, d := range byTeacher.Days {
		for _, c := range d.Cells {
			if len(c.Sessions) > 1 {
				t.Errorf("按教师过滤时每格至多一个课次，%s slot %d 有 %d", d.Name, c.Slot, len(c.Sessions))
			}
		}
	}

	byRoom, _ := p.svc.Timetable.Project(context.Background(), 1, WeekFilter{RoomID: b.RoomID})
	if countSessions(byRoom) != 1 {
		t.Errorf("Amphi B 期望 1 个课次，实际 %d", countSessions(byRoom))
	}
}

func TestTimetableService_Project_GroupFilterIncludesLineage(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)

	teacher := p.addTeacher("Dupont")
	other := p.addTeacher("Martin")
	parent := p.addGroup("G1", 40, nil)
	child := p.addGroup("G1-A", 20, parent)
	sibling := p.addGroup("G1-B", 20, parent)
	amphi := p.addRoom("Amphi A", model.RoomTypeAmphi, 100)
	td := p.addRoom("TD 1", model.RoomTypeSalleTD, 30)
	course := p.addCourse("INF101", model.CourseTypeCM, model.CourseTypeTD)

	p.insertSession(course, teacher, parent, amphi, model.CourseTypeCM, 1, model.Monday, 1)
	p.insertSession(course, teacher, child, td, model.CourseTypeTD, 1, model.Monday, 2)
	p.insertSession(course, other, sibling, td, model.CourseTypeTD, 1, model.Tuesday, 2)

	childView, err := p.svc.Timetable.Project(context.Background(), 1, WeekFilter{GroupID: child.GroupID})
	if err != nil {
		t.Fatalf("投影失败: %v", err)
	}
	if countSessions(childView) != 2 {
		t.Errorf("子班组视图应包含父班组的课次，期望 2，实际 %d", countSessions(childView))
	}
	if len(cellOf(t, childView, model.Tuesday, 2)) != 0 {
		t.Error("兄弟班组的课次不应出现")
	}

	parentView, _ := p.svc.Timetable.Project(context.Background(), 1, WeekFilter{GroupID: parent.GroupID})
	if countSessions(parentView) != 3 {
		t.Errorf("父班组视图应包含全部子班组课次，期望 3，实际 %d", countSessions(parentView))
	}
}

// 兄弟子班组可以同格上课，父班组视图中该格有多个课次
func TestTimetableService_Project_SiblingsShareCellInParentView(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)

	parent := p.addGroup("G1", 40, nil)
	tpA := p.addGroup("G1-TP1", 20, parent)
	tpB := p.addGroup("G1-TP2", 20, parent)
	course := p.addCourse("INF105", model.CourseTypeTP)
	p.insertSession(course, p.addTeacher("Dupont"), tpA, p.addRoom("TP 1", model.RoomTypeSalleTP, 20), model.CourseTypeTP, 2, model.Thursday, 3)
	p.insertSession(course, p.addTeacher("Martin"), tpB, p.addRoom("TP 2", model.RoomTypeSalleTP, 20), model.CourseTypeTP, 2, model.Thursday, 3)

	view, err := p.svc.Timetable.Project(context.Background(), 2, WeekFilter{GroupID: parent.GroupID})
	if err != nil {
		t.Fatalf("投影失败: %v", err)
	}
	if n := len(cellOf(t, view, model.Thursday, 3)); n != 2 {
		t.Errorf("父班组视图中两个 TP 子班组应同格，期望 2，实际 %d", n)
	}
}

// 其他周的课次增减不改变本周的投影
func TestTimetableService_Project_UnaffectedByOtherWeeks(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)
	ctx := context.Background()

	teacher := p.addTeacher("Dupont")
	group := p.addGroup("G1", 30, nil)
	room := p.addRoom("Amphi A", model.RoomTypeAmphi, 100)
	course := p.addCourse("INF106", model.CourseTypeCM)
	p.insertSession(course, teacher, group, room, model.CourseTypeCM, 4, model.Monday, 1)
	p.insertSession(course, teacher, group, room, model.CourseTypeCM, 4, model.Wednesday, 3)

	filters := []WeekFilter{
		{},
		{TeacherID: teacher.TeacherID},
		{GroupID: group.GroupID},
		{RoomID: room.RoomID},
	}
	before := make([]*dto.WeekGrid, len(filters))
	for i, f := range filters {
		grid, err := p.svc.Timetable.Project(ctx, 4, f)
		if err != nil {
			t.Fatalf("投影失败: %v", err)
		}
		before[i] = grid
	}

	// 相邻周同一格子与其他格子都排上课
	for _, week := range []int{1, 3, 5, 16} {
		p.insertSession(course, teacher, group, room, model.CourseTypeCM, week, model.Monday, 1)
		p.insertSession(course, teacher, group, room, model.CourseTypeCM, week, model.Friday, 2)
	}

	for i, f := range filters {
		after, err := p.svc.Timetable.Project(ctx, 4, f)
		if err != nil {
			t.Fatalf("投影失败: %v", err)
		}
		if !reflect.DeepEqual(before[i], after) {
			t.Errorf("过滤 %+v：其他周的课次改变了第 4 周的投影", f)
		}
		if countSessions(after) != 2 {
			t.Errorf("过滤 %+v：第 4 周期望 2 个课次，实际 %d", f, countSessions(after))
		}
	}
}

func TestTimetableService_Project_UnknownGroup(t *testing.T) {
	p := setupTestPlanning(PolicyOpen)

	_, err := p.svc.Timetable.Project(context.Background(), 1, WeekFilter{GroupID: "missing"})
	if !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("期望 ErrGroupNotFound，实际 %v", err)
	}
}
