package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/model"
)

// exportFixture 第 1 周两节课、第 2 周一节课
type exportFixture struct {
	p       *testPlanning
	teacher *model.Teacher
	group   *model.Group
	first   *model.Session
}

func setupExportFixture() *exportFixture {
	p := setupTestPlanning(PolicyOpen)
	teacher := p.addTeacher("Jean Dupont")
	group := p.addGroup("G1", 20, nil)
	amphi := p.addRoom("Amphi A", model.RoomTypeAmphi, 100)
	td := p.addRoom("TD 1", model.RoomTypeSalleTD, 30)
	course := p.addCourse("INF101", model.CourseTypeCM, model.CourseTypeTD)

	first := p.insertSession(course, teacher, group, amphi, model.CourseTypeCM, 1, model.Monday, 1)
	p.insertSession(course, teacher, group, td, model.CourseTypeTD, 1, model.Thursday, 3)
	p.insertSession(course, teacher, group, amphi, model.CourseTypeCM, 2, model.Monday, 1)

	return &exportFixture{p: p, teacher: teacher, group: group, first: first}
}

// ── Rows ──

func TestExportService_Rows(t *testing.T) {
	f := setupExportFixture()
	grid, _ := f.p.svc.Timetable.Project(context.Background(), 1, WeekFilter{})

	rows := f.p.svc.Export.Rows(grid)
	if len(rows) != 2 {
		t.Fatalf("期望 2 行，实际 %d", len(rows))
	}
	r := rows[0]
	if r.DayName != "Lundi" || r.Date != "2025-09-01" || r.SlotLabel != "08:00-10:00" || r.StartTime != "08:00" {
		t.Errorf("第一行字段不符: %+v", r)
	}
	if r.Session.ID != f.first.SessionID {
		t.Errorf("期望课次 %s，实际 %s", f.first.SessionID, r.Session.ID)
	}
	if rows[1].DayName != "Jeudi" || rows[1].Slot != 3 {
		t.Errorf("第二行应为 Jeudi 第 3 节，实际 %s / %d", rows[1].DayName, rows[1].Slot)
	}
}

// ── XLSX ──

func TestExportService_ExportXLSX_SingleWeek(t *testing.T) {
	f := setupExportFixture()

	buf, filename, err := f.p.svc.Export.ExportXLSX(context.Background(), &dto.ExportXLSXRequest{WeekFrom: 1})
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if filename != "emploi_du_temps_S1.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}

	book, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("无法打开导出的工作簿: %v", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Semaine 1" || sheets[1] != "Liste" {
		t.Fatalf("期望工作表 [Semaine 1 Liste]，实际 %v", sheets)
	}

	header, _ := book.GetCellValue("Semaine 1", "B1")
	if header != "Lundi 2025-09-01" {
		t.Errorf("表头期望 Lundi 2025-09-01，实际 %q", header)
	}
	content, _ := book.GetCellValue("Semaine 1", "B2")
	if !strings.Contains(content, "INF101") || !strings.Contains(content, "Amphi A") {
		t.Errorf("周一第 1 节应包含课程与教室，实际 %q", content)
	}

	rows, _ := book.GetRows("Liste")
	if len(rows) != 3 {
		t.Fatalf("明细表期望表头 + 2 行，实际 %d", len(rows))
	}
	if rows[1][6] != "INF101" || rows[1][9] != "Jean Dupont" {
		t.Errorf("明细行字段不符: %v", rows[1])
	}
}

func TestExportService_ExportXLSX_RangeAndFilter(t *testing.T) {
	f := setupExportFixture()

	buf, filename, err := f.p.svc.Export.ExportXLSX(context.Background(), &dto.ExportXLSXRequest{
		WeekFrom: 1, WeekTo: 2, GroupID: f.group.GroupID,
	})
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if filename != "emploi_du_temps_S1-S2.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}

	book, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("无法打开导出的工作簿: %v", err)
	}
	defer book.Close()

	if got := book.GetSheetList(); len(got) != 3 || got[1] != "Semaine 2" {
		t.Errorf("期望 Semaine 1、Semaine 2、Liste，实际 %v", got)
	}
	rows, _ := book.GetRows("Liste")
	if len(rows) != 4 {
		t.Errorf("两周共 3 个课次，期望 4 行，实际 %d", len(rows))
	}
}

func TestExportService_ExportXLSX_InvalidRange(t *testing.T) {
	f := setupExportFixture()

	tests := []struct {
		name  string
		req   dto.ExportXLSXRequest
		field string
	}{
		{"结束早于开始", dto.ExportXLSXRequest{WeekFrom: 3, WeekTo: 2}, "week_to"},
		{"超出学期", dto.ExportXLSXRequest{WeekFrom: 17}, "week_from"},
		{"结束超出学期", dto.ExportXLSXRequest{WeekFrom: 1, WeekTo: 20}, "week_to"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.p.svc.Export.ExportXLSX(context.Background(), &tt.req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("期望 ValidationError，实际: %v", err)
			}
			if ve.Fields[0].Field != tt.field {
				t.Errorf("期望字段 %s，实际 %s", tt.field, ve.Fields[0].Field)
			}
		})
	}
}

// ── ICS ──

func TestExportService_ExportICS_Teacher(t *testing.T) {
	f := setupExportFixture()

	buf, filename, err := f.p.svc.Export.ExportICS(context.Background(), &dto.ExportICSRequest{
		Kind: "teacher", ID: f.teacher.TeacherID, WeekFrom: 1, WeekTo: 2,
	})
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if filename != "teacher_Jean_Dupont_S1-S2.ics" {
		t.Errorf("文件名不符: %s", filename)
	}

	body := buf.String()
	if !strings.HasPrefix(body, "BEGIN:VCALENDAR") {
		t.Error("期望以 BEGIN:VCALENDAR 开头")
	}
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 3 {
		t.Errorf("期望 3 个事件，实际 %d", n)
	}
	if !strings.Contains(body, "UID:"+f.first.SessionID+"@campus-planning") {
		t.Error("事件 UID 应由课次 ID 生成")
	}
}

func TestExportService_ExportICS_Errors(t *testing.T) {
	f := setupExportFixture()
	ctx := context.Background()

	_, _, err := f.p.svc.Export.ExportICS(ctx, &dto.ExportICSRequest{Kind: "teacher", ID: "missing", WeekFrom: 1})
	if !errors.Is(err, ErrTeacherNotFound) {
		t.Errorf("期望 ErrTeacherNotFound，实际 %v", err)
	}

	_, _, err = f.p.svc.Export.ExportICS(ctx, &dto.ExportICSRequest{Kind: "room", ID: "missing", WeekFrom: 1})
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("期望 ErrRoomNotFound，实际 %v", err)
	}

	_, _, err = f.p.svc.Export.ExportICS(ctx, &dto.ExportICSRequest{Kind: "course", ID: f.teacher.TeacherID, WeekFrom: 1})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Fields[0].Field != "kind" {
		t.Errorf("未知类型期望 kind 字段错误，实际 %v", err)
	}
}
