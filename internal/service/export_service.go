package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"campus-planning/backend/config"
	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const (
	exportMaxWeeks    = 52
	exportConcurrency = 4
	icsProductID      = "-//campus-planning//timetable//FR"
)

// ExportService 课表导出
//
// 所有导出都基于 TimetableService 的周视图投影，与页面展示一致；
// 内容以 bytes.Buffer 返回，由 Handler 设置响应头后写出。
type ExportService interface {
	// Rows 把一周网格展开为行（星期、时间段、课程、形式、教师、班组、教室）
	Rows(grid *dto.WeekGrid) []dto.ExportRow
	// ExportXLSX 每周一个工作表，外加一张明细表
	ExportXLSX(ctx context.Context, req *dto.ExportXLSXRequest) (*bytes.Buffer, string, error)
	// ExportICS 教师 / 班组 / 教室在周次范围内的日历
	ExportICS(ctx context.Context, req *dto.ExportICSRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo      *repository.Repository
	timetable TimetableService
	calendar  planningCalendar
	logger    *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.PlanningConfig, repo *repository.Repository, timetable TimetableService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, timetable: timetable, calendar: newPlanningCalendar(cfg), logger: logger}
}

// ────────────────────── Rows ──────────────────────

func (s *exportService) Rows(grid *dto.WeekGrid) []dto.ExportRow {
	slotByIndex := make(map[int]dto.SlotRef, len(grid.Slots))
	for _, sl := range grid.Slots {
		slotByIndex[sl.Slot] = sl
	}

	var rows []dto.ExportRow
	for _, day := range grid.Days {
		for _, c := range day.Cells {
			sl := slotByIndex[c.Slot]
			for _, sess := range c.Sessions {
				rows = append(rows, dto.ExportRow{
					Week:      grid.Week,
					Day:       day.Day,
					DayName:   day.Name,
					Date:      day.Date,
					Slot:      c.Slot,
					SlotLabel: sl.Label,
					StartTime: sl.StartTime,
					EndTime:   sl.EndTime,
					Session:   sess,
				})
			}
		}
	}
	return rows
}

// ════════════════════════════════════════════════════════════
// ExportXLSX — 周课表导出为 Excel
// ════════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Semaine N"：行为时间段，列为 Lundi … max_day，单元格列出该格全部课次
//   - Sheet "Liste"：每个课次一行

func (s *exportService) ExportXLSX(ctx context.Context, req *dto.ExportXLSXRequest) (*bytes.Buffer, string, error) {
	from, to, err := s.weekRange(req.WeekFrom, req.WeekTo)
	if err != nil {
		return nil, "", err
	}
	filter := WeekFilter{GroupID: req.GroupID, TeacherID: req.TeacherID, RoomID: req.RoomID}

	grids, err := s.projectRange(ctx, from, to, filter)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	for i, grid := range grids {
		sheet := fmt.Sprintf("Semaine %d", grid.Week)
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return nil, "", s.generateError(err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		s.writeWeekSheet(f, sheet, grid, headerStyle, cellStyle)
	}

	// 明细表
	list := "Liste"
	if _, err := f.NewSheet(list); err != nil {
		return nil, "", s.generateError(err)
	}
	headers := []string{"Semaine", "Date", "Jour", "Créneau", "Début", "Fin", "Code", "Cours", "Type", "Enseignant", "Groupe", "Salle", "Statut"}
	for i, h := range headers {
		f.SetCellValue(list, cell(colName(i), 1), h)
	}
	f.SetCellStyle(list, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	row := 2
	for _, grid := range grids {
		for _, r := range s.Rows(grid) {
			values := []interface{}{
				r.Week, r.Date, r.DayName, r.SlotLabel, r.StartTime, r.EndTime,
				r.Session.CourseCode, r.Session.CourseName, r.Session.Type,
				r.Session.TeacherName, r.Session.GroupName, r.Session.RoomName, r.Session.Status,
			}
			for i, v := range values {
				f.SetCellValue(list, cell(colName(i), row), v)
			}
			row++
		}
	}
	f.SetColWidth(list, "A", colName(len(headers)-1), 14)

	f.DeleteSheet("Sheet1")

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", s.generateError(err)
	}

	filename := fmt.Sprintf("emploi_du_temps_S%d.xlsx", from)
	if to != from {
		filename = fmt.Sprintf("emploi_du_temps_S%d-S%d.xlsx", from, to)
	}
	return buf, filename, nil
}

func (s *exportService) writeWeekSheet(f *excelize.File, sheet string, grid *dto.WeekGrid, headerStyle, cellStyle int) {
	f.SetColWidth(sheet, "A", "A", 16)
	f.SetColWidth(sheet, "B", colName(len(grid.Days)), 28)

	// 表头：日期
	f.SetCellValue(sheet, "A1", fmt.Sprintf("Semaine %d", grid.Week))
	for i, d := range grid.Days {
		f.SetCellValue(sheet, cell(colName(i+1), 1), fmt.Sprintf("%s %s", d.Name, d.Date))
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(grid.Days)), 1), headerStyle)

	// 行：时间段
	for r, sl := range grid.Slots {
		row := r + 2
		f.SetCellValue(sheet, cell("A", row), fmt.Sprintf("%s\n%s-%s", sl.Label, sl.StartTime, sl.EndTime))
		for i, d := range grid.Days {
			var lines []string
			for _, c := range d.Cells {
				if c.Slot != sl.Slot {
					continue
				}
				for _, sess := range c.Sessions {
					lines = append(lines, cellText(sess))
				}
			}
			if len(lines) > 0 {
				f.SetCellValue(sheet, cell(colName(i+1), row), strings.Join(lines, "\n\n"))
			}
		}
		f.SetRowHeight(sheet, row, 60)
	}
	if len(grid.Slots) > 0 {
		f.SetCellStyle(sheet, "A2", cell(colName(len(grid.Days)), len(grid.Slots)+1), cellStyle)
	}
}

// ════════════════════════════════════════════════════════════
// ExportICS — 导出 iCalendar
// ════════════════════════════════════════════════════════════

func (s *exportService) ExportICS(ctx context.Context, req *dto.ExportICSRequest) (*bytes.Buffer, string, error) {
	from, to, err := s.weekRange(req.WeekFrom, req.WeekTo)
	if err != nil {
		return nil, "", err
	}

	var filter WeekFilter
	var owner string
	switch req.Kind {
	case "teacher":
		t, err := s.repo.Teacher.GetByID(ctx, req.ID)
		if err != nil {
			return nil, "", notFoundOr(err, ErrTeacherNotFound)
		}
		filter.TeacherID, owner = t.TeacherID, t.Name
	case "group":
		g, err := s.repo.Group.GetByID(ctx, req.ID)
		if err != nil {
			return nil, "", notFoundOr(err, ErrGroupNotFound)
		}
		filter.GroupID, owner = g.GroupID, g.Name
	case "room":
		r, err := s.repo.Room.GetByID(ctx, req.ID)
		if err != nil {
			return nil, "", notFoundOr(err, ErrRoomNotFound)
		}
		filter.RoomID, owner = r.RoomID, r.Name
	default:
		return nil, "", invalidField("kind", "只能为 teacher、group 或 room")
	}

	grids, err := s.projectRange(ctx, from, to, filter)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(owner)

	loc := s.calendar.Location()
	stamp := time.Now().UTC()
	for _, grid := range grids {
		for _, r := range s.Rows(grid) {
			start, err1 := clockOn(r.Date, r.StartTime, loc)
			end, err2 := clockOn(r.Date, r.EndTime, loc)
			if err1 != nil || err2 != nil {
				continue
			}
			evt := cal.AddEvent(r.Session.ID + "@campus-planning")
			evt.SetDtStampTime(stamp)
			evt.SetStartAt(start)
			evt.SetEndAt(end)
			evt.SetSummary(fmt.Sprintf("%s %s (%s)", r.Session.CourseCode, r.Session.CourseName, r.Session.Type))
			evt.SetLocation(r.Session.RoomName)
			evt.SetDescription(fmt.Sprintf("Enseignant: %s\nGroupe: %s", r.Session.TeacherName, r.Session.GroupName))
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("%s_%s_S%d-S%d.ics", req.Kind, strings.ReplaceAll(owner, " ", "_"), from, to)
	return buf, filename, nil
}

// ── 内部辅助方法 ──

// projectRange 并发投影多周，结果按周次排列
func (s *exportService) projectRange(ctx context.Context, from, to int, filter WeekFilter) ([]*dto.WeekGrid, error) {
	grids := make([]*dto.WeekGrid, to-from+1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)
	for w := from; w <= to; w++ {
		w := w
		g.Go(func() error {
			grid, err := s.timetable.Project(gctx, w, filter)
			if err != nil {
				return err
			}
			grids[w-from] = grid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return grids, nil
}

func (s *exportService) weekRange(from, to int) (int, int, error) {
	if to == 0 {
		to = from
	}
	if err := s.calendar.checkWeek("week_from", from); err != nil {
		return 0, 0, err
	}
	if err := s.calendar.checkWeek("week_to", to); err != nil {
		return 0, 0, err
	}
	if to < from {
		return 0, 0, invalidField("week_to", "不能小于 week_from")
	}
	if to-from+1 > exportMaxWeeks {
		return 0, 0, invalidField("week_to", fmt.Sprintf("一次最多导出 %d 周", exportMaxWeeks))
	}
	return from, to, nil
}

func (s *exportService) generateError(err error) error {
	s.logger.Error("生成导出文件失败", zap.Error(err))
	return ErrExportGenerateFail
}

func notFoundOr(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// clockOn 日期 + HH:MM → 本地时间
func clockOn(date, clock string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
}

func cellText(g dto.GridSession) string {
	return fmt.Sprintf("%s %s (%s)\n%s\n%s · %s", g.CourseCode, g.CourseName, g.Type, g.TeacherName, g.GroupName, g.RoomName)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
