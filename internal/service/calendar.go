package service

import (
	"context"
	"fmt"
	"time"

	"campus-planning/backend/config"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
)

// planningCalendar 学期日历：周次与日期互换、格子边界校验
type planningCalendar struct {
	termStart time.Time // 第 1 周周一 00:00
	weeks     int
	maxDay    int
}

func newPlanningCalendar(cfg *config.PlanningConfig) planningCalendar {
	start, err := cfg.TermStartDate()
	if err != nil {
		// 配置加载时已校验，这里只兜底
		start = time.Date(2025, 9, 1, 0, 0, 0, 0, time.Local)
	}
	return planningCalendar{termStart: start, weeks: cfg.Weeks, maxDay: cfg.MaxDay}
}

// DateOf 第 week 周星期 day 的日期
func (c planningCalendar) DateOf(week int, day model.Weekday) time.Time {
	return c.termStart.AddDate(0, 0, (week-1)*7+int(day)-1)
}

// CellOf 日期落在的 (周次, 星期)；周日、学期外、超出 max_day 的日期返回 ok=false
func (c planningCalendar) CellOf(date time.Time) (int, model.Weekday, bool) {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, c.termStart.Location())
	days := int(d.Sub(c.termStart).Hours()/24 + 0.5)
	if days < 0 {
		return 0, 0, false
	}
	week := days/7 + 1
	day := isoWeekday(d.Weekday())
	if week > c.weeks || int(day) > c.maxDay {
		return 0, 0, false
	}
	return week, day, true
}

// Location 学期日历所在时区
func (c planningCalendar) Location() *time.Location { return c.termStart.Location() }

// Start 第 1 周周一 00:00
func (c planningCalendar) Start() time.Time { return c.termStart }

// End 最后一周结束后的周一 00:00（不含）
func (c planningCalendar) End() time.Time { return c.termStart.AddDate(0, 0, c.weeks*7) }

// Days 当前配置下的排课日（周一 … max_day）
func (c planningCalendar) Days() []model.Weekday {
	days := make([]model.Weekday, 0, c.maxDay)
	for d := 1; d <= c.maxDay; d++ {
		days = append(days, model.Weekday(d))
	}
	return days
}

// checkWeek 周次必须在 1..weeks
func (c planningCalendar) checkWeek(field string, week int) error {
	if week < 1 || week > c.weeks {
		return invalidField(field, fmt.Sprintf("周次必须在 1-%d 之间", c.weeks))
	}
	return nil
}

// checkCell 周次、星期在学期范围内，且时间段存在于启用的目录中
func (c planningCalendar) checkCell(week, day, slot int, slots []model.TimeSlot) error {
	ve := &ValidationError{}
	if week < 1 || week > c.weeks {
		ve.Fields = append(ve.Fields, FieldError{Field: "week", Message: fmt.Sprintf("周次必须在 1-%d 之间", c.weeks)})
	}
	if day < 1 || day > c.maxDay {
		ve.Fields = append(ve.Fields, FieldError{Field: "day", Message: fmt.Sprintf("星期必须在 1-%d 之间", c.maxDay)})
	}
	if findSlot(slots, slot) == nil {
		ve.Fields = append(ve.Fields, FieldError{Field: "slot", Message: "时间段不存在或已停用"})
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

// isoWeekday time.Weekday (0=周日) → 1=周一 … 7=周日
func isoWeekday(wd time.Weekday) model.Weekday {
	if wd == time.Sunday {
		return model.Sunday
	}
	return model.Weekday(wd)
}

// activeSlots 启用的时间段目录（按 slot_index 升序）
func activeSlots(ctx context.Context, repo *repository.Repository) ([]model.TimeSlot, error) {
	return repo.TimeSlot.List(ctx, false)
}

func findSlot(slots []model.TimeSlot, index int) *model.TimeSlot {
	for i := range slots {
		if slots[i].SlotIndex == index {
			return &slots[i]
		}
	}
	return nil
}

// fmtTime 统一时间格式
func fmtTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
