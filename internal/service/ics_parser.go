package service

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ── ICS 忙碌时段解析 ──────────────────────────────────────────
//
// 把外部日历（RFC 5545）中的事件展开为具体的忙碌区间，供教师可用性导入：
//   - DTSTART + DTEND（或 DURATION）确定单次区间
//   - RRULE 仅支持 DAILY / WEEKLY，配合 INTERVAL / COUNT / UNTIL
//   - EXDATE 剔除单次发生
//   - TRANSP:TRANSPARENT 与 STATUS:CANCELLED 的事件不占用时间
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize    = 5 * 1024 * 1024 // 5MB
	icsMaxOccurrences = 2000            // 单个事件最多展开次数
)

// busyInterval 一次忙碌区间（本地时区）
type busyInterval struct {
	Summary string
	Start   time.Time
	End     time.Time
}

// parseBusyCalendar 解析 ICS 内容，返回 [from, until) 范围内的全部忙碌区间
func parseBusyCalendar(r io.Reader, loc *time.Location, from, until time.Time) ([]busyInterval, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(r, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	var out []busyInterval
	for _, evt := range cal.Events() {
		if !eventBlocksTime(evt) {
			continue
		}
		start, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
		if err != nil {
			continue
		}
		end, err := eventEnd(evt, start, loc)
		if err != nil || !end.After(start) {
			continue
		}
		summary := ""
		if p := evt.GetProperty(ics.ComponentPropertySummary); p != nil {
			summary = strings.TrimSpace(p.Value)
		}

		for _, occ := range expandOccurrences(evt, start, until, loc) {
			occEnd := occ.Add(end.Sub(start))
			if !occEnd.After(from) || !occ.Before(until) {
				continue
			}
			out = append(out, busyInterval{Summary: summary, Start: occ, End: occEnd})
		}
	}
	return out, nil
}

// eventBlocksTime 透明或已取消的事件不视为忙碌
func eventBlocksTime(evt *ics.VEvent) bool {
	if p := evt.GetProperty(ics.ComponentPropertyTransp); p != nil && strings.EqualFold(p.Value, "TRANSPARENT") {
		return false
	}
	if p := evt.GetProperty(ics.ComponentPropertyStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
		return false
	}
	return true
}

// eventEnd DTEND 优先，其次 DURATION；全天事件缺省为一天
func eventEnd(evt *ics.VEvent, start time.Time, loc *time.Location) (time.Time, error) {
	if end, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc); err == nil {
		return end, nil
	}
	if p := evt.GetProperty(ics.ComponentPropertyDuration); p != nil {
		d, err := parseICSDuration(p.Value)
		if err != nil {
			return time.Time{}, err
		}
		return start.Add(d), nil
	}
	if p := evt.GetProperty(ics.ComponentPropertyDtStart); p != nil && len(p.Value) == 8 {
		return start.AddDate(0, 0, 1), nil
	}
	return time.Time{}, fmt.Errorf("事件缺少结束时间")
}

// expandOccurrences 按 RRULE 展开开始时间（不含 EXDATE）
func expandOccurrences(evt *ics.VEvent, start, until time.Time, loc *time.Location) []time.Time {
	p := evt.GetProperty(ics.ComponentPropertyRrule)
	if p == nil {
		return []time.Time{start}
	}

	rule := parseRRule(p.Value)
	var step func(t time.Time) time.Time
	switch rule.freq {
	case "DAILY":
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, rule.interval) }
	case "WEEKLY":
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7*rule.interval) }
	default:
		return []time.Time{start}
	}

	exDates := parseExDates(evt, loc)
	var out []time.Time
	for cur, n := start, 0; n < icsMaxOccurrences; cur, n = step(cur), n+1 {
		if rule.count > 0 && n >= rule.count {
			break
		}
		if !rule.until.IsZero() && cur.After(rule.until) {
			break
		}
		if !cur.Before(until) {
			break
		}
		if !exDates[cur.Format("20060102")] {
			out = append(out, cur)
		}
	}
	return out
}

// rruleParams RRULE 解析结果
type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

// parseRRule 解析 RRULE 字符串（如 FREQ=WEEKLY;COUNT=16;INTERVAL=1）
func parseRRule(value string) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			if n, err := strconv.Atoi(kv[1]); err == nil && n > 0 {
				r.interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(kv[1]); err == nil {
				r.count = n
			}
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				// 仅日期的 UNTIL 包含当天
				if d, derr := time.Parse("20060102", kv[1]); derr == nil {
					t = d.Add(24*time.Hour - time.Second)
				}
			}
			r.until = t
		}
	}
	return r
}

// parseExDates 解析事件中所有 EXDATE（可能一行多个，逗号分隔）
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			if t, err := parseICSValue(strings.TrimSpace(v), "", loc); err == nil {
				exDates[t.Format("20060102")] = true
			}
		}
	}
	return exDates
}

// parseICSDuration 解析 RFC 5545 DURATION（如 PT1H30M、P1D、P1W）
func parseICSDuration(v string) (time.Duration, error) {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(v)), "+")
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("无效的 DURATION: %s", v)
	}
	s = s[1:]

	var d time.Duration
	inTime := false
	num := ""
	for _, ch := range s {
		switch {
		case ch == 'T':
			inTime = true
		case ch >= '0' && ch <= '9':
			num += string(ch)
		default:
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, fmt.Errorf("无效的 DURATION: %s", v)
			}
			num = ""
			switch {
			case ch == 'W':
				d += time.Duration(n) * 7 * 24 * time.Hour
			case ch == 'D':
				d += time.Duration(n) * 24 * time.Hour
			case ch == 'H' && inTime:
				d += time.Duration(n) * time.Hour
			case ch == 'M' && inTime:
				d += time.Duration(n) * time.Minute
			case ch == 'S' && inTime:
				d += time.Duration(n) * time.Second
			default:
				return 0, fmt.Errorf("无效的 DURATION: %s", v)
			}
		}
	}
	if d <= 0 {
		return 0, fmt.Errorf("无效的 DURATION: %s", v)
	}
	return d, nil
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性，TZID 参数优先
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.EqualFold(k, "TZID") && len(v) > 0 {
			tzid = v[0]
		}
	}
	return parseICSValue(prop.Value, tzid, loc)
}

func parseICSValue(val, tzid string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
