package model

import "regexp"

// ── 教学类型 ──

// CourseType 教学形式：CM 讲授 / TD 指导课 / TP 实践课
type CourseType string

const (
	CourseTypeCM CourseType = "CM"
	CourseTypeTD CourseType = "TD"
	CourseTypeTP CourseType = "TP"
)

// CourseTypes 全部教学形式（固定顺序，用于报表）
var CourseTypes = []CourseType{CourseTypeCM, CourseTypeTD, CourseTypeTP}

// Valid 是否为已定义的教学形式
func (t CourseType) Valid() bool {
	switch t {
	case CourseTypeCM, CourseTypeTD, CourseTypeTP:
		return true
	}
	return false
}

// ── 教室类型 ──

// RoomType 教室类型
type RoomType string

const (
	RoomTypeAmphi   RoomType = "Amphi"
	RoomTypeSalleTD RoomType = "Salle TD"
	RoomTypeSalleTP RoomType = "Salle TP"
	RoomTypeLabo    RoomType = "Labo"
)

// Valid 是否为已定义的教室类型
func (t RoomType) Valid() bool {
	switch t {
	case RoomTypeAmphi, RoomTypeSalleTD, RoomTypeSalleTP, RoomTypeLabo:
		return true
	}
	return false
}

// CompatibleRoomTypes 教学形式所要求的教室类型（硬约束）
//
//	CM → Amphi
//	TD → Salle TD
//	TP → Salle TP | Labo
func CompatibleRoomTypes(t CourseType) []RoomType {
	switch t {
	case CourseTypeCM:
		return []RoomType{RoomTypeAmphi}
	case CourseTypeTD:
		return []RoomType{RoomTypeSalleTD}
	case CourseTypeTP:
		return []RoomType{RoomTypeSalleTP, RoomTypeLabo}
	}
	return nil
}

// AcceptsRoom 判断教学形式能否安排在指定类型教室
func (t CourseType) AcceptsRoom(rt RoomType) bool {
	for _, allowed := range CompatibleRoomTypes(t) {
		if allowed == rt {
			return true
		}
	}
	return false
}

// ── 专业方向 ──

// Program 专业方向（filière），默认四个，可扩展
type Program string

const (
	ProgramTC  Program = "TC"
	ProgramDWM Program = "DWM"
	ProgramDSI Program = "DSI"
	ProgramRSS Program = "RSS"
)

var programPattern = regexp.MustCompile(`^[A-Z]{2,4}$`)

// Valid 默认方向或符合 2-4 位大写字母的扩展方向
func (p Program) Valid() bool {
	return programPattern.MatchString(string(p))
}

// ── 课次状态 ──

// SessionStatus 课次状态
type SessionStatus string

const (
	SessionScheduled  SessionStatus = "scheduled"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

// Valid 是否为已定义状态
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionScheduled, SessionInProgress, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// CanTransitionTo 状态机：scheduled → in_progress → completed，
// scheduled / in_progress → cancelled
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionScheduled:
		return next == SessionInProgress || next == SessionCancelled
	case SessionInProgress:
		return next == SessionCompleted || next == SessionCancelled
	}
	return false
}

// OccupiesCell 取消的课次不再占用格子
func (s SessionStatus) OccupiesCell() bool {
	return s != SessionCancelled
}

// ── 可用性主体 ──

// EntityKind 可用性登记的主体类型
type EntityKind string

const (
	EntityTeacher EntityKind = "teacher"
	EntityRoom    EntityKind = "room"
)

// Valid 是否为已定义主体
func (k EntityKind) Valid() bool {
	return k == EntityTeacher || k == EntityRoom
}

// ── 星期 ──

// Weekday 1=周一 … 7=周日（排课仅使用 1-6）
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = map[Weekday]string{
	Monday:    "Lundi",
	Tuesday:   "Mardi",
	Wednesday: "Mercredi",
	Thursday:  "Jeudi",
	Friday:    "Vendredi",
	Saturday:  "Samedi",
	Sunday:    "Dimanche",
}

// String 法语星期名（与导出表头一致）
func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return "?"
}
