package handler

import "campus-planning/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Course       *CourseHandler
	Teacher      *TeacherHandler
	Group        *GroupHandler
	Room         *RoomHandler
	TimeSlot     *TimeSlotHandler
	Availability *AvailabilityHandler
	Session      *SessionHandler
	Timetable    *TimetableHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Course:       NewCourseHandler(svc.Course),
		Teacher:      NewTeacherHandler(svc.Teacher),
		Group:        NewGroupHandler(svc.Group),
		Room:         NewRoomHandler(svc.Room, svc.Availability),
		TimeSlot:     NewTimeSlotHandler(svc.TimeSlot),
		Availability: NewAvailabilityHandler(svc.Availability),
		Session:      NewSessionHandler(svc.Assignment),
		Timetable:    NewTimetableHandler(svc.Timetable),
		Export:       NewExportHandler(svc.Export),
	}
}
