package service

import (
	"go.uber.org/zap"

	"campus-planning/backend/config"
	"campus-planning/backend/internal/metrics"
	"campus-planning/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Course       CourseService
	Teacher      TeacherService
	Group        GroupService
	Room         RoomService
	TimeSlot     TimeSlotService
	Availability AvailabilityService
	Detector     ConflictDetector
	Assignment   AssignmentService
	Timetable    TimetableService
	Export       ExportService
}

// NewService 创建 Service 聚合
//
// locker / idem 由调用方按部署方式选择（进程内或 Redis 实现）。
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	locker Locker,
	idem IdempotencyStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	planning := &cfg.Planning

	availability := NewAvailabilityService(planning, repo, locker, logger)
	detector := NewConflictDetector(repo, availability, m, logger)
	timetable := NewTimetableService(planning, repo, m, logger)

	return &Service{
		Course:       NewCourseService(repo, locker, logger),
		Teacher:      NewTeacherService(repo, locker, logger),
		Group:        NewGroupService(repo, locker, logger),
		Room:         NewRoomService(repo, locker, logger),
		TimeSlot:     NewTimeSlotService(repo, logger),
		Availability: availability,
		Detector:     detector,
		Assignment:   NewAssignmentService(planning, repo, detector, locker, idem, m, logger),
		Timetable:    timetable,
		Export:       NewExportService(planning, repo, timetable, logger),
	}
}
