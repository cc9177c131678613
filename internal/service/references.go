package service

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
)

// entityRemover 删除被课次引用的实体
//
// 默认拒绝删除仍被课次引用的实体（ReferentialIntegrityError）；
// cascade=true 时在同一事务内删除这些课次并写变更日志，再执行 fn。
// 无论有无课次都持有实体锁，与落位互斥。
type entityRemover struct {
	repo   *repository.Repository
	locker Locker
	logger *zap.Logger
}

func (d *entityRemover) remove(
	ctx context.Context,
	entity, id string,
	filter repository.SessionFilter,
	cascade bool,
	callerID string,
	fn func(tx *repository.Repository) error,
) error {
	sessions, err := d.repo.Session.List(ctx, filter)
	if err != nil {
		d.logger.Error("查询引用课次失败", zap.String("entity", entity), zap.String("id", id), zap.Error(err))
		return err
	}
	if len(sessions) > 0 && !cascade {
		return &ReferentialIntegrityError{
			Entity:     entity,
			ID:         id,
			Reason:     "仍被课次引用",
			SessionIDs: sessionIDs(sessions),
		}
	}

	keys := make([]string, 0, len(sessions)*2+1)
	keys = append(keys, subjectLockKey(entity, id))
	for i := range sessions {
		keys = append(keys, weekLockKey(sessions[i].Week), sessionLockKey(sessions[i].SessionID))
	}
	unlock, err := d.locker.Lock(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	return d.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		// 加锁前可能已有新课次提交，持有实体锁后重新读取即为最终集合
		current, err := tx.Session.List(ctx, filter)
		if err != nil {
			return err
		}
		if len(current) > 0 && !cascade {
			return &ReferentialIntegrityError{Entity: entity, ID: id, Reason: "仍被课次引用", SessionIDs: sessionIDs(current)}
		}
		if len(current) > 0 {
			if err := tx.Session.DeleteByIDs(ctx, sessionIDs(current)); err != nil {
				return err
			}
			for i := range current {
				if err := tx.ChangeLog.Create(ctx, removalLog(&current[i], callerID)); err != nil {
					return err
				}
			}
			d.logger.Info("级联删除课次",
				zap.String("entity", entity),
				zap.String("id", id),
				zap.Int("sessions", len(current)),
			)
		}
		return fn(tx)
	})
}

// ── 实体修改后的课次复核 ──

// sessionCheck 按实体的新属性复核单个课次；hit 记录违反的规则，others 为相关的其他课次
type sessionCheck func(s *model.Session, hit func(rule, message string, others ...string))

// recheckSessions 汇总不再满足落位规则的课次；全部满足时返回 nil
// 调用方须持有实体锁，结果按规则首次出现的顺序排列
func recheckSessions(sessions []model.Session, check sessionCheck) error {
	byRule := make(map[string]*dto.Conflict)
	var order []string
	for i := range sessions {
		s := &sessions[i]
		if !s.Status.OccupiesCell() {
			continue
		}
		check(s, func(rule, message string, others ...string) {
			c, ok := byRule[rule]
			if !ok {
				c = &dto.Conflict{Rule: rule, Message: message}
				byRule[rule] = c
				order = append(order, rule)
			}
			for _, id := range append([]string{s.SessionID}, others...) {
				if !slices.Contains(c.SessionIDs, id) {
					c.SessionIDs = append(c.SessionIDs, id)
				}
			}
		})
	}
	if len(order) == 0 {
		return nil
	}

	report := &dto.ConflictReport{Conflicts: make([]dto.Conflict, 0, len(order))}
	for _, rule := range order {
		report.Conflicts = append(report.Conflicts, *byRule[rule])
	}
	return &ConflictError{Report: report}
}

func sessionIDs(sessions []model.Session) []string {
	ids := make([]string, 0, len(sessions))
	for i := range sessions {
		ids = append(ids, sessions[i].SessionID)
	}
	return ids
}

func removalLog(s *model.Session, callerID string) *model.SessionChangeLog {
	week, day, slot, room, status := s.Week, int(s.Day), s.Slot, s.RoomID, s.Status
	return &model.SessionChangeLog{
		ChangeLogID: uuid.NewString(),
		SessionID:   s.SessionID,
		ChangeType:  model.ChangeRemove,
		OldWeek:     &week,
		OldDay:      &day,
		OldSlot:     &slot,
		OldRoomID:   &room,
		OldStatus:   &status,
		OperatorID:  callerID,
		CreatedAt:   time.Now(),
	}
}
