package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/repository"
)

// ── 班组模块业务错误 ──

var (
	ErrGroupNotFound  = errors.New("班组不存在")
	ErrGroupNameTaken = errors.New("班组名称已存在")
	ErrGroupCycle     = errors.New("班组层级不能形成环")
)

// GroupService 班组业务接口
type GroupService interface {
	Create(ctx context.Context, req *dto.CreateGroupRequest, callerID string) (*dto.GroupResponse, error)
	GetByID(ctx context.Context, id string) (*dto.GroupResponse, error)
	List(ctx context.Context, req *dto.GroupListRequest) ([]dto.GroupResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateGroupRequest, callerID string) (*dto.GroupResponse, error)
	Delete(ctx context.Context, id string, cascade bool, callerID string) error
}

type groupService struct {
	repo    *repository.Repository
	locker  Locker
	remover *entityRemover
	logger  *zap.Logger
}

// NewGroupService 创建 GroupService 实例
func NewGroupService(repo *repository.Repository, locker Locker, logger *zap.Logger) GroupService {
	return &groupService{
		repo:    repo,
		locker:  locker,
		remover: &entityRemover{repo: repo, locker: locker, logger: logger},
		logger:  logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *groupService) Create(ctx context.Context, req *dto.CreateGroupRequest, callerID string) (*dto.GroupResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, req.Name, ""); err != nil {
		return nil, err
	}

	group := &model.Group{
		GroupID:   uuid.NewString(),
		Name:      req.Name,
		Semester:  req.Semester,
		Program:   model.Program(req.Program),
		Headcount: req.Headcount,
	}
	if req.ParentID != nil {
		parent, err := s.repo.Group.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, missingRef("group", *req.ParentID)
			}
			return nil, err
		}
		group.ParentID = &parent.GroupID
		group.Parent = parent
	}
	group.SetAudit(callerID)

	if err := s.repo.Group.Create(ctx, group); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrGroupNameTaken
		}
		s.logger.Error("创建班组失败", zap.Error(err))
		return nil, err
	}

	return toGroupResponse(group), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *groupService) GetByID(ctx context.Context, id string) (*dto.GroupResponse, error) {
	group, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toGroupResponse(group), nil
}

// ────────────────────── List ──────────────────────

func (s *groupService) List(ctx context.Context, req *dto.GroupListRequest) ([]dto.GroupResponse, int64, error) {
	filter := repository.GroupFilter{Program: req.Program, Semester: req.Semester, ParentID: req.ParentID}
	groups, total, err := s.repo.Group.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出班组失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.GroupResponse, 0, len(groups))
	for i := range groups {
		result = append(result, *toGroupResponse(&groups[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

// Update 人数或父班组变化时锁住受影响的班组，已有课次因此超员或撞课则整体拒绝
func (s *groupService) Update(ctx context.Context, id string, req *dto.UpdateGroupRequest, callerID string) (*dto.GroupResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	reparent := req.ParentID != nil && !req.ClearParent
	if req.Headcount != nil || reparent {
		keys, err := s.lockKeys(ctx, id, req.ParentID, reparent)
		if err != nil {
			return nil, err
		}
		unlock, err := s.locker.Lock(ctx, keys...)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	group, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != group.Name {
		if err := s.ensureNameFree(ctx, *req.Name, id); err != nil {
			return nil, err
		}
		group.Name = *req.Name
	}
	if req.Semester != nil {
		group.Semester = *req.Semester
	}
	if req.Program != nil {
		group.Program = model.Program(*req.Program)
	}
	if req.Headcount != nil {
		group.Headcount = *req.Headcount
	}

	switch {
	case req.ClearParent:
		group.ParentID = nil
		group.Parent = nil
	case req.ParentID != nil:
		parent, err := s.repo.Group.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, missingRef("group", *req.ParentID)
			}
			return nil, err
		}
		if err := s.checkAcyclic(ctx, id, parent.GroupID); err != nil {
			return nil, err
		}
		group.ParentID = &parent.GroupID
		group.Parent = parent
	}
	group.UpdatedBy = &callerID

	if req.Headcount != nil {
		if err := s.recheckCapacity(ctx, group); err != nil {
			return nil, err
		}
	}
	if reparent {
		if err := s.recheckLineage(ctx, id, *group.ParentID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Group.Update(ctx, group); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrGroupNameTaken
		}
		s.logger.Error("更新班组失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toGroupResponse(group), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 有子班组的班组不可删除（即使 cascade）
func (s *groupService) Delete(ctx context.Context, id string, cascade bool, callerID string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}

	children, err := s.repo.Group.ListChildren(ctx, id)
	if err != nil {
		s.logger.Error("查询子班组失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if len(children) > 0 {
		return &ReferentialIntegrityError{Entity: "group", ID: id, Reason: "存在子班组"}
	}

	n, err := s.repo.Course.CountAssignmentRefs(ctx, "", id)
	if err != nil {
		return err
	}
	if n > 0 {
		return &ReferentialIntegrityError{Entity: "group", ID: id, Reason: "仍被课程负责教师分配引用"}
	}

	return s.remover.remove(ctx, "group", id, repository.SessionFilter{GroupIDs: []string{id}}, cascade, callerID,
		func(tx *repository.Repository) error {
			return tx.Group.Delete(ctx, id, callerID)
		})
}

// ── 内部辅助方法 ──

func (s *groupService) get(ctx context.Context, id string) (*model.Group, error) {
	group, err := s.repo.Group.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询班组失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return group, nil
}

func (s *groupService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.Group.GetByName(ctx, name)
	if err == nil && existing.GroupID != selfID {
		return ErrGroupNameTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

// checkAcyclic 新父班组不能是自身或自身的后代
func (s *groupService) checkAcyclic(ctx context.Context, id, parentID string) error {
	if id == parentID {
		return ErrGroupCycle
	}
	all, err := s.repo.Group.ListAll(ctx)
	if err != nil {
		return err
	}
	tree := newGroupTree(all)
	for _, d := range tree.descendants(id) {
		if d == parentID {
			return ErrGroupCycle
		}
	}
	return nil
}

// lockKeys 自身、全部后代，以及挂到新父班组时的新祖先链
// Create 持有班组锁，这些班组上不会并发落位
func (s *groupService) lockKeys(ctx context.Context, id string, parentID *string, reparent bool) ([]string, error) {
	all, err := s.repo.Group.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	tree := newGroupTree(all)

	ids := append([]string{id}, tree.descendants(id)...)
	if reparent {
		ids = append(ids, *parentID)
		ids = append(ids, tree.ancestors(*parentID)...)
	}
	keys := make([]string, 0, len(ids))
	for _, g := range ids {
		keys = append(keys, subjectLockKey("group", g))
	}
	return keys, nil
}

// recheckCapacity 新人数下，该班组已有课次的教室仍须坐得下
func (s *groupService) recheckCapacity(ctx context.Context, group *model.Group) error {
	sessions, err := s.repo.Session.List(ctx, repository.SessionFilter{GroupIDs: []string{group.GroupID}, ActiveOnly: true})
	if err != nil {
		s.logger.Error("查询班组课次失败", zap.String("id", group.GroupID), zap.Error(err))
		return err
	}
	return recheckSessions(sessions, func(ss *model.Session, hit func(string, string, ...string)) {
		if ss.Course != nil && ss.Room != nil && requiredSeats(ss.Course, group) > ss.Room.Capacity {
			hit(dto.RuleRoomCapacity, fmt.Sprintf("%d 人超出已排课次所在教室的容量", group.Headcount))
		}
	})
}

// recheckLineage 挂到 parentID 之下后，子树与新祖先链在同一格的课次即为撞课
// 子树内部、以及与原祖先的关系不受影响，无需复核
func (s *groupService) recheckLineage(ctx context.Context, id, parentID string) error {
	all, err := s.repo.Group.ListAll(ctx)
	if err != nil {
		return err
	}
	tree := newGroupTree(all)
	subtree := append([]string{id}, tree.descendants(id)...)
	above := append([]string{parentID}, tree.ancestors(parentID)...)

	upper, err := s.repo.Session.List(ctx, repository.SessionFilter{GroupIDs: above, ActiveOnly: true})
	if err != nil {
		s.logger.Error("查询班组课次失败", zap.String("id", parentID), zap.Error(err))
		return err
	}
	if len(upper) == 0 {
		return nil
	}
	lower, err := s.repo.Session.List(ctx, repository.SessionFilter{GroupIDs: subtree, ActiveOnly: true})
	if err != nil {
		s.logger.Error("查询班组课次失败", zap.String("id", id), zap.Error(err))
		return err
	}

	occupied := make(map[slotCell][]string, len(upper))
	for i := range upper {
		k := slotCell{week: upper[i].Week, day: upper[i].Day, slot: upper[i].Slot}
		occupied[k] = append(occupied[k], upper[i].SessionID)
	}
	return recheckSessions(lower, func(ss *model.Session, hit func(string, string, ...string)) {
		if others := occupied[slotCell{week: ss.Week, day: ss.Day, slot: ss.Slot}]; len(others) > 0 {
			hit(dto.RuleGroupDoubleBooking, "新父班组链上已有同一时段的课次", others...)
		}
	})
}

// slotCell 周次 × 星期 × 时间段
type slotCell struct {
	week int
	day  model.Weekday
	slot int
}

// ════════════════════════════════════════════════════════════
// groupTree — 班组层级
// ════════════════════════════════════════════════════════════

// groupTree 班组父子关系的内存视图
type groupTree struct {
	parent   map[string]string
	children map[string][]string
}

func newGroupTree(groups []model.Group) *groupTree {
	t := &groupTree{
		parent:   make(map[string]string, len(groups)),
		children: make(map[string][]string),
	}
	for i := range groups {
		g := &groups[i]
		if g.ParentID != nil {
			t.parent[g.GroupID] = *g.ParentID
			t.children[*g.ParentID] = append(t.children[*g.ParentID], g.GroupID)
		}
	}
	return t
}

// ancestors 自下而上的祖先（不含自身）
func (t *groupTree) ancestors(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	for p, ok := t.parent[id]; ok && !seen[p]; p, ok = t.parent[p] {
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// descendants 全部后代（不含自身）
func (t *groupTree) descendants(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range t.children[cur] {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
				queue = append(queue, c)
			}
		}
	}
	return out
}

// lineage 自身 + 祖先 + 后代：与这些班组同格上课即视为同一批学生撞课
func (t *groupTree) lineage(id string) []string {
	out := []string{id}
	out = append(out, t.ancestors(id)...)
	return append(out, t.descendants(id)...)
}

// groupLineage 从仓储加载班组树并返回 id 的血缘集合
func groupLineage(ctx context.Context, repo *repository.Repository, id string) ([]string, error) {
	all, err := repo.Group.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return newGroupTree(all).lineage(id), nil
}

func toGroupResponse(g *model.Group) *dto.GroupResponse {
	resp := &dto.GroupResponse{
		ID:        g.GroupID,
		Name:      g.Name,
		Semester:  g.Semester,
		Program:   string(g.Program),
		Headcount: g.Headcount,
		CreatedAt: fmtTime(g.CreatedAt),
		UpdatedAt: fmtTime(g.UpdatedAt),
	}
	if g.Parent != nil {
		resp.Parent = &dto.GroupBrief{ID: g.Parent.GroupID, Name: g.Parent.Name}
	}
	return resp
}
