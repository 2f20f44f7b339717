package grid

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// restorePlan 是从当前状态切换到某个历史快照需要发往服务端的请求
type restorePlan struct {
	deletes []Record
	updates []moveStep
	creates []Record

	// 不需要请求的临时记录：hidden 被登记到 DeletedKeys，revealed 从中移除
	hidden   []Record
	revealed []Record
}

func (p restorePlan) size() int {
	return len(p.deletes) + len(p.updates) + len(p.creates)
}

// restoreProgress 记录计划中已经被服务端接受的请求
type restoreProgress struct {
	deleted []bool
	updated []bool
	created []Record
}

func newRestoreProgress(plan restorePlan) *restoreProgress {
	return &restoreProgress{
		deleted: make([]bool, len(plan.deletes)),
		updated: make([]bool, len(plan.updates)),
		created: make([]Record, len(plan.creates)),
	}
}

// planRestore 按 ID 比较 current 和 target，临时记录只需要维护 DeletedKeys，不需要请求
func (s *Session) planRestore(current, target Snapshot) restorePlan {
	var plan restorePlan

	inTarget := make(map[ID]Record, len(target))
	for _, r := range target {
		inTarget[r.ID] = r
	}
	inCurrent := make(map[ID]Record, len(current))
	for _, r := range current {
		inCurrent[r.ID] = r
	}

	for _, r := range sortedRecords(current) {
		want, ok := inTarget[r.ID]
		switch {
		case !ok && r.ID.IsEphemeral():
			s.deleted.Mark(r.Key(), r.ID)
			plan.hidden = append(plan.hidden, r)
		case !ok:
			plan.deletes = append(plan.deletes, r)
		case r.ID.IsEphemeral():
		case want.Key() != r.Key() || want.TaskID != r.TaskID || want.StaffID != r.StaffID:
			plan.updates = append(plan.updates, moveStep{before: r, after: want})
		}
	}
	for _, r := range sortedRecords(target) {
		if _, ok := inCurrent[r.ID]; ok {
			continue
		}
		if r.ID.IsEphemeral() {
			s.deleted.Unmark(r.Key(), r.ID)
			plan.revealed = append(plan.revealed, r)
			continue
		}
		plan.creates = append(plan.creates, r)
	}

	return plan
}

func sortedRecords(snap Snapshot) []Record {
	return (&Store{cells: snap}).Records()
}

// Undo 回到上一个快照，并把差异同步到服务端。
// 同步失败时撤回已经成功的请求并恢复本地状态和历史位置；
// 期间本地又有修改或撤回失败时，改为按服务端的数据重新加载。
func (s *Session) Undo(ctx context.Context) (*Pending, error) {
	return s.restore(ctx, OpUndo)
}

// Redo 前进到下一个快照，同步方式和 Undo 相同
func (s *Session) Redo(ctx context.Context) (*Pending, error) {
	return s.restore(ctx, OpRedo)
}

func (s *Session) restore(ctx context.Context, op Op) (*Pending, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	var (
		target Snapshot
		ok     bool
	)
	if op == OpUndo {
		target, ok = s.history.Undo()
		if !ok {
			s.mu.Unlock()
			return nil, ErrNothingToUndo
		}
	} else {
		target, ok = s.history.Redo()
		if !ok {
			s.mu.Unlock()
			return nil, ErrNothingToRedo
		}
	}

	before := s.store.Snapshot()
	plan := s.planRestore(s.store.cells, target)
	s.store.ReplaceAll(target)

	if plan.size() == 0 {
		s.generation++
		s.metrics.OperationApplied(op)
		s.mu.Unlock()
		return completed(Result{Op: op, Status: StatusOK}), nil
	}

	s.begin(op)
	gen := s.generation
	s.mu.Unlock()

	p := newPending()
	go func() {
		defer s.wg.Done()
		res := s.settleRestore(ctx, op, plan, before, gen)
		s.finish(p, res)
	}()

	return p, nil
}

func (s *Session) settleRestore(parent context.Context, op Op, plan restorePlan, before Snapshot, gen uint64) Result {
	ctx, cancel := s.requestContext(parent)
	defer cancel()

	res := Result{Op: op, Status: StatusOK, Affected: int64(plan.size())}
	prog := newRestoreProgress(plan)

	if err := s.applyRestore(ctx, plan, prog); err != nil {
		res.Status, res.Err = Classify(err), err
		if !s.revertRestore(ctx, op, plan, prog, before, gen) {
			res.Reloaded = true
		}
		return res
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.complete()

	// 重新创建的记录得到了新的服务端 ID，需要同时替换 Store 和历史中的旧 ID
	for i, r := range plan.creates {
		confirmed := s.withDisplay(r, prog.created[i])
		replaceID(r.ID, confirmed)(s.store.cells)
		s.history.Rewrite(replaceID(r.ID, confirmed))
	}

	return res
}

// applyRestore 先删除再更新最后创建，避免同一员工在同一格子上的唯一约束冲突
func (s *Session) applyRestore(ctx context.Context, plan restorePlan, prog *restoreProgress) error {
	var g errgroup.Group
	for i, r := range plan.deletes {
		g.Go(func() error {
			id, _ := r.ID.DurableValue()
			err := s.persist.DeleteAssignment(ctx, id)
			if err == nil {
				prog.deleted[i] = true
			}
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, st := range plan.updates {
		g.Go(func() error {
			id, _ := st.after.ID.DurableValue()
			if _, err := s.persist.UpdateAssignment(ctx, id, updateRequestFor(st.after)); err != nil {
				return err
			}
			prog.updated[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, r := range plan.creates {
		g.Go(func() error {
			req := createRequestFor(r)
			req.ScheduleID = s.scheduleID
			remote, err := s.persist.CreateAssignment(ctx, req)
			if err != nil {
				return err
			}
			prog.created[i] = remote
			return nil
		})
	}
	return g.Wait()
}

// revertRestore 按相反的顺序撤回已经成功的请求，然后恢复本地状态和历史位置。
// 返回 false 表示无法回滚，本地会按服务端的数据重新加载。
func (s *Session) revertRestore(parent context.Context, op Op, plan restorePlan, prog *restoreProgress, before Snapshot, gen uint64) bool {
	// 原请求可能因为超时失败，撤回使用新的超时
	ctx, cancel := s.requestContext(parent)
	defer cancel()

	var errs []error

	for i := range plan.creates {
		id, ok := prog.created[i].ID.DurableValue()
		if !ok {
			continue
		}
		if err := s.persist.DeleteAssignment(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	for i, st := range plan.updates {
		if !prog.updated[i] {
			continue
		}
		id, _ := st.before.ID.DurableValue()
		if _, err := s.persist.UpdateAssignment(ctx, id, updateRequestFor(st.before)); err != nil {
			errs = append(errs, err)
		}
	}
	recreated := make(map[ID]Record)
	for i, r := range plan.deletes {
		if !prog.deleted[i] {
			continue
		}
		req := createRequestFor(r)
		req.ScheduleID = s.scheduleID
		remote, err := s.persist.CreateAssignment(ctx, req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		recreated[r.ID] = s.withDisplay(r, remote)
	}

	s.mu.Lock()

	for old, confirmed := range recreated {
		replaceID(old, confirmed)(before)
		replaceID(old, confirmed)(s.store.cells)
		s.history.Rewrite(replaceID(old, confirmed))
	}

	if err := errors.Join(errs...); err != nil || s.generation != gen {
		if err != nil {
			s.logger.Error("无法撤回已经成功的撤销/重做请求", "op", op, "error", err)
		}
		s.stale = true
		s.complete()
		s.mu.Unlock()

		rctx, rcancel := s.requestContext(parent)
		defer rcancel()
		if _, err := s.Refresh(rctx); err != nil {
			s.logger.Warn("重新加载失败，等待下一次对账", "error", err)
		}
		return false
	}

	s.store.ReplaceAll(before)
	for _, r := range plan.hidden {
		s.deleted.Unmark(r.Key(), r.ID)
	}
	for _, r := range plan.revealed {
		s.deleted.Mark(r.Key(), r.ID)
	}
	if op == OpUndo {
		s.history.Redo()
	} else {
		s.history.Undo()
	}
	s.complete()
	s.mu.Unlock()

	return true
}
