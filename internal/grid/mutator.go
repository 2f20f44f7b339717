package grid

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Create 把员工 staffID 安排到 day 的 taskID 任务上。
// 新记录以临时 ID 立即写入本地，并在后台请求服务端创建。
// 目标格子已有其他员工时直接覆盖（服务端在同一事务中替换原记录）。
func (s *Session) Create(ctx context.Context, taskID int64, day Day, staffID int64) (*Pending, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	task, ok := s.catalog.Task(taskID)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrUnknownTask, taskID)
	}
	staff, ok := s.catalog.Staff(staffID)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrUnknownStaff, staffID)
	}
	if !day.Valid() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrInvalidDay, day)
	}

	rec := Record{
		ID:         NewEphemeral(),
		ScheduleID: s.scheduleID,
		TaskID:     task.ID,
		StaffID:    staff.ID,
		Day:        day,
		Slot:       task.Name,
		Task:       task,
		Staff:      staff,
	}
	if err := CheckConflict(s.store.cells, rec.placement()); err != nil {
		s.mu.Unlock()
		s.metrics.OperationSettled(OpCreate, StatusConflict)
		return nil, err
	}

	key := rec.Key()
	displaced, hadDisplaced := s.store.Get(key)
	if hadDisplaced && displaced.ID.IsEphemeral() {
		s.deleted.Mark(key, displaced.ID)
	}
	s.store.Set(key, rec)
	seq := s.push()
	s.begin(OpCreate)

	// 服务端创建时会替换同一格子中其他员工的记录，
	// 前一个请求没有结束时，后一个请求必须等它（包括丢弃结果的删除）完成后再发出
	prev := s.creating[key]
	done := make(chan struct{})
	s.creating[key] = done
	s.mu.Unlock()

	p := newPending()
	go func() {
		defer s.wg.Done()
		defer s.releaseCell(key, done)

		if prev != nil {
			<-prev
		}
		res, discard := s.settleCreate(ctx, rec, displaced, hadDisplaced, seq)
		if discard != nil {
			s.discardRemote(ctx, *discard)
		}
		s.finish(p, res)
	}()

	return p, nil
}

func (s *Session) releaseCell(key SlotKey, done chan struct{}) {
	s.mu.Lock()
	if s.creating[key] == done {
		delete(s.creating, key)
	}
	s.mu.Unlock()
	close(done)
}

// settleCreate 返回的 discard 不为空时，调用方必须调用 discardRemote 删除它
func (s *Session) settleCreate(parent context.Context, rec, displaced Record, hadDisplaced bool, seq uint64) (Result, *Record) {
	ctx, cancel := s.requestContext(parent)
	remote, err := s.persist.CreateAssignment(ctx, createRequestFor(rec))
	cancel()

	key := rec.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.complete()

	if err != nil {
		// 只有格子里还是这条临时记录时才回滚，期间用户可能已经删除或覆盖了它
		if cur, ok := s.store.Get(key); ok && cur.ID == rec.ID {
			if hadDisplaced {
				s.store.Set(key, displaced)
				if displaced.ID.IsEphemeral() {
					s.deleted.Unmark(key, displaced.ID)
				}
			} else {
				s.store.Delete(key)
			}
			s.rollbackHistory(seq)
		}
		s.deleted.Consume(key, rec.ID)
		s.history.Rewrite(dropID(rec.ID))
		return Result{Op: OpCreate, Status: Classify(err), Key: key, Err: err}, nil
	}

	confirmed := s.withDisplay(rec, remote)

	if s.deleted.Consume(key, rec.ID) {
		// 请求期间用户已经删除了这个格子，不能让服务端确认的记录重新出现
		s.history.Rewrite(dropID(rec.ID))
		if _, ok := confirmed.ID.DurableValue(); !ok {
			return Result{Op: OpCreate, Status: StatusDiscarded, Key: key, Record: &confirmed}, nil
		}
		s.track()
		return Result{Op: OpCreate, Status: StatusDiscarded, Key: key, Record: &confirmed}, &confirmed
	}

	if cur, ok := s.store.Get(key); ok && cur.ID == rec.ID {
		s.store.Set(key, confirmed)
	} else {
		s.logger.Debug("格子内容已变化，不写入确认后的记录", "key", key.String(), "id", confirmed.ID.String())
	}
	s.history.Rewrite(replaceID(rec.ID, confirmed))

	return Result{Op: OpCreate, Status: StatusOK, Key: key, Record: &confirmed}, nil
}

// discardRemote 删除服务端已经确认、但本地已被丢弃的记录。
// 在锁外调用，settleCreate 已经为它调用过 track。
func (s *Session) discardRemote(parent context.Context, rec Record) {
	defer s.wg.Done()

	id, _ := rec.ID.DurableValue()

	ctx, cancel := s.requestContext(parent)
	err := s.persist.DeleteAssignment(ctx, id)
	cancel()

	s.mu.Lock()
	s.complete()
	s.mu.Unlock()

	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn("无法删除已被丢弃的排班记录", "id", id, "error", err)
		s.requestRefresh()
	}
}

// Remove 删除 id 对应的记录。
// 临时记录只在本地删除并登记到 DeletedKeys，由创建请求返回时负责丢弃服务端的结果。
func (s *Session) Remove(ctx context.Context, id ID) (*Pending, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	key, rec, ok := s.store.Find(id)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNoAssignment, id)
	}

	s.store.Delete(key)
	seq := s.push()

	p := newPending()

	if id.IsEphemeral() {
		s.deleted.Mark(key, id)
		s.generation++
		s.metrics.OperationApplied(OpRemove)
		s.mu.Unlock()

		s.finish(p, Result{Op: OpRemove, Status: StatusOK, Key: key, Record: &rec})
		return p, nil
	}

	s.begin(OpRemove)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		res := s.settleRemove(ctx, key, rec, seq)
		s.finish(p, res)
	}()

	return p, nil
}

func (s *Session) settleRemove(parent context.Context, key SlotKey, rec Record, seq uint64) Result {
	serverID, _ := rec.ID.DurableValue()

	ctx, cancel := s.requestContext(parent)
	err := s.persist.DeleteAssignment(ctx, serverID)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.complete()

	if err != nil {
		if _, occupied := s.store.Get(key); !occupied {
			s.store.Set(key, rec)
			s.rollbackHistory(seq)
		}
		return Result{Op: OpRemove, Status: Classify(err), Key: key, Record: &rec, Err: err}
	}

	return Result{Op: OpRemove, Status: StatusOK, Key: key, Record: &rec}
}

// moveStep 描述一条记录在移动前后的状态
type moveStep struct {
	before Record
	after  Record
}

// Move 把 from 格子中的记录移动到 (toDay, toSlot)。
// 目标格子为空时是搬移；目标格子有记录时两条记录交换位置，
// 交换在锁内一次完成，不存在两个格子指向同一条记录的中间状态。
func (s *Session) Move(ctx context.Context, from SlotKey, toDay Day, toSlot string) (*Pending, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	src, ok := s.store.Get(from)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNoAssignment, from)
	}
	if src.ID.IsEphemeral() {
		s.mu.Unlock()
		return nil, ErrUnconfirmed
	}
	if !toDay.Valid() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrInvalidDay, toDay)
	}
	task, ok := s.catalog.TaskByName(toSlot)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, toSlot)
	}

	to := SlotKey{Day: toDay, Slot: toSlot}
	if to == from {
		s.mu.Unlock()
		return completed(Result{Op: OpMove, Status: StatusOK, Key: to, Record: &src}), nil
	}

	var (
		op    Op
		steps []moveStep
	)

	dst, occupied := s.store.Get(to)
	switch {
	case !occupied:
		moved := src.relocate(toDay, task)
		if err := CheckConflict(s.store.cells, moved.placement(), src.ID); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.store.Delete(from)
		s.store.Set(to, moved)
		op = OpMove
		steps = []moveStep{{before: src, after: moved}}
	case dst.ID.IsEphemeral():
		s.mu.Unlock()
		return nil, ErrUnconfirmed
	case dst.StaffID == src.StaffID:
		// 同一员工交换两个格子，排班表看起来没有任何变化
		s.mu.Unlock()
		return completed(Result{Op: OpSwap, Status: StatusOK, Key: to, Record: &src}), nil
	default:
		movedSrc := src.relocate(toDay, task)
		movedDst := dst.relocate(from.Day, src.Task)
		for _, r := range []Record{movedSrc, movedDst} {
			if err := CheckConflict(s.store.cells, r.placement(), src.ID, dst.ID); err != nil {
				s.mu.Unlock()
				return nil, err
			}
		}
		s.store.Set(to, movedSrc)
		s.store.Set(from, movedDst)
		op = OpSwap
		steps = []moveStep{{before: src, after: movedSrc}, {before: dst, after: movedDst}}
	}

	seq := s.push()
	s.begin(op)
	s.mu.Unlock()

	p := newPending()
	go func() {
		defer s.wg.Done()
		res := s.settleMove(ctx, op, steps, seq)
		s.finish(p, res)
	}()

	return p, nil
}

func (s *Session) settleMove(parent context.Context, op Op, steps []moveStep, seq uint64) Result {
	ctx, cancel := s.requestContext(parent)
	defer cancel()

	remotes := make([]Record, len(steps))
	updated := make([]bool, len(steps))

	// 交换时两个请求同时发出；一个失败不取消另一个，之后再对成功的那个做补偿
	var g errgroup.Group
	for i, st := range steps {
		g.Go(func() error {
			id, _ := st.after.ID.DurableValue()
			remote, err := s.persist.UpdateAssignment(ctx, id, updateRequestFor(st.after))
			if err != nil {
				return err
			}
			remotes[i] = remote
			updated[i] = true
			return nil
		})
	}
	err := g.Wait()

	if err != nil {
		for i, st := range steps {
			if !updated[i] {
				continue
			}
			id, _ := st.before.ID.DurableValue()
			if _, cerr := s.persist.UpdateAssignment(ctx, id, updateRequestFor(st.before)); cerr != nil {
				s.logger.Error("无法撤回已经成功的移动请求", "id", id, "error", cerr)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.complete()

	key := steps[0].after.Key()

	if err != nil {
		if s.movedIntact(steps) {
			for _, st := range steps {
				s.store.Delete(st.after.Key())
			}
			for _, st := range steps {
				s.store.Set(st.before.Key(), st.before)
			}
			s.rollbackHistory(seq)
		}
		return Result{Op: op, Status: Classify(err), Key: key, Record: &steps[0].before, Err: err}
	}

	for i, st := range steps {
		confirmed := s.withDisplay(st.after, remotes[i])
		if cur, ok := s.store.Get(st.after.Key()); ok && cur.ID == st.after.ID {
			s.store.Set(st.after.Key(), confirmed)
		}
	}

	moved := steps[0].after
	return Result{Op: op, Status: StatusOK, Key: key, Record: &moved}
}

// movedIntact 判断移动后的记录是否都还在原处，并且回滚要写回的格子没有被其他记录占用
func (s *Session) movedIntact(steps []moveStep) bool {
	ids := make([]ID, 0, len(steps))
	for _, st := range steps {
		cur, ok := s.store.Get(st.after.Key())
		if !ok || cur.ID != st.after.ID {
			return false
		}
		ids = append(ids, st.after.ID)
	}
	for _, st := range steps {
		if cur, ok := s.store.Get(st.before.Key()); ok && !isIgnored(cur.ID, ids) {
			return false
		}
	}
	return true
}

// ClearAll 清空 scheduleID 的所有排班记录，只发出一次批量删除请求
func (s *Session) ClearAll(ctx context.Context, scheduleID int64) (*Pending, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if scheduleID != s.scheduleID {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrWrongSchedule, scheduleID)
	}

	var removed []Record
	for _, r := range s.store.Records() {
		if r.ScheduleID != scheduleID {
			continue
		}
		s.store.Delete(r.Key())
		if r.ID.IsEphemeral() {
			s.deleted.Mark(r.Key(), r.ID)
		}
		removed = append(removed, r)
	}
	seq := s.push()
	s.begin(OpClear)
	s.mu.Unlock()

	p := newPending()
	go func() {
		defer s.wg.Done()
		res := s.settleClear(ctx, scheduleID, removed, seq)
		s.finish(p, res)
	}()

	return p, nil
}

func (s *Session) settleClear(parent context.Context, scheduleID int64, removed []Record, seq uint64) Result {
	ctx, cancel := s.requestContext(parent)
	n, err := s.persist.ClearAssignments(ctx, scheduleID)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.complete()

	if err != nil {
		restored := false
		for _, r := range removed {
			if _, occupied := s.store.Get(r.Key()); occupied {
				continue
			}
			s.store.Set(r.Key(), r)
			if r.ID.IsEphemeral() {
				s.deleted.Unmark(r.Key(), r.ID)
			}
			restored = true
		}
		if restored {
			s.rollbackHistory(seq)
		}
		return Result{Op: OpClear, Status: Classify(err), Err: err}
	}

	return Result{Op: OpClear, Status: StatusOK, Affected: n}
}
