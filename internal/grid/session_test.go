package grid

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	monLunch = SlotKey{Day: "Monday", Slot: "Lunch"}
	monSnack = SlotKey{Day: "Monday", Slot: "Snack"}
	tueDish  = SlotKey{Day: "Tuesday", Slot: "Dish"}
)

func TestSessionCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms in place and enforces the slot rule", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)

		p, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)

		r, ok := s.Get(monLunch)
		require.True(t, ok)
		require.True(t, r.ID.IsEphemeral())
		require.Equal(t, "Rocio", r.Staff.Name)

		res := p.Result()
		require.Equal(t, StatusOK, res.Status)

		r, ok = s.Get(monLunch)
		require.True(t, ok)
		require.Equal(t, Durable(101), r.ID)
		require.Equal(t, "Lunch", r.Task.Name)

		p, err = s.Create(ctx, snack.ID, "Monday", rocio.ID)
		require.NoError(t, err)
		require.Equal(t, StatusOK, p.Result().Status)

		before := s.Snapshot()
		_, err = s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.ErrorIs(t, err, ErrConflict)
		require.True(t, before.Equal(s.Snapshot()))

		length, cursor := s.HistoryLen()
		require.Equal(t, 3, length)
		require.Equal(t, 2, cursor)
	})

	t.Run("rejects unknown task and staff", func(t *testing.T) {
		s := openSession(t, newFakeServer())

		_, err := s.Create(ctx, 99, "Monday", rocio.ID)
		require.ErrorIs(t, err, ErrUnknownTask)

		_, err = s.Create(ctx, lunch.ID, "Monday", 99)
		require.ErrorIs(t, err, ErrUnknownStaff)

		_, err = s.Create(ctx, lunch.ID, "Someday", rocio.ID)
		require.ErrorIs(t, err, ErrInvalidDay)
	})

	t.Run("server conflict rolls back", func(t *testing.T) {
		f := newFakeServer()
		f.fail("create", fmt.Errorf("%w: taken", ErrConflict))
		s := openSession(t, f)

		p, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)

		res := p.Result()
		require.Equal(t, StatusConflict, res.Status)
		require.ErrorIs(t, res.Err, ErrConflict)

		_, ok := s.Get(monLunch)
		require.False(t, ok)
		require.False(t, s.CanUndo())
	})

	t.Run("unauthorized is reported distinctly", func(t *testing.T) {
		f := newFakeServer()
		f.fail("create", fmt.Errorf("%w: forbidden", ErrUnauthorized))
		s := openSession(t, f)

		p, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)
		require.Equal(t, StatusUnauthorized, p.Result().Status)
	})

	t.Run("failure restores the displaced occupant", func(t *testing.T) {
		f := newFakeServer(row(42, 1, lunch, "Monday", ruty))
		s := openSession(t, f)
		f.fail("create", fmt.Errorf("%w: boom", ErrTransport))

		p, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)

		r, _ := s.Get(monLunch)
		require.Equal(t, rocio.ID, r.StaffID)

		require.Equal(t, StatusTransportError, p.Result().Status)
		r, _ = s.Get(monLunch)
		require.Equal(t, Durable(42), r.ID)
	})

	t.Run("rollback leaves a newer occupant alone", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)
		gate := f.hold("create")
		f.fail("create", fmt.Errorf("%w: boom", ErrTransport))

		first, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)
		waitCalls(t, f, "create", 1)
		f.unhold("create")
		f.fail("create", nil)

		second, err := s.Create(ctx, lunch.ID, "Monday", ruty.ID)
		require.NoError(t, err)

		close(gate)
		require.Equal(t, StatusTransportError, first.Result().Status)
		require.Equal(t, StatusOK, second.Result().Status)

		r, ok := s.Get(monLunch)
		require.True(t, ok)
		require.Equal(t, ruty.ID, r.StaffID)
		require.True(t, r.Confirmed())
	})
}

func TestSessionCreateDeleteRace(t *testing.T) {
	ctx := context.Background()

	t.Run("removed before confirmation is discarded", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)
		gate := f.hold("create")

		p, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)
		r, _ := s.Get(monLunch)

		removed, err := s.Remove(ctx, r.ID)
		require.NoError(t, err)
		require.Equal(t, StatusOK, removed.Result().Status)
		require.Equal(t, 0, f.callCount("delete"))

		close(gate)
		require.Equal(t, StatusDiscarded, p.Result().Status)

		_, ok := s.Get(monLunch)
		require.False(t, ok)

		s.Close()
		require.Empty(t, f.rowsOf(1))
	})

	t.Run("a second create on the same cell survives", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)
		gate := f.hold("create")

		first, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)
		waitCalls(t, f, "create", 1)
		f.unhold("create")

		r, _ := s.Get(monLunch)
		_, err = s.Remove(ctx, r.ID)
		require.NoError(t, err)

		second, err := s.Create(ctx, lunch.ID, "Monday", ruty.ID)
		require.NoError(t, err)

		// 第二个请求要等第一个请求的结果被丢弃之后才发出
		require.Never(t, func() bool { return f.callCount("create") > 1 }, 20*time.Millisecond, time.Millisecond)

		close(gate)
		require.Equal(t, StatusDiscarded, first.Result().Status)
		require.Equal(t, StatusOK, second.Result().Status)

		r, ok := s.Get(monLunch)
		require.True(t, ok)
		require.Equal(t, ruty.ID, r.StaffID)
		require.True(t, r.Confirmed())

		rows := f.rowsOf(1)
		require.Len(t, rows, 1)
		require.Equal(t, ruty.ID, rows[0].StaffID)
		require.Equal(t, r.ID, rows[0].ID)

		changed, err := s.Refresh(ctx)
		require.NoError(t, err)
		require.False(t, changed)
		r, ok = s.Get(monLunch)
		require.True(t, ok)
		require.Equal(t, ruty.ID, r.StaffID)
	})

	t.Run("the same staff can be assigned again before the first create returns", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)
		gate := f.hold("create")

		first, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)
		waitCalls(t, f, "create", 1)
		f.unhold("create")

		r, _ := s.Get(monLunch)
		_, err = s.Remove(ctx, r.ID)
		require.NoError(t, err)

		second, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)

		close(gate)
		require.Equal(t, StatusDiscarded, first.Result().Status)
		require.Equal(t, StatusOK, second.Result().Status)

		rows := f.rowsOf(1)
		require.Len(t, rows, 1)
		require.Equal(t, rocio.ID, rows[0].StaffID)
	})

	t.Run("overwriting an unconfirmed record keeps the newer one on the server", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)
		gate := f.hold("create")

		first, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)
		waitCalls(t, f, "create", 1)
		f.unhold("create")

		second, err := s.Create(ctx, lunch.ID, "Monday", ruty.ID)
		require.NoError(t, err)

		close(gate)
		require.Equal(t, StatusDiscarded, first.Result().Status)
		require.Equal(t, StatusOK, second.Result().Status)

		rows := f.rowsOf(1)
		require.Len(t, rows, 1)
		require.Equal(t, ruty.ID, rows[0].StaffID)

		changed, err := s.Refresh(ctx)
		require.NoError(t, err)
		require.False(t, changed)
	})
}

func TestSessionUniqueness(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(20261017))

	tasks := []TaskInfo{lunch, dish, snack}
	staff := []StaffInfo{rocio, ruty}
	days := []Day{"Monday", "Tuesday", "Wednesday"}

	f := newFakeServer()
	s := openSession(t, f)

	for step := 0; step < 300; step++ {
		records := s.Records()

		var (
			p   *Pending
			err error
		)
		switch n := rng.Intn(10); {
		case n < 5 || len(records) == 0:
			p, err = s.Create(ctx, tasks[rng.Intn(len(tasks))].ID, days[rng.Intn(len(days))], staff[rng.Intn(len(staff))].ID)
		case n < 8:
			from := records[rng.Intn(len(records))].Key()
			p, err = s.Move(ctx, from, days[rng.Intn(len(days))], tasks[rng.Intn(len(tasks))].Name)
		default:
			p, err = s.Remove(ctx, records[rng.Intn(len(records))].ID)
		}
		if err != nil {
			require.ErrorIs(t, err, ErrConflict, "step %d", step)
		} else {
			require.False(t, p.Result().Status.Failed(), "step %d", step)
		}
		waitIdle(t, s)

		requireUniquePlacements(t, s.Records())
		requireUniquePlacements(t, f.rowsOf(1))
		requireMatchesServer(t, s, f)
	}
}

func requireUniquePlacements(t *testing.T, records []Record) {
	t.Helper()

	seen := make(map[Placement]bool, len(records))
	for _, r := range records {
		pl := r.placement()
		require.False(t, seen[pl], "duplicate %+v", pl)
		seen[pl] = true
	}
}

func TestSessionRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes confirmed record", func(t *testing.T) {
		f := newFakeServer(row(42, 1, lunch, "Monday", rocio))
		s := openSession(t, f)

		p, err := s.Remove(ctx, Durable(42))
		require.NoError(t, err)
		_, ok := s.Get(monLunch)
		require.False(t, ok)

		require.Equal(t, StatusOK, p.Result().Status)
		require.Empty(t, f.rowsOf(1))
	})

	t.Run("failure restores the record", func(t *testing.T) {
		f := newFakeServer(row(42, 1, lunch, "Monday", rocio))
		s := openSession(t, f)
		f.fail("delete", fmt.Errorf("%w: offline", ErrTransport))

		p, err := s.Remove(ctx, Durable(42))
		require.NoError(t, err)
		require.Equal(t, StatusTransportError, p.Result().Status)

		r, ok := s.Get(monLunch)
		require.True(t, ok)
		require.Equal(t, Durable(42), r.ID)
		require.False(t, s.CanUndo())
	})

	t.Run("not found rolls back", func(t *testing.T) {
		f := newFakeServer(row(42, 1, lunch, "Monday", rocio))
		s := openSession(t, f)
		f.fail("delete", fmt.Errorf("%w: gone", ErrNotFound))

		p, err := s.Remove(ctx, Durable(42))
		require.NoError(t, err)
		require.Equal(t, StatusNotFound, p.Result().Status)

		_, ok := s.Get(monLunch)
		require.True(t, ok)
	})

	t.Run("unknown id", func(t *testing.T) {
		s := openSession(t, newFakeServer())

		_, err := s.Remove(ctx, Durable(1))
		require.ErrorIs(t, err, ErrNoAssignment)
	})
}

func TestSessionMove(t *testing.T) {
	ctx := context.Background()

	t.Run("relocates into an empty cell", func(t *testing.T) {
		f := newFakeServer(row(42, 1, lunch, "Monday", rocio))
		s := openSession(t, f)

		p, err := s.Move(ctx, monLunch, "Tuesday", "Dish")
		require.NoError(t, err)

		r, ok := s.Get(tueDish)
		require.True(t, ok)
		require.Equal(t, Durable(42), r.ID)
		require.Equal(t, dish.ID, r.TaskID)
		_, ok = s.Get(monLunch)
		require.False(t, ok)

		res := p.Result()
		require.Equal(t, OpMove, res.Op)
		require.Equal(t, StatusOK, res.Status)

		rows := f.rowsOf(1)
		require.Len(t, rows, 1)
		require.Equal(t, Day("Tuesday"), rows[0].Day)
		require.Equal(t, "Dish", rows[0].Slot)
	})

	t.Run("swaps two records atomically", func(t *testing.T) {
		f := newFakeServer(row(1, 1, lunch, "Monday", rocio), row(2, 1, dish, "Tuesday", ruty))
		s := openSession(t, f)
		gate := f.hold("update")

		p, err := s.Move(ctx, monLunch, "Tuesday", "Dish")
		require.NoError(t, err)

		a, _ := s.Get(tueDish)
		b, _ := s.Get(monLunch)
		require.Equal(t, Durable(1), a.ID)
		require.Equal(t, Durable(2), b.ID)
		require.Equal(t, 2, len(s.Snapshot()))
		length, _ := s.HistoryLen()
		require.Equal(t, 2, length)

		close(gate)
		res := p.Result()
		require.Equal(t, OpSwap, res.Op)
		require.Equal(t, StatusOK, res.Status)
		require.Equal(t, 2, f.callCount("update"))

		rows := f.rowsOf(1)
		require.Equal(t, tueDish, rows[0].Key())
		require.Equal(t, monLunch, rows[1].Key())
	})

	t.Run("partial swap failure restores both sides", func(t *testing.T) {
		f := newFakeServer(row(1, 1, lunch, "Monday", rocio), row(2, 1, dish, "Tuesday", ruty))
		s := openSession(t, f)
		f.failUpdate(2, fmt.Errorf("%w: nope", ErrTransport))

		p, err := s.Move(ctx, monLunch, "Tuesday", "Dish")
		require.NoError(t, err)
		require.Equal(t, StatusTransportError, p.Result().Status)

		a, _ := s.Get(monLunch)
		b, _ := s.Get(tueDish)
		require.Equal(t, Durable(1), a.ID)
		require.Equal(t, Durable(2), b.ID)

		rows := f.rowsOf(1)
		require.Equal(t, monLunch, rows[0].Key())
		require.Equal(t, tueDish, rows[1].Key())
		require.False(t, s.CanUndo())
	})

	t.Run("same key is a no-op", func(t *testing.T) {
		f := newFakeServer(row(1, 1, lunch, "Monday", rocio))
		s := openSession(t, f)

		p, err := s.Move(ctx, monLunch, "Monday", "Lunch")
		require.NoError(t, err)
		require.Equal(t, StatusOK, p.Result().Status)
		require.Equal(t, 0, f.callCount("update"))
		require.False(t, s.CanUndo())
	})

	t.Run("unconfirmed record cannot move", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)
		gate := f.hold("create")
		defer close(gate)

		_, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)

		_, err = s.Move(ctx, monLunch, "Tuesday", "Dish")
		require.ErrorIs(t, err, ErrUnconfirmed)
	})

	t.Run("empty source", func(t *testing.T) {
		s := openSession(t, newFakeServer())

		_, err := s.Move(ctx, monLunch, "Tuesday", "Dish")
		require.ErrorIs(t, err, ErrNoAssignment)
	})
}

func TestSessionClearAll(t *testing.T) {
	ctx := context.Background()

	t.Run("clears with one request", func(t *testing.T) {
		f := newFakeServer(row(1, 1, lunch, "Monday", rocio), row(2, 1, dish, "Tuesday", ruty))
		s := openSession(t, f)

		p, err := s.ClearAll(ctx, 1)
		require.NoError(t, err)
		require.Empty(t, s.Snapshot())

		res := p.Result()
		require.Equal(t, StatusOK, res.Status)
		require.Equal(t, int64(2), res.Affected)
		require.Equal(t, 1, f.callCount("clear"))
		require.Empty(t, f.rowsOf(1))
	})

	t.Run("failure restores the records", func(t *testing.T) {
		f := newFakeServer(row(1, 1, lunch, "Monday", rocio), row(2, 1, dish, "Tuesday", ruty))
		s := openSession(t, f)
		f.fail("clear", fmt.Errorf("%w: offline", ErrTransport))

		p, err := s.ClearAll(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, StatusTransportError, p.Result().Status)
		require.Len(t, s.Snapshot(), 2)
	})

	t.Run("other schedule is rejected", func(t *testing.T) {
		s := openSession(t, newFakeServer())

		_, err := s.ClearAll(ctx, 2)
		require.ErrorIs(t, err, ErrWrongSchedule)
	})
}

func TestSessionUndoRedo(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip through the server", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)

		_, err := s.Undo(ctx)
		require.ErrorIs(t, err, ErrNothingToUndo)

		p, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)
		require.Equal(t, StatusOK, p.Result().Status)

		p, err = s.Undo(ctx)
		require.NoError(t, err)
		_, ok := s.Get(monLunch)
		require.False(t, ok)
		require.Equal(t, StatusOK, p.Result().Status)
		require.Empty(t, f.rowsOf(1))

		p, err = s.Redo(ctx)
		require.NoError(t, err)
		require.Equal(t, StatusOK, p.Result().Status)

		rows := f.rowsOf(1)
		require.Len(t, rows, 1)
		r, ok := s.Get(monLunch)
		require.True(t, ok)
		require.Equal(t, rows[0].ID, r.ID)

		_, err = s.Redo(ctx)
		require.ErrorIs(t, err, ErrNothingToRedo)

		p, err = s.Undo(ctx)
		require.NoError(t, err)
		require.Equal(t, StatusOK, p.Result().Status)
		require.Empty(t, f.rowsOf(1))
	})

	t.Run("undo of a swap issues updates", func(t *testing.T) {
		f := newFakeServer(row(1, 1, lunch, "Monday", rocio), row(2, 1, dish, "Tuesday", ruty))
		s := openSession(t, f)

		p, err := s.Move(ctx, monLunch, "Tuesday", "Dish")
		require.NoError(t, err)
		require.Equal(t, StatusOK, p.Result().Status)

		p, err = s.Undo(ctx)
		require.NoError(t, err)
		res := p.Result()
		require.Equal(t, StatusOK, res.Status)
		require.Equal(t, int64(2), res.Affected)

		rows := f.rowsOf(1)
		require.Equal(t, monLunch, rows[0].Key())
		require.Equal(t, tueDish, rows[1].Key())
	})

	t.Run("undo of a clear recreates the records", func(t *testing.T) {
		f := newFakeServer(row(1, 1, lunch, "Monday", rocio), row(2, 1, dish, "Tuesday", ruty))
		s := openSession(t, f)

		p, err := s.ClearAll(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, StatusOK, p.Result().Status)

		p, err = s.Undo(ctx)
		require.NoError(t, err)
		require.Equal(t, StatusOK, p.Result().Status)
		require.Len(t, f.rowsOf(1), 2)

		for _, r := range s.Records() {
			id, ok := r.ID.DurableValue()
			require.True(t, ok)
			require.Greater(t, id, int64(100))
		}
	})
}

func TestSessionUndoFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("restores the state before the undo", func(t *testing.T) {
		f := newFakeServer(row(1, 1, lunch, "Monday", rocio), row(2, 1, dish, "Tuesday", ruty))
		s := openSession(t, f)

		p, err := s.Move(ctx, monLunch, "Tuesday", "Dish")
		require.NoError(t, err)
		require.Equal(t, StatusOK, p.Result().Status)

		f.failUpdate(2, fmt.Errorf("%w: offline", ErrTransport))
		p, err = s.Undo(ctx)
		require.NoError(t, err)

		res := p.Result()
		require.Equal(t, StatusTransportError, res.Status)
		require.False(t, res.Reloaded)

		a, _ := s.Get(monLunch)
		b, _ := s.Get(tueDish)
		require.Equal(t, ruty.ID, a.StaffID)
		require.Equal(t, rocio.ID, b.StaffID)
		requireMatchesServer(t, s, f)

		require.True(t, s.CanUndo())
		require.False(t, s.CanRedo())
	})

	t.Run("reloads when the grid changed in the meantime", func(t *testing.T) {
		f := newFakeServer(row(1, 1, lunch, "Monday", rocio), row(2, 1, dish, "Tuesday", ruty))
		s := openSession(t, f)

		p, err := s.Move(ctx, monLunch, "Tuesday", "Dish")
		require.NoError(t, err)
		require.Equal(t, StatusOK, p.Result().Status)

		f.failUpdate(2, fmt.Errorf("%w: offline", ErrTransport))
		gate := f.hold("update")
		undo, err := s.Undo(ctx)
		require.NoError(t, err)

		created, err := s.Create(ctx, snack.ID, "Monday", rocio.ID)
		require.NoError(t, err)
		require.Equal(t, StatusOK, created.Result().Status)

		close(gate)
		res := undo.Result()
		require.Equal(t, StatusTransportError, res.Status)
		require.True(t, res.Reloaded)

		waitIdle(t, s)
		_, err = s.Refresh(ctx)
		require.NoError(t, err)

		requireMatchesServer(t, s, f)
		r, ok := s.Get(monSnack)
		require.True(t, ok)
		require.Equal(t, rocio.ID, r.StaffID)
	})
}

func requireMatchesServer(t *testing.T, s *Session, f *fakeServer) {
	t.Helper()

	rows := f.rowsOf(s.ScheduleID())
	require.Len(t, s.Records(), len(rows))
	for _, r := range rows {
		local, ok := s.Get(r.Key())
		require.True(t, ok, r.Key().String())
		require.Equal(t, r.ID, local.ID)
		require.Equal(t, r.StaffID, local.StaffID)
	}
}

func TestSessionResultHandler(t *testing.T) {
	var (
		mu      sync.Mutex
		results []Result
	)
	f := newFakeServer()
	s := openSession(t, f, WithResultHandler(func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}))

	p, err := s.Create(context.Background(), lunch.ID, "Monday", rocio.ID)
	require.NoError(t, err)
	p.Result()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 1)
	require.Equal(t, OpCreate, results[0].Op)
}

func TestSessionClosed(t *testing.T) {
	f := newFakeServer()
	s, err := Open(context.Background(), f, 1, testCatalog())
	require.NoError(t, err)
	s.Close()

	_, err = s.Create(context.Background(), lunch.ID, "Monday", rocio.ID)
	require.ErrorIs(t, err, ErrClosed)
	_, err = s.Poll(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}
