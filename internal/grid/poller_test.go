package grid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionPoll(t *testing.T) {
	ctx := context.Background()

	t.Run("identical key sets do not touch history", func(t *testing.T) {
		f := newFakeServer(row(1, 1, lunch, "Monday", rocio))
		s := openSession(t, f)

		// 同一格子换了员工，格子集合不变
		f.put(row(1, 1, lunch, "Monday", ruty))

		replaced, err := s.Poll(ctx)
		require.NoError(t, err)
		require.False(t, replaced)
		require.False(t, s.CanUndo())

		r, _ := s.Get(monLunch)
		require.Equal(t, rocio.ID, r.StaffID)
	})

	t.Run("changed key sets replace the store once", func(t *testing.T) {
		f := newFakeServer(row(1, 1, lunch, "Monday", rocio))
		s := openSession(t, f)

		f.put(row(2, 1, dish, "Tuesday", ruty))

		replaced, err := s.Poll(ctx)
		require.NoError(t, err)
		require.True(t, replaced)

		r, ok := s.Get(tueDish)
		require.True(t, ok)
		require.Equal(t, "Ruty", r.Staff.Name)

		length, _ := s.HistoryLen()
		require.Equal(t, 2, length)

		replaced, err = s.Poll(ctx)
		require.NoError(t, err)
		require.False(t, replaced)
		length, _ = s.HistoryLen()
		require.Equal(t, 2, length)
	})

	t.Run("skipped while a request is in flight", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)
		gate := f.hold("create")
		defer close(gate)

		_, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)

		replaced, err := s.Poll(ctx)
		require.NoError(t, err)
		require.False(t, replaced)
		require.Equal(t, 1, f.callCount("list"))
	})

	t.Run("stale result is dropped", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)
		gate := f.hold("list")

		type pollResult struct {
			replaced bool
			err      error
		}
		done := make(chan pollResult, 1)
		go func() {
			replaced, err := s.Poll(ctx)
			done <- pollResult{replaced, err}
		}()
		waitCalls(t, f, "list", 2)

		p, err := s.Create(ctx, lunch.ID, "Monday", rocio.ID)
		require.NoError(t, err)
		require.Equal(t, StatusOK, p.Result().Status)

		close(gate)
		res := <-done
		require.NoError(t, res.err)
		require.False(t, res.replaced)

		_, ok := s.Get(monLunch)
		require.True(t, ok)
	})

	t.Run("errors are returned", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)
		f.fail("list", ErrTransport)

		_, err := s.Poll(ctx)
		require.ErrorIs(t, err, ErrTransport)
	})
}

func TestPoller(t *testing.T) {
	t.Run("picks up remote changes", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)
		s.StartPolling(5 * time.Millisecond)

		f.put(row(1, 1, lunch, "Monday", rocio))

		require.Eventually(t, func() bool {
			_, ok := s.Get(monLunch)
			return ok
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("nudge polls before the next tick", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)
		p := s.StartPolling(time.Hour)

		f.put(row(1, 1, lunch, "Monday", rocio))
		p.Nudge()

		require.Eventually(t, func() bool {
			_, ok := s.Get(monLunch)
			return ok
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("failures keep the loop running", func(t *testing.T) {
		f := newFakeServer()
		s := openSession(t, f)
		f.fail("list", ErrTransport)
		s.StartPolling(5 * time.Millisecond)

		waitCalls(t, f, "list", 3)
		f.fail("list", nil)
		f.put(row(1, 1, lunch, "Monday", rocio))

		require.Eventually(t, func() bool {
			_, ok := s.Get(monLunch)
			return ok
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		s := openSession(t, newFakeServer())
		p := s.StartPolling(time.Hour)
		require.Same(t, p, s.StartPolling(time.Hour))

		s.StopPolling()
		s.StopPolling()
		p.Stop()
	})
}

type fakeDirectory struct {
	weeks map[string]int64
}

func (d *fakeDirectory) EnsureSchedule(_ context.Context, weekStart time.Time) (int64, error) {
	key := weekStart.Format(time.DateOnly)
	if id, ok := d.weeks[key]; ok {
		return id, nil
	}
	id := int64(len(d.weeks) + 1)
	d.weeks[key] = id
	return id, nil
}

func TestWorkspace(t *testing.T) {
	ctx := context.Background()
	week := time.Date(2026, time.October, 11, 0, 0, 0, 0, time.UTC)

	f := newFakeServer(row(1, 1, lunch, "Monday", rocio), row(2, 2, dish, "Tuesday", ruty))
	w := NewWorkspace(f, &fakeDirectory{weeks: map[string]int64{}}, testCatalog(), time.Hour)
	t.Cleanup(w.Close)

	require.Nil(t, w.Current())

	first, err := w.Navigate(ctx, week)
	require.NoError(t, err)
	require.Equal(t, int64(1), first.ScheduleID())
	_, ok := first.Get(monLunch)
	require.True(t, ok)

	second, err := w.Shift(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), second.ScheduleID())
	require.Equal(t, week.AddDate(0, 0, 7), w.WeekStart())
	require.Same(t, second, w.Current())
	_, ok = second.Get(tueDish)
	require.True(t, ok)
	require.False(t, second.CanUndo())

	_, err = first.Create(ctx, snack.ID, "Monday", rocio.ID)
	require.ErrorIs(t, err, ErrClosed)

	back, err := w.Shift(ctx, -1)
	require.NoError(t, err)
	require.Equal(t, int64(1), back.ScheduleID())
}
