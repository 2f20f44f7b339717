package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/grid"
)

// memoryBackend 同时实现 grid.Persistence 和 grid.ScheduleDirectory
type memoryBackend struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[int64]grid.Record
	schedules map[string]int64
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{rows: make(map[int64]grid.Record), schedules: make(map[string]int64)}
}

func (m *memoryBackend) EnsureSchedule(_ context.Context, weekStart time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := weekStart.Format(time.DateOnly)
	if id, ok := m.schedules[key]; ok {
		return id, nil
	}
	id := int64(len(m.schedules) + 1)
	m.schedules[key] = id
	return id, nil
}

func (m *memoryBackend) ListAssignments(_ context.Context, scheduleID int64) ([]grid.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]grid.Record, 0, len(m.rows))
	for _, r := range m.rows {
		if r.ScheduleID == scheduleID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryBackend) CreateAssignment(_ context.Context, req grid.CreateRequest) (grid.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.rows {
		if r.ScheduleID == req.ScheduleID && r.Day == req.Day && r.Slot == req.Slot {
			if r.StaffID == req.StaffID {
				return grid.Record{}, fmt.Errorf("%w: duplicate", grid.ErrConflict)
			}
			delete(m.rows, id)
		}
	}

	m.nextID++
	r := grid.Record{
		ID:         grid.Durable(m.nextID),
		ScheduleID: req.ScheduleID,
		TaskID:     req.TaskID,
		StaffID:    req.StaffID,
		Day:        req.Day,
		Slot:       req.Slot,
		Notes:      req.Notes,
	}
	m.rows[m.nextID] = r
	return r, nil
}

func (m *memoryBackend) UpdateAssignment(_ context.Context, id int64, req grid.UpdateRequest) (grid.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rows[id]
	if !ok {
		return grid.Record{}, fmt.Errorf("%w: %d", grid.ErrNotFound, id)
	}
	r.TaskID, r.StaffID, r.Day, r.Slot, r.Notes = req.TaskID, req.StaffID, req.Day, req.Slot, req.Notes
	m.rows[id] = r
	return r, nil
}

func (m *memoryBackend) DeleteAssignment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("%w: %d", grid.ErrNotFound, id)
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryBackend) ClearAssignments(_ context.Context, scheduleID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.rows {
		if r.ScheduleID == scheduleID {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

// syncBuffer 允许结果回调和测试同时访问输出
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func newConsole(t *testing.T) (*console, *syncBuffer) {
	t.Helper()

	backend := newMemoryBackend()
	catalog := grid.NewCatalog(
		[]grid.TaskInfo{{ID: 1, Name: "Lunch", Icon: "🌳"}, {ID: 2, Name: "Dish", Icon: "🥤"}},
		[]grid.StaffInfo{{ID: 7, Name: "Rocio"}, {ID: 8, Name: "Ruty"}},
	)
	out := &syncBuffer{}
	con := &console{catalog: catalog, week: domain.Week{FirstDay: time.Sunday}, out: out}
	con.ws = grid.NewWorkspace(backend, backend, catalog, time.Hour, grid.WithResultHandler(con.report))
	t.Cleanup(con.ws.Close)

	_, err := con.ws.Navigate(context.Background(), time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	return con, out
}

func run(t *testing.T, con *console, line string) {
	t.Helper()

	require.NoError(t, con.exec(context.Background(), line))
	require.Eventually(t, func() bool { return con.ws.Current().InFlight() == 0 }, time.Second, 5*time.Millisecond)
}

func TestConsole(t *testing.T) {
	t.Run("assign and show", func(t *testing.T) {
		con, out := newConsole(t)

		run(t, con, "assign monday lunch rocio")
		out.Reset()
		run(t, con, "show")

		require.Contains(t, out.String(), "Rocio")
		require.Contains(t, out.String(), "共 1 条记录 [可撤销]")
		rec, ok := con.ws.Current().Get(grid.SlotKey{Day: "Monday", Slot: "Lunch"})
		require.True(t, ok)
		require.True(t, rec.Confirmed())
	})

	t.Run("move into occupied cell swaps", func(t *testing.T) {
		con, _ := newConsole(t)

		run(t, con, "assign Monday Lunch Rocio")
		run(t, con, "assign Tuesday Lunch Ruty")
		run(t, con, "move Monday Lunch Tuesday")

		s := con.ws.Current()
		mon, _ := s.Get(grid.SlotKey{Day: "Monday", Slot: "Lunch"})
		tue, _ := s.Get(grid.SlotKey{Day: "Tuesday", Slot: "Lunch"})
		require.Equal(t, "Ruty", mon.Staff.Name)
		require.Equal(t, "Rocio", tue.Staff.Name)
	})

	t.Run("remove then undo", func(t *testing.T) {
		con, _ := newConsole(t)

		run(t, con, "assign Friday Dish Ruty")
		run(t, con, "remove Friday Dish")
		_, ok := con.ws.Current().Get(grid.SlotKey{Day: "Friday", Slot: "Dish"})
		require.False(t, ok)

		run(t, con, "undo")
		rec, ok := con.ws.Current().Get(grid.SlotKey{Day: "Friday", Slot: "Dish"})
		require.True(t, ok)
		require.Equal(t, "Ruty", rec.Staff.Name)
	})

	t.Run("clear reports the deleted count", func(t *testing.T) {
		con, out := newConsole(t)

		run(t, con, "assign Monday Lunch Rocio")
		run(t, con, "assign Monday Dish Ruty")
		run(t, con, "clear")

		require.Empty(t, con.ws.Current().Records())
		require.Eventually(t, func() bool { return strings.Contains(out.String(), "已删除 2 条记录") }, time.Second, 5*time.Millisecond)
	})

	t.Run("next and prev navigate weeks", func(t *testing.T) {
		con, _ := newConsole(t)

		run(t, con, "assign Monday Lunch Rocio")
		first := con.ws.Current().ScheduleID()

		run(t, con, "next")
		require.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), con.ws.WeekStart())
		require.NotEqual(t, first, con.ws.Current().ScheduleID())
		require.Empty(t, con.ws.Current().Records())

		run(t, con, "prev")
		require.Equal(t, first, con.ws.Current().ScheduleID())
		require.Len(t, con.ws.Current().Records(), 1)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		con, _ := newConsole(t)
		ctx := context.Background()

		require.ErrorContains(t, con.exec(ctx, "assign Funday Lunch Rocio"), "星期")
		require.ErrorContains(t, con.exec(ctx, "assign Monday Breakfast Rocio"), "任务")
		require.ErrorContains(t, con.exec(ctx, "assign Monday Lunch Nobody"), "员工")
		require.ErrorContains(t, con.exec(ctx, "remove Monday Lunch"), "空")
		require.ErrorContains(t, con.exec(ctx, "fly"), "未知命令")
		require.ErrorIs(t, con.exec(ctx, "undo"), grid.ErrNothingToUndo)
		require.ErrorIs(t, con.exec(ctx, "quit"), errQuit)
		require.NoError(t, con.exec(ctx, "   "))
	})
}
