package grid

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ScheduleDirectory 根据周起始日期找到（必要时创建）对应的排班表
type ScheduleDirectory interface {
	EnsureSchedule(ctx context.Context, weekStart time.Time) (int64, error)
}

// Workspace 在不同的周之间切换。每次切换都会关闭旧会话，
// 用新的 Store 和 History 打开新会话，并在新的排班表上恢复对账。
type Workspace struct {
	mu sync.Mutex

	persist      Persistence
	dir          ScheduleDirectory
	catalog      *Catalog
	pollInterval time.Duration
	opts         []Option
	logger       *slog.Logger

	current   *Session
	weekStart time.Time
}

func NewWorkspace(p Persistence, dir ScheduleDirectory, catalog *Catalog, pollInterval time.Duration, opts ...Option) *Workspace {
	// 借用 Session 的选项拿到调用方配置的 logger
	defaults := &Session{logger: slog.Default()}
	for _, opt := range opts {
		opt(defaults)
	}

	return &Workspace{
		persist:      p,
		dir:          dir,
		catalog:      catalog,
		pollInterval: pollInterval,
		opts:         opts,
		logger:       defaults.logger,
	}
}

// Navigate 切换到从 weekStart 开始的一周。
// 打开新会话失败时旧会话保持打开并恢复对账。
func (w *Workspace) Navigate(ctx context.Context, weekStart time.Time) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	old := w.current
	if old != nil {
		old.StopPolling()
	}

	next, err := w.open(ctx, weekStart)
	if err != nil {
		if old != nil {
			old.StartPolling(w.pollInterval)
		}
		return nil, err
	}

	if old != nil {
		old.Close()
	}
	next.StartPolling(w.pollInterval)
	w.current = next
	w.weekStart = weekStart

	w.logger.Info("已切换排班周", "week_start", weekStart.Format(time.DateOnly), "schedule", next.ScheduleID())

	return next, nil
}

func (w *Workspace) open(ctx context.Context, weekStart time.Time) (*Session, error) {
	scheduleID, err := w.dir.EnsureSchedule(ctx, weekStart)
	if err != nil {
		return nil, fmt.Errorf("resolve schedule for week %s: %w", weekStart.Format(time.DateOnly), err)
	}

	return Open(ctx, w.persist, scheduleID, w.catalog, w.opts...)
}

// Shift 向前或向后切换 weeks 周
func (w *Workspace) Shift(ctx context.Context, weeks int) (*Session, error) {
	w.mu.Lock()
	start := w.weekStart
	w.mu.Unlock()

	return w.Navigate(ctx, start.AddDate(0, 0, 7*weeks))
}

// Current 返回当前会话，还没有切换过时返回 nil
func (w *Workspace) Current() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *Workspace) WeekStart() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.weekStart
}

func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != nil {
		w.current.Close()
		w.current = nil
	}
}
