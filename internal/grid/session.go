package grid

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Session 是一个打开的排班表视图，独占该视图的 Store、History 和 DeletedKeys。
// 本地修改在锁内同步完成，网络请求在锁外的 goroutine 中进行，
// 请求返回后重新加锁，并且只根据仍能通过格子和 ID 识别的状态来修改 Store。
type Session struct {
	mu sync.Mutex

	scheduleID int64
	persist    Persistence
	catalog    *Catalog
	store      *Store
	history    *History
	deleted    *DeletedKeys
	poller     *Poller

	// creating 记录每个格子上最后一个未结束的创建请求，同一格子的创建请求按顺序发出
	creating map[SlotKey]chan struct{}

	// inflight 是尚未返回的请求数量，generation 在每次本地修改和请求返回时递增，
	// 对账时用这两个值判断拉取到的数据是否已经过时
	inflight   int
	generation uint64
	// stale 表示本地内容可能和服务端不一致，下一次对账逐格比较而不是只比较格子集合
	stale      bool
	closed     bool
	wg         sync.WaitGroup

	logger          *slog.Logger
	metrics         Metrics
	onResult        func(Result)
	requestTimeout  time.Duration
	historyCapacity int
}

// Open 加载 scheduleID 对应的排班表并创建会话，初始快照即为第一条历史记录
func Open(ctx context.Context, p Persistence, scheduleID int64, catalog *Catalog, opts ...Option) (*Session, error) {
	s := &Session{
		scheduleID:      scheduleID,
		persist:         p,
		catalog:         catalog,
		deleted:         NewDeletedKeys(),
		creating:        make(map[SlotKey]chan struct{}),
		logger:          slog.Default(),
		metrics:         nopMetrics{},
		requestTimeout:  DefaultRequestTimeout,
		historyCapacity: DefaultHistoryCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = NewCatalog(nil, nil)
	}

	records, err := p.ListAssignments(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("load schedule %d: %w", scheduleID, err)
	}

	initial := s.catalog.BuildSnapshot(records)
	s.store = NewStore()
	s.store.ReplaceAll(initial)
	s.history = NewHistory(s.historyCapacity, initial)
	s.logger = s.logger.With("schedule", scheduleID)
	s.metrics.HistoryDepth(s.history.Len())

	return s, nil
}

func (s *Session) ScheduleID() int64 {
	return s.scheduleID
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

func (s *Session) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Records()
}

func (s *Session) Get(key SlotKey) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(key)
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// HistoryLen 返回保留的快照数量和 cursor 位置
func (s *Session) HistoryLen() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len(), s.history.Cursor()
}

// InFlight 返回尚未返回的请求数量
func (s *Session) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight
}

// Close 停止对账并等待所有请求返回，之后的操作都会返回 ErrClosed
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.StopPolling()
	s.wg.Wait()
}

// 以下方法都必须在持有锁时调用

func (s *Session) push() uint64 {
	seq := s.history.Push(s.store.Snapshot())
	s.metrics.HistoryDepth(s.history.Len())
	return seq
}

// rollbackHistory 撤回失败操作压入的快照；如果之后已经有别的操作压入了快照，
// 就压入一个回滚后的快照，保证撤销时看到的状态和 Store 一致
func (s *Session) rollbackHistory(seq uint64) {
	if !s.history.Retract(seq) {
		s.history.Push(s.store.Snapshot())
	}
	s.metrics.HistoryDepth(s.history.Len())
}

func (s *Session) begin(op Op) {
	s.track()
	s.generation++
	s.metrics.OperationApplied(op)
}

func (s *Session) track() {
	s.inflight++
	s.wg.Add(1)
}

// complete 和 track 成对出现，但 wg.Done 由 goroutine 自己负责
func (s *Session) complete() {
	s.inflight--
	s.generation++
}

func (s *Session) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	// 操作在本地已经生效，请求不能因为调用方的 ctx 结束而被取消
	ctx := context.WithoutCancel(parent)
	if s.requestTimeout > 0 {
		return context.WithTimeout(ctx, s.requestTimeout)
	}
	return context.WithCancel(ctx)
}

// finish 在锁外调用
func (s *Session) finish(p *Pending, res Result) {
	s.metrics.OperationSettled(res.Op, res.Status)

	switch {
	case res.Status.Failed() && res.Reloaded:
		s.logger.Warn("操作被服务端拒绝，已按服务端数据重新加载", "op", res.Op, "status", res.Status.String(), "error", res.Err)
	case res.Status.Failed():
		s.logger.Warn("操作被服务端拒绝，已回滚", "op", res.Op, "key", res.Key.String(), "status", res.Status.String(), "error", res.Err)
	default:
		s.logger.Debug("操作已完成", "op", res.Op, "key", res.Key.String(), "status", res.Status.String())
	}

	if res.Status == StatusNotFound && !res.Reloaded {
		s.requestRefresh()
	}

	if s.onResult != nil {
		s.onResult(res)
	}
	p.resolve(res)
}

func (s *Session) requestRefresh() {
	s.mu.Lock()
	p := s.poller
	s.mu.Unlock()

	if p != nil {
		p.Nudge()
	}
}

// withDisplay 以服务端返回的记录为准，补全服务端没有返回的展示信息
func (s *Session) withDisplay(local, remote Record) Record {
	remote = s.catalog.denormalize(remote)
	if remote.ID.IsZero() {
		remote.ID = local.ID
	}
	if remote.Task.Name == "" {
		remote.Task = local.Task
	}
	if remote.Staff.Name == "" {
		remote.Staff = local.Staff
	}
	return remote
}

func dropID(id ID) func(Snapshot) {
	return func(snap Snapshot) {
		for k, r := range snap {
			if r.ID == id {
				delete(snap, k)
			}
		}
	}
}

func replaceID(id ID, confirmed Record) func(Snapshot) {
	return func(snap Snapshot) {
		for k, r := range snap {
			if r.ID == id {
				replacement := confirmed
				replacement.Day, replacement.Slot = r.Day, r.Slot
				replacement.TaskID, replacement.Task = r.TaskID, r.Task
				snap[k] = replacement
			}
		}
	}
}
