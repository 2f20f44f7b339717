package grid

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultPollInterval 是对账的默认间隔
const DefaultPollInterval = 5 * time.Second

// Poll 拉取服务端的完整列表并和本地对账。
// 只有格子集合发生变化时才整体替换 Store 并压入一条历史，返回 true；
// 撤销或重做无法回滚之后，下一次对账改为逐格比较。
// 有请求未返回，或者拉取期间发生了本地修改时，丢弃这次的结果。
func (s *Session) Poll(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if s.inflight > 0 {
		s.mu.Unlock()
		s.logger.Debug("有请求未返回，跳过本次对账")
		return false, nil
	}
	gen := s.generation
	s.mu.Unlock()

	records, err := s.persist.ListAssignments(ctx, s.scheduleID)
	if err != nil {
		s.metrics.PollCompleted(false, err)
		return false, fmt.Errorf("poll schedule %d: %w", s.scheduleID, err)
	}
	next := s.catalog.BuildSnapshot(records)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	if s.generation != gen || s.inflight > 0 {
		s.logger.Debug("对账期间本地有修改，丢弃拉取结果")
		s.metrics.PollCompleted(false, nil)
		return false, nil
	}
	if s.stale {
		s.stale = false
		if next.Equal(s.store.cells) {
			s.metrics.PollCompleted(false, nil)
			return false, nil
		}
	} else if SameKeys(s.store.cells, next) {
		s.metrics.PollCompleted(false, nil)
		return false, nil
	}

	added, removed := diffKeys(s.store.cells, next)
	s.store.ReplaceAll(next)
	s.push()
	s.generation++
	s.logger.Info("排班表已被其他用户修改，已同步", "added", len(added), "removed", len(removed))
	s.metrics.PollCompleted(true, nil)

	return true, nil
}

// Refresh 立即对账一次
func (s *Session) Refresh(ctx context.Context) (bool, error) {
	return s.Poll(ctx)
}

// Poller 定期调用 Session.Poll，错误只记录日志
type Poller struct {
	session  *Session
	interval time.Duration
	nudge    chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// StartPolling 开始定期对账。会话已有 Poller 时直接返回它。
func (s *Session) StartPolling(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if s.poller != nil {
		return s.poller
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		session:  s,
		interval: interval,
		nudge:    make(chan struct{}, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.poller = p
	go p.run(ctx)

	return p
}

// StopPolling 停止对账并等待正在进行的对账结束
func (s *Session) StopPolling() {
	s.mu.Lock()
	p := s.poller
	s.poller = nil
	s.mu.Unlock()

	if p != nil {
		p.Stop()
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.nudge:
		}
		p.poll(ctx)
	}
}

func (p *Poller) poll(ctx context.Context) {
	timeout := p.session.requestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := p.session.Poll(ctx); err != nil {
		if errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) {
			return
		}
		p.session.logger.Warn("对账失败", "error", err)
	}
}

// Nudge 请求尽快对账一次，不会阻塞
func (p *Poller) Nudge() {
	select {
	case p.nudge <- struct{}{}:
	default:
	}
}

// Stop 停止对账，可以重复调用
func (p *Poller) Stop() {
	p.cancel()
	<-p.done
}
