package grid

import (
	"log/slog"
	"time"
)

const DefaultRequestTimeout = 10 * time.Second

type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithHistoryCapacity(n int) Option {
	return func(s *Session) {
		s.historyCapacity = n
	}
}

// WithRequestTimeout 设置每个发往服务端的请求的超时时间，超时按 ErrTransport 处理
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.requestTimeout = d
	}
}

// WithResultHandler 注册一个回调，每个异步操作结束时都会被调用（在锁外调用）
func WithResultHandler(fn func(Result)) Option {
	return func(s *Session) {
		s.onResult = fn
	}
}
