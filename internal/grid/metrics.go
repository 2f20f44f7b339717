package grid

// Metrics 收集引擎的运行指标，默认实现什么也不做
type Metrics interface {
	// OperationApplied 在操作在本地生效时调用
	OperationApplied(op Op)
	// OperationSettled 在服务端确认或拒绝操作后调用
	OperationSettled(op Op, status Status)
	// PollCompleted 在每次对账后调用，replaced 表示本地副本被替换
	PollCompleted(replaced bool, err error)
	// HistoryDepth 报告当前保留的快照数量
	HistoryDepth(n int)
}

type nopMetrics struct{}

func (nopMetrics) OperationApplied(Op) {}
func (nopMetrics) OperationSettled(Op, Status) {}
func (nopMetrics) PollCompleted(bool, error) {}
func (nopMetrics) HistoryDepth(int) {}
