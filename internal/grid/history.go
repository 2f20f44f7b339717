package grid

// DefaultHistoryCapacity 是撤销历史最多保留的快照数量
const DefaultHistoryCapacity = 50

type historyEntry struct {
	seq  uint64
	snap Snapshot
}

// History 是基于环形缓冲区的撤销/重做历史。
// 逻辑下标 0 是最旧的快照，cursor 指向当前状态对应的快照。
// 超出容量时淘汰最旧的快照，而不是报错。
type History struct {
	buf    []historyEntry
	start  int
	size   int
	cursor int
	seq    uint64
}

// NewHistory 创建历史记录，initial 是刚加载完排班表时的状态
func NewHistory(capacity int, initial Snapshot) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	h := &History{buf: make([]historyEntry, capacity)}
	h.buf[0] = historyEntry{seq: h.nextSeq(), snap: initial.Clone()}
	h.size = 1
	return h
}

func (h *History) nextSeq() uint64 {
	h.seq++
	return h.seq
}

func (h *History) at(i int) *historyEntry {
	return &h.buf[(h.start+i)%len(h.buf)]
}

// Push 丢弃 cursor 之后的重做历史，追加 snap 并移动 cursor。返回该快照的序号。
func (h *History) Push(snap Snapshot) uint64 {
	// 截断重做历史
	for i := h.cursor + 1; i < h.size; i++ {
		h.at(i).snap = nil
	}
	h.size = h.cursor + 1

	if h.size == len(h.buf) {
		// 已满，淘汰最旧的快照
		h.at(0).snap = nil
		h.start = (h.start + 1) % len(h.buf)
		h.size--
	}

	seq := h.nextSeq()
	*h.at(h.size) = historyEntry{seq: seq, snap: snap.Clone()}
	h.size++
	h.cursor = h.size - 1
	return seq
}

// Undo 回到上一个快照，cursor 已在最旧处时返回 false
func (h *History) Undo() (Snapshot, bool) {
	if h.cursor == 0 {
		return nil, false
	}
	h.cursor--
	return h.at(h.cursor).snap.Clone(), true
}

// Redo 前进到下一个快照，cursor 已在最新处时返回 false
func (h *History) Redo() (Snapshot, bool) {
	if h.cursor >= h.size-1 {
		return nil, false
	}
	h.cursor++
	return h.at(h.cursor).snap.Clone(), true
}

func (h *History) CanUndo() bool {
	return h.cursor > 0
}

func (h *History) CanRedo() bool {
	return h.cursor < h.size-1
}

// Len 返回保留的快照数量
func (h *History) Len() int {
	return h.size
}

func (h *History) Cursor() int {
	return h.cursor
}

func (h *History) Current() Snapshot {
	return h.at(h.cursor).snap.Clone()
}

// Retract 撤回序号为 seq 的快照，前提是它仍然是最新的快照且 cursor 正指向它。
// 失败的操作回滚时用它来避免在历史中留下一个从未生效的状态。
func (h *History) Retract(seq uint64) bool {
	if h.size < 2 || h.cursor != h.size-1 {
		return false
	}
	last := h.at(h.size - 1)
	if last.seq != seq {
		return false
	}
	last.snap = nil
	h.size--
	h.cursor--
	return true
}

// Rewrite 对每个保留的快照调用 fn，fn 可以原地修改快照。
// 用于在记录被服务端确认后把历史中的临时 ID 替换成持久 ID。
func (h *History) Rewrite(fn func(Snapshot)) {
	for i := 0; i < h.size; i++ {
		fn(h.at(i).snap)
	}
}
