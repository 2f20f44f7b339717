package grid

import (
	"sort"
)

// Snapshot 是某一时刻排班表的完整副本。Record 中没有引用类型字段，
// 所以复制 map 即为深拷贝。
type Snapshot map[SlotKey]Record

func (s Snapshot) Clone() Snapshot {
	c := make(Snapshot, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// SameKeys 判断两个快照的格子集合是否完全相同（不比较格子里的内容）
func SameKeys(a, b Snapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// Equal 判断两个快照逐格相同
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// diffKeys 返回 next 中新增的格子和 prev 中被移除的格子
func diffKeys(prev, next Snapshot) (added, removed []SlotKey) {
	for k := range next {
		if _, ok := prev[k]; !ok {
			added = append(added, k)
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			removed = append(removed, k)
		}
	}
	sortKeys(added)
	sortKeys(removed)
	return added, removed
}

func sortKeys(keys []SlotKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}

// Store 保存本地视角下的排班表：每个格子要么为空，要么恰好对应一条记录。
// Store 不负责历史记录，调用方在修改后自行 push 快照。
type Store struct {
	cells Snapshot
}

func NewStore(records ...Record) *Store {
	s := &Store{cells: make(Snapshot, len(records))}
	for _, r := range records {
		s.cells[r.Key()] = r
	}
	return s
}

func (s *Store) Get(key SlotKey) (Record, bool) {
	r, ok := s.cells[key]
	return r, ok
}

// Set 总是覆盖 key 上原有的记录
func (s *Store) Set(key SlotKey, r Record) {
	s.cells[key] = r
}

func (s *Store) Delete(key SlotKey) {
	delete(s.cells, key)
}

// ReplaceAll 用 snap 的副本整体替换当前内容
func (s *Store) ReplaceAll(snap Snapshot) {
	s.cells = snap.Clone()
}

func (s *Store) Snapshot() Snapshot {
	return s.cells.Clone()
}

func (s *Store) Len() int {
	return len(s.cells)
}

// Find 按 ID 查找记录所在的格子
func (s *Store) Find(id ID) (SlotKey, Record, bool) {
	for k, r := range s.cells {
		if r.ID == id {
			return k, r, true
		}
	}
	return SlotKey{}, Record{}, false
}

// Records 按 (星期, 任务) 排序返回所有记录
func (s *Store) Records() []Record {
	records := make([]Record, 0, len(s.cells))
	for _, r := range s.cells {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		di, dj := dayOrder(records[i].Day), dayOrder(records[j].Day)
		if di != dj {
			return di < dj
		}
		return records[i].Slot < records[j].Slot
	})
	return records
}

func dayOrder(d Day) int {
	for i, day := range Days {
		if day == d {
			return i
		}
	}
	return len(Days)
}
