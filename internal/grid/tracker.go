package grid

// DeletedKeys 记录那些在创建请求仍未返回时就被用户删除的临时记录。
// 创建请求成功返回后，如果发现自己在这里，就丢弃服务端返回的记录，而不是让它重新出现。
// 以 (格子, 临时 ID) 为单位记录，同一格子上后续的新建不会被误伤。
type DeletedKeys struct {
	keys map[SlotKey]map[ID]struct{}
}

func NewDeletedKeys() *DeletedKeys {
	return &DeletedKeys{keys: make(map[SlotKey]map[ID]struct{})}
}

func (d *DeletedKeys) Mark(key SlotKey, id ID) {
	ids, ok := d.keys[key]
	if !ok {
		ids = make(map[ID]struct{})
		d.keys[key] = ids
	}
	ids[id] = struct{}{}
}

// Consume 如果 (key, id) 被标记过则清除标记并返回 true
func (d *DeletedKeys) Consume(key SlotKey, id ID) bool {
	ids, ok := d.keys[key]
	if !ok {
		return false
	}
	if _, ok := ids[id]; !ok {
		return false
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(d.keys, key)
	}
	return true
}

// Unmark 和 Consume 相同，但不关心结果，用于重做恢复了被删除的临时记录的情况
func (d *DeletedKeys) Unmark(key SlotKey, id ID) {
	d.Consume(key, id)
}

func (d *DeletedKeys) Has(key SlotKey) bool {
	return len(d.keys[key]) > 0
}

func (d *DeletedKeys) Len() int {
	n := 0
	for _, ids := range d.keys {
		n += len(ids)
	}
	return n
}
