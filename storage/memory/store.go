// Package memory 提供进程内的实体存储实现（开发与测试环境使用）。
//
// 不持久化，进程重启后数据丢失。
package memory

import (
	"context"
	"sync"

	"childsvc/domain"
	"childsvc/domain/crud"
)

// ICloneable 可选接口：实体实现后，存储在读写边界上复制实体，
// 调用方对返回值的修改不会影响已存储的数据。
type ICloneable[T any] interface {
	Clone() T
}

// Store 基于 map 的内存存储，标识由自增序列分配，遍历保持插入顺序
type Store[T domain.IEntity[int64]] struct {
	items map[int64]T
	order []int64
	seq   int64
	mutex sync.RWMutex
}

// NewStore 创建内存存储
func NewStore[T domain.IEntity[int64]]() *Store[T] {
	return &Store[T]{
		items: make(map[int64]T),
	}
}

// Insert 分配新标识并保存（忽略实体上已有的标识）
func (s *Store[T]) Insert(ctx context.Context, e T) (T, error) {
	if err := ctx.Err(); err != nil {
		return e, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.seq++
	e.SetID(s.seq)
	s.items[s.seq] = clone(e)
	s.order = append(s.order, s.seq)
	return e, nil
}

// Fetch 按标识读取
func (s *Store[T]) Fetch(ctx context.Context, id int64) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	e, ok := s.items[id]
	if !ok {
		return zero, false, nil
	}
	return clone(e), true, nil
}

// FetchAll 按插入顺序返回全部实体
func (s *Store[T]) FetchAll(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]T, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, clone(s.items[id]))
	}
	return result, nil
}

// Update 整体替换已存在的实体
func (s *Store[T]) Update(ctx context.Context, e T) (T, error) {
	if err := ctx.Err(); err != nil {
		return e, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := e.GetID()
	if _, ok := s.items[id]; !ok {
		return e, domain.NewNotFoundError(id, "entity %d not found", id)
	}
	s.items[id] = clone(e)
	return e, nil
}

// Delete 删除实体，不存在时为空操作
func (s *Store[T]) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.items[id]; !ok {
		return nil
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len 当前实体数量
func (s *Store[T]) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.items)
}

func clone[T any](e T) T {
	if c, ok := any(e).(ICloneable[T]); ok {
		return c.Clone()
	}
	return e
}

var _ crud.IStore[domain.IEntity[int64], int64] = (*Store[domain.IEntity[int64]])(nil)
