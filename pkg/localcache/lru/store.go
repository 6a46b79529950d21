// Copyright © 2024 OpenIM. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lru

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/openimsdk/tools/errs"
)

// entry 表示存储中的一个缓存项
// 创建后不再修改，对已存在key的Set会生成新的entry替换旧值
type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // 绝对过期时间，零值表示永不过期
}

// expired 判断缓存项在now时刻是否已经过期
func (e *entry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

// evicted 记录一次在锁内发生、需要在锁外通知的移除
type evicted[K comparable] struct {
	key    K
	reason EvictReason
}

// Store 是有界的key->value存储
// 底层使用hashicorp的simplelru维护 map + 双向链表，
// 链表头部是最近使用的key，尾部是淘汰候选
//
// 所有的查找、移动、插入和淘汰都在同一把锁内完成，
// 不存在"先查map再改链表"的两段式临界区
type Store[K comparable, V any] struct {
	lock     sync.Mutex                      // 同时保护core和expiring
	core     *simplelru.LRU[K, *entry[K, V]] // 映射 + 最近使用顺序
	expiring map[K]time.Time                 // 带TTL的缓存项的过期时间索引，key集合是core的子集
	capacity int
	target   Target
	onEvict  EvictCallback[K]
}

// NewStore 创建一个容量为capacity的存储
// target: 统计指标收集器，不能为nil
// onEvict: 缓存项被移除时的回调，可以为nil
func NewStore[K comparable, V any](capacity int, target Target, onEvict EvictCallback[K]) (*Store[K, V], error) {
	if capacity <= 0 {
		return nil, errs.ErrArgs.WrapMsg("capacity must be greater than 0", "capacity", capacity)
	}
	if target == nil {
		return nil, errs.ErrArgs.WrapMsg("target should not be nil")
	}
	// 不向simplelru注册回调，容量淘汰由Store显式调用RemoveOldest完成
	core, err := simplelru.NewLRU[K, *entry[K, V]](capacity, nil)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &Store[K, V]{
		core:     core,
		expiring: make(map[K]time.Time),
		capacity: capacity,
		target:   target,
		onEvict:  onEvict,
	}, nil
}

// Get 获取缓存值
// 未命中时没有任何副作用；命中时在同一临界区内返回值并把key移动到最近使用位置
// 已过期但尚未被清理器移除的缓存项按未命中处理，且不会被移动
func (x *Store[K, V]) Get(key K, now time.Time) (V, bool) {
	x.lock.Lock()
	e, ok := x.core.Peek(key)
	if !ok || e.expired(now) {
		x.lock.Unlock()
		x.target.IncrGetMiss()
		var zero V
		return zero, false
	}
	x.core.Get(key)
	x.lock.Unlock()

	x.target.IncrGetHit()
	return e.value, true
}

// Contains 判断key在now时刻是否存在且未过期，不移动位置也不计入统计
func (x *Store[K, V]) Contains(key K, now time.Time) bool {
	x.lock.Lock()
	defer x.lock.Unlock()
	e, ok := x.core.Peek(key)
	return ok && !e.expired(now)
}

// Set 写入缓存项，expiresAt为零值表示永不过期
//  1. key已存在：用新的entry替换旧值并移动到最近使用位置
//  2. key不存在且已满：先淘汰链表尾部的一个缓存项
//  3. 把新entry插入到最近使用位置
//
// 被淘汰key的通知在锁释放后、Set返回前发出
func (x *Store[K, V]) Set(key K, value V, expiresAt time.Time) {
	var out []evicted[K]

	x.lock.Lock()
	if !x.core.Contains(key) && x.core.Len() >= x.capacity {
		if oldKey, _, ok := x.core.RemoveOldest(); ok {
			delete(x.expiring, oldKey)
			out = append(out, evicted[K]{key: oldKey, reason: EvictCapacity})
		}
	}
	x.core.Add(key, &entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	if expiresAt.IsZero() {
		delete(x.expiring, key)
	} else {
		x.expiring[key] = expiresAt
	}
	x.lock.Unlock()

	x.target.IncrSet()
	x.notify(out)
}

// Del 删除指定key，存在时发出一次EvictDeleted通知
func (x *Store[K, V]) Del(key K) bool {
	x.lock.Lock()
	ok := x.core.Remove(key)
	if ok {
		delete(x.expiring, key)
	}
	x.lock.Unlock()

	if !ok {
		x.target.IncrDelNotFound()
		return false
	}
	x.target.IncrDelHit()
	x.notify([]evicted[K]{{key: key, reason: EvictDeleted}})
	return true
}

// ExpiredKeys 返回在now时刻已经过期的key
// 锁内只复制过期时间索引，过滤在锁外进行，以缩短持锁时间
func (x *Store[K, V]) ExpiredKeys(now time.Time) []K {
	x.lock.Lock()
	if len(x.expiring) == 0 {
		x.lock.Unlock()
		return nil
	}
	snapshot := make(map[K]time.Time, len(x.expiring))
	for k, t := range x.expiring {
		snapshot[k] = t
	}
	x.lock.Unlock()

	var keys []K
	for k, t := range snapshot {
		if !t.After(now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// RemoveExpired 在一次加锁内批量移除keys中仍然过期的缓存项
// 快照之后被重新Set（过期时间更新或去掉TTL）的key会被跳过
// 返回实际移除的key，每个key发出一次EvictExpired通知
func (x *Store[K, V]) RemoveExpired(keys []K, now time.Time) []K {
	if len(keys) == 0 {
		return nil
	}
	removed := make([]K, 0, len(keys))
	out := make([]evicted[K], 0, len(keys))

	x.lock.Lock()
	for _, k := range keys {
		e, ok := x.core.Peek(k)
		if !ok || !e.expired(now) {
			continue
		}
		x.core.Remove(k)
		delete(x.expiring, k)
		removed = append(removed, k)
		out = append(out, evicted[K]{key: k, reason: EvictExpired})
	}
	x.lock.Unlock()

	x.notify(out)
	return removed
}

// Len 返回当前缓存项数量
func (x *Store[K, V]) Len() int {
	x.lock.Lock()
	defer x.lock.Unlock()
	return x.core.Len()
}

// Cap 返回容量
func (x *Store[K, V]) Cap() int {
	return x.capacity
}

// Keys 按最近使用到最久未使用的顺序返回所有key
func (x *Store[K, V]) Keys() []K {
	x.lock.Lock()
	keys := x.core.Keys() // simplelru按从旧到新的顺序返回
	x.lock.Unlock()

	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys
}

// notify 统计并通知移除事件，调用方必须已经释放锁
func (x *Store[K, V]) notify(out []evicted[K]) {
	for _, ev := range out {
		x.target.IncrEvict(ev.reason)
		if x.onEvict != nil {
			x.onEvict(ev.key, ev.reason)
		}
	}
}
