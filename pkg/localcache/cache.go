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

package localcache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/openimsdk/tools/log"
	"golang.org/x/sync/singleflight"

	"github.com/openimsdk/localcache/pkg/localcache/link"
	"github.com/openimsdk/localcache/pkg/localcache/lru"
	"github.com/openimsdk/localcache/pkg/localcache/notify"
	"github.com/openimsdk/localcache/pkg/localcache/reaper"
)

// Cache 定义了本地缓存的接口
// K 是缓存键的类型，V 是缓存值的类型
type Cache[K comparable, V any] interface {
	// Get 获取缓存值，未命中或已过期时ok为false
	// 命中时key被移动到最近使用位置
	Get(key K) (V, bool)

	// Set 写入缓存值，ttl为0表示永不过期
	// 容量未设置、ttl>0但刷新频率未设置时返回ErrNotConfigured
	// ttl为负数时返回ErrInvalidArgument
	Set(key K, value V, ttl time.Duration) error

	// SetCapacity 设置容量，只有第一次设置生效
	SetCapacity(n int) error

	// SetRefreshFrequency 设置过期清理周期，只有第一次设置生效
	SetRefreshFrequency(d time.Duration) error

	// Capacity 返回容量，未设置时ok为false
	Capacity() (int, bool)

	// RefreshFrequency 返回过期清理周期，未设置时ok为false
	RefreshFrequency() (time.Duration, bool)

	// Subscribe 订阅淘汰事件，key因容量不足或过期被移除时回调fn
	Subscribe(fn func(key K)) notify.Handle

	// Unsubscribe 取消订阅
	Unsubscribe(h notify.Handle) bool

	// Del 删除缓存项，存在时通知订阅者
	// 通过Link关联的key会被一起删除，返回值只表示key本身是否存在
	Del(key K) bool

	// Link 建立key与linked之间的双向关联，删除其中任意一个时其余的也被删除
	// 只有当前在缓存中的key参与关联
	Link(key K, linked ...K)

	// Len 返回当前缓存项数量
	Len() int

	// Keys 按最近使用到最久未使用的顺序返回所有key
	Keys() []K

	// GetOrLoad 获取缓存值，未命中时调用fetch加载并写入缓存
	// 同一个key的并发加载只会调用一次fetch
	GetOrLoad(ctx context.Context, key K, fetch func(ctx context.Context) (V, error)) (V, error)

	// Stop 停止过期清理，清理过程中已移除缓存项的通知会在Stop返回前发出
	Stop()
}

var _ Cache[string, any] = (*LocalCache[string, any])(nil)

// LocalCache 是Cache接口的实现
type LocalCache[K comparable, V any] struct {
	ctx context.Context
	opt *option

	capacity setOnce[int]
	refresh  setOnce[time.Duration]

	store   atomic.Pointer[lru.Store[K, V]] // 容量设置之前为nil
	reaper  *reaper.Reaper
	emitter *notify.Emitter[K]
	links   *link.Links[K]
	group   singleflight.Group // string类型的key
	flight  flightGroup[K]     // 其他类型的key
	stopped atomic.Bool
}

// New 创建一个新的缓存实例
// ctx: 缓存实例的生命周期上下文，取消后过期清理停止
// opts: 可变参数选项，容量和刷新频率也可以稍后通过SetCapacity/SetRefreshFrequency设置
func New[K comparable, V any](ctx context.Context, opts ...Option) *LocalCache[K, V] {
	opt := defaultOption()
	for _, o := range opts {
		o(opt)
	}

	c := &LocalCache[K, V]{
		ctx:     ctx,
		opt:     opt,
		emitter: notify.NewEmitter[K](),
		links:   link.New[K](),
	}
	c.reaper = reaper.New(ctx, c.sweep)

	// 选项中的取值已经校验过，这里不会失败
	if opt.capacity > 0 {
		_ = c.SetCapacity(opt.capacity)
	}
	if opt.refreshFrequency > 0 {
		_ = c.SetRefreshFrequency(opt.refreshFrequency)
	}
	return c
}

func (c *LocalCache[K, V]) Get(key K) (V, bool) {
	store := c.store.Load()
	if store == nil {
		var zero V
		return zero, false
	}
	return store.Get(key, time.Now())
}

func (c *LocalCache[K, V]) Set(key K, value V, ttl time.Duration) error {
	store := c.store.Load()
	if store == nil {
		return ErrNotConfigured.WrapMsg("capacity is not configured")
	}
	if ttl < 0 {
		return ErrInvalidArgument.WrapMsg("ttl must not be negative", "ttl", ttl)
	}
	var expiresAt time.Time
	if ttl > 0 {
		if _, ok := c.refresh.Load(); !ok {
			return ErrNotConfigured.WrapMsg("refresh frequency is not configured", "ttl", ttl)
		}
		expiresAt = time.Now().Add(ttl)
	}
	store.Set(key, value, expiresAt)
	return nil
}

func (c *LocalCache[K, V]) SetCapacity(n int) error {
	if n <= 0 {
		return ErrInvalidArgument.WrapMsg("capacity must be greater than 0", "capacity", n)
	}
	ok, err := c.capacity.Store(n, func(n int) error {
		store, err := lru.NewStore[K, V](n, c.opt.target, c.onEvict)
		if err != nil {
			return err
		}
		c.store.Store(store)
		return nil
	})
	if err != nil {
		return err
	}
	if !ok {
		current, _ := c.capacity.Load()
		log.ZInfo(c.ctx, "capacity already configured, ignored", "current", current, "requested", n)
		return nil
	}
	log.ZDebug(c.ctx, "capacity configured", "capacity", n)
	return nil
}

func (c *LocalCache[K, V]) SetRefreshFrequency(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidArgument.WrapMsg("refresh frequency must be greater than 0", "refreshFrequency", d)
	}
	ok, err := c.refresh.Store(d, func(d time.Duration) error {
		if !c.reaper.Start(d) {
			log.ZWarn(c.ctx, "expiration reaper not started, cache stopped", nil, "refreshFrequency", d)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !ok {
		current, _ := c.refresh.Load()
		log.ZInfo(c.ctx, "refresh frequency already configured, ignored", "current", current, "requested", d)
		return nil
	}
	return nil
}

func (c *LocalCache[K, V]) Capacity() (int, bool) {
	return c.capacity.Load()
}

func (c *LocalCache[K, V]) RefreshFrequency() (time.Duration, bool) {
	return c.refresh.Load()
}

func (c *LocalCache[K, V]) Subscribe(fn func(key K)) notify.Handle {
	return c.emitter.Subscribe(fn)
}

func (c *LocalCache[K, V]) Unsubscribe(h notify.Handle) bool {
	return c.emitter.Unsubscribe(h)
}

func (c *LocalCache[K, V]) Del(key K) bool {
	store := c.store.Load()
	if store == nil {
		return false
	}
	ok := false
	for k := range c.links.Del(key) {
		if store.Del(k) && k == key {
			ok = true
		}
	}
	return ok
}

// Link 只记录当前在缓存中的key之间的关联，不存在的key被忽略
// 记录之后再检查一次，期间被移除的key的关联立即清除
func (c *LocalCache[K, V]) Link(key K, linked ...K) {
	store := c.store.Load()
	if store == nil || !store.Contains(key, time.Now()) {
		return
	}
	present := make([]K, 0, len(linked))
	for _, k := range linked {
		if k != key && store.Contains(k, time.Now()) {
			present = append(present, k)
		}
	}
	if len(present) == 0 {
		return
	}
	c.links.Link(key, present...)

	for _, k := range append(present, key) {
		if !store.Contains(k, time.Now()) {
			c.links.Forget(k)
		}
	}
}

func (c *LocalCache[K, V]) Len() int {
	store := c.store.Load()
	if store == nil {
		return 0
	}
	return store.Len()
}

func (c *LocalCache[K, V]) Keys() []K {
	store := c.store.Load()
	if store == nil {
		return nil
	}
	return store.Keys()
}

// GetOrLoad 未命中时合并同一个key的并发加载，string类型的key使用singleflight
// 加载成功后以WithLoaderTTL设置的存活时间写入缓存；写入失败时仍返回加载到的值和写入错误
func (c *LocalCache[K, V]) GetOrLoad(ctx context.Context, key K, fetch func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	load := func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(key, v, c.opt.loaderTTL); err != nil {
			log.ZWarn(ctx, "store loaded value failed", err, "key", key)
			return v, err
		}
		return v, nil
	}
	var (
		v   any
		err error
	)
	if s, ok := any(key).(string); ok {
		v, err, _ = c.group.Do(s, load)
	} else {
		v, err = c.flight.Do(key, load)
	}
	if err != nil && v != nil {
		return v.(V), err
	}
	return AnyValue[V](v, err)
}

// Stop 停止过期清理，可以重复调用
// 停止后Get/Set等操作仍然可用，只是不再主动移除过期缓存项
func (c *LocalCache[K, V]) Stop() {
	if !c.stopped.CompareAndSwap(false, true) {
		return
	}
	c.reaper.Stop()
	log.ZDebug(c.ctx, "local cache stopped", "len", c.Len())
}

// sweep 是过期清理器的一轮清理
// 先取得过期key的快照，再批量移除，每个被移除的key通知一次订阅者
func (c *LocalCache[K, V]) sweep(ctx context.Context, now time.Time) {
	store := c.store.Load()
	if store == nil {
		return
	}
	keys := store.ExpiredKeys(now)
	if len(keys) == 0 {
		return
	}
	removed := store.RemoveExpired(keys, now)
	log.ZDebug(ctx, "expired entries removed", "expired", len(keys), "removed", len(removed))
}

// onEvict 是存储的移除回调，在存储的锁释放之后调用
func (c *LocalCache[K, V]) onEvict(key K, reason lru.EvictReason) {
	if reason != lru.EvictDeleted {
		c.links.Forget(key)
	}
	c.emitter.Emit(c.ctx, key)
}
