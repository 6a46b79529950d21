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

// Package notify 提供淘汰事件的多播通知
package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
)

// Handle 标识一次订阅，用于取消订阅
type Handle = uuid.UUID

// Func 接收被淘汰的key
type Func[K any] func(key K)

type subscriber[K any] struct {
	handle Handle
	fn     Func[K]
}

// Emitter 维护有序的订阅者集合并把淘汰事件同步投递给每个订阅者
//
// 订阅者列表采用写时复制：Subscribe/Unsubscribe在锁内生成新切片，
// Emit只读取当前快照，投递过程中新增或移除的订阅者从下一次Emit开始生效
type Emitter[K any] struct {
	lock sync.Mutex                      // 串行化订阅列表的修改
	subs atomic.Pointer[[]subscriber[K]] // 当前订阅者快照，按订阅顺序排列
}

// NewEmitter 创建一个没有订阅者的Emitter
func NewEmitter[K any]() *Emitter[K] {
	e := &Emitter[K]{}
	e.subs.Store(&[]subscriber[K]{})
	return e
}

// Subscribe 注册一个订阅者，返回用于取消订阅的句柄
// fn不能为nil
func (e *Emitter[K]) Subscribe(fn Func[K]) Handle {
	if fn == nil {
		panic("fn should not be nil")
	}
	h := uuid.New()

	e.lock.Lock()
	defer e.lock.Unlock()
	old := *e.subs.Load()
	subs := make([]subscriber[K], len(old), len(old)+1)
	copy(subs, old)
	subs = append(subs, subscriber[K]{handle: h, fn: fn})
	e.subs.Store(&subs)
	return h
}

// Unsubscribe 取消订阅，句柄不存在时返回false
func (e *Emitter[K]) Unsubscribe(h Handle) bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	old := *e.subs.Load()
	for i, s := range old {
		if s.handle != h {
			continue
		}
		subs := make([]subscriber[K], 0, len(old)-1)
		subs = append(subs, old[:i]...)
		subs = append(subs, old[i+1:]...)
		e.subs.Store(&subs)
		return true
	}
	return false
}

// Len 返回当前订阅者数量
func (e *Emitter[K]) Len() int {
	return len(*e.subs.Load())
}

// Emit 按订阅顺序把key投递给当前快照中的每个订阅者
// 没有订阅者时什么也不做；某个订阅者panic只会被记录，不影响其他订阅者
func (e *Emitter[K]) Emit(ctx context.Context, key K) {
	for _, s := range *e.subs.Load() {
		e.deliver(ctx, s, key)
	}
}

func (e *Emitter[K]) deliver(ctx context.Context, s subscriber[K], key K) {
	defer func() {
		if r := recover(); r != nil {
			log.ZError(ctx, "eviction subscriber panic", errs.ErrPanic(r), "handle", s.handle.String(), "key", key)
		}
	}()
	s.fn(key)
}
