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

package evictpub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
)

// DefaultQueueSize 发布队列的默认长度
const DefaultQueueSize = 1024

type options struct {
	queueSize int
}

// Option 发布器选项
type Option func(o *options)

// WithQueueSize 设置发布队列长度，队列满时新的key被丢弃并记录日志
func WithQueueSize(n int) Option {
	if n <= 0 {
		panic("queue size should be greater than 0")
	}
	return func(o *options) {
		o.queueSize = n
	}
}

func newOptions(opts []Option) *options {
	o := &options{queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// worker 在单独的协程中发布被淘汰的key
// 缓存的淘汰回调只做非阻塞入队，网络请求不会拖慢Set/Del/过期清理
type worker[K comparable] struct {
	name    string
	ctx     context.Context
	data    chan K
	do      func(ctx context.Context, key K)
	dropped atomic.Int64

	globalCtx context.Context
	cancel    context.CancelFunc
	wait      sync.WaitGroup
	closeOnce sync.Once
}

// newWorker 创建并启动worker
// do使用的ctx不随调用方取消，Close时队列中剩余的key仍然会被发布
func newWorker[K comparable](ctx context.Context, name string, size int, do func(ctx context.Context, key K)) *worker[K] {
	w := &worker[K]{
		name: name,
		ctx:  context.WithoutCancel(ctx),
		data: make(chan K, size),
		do:   do,
	}
	w.globalCtx, w.cancel = context.WithCancel(context.Background())
	w.wait.Add(1)
	go w.run()
	return w
}

// put 非阻塞入队，已关闭或队列已满时返回false
func (w *worker[K]) put(key K) bool {
	select {
	case <-w.globalCtx.Done():
		w.dropped.Add(1)
		log.ZDebug(w.ctx, "evict publisher closed, key dropped", "publisher", w.name, "key", key)
		return false
	default:
	}
	select {
	case w.data <- key:
		return true
	default:
		w.dropped.Add(1)
		log.ZWarn(w.ctx, "evict publish queue full, key dropped", nil, "publisher", w.name, "key", key, "queueSize", cap(w.data))
		return false
	}
}

func (w *worker[K]) run() {
	defer w.wait.Done()
	for {
		select {
		case key := <-w.data:
			w.handle(key)
		case <-w.globalCtx.Done():
			// 发布队列中剩余的key后退出
			for {
				select {
				case key := <-w.data:
					w.handle(key)
				default:
					return
				}
			}
		}
	}
}

func (w *worker[K]) handle(key K) {
	defer func() {
		if r := recover(); r != nil {
			log.ZError(w.ctx, "evict publisher panic", errs.ErrPanic(r), "publisher", w.name, "key", key)
		}
	}()
	w.do(w.ctx, key)
}

// close 停止接收新的key，等待队列中已有的key发布完成，可以重复调用
func (w *worker[K]) close() {
	w.closeOnce.Do(func() {
		w.cancel()
		w.wait.Wait()
	})
}
