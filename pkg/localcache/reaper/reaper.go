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

// Package reaper 周期性地执行过期清理
package reaper

import (
	"context"
	"sync"
	"time"

	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
)

// SweepFunc 执行一轮清理，now是本轮开始时的时间快照
type SweepFunc func(ctx context.Context, now time.Time)

// Reaper 按固定周期调用SweepFunc
// 生命周期归属于创建它的缓存实例，父上下文取消或调用Stop都会结束循环
type Reaper struct {
	ctx    context.Context
	cancel context.CancelFunc
	sweep  SweepFunc

	lock    sync.Mutex
	started bool
	wait    sync.WaitGroup // 等待循环协程退出
}

// New 创建一个尚未启动的Reaper
func New(ctx context.Context, sweep SweepFunc) *Reaper {
	if sweep == nil {
		panic("sweep should not be nil")
	}
	r := &Reaper{sweep: sweep}
	r.ctx, r.cancel = context.WithCancel(ctx)
	return r
}

// Start 以period为周期启动清理循环
// 只有第一次调用生效，重复调用、Stop之后调用或period<=0都返回false
func (r *Reaper) Start(period time.Duration) bool {
	if period <= 0 {
		return false
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.started || r.ctx.Err() != nil {
		return false
	}
	r.started = true
	r.wait.Add(1)
	go r.loop(period)
	log.ZDebug(r.ctx, "expiration reaper started", "period", period)
	return true
}

// Running 返回清理循环是否在运行
func (r *Reaper) Running() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.started && r.ctx.Err() == nil
}

// Stop 停止清理循环，并等待正在执行的一轮清理结束
// 可以重复调用；不能在SweepFunc内部调用，否则会一直等待自己
func (r *Reaper) Stop() {
	r.lock.Lock()
	r.cancel()
	r.lock.Unlock()
	r.wait.Wait()
}

func (r *Reaper) loop(period time.Duration) {
	defer r.wait.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			log.ZDebug(r.ctx, "expiration reaper stopped")
			return
		case now := <-ticker.C:
			if r.ctx.Err() != nil {
				return
			}
			r.run(now)
		}
	}
}

// run 执行一轮清理，panic会被记录，循环继续
func (r *Reaper) run(now time.Time) {
	defer func() {
		if e := recover(); e != nil {
			log.ZError(r.ctx, "expiration sweep panic", errs.ErrPanic(e))
		}
	}()
	r.sweep(r.ctx, now)
}
