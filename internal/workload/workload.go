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

// Package workload 对本地缓存施加读多写少的并发负载
package workload

import (
	"context"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"golang.org/x/sync/errgroup"

	"github.com/openimsdk/localcache/pkg/common/config"
	"github.com/openimsdk/localcache/pkg/localcache"
)

// Result 一次压测的统计
type Result struct {
	Operations int64         `json:"operations"`
	Hits       int64         `json:"hits"`
	Misses     int64         `json:"misses"`
	Sets       int64         `json:"sets"`
	Dels       int64         `json:"dels"`
	Evictions  int64         `json:"evictions"` // 订阅者收到的通知次数
	Len        int           `json:"len"`
	Elapsed    time.Duration `json:"elapsed"`
}

// HitRate 返回命中率
func (r Result) HitRate() float64 {
	if r.Hits+r.Misses == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Hits+r.Misses)
}

// OpsPerSecond 返回每秒操作数
func (r Result) OpsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Operations) / r.Elapsed.Seconds()
}

// Key 返回压测使用的第i个key
func Key(i int) string {
	return "key_" + strconv.Itoa(i)
}

// Run 启动conf.Goroutines个协程，共执行conf.Operations次操作
// 每次操作随机选取一个key：按DelRatio的概率删除，否则读取，未命中时以conf.TTL写入
// ctx取消或写入失败时提前结束并返回错误
func Run(ctx context.Context, cache localcache.Cache[string, int], conf config.Workload) (Result, error) {
	if conf.Goroutines <= 0 || conf.Operations <= 0 || conf.KeySpace <= 0 {
		return Result{}, errs.ErrArgs.WrapMsg("invalid workload", "goroutines", conf.Goroutines,
			"operations", conf.Operations, "keySpace", conf.KeySpace)
	}

	var (
		ops, hits, misses, sets, dels, evictions atomic.Int64
	)
	handle := cache.Subscribe(func(string) { evictions.Add(1) })
	defer cache.Unsubscribe(handle)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < conf.Goroutines; i++ {
		n := conf.Operations / conf.Goroutines
		if i < conf.Operations%conf.Goroutines {
			n++
		}
		seed := start.UnixNano() + int64(i)
		g.Go(func() error {
			r := rand.New(rand.NewSource(seed))
			for j := 0; j < n; j++ {
				if j%256 == 0 {
					if err := gctx.Err(); err != nil {
						return errs.Wrap(err)
					}
				}
				key := Key(r.Intn(conf.KeySpace))
				ops.Add(1)
				if conf.DelRatio > 0 && r.Float64() < conf.DelRatio {
					cache.Del(key)
					dels.Add(1)
					continue
				}
				if _, ok := cache.Get(key); ok {
					hits.Add(1)
					continue
				}
				misses.Add(1)
				if err := cache.Set(key, j, conf.TTL); err != nil {
					return err
				}
				sets.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()

	res := Result{
		Operations: ops.Load(),
		Hits:       hits.Load(),
		Misses:     misses.Load(),
		Sets:       sets.Load(),
		Dels:       dels.Load(),
		Evictions:  evictions.Load(),
		Len:        cache.Len(),
		Elapsed:    time.Since(start),
	}
	if err != nil {
		log.ZWarn(ctx, "workload aborted", err, "operations", res.Operations)
		return res, err
	}
	log.ZInfo(ctx, "workload finished", "operations", res.Operations, "hitRate", res.HitRate(), "elapsed", res.Elapsed)
	return res, nil
}
