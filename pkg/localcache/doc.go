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

// Package localcache 提供了有界的进程内LRU缓存
//
// 特性：
//
// 1. 按缓存项数量限制容量，满时淘汰最久未使用的缓存项
// 2. 每个缓存项可以单独设置存活时间，由后台清理器周期性移除
// 3. 缓存项因容量不足、过期或删除被移除时通知所有订阅者
// 4. 容量和刷新频率只能设置一次，重复设置被忽略并记录日志
//
// 主要组件：
// - lru.Store: 映射、最近使用顺序和过期时间索引，一把锁保护
// - reaper.Reaper: 周期性的过期清理
// - notify.Emitter: 淘汰事件的订阅和投递
//
// 使用示例：
//
//	cache := New[string, int](ctx, WithCapacity(1000), WithRefreshFrequency(time.Second))
//	defer cache.Stop()
//
//	handle := cache.Subscribe(func(key string) {
//	    log.ZDebug(ctx, "evicted", "key", key)
//	})
//	defer cache.Unsubscribe(handle)
//
//	if err := cache.Set("months", 12, time.Minute); err != nil {
//	    return err
//	}
//	value, ok := cache.Get("months")
package localcache // import "github.com/openimsdk/localcache/pkg/localcache"
