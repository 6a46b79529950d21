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

// Package lru 提供了有界的LRU（Least Recently Used）存储
//
// Store 由两部分组成：
//
// 1. 映射 + 最近使用顺序：
//   - 使用hashicorp/golang-lru的simplelru，O(1)查找、移动和淘汰
//   - 头部是最近使用的key，尾部是下一个淘汰候选
//
// 2. 过期时间索引：
//   - 只记录带TTL的缓存项
//   - 过期清理器先在锁内复制索引，再在锁外过滤，最后批量移除
//
// 并发模型：
// - 一把互斥锁同时覆盖映射、顺序和过期索引
// - Get的查找和移动、Set的淘汰和插入都在同一个临界区内完成
// - 淘汰通知在锁释放之后同步发出，回调可以再次访问存储而不会死锁
//
// 使用示例：
//
//	store, err := NewStore[string, int](100, target, func(key string, reason EvictReason) {
//	    fmt.Println("evicted", key, reason)
//	})
//	store.Set("key", 1, time.Time{})
//	value, ok := store.Get("key", time.Now())
package lru // import "github.com/openimsdk/localcache/pkg/localcache/lru"
