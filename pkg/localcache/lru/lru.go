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

// EvictReason 描述缓存项离开存储的原因
type EvictReason int

const (
	// EvictCapacity 容量已满，插入新key时淘汰了最近最少使用的缓存项
	EvictCapacity EvictReason = iota + 1
	// EvictExpired 过期清理器发现缓存项已到期
	EvictExpired
	// EvictDeleted 调用方通过Del显式删除
	EvictDeleted
)

// String 返回淘汰原因的名称，同时用作监控指标的标签值
func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictExpired:
		return "expired"
	case EvictDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// EvictCallback 定义了缓存项被移除时的回调函数类型
// 回调在存储锁释放之后、触发移除的操作返回之前同步执行
// 因此回调内部可以安全地再次访问缓存
type EvictCallback[K comparable] func(key K, reason EvictReason)

// Target 定义了缓存统计指标的接口
// 用于收集缓存的命中率、淘汰次数等统计信息，便于监控和调优
type Target interface {
	// IncrGetHit 增加缓存命中次数
	IncrGetHit()

	// IncrGetMiss 增加缓存未命中次数（包括已过期但尚未被清理的缓存项）
	IncrGetMiss()

	// IncrSet 增加写入次数
	IncrSet()

	// IncrEvict 按原因增加淘汰次数
	// 容量淘汰、过期清理和显式删除都会调用
	IncrEvict(reason EvictReason)

	// IncrDelHit 增加删除命中次数
	IncrDelHit()

	// IncrDelNotFound 增加删除未找到次数
	IncrDelNotFound()
}
