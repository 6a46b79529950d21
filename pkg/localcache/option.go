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
	"time"

	"github.com/openimsdk/localcache/pkg/localcache/lru"
)

// defaultOption 返回默认的缓存配置选项
// 容量和刷新频率默认都未设置，需要通过选项或SetCapacity/SetRefreshFrequency配置
func defaultOption() *option {
	return &option{
		target: EmptyTarget{}, // 默认的空统计目标
	}
}

// option 定义了缓存的配置选项
type option struct {
	capacity         int           // 最大缓存项数量，0表示未设置
	refreshFrequency time.Duration // 过期清理周期，0表示未设置
	loaderTTL        time.Duration // GetOrLoad写入缓存项的存活时间，0表示永不过期

	target lru.Target // 统计指标收集器，用于监控缓存性能
}

// Option 定义了配置选项的函数类型
// 使用函数式选项模式，允许用户灵活配置缓存
type Option func(o *option)

// WithCapacity 设置缓存容量
// 与SetCapacity一样只有第一次设置生效
func WithCapacity(capacity int) Option {
	if capacity <= 0 {
		panic("capacity should be greater than 0")
	}
	return func(o *option) {
		if o.capacity == 0 {
			o.capacity = capacity
		}
	}
}

// WithRefreshFrequency 设置过期清理周期，只有第一次设置生效
// 缓存项过期后最迟在一个周期之后被移除并通知订阅者
func WithRefreshFrequency(refreshFrequency time.Duration) Option {
	if refreshFrequency <= 0 {
		panic("refreshFrequency should be greater than 0")
	}
	return func(o *option) {
		if o.refreshFrequency == 0 {
			o.refreshFrequency = refreshFrequency
		}
	}
}

// WithLoaderTTL 设置GetOrLoad加载到的数据的存活时间
func WithLoaderTTL(loaderTTL time.Duration) Option {
	if loaderTTL < 0 {
		panic("loaderTTL should not be less than 0")
	}
	return func(o *option) {
		o.loaderTTL = loaderTTL
	}
}

// WithTarget 设置统计指标收集器
// target: 统计目标，不能为nil
// 用于收集缓存命中率、淘汰次数等指标，便于监控和调优
func WithTarget(target lru.Target) Option {
	if target == nil {
		panic("target should not be nil")
	}
	return func(o *option) {
		o.target = target
	}
}

// EmptyTarget 是一个空的统计目标实现
// 所有方法都是空操作，用作默认值当用户不需要统计功能时
type EmptyTarget struct{}

// IncrGetHit 增加缓存命中次数（空操作）
func (e EmptyTarget) IncrGetHit() {}

// IncrGetMiss 增加缓存未命中次数（空操作）
func (e EmptyTarget) IncrGetMiss() {}

// IncrSet 增加写入次数（空操作）
func (e EmptyTarget) IncrSet() {}

// IncrEvict 增加淘汰次数（空操作）
func (e EmptyTarget) IncrEvict(lru.EvictReason) {}

// IncrDelHit 增加删除命中次数（空操作）
func (e EmptyTarget) IncrDelHit() {}

// IncrDelNotFound 增加删除未找到次数（空操作）
func (e EmptyTarget) IncrDelNotFound() {}
