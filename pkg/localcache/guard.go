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
	"sync"
	"sync/atomic"
)

// setOnce 是只能写入一次的配置字段：未设置 -> 已设置，已设置是终态
// 写入在互斥锁内串行化，读取通过atomic.Pointer无锁完成
type setOnce[T any] struct {
	lock  sync.Mutex
	value atomic.Pointer[T]
}

// Store 在字段未设置时先执行publish，再发布v，返回true
// 字段已经设置时什么也不做，返回false
// publish返回错误时字段保持未设置，错误原样返回
func (s *setOnce[T]) Store(v T, publish func(v T) error) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.value.Load() != nil {
		return false, nil
	}
	if publish != nil {
		if err := publish(v); err != nil {
			return false, err
		}
	}
	s.value.Store(&v)
	return true, nil
}

// Load 返回已设置的值，未设置时ok为false
func (s *setOnce[T]) Load() (v T, ok bool) {
	p := s.value.Load()
	if p == nil {
		return v, false
	}
	return *p, true
}
