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

package link

import "sync"

// Links 记录缓存key之间的双向关联关系
// 删除任意一个key时，通过Del取得与它直接或间接关联的所有key
type Links[K comparable] struct {
	lock sync.Mutex
	data map[K]map[K]struct{}
}

// New 创建一个空的关联关系表
func New[K comparable]() *Links[K] {
	return &Links[K]{data: make(map[K]map[K]struct{})}
}

// Link 建立key与linked中每个key的双向关联
func (x *Links[K]) Link(key K, linked ...K) {
	if len(linked) == 0 {
		return
	}
	x.lock.Lock()
	defer x.lock.Unlock()
	for _, k := range linked {
		if k == key {
			continue
		}
		x.add(key, k)
		x.add(k, key)
	}
}

func (x *Links[K]) add(from, to K) {
	v, ok := x.data[from]
	if !ok {
		v = make(map[K]struct{})
		x.data[from] = v
	}
	v[to] = struct{}{}
}

// Del 删除key所在的整个关联分量，返回其中所有的key（包括key本身）
// key没有任何关联时只返回key本身
func (x *Links[K]) Del(key K) map[K]struct{} {
	x.lock.Lock()
	defer x.lock.Unlock()

	del := make(map[K]struct{})
	stack := []K{key}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := del[curr]; ok {
			continue
		}
		del[curr] = struct{}{}
		for k := range x.data[curr] {
			stack = append(stack, k)
		}
		delete(x.data, curr)
	}
	return del
}

// Forget 只移除key自身的关联，不影响与它关联的其他key之间的关系
// 缓存项因容量不足或过期被移除时调用
func (x *Links[K]) Forget(key K) {
	x.lock.Lock()
	defer x.lock.Unlock()
	for k := range x.data[key] {
		if v, ok := x.data[k]; ok {
			delete(v, key)
			if len(v) == 0 {
				delete(x.data, k)
			}
		}
	}
	delete(x.data, key)
}

// Len 返回存在关联关系的key数量
func (x *Links[K]) Len() int {
	x.lock.Lock()
	defer x.lock.Unlock()
	return len(x.data)
}
