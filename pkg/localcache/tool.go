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

	"github.com/openimsdk/tools/errs"
)

// AnyValue 把singleflight等返回(any, error)的结果转换为具体类型
// err不为nil或v为nil时返回零值和err
func AnyValue[V any](v any, err error) (V, error) {
	if err != nil || v == nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// call 是一次正在进行的加载
type call struct {
	wg  sync.WaitGroup
	val any
	err error
}

// flightGroup 按key合并并发加载，与singleflight.Group相同，但直接使用K作为map的key
// 不同的key不会因为打印结果相同而共享一次加载
type flightGroup[K comparable] struct {
	lock sync.Mutex
	m    map[K]*call
}

// Do 执行fn并返回结果，同一个key的并发调用等待第一次调用的结果
func (g *flightGroup[K]) Do(key K, fn func() (any, error)) (any, error) {
	g.lock.Lock()
	if g.m == nil {
		g.m = make(map[K]*call)
	}
	if c, ok := g.m[key]; ok {
		g.lock.Unlock()
		c.wg.Wait()
		return c.val, c.err
	}
	c := &call{err: errs.New("load panicked").Wrap()}
	c.wg.Add(1)
	g.m[key] = c
	g.lock.Unlock()

	defer func() {
		g.lock.Lock()
		delete(g.m, key)
		g.lock.Unlock()
		c.wg.Done()
	}()
	c.val, c.err = fn()
	return c.val, c.err
}
