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
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openimsdk/tools/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keyRecorder 收集订阅者收到的key
type keyRecorder struct {
	lock sync.Mutex
	keys []string
}

func (r *keyRecorder) add(key string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.keys = append(r.keys, key)
}

func (r *keyRecorder) snapshot() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.keys...)
}

func (r *keyRecorder) count(key string) int {
	var n int
	for _, k := range r.snapshot() {
		if k == key {
			n++
		}
	}
	return n
}

func newCache(t *testing.T, opts ...Option) *LocalCache[string, int] {
	t.Helper()
	c := New[string, int](context.Background(), opts...)
	t.Cleanup(c.Stop)
	return c
}

// 容量10，顺序写入k0..k14，中间没有读取：k0被淘汰，k5仍然存在
func TestInsertionOrderEviction(t *testing.T) {
	c := newCache(t, WithCapacity(10))
	for i := 0; i < 15; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("k%d", i), i, 0))
	}

	_, ok := c.Get("k0")
	assert.False(t, ok)
	v, ok := c.Get("k5")
	assert.True(t, ok)
	assert.Equal(t, 5, v)
	assert.Equal(t, 10, c.Len())
}

// 每次写入后读取k0，k0一直位于头部，k5被淘汰
func TestTouchKeepsEntry(t *testing.T) {
	c := newCache(t, WithCapacity(10))
	for i := 0; i < 15; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("k%d", i), i, 0))
		c.Get("k0")
	}

	v, ok := c.Get("k0")
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	_, ok = c.Get("k5")
	assert.False(t, ok)
}

func TestSetWithoutCapacity(t *testing.T) {
	c := newCache(t)
	err := c.Set("months", 12, 0)
	assert.True(t, ErrNotConfigured.Is(err))

	_, ok := c.Get("months")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Keys())
	assert.False(t, c.Del("months"))
}

func TestExpiredEntryIsRemoved(t *testing.T) {
	c := newCache(t)
	require.NoError(t, c.SetCapacity(10))
	require.NoError(t, c.SetRefreshFrequency(100*time.Millisecond))
	require.NoError(t, c.Set("months", 12, 300*time.Millisecond))

	v, ok := c.Get("months")
	require.True(t, ok)
	assert.Equal(t, 12, v)

	time.Sleep(700 * time.Millisecond)
	_, ok = c.Get("months")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestNegativeTTL(t *testing.T) {
	c := newCache(t)
	require.NoError(t, c.SetCapacity(10))

	err := c.Set("months", 12, -20)
	assert.True(t, ErrInvalidArgument.Is(err))
	assert.True(t, errs.ErrArgs.Is(err))
	assert.Equal(t, 0, c.Len())
}

func TestTTLWithoutRefreshFrequency(t *testing.T) {
	c := newCache(t, WithCapacity(10))

	err := c.Set("months", 12, time.Second)
	assert.True(t, ErrNotConfigured.Is(err))

	// 不带TTL的写入不需要刷新频率
	assert.NoError(t, c.Set("months", 12, 0))
}

func TestSubscriberReceivesEviction(t *testing.T) {
	c := newCache(t, WithCapacity(10))
	rec := &keyRecorder{}
	c.Subscribe(rec.add)

	for i := 0; i < 11; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("k%d", i), i, 0))
	}
	assert.Equal(t, []string{"k0"}, rec.snapshot())
}

func TestConfigurationFirstWriteWins(t *testing.T) {
	c := newCache(t)

	require.NoError(t, c.SetCapacity(2))
	assert.NoError(t, c.SetCapacity(100))
	capacity, ok := c.Capacity()
	assert.True(t, ok)
	assert.Equal(t, 2, capacity)

	require.NoError(t, c.SetRefreshFrequency(time.Hour))
	assert.NoError(t, c.SetRefreshFrequency(time.Millisecond))
	freq, ok := c.RefreshFrequency()
	assert.True(t, ok)
	assert.Equal(t, time.Hour, freq)

	for i := 0; i < 10; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("k%d", i), i, 0))
	}
	assert.Equal(t, 2, c.Len())
}

func TestInvalidConfigurationLeavesUnset(t *testing.T) {
	c := newCache(t)

	assert.True(t, ErrInvalidArgument.Is(c.SetCapacity(0)))
	assert.True(t, ErrInvalidArgument.Is(c.SetCapacity(-1)))
	_, ok := c.Capacity()
	assert.False(t, ok)

	assert.True(t, ErrInvalidArgument.Is(c.SetRefreshFrequency(0)))
	_, ok = c.RefreshFrequency()
	assert.False(t, ok)

	// 非法取值不算第一次设置
	require.NoError(t, c.SetCapacity(3))
	capacity, _ := c.Capacity()
	assert.Equal(t, 3, capacity)
}

func TestOptionsConfigureCache(t *testing.T) {
	c := newCache(t, WithCapacity(5), WithCapacity(50), WithRefreshFrequency(time.Minute))

	capacity, ok := c.Capacity()
	assert.True(t, ok)
	assert.Equal(t, 5, capacity)
	freq, ok := c.RefreshFrequency()
	assert.True(t, ok)
	assert.Equal(t, time.Minute, freq)

	// 选项已经设置过，后续调用被忽略
	assert.NoError(t, c.SetCapacity(1))
	capacity, _ = c.Capacity()
	assert.Equal(t, 5, capacity)

	assert.Panics(t, func() { WithCapacity(0) })
	assert.Panics(t, func() { WithRefreshFrequency(-time.Second) })
	assert.Panics(t, func() { WithTarget(nil) })
}

func TestExpirationNotifiesExactlyOnce(t *testing.T) {
	c := newCache(t, WithCapacity(10), WithRefreshFrequency(10*time.Millisecond))
	rec := &keyRecorder{}
	c.Subscribe(rec.add)

	require.NoError(t, c.Set("short", 1, 20*time.Millisecond))
	require.NoError(t, c.Set("forever", 2, 0))

	assert.Eventually(t, func() bool { return rec.count("short") == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"short"}, rec.snapshot())

	_, ok := c.Get("forever")
	assert.True(t, ok)
}

func TestNoSpuriousNotifications(t *testing.T) {
	c := newCache(t, WithCapacity(3))
	rec := &keyRecorder{}
	c.Subscribe(rec.add)

	require.NoError(t, c.Set("a", 1, 0))
	require.NoError(t, c.Set("b", 2, 0))
	require.NoError(t, c.Set("a", 3, 0))
	c.Get("missing")
	c.Get("b")

	assert.Empty(t, rec.snapshot())
}

func TestDelNotifiesSubscribers(t *testing.T) {
	c := newCache(t, WithCapacity(3))
	rec := &keyRecorder{}
	c.Subscribe(rec.add)

	require.NoError(t, c.Set("a", 1, 0))
	assert.True(t, c.Del("a"))
	assert.False(t, c.Del("a"))
	assert.Equal(t, []string{"a"}, rec.snapshot())
}

// 删除一个key时，通过Link关联的key一起被删除并通知
func TestDelLinked(t *testing.T) {
	c := newCache(t, WithCapacity(10))
	rec := &keyRecorder{}
	c.Subscribe(rec.add)

	for _, key := range []string{"user", "friends", "groups", "other"} {
		require.NoError(t, c.Set(key, 1, 0))
	}
	c.Link("user", "friends", "groups")

	assert.True(t, c.Del("groups"))
	assert.ElementsMatch(t, []string{"user", "friends", "groups"}, rec.snapshot())
	assert.Equal(t, []string{"other"}, c.Keys())

	// 关联关系随删除一起清除
	require.NoError(t, c.Set("user", 1, 0))
	require.NoError(t, c.Set("friends", 1, 0))
	assert.True(t, c.Del("user"))
	_, ok := c.Get("friends")
	assert.True(t, ok)
}

// 被容量淘汰的key不再参与级联删除
func TestLinkForgottenOnEviction(t *testing.T) {
	c := newCache(t, WithCapacity(2))
	require.NoError(t, c.Set("a", 1, 0))
	require.NoError(t, c.Set("b", 1, 0))
	c.Link("a", "b")

	require.NoError(t, c.Set("c", 1, 0))
	_, ok := c.Get("a")
	require.False(t, ok)

	_, ok = c.Get("b")
	require.True(t, ok)
	require.NoError(t, c.Set("a", 2, 0))
	assert.True(t, c.Del("b"))
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

// 不在缓存中的key不会留下关联关系
func TestLinkIgnoresAbsentKeys(t *testing.T) {
	c := newCache(t, WithCapacity(10))
	for i := 0; i < 100; i++ {
		c.Link(fmt.Sprintf("missing-%d", i), "other")
	}
	assert.Equal(t, 0, c.links.Len())

	require.NoError(t, c.Set("a", 1, 0))
	c.Link("a", "missing")
	c.Link("missing", "a")
	assert.Equal(t, 0, c.links.Len())

	require.NoError(t, c.Set("b", 1, 0))
	c.Link("a", "b", "missing")
	assert.Equal(t, 2, c.links.Len())

	assert.True(t, c.Del("a"))
	assert.Equal(t, 0, c.links.Len())
	assert.Equal(t, 0, c.Len())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c := newCache(t, WithCapacity(1))
	rec := &keyRecorder{}
	h := c.Subscribe(rec.add)

	require.NoError(t, c.Set("a", 1, 0))
	require.NoError(t, c.Set("b", 2, 0))
	assert.True(t, c.Unsubscribe(h))
	require.NoError(t, c.Set("c", 3, 0))

	assert.Equal(t, []string{"a"}, rec.snapshot())
}

func TestPanickingSubscriber(t *testing.T) {
	c := newCache(t, WithCapacity(1))
	rec := &keyRecorder{}
	c.Subscribe(func(string) { panic("subscriber failed") })
	c.Subscribe(rec.add)

	require.NoError(t, c.Set("a", 1, 0))
	require.NoError(t, c.Set("b", 2, 0))

	assert.Equal(t, []string{"a"}, rec.snapshot())
	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestSubscriberMayUseCache(t *testing.T) {
	c := newCache(t, WithCapacity(2))
	var lens []int
	c.Subscribe(func(key string) {
		lens = append(lens, c.Len())
		_, ok := c.Get(key)
		assert.False(t, ok)
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("k%d", i), i, 0))
	}
	assert.Equal(t, []int{2}, lens)
}

func TestConcurrentDistinctKeys(t *testing.T) {
	const (
		goroutines = 16
		perG       = 200
	)
	c := newCache(t, WithCapacity(goroutines*perG))

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				assert.NoError(t, c.Set(fmt.Sprintf("g%d_k%d", g, i), g*perG+i, 0))
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, goroutines*perG, c.Len())
	for g := 0; g < goroutines; g++ {
		for i := 0; i < perG; i++ {
			v, ok := c.Get(fmt.Sprintf("g%d_k%d", g, i))
			require.True(t, ok)
			assert.Equal(t, g*perG+i, v)
		}
	}
}

// TestConcurrentReadWrite 并发读写和删除，检查容量上限和通知次数
func TestConcurrentReadWrite(t *testing.T) {
	const (
		capacity = 100
		tNum     = 32   // goroutine数量
		num      = 2000 // 每个goroutine的操作次数
		kNum     = 1000 // key的总数量
	)
	c := newCache(t, WithCapacity(capacity), WithRefreshFrequency(time.Millisecond))
	var notified atomic.Int64
	c.Subscribe(func(string) { notified.Add(1) })

	getKey := func(v uint64) string {
		return fmt.Sprintf("key_%d", v%kNum)
	}

	var (
		sets atomic.Int64
		dels atomic.Int64
	)
	var wg sync.WaitGroup
	for i := 0; i < tNum; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < num; j++ {
				key := getKey(rand.Uint64())
				switch j % 4 {
				case 0:
					if c.Del(key) {
						dels.Add(1)
					}
				case 1:
					assert.NoError(t, c.Set(key, j, time.Millisecond))
					sets.Add(1)
				default:
					if _, ok := c.Get(key); !ok {
						assert.NoError(t, c.Set(key, j, 0))
						sets.Add(1)
					}
				}
				assert.LessOrEqual(t, c.Len(), capacity)
			}
		}(i)
	}
	wg.Wait()
	c.Stop()

	t.Log("写入次数:", sets.Load(), "删除次数:", dels.Load(), "通知次数:", notified.Load())
	assert.LessOrEqual(t, c.Len(), capacity)
	assert.GreaterOrEqual(t, notified.Load(), dels.Load())
	assert.LessOrEqual(t, notified.Load()+int64(c.Len()), sets.Load())
}

func TestGetOrLoad(t *testing.T) {
	c := newCache(t, WithCapacity(10))
	var calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "answer", fetch)
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	v, ok := c.Get("answer")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	// 已缓存，不再调用fetch
	v, err := c.GetOrLoad(context.Background(), "answer", fetch)
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetOrLoadError(t *testing.T) {
	c := newCache(t, WithCapacity(10))
	loadErr := errs.New("load failed")

	v, err := c.GetOrLoad(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 0, loadErr
	})
	assert.Equal(t, loadErr, err)
	assert.Equal(t, 0, v)
	assert.Equal(t, 0, c.Len())
}

type pair struct {
	a, b string
}

// 打印结果相同的两个不同key各自加载，互不等待
func TestGetOrLoadDistinctKeysSamePrint(t *testing.T) {
	c := New[pair, string](context.Background(), WithCapacity(10))
	defer c.Stop()
	k1, k2 := pair{"a b", ""}, pair{"a", "b "}
	require.Equal(t, fmt.Sprintf("%v", k1), fmt.Sprintf("%v", k2))

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string, 1)
	go func() {
		v, err := c.GetOrLoad(context.Background(), k1, func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "value-of-k1", nil
		})
		assert.NoError(t, err)
		done <- v
	}()
	<-started

	v2, err := c.GetOrLoad(context.Background(), k2, func(ctx context.Context) (string, error) {
		return "value-of-k2", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "value-of-k2", v2)
	close(release)
	assert.Equal(t, "value-of-k1", <-done)

	v, ok := c.Get(k1)
	assert.True(t, ok)
	assert.Equal(t, "value-of-k1", v)
	v, ok = c.Get(k2)
	assert.True(t, ok)
	assert.Equal(t, "value-of-k2", v)
}

func TestGetOrLoadStructKey(t *testing.T) {
	c := New[pair, int](context.Background(), WithCapacity(10))
	defer c.Stop()
	var calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), pair{"x", "y"}, fetch)
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, c.flight.m)
}

func TestGetOrLoadWithoutRefreshFrequency(t *testing.T) {
	c := newCache(t, WithCapacity(10), WithLoaderTTL(time.Minute))

	v, err := c.GetOrLoad(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 7, nil
	})
	assert.True(t, ErrNotConfigured.Is(err))
	assert.Equal(t, 7, v)
	assert.Equal(t, 0, c.Len())
}

func TestStop(t *testing.T) {
	c := New[string, int](context.Background(), WithCapacity(10), WithRefreshFrequency(5*time.Millisecond))
	rec := &keyRecorder{}
	c.Subscribe(rec.add)

	require.NoError(t, c.Set("a", 1, time.Millisecond))
	assert.Eventually(t, func() bool { return rec.count("a") == 1 }, 2*time.Second, time.Millisecond)

	c.Stop()
	c.Stop()

	// 停止后不再主动清理，但过期的缓存项仍然按未命中处理
	require.NoError(t, c.Set("b", 2, time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, []string{"a"}, rec.snapshot())
}
