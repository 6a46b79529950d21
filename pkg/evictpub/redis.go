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

package evictpub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"github.com/redis/go-redis/v9"
)

// message 是Redis频道上的消息载荷，例如 {"origin":"...","keys":["key1"]}
// origin标识发布消息的进程，Listen忽略本进程发布的消息
type message[K comparable] struct {
	Origin string `json:"origin"`
	Keys   []K    `json:"keys"`
}

// RedisPublisher 把被淘汰的key发布到Redis频道
type RedisPublisher[K comparable] struct {
	client  redis.UniversalClient
	channel string
	origin  string
	worker  *worker[K]

	lock  sync.Mutex
	muted map[K]int // Listen正在删除的key，删除产生的通知不再发布
}

// NewRedisPublisher 创建Redis发布器并启动发布协程，使用完毕后需要调用Close
func NewRedisPublisher[K comparable](ctx context.Context, client redis.UniversalClient, channel string, opts ...Option) (*RedisPublisher[K], error) {
	if client == nil {
		return nil, errs.ErrArgs.WrapMsg("redis client should not be nil")
	}
	if channel == "" {
		return nil, errs.ErrArgs.WrapMsg("redis channel should not be empty")
	}
	opt := newOptions(opts)
	p := &RedisPublisher[K]{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		muted:   make(map[K]int),
	}
	p.worker = newWorker[K](ctx, "redis:"+channel, opt.queueSize, func(ctx context.Context, key K) {
		if err := p.Publish(ctx, key); err != nil {
			log.ZWarn(ctx, "publish evicted key to redis failed", err, "key", key)
		}
	})
	return p, nil
}

// Origin 返回本发布器写入消息的来源标识
func (p *RedisPublisher[K]) Origin() string {
	return p.origin
}

// Publish 同步发布一组被淘汰的key
func (p *RedisPublisher[K]) Publish(ctx context.Context, keys ...K) error {
	if len(keys) == 0 {
		return nil
	}
	data, err := json.Marshal(message[K]{Origin: p.origin, Keys: keys})
	if err != nil {
		return errs.WrapMsg(err, "marshal evicted keys failed", "channel", p.channel)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return errs.WrapMsg(err, "redis publish failed", "channel", p.channel)
	}
	return nil
}

// Subscriber 返回可以注册到缓存的订阅函数
// 订阅函数只把key放入发布队列，Listen删除key产生的通知被忽略
func (p *RedisPublisher[K]) Subscriber() func(key K) {
	return func(key K) {
		p.offer(key)
	}
}

func (p *RedisPublisher[K]) offer(key K) bool {
	if p.isMuted(key) {
		return false
	}
	return p.worker.put(key)
}

// Dropped 返回因队列已满或已关闭而没有发布的key数量
func (p *RedisPublisher[K]) Dropped() int64 {
	return p.worker.dropped.Load()
}

// Close 停止发布协程，队列中剩余的key发布完成后返回，不关闭Redis客户端
func (p *RedisPublisher[K]) Close() {
	p.worker.close()
}

// Listen 订阅Redis频道，把其他进程发布的key交给del处理，直到ctx取消
// del删除key产生的淘汰通知不会再次发布
func (p *RedisPublisher[K]) Listen(ctx context.Context, del func(ctx context.Context, keys ...K)) {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()
	p.consume(ctx, sub.Channel(), del)
}

func (p *RedisPublisher[K]) consume(ctx context.Context, messages <-chan *redis.Message, del func(ctx context.Context, keys ...K)) {
	defer func() {
		if r := recover(); r != nil {
			log.ZError(ctx, "redis listener panic", errs.ErrPanic(r), "channel", p.channel)
		}
	}()

	for {
		var msg *redis.Message
		select {
		case <-ctx.Done():
			return
		case m, ok := <-messages:
			if !ok {
				return
			}
			msg = m
		}
		log.ZDebug(ctx, "redis listener", "channel", p.channel, "payload", msg.Payload)
		payload, err := decodeMessage[K](msg.Payload)
		if err != nil {
			log.ZError(ctx, "redis listener decode payload failed", err, "channel", p.channel)
			continue
		}
		if payload.Origin == p.origin || len(payload.Keys) == 0 {
			continue
		}
		p.mute(payload.Keys)
		del(ctx, payload.Keys...)
		p.unmute(payload.Keys)
	}
}

func (p *RedisPublisher[K]) mute(keys []K) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, k := range keys {
		p.muted[k]++
	}
}

func (p *RedisPublisher[K]) unmute(keys []K) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, k := range keys {
		if p.muted[k] <= 1 {
			delete(p.muted, k)
		} else {
			p.muted[k]--
		}
	}
}

func (p *RedisPublisher[K]) isMuted(key K) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	_, ok := p.muted[key]
	return ok
}

// decodeMessage 解析频道上的消息
func decodeMessage[K comparable](payload string) (*message[K], error) {
	var msg message[K]
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return nil, errs.WrapMsg(err, "json unmarshal message failed", "payload", payload)
	}
	return &msg, nil
}
