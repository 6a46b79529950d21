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
	"time"

	"github.com/IBM/sarama"
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
)

// Event 是写入Kafka的淘汰事件
type Event[K comparable] struct {
	Key       K     `json:"key"`
	EvictedAt int64 `json:"evictedAt"` // 毫秒时间戳
}

// KafkaPublisher 把被淘汰的key写入Kafka主题
// 消息key是JSON编码的缓存key，同一个缓存key的事件落在同一个分区
type KafkaPublisher[K comparable] struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
	worker   *worker[K]
}

// NewKafkaPublisher 创建Kafka发布器并启动发布协程，producer的Return.Successes必须开启
func NewKafkaPublisher[K comparable](ctx context.Context, producer sarama.SyncProducer, topic string, opts ...Option) (*KafkaPublisher[K], error) {
	if producer == nil {
		return nil, errs.ErrArgs.WrapMsg("kafka producer should not be nil")
	}
	if topic == "" {
		return nil, errs.ErrArgs.WrapMsg("kafka topic should not be empty")
	}
	opt := newOptions(opts)
	p := &KafkaPublisher[K]{producer: producer, topic: topic, now: time.Now}
	p.worker = newWorker[K](ctx, "kafka:"+topic, opt.queueSize, func(ctx context.Context, key K) {
		if err := p.Publish(ctx, key); err != nil {
			log.ZWarn(ctx, "publish evicted key to kafka failed", err, "key", key)
		}
	})
	return p, nil
}

// Publish 发送一条淘汰事件
func (p *KafkaPublisher[K]) Publish(ctx context.Context, key K) error {
	k, err := json.Marshal(key)
	if err != nil {
		return errs.WrapMsg(err, "marshal evicted key failed", "topic", p.topic)
	}
	v, err := json.Marshal(Event[K]{Key: key, EvictedAt: p.now().UnixMilli()})
	if err != nil {
		return errs.WrapMsg(err, "marshal evict event failed", "topic", p.topic)
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.ByteEncoder(k),
		Value: sarama.ByteEncoder(v),
	})
	if err != nil {
		return errs.WrapMsg(err, "kafka send message failed", "topic", p.topic)
	}
	log.ZDebug(ctx, "evict event sent", "topic", p.topic, "partition", partition, "offset", offset)
	return nil
}

// Subscriber 返回可以注册到缓存的订阅函数，只把key放入发布队列
func (p *KafkaPublisher[K]) Subscriber() func(key K) {
	return func(key K) {
		p.worker.put(key)
	}
}

// Dropped 返回因队列已满或已关闭而没有发送的key数量
func (p *KafkaPublisher[K]) Dropped() int64 {
	return p.worker.dropped.Load()
}

// Close 发送完队列中剩余的key后关闭底层producer
func (p *KafkaPublisher[K]) Close() error {
	p.worker.close()
	if err := p.producer.Close(); err != nil {
		return errs.WrapMsg(err, "close kafka producer failed", "topic", p.topic)
	}
	return nil
}
