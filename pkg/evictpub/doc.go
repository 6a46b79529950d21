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

// Package evictpub 把本地缓存的淘汰事件转发到Redis或Kafka
//
// 发布器只转发key，不复制缓存值。Subscriber返回的函数可以直接注册到缓存，
// 它只把key放入有界队列，由发布器自己的协程完成网络请求，队列满时丢弃并记录日志：
//
//	pub, err := evictpub.NewRedisPublisher[string](ctx, rdb, "localcache.evict")
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//	cache.Subscribe(pub.Subscriber())
//
// RedisPublisher.Listen订阅同一个频道，删除其他进程淘汰的key。
// 消息带有发布进程的标识，本进程发布的消息被忽略，Listen删除key产生的通知也不会再次发布。
package evictpub
