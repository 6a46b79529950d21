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

package prommetrics

import (
	"sync/atomic"

	"github.com/openimsdk/tools/errs"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openimsdk/localcache/pkg/localcache/lru"
)

// Stats 是LocalCacheTarget的计数快照
type Stats struct {
	GetHit        int64 `json:"getHit"`
	GetMiss       int64 `json:"getMiss"`
	Set           int64 `json:"set"`
	EvictCapacity int64 `json:"evictCapacity"`
	EvictExpired  int64 `json:"evictExpired"`
	EvictDeleted  int64 `json:"evictDeleted"`
	DelHit        int64 `json:"delHit"`
	DelNotFound   int64 `json:"delNotFound"`
}

// LocalCacheTarget 实现lru.Target，把缓存操作计入Prometheus计数器
// 同时保留一份原子计数，供/stats和周期报告读取
type LocalCacheTarget struct {
	getHit  prometheus.Counter
	getMiss prometheus.Counter
	set     prometheus.Counter
	evict   *prometheus.CounterVec
	del     *prometheus.CounterVec

	stats struct {
		getHit, getMiss, set                      atomic.Int64
		evictCapacity, evictExpired, evictDeleted atomic.Int64
		delHit, delNotFound                       atomic.Int64
	}
}

var _ lru.Target = (*LocalCacheTarget)(nil)

// NewLocalCacheTarget 创建并注册本地缓存的计数器
func NewLocalCacheTarget(reg prometheus.Registerer, namespace string) (*LocalCacheTarget, error) {
	t := &LocalCacheTarget{
		getHit: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "get_hit_total",
			Help:      "Total number of cache hits",
		}),
		getMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "get_miss_total",
			Help:      "Total number of cache misses, including expired entries",
		}),
		set: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "set_total",
			Help:      "Total number of successful sets",
		}),
		evict: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evict_total",
			Help:      "Total number of removed entries by reason",
		}, []string{"reason"}),
		del: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "del_total",
			Help:      "Total number of explicit deletes by result",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{t.getHit, t.getMiss, t.set, t.evict, t.del} {
		if err := reg.Register(c); err != nil {
			return nil, errs.WrapMsg(err, "register local cache metrics failed", "namespace", namespace)
		}
	}
	return t, nil
}

func (t *LocalCacheTarget) IncrGetHit() {
	t.getHit.Inc()
	t.stats.getHit.Add(1)
}

func (t *LocalCacheTarget) IncrGetMiss() {
	t.getMiss.Inc()
	t.stats.getMiss.Add(1)
}

func (t *LocalCacheTarget) IncrSet() {
	t.set.Inc()
	t.stats.set.Add(1)
}

func (t *LocalCacheTarget) IncrEvict(reason lru.EvictReason) {
	t.evict.WithLabelValues(reason.String()).Inc()
	switch reason {
	case lru.EvictCapacity:
		t.stats.evictCapacity.Add(1)
	case lru.EvictExpired:
		t.stats.evictExpired.Add(1)
	case lru.EvictDeleted:
		t.stats.evictDeleted.Add(1)
	}
}

func (t *LocalCacheTarget) IncrDelHit() {
	t.del.WithLabelValues("hit").Inc()
	t.stats.delHit.Add(1)
}

func (t *LocalCacheTarget) IncrDelNotFound() {
	t.del.WithLabelValues("not_found").Inc()
	t.stats.delNotFound.Add(1)
}

// Stats 返回当前计数的快照
func (t *LocalCacheTarget) Stats() Stats {
	return Stats{
		GetHit:        t.stats.getHit.Load(),
		GetMiss:       t.stats.getMiss.Load(),
		Set:           t.stats.set.Load(),
		EvictCapacity: t.stats.evictCapacity.Load(),
		EvictExpired:  t.stats.evictExpired.Load(),
		EvictDeleted:  t.stats.evictDeleted.Load(),
		DelHit:        t.stats.delHit.Load(),
		DelNotFound:   t.stats.delNotFound.Load(),
	}
}

// HitRate 返回命中率，没有读取时为0
func (s Stats) HitRate() float64 {
	total := s.GetHit + s.GetMiss
	if total == 0 {
		return 0
	}
	return float64(s.GetHit) / float64(total)
}
