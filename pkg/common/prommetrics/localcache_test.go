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
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openimsdk/localcache/pkg/localcache"
)

func TestLocalCacheTargetCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	target, err := NewLocalCacheTarget(reg, "test")
	require.NoError(t, err)

	c := localcache.New[string, int](context.Background(), localcache.WithCapacity(2), localcache.WithTarget(target))
	defer c.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(fmt.Sprintf("k%d", i), i, 0))
	}
	c.Get("k2")
	c.Get("k0")
	c.Del("k1")
	c.Del("k1")

	assert.Equal(t, float64(1), testutil.ToFloat64(target.getHit))
	assert.Equal(t, float64(1), testutil.ToFloat64(target.getMiss))
	assert.Equal(t, float64(3), testutil.ToFloat64(target.set))
	assert.Equal(t, float64(1), testutil.ToFloat64(target.evict.WithLabelValues("capacity")))
	assert.Equal(t, float64(1), testutil.ToFloat64(target.evict.WithLabelValues("deleted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(target.del.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(target.del.WithLabelValues("not_found")))

	stats := target.Stats()
	assert.Equal(t, Stats{GetHit: 1, GetMiss: 1, Set: 3, EvictCapacity: 1, EvictDeleted: 1, DelHit: 1, DelNotFound: 1}, stats)
	assert.Equal(t, 0.5, stats.HitRate())
	assert.Equal(t, float64(0), Stats{}.HitRate())
}

func TestNewLocalCacheTargetDuplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewLocalCacheTarget(reg, "dup")
	require.NoError(t, err)
	_, err = NewLocalCacheTarget(reg, "dup")
	assert.Error(t, err)
}

func TestRegisterLenAndHandler(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, RegisterLen(reg, "test", func() float64 { return 42 }))
	assert.Error(t, RegisterLen(reg, "test", func() float64 { return 0 }))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_localcache_len 42"))
}
