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

package cmd

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openimsdk/localcache/pkg/common/prommetrics"
	"github.com/openimsdk/localcache/pkg/localcache"
)

const defaultKeysLimit = 100

type statsResp struct {
	Len              int               `json:"len"`
	Capacity         int               `json:"capacity"`
	RefreshFrequency string            `json:"refreshFrequency"`
	HitRate          float64           `json:"hitRate"`
	Stats            prommetrics.Stats `json:"stats"`
}

type entryResp struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type errResp struct {
	Error string `json:"error"`
}

// newAdminEngine 管理接口：指标、统计信息和按key读写
func newAdminEngine(cache localcache.Cache[string, string], target *prommetrics.LocalCacheTarget, reg *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), gzip.Gzip(gzip.DefaultCompression))

	r.GET("/metrics", gin.WrapH(prommetrics.Handler(reg)))
	r.GET("/stats", func(c *gin.Context) {
		capacity, _ := cache.Capacity()
		var refresh string
		if d, ok := cache.RefreshFrequency(); ok {
			refresh = d.String()
		}
		stats := target.Stats()
		c.JSON(http.StatusOK, statsResp{
			Len:              cache.Len(),
			Capacity:         capacity,
			RefreshFrequency: refresh,
			HitRate:          stats.HitRate(),
			Stats:            stats,
		})
	})
	r.GET("/keys", func(c *gin.Context) {
		limit := defaultKeysLimit
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, errResp{Error: "limit must be a positive integer"})
				return
			}
			limit = n
		}
		keys := cache.Keys()
		if len(keys) > limit {
			keys = keys[:limit]
		}
		c.JSON(http.StatusOK, keys)
	})

	group := r.Group("/cache")
	group.GET("/:key", func(c *gin.Context) {
		key := c.Param("key")
		value, ok := cache.Get(key)
		if !ok {
			c.JSON(http.StatusNotFound, errResp{Error: "key not found"})
			return
		}
		c.JSON(http.StatusOK, entryResp{Key: key, Value: value})
	})
	group.PUT("/:key", func(c *gin.Context) {
		var ttl time.Duration
		if s := c.Query("ttl"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				c.JSON(http.StatusBadRequest, errResp{Error: "invalid ttl: " + err.Error()})
				return
			}
			ttl = d
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, errResp{Error: err.Error()})
			return
		}
		key := c.Param("key")
		if err := cache.Set(key, string(body), ttl); err != nil {
			status := http.StatusInternalServerError
			if localcache.ErrInvalidArgument.Is(err) || localcache.ErrNotConfigured.Is(err) {
				status = http.StatusBadRequest
			}
			c.JSON(status, errResp{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, entryResp{Key: key, Value: string(body)})
	})
	group.DELETE("/:key", func(c *gin.Context) {
		if !cache.Del(c.Param("key")) {
			c.JSON(http.StatusNotFound, errResp{Error: "key not found"})
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r
}
