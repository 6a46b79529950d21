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
	"context"

	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"github.com/robfig/cron/v3"

	"github.com/openimsdk/localcache/pkg/common/prommetrics"
	"github.com/openimsdk/localcache/pkg/localcache"
)

// newReporter 按cron表达式周期性执行fn，返回尚未启动的cron
func newReporter(spec string, fn func()) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, fn); err != nil {
		return nil, errs.WrapMsg(err, "invalid report spec", "spec", spec)
	}
	return c, nil
}

func report(ctx context.Context, cache localcache.Cache[string, string], target *prommetrics.LocalCacheTarget) {
	stats := target.Stats()
	log.ZInfo(ctx, "local cache stats",
		"len", cache.Len(),
		"hitRate", stats.HitRate(),
		"getHit", stats.GetHit,
		"getMiss", stats.GetMiss,
		"set", stats.Set,
		"evictCapacity", stats.EvictCapacity,
		"evictExpired", stats.EvictExpired,
		"evictDeleted", stats.EvictDeleted,
	)
}
