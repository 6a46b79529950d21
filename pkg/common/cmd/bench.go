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
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openimsdk/localcache/internal/workload"
	"github.com/openimsdk/localcache/pkg/common/config"
	"github.com/openimsdk/localcache/pkg/localcache"
)

// NewBenchCmd 按workload配置压测一次并打印结果
func NewBenchCmd(root *RootCmd) *cobra.Command {
	var operations int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic workload against a fresh cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.initLog(); err != nil {
				return err
			}
			conf := *root.Config()
			if operations > 0 {
				conf.Workload.Operations = operations
			}
			res, err := Bench(cmd.Context(), &conf)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), conf.LocalCache, res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&operations, "operations", "n", 0, "override workload.operations")
	return cmd
}

// Bench 使用配置创建缓存并执行一次压测，返回前停止缓存
func Bench(ctx context.Context, conf *config.Config) (workload.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cache := localcache.New[string, int](ctx, cacheOptions(conf.LocalCache)...)
	defer cache.Stop()
	return workload.Run(ctx, cache, conf.Workload)
}

func printResult(w io.Writer, conf config.LocalCache, res workload.Result) {
	title := color.New(color.FgCyan, color.Bold)
	key := color.New(color.FgWhite)
	good := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	title.Fprintf(w, "localcache bench (capacity %d, refresh %s)\n", conf.Capacity, conf.RefreshFrequency)
	key.Fprint(w, "  operations  ")
	good.Fprintf(w, "%d in %s (%.0f ops/s)\n", res.Operations, res.Elapsed, res.OpsPerSecond())
	key.Fprint(w, "  hit rate    ")
	rate := good
	if res.HitRate() < 0.5 {
		rate = warn
	}
	rate.Fprintf(w, "%.2f%% (%d hits, %d misses)\n", res.HitRate()*100, res.Hits, res.Misses)
	key.Fprint(w, "  writes      ")
	good.Fprintf(w, "%d sets, %d deletes\n", res.Sets, res.Dels)
	key.Fprint(w, "  evictions   ")
	good.Fprintf(w, "%d notified, %d entries left\n", res.Evictions, res.Len)
}
