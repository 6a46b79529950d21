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

package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/openimsdk/tools/errs"
	"github.com/robfig/cron/v3"
)

var validate = validator.New()

// Validate 检查配置的取值范围和字段之间的依赖
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return errs.ErrArgs.WrapMsg(err.Error())
	}
	// 带TTL的写入依赖过期清理
	if cfg.Workload.TTL > 0 && cfg.LocalCache.RefreshFrequency == 0 {
		return errs.ErrArgs.WrapMsg("workload.ttl requires localCache.refreshFrequency", "ttl", cfg.Workload.TTL)
	}
	if cfg.LocalCache.LoaderTTL > 0 && cfg.LocalCache.RefreshFrequency == 0 {
		return errs.ErrArgs.WrapMsg("localCache.loaderTTL requires localCache.refreshFrequency", "loaderTTL", cfg.LocalCache.LoaderTTL)
	}
	if cfg.Prometheus.Report != "" {
		if _, err := cron.ParseStandard(cfg.Prometheus.Report); err != nil {
			return errs.ErrArgs.WrapMsg("invalid prometheus.report", "report", cfg.Prometheus.Report, "err", err.Error())
		}
	}
	return nil
}
