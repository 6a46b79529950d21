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
	"github.com/openimsdk/tools/errs"
	"gopkg.in/yaml.v3"
)

const mask = "******"

// Dump 把生效的配置输出为YAML，密码会被遮盖
func Dump(cfg *Config) ([]byte, error) {
	c := *cfg
	if c.Redis.Password != "" {
		c.Redis.Password = mask
	}
	if c.Kafka.Password != "" {
		c.Kafka.Password = mask
	}
	data, err := yaml.Marshal(&c)
	if err != nil {
		return nil, errs.WrapMsg(err, "marshal config failed")
	}
	return data, nil
}
