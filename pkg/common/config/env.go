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

import "strings"

// EnvPrefix 由配置文件名生成环境变量前缀
// 去掉.yml/.yaml后缀，加上LCENV_，连字符替换为下划线并转为大写
// 例如：localcache.yml -> LCENV_LOCALCACHE
func EnvPrefix(fileName string) string {
	envKey := strings.TrimSuffix(strings.TrimSuffix(fileName, ".yml"), ".yaml")
	envKey = "LCENV_" + envKey
	return strings.ToUpper(strings.ReplaceAll(envKey, "-", "_"))
}
