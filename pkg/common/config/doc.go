// Copyright © 2023 OpenIM. All rights reserved.
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

/*
Package config 定义localcache进程的配置并负责加载

配置来源：

 1. config目录下的localcache.yml
 2. 以LCENV_LOCALCACHE为前缀的环境变量，例如
    LCENV_LOCALCACHE_LOCALCACHE_CAPACITY=1000 覆盖 localCache.capacity

加载完成后使用validator检查取值范围，Dump可以输出脱敏后的生效配置。
*/
package config // import "github.com/openimsdk/localcache/pkg/common/config"
