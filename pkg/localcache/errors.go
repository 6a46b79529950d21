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

package localcache

import "github.com/openimsdk/tools/errs"

// NotConfiguredError 缓存在完成必要配置之前被使用
const NotConfiguredError = 1801

var (
	// ErrNotConfigured 容量未设置，或写入带TTL的缓存项时刷新频率未设置
	ErrNotConfigured = errs.NewCodeError(NotConfiguredError, "NotConfigured")

	// ErrInvalidArgument 参数非法，例如负数TTL或非正的容量
	ErrInvalidArgument = errs.ErrArgs
)
