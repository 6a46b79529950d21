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

// Package link 管理缓存key之间的关联关系
//
// A关联B时B也关联A。删除一个key时沿关联关系做深度优先遍历，
// 得到需要一起删除的所有key，已经访问过的key不会重复处理。
//
// 使用示例：
//
//	links := link.New[string]()
//	links.Link("user:1", "user:1:friends", "user:1:groups")
//	for key := range links.Del("user:1:groups") {
//	    cache.Del(key)
//	}
package link
