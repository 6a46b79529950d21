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

package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func keys(m map[string]struct{}) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	return res
}

func TestDelTransitive(t *testing.T) {
	v := New[string]()
	v.Link("a:1", "b:1", "c:1")
	v.Link("z:1", "b:1")
	v.Link("x:1", "y:1")

	assert.ElementsMatch(t, []string{"z:1", "b:1", "a:1", "c:1"}, keys(v.Del("z:1")))
	assert.Equal(t, 2, v.Len())
	assert.ElementsMatch(t, []string{"y:1", "x:1"}, keys(v.Del("y:1")))
	assert.Equal(t, 0, v.Len())
}

func TestDelUnlinked(t *testing.T) {
	v := New[int]()
	assert.Equal(t, map[int]struct{}{7: {}}, v.Del(7))
}

func TestLinkSelf(t *testing.T) {
	v := New[string]()
	v.Link("a", "a")
	assert.Equal(t, 0, v.Len())
	v.Link("a")
	assert.Equal(t, 0, v.Len())
}

func TestForget(t *testing.T) {
	v := New[string]()
	v.Link("a", "b", "c")
	v.Forget("a")
	assert.Equal(t, 0, v.Len())
	assert.ElementsMatch(t, []string{"b"}, keys(v.Del("b")))

	v.Link("a", "b")
	v.Link("b", "c")
	v.Forget("a")
	assert.ElementsMatch(t, []string{"b", "c"}, keys(v.Del("c")))
}
