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

package reaper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReaperSweepsPeriodically(t *testing.T) {
	var calls atomic.Int32
	r := New(context.Background(), func(context.Context, time.Time) {
		calls.Add(1)
	})
	defer r.Stop()

	assert.True(t, r.Start(10*time.Millisecond))
	assert.True(t, r.Running())
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestReaperStartOnce(t *testing.T) {
	r := New(context.Background(), func(context.Context, time.Time) {})
	defer r.Stop()

	assert.False(t, r.Start(0))
	assert.False(t, r.Start(-time.Second))
	assert.True(t, r.Start(time.Hour))
	assert.False(t, r.Start(time.Millisecond))
}

func TestReaperStopIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	r := New(context.Background(), func(context.Context, time.Time) {
		calls.Add(1)
	})
	assert.True(t, r.Start(5*time.Millisecond))
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, time.Millisecond)

	r.Stop()
	r.Stop()
	assert.False(t, r.Running())
	assert.False(t, r.Start(5*time.Millisecond))

	stopped := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestReaperStopBeforeStart(t *testing.T) {
	r := New(context.Background(), func(context.Context, time.Time) {})
	r.Stop()
	assert.False(t, r.Start(time.Millisecond))
}

func TestReaperStopWaitsForSweep(t *testing.T) {
	entered := make(chan struct{})
	var finished atomic.Bool
	var once atomic.Bool
	r := New(context.Background(), func(context.Context, time.Time) {
		if !once.CompareAndSwap(false, true) {
			return
		}
		close(entered)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})
	assert.True(t, r.Start(time.Millisecond))

	<-entered
	r.Stop()
	assert.True(t, finished.Load())
}

func TestReaperRecoversFromPanic(t *testing.T) {
	var calls atomic.Int32
	r := New(context.Background(), func(context.Context, time.Time) {
		if calls.Add(1) == 1 {
			panic("sweep failed")
		}
	})
	defer r.Stop()

	assert.True(t, r.Start(5*time.Millisecond))
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, time.Millisecond)
}

func TestReaperParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, func(context.Context, time.Time) {})
	assert.True(t, r.Start(time.Millisecond))

	cancel()
	assert.Eventually(t, func() bool { return !r.Running() }, time.Second, time.Millisecond)
	r.Stop()
}
