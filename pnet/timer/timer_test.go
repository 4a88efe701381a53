/*
Copyright (c) The pnet-rt Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompensatedDelayOneTickFloor(t *testing.T) {
	stack := 1000 * time.Microsecond
	d := CompensatedDelay(1200*time.Microsecond, stack, false)
	require.Equal(t, stack, d)
}

func TestCompensatedDelayMultiTick(t *testing.T) {
	stack := 1000 * time.Microsecond
	d := CompensatedDelay(4800*time.Microsecond, stack, false)
	require.Equal(t, 5*stack, d)
}

func TestCompensatedDelayCooperativeSubtractsHalfTick(t *testing.T) {
	stack := 1000 * time.Microsecond
	preemptive := CompensatedDelay(4800*time.Microsecond, stack, false)
	cooperative := CompensatedDelay(4800*time.Microsecond, stack, true)
	require.Equal(t, preemptive-stack/2, cooperative)
}

func TestCompensatedDelayAlwaysAtLeastOneTick(t *testing.T) {
	stack := 1000 * time.Microsecond
	d := CompensatedDelay(10*time.Microsecond, stack, false)
	require.GreaterOrEqual(t, d, stack)
}

func TestPreemptiveTimerFires(t *testing.T) {
	pt := NewPreemptiveTimer()
	var fired int32
	done := make(chan struct{})
	require.NoError(t, pt.Start(5*time.Millisecond, func() {
		atomic.StoreInt32(&fired, 1)
		close(done)
	}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestPreemptiveTimerStopPreventsCallback(t *testing.T) {
	pt := NewPreemptiveTimer()
	var fired int32
	require.NoError(t, pt.Start(20*time.Millisecond, func() {
		atomic.StoreInt32(&fired, 1)
	}))
	pt.Stop()
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestSchedulerRemoveCancels(t *testing.T) {
	s := NewScheduler()
	var fired int32
	s.Add("slot", 20*time.Millisecond, func() {
		atomic.StoreInt32(&fired, 1)
	})
	s.Remove("slot")
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestSchedulerAsTimer(t *testing.T) {
	s := NewScheduler()
	tm := s.AsTimer("cyclic")
	done := make(chan struct{})
	require.NoError(t, tm.Start(5*time.Millisecond, func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cooperative timer did not fire")
	}
}
