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

package ppm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatsIncAndGet(t *testing.T) {
	s := NewStats()
	s.Inc(CounterIfOutOctets, 64)
	s.Inc(CounterIfOutOctets, 64)
	s.Inc(CounterIfOutErrors, 1)

	snap := s.Get()
	require.Equal(t, int64(128), snap[CounterIfOutOctets])
	require.Equal(t, int64(1), snap[CounterIfOutErrors])
}

func TestInstanceCountersNamespacedByFrameID(t *testing.T) {
	trx1, err1, line1 := instanceCounters(0x8001)
	trx2, _, _ := instanceCounters(0x8002)
	require.NotEqual(t, trx1, trx2)
	require.Contains(t, trx1, "8001")
	require.Contains(t, err1, "errcnt")
	require.Contains(t, line1, "errline")
}
