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
	"time"

	"github.com/profinet-go/pnet-rt/pnet/diag"
	"github.com/profinet-go/pnet-rt/pnet/timer"
)

// Config carries the engine's static wiring: the scheduling model
// (preemptive or cooperative) and the collaborators this core is handed
// rather than owning itself.
type Config struct {
	// Cooperative selects the scheduling model described in the
	// concurrency design: false uses preemptive per-instance OS timers,
	// true drives every instance off a single cooperative Scheduler.
	Cooperative bool

	Sender diag.EthernetSender
	Alloc  diag.BufferAllocator
	CM     diag.ConnectionManager

	// EthHandle identifies the raw channel passed to Sender.Send.
	EthHandle int

	// Now supplies the current stack time in microseconds; overridable in
	// tests, defaults to the wall clock (time.Now().UnixMicro()).
	Now func() int64

	// StackCycle is the global cycle-counter tick (31.25us in production).
	StackCycle time.Duration

	// Scheduler is required when Cooperative is true; ignored otherwise.
	Scheduler *timer.Scheduler
}

func (c *Config) newTimer(name string) timer.Timer {
	if c.Cooperative {
		return c.Scheduler.AsTimer(name)
	}
	return timer.NewPreemptiveTimer()
}

func (c *Config) now() int64 {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UnixMicro()
}
