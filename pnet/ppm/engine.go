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

/*
Package ppm implements the Provider Protocol Machine: the per-connection
cyclic real-time transmitter described by the device-side PROFINET stack.
Engine owns the process-wide instance count and the shared buffer mutex
those instances serialize on; Instance owns one connection's state
machine, buffer layout and timer.
*/
package ppm

import (
	"sync"
	"sync/atomic"

	"github.com/profinet-go/pnet-rt/pnet/ar"
)

// Engine is the process-wide PPM state: the instance count and the
// shared-buffer lock whose lifetime tracks it.
type Engine struct {
	cfg Config

	instanceCount int32

	lifecycleMu sync.Mutex // guards creation/destruction of bufLock
	bufLock     *sync.Mutex

	Stats *Stats
}

// New returns an Engine with instance_count = 0, matching init()'s only
// effect.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, Stats: NewStats()}
}

// instanceCreated performs the 0->1 transition side effect: creating the
// shared buffer lock.
func (e *Engine) instanceCreated() {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if atomic.AddInt32(&e.instanceCount, 1) == 1 {
		e.bufLock = &sync.Mutex{}
	}
}

// instanceDestroyed performs the 1->0 transition side effect: destroying
// the shared buffer lock.
func (e *Engine) instanceDestroyed() {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if atomic.AddInt32(&e.instanceCount, -1) == 0 {
		e.bufLock = nil
	}
}

// InstanceCount returns the number of currently active PPM instances.
func (e *Engine) InstanceCount() int32 {
	return atomic.LoadInt32(&e.instanceCount)
}

// HasBufLock reports whether the shared buffer lock currently exists,
// i.e. whether any instance is active.
func (e *Engine) HasBufLock() bool {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	return e.bufLock != nil
}

func (e *Engine) lockBuf() {
	e.lifecycleMu.Lock()
	l := e.bufLock
	e.lifecycleMu.Unlock()
	if l != nil {
		l.Lock()
	}
}

func (e *Engine) unlockBuf() {
	e.lifecycleMu.Lock()
	l := e.bufLock
	e.lifecycleMu.Unlock()
	if l != nil {
		l.Unlock()
	}
}

// NewInstance constructs a PPM instance for iocr, in WAIT_START, and
// installs it on the IOCR so later lookups (e.g. SetDataStatusState
// broadcasting to every matching instance) can find it.
func (e *Engine) NewInstance(owner *ar.AR, iocr *ar.IOCR, io []*IOData) *Instance {
	inst := &Instance{
		engine: e,
		ar:     owner,
		iocr:   iocr,
		io:     io,
		state:  StateWaitStart,
	}
	iocr.SetPPM(inst)
	return inst
}

// SetDataStatusState broadcasts a STATE bit mutation to every Input/
// MCProvider PPM record owned by ar.
func (e *Engine) SetDataStatusState(owner *ar.AR, primary bool) {
	e.forEachInstance(owner, func(inst *Instance) { inst.setStatusBit(bitState, primary) })
}

// SetDataStatusRedundancy broadcasts a REDUNDANCY bit mutation.
func (e *Engine) SetDataStatusRedundancy(owner *ar.AR, redundant bool) {
	e.forEachInstance(owner, func(inst *Instance) { inst.setStatusBit(bitRedundancy, redundant) })
}

// SetDataStatusProvider broadcasts a PROVIDER_STATE bit mutation.
func (e *Engine) SetDataStatusProvider(owner *ar.AR, run bool) {
	e.forEachInstance(owner, func(inst *Instance) { inst.setStatusBit(bitProviderState, run) })
}

// SetProblemIndicator broadcasts the PROBLEM_INDICATOR bit. true clears
// the bit (problem present); false sets it (normal).
func (e *Engine) SetProblemIndicator(owner *ar.AR, flag bool) {
	e.forEachInstance(owner, func(inst *Instance) { inst.setStatusBit(bitProblemIndicator, !flag) })
}

func (e *Engine) forEachInstance(owner *ar.AR, fn func(*Instance)) {
	for _, t := range []ar.IOCRType{ar.IOCRInput, ar.IOCRMCProvider} {
		for _, c := range owner.IOCRsOfType(t) {
			if inst, ok := c.PPM().(*Instance); ok {
				fn(inst)
			}
		}
	}
}
