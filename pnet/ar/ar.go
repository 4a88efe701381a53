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
Package ar models the application relation and communication relation
records that PPM operates against. The connection manager that owns these
records in a full device stack is out of scope here; this package gives it
enough shape (IOCR list, classified error fields, the API diff log) for the
PPM engine to be driven and tested without that larger stack.
*/
package ar

import (
	"net"
	"sync"
)

// IOCRType is the communication-relation type. PPM only drives Input and
// MCProvider IOCRs; Output and MCConsumer exist for completeness of the
// data model but are not acted on by this core.
type IOCRType uint8

const (
	IOCRInput IOCRType = iota
	IOCROutput
	IOCRMCProvider
	IOCRMCConsumer
)

// ErrClass and ErrCode are the classified protocol-fault taxonomy this core
// writes into an AR on violation, per the error handling design.
type ErrClass string

const (
	ErrClassPPM ErrClass = "PPM"
)

type ErrCode string

const (
	ErrCodeInvalidState ErrCode = "INVALID_STATE"
	ErrCodeInvalid      ErrCode = "INVALID"
)

// ClassifiedError is the (err_cls, err_code) pair an AR carries after a
// protocol violation. The zero value means no fault is recorded.
type ClassifiedError struct {
	Class ErrClass
	Code  ErrCode
}

// IsSet reports whether a fault has been classified.
func (c ClassifiedError) IsSet() bool { return c.Class != "" }

// APIDiff records one discrepancy surfaced while reconciling expected and
// observed submodules for an API, slot and subslot, e.g. the module a port
// was expected to carry but whose peer failed to answer.
type APIDiff struct {
	API            uint32
	Slot           uint16
	Subslot        uint16
	ModuleIdent    uint32
	SubmoduleIdent uint32
	Fault          bool
}

// IOCR is a single communication relation, owning at most one embedded PPM
// record (installed by the ppm package via SetPPM/PPM once the instance is
// constructed).
type IOCR struct {
	Type            IOCRType
	FrameID         uint16
	CSDULength      int
	SendClockFactor int
	ReductionRatio  int
	VID             uint16
	Priority        uint8
	InitiatorMAC    net.HardwareAddr // destination
	ResponderMAC    net.HardwareAddr // source

	mu  sync.Mutex
	ppm interface{}
}

// SetPPM installs the opaque per-IOCR PPM record. Declared as interface{}
// to avoid an import cycle between ar and ppm; the ppm package type-asserts
// on read.
func (c *IOCR) SetPPM(v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ppm = v
}

// PPM returns the previously installed PPM record, or nil if none.
func (c *IOCR) PPM() interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ppm
}

// AR is a connection: an ordered set of IOCRs plus the classified error
// fields PPM writes on protocol violation.
type AR struct {
	ID    uint32
	NetID uint32
	IOCRs []*IOCR
	InUse bool

	mu        sync.Mutex
	lastError ClassifiedError
	apiDiffs  []APIDiff
}

// New constructs an AR with the given IOCRs, initially not in use.
func New(id, netID uint32, iocrs []*IOCR) *AR {
	return &AR{ID: id, NetID: netID, IOCRs: iocrs}
}

// SetError records a classified protocol fault.
func (a *AR) SetError(class ErrClass, code ErrCode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = ClassifiedError{Class: class, Code: code}
}

// LastError returns the most recently recorded classified fault.
func (a *AR) LastError() ClassifiedError {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastError
}

// RecordAPIDiff appends a diff entry to the AR's append-only diff log. The
// log is never compacted or rewritten in place: each reconciliation pass
// that finds a discrepancy adds a new entry, so the diagnostic history for
// a connection survives repeated peer-loss/peer-recovery cycles.
func (a *AR) RecordAPIDiff(d APIDiff) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apiDiffs = append(a.apiDiffs, d)
}

// APIDiffs returns a copy of the recorded diff log.
func (a *AR) APIDiffs() []APIDiff {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]APIDiff, len(a.apiDiffs))
	copy(out, a.apiDiffs)
	return out
}

// IOCRsOfType returns the subset of an AR's IOCRs matching t, in order.
func (a *AR) IOCRsOfType(t IOCRType) []*IOCR {
	var out []*IOCR
	for _, c := range a.IOCRs {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
