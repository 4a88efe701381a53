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
	"fmt"
	"sync"
	"time"

	"github.com/profinet-go/pnet-rt/pnet/ar"
	"github.com/profinet-go/pnet-rt/pnet/protocol"
	"github.com/profinet-go/pnet-rt/pnet/timer"
)

// State is the PPM lifecycle state.
type State uint8

const (
	StateWaitStart State = iota
	StateRun
)

// data_status bit positions.
const (
	bitState            = 0
	bitRedundancy       = 1
	bitDataValid        = 2
	bitProviderState    = 4
	bitProblemIndicator = 5
)

const initialDataStatus = 1<<bitState | 1<<bitDataValid | 1<<bitProviderState | 1<<bitProblemIndicator

// Instance is one connection's Provider Protocol Machine record: buffer
// layout, state, and the cyclic send timer.
type Instance struct {
	engine *Engine
	ar     *ar.AR
	iocr   *ar.IOCR
	io     []*IOData

	mu sync.Mutex

	state State

	sendBuffer []byte
	bufferData []byte

	bufferPos            int
	cycleCounterOffset   int
	dataStatusOffset     int
	transferStatusOffset int
	bufferLength         int

	dataStatus     uint8
	transferStatus uint8
	cycle          uint16

	controlInterval            time.Duration
	compensatedControlInterval time.Duration

	firstTransmit bool
	ciRunning     bool
	tmr           timer.Timer
}

// Activate transitions the instance WAIT_START -> RUN: it lays out the
// send buffer, writes the fixed header once, and arms the first cyclic
// send.
func (inst *Instance) Activate() error {
	inst.mu.Lock()
	if inst.state != StateWaitStart {
		inst.mu.Unlock()
		inst.ar.SetError(ar.ErrClassPPM, ar.ErrCodeInvalidState)
		return ErrInvalidState
	}

	c := inst.iocr
	bufLen := protocol.PPMBufferLength(c.CSDULength)
	if bufLen > protocol.PFFrameBufferSize {
		inst.mu.Unlock()
		return fmt.Errorf("ppm: frame length %d exceeds the %d-byte frame cap", bufLen, protocol.PFFrameBufferSize)
	}
	var buf []byte
	if inst.engine.cfg.Alloc != nil {
		buf = inst.engine.cfg.Alloc.Alloc(bufLen)
	} else {
		buf = make([]byte, bufLen)
	}

	inst.bufferPos = protocol.PPMHeaderSize
	inst.cycleCounterOffset = inst.bufferPos + c.CSDULength
	inst.dataStatusOffset = inst.cycleCounterOffset + 2
	inst.transferStatusOffset = inst.dataStatusOffset + 1
	inst.bufferLength = inst.transferStatusOffset + 1

	w := protocol.NewWriter(buf)
	hdr := protocol.EthHeader{
		Dst:       c.InitiatorMAC,
		Src:       c.ResponderMAC,
		VLAN:      protocol.VLANTag{Priority: c.Priority, VID: c.VID},
		EtherType: protocol.EtherTypePROFINET,
	}
	if err := hdr.WriteTo(w); err != nil {
		inst.mu.Unlock()
		return fmt.Errorf("ppm: writing frame header: %w", err)
	}
	if err := w.PutU16(c.FrameID); err != nil {
		inst.mu.Unlock()
		return fmt.Errorf("ppm: writing frame id: %w", err)
	}

	inst.sendBuffer = buf
	inst.bufferData = make([]byte, c.CSDULength)
	inst.dataStatus = initialDataStatus
	inst.transferStatus = 0

	scf, rr := c.SendClockFactor, c.ReductionRatio
	inst.controlInterval = time.Duration(scf*rr*1000/32) * time.Microsecond
	inst.compensatedControlInterval = timer.CompensatedDelay(inst.controlInterval, inst.engine.cfg.StackCycle, inst.engine.cfg.Cooperative)

	inst.state = StateRun
	inst.ciRunning = true
	inst.engine.instanceCreated()

	name := fmt.Sprintf("ppm.%04x", c.FrameID)
	inst.tmr = inst.engine.cfg.newTimer(name)
	err := inst.tmr.Start(inst.compensatedControlInterval, inst.onTick)
	inst.mu.Unlock()

	if err != nil {
		inst.mu.Lock()
		inst.ciRunning = false
		inst.tmr = nil
		inst.mu.Unlock()
		inst.ar.SetError(ar.ErrClassPPM, ar.ErrCodeInvalid)
		if inst.engine.cfg.CM != nil {
			inst.engine.cfg.CM.PPMErrorInd(inst.ar.NetID, inst.ar.ID, string(ar.ErrClassPPM), uint32(0))
		}
		return ErrTimerArmFailed
	}
	return nil
}

// Close transitions RUN -> WAIT_START: stops the timer, frees the buffer,
// and resets data_status to zero.
func (inst *Instance) Close() {
	inst.mu.Lock()
	inst.ciRunning = false
	tmr := inst.tmr
	buf := inst.sendBuffer
	inst.tmr = nil
	inst.sendBuffer = nil
	inst.state = StateWaitStart
	inst.dataStatus = 0
	inst.mu.Unlock()

	if tmr != nil {
		tmr.Stop()
	}
	if buf != nil && inst.engine.cfg.Alloc != nil {
		inst.engine.cfg.Alloc.Free(buf)
	}
	inst.engine.instanceDestroyed()
}

// SetDataAndIOPS copies data and iops into the staging buffer for the
// submodule at (api, slot, subslot).
func (inst *Instance) SetDataAndIOPS(api uint32, slot, subslot uint16, data, iops []byte) error {
	d := find(inst.io, api, slot, subslot)
	if d == nil {
		return ErrNotFound
	}

	inst.mu.Lock()
	state := inst.state
	inst.mu.Unlock()
	if state != StateRun {
		inst.ar.SetError(ar.ErrClassPPM, ar.ErrCodeInvalidState)
		return ErrInvalidState
	}
	if len(data) != d.DataLength || len(iops) != d.IOPSLength {
		return ErrLengthMismatch
	}

	inst.engine.lockBuf()
	copy(inst.bufferData[d.DataOffset:d.DataOffset+d.DataLength], data)
	copy(inst.bufferData[d.IOPSOffset:d.IOPSOffset+d.IOPSLength], iops)
	inst.engine.unlockBuf()
	d.DataAvail = true
	return nil
}

// SetIOCS copies iocs into the staging buffer. A zero-length iocs is a
// documented no-op success.
func (inst *Instance) SetIOCS(api uint32, slot, subslot uint16, iocs []byte) error {
	d := find(inst.io, api, slot, subslot)
	if d == nil {
		return ErrNotFound
	}
	if d.IOCSLength == 0 {
		return nil
	}

	inst.mu.Lock()
	state := inst.state
	inst.mu.Unlock()
	if state != StateRun {
		inst.ar.SetError(ar.ErrClassPPM, ar.ErrCodeInvalidState)
		return ErrInvalidState
	}
	if len(iocs) != d.IOCSLength {
		return ErrLengthMismatch
	}

	inst.engine.lockBuf()
	copy(inst.bufferData[d.IOCSOffset:d.IOCSOffset+d.IOCSLength], iocs)
	inst.engine.unlockBuf()
	return nil
}

// GetDataAndIOPS reads the submodule's current data and iops into
// caller-supplied buffers.
func (inst *Instance) GetDataAndIOPS(api uint32, slot, subslot uint16, data, iops []byte) error {
	d := find(inst.io, api, slot, subslot)
	if d == nil {
		return ErrNotFound
	}
	inst.engine.lockBuf()
	copy(data, inst.bufferData[d.DataOffset:d.DataOffset+d.DataLength])
	copy(iops, inst.bufferData[d.IOPSOffset:d.IOPSOffset+d.IOPSLength])
	inst.engine.unlockBuf()
	return nil
}

// GetIOCS reads the submodule's current iocs into a caller-supplied
// buffer.
func (inst *Instance) GetIOCS(api uint32, slot, subslot uint16, iocs []byte) error {
	d := find(inst.io, api, slot, subslot)
	if d == nil {
		return ErrNotFound
	}
	inst.engine.lockBuf()
	copy(iocs, inst.bufferData[d.IOCSOffset:d.IOCSOffset+d.IOCSLength])
	inst.engine.unlockBuf()
	return nil
}

// GetDataStatus returns the current data_status byte.
func (inst *Instance) GetDataStatus() uint8 {
	inst.engine.lockBuf()
	defer inst.engine.unlockBuf()
	return inst.dataStatus
}

// State returns the current lifecycle state.
func (inst *Instance) State() State {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state
}

func (inst *Instance) setStatusBit(bit uint, set bool) {
	inst.engine.lockBuf()
	if set {
		inst.dataStatus |= 1 << bit
	} else {
		inst.dataStatus &^= 1 << bit
	}
	inst.engine.unlockBuf()
}

// onTick is the timer callback: copy staged payload, patch trailer fields,
// hand the buffer to the Ethernet driver, then re-arm.
func (inst *Instance) onTick() {
	inst.mu.Lock()
	if !inst.ciRunning {
		inst.mu.Unlock()
		return
	}
	inst.mu.Unlock()

	inst.engine.lockBuf()
	copy(inst.sendBuffer[inst.bufferPos:inst.bufferPos+len(inst.bufferData)], inst.bufferData)
	inst.engine.unlockBuf()

	nowUs := inst.engine.cfg.now()
	ratio := uint32(inst.iocr.SendClockFactor * inst.iocr.ReductionRatio)
	cycle := cycleCounter(nowUs, ratio)

	inst.mu.Lock()
	inst.cycle = cycle
	inst.sendBuffer[inst.cycleCounterOffset] = byte(cycle >> 8)
	inst.sendBuffer[inst.cycleCounterOffset+1] = byte(cycle)
	inst.sendBuffer[inst.dataStatusOffset] = inst.dataStatus
	inst.sendBuffer[inst.transferStatusOffset] = inst.transferStatus
	buf := inst.sendBuffer
	inst.mu.Unlock()

	trx, errcnt, errline := instanceCounters(inst.iocr.FrameID)

	var sendErr error
	bytesSent := 0
	if inst.engine.cfg.Sender != nil {
		bytesSent, sendErr = inst.engine.cfg.Sender.Send(inst.engine.cfg.EthHandle, buf)
	}

	if sendErr != nil || bytesSent <= 0 {
		inst.engine.Stats.Inc(CounterIfOutErrors, 1)
		inst.engine.Stats.Inc(errcnt, 1)
		inst.engine.Stats.Inc(errline, 1)
		if inst.engine.cfg.Cooperative {
			inst.failRun()
			return
		}
		// Preemptive path: retain the buffer and re-arm anyway.
		inst.rearm()
		return
	}

	inst.engine.Stats.Inc(CounterIfOutOctets, int64(bytesSent))
	inst.engine.Stats.Inc(trx, 1)
	inst.mu.Lock()
	firstTransmit := inst.firstTransmit
	inst.firstTransmit = true
	inst.mu.Unlock()
	if !firstTransmit && inst.engine.cfg.CM != nil {
		inst.engine.cfg.CM.StateInd(inst.ar.NetID, inst.ar.ID, true)
	}

	inst.rearm()
}

func (inst *Instance) rearm() {
	inst.mu.Lock()
	if !inst.ciRunning {
		inst.mu.Unlock()
		return
	}
	tmr := inst.tmr
	delay := inst.compensatedControlInterval
	inst.mu.Unlock()

	if err := tmr.Start(delay, inst.onTick); err != nil {
		_, errcnt, errline := instanceCounters(inst.iocr.FrameID)
		inst.engine.Stats.Inc(errcnt, 1)
		inst.engine.Stats.Inc(errline, 1)
		inst.failRun()
	}
}

// failRun implements the RUN-state failure semantics: classify
// PPM/INVALID, notify the connection manager, and halt cyclic
// transmission (ci_timer = SENTINEL).
func (inst *Instance) failRun() {
	inst.mu.Lock()
	inst.ciRunning = false
	inst.mu.Unlock()

	inst.ar.SetError(ar.ErrClassPPM, ar.ErrCodeInvalid)
	if inst.engine.cfg.CM != nil {
		inst.engine.cfg.CM.PPMErrorInd(inst.ar.NetID, inst.ar.ID, string(ar.ErrClassPPM), 0)
	}
}

// cycleCounter computes the phase-locked cycle value for nowUs
// microseconds of stack time, snapped to the ratio grid.
func cycleCounter(nowUs int64, ratio uint32) uint16 {
	raw := uint32(nowUs*4/125) //nolint:gosec // wraps like the wire field it feeds
	var cycle uint32
	if raw < ratio {
		cycle = ratio
	} else {
		cycle = raw - raw%ratio
	}
	return uint16(cycle)
}
