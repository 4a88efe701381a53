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

package lldp

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/profinet-go/pnet-rt/pnet/timer"
)

// Peer is the single-port peer record this device maintains for its
// neighbor, as decoded from received LLDP frames.
type Peer struct {
	mu sync.Mutex

	ChassisID    []byte
	PortID       []byte
	Delay        [4]uint32
	PortStatus   [2]uint16 // RTClass2, RTClass3
	MACAddr      net.HardwareAddr
	MACPhyConfig [3]uint16 // capAneg (low byte), capPHY, mauType
	TTL          uint16
	AssetID      []byte

	// alias is the temporary alias computed on the most recently decoded
	// Port ID TLV; permanentAlias is the one last accepted as matching.
	alias          string
	permanentAlias string

	peerTimer timer.Timer
}

// Alias derives the peer alias string: if portID contains a '.', the alias
// is the port ID verbatim; otherwise "portID.chassisID".
func Alias(portID, chassisID string) string {
	if strings.Contains(portID, ".") {
		return portID
	}
	return portID + "." + chassisID
}

// SetTemporaryAlias stores the alias computed from the most recent Port ID
// TLV and reports whether it differs from the one currently stored.
func (p *Peer) SetTemporaryAlias(alias string) (changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	changed = p.alias != alias
	p.alias = alias
	return changed
}

// TemporaryAlias returns the most recently decoded alias.
func (p *Peer) TemporaryAlias() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alias
}

// PermanentAlias returns the alias last accepted as a persisted match.
func (p *Peer) PermanentAlias() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permanentAlias
}

// AcceptAlias copies the temporary alias into the permanent slot, used
// when no AR was in use at mismatch time (the match is simply persisted).
func (p *Peer) AcceptAlias() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permanentAlias = p.alias
}

// Mismatched reports whether the temporary alias differs from the
// permanent one.
func (p *Peer) Mismatched() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alias != p.permanentAlias
}

// ArmTimer (re)arms the TTL expiry timer: on first call it creates the
// timer at ttl seconds; on subsequent calls it stops and restarts it with
// the new TTL.
func (p *Peer) ArmTimer(newTimer func() timer.Timer, ttl uint16, onExpire func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TTL = ttl
	if p.peerTimer == nil {
		p.peerTimer = newTimer()
	} else {
		p.peerTimer.Stop()
	}
	_ = p.peerTimer.Start(time.Duration(ttl)*time.Second, onExpire)
}

// StopTimer disarms the TTL timer, if any.
func (p *Peer) StopTimer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peerTimer != nil {
		p.peerTimer.Stop()
	}
}
