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
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/profinet-go/pnet-rt/pnet/diag"
	"github.com/profinet-go/pnet-rt/pnet/protocol"
	"github.com/profinet-go/pnet-rt/pnet/timer"
)

// lldpHeaderLen is dst MAC(6) + src MAC(6) + EtherType(2). LLDP frames in
// this stack are never VLAN-tagged.
const lldpHeaderLen = 14

// Engine is the process-wide LLDP adjunct: periodic broadcast, receive
// parsing, and the single peer record with its TTL timer.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	deps Deps
	ars  ARProvider

	newTimer func(name string) timer.Timer

	Peer *Peer

	broadcastTimer timer.Timer
}

// New constructs an Engine against the given configuration and
// collaborators. newTimer builds a fresh Timer for the broadcast loop and
// for the peer's TTL expiry timer.
func New(cfg Config, deps Deps, ars ARProvider, newTimer func(name string) timer.Timer) *Engine {
	return &Engine{
		cfg:      cfg,
		deps:     deps,
		ars:      ars,
		newTimer: newTimer,
		Peer:     &Peer{},
	}
}

// SetConfig swaps the active configuration, e.g. when the suppression flag
// or station identity changes.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

func (e *Engine) config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Send builds and transmits one LLDP frame. A no-op, returning nil, when
// the configuration boundary suppresses LLDP transmission.
func (e *Engine) Send() error {
	cfg := e.config()
	if cfg.NotSendLLDPFrames {
		return nil
	}

	const maxFrame = 256
	var buf []byte
	if e.deps.Alloc != nil {
		buf = e.deps.Alloc.Alloc(maxFrame)
	} else {
		buf = make([]byte, maxFrame)
	}

	w := protocol.NewWriter(buf)
	if err := w.PutMAC(protocol.LLDPMulticastMAC); err != nil {
		return err
	}
	if err := w.PutMAC(cfg.DeviceMAC); err != nil {
		return err
	}
	if err := w.PutU16(protocol.EtherTypeLLDP); err != nil {
		return err
	}

	if err := protocol.WriteChassisID(w, cfg.ChassisID, cfg.DeviceMAC); err != nil {
		return err
	}
	if err := protocol.WritePortID(w, cfg.PortID); err != nil {
		return err
	}
	if err := protocol.WriteTTL(w, cfg.TTL); err != nil {
		return err
	}
	if err := protocol.WritePortStatus(w, cfg.RTClass2PortStatus, cfg.RTClass3PortStatus); err != nil {
		return err
	}
	if err := protocol.WriteChassisMAC(w, cfg.DeviceMAC); err != nil {
		return err
	}
	if err := protocol.WriteMACPhyConfig(w, cfg.MACPhyCapAneg, cfg.MACPhyCapPHY, cfg.MACPhyMAUType); err != nil {
		return err
	}
	if e.deps.Addr != nil {
		if ipRaw, err := e.deps.Addr.GetIPAddr(e.deps.NetID); err == nil && ipRaw != 0 {
			ip := net.IPv4(byte(ipRaw>>24), byte(ipRaw>>16), byte(ipRaw>>8), byte(ipRaw))
			if err := protocol.WriteManagementAddress(w, ip); err != nil {
				return err
			}
		}
	}
	if err := protocol.WriteEnd(w); err != nil {
		return err
	}

	frame := w.Bytes()
	if e.deps.Sender != nil {
		if _, err := e.deps.Sender.LLDPSend(e.deps.EthHandle, frame); err != nil {
			return err
		}
	}
	if e.deps.Alloc != nil {
		e.deps.Alloc.Free(buf)
	}
	return nil
}

// StartBroadcast arms the periodic broadcast timer at period (typically
// BroadcastRate). Each firing sends a frame and re-arms unless the
// configuration boundary suppresses LLDP, in which case the timer
// self-cancels instead of rearming.
func (e *Engine) StartBroadcast(period time.Duration) {
	e.mu.Lock()
	if e.broadcastTimer == nil {
		e.broadcastTimer = e.newTimer("lldp.broadcast")
	}
	tmr := e.broadcastTimer
	e.mu.Unlock()

	var tick func()
	tick = func() {
		_ = e.Send()
		if e.config().NotSendLLDPFrames {
			return
		}
		_ = tmr.Start(period, tick)
	}
	_ = tmr.Start(period, tick)
}

// StopBroadcast disarms the periodic broadcast timer.
func (e *Engine) StopBroadcast() {
	e.mu.Lock()
	tmr := e.broadcastTimer
	e.mu.Unlock()
	if tmr != nil {
		tmr.Stop()
	}
}

// Recv walks the TLVs of a received LLDP frame (payload starting after the
// 14-byte Ethernet header) and updates the peer record. A changed alias
// triggers the remote-mismatch alarm path.
func (e *Engine) Recv(frame []byte, startOffset int) error {
	if len(frame) < startOffset {
		return nil
	}
	decoded, err := protocol.ReadTLVs(frame[startOffset:])
	if err != nil {
		return err
	}

	e.Peer.mu.Lock()
	e.Peer.ChassisID = decoded.ChassisID
	e.Peer.PortID = decoded.PortID
	if decoded.HasPortStatus {
		e.Peer.PortStatus = [2]uint16{decoded.PortStatusRT2, decoded.PortStatusRT3}
	}
	if decoded.ChassisMAC != nil {
		e.Peer.MACAddr = decoded.ChassisMAC
	}
	if decoded.HasMACPhy {
		e.Peer.MACPhyConfig = [3]uint16{uint16(decoded.MACPhyCapAneg), decoded.MACPhyCapPHY, decoded.MACPhyMAUType}
	}
	if decoded.HasAssetID {
		e.Peer.AssetID = decoded.AssetID
	}
	e.Peer.mu.Unlock()

	if decoded.HasAssetID {
		log.Debugf("lldp: peer %s advertised asset id %q", string(decoded.ChassisID), string(decoded.AssetID))
	} else {
		log.Debugf("lldp: peer %s did not advertise an asset id TLV", string(decoded.ChassisID))
	}

	if decoded.PortID != nil {
		alias := Alias(string(decoded.PortID), string(decoded.ChassisID))
		if e.Peer.SetTemporaryAlias(alias) {
			RemoteMismatch(e.ars, e.deviceConfig(), e.deps.Store, e.deps.Alarm, e.Peer)
		}
	}

	if decoded.HasTTL {
		e.Peer.ArmTimer(func() timer.Timer { return e.newTimer("lldp.peer_ttl") }, decoded.TTL, e.onPeerExpired)
	}

	return nil
}

func (e *Engine) onPeerExpired() {
	NoPeerDetected(e.ars, e.deviceConfig(), e.deps.Subslot, e.deps.Store, e.deps.Alarm)
}

// deviceConfig resolves the DAP slot / port-0 subslot pair the alarm paths
// address, via the wired diag.ConfigProvider. Falls back to the
// conventional DAP slot 0 / port-0 subslot 1 pair when no provider is
// wired, so this core's own tests can drive the alarm paths without a
// full device configuration store.
func (e *Engine) deviceConfig() diag.DeviceConfig {
	cfg := e.config()
	if e.deps.DevConfig != nil {
		if dc, err := e.deps.DevConfig.GetConfig(e.deps.NetID); err == nil {
			return *dc
		}
	}
	return diag.DeviceConfig{
		DAPSlot:      0,
		Port0Subslot: 1,
		StationName:  cfg.ChassisID,
		ChassisMAC:   cfg.DeviceMAC,
	}
}
