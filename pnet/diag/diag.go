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
Package diag declares the small, single-purpose collaborator interfaces that
the PPM and LLDP engines depend on but do not implement themselves:
diagnostic record storage, alarm delivery, connection-manager notification,
and address/configuration lookups. Keeping these as narrow interfaces lets
the engines be driven in tests without a real device stack, the same way
drain.Drain isolates packet delivery from its transport in the reference
server.
*/
package diag

import "net"

// ChannelErrorType is the PROFINET channel diagnosis error type.
type ChannelErrorType uint16

// ExtendedErrorType qualifies a ChannelErrorType with a more specific cause.
type ExtendedErrorType uint16

// Diagnosis transition states a diagnostic item reports.
type Transition uint8

const (
	// TransitionAppears marks a fault as newly present.
	TransitionAppears Transition = iota
	// TransitionDisappears marks a previously reported fault as cleared.
	TransitionDisappears
)

// Diagnostic channel/extended error types this stack emits.
const (
	ChannelErrorRemoteMismatch ChannelErrorType = 0x00A0

	ExtendedErrorPortIDMismatch ExtendedErrorType = 0x0001
	ExtendedErrorNoPeerDetected ExtendedErrorType = 0x0002
)

// USI is the user structure identifier discriminating a diagnosis payload.
const USIExtendedChannelDiagnosis uint16 = 0x8000

// Item is a single diagnostic record keyed by (API, slot, subslot) plus the
// channel/extended error pair, matching the fields the connection manager's
// diagnostic store indexes on.
type Item struct {
	API           uint32
	Slot          uint16
	Subslot       uint16
	USI           uint16
	ChannelError  ChannelErrorType
	ExtendedError ExtendedErrorType
	Transition    Transition
	ChannelBit    bool
	SubmoduleBit  bool
	ARBit         bool
}

// Store is the diagnostic record collaborator: update-or-add semantics,
// where Update returns an error when no prior record exists for the item's
// key and the caller must fall back to Add.
type Store interface {
	Update(ar uint32, item Item) error
	Add(ar uint32, item Item) error
}

// AlarmSender delivers the port-change notification raised after every
// diagnostic update, regardless of whether it resulted from Update or Add.
type AlarmSender interface {
	SendPortChangeNotification(ar uint32, item Item) error
}

// ConnectionManager receives classified PPM/INVALID runtime failures for
// the owning AR (PPM/INVALID_STATE is only written onto the AR), plus the
// one-time success indication PPM raises after an instance's first cyclic
// frame goes out cleanly.
type ConnectionManager interface {
	PPMErrorInd(net uint32, ar uint32, class string, code uint32)
	StateInd(net uint32, ar uint32, noError bool)
}

// AddressProvider resolves the device's own IPv4 address, grounding the
// management-address TLV and any future address-dependent behavior.
type AddressProvider interface {
	GetIPAddr(net uint32) (uint32, error)
}

// SubslotLookup resolves a (net, api, slot, subslot) tuple to an active
// subslot handle, used to find the expected peer submodule for a given
// physical port.
type SubslotLookup interface {
	GetSubslotFull(net uint32, api uint32, slot, subslot uint16) (SubslotRef, bool)
}

// SubslotRef is the opaque identity of a resolved subslot, carrying only
// the fields diagnostic construction needs.
type SubslotRef struct {
	ModuleIdent    uint32
	SubmoduleIdent uint32
}

// DeviceConfig is the subset of static device configuration the PPM/LLDP
// engines read: the DAP slot number, interface-1 port-0 subslot number,
// station name, and chassis MAC.
type DeviceConfig struct {
	DAPSlot      uint16
	Port0Subslot uint16
	StationName  string
	ChassisMAC   net.HardwareAddr
}

// ConfigProvider resolves the active device configuration for a net
// instance.
type ConfigProvider interface {
	GetConfig(net uint32) (*DeviceConfig, error)
}

// EthernetSender hands a fully-framed buffer to the raw Ethernet driver.
// A non-positive return value indicates failure; the driver is treated as
// authoritative and synchronous by both PPM and LLDP.
type EthernetSender interface {
	Send(handle int, buf []byte) (int, error)
	LLDPSend(handle int, buf []byte) (int, error)
}

// BufferAllocator hands out and reclaims the fixed-size byte buffers PPM
// and LLDP frame construction write into.
type BufferAllocator interface {
	Alloc(size int) []byte
	Free(buf []byte)
}
