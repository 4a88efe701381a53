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
Package lldp implements the PROFINET neighborhood discovery adjunct: a
periodic TLV broadcaster and a single-port peer database with TTL-driven
expiry that raises diagnostic alarms on peer mismatch or loss.
*/
package lldp

import (
	"net"
	"time"

	"github.com/profinet-go/pnet-rt/pnet/diag"
)

// BroadcastRate is the default period of the periodic LLDP broadcast
// timer.
const BroadcastRate = 5 * time.Second

// Config is the local station's advertised LLDP configuration.
type Config struct {
	ChassisID string // empty means "use device MAC"
	PortID    string
	TTL       uint16 // seconds

	RTClass2PortStatus uint16
	RTClass3PortStatus uint16

	MACPhyCapAneg uint8
	MACPhyCapPHY  uint16
	MACPhyMAUType uint16

	DeviceMAC net.HardwareAddr

	// NotSendLLDPFrames suppresses the broadcast timer's next firing.
	NotSendLLDPFrames bool
}

// Deps bundles the collaborators the engine is driven against.
type Deps struct {
	Sender    diag.EthernetSender
	Alloc     diag.BufferAllocator
	Addr      diag.AddressProvider
	Subslot   diag.SubslotLookup
	Store     diag.Store
	Alarm     diag.AlarmSender
	DevConfig diag.ConfigProvider
	NetID     uint32
	EthHandle int
}
