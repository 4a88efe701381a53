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

package protocol

import (
	"fmt"
	"net"
)

// TLVType is the 7-bit type field of an LLDP TLV header.
type TLVType uint8

// LLDP TLV types used by this stack (IEEE 802.1AB Table 8).
const (
	TLVEnd         TLVType = 0
	TLVChassisID   TLVType = 1
	TLVPortID      TLVType = 2
	TLVTTL         TLVType = 3
	TLVManagement  TLVType = 8
	TLVOrgSpecific TLVType = 127
)

// OUI is a 3-byte organisationally unique identifier prefixing an
// organisation-specific TLV.
type OUI [3]byte

// OUIProfinet and OUIIEEE8023 are the two organisation-specific TLV
// namespaces this stack emits.
var (
	OUIProfinet = OUI{0x00, 0x0E, 0xCF}
	OUIIEEE8023 = OUI{0x00, 0x12, 0x0F}
)

// Chassis ID / Port ID subtypes (IEEE 802.1AB Table 9/10).
const (
	ChassisIDSubtypeMAC   uint8 = 4
	ChassisIDSubtypeLocal uint8 = 7
	PortIDSubtypeLocal    uint8 = 7
)

// PROFINET organisation-specific TLV subtypes.
const (
	ProfinetSubtypePortStatus uint8 = 2
	ProfinetSubtypeChassisMAC uint8 = 5
)

// IEEE 802.3 organisation-specific TLV subtypes.
const (
	IEEESubtypeMACPhyConfig uint8 = 1
)

// OUITIA is the TIA (LLDP-MED) organisation-specific TLV namespace, used
// here only for the inventory Asset ID subtype.
var OUITIA = OUI{0x00, 0x12, 0xBB}

// TIASubtypeInventoryAssetID is the LLDP-MED inventory management Asset ID
// subtype, carried here as an optional peer identity hint: present on
// LLDP-MED capable peers, absent on plain PROFINET ones.
const TIASubtypeInventoryAssetID uint8 = 3

// writeTLVHeader writes the packed 16-bit TLV header: high 7 bits type,
// low 9 bits length.
func writeTLVHeader(w *Writer, t TLVType, length int) error {
	if length < 0 || length > 0x1FF {
		return fmt.Errorf("protocol: TLV length %d out of range", length)
	}
	head := uint16(t)<<9 | uint16(length&0x1FF)
	return w.PutU16(head)
}

func readTLVHeader(r *Reader) (TLVType, int, error) {
	head, err := r.GetU16()
	if err != nil {
		return 0, 0, err
	}
	return TLVType(head >> 9), int(head & 0x1FF), nil
}

// WriteChassisID writes the mandatory Chassis ID TLV. If name is empty, the
// device MAC is encoded with subtype 4 (MAC address); otherwise name is
// encoded with subtype 7 (locally assigned).
func WriteChassisID(w *Writer, name string, deviceMAC net.HardwareAddr) error {
	if name == "" {
		if err := writeTLVHeader(w, TLVChassisID, 1+6); err != nil {
			return err
		}
		if err := w.PutU8(ChassisIDSubtypeMAC); err != nil {
			return err
		}
		return w.PutMAC(deviceMAC)
	}
	if err := writeTLVHeader(w, TLVChassisID, 1+len(name)); err != nil {
		return err
	}
	if err := w.PutU8(ChassisIDSubtypeLocal); err != nil {
		return err
	}
	return w.PutBytes([]byte(name))
}

// WritePortID writes the mandatory Port ID TLV, always subtype 7 (locally
// assigned).
func WritePortID(w *Writer, portID string) error {
	if err := writeTLVHeader(w, TLVPortID, 1+len(portID)); err != nil {
		return err
	}
	if err := w.PutU8(PortIDSubtypeLocal); err != nil {
		return err
	}
	return w.PutBytes([]byte(portID))
}

// WriteTTL writes the mandatory TTL TLV.
func WriteTTL(w *Writer, ttl uint16) error {
	if err := writeTLVHeader(w, TLVTTL, 2); err != nil {
		return err
	}
	return w.PutU16(ttl)
}

// WriteOrgSpecific writes an organisation-specific TLV header (type 127,
// declared length = len(payload)+3 for the OUI and 1 for the subtype) plus
// the OUI, subtype byte, and payload.
func WriteOrgSpecific(w *Writer, oui OUI, subtype uint8, payload []byte) error {
	if err := writeTLVHeader(w, TLVOrgSpecific, len(payload)+3+1); err != nil {
		return err
	}
	if err := w.PutBytes(oui[:]); err != nil {
		return err
	}
	if err := w.PutU8(subtype); err != nil {
		return err
	}
	return w.PutBytes(payload)
}

// WritePortStatus writes the PROFINET port-status organisation-specific
// TLV (RTClass2 and RTClass3 port status, each a big-endian uint16).
func WritePortStatus(w *Writer, rtClass2, rtClass3 uint16) error {
	payload := make([]byte, 4)
	payload[0] = byte(rtClass2 >> 8)
	payload[1] = byte(rtClass2)
	payload[2] = byte(rtClass3 >> 8)
	payload[3] = byte(rtClass3)
	return WriteOrgSpecific(w, OUIProfinet, ProfinetSubtypePortStatus, payload)
}

// WriteChassisMAC writes the PROFINET chassis-MAC organisation-specific TLV.
func WriteChassisMAC(w *Writer, mac net.HardwareAddr) error {
	if len(mac) != 6 {
		return fmt.Errorf("protocol: chassis MAC must be 6 bytes")
	}
	return WriteOrgSpecific(w, OUIProfinet, ProfinetSubtypeChassisMAC, mac)
}

// WriteMACPhyConfig writes the IEEE 802.3 MAC/PHY configuration/status
// organisation-specific TLV.
func WriteMACPhyConfig(w *Writer, capAneg uint8, capPHY, mauType uint16) error {
	payload := make([]byte, 5)
	payload[0] = capAneg
	payload[1] = byte(capPHY >> 8)
	payload[2] = byte(capPHY)
	payload[3] = byte(mauType >> 8)
	payload[4] = byte(mauType)
	return WriteOrgSpecific(w, OUIIEEE8023, IEEESubtypeMACPhyConfig, payload)
}

// WriteAssetID writes the optional LLDP-MED inventory Asset ID
// organisation-specific TLV. Not part of this stack's own advertised
// frame; provided so peers and tests can exercise the reader side.
func WriteAssetID(w *Writer, assetID string) error {
	return WriteOrgSpecific(w, OUITIA, TIASubtypeInventoryAssetID, []byte(assetID))
}

// WriteManagementAddress writes the Management Address TLV carrying an
// IPv4 address, matching spec.md §4.1 exactly (address string length
// fixed at 5, address subtype 1, interface subtype 1, interface number 0,
// zero-length OID).
func WriteManagementAddress(w *Writer, ip net.IP) error {
	ip4 := ip.To4()
	if ip4 == nil {
		return fmt.Errorf("protocol: management address requires an IPv4 address")
	}
	// value = addrStrLen(1) + addrSubtype(1) + addr(4) + ifSubtype(1) + ifNum(4) + oidLen(1)
	if err := writeTLVHeader(w, TLVManagement, 1+5+1+4+1); err != nil {
		return err
	}
	if err := w.PutU8(5); err != nil { // address string length: subtype + 4 bytes
		return err
	}
	if err := w.PutU8(1); err != nil { // address subtype: IPv4
		return err
	}
	if err := w.PutBytes(ip4); err != nil {
		return err
	}
	if err := w.PutU8(1); err != nil { // interface subtype
		return err
	}
	if err := w.PutU32(0); err != nil { // interface number
		return err
	}
	return w.PutU8(0) // OID length
}

// WriteEnd writes the end-of-LLDPDU TLV (type 0, length 0).
func WriteEnd(w *Writer) error {
	return writeTLVHeader(w, TLVEnd, 0)
}

// DecodedTLVs is the result of walking an LLDP payload: the fields this
// stack cares about, plus a running set of unknown-but-skipped TLV types
// for diagnostics.
type DecodedTLVs struct {
	ChassisIDSubtype uint8
	ChassisID        []byte
	PortIDSubtype    uint8
	PortID           []byte
	TTL              uint16
	HasTTL           bool
	PortStatusRT2    uint16
	PortStatusRT3    uint16
	HasPortStatus    bool
	ChassisMAC       net.HardwareAddr
	MACPhyCapAneg    uint8
	MACPhyCapPHY     uint16
	MACPhyMAUType    uint16
	HasMACPhy        bool
	AssetID          []byte
	HasAssetID       bool
	Skipped          []TLVType
}

// ReadTLVs walks an LLDP payload until the end TLV (or the buffer is
// exhausted) and decodes the fields this stack understands. Unknown TLVs,
// including unrecognized organisation-specific subtypes, are skipped.
func ReadTLVs(b []byte) (DecodedTLVs, error) {
	var out DecodedTLVs
	r := NewReader(b)
	for r.Remaining() >= 2 {
		start := r.Pos()
		t, length, err := readTLVHeader(r)
		if err != nil {
			return out, err
		}
		if t == TLVEnd {
			return out, nil
		}
		if r.Remaining() < length {
			return out, fmt.Errorf("protocol: TLV type %d declares length %d but only %d bytes remain", t, length, r.Remaining())
		}
		body, err := r.GetBytes(length)
		if err != nil {
			return out, err
		}
		switch t {
		case TLVChassisID:
			if len(body) < 1 {
				return out, fmt.Errorf("protocol: chassis ID TLV too short")
			}
			out.ChassisIDSubtype = body[0]
			out.ChassisID = body[1:]
		case TLVPortID:
			if len(body) < 1 {
				return out, fmt.Errorf("protocol: port ID TLV too short")
			}
			out.PortIDSubtype = body[0]
			out.PortID = body[1:]
		case TLVTTL:
			// TTL is a two-byte big-endian field on the wire. Reading fewer
			// bits here would silently truncate the peer's advertised TTL.
			if len(body) < 2 {
				return out, fmt.Errorf("protocol: TTL TLV too short")
			}
			out.TTL = uint16(body[0])<<8 | uint16(body[1])
			out.HasTTL = true
		case TLVOrgSpecific:
			if len(body) < 4 {
				out.Skipped = append(out.Skipped, t)
				continue
			}
			oui := OUI{body[0], body[1], body[2]}
			subtype := body[3]
			payload := body[4:]
			switch {
			case oui == OUIProfinet && subtype == ProfinetSubtypePortStatus && len(payload) >= 4:
				out.PortStatusRT2 = uint16(payload[0])<<8 | uint16(payload[1])
				out.PortStatusRT3 = uint16(payload[2])<<8 | uint16(payload[3])
				out.HasPortStatus = true
			case oui == OUIProfinet && subtype == ProfinetSubtypeChassisMAC && len(payload) >= 6:
				out.ChassisMAC = net.HardwareAddr(append([]byte{}, payload[:6]...))
			case oui == OUITIA && subtype == TIASubtypeInventoryAssetID:
				out.AssetID = append([]byte{}, payload...)
				out.HasAssetID = true
			case oui == OUIIEEE8023 && subtype == IEEESubtypeMACPhyConfig && len(payload) >= 5:
				out.MACPhyCapAneg = payload[0]
				out.MACPhyCapPHY = uint16(payload[1])<<8 | uint16(payload[2])
				out.MACPhyMAUType = uint16(payload[3])<<8 | uint16(payload[4])
				out.HasMACPhy = true
			default:
				out.Skipped = append(out.Skipped, t)
			}
		default:
			out.Skipped = append(out.Skipped, t)
		}
		_ = start
	}
	return out, nil
}

// Alias derives the LLDP peer alias per spec.md §3: if portID contains a
// '.', the alias is the port ID verbatim; otherwise it is
// "portID.chassisID".
func Alias(portID, chassisID string) string {
	for i := 0; i < len(portID); i++ {
		if portID[i] == '.' {
			return portID
		}
	}
	return portID + "." + chassisID
}
