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
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTLVHeaderPacking(t *testing.T) {
	buf := make([]byte, 2)
	w := NewWriter(buf)
	require.NoError(t, writeTLVHeader(w, TLVPortID, 10))

	tp, length, err := readTLVHeader(NewReader(buf))
	require.NoError(t, err)
	require.Equal(t, TLVPortID, tp)
	require.Equal(t, 10, length)
}

func TestTLVHeaderRejectsOversizeLength(t *testing.T) {
	w := NewWriter(make([]byte, 2))
	require.Error(t, writeTLVHeader(w, TLVPortID, 0x200))
}

func TestChassisIDMACRoundTrip(t *testing.T) {
	mac, _ := net.ParseMAC("aa:bb:cc:dd:ee:ff")
	buf := make([]byte, 16)
	w := NewWriter(buf)
	require.NoError(t, WriteChassisID(w, "", mac))
	require.NoError(t, WriteEnd(w))

	got, err := ReadTLVs(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, ChassisIDSubtypeMAC, got.ChassisIDSubtype)
	require.Equal(t, []byte(mac), got.ChassisID)
}

func TestChassisIDLocalRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	w := NewWriter(buf)
	require.NoError(t, WriteChassisID(w, "plant.line1.device3", nil))
	require.NoError(t, WriteEnd(w))

	got, err := ReadTLVs(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, ChassisIDSubtypeLocal, got.ChassisIDSubtype)
	require.Equal(t, "plant.line1.device3", string(got.ChassisID))
}

func TestPortIDRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	w := NewWriter(buf)
	require.NoError(t, WritePortID(w, "port-001"))
	require.NoError(t, WriteEnd(w))

	got, err := ReadTLVs(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, PortIDSubtypeLocal, got.PortIDSubtype)
	require.Equal(t, "port-001", string(got.PortID))
}

func TestTTLRoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	w := NewWriter(buf)
	require.NoError(t, WriteTTL(w, 20))
	require.NoError(t, WriteEnd(w))

	got, err := ReadTLVs(w.Bytes())
	require.NoError(t, err)
	require.True(t, got.HasTTL)
	require.Equal(t, uint16(20), got.TTL)
}

func TestPortStatusRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	w := NewWriter(buf)
	require.NoError(t, WritePortStatus(w, 0x0001, 0x0002))
	require.NoError(t, WriteEnd(w))

	got, err := ReadTLVs(w.Bytes())
	require.NoError(t, err)
	require.True(t, got.HasPortStatus)
	require.Equal(t, uint16(1), got.PortStatusRT2)
	require.Equal(t, uint16(2), got.PortStatusRT3)
}

func TestChassisMACTLVRoundTrip(t *testing.T) {
	mac, _ := net.ParseMAC("11:22:33:44:55:66")
	buf := make([]byte, 32)
	w := NewWriter(buf)
	require.NoError(t, WriteChassisMAC(w, mac))
	require.NoError(t, WriteEnd(w))

	got, err := ReadTLVs(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, net.HardwareAddr(mac), got.ChassisMAC)
}

func TestMACPhyConfigRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	w := NewWriter(buf)
	require.NoError(t, WriteMACPhyConfig(w, 0x03, 0x8000, 0x0010))
	require.NoError(t, WriteEnd(w))

	got, err := ReadTLVs(w.Bytes())
	require.NoError(t, err)
	require.True(t, got.HasMACPhy)
	require.Equal(t, uint8(0x03), got.MACPhyCapAneg)
	require.Equal(t, uint16(0x8000), got.MACPhyCapPHY)
	require.Equal(t, uint16(0x0010), got.MACPhyMAUType)
}

func TestManagementAddressEncodesIPv4(t *testing.T) {
	buf := make([]byte, 32)
	w := NewWriter(buf)
	require.NoError(t, WriteManagementAddress(w, net.IPv4(192, 168, 1, 1)))
	require.NoError(t, WriteEnd(w))
	// Not decoded by ReadTLVs (management address isn't consumed on this
	// device's own peer table), but it must not corrupt the stream: the
	// end TLV directly following must still be found.
	r := NewReader(w.Bytes())
	tp, length, err := readTLVHeader(r)
	require.NoError(t, err)
	require.Equal(t, TLVManagement, tp)
	require.Equal(t, 12, length)

	_, err = r.GetBytes(length)
	require.NoError(t, err)
	tp, length, err = readTLVHeader(r)
	require.NoError(t, err)
	require.Equal(t, TLVEnd, tp)
	require.Equal(t, 0, length)
}

func TestManagementAddressRejectsIPv6(t *testing.T) {
	w := NewWriter(make([]byte, 32))
	require.Error(t, WriteManagementAddress(w, net.ParseIP("::1")))
}

func TestAssetIDRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	w := NewWriter(buf)
	require.NoError(t, WriteAssetID(w, "inv-42"))
	require.NoError(t, WriteEnd(w))

	got, err := ReadTLVs(w.Bytes())
	require.NoError(t, err)
	require.True(t, got.HasAssetID)
	require.Equal(t, "inv-42", string(got.AssetID))
}

func TestReadTLVsLeavesAssetIDAbsentWhenNotPresent(t *testing.T) {
	buf := make([]byte, 32)
	w := NewWriter(buf)
	require.NoError(t, WritePortID(w, "port-1"))
	require.NoError(t, WriteEnd(w))

	got, err := ReadTLVs(w.Bytes())
	require.NoError(t, err)
	require.False(t, got.HasAssetID)
	require.Nil(t, got.AssetID)
}

func TestReadTLVsSkipsUnknownOrgSpecific(t *testing.T) {
	buf := make([]byte, 64)
	w := NewWriter(buf)
	require.NoError(t, WriteOrgSpecific(w, OUI{0x00, 0x00, 0x00}, 0x99, []byte{1, 2, 3}))
	require.NoError(t, WritePortID(w, "port-1"))
	require.NoError(t, WriteEnd(w))

	got, err := ReadTLVs(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, "port-1", string(got.PortID))
	require.Contains(t, got.Skipped, TLVOrgSpecific)
}

func TestReadTLVsStopsAtEnd(t *testing.T) {
	buf := make([]byte, 32)
	w := NewWriter(buf)
	require.NoError(t, WriteTTL(w, 5))
	require.NoError(t, WriteEnd(w))
	require.NoError(t, WritePortID(w, "should-not-be-read"))

	got, err := ReadTLVs(w.Bytes())
	require.NoError(t, err)
	require.Empty(t, got.PortID)
}

func TestReadTLVsRejectsTruncatedBody(t *testing.T) {
	buf := make([]byte, 4)
	w := NewWriter(buf)
	require.NoError(t, writeTLVHeader(w, TLVPortID, 10))

	_, err := ReadTLVs(buf[:w.Pos()])
	require.Error(t, err)
}

func TestAlias(t *testing.T) {
	require.Equal(t, "port-1.device-a", Alias("port-1", "device-a"))
	require.Equal(t, "already.qualified", Alias("already.qualified", "device-a"))
}
