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

func TestWriterOverflow(t *testing.T) {
	w := NewWriter(make([]byte, 2))
	require.NoError(t, w.PutU8(1))
	require.NoError(t, w.PutU8(2))
	require.ErrorIs(t, w.PutU8(3), ErrOverflow)
}

func TestReaderUnderflow(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.GetU16()
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	w := NewWriter(buf)
	require.NoError(t, w.PutU8(0xAB))
	require.NoError(t, w.PutU16(0x1234))
	require.NoError(t, w.PutU32(0xDEADBEEF))
	require.NoError(t, w.PutBytes([]byte("hi")))

	r := NewReader(w.Bytes())
	u8, err := r.GetU8()
	require.NoError(t, err)
	require.Equal(t, uint8(0xAB), u8)

	u16, err := r.GetU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), u16)

	u32, err := r.GetU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), u32)

	b, err := r.GetBytes(2)
	require.NoError(t, err)
	require.Equal(t, "hi", string(b))
	require.Equal(t, 0, r.Remaining())
}

func TestVLANTagTCI(t *testing.T) {
	v := VLANTag{Priority: 6, VID: 100}
	require.Equal(t, uint16(6)<<13|100, v.tci())
}

func TestEthHeaderRoundTrip(t *testing.T) {
	dst, _ := net.ParseMAC("01:02:03:04:05:06")
	src, _ := net.ParseMAC("0a:0b:0c:0d:0e:0f")
	h := EthHeader{
		Dst:       dst,
		Src:       src,
		VLAN:      VLANTag{Priority: 6, VID: 42},
		EtherType: EtherTypePROFINET,
	}
	buf := make([]byte, EthHeaderLen)
	w := NewWriter(buf)
	require.NoError(t, h.WriteTo(w))
	require.Equal(t, EthHeaderLen, w.Pos())

	r := NewReader(buf)
	got, err := ReadEthHeader(r)
	require.NoError(t, err)
	require.Equal(t, dst, got.Dst)
	require.Equal(t, src, got.Src)
	require.Equal(t, h.VLAN, got.VLAN)
	require.Equal(t, EtherTypePROFINET, got.EtherType)
}

func TestReadEthHeaderRejectsBadTPID(t *testing.T) {
	buf := make([]byte, EthHeaderLen)
	w := NewWriter(buf)
	require.NoError(t, w.PutBytes(make([]byte, 12)))
	require.NoError(t, w.PutU16(0x0800))
	require.NoError(t, w.PutU16(0))
	require.NoError(t, w.PutU16(EtherTypePROFINET))

	_, err := ReadEthHeader(NewReader(buf))
	require.Error(t, err)
}

func TestPPMBufferLength(t *testing.T) {
	require.Equal(t, 20+40+4, PPMBufferLength(40))
	require.Equal(t, PPMHeaderSize+PPMTrailerSize, PPMBufferLength(0))
}
