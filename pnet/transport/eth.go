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
Package transport wires the diag.EthernetSender and diag.BufferAllocator
collaborators to a real network interface: a raw AF_PACKET socket for
transmit, and a gopacket/pcap capture loop for receive. Everything above
this package talks to the narrow diag interfaces, never to a socket
directly.
*/
package transport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// htons converts a uint16 from host to network byte order. AF_PACKET's
// sll_protocol field is read by the kernel in network order regardless of
// host endianness.
func htons(v uint16) uint16 {
	return (v<<8)&0xff00 | v>>8
}

// RawSocket is a raw AF_PACKET transmit socket bound to one network
// interface, implementing diag.EthernetSender. The same socket is used
// for both PPM cyclic frames and LLDP broadcasts: both are already
// fully-framed Ethernet payloads by the time they reach Send.
type RawSocket struct {
	fd       int
	ifIndex  int
	sockaddr unix.SockaddrLinklayer
}

// NewRawSocket opens an AF_PACKET/SOCK_RAW socket bound to the interface
// at ifIndex.
func NewRawSocket(ifIndex int) (*RawSocket, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("transport: opening raw socket: %w", err)
	}
	sa := unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifIndex,
	}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: binding raw socket to interface %d: %w", ifIndex, err)
	}
	return &RawSocket{fd: fd, ifIndex: ifIndex, sockaddr: sa}, nil
}

// Send transmits a fully-framed Ethernet buffer. handle is unused: a
// RawSocket is already bound to a single interface, unlike the
// multi-handle collaborator interface this satisfies.
func (r *RawSocket) Send(handle int, buf []byte) (int, error) {
	if err := unix.Sendto(r.fd, buf, 0, &r.sockaddr); err != nil {
		return 0, fmt.Errorf("transport: sendto: %w", err)
	}
	return len(buf), nil
}

// LLDPSend is identical to Send: both PPM and LLDP frames are raw
// Ethernet II frames handed to the same socket.
func (r *RawSocket) LLDPSend(handle int, buf []byte) (int, error) {
	return r.Send(handle, buf)
}

// Close releases the underlying file descriptor.
func (r *RawSocket) Close() error {
	return unix.Close(r.fd)
}

// PoolAllocator is a diag.BufferAllocator that hands out a fresh slice of
// the requested size on every Alloc. It keeps no pool: a PPM instance holds
// its send buffer for the whole activation, and LLDP allocates one small
// frame per broadcast.
type PoolAllocator struct{}

// Alloc returns a zeroed buffer of the requested size.
func (PoolAllocator) Alloc(size int) []byte {
	return make([]byte, size)
}

// Free is a no-op; buffers are left for the garbage collector.
func (PoolAllocator) Free(buf []byte) {}
