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

package transport

import (
	"context"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	log "github.com/sirupsen/logrus"
)

// Capture reads Ethernet frames off a live interface via libpcap and
// dispatches LLDP frames to a handler. PPM frames are not captured here:
// this core never needs to see its own cyclic traffic on the receive
// path.
type Capture struct {
	handle *pcap.Handle
}

// OpenCapture opens a live capture on ifName filtered to LLDP EtherType
// traffic only.
func OpenCapture(ifName string) (*Capture, error) {
	h, err := pcap.OpenLive(ifName, 1600, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("transport: opening capture on %s: %w", ifName, err)
	}
	if err := h.SetBPFFilter("ether proto 0x88cc"); err != nil {
		h.Close()
		return nil, fmt.Errorf("transport: setting LLDP BPF filter: %w", err)
	}
	return &Capture{handle: h}, nil
}

// Close releases the underlying pcap handle.
func (c *Capture) Close() {
	c.handle.Close()
}

// Run drains packets until ctx is cancelled, invoking onLLDP with the raw
// frame bytes and the offset at which the Ethernet header ends (14, since
// this capture's filter only ever admits untagged LLDP frames).
func (c *Capture) Run(ctx context.Context, onLLDP func(frame []byte, ethHeaderLen int)) {
	src := gopacket.NewPacketSource(c.handle, layers.LayerTypeEthernet)
	packets := src.Packets()
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-packets:
			if !ok {
				return
			}
			eth, ok := pkt.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
			if !ok {
				continue
			}
			if eth.EthernetType != layers.EthernetTypeLinkLayerDiscovery {
				continue
			}
			data := pkt.Data()
			if len(data) < 14 {
				log.Debugf("transport: short LLDP frame (%d bytes), dropping", len(data))
				continue
			}
			onLLDP(data, 14)
		}
	}
}
