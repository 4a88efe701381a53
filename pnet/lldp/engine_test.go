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
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/profinet-go/pnet-rt/pnet/ar"
	"github.com/profinet-go/pnet-rt/pnet/diag"
	"github.com/profinet-go/pnet-rt/pnet/protocol"
	"github.com/profinet-go/pnet-rt/pnet/timer"
)

var errNotFound = errors.New("not found")

type fakeSender struct {
	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeSender) Send(handle int, buf []byte) (int, error) { return len(buf), nil }

func (f *fakeSender) LLDPSend(handle int, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(buf))
	copy(cp, buf)
	f.sent = append(f.sent, cp)
	return len(buf), nil
}

func (f *fakeSender) last() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

type fakeStore struct {
	mu         sync.Mutex
	added      []diag.Item
	updated    []diag.Item
	failUpdate bool
}

func (s *fakeStore) Update(ar uint32, item diag.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate {
		return errNotFound
	}
	s.updated = append(s.updated, item)
	return nil
}

func (s *fakeStore) Add(ar uint32, item diag.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added = append(s.added, item)
	return nil
}

type fakeAlarm struct {
	mu    sync.Mutex
	calls int
}

func (a *fakeAlarm) SendPortChangeNotification(ar uint32, item diag.Item) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return nil
}

type fakeARs struct {
	list []*ar.AR
}

func (f *fakeARs) InUseARs() []*ar.AR { return f.list }

type fakeSubslots struct{}

func (fakeSubslots) GetSubslotFull(net, api uint32, slot, subslot uint16) (diag.SubslotRef, bool) {
	return diag.SubslotRef{ModuleIdent: 1, SubmoduleIdent: 1}, true
}

func testMAC() net.HardwareAddr {
	mac, _ := net.ParseMAC("02:00:00:00:00:01")
	return mac
}

func TestSendBuildsUnaggedFrame(t *testing.T) {
	sender := &fakeSender{}
	cfg := Config{
		ChassisID: "",
		PortID:    "port-001",
		TTL:       20,
		DeviceMAC: testMAC(),
	}
	e := New(cfg, Deps{Sender: sender}, &fakeARs{}, func(string) timer.Timer { return timer.NewPreemptiveTimer() })
	require.NoError(t, e.Send())

	frame := sender.last()
	require.NotNil(t, frame)
	require.Equal(t, []byte(protocol.LLDPMulticastMAC), frame[0:6])
	require.Equal(t, []byte(cfg.DeviceMAC), frame[6:12])
	require.Equal(t, byte(0x88), frame[12])
	require.Equal(t, byte(0xCC), frame[13])

	decoded, err := protocol.ReadTLVs(frame[lldpHeaderLen:])
	require.NoError(t, err)
	require.Equal(t, "port-001", string(decoded.PortID))
	require.True(t, decoded.HasTTL)
	require.Equal(t, uint16(20), decoded.TTL)
}

func TestSendSuppressedByConfig(t *testing.T) {
	sender := &fakeSender{}
	cfg := Config{DeviceMAC: testMAC(), NotSendLLDPFrames: true}
	e := New(cfg, Deps{Sender: sender}, &fakeARs{}, func(string) timer.Timer { return timer.NewPreemptiveTimer() })
	require.NoError(t, e.Send())
	require.Nil(t, sender.last())
}

func buildPeerFrame(t *testing.T, portID, chassisID string, ttl uint16) []byte {
	t.Helper()
	buf := make([]byte, 128)
	w := protocol.NewWriter(buf)
	require.NoError(t, w.PutMAC(protocol.LLDPMulticastMAC))
	require.NoError(t, w.PutMAC(testMAC()))
	require.NoError(t, w.PutU16(protocol.EtherTypeLLDP))
	require.NoError(t, protocol.WriteChassisID(w, chassisID, nil))
	require.NoError(t, protocol.WritePortID(w, portID))
	require.NoError(t, protocol.WriteTTL(w, ttl))
	require.NoError(t, protocol.WriteEnd(w))
	return w.Bytes()
}

func TestRecvCapturesPeerAssetIDWhenPresent(t *testing.T) {
	e := New(Config{DeviceMAC: testMAC()}, Deps{}, &fakeARs{}, func(string) timer.Timer { return timer.NewPreemptiveTimer() })

	buf := make([]byte, 128)
	w := protocol.NewWriter(buf)
	require.NoError(t, w.PutMAC(protocol.LLDPMulticastMAC))
	require.NoError(t, w.PutMAC(testMAC()))
	require.NoError(t, w.PutU16(protocol.EtherTypeLLDP))
	require.NoError(t, protocol.WriteChassisID(w, "chassis-a", nil))
	require.NoError(t, protocol.WritePortID(w, "port-1"))
	require.NoError(t, protocol.WriteAssetID(w, "inv-7"))
	require.NoError(t, protocol.WriteEnd(w))

	require.NoError(t, e.Recv(w.Bytes(), lldpHeaderLen))
	require.Equal(t, "inv-7", string(e.Peer.AssetID))
}

func TestRecvLeavesPeerAssetIDNilWhenAbsent(t *testing.T) {
	e := New(Config{DeviceMAC: testMAC()}, Deps{}, &fakeARs{}, func(string) timer.Timer { return timer.NewPreemptiveTimer() })
	frame := buildPeerFrame(t, "port-1", "chassis-a", 20)

	require.NoError(t, e.Recv(frame, lldpHeaderLen))
	require.Nil(t, e.Peer.AssetID)
}

func TestRecvUpdatesAliasAndRaisesMismatchWithNoARs(t *testing.T) {
	e := New(Config{DeviceMAC: testMAC()}, Deps{}, &fakeARs{}, func(string) timer.Timer { return timer.NewPreemptiveTimer() })
	frame := buildPeerFrame(t, "port-1", "chassis-a", 20)

	require.NoError(t, e.Recv(frame, lldpHeaderLen))
	require.Equal(t, "port-1.chassis-a", e.Peer.TemporaryAlias())
	// No AR in use: persisted directly.
	require.Equal(t, "port-1.chassis-a", e.Peer.PermanentAlias())
}

func TestRecvRaisesRemoteMismatchWhenARsInUse(t *testing.T) {
	store := &fakeStore{failUpdate: true}
	alarm := &fakeAlarm{}
	owner := ar.New(7, 1, nil)
	e := New(Config{DeviceMAC: testMAC()}, Deps{Store: store, Alarm: alarm}, &fakeARs{list: []*ar.AR{owner}}, func(string) timer.Timer { return timer.NewPreemptiveTimer() })

	frame := buildPeerFrame(t, "port-1", "chassis-a", 20)
	require.NoError(t, e.Recv(frame, lldpHeaderLen))

	require.Len(t, store.added, 1)
	require.Equal(t, diag.TransitionAppears, store.added[0].Transition)
	require.Equal(t, diag.ExtendedErrorPortIDMismatch, store.added[0].ExtendedError)
	require.Equal(t, 1, alarm.calls)
}

func TestPeerTTLExpiryRaisesNoPeerDetected(t *testing.T) {
	store := &fakeStore{}
	alarm := &fakeAlarm{}
	owner := ar.New(7, 1, nil)
	e := New(Config{DeviceMAC: testMAC()}, Deps{Store: store, Alarm: alarm, Subslot: fakeSubslots{}}, &fakeARs{list: []*ar.AR{owner}}, func(string) timer.Timer { return timer.NewPreemptiveTimer() })

	frame := buildPeerFrame(t, "port-1", "chassis-a", 1)
	require.NoError(t, e.Recv(frame, lldpHeaderLen))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		n := len(store.added) + len(store.updated)
		store.mu.Unlock()
		if n > 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	diffs := owner.APIDiffs()
	require.NotEmpty(t, diffs)
	require.True(t, diffs[len(diffs)-1].Fault)
}

func TestAliasDerivation(t *testing.T) {
	require.Equal(t, "a.b.c", Alias("a.b.c", "device"))
	require.Equal(t, "port-1.device-a", Alias("port-1", "device-a"))
}
