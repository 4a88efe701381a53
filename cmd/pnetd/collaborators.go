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

package main

import (
	"errors"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/profinet-go/pnet-rt/pnet/ar"
	"github.com/profinet-go/pnet-rt/pnet/diag"
)

// The connection manager, diagnostic store proper, and device configuration
// database all live outside this core. The types below are the minimal
// in-process stand-ins that let pnetd run end to end against a single
// statically configured AR; a full device stack replaces every one of
// them without pnetd's wiring changing shape.

// diagKey identifies one diagnostic record's slot.
type diagKey struct {
	ar      uint32
	slot    uint16
	subslot uint16
	usi     uint16
}

// memDiagStore is a process-memory diag.Store keeping the latest item per
// (AR, slot, subslot, USI) key. It does not log; logAlarmSender logs the
// notification that follows each update.
type memDiagStore struct {
	mu      sync.Mutex
	records map[diagKey]diag.Item
}

func newMemDiagStore() *memDiagStore {
	return &memDiagStore{records: make(map[diagKey]diag.Item)}
}

func (s *memDiagStore) key(arID uint32, item diag.Item) diagKey {
	return diagKey{ar: arID, slot: item.Slot, subslot: item.Subslot, usi: item.USI}
}

func (s *memDiagStore) Update(arID uint32, item diag.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(arID, item)
	if _, ok := s.records[k]; !ok {
		return errors.New("diag: no existing record")
	}
	s.records[k] = item
	return nil
}

func (s *memDiagStore) Add(arID uint32, item diag.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[s.key(arID, item)] = item
	return nil
}

// logAlarmSender logs the port-change notification it would otherwise hand
// to a real alarm channel.
type logAlarmSender struct{}

func (logAlarmSender) SendPortChangeNotification(arID uint32, item diag.Item) error {
	log.WithFields(log.Fields{
		"ar":             arID,
		"slot":           item.Slot,
		"subslot":        item.Subslot,
		"channel_error":  item.ChannelError,
		"extended_error": item.ExtendedError,
		"transition":     item.Transition,
	}).Warn("diag: port change notification")
	return nil
}

// logConnectionManager logs classified PPM runtime failures.
type logConnectionManager struct{}

func (logConnectionManager) PPMErrorInd(netID, arID uint32, class string, code uint32) {
	log.WithFields(log.Fields{
		"net": netID, "ar": arID, "class": class, "code": code,
	}).Error("ppm: runtime error indication")
}

func (logConnectionManager) StateInd(netID, arID uint32, noError bool) {
	log.WithFields(log.Fields{
		"net": netID, "ar": arID, "no_error": noError,
	}).Info("ppm: first cyclic frame transmitted")
}

// staticAddressProvider always answers with the one address pnetd was
// configured with.
type staticAddressProvider struct{ ip net.IP }

func (p staticAddressProvider) GetIPAddr(netID uint32) (uint32, error) {
	v4 := p.ip.To4()
	if v4 == nil {
		return 0, nil
	}
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3]), nil
}

// staticSubslotLookup answers every lookup with the same fixed identity,
// sufficient to exercise the no-peer-detected alarm path without a real
// module/submodule plan.
type staticSubslotLookup struct{}

func (staticSubslotLookup) GetSubslotFull(netID, api uint32, slot, subslot uint16) (diag.SubslotRef, bool) {
	return diag.SubslotRef{ModuleIdent: 1, SubmoduleIdent: 1}, true
}

// staticConfigProvider answers every lookup with the device configuration
// pnetd was started with.
type staticConfigProvider struct{ cfg diag.DeviceConfig }

func (p staticConfigProvider) GetConfig(netID uint32) (*diag.DeviceConfig, error) {
	cfg := p.cfg
	return &cfg, nil
}

// staticARProvider tracks the single AR pnetd manages and reports it as
// in-use once activated.
type staticARProvider struct {
	mu sync.Mutex
	a  *ar.AR
}

func (p *staticARProvider) InUseARs() []*ar.AR {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.a == nil || !p.a.InUse {
		return nil
	}
	return []*ar.AR{p.a}
}

func (p *staticARProvider) set(a *ar.AR) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.a = a
}
