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
	"github.com/profinet-go/pnet-rt/pnet/ar"
	"github.com/profinet-go/pnet-rt/pnet/diag"
)

// ARProvider lists the ARs an alarm pass should iterate. The connection
// manager that actually tracks ARs lives outside this core.
type ARProvider interface {
	InUseARs() []*ar.AR
}

// raisePortChangeNotification is the shared update-or-add-then-notify tail
// of both alarm paths.
func raisePortChangeNotification(store diag.Store, sender diag.AlarmSender, arID uint32, item diag.Item) {
	if err := store.Update(arID, item); err != nil {
		_ = store.Add(arID, item)
	}
	if sender != nil {
		_ = sender.SendPortChangeNotification(arID, item)
	}
}

// RemoteMismatch implements the remote-mismatch alarm path: for every
// in-use AR, report a REMOTE_MISMATCH/PORTID_MISMATCH diagnostic that
// APPEARS if the peer's temporary alias differs from its permanent one,
// or DISAPPEARS once it has been restored. If no AR is in use, the
// temporary alias is simply persisted.
func RemoteMismatch(ars ARProvider, cfg diag.DeviceConfig, store diag.Store, sender diag.AlarmSender, peer *Peer) {
	inUse := ars.InUseARs()
	if len(inUse) == 0 {
		peer.AcceptAlias()
		return
	}

	mismatched := peer.Mismatched()
	for _, owner := range inUse {
		transition := diag.TransitionDisappears
		bits := false
		if mismatched {
			transition = diag.TransitionAppears
			bits = true
		}
		item := diag.Item{
			Slot:          cfg.DAPSlot,
			Subslot:       cfg.Port0Subslot,
			USI:           diag.USIExtendedChannelDiagnosis,
			ChannelError:  diag.ChannelErrorRemoteMismatch,
			ExtendedError: diag.ExtendedErrorPortIDMismatch,
			Transition:    transition,
			ChannelBit:    bits,
			SubmoduleBit:  bits,
			ARBit:         bits,
		}
		raisePortChangeNotification(store, sender, owner.ID, item)
	}
}

// NoPeerDetected implements the no-peer-detected alarm path raised when
// the peer TTL timer expires: for every in-use AR, report an APPEARS
// NO_PEER_DETECTED diagnostic, and record an API diff marking the expected
// submodule as faulted when subslots resolves it. With no subslot lookup,
// or when the lookup finds nothing, no API diff is recorded.
func NoPeerDetected(ars ARProvider, cfg diag.DeviceConfig, subslots diag.SubslotLookup, store diag.Store, sender diag.AlarmSender) {
	for _, owner := range ars.InUseARs() {
		var ref diag.SubslotRef
		ok := false
		if subslots != nil {
			ref, ok = subslots.GetSubslotFull(owner.NetID, 0, cfg.DAPSlot, cfg.Port0Subslot)
		}
		if ok {
			owner.RecordAPIDiff(ar.APIDiff{
				Slot:           cfg.DAPSlot,
				Subslot:        cfg.Port0Subslot,
				ModuleIdent:    ref.ModuleIdent,
				SubmoduleIdent: ref.SubmoduleIdent,
				Fault:          true,
			})
		}
		item := diag.Item{
			Slot:          cfg.DAPSlot,
			Subslot:       cfg.Port0Subslot,
			USI:           diag.USIExtendedChannelDiagnosis,
			ChannelError:  diag.ChannelErrorRemoteMismatch,
			ExtendedError: diag.ExtendedErrorNoPeerDetected,
			Transition:    diag.TransitionAppears,
			ChannelBit:    true,
			SubmoduleBit:  true,
			ARBit:         true,
		}
		raisePortChangeNotification(store, sender, owner.ID, item)
	}
}
