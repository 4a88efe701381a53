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

package ppm

import "errors"

// ErrInvalidState is returned when an operation is invoked against a PPM
// instance in the wrong lifecycle state (set/get in WAIT_START, activate
// on an already-RUN instance). The AR's classified error fields are
// written as a side effect; this error is the Go-level signal to the
// caller.
var ErrInvalidState = errors.New("ppm: invalid state")

// ErrLengthMismatch is returned by SetDataAndIOPS/SetIOCS when the caller's
// byte slice does not match the IODATA descriptor's declared length. The
// AR's classified error fields are left untouched, per the error handling
// design: this is the caller's bug, not a protocol fault.
var ErrLengthMismatch = errors.New("ppm: length mismatch")

// ErrNotFound is returned when no IODATA descriptor matches the requested
// (api, slot, subslot).
var ErrNotFound = errors.New("ppm: subslot not found")

// ErrSendFailed names an Ethernet transmit failure. No function in this
// package returns it: the cyclic send path counts a failed transmit and, on
// the cooperative scheduling path, classifies it as a PPM/INVALID fault.
var ErrSendFailed = errors.New("ppm: ethernet send failed")

// ErrTimerArmFailed is returned by Activate when the periodic timer could
// not be installed. The AR is left with a classified PPM/INVALID fault.
var ErrTimerArmFailed = errors.New("ppm: timer arm failed")
