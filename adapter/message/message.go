//  Copyright 2024 Google Inc. All Rights Reserved.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package message implements the datagram wire vocabulary (spec.md §6):
// parsing a KEY=VALUE assignment line into a Message, and re-encoding a
// Message back into its wire form. Encode is the exact inverse of Parse
// for the recognised message set (the round-trip law, spec.md §8
// invariant 1).
package message

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ShamrockSystems/sd-notify-adapter/adapter/cfg"
)

// Kind identifies which recognised assignment a Message carries.
type Kind int

const (
	Ready Kind = iota
	Reloading
	Stopping
	MonotonicUsec
	Status
	NotifyAccess
	Errno
	BusError
	ExitStatus
	MainPID
	WatchdogKeepAlive
	WatchdogTrigger
	WatchdogUsec
	ExtendTimeoutUsec
	FDStore
	FDStoreRemove
	FDName
	FDPoll
	Barrier
)

// notifyAccessValues is the closed vocabulary for NOTIFYACCESS.
var notifyAccessValues = map[string]bool{
	"none": true,
	"main": true,
	"exec": true,
	"all":  true,
}

// Message is a single parsed KEY=VALUE assignment. Only the fields
// relevant to Kind are populated; the rest are zero.
type Message struct {
	Kind Kind
	// Int carries ERRNO, EXIT_STATUS and MAINPID.
	Int int64
	// Seconds carries MONOTONIC_USEC, WATCHDOG_USEC and
	// EXTEND_TIMEOUT_USEC, converted from microseconds per spec.md §6.
	Seconds cfg.Seconds
	// Text carries STATUS, BUSERROR and FDNAME.
	Text string
	// NotifyAccessValue carries the value of NOTIFYACCESS.
	NotifyAccessValue string
}

// Parse parses a single line of a datagram into a Message. An
// unrecognised key, or a value that violates the constraint for a
// recognised key, is reported as an error; per spec.md §4.1 this is
// fatal for the adapter.
func Parse(line string) (Message, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return Message{}, fmt.Errorf("message: line %q is not a KEY=VALUE assignment", line)
	}

	switch key {
	case "READY":
		return parseFixed(Ready, value, "1")
	case "RELOADING":
		return parseFixed(Reloading, value, "1")
	case "STOPPING":
		return parseFixed(Stopping, value, "1")
	case "MONOTONIC_USEC":
		return parseUsec(MonotonicUsec, value)
	case "STATUS":
		return Message{Kind: Status, Text: value}, nil
	case "NOTIFYACCESS":
		if !notifyAccessValues[value] {
			return Message{}, fmt.Errorf("message: NOTIFYACCESS value %q is not one of none|main|exec|all", value)
		}
		return Message{Kind: NotifyAccess, NotifyAccessValue: value}, nil
	case "ERRNO":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return Message{}, fmt.Errorf("message: ERRNO value %q is not a signed int: %w", value, err)
		}
		return Message{Kind: Errno, Int: n}, nil
	case "BUSERROR":
		return Message{Kind: BusError, Text: value}, nil
	case "EXIT_STATUS":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return Message{}, fmt.Errorf("message: EXIT_STATUS value %q is not a signed int: %w", value, err)
		}
		return Message{Kind: ExitStatus, Int: n}, nil
	case "MAINPID":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return Message{}, fmt.Errorf("message: MAINPID value %q is not a signed int: %w", value, err)
		}
		return Message{Kind: MainPID, Int: n}, nil
	case "WATCHDOG":
		switch value {
		case "1":
			return Message{Kind: WatchdogKeepAlive}, nil
		case "trigger":
			return Message{Kind: WatchdogTrigger}, nil
		default:
			return Message{}, fmt.Errorf("message: WATCHDOG value %q is not 1 or trigger", value)
		}
	case "WATCHDOG_USEC":
		return parseUsec(WatchdogUsec, value)
	case "EXTEND_TIMEOUT_USEC":
		return parseUsec(ExtendTimeoutUsec, value)
	case "FDSTORE":
		return parseFixed(FDStore, value, "1")
	case "FDSTOREREMOVE":
		return parseFixed(FDStoreRemove, value, "1")
	case "FDNAME":
		return Message{Kind: FDName, Text: value}, nil
	case "FDPOLL":
		return parseFixed(FDPoll, value, "0")
	case "BARRIER":
		return parseFixed(Barrier, value, "1")
	default:
		return Message{}, fmt.Errorf("message: unrecognised key %q", key)
	}
}

func parseFixed(kind Kind, value, want string) (Message, error) {
	if value != want {
		return Message{}, fmt.Errorf("message: value %q for this key must be %q", value, want)
	}
	return Message{Kind: kind}, nil
}

func parseUsec(kind Kind, value string) (Message, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return Message{}, fmt.Errorf("message: value %q is not a decimal microsecond count: %w", value, err)
	}
	if n < 0 {
		return Message{}, fmt.Errorf("message: value %q must be non-negative", value)
	}
	return Message{Kind: kind, Seconds: cfg.FromMicros(n)}, nil
}

// Encode renders m back into its wire form. It is the exact inverse of
// Parse for every Kind Parse can produce.
func Encode(m Message) string {
	switch m.Kind {
	case Ready:
		return "READY=1"
	case Reloading:
		return "RELOADING=1"
	case Stopping:
		return "STOPPING=1"
	case MonotonicUsec:
		return fmt.Sprintf("MONOTONIC_USEC=%d", m.Seconds.Micros())
	case Status:
		return "STATUS=" + m.Text
	case NotifyAccess:
		return "NOTIFYACCESS=" + m.NotifyAccessValue
	case Errno:
		return fmt.Sprintf("ERRNO=%d", m.Int)
	case BusError:
		return "BUSERROR=" + m.Text
	case ExitStatus:
		return fmt.Sprintf("EXIT_STATUS=%d", m.Int)
	case MainPID:
		return fmt.Sprintf("MAINPID=%d", m.Int)
	case WatchdogKeepAlive:
		return "WATCHDOG=1"
	case WatchdogTrigger:
		return "WATCHDOG=trigger"
	case WatchdogUsec:
		return fmt.Sprintf("WATCHDOG_USEC=%d", m.Seconds.Micros())
	case ExtendTimeoutUsec:
		return fmt.Sprintf("EXTEND_TIMEOUT_USEC=%d", m.Seconds.Micros())
	case FDStore:
		return "FDSTORE=1"
	case FDStoreRemove:
		return "FDSTOREREMOVE=1"
	case FDName:
		return "FDNAME=" + m.Text
	case FDPoll:
		return "FDPOLL=0"
	case Barrier:
		return "BARRIER=1"
	default:
		return ""
	}
}
