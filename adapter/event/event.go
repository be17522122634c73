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

// Package event defines the closed set of internal events the adapter
// classifies datagram messages and timer expiries into, and the
// configurable sets ("classifiers") that map events onto status flags.
package event

import (
	"fmt"
	"strings"
)

// Event is the closed enumeration of internal events. The first seven
// originate from datagrams; WatchdogTimeout and StartTimeout are emitted
// by the watchdog and startup timers respectively.
type Event int

const (
	Ready Event = iota
	Reloading
	Stopping
	ErrorNumber
	BusError
	Watchdog
	WatchdogTrigger
	WatchdogTimeout
	StartTimeout
)

var names = map[Event]string{
	Ready:           "ready",
	Reloading:       "reloading",
	Stopping:        "stopping",
	ErrorNumber:     "errno",
	BusError:        "buserror",
	Watchdog:        "watchdog",
	WatchdogTrigger: "watchdog_trigger",
	WatchdogTimeout: "watchdog_timeout",
	StartTimeout:    "start_timeout",
}

// String returns the token used in configuration to refer to e.
func (e Event) String() string {
	if s, ok := names[e]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Parse resolves a single configuration token to its Event. Tokens are
// matched against the closed vocabulary documented in the environment
// variable reference (ready, reloading, stopping, errno, buserror,
// watchdog, watchdog_trigger, watchdog_timeout, start_timeout).
func Parse(token string) (Event, error) {
	for e, s := range names {
		if s == token {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown event token %q", token)
}

// Set is an immutable membership test built once from configuration and
// shared, unmodified, for the process lifetime.
type Set map[Event]struct{}

// Contains reports whether e is a member of s. A nil Set contains nothing.
func (s Set) Contains(e Event) bool {
	_, ok := s[e]
	return ok
}

// ParseSet parses a comma-separated list of event tokens into a Set. An
// empty string denotes the empty set.
func ParseSet(csv string) (Set, error) {
	set := make(Set)
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return set, nil
	}
	for _, tok := range strings.Split(csv, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		e, err := Parse(tok)
		if err != nil {
			return nil, err
		}
		set[e] = struct{}{}
	}
	return set, nil
}
