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

package cfg

import "sync"

// Cell guards a Config behind a reader-preferring exclusion primitive.
// The config writer is the sole writer; every other task only ever
// reads a Snapshot. sync.RWMutex is the teacher's own choice for this
// shape of single-writer/many-reader cell (see command.Monitor.handlersMu
// in the guest-agent command package).
type Cell struct {
	mu  sync.RWMutex
	cfg Config
}

// NewCell builds a Cell seeded with the given configuration.
func NewCell(c Config) *Cell {
	return &Cell{cfg: c}
}

// Snapshot returns a copy of the current configuration. Config's event
// Sets are shared maps that are never mutated after Load, so the copy
// is safe to read concurrently without additional locking.
func (c *Cell) Snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// SetUnitWatchdogSec overwrites the configured watchdog deadline.
func (c *Cell) SetUnitWatchdogSec(v Seconds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.UnitWatchdogSec = v
}

// SetUnitTimeoutStartSec overwrites the configured startup deadline.
func (c *Cell) SetUnitTimeoutStartSec(v Seconds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.UnitTimeoutStartSec = v
}

// ChangeKind distinguishes the two mutable settings a ConfigurationChange
// can target.
type ChangeKind int

const (
	// WatchdogTimeout targets UnitWatchdogSec.
	WatchdogTimeout ChangeKind = iota
	// StartupTimeout targets UnitTimeoutStartSec.
	StartupTimeout
)

func (k ChangeKind) String() string {
	switch k {
	case WatchdogTimeout:
		return "watchdog_timeout"
	case StartupTimeout:
		return "startup_timeout"
	default:
		return "unknown"
	}
}

// ConfigurationChange is a request, originating from the UDS receiver,
// to mutate one of the two live-reconfigurable timeouts.
type ConfigurationChange struct {
	Kind  ChangeKind
	Value Seconds
}
