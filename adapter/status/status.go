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

// Package status maintains the three boolean health flags the HTTP
// server publishes and the small ChangeOperation algebra used to
// describe mutations to them (spec.md §3, §4.5).
package status

import "sync"

// Status is the adapter's published health state.
type Status struct {
	Healthz bool
	Livez   bool
	Readyz  bool
}

// Operation is either Keep (leave the flag unchanged) or Set(v) (force
// a value). The zero value is Keep.
type Operation struct {
	set   bool
	value bool
}

// Keep leaves a flag unchanged.
func Keep() Operation { return Operation{} }

// Set forces a flag to v.
func Set(v bool) Operation { return Operation{set: true, value: v} }

// Apply resolves the operation against the flag's current value.
func (op Operation) Apply(current bool) bool {
	if op.set {
		return op.value
	}
	return current
}

// Change carries one ChangeOperation per flag. The three are applied
// atomically by Cell.Apply so no reader ever observes a partial triple.
type Change struct {
	Healthz Operation
	Livez   Operation
	Readyz  Operation
}

// Cell guards Status behind a reader-preferring exclusion primitive.
// The status writer is the sole writer.
type Cell struct {
	mu     sync.RWMutex
	status Status
}

var instance *Cell

// Init installs initial as the package's singleton status Cell and
// returns it. It must be called once, after configuration has been
// loaded, before any task that reads or writes status starts.
func Init(initial Status) *Cell {
	instance = &Cell{status: initial}
	return instance
}

// Get returns the status Cell previously installed by Init.
func Get() *Cell {
	if instance == nil {
		panic("status package was not initialized, Init() should be called in the early initialization code path")
	}
	return instance
}

// Snapshot returns a copy of the current status.
func (c *Cell) Snapshot() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Apply resolves each operation in ch against the current status and
// installs the result as a single atomic update.
func (c *Cell) Apply(ch Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Healthz = ch.Healthz.Apply(c.status.Healthz)
	c.status.Livez = ch.Livez.Apply(c.status.Livez)
	c.status.Readyz = ch.Readyz.Apply(c.status.Readyz)
}
