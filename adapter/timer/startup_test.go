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

package timer

import (
	"context"
	"testing"
	"time"

	"github.com/ShamrockSystems/sd-notify-adapter/adapter/cfg"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/event"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/status"
)

func TestStartupDisabledExitsWithoutTimeout(t *testing.T) {
	cell := cfg.NewCell(cfg.Config{UnitTimeoutStartSec: cfg.Inf})
	statusCell := status.Init(status.Status{Readyz: false})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan event.Event, 1)
	ready := make(chan struct{}, 1)
	errs := make(chan error, 1)

	done := make(chan struct{})
	go func() {
		RunStartup(ctx, cell, statusCell, events, ready, errs)
		close(done)
	}()

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("startup timer never became ready")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("startup timer with Inf deadline did not exit promptly")
	}

	select {
	case e := <-events:
		t.Fatalf("disabled startup timer emitted event %s", e)
	default:
	}
}

func TestStartupDeadlineElapsedBeforeReadyEmitsTimeout(t *testing.T) {
	cell := cfg.NewCell(cfg.Config{UnitTimeoutStartSec: cfg.Seconds(0.05)})
	statusCell := status.Init(status.Status{Readyz: false})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan event.Event, 1)
	ready := make(chan struct{}, 1)
	errs := make(chan error, 1)

	go RunStartup(ctx, cell, statusCell, events, ready, errs)

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("startup timer never became ready")
	}

	select {
	case e := <-events:
		if e != event.StartTimeout {
			t.Fatalf("got event %s, want StartTimeout", e)
		}
	case <-time.After(time.Second):
		t.Fatal("start_timeout was never emitted")
	}
}

func TestStartupReadyBeforeDeadlineEmitsNothing(t *testing.T) {
	cell := cfg.NewCell(cfg.Config{UnitTimeoutStartSec: cfg.Seconds(0.05)})
	statusCell := status.Init(status.Status{Readyz: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan event.Event, 1)
	ready := make(chan struct{}, 1)
	errs := make(chan error, 1)

	go RunStartup(ctx, cell, statusCell, events, ready, errs)

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("startup timer never became ready")
	}

	select {
	case e := <-events:
		t.Fatalf("startup timer emitted %s despite readyz already true", e)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestStartupExtendSlidesDeadline(t *testing.T) {
	cell := cfg.NewCell(cfg.Config{UnitTimeoutStartSec: cfg.Seconds(0.05)})
	statusCell := status.Init(status.Status{Readyz: false})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan event.Event, 1)
	ready := make(chan struct{}, 1)
	errs := make(chan error, 1)

	go RunStartup(ctx, cell, statusCell, events, ready, errs)

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("startup timer never became ready")
	}

	// Extend before the original (short) deadline elapses.
	cell.SetUnitTimeoutStartSec(cfg.Seconds(0.3))

	select {
	case e := <-events:
		t.Fatalf("got premature event %s, deadline should have slid forward", e)
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case e := <-events:
		if e != event.StartTimeout {
			t.Fatalf("got event %s, want StartTimeout", e)
		}
	case <-time.After(time.Second):
		t.Fatal("extended deadline never elapsed")
	}
}
