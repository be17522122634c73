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
)

func TestWatchdogMissedDeadlineTriggersTimeout(t *testing.T) {
	cell := cfg.NewCell(cfg.Config{UnitWatchdogSec: cfg.Seconds(0.05)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := make(chan WatchdogMessage)
	events := make(chan event.Event, 1)
	ready := make(chan struct{}, 1)
	errs := make(chan error, 1)

	go RunWatchdog(ctx, cell, msgs, events, ready, errs)

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("watchdog timer never became ready")
	}

	select {
	case e := <-events:
		if e != event.WatchdogTimeout {
			t.Fatalf("got event %s, want WatchdogTimeout", e)
		}
	case <-time.After(time.Second):
		t.Fatal("watchdog timeout was never emitted")
	}
}

func TestWatchdogKeepAliveAvertsTimeout(t *testing.T) {
	cell := cfg.NewCell(cfg.Config{UnitWatchdogSec: cfg.Seconds(0.1)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := make(chan WatchdogMessage)
	events := make(chan event.Event, 1)
	ready := make(chan struct{}, 1)
	errs := make(chan error, 1)

	go RunWatchdog(ctx, cell, msgs, events, ready, errs)

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("watchdog timer never became ready")
	}

	stop := time.After(250 * time.Millisecond)
loop:
	for {
		select {
		case msgs <- KeepAlive:
			time.Sleep(20 * time.Millisecond)
		case <-stop:
			break loop
		}
	}

	select {
	case e := <-events:
		t.Fatalf("unexpected event %s, keep-alives should have averted timeout", e)
	default:
	}
}

func TestWatchdogDisabledNeverFires(t *testing.T) {
	cell := cfg.NewCell(cfg.Config{UnitWatchdogSec: cfg.Seconds(0)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := make(chan WatchdogMessage)
	events := make(chan event.Event, 1)
	ready := make(chan struct{}, 1)
	errs := make(chan error, 1)

	go RunWatchdog(ctx, cell, msgs, events, ready, errs)

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("watchdog timer never became ready")
	}

	select {
	case e := <-events:
		t.Fatalf("disabled watchdog emitted event %s", e)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestHandleMessageNewTimeoutRereadsDuration(t *testing.T) {
	cell := cfg.NewCell(cfg.Config{UnitWatchdogSec: cfg.Seconds(0)})
	lastTimestamp := time.Now().Add(-time.Hour)

	duration, got := handleMessage(cell, NewTimeout, 5*time.Second, lastTimestamp)
	if duration != 0 {
		t.Fatalf("handleMessage(NewTimeout) duration = %v, want 0 (re-read from cell)", duration)
	}
	if !got.Equal(lastTimestamp) {
		t.Fatalf("handleMessage(NewTimeout) must not touch lastTimestamp")
	}
}

func TestHandleMessageKeepAliveOnlyUpdatesTimestamp(t *testing.T) {
	cell := cfg.NewCell(cfg.Config{UnitWatchdogSec: cfg.Seconds(99)})
	before := time.Now().Add(-time.Hour)

	duration, got := handleMessage(cell, KeepAlive, 3*time.Second, before)
	if duration != 3*time.Second {
		t.Fatalf("handleMessage(KeepAlive) duration = %v, want unchanged 3s", duration)
	}
	if !got.After(before) {
		t.Fatalf("handleMessage(KeepAlive) did not advance lastTimestamp")
	}
}
