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

package eventlistener

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ShamrockSystems/sd-notify-adapter/adapter/adapterr"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/cfg"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/event"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/status"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/timer"
)

func TestClassifyFalseWinsTies(t *testing.T) {
	trueSet := event.Set{event.Ready: struct{}{}}
	falseSet := event.Set{event.Ready: struct{}{}}

	op := classify(event.Ready, trueSet, falseSet)
	if got := op.Apply(true); got != false {
		t.Fatalf("classify with event in both sets resolved to %v, want false (false wins ties)", got)
	}
}

func TestClassifyKeepsWhenUnclassified(t *testing.T) {
	op := classify(event.Stopping, event.Set{}, event.Set{})
	if got := op.Apply(true); got != true {
		t.Fatalf("classify of unlisted event changed value to %v, want unchanged true", got)
	}
}

func TestWatchdogMessageMapping(t *testing.T) {
	tests := []struct {
		e    event.Event
		want timer.WatchdogMessage
		ok   bool
	}{
		{event.Watchdog, timer.KeepAlive, true},
		{event.WatchdogTrigger, timer.Trigger, true},
		{event.WatchdogTimeout, timer.NewTimeout, true},
		{event.Ready, 0, false},
	}
	for _, tc := range tests {
		got, ok := watchdogMessageFor(tc.e)
		if ok != tc.ok {
			t.Fatalf("watchdogMessageFor(%s) ok = %v, want %v", tc.e, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("watchdogMessageFor(%s) = %v, want %v", tc.e, got, tc.want)
		}
	}
}

func TestRunReportsShutdownEvent(t *testing.T) {
	cell := cfg.NewCell(cfg.Config{
		StatusShutdown: event.Set{event.Stopping: struct{}{}},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan event.Event, 1)
	watchdogMsgs := make(chan timer.WatchdogMessage, 1)
	statusChanges := make(chan status.Change, 1)
	ready := make(chan struct{}, 1)
	errs := make(chan error, 1)

	go Run(ctx, cell, events, watchdogMsgs, statusChanges, ready, errs)

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("event listener never became ready")
	}

	events <- event.Stopping

	select {
	case err := <-errs:
		if !errors.Is(err, adapterr.ErrShutdownEvent) {
			t.Fatalf("got error %v, want wrapping ErrShutdownEvent", err)
		}
	case <-time.After(time.Second):
		t.Fatal("shutdown event did not produce an error")
	}
}
