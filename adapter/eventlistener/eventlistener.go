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

// Package eventlistener implements the event listener task (spec.md
// §4.2): the fan-in/fan-out hub that classifies every internal Event
// into a watchdog-timer message and a status mutation, and detects the
// configured shutdown condition. It is grounded on the teacher's
// events.Manager.Run dispatch loop (google_guest_agent/events), adapted
// from a callback-subscriber registry to the fixed five-classifier
// scheme spec.md defines.
package eventlistener

import (
	"context"
	"fmt"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"

	"github.com/ShamrockSystems/sd-notify-adapter/adapter/adapterr"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/cfg"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/event"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/status"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/timer"
)

// Run is the event listener task.
func Run(ctx context.Context, cell *cfg.Cell, events <-chan event.Event, watchdogMsgs chan<- timer.WatchdogMessage, statusChanges chan<- status.Change, ready chan<- struct{}, errs chan<- error) {
	snap := cell.Snapshot()
	livezTrue := snap.StatusLivezTrue
	livezFalse := snap.StatusLivezFalse
	readyzTrue := snap.StatusReadyzTrue
	readyzFalse := snap.StatusReadyzFalse
	shutdown := snap.StatusShutdown

	logger.Infof("event listener: ready")
	select {
	case ready <- struct{}{}:
	case <-ctx.Done():
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			logger.Debugf("event listener: received event %s", e)

			if shutdown.Contains(e) {
				select {
				case errs <- fmt.Errorf("%w: %s", adapterr.ErrShutdownEvent, e):
				case <-ctx.Done():
				}
				return
			}

			if wm, ok := watchdogMessageFor(e); ok {
				select {
				case watchdogMsgs <- wm:
				case <-ctx.Done():
					return
				}
			}

			change := status.Change{
				Healthz: status.Keep(),
				Livez:   classify(e, livezTrue, livezFalse),
				Readyz:  classify(e, readyzTrue, readyzFalse),
			}
			select {
			case statusChanges <- change:
			case <-ctx.Done():
				return
			}
		}
	}
}

func watchdogMessageFor(e event.Event) (timer.WatchdogMessage, bool) {
	switch e {
	case event.Watchdog:
		return timer.KeepAlive, true
	case event.WatchdogTrigger:
		return timer.Trigger, true
	case event.WatchdogTimeout:
		return timer.NewTimeout, true
	default:
		return 0, false
	}
}

// classify computes the ChangeOperation for a single flag given its
// true/false classifiers. The true-check runs first and the
// false-check is then applied over it unconditionally, so that an
// event present in both classifiers resolves to Set(false): false
// wins ties (spec.md §4.2, §9).
func classify(e event.Event, trueSet, falseSet event.Set) status.Operation {
	op := status.Keep()
	if trueSet.Contains(e) {
		op = status.Set(true)
	}
	if falseSet.Contains(e) {
		op = status.Set(false)
	}
	return op
}
