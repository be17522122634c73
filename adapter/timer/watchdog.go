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

// Package timer implements the watchdog and startup deadline tasks
// (spec.md §4.3, §4.4): sub-second, re-armable single-shot timers whose
// durations are re-read live from the configuration cell.
package timer

import (
	"context"
	"time"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"

	"github.com/ShamrockSystems/sd-notify-adapter/adapter/cfg"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/event"
)

// WatchdogMessage is the vocabulary the event listener speaks to the
// watchdog timer (spec.md §4.2, §4.3).
type WatchdogMessage int

const (
	// KeepAlive resets the last-keepalive timestamp.
	KeepAlive WatchdogMessage = iota
	// Trigger is treated as a keep-alive for bookkeeping purposes,
	// distinct from the WatchdogTrigger event routed through the status
	// classifiers.
	Trigger
	// NewTimeout re-reads the configured watchdog duration.
	NewTimeout
)

// RunWatchdog is the watchdog timer task.
func RunWatchdog(ctx context.Context, cell *cfg.Cell, msgs <-chan WatchdogMessage, events chan<- event.Event, ready chan<- struct{}, errs chan<- error) {
	duration := cell.Snapshot().UnitWatchdogSec.Duration()
	lastTimestamp := time.Now()

	logger.Infof("watchdog timer: ready, duration=%s", duration)
	select {
	case ready <- struct{}{}:
	case <-ctx.Done():
		return
	}

	for {
		if duration <= 0 {
			select {
			case <-ctx.Done():
				return
			case m := <-msgs:
				duration, lastTimestamp = handleMessage(cell, m, duration, lastTimestamp)
			}
			continue
		}

		timer := time.NewTimer(duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case m := <-msgs:
			if !timer.Stop() {
				<-timer.C
			}
			duration, lastTimestamp = handleMessage(cell, m, duration, lastTimestamp)
		case <-timer.C:
			if time.Since(lastTimestamp) > duration {
				logger.Infof("watchdog timer: deadline of %s exceeded since last keep-alive", duration)
				select {
				case events <- event.WatchdogTimeout:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func handleMessage(cell *cfg.Cell, m WatchdogMessage, duration time.Duration, lastTimestamp time.Time) (time.Duration, time.Time) {
	switch m {
	case KeepAlive, Trigger:
		return duration, time.Now()
	case NewTimeout:
		return cell.Snapshot().UnitWatchdogSec.Duration(), lastTimestamp
	default:
		return duration, lastTimestamp
	}
}
