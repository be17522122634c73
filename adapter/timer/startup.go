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
	"time"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"

	"github.com/ShamrockSystems/sd-notify-adapter/adapter/cfg"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/event"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/status"
)

// RunStartup is the startup timer task (spec.md §4.4). If the configured
// startup deadline is disabled (Inf) it sends its ready token and
// returns immediately. Otherwise it sleeps for the deadline, then
// re-reads the configured value: unchanged breaks out to the deadline
// check; changed slides the window by sleeping the difference and
// repeating, which is how EXTEND_TIMEOUT_USEC moves the deadline
// forward without restarting the whole window.
func RunStartup(ctx context.Context, cell *cfg.Cell, statusCell *status.Cell, events chan<- event.Event, ready chan<- struct{}, errs chan<- error) {
	total := cell.Snapshot().UnitTimeoutStartSec

	logger.Infof("startup timer: ready, deadline=%s", total)
	select {
	case ready <- struct{}{}:
	case <-ctx.Done():
		return
	}

	if total.IsInf() {
		logger.Infof("startup timer: no deadline configured, exiting")
		return
	}

	sleepFor := total.Duration()
	for {
		select {
		case <-time.After(sleepFor):
		case <-ctx.Done():
			return
		}

		current := cell.Snapshot().UnitTimeoutStartSec
		if current == total {
			break
		}
		diff := current.Duration() - total.Duration()
		if diff < 0 {
			diff = 0
		}
		sleepFor = diff
		total = current
	}

	if !statusCell.Snapshot().Readyz {
		logger.Infof("startup timer: deadline elapsed before readyz, emitting start_timeout")
		select {
		case events <- event.StartTimeout:
		case <-ctx.Done():
		}
	}
}
