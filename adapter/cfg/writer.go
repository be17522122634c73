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

import (
	"context"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"
)

// RunWriter is the config writer task (spec.md §4.6). It is the sole
// writer of the two live-reconfigurable timeouts and gates each mutation
// against the corresponding policy flag, logging and dropping rejected
// changes rather than treating them as fatal.
func RunWriter(ctx context.Context, cell *Cell, changes <-chan ConfigurationChange, ready chan<- struct{}, errs chan<- error) {
	logger.Infof("config writer: ready")
	select {
	case ready <- struct{}{}:
	case <-ctx.Done():
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case change := <-changes:
			apply(cell, change)
		}
	}
}

func apply(cell *Cell, change ConfigurationChange) {
	snap := cell.Snapshot()
	switch change.Kind {
	case WatchdogTimeout:
		if !snap.AllowWatchdogUsec {
			logger.Warningf("config writer: rejected watchdog timeout override to %s, ADAPTER_ALLOW_MESSAGE_WATCHDOG_USEC is disabled", change.Value)
			return
		}
		cell.SetUnitWatchdogSec(change.Value)
		logger.Infof("config writer: watchdog timeout set to %s", change.Value)
	case StartupTimeout:
		if !snap.AllowExtendTimeoutUsec {
			logger.Warningf("config writer: rejected startup timeout override to %s, ADAPTER_ALLOW_MESSAGE_EXTEND_TIMEOUT_USEC is disabled", change.Value)
			return
		}
		cell.SetUnitTimeoutStartSec(change.Value)
		logger.Infof("config writer: startup timeout set to %s", change.Value)
	}
}
