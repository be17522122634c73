//  Copyright 2017 Google Inc. All Rights Reserved.
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

// sd-notify-adapter translates sd_notify-style Unix datagram assignment
// messages into Kubernetes-style HTTP health probes.
package main

import (
	"context"
	"os"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"
	"github.com/joho/godotenv"

	"github.com/ShamrockSystems/sd-notify-adapter/adapter/cfg"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/supervisor"
)

var version string

func main() {
	// Optional local bootstrap; ignored if absent, since the adapter's
	// normal deployment (sidecar container) supplies env vars directly.
	_ = godotenv.Load()

	ctx := context.Background()
	if err := logger.Init(ctx, logger.LogOpts{LoggerName: "sd-notify-adapter"}); err != nil {
		os.Exit(1)
	}

	if err := cfg.Load(); err != nil {
		logger.Errorf("sd-notify-adapter: %v", err)
		os.Exit(1)
	}
	snap := cfg.Get().Snapshot()

	logger.Infof("sd-notify-adapter: starting, version=%s socket=%s port=%d startup_deadline=%s watchdog=%s",
		version, snap.NotifySocket, snap.Port, snap.UnitTimeoutStartSec, snap.UnitWatchdogSec)

	if err := supervisor.Run(ctx); err != nil {
		logger.Errorf("sd-notify-adapter: %v", err)
		os.Exit(1)
	}
}
