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

// Package supervisor implements the glue of spec.md §4.8: it spawns the
// seven long-lived tasks, runs the ready barrier that latches healthz
// true only once every task has finished initialising, subscribes to
// the POSIX shutdown signals, and fans in the first fatal error from
// any task into a single process exit status. Grounded on the
// teacher's events.Manager.Run wait-group/fan-in shape
// (google_guest_agent/events), generalized from "watchers" to the
// seven named components, and on the teacher's main.go top-level
// run(ctx) / signal-driven shutdown shape.
package supervisor

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"

	"github.com/ShamrockSystems/sd-notify-adapter/adapter/cfg"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/event"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/eventlistener"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/httpserver"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/status"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/timer"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/uds"
)

// taskCount is the number of long-lived tasks the ready barrier waits
// for (spec.md §4.8, §2 component table): UDS receiver, event
// listener, watchdog timer, startup timer, status writer, config
// writer, HTTP server.
const taskCount = 7

// shutdownSignals are the POSIX signals that trigger a clean shutdown
// (spec.md §4.8).
var shutdownSignals = []os.Signal{
	syscall.SIGALRM,
	syscall.SIGHUP,
	syscall.SIGINT,
	syscall.SIGPIPE,
	syscall.SIGQUIT,
	syscall.SIGTERM,
	syscall.SIGUSR1,
	syscall.SIGUSR2,
}

// Run wires up and runs the adapter until a shutdown signal arrives or
// a task reports a fatal error, returning the originating error (if
// any). cfg.Load must have been called before Run.
func Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cfgCell := cfg.Get()
	snap := cfgCell.Snapshot()

	statusCell := status.Init(status.Status{
		Healthz: false,
		Livez:   snap.InitialLivez,
		Readyz:  snap.InitialReadyz,
	})

	eventsCh := make(chan event.Event, snap.ChannelSize)
	configChangesCh := make(chan cfg.ConfigurationChange, snap.ChannelSize)
	watchdogMsgCh := make(chan timer.WatchdogMessage, snap.ChannelSize)
	statusChangesCh := make(chan status.Change, snap.ChannelSize)
	readyCh := make(chan struct{}, taskCount)
	errsCh := make(chan error, taskCount)

	var wg sync.WaitGroup
	wg.Add(taskCount)

	go func() {
		defer wg.Done()
		uds.Run(ctx, cfgCell, eventsCh, configChangesCh, readyCh, errsCh)
	}()
	go func() {
		defer wg.Done()
		eventlistener.Run(ctx, cfgCell, eventsCh, watchdogMsgCh, statusChangesCh, readyCh, errsCh)
	}()
	go func() {
		defer wg.Done()
		timer.RunWatchdog(ctx, cfgCell, watchdogMsgCh, eventsCh, readyCh, errsCh)
	}()
	go func() {
		defer wg.Done()
		timer.RunStartup(ctx, cfgCell, statusCell, eventsCh, readyCh, errsCh)
	}()
	go func() {
		defer wg.Done()
		status.RunWriter(ctx, statusCell, statusChangesCh, readyCh, errsCh)
	}()
	go func() {
		defer wg.Done()
		cfg.RunWriter(ctx, cfgCell, configChangesCh, readyCh, errsCh)
	}()
	go func() {
		defer wg.Done()
		httpserver.Run(ctx, statusCell, snap.Port, readyCh, errsCh)
	}()

	go runReadyBarrier(ctx, readyCh, statusChangesCh)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)
	defer signal.Stop(sigCh)

	var result error
	select {
	case sig := <-sigCh:
		logger.Infof("supervisor: received signal %s, shutting down", sig)
		cancel()
	case err := <-errsCh:
		logger.Errorf("supervisor: fatal error, shutting down: %v", err)
		result = err
		cancel()
	}

	wg.Wait()
	return result
}

// runReadyBarrier consumes exactly taskCount ready tokens, then submits
// the single status change that latches healthz true (spec.md §4.8,
// §4.5).
func runReadyBarrier(ctx context.Context, readyCh <-chan struct{}, statusChanges chan<- status.Change) {
	count := 0
	for count < taskCount {
		select {
		case <-readyCh:
			count++
		case <-ctx.Done():
			return
		}
	}

	logger.Infof("supervisor: all %d tasks ready, latching healthz true", taskCount)
	select {
	case statusChanges <- status.Change{Healthz: status.Set(true), Livez: status.Keep(), Readyz: status.Keep()}:
	case <-ctx.Done():
	}
}
