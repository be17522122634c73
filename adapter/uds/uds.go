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

// Package uds implements the UDS receiver task (spec.md §4.1): binding
// the notification socket, reading datagrams, splitting them into
// lines, parsing each line into a message.Message, optionally echoing
// it, and dispatching events and configuration changes downstream.
// Modeled on the teacher's command.listen (google_guest_agent/command)
// for socket lifecycle, and on the pack's DataDog dogstatsd
// uds_datagram.go listener for the net.ListenConfig + *net.UnixConn
// shape of a datagram listener.
package uds

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"

	"github.com/ShamrockSystems/sd-notify-adapter/adapter/adapterr"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/cfg"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/event"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/message"
	"github.com/ShamrockSystems/sd-notify-adapter/retry"
)

// bindPolicy retries the initial socket bind a few times, since the
// sidecar's mount point for the notification socket directory can lag
// briefly behind container start.
var bindPolicy = retry.Policy{
	MaxAttempts:   5,
	BackoffFactor: 2,
	Jitter:        50 * time.Millisecond,
}

// defaultBufferSize is used when the kernel receive-buffer size cannot
// be determined.
const defaultBufferSize = 8192

// Run is the UDS receiver task.
func Run(ctx context.Context, cell *cfg.Cell, events chan<- event.Event, configChanges chan<- cfg.ConfigurationChange, ready chan<- struct{}, errs chan<- error) {
	snap := cell.Snapshot()
	path := snap.NotifySocket

	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			reportFatal(ctx, errs, fmt.Errorf("%w: could not unlink existing socket %s: %v", adapterr.ErrIO, path, err))
			return
		}
	}

	var lc net.ListenConfig
	pc, err := retry.BindUnixgram(ctx, bindPolicy, func() (net.PacketConn, error) {
		return lc.ListenPacket(ctx, "unixgram", path)
	})
	if err != nil {
		reportFatal(ctx, errs, fmt.Errorf("%w: could not bind %s: %v", adapterr.ErrIO, path, err))
		return
	}
	conn, ok := pc.(*net.UnixConn)
	if !ok {
		reportFatal(ctx, errs, fmt.Errorf("%w: unexpected listener type for %s", adapterr.ErrIO, path))
		return
	}
	defer conn.Close()

	bufSize := recvBufferSize(conn)

	logger.Infof("uds receiver: ready, listening on %s, buffer size %d", path, bufSize)
	select {
	case ready <- struct{}{}:
	case <-ctx.Done():
		shutdownConn(conn)
		return
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			shutdownConn(conn)
		case <-done:
		}
	}()

	buf := make([]byte, bufSize)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			reportFatal(ctx, errs, fmt.Errorf("%w: reading datagram: %v", adapterr.ErrIO, err))
			return
		}

		data := buf[:n]
		if !utf8.Valid(data) {
			reportFatal(ctx, errs, fmt.Errorf("%w: datagram is not valid UTF-8", adapterr.ErrParse))
			return
		}

		stop, err := handleDatagram(ctx, cell, string(data), snap.Echo, events, configChanges)
		if stop {
			return
		}
		if err != nil {
			reportFatal(ctx, errs, err)
			return
		}
	}
}

func handleDatagram(ctx context.Context, cell *cfg.Cell, text string, echo bool, events chan<- event.Event, configChanges chan<- cfg.ConfigurationChange) (stop bool, err error) {
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		msg, err := message.Parse(line)
		if err != nil {
			return false, fmt.Errorf("%w: %v", adapterr.ErrParse, err)
		}
		if echo {
			fmt.Fprintln(os.Stdout, message.Encode(msg))
		}
		stop, err := dispatch(ctx, cell, msg, events, configChanges)
		if stop || err != nil {
			return stop, err
		}
	}
	return false, nil
}

// dispatch implements the message-to-side-effect table of spec.md §4.1.
func dispatch(ctx context.Context, cell *cfg.Cell, msg message.Message, events chan<- event.Event, configChanges chan<- cfg.ConfigurationChange) (stop bool, err error) {
	switch msg.Kind {
	case message.Ready:
		return sendEvent(ctx, events, event.Ready)
	case message.Reloading:
		return sendEvent(ctx, events, event.Reloading)
	case message.Stopping:
		return sendEvent(ctx, events, event.Stopping)
	case message.Errno:
		return sendEvent(ctx, events, event.ErrorNumber)
	case message.BusError:
		return sendEvent(ctx, events, event.BusError)
	case message.WatchdogKeepAlive:
		return sendEvent(ctx, events, event.Watchdog)
	case message.WatchdogTrigger:
		return sendEvent(ctx, events, event.WatchdogTrigger)
	case message.WatchdogUsec:
		return sendConfigChange(ctx, configChanges, cfg.ConfigurationChange{Kind: cfg.WatchdogTimeout, Value: msg.Seconds})
	case message.ExtendTimeoutUsec:
		current := cell.Snapshot().UnitTimeoutStartSec
		newTotal := current + msg.Seconds
		return sendConfigChange(ctx, configChanges, cfg.ConfigurationChange{Kind: cfg.StartupTimeout, Value: newTotal})
	default:
		// MONOTONIC_USEC, STATUS, NOTIFYACCESS, EXIT_STATUS, MAINPID,
		// FDSTORE, FDSTOREREMOVE, FDNAME, FDPOLL, BARRIER: accepted,
		// ignored.
		return false, nil
	}
}

func sendEvent(ctx context.Context, events chan<- event.Event, e event.Event) (bool, error) {
	select {
	case events <- e:
		return false, nil
	case <-ctx.Done():
		return true, nil
	}
}

func sendConfigChange(ctx context.Context, changes chan<- cfg.ConfigurationChange, c cfg.ConfigurationChange) (bool, error) {
	select {
	case changes <- c:
		return false, nil
	case <-ctx.Done():
		return true, nil
	}
}

func reportFatal(ctx context.Context, errs chan<- error, err error) {
	logger.Errorf("uds receiver: %v", err)
	select {
	case errs <- err:
	case <-ctx.Done():
	}
}

// shutdownConn half-closes conn for both read and write, per spec.md
// §4.1, before the caller closes it outright via defer.
func shutdownConn(conn *net.UnixConn) {
	_ = conn.CloseRead()
	_ = conn.CloseWrite()
}
