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

// Package httpserver implements the HTTP health server task (spec.md
// §4.7): three read-only routes over the shared status cell. Modeled
// on the pack's ausocean-cloud cmd/cloudblue HTTP entrypoint, which
// builds a fiber.App, registers routes and serves via app.Listen;
// generalized here from a multi-route product API to a three-route
// health surface with graceful shutdown on cancellation.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"

	"github.com/ShamrockSystems/sd-notify-adapter/adapter/adapterr"
	"github.com/ShamrockSystems/sd-notify-adapter/adapter/status"
)

// shutdownGrace bounds how long graceful shutdown waits for in-flight
// requests to finish.
const shutdownGrace = 5 * time.Second

type healthBody struct {
	Timestamp string `json:"timestamp"`
	Healthz   bool   `json:"healthz"`
	Livez     bool   `json:"livez"`
	Readyz    bool   `json:"readyz"`
}

// Run is the HTTP server task. It binds 0.0.0.0:port, serves /healthz,
// /livez and /readyz, and shuts down gracefully when ctx is cancelled.
func Run(ctx context.Context, cell *status.Cell, port int, ready chan<- struct{}, errs chan<- error) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	register(app, cell, "/healthz", func(s status.Status) bool { return s.Healthz })
	register(app, cell, "/livez", func(s status.Status) bool { return s.Livez })
	register(app, cell, "/readyz", func(s status.Status) bool { return s.Readyz })

	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		reportFatal(ctx, errs, fmt.Errorf("%w: could not bind HTTP port %d: %v", adapterr.ErrIO, port, err))
		return
	}

	logger.Infof("http server: ready, listening on 0.0.0.0:%d", port)
	select {
	case ready <- struct{}{}:
	case <-ctx.Done():
		ln.Close()
		return
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Listener(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Warningf("http server: graceful shutdown error: %v", err)
		}
		<-serveErr
	case err := <-serveErr:
		if err != nil {
			reportFatal(ctx, errs, fmt.Errorf("%w: %v", adapterr.ErrIO, err))
		}
	}
}

func register(app *fiber.App, cell *status.Cell, path string, pick func(status.Status) bool) {
	app.Get(path, func(c *fiber.Ctx) error {
		snap := cell.Snapshot()
		body := healthBody{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Healthz:   snap.Healthz,
			Livez:     snap.Livez,
			Readyz:    snap.Readyz,
		}
		code := fiber.StatusServiceUnavailable
		if pick(snap) {
			code = fiber.StatusOK
		}
		return c.Status(code).JSON(body)
	})
}

func reportFatal(ctx context.Context, errs chan<- error, err error) {
	logger.Errorf("http server: %v", err)
	select {
	case errs <- err:
	case <-ctx.Done():
	}
}
