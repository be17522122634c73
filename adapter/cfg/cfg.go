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

// Package cfg is responsible for loading and accessing the adapter's
// runtime configuration. Configuration is sourced entirely from
// environment variables (see spec.md §6); it is loaded once at start-up
// into a package-level Cell that the config writer mutates under lock
// for the remainder of the process lifetime.
package cfg

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ShamrockSystems/sd-notify-adapter/adapter/event"
)

const (
	envNotifySocket             = "NOTIFY_SOCKET"
	envPort                     = "ADAPTER_PORT"
	envEcho                     = "ADAPTER_ECHO"
	envLog                      = "ADAPTER_LOG"
	envChannelSize              = "ADAPTER_CHANNEL_SIZE"
	envInitialLivez             = "ADAPTER_INITIAL_LIVEZ"
	envInitialReadyz            = "ADAPTER_INITIAL_READYZ"
	envAllowWatchdogUsec        = "ADAPTER_ALLOW_MESSAGE_WATCHDOG_USEC"
	envAllowExtendTimeoutUsec   = "ADAPTER_ALLOW_MESSAGE_EXTEND_TIMEOUT_USEC"
	envStatusLivezTrue          = "ADAPTER_STATUS_LIVEZ_TRUE"
	envStatusLivezFalse         = "ADAPTER_STATUS_LIVEZ_FALSE"
	envStatusReadyzTrue         = "ADAPTER_STATUS_READYZ_TRUE"
	envStatusReadyzFalse        = "ADAPTER_STATUS_READYZ_FALSE"
	envStatusShutdown           = "ADAPTER_STATUS_SHUTDOWN"
	envUnitTimeoutStartSec      = "ADAPTER_UNIT_TIMEOUT_START_SEC"
	envUnitWatchdogSec          = "ADAPTER_UNIT_WATCHDOG_SEC"
)

const (
	defaultNotifySocket           = "/var/run/adapter/adapter.sock"
	defaultPort                   = 8089
	defaultEcho                   = true
	defaultLog                    = true
	defaultChannelSize            = 32
	defaultInitialLivez           = false
	defaultInitialReadyz          = false
	defaultAllowWatchdogUsec      = true
	defaultAllowExtendTimeoutUsec = true
	defaultStatusLivezTrue        = "ready,watchdog"
	defaultStatusLivezFalse       = "errno,buserror,watchdog_trigger,watchdog_timeout,start_timeout"
	defaultStatusReadyzTrue       = "ready,watchdog"
	defaultStatusReadyzFalse      = "reloading,stopping,errno,buserror,watchdog_trigger,watchdog_timeout,start_timeout"
	defaultStatusShutdown         = ""
	defaultUnitTimeoutStartSec    = "90"
	defaultUnitWatchdogSec        = "0"
)

// Config holds every runtime-visible setting. Fields are only ever
// mutated through a Cell's writer methods; callers otherwise treat
// Config as a read-only value.
type Config struct {
	NotifySocket string
	Port         int
	Echo         bool
	Log          bool
	ChannelSize  int

	InitialLivez  bool
	InitialReadyz bool

	AllowWatchdogUsec      bool
	AllowExtendTimeoutUsec bool

	StatusLivezTrue   event.Set
	StatusLivezFalse  event.Set
	StatusReadyzTrue  event.Set
	StatusReadyzFalse event.Set
	StatusShutdown    event.Set

	UnitTimeoutStartSec Seconds
	UnitWatchdogSec     Seconds
}

var instance *Cell

// Load reads the environment and stores the resulting configuration as
// the package's singleton instance. It must be called once, early in
// process start-up, before Get is called from any task.
func Load() error {
	c, err := load(os.Getenv)
	if err != nil {
		return fmt.Errorf("cfg: %w", err)
	}
	instance = NewCell(c)
	return nil
}

// Get returns the configuration Cell previously installed by Load.
func Get() *Cell {
	if instance == nil {
		panic("cfg package was not initialized, Load() should be called in the early initialization code path")
	}
	return instance
}

// getenv abstracts os.Getenv so tests can supply a fake environment.
type getenv func(string) string

func load(getenv getenv) (Config, error) {
	var c Config
	var err error

	c.NotifySocket = orDefault(getenv(envNotifySocket), defaultNotifySocket)

	if c.Port, err = parseIntDefault(getenv(envPort), defaultPort); err != nil {
		return c, fmt.Errorf("%s: %w", envPort, err)
	}
	if c.Echo, err = parseBoolDefault(getenv(envEcho), defaultEcho); err != nil {
		return c, fmt.Errorf("%s: %w", envEcho, err)
	}
	if c.Log, err = parseBoolDefault(getenv(envLog), defaultLog); err != nil {
		return c, fmt.Errorf("%s: %w", envLog, err)
	}
	if c.ChannelSize, err = parseIntDefault(getenv(envChannelSize), defaultChannelSize); err != nil {
		return c, fmt.Errorf("%s: %w", envChannelSize, err)
	}
	if c.InitialLivez, err = parseBoolDefault(getenv(envInitialLivez), defaultInitialLivez); err != nil {
		return c, fmt.Errorf("%s: %w", envInitialLivez, err)
	}
	if c.InitialReadyz, err = parseBoolDefault(getenv(envInitialReadyz), defaultInitialReadyz); err != nil {
		return c, fmt.Errorf("%s: %w", envInitialReadyz, err)
	}
	if c.AllowWatchdogUsec, err = parseBoolDefault(getenv(envAllowWatchdogUsec), defaultAllowWatchdogUsec); err != nil {
		return c, fmt.Errorf("%s: %w", envAllowWatchdogUsec, err)
	}
	if c.AllowExtendTimeoutUsec, err = parseBoolDefault(getenv(envAllowExtendTimeoutUsec), defaultAllowExtendTimeoutUsec); err != nil {
		return c, fmt.Errorf("%s: %w", envAllowExtendTimeoutUsec, err)
	}

	if c.StatusLivezTrue, err = event.ParseSet(orDefault(getenv(envStatusLivezTrue), defaultStatusLivezTrue)); err != nil {
		return c, fmt.Errorf("%s: %w", envStatusLivezTrue, err)
	}
	if c.StatusLivezFalse, err = event.ParseSet(orDefault(getenv(envStatusLivezFalse), defaultStatusLivezFalse)); err != nil {
		return c, fmt.Errorf("%s: %w", envStatusLivezFalse, err)
	}
	if c.StatusReadyzTrue, err = event.ParseSet(orDefault(getenv(envStatusReadyzTrue), defaultStatusReadyzTrue)); err != nil {
		return c, fmt.Errorf("%s: %w", envStatusReadyzTrue, err)
	}
	if c.StatusReadyzFalse, err = event.ParseSet(orDefault(getenv(envStatusReadyzFalse), defaultStatusReadyzFalse)); err != nil {
		return c, fmt.Errorf("%s: %w", envStatusReadyzFalse, err)
	}
	if c.StatusShutdown, err = event.ParseSet(orDefault(getenv(envStatusShutdown), defaultStatusShutdown)); err != nil {
		return c, fmt.Errorf("%s: %w", envStatusShutdown, err)
	}

	if c.UnitTimeoutStartSec, err = ParseSeconds(orDefault(getenv(envUnitTimeoutStartSec), defaultUnitTimeoutStartSec)); err != nil {
		return c, fmt.Errorf("%s: %w", envUnitTimeoutStartSec, err)
	}
	if c.UnitWatchdogSec, err = ParseSeconds(orDefault(getenv(envUnitWatchdogSec), defaultUnitWatchdogSec)); err != nil {
		return c, fmt.Errorf("%s: %w", envUnitWatchdogSec, err)
	}

	return c, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseIntDefault(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func parseBoolDefault(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}
