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
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Seconds is a tagged non-negative real number of seconds. The sentinel
// value Inf (positive infinity) means "disabled" wherever a Seconds
// value denotes a deadline. Equality is exact float comparison: values
// only ever change via explicit writes from the config writer, so bit
// patterns are stable across reads (see spec.md open question 4).
type Seconds float64

// Inf is the "disabled" sentinel.
const Inf Seconds = Seconds(math.Inf(1))

// FromMicros converts a microsecond count, as carried on the wire by
// WATCHDOG_USEC, EXTEND_TIMEOUT_USEC and MONOTONIC_USEC, to Seconds.
func FromMicros(usec int64) Seconds {
	return Seconds(float64(usec) / 1_000_000.0)
}

// Micros converts back to a microsecond count, rounded to the nearest
// integer. It is the exact inverse of FromMicros for values that began
// life as an integer microsecond count.
func (s Seconds) Micros() int64 {
	return int64(math.Round(float64(s) * 1_000_000.0))
}

// IsInf reports whether s is the disabled sentinel.
func (s Seconds) IsInf() bool {
	return math.IsInf(float64(s), 1)
}

// Duration converts s to a time.Duration. Calling Duration on Inf
// produces the largest representable duration; callers that need to
// special-case "disabled" should check IsInf first.
func (s Seconds) Duration() time.Duration {
	if s.IsInf() {
		return time.Duration(math.MaxInt64)
	}
	if s < 0 {
		return 0
	}
	return time.Duration(float64(s) * float64(time.Second))
}

// String renders s the way configuration and log lines expect: "inf"
// for the disabled sentinel, otherwise the decimal seconds value.
func (s Seconds) String() string {
	if s.IsInf() {
		return "inf"
	}
	return strconv.FormatFloat(float64(s), 'g', -1, 64)
}

// ParseSeconds parses a configuration value into Seconds. "inf" and
// "infinity" (case-insensitive), with or without a leading "+", parse to
// the disabled sentinel; anything else must be a non-negative decimal
// number.
func ParseSeconds(value string) (Seconds, error) {
	trimmed := strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimPrefix(trimmed, "+")) {
	case "inf", "infinity":
		return Inf, nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds value %q: %w", value, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("invalid seconds value %q: must be non-negative", value)
	}
	return Seconds(f), nil
}
