// Copyright 2024 Google LLC

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     https://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package retry retries binding the adapter's unixgram notification
// socket. A sidecar's mount for the socket directory can briefly lag
// behind container start, so the initial bind gets a few attempts
// with backoff before the UDS receiver gives up and reports fatal.
package retry

import (
	"context"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"
)

// Policy configures the bind retry loop.
type Policy struct {
	// MaxAttempts is the maximum number of bind attempts.
	MaxAttempts int
	// BackoffFactor is the multiplier applied to Jitter after each
	// failed attempt. A factor of 1 gives constant backoff.
	BackoffFactor float64
	// Jitter is the delay before the second attempt.
	Jitter time.Duration
}

// backoff computes the delay before the next bind attempt. For
// instance jitter=10ms and factor=2 gives delays of [10ms, 20ms,
// 40ms, 80ms...].
func backoff(attempt int, policy Policy) time.Duration {
	b := float64(policy.Jitter) * math.Pow(policy.BackoffFactor, float64(attempt))
	return time.Duration(b)
}

// BindUnixgram calls bind until it succeeds, ctx is cancelled, or
// policy's attempts are exhausted. bind is expected to attempt
// net.ListenConfig.ListenPacket("unixgram", ...) or equivalent; any
// error it returns is treated as transient and retried.
func BindUnixgram(ctx context.Context, policy Policy, bind func() (net.PacketConn, error)) (net.PacketConn, error) {
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		conn, err := bind()
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Debugf("retry: bind attempt %d of %d failed: %v", attempt+1, policy.MaxAttempts, err)

		if attempt+1 >= policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(attempt, policy)):
		}
	}
	return nil, fmt.Errorf("exhausted all %d bind attempts, last error: %w", policy.MaxAttempts, lastErr)
}
