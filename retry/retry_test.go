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

package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testPolicy keeps backoff short enough for tests to run quickly.
var testPolicy = Policy{
	MaxAttempts:   5,
	BackoffFactor: 1,
	Jitter:        time.Millisecond,
}

func TestBindUnixgramSucceedsAfterTransientFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notify.sock")
	var lc net.ListenConfig

	// Simulates the sidecar's socket directory mount lagging behind
	// container start: the first two attempts see a missing directory,
	// the third succeeds once the mount has appeared.
	attempts := 0
	conn, err := BindUnixgram(context.Background(), testPolicy, func() (net.PacketConn, error) {
		attempts++
		if attempts < 3 {
			return nil, fmt.Errorf("mount not ready yet (attempt %d)", attempts)
		}
		return lc.ListenPacket(context.Background(), "unixgram", path)
	})
	if err != nil {
		t.Fatalf("BindUnixgram returned error: %v", err)
	}
	defer conn.Close()

	if attempts != 3 {
		t.Fatalf("bind succeeded after %d attempts, want 3", attempts)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("socket %s was not created: %v", path, statErr)
	}
}

func TestBindUnixgramExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("permission denied")
	attempts := 0

	_, err := BindUnixgram(context.Background(), testPolicy, func() (net.PacketConn, error) {
		attempts++
		return nil, wantErr
	})
	if err == nil {
		t.Fatal("BindUnixgram returned nil error after exhausting attempts")
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("error %v does not wrap the last bind error %v", err, wantErr)
	}
	if attempts != testPolicy.MaxAttempts {
		t.Fatalf("made %d attempts, want %d", attempts, testPolicy.MaxAttempts)
	}
}

func TestBindUnixgramStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	slowPolicy := Policy{MaxAttempts: 10, BackoffFactor: 1, Jitter: time.Hour}

	done := make(chan error, 1)
	go func() {
		_, err := BindUnixgram(ctx, slowPolicy, func() (net.PacketConn, error) {
			return nil, errors.New("socket directory still missing")
		})
		done <- err
	}()

	// Let the first failed attempt happen, then cancel while it's
	// waiting out the (very long) backoff before a retry.
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got error %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("BindUnixgram did not stop after cancellation")
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		name     string
		factor   float64
		attempts int
		jitter   time.Duration
		want     []time.Duration
	}{
		{
			name:     "constant_backoff",
			factor:   1,
			attempts: 5,
			jitter:   time.Duration(10),
			want:     []time.Duration{10, 10, 10, 10, 10},
		},
		{
			name:     "exponential_backoff_2",
			factor:   2,
			attempts: 4,
			jitter:   time.Duration(10),
			want:     []time.Duration{10, 20, 40, 80},
		},
		{
			name:     "exponential_backoff_3",
			factor:   3,
			attempts: 4,
			jitter:   time.Duration(10),
			want:     []time.Duration{10, 30, 90, 270},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := Policy{MaxAttempts: tt.attempts, BackoffFactor: tt.factor, Jitter: tt.jitter}
			for i := 0; i < tt.attempts; i++ {
				if got := backoff(i, policy); got != tt.want[i] {
					t.Errorf("backoff(%d, %+v) = %d, want %d", i, policy, got, tt.want[i])
				}
			}
		})
	}
}
