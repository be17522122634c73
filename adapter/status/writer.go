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

package status

import (
	"context"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"
)

// RunWriter is the status writer task (spec.md §4.5): the sole task
// that mutates the status cell, applying each inbound Change as a
// single atomic triple.
func RunWriter(ctx context.Context, cell *Cell, changes <-chan Change, ready chan<- struct{}, errs chan<- error) {
	logger.Infof("status writer: ready")
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
			cell.Apply(change)
		}
	}
}
