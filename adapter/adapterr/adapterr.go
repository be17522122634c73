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

// Package adapterr names the fatal error kinds the adapter's tasks can
// report on the shutdown queue. The kinds exist for operator-facing log
// messages only; no caller branches on them beyond errors.Is.
package adapterr

import "errors"

var (
	// ErrConfig marks a configuration error, fatal only at start-up.
	ErrConfig = errors.New("configuration error")
	// ErrIO marks a failure on the datagram socket or HTTP listener.
	ErrIO = errors.New("i/o error")
	// ErrParse marks an unparseable datagram line or invalid UTF-8 payload.
	ErrParse = errors.New("parse error")
	// ErrShutdownEvent marks termination requested via a configured
	// shutdown-classified event.
	ErrShutdownEvent = errors.New("shutdown event")
)
