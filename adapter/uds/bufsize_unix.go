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

//go:build unix

package uds

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/GoogleCloudPlatform/guest-logging-go/logger"
)

// recvBufferSize queries the kernel receive-buffer size of conn's
// underlying socket, as spec.md §4.1 requires, and uses it as the
// per-datagram read buffer size.
func recvBufferSize(conn *net.UnixConn) int {
	raw, err := conn.SyscallConn()
	if err != nil {
		logger.Warningf("uds receiver: could not obtain raw socket to query SO_RCVBUF, falling back to default buffer size: %v", err)
		return defaultBufferSize
	}

	var size int
	var sockoptErr error
	if err := raw.Control(func(fd uintptr) {
		size, sockoptErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF)
	}); err != nil {
		logger.Warningf("uds receiver: could not query SO_RCVBUF, falling back to default buffer size: %v", err)
		return defaultBufferSize
	}
	if sockoptErr != nil {
		logger.Warningf("uds receiver: getsockopt(SO_RCVBUF) failed, falling back to default buffer size: %v", sockoptErr)
		return defaultBufferSize
	}
	if size <= 0 {
		return defaultBufferSize
	}
	return size
}
