// Copyright  Project Contour Authors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.  You may obtain
// a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the
// License for the specific language governing permissions and limitations
// under the License.

package driver

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialUpstreamRejectsNonTCPScheme(t *testing.T) {
	_, err := DialUpstream("http://example.com")
	assert.Error(t, err)
}

func TestTCPUpstreamReceivesLengthPrefixedFrame(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	payload := []byte("hello frame")

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		require.NoError(t, binary.Write(conn, binary.BigEndian, uint32(len(payload))))
		_, _ = conn.Write(payload)
	}()

	up, err := DialUpstream("tcp://" + ln.Addr().String())
	require.NoError(t, err)
	defer up.Close()

	frame, err := up.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, payload, frame)
}

func TestTCPUpstreamReceiveTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(200 * time.Millisecond)
	}()

	up, err := DialUpstream("tcp://" + ln.Addr().String())
	require.NoError(t, err)
	defer up.Close()

	_, err = up.Receive(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}
