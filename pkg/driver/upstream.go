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

// Package driver holds the concrete external-system adapters the
// relay depends on: the upstream event source and the retention
// backend. Both are hidden behind small interfaces (Upstream,
// retention.Store) so the components that use them stay testable
// without a live socket or database.
package driver

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// ErrTimeout is returned by Upstream.Receive when no frame arrives
// within the caller's timeout. It is not a protocol error: the
// ingestor's loop treats it as "nothing to do this iteration".
var ErrTimeout = errors.New("driver: receive timed out")

// Upstream is the inbound event source: a stream of discrete binary
// frames, each a DEFLATE-compressed JSON document, with no framing
// beyond message-oriented delivery (spec.md §4.2).
type Upstream interface {
	// Receive blocks for at most timeout waiting for the next frame.
	// Returns ErrTimeout if none arrives in time.
	Receive(timeout time.Duration) ([]byte, error)

	// Close releases the underlying connection.
	Close() error
}

// tcpUpstream implements Upstream over a raw TCP connection carrying
// 4-byte big-endian length-prefixed frames. This is the Go-idiomatic
// stand-in for the datagram-subscribe delivery boundary a ZeroMQ SUB
// socket gives for free: the length prefix marks where one frame ends
// and the next begins.
type tcpUpstream struct {
	conn net.Conn
	r    *bufio.Reader
}

// DialUpstream parses rawURL (expected scheme "tcp") and dials it,
// returning an Upstream that reads length-prefixed frames.
func DialUpstream(rawURL string) (Upstream, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing upstream url %q", rawURL)
	}

	if u.Scheme != "tcp" {
		return nil, fmt.Errorf("driver: unsupported upstream scheme %q, want \"tcp\"", u.Scheme)
	}

	conn, err := net.Dial("tcp", u.Host)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing upstream %q", u.Host)
	}

	return &tcpUpstream{conn: conn, r: bufio.NewReader(conn)}, nil
}

func (t *tcpUpstream) Receive(timeout time.Duration) ([]byte, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, errors.Wrap(err, "setting read deadline")
	}

	var length uint32
	if err := binary.Read(t.r, binary.BigEndian, &length); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, ErrTimeout
		}

		return nil, errors.Wrap(err, "reading frame length")
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(t.r, frame); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, ErrTimeout
		}

		return nil, errors.Wrap(err, "reading frame body")
	}

	return frame, nil
}

func (t *tcpUpstream) Close() error {
	return t.conn.Close()
}
