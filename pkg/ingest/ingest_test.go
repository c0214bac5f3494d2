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

package ingest

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conshmea/EddnRelay/pkg/document"
	"github.com/Conshmea/EddnRelay/pkg/driver"
)

func deflate(t *testing.T, payload string) []byte {
	t.Helper()

	var buf bytes.Buffer

	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)

	_, err = w.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

// fakeUpstream serves a fixed queue of frames, then ErrTimeout forever.
type fakeUpstream struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeUpstream) Receive(timeout time.Duration) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.frames) == 0 {
		return nil, driver.ErrTimeout
	}

	frame := f.frames[0]
	f.frames = f.frames[1:]

	return frame, nil
}

func (f *fakeUpstream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []document.Document
}

func (r *recordingSink) ProcessEvent(event document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)

	return nil
}

func (r *recordingSink) StoreEvent(ctx context.Context, event document.Document) error {
	return r.ProcessEvent(event)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

func silentLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)

	return logrus.NewEntry(l)
}

func TestIngestorDecodesAndDispatches(t *testing.T) {
	up := &fakeUpstream{frames: [][]byte{
		deflate(t, `{"message":{"event":"Docked"}}`),
		{}, // empty frame, discarded
	}}

	relaySink := &recordingSink{}
	retentionSink := &recordingSink{}

	ing := New(up, 10*time.Millisecond, relaySink, retentionSink, silentLog())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx) }()

	require.Eventually(t, func() bool { return relaySink.count() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, retentionSink.count())

	cancel()
	require.NoError(t, <-done)
	assert.True(t, up.closed)
}

func TestIngestorMalformedFrameDoesNotAbortLoop(t *testing.T) {
	up := &fakeUpstream{frames: [][]byte{
		[]byte("not deflate data"),
		deflate(t, `{"message":{"event":"Scan"}}`),
	}}

	relaySink := &recordingSink{}

	ing := New(up, 10*time.Millisecond, relaySink, nil, silentLog())
	ing.sleepOverride(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx) }()

	require.Eventually(t, func() bool { return relaySink.count() == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, uint64(1), ing.errors)

	cancel()
	<-done
}
