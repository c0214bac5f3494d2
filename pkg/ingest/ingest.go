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

// Package ingest runs the long-lived loop that pulls frames from the
// upstream event source, decompresses and decodes them, and dispatches
// the decoded events to the relay and, if enabled, the retention
// store.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/sirupsen/logrus"

	"github.com/Conshmea/EddnRelay/pkg/document"
	"github.com/Conshmea/EddnRelay/pkg/driver"
	"github.com/Conshmea/EddnRelay/pkg/status"
)

// backoff is the fixed pause after a malformed frame or socket error,
// per spec.md §4.2.
const backoff = 5 * time.Second

// reportEveryMessages and reportEveryErrors gate the rolling-counter log
// lines, per spec.md §4.2.
const (
	reportEveryMessages = 10000
	reportEveryErrors   = 10
)

// EventSink receives a decoded event for fan-out. *relay.Relay
// satisfies it.
type EventSink interface {
	ProcessEvent(event document.Document) error
}

// RetentionSink receives a decoded event for bounded retention.
// *driver.MongoStore (via retention.Store) satisfies it.
type RetentionSink interface {
	StoreEvent(ctx context.Context, event document.Document) error
}

// Ingestor runs the ingest loop described in spec.md §4.2.
type Ingestor struct {
	upstream  driver.Upstream
	timeout   time.Duration
	relay     EventSink
	retention RetentionSink // nil disables retention dispatch
	log       *logrus.Entry

	messages uint64
	errors   uint64

	backoff time.Duration
}

// New builds an Ingestor. retention may be nil to disable the
// retention dispatch path.
func New(upstream driver.Upstream, timeout time.Duration, relay EventSink, retention RetentionSink, log *logrus.Entry) *Ingestor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Ingestor{
		upstream:  upstream,
		timeout:   timeout,
		relay:     relay,
		retention: retention,
		log:       log,
		backoff:   backoff,
	}
}

// Run executes the ingest loop until ctx is cancelled, then closes
// the upstream connection and returns nil. Data and socket errors are
// counted, logged and absorbed internally; none is returned.
func (i *Ingestor) Run(ctx context.Context) error {
	defer func() {
		if err := i.upstream.Close(); err != nil {
			i.log.WithError(err).Warn("error closing upstream connection")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := i.upstream.Receive(i.timeout)
		switch {
		case errors.Is(err, driver.ErrTimeout):
			continue
		case err != nil:
			i.recordError(status.Wrap(status.Protocol, err))
			i.sleepOrDone(ctx)

			continue
		}

		if len(frame) == 0 {
			continue
		}

		event, err := decode(frame)
		if err != nil {
			i.recordError(status.Wrap(status.Protocol, err))
			i.sleepOrDone(ctx)

			continue
		}

		i.dispatch(ctx, event)
		i.recordMessage()
	}
}

// dispatch forwards event to the relay and, if enabled, the retention
// store. A retention failure is logged and drops the event from
// retention only; it never aborts ingestion.
func (i *Ingestor) dispatch(ctx context.Context, event document.Document) {
	if err := i.relay.ProcessEvent(event); err != nil {
		i.log.WithError(err).Warn("error fanning out event")
	}

	if i.retention == nil {
		return
	}

	if err := i.retention.StoreEvent(ctx, event); err != nil {
		i.log.WithError(err).WithField("class", status.Retention).Warn("error storing event for retention")
	}
}

// decode inflates a DEFLATE-compressed frame and decodes its JSON
// content.
func decode(frame []byte) (document.Document, error) {
	r := flate.NewReader(bytes.NewReader(frame))
	defer r.Close()

	inflated, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var event document.Document
	if err := json.Unmarshal(inflated, &event); err != nil {
		return nil, err
	}

	return event, nil
}

func (i *Ingestor) sleepOrDone(ctx context.Context) {
	select {
	case <-time.After(i.backoff):
	case <-ctx.Done():
	}
}

// sleepOverride shortens the post-error back-off; used only by
// tests that need to observe recovery without waiting out the real
// 5-second interval.
func (i *Ingestor) sleepOverride(d time.Duration) {
	i.backoff = d
}

func (i *Ingestor) recordMessage() {
	i.messages++

	if i.messages%reportEveryMessages == 0 {
		i.log.WithField("messages", i.messages).Info("ingest progress")
	}
}

func (i *Ingestor) recordError(err error) {
	i.errors++

	i.log.WithError(err).Error("error ingesting frame")

	if i.errors%reportEveryErrors == 0 {
		i.log.WithField("errors", i.errors).Warn("ingest error count")
	}
}
