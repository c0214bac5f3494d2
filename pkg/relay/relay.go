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

package relay

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Conshmea/EddnRelay/pkg/document"
	"github.com/Conshmea/EddnRelay/pkg/predicate"
	"github.com/Conshmea/EddnRelay/pkg/status"
)

// updateMessage is the predicate-update envelope a subscriber sends
// inbound, per spec.md §4.3/§6.
type updateMessage struct {
	Type   string                 `json:"type"`
	Filter map[string]interface{} `json:"filter"`
}

// Relay is the registry of active subscribers and the fan-out
// pipeline that evaluates ingested events against them. The zero
// value is not usable; construct with New.
type Relay struct {
	log *logrus.Entry

	subscribers sync.Map // uuid.UUID -> *Subscriber
}

// New builds a Relay that logs through log.
func New(log *logrus.Entry) *Relay {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Relay{log: log}
}

// Register adds channel to the subscriber set with the default
// predicate and blocks until the channel is closed, per spec.md
// §4.3's register contract. On return the subscriber has been
// removed and its resources released. Callers run Register in its
// own goroutine, one per channel.
func (r *Relay) Register(channel Channel) {
	r.RegisterAndReport(channel, nil)
}

// RegisterAndReport behaves like Register, additionally sending the
// newly-created Subscriber on report (if non-nil) as soon as it is
// installed, before blocking for the channel's lifetime. This lets a
// transport handler that needs the Subscriber handle (to forward
// inbound predicate updates) obtain it without a second registry
// lookup.
func (r *Relay) RegisterAndReport(channel Channel, report chan<- *Subscriber) {
	sub := newSubscriber(channel)
	sub.setState(Active)

	r.subscribers.Store(sub.ID, sub)
	r.log.WithField("subscriber", sub.ID).Debug("subscriber registered")

	if report != nil {
		report <- sub
	}

	defer func() {
		r.subscribers.Delete(sub.ID)
		sub.setState(Terminal)

		if err := channel.Close(); err != nil {
			r.log.WithError(err).WithField("subscriber", sub.ID).Debug("error closing subscriber channel")
		}

		r.log.WithField("subscriber", sub.ID).Debug("subscriber removed")
	}()

	sub.run(channel.Send)
}

// UpdatePredicate parses raw as a predicate-update message and
// installs the resulting predicate on sub. An unknown top-level
// "type" is logged and ignored, per spec.md §4.3. A malformed filter
// description is a Construction error and closes the subscriber.
func (r *Relay) UpdatePredicate(sub *Subscriber, raw []byte) error {
	var msg updateMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		closeSubscriber(sub)
		return status.Wrap(status.Construction, err)
	}

	if msg.Type != "filter" {
		r.log.WithFields(logrus.Fields{
			"subscriber": sub.ID,
			"type":       msg.Type,
		}).Warn("ignoring subscriber message with unknown type")

		return nil
	}

	p, err := predicate.Parse(msg.Filter)
	if err != nil {
		closeSubscriber(sub)
		return status.Wrap(status.Construction, err)
	}

	sub.UpdatePredicate(p)

	return nil
}

// Close moves sub to Closing and stops its delivery goroutine, per
// spec.md §4.3's "Closing → on channel error, client disconnect, or
// malformed predicate update". Register's deferred cleanup performs
// the actual removal from the registry. Callers outside this package
// use this to report a channel error or client disconnect observed
// on their side of the channel (a malformed predicate update is
// handled internally by UpdatePredicate).
func (r *Relay) Close(sub *Subscriber) {
	closeSubscriber(sub)
}

// closeSubscriber moves sub to Closing and stops its delivery
// goroutine; Register's deferred cleanup performs the actual removal.
func closeSubscriber(sub *Subscriber) {
	sub.setState(Closing)
	sub.stopDelivery()
}

// ProcessEvent serializes event once and fans it out to every
// currently Active subscriber whose predicate matches. The sweep
// order is unspecified; subscribers registered or removed mid-sweep
// are handled per spec.md §4.3 (a concurrently-registered subscriber
// need not receive this event; a concurrent predicate update may be
// observed in either its pre- or post-update form).
func (r *Relay) ProcessEvent(event document.Document) error {
	encoded, err := json.Marshal(event)
	if err != nil {
		return status.Wrap(status.Protocol, err)
	}

	r.subscribers.Range(func(_, value interface{}) bool {
		sub := value.(*Subscriber)

		if sub.State() != Active {
			return true
		}

		if sub.Predicate().Evaluate(event) {
			sub.enqueue(encoded)
		}

		return true
	})

	return nil
}

// Count returns the number of subscribers currently tracked,
// regardless of lifecycle state. Exposed for diagnostics/tests.
func (r *Relay) Count() int {
	n := 0

	r.subscribers.Range(func(_, _ interface{}) bool {
		n++
		return true
	})

	return n
}

// Lookup returns the subscriber registered under id, if any.
func (r *Relay) Lookup(id uuid.UUID) (*Subscriber, bool) {
	v, ok := r.subscribers.Load(id)
	if !ok {
		return nil, false
	}

	return v.(*Subscriber), true
}
