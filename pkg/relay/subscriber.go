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

// Package relay maintains the set of active subscribers, evaluates
// every ingested event against each subscriber's current predicate,
// and fans matching events out to the subscribers whose predicate
// matched.
package relay

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Conshmea/EddnRelay/pkg/predicate"
)

// State is a point in a Subscriber's lifecycle.
type State int

const (
	// Opening is the state a Subscriber is created in, before it has
	// been added to a Registry.
	Opening State = iota

	// Active is normal operation: the subscriber receives matching
	// events and may replace its predicate.
	Active

	// Closing is entered on channel error, client disconnect, or a
	// malformed predicate update. Pending sends are abandoned.
	Closing

	// Terminal is reached once the subscriber has been removed from
	// its Registry and its resources released.
	Terminal
)

// outboxSize bounds the number of serialized events a subscriber can
// have queued before the fan-out sweep gives up on it. There is no
// value named in the external contract; this is sized generously
// enough to absorb a burst without ever blocking the sweep.
const outboxSize = 256

// Channel is the transport-agnostic delivery surface a Subscriber
// writes matched events to and receives predicate updates from. A
// WebSocket connection implements it via pkg/transport.
type Channel interface {
	// Send delivers a single serialized event to the remote end. An
	// error return moves the subscriber to Closing.
	Send(message []byte) error

	// Close tears down the underlying connection.
	Close() error
}

// Subscriber is one active channel's registration: its lifecycle
// state, current predicate, and outbound delivery queue.
type Subscriber struct {
	ID      uuid.UUID
	channel Channel

	state int32 // atomic, holds a State

	predicate atomic.Pointer[predicate.Predicate]

	outbox   chan []byte
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// stopDelivery signals run to exit, safe to call more than once or
// concurrently with run's own send-failure path.
func (s *Subscriber) stopDelivery() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// newSubscriber builds a Subscriber in the Opening state with the
// default predicate All[], as spec.md §4.3 requires.
func newSubscriber(channel Channel) *Subscriber {
	s := &Subscriber{
		ID:      uuid.New(),
		channel: channel,
		outbox:  make(chan []byte, outboxSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	s.predicate.Store(predicate.NewAll())
	atomic.StoreInt32(&s.state, int32(Opening))

	return s
}

// State returns the subscriber's current lifecycle state.
func (s *Subscriber) State() State {
	return State(atomic.LoadInt32(&s.state))
}

func (s *Subscriber) setState(state State) {
	atomic.StoreInt32(&s.state, int32(state))
}

// Predicate returns the subscriber's current predicate. Safe to call
// concurrently with UpdatePredicate and fan-out evaluation.
func (s *Subscriber) Predicate() *predicate.Predicate {
	return s.predicate.Load()
}

// UpdatePredicate installs p as the subscriber's current predicate
// with a single atomic pointer swap: no event is ever evaluated
// against a partially constructed predicate, per spec.md §3.
func (s *Subscriber) UpdatePredicate(p *predicate.Predicate) {
	s.predicate.Store(p)
}

// enqueue attempts, exactly once, to place message on the
// subscriber's outbox. A subscriber no longer Active is skipped; a
// full outbox moves it to Closing rather than blocking the fan-out sweep,
// satisfying the "slow subscribers do not delay delivery... beyond
// one send attempt" property (spec.md §8 item 6).
func (s *Subscriber) enqueue(message []byte) {
	if s.State() != Active {
		return
	}

	select {
	case s.outbox <- message:
	default:
		s.setState(Closing)
		s.stopDelivery()
	}
}

// run drains the outbox, writing each message to the channel, until
// the subscriber is stopped. It is the only goroutine that calls
// Channel.Send, so a slow or failing Send never blocks the fan-out
// sweep (which only enqueues).
func (s *Subscriber) run(send func(message []byte) error) {
	defer close(s.done)

	for {
		select {
		case msg := <-s.outbox:
			if err := send(msg); err != nil {
				s.setState(Closing)
				return
			}
		case <-s.stop:
			return
		}
	}
}
