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

// Package transport exposes the relay's subscriber channel and
// historical query endpoint over HTTP/WebSocket, using gorilla/mux
// for routing and gorilla/websocket for the subscriber channel.
package transport

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Conshmea/EddnRelay/pkg/relay"
)

// upgrader accepts any origin: the subscriber channel carries no
// authentication (spec.md's explicit Non-goal), so origin checking
// adds no real boundary.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsChannel adapts a gorilla/websocket connection to relay.Channel.
type wsChannel struct {
	conn *websocket.Conn
}

func (w *wsChannel) Send(message []byte) error {
	return w.conn.WriteMessage(websocket.TextMessage, message)
}

func (w *wsChannel) Close() error {
	return w.conn.Close()
}

// subscriberHandler upgrades the request to a WebSocket connection,
// registers it with the relay, and pumps inbound predicate-update
// messages to the relay until the connection closes. Register blocks
// for the channel's lifetime, so it runs in its own goroutine, per
// spec.md §5's "each subscriber runs as one long-lived task".
func (s *Server) subscriberHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	channel := &wsChannel{conn: conn}

	registered := make(chan *relay.Subscriber, 1)

	go func() {
		defer close(registered)
		s.relay.RegisterAndReport(channel, registered)
	}()

	sub, ok := <-registered
	if !ok || sub == nil {
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.log.WithError(err).WithField("subscriber", sub.ID).Debug("subscriber channel closed")
			s.relay.Close(sub)

			return
		}

		if err := s.relay.UpdatePredicate(sub, raw); err != nil {
			s.log.WithError(err).WithField("subscriber", sub.ID).Debug("rejected subscriber predicate update")
			return
		}
	}
}
