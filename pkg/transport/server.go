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

package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Conshmea/EddnRelay/pkg/relay"
	"github.com/Conshmea/EddnRelay/pkg/retention"
)

// Server is the relay's HTTP/WebSocket transport surface: the `/ws`
// subscriber channel and the `POST /messages/24-hour-cache`
// historical query endpoint, per spec.md §4.5/§6.
type Server struct {
	relay *relay.Relay
	store retention.Store // nil when USE_STORE is disabled
	log   *logrus.Entry

	httpServer *http.Server
}

// NewServer builds a Server bound to addr ("host:port"). store may be
// nil to disable the historical query endpoint.
func NewServer(addr string, r *relay.Relay, store retention.Store, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Server{relay: r, store: store, log: log}

	router := mux.NewRouter()
	router.Use(loggingMiddleware(log))
	router.HandleFunc("/ws", s.subscriberHandler)
	router.HandleFunc("/messages/24-hour-cache", s.queryHandler).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}

		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("transport: error during shutdown: %w", err)
		}

		return <-errCh
	case err := <-errCh:
		return err
	}
}
