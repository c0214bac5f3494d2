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
	"encoding/json"
	"net/http"
	"time"

	"github.com/Conshmea/EddnRelay/pkg/predicate"
	"github.com/Conshmea/EddnRelay/pkg/retention"
)

// queryRequest is the POST /messages/24-hour-cache request body, per
// spec.md §6.
type queryRequest struct {
	Filters        map[string]interface{} `json:"filters"`
	AfterTimestamp *string                 `json:"after_timestamp"`
	MaxItems       *int                    `json:"max_items"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// queryHandler implements the historical query endpoint. A
// Construction error (bad filter description, bad timestamp) yields
// HTTP 500 with a JSON error body, per spec.md §6/§7.
func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, "historical query is disabled (USE_STORE is false)")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body: "+err.Error())
		return
	}

	filter, err := predicate.Parse(req.Filters)
	if err != nil {
		writeError(w, err.Error())
		return
	}

	q := retention.Query{Filter: filter, MaxItems: req.MaxItems}

	if req.AfterTimestamp != nil {
		ts, err := time.Parse(time.RFC3339, *req.AfterTimestamp)
		if err != nil {
			writeError(w, "invalid after_timestamp: "+err.Error())
			return
		}

		q.AfterTimestamp = &ts
	}

	events, err := s.store.Query(r.Context(), q)
	if err != nil {
		s.log.WithError(err).Warn("retention query failed")
		writeError(w, "query failed")

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(events); err != nil {
		s.log.WithError(err).Warn("error encoding query response")
	}
}

func writeError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}
