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

// Package retention defines the bounded-time event cache contract.
// The query planner (pkg/predicate.ToMongo) and the backing
// implementation (pkg/driver.MongoStore) are decoupled through the
// Store interface so callers such as the query endpoint can be
// exercised against a fake store without a live database.
package retention

import (
	"context"
	"time"

	"github.com/Conshmea/EddnRelay/pkg/document"
	"github.com/Conshmea/EddnRelay/pkg/predicate"
)

// Query describes a historical lookup against the retained event set.
type Query struct {
	Filter         *predicate.Predicate
	AfterTimestamp *time.Time
	MaxItems       *int
}

// Store retains ingested events for a bounded window and answers
// predicate queries over the retained set, per spec.md §4.4.
type Store interface {
	// Initialize ensures the backing indexes exist: an age-based
	// expiry index on the ingestion timestamp and a descending index
	// to support sorted range queries. Failure here is fatal to
	// startup.
	Initialize(ctx context.Context) error

	// StoreEvent derives the ingestion timestamp from event (payload
	// timestamp if present, else gateway timestamp), normalizes naive
	// timestamps to UTC, and inserts the augmented record. Failure
	// here is logged and drops the event from retention only; it is
	// never fatal to ingestion.
	StoreEvent(ctx context.Context, event document.Document) error

	// Query translates q.Filter to a backend query, conjoins
	// AfterTimestamp if set, sorts newest first, applies MaxItems if
	// set, and strips backend-internal fields from each result.
	Query(ctx context.Context, q Query) ([]document.Document, error)
}
