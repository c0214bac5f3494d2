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

// Package predicate implements the tree of conditions evaluated
// against ingested events: a tagged-variant predicate with a pure
// evaluator, a constructor from a declarative JSON description, and a
// translator to a MongoDB query fragment that the retention store's
// query planner reuses.
package predicate

import (
	"regexp"
	"time"

	"github.com/Conshmea/EddnRelay/pkg/document"
)

// Kind identifies a predicate variant.
type Kind string

// The predicate variants from spec.md §3.
const (
	KindExists    Kind = "exists"
	KindExact     Kind = "exact"
	KindRegex     Kind = "regex"
	KindRange     Kind = "range"
	KindDateRange Kind = "daterange"
	KindAll       Kind = "all"
	KindAny       Kind = "any"
	KindNot       Kind = "not"
)

// Predicate is a single node in the predicate tree. Only the fields
// relevant to Kind are populated; evaluation never inspects a field
// outside its variant.
type Predicate struct {
	Kind Kind

	// Exists, Exact, Regex, Range, DateRange.
	Path document.Path

	// Exact.
	Value interface{}

	// Regex.
	Pattern string
	regex   *regexp.Regexp

	// Range.
	Min *float64
	Max *float64

	// DateRange.
	MinTime *time.Time
	MaxTime *time.Time

	// All, Any, Not.
	Children []*Predicate
}

// NewAll returns a conjunction predicate. An empty set of children
// matches everything.
func NewAll(children ...*Predicate) *Predicate {
	return &Predicate{Kind: KindAll, Children: children}
}

// NewAny returns a disjunction predicate. An empty set of children
// matches nothing.
func NewAny(children ...*Predicate) *Predicate {
	return &Predicate{Kind: KindAny, Children: children}
}

// NewNot returns a negation of the disjunction of its children. An
// empty set of children matches everything (the negation of "matches
// nothing").
func NewNot(children ...*Predicate) *Predicate {
	return &Predicate{Kind: KindNot, Children: children}
}
