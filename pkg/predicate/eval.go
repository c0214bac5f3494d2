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

package predicate

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Conshmea/EddnRelay/pkg/document"
)

// iso8601Layout is the canonical rendering used by Describe and the
// layout parseISO8601 tries first, since it is what ingested events
// and stored predicates both use almost universally.
const iso8601Layout = "2006-01-02T15:04:05Z"

// iso8601Layouts are tried in order; a bare date or a timestamp
// carrying fractional seconds or an explicit offset are all accepted,
// matching the range of inputs an operator's query tool is likely to
// send.
var iso8601Layouts = []string{
	iso8601Layout,
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseISO8601 parses s against the accepted layouts in turn. A
// timestamp with no zone offset is treated as UTC, not local time.
func parseISO8601(s string) (time.Time, error) {
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("not a recognized ISO-8601 timestamp: %q", s)
}

// asFloat coerces a decoded JSON numeric value to float64. encoding/json
// always decodes numbers as float64 into interface{}, but a predicate
// description built by hand (tests, fixtures) may carry an int, and a
// range predicate accepts a numeric string from an event field too.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

// asTime coerces a resolved document value into a time, accepting
// either an ISO-8601 string or an already-decoded time.Time.
func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		parsed, err := parseISO8601(t)
		if err != nil {
			return time.Time{}, false
		}

		return parsed, true
	default:
		return time.Time{}, false
	}
}

// Evaluate reports whether doc satisfies p, per the per-variant rules
// in spec.md §3/§4.1. Evaluation never panics on a malformed or
// partially-absent document: a missing path, a type mismatch, or an
// uncoercible value all evaluate to false rather than erroring, since
// by the time a predicate runs it has already been validated at
// construction.
func (p *Predicate) Evaluate(doc document.Document) bool {
	result := p.evaluate(doc)

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.WithFields(logrus.Fields{
			"kind":   p.Kind,
			"path":   p.Path.String(),
			"result": result,
		}).Debug("predicate condition evaluated")
	}

	return result
}

func (p *Predicate) evaluate(doc document.Document) bool {
	// A leaf condition branches existentially through lists: it holds
	// if it holds for any element the remaining path can reach.
	if m, ok := doc.(map[string]interface{}); ok && len(p.Path) > 0 {
		next, found := m[p.Path[0]]
		rest := *p
		rest.Path = p.Path[1:]
		return found && rest.evaluate(next)
	}
	if list, ok := doc.([]interface{}); ok && len(p.Path) > 0 {
		for _, item := range list {
			if p.evaluate(item) {
				return true
			}
		}
		return false
	}

	switch p.Kind {
	case KindExists:
		v, ok := document.Resolve(doc, p.Path)
		return ok && v != nil

	case KindExact:
		v, ok := document.Resolve(doc, p.Path)
		if !ok {
			return false
		}

		return exactEqual(v, p.Value)

	case KindRegex:
		v, ok := document.Resolve(doc, p.Path)
		if !ok {
			return false
		}

		s, ok := v.(string)
		if !ok {
			return false
		}

		// Go's regexp.Match is unanchored substring search; spec's
		// match semantics are anchored at the start of the string
		// (like Python's re.match), so the match location is checked
		// rather than its mere existence.
		loc := p.regex.FindStringIndex(s)
		return loc != nil && loc[0] == 0

	case KindRange:
		v, ok := document.Resolve(doc, p.Path)
		if !ok {
			return false
		}

		f, ok := asFloat(v)
		if !ok {
			return false
		}

		if p.Min != nil && f < *p.Min {
			return false
		}

		if p.Max != nil && f > *p.Max {
			return false
		}

		return true

	case KindDateRange:
		v, ok := document.Resolve(doc, p.Path)
		if !ok {
			return false
		}

		t, ok := asTime(v)
		if !ok {
			return false
		}

		if p.MinTime != nil && t.Before(*p.MinTime) {
			return false
		}

		if p.MaxTime != nil && t.After(*p.MaxTime) {
			return false
		}

		return true

	case KindAll:
		for _, child := range p.Children {
			if !child.Evaluate(doc) {
				return false
			}
		}

		return true

	case KindAny:
		for _, child := range p.Children {
			if child.Evaluate(doc) {
				return true
			}
		}

		return false

	case KindNot:
		for _, child := range p.Children {
			if child.Evaluate(doc) {
				return false
			}
		}

		return true

	default:
		return false
	}
}

// exactEqual compares a resolved document value against a predicate's
// literal value. Numeric comparison is float-based so that an int
// literal in a hand-built predicate matches a float64 decoded from
// JSON.
func exactEqual(resolved, want interface{}) bool {
	if rf, ok := asFloat(resolved); ok {
		if wf, ok := asFloat(want); ok {
			return rf == wf
		}
	}

	return reflect.DeepEqual(resolved, want)
}
