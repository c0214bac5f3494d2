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
	"regexp"
	"time"

	"github.com/Conshmea/EddnRelay/pkg/document"
)

// Parse builds a Predicate tree from a declarative description, as
// produced by decoding the JSON grammar in spec.md §6. Construction
// errors (unknown type, missing field, invalid regex or date bound)
// are returned rather than deferred to evaluation time.
func Parse(desc map[string]interface{}) (*Predicate, error) {
	rawType, ok := desc["type"].(string)
	if !ok {
		return nil, fmt.Errorf("predicate: missing or non-string %q field", "type")
	}

	switch Kind(rawType) {
	case KindExists:
		path, err := requirePath(desc)
		if err != nil {
			return nil, err
		}

		return &Predicate{Kind: KindExists, Path: path}, nil

	case KindExact:
		path, err := requirePath(desc)
		if err != nil {
			return nil, err
		}

		value, ok := desc["value"]
		if !ok {
			return nil, fmt.Errorf("predicate: exact condition missing %q field", "value")
		}

		return &Predicate{Kind: KindExact, Path: path, Value: value}, nil

	case KindRegex:
		path, err := requirePath(desc)
		if err != nil {
			return nil, err
		}

		pattern, ok := desc["pattern"].(string)
		if !ok {
			return nil, fmt.Errorf("predicate: regex condition missing %q field", "pattern")
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("predicate: invalid regex %q: %w", pattern, err)
		}

		return &Predicate{Kind: KindRegex, Path: path, Pattern: pattern, regex: re}, nil

	case KindRange:
		path, err := requirePath(desc)
		if err != nil {
			return nil, err
		}

		min, max, err := numericBounds(desc)
		if err != nil {
			return nil, err
		}

		return &Predicate{Kind: KindRange, Path: path, Min: min, Max: max}, nil

	case KindDateRange:
		path, err := requirePath(desc)
		if err != nil {
			return nil, err
		}

		min, max, err := dateBounds(desc)
		if err != nil {
			return nil, err
		}

		return &Predicate{Kind: KindDateRange, Path: path, MinTime: min, MaxTime: max}, nil

	case KindAll, KindAny, KindNot:
		children, err := requireChildren(desc)
		if err != nil {
			return nil, err
		}

		return &Predicate{Kind: Kind(rawType), Children: children}, nil

	default:
		return nil, fmt.Errorf("predicate: unknown condition type %q", rawType)
	}
}

func requirePath(desc map[string]interface{}) (document.Path, error) {
	raw, ok := desc["path"].(string)
	if !ok {
		return nil, fmt.Errorf("predicate: condition missing %q field", "path")
	}

	path, err := document.ParsePath(raw)
	if err != nil {
		return nil, fmt.Errorf("predicate: %w", err)
	}

	return path, nil
}

func requireChildren(desc map[string]interface{}) ([]*Predicate, error) {
	raw, ok := desc["conditions"]
	if !ok {
		return nil, fmt.Errorf("predicate: composite condition missing %q field", "conditions")
	}

	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("predicate: %q must be a list", "conditions")
	}

	children := make([]*Predicate, 0, len(list))

	for i, item := range list {
		childDesc, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("predicate: condition %d is not an object", i)
		}

		child, err := Parse(childDesc)
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	return children, nil
}

func numericBounds(desc map[string]interface{}) (min, max *float64, err error) {
	if raw, ok := desc["min_value"]; ok {
		f, ok := asFloat(raw)
		if !ok {
			return nil, nil, fmt.Errorf("predicate: %q must be numeric", "min_value")
		}

		min = &f
	}

	if raw, ok := desc["max_value"]; ok {
		f, ok := asFloat(raw)
		if !ok {
			return nil, nil, fmt.Errorf("predicate: %q must be numeric", "max_value")
		}

		max = &f
	}

	return min, max, nil
}

func dateBounds(desc map[string]interface{}) (min, max *time.Time, err error) {
	if raw, ok := desc["min_value"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, nil, fmt.Errorf("predicate: %q must be a string", "min_value")
		}

		t, err := parseISO8601(s)
		if err != nil {
			return nil, nil, fmt.Errorf("predicate: invalid %q: %w", "min_value", err)
		}

		min = &t
	}

	if raw, ok := desc["max_value"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, nil, fmt.Errorf("predicate: %q must be a string", "max_value")
		}

		t, err := parseISO8601(s)
		if err != nil {
			return nil, nil, fmt.Errorf("predicate: invalid %q: %w", "max_value", err)
		}

		max = &t
	}

	return min, max, nil
}

// Describe renders the Predicate back into the declarative description
// grammar it was built from. Parsing Describe's output reconstructs an
// equivalent Predicate, satisfying the round-trip property in spec.md
// §8.
func (p *Predicate) Describe() map[string]interface{} {
	desc := map[string]interface{}{"type": string(p.Kind)}

	switch p.Kind {
	case KindExists:
		desc["path"] = p.Path.String()

	case KindExact:
		desc["path"] = p.Path.String()
		desc["value"] = p.Value

	case KindRegex:
		desc["path"] = p.Path.String()
		desc["pattern"] = p.Pattern

	case KindRange:
		desc["path"] = p.Path.String()

		if p.Min != nil {
			desc["min_value"] = *p.Min
		}

		if p.Max != nil {
			desc["max_value"] = *p.Max
		}

	case KindDateRange:
		desc["path"] = p.Path.String()

		if p.MinTime != nil {
			desc["min_value"] = p.MinTime.UTC().Format(iso8601Layout)
		}

		if p.MaxTime != nil {
			desc["max_value"] = p.MaxTime.UTC().Format(iso8601Layout)
		}

	case KindAll, KindAny, KindNot:
		conditions := make([]interface{}, len(p.Children))
		for i, c := range p.Children {
			conditions[i] = c.Describe()
		}

		desc["conditions"] = conditions
	}

	return desc
}
