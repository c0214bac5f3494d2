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

// Package document models the decoded JSON values predicates are
// evaluated against, and the dot-addressed Path used to reach into
// them.
package document

import (
	"errors"
	"strings"
)

// ErrEmptyPath is returned by ParsePath when given an empty string.
var ErrEmptyPath = errors.New("document: path must have at least one segment")

// Path is an ordered, non-empty sequence of segment names used to
// look up a value nested inside a Document.
type Path []string

// ParsePath splits a dot-joined path string into its segments.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, ErrEmptyPath
	}

	return Path(strings.Split(s, ".")), nil
}

// String renders the path in its dot-joined presentation form.
func (p Path) String() string {
	return strings.Join(p, ".")
}
