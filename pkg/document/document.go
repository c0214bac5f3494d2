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

package document

// Document is a decoded structured value: a mapping from string keys
// to Documents, an ordered sequence of Documents, or a scalar (string,
// float64, bool or nil, exactly as encoding/json decodes into
// interface{}). It has no dedicated type of its own; Go's dynamic
// typing over interface{} already models the sum type spec describes.
type Document = interface{}

// Resolve looks up path inside doc following spec's path resolution
// algorithm:
//
//   - the empty path resolves to doc itself;
//   - a map resolves by descending into the first segment's value;
//   - a slice resolves existentially: the remaining path is tried
//     against every element, and resolution succeeds if any of them
//     succeed. This lets a path traverse more than one nested slice.
//   - anything else fails to resolve.
func Resolve(doc Document, path Path) (Document, bool) {
	if len(path) == 0 {
		return doc, true
	}

	switch v := doc.(type) {
	case map[string]interface{}:
		next, ok := v[path[0]]
		if !ok {
			return nil, false
		}

		return Resolve(next, path[1:])

	case []interface{}:
		for _, item := range v {
			if resolved, ok := Resolve(item, path); ok {
				return resolved, true
			}
		}

		return nil, false

	default:
		return nil, false
	}
}
