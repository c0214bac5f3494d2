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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	p, err := ParsePath("message.event")
	require.NoError(t, err)
	assert.Equal(t, Path{"message", "event"}, p)
	assert.Equal(t, "message.event", p.String())

	_, err = ParsePath("")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestResolveEmptyPath(t *testing.T) {
	doc := map[string]interface{}{"a": 1}
	resolved, ok := Resolve(doc, nil)
	require.True(t, ok)
	assert.Equal(t, doc, resolved)
}

func TestResolveMapDescent(t *testing.T) {
	doc := map[string]interface{}{
		"message": map[string]interface{}{
			"event": "FSDJump",
		},
	}

	v, ok := Resolve(doc, Path{"message", "event"})
	require.True(t, ok)
	assert.Equal(t, "FSDJump", v)

	_, ok = Resolve(doc, Path{"message", "missing"})
	assert.False(t, ok)
}

// TestResolveListExistential is the S3 scenario from spec.md §8: a
// path through a list of maps succeeds if it succeeds against any
// element.
func TestResolveListExistential(t *testing.T) {
	doc := map[string]interface{}{
		"message": map[string]interface{}{
			"Bodies": []interface{}{
				map[string]interface{}{"Name": "A"},
				map[string]interface{}{"Name": "B"},
			},
		},
	}

	v, ok := Resolve(doc, Path{"message", "Bodies", "Name"})
	require.True(t, ok)
	// The existential branch returns the first matching element's value.
	assert.Equal(t, "A", v)

	_, ok = Resolve(doc, Path{"message", "Bodies", "Color"})
	assert.False(t, ok)
}

func TestResolveNestedLists(t *testing.T) {
	doc := map[string]interface{}{
		"groups": []interface{}{
			[]interface{}{
				map[string]interface{}{"id": 1},
				map[string]interface{}{"id": 2},
			},
		},
	}

	_, ok := Resolve(doc, Path{"groups", "id"})
	assert.True(t, ok)
}

func TestResolveScalarShortCircuits(t *testing.T) {
	doc := map[string]interface{}{"a": "scalar"}
	_, ok := Resolve(doc, Path{"a", "b"})
	assert.False(t, ok)
}
