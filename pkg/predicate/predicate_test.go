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
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func mustParse(t *testing.T, js string) *Predicate {
	t.Helper()

	var desc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(js), &desc))

	p, err := Parse(desc)
	require.NoError(t, err)

	return p
}

func decodeDoc(t *testing.T, js string) map[string]interface{} {
	t.Helper()

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(js), &doc))

	return doc
}

// Invariant 1: All[].matches == true, Any[].matches == false, Not[].matches == true.
func TestEmptyCompositeInvariants(t *testing.T) {
	doc := map[string]interface{}{"a": 1}

	assert.True(t, NewAll().Evaluate(doc))
	assert.False(t, NewAny().Evaluate(doc))
	assert.True(t, NewNot().Evaluate(doc))
}

// Invariant 2: Not(Any[...]) == !Any[...].
func TestNotAnyDeMorgan(t *testing.T) {
	doc := map[string]interface{}{"a": "x"}

	p1 := &Predicate{Kind: KindExact, Path: []string{"a"}, Value: "x"}
	p2 := &Predicate{Kind: KindExact, Path: []string{"a"}, Value: "y"}

	any := NewAny(p1, p2)
	not := NewNot(p1, p2)

	assert.Equal(t, !any.Evaluate(doc), not.Evaluate(doc))
}

// Invariant 4 is covered for document.Resolve by TestResolveListExistential
// in pkg/document, and for Evaluate's own existential branching by
// TestScenarioListExistential below.

func TestRoundTrip(t *testing.T) {
	originals := []string{
		`{"type":"exists","path":"message.event"}`,
		`{"type":"exact","path":"message.event","value":"Scan"}`,
		`{"type":"regex","path":"message.event","pattern":".*Jump.*"}`,
		`{"type":"range","path":"message.Percent","min_value":0,"max_value":100}`,
		`{"type":"daterange","path":"header.gatewayTimestamp","min_value":"2026-01-01T00:00:00Z"}`,
		`{"type":"all","conditions":[{"type":"exists","path":"a"},{"type":"exists","path":"b"}]}`,
	}

	for _, js := range originals {
		p := mustParse(t, js)
		desc := p.Describe()

		reparsed, err := Parse(desc)
		require.NoError(t, err)

		if diff := cmp.Diff(desc, reparsed.Describe()); diff != "" {
			t.Errorf("round-trip mismatch for %s (-want +got):\n%s", js, diff)
		}
	}
}

func TestRangeBoundaries(t *testing.T) {
	min := 10.0
	onlyMin := &Predicate{Kind: KindRange, Path: []string{"v"}, Min: &min}
	assert.True(t, onlyMin.Evaluate(map[string]interface{}{"v": 10.0}))
	assert.True(t, onlyMin.Evaluate(map[string]interface{}{"v": 20.0}))
	assert.False(t, onlyMin.Evaluate(map[string]interface{}{"v": 9.0}))

	max := 10.0
	onlyMax := &Predicate{Kind: KindRange, Path: []string{"v"}, Max: &max}
	assert.True(t, onlyMax.Evaluate(map[string]interface{}{"v": 10.0}))
	assert.False(t, onlyMax.Evaluate(map[string]interface{}{"v": 11.0}))

	unbounded := &Predicate{Kind: KindRange, Path: []string{"v"}}
	assert.True(t, unbounded.Evaluate(map[string]interface{}{"v": 42.0}))
	assert.True(t, unbounded.Evaluate(map[string]interface{}{"v": "42"}))
	assert.False(t, unbounded.Evaluate(map[string]interface{}{"v": "not-a-number"}))
}

func TestDateRangeNaiveIsUTC(t *testing.T) {
	p := mustParse(t, `{"type":"daterange","path":"t","min_value":"2026-01-01T00:00:00Z","max_value":"2026-12-31T23:59:59Z"}`)

	assert.True(t, p.Evaluate(map[string]interface{}{"t": "2026-06-15T12:00:00"}))
	assert.False(t, p.Evaluate(map[string]interface{}{"t": "2025-06-15T12:00:00"}))
}

func TestRegexAbsentPathIsFalseNotError(t *testing.T) {
	p := mustParse(t, `{"type":"regex","path":"missing","pattern":".*"}`)
	assert.False(t, p.Evaluate(map[string]interface{}{"other": "x"}))
}

func TestExistsIsFalseForExplicitNull(t *testing.T) {
	p := mustParse(t, `{"type":"exists","path":"a"}`)

	assert.True(t, p.Evaluate(map[string]interface{}{"a": 1}))
	assert.False(t, p.Evaluate(map[string]interface{}{"a": nil}))
	assert.False(t, p.Evaluate(map[string]interface{}{"b": 1}))
}

func TestExactNullMatchesOnlyExplicitNull(t *testing.T) {
	p := &Predicate{Kind: KindExact, Path: []string{"a"}, Value: nil}

	assert.True(t, p.Evaluate(map[string]interface{}{"a": nil}))
	assert.False(t, p.Evaluate(map[string]interface{}{"b": 1}))
}

// S1/S2 from the end-to-end scenarios.
func TestScenarioSchemaAndEventFilter(t *testing.T) {
	p := mustParse(t, `{"type":"all","conditions":[
		{"type":"exact","path":"$schemaRef","value":"https://eddn.edcd.io/schemas/journal/1"},
		{"type":"any","conditions":[
			{"type":"exact","path":"message.event","value":"Scan"},
			{"type":"regex","path":"message.event","pattern":".*Jump.*"}
		]}
	]}`)

	s1 := decodeDoc(t, `{"$schemaRef":"https://eddn.edcd.io/schemas/journal/1","message":{"event":"Scan","StarSystem":"Sol"}}`)
	assert.True(t, p.Evaluate(s1))

	s2match := decodeDoc(t, `{"$schemaRef":"https://eddn.edcd.io/schemas/journal/1","message":{"event":"FSDJump"}}`)
	assert.True(t, p.Evaluate(s2match))

	s2nomatch := decodeDoc(t, `{"$schemaRef":"https://eddn.edcd.io/schemas/commodity/3","message":{"event":"Scan"}}`)
	assert.False(t, p.Evaluate(s2nomatch))
}

// S3: list existential traversal.
func TestScenarioListExistential(t *testing.T) {
	p := mustParse(t, `{"type":"exact","path":"message.Bodies.Name","value":"B"}`)
	doc := decodeDoc(t, `{"message":{"Bodies":[{"Name":"A"},{"Name":"B"}]}}`)

	assert.True(t, p.Evaluate(doc))
}

func TestToMongoStructural(t *testing.T) {
	p := mustParse(t, `{"type":"all","conditions":[
		{"type":"exact","path":"a","value":"x"},
		{"type":"not","conditions":[{"type":"exists","path":"b"}]}
	]}`)

	got := p.ToMongo()
	want := bson.M{"$and": []bson.M{
		{"a": "x"},
		{"$nor": []bson.M{{"b": bson.M{"$exists": true}}}},
	}}

	assert.Equal(t, want, got)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(map[string]interface{}{"type": "bogus"})
	assert.Error(t, err)

	_, err = Parse(map[string]interface{}{"type": "exists"})
	assert.Error(t, err)

	_, err = Parse(map[string]interface{}{"type": "regex", "path": "a", "pattern": "["})
	assert.Error(t, err)

	_, err = Parse(map[string]interface{}{"type": "daterange", "path": "a", "min_value": "not-a-date"})
	assert.Error(t, err)
}
