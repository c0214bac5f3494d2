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
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// ToMongo translates p into the equivalent MongoDB query fragment, for
// the cached-event query path the retention store serves. The
// translation is structural: each variant maps to one fragment, per
// the table in spec.md §4.1 (Exact is a plain equality fragment, and
// an empty All/Any/Not is the empty filter). Mongo's own operator
// semantics apply to the result: $regex searches anywhere in the
// value, whereas Evaluate matches only at the start.
func (p *Predicate) ToMongo() bson.M {
	switch p.Kind {
	case KindExists:
		return bson.M{p.Path.String(): bson.M{"$exists": true}}

	case KindExact:
		return bson.M{p.Path.String(): p.Value}

	case KindRegex:
		return bson.M{p.Path.String(): bson.M{"$regex": p.Pattern}}

	case KindRange:
		return bson.M{p.Path.String(): numericRangeOp(p.Min, p.Max)}

	case KindDateRange:
		return bson.M{p.Path.String(): dateRangeOp(p.MinTime, p.MaxTime)}

	case KindAll:
		if len(p.Children) == 0 {
			return bson.M{}
		}

		return bson.M{"$and": childFragments(p.Children)}

	case KindAny:
		if len(p.Children) == 0 {
			return bson.M{}
		}

		return bson.M{"$or": childFragments(p.Children)}

	case KindNot:
		if len(p.Children) == 0 {
			return bson.M{}
		}

		return bson.M{"$nor": childFragments(p.Children)}

	default:
		return bson.M{}
	}
}

func childFragments(children []*Predicate) []bson.M {
	fragments := make([]bson.M, len(children))
	for i, c := range children {
		fragments[i] = c.ToMongo()
	}

	return fragments
}

func numericRangeOp(min, max *float64) bson.M {
	op := bson.M{}

	if min != nil {
		op["$gte"] = *min
	}

	if max != nil {
		op["$lte"] = *max
	}

	return op
}

func dateRangeOp(min, max *time.Time) bson.M {
	op := bson.M{}

	if min != nil {
		op["$gte"] = *min
	}

	if max != nil {
		op["$lte"] = *max
	}

	return op
}
