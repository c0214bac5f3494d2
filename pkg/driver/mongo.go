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

package driver

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Conshmea/EddnRelay/pkg/document"
	"github.com/Conshmea/EddnRelay/pkg/retention"
)

// internalTimestampField holds the derived ingestion timestamp
// (spec.md §3's "retention record"); internalIDField is the
// driver-assigned opaque key. Both are stripped from query results.
const (
	internalTimestampField = "_ingestion_timestamp"
	internalIDField        = "_id"
)

// MongoStore implements retention.Store against a MongoDB collection.
// The predicate translation table in spec.md §4.1 maps directly onto
// Mongo's query operators, which is why this package reaches for
// go.mongodb.org/mongo-driver rather than a generic document store.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	ttl        time.Duration
}

// NewMongoStore builds a MongoStore over database.collection, using
// the collection name "events".
func NewMongoStore(client *mongo.Client, database string, ttl time.Duration) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection("events"),
		ttl:        ttl,
	}
}

// Close disconnects the underlying Mongo client.
func (m *MongoStore) Close(ctx context.Context) error {
	return errors.Wrap(m.client.Disconnect(ctx), "disconnecting retention backend")
}

// Initialize creates the TTL expiry index and the descending sort
// index, per spec.md §4.4. Failure here is fatal to startup.
func (m *MongoStore) Initialize(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.M{internalTimestampField: 1},
			Options: options.Index().SetExpireAfterSeconds(int32(m.ttl.Seconds())),
		},
		{
			Keys: bson.M{internalTimestampField: -1},
		},
	})
	if err != nil {
		return errors.Wrap(err, "creating retention indexes")
	}

	return nil
}

// StoreEvent derives the ingestion timestamp from event's payload
// timestamp if present, else its gateway timestamp, normalizes naive
// timestamps to UTC, and inserts the augmented record. An event with
// neither timestamp is rejected.
func (m *MongoStore) StoreEvent(ctx context.Context, event document.Document) error {
	ts, err := ingestionTimestamp(event)
	if err != nil {
		return errors.Wrap(err, "deriving ingestion timestamp")
	}

	record, ok := event.(map[string]interface{})
	if !ok {
		return errors.New("driver: event must decode to a JSON object to be retained")
	}

	augmented := make(bson.M, len(record)+1)
	for k, v := range record {
		augmented[k] = v
	}

	augmented[internalTimestampField] = ts

	if _, err := m.collection.InsertOne(ctx, augmented); err != nil {
		return errors.Wrap(err, "inserting retention record")
	}

	return nil
}

// Query implements retention.Store.Query.
func (m *MongoStore) Query(ctx context.Context, q retention.Query) ([]document.Document, error) {
	filter := bson.M{}
	if q.Filter != nil {
		filter = q.Filter.ToMongo()
	}

	if q.AfterTimestamp != nil {
		filter[internalTimestampField] = bson.M{"$gt": q.AfterTimestamp.UTC()}
	}

	opts := options.Find().SetSort(bson.D{{Key: internalTimestampField, Value: -1}})
	if q.MaxItems != nil {
		opts.SetLimit(int64(*q.MaxItems))
	}

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying retention store")
	}
	defer cursor.Close(ctx)

	results := make([]document.Document, 0)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, errors.Wrap(err, "decoding retention record")
		}

		delete(raw, internalTimestampField)
		delete(raw, internalIDField)

		results = append(results, map[string]interface{}(raw))
	}

	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating retention results")
	}

	return results, nil
}

// ingestionTimestamp derives the timestamp a retained event is
// indexed by: the payload's own timestamp field if present, otherwise
// the gateway's receipt timestamp, per spec.md §3/§4.4. Naive
// timestamps (no zone offset) are interpreted as UTC.
func ingestionTimestamp(event document.Document) (time.Time, error) {
	if payloadTS, ok := document.Resolve(event, document.Path{"message", "timestamp"}); ok {
		if s, ok := payloadTS.(string); ok {
			if t, err := parseTimestamp(s); err == nil {
				return t, nil
			}
		}
	}

	if gatewayTS, ok := document.Resolve(event, document.Path{"header", "gatewayTimestamp"}); ok {
		if s, ok := gatewayTS.(string); ok {
			if t, err := parseTimestamp(s); err == nil {
				return t, nil
			}
		}
	}

	return time.Time{}, errors.New("driver: event has neither a payload nor a gateway timestamp")
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	var lastErr error

	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}

		lastErr = err
	}

	return time.Time{}, lastErr
}
