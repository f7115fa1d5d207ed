package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kosssst/fleetms/telemetry"
)

// SampleStore reads raw telemetry ticks keyed by tripId, timestamp-ordered.
type SampleStore struct {
	coll *mongo.Collection
}

// ByTrip returns every sample belonging to tripID, ordered by timestamp
// ascending, flattened into the semantic telemetry.Sample view.
func (s *SampleStore) ByTrip(ctx context.Context, tripID string) ([]telemetry.Sample, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"tripId": tripID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var raws []telemetry.RawSample
	if err := cur.All(ctx, &raws); err != nil {
		return nil, err
	}
	return telemetry.FlattenAll(raws), nil
}

// ByTrips loads and flattens samples for several trips at once, grouped by
// tripId in the order requested. Missing trips yield an empty slice, not
// an error, since manifests may reference trips that never arrived.
func (s *SampleStore) ByTrips(ctx context.Context, tripIDs []string) (map[string][]telemetry.Sample, error) {
	opts := options.Find().SetSort(bson.D{{Key: "tripId", Value: 1}, {Key: "timestamp", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"tripId": bson.M{"$in": tripIDs}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var raws []telemetry.RawSample
	if err := cur.All(ctx, &raws); err != nil {
		return nil, err
	}

	out := make(map[string][]telemetry.Sample, len(tripIDs))
	for _, id := range tripIDs {
		out[id] = nil
	}
	for _, raw := range telemetry.FlattenAll(raws) {
		out[raw.TripID] = append(out[raw.TripID], raw)
	}
	return out, nil
}

// Insert appends one raw sample document, used by ingestion callers (and
// tests) that write samples rather than only reading them.
func (s *SampleStore) Insert(ctx context.Context, raw telemetry.RawSample) error {
	_, err := s.coll.InsertOne(ctx, raw)
	return err
}

// InsertFlat inserts a Sample directly (its bson tags cover every field
// except the derived FuelConsumptionRateMLs, which callers with no
// ground-truth fuel signal — e.g. a FIT-file import — simply never set).
func (s *SampleStore) InsertFlat(ctx context.Context, sample telemetry.Sample) error {
	_, err := s.coll.InsertOne(ctx, sample)
	return err
}
