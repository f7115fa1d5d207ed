package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kosssst/fleetms/telemetry"
)

// TripStore owns the trip documents PR annotates with a predictionSummary.
type TripStore struct {
	coll *mongo.Collection
}

// Get fetches one trip by id, returning ErrTripNotFound if it doesn't exist.
func (t *TripStore) Get(ctx context.Context, tripID string) (telemetry.Trip, error) {
	var trip telemetry.Trip
	err := t.coll.FindOne(ctx, bson.M{"_id": tripID}).Decode(&trip)
	if err == mongo.ErrNoDocuments {
		return telemetry.Trip{}, ErrTripNotFound
	}
	if err != nil {
		return telemetry.Trip{}, err
	}
	return trip, nil
}

// SetPredictionSummary unconditionally upserts predictionSummary onto
// tripID, making PR's writeback idempotent: replaying the same job
// overwrites with the same (or a recomputed) summary rather than erroring.
func (t *TripStore) SetPredictionSummary(ctx context.Context, tripID string, summary telemetry.PredictionSummary) error {
	_, err := t.coll.UpdateOne(
		ctx,
		bson.M{"_id": tripID},
		bson.M{"$set": bson.M{"predictionSummary": summary}},
		options.Update().SetUpsert(true),
	)
	return err
}
