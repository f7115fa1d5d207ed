package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kosssst/fleetms/telemetry"
)

// ManifestStore owns the model manifest lifecycle: pending -> training ->
// completed/failed.
type ManifestStore struct {
	coll *mongo.Collection
}

// Get fetches one manifest by id.
func (m *ManifestStore) Get(ctx context.Context, id string) (telemetry.Manifest, error) {
	var man telemetry.Manifest
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&man)
	if err == mongo.ErrNoDocuments {
		return telemetry.Manifest{}, ErrManifestNotFound
	}
	if err != nil {
		return telemetry.Manifest{}, err
	}
	return man, nil
}

// GetByVehicleVersion fetches the manifest for a (vehicleId, version) pair,
// the fallback lookup used when a train job arrives without a modelId.
func (m *ManifestStore) GetByVehicleVersion(ctx context.Context, vehicleID, version string) (telemetry.Manifest, error) {
	var man telemetry.Manifest
	err := m.coll.FindOne(ctx, bson.M{"vehicleId": vehicleID, "version": version}).Decode(&man)
	if err == mongo.ErrNoDocuments {
		return telemetry.Manifest{}, ErrManifestNotFound
	}
	if err != nil {
		return telemetry.Manifest{}, err
	}
	return man, nil
}

// SetSplit persists the trainTripsIds/valTripsIds TR computed for this
// training run, overwriting whatever set the manifest carried on creation.
func (m *ManifestStore) SetSplit(ctx context.Context, id string, trainTripIDs, valTripIDs []string) error {
	_, err := m.coll.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"trainTripsIds": trainTripIDs,
			"valTripsIds":   valTripIDs,
			"updatedAt":     time.Now(),
		}},
	)
	return err
}

// ClaimForTraining atomically transitions id from pending to training,
// the CAS that makes TR's consumption of model-train idempotent under
// at-least-once redelivery: a second delivery of the same job finds the
// manifest already training (or further along) and returns ErrClaimConflict
// instead of re-claiming it.
func (m *ManifestStore) ClaimForTraining(ctx context.Context, id string) (telemetry.Manifest, error) {
	res := m.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "status": string(telemetry.ManifestPending)},
		bson.M{"$set": bson.M{"status": string(telemetry.ManifestTraining), "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var man telemetry.Manifest
	if err := res.Decode(&man); err != nil {
		if err == mongo.ErrNoDocuments {
			if _, getErr := m.Get(ctx, id); getErr == ErrManifestNotFound {
				return telemetry.Manifest{}, ErrManifestNotFound
			}
			return telemetry.Manifest{}, ErrClaimConflict
		}
		return telemetry.Manifest{}, err
	}
	return man, nil
}

// Complete records a successful training run: metrics, artifact paths and
// the terminal completed status, in one write.
func (m *ManifestStore) Complete(ctx context.Context, id string, metrics telemetry.ManifestMetrics, artifacts telemetry.ManifestArtifacts) error {
	_, err := m.coll.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":    string(telemetry.ManifestCompleted),
			"metrics":   metrics,
			"artifacts": artifacts,
			"updatedAt": time.Now(),
		}},
	)
	return err
}

// Fail records a terminal failure with a short machine-readable reason
// (one of the error-kind strings in the trainer's failure taxonomy).
func (m *ManifestStore) Fail(ctx context.Context, id string, reason string) error {
	_, err := m.coll.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":    string(telemetry.ManifestFailed),
			"error":     reason,
			"updatedAt": time.Now(),
		}},
	)
	return err
}
