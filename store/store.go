// Package store wraps the Mongo collections backing the sample, trip and
// model manifest documents: samples, trips and models. It is the only
// package that knows the collection names and query shapes; trainer and
// predictor talk to it through the typed Sample/Trip/Manifest structs in
// package telemetry.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrManifestNotFound is returned when a manifest id has no matching document.
var ErrManifestNotFound = errors.New("store: manifest not found")

// ErrTripNotFound is returned when a trip id has no matching document.
var ErrTripNotFound = errors.New("store: trip not found")

// ErrClaimConflict is returned by ManifestStore.ClaimForTraining when the
// manifest is no longer pending (already claimed by another trainer, or
// in a terminal state).
var ErrClaimConflict = errors.New("store: manifest is not pending")

// Store groups the collections used by the trainer and predictor consumers.
type Store struct {
	Samples   *SampleStore
	Trips     *TripStore
	Manifests *ManifestStore
}

// Connect dials uri and returns a Store bound to database dbName, using the
// conventional samples/trips/models collection names.
func Connect(ctx context.Context, uri, dbName string) (*Store, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	db := client.Database(dbName)
	s := &Store{
		Samples:   &SampleStore{coll: db.Collection("samples")},
		Trips:     &TripStore{coll: db.Collection("trips")},
		Manifests: &ManifestStore{coll: db.Collection("models")},
	}
	return s, client.Disconnect, nil
}
