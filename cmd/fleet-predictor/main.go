// Command fleet-predictor runs the predict.trip job consumer: it applies a
// completed Model Artifact to a trip's samples and upserts the trip's
// predictionSummary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kosssst/fleetms/internal/config"
	"github.com/kosssst/fleetms/internal/obslog"
	"github.com/kosssst/fleetms/predictor"
	"github.com/kosssst/fleetms/queue"
	"github.com/kosssst/fleetms/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fleet-predictor: config: %v\n", err)
		return 1
	}

	log := obslog.NewLogger(cfg.LogLevel)
	metrics := obslog.NewMetrics()
	obslog.Serve(cfg.MetricsAddr, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, disconnect, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.WithError(err).Error("fleet-predictor: store connect failed")
		return 1
	}
	defer disconnect(context.Background())

	conn, err := queue.Dial(ctx, cfg.BrokerURL, log)
	if err != nil {
		log.WithError(err).Error("fleet-predictor: broker dial failed")
		return 1
	}
	defer conn.Close()

	if err := queue.DeclareDurable(conn.Channel, queue.QueuePredictTrip, 4); err != nil {
		log.WithError(err).Error("fleet-predictor: queue declare failed")
		return 1
	}

	pr := predictor.New(st, cfg.ModelRoot, log, metrics)

	log.WithField("queue", queue.QueuePredictTrip).Info("fleet-predictor: consuming")
	if err := queue.Consume(ctx, conn.Channel, queue.QueuePredictTrip, "fleet-predictor", pr.OnJob); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("fleet-predictor: consume loop exited")
		return 1
	}
	log.Info("fleet-predictor: shutting down")
	return 0
}
