// Command fleet-trainer runs the model-train job consumer: it claims
// pending Model Manifests, fits a Model Artifact, and writes it to the
// shared model volume.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kosssst/fleetms/internal/config"
	"github.com/kosssst/fleetms/internal/obslog"
	"github.com/kosssst/fleetms/queue"
	"github.com/kosssst/fleetms/store"
	"github.com/kosssst/fleetms/trainer"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fleet-trainer: config: %v\n", err)
		return 1
	}

	log := obslog.NewLogger(cfg.LogLevel)
	metrics := obslog.NewMetrics()
	obslog.Serve(cfg.MetricsAddr, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, disconnect, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.WithError(err).Error("fleet-trainer: store connect failed")
		return 1
	}
	defer disconnect(context.Background())

	conn, err := queue.Dial(ctx, cfg.BrokerURL, log)
	if err != nil {
		log.WithError(err).Error("fleet-trainer: broker dial failed")
		return 1
	}
	defer conn.Close()

	if err := queue.DeclareDurable(conn.Channel, queue.QueueModelTrain, 1); err != nil {
		log.WithError(err).Error("fleet-trainer: queue declare failed")
		return 1
	}

	tr := trainer.New(st, cfg.ModelRoot, log, metrics)
	tr.Pipeline = cfg.Pipeline

	log.WithField("queue", queue.QueueModelTrain).Info("fleet-trainer: consuming")
	if err := queue.Consume(ctx, conn.Channel, queue.QueueModelTrain, "fleet-trainer", tr.OnJob); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("fleet-trainer: consume loop exited")
		return 1
	}
	log.Info("fleet-trainer: shutting down")
	return 0
}
