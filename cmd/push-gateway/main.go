package main

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"

	"gereca/internal/pkg/bootstrap"
	"gereca/internal/pkg/mq"
	"gereca/internal/service/push"
	"gereca/internal/service/reservation/infrastructure/adapter"
)

const (
	serviceName = "push-gateway"
	servicePort = 8083
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	// Each node joins the consumer group under a unique id; partitions of the
	// hold-events topic are spread across connected gateway nodes.
	nodeID := serviceName + "-" + uuid.New().String()[:8]
	log.Printf("starting push gateway node %s", nodeID)

	hub := push.NewHub()
	go hub.Run()

	reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, adapter.HoldEventsTopic, "push-gateway-group")
	consumer := push.NewEventConsumer(reader, hub)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go consumer.Run(consumerCtx)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.HandleFunc("/ws", hub.ServeWS)
		},
		OnShutdown: func(ctx context.Context) {
			stopConsumer()
			if err := consumer.Close(); err != nil {
				log.Printf("Error closing kafka reader: %v", err)
			}
		},
	})
}
