package main

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"gereca/internal/pkg/bootstrap"
	"gereca/internal/pkg/httpclient"
	"gereca/internal/pkg/mq"
	"gereca/internal/service/reservation/application"
	"gereca/internal/service/reservation/infrastructure"
	"gereca/internal/service/reservation/infrastructure/adapter"
	"gereca/internal/service/reservation/interfaces"
	"gereca/internal/service/reservation/lease"
)

const (
	serviceName = "reservation-service"
	servicePort = 8081
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.MySQL.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}
	leaseStore := infrastructure.NewGormLeaseStore(db)
	if err := leaseStore.AutoMigrate(); err != nil {
		log.Fatalf("failed to migrate hold_leases: %v", err)
	}

	tracer := otel.Tracer(serviceName)
	httpClient := httpclient.NewClient(tracer)

	eventWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, adapter.HoldEventsTopic)
	notifier := adapter.NewNotificationKafkaAdapter(eventWriter)

	services := cfg.Infra.Services
	workflow := application.NewReservationWorkflow(application.WorkflowParams{
		Registry:           lease.NewRegistry(),
		Store:              leaseStore,
		Booking:            adapter.NewBookingHTTPAdapter(httpClient, services.BookingBaseURL),
		Payment:            adapter.NewPaymentHTTPAdapter(httpClient, services.PaymentBaseURL),
		Invoicing:          adapter.NewInvoicingHTTPAdapter(httpClient, services.InvoicingBaseURL),
		Document:           adapter.NewDocumentHTTPAdapter(httpClient, services.DocumentBaseURL),
		Notifier:           notifier,
		Tracer:             tracer,
		DefaultTTL:         time.Duration(cfg.App.DefaultHoldTTLSeconds) * time.Second,
		DestinationAccount: cfg.App.DestinationAccount,
		InvoicePathPrefix:  cfg.App.InvoicePathPrefix,
	})

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go workflow.RunScheduler(schedulerCtx)

	// Re-arm leases that survived the previous process before accepting
	// traffic, so their expirations fire on time.
	recoveryCtx, cancelRecovery := context.WithTimeout(context.Background(), 30*time.Second)
	if err := workflow.RecoverLeases(recoveryCtx); err != nil {
		log.Printf("WARN: lease recovery failed: %v", err)
	}
	cancelRecovery()

	handler := interfaces.NewReservationHandler(workflow)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			stopScheduler()
			if err := notifier.Close(); err != nil {
				log.Printf("Error closing kafka writer: %v", err)
			}
		},
	})
}
