package main

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"

	"gereca/internal/pkg/bootstrap"
	"gereca/internal/pkg/httpclient"
	"gereca/internal/pkg/redis"
	"gereca/internal/service/search/application"
	"gereca/internal/service/search/infrastructure/adapter"
	"gereca/internal/service/search/interfaces"
)

const (
	serviceName = "search-service"
	servicePort = 8082
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	httpClient := httpclient.NewClient(otel.Tracer(serviceName))
	catalog := adapter.NewCatalogHTTPAdapter(httpClient, cfg.Infra.Services.CatalogBaseURL)
	pageCache := redis.NewClient(cfg.Infra.Redis.Addr)

	gateway := application.NewAggregationGateway(
		catalog,
		pageCache,
		cfg.App.SearchPageSize,
		time.Duration(cfg.App.SearchCacheTTLSeconds)*time.Second,
	)
	handler := interfaces.NewSearchHandler(gateway)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if err := pageCache.Close(); err != nil {
				log.Printf("Error closing redis client: %v", err)
			}
		},
	})
}
