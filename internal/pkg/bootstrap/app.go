package bootstrap

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"gereca/internal/pkg/config"
	"gereca/internal/pkg/logger"
	"gereca/internal/pkg/nacos"
	"gereca/internal/pkg/tracing"
	"gereca/internal/pkg/utils"
)

var (
	currentConfig config.Config
	loadOnce      sync.Once
)

// Init loads the configuration once. CONFIG_FILE points at the YAML file;
// environment variables override individual fields either way.
func Init() {
	loadOnce.Do(func() {
		cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
		if err != nil {
			log.Fatalf("FATAL: could not load configuration: %v", err)
		}
		currentConfig = cfg
	})
}

// GetCurrentConfig returns the process-wide configuration. Init must have run.
func GetCurrentConfig() config.Config {
	return currentConfig
}

type AppCtx struct {
	Mux   *http.ServeMux
	Nacos *nacos.Client
}

// AppInfo carries everything service-specific needed to start a service.
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx)
	// OnShutdown runs during graceful shutdown, before the HTTP server stops.
	OnShutdown func(ctx context.Context)
}

// StartService wraps the common startup and graceful-shutdown sequence shared
// by all services: config, logging, tracing, Nacos registration, HTTP server.
func StartService(info AppInfo) {
	Init()
	logger.Init(info.ServiceName)

	tp, err := tracing.InitTracerProvider(info.ServiceName, currentConfig.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatalf("failed to initialize tracer provider: %v", err)
	}

	nacosCfg := currentConfig.Infra.Nacos
	namingClient, err := nacos.NewClient(nacosCfg.ServerAddrs, nacosCfg.Namespace, nacosCfg.Group)
	if err != nil {
		log.Fatalf("failed to initialize nacos client: %v", err)
	}

	ip, err := utils.GetOutboundIP()
	if err != nil {
		log.Fatalf("failed to get outbound IP address: %v", err)
	}

	if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
		log.Fatalf("failed to register service with nacos: %v", err)
	}

	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Nacos: namingClient})
	}
	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}
	go func() {
		log.Printf("%s listening on :%d", info.ServiceName, info.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not listen on %s: %v\n", server.Addr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutting down service %s...", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Cleanup runs LIFO: deregister first so no new traffic arrives, then the
	// service-specific teardown, then flush traces, then stop the server.
	if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
		log.Printf("Error deregistering from Nacos: %v", err)
	}

	if info.OnShutdown != nil {
		info.OnShutdown(ctx)
	}

	if err := tp.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down tracer provider: %v", err)
	}

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down http server: %v", err)
	}

	log.Printf("Service %s gracefully shut down.", info.ServiceName)
}
