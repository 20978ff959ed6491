package interfaces

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"gereca/internal/pkg/logger"
	"gereca/internal/service/search/application"
)

const serviceName = "search-service"

// SearchHandler exposes the room search aggregation over HTTP.
type SearchHandler struct {
	gateway *application.AggregationGateway
}

func NewSearchHandler(gateway *application.AggregationGateway) *SearchHandler {
	return &SearchHandler{gateway: gateway}
}

func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/habitaciones", h.searchRooms)
}

func (h *SearchHandler) searchRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "api.SearchRooms")
	defer span.End()

	city := r.URL.Query().Get("ciudad")
	page, _ := strconv.Atoi(r.URL.Query().Get("pagina"))
	span.SetAttributes(
		attribute.String("search.city", city),
		attribute.Int("search.page", page),
	)

	result, err := h.gateway.SearchRooms(ctx, city, page)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("room search failed")
		http.Error(w, "catalog aggregation failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
