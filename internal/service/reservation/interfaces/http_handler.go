package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"gereca/internal/pkg/logger"
	"gereca/internal/service/reservation/application"
	"gereca/internal/service/reservation/domain"
)

const serviceName = "reservation-service"

// ReservationHandler exposes the hold lifecycle over HTTP.
type ReservationHandler struct {
	workflow *application.ReservationWorkflow
}

func NewReservationHandler(workflow *application.ReservationWorkflow) *ReservationHandler {
	return &ReservationHandler{workflow: workflow}
}

func (h *ReservationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/reservas/prereserva", h.createHold)
	mux.HandleFunc("/api/v1/reservas/confirmar", h.confirmHold)
	mux.HandleFunc("/api/v1/reservas/cancelar-prereserva", h.cancelHold)
	mux.HandleFunc("/api/v1/reservas/hold-status", h.holdStatus)
}

type createHoldPayload struct {
	RoomID        string  `json:"idHabitacion"`
	CheckIn       string  `json:"fechaInicio"`
	CheckOut      string  `json:"fechaFin"`
	GuestName     string  `json:"nombreHuesped"`
	GuestDocument string  `json:"documentoHuesped"`
	GuestEmail    string  `json:"emailHuesped"`
	GuestCount    int     `json:"cantPersonas"`
	UserID        int64   `json:"idUsuario"`
	TTLSeconds    int     `json:"ttlSegundos"`
	Price         float64 `json:"costoTotal"`
}

type confirmHoldPayload struct {
	HoldID        string `json:"idHold"`
	UserID        int64  `json:"idUsuario"`
	SourceAccount string `json:"cuentaOrigen"`
	GuestName     string `json:"nombreHuesped"`
	GuestDocument string `json:"documentoHuesped"`
	GuestEmail    string `json:"emailHuesped"`
}

type cancelHoldPayload struct {
	HoldID string `json:"idHold"`
}

const dateLayout = "2006-01-02"

func (h *ReservationHandler) createHold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "api.CreateHold")
	defer span.End()

	var payload createHoldPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	checkIn, errIn := time.Parse(dateLayout, payload.CheckIn)
	checkOut, errOut := time.Parse(dateLayout, payload.CheckOut)
	if errIn != nil || errOut != nil {
		http.Error(w, "fechaInicio/fechaFin must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	span.SetAttributes(attribute.String("room.id", payload.RoomID))

	result, err := h.workflow.CreateHold(ctx, application.CreateHoldRequest{
		RoomID: payload.RoomID,
		Stay:   domain.StayRange{CheckIn: checkIn, CheckOut: checkOut},
		Guest: domain.Guest{
			Name:     payload.GuestName,
			Document: payload.GuestDocument,
			Email:    payload.GuestEmail,
		},
		GuestCount: payload.GuestCount,
		UserID:     payload.UserID,
		TTLSeconds: payload.TTLSeconds,
		Price:      payload.Price,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *ReservationHandler) confirmHold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "api.ConfirmHold")
	defer span.End()

	var payload confirmHoldPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if payload.HoldID == "" || payload.SourceAccount == "" {
		http.Error(w, "idHold and cuentaOrigen are required", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("hold.id", payload.HoldID))

	req := application.ConfirmHoldRequest{
		HoldID:        payload.HoldID,
		UserID:        payload.UserID,
		SourceAccount: payload.SourceAccount,
	}
	if payload.GuestName != "" || payload.GuestEmail != "" {
		req.GuestUpdate = &domain.Guest{
			Name:     payload.GuestName,
			Document: payload.GuestDocument,
			Email:    payload.GuestEmail,
		}
	}

	result, err := h.workflow.ConfirmHold(ctx, req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ReservationHandler) cancelHold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "api.CancelHold")
	defer span.End()

	var payload cancelHoldPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.HoldID == "" {
		http.Error(w, "idHold is required", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("hold.id", payload.HoldID))

	result, err := h.workflow.CancelHold(ctx, payload.HoldID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ReservationHandler) holdStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "api.HoldStatus")
	defer span.End()

	holdID := r.URL.Query().Get("idHold")
	if holdID == "" {
		http.Error(w, "idHold is required", http.StatusBadRequest)
		return
	}

	result, err := h.workflow.HoldStatus(ctx, holdID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"estado,omitempty"`
}

// writeError maps the domain taxonomy onto HTTP statuses. A hold resolved by
// expiry answers 410 so clients can distinguish "too late" from "conflicting".
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	body := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var notActive *domain.HoldNotActiveError
	switch {
	case errors.As(err, &notActive):
		body.Status = string(notActive.Status)
		if notActive.Status == domain.StatusExpirado {
			status = http.StatusGone
		} else {
			status = http.StatusConflict
		}
	case errors.Is(err, domain.ErrDuplicateHold),
		errors.Is(err, domain.ErrBookingUnavailable):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrPaymentFailed):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrUpstreamUnavailable),
		errors.Is(err, domain.ErrGatewayUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidTTL),
		errors.Is(err, domain.ErrInvalidStayRange),
		errors.Is(err, domain.ErrInvalidGuest),
		errors.Is(err, domain.ErrInvalidGuests):
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
		logger.Ctx(ctx).Warn().Err(encodeErr).Msg("could not write error response")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
