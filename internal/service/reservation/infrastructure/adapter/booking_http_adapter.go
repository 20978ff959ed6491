package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"gereca/internal/pkg/httpclient"
	"gereca/internal/service/reservation/domain"
	"gereca/internal/service/reservation/domain/port"
)

// BookingHTTPAdapter implements port.BookingService against the hotel
// management back end.
type BookingHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewBookingHTTPAdapter(client *httpclient.Client, baseURL string) *BookingHTTPAdapter {
	return &BookingHTTPAdapter{client: client, baseURL: baseURL}
}

type prereservaRequest struct {
	RoomID         string  `json:"idHabitacion"`
	CheckIn        string  `json:"fechaInicio"`
	CheckOut       string  `json:"fechaFin"`
	GuestName      string  `json:"nombreHuesped"`
	GuestDocument  string  `json:"documentoHuesped"`
	GuestEmail     string  `json:"emailHuesped"`
	GuestCount     int     `json:"cantPersonas"`
	HoldTTLSeconds int     `json:"holdTtlSegundos"`
	CostTotal      float64 `json:"costoTotal"`
}

type prereservaResponse struct {
	HoldID        string `json:"idHold"`
	ReservationID int64  `json:"idReserva"`
	TTLSeconds    int    `json:"ttlSegundos"`
}

type holdResponse struct {
	HoldID        string `json:"idHold"`
	RoomID        string `json:"idHabitacion"`
	ReservationID int64  `json:"idReserva"`
	TTLSeconds    int    `json:"ttlSegundos"`
}

type reservationResponse struct {
	ReservationID int64   `json:"idReserva"`
	RoomID        string  `json:"idHabitacion"`
	UserID        int64   `json:"idUsuario"`
	GuestName     string  `json:"nombreHuesped"`
	GuestDocument string  `json:"documentoHuesped"`
	GuestEmail    string  `json:"emailHuesped"`
	CheckIn       string  `json:"fechaInicio"`
	CheckOut      string  `json:"fechaFin"`
	GuestCount    int     `json:"cantPersonas"`
	CostTotal     float64 `json:"costoTotal"`
	GeneralStatus string  `json:"estadoGeneral"`
}

type reservationUpdateRequest struct {
	GeneralStatus *string `json:"estadoGeneral,omitempty"`
	UserID        *int64  `json:"idUsuario,omitempty"`
	GuestName     *string `json:"nombreHuesped,omitempty"`
	GuestDocument *string `json:"documentoHuesped,omitempty"`
	GuestEmail    *string `json:"emailHuesped,omitempty"`
}

const dateLayout = "2006-01-02"

func (a *BookingHTTPAdapter) CreateHold(ctx context.Context, req port.CreateHoldRequest) (domain.Hold, domain.Reservation, error) {
	body := prereservaRequest{
		RoomID:         req.RoomID,
		CheckIn:        req.Stay.CheckIn.Format(dateLayout),
		CheckOut:       req.Stay.CheckOut.Format(dateLayout),
		GuestName:      req.Guest.Name,
		GuestDocument:  req.Guest.Document,
		GuestEmail:     req.Guest.Email,
		GuestCount:     req.GuestCount,
		HoldTTLSeconds: req.TTLSeconds,
		CostTotal:      req.Price,
	}

	var resp prereservaResponse
	endpoint := a.baseURL + "/api/v1/hoteles/funciones-especiales/prereserva"
	if err := a.client.PostJSON(ctx, endpoint, body, &resp); err != nil {
		return domain.Hold{}, domain.Reservation{}, mapBookingError(err, "creating prereserva")
	}

	ttl := resp.TTLSeconds
	if ttl == 0 {
		ttl = req.TTLSeconds
	}
	hold := domain.Hold{
		HoldID:        resp.HoldID,
		RoomID:        req.RoomID,
		ReservationID: resp.ReservationID,
		TTLSeconds:    ttl,
	}
	reservation := domain.Reservation{
		ReservationID: resp.ReservationID,
		RoomID:        req.RoomID,
		Guest:         req.Guest,
		Stay:          req.Stay,
		GuestCount:    req.GuestCount,
		CostTotal:     req.Price,
		GeneralStatus: domain.StatusPreReserva,
	}
	return hold, reservation, nil
}

func (a *BookingHTTPAdapter) GetHold(ctx context.Context, holdID string) (*domain.Hold, error) {
	var resp holdResponse
	endpoint := fmt.Sprintf("%s/api/gestion/hold/%s", a.baseURL, url.PathEscape(holdID))
	if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, mapBookingError(err, "fetching hold")
	}
	return &domain.Hold{
		HoldID:        resp.HoldID,
		RoomID:        resp.RoomID,
		ReservationID: resp.ReservationID,
		TTLSeconds:    resp.TTLSeconds,
	}, nil
}

func (a *BookingHTTPAdapter) GetReservation(ctx context.Context, reservationID int64) (*domain.Reservation, error) {
	var resp reservationResponse
	endpoint := fmt.Sprintf("%s/api/gestion/reserva/%d", a.baseURL, reservationID)
	if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, mapBookingError(err, "fetching reservation")
	}
	reservation := toDomainReservation(resp)
	return &reservation, nil
}

func (a *BookingHTTPAdapter) ConfirmReservation(ctx context.Context, req port.ConfirmReservationRequest) (domain.Reservation, error) {
	body := map[string]interface{}{
		"idReserva":    req.ReservationID,
		"idHold":       req.HoldID,
		"idHabitacion": req.RoomID,
		"idUsuario":    req.UserID,
		"fechaInicio":  req.Stay.CheckIn.Format(dateLayout),
		"fechaFin":     req.Stay.CheckOut.Format(dateLayout),
		"cantPersonas": req.GuestCount,
	}

	var resp reservationResponse
	endpoint := a.baseURL + "/api/v1/hoteles/funciones-especiales/confirmar-usuario-interno"
	if err := a.client.PostJSON(ctx, endpoint, body, &resp); err != nil {
		return domain.Reservation{}, mapBookingError(err, "confirming reservation")
	}
	return toDomainReservation(resp), nil
}

func (a *BookingHTTPAdapter) UpdateReservation(ctx context.Context, reservationID int64, update port.ReservationUpdate) (domain.Reservation, error) {
	body := reservationUpdateRequest{UserID: update.UserID}
	if update.GeneralStatus != nil {
		status := string(*update.GeneralStatus)
		body.GeneralStatus = &status
	}
	if update.Guest != nil {
		body.GuestName = &update.Guest.Name
		body.GuestDocument = &update.Guest.Document
		body.GuestEmail = &update.Guest.Email
	}

	var resp reservationResponse
	endpoint := fmt.Sprintf("%s/api/gestion/reserva/%d", a.baseURL, reservationID)
	if err := a.client.PutJSON(ctx, endpoint, body, &resp); err != nil {
		return domain.Reservation{}, mapBookingError(err, "updating reservation")
	}
	return toDomainReservation(resp), nil
}

func (a *BookingHTTPAdapter) ReleaseHold(ctx context.Context, holdID string) error {
	body := map[string]string{"idHold": holdID}
	endpoint := a.baseURL + "/api/v1/hoteles/funciones-especiales/cancelar-prereserva"
	if err := a.client.PostJSON(ctx, endpoint, body, nil); err != nil {
		// An unknown hold upstream means it was already released; not an error
		// for a release call.
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil
		}
		return mapBookingError(err, "releasing hold")
	}
	return nil
}

func toDomainReservation(resp reservationResponse) domain.Reservation {
	checkIn, _ := time.Parse(dateLayout, resp.CheckIn)
	checkOut, _ := time.Parse(dateLayout, resp.CheckOut)
	return domain.Reservation{
		ReservationID: resp.ReservationID,
		RoomID:        resp.RoomID,
		UserID:        resp.UserID,
		Guest: domain.Guest{
			Name:     resp.GuestName,
			Document: resp.GuestDocument,
			Email:    resp.GuestEmail,
		},
		Stay:          domain.StayRange{CheckIn: checkIn, CheckOut: checkOut},
		GuestCount:    resp.GuestCount,
		CostTotal:     resp.CostTotal,
		GeneralStatus: domain.GeneralStatus(resp.GeneralStatus),
	}
}

// mapBookingError translates transport failures into the domain taxonomy: a
// 409 is the back end refusing the room/date range, anything else is an
// outage of the collaborator.
func mapBookingError(err error, action string) error {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusConflict {
		return errors.Wrapf(domain.ErrBookingUnavailable, "%s: %s", action, statusErr.Body)
	}
	return errors.Wrapf(domain.ErrUpstreamUnavailable, "%s: %v", action, err)
}
