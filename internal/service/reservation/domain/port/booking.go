package port

import (
	"context"

	"gereca/internal/service/reservation/domain"
)

// CreateHoldRequest carries everything the booking collaborator needs to open
// a pre-reserva plus its protecting hold in one call.
type CreateHoldRequest struct {
	RoomID     string
	Stay       domain.StayRange
	Guest      domain.Guest
	GuestCount int
	TTLSeconds int
	Price      float64
}

// ConfirmReservationRequest promotes a pre-reserva to a confirmed stay.
type ConfirmReservationRequest struct {
	ReservationID int64
	HoldID        string
	RoomID        string
	UserID        int64
	Stay          domain.StayRange
	GuestCount    int
}

// ReservationUpdate is a partial update; nil fields are left untouched.
type ReservationUpdate struct {
	GeneralStatus *domain.GeneralStatus
	UserID        *int64
	Guest         *domain.Guest
}

// BookingService is the outbound port to the reservation/hold back end. It is
// the single owner of reservation records and of room/date availability.
type BookingService interface {
	// CreateHold creates the pre-reserva and its hold atomically.
	// domain.ErrBookingUnavailable when the room/date range is taken,
	// domain.ErrUpstreamUnavailable when the back end cannot be reached.
	CreateHold(ctx context.Context, req CreateHoldRequest) (domain.Hold, domain.Reservation, error)

	// GetHold returns nil without error when the hold does not exist.
	GetHold(ctx context.Context, holdID string) (*domain.Hold, error)

	// GetReservation returns nil without error when the id is unknown.
	GetReservation(ctx context.Context, reservationID int64) (*domain.Reservation, error)

	ConfirmReservation(ctx context.Context, req ConfirmReservationRequest) (domain.Reservation, error)

	UpdateReservation(ctx context.Context, reservationID int64, update ReservationUpdate) (domain.Reservation, error)

	// ReleaseHold frees the inventory held by holdID.
	ReleaseHold(ctx context.Context, holdID string) error
}
