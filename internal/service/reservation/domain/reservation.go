package domain

import "time"

// GeneralStatus is the reservation lifecycle state as kept by the booking
// collaborator. The Spanish names are the collaborator's wire values; they are
// not translated locally so both sides always compare equal.
type GeneralStatus string

const (
	StatusPreReserva GeneralStatus = "PRE_RESERVA"
	StatusConfirmado GeneralStatus = "CONFIRMADO"
	StatusCancelada  GeneralStatus = "CANCELADA"
	StatusExpirado   GeneralStatus = "EXPIRADO"

	// StatusUnknown is used when the collaborator has no record, or could not
	// be reached while resolving a lost claim.
	StatusUnknown GeneralStatus = ""
)

// Guest identifies who the reservation is for.
type Guest struct {
	Name     string
	Document string
	Email    string
}

// StayRange is the [CheckIn, CheckOut) date range of a stay.
type StayRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Valid reports whether the range covers at least one night.
func (s StayRange) Valid() bool {
	return !s.CheckIn.IsZero() && s.CheckOut.After(s.CheckIn)
}

// Nights returns the number of nights in the range.
func (s StayRange) Nights() int {
	return int(s.CheckOut.Sub(s.CheckIn).Hours() / 24)
}

// Reservation is owned by the booking collaborator; this struct is only a
// per-request snapshot and is never cached beyond the request that fetched it.
type Reservation struct {
	ReservationID int64
	RoomID        string
	UserID        int64
	Guest         Guest
	Stay          StayRange
	GuestCount    int
	CostTotal     float64
	GeneralStatus GeneralStatus
}
