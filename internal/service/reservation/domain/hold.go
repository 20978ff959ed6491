package domain

import "time"

// Hold is a time-boxed soft lock on a room/date range. The id is assigned by
// the booking collaborator together with the pre-reserva it protects.
type Hold struct {
	HoldID        string
	RoomID        string
	ReservationID int64
	TTLSeconds    int
	LeaseStart    time.Time
	LeaseEnd      time.Time
}

// Remaining returns how much of the lease is left at now; zero or negative
// means the lease window has elapsed.
func (h Hold) Remaining(now time.Time) time.Duration {
	return h.LeaseEnd.Sub(now)
}
