package application

import (
	"time"

	"gereca/internal/service/reservation/domain"
)

// CreateHoldRequest is the input of the pre-reserva use case.
type CreateHoldRequest struct {
	RoomID     string
	Stay       domain.StayRange
	Guest      domain.Guest
	GuestCount int
	UserID     int64
	// TTLSeconds of 0 selects the configured default; negative is rejected.
	TTLSeconds int
	Price      float64
}

// CreateHoldResult tells the caller which hold protects the new pre-reserva
// and until when.
type CreateHoldResult struct {
	HoldID        string
	ReservationID int64
	LeaseEnd      time.Time
}

// ConfirmHoldRequest is the input of the confirm use case. The amount charged
// is always the reservation's authoritative total, never a client value.
type ConfirmHoldRequest struct {
	HoldID        string
	UserID        int64
	SourceAccount string
	// GuestUpdate, when set, refreshes the guest data recorded upstream.
	GuestUpdate *domain.Guest
}

// ConfirmHoldResult reports a confirmation. Confirmed stays true even when
// the invoice/document tail degraded; in that case InvoiceID and/or
// DocumentURL are zero.
type ConfirmHoldResult struct {
	ReservationID int64
	InvoiceID     int64
	DocumentURL   string
	Confirmed     bool
}

// CancelHoldResult acknowledges an explicit cancellation.
type CancelHoldResult struct {
	HoldID        string
	ReservationID int64
}

// HoldStatusResult serves status/telemetry reads. Active holds report the
// remaining lease; resolved ones report the terminal status fetched upstream.
type HoldStatusResult struct {
	HoldID           string
	Active           bool
	LeaseEnd         time.Time
	RemainingSeconds int
	Status           domain.GeneralStatus
}
