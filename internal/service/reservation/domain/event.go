package domain

import "time"

// HoldEventKind names the lifecycle transitions published to the hold-events
// topic. Consumers (push gateway, notification side) key off these values.
type HoldEventKind string

const (
	HoldCreated   HoldEventKind = "hold.created"
	HoldConfirmed HoldEventKind = "hold.confirmed"
	HoldCancelled HoldEventKind = "hold.cancelled"
	HoldExpired   HoldEventKind = "hold.expired"
)

// HoldEvent is the message published after a hold transition. Publication is
// best-effort and never gates the transition itself.
type HoldEvent struct {
	Kind          HoldEventKind `json:"kind"`
	HoldID        string        `json:"holdId"`
	RoomID        string        `json:"roomId,omitempty"`
	ReservationID int64         `json:"reservationId,omitempty"`
	UserID        int64         `json:"userId,omitempty"`
	LeaseEnd      time.Time     `json:"leaseEnd,omitempty"`
	OccurredAt    time.Time     `json:"occurredAt"`
}
