package lease

import (
	"context"
	"time"
)

// StoredLease is the durable subset of a lease. Cancel handles are process
// state and are re-armed from this record on startup.
type StoredLease struct {
	HoldID        string
	RoomID        string
	ReservationID int64
	LeaseEnd      time.Time
}

// Store persists lease metadata so a restart does not silently leak the
// pre-reservas held upstream. All methods are best-effort from the
// workflow's point of view; the in-memory registry stays authoritative for
// claims within a running process.
type Store interface {
	Save(ctx context.Context, l StoredLease) error
	Delete(ctx context.Context, holdID string) error
	List(ctx context.Context) ([]StoredLease, error)
}
