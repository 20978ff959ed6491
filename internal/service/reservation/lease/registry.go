package lease

import (
	"sync"
	"time"

	"gereca/internal/service/reservation/domain"
)

// Lease is the registry's bookkeeping record for an active hold: when the
// lease window ends, plus the handle that aborts the scheduled expiration
// once a competing path has won the claim.
type Lease struct {
	HoldID        string
	RoomID        string
	ReservationID int64
	LeaseEnd      time.Time

	cancelExpiry func()
}

// NewLease builds a lease. cancelExpiry may be nil (e.g. in tests).
func NewLease(holdID, roomID string, reservationID int64, leaseEnd time.Time, cancelExpiry func()) Lease {
	return Lease{
		HoldID:        holdID,
		RoomID:        roomID,
		ReservationID: reservationID,
		LeaseEnd:      leaseEnd,
		cancelExpiry:  cancelExpiry,
	}
}

// StopExpiry asks the scheduler not to fire for this hold. Best-effort: if
// the callback already started, this is a no-op, which is why termination
// logic must still go through Claim.
func (l Lease) StopExpiry() {
	if l.cancelExpiry != nil {
		l.cancelExpiry()
	}
}

// Registry is the single source of truth for "is this hold still claimable".
// A hold id is present iff its lease has not been claimed by exactly one of
// confirm, cancel or expire. The mutex is held only for map operations,
// never across I/O.
type Registry struct {
	mu     sync.Mutex
	leases map[string]Lease
}

func NewRegistry() *Registry {
	return &Registry{leases: make(map[string]Lease)}
}

// Insert registers a lease. domain.ErrDuplicateHold if the id is present;
// creation always assigns fresh ids, so a duplicate means a caller bug.
func (r *Registry) Insert(l Lease) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.leases[l.HoldID]; exists {
		return domain.ErrDuplicateHold
	}
	r.leases[l.HoldID] = l
	return nil
}

// Claim removes and returns the lease for holdID. This is the sole
// linearization point of the hold protocol: whichever caller gets ok==true
// owns the hold's termination; everyone else sees ok==false and must treat
// the hold as already resolved. Absence is a normal outcome, not an error.
func (r *Registry) Claim(holdID string) (Lease, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leases[holdID]
	if !ok {
		return Lease{}, false
	}
	delete(r.leases, holdID)
	return l, true
}

// Lookup is a non-destructive read for status and telemetry endpoints only.
// It must never gate a state transition; only Claim may do that.
func (r *Registry) Lookup(holdID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leases[holdID]
	if !ok {
		return time.Time{}, false
	}
	return l.LeaseEnd, true
}

// Len reports how many holds are currently claimable.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leases)
}
