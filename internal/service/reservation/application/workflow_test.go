package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"gereca/internal/pkg/clock"
	"gereca/internal/service/reservation/domain"
	"gereca/internal/service/reservation/domain/port"
	"gereca/internal/service/reservation/lease"
)

// fakeBooking keeps reservations in memory and records every terminal
// transition so races can assert exactly-once resolution.
type fakeBooking struct {
	mu           sync.Mutex
	nextID       int64
	holds        map[string]domain.Hold
	reservations map[int64]domain.Reservation
	releases     []string

	confirmCount int
	cancelCount  int
	expireCount  int

	createErr  error
	getResErr  error
	confirmErr error
	releaseErr error
}

func newFakeBooking() *fakeBooking {
	return &fakeBooking{
		holds:        make(map[string]domain.Hold),
		reservations: make(map[int64]domain.Reservation),
	}
}

func (f *fakeBooking) CreateHold(ctx context.Context, req port.CreateHoldRequest) (domain.Hold, domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Hold{}, domain.Reservation{}, f.createErr
	}
	f.nextID++
	hold := domain.Hold{
		HoldID:        fmt.Sprintf("hold-%d", f.nextID),
		RoomID:        req.RoomID,
		ReservationID: 100 + f.nextID,
		TTLSeconds:    req.TTLSeconds,
	}
	reservation := domain.Reservation{
		ReservationID: hold.ReservationID,
		RoomID:        req.RoomID,
		Guest:         req.Guest,
		Stay:          req.Stay,
		GuestCount:    req.GuestCount,
		CostTotal:     req.Price,
		GeneralStatus: domain.StatusPreReserva,
	}
	f.holds[hold.HoldID] = hold
	f.reservations[reservation.ReservationID] = reservation
	return hold, reservation, nil
}

func (f *fakeBooking) GetHold(ctx context.Context, holdID string) (*domain.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hold, ok := f.holds[holdID]
	if !ok {
		return nil, nil
	}
	return &hold, nil
}

func (f *fakeBooking) GetReservation(ctx context.Context, reservationID int64) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getResErr != nil {
		return nil, f.getResErr
	}
	reservation, ok := f.reservations[reservationID]
	if !ok {
		return nil, nil
	}
	return &reservation, nil
}

func (f *fakeBooking) ConfirmReservation(ctx context.Context, req port.ConfirmReservationRequest) (domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmErr != nil {
		return domain.Reservation{}, f.confirmErr
	}
	reservation := f.reservations[req.ReservationID]
	reservation.GeneralStatus = domain.StatusConfirmado
	f.reservations[req.ReservationID] = reservation
	f.confirmCount++
	return reservation, nil
}

func (f *fakeBooking) UpdateReservation(ctx context.Context, reservationID int64, update port.ReservationUpdate) (domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reservation := f.reservations[reservationID]
	if update.GeneralStatus != nil {
		switch *update.GeneralStatus {
		case domain.StatusCancelada:
			f.cancelCount++
		case domain.StatusExpirado:
			f.expireCount++
		}
		reservation.GeneralStatus = *update.GeneralStatus
	}
	if update.UserID != nil {
		reservation.UserID = *update.UserID
	}
	if update.Guest != nil {
		reservation.Guest = *update.Guest
	}
	f.reservations[reservationID] = reservation
	return reservation, nil
}

func (f *fakeBooking) ReleaseHold(ctx context.Context, holdID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.releases = append(f.releases, holdID)
	return nil
}

func (f *fakeBooking) status(reservationID int64) domain.GeneralStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reservations[reservationID].GeneralStatus
}

func (f *fakeBooking) resolutions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmCount + f.cancelCount + f.expireCount
}

type fakePayment struct {
	mu        sync.Mutex
	transfers []float64
	updated   []int64
	err       error
}

func (f *fakePayment) ExecuteTransfer(ctx context.Context, fromAccount, toAccount string, amount float64) (port.TransactionReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return port.TransactionReceipt{}, f.err
	}
	f.transfers = append(f.transfers, amount)
	return port.TransactionReceipt{
		PaymentID:   int64(7000 + len(f.transfers)),
		FromAccount: fromAccount,
		ToAccount:   toAccount,
		Amount:      amount,
	}, nil
}

func (f *fakePayment) UpdatePaymentAccounts(ctx context.Context, paymentID int64, fromAccount, toAccount string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, paymentID)
	return nil
}

type fakeInvoicing struct {
	invoiceID int64
	err       error
}

func (f *fakeInvoicing) EmitInvoice(ctx context.Context, reservationID int64, guestEmail string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.invoiceID, nil
}

func (f *fakeInvoicing) NextInvoiceNumber(ctx context.Context) (int, error) {
	return int(f.invoiceID) + 1, nil
}

type fakeDocument struct {
	url       string
	renderErr error
	uploadErr error
}

func (f *fakeDocument) RenderInvoice(ctx context.Context, invoiceID int64, snapshot domain.Reservation) ([]byte, error) {
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return []byte("%PDF-1.4"), nil
}

func (f *fakeDocument) Upload(ctx context.Context, data []byte, path string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.url + "/" + path, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.HoldEvent
}

func (f *fakeNotifier) PublishHoldEvent(ctx context.Context, event domain.HoldEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) kinds() []domain.HoldEventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := make([]domain.HoldEventKind, 0, len(f.events))
	for _, e := range f.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type memLeaseStore struct {
	mu     sync.Mutex
	leases map[string]lease.StoredLease
}

func newMemLeaseStore() *memLeaseStore {
	return &memLeaseStore{leases: make(map[string]lease.StoredLease)}
}

func (s *memLeaseStore) Save(ctx context.Context, l lease.StoredLease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leases[l.HoldID] = l
	return nil
}

func (s *memLeaseStore) Delete(ctx context.Context, holdID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leases, holdID)
	return nil
}

func (s *memLeaseStore) List(ctx context.Context) ([]lease.StoredLease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]lease.StoredLease, 0, len(s.leases))
	for _, l := range s.leases {
		out = append(out, l)
	}
	return out, nil
}

func (s *memLeaseStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leases)
}

type workflowFixture struct {
	workflow  *ReservationWorkflow
	booking   *fakeBooking
	payment   *fakePayment
	invoicing *fakeInvoicing
	document  *fakeDocument
	notifier  *fakeNotifier
	store     *memLeaseStore
}

func newFixture(t *testing.T) *workflowFixture {
	t.Helper()

	f := &workflowFixture{
		booking:   newFakeBooking(),
		payment:   &fakePayment{},
		invoicing: &fakeInvoicing{invoiceID: 901},
		document:  &fakeDocument{url: "https://files.example.com"},
		notifier:  &fakeNotifier{},
		store:     newMemLeaseStore(),
	}
	f.workflow = NewReservationWorkflow(WorkflowParams{
		Registry:           lease.NewRegistry(),
		Store:              f.store,
		Booking:            f.booking,
		Payment:            f.payment,
		Invoicing:          f.invoicing,
		Document:           f.document,
		Notifier:           f.notifier,
		Tracer:             otel.Tracer("test"),
		Clock:              clock.NewSystem(),
		DefaultTTL:         180 * time.Second,
		DestinationAccount: "196",
		InvoicePathPrefix:  "facturas",
	})
	return f
}

func validHoldRequest() CreateHoldRequest {
	checkIn := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	return CreateHoldRequest{
		RoomID:     "room-12",
		Stay:       domain.StayRange{CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, 3)},
		Guest:      domain.Guest{Name: "Ana Gomez", Document: "30111222", Email: "ana@example.com"},
		GuestCount: 2,
		UserID:     55,
		Price:      420.50,
	}
}

func TestWorkflow_CreateHold(t *testing.T) {
	t.Parallel()

	t.Run("registers lease, persists it and publishes the event", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.workflow.CreateHold(context.Background(), validHoldRequest())
		if err != nil {
			t.Fatalf("CreateHold: %v", err)
		}
		if result.HoldID == "" || result.ReservationID == 0 {
			t.Fatalf("incomplete result: %+v", result)
		}
		if result.LeaseEnd.Before(time.Now()) {
			t.Fatalf("lease end %v already in the past", result.LeaseEnd)
		}

		status, err := f.workflow.HoldStatus(context.Background(), result.HoldID)
		if err != nil {
			t.Fatalf("HoldStatus: %v", err)
		}
		if !status.Active {
			t.Fatalf("expected hold to be active")
		}
		if f.store.len() != 1 {
			t.Fatalf("expected one persisted lease, got %d", f.store.len())
		}
		kinds := f.notifier.kinds()
		if len(kinds) != 1 || kinds[0] != domain.HoldCreated {
			t.Fatalf("expected single hold.created event, got %v", kinds)
		}
	})

	t.Run("collaborator rejection leaves no local state", func(t *testing.T) {
		f := newFixture(t)
		f.booking.createErr = domain.ErrBookingUnavailable

		_, err := f.workflow.CreateHold(context.Background(), validHoldRequest())
		if !errors.Is(err, domain.ErrBookingUnavailable) {
			t.Fatalf("expected ErrBookingUnavailable, got %v", err)
		}
		if f.store.len() != 0 {
			t.Fatalf("expected no persisted lease")
		}
		if len(f.notifier.kinds()) != 0 {
			t.Fatalf("expected no events")
		}
	})

	t.Run("rejects invalid input before calling the collaborator", func(t *testing.T) {
		f := newFixture(t)

		bad := validHoldRequest()
		bad.TTLSeconds = -5
		if _, err := f.workflow.CreateHold(context.Background(), bad); !errors.Is(err, domain.ErrInvalidTTL) {
			t.Fatalf("expected ErrInvalidTTL, got %v", err)
		}

		bad = validHoldRequest()
		bad.Stay.CheckOut = bad.Stay.CheckIn
		if _, err := f.workflow.CreateHold(context.Background(), bad); !errors.Is(err, domain.ErrInvalidStayRange) {
			t.Fatalf("expected ErrInvalidStayRange, got %v", err)
		}

		bad = validHoldRequest()
		bad.GuestCount = 0
		if _, err := f.workflow.CreateHold(context.Background(), bad); !errors.Is(err, domain.ErrInvalidGuests) {
			t.Fatalf("expected ErrInvalidGuests, got %v", err)
		}

		if f.booking.nextID != 0 {
			t.Fatalf("collaborator must not be called for invalid input")
		}
	})
}

func TestWorkflow_ConfirmHold(t *testing.T) {
	t.Parallel()

	confirm := func(f *workflowFixture, holdID string) (ConfirmHoldResult, error) {
		return f.workflow.ConfirmHold(context.Background(), ConfirmHoldRequest{
			HoldID:        holdID,
			UserID:        55,
			SourceAccount: "194",
		})
	}

	t.Run("charges the authoritative total and settles everything", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.workflow.CreateHold(context.Background(), validHoldRequest())
		if err != nil {
			t.Fatalf("CreateHold: %v", err)
		}

		result, err := confirm(f, created.HoldID)
		if err != nil {
			t.Fatalf("ConfirmHold: %v", err)
		}
		if !result.Confirmed {
			t.Fatalf("expected Confirmed")
		}
		if result.InvoiceID != 901 {
			t.Fatalf("expected invoice 901, got %d", result.InvoiceID)
		}
		if result.DocumentURL == "" {
			t.Fatalf("expected a document URL")
		}

		if len(f.payment.transfers) != 1 || f.payment.transfers[0] != 420.50 {
			t.Fatalf("expected a single transfer of 420.50, got %v", f.payment.transfers)
		}
		if len(f.payment.updated) != 1 {
			t.Fatalf("expected payment accounts reconciliation, got %v", f.payment.updated)
		}
		if got := f.booking.status(created.ReservationID); got != domain.StatusConfirmado {
			t.Fatalf("expected CONFIRMADO, got %s", got)
		}
		if f.store.len() != 0 {
			t.Fatalf("expected persisted lease removed")
		}

		// The expiration callback racing in afterwards must find nothing.
		f.workflow.handleLeaseExpiry(created.HoldID)
		if len(f.booking.releases) != 0 {
			t.Fatalf("expiry after confirm must not release inventory")
		}
		if got := f.booking.status(created.ReservationID); got != domain.StatusConfirmado {
			t.Fatalf("expiry after confirm flipped status to %s", got)
		}
	})

	t.Run("second confirm observes HoldNotActive with terminal status", func(t *testing.T) {
		f := newFixture(t)
		created, _ := f.workflow.CreateHold(context.Background(), validHoldRequest())
		if _, err := confirm(f, created.HoldID); err != nil {
			t.Fatalf("first confirm: %v", err)
		}

		_, err := confirm(f, created.HoldID)
		var notActive *domain.HoldNotActiveError
		if !errors.As(err, &notActive) {
			t.Fatalf("expected HoldNotActiveError, got %v", err)
		}
		if !errors.Is(err, domain.ErrHoldNotActive) {
			t.Fatalf("expected errors.Is(ErrHoldNotActive)")
		}
		if notActive.Status != domain.StatusConfirmado {
			t.Fatalf("expected CONFIRMADO in error, got %q", notActive.Status)
		}
	})

	t.Run("confirm after expiry reports EXPIRADO", func(t *testing.T) {
		f := newFixture(t)
		created, _ := f.workflow.CreateHold(context.Background(), validHoldRequest())

		f.workflow.handleLeaseExpiry(created.HoldID)
		if got := f.booking.status(created.ReservationID); got != domain.StatusExpirado {
			t.Fatalf("expected EXPIRADO after expiry, got %s", got)
		}
		if len(f.booking.releases) != 1 {
			t.Fatalf("expected inventory released once, got %v", f.booking.releases)
		}

		_, err := confirm(f, created.HoldID)
		var notActive *domain.HoldNotActiveError
		if !errors.As(err, &notActive) {
			t.Fatalf("expected HoldNotActiveError, got %v", err)
		}
		if notActive.Status != domain.StatusExpirado {
			t.Fatalf("expected EXPIRADO in error, got %q", notActive.Status)
		}
		if len(f.payment.transfers) != 0 {
			t.Fatalf("no payment may run for an expired hold")
		}
	})

	t.Run("payment failure consumes the hold and reports ErrPaymentFailed", func(t *testing.T) {
		f := newFixture(t)
		created, _ := f.workflow.CreateHold(context.Background(), validHoldRequest())
		f.payment.err = domain.ErrInsufficientFunds

		_, err := confirm(f, created.HoldID)
		if !errors.Is(err, domain.ErrPaymentFailed) {
			t.Fatalf("expected ErrPaymentFailed, got %v", err)
		}
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected the gateway cause to stay reachable, got %v", err)
		}

		// Acknowledged orphan: the lease is consumed, the reservation stays
		// PRE_RESERVA upstream and the timer never fires for it again.
		if _, err := confirm(f, created.HoldID); !errors.Is(err, domain.ErrHoldNotActive) {
			t.Fatalf("expected hold to be consumed, got %v", err)
		}
		if len(f.booking.releases) != 0 {
			t.Fatalf("payment failure must not release inventory behind the caller's back")
		}
		if got := f.booking.status(created.ReservationID); got != domain.StatusPreReserva {
			t.Fatalf("expected PRE_RESERVA, got %s", got)
		}
	})

	t.Run("invoice failure degrades to confirmation without invoice", func(t *testing.T) {
		f := newFixture(t)
		created, _ := f.workflow.CreateHold(context.Background(), validHoldRequest())
		f.invoicing.err = errors.New("invoicing down")

		result, err := confirm(f, created.HoldID)
		if err != nil {
			t.Fatalf("ConfirmHold: %v", err)
		}
		if !result.Confirmed {
			t.Fatalf("payment succeeded, confirmation must stand")
		}
		if result.InvoiceID != 0 || result.DocumentURL != "" {
			t.Fatalf("expected zero invoice data, got %+v", result)
		}
	})

	t.Run("document failure degrades to confirmation without URL", func(t *testing.T) {
		f := newFixture(t)
		created, _ := f.workflow.CreateHold(context.Background(), validHoldRequest())
		f.document.renderErr = errors.New("render down")

		result, err := confirm(f, created.HoldID)
		if err != nil {
			t.Fatalf("ConfirmHold: %v", err)
		}
		if !result.Confirmed || result.InvoiceID != 901 {
			t.Fatalf("expected confirmed with invoice, got %+v", result)
		}
		if result.DocumentURL != "" {
			t.Fatalf("expected no document URL, got %q", result.DocumentURL)
		}
	})
}

func TestWorkflow_CancelHold(t *testing.T) {
	t.Parallel()

	t.Run("releases inventory and marks CANCELADA", func(t *testing.T) {
		f := newFixture(t)
		created, _ := f.workflow.CreateHold(context.Background(), validHoldRequest())

		result, err := f.workflow.CancelHold(context.Background(), created.HoldID)
		if err != nil {
			t.Fatalf("CancelHold: %v", err)
		}
		if result.ReservationID != created.ReservationID {
			t.Fatalf("unexpected reservation id %d", result.ReservationID)
		}
		if len(f.booking.releases) != 1 || f.booking.releases[0] != created.HoldID {
			t.Fatalf("expected release of %s, got %v", created.HoldID, f.booking.releases)
		}
		if got := f.booking.status(created.ReservationID); got != domain.StatusCancelada {
			t.Fatalf("expected CANCELADA, got %s", got)
		}
	})

	t.Run("second cancel observes HoldNotActive", func(t *testing.T) {
		f := newFixture(t)
		created, _ := f.workflow.CreateHold(context.Background(), validHoldRequest())

		if _, err := f.workflow.CancelHold(context.Background(), created.HoldID); err != nil {
			t.Fatalf("first cancel: %v", err)
		}
		_, err := f.workflow.CancelHold(context.Background(), created.HoldID)
		if !errors.Is(err, domain.ErrHoldNotActive) {
			t.Fatalf("expected ErrHoldNotActive, got %v", err)
		}
		if len(f.booking.releases) != 1 {
			t.Fatalf("expected a single release, got %v", f.booking.releases)
		}
	})
}

func TestWorkflow_ExactlyOneResolution(t *testing.T) {
	t.Parallel()

	// Confirm, cancel and the expiration callback all race for the same hold;
	// exactly one terminal transition may reach the booking collaborator.
	for round := 0; round < 20; round++ {
		f := newFixture(t)
		created, err := f.workflow.CreateHold(context.Background(), validHoldRequest())
		if err != nil {
			t.Fatalf("CreateHold: %v", err)
		}

		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			<-start
			f.workflow.ConfirmHold(context.Background(), ConfirmHoldRequest{
				HoldID:        created.HoldID,
				UserID:        55,
				SourceAccount: "194",
			})
		}()
		go func() {
			defer wg.Done()
			<-start
			f.workflow.CancelHold(context.Background(), created.HoldID)
		}()
		go func() {
			defer wg.Done()
			<-start
			f.workflow.handleLeaseExpiry(created.HoldID)
		}()
		close(start)
		wg.Wait()

		if got := f.booking.resolutions(); got != 1 {
			t.Fatalf("round %d: expected exactly one terminal transition, got %d", round, got)
		}
	}
}

func TestWorkflow_RecoverLeases(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	now := time.Now()

	// One lease whose window already elapsed while the process was down, one
	// that is still live.
	f.booking.holds["hold-old"] = domain.Hold{HoldID: "hold-old", RoomID: "room-1", ReservationID: 501}
	f.booking.reservations[501] = domain.Reservation{ReservationID: 501, GeneralStatus: domain.StatusPreReserva}
	f.store.Save(context.Background(), lease.StoredLease{
		HoldID: "hold-old", RoomID: "room-1", ReservationID: 501, LeaseEnd: now.Add(-time.Minute),
	})

	f.booking.holds["hold-live"] = domain.Hold{HoldID: "hold-live", RoomID: "room-2", ReservationID: 502}
	f.booking.reservations[502] = domain.Reservation{ReservationID: 502, GeneralStatus: domain.StatusPreReserva}
	f.store.Save(context.Background(), lease.StoredLease{
		HoldID: "hold-live", RoomID: "room-2", ReservationID: 502, LeaseEnd: now.Add(time.Hour),
	})

	if err := f.workflow.RecoverLeases(context.Background()); err != nil {
		t.Fatalf("RecoverLeases: %v", err)
	}

	if got := f.booking.status(501); got != domain.StatusExpirado {
		t.Fatalf("expected past-due lease finalized as EXPIRADO, got %s", got)
	}
	if len(f.booking.releases) != 1 || f.booking.releases[0] != "hold-old" {
		t.Fatalf("expected hold-old released, got %v", f.booking.releases)
	}

	status, err := f.workflow.HoldStatus(context.Background(), "hold-live")
	if err != nil {
		t.Fatalf("HoldStatus: %v", err)
	}
	if !status.Active {
		t.Fatalf("expected live lease re-armed and active")
	}
	if status.RemainingSeconds <= 0 {
		t.Fatalf("expected remaining time on recovered lease")
	}

	if _, err := f.workflow.CancelHold(context.Background(), "hold-live"); err != nil {
		t.Fatalf("recovered lease must be claimable: %v", err)
	}
}
