package application

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gereca/internal/pkg/clock"
	"gereca/internal/pkg/logger"
	"gereca/internal/pkg/metrics"
	"gereca/internal/service/reservation/domain"
	"gereca/internal/service/reservation/domain/port"
	"gereca/internal/service/reservation/lease"
)

// ReservationWorkflow orchestrates the two-phase booking protocol: a
// time-boxed hold on inventory, then either a confirmation (payment, durable
// reservation, invoice, document) or an automatic release when the lease
// elapses. Every terminal transition goes through the registry's Claim, so
// for one hold exactly one of confirm/cancel/expire ever runs its body,
// regardless of how the timer races inbound requests.
type ReservationWorkflow struct {
	registry  *lease.Registry
	scheduler *lease.Scheduler
	store     lease.Store

	booking   port.BookingService
	payment   port.PaymentService
	invoicing port.InvoicingService
	document  port.DocumentService
	notifier  port.HoldNotifier

	tracer trace.Tracer
	clock  clock.Clock

	defaultTTL         time.Duration
	destinationAccount string
	invoicePathPrefix  string
}

type WorkflowParams struct {
	Registry *lease.Registry
	Store    lease.Store

	Booking   port.BookingService
	Payment   port.PaymentService
	Invoicing port.InvoicingService
	Document  port.DocumentService
	Notifier  port.HoldNotifier

	Tracer trace.Tracer
	Clock  clock.Clock

	DefaultTTL         time.Duration
	DestinationAccount string
	InvoicePathPrefix  string
}

func NewReservationWorkflow(p WorkflowParams) *ReservationWorkflow {
	w := &ReservationWorkflow{
		registry:           p.Registry,
		store:              p.Store,
		booking:            p.Booking,
		payment:            p.Payment,
		invoicing:          p.Invoicing,
		document:           p.Document,
		notifier:           p.Notifier,
		tracer:             p.Tracer,
		clock:              p.Clock,
		defaultTTL:         p.DefaultTTL,
		destinationAccount: p.DestinationAccount,
		invoicePathPrefix:  p.InvoicePathPrefix,
	}
	if w.clock == nil {
		w.clock = clock.NewSystem()
	}
	w.scheduler = lease.NewScheduler(w.handleLeaseExpiry)
	return w
}

// RunScheduler drives the expiration side until ctx is done. Call it from
// one goroutine, before the first CreateHold.
func (w *ReservationWorkflow) RunScheduler(ctx context.Context) {
	w.scheduler.Run(ctx)
}

// CreateHold asks the booking collaborator for a pre-reserva plus hold, then
// registers the lease locally and arms its expiration. On a collaborator
// rejection or outage no local state exists, so there is nothing to roll back.
func (w *ReservationWorkflow) CreateHold(ctx context.Context, req CreateHoldRequest) (CreateHoldResult, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.CreateHold")
	defer span.End()

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if req.TTLSeconds == 0 {
		ttl = w.defaultTTL
	}
	if ttl < time.Second {
		return CreateHoldResult{}, domain.ErrInvalidTTL
	}
	if !req.Stay.Valid() {
		return CreateHoldResult{}, domain.ErrInvalidStayRange
	}
	if req.GuestCount <= 0 {
		return CreateHoldResult{}, domain.ErrInvalidGuests
	}
	if req.Guest.Name == "" || req.Guest.Email == "" {
		return CreateHoldResult{}, domain.ErrInvalidGuest
	}

	hold, reservation, err := w.booking.CreateHold(ctx, port.CreateHoldRequest{
		RoomID:     req.RoomID,
		Stay:       req.Stay,
		Guest:      req.Guest,
		GuestCount: req.GuestCount,
		TTLSeconds: int(ttl / time.Second),
		Price:      req.Price,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "booking collaborator refused hold")
		return CreateHoldResult{}, err
	}

	leaseStart := w.clock.Now()
	leaseEnd := leaseStart.Add(ttl)

	cancel := w.scheduler.Start(hold.HoldID, ttl)
	entry := lease.NewLease(hold.HoldID, hold.RoomID, reservation.ReservationID, leaseEnd, cancel)
	if err := w.registry.Insert(entry); err != nil {
		cancel()
		span.RecordError(err)
		return CreateHoldResult{}, err
	}
	metrics.HoldsCreated.Inc()
	metrics.ActiveLeases.Set(float64(w.registry.Len()))

	// Durability and notification are best-effort; the hold is already live.
	if err := w.store.Save(ctx, lease.StoredLease{
		HoldID:        hold.HoldID,
		RoomID:        hold.RoomID,
		ReservationID: reservation.ReservationID,
		LeaseEnd:      leaseEnd,
	}); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("hold_id", hold.HoldID).Msg("could not persist lease; hold will not survive a restart")
	}
	w.publishEvent(ctx, domain.HoldEvent{
		Kind:          domain.HoldCreated,
		HoldID:        hold.HoldID,
		RoomID:        hold.RoomID,
		ReservationID: reservation.ReservationID,
		UserID:        req.UserID,
		LeaseEnd:      leaseEnd,
		OccurredAt:    leaseStart,
	})

	span.SetAttributes(
		attribute.String("hold.id", hold.HoldID),
		attribute.Int64("reservation.id", reservation.ReservationID),
	)
	logger.Ctx(ctx).Info().
		Str("hold_id", hold.HoldID).
		Int64("reservation_id", reservation.ReservationID).
		Time("lease_end", leaseEnd).
		Msg("hold created")

	return CreateHoldResult{
		HoldID:        hold.HoldID,
		ReservationID: reservation.ReservationID,
		LeaseEnd:      leaseEnd,
	}, nil
}

// ConfirmHold settles a hold into a paid reservation. The claim happens
// before anything else, so once this method is past step one the expiration
// timer can no longer touch the hold even if its callback fires.
func (w *ReservationWorkflow) ConfirmHold(ctx context.Context, req ConfirmHoldRequest) (ConfirmHoldResult, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.ConfirmHold")
	defer span.End()
	span.SetAttributes(attribute.String("hold.id", req.HoldID))

	entry, ok := w.registry.Claim(req.HoldID)
	if !ok {
		return ConfirmHoldResult{}, w.resolveLostClaim(ctx, req.HoldID)
	}
	entry.StopExpiry()
	metrics.ActiveLeases.Set(float64(w.registry.Len()))
	w.deleteStoredLease(ctx, req.HoldID)

	// The amount charged is the reservation's total as the booking
	// collaborator knows it, never a client-supplied figure.
	reservation, err := w.booking.GetReservation(ctx, entry.ReservationID)
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("hold_id", req.HoldID).
			Int64("reservation_id", entry.ReservationID).
			Msg("hold claimed but reservation fetch failed; reservation left unresolved upstream")
		return ConfirmHoldResult{}, fmt.Errorf("%w: fetching reservation %d: %v", domain.ErrUpstreamUnavailable, entry.ReservationID, err)
	}
	if reservation == nil {
		return ConfirmHoldResult{}, fmt.Errorf("%w: reservation %d not found", domain.ErrUpstreamUnavailable, entry.ReservationID)
	}

	receipt, err := w.payment.ExecuteTransfer(ctx, req.SourceAccount, w.destinationAccount, reservation.CostTotal)
	if err != nil {
		// Known orphan case: the claim is irreversible, so a failed payment
		// leaves the reservation outside its original TTL contract. Recorded
		// loudly instead of silently re-arming a hold the business never
		// specified.
		metrics.HoldsPaymentFailed.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment failed after claim")
		logger.Ctx(ctx).Warn().Err(err).
			Str("hold_id", req.HoldID).
			Int64("reservation_id", entry.ReservationID).
			Float64("amount", reservation.CostTotal).
			Msg("payment failed after hold claim; reservation orphaned from ttl contract")
		return ConfirmHoldResult{}, &domain.PaymentError{Cause: err}
	}

	confirmed, err := w.booking.ConfirmReservation(ctx, port.ConfirmReservationRequest{
		ReservationID: entry.ReservationID,
		HoldID:        req.HoldID,
		RoomID:        entry.RoomID,
		UserID:        req.UserID,
		Stay:          reservation.Stay,
		GuestCount:    reservation.GuestCount,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "confirm failed after payment")
		logger.Ctx(ctx).Error().Err(err).
			Str("hold_id", req.HoldID).
			Int64("reservation_id", entry.ReservationID).
			Int64("payment_id", receipt.PaymentID).
			Msg("payment committed but reservation confirm failed; manual reconciliation required")
		return ConfirmHoldResult{}, fmt.Errorf("%w: confirming reservation %d: %v", domain.ErrUpstreamUnavailable, entry.ReservationID, err)
	}

	status := domain.StatusConfirmado
	update := port.ReservationUpdate{GeneralStatus: &status, UserID: &req.UserID, Guest: req.GuestUpdate}
	if _, err := w.booking.UpdateReservation(ctx, confirmed.ReservationID, update); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Int64("reservation_id", confirmed.ReservationID).
			Msg("could not record owning user on confirmed reservation")
	}

	result := ConfirmHoldResult{ReservationID: confirmed.ReservationID, Confirmed: true}

	// Invoice and document run after the money moved; their failures degrade
	// the response, they must never look like a failed payment.
	invoiceID, err := w.invoicing.EmitInvoice(ctx, confirmed.ReservationID, confirmed.Guest.Email)
	if err != nil {
		metrics.DocumentFailures.Inc()
		span.AddEvent("invoice emission degraded")
		logger.Ctx(ctx).Error().Err(err).
			Int64("reservation_id", confirmed.ReservationID).
			Msg("invoice emission failed; confirmation reported without invoice")
	} else {
		result.InvoiceID = invoiceID
		result.DocumentURL = w.renderAndUpload(ctx, invoiceID, confirmed)
	}

	w.reconcilePayment(ctx, receipt, req.SourceAccount)

	metrics.HoldsConfirmed.Inc()
	w.publishEvent(ctx, domain.HoldEvent{
		Kind:          domain.HoldConfirmed,
		HoldID:        req.HoldID,
		RoomID:        entry.RoomID,
		ReservationID: confirmed.ReservationID,
		UserID:        req.UserID,
		OccurredAt:    w.clock.Now(),
	})
	logger.Ctx(ctx).Info().
		Str("hold_id", req.HoldID).
		Int64("reservation_id", confirmed.ReservationID).
		Int64("invoice_id", result.InvoiceID).
		Msg("hold confirmed")

	return result, nil
}

// CancelHold releases a hold on explicit user request.
func (w *ReservationWorkflow) CancelHold(ctx context.Context, holdID string) (CancelHoldResult, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.CancelHold")
	defer span.End()
	span.SetAttributes(attribute.String("hold.id", holdID))

	entry, ok := w.registry.Claim(holdID)
	if !ok {
		return CancelHoldResult{}, w.resolveLostClaim(ctx, holdID)
	}
	entry.StopExpiry()
	metrics.ActiveLeases.Set(float64(w.registry.Len()))
	w.deleteStoredLease(ctx, holdID)

	if err := w.booking.ReleaseHold(ctx, holdID); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("hold_id", holdID).
			Msg("hold claimed for cancel but release failed upstream")
		return CancelHoldResult{}, fmt.Errorf("%w: releasing hold %s: %v", domain.ErrUpstreamUnavailable, holdID, err)
	}

	status := domain.StatusCancelada
	if _, err := w.booking.UpdateReservation(ctx, entry.ReservationID, port.ReservationUpdate{GeneralStatus: &status}); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Int64("reservation_id", entry.ReservationID).
			Msg("inventory released but reservation status update failed")
	}

	metrics.HoldsCancelled.Inc()
	w.publishEvent(ctx, domain.HoldEvent{
		Kind:          domain.HoldCancelled,
		HoldID:        holdID,
		RoomID:        entry.RoomID,
		ReservationID: entry.ReservationID,
		OccurredAt:    w.clock.Now(),
	})
	logger.Ctx(ctx).Info().Str("hold_id", holdID).Msg("hold cancelled")

	return CancelHoldResult{HoldID: holdID, ReservationID: entry.ReservationID}, nil
}

// HoldStatus serves read-only status queries. It uses Lookup, never Claim,
// and therefore never influences the hold's outcome.
func (w *ReservationWorkflow) HoldStatus(ctx context.Context, holdID string) (HoldStatusResult, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.HoldStatus")
	defer span.End()

	if leaseEnd, ok := w.registry.Lookup(holdID); ok {
		remaining := int(leaseEnd.Sub(w.clock.Now()) / time.Second)
		if remaining < 0 {
			remaining = 0
		}
		return HoldStatusResult{HoldID: holdID, Active: true, LeaseEnd: leaseEnd, RemainingSeconds: remaining}, nil
	}
	status := w.terminalStatus(ctx, holdID)
	return HoldStatusResult{HoldID: holdID, Active: false, Status: status}, nil
}

// FinalizeExpired runs the expire side of a claimed lease: release the
// inventory upstream and mark the reservation EXPIRADO, keeping whatever
// partial guest data exists. There is no interactive caller; failures are
// logged once and not retried.
func (w *ReservationWorkflow) FinalizeExpired(ctx context.Context, entry lease.Lease) {
	ctx, span := w.tracer.Start(ctx, "workflow.FinalizeExpired")
	defer span.End()
	span.SetAttributes(attribute.String("hold.id", entry.HoldID))

	w.deleteStoredLease(ctx, entry.HoldID)

	if err := w.booking.ReleaseHold(ctx, entry.HoldID); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("hold_id", entry.HoldID).
			Msg("expired hold could not be released upstream")
	}

	// Partial update: guest data captured during the hold survives, only the
	// status flips.
	status := domain.StatusExpirado
	if _, err := w.booking.UpdateReservation(ctx, entry.ReservationID, port.ReservationUpdate{GeneralStatus: &status}); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Int64("reservation_id", entry.ReservationID).
			Msg("could not mark reservation expired")
	}

	metrics.HoldsExpired.Inc()
	w.publishEvent(ctx, domain.HoldEvent{
		Kind:          domain.HoldExpired,
		HoldID:        entry.HoldID,
		RoomID:        entry.RoomID,
		ReservationID: entry.ReservationID,
		OccurredAt:    w.clock.Now(),
	})
	logger.Ctx(ctx).Info().Str("hold_id", entry.HoldID).Msg("hold expired and released")
}

// RecoverLeases replays persisted leases after a restart: past-due leases are
// finalized immediately, live ones are re-armed with their remaining TTL.
func (w *ReservationWorkflow) RecoverLeases(ctx context.Context) error {
	stored, err := w.store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing persisted leases: %w", err)
	}

	now := w.clock.Now()
	recovered, expired := 0, 0
	for _, s := range stored {
		if !s.LeaseEnd.After(now) {
			w.FinalizeExpired(ctx, lease.NewLease(s.HoldID, s.RoomID, s.ReservationID, s.LeaseEnd, nil))
			expired++
			continue
		}
		cancel := w.scheduler.Start(s.HoldID, s.LeaseEnd.Sub(now))
		if err := w.registry.Insert(lease.NewLease(s.HoldID, s.RoomID, s.ReservationID, s.LeaseEnd, cancel)); err != nil {
			cancel()
			continue
		}
		recovered++
	}
	metrics.ActiveLeases.Set(float64(w.registry.Len()))
	if recovered > 0 || expired > 0 {
		logger.Ctx(ctx).Info().
			Int("recovered", recovered).
			Int("expired_on_recovery", expired).
			Msg("lease recovery sweep finished")
	}
	return nil
}

// handleLeaseExpiry is the scheduler callback. The claim decides the race
// against confirm/cancel; losing it means the hold was already resolved.
func (w *ReservationWorkflow) handleLeaseExpiry(holdID string) {
	entry, ok := w.registry.Claim(holdID)
	if !ok {
		return
	}
	metrics.ActiveLeases.Set(float64(w.registry.Len()))

	// Not request-driven: a fresh root context, bounded so a hung collaborator
	// cannot pin the goroutine forever.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	w.FinalizeExpired(ctx, entry)
}

// resolveLostClaim builds the HoldNotActive error for a claim that found
// nothing, asking the booking collaborator which terminal state the
// reservation reached, since the registry keeps no history.
func (w *ReservationWorkflow) resolveLostClaim(ctx context.Context, holdID string) error {
	return &domain.HoldNotActiveError{HoldID: holdID, Status: w.terminalStatus(ctx, holdID)}
}

func (w *ReservationWorkflow) terminalStatus(ctx context.Context, holdID string) domain.GeneralStatus {
	hold, err := w.booking.GetHold(ctx, holdID)
	if err != nil || hold == nil {
		return domain.StatusUnknown
	}
	reservation, err := w.booking.GetReservation(ctx, hold.ReservationID)
	if err != nil || reservation == nil {
		return domain.StatusUnknown
	}
	return reservation.GeneralStatus
}

func (w *ReservationWorkflow) renderAndUpload(ctx context.Context, invoiceID int64, snapshot domain.Reservation) string {
	data, err := w.document.RenderInvoice(ctx, invoiceID, snapshot)
	if err != nil {
		metrics.DocumentFailures.Inc()
		logger.Ctx(ctx).Error().Err(err).Int64("invoice_id", invoiceID).Msg("invoice document render failed")
		return ""
	}
	path := fmt.Sprintf("%s/pdf%d.pdf", w.invoicePathPrefix, invoiceID)
	url, err := w.document.Upload(ctx, data, path)
	if err != nil {
		metrics.DocumentFailures.Inc()
		logger.Ctx(ctx).Error().Err(err).Int64("invoice_id", invoiceID).Msg("invoice document upload failed")
		return ""
	}
	return url
}

func (w *ReservationWorkflow) reconcilePayment(ctx context.Context, receipt port.TransactionReceipt, sourceAccount string) {
	if err := w.payment.UpdatePaymentAccounts(ctx, receipt.PaymentID, sourceAccount, w.destinationAccount); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Int64("payment_id", receipt.PaymentID).
			Msg("payment record account reconciliation failed")
	}
}

func (w *ReservationWorkflow) deleteStoredLease(ctx context.Context, holdID string) {
	if err := w.store.Delete(ctx, holdID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("hold_id", holdID).Msg("could not delete persisted lease")
	}
}

func (w *ReservationWorkflow) publishEvent(ctx context.Context, event domain.HoldEvent) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.PublishHoldEvent(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("hold_id", event.HoldID).Msg("hold event publication failed")
	}
}
