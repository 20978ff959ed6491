package port

import "context"

// InvoicingService is the outbound port to the invoicing back end. Invoice
// numbers are allocated by a collaborator-owned sequence, never derived
// client-side.
type InvoicingService interface {
	// EmitInvoice creates the invoice for a confirmed reservation and returns
	// its id.
	EmitInvoice(ctx context.Context, reservationID int64, guestEmail string) (int64, error)

	// NextInvoiceNumber peeks the collaborator's sequence (admin/telemetry).
	NextInvoiceNumber(ctx context.Context) (int, error)
}
