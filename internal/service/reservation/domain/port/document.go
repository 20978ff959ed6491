package port

import (
	"context"

	"gereca/internal/service/reservation/domain"
)

// DocumentService renders invoice documents and stores them remotely.
// Both steps run after payment has committed; their failures must degrade,
// never abort, a confirmation.
type DocumentService interface {
	RenderInvoice(ctx context.Context, invoiceID int64, snapshot domain.Reservation) ([]byte, error)

	// Upload stores data under path and returns the public URL.
	Upload(ctx context.Context, data []byte, path string) (string, error)
}
