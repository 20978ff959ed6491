package adapter

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"gereca/internal/pkg/httpclient"
	"gereca/internal/service/reservation/domain"
)

// InvoicingHTTPAdapter implements port.InvoicingService. The invoice number
// sequence lives on the collaborator side.
type InvoicingHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewInvoicingHTTPAdapter(client *httpclient.Client, baseURL string) *InvoicingHTTPAdapter {
	return &InvoicingHTTPAdapter{client: client, baseURL: baseURL}
}

type emitInvoiceResponse struct {
	InvoiceID int64 `json:"idFactura"`
}

type nextNumberResponse struct {
	Next int `json:"siguienteNumero"`
}

func (a *InvoicingHTTPAdapter) EmitInvoice(ctx context.Context, reservationID int64, guestEmail string) (int64, error) {
	body := map[string]interface{}{
		"idReserva":    reservationID,
		"emailHuesped": guestEmail,
	}

	var resp emitInvoiceResponse
	endpoint := a.baseURL + "/api/v1/facturas/emitir-interno"
	if err := a.client.PostJSON(ctx, endpoint, body, &resp); err != nil {
		return 0, errors.Wrapf(domain.ErrUpstreamUnavailable, "emitting invoice for reservation %d: %v", reservationID, err)
	}
	return resp.InvoiceID, nil
}

func (a *InvoicingHTTPAdapter) NextInvoiceNumber(ctx context.Context) (int, error) {
	var resp nextNumberResponse
	endpoint := fmt.Sprintf("%s/api/v1/facturas/siguiente-numero", a.baseURL)
	if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return 0, errors.Wrapf(domain.ErrUpstreamUnavailable, "fetching next invoice number: %v", err)
	}
	return resp.Next, nil
}
