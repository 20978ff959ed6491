package adapter

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/errors"

	"gereca/internal/pkg/httpclient"
	"gereca/internal/service/reservation/domain"
)

// DocumentHTTPAdapter implements port.DocumentService: the render endpoint
// returns the PDF bytes, the upload endpoint stores them in the object store
// and answers with the public URL.
type DocumentHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewDocumentHTTPAdapter(client *httpclient.Client, baseURL string) *DocumentHTTPAdapter {
	return &DocumentHTTPAdapter{client: client, baseURL: baseURL}
}

type uploadResponse struct {
	URL string `json:"url"`
}

func (a *DocumentHTTPAdapter) RenderInvoice(ctx context.Context, invoiceID int64, snapshot domain.Reservation) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/api/v1/documentos/factura/%d/pdf", a.baseURL, invoiceID)
	data, err := a.client.GetRaw(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrUpstreamUnavailable, "rendering invoice %d: %v", invoiceID, err)
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(domain.ErrUpstreamUnavailable, "rendering invoice %d: empty document", invoiceID)
	}
	return data, nil
}

func (a *DocumentHTTPAdapter) Upload(ctx context.Context, data []byte, path string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/documentos/subir?ruta=%s", a.baseURL, url.QueryEscape(path))

	var resp uploadResponse
	if err := a.client.PostBytes(ctx, endpoint, "application/pdf", data, &resp); err != nil {
		return "", errors.Wrapf(domain.ErrUpstreamUnavailable, "uploading document %s: %v", path, err)
	}
	return resp.URL, nil
}
