package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"gereca/internal/pkg/httpclient"
	"gereca/internal/service/reservation/domain"
	"gereca/internal/service/reservation/domain/port"
)

// PaymentHTTPAdapter implements port.PaymentService against the banking
// collaborator. The transfer endpoint encodes everything in the path.
type PaymentHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewPaymentHTTPAdapter(client *httpclient.Client, baseURL string) *PaymentHTTPAdapter {
	return &PaymentHTTPAdapter{client: client, baseURL: baseURL}
}

type transactionResponse struct {
	PaymentID   int64   `json:"idTransaccion"`
	FromAccount string  `json:"cuentaOrigen"`
	ToAccount   string  `json:"cuentaDestino"`
	Amount      float64 `json:"monto"`
	IssuedAt    string  `json:"fecha"`
}

func (a *PaymentHTTPAdapter) ExecuteTransfer(ctx context.Context, fromAccount, toAccount string, amount float64) (port.TransactionReceipt, error) {
	endpoint := fmt.Sprintf("%s/api/Transacciones/%s/%s/%s",
		a.baseURL,
		url.PathEscape(fromAccount),
		url.PathEscape(toAccount),
		strconv.FormatFloat(amount, 'f', 2, 64),
	)

	var resp transactionResponse
	if err := a.client.PostJSON(ctx, endpoint, nil, &resp); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			switch statusErr.Code {
			case http.StatusPaymentRequired, http.StatusConflict:
				return port.TransactionReceipt{}, errors.Wrapf(domain.ErrInsufficientFunds,
					"transfer %s -> %s of %.2f: %s", fromAccount, toAccount, amount, statusErr.Body)
			}
		}
		return port.TransactionReceipt{}, errors.Wrapf(domain.ErrGatewayUnavailable,
			"transfer %s -> %s of %.2f: %v", fromAccount, toAccount, amount, err)
	}

	issuedAt, _ := time.Parse(time.RFC3339, resp.IssuedAt)
	return port.TransactionReceipt{
		PaymentID:   resp.PaymentID,
		FromAccount: resp.FromAccount,
		ToAccount:   resp.ToAccount,
		Amount:      resp.Amount,
		IssuedAt:    issuedAt,
	}, nil
}

func (a *PaymentHTTPAdapter) UpdatePaymentAccounts(ctx context.Context, paymentID int64, fromAccount, toAccount string) error {
	body := map[string]string{
		"cuentaOrigen":  fromAccount,
		"cuentaDestino": toAccount,
	}
	endpoint := fmt.Sprintf("%s/api/Transacciones/%d", a.baseURL, paymentID)
	if err := a.client.PutJSON(ctx, endpoint, body, nil); err != nil {
		return errors.Wrapf(domain.ErrGatewayUnavailable, "updating payment %d accounts: %v", paymentID, err)
	}
	return nil
}
