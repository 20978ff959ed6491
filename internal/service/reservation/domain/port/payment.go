package port

import (
	"context"
	"time"
)

// TransactionReceipt is the bank's acknowledgement of an executed transfer.
type TransactionReceipt struct {
	PaymentID   int64
	FromAccount string
	ToAccount   string
	Amount      float64
	IssuedAt    time.Time
}

// PaymentService is the outbound port to the banking back end.
type PaymentService interface {
	// ExecuteTransfer moves amount between accounts. Fails with
	// domain.ErrInsufficientFunds or domain.ErrGatewayUnavailable.
	ExecuteTransfer(ctx context.Context, fromAccount, toAccount string, amount float64) (TransactionReceipt, error)

	// UpdatePaymentAccounts rewrites the origin/destination accounts on an
	// existing payment record so auditing ties the row to the real payer.
	UpdatePaymentAccounts(ctx context.Context, paymentID int64, fromAccount, toAccount string) error
}
