// internal/services/payment_gateway.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	striperefund "github.com/stripe/stripe-go/v74/refund"

	"github.com/nguyenquyen/evdata-backend/internal/models"
)

// PaymentGateway charges consumers and processes refunds. The default
// deployment uses the simulated gateway; configuring a Stripe key swaps in
// the real one.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, transaction *models.Transaction) (gatewayID string, err error)
	ProcessRefund(ctx context.Context, refund *models.Refund, transaction *models.Transaction) (gatewayRefundID string, err error)
}

// SimulatedGateway approves every charge after a fixed delay.
type SimulatedGateway struct {
	Delay time.Duration
}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{Delay: 500 * time.Millisecond}
}

func (g *SimulatedGateway) ProcessPayment(ctx context.Context, transaction *models.Transaction) (string, error) {
	select {
	case <-time.After(g.Delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "sim_pay_" + transaction.TransactionID, nil
}

func (g *SimulatedGateway) ProcessRefund(ctx context.Context, refund *models.Refund, transaction *models.Transaction) (string, error) {
	select {
	case <-time.After(g.Delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "sim_ref_" + refund.RefundID, nil
}

// StripeGateway charges through Stripe PaymentIntents.
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) ProcessPayment(ctx context.Context, transaction *models.Transaction) (string, error) {
	// Stripe amounts are in the currency's smallest unit
	amountInCents := transaction.Amount.Mul(centsFactor).IntPart()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String(transaction.Currency),
		Confirm:  stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("transaction_id", transaction.TransactionID)
	params.AddMetadata("dataset_id", fmt.Sprintf("%d", transaction.DatasetID))

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create payment intent: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return "", fmt.Errorf("payment not completed: status %s", pi.Status)
	}

	return pi.ID, nil
}

func (g *StripeGateway) ProcessRefund(ctx context.Context, r *models.Refund, transaction *models.Transaction) (string, error) {
	amountInCents := r.Amount.Mul(centsFactor).IntPart()

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(transaction.PaymentGatewayID),
		Amount:        stripe.Int64(amountInCents),
	}
	params.Context = ctx
	params.AddMetadata("refund_id", r.RefundID)

	ref, err := striperefund.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create refund: %w", err)
	}

	return ref.ID, nil
}
