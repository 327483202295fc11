package sim

import (
	"context"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// Payments is the fare settlement hook: hold when an order is claimed,
// capture when it is delivered, cancel when the claim falls through.
type Payments interface {
	Hold(ctx context.Context, amount int64, currency string) (string, error)
	Capture(ctx context.Context, paymentID string) error
	Cancel(ctx context.Context, paymentID string) error
}

// StripePayments settles fares through Stripe PaymentIntents with manual
// capture.
type StripePayments struct{}

func NewStripePayments(apiKey string) *StripePayments {
	stripe.Key = apiKey
	return &StripePayments{}
}

func (s *StripePayments) Hold(ctx context.Context, amount int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

func (s *StripePayments) Capture(ctx context.Context, paymentID string) error {
	_, err := paymentintent.Capture(paymentID, nil)
	return err
}

func (s *StripePayments) Cancel(ctx context.Context, paymentID string) error {
	_, err := paymentintent.Cancel(paymentID, nil)
	return err
}

// NopPayments is used when no Stripe key is configured.
type NopPayments struct{}

func (NopPayments) Hold(ctx context.Context, amount int64, currency string) (string, error) {
	return "", nil
}
func (NopPayments) Capture(ctx context.Context, paymentID string) error { return nil }
func (NopPayments) Cancel(ctx context.Context, paymentID string) error  { return nil }
