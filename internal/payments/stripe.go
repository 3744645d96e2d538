// Package payments integrates the Stripe payment processor: checkout-link
// creation for paid services and payment-status lookup before booking.
package payments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slotline/slotline/internal/models"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// StripeService creates and verifies checkout links. The Stripe API key is
// installed globally at bootstrap (stripe.Key), matching the SDK's usage.
type StripeService struct {
	successURL string
}

// NewStripeService creates the service. successURL is where Stripe sends
// the customer after paying; the conversation itself confirms via lookup.
func NewStripeService(apiKey, successURL string) *StripeService {
	stripe.Key = apiKey
	return &StripeService{successURL: successURL}
}

// CreateLink creates a checkout link for the amount, correlating it back to
// the conversation session through metadata.
func (s *StripeService) CreateLink(ctx context.Context, amountCents int64, currency, description, sessionID string) (models.PaymentLink, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(amountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(description),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(s.successURL),
	}
	params.Context = ctx
	params.AddMetadata("conversation_session", sessionID)

	cs, err := session.New(params)
	if err != nil {
		slog.Error("StripeService.CreateLink: checkout creation failed", "error", err, "sessionID", sessionID)
		return models.PaymentLink{}, fmt.Errorf("failed to create payment link: %w", err)
	}
	slog.Info("StripeService.CreateLink: link created", "checkout", cs.ID, "sessionID", sessionID)
	return models.PaymentLink{ID: cs.ID, URL: cs.URL}, nil
}

// Verify looks up the checkout's payment status. It returns the payment
// confirmation identifier when the checkout has been paid.
func (s *StripeService) Verify(ctx context.Context, linkID string) (bool, string, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := session.Get(linkID, params)
	if err != nil {
		slog.Error("StripeService.Verify: checkout lookup failed", "error", err, "checkout", linkID)
		return false, "", fmt.Errorf("failed to verify payment: %w", err)
	}
	if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		slog.Debug("StripeService.Verify: not paid yet", "checkout", linkID, "status", cs.PaymentStatus)
		return false, "", nil
	}
	confirmation := ""
	if cs.PaymentIntent != nil {
		confirmation = cs.PaymentIntent.ID
	}
	return true, confirmation, nil
}
