package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/payments"
)

var _ payments.Gateway = (*Client)(nil)

func (c *Client) Provider() enums.PaymentProvider {
	return enums.PaymentProviderStripe
}

// Capture creates and confirms a PaymentIntent in one call. Anything other
// than a succeeded intent is treated as a decline and the intent is cancelled.
func (c *Client) Capture(ctx context.Context, req payments.CaptureRequest) (*payments.Capture, error) {
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	currency := payments.NormalizeCurrency(req.Currency)

	params := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(req.AmountMinor),
		Currency:      stripe.String(currency),
		PaymentMethod: stripe.String(method),
		Confirm:       stripe.Bool(true),
	}
	if c.returnURL != "" {
		params.ReturnURL = stripe.String(c.returnURL)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := c.intents.Create(ctx, params)
	if err != nil {
		return nil, mapStripeError(err, "capture payment")
	}
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe returned no payment intent")
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		if _, cancelErr := c.intents.Cancel(ctx, intent.ID, &stripe.PaymentIntentCancelParams{}); cancelErr != nil && c.logger != nil {
			c.logger.Error(c.logger.WithField(ctx, "payment_intent_id", intent.ID), "cancel unconfirmed payment intent", cancelErr)
		}
		return nil, pkgerrors.Newf(pkgerrors.CodePaymentFailed, "payment was not completed (status %s)", intent.Status).
			WithDetails(map[string]any{"status": string(intent.Status)})
	}

	return &payments.Capture{
		Provider:    enums.PaymentProviderStripe,
		Reference:   intent.ID,
		AmountMinor: intent.Amount,
		Currency:    string(intent.Currency),
		Status:      string(intent.Status),
	}, nil
}

// Refund returns the captured amount to the shopper.
func (c *Client) Refund(ctx context.Context, req payments.RefundRequest) error {
	if strings.TrimSpace(req.Reference) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(req.Reference),
	}
	if req.AmountMinor > 0 {
		params.Amount = stripe.Int64(req.AmountMinor)
	}
	params.Reason = stripe.String(string(stripe.RefundReasonRequestedByCustomer))
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	if _, err := c.refunds.Create(ctx, params); err != nil {
		return mapStripeError(err, "refund payment")
	}
	return nil
}

func mapStripeError(err error, op string) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("stripe %s failed", op))
	}

	code := pkgerrors.CodeDependency
	switch stripeErr.Type {
	case stripe.ErrorTypeCard:
		code = pkgerrors.CodePaymentFailed
	case stripe.ErrorTypeIdempotency:
		code = pkgerrors.CodeIdempotency
	case stripe.ErrorTypeInvalidRequest:
		switch stripeErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			code = pkgerrors.CodeDependency
		case http.StatusNotFound:
			code = pkgerrors.CodeNotFound
		default:
			code = pkgerrors.CodePaymentFailed
		}
	}

	msg := stripeErr.Msg
	if msg == "" {
		msg = fmt.Sprintf("stripe %s failed", op)
	}
	mapped := pkgerrors.Wrap(code, err, msg)
	if code == pkgerrors.CodePaymentFailed {
		mapped = mapped.WithDetails(map[string]any{
			"decline_code": string(stripeErr.DeclineCode),
			"code":         string(stripeErr.Code),
		})
	}
	return mapped
}
