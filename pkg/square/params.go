package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/storefront-backend/pkg/payments"
)

func captureRequest(req payments.CaptureRequest, locationID, idempotencyKey string) *sq.CreatePaymentRequest {
	out := &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		SourceID:       strings.TrimSpace(req.PaymentMethod),
		AmountMoney:    moneyPtr(req.AmountMinor, req.Currency),
		LocationID:     ptrString(locationID),
		Autocomplete:   boolPtr(true),
	}
	if trimmed := strings.TrimSpace(req.Description); trimmed != "" {
		out.Note = ptrString(trimmed)
	}
	if ref := strings.TrimSpace(req.Metadata["order_ref"]); ref != "" {
		out.ReferenceID = ptrString(ref)
	}
	return out
}

func refundRequest(req payments.RefundRequest, idempotencyKey string) *sq.RefundPaymentRequest {
	out := &sq.RefundPaymentRequest{
		IdempotencyKey: idempotencyKey,
		AmountMoney:    moneyPtr(req.AmountMinor, req.Currency),
		PaymentID:      ptrString(req.Reference),
	}
	if trimmed := strings.TrimSpace(req.Reason); trimmed != "" {
		out.Reason = ptrString(trimmed)
	}
	return out
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func boolPtr(value bool) *bool {
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	c := sq.Currency(strings.ToUpper(payments.NormalizeCurrency(code)))
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
