package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/payments"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	paymentStatusCompleted = "COMPLETED"

	// Square rejects idempotency keys longer than this.
	maxIdempotencyKeyLen = 45
)

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location id is required")
	errInvalidSquareEnv    = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired      = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

type paymentsAPI interface {
	Create(ctx context.Context, request *sq.CreatePaymentRequest, opts ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error)
}

type refundsAPI interface {
	RefundPayment(ctx context.Context, request *sq.RefundPaymentRequest, opts ...sqoption.RequestOption) (*sq.RefundPaymentResponse, error)
}

// Client is the Square payment gateway with centralized logging, idempotency, and error mapping.
type Client struct {
	payments    paymentsAPI
	refunds     refundsAPI
	webhooks    webhooksAPI
	environment string
	locationID  string
	webhookKey  string
	webhookURL  string
	logger      *logger.Logger
}

var _ payments.Gateway = (*Client)(nil)

// NewClient initializes the Square wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}
	locationID := strings.TrimSpace(cfg.LocationID)
	if locationID == "" {
		return nil, errLocationRequired
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURLs[env]),
		sqoption.WithToken(accessToken),
	)

	logg.Info(ctx, fmt.Sprintf("square client initialized (%s)", env))
	return &Client{
		payments:    sdk.Payments,
		refunds:     sdk.Refunds,
		webhooks:    sdk.Webhooks,
		environment: env,
		locationID:  locationID,
		webhookKey:  strings.TrimSpace(cfg.WebhookSignatureKey),
		webhookURL:  strings.TrimSpace(cfg.WebhookURL),
		logger:      logg,
	}, nil
}

// Environment reports the normalized Square environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func (c *Client) Provider() enums.PaymentProvider {
	return enums.PaymentProviderSquare
}

// NewIdempotencyKey returns a unique key for Square operations.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "sf"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

// Capture charges the card nonce and completes the payment immediately.
func (c *Client) Capture(ctx context.Context, req payments.CaptureRequest) (*payments.Capture, error) {
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}

	sqReq := captureRequest(req, c.locationID, c.ensureIdempotencyKey("pay", req.IdempotencyKey))
	c.log(ctx, "request", "create_payment", map[string]any{
		"location_id": c.locationID,
		"amount":      req.AmountMinor,
		"source_id":   req.PaymentMethod,
	})

	resp, err := c.payments.Create(ctx, sqReq)
	if err != nil {
		c.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, "create payment")
	}

	payment := resp.GetPayment()
	status := stringValue(payment.GetStatus())
	c.log(ctx, "response", "create_payment", map[string]any{
		"payment_id": stringValue(payment.GetID()),
		"status":     status,
	})
	if payment == nil || status != paymentStatusCompleted {
		return nil, pkgerrors.Newf(pkgerrors.CodePaymentFailed, "payment was not completed (status %s)", status).
			WithDetails(map[string]any{"status": status})
	}

	return &payments.Capture{
		Provider:    enums.PaymentProviderSquare,
		Reference:   stringValue(payment.GetID()),
		AmountMinor: req.AmountMinor,
		Currency:    payments.NormalizeCurrency(req.Currency),
		Status:      status,
	}, nil
}

// Refund reverses a completed payment.
func (c *Client) Refund(ctx context.Context, req payments.RefundRequest) error {
	if strings.TrimSpace(req.Reference) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	sqReq := refundRequest(req, c.ensureIdempotencyKey("rfd", req.IdempotencyKey))
	c.log(ctx, "request", "refund_payment", map[string]any{
		"payment_id": req.Reference,
		"amount":     req.AmountMinor,
	})

	if _, err := c.refunds.RefundPayment(ctx, sqReq); err != nil {
		c.log(ctx, "error", "refund_payment", map[string]any{"error": err.Error()})
		return c.mapSquareError(err, "refund payment")
	}
	c.log(ctx, "response", "refund_payment", map[string]any{"payment_id": req.Reference})
	return nil
}

// ensureIdempotencyKey keeps caller keys stable. Keys over Square's limit are
// replaced by a name-based UUID so retries still map to the same key.
func (c *Client) ensureIdempotencyKey(prefix, provided string) string {
	provided = strings.TrimSpace(provided)
	if provided == "" {
		return c.NewIdempotencyKey(prefix)
	}
	if len(provided) > maxIdempotencyKeyLen {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(prefix+":"+provided)).String()
	}
	return provided
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("square %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("square %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "nonce", "token", "source", "cvv", "secret", "email"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("square %s failed", op))
	}

	code := domainCodeForStatus(apiErr.StatusCode)
	msg := fmt.Sprintf("square %s failed", op)
	for _, sqErr := range c.extractSquareErrors(apiErr) {
		if sqErr == nil {
			continue
		}
		if detail := stringValue(sqErr.Detail); detail != "" {
			msg = detail
		}
		if sqErr.Code == sq.ErrorCodeIdempotencyKeyReused {
			code = pkgerrors.CodeIdempotency
			break
		}
		if sqErr.Category == sq.ErrorCategoryAuthenticationError {
			code = pkgerrors.CodeDependency
			break
		}
		if string(sqErr.Category) == "PAYMENT_METHOD_ERROR" {
			code = pkgerrors.CodePaymentFailed
			break
		}
	}
	return pkgerrors.Wrap(code, err, msg)
}

func (c *Client) extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil {
		return nil
	}
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	raw := strings.TrimSpace(inner.Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

// domainCodeForStatus maps gateway HTTP failures. Credential problems are ours,
// not the shopper's, so they surface as dependency errors.
func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeDependency
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusPaymentRequired, http.StatusBadRequest:
		return pkgerrors.CodePaymentFailed
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodePaymentFailed
		}
		return pkgerrors.CodeDependency
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidSquareEnv
	}
}
