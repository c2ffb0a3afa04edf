package checkout

// CheckoutRequest is the body of POST /orders/create.
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required,max=2000"`
	PaymentMethodID string `json:"payment_method_id" validate:"required,max=255"`
}
