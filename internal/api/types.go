package api

import "github.com/clawlab/companion/domain/entities"

// ErrorResponse is the envelope for every failed request. Error carries
// the stable code; Message is display text.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse returns the session token plus the fresh read model.
type AuthResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// MembershipRequest is the body of POST /auth/membership.
type MembershipRequest struct {
	Tier entities.MembershipTier `json:"tier"`
}

// AddItemRequest is the body of POST /cart/items.
type AddItemRequest struct {
	ProductID string         `json:"product_id"`
	Name      string         `json:"name"`
	ImageURL  string         `json:"image_url"`
	UnitPrice entities.Cents `json:"unit_price"`
}

// UpdateQuantityRequest is the body of PUT /cart/items/:productId.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CheckoutRequest is the body of POST /cart/checkout.
type CheckoutRequest struct {
	Shipping        entities.ShippingAddress `json:"shipping"`
	PaymentMethodID string                   `json:"payment_method_id"`
}

// CheckoutResponse confirms a successful order.
type CheckoutResponse struct {
	OrderID string `json:"order_id"`
}

// SelectModelRequest is the body of POST /hardware/model.
type SelectModelRequest struct {
	Model entities.DeviceModel `json:"model"`
}

// ConnectRequest is the body of POST /hardware/connect.
type ConnectRequest struct {
	Transport entities.Transport `json:"transport,omitempty"`
}

// DialogRequest is the body of POST /hardware/dialog.
type DialogRequest struct {
	Visible bool `json:"visible"`
}

// ParameterRequest is the body of PUT /hardware/parameters/:name.
type ParameterRequest struct {
	Value int `json:"value"`
}

// PrefRequest is the body of PUT /prefs/:key.
type PrefRequest struct {
	Value string `json:"value"`
}

// PrefResponse echoes a stored view preference.
type PrefResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
