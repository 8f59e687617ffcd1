package payment

import (
	"context"
)

// GatewayClient initiates charges and refunds against one provider.
// Callback payloads flow back through the reconciliation webhook and
// stay opaque to the coordinator; adapters only reduce them to
// (provider, txn_ref, status) before handing them over.
type GatewayClient interface {
	Provider() string
	InitiatePayment(ctx context.Context, request *InitiateRequest) (*InitiateResponse, error)
	RefundPayment(ctx context.Context, request *RefundRequest) (*RefundResponse, error)
}

type InitiateRequest struct {
	OrderNumber string            `json:"order_number"`
	Amount      int64             `json:"amount"` // paisa
	Currency    string            `json:"currency"`
	CustomerID  string            `json:"customer_id"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata"`
}

type InitiateResponse struct {
	TransactionRef string `json:"transaction_ref"`
	RedirectURL    string `json:"redirect_url,omitempty"`
	Status         string `json:"status"`
}

type RefundRequest struct {
	TransactionRef string `json:"transaction_ref"`
	Amount         int64  `json:"amount"` // paisa
	Reason         string `json:"reason"`
}

type RefundResponse struct {
	RefundRef string `json:"refund_ref"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

// Registry maps provider names to clients so the refund path can pick
// the right rail for a payment record.
type Registry struct {
	clients map[string]GatewayClient
}

func NewRegistry(clients ...GatewayClient) *Registry {
	m := make(map[string]GatewayClient, len(clients))
	for _, c := range clients {
		m[c.Provider()] = c
	}
	return &Registry{clients: m}
}

func (r *Registry) Get(provider string) (GatewayClient, bool) {
	c, ok := r.clients[provider]
	return c, ok
}
