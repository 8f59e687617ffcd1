package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeClient covers the international card rail.
type StripeClient struct {
	client *client.API
}

func NewStripeClient(secretKey string) *StripeClient {
	sc := &client.API{}
	sc.Init(secretKey, nil)

	return &StripeClient{
		client: sc,
	}
}

func (s *StripeClient) Provider() string { return "stripe" }

func (s *StripeClient) InitiatePayment(ctx context.Context, request *InitiateRequest) (*InitiateResponse, error) {
	params := &stripe.PaymentIntentParams{
		// Paisa and cents are both minor units, no conversion needed.
		Amount:      stripe.Int64(request.Amount),
		Currency:    stripe.String(request.Currency),
		Description: stripe.String("Order " + request.OrderNumber),
	}
	for key, value := range request.Metadata {
		params.AddMetadata(key, value)
	}
	params.AddMetadata("order_number", request.OrderNumber)

	pi, err := s.client.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &InitiateResponse{
		TransactionRef: pi.ID,
		Status:         string(pi.Status),
	}, nil
}

func (s *StripeClient) RefundPayment(ctx context.Context, request *RefundRequest) (*RefundResponse, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(request.TransactionRef),
		Amount:        stripe.Int64(request.Amount),
	}

	refund, err := s.client.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create refund: %w", err)
	}

	return &RefundResponse{
		RefundRef: refund.ID,
		Status:    string(refund.Status),
		Amount:    refund.Amount,
	}, nil
}
