package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string
type PaymentMethod string
type OrderPaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusSuccess   PaymentStatus = "success"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"

	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodBkash          PaymentMethod = "bkash"
	PaymentMethodNagad          PaymentMethod = "nagad"
	PaymentMethodSSLCommerz     PaymentMethod = "sslcommerz"
	PaymentMethodCard           PaymentMethod = "card"

	OrderPaymentPending  OrderPaymentStatus = "pending"
	OrderPaymentPaid     OrderPaymentStatus = "paid"
	OrderPaymentFailed   OrderPaymentStatus = "failed"
	OrderPaymentRefunded OrderPaymentStatus = "refunded"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentMethodCashOnDelivery, PaymentMethodBkash, PaymentMethodNagad,
		PaymentMethodSSLCommerz, PaymentMethodCard:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusInitiated, PaymentStatusSuccess,
		PaymentStatusFailed, PaymentStatusRefunded:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

// IsTerminal reports whether the record has reached success or failed.
// Refunded is reachable only from success and counts as terminal too.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed || s == PaymentStatusRefunded
}

type Payment struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrderID         primitive.ObjectID `json:"order_id" bson:"order_id" validate:"required"`
	Amount          int64              `json:"amount" bson:"amount" validate:"gte=0"` // paisa, equals order total at creation
	Currency        string             `json:"currency" bson:"currency"`
	Method          PaymentMethod      `json:"method" bson:"method" validate:"required"`
	Status          PaymentStatus      `json:"status" bson:"status"`
	GatewayProvider string             `json:"gateway_provider,omitempty" bson:"gateway_provider,omitempty"`
	GatewayTxnRef   string             `json:"gateway_txn_ref,omitempty" bson:"gateway_txn_ref,omitempty"`
	// RawPayload is the last gateway callback body, stored verbatim for
	// audit. The reconciler never parses it.
	RawPayload    []byte     `json:"-" bson:"raw_payload,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	Refund        *Refund    `json:"refund,omitempty" bson:"refund,omitempty"`
	InitiatedAt   *time.Time `json:"initiated_at" bson:"initiated_at"`
	SettledAt     *time.Time `json:"settled_at" bson:"settled_at"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

type Refund struct {
	Amount     int64     `json:"amount" bson:"amount"` // paisa
	Reason     string    `json:"reason" bson:"reason"`
	RefundedBy string    `json:"refunded_by,omitempty" bson:"refunded_by,omitempty"`
	RefundedAt time.Time `json:"refunded_at" bson:"refunded_at"`
}

// GatewayCallback is the shape every gateway adapter reduces its webhook
// to before handing it to the reconciler.
type GatewayCallback struct {
	Provider string `json:"provider"`
	TxnRef   string `json:"txn_ref"`
	Status   string `json:"status"`
	Raw      []byte `json:"-"`
}

// ConflictReview records a callback the reconciler refused to apply, for
// manual operational review. Never shown to end users.
type ConflictReview struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Provider       string             `json:"provider" bson:"provider"`
	TxnRef         string             `json:"txn_ref" bson:"txn_ref"`
	ReportedStatus string             `json:"reported_status" bson:"reported_status"`
	RecordedStatus PaymentStatus      `json:"recorded_status,omitempty" bson:"recorded_status,omitempty"`
	Reason         string             `json:"reason" bson:"reason"`
	RawPayload     []byte             `json:"-" bson:"raw_payload,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}
