package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/interfaces"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type paymentRepository struct {
	collection *mongo.Collection
	conflicts  *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) interfaces.PaymentRepository {
	return &paymentRepository{
		collection: db.Collection("payments"),
		conflicts:  db.Collection("conflict_reviews"),
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	payment.ID = primitive.NewObjectID()
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}

	_, err := r.collection.InsertOne(ctx, payment)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	var payment models.Payment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&payment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error) {
	var payment models.Payment
	err := r.collection.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&payment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("order %s: %w", orderID.Hex(), interfaces.ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("failed to get payment by order: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepository) GetByGatewayRef(ctx context.Context, provider, txnRef string) (*models.Payment, error) {
	var payment models.Payment
	err := r.collection.FindOne(ctx, bson.M{
		"gateway_provider": provider,
		"gateway_txn_ref":  txnRef,
	}).Decode(&payment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("gateway ref %s/%s: %w", provider, txnRef, interfaces.ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("failed to get payment by gateway ref: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepository) MarkInitiated(ctx context.Context, id primitive.ObjectID, provider, txnRef string) (bool, error) {
	now := time.Now()
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": models.PaymentStatusPending},
		bson.M{"$set": bson.M{
			"status":           models.PaymentStatusInitiated,
			"gateway_provider": provider,
			"gateway_txn_ref":  txnRef,
			"initiated_at":     now,
			"updated_at":       now,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment initiated: %w", err)
	}

	return result.ModifiedCount == 1, nil
}

// SettleSuccess flips the record to success only from a non-terminal
// status. A false return means some other writer already settled it.
func (r *paymentRepository) SettleSuccess(ctx context.Context, id primitive.ObjectID, raw []byte) (bool, error) {
	now := time.Now()
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []models.PaymentStatus{
			models.PaymentStatusPending,
			models.PaymentStatusInitiated,
		}}},
		bson.M{"$set": bson.M{
			"status":      models.PaymentStatusSuccess,
			"raw_payload": raw,
			"settled_at":  now,
			"updated_at":  now,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to settle payment success: %w", err)
	}

	return result.ModifiedCount == 1, nil
}

func (r *paymentRepository) SettleFailure(ctx context.Context, id primitive.ObjectID, reason string, raw []byte) (bool, error) {
	now := time.Now()
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []models.PaymentStatus{
			models.PaymentStatusPending,
			models.PaymentStatusInitiated,
		}}},
		bson.M{"$set": bson.M{
			"status":         models.PaymentStatusFailed,
			"failure_reason": reason,
			"raw_payload":    raw,
			"settled_at":     now,
			"updated_at":     now,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to settle payment failure: %w", err)
	}

	return result.ModifiedCount == 1, nil
}

func (r *paymentRepository) MarkRefunded(ctx context.Context, id primitive.ObjectID, refund *models.Refund) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": models.PaymentStatusSuccess},
		bson.M{"$set": bson.M{
			"status":     models.PaymentStatusRefunded,
			"refund":     refund,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment refunded: %w", err)
	}

	return result.ModifiedCount == 1, nil
}

func (r *paymentRepository) RecordConflict(ctx context.Context, review *models.ConflictReview) error {
	review.ID = primitive.NewObjectID()
	review.CreatedAt = time.Now()

	_, err := r.conflicts.InsertOne(ctx, review)
	if err != nil {
		return fmt.Errorf("failed to record payment conflict: %w", err)
	}

	return nil
}

func (r *paymentRepository) ListConflicts(ctx context.Context, params *utils.PaginationParams) ([]*models.ConflictReview, int64, error) {
	total, err := r.conflicts.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count conflicts: %w", err)
	}

	cursor, err := r.conflicts.Find(ctx, bson.M{}, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list conflicts: %w", err)
	}
	defer cursor.Close(ctx)

	var reviews []*models.ConflictReview
	for cursor.Next(ctx) {
		var review models.ConflictReview
		if err := cursor.Decode(&review); err != nil {
			return nil, 0, fmt.Errorf("failed to decode conflict review: %w", err)
		}
		reviews = append(reviews, &review)
	}

	return reviews, total, nil
}
