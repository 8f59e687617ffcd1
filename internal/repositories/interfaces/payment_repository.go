package interfaces

import (
	"context"
	"errors"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrPaymentNotFound distinguishes "no such record" from storage
// failures. Callers reconciling gateway callbacks depend on this: a
// missing record is a conflict, a storage error is retryable.
var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	GetByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error)
	GetByGatewayRef(ctx context.Context, provider, txnRef string) (*models.Payment, error)

	// Guarded status changes; each reports false when the current status
	// did not permit the change.
	MarkInitiated(ctx context.Context, id primitive.ObjectID, provider, txnRef string) (bool, error)
	SettleSuccess(ctx context.Context, id primitive.ObjectID, raw []byte) (bool, error)
	SettleFailure(ctx context.Context, id primitive.ObjectID, reason string, raw []byte) (bool, error)
	MarkRefunded(ctx context.Context, id primitive.ObjectID, refund *models.Refund) (bool, error)

	// Operational review queue for callbacks that contradict state.
	RecordConflict(ctx context.Context, review *models.ConflictReview) error
	ListConflicts(ctx context.Context, params *utils.PaginationParams) ([]*models.ConflictReview, int64, error)
}
