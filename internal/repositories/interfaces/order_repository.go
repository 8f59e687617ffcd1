package interfaces

import (
	"context"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)

	// Status operations. TransitionStatus only applies when the stored
	// status still equals from; it reports false when the guard failed.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, entry models.StatusHistoryEntry, extra map[string]interface{}) (bool, error)
	SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status models.OrderPaymentStatus) error
	SetRating(ctx context.Context, id primitive.ObjectID, rating *models.OrderRating) (bool, error)

	// Rider assignment. AssignRider succeeds only while the order is
	// ready with no rider set; ClearRider only while it is still ready.
	AssignRider(ctx context.Context, id, riderID primitive.ObjectID) (bool, error)
	ClearRider(ctx context.Context, id primitive.ObjectID) (bool, error)

	// Listing for the polling client surfaces
	GetByCustomer(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Order, int64, error)
	GetByRestaurant(ctx context.Context, restaurantID primitive.ObjectID, status *models.OrderStatus, params *utils.PaginationParams) ([]*models.Order, int64, error)
	GetReadyUnassigned(ctx context.Context, limit int) ([]*models.Order, error)
	CountDeliveredByCustomer(ctx context.Context, customerID primitive.ObjectID) (int64, error)
}
