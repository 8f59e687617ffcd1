package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/interfaces"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/services"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewOrderRepository(db *mongo.Database, cache services.CacheService) interfaces.OrderRepository {
	return &orderRepository{
		collection: db.Collection("orders"),
		cache:      cache,
	}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	order.ID = primitive.NewObjectID()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	_, err := r.collection.InsertOne(ctx, order)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.cacheOrder(ctx, order)

	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	if r.cache != nil {
		var cached models.Order
		if err := r.cache.Get(ctx, utils.CacheOrderPrefix+id.Hex(), &cached); err == nil {
			return &cached, nil
		}
	}

	var order models.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	r.cacheOrder(ctx, &order)

	return &order, nil
}

func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.collection.FindOne(ctx, bson.M{"order_number": orderNumber}).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("order not found with number")
		}
		return nil, fmt.Errorf("failed to get order by number: %w", err)
	}

	return &order, nil
}

// TransitionStatus is the single write path for order status. The
// filter pins the current status, so concurrent writers race on one
// atomic document update and at most one of them observes success.
func (r *orderRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, entry models.StatusHistoryEntry, extra map[string]interface{}) (bool, error) {
	set := bson.M{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		set[k] = v
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": from},
		bson.M{
			"$set":  set,
			"$push": bson.M{"status_history": entry},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition order status: %w", err)
	}

	if result.ModifiedCount == 1 {
		r.invalidateOrderCache(ctx, id.Hex())
		return true, nil
	}
	return false, nil
}

func (r *orderRepository) SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status models.OrderPaymentStatus) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"payment_status": status, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to set order payment status: %w", err)
	}

	r.invalidateOrderCache(ctx, id.Hex())

	return nil
}

func (r *orderRepository) SetRating(ctx context.Context, id primitive.ObjectID, rating *models.OrderRating) (bool, error) {
	// Rating is the one field still writable after delivery, once.
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": models.OrderStatusDelivered, "rating": nil},
		bson.M{"$set": bson.M{"rating": rating, "updated_at": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to set order rating: %w", err)
	}

	return result.ModifiedCount == 1, nil
}

// AssignRider is the accept-race CAS: the filter only matches while the
// order is ready with no rider, and Mongo applies the update to a
// single document atomically, so exactly one concurrent caller wins.
func (r *orderRepository) AssignRider(ctx context.Context, id, riderID primitive.ObjectID) (bool, error) {
	now := time.Now()
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": models.OrderStatusReady, "rider_id": nil},
		bson.M{"$set": bson.M{
			"rider_id":          riderID,
			"rider_assigned_at": now,
			"updated_at":        now,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to assign rider: %w", err)
	}

	if result.ModifiedCount == 1 {
		r.invalidateOrderCache(ctx, id.Hex())
		return true, nil
	}
	return false, nil
}

func (r *orderRepository) ClearRider(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": models.OrderStatusReady},
		bson.M{"$set": bson.M{
			"rider_id":          nil,
			"rider_assigned_at": nil,
			"updated_at":        time.Now(),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to clear rider: %w", err)
	}

	if result.ModifiedCount == 1 {
		r.invalidateOrderCache(ctx, id.Hex())
		return true, nil
	}
	return false, nil
}

func (r *orderRepository) GetByCustomer(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Order, int64, error) {
	filter := bson.M{"customer_id": customerID}
	return r.findOrdersWithFilter(ctx, filter, params)
}

func (r *orderRepository) GetByRestaurant(ctx context.Context, restaurantID primitive.ObjectID, status *models.OrderStatus, params *utils.PaginationParams) ([]*models.Order, int64, error) {
	filter := bson.M{"restaurant_id": restaurantID}
	if status != nil {
		filter["status"] = *status
	}
	return r.findOrdersWithFilter(ctx, filter, params)
}

func (r *orderRepository) GetReadyUnassigned(ctx context.Context, limit int) ([]*models.Order, error) {
	filter := bson.M{"status": models.OrderStatusReady, "rider_id": nil}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find ready orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*models.Order
	for cursor.Next(ctx) {
		var order models.Order
		if err := cursor.Decode(&order); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		orders = append(orders, &order)
	}

	return orders, nil
}

func (r *orderRepository) CountDeliveredByCustomer(ctx context.Context, customerID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"customer_id": customerID,
		"status":      models.OrderStatusDelivered,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count customer orders: %w", err)
	}

	return count, nil
}

// Helper methods
func (r *orderRepository) findOrdersWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Order, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*models.Order
	for cursor.Next(ctx) {
		var order models.Order
		if err := cursor.Decode(&order); err != nil {
			return nil, 0, fmt.Errorf("failed to decode order: %w", err)
		}
		orders = append(orders, &order)
	}

	return orders, total, nil
}

// Cache operations
func (r *orderRepository) cacheOrder(ctx context.Context, order *models.Order) {
	if r.cache != nil && !order.Status.IsTerminal() {
		cacheKey := utils.CacheOrderPrefix + order.ID.Hex()
		r.cache.Set(ctx, cacheKey, order, 15*time.Minute)
	}
}

func (r *orderRepository) invalidateOrderCache(ctx context.Context, orderID string) {
	if r.cache != nil {
		r.cache.Delete(ctx, utils.CacheOrderPrefix+orderID)
	}
}
