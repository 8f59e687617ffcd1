package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) interfaces.UserRepository {
	return &userRepository{collection: db.Collection("users")}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) SetDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"device_token": token, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to set device token: %w", err)
	}

	return nil
}

type restaurantRepository struct {
	collection *mongo.Collection
}

func NewRestaurantRepository(db *mongo.Database) interfaces.RestaurantRepository {
	return &restaurantRepository{collection: db.Collection("restaurants")}
}

func (r *restaurantRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&restaurant)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("restaurant not found")
		}
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}

	return &restaurant, nil
}

func (r *restaurantRepository) GetByOwner(ctx context.Context, ownerID primitive.ObjectID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.collection.FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&restaurant)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("restaurant not found for owner")
		}
		return nil, fmt.Errorf("failed to get restaurant by owner: %w", err)
	}

	return &restaurant, nil
}

type riderRepository struct {
	collection *mongo.Collection
}

func NewRiderRepository(db *mongo.Database) interfaces.RiderRepository {
	return &riderRepository{collection: db.Collection("riders")}
}

func (r *riderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Rider, error) {
	var rider models.Rider
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rider)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("rider not found")
		}
		return nil, fmt.Errorf("failed to get rider: %w", err)
	}

	return &rider, nil
}

func (r *riderRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Rider, error) {
	var rider models.Rider
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&rider)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("rider not found for user")
		}
		return nil, fmt.Errorf("failed to get rider by user: %w", err)
	}

	return &rider, nil
}

func (r *riderRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, lat, lng float64) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"latitude":   lat,
			"longitude":  lng,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update rider location: %w", err)
	}

	return nil
}

func (r *riderRepository) SetOnline(ctx context.Context, id primitive.ObjectID, online bool) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_online": online, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to set rider online: %w", err)
	}

	return nil
}
