package interfaces

import (
	"context"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	SetDeviceToken(ctx context.Context, id primitive.ObjectID, token string) error
}

type RestaurantRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Restaurant, error)
	GetByOwner(ctx context.Context, ownerID primitive.ObjectID) (*models.Restaurant, error)
}

type RiderRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Rider, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Rider, error)
	UpdateLocation(ctx context.Context, id primitive.ObjectID, lat, lng float64) error
	SetOnline(ctx context.Context, id primitive.ObjectID, online bool) error
}
