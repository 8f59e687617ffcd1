package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a slim account reference. DeviceToken holds the FCM or APNS
// token, depending on which push rail the deployment wires.
type User struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name" validate:"required"`
	Phone       string             `json:"phone" bson:"phone" validate:"required"`
	Email       string             `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Role        ActorRole          `json:"role" bson:"role" validate:"required"`
	DeviceToken string             `json:"-" bson:"device_token,omitempty"`
	IsActive    bool               `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}
