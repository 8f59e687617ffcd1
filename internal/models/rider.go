package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Rider struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID      primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	Zone        string             `json:"zone" bson:"zone"`
	VehicleType string             `json:"vehicle_type" bson:"vehicle_type"`
	IsOnline    bool               `json:"is_online" bson:"is_online"`
	Latitude    float64            `json:"latitude" bson:"latitude"`
	Longitude   float64            `json:"longitude" bson:"longitude"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}
