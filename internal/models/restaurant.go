package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Restaurant struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OwnerID   primitive.ObjectID `json:"owner_id" bson:"owner_id" validate:"required"`
	Name      string             `json:"name" bson:"name" validate:"required"`
	Zone      string             `json:"zone" bson:"zone"`
	Latitude  float64            `json:"latitude" bson:"latitude"`
	Longitude float64            `json:"longitude" bson:"longitude"`
	IsOpen    bool               `json:"is_open" bson:"is_open"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}
