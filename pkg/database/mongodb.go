package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
	Config   *DatabaseConfig
}

type DatabaseConfig struct {
	URI            string
	Database       string
	MaxPoolSize    int
	MinPoolSize    int
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
}

func NewMongoDB(config *DatabaseConfig) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(uint64(config.MaxPoolSize)).
		SetMinPoolSize(uint64(config.MinPoolSize)).
		SetSocketTimeout(config.SocketTimeout).
		SetConnectTimeout(config.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	database := client.Database(config.Database)

	return &MongoDB{
		Client:   client,
		Database: database,
		Config:   config,
	}, nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}

func (m *MongoDB) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *MongoDB) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	session, err := m.Client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	return session.WithTransaction(ctx, fn)
}

// EnsureIndexes creates the indexes the coordinator relies on: unique
// order numbers, unique (provider, txn_ref) payment lookup, unique promo
// codes and the (promo_id, order_id) redemption guard.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	orderIdx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "restaurant_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "rider_id", Value: 1}}},
	}
	if _, err := m.Collection("orders").Indexes().CreateMany(ctx, orderIdx); err != nil {
		return err
	}

	paymentIdx := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "gateway_provider", Value: 1}, {Key: "gateway_txn_ref", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(
				bson.M{"gateway_txn_ref": bson.M{"$type": "string"}},
			),
		},
		{Keys: bson.D{{Key: "order_id", Value: 1}}},
	}
	if _, err := m.Collection("payments").Indexes().CreateMany(ctx, paymentIdx); err != nil {
		return err
	}

	promoIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.Collection("promo_codes").Indexes().CreateOne(ctx, promoIdx); err != nil {
		return err
	}

	redemptionIdx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "promo_id", Value: 1}, {Key: "order_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "promo_id", Value: 1}, {Key: "user_id", Value: 1}}},
	}
	if _, err := m.Collection("promo_redemptions").Indexes().CreateMany(ctx, redemptionIdx); err != nil {
		return err
	}

	return nil
}
