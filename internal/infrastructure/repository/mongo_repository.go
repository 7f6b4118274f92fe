package repository

import (
	"context"
	"fmt"
	"time"

	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/infrastructure/repository/entity"
	"commerce-sync-core/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoWebhookLog keeps the webhook audit trail in MongoDB
type MongoWebhookLog struct {
	collection *mongo.Collection
}

// NewMongoWebhookLog creates a webhook log on the webhook_events collection
func NewMongoWebhookLog(db *mongo.Database) *MongoWebhookLog {
	return &MongoWebhookLog{
		collection: db.Collection("webhook_events"),
	}
}

var _ ports.WebhookLog = (*MongoWebhookLog)(nil)

// EnsureIndexes creates the indexes used by ListByStore
func (r *MongoWebhookLog) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "storeId", Value: 1},
			{Key: "receivedAt", Value: -1},
		},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create webhook index: %w", err)
	}
	return nil
}

// LogWebhook logs a webhook event
func (r *MongoWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	doc := entity.MongoWebhookDocFromDomain(event)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.ReceivedAt.IsZero() {
		doc.ReceivedAt = time.Now()
	}
	doc.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}

	event.ID = doc.ID.Hex()
	return nil
}

// ListByStore returns the most recent webhook events of a store, newest first
func (r *MongoWebhookLog) ListByStore(ctx context.Context, tenantID string, storeID string, limit int64) ([]*domain.WebhookEvent, error) {
	filter := bson.M{
		"tenantId": tenantID,
		"storeId":  storeID,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "receivedAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer cursor.Close(ctx)

	events := []*domain.WebhookEvent{}
	for cursor.Next(ctx) {
		var doc entity.MongoWebhookDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode webhook: %w", err)
		}
		events = append(events, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return events, nil
}
