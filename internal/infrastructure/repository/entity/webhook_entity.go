package entity

import (
	"time"

	"commerce-sync-core/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoWebhookDoc represents a received webhook delivery in MongoDB
type MongoWebhookDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	DeliveryID string             `bson:"deliveryId,omitempty"`
	TenantID   string             `bson:"tenantId"`
	StoreID    string             `bson:"storeId"`
	Topic      string             `bson:"topic"`
	Shop       string             `bson:"shop"`
	Payload    string             `bson:"payload"`
	Verified   bool               `bson:"verified"`
	Outcome    string             `bson:"outcome"`
	Error      string             `bson:"error,omitempty"`
	ReceivedAt time.Time          `bson:"receivedAt"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoWebhookDoc) ToDomain() *domain.WebhookEvent {
	return &domain.WebhookEvent{
		ID:         d.ID.Hex(),
		DeliveryID: d.DeliveryID,
		TenantID:   d.TenantID,
		StoreID:    d.StoreID,
		Topic:      d.Topic,
		Shop:       d.Shop,
		Payload:    []byte(d.Payload),
		Verified:   d.Verified,
		Outcome:    d.Outcome,
		Error:      d.Error,
		ReceivedAt: d.ReceivedAt,
	}
}

// MongoWebhookDocFromDomain converts a domain entity to a MongoDB document
func MongoWebhookDocFromDomain(event *domain.WebhookEvent) *MongoWebhookDoc {
	doc := &MongoWebhookDoc{
		DeliveryID: event.DeliveryID,
		TenantID:   event.TenantID,
		StoreID:    event.StoreID,
		Topic:      event.Topic,
		Shop:       event.Shop,
		Payload:    string(event.Payload),
		Verified:   event.Verified,
		Outcome:    event.Outcome,
		Error:      event.Error,
		ReceivedAt: event.ReceivedAt,
	}

	if event.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(event.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
