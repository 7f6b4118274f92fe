// Package webhook_handlers applies single-record webhook deliveries to local storage.
package webhook_handlers

import (
	"context"
	"fmt"

	"commerce-sync-core/internal/application/transform"
	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// deleteRecord removes the record named by a delete payload. Deleting a
// record that was never synced is not an error.
func deleteRecord(ctx context.Context, records ports.RecordRepository, store *domain.Store, topic domain.WebhookTopic, payload []byte, logger zerolog.Logger) error {
	remoteID := transform.RemoteID(payload)
	if remoteID == 0 {
		return missingID(topic)
	}
	if err := records.DeleteByRemoteID(ctx, topic.Resource(), store.TenantID, store.ID, remoteID); err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", topic.Resource(), remoteID, err)
	}
	logger.Info().
		Str("tenantId", store.TenantID).
		Str("storeId", store.ID).
		Str("topic", topic.String()).
		Int64("remoteId", remoteID).
		Msg("Deleted record from webhook")
	return nil
}

func logUpsert(logger zerolog.Logger, store *domain.Store, topic domain.WebhookTopic, remoteID int64, written int) {
	if written == 0 {
		logger.Info().
			Str("storeId", store.ID).
			Str("topic", topic.String()).
			Int64("remoteId", remoteID).
			Msg("Skipped stale webhook payload")
		return
	}
	logger.Info().
		Str("tenantId", store.TenantID).
		Str("storeId", store.ID).
		Str("topic", topic.String()).
		Int64("remoteId", remoteID).
		Msg("Upserted record from webhook")
}

func missingID(topic domain.WebhookTopic) error {
	return domain.NewValidationError("id", fmt.Sprintf("%s payload has no id", topic))
}

func unsupported(handler string, topic domain.WebhookTopic) error {
	return fmt.Errorf("%s cannot apply %s", handler, topic)
}
