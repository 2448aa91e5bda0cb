package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrowbid-backend/internal/repository/common"
)

const insertBidEventQuery = `INSERT INTO bid_events (bid_id, quotation_id, event_type, actor_id, payload)`

// appendBidEvent пишет запись журнала в текущей транзакции.
func appendBidEvent(ctx context.Context, tx *sqlx.Tx, bidID, quotationID uuid.UUID, eventType string, actorID *uuid.UUID, payload interface{}) error {
	raw, err := marshalPayload(payload)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, insertBidEventQuery+` VALUES ($1, $2, $3, $4, $5)`,
		bidID, quotationID, eventType, actorID, raw); err != nil {
		return fmt.Errorf("bid events: append %s %w", eventType, err)
	}
	return nil
}

// bidEventBatch пишет одинаковое событие для нескольких ставок одним запросом.
func bidEventBatch(ctx context.Context, tx *sqlx.Tx, bidIDs []uuid.UUID, quotationID uuid.UUID, eventType string, actorID *uuid.UUID, payload interface{}) error {
	if len(bidIDs) == 0 {
		return nil
	}

	raw, err := marshalPayload(payload)
	if err != nil {
		return err
	}

	batch := common.NewBatchInserter(tx, insertBidEventQuery, 5, 200)
	for _, id := range bidIDs {
		if err := batch.Add(ctx, id, quotationID, eventType, actorID, raw); err != nil {
			return fmt.Errorf("bid events: batch %s %w", eventType, err)
		}
	}
	if err := batch.Flush(ctx); err != nil {
		return fmt.Errorf("bid events: batch %s %w", eventType, err)
	}
	return nil
}

// marshalPayload возвращает строку: jsonb параметр одинаково принимают lib/pq и pgx.
func marshalPayload(payload interface{}) (string, error) {
	if payload == nil {
		return `{}`, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("bid events: marshal payload %w", err)
	}
	return string(raw), nil
}
