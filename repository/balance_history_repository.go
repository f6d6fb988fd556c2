package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"arenawager/database"
	"arenawager/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BalanceHistoryRepository implements the BalanceHistoryRepository interface
type BalanceHistoryRepository struct {
	q queryable
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(db *database.DB) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: db.Pool}
}

// newBalanceHistoryRepositoryWithTx creates a new balance history repository with a transaction
func newBalanceHistoryRepositoryWithTx(tx queryable) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: tx}
}

// Record creates a new balance history entry
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	metadataJSON, err := json.Marshal(history.TransactionMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history
		(participant_id, balance_before, balance_after, change_amount, transaction_type, transaction_metadata, related_wager_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		history.ParticipantID,
		history.BalanceBefore,
		history.BalanceAfter,
		history.ChangeAmount,
		history.TransactionType,
		metadataJSON,
		history.RelatedWagerID,
	).Scan(&history.ID, &history.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record balance history for user %s: %w", history.ParticipantID, err)
	}

	return nil
}

// GetByParticipant returns the most recent entries for a participant
func (r *BalanceHistoryRepository) GetByParticipant(ctx context.Context, participantID uuid.UUID, limit int) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, participant_id, balance_before, balance_after, change_amount,
		       transaction_type, transaction_metadata, related_wager_id, created_at
		FROM balance_history
		WHERE participant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, participantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for user %s: %w", participantID, err)
	}
	return scanHistories(rows)
}

// GetByWager returns every entry tied to a wager in the order it was written
func (r *BalanceHistoryRepository) GetByWager(ctx context.Context, wagerID uuid.UUID) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, participant_id, balance_before, balance_after, change_amount,
		       transaction_type, transaction_metadata, related_wager_id, created_at
		FROM balance_history
		WHERE related_wager_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for wager %s: %w", wagerID, err)
	}
	return scanHistories(rows)
}

func scanHistories(rows pgx.Rows) ([]*models.BalanceHistory, error) {
	defer rows.Close()

	var histories []*models.BalanceHistory
	for rows.Next() {
		var history models.BalanceHistory
		var metadataJSON []byte

		err := rows.Scan(
			&history.ID,
			&history.ParticipantID,
			&history.BalanceBefore,
			&history.BalanceAfter,
			&history.ChangeAmount,
			&history.TransactionType,
			&metadataJSON,
			&history.RelatedWagerID,
			&history.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &history.TransactionMetadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}

		histories = append(histories, &history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}

	return histories, nil
}
