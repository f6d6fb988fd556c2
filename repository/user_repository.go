package repository

import (
	"context"
	"errors"
	"fmt"

	"arenawager/database"
	"arenawager/models"
	"arenawager/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByParticipantID retrieves an account, returning nil when it does not exist
func (r *UserRepository) GetByParticipantID(ctx context.Context, participantID uuid.UUID) (*models.User, error) {
	query := `
		SELECT participant_id, username, balance, created_at, updated_at
		FROM users
		WHERE participant_id = $1
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, participantID).Scan(
		&user.ParticipantID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", participantID, err)
	}

	return &user, nil
}

// Create creates a new user with the initial balance
func (r *UserRepository) Create(ctx context.Context, participantID uuid.UUID, username string, initialBalance decimal.Decimal) (*models.User, error) {
	query := `
		INSERT INTO users (participant_id, username, balance)
		VALUES ($1, $2, $3)
		RETURNING participant_id, username, balance, created_at, updated_at
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, participantID, username, initialBalance).Scan(
		&user.ParticipantID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", participantID, err)
	}

	return &user, nil
}

// UpdateUsername records the latest display name
func (r *UserRepository) UpdateUsername(ctx context.Context, participantID uuid.UUID, username string) error {
	result, err := r.q.Exec(ctx, `
		UPDATE users
		SET username = $1, updated_at = NOW()
		WHERE participant_id = $2
	`, username, participantID)
	if err != nil {
		return fmt.Errorf("failed to update username for user %s: %w", participantID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", participantID)
	}

	return nil
}

// AddBalance adds to a user's balance atomically and returns the new balance
func (r *UserRepository) AddBalance(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET balance = balance + $1, updated_at = NOW()
		WHERE participant_id = $2
		RETURNING balance
	`

	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, query, amount, participantID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("user %s not found", participantID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to add balance for user %s: %w", participantID, err)
	}

	return balance, nil
}

// DeductBalance deducts from a user's balance atomically, failing if funds are insufficient
func (r *UserRepository) DeductBalance(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET balance = balance - $1, updated_at = NOW()
		WHERE participant_id = $2 AND balance >= $1
		RETURNING balance
	`

	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, query, amount, participantID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		user, getErr := r.GetByParticipantID(ctx, participantID)
		if getErr != nil {
			return decimal.Zero, fmt.Errorf("failed to check user: %w", getErr)
		}
		if user == nil {
			return decimal.Zero, fmt.Errorf("user %s not found", participantID)
		}
		return decimal.Zero, fmt.Errorf("%w: have %s, need %s", service.ErrInsufficientFunds, user.Balance, amount)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to deduct balance for user %s: %w", participantID, err)
	}

	return balance, nil
}

// GetAll returns all users, richest first
func (r *UserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT participant_id, username, balance, created_at, updated_at
		FROM users
		ORDER BY balance DESC, username
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ParticipantID,
			&user.Username,
			&user.Balance,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}
