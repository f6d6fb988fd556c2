package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"arenawager/events"
	"arenawager/models"
	"arenawager/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteWallet is the built-in economy: a single-file ledger for servers without Postgres.
// Amounts are stored as decimal strings so no precision is lost.
type SQLiteWallet struct {
	db              *sql.DB
	startingBalance decimal.Decimal
	publisher       service.EventPublisher
}

// NewSQLiteWallet opens the wallet file at dbPath, creating tables as needed
func NewSQLiteWallet(dbPath string, startingBalance decimal.Decimal, publisher service.EventPublisher) (*SQLiteWallet, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve wallet path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create wallet directory: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet database: %w", err)
	}
	// One writer keeps read-modify-write balance updates serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	w := &SQLiteWallet{db: db, startingBalance: startingBalance, publisher: publisher}
	if err := w.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

func (w *SQLiteWallet) runMigrations() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			participant_id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			balance TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			participant_id TEXT NOT NULL,
			balance_before TEXT NOT NULL,
			balance_after TEXT NOT NULL,
			change_amount TEXT NOT NULL,
			transaction_type TEXT NOT NULL,
			wager_id TEXT,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (participant_id) REFERENCES accounts(participant_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_participant ON transactions(participant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_wager ON transactions(wager_id)`,
	}

	for _, stmt := range statements {
		if _, err := w.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate wallet database: %w", err)
		}
	}
	return nil
}

// Close closes the wallet database
func (w *SQLiteWallet) Close() error {
	return w.db.Close()
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAccount(ctx context.Context, q rowQuerier, participantID uuid.UUID) (*models.User, error) {
	var (
		user             models.User
		rawID, rawAmount string
		created, updated int64
	)

	err := q.QueryRowContext(ctx, `
		SELECT participant_id, username, balance, created_at, updated_at
		FROM accounts
		WHERE participant_id = ?
	`, participantID.String()).Scan(&rawID, &user.Username, &rawAmount, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", participantID, err)
	}

	if user.ParticipantID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("corrupt participant id %q: %w", rawID, err)
	}
	if user.Balance, err = decimal.NewFromString(rawAmount); err != nil {
		return nil, fmt.Errorf("corrupt balance for %s: %w", participantID, err)
	}
	user.CreatedAt = time.Unix(created, 0).UTC()
	user.UpdatedAt = time.Unix(updated, 0).UTC()
	return &user, nil
}

// Balance returns the participant's balance, zero when no account exists
func (w *SQLiteWallet) Balance(ctx context.Context, participantID uuid.UUID) (decimal.Decimal, error) {
	user, err := getAccount(ctx, w.db, participantID)
	if err != nil {
		return decimal.Zero, err
	}
	if user == nil {
		return decimal.Zero, nil
	}
	return user.Balance, nil
}

// HasAtLeast reports whether the participant can cover amount
func (w *SQLiteWallet) HasAtLeast(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal) (bool, error) {
	balance, err := w.Balance(ctx, participantID)
	if err != nil {
		return false, err
	}
	return balance.GreaterThanOrEqual(amount), nil
}

// Withdraw debits amount, failing with ErrInsufficientFunds when the balance is too low
func (w *SQLiteWallet) Withdraw(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	return w.move(ctx, participantID, amount.Neg(), txType, wagerID)
}

// Deposit credits amount
func (w *SQLiteWallet) Deposit(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	return w.move(ctx, participantID, amount, txType, wagerID)
}

func (w *SQLiteWallet) move(ctx context.Context, participantID uuid.UUID, change decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := getAccount(ctx, tx, participantID)
	if err != nil {
		return err
	}
	if user == nil {
		if change.IsNegative() {
			return fmt.Errorf("%w: no account for %s", service.ErrInsufficientFunds, participantID)
		}
		return fmt.Errorf("account %s not found", participantID)
	}

	after := user.Balance.Add(change)
	if after.IsNegative() {
		return fmt.Errorf("%w: have %s, need %s", service.ErrInsufficientFunds, user.Balance, change.Neg())
	}

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = ?, updated_at = ? WHERE participant_id = ?
	`, after.String(), now, participantID.String()); err != nil {
		return fmt.Errorf("failed to update balance for %s: %w", participantID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (participant_id, balance_before, balance_after, change_amount, transaction_type, wager_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, participantID.String(), user.Balance.String(), after.String(), change.String(), string(txType), wagerID.String(), now); err != nil {
		return fmt.Errorf("failed to record transaction for %s: %w", participantID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.publish(events.BalanceChangeEvent{
		ParticipantID:   participantID,
		OldBalance:      user.Balance,
		NewBalance:      after,
		TransactionType: txType,
		ChangeAmount:    change,
		WagerID:         &wagerID,
	})
	return nil
}

// EnsureAccount returns the participant's account, opening it with the starting balance if needed
func (w *SQLiteWallet) EnsureAccount(ctx context.Context, participant models.Participant) (*models.User, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := getAccount(ctx, tx, participant.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if user != nil {
		if participant.Name == "" || participant.Name == user.Username {
			return user, nil
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE accounts SET username = ?, updated_at = ? WHERE participant_id = ?
		`, participant.Name, now.Unix(), participant.ID.String()); err != nil {
			return nil, fmt.Errorf("failed to update username: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		user.Username = participant.Name
		return user, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (participant_id, username, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, participant.ID.String(), participant.Name, w.startingBalance.String(), now.Unix(), now.Unix()); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (participant_id, balance_before, balance_after, change_amount, transaction_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, participant.ID.String(), "0", w.startingBalance.String(), w.startingBalance.String(), string(models.TransactionTypeInitial), now.Unix()); err != nil {
		return nil, fmt.Errorf("failed to record initial balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"participantID": participant.ID,
		"username":      participant.Name,
		"balance":       w.startingBalance.String(),
	}).Info("Opened wallet account")

	w.publish(events.UserCreatedEvent{
		ParticipantID:  participant.ID,
		Username:       participant.Name,
		InitialBalance: w.startingBalance,
	})

	return &models.User{
		ParticipantID: participant.ID,
		Username:      participant.Name,
		Balance:       w.startingBalance,
		CreatedAt:     time.Unix(now.Unix(), 0).UTC(),
		UpdatedAt:     time.Unix(now.Unix(), 0).UTC(),
	}, nil
}

// History returns the most recent ledger entries for a participant
func (w *SQLiteWallet) History(ctx context.Context, participantID uuid.UUID, limit int) ([]*models.BalanceHistory, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT id, balance_before, balance_after, change_amount, transaction_type, wager_id, created_at
		FROM transactions
		WHERE participant_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, participantID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", participantID, err)
	}
	defer rows.Close()

	var histories []*models.BalanceHistory
	for rows.Next() {
		var (
			h                     models.BalanceHistory
			before, after, change string
			txType                string
			wagerID               sql.NullString
			created               int64
		)
		if err := rows.Scan(&h.ID, &before, &after, &change, &txType, &wagerID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		h.ParticipantID = participantID
		h.BalanceBefore = decimal.RequireFromString(before)
		h.BalanceAfter = decimal.RequireFromString(after)
		h.ChangeAmount = decimal.RequireFromString(change)
		h.TransactionType = models.TransactionType(txType)
		h.CreatedAt = time.Unix(created, 0).UTC()
		if wagerID.Valid {
			if id, err := uuid.Parse(wagerID.String); err == nil {
				h.RelatedWagerID = &id
			}
		}
		histories = append(histories, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return histories, nil
}

func (w *SQLiteWallet) publish(event events.Event) {
	if w.publisher != nil {
		w.publisher.Publish(event)
	}
}
