package service

import (
	"context"
	"time"

	"arenawager/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// CreditRetryInterval is how long a refused deposit waits before it is tried again
const CreditRetryInterval = 30 * time.Second

// pendingCredit is a refund or payout the wallet refused, held until it goes through
type pendingCredit struct {
	participantID uuid.UUID
	amount        decimal.Decimal
	txType        models.TransactionType
	wagerID       uuid.UUID
}

// credit pays a participant. The deposit ignores ctx cancellation and is queued for retry if refused.
func (m *WagerManager) credit(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) {
	err := m.wallet.Deposit(context.WithoutCancel(ctx), participantID, amount, txType, wagerID)
	if err == nil {
		return
	}

	log.WithFields(log.Fields{
		"wagerID":       wagerID,
		"participantID": participantID,
		"amount":        amount.String(),
		"type":          txType,
		"error":         err,
	}).Warn("Deposit refused, queued for retry")

	m.pendingCredits = append(m.pendingCredits, pendingCredit{
		participantID: participantID,
		amount:        amount,
		txType:        txType,
		wagerID:       wagerID,
	})
	m.scheduleCreditRetry()
}

func (m *WagerManager) scheduleCreditRetry() {
	if m.creditRetry != nil {
		return
	}
	m.creditRetry = m.scheduler.RunAfter(CreditRetryInterval, func() {
		m.creditRetry = nil
		m.RetryPendingCredits(context.Background())
	})
}

// RetryPendingCredits tries every queued deposit again and returns how many are still owed
func (m *WagerManager) RetryPendingCredits(ctx context.Context) int {
	if len(m.pendingCredits) == 0 {
		return 0
	}

	queued := m.pendingCredits
	m.pendingCredits = nil
	for i, c := range queued {
		if err := m.wallet.Deposit(context.WithoutCancel(ctx), c.participantID, c.amount, c.txType, c.wagerID); err != nil {
			log.WithFields(log.Fields{
				"wagerID":       c.wagerID,
				"participantID": c.participantID,
				"error":         err,
			}).Warn("Queued deposit refused again")
			m.pendingCredits = append(m.pendingCredits, queued[i])
			continue
		}
		log.WithFields(log.Fields{
			"wagerID":       c.wagerID,
			"participantID": c.participantID,
			"amount":        c.amount.String(),
		}).Info("Queued deposit applied")
	}

	if len(m.pendingCredits) > 0 {
		m.scheduleCreditRetry()
	}
	return len(m.pendingCredits)
}

// PendingCredits totals the deposits still owed to participants
func (m *WagerManager) PendingCredits() decimal.Decimal {
	total := decimal.Zero
	for _, c := range m.pendingCredits {
		total = total.Add(c.amount)
	}
	return total
}
