package service

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/cemetery/validation"
	ledgerdomain "github.com/smallbiznis/ecclesia/internal/ledger/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecordPayment stores a payment whose period lies inside its concession and
// then, when asked to, posts it to the ledger. The payment is committed before
// the ledger call; a ledger failure is reported on the payment through
// LedgerStatus and LedgerError, never by rolling the payment back.
func (s *Service) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (domain.ConcessionPayment, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.ConcessionPayment{}, err
	}
	payment, err := s.validator.NewPayment(parishID, req)
	if err != nil {
		return domain.ConcessionPayment{}, err
	}

	policy := s.policy.Get()
	post := policy.PostToLedger
	if req.PostToLedger != nil {
		post = *req.PostToLedger
	}
	if s.ledger == nil {
		post = false
	}

	payment.ID = newID()
	payment.CreatedAt = s.clock.Now()
	if payment.ReceiptNumber == "" {
		payment.ReceiptNumber = "RCPT-" + ulid.Make().String()
	}
	payment.LedgerStatus = domain.LedgerStatusSkipped
	if post {
		payment.LedgerStatus = domain.LedgerStatusPending
	}

	err = s.inTx(ctx, "record_payment", parishID, func(tx *gorm.DB) error {
		concession, err := s.concessions.FindByID(ctx, tx, parishID, payment.ConcessionID)
		if err != nil {
			return err
		}
		if concession == nil {
			return domain.NewNotFound("concession", payment.ConcessionID)
		}
		if err := validation.CheckPaymentPeriod(*concession, payment.PeriodStart, payment.PeriodEnd); err != nil {
			return err
		}
		if payment.Currency == "" {
			payment.Currency = concession.Currency
		}
		if payment.Currency != concession.Currency {
			return domain.NewValidationError("currency", "mismatch", "must match the concession currency "+concession.Currency)
		}
		return s.payments.Insert(ctx, tx, &payment)
	})
	if err != nil {
		return domain.ConcessionPayment{}, err
	}

	if post {
		s.postToLedger(ctx, &payment)
	}
	s.metrics.RecordPayment(ctx, string(payment.LedgerStatus))
	s.record(ctx, parishID, "payment.recorded", "concession_payment", payment.ID, map[string]any{
		"concession_id": payment.ConcessionID,
		"amount":        payment.Amount.StringFixed(2),
		"currency":      payment.Currency,
		"ledger_status": string(payment.LedgerStatus),
	})
	return payment, nil
}

func (s *Service) postToLedger(ctx context.Context, payment *domain.ConcessionPayment) {
	accounts := s.policy.Get().Ledger
	_, err := s.ledger.PostConcessionPayment(ctx, ledgerdomain.PaymentPosting{
		ParishID:      payment.ParishID,
		PaymentID:     payment.ID,
		Currency:      payment.Currency,
		Amount:        payment.Amount,
		OccurredAt:    payment.PaymentDate.Time(),
		DebitAccount:  ledgerdomain.LedgerAccountCode(accounts.CashAccount),
		CreditAccount: ledgerdomain.LedgerAccountCode(accounts.RevenueAccount),
	})
	if err != nil {
		payment.LedgerStatus = domain.LedgerStatusFailed
		payment.LedgerError = err.Error()
		s.metrics.RecordLedgerFailure(ctx, string(ledgerdomain.SourceTypeConcessionPayment))
		s.log.Warn("ledger posting failed, payment kept",
			zap.String("payment_id", payment.ID),
			zap.String("concession_id", payment.ConcessionID),
			zap.Error(err),
		)
	} else {
		payment.LedgerStatus = domain.LedgerStatusPosted
	}

	err = s.inTx(ctx, "update_ledger_status", payment.ParishID, func(tx *gorm.DB) error {
		return s.payments.UpdateLedgerStatus(ctx, tx, payment)
	})
	if err != nil {
		s.log.Error("failed to store ledger status",
			zap.String("payment_id", payment.ID),
			zap.String("ledger_status", string(payment.LedgerStatus)),
			zap.Error(err),
		)
	}
}

func (s *Service) ListPayments(ctx context.Context, concessionID string) ([]domain.ConcessionPayment, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return nil, err
	}
	concessionID, err = validation.ID("concession_id", concessionID)
	if err != nil {
		return nil, err
	}

	var items []*domain.ConcessionPayment
	err = s.inTx(ctx, "list_payments", parishID, func(tx *gorm.DB) error {
		concession, err := s.concessions.FindByID(ctx, tx, parishID, concessionID)
		if err != nil {
			return err
		}
		if concession == nil {
			return domain.NewNotFound("concession", concessionID)
		}
		items, err = s.payments.ListByConcession(ctx, tx, parishID, concessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}
