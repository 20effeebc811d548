package repository

import (
	"context"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"gorm.io/gorm"
)

type paymentRepo struct{}

func ProvidePayments() domain.PaymentRepository {
	return &paymentRepo{}
}

func (r *paymentRepo) Insert(ctx context.Context, db *gorm.DB, payment *domain.ConcessionPayment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO concession_payments (id, parish_id, concession_id, payment_date, amount, currency,
			period_start, period_end, receipt_number, ledger_status, ledger_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.ParishID,
		payment.ConcessionID,
		payment.PaymentDate,
		payment.Amount,
		payment.Currency,
		payment.PeriodStart,
		payment.PeriodEnd,
		payment.ReceiptNumber,
		payment.LedgerStatus,
		payment.LedgerError,
		payment.CreatedAt,
	).Error
}

func (r *paymentRepo) ListByConcession(ctx context.Context, db *gorm.DB, parishID, concessionID string) ([]*domain.ConcessionPayment, error) {
	var payments []*domain.ConcessionPayment
	err := db.WithContext(ctx).
		Where("parish_id = ? AND concession_id = ?", parishID, concessionID).
		Order("payment_date asc, created_at asc, id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepo) UpdateLedgerStatus(ctx context.Context, db *gorm.DB, payment *domain.ConcessionPayment) error {
	return db.WithContext(ctx).
		Model(&domain.ConcessionPayment{}).
		Where("parish_id = ? AND id = ?", payment.ParishID, payment.ID).
		Updates(map[string]any{
			"ledger_status": payment.LedgerStatus,
			"ledger_error":  payment.LedgerError,
		}).Error
}

func (r *paymentRepo) DeleteByConcession(ctx context.Context, db *gorm.DB, parishID, concessionID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("parish_id = ? AND concession_id = ?", parishID, concessionID).
		Delete(&domain.ConcessionPayment{})
	return res.RowsAffected, res.Error
}

func (r *paymentRepo) Bounds(ctx context.Context, db *gorm.DB, parishID, concessionID string) (domain.PaymentBounds, error) {
	var bounds domain.PaymentBounds
	row := db.WithContext(ctx).Raw(
		`SELECT COUNT(*), MIN(period_start), MAX(period_end)
		 FROM concession_payments
		 WHERE parish_id = ? AND concession_id = ?`,
		parishID, concessionID,
	).Row()
	if err := row.Scan(&bounds.Count, &bounds.EarliestStart, &bounds.LatestEnd); err != nil {
		return domain.PaymentBounds{}, err
	}
	if bounds.Count == 0 {
		return bounds, nil
	}

	err := db.WithContext(ctx).
		Model(&domain.ConcessionPayment{}).
		Where("parish_id = ? AND concession_id = ?", parishID, concessionID).
		Distinct("currency").
		Order("currency asc").
		Pluck("currency", &bounds.Currencies).Error
	if err != nil {
		return domain.PaymentBounds{}, err
	}
	return bounds, nil
}
