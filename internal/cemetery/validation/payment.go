package validation

import (
	"strings"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/pkg/calendar"
)

// NewPayment validates the payment payload on its own. Containment in the
// concession period is checked separately by CheckPaymentPeriod.
func (v *Validator) NewPayment(parishID string, req domain.RecordPaymentRequest) (domain.ConcessionPayment, error) {
	req.ConcessionID = strings.TrimSpace(req.ConcessionID)
	req.PaymentDate = strings.TrimSpace(req.PaymentDate)
	req.Amount = strings.TrimSpace(req.Amount)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	req.PeriodStart = strings.TrimSpace(req.PeriodStart)
	req.PeriodEnd = strings.TrimSpace(req.PeriodEnd)
	req.ReceiptNumber = strings.TrimSpace(req.ReceiptNumber)

	if err := v.Struct(req); err != nil {
		return domain.ConcessionPayment{}, err
	}

	payment := domain.ConcessionPayment{
		ParishID:      parishID,
		ConcessionID:  strings.ToLower(req.ConcessionID),
		PaymentDate:   parseDate(req.PaymentDate),
		Amount:        parseDecimal(req.Amount),
		Currency:      req.Currency,
		PeriodStart:   parseDate(req.PeriodStart),
		PeriodEnd:     parseDate(req.PeriodEnd),
		ReceiptNumber: req.ReceiptNumber,
	}
	if payment.PeriodStart.After(payment.PeriodEnd) {
		return domain.ConcessionPayment{}, domain.NewValidationError("period_end", "date_order", "must not be before period_start")
	}
	return payment, nil
}

// CheckPaymentPeriod verifies that [start, end] lies inside the concession's
// [start_date, expiry_date], bounds inclusive.
func CheckPaymentPeriod(concession domain.Concession, start, end calendar.Date) error {
	verr := &domain.ValidationError{}
	if start.After(end) {
		verr.Add("period_end", "date_order", "must not be before period_start")
		return verr
	}
	if !start.Within(concession.StartDate, concession.ExpiryDate) {
		verr.Add("period_start", "out_of_range",
			"must be within the concession period "+concession.StartDate.String()+".."+concession.ExpiryDate.String())
	}
	if !end.Within(concession.StartDate, concession.ExpiryDate) {
		verr.Add("period_end", "out_of_range",
			"must be within the concession period "+concession.StartDate.String()+".."+concession.ExpiryDate.String())
	}
	return verr.OrNil()
}

// CheckPaymentsCovered verifies that the concession still spans every payment
// already recorded against it and shares their currency.
func CheckPaymentsCovered(concession domain.Concession, bounds domain.PaymentBounds) error {
	if bounds.Count == 0 {
		return nil
	}
	verr := &domain.ValidationError{}
	if concession.StartDate.After(bounds.EarliestStart) {
		verr.Add("start_date", "payments_outside",
			"must not be after the earliest paid period start "+bounds.EarliestStart.String())
	}
	if concession.ExpiryDate.Before(bounds.LatestEnd) {
		verr.Add("expiry_date", "payments_outside",
			"must not be before the latest paid period end "+bounds.LatestEnd.String())
	}
	for _, currency := range bounds.Currencies {
		if currency != concession.Currency {
			verr.Add("currency", "mismatch",
				"payments are recorded in "+strings.Join(bounds.Currencies, ", "))
			break
		}
	}
	return verr.OrNil()
}
