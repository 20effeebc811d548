package validation

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
)

// Lookup is the read-only existence check the validation layer relies on.
type Lookup interface {
	ClientExists(ctx context.Context, parishID, clientID string) (bool, error)
	ContractNumberTaken(ctx context.Context, parishID, contractNumber, excludeID string) (bool, error)
}

// NewConcession validates a create payload. The returned concession has no
// id or timestamps yet.
func (v *Validator) NewConcession(ctx context.Context, lookup Lookup, parishID string, req domain.CreateConcessionRequest, defaultCurrency string) (domain.Concession, error) {
	req.GraveID = strings.TrimSpace(req.GraveID)
	req.HolderClientID = strings.TrimSpace(req.HolderClientID)
	req.ContractNumber = strings.TrimSpace(req.ContractNumber)
	req.ContractDate = strings.TrimSpace(req.ContractDate)
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.ExpiryDate = strings.TrimSpace(req.ExpiryDate)
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	req.AnnualFee = strings.TrimSpace(req.AnnualFee)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))

	if err := v.Struct(req); err != nil {
		return domain.Concession{}, err
	}

	concession := domain.Concession{
		ParishID:       parishID,
		GraveID:        strings.ToLower(req.GraveID),
		HolderClientID: optionalID(req.HolderClientID),
		ContractNumber: req.ContractNumber,
		ContractDate:   parseDate(req.ContractDate),
		StartDate:      parseDate(req.StartDate),
		ExpiryDate:     parseDate(req.ExpiryDate),
		Status:         domain.ConcessionStatus(req.Status),
		AnnualFee:      decimal.Zero,
		Currency:       req.Currency,
		Notes:          strings.TrimSpace(req.Notes),
	}
	if concession.Status == "" {
		concession.Status = domain.ConcessionStatusActive
	}
	if req.AnnualFee != "" {
		concession.AnnualFee = parseDecimal(req.AnnualFee)
	}
	if concession.Currency == "" {
		concession.Currency = defaultCurrency
	}

	if err := v.checkConcession(ctx, lookup, concession, ""); err != nil {
		return domain.Concession{}, err
	}
	return concession, nil
}

// ApplyConcessionUpdate merges a partial update onto current and validates the
// result as a whole.
func (v *Validator) ApplyConcessionUpdate(ctx context.Context, lookup Lookup, current domain.Concession, req domain.UpdateConcessionRequest) (domain.Concession, error) {
	trimPtr(req.HolderClientID, req.ContractNumber, req.ContractDate, req.StartDate, req.ExpiryDate, req.Status, req.AnnualFee, req.Currency)
	if req.Currency != nil {
		*req.Currency = strings.ToUpper(*req.Currency)
	}
	if req.Status != nil {
		*req.Status = strings.ToLower(*req.Status)
	}
	if err := v.Struct(req); err != nil {
		return domain.Concession{}, err
	}

	next := current
	if req.HolderClientID != nil {
		next.HolderClientID = optionalID(*req.HolderClientID)
	}
	if req.ContractNumber != nil {
		next.ContractNumber = *req.ContractNumber
	}
	if req.ContractDate != nil {
		next.ContractDate = parseDate(*req.ContractDate)
	}
	if req.StartDate != nil {
		next.StartDate = parseDate(*req.StartDate)
	}
	if req.ExpiryDate != nil {
		next.ExpiryDate = parseDate(*req.ExpiryDate)
	}
	if req.Status != nil {
		next.Status = domain.ConcessionStatus(*req.Status)
	}
	if req.AnnualFee != nil {
		next.AnnualFee = parseDecimal(*req.AnnualFee)
	}
	if req.Currency != nil {
		next.Currency = *req.Currency
	}
	if req.Notes != nil {
		next.Notes = strings.TrimSpace(*req.Notes)
	}

	if err := v.checkConcession(ctx, lookup, next, current.ID); err != nil {
		return domain.Concession{}, err
	}
	return next, nil
}

func (v *Validator) checkConcession(ctx context.Context, lookup Lookup, c domain.Concession, excludeID string) error {
	verr := &domain.ValidationError{}
	if c.StartDate.After(c.ExpiryDate) {
		verr.Add("expiry_date", "date_order", "must not be before start_date")
	}
	if c.HolderClientID != nil {
		exists, err := lookup.ClientExists(ctx, c.ParishID, *c.HolderClientID)
		if err != nil {
			return err
		}
		if !exists {
			verr.Add("holder_client_id", "not_found", "client does not exist")
		}
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	taken, err := lookup.ContractNumberTaken(ctx, c.ParishID, c.ContractNumber, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return domain.NewConflict("contract_number", "contract number is already used in this parish")
	}
	return nil
}

func trimPtr(values ...*string) {
	for _, v := range values {
		if v != nil {
			*v = strings.TrimSpace(*v)
		}
	}
}
