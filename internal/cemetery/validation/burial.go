package validation

import (
	"context"
	"strings"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
)

func (v *Validator) NewBurial(ctx context.Context, lookup Lookup, parishID string, req domain.CreateBurialRequest) (domain.Burial, error) {
	req.GraveID = strings.TrimSpace(req.GraveID)
	req.DeceasedClientID = strings.TrimSpace(req.DeceasedClientID)
	req.DeceasedFirstName = strings.TrimSpace(req.DeceasedFirstName)
	req.DeceasedLastName = strings.TrimSpace(req.DeceasedLastName)
	req.DeceasedBirthDate = strings.TrimSpace(req.DeceasedBirthDate)
	req.DeceasedDeathDate = strings.TrimSpace(req.DeceasedDeathDate)
	req.BurialDate = strings.TrimSpace(req.BurialDate)
	req.CertificateNumber = strings.TrimSpace(req.CertificateNumber)
	req.CertificateIssuedBy = strings.TrimSpace(req.CertificateIssuedBy)
	req.CertificateDate = strings.TrimSpace(req.CertificateDate)

	if err := v.Struct(req); err != nil {
		return domain.Burial{}, err
	}

	burial := domain.Burial{
		ParishID:            parishID,
		GraveID:             strings.ToLower(req.GraveID),
		DeceasedClientID:    optionalID(req.DeceasedClientID),
		DeceasedFirstName:   req.DeceasedFirstName,
		DeceasedLastName:    req.DeceasedLastName,
		DeceasedBirthDate:   parseDate(req.DeceasedBirthDate),
		DeceasedDeathDate:   parseDate(req.DeceasedDeathDate),
		BurialDate:          parseDate(req.BurialDate),
		CertificateNumber:   req.CertificateNumber,
		CertificateIssuedBy: req.CertificateIssuedBy,
		CertificateDate:     parseDate(req.CertificateDate),
		Notes:               strings.TrimSpace(req.Notes),
	}

	verr := &domain.ValidationError{}
	death := burial.DeceasedDeathDate
	if !death.IsZero() && burial.BurialDate.Before(death) {
		verr.Add("burial_date", "date_order", "must not be before deceased_death_date")
	}
	if birth := burial.DeceasedBirthDate; !birth.IsZero() && !death.IsZero() && death.Before(birth) {
		verr.Add("deceased_death_date", "date_order", "must not be before deceased_birth_date")
	}
	if burial.DeceasedClientID != nil {
		exists, err := lookup.ClientExists(ctx, parishID, *burial.DeceasedClientID)
		if err != nil {
			return domain.Burial{}, err
		}
		if !exists {
			verr.Add("deceased_client_id", "not_found", "client does not exist")
		}
	}
	if err := verr.OrNil(); err != nil {
		return domain.Burial{}, err
	}
	return burial, nil
}
