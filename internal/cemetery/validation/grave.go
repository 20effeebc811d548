package validation

import (
	"strings"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
)

// NewGrave validates the payload shape. Whether the parcel and row belong to
// the cemetery is checked by the caller against the store.
func (v *Validator) NewGrave(parishID string, req domain.CreateGraveRequest) (domain.Grave, error) {
	req.CemeteryID = strings.TrimSpace(req.CemeteryID)
	req.ParcelID = strings.TrimSpace(req.ParcelID)
	req.RowID = strings.TrimSpace(req.RowID)
	req.Code = strings.TrimSpace(req.Code)
	req.Width = strings.TrimSpace(req.Width)
	req.Length = strings.TrimSpace(req.Length)

	if err := v.Struct(req); err != nil {
		return domain.Grave{}, err
	}
	if req.RowID != "" && req.ParcelID == "" {
		return domain.Grave{}, domain.NewValidationError("parcel_id", "required_with", "is required when row_id is set")
	}

	return domain.Grave{
		ParishID:   parishID,
		CemeteryID: strings.ToLower(req.CemeteryID),
		ParcelID:   optionalID(req.ParcelID),
		RowID:      optionalID(req.RowID),
		Code:       req.Code,
		Status:     domain.GraveStatusFree,
		Width:      parseNullDecimal(req.Width),
		Length:     parseNullDecimal(req.Length),
		Position:   strings.TrimSpace(req.Position),
		Notes:      strings.TrimSpace(req.Notes),
	}, nil
}

func (v *Validator) ApplyGraveUpdate(current domain.Grave, req domain.UpdateGraveRequest) (domain.Grave, error) {
	trimPtr(req.Code, req.Width, req.Length, req.Position, req.Notes)
	if err := v.Struct(req); err != nil {
		return domain.Grave{}, err
	}

	next := current
	if req.Code != nil {
		next.Code = *req.Code
	}
	if req.Width != nil {
		next.Width = parseNullDecimal(*req.Width)
	}
	if req.Length != nil {
		next.Length = parseNullDecimal(*req.Length)
	}
	if req.Position != nil {
		next.Position = *req.Position
	}
	if req.Notes != nil {
		next.Notes = *req.Notes
	}
	return next, nil
}
