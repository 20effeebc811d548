package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"gorm.io/gorm"
)

type occupancyRepo struct{}

func ProvideOccupancy() domain.OccupancyRepository {
	return &occupancyRepo{}
}

// ListGraves is the first of the three reads behind an occupancy query. Layout
// names come from the same statement so no per-grave lookups follow.
func (r *occupancyRepo) ListGraves(ctx context.Context, db *gorm.DB, parishID string, filter domain.OccupancyFilter) ([]domain.GraveRow, error) {
	var sb strings.Builder
	args := []any{parishID}
	sb.WriteString(`SELECT g.id, g.cemetery_id, c.name AS cemetery_name,
			g.parcel_id, p.name AS parcel_name, g.row_id, r.name AS row_name,
			g.code, g.status, g.width, g.length, g.position, g.notes
		FROM graves g
		JOIN cemeteries c ON c.id = g.cemetery_id
		LEFT JOIN cemetery_parcels p ON p.id = g.parcel_id
		LEFT JOIN cemetery_rows r ON r.id = g.row_id
		WHERE g.parish_id = ?`)
	if filter.CemeteryID != "" {
		sb.WriteString(` AND g.cemetery_id = ?`)
		args = append(args, filter.CemeteryID)
	}
	if filter.ParcelID != "" {
		sb.WriteString(` AND g.parcel_id = ?`)
		args = append(args, filter.ParcelID)
	}
	if filter.RowID != "" {
		sb.WriteString(` AND g.row_id = ?`)
		args = append(args, filter.RowID)
	}
	if filter.Status != "" {
		sb.WriteString(` AND g.status = ?`)
		args = append(args, filter.Status)
	}
	sb.WriteString(` ORDER BY c.name, g.cemetery_id, p.name, r.name, g.code, g.id`)

	var rows []domain.GraveRow
	if err := db.WithContext(ctx).Raw(sb.String(), args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveConcessions returns every active concession of the given graves
// with its holder name, ordered so the earliest-starting one comes first per
// grave.
func (r *occupancyRepo) ListActiveConcessions(ctx context.Context, db *gorm.DB, parishID string, graveIDs []string) ([]domain.ActiveConcessionRow, error) {
	var rows []domain.ActiveConcessionRow
	if len(graveIDs) == 0 {
		return rows, nil
	}
	err := db.WithContext(ctx).Raw(
		`SELECT k.id, k.grave_id, k.contract_number, k.start_date, k.expiry_date, k.status,
			k.annual_fee, k.currency, k.holder_client_id, cl.name AS holder_name
		 FROM concessions k
		 LEFT JOIN clients cl ON cl.id = k.holder_client_id
		 WHERE k.parish_id = ? AND k.status = ? AND k.grave_id IN ?
		 ORDER BY k.grave_id, k.start_date, k.id`,
		parishID,
		domain.ConcessionStatusActive,
		graveIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *occupancyRepo) ListBurials(ctx context.Context, db *gorm.DB, parishID string, graveIDs []string) ([]domain.Burial, error) {
	var burials []domain.Burial
	if len(graveIDs) == 0 {
		return burials, nil
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id, parish_id, grave_id, deceased_client_id, deceased_first_name, deceased_last_name,
			deceased_birth_date, deceased_death_date, burial_date, certificate_number,
			certificate_issued_by, certificate_date, notes, created_at, updated_at
		 FROM burials
		 WHERE parish_id = ? AND grave_id IN ?
		 ORDER BY grave_id, burial_date, id`,
		parishID,
		graveIDs,
	).Scan(&burials).Error
	if err != nil {
		return nil, err
	}
	return burials, nil
}
