package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"gorm.io/gorm"
)

// QueryOccupancy reads the enriched occupancy of every grave matching the
// query with exactly three read statements: graves with their layout names,
// the active concessions of those graves and their burials. On postgres the
// transaction first runs one set_config call to scope row-level security,
// which the query counter files under writes. Rows are joined in memory,
// free-text search runs over the joined rows, and the summary counts what is
// returned.
func (s *Service) QueryOccupancy(ctx context.Context, query domain.OccupancyQuery) (domain.OccupancyResult, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.OccupancyResult{}, err
	}
	filter, search, err := s.validator.OccupancyQuery(query, s.policy.Get().SearchMaxLength)
	if err != nil {
		return domain.OccupancyResult{}, err
	}

	var (
		graves      []domain.GraveRow
		concessions []domain.ActiveConcessionRow
		burials     []domain.Burial
	)
	err = s.inTx(ctx, "query_occupancy", parishID, func(tx *gorm.DB) error {
		var err error
		graves, err = s.occupancy.ListGraves(ctx, tx, parishID, filter)
		if err != nil {
			return err
		}
		if len(graves) == 0 {
			return nil
		}

		ids := make([]string, 0, len(graves))
		for _, g := range graves {
			ids = append(ids, g.ID)
		}
		concessions, err = s.occupancy.ListActiveConcessions(ctx, tx, parishID, ids)
		if err != nil {
			return err
		}
		burials, err = s.occupancy.ListBurials(ctx, tx, parishID, ids)
		return err
	})
	if err != nil {
		return domain.OccupancyResult{}, err
	}

	rows := assembleOccupancy(graves, concessions, burials)
	if search != "" {
		rows = filterOccupancy(rows, search)
	}
	result := domain.OccupancyResult{
		Graves:  rows,
		Summary: summarize(rows),
	}

	filtered := search != "" || filter != (domain.OccupancyFilter{})
	s.metrics.RecordOccupancyRead(ctx, filtered, len(rows))
	return result, nil
}

// assembleOccupancy joins the three result sets. Concessions arrive ordered
// by grave, start date and id, so the first one seen per grave is kept.
func assembleOccupancy(graves []domain.GraveRow, concessions []domain.ActiveConcessionRow, burials []domain.Burial) []domain.GraveOccupancy {
	concessionByGrave := make(map[string]*domain.ConcessionView, len(concessions))
	for _, c := range concessions {
		if _, ok := concessionByGrave[c.GraveID]; ok {
			continue
		}
		view := &domain.ConcessionView{
			ID:             c.ID,
			ContractNumber: c.ContractNumber,
			StartDate:      c.StartDate,
			ExpiryDate:     c.ExpiryDate,
			Status:         c.Status,
			AnnualFee:      c.AnnualFee,
			Currency:       c.Currency,
			HolderClientID: c.HolderClientID,
		}
		if c.HolderName != nil {
			view.HolderName = *c.HolderName
		}
		concessionByGrave[c.GraveID] = view
	}

	burialsByGrave := make(map[string][]domain.BurialView, len(graves))
	for _, b := range burials {
		burialsByGrave[b.GraveID] = append(burialsByGrave[b.GraveID], domain.BurialView{
			ID:                b.ID,
			DeceasedName:      b.DeceasedName(),
			DeceasedClientID:  b.DeceasedClientID,
			DeceasedDeathDate: b.DeceasedDeathDate,
			BurialDate:        b.BurialDate,
		})
	}

	out := make([]domain.GraveOccupancy, 0, len(graves))
	for _, g := range graves {
		row := domain.GraveOccupancy{
			ID:           g.ID,
			Code:         g.Code,
			Status:       g.Status,
			CemeteryID:   g.CemeteryID,
			CemeteryName: g.CemeteryName,
			ParcelID:     g.ParcelID,
			RowID:        g.RowID,
			Width:        g.Width,
			Length:       g.Length,
			Position:     g.Position,
			Notes:        g.Notes,
			Concession:   concessionByGrave[g.ID],
			Burials:      burialsByGrave[g.ID],
		}
		if g.ParcelName != nil {
			row.ParcelName = *g.ParcelName
		}
		if g.RowName != nil {
			row.RowName = *g.RowName
		}
		if row.Burials == nil {
			row.Burials = []domain.BurialView{}
		}
		out = append(out, row)
	}
	return out
}

func filterOccupancy(rows []domain.GraveOccupancy, search string) []domain.GraveOccupancy {
	needle := strings.ToLower(search)
	out := rows[:0]
	for _, row := range rows {
		if matchesSearch(row, needle) {
			out = append(out, row)
		}
	}
	return out
}

func matchesSearch(row domain.GraveOccupancy, needle string) bool {
	fields := []string{row.Code, row.CemeteryName, row.ParcelName, row.RowName}
	if row.Concession != nil {
		fields = append(fields, row.Concession.ContractNumber, row.Concession.HolderName)
	}
	for _, b := range row.Burials {
		fields = append(fields, b.DeceasedName)
	}
	for _, field := range fields {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func summarize(rows []domain.GraveOccupancy) domain.OccupancySummary {
	summary := domain.OccupancySummary{
		Total:    len(rows),
		ByStatus: make(map[domain.GraveStatus]int, len(domain.GraveStatuses)),
	}
	for _, status := range domain.GraveStatuses {
		summary.ByStatus[status] = 0
	}
	for _, row := range rows {
		summary.ByStatus[row.Status]++
		if row.Concession != nil {
			summary.WithConcession++
		}
		if len(row.Burials) > 0 {
			summary.WithBurials++
		}
	}
	return summary
}
