package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
)

// OccupancyQuery checks identifier filters and returns the structural filter
// plus the normalized search text.
func (v *Validator) OccupancyQuery(q domain.OccupancyQuery, maxSearch int) (domain.OccupancyFilter, string, error) {
	verr := &domain.ValidationError{}
	filter := domain.OccupancyFilter{}

	ids := []struct {
		field string
		value string
		dst   *string
	}{
		{"cemetery_id", q.CemeteryID, &filter.CemeteryID},
		{"parcel_id", q.ParcelID, &filter.ParcelID},
		{"row_id", q.RowID, &filter.RowID},
	}
	for _, id := range ids {
		if strings.TrimSpace(id.value) == "" {
			continue
		}
		parsed, err := ID(id.field, id.value)
		if err != nil {
			verr.Add(id.field, "uuid", "must be a valid identifier")
			continue
		}
		*id.dst = parsed
	}

	if status := strings.ToLower(strings.TrimSpace(q.Status)); status != "" {
		filter.Status = domain.GraveStatus(status)
		if !filter.Status.Valid() {
			verr.Add("status", "oneof", "must be one of: free occupied reserved maintenance")
		}
	}

	search := strings.TrimSpace(q.Search)
	if maxSearch > 0 && utf8.RuneCountInString(search) > maxSearch {
		verr.Add("search", "max", "is too long")
	}

	if err := verr.OrNil(); err != nil {
		return domain.OccupancyFilter{}, "", err
	}
	return filter, search, nil
}
