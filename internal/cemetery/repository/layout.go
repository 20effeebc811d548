package repository

import (
	"context"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/pkg/repository"
	"gorm.io/gorm"
)

// layoutRepo keeps cemeteries, parcels and rows on the generic store; they are
// flat tables with no derived state.
type layoutRepo struct{}

func ProvideLayout() domain.LayoutRepository {
	return &layoutRepo{}
}

func (r *layoutRepo) InsertCemetery(ctx context.Context, db *gorm.DB, cemetery *domain.Cemetery) error {
	return repository.ProvideStore[domain.Cemetery](db).Create(ctx, cemetery)
}

func (r *layoutRepo) FindCemetery(ctx context.Context, db *gorm.DB, parishID, id string) (*domain.Cemetery, error) {
	return repository.ProvideStore[domain.Cemetery](db).FindOne(ctx, &domain.Cemetery{ParishID: parishID, ID: id})
}

func (r *layoutRepo) ListCemeteries(ctx context.Context, db *gorm.DB, parishID string) ([]*domain.Cemetery, error) {
	return repository.ProvideStore[domain.Cemetery](db).Find(ctx,
		&domain.Cemetery{ParishID: parishID},
		repository.OrderBy("name asc, id asc"),
	)
}

func (r *layoutRepo) DeleteCemetery(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error) {
	return repository.ProvideStore[domain.Cemetery](db).Delete(ctx, &domain.Cemetery{ParishID: parishID, ID: id})
}

func (r *layoutRepo) CountCemeteryDependents(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error) {
	return countDependents(ctx, db,
		`SELECT
			(SELECT COUNT(*) FROM cemetery_parcels WHERE parish_id = ? AND cemetery_id = ?) +
			(SELECT COUNT(*) FROM graves WHERE parish_id = ? AND cemetery_id = ?)`,
		parishID, id, parishID, id,
	)
}

func (r *layoutRepo) InsertParcel(ctx context.Context, db *gorm.DB, parcel *domain.Parcel) error {
	return repository.ProvideStore[domain.Parcel](db).Create(ctx, parcel)
}

func (r *layoutRepo) FindParcel(ctx context.Context, db *gorm.DB, parishID, id string) (*domain.Parcel, error) {
	return repository.ProvideStore[domain.Parcel](db).FindOne(ctx, &domain.Parcel{ParishID: parishID, ID: id})
}

func (r *layoutRepo) ListParcels(ctx context.Context, db *gorm.DB, parishID, cemeteryID string) ([]*domain.Parcel, error) {
	return repository.ProvideStore[domain.Parcel](db).Find(ctx,
		&domain.Parcel{ParishID: parishID, CemeteryID: cemeteryID},
		repository.OrderBy("name asc, id asc"),
	)
}

func (r *layoutRepo) DeleteParcel(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error) {
	return repository.ProvideStore[domain.Parcel](db).Delete(ctx, &domain.Parcel{ParishID: parishID, ID: id})
}

func (r *layoutRepo) CountParcelDependents(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error) {
	return countDependents(ctx, db,
		`SELECT
			(SELECT COUNT(*) FROM cemetery_rows WHERE parish_id = ? AND parcel_id = ?) +
			(SELECT COUNT(*) FROM graves WHERE parish_id = ? AND parcel_id = ?)`,
		parishID, id, parishID, id,
	)
}

func (r *layoutRepo) InsertRow(ctx context.Context, db *gorm.DB, row *domain.Row) error {
	return repository.ProvideStore[domain.Row](db).Create(ctx, row)
}

func (r *layoutRepo) FindRow(ctx context.Context, db *gorm.DB, parishID, id string) (*domain.Row, error) {
	return repository.ProvideStore[domain.Row](db).FindOne(ctx, &domain.Row{ParishID: parishID, ID: id})
}

func (r *layoutRepo) ListRows(ctx context.Context, db *gorm.DB, parishID, parcelID string) ([]*domain.Row, error) {
	return repository.ProvideStore[domain.Row](db).Find(ctx,
		&domain.Row{ParishID: parishID, ParcelID: parcelID},
		repository.OrderBy("name asc, id asc"),
	)
}

func (r *layoutRepo) DeleteRow(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error) {
	return repository.ProvideStore[domain.Row](db).Delete(ctx, &domain.Row{ParishID: parishID, ID: id})
}

func (r *layoutRepo) CountRowDependents(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error) {
	return countDependents(ctx, db,
		`SELECT COUNT(*) FROM graves WHERE parish_id = ? AND row_id = ?`,
		parishID, id,
	)
}

func countDependents(ctx context.Context, db *gorm.DB, query string, args ...any) (int64, error) {
	var count int64
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
