package domain

import (
	"context"

	"github.com/smallbiznis/ecclesia/pkg/calendar"
	"gorm.io/gorm"
)

// Repositories take the *gorm.DB to run on so callers can pass a transaction.
// Finders return nil, nil when the row does not exist.

type LayoutRepository interface {
	InsertCemetery(ctx context.Context, db *gorm.DB, cemetery *Cemetery) error
	FindCemetery(ctx context.Context, db *gorm.DB, parishID, id string) (*Cemetery, error)
	ListCemeteries(ctx context.Context, db *gorm.DB, parishID string) ([]*Cemetery, error)
	DeleteCemetery(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error)
	CountCemeteryDependents(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error)

	InsertParcel(ctx context.Context, db *gorm.DB, parcel *Parcel) error
	FindParcel(ctx context.Context, db *gorm.DB, parishID, id string) (*Parcel, error)
	ListParcels(ctx context.Context, db *gorm.DB, parishID, cemeteryID string) ([]*Parcel, error)
	DeleteParcel(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error)
	CountParcelDependents(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error)

	InsertRow(ctx context.Context, db *gorm.DB, row *Row) error
	FindRow(ctx context.Context, db *gorm.DB, parishID, id string) (*Row, error)
	ListRows(ctx context.Context, db *gorm.DB, parishID, parcelID string) ([]*Row, error)
	DeleteRow(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error)
	CountRowDependents(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error)
}

type GraveRepository interface {
	Insert(ctx context.Context, db *gorm.DB, grave *Grave) error
	FindByID(ctx context.Context, db *gorm.DB, parishID, id string) (*Grave, error)
	// FindForUpdate reads the grave and, where the dialect supports it, holds
	// a row lock until the surrounding transaction ends.
	FindForUpdate(ctx context.Context, db *gorm.DB, parishID, id string) (*Grave, error)
	UpdateDetails(ctx context.Context, db *gorm.DB, grave *Grave) error
	UpdateStatus(ctx context.Context, db *gorm.DB, grave *Grave) error
	Delete(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error)
	CountDependents(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error)
}

type ConcessionListFilter struct {
	GraveID string
	Status  ConcessionStatus
}

type ConcessionRepository interface {
	Insert(ctx context.Context, db *gorm.DB, concession *Concession) error
	FindByID(ctx context.Context, db *gorm.DB, parishID, id string) (*Concession, error)
	List(ctx context.Context, db *gorm.DB, parishID string, filter ConcessionListFilter) ([]*Concession, error)
	Update(ctx context.Context, db *gorm.DB, concession *Concession) error
	Delete(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error)
	// HasActiveForGrave ignores excludeID so a concession being removed or
	// demoted does not count itself.
	HasActiveForGrave(ctx context.Context, db *gorm.DB, parishID, graveID, excludeID string) (bool, error)
	ContractNumberTaken(ctx context.Context, db *gorm.DB, parishID, contractNumber, excludeID string) (bool, error)
	// ListExpiringParishes names the parishes holding active concessions that
	// ended before today. On postgres it reads past row-level security.
	ListExpiringParishes(ctx context.Context, db *gorm.DB, today calendar.Date) ([]string, error)
	// ListExpiring returns the parish's active concessions that ended before today.
	ListExpiring(ctx context.Context, db *gorm.DB, parishID string, today calendar.Date, limit int) ([]*Concession, error)
	MarkExpired(ctx context.Context, db *gorm.DB, concession *Concession) (int64, error)
}

type BurialListFilter struct {
	GraveID string
}

type BurialRepository interface {
	Insert(ctx context.Context, db *gorm.DB, burial *Burial) error
	FindByID(ctx context.Context, db *gorm.DB, parishID, id string) (*Burial, error)
	List(ctx context.Context, db *gorm.DB, parishID string, filter BurialListFilter) ([]*Burial, error)
	Delete(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error)
	CountForGrave(ctx context.Context, db *gorm.DB, parishID, graveID string) (int64, error)
}

type PaymentRepository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *ConcessionPayment) error
	ListByConcession(ctx context.Context, db *gorm.DB, parishID, concessionID string) ([]*ConcessionPayment, error)
	UpdateLedgerStatus(ctx context.Context, db *gorm.DB, payment *ConcessionPayment) error
	DeleteByConcession(ctx context.Context, db *gorm.DB, parishID, concessionID string) (int64, error)
	Bounds(ctx context.Context, db *gorm.DB, parishID, concessionID string) (PaymentBounds, error)
}

// PaymentBounds spans every payment recorded against one concession. The
// dates are zero when Count is zero.
type PaymentBounds struct {
	Count         int64
	EarliestStart calendar.Date
	LatestEnd     calendar.Date
	Currencies    []string
}

// OccupancyRepository backs the batched occupancy read. Each method is a
// single query.
type OccupancyRepository interface {
	ListGraves(ctx context.Context, db *gorm.DB, parishID string, filter OccupancyFilter) ([]GraveRow, error)
	ListActiveConcessions(ctx context.Context, db *gorm.DB, parishID string, graveIDs []string) ([]ActiveConcessionRow, error)
	ListBurials(ctx context.Context, db *gorm.DB, parishID string, graveIDs []string) ([]Burial, error)
}

// ReferenceChecker answers existence questions for the validation layer.
type ReferenceChecker interface {
	ClientExists(ctx context.Context, db *gorm.DB, parishID, clientID string) (bool, error)
}
