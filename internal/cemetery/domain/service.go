package domain

import (
	"context"
)

type CreateCemeteryRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
	Notes   string `json:"notes" validate:"max=2000"`
}

type CreateParcelRequest struct {
	CemeteryID string `json:"cemetery_id" validate:"required,uuid"`
	Name       string `json:"name" validate:"required,max=100"`
}

type CreateRowRequest struct {
	ParcelID string `json:"parcel_id" validate:"required,uuid"`
	Name     string `json:"name" validate:"required,max=100"`
}

type CreateGraveRequest struct {
	CemeteryID string `json:"cemetery_id" validate:"required,uuid"`
	ParcelID   string `json:"parcel_id" validate:"omitempty,uuid"`
	RowID      string `json:"row_id" validate:"omitempty,uuid"`
	Code       string `json:"code" validate:"required,max=64"`
	Width      string `json:"width" validate:"omitempty,dimension"`
	Length     string `json:"length" validate:"omitempty,dimension"`
	Position   string `json:"position" validate:"max=200"`
	Notes      string `json:"notes" validate:"max=2000"`
}

// UpdateGraveRequest never carries a status; see SetMaintenance.
type UpdateGraveRequest struct {
	Code     *string `json:"code" validate:"omitnil,min=1,max=64"`
	Width    *string `json:"width" validate:"omitempty,dimension"`
	Length   *string `json:"length" validate:"omitempty,dimension"`
	Position *string `json:"position" validate:"omitempty,max=200"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
}

type CreateConcessionRequest struct {
	GraveID        string `json:"grave_id" validate:"required,uuid"`
	HolderClientID string `json:"holder_client_id" validate:"omitempty,uuid"`
	ContractNumber string `json:"contract_number" validate:"required,max=64"`
	ContractDate   string `json:"contract_date" validate:"omitempty,date"`
	StartDate      string `json:"start_date" validate:"required,date"`
	ExpiryDate     string `json:"expiry_date" validate:"required,date"`
	Status         string `json:"status" validate:"omitempty,oneof=active expired cancelled pending"`
	AnnualFee      string `json:"annual_fee" validate:"omitempty,money"`
	Currency       string `json:"currency" validate:"omitempty,iso4217"`
	Notes          string `json:"notes" validate:"max=2000"`
}

type UpdateConcessionRequest struct {
	HolderClientID *string `json:"holder_client_id" validate:"omitempty,uuid"`
	ContractNumber *string `json:"contract_number" validate:"omitnil,min=1,max=64"`
	ContractDate   *string `json:"contract_date" validate:"omitempty,date"`
	StartDate      *string `json:"start_date" validate:"omitnil,date"`
	ExpiryDate     *string `json:"expiry_date" validate:"omitnil,date"`
	Status         *string `json:"status" validate:"omitnil,oneof=active expired cancelled pending"`
	AnnualFee      *string `json:"annual_fee" validate:"omitnil,money"`
	Currency       *string `json:"currency" validate:"omitnil,iso4217"`
	Notes          *string `json:"notes" validate:"omitempty,max=2000"`
}

type ListConcessionsRequest struct {
	GraveID string `form:"grave_id" validate:"omitempty,uuid"`
	Status  string `form:"status" validate:"omitempty,oneof=active expired cancelled pending"`
}

type CreateBurialRequest struct {
	GraveID             string `json:"grave_id" validate:"required,uuid"`
	DeceasedClientID    string `json:"deceased_client_id" validate:"omitempty,uuid"`
	DeceasedFirstName   string `json:"deceased_first_name" validate:"max=100"`
	DeceasedLastName    string `json:"deceased_last_name" validate:"required,max=100"`
	DeceasedBirthDate   string `json:"deceased_birth_date" validate:"omitempty,date"`
	DeceasedDeathDate   string `json:"deceased_death_date" validate:"omitempty,date"`
	BurialDate          string `json:"burial_date" validate:"required,date"`
	CertificateNumber   string `json:"certificate_number" validate:"max=64"`
	CertificateIssuedBy string `json:"certificate_issued_by" validate:"max=200"`
	CertificateDate     string `json:"certificate_date" validate:"omitempty,date"`
	Notes               string `json:"notes" validate:"max=2000"`
}

type ListBurialsRequest struct {
	GraveID string `form:"grave_id" validate:"omitempty,uuid"`
}

type RecordPaymentRequest struct {
	ConcessionID  string `json:"-" validate:"required,uuid"`
	PaymentDate   string `json:"payment_date" validate:"required,date"`
	Amount        string `json:"amount" validate:"required,money,positive"`
	Currency      string `json:"currency" validate:"omitempty,iso4217"`
	PeriodStart   string `json:"period_start" validate:"required,date"`
	PeriodEnd     string `json:"period_end" validate:"required,date"`
	ReceiptNumber string `json:"receipt_number" validate:"max=64"`
	// PostToLedger overrides the configured default when set.
	PostToLedger *bool `json:"post_to_ledger"`
}

type ExpireConcessionsResult struct {
	Expired        int      `json:"expired"`
	GravesAffected []string `json:"graves_affected"`
}

type Service interface {
	CreateCemetery(ctx context.Context, req CreateCemeteryRequest) (Cemetery, error)
	ListCemeteries(ctx context.Context) ([]Cemetery, error)
	DeleteCemetery(ctx context.Context, id string) error
	CreateParcel(ctx context.Context, req CreateParcelRequest) (Parcel, error)
	ListParcels(ctx context.Context, cemeteryID string) ([]Parcel, error)
	DeleteParcel(ctx context.Context, id string) error
	CreateRow(ctx context.Context, req CreateRowRequest) (Row, error)
	ListRows(ctx context.Context, parcelID string) ([]Row, error)
	DeleteRow(ctx context.Context, id string) error

	CreateGrave(ctx context.Context, req CreateGraveRequest) (Grave, error)
	GetGrave(ctx context.Context, id string) (Grave, error)
	UpdateGrave(ctx context.Context, id string, req UpdateGraveRequest) (Grave, error)
	SetMaintenance(ctx context.Context, id string, enabled bool) (Grave, error)
	DeleteGrave(ctx context.Context, id string) error

	CreateConcession(ctx context.Context, req CreateConcessionRequest) (Concession, error)
	GetConcession(ctx context.Context, id string) (Concession, error)
	ListConcessions(ctx context.Context, req ListConcessionsRequest) ([]Concession, error)
	UpdateConcession(ctx context.Context, id string, req UpdateConcessionRequest) (Concession, error)
	DeleteConcession(ctx context.Context, id string) (Concession, error)
	ExpireConcessions(ctx context.Context) (ExpireConcessionsResult, error)

	CreateBurial(ctx context.Context, req CreateBurialRequest) (Burial, error)
	GetBurial(ctx context.Context, id string) (Burial, error)
	ListBurials(ctx context.Context, req ListBurialsRequest) ([]Burial, error)
	DeleteBurial(ctx context.Context, id string) (Burial, error)

	RecordPayment(ctx context.Context, req RecordPaymentRequest) (ConcessionPayment, error)
	ListPayments(ctx context.Context, concessionID string) ([]ConcessionPayment, error)

	QueryOccupancy(ctx context.Context, query OccupancyQuery) (OccupancyResult, error)
}
