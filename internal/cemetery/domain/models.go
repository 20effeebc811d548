package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ecclesia/pkg/calendar"
)

type Cemetery struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ParishID  string    `gorm:"type:uuid;not null;index" json:"parish_id"`
	Name      string    `gorm:"not null" json:"name"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Cemetery) TableName() string { return "cemeteries" }

type Parcel struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	ParishID   string    `gorm:"type:uuid;not null;index" json:"parish_id"`
	CemeteryID string    `gorm:"type:uuid;not null;index" json:"cemetery_id"`
	Name       string    `gorm:"not null" json:"name"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Parcel) TableName() string { return "cemetery_parcels" }

type Row struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ParishID  string    `gorm:"type:uuid;not null;index" json:"parish_id"`
	ParcelID  string    `gorm:"type:uuid;not null;index" json:"parcel_id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Row) TableName() string { return "cemetery_rows" }

// Grave is the aggregate root for occupancy. Status is derived from its
// burials and concessions and is only written by the recompute engine or the
// maintenance toggle.
type Grave struct {
	ID         string              `gorm:"type:uuid;primaryKey" json:"id"`
	ParishID   string              `gorm:"type:uuid;not null;index" json:"parish_id"`
	CemeteryID string              `gorm:"type:uuid;not null;index;uniqueIndex:ux_graves_cemetery_code,priority:1" json:"cemetery_id"`
	ParcelID   *string             `gorm:"type:uuid;index" json:"parcel_id,omitempty"`
	RowID      *string             `gorm:"type:uuid;index" json:"row_id,omitempty"`
	Code       string              `gorm:"not null;uniqueIndex:ux_graves_cemetery_code,priority:2" json:"code"`
	Status     GraveStatus         `gorm:"type:text;not null" json:"status"`
	Width      decimal.NullDecimal `gorm:"type:numeric(8,2)" json:"width"`
	Length     decimal.NullDecimal `gorm:"type:numeric(8,2)" json:"length"`
	Position   string              `json:"position,omitempty"`
	Notes      string              `json:"notes,omitempty"`
	CreatedAt  time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time           `gorm:"not null" json:"updated_at"`
}

func (Grave) TableName() string { return "graves" }

type Concession struct {
	ID             string           `gorm:"type:uuid;primaryKey" json:"id"`
	ParishID       string           `gorm:"type:uuid;not null;index;uniqueIndex:ux_concessions_contract,priority:1" json:"parish_id"`
	GraveID        string           `gorm:"type:uuid;not null;index" json:"grave_id"`
	HolderClientID *string          `gorm:"type:uuid" json:"holder_client_id,omitempty"`
	ContractNumber string           `gorm:"not null;uniqueIndex:ux_concessions_contract,priority:2" json:"contract_number"`
	ContractDate   calendar.Date    `json:"contract_date"`
	StartDate      calendar.Date    `gorm:"not null" json:"start_date"`
	ExpiryDate     calendar.Date    `gorm:"not null;index" json:"expiry_date"`
	Status         ConcessionStatus `gorm:"type:text;not null;index" json:"status"`
	AnnualFee      decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"annual_fee"`
	Currency       string           `gorm:"type:char(3);not null" json:"currency"`
	Notes          string           `json:"notes,omitempty"`
	CreatedAt      time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null" json:"updated_at"`
}

func (Concession) TableName() string { return "concessions" }

// IsActive reports whether the concession reserves its grave.
func (c Concession) IsActive() bool {
	return c.Status == ConcessionStatusActive
}

type Burial struct {
	ID                  string        `gorm:"type:uuid;primaryKey" json:"id"`
	ParishID            string        `gorm:"type:uuid;not null;index" json:"parish_id"`
	GraveID             string        `gorm:"type:uuid;not null;index" json:"grave_id"`
	DeceasedClientID    *string       `gorm:"type:uuid" json:"deceased_client_id,omitempty"`
	DeceasedFirstName   string        `json:"deceased_first_name,omitempty"`
	DeceasedLastName    string        `gorm:"not null" json:"deceased_last_name"`
	DeceasedBirthDate   calendar.Date `json:"deceased_birth_date"`
	DeceasedDeathDate   calendar.Date `json:"deceased_death_date"`
	BurialDate          calendar.Date `gorm:"not null" json:"burial_date"`
	CertificateNumber   string        `json:"certificate_number,omitempty"`
	CertificateIssuedBy string        `json:"certificate_issued_by,omitempty"`
	CertificateDate     calendar.Date `json:"certificate_date"`
	Notes               string        `json:"notes,omitempty"`
	CreatedAt           time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"not null" json:"updated_at"`
}

func (Burial) TableName() string { return "burials" }

// DeceasedName joins the name parts for display and search.
func (b Burial) DeceasedName() string {
	if b.DeceasedFirstName == "" {
		return b.DeceasedLastName
	}
	return b.DeceasedFirstName + " " + b.DeceasedLastName
}

type ConcessionPayment struct {
	ID            string          `gorm:"type:uuid;primaryKey" json:"id"`
	ParishID      string          `gorm:"type:uuid;not null;index" json:"parish_id"`
	ConcessionID  string          `gorm:"type:uuid;not null;index" json:"concession_id"`
	PaymentDate   calendar.Date   `gorm:"not null" json:"payment_date"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency      string          `gorm:"type:char(3);not null" json:"currency"`
	PeriodStart   calendar.Date   `gorm:"not null" json:"period_start"`
	PeriodEnd     calendar.Date   `gorm:"not null" json:"period_end"`
	ReceiptNumber string          `gorm:"not null" json:"receipt_number"`
	LedgerStatus  LedgerStatus    `gorm:"type:text;not null" json:"ledger_status"`
	LedgerError   string          `json:"ledger_error,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
}

func (ConcessionPayment) TableName() string { return "concession_payments" }
