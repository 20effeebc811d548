package domain

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ecclesia/pkg/calendar"
)

// OccupancyQuery is the raw filter set accepted from callers.
type OccupancyQuery struct {
	CemeteryID string `form:"cemetery_id" json:"cemetery_id"`
	ParcelID   string `form:"parcel_id" json:"parcel_id"`
	RowID      string `form:"row_id" json:"row_id"`
	Status     string `form:"status" json:"status"`
	Search     string `form:"search" json:"search"`
}

// OccupancyFilter holds the structural filters applied in SQL.
type OccupancyFilter struct {
	CemeteryID string
	ParcelID   string
	RowID      string
	Status     GraveStatus
}

// GraveRow is one candidate grave joined with its layout names.
type GraveRow struct {
	ID           string
	CemeteryID   string
	CemeteryName string
	ParcelID     *string
	ParcelName   *string
	RowID        *string
	RowName      *string
	Code         string
	Status       GraveStatus
	Width        decimal.NullDecimal
	Length       decimal.NullDecimal
	Position     string
	Notes        string
}

// ActiveConcessionRow is an active concession joined with its holder.
type ActiveConcessionRow struct {
	ID             string
	GraveID        string
	ContractNumber string
	StartDate      calendar.Date
	ExpiryDate     calendar.Date
	Status         ConcessionStatus
	AnnualFee      decimal.Decimal
	Currency       string
	HolderClientID *string
	HolderName     *string
}

type ConcessionView struct {
	ID             string           `json:"id"`
	ContractNumber string           `json:"contract_number"`
	StartDate      calendar.Date    `json:"start_date"`
	ExpiryDate     calendar.Date    `json:"expiry_date"`
	Status         ConcessionStatus `json:"status"`
	AnnualFee      decimal.Decimal  `json:"annual_fee"`
	Currency       string           `json:"currency"`
	HolderClientID *string          `json:"holder_client_id,omitempty"`
	HolderName     string           `json:"holder_name,omitempty"`
}

type BurialView struct {
	ID                string        `json:"id"`
	DeceasedName      string        `json:"deceased_name"`
	DeceasedClientID  *string       `json:"deceased_client_id,omitempty"`
	DeceasedDeathDate calendar.Date `json:"deceased_death_date"`
	BurialDate        calendar.Date `json:"burial_date"`
}

// GraveOccupancy is the fully enriched view of one grave.
type GraveOccupancy struct {
	ID           string              `json:"id"`
	Code         string              `json:"code"`
	Status       GraveStatus         `json:"status"`
	CemeteryID   string              `json:"cemetery_id"`
	CemeteryName string              `json:"cemetery_name"`
	ParcelID     *string             `json:"parcel_id,omitempty"`
	ParcelName   string              `json:"parcel_name,omitempty"`
	RowID        *string             `json:"row_id,omitempty"`
	RowName      string              `json:"row_name,omitempty"`
	Width        decimal.NullDecimal `json:"width"`
	Length       decimal.NullDecimal `json:"length"`
	Position     string              `json:"position,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	Concession   *ConcessionView     `json:"concession"`
	Burials      []BurialView        `json:"burials"`
}

type OccupancySummary struct {
	Total          int                 `json:"total"`
	ByStatus       map[GraveStatus]int `json:"by_status"`
	WithConcession int                 `json:"with_concession"`
	WithBurials    int                 `json:"with_burials"`
}

type OccupancyResult struct {
	Graves  []GraveOccupancy `json:"graves"`
	Summary OccupancySummary `json:"summary"`
}
