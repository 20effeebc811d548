package domain

type GraveStatus string

const (
	GraveStatusFree        GraveStatus = "free"
	GraveStatusOccupied    GraveStatus = "occupied"
	GraveStatusReserved    GraveStatus = "reserved"
	GraveStatusMaintenance GraveStatus = "maintenance"
)

// GraveStatuses lists every status in display order.
var GraveStatuses = []GraveStatus{
	GraveStatusFree,
	GraveStatusOccupied,
	GraveStatusReserved,
	GraveStatusMaintenance,
}

func (s GraveStatus) Valid() bool {
	switch s {
	case GraveStatusFree, GraveStatusOccupied, GraveStatusReserved, GraveStatusMaintenance:
		return true
	}
	return false
}

type ConcessionStatus string

const (
	ConcessionStatusActive    ConcessionStatus = "active"
	ConcessionStatusExpired   ConcessionStatus = "expired"
	ConcessionStatusCancelled ConcessionStatus = "cancelled"
	ConcessionStatusPending   ConcessionStatus = "pending"
)

func (s ConcessionStatus) Valid() bool {
	switch s {
	case ConcessionStatusActive, ConcessionStatusExpired, ConcessionStatusCancelled, ConcessionStatusPending:
		return true
	}
	return false
}

// LedgerStatus records what happened to the accounting side of a payment.
type LedgerStatus string

// A payment is stored as pending and moves to posted or failed once the
// ledger call returns.
const (
	LedgerStatusPending LedgerStatus = "pending"
	LedgerStatusSkipped LedgerStatus = "skipped"
	LedgerStatusPosted  LedgerStatus = "posted"
	LedgerStatusFailed  LedgerStatus = "failed"
)
