// Package occupancy keeps a grave's derived status in line with its burials
// and concessions.
package occupancy

import "github.com/smallbiznis/ecclesia/internal/cemetery/domain"

// Decide is the status rule. A burial always wins over a reservation.
func Decide(hasBurial, hasActiveConcession bool) domain.GraveStatus {
	switch {
	case hasBurial:
		return domain.GraveStatusOccupied
	case hasActiveConcession:
		return domain.GraveStatusReserved
	default:
		return domain.GraveStatusFree
	}
}

// Cause names the mutation that triggered a recompute.
type Cause string

const (
	CauseBurialCreated      Cause = "burial_created"
	CauseBurialDeleted      Cause = "burial_deleted"
	CauseConcessionCreated  Cause = "concession_created"
	CauseConcessionUpdated  Cause = "concession_updated"
	CauseConcessionDeleted  Cause = "concession_deleted"
	CauseConcessionExpired  Cause = "concession_expired"
	CauseMaintenanceCleared Cause = "maintenance_cleared"
)

// overridesMaintenance reports whether cause may rewrite a grave that is
// currently under maintenance.
func (c Cause) overridesMaintenance() bool {
	return c == CauseMaintenanceCleared
}
