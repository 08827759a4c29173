package registry

import "github.com/marcvidal/eventstock-backend/pkg/enums"

// genericTransitions lists the status changes operators may request
// directly. Three families of transitions are deliberately absent and go
// through dedicated paths instead:
//
//   - anything into RESERVED, and RESERVED back to AVAILABLE, belong to the
//     allocation engine, which owns the reservation-line binding;
//   - AVAILABLE to IN_MAINTENANCE goes through SendToMaintenance so the
//     maintenance exit is recorded in the ledger;
//   - IN_MAINTENANCE back to AVAILABLE goes through ReturnFromMaintenance,
//     which stamps the maintenance dates.
var genericTransitions = map[enums.InstanceStatus][]enums.InstanceStatus{
	enums.InstanceStatusAvailable: {
		enums.InstanceStatusOutOfService,
		enums.InstanceStatusLost,
	},
	enums.InstanceStatusReserved: {
		enums.InstanceStatusInDelivery,
		enums.InstanceStatusOutOfService,
		enums.InstanceStatusLost,
	},
	enums.InstanceStatusInDelivery: {
		enums.InstanceStatusInUse,
		enums.InstanceStatusInReturn,
		enums.InstanceStatusOutOfService,
		enums.InstanceStatusLost,
	},
	enums.InstanceStatusInUse: {
		enums.InstanceStatusInReturn,
		enums.InstanceStatusOutOfService,
		enums.InstanceStatusLost,
	},
	enums.InstanceStatusInReturn: {
		enums.InstanceStatusAvailable,
		enums.InstanceStatusOutOfService,
		enums.InstanceStatusLost,
	},
	enums.InstanceStatusInMaintenance: {
		enums.InstanceStatusOutOfService,
		enums.InstanceStatusLost,
	},
	// Written-off units can be brought back: a repaired unit leaves
	// OUT_OF_SERVICE and a unit that turns up again leaves LOST.
	enums.InstanceStatusOutOfService: {
		enums.InstanceStatusAvailable,
	},
	enums.InstanceStatusLost: {
		enums.InstanceStatusAvailable,
	},
}

// CanTransition reports whether the generic status-change path accepts
// moving from one status to another.
func CanTransition(from, to enums.InstanceStatus) bool {
	for _, candidate := range genericTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
