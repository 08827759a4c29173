package enums

import "fmt"

// MovementType maps to the movement_type_enum enum in Postgres. Every type
// belongs to either the entry family (stock comes back in) or the exit family
// (stock leaves), which fixes the sign applied to the movement magnitude.
type MovementType string

const (
	// Entry family.
	MovementTypeInitialStock      MovementType = "initial_stock"
	MovementTypeReservationReturn MovementType = "reservation_return"
	MovementTypeMaintenanceReturn MovementType = "maintenance_return"
	MovementTypeAdjustmentEntry   MovementType = "adjustment_entry"

	// Exit family.
	MovementTypeReservationExit MovementType = "reservation_exit"
	MovementTypeMaintenanceExit MovementType = "maintenance_exit"
	MovementTypeDamage          MovementType = "damage"
	MovementTypeAdjustmentExit  MovementType = "adjustment_exit"
)

var validMovementTypes = []MovementType{
	MovementTypeInitialStock,
	MovementTypeReservationReturn,
	MovementTypeMaintenanceReturn,
	MovementTypeAdjustmentEntry,
	MovementTypeReservationExit,
	MovementTypeMaintenanceExit,
	MovementTypeDamage,
	MovementTypeAdjustmentExit,
}

// IsValid reports whether the value matches the canonical movement enum.
func (t MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseMovementType converts raw input into a MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}

// EntryMovementTypes returns the types whose movements add stock back.
func EntryMovementTypes() []MovementType {
	return []MovementType{
		MovementTypeInitialStock,
		MovementTypeReservationReturn,
		MovementTypeMaintenanceReturn,
		MovementTypeAdjustmentEntry,
	}
}

// ExitMovementTypes returns the types whose movements remove stock.
func ExitMovementTypes() []MovementType {
	return []MovementType{
		MovementTypeReservationExit,
		MovementTypeMaintenanceExit,
		MovementTypeDamage,
		MovementTypeAdjustmentExit,
	}
}

// Direction returns +1 for the entry family and -1 for the exit family.
func (t MovementType) Direction() int {
	switch t {
	case MovementTypeInitialStock, MovementTypeReservationReturn, MovementTypeMaintenanceReturn, MovementTypeAdjustmentEntry:
		return 1
	case MovementTypeReservationExit, MovementTypeMaintenanceExit, MovementTypeDamage, MovementTypeAdjustmentExit:
		return -1
	}
	return 0
}
