package enums

import "fmt"

// InstanceStatus maps to the instance_status_enum enum in Postgres.
type InstanceStatus string

const (
	InstanceStatusAvailable     InstanceStatus = "available"
	InstanceStatusReserved      InstanceStatus = "reserved"
	InstanceStatusInDelivery    InstanceStatus = "in_delivery"
	InstanceStatusInUse         InstanceStatus = "in_use"
	InstanceStatusInReturn      InstanceStatus = "in_return"
	InstanceStatusInMaintenance InstanceStatus = "in_maintenance"
	InstanceStatusOutOfService  InstanceStatus = "out_of_service"
	InstanceStatusLost          InstanceStatus = "lost"
)

var validInstanceStatuses = []InstanceStatus{
	InstanceStatusAvailable,
	InstanceStatusReserved,
	InstanceStatusInDelivery,
	InstanceStatusInUse,
	InstanceStatusInReturn,
	InstanceStatusInMaintenance,
	InstanceStatusOutOfService,
	InstanceStatusLost,
}

// String implements fmt.Stringer.
func (s InstanceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InstanceStatus.
func (s InstanceStatus) IsValid() bool {
	for _, candidate := range validInstanceStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInstanceStatus converts raw input into an InstanceStatus.
func ParseInstanceStatus(value string) (InstanceStatus, error) {
	for _, candidate := range validInstanceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid instance status %q", value)
}

// RequiresBinding reports whether an instance in this status must carry a
// reservation line back-reference. The converse also holds: an instance
// outside these statuses must not be bound.
func (s InstanceStatus) RequiresBinding() bool {
	switch s {
	case InstanceStatusReserved, InstanceStatusInDelivery, InstanceStatusInUse, InstanceStatusInReturn:
		return true
	}
	return false
}

// EndOfLife reports whether the status marks the end of the unit's usable life.
func (s InstanceStatus) EndOfLife() bool {
	return s == InstanceStatusOutOfService || s == InstanceStatusLost
}
