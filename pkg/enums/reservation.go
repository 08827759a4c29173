package enums

import "fmt"

// ReservationStatus maps to the reservation_status_enum enum in Postgres.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusCompleted ReservationStatus = "completed"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusPending,
	ReservationStatusConfirmed,
	ReservationStatusCancelled,
	ReservationStatusCompleted,
}

// IsValid reports whether the value matches a known ReservationStatus.
func (s ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}

// HoldsPooledCapacity reports whether lines under a reservation in this
// status reduce pooled availability. Serialized availability only counts
// confirmed reservations; the asymmetry is inherited from the legacy rules.
func (s ReservationStatus) HoldsPooledCapacity() bool {
	return s == ReservationStatusPending || s == ReservationStatusConfirmed
}

// DeliveryStatus tracks the fulfillment leg of a reservation line.
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusInDelivery DeliveryStatus = "in_delivery"
	DeliveryStatusDelivered  DeliveryStatus = "delivered"
	DeliveryStatusReturned   DeliveryStatus = "returned"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusInDelivery,
	DeliveryStatusDelivered,
	DeliveryStatusReturned,
}

// IsValid reports whether the value matches a known DeliveryStatus.
func (s DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
