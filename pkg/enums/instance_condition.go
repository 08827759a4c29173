package enums

import "fmt"

// InstanceCondition records the physical state of a serialized unit.
type InstanceCondition string

const (
	InstanceConditionNew      InstanceCondition = "new"
	InstanceConditionGood     InstanceCondition = "good"
	InstanceConditionWorn     InstanceCondition = "worn"
	InstanceConditionDamaged  InstanceCondition = "damaged"
	InstanceConditionScrapped InstanceCondition = "scrapped"
)

var validInstanceConditions = []InstanceCondition{
	InstanceConditionNew,
	InstanceConditionGood,
	InstanceConditionWorn,
	InstanceConditionDamaged,
	InstanceConditionScrapped,
}

// IsValid reports whether the value matches a known InstanceCondition.
func (c InstanceCondition) IsValid() bool {
	for _, candidate := range validInstanceConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseInstanceCondition converts raw input into an InstanceCondition.
func ParseInstanceCondition(value string) (InstanceCondition, error) {
	for _, candidate := range validInstanceConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid instance condition %q", value)
}
