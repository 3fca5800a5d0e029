package enums

import "fmt"

// ConditionType classifies a driver-reported road condition.
type ConditionType string

const (
	ConditionHeavyTraffic ConditionType = "heavy_traffic"
	ConditionConstruction ConditionType = "construction"
	ConditionRoadClosure  ConditionType = "road_closure"
	ConditionPothole      ConditionType = "pothole"
	ConditionNarrowRoad   ConditionType = "narrow_road"
	ConditionWeather      ConditionType = "weather"
	ConditionAccident     ConditionType = "accident"
)

var validConditionTypes = []ConditionType{
	ConditionHeavyTraffic,
	ConditionConstruction,
	ConditionRoadClosure,
	ConditionPothole,
	ConditionNarrowRoad,
	ConditionWeather,
	ConditionAccident,
}

// IsValid checks whether the given type matches the canonical enum.
func (c ConditionType) IsValid() bool {
	for _, candidate := range validConditionTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConditionType converts raw strings into ConditionType.
func ParseConditionType(value string) (ConditionType, error) {
	for _, candidate := range validConditionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid condition type %q", value)
}

// ConditionSeverity grades driver-reported conditions.
type ConditionSeverity string

const (
	SeverityLow      ConditionSeverity = "low"
	SeverityMedium   ConditionSeverity = "medium"
	SeverityHigh     ConditionSeverity = "high"
	SeverityCritical ConditionSeverity = "critical"
)

var validConditionSeverities = []ConditionSeverity{
	SeverityLow,
	SeverityMedium,
	SeverityHigh,
	SeverityCritical,
}

// IsValid checks whether the given severity matches the canonical enum.
func (s ConditionSeverity) IsValid() bool {
	for _, candidate := range validConditionSeverities {
		if candidate == s {
			return true
		}
	}
	return false
}
