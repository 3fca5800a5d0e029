package routing

import "github.com/courierloop/courierloop-backend/pkg/enums"

const defaultConditionPenaltyMin = 5

var conditionPenaltyMin = map[enums.ConditionType]float64{
	enums.ConditionHeavyTraffic: 15,
	enums.ConditionConstruction: 10,
	enums.ConditionRoadClosure:  20,
	enums.ConditionPothole:      5,
	enums.ConditionNarrowRoad:   8,
	enums.ConditionWeather:      12,
	enums.ConditionAccident:     25,
}

// ConditionPenaltyMin returns the fixed minute penalty for one condition type.
func ConditionPenaltyMin(t enums.ConditionType) float64 {
	if penalty, ok := conditionPenaltyMin[t]; ok {
		return penalty
	}
	return defaultConditionPenaltyMin
}

// AdjustDurationMin adds the per-type penalty of every reported condition to
// the base duration. Penalties are additive, so the report order is irrelevant.
func AdjustDurationMin(baseMin float64, conditions []enums.ConditionType) float64 {
	adjusted := baseMin
	for _, c := range conditions {
		adjusted += ConditionPenaltyMin(c)
	}
	return adjusted
}
