package main

import (
	"math"

	"medinauts/internal/intake/models"
)

// riskScore is a points-based stand-in for the trained classifier. It is
// monotone in the usual cardiac risk factors and capped to 0..100.
func riskScore(r models.NormalizedRecord) float64 {
	points := 5.0
	if r.Age >= 55 {
		points += 15
	} else if r.Age >= 45 {
		points += 8
	}
	if r.Sex == 1 {
		points += 8
	}
	if r.CP == 0 {
		points += 12
	}
	if r.Trestbps >= 140 {
		points += 8
	}
	if r.Chol >= 240 {
		points += 8
	}
	if r.FBS == 1 {
		points += 4
	}
	if r.RestECG > 0 {
		points += 4
	}
	if r.Thalach < 120 {
		points += 8
	}
	if r.Exang == 1 {
		points += 10
	}
	points += math.Min(r.Oldpeak, 4) * 3
	if r.Slope == 0 {
		points += 4
	}
	points += float64(r.CA) * 6
	if r.Thal == 3 {
		points += 8
	}
	return math.Round(math.Min(math.Max(points, 0), 100)*10) / 10
}

// stageFor maps a score onto the 0..4 stage scale.
func stageFor(score float64) int {
	switch {
	case score < 30:
		return 0
	case score < 50:
		return 1
	case score < 70:
		return 2
	case score < 85:
		return 3
	default:
		return models.MaxStage
	}
}
