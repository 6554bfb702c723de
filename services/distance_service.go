package services

import (
	"address-verify-server/models"
	"fmt"
	"math"
)

// DefaultDistanceThresholdKM is the organization-wide cutoff for the simple
// "flagged for distance" boolean used in admin triage. Callers may override it
// per request.
const DefaultDistanceThresholdKM = 1.0

// Risk tier cutoffs in metres.
const (
	tierVerifiedMaxMeters = 100.0
	tierReviewMaxMeters   = 500.0
)

// Calculate distance between two points using Haversine formula
func CalculateDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const R = 6371 // Earth's radius in kilometers

	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}

// RoundDistance rounds a distance in kilometers to 2 decimal places, the
// precision stored on the record and returned to callers.
func RoundDistance(km float64) float64 {
	return math.Round(km*100) / 100
}

// ClassifyDistance maps a distance in kilometers to the internal risk tier and
// a human-readable reason. The tier is derived from distance alone:
// <=100m VERIFIED, <=500m REVIEW, beyond that FLAGGED.
func ClassifyDistance(km float64) (tier string, reason string) {
	meters := math.Round(km * 1000)
	switch {
	case meters <= tierVerifiedMaxMeters:
		return models.TierVerified, fmt.Sprintf("GPS capture within %.0fm of declared address (%.0fm away)", tierVerifiedMaxMeters, meters)
	case meters <= tierReviewMaxMeters:
		return models.TierReview, fmt.Sprintf("GPS capture %.0fm from declared address, needs review", meters)
	default:
		return models.TierFlagged, fmt.Sprintf("GPS capture %.0fm from declared address, exceeds %.0fm limit", meters, tierReviewMaxMeters)
	}
}

// ExceedsThreshold reports whether the distance crosses the organizational
// triage threshold. A zero or negative threshold falls back to the default.
func ExceedsThreshold(km float64, thresholdKM float64) bool {
	if thresholdKM <= 0 {
		thresholdKM = DefaultDistanceThresholdKM
	}
	return km > thresholdKM
}
