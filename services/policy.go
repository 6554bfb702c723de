package services

import (
	"os"
	"strconv"
)

// OrgPolicy is the organization-wide verification configuration, resolved
// once per request and passed down explicitly rather than held as mutable
// package state.
type OrgPolicy struct {
	DistanceThresholdKM float64
}

func ResolveOrgPolicy() OrgPolicy {
	policy := OrgPolicy{DistanceThresholdKM: DefaultDistanceThresholdKM}
	if raw := os.Getenv("VERIFICATION_THRESHOLD_KM"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			policy.DistanceThresholdKM = parsed
		}
	}
	return policy
}
