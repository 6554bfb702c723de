package services

import (
	"encoding/json"
	"fmt"
	"time"

	"address-verify-server/models"

	"gorm.io/datatypes"
)

// SubmissionInput carries the declared-address, property and occupancy fields
// of an inspection submission, already decoded to typed values at the API
// boundary.
type SubmissionInput struct {
	FullAddress string
	Landmark    string
	City        string
	Region      string
	SubRegion   string
	State       string

	BuildingType       string
	BuildingPurpose    string
	ConstructionStatus string
	BuildingColour     string
	HasFence           *bool
	HasGate            *bool

	OccupantDescription  string
	OccupantRelationship string
	AdditionalNotes      string

	WindowStart string
	WindowEnd   string
}

// LegacySubmissionInput is the older flat address payload, still accepted so
// pre-inspection clients keep working.
type LegacySubmissionInput struct {
	Street      string
	City        string
	State       string
	Zip         string
	Landmark    string
	WindowStart string
	WindowEnd   string
}

// ValidateSubmission enforces the required inspection fields before anything
// touches storage.
func ValidateSubmission(in SubmissionInput) error {
	required := []struct {
		value string
		name  string
	}{
		{in.FullAddress, "full address"},
		{in.City, "city"},
		{in.Region, "region"},
		{in.BuildingType, "building type"},
		{in.BuildingPurpose, "building purpose"},
		{in.ConstructionStatus, "construction status"},
		{in.OccupantDescription, "occupant description"},
	}
	for _, r := range required {
		if r.value == "" {
			return NewValidationError(r.name + " is required")
		}
	}
	return ValidateWindowSelection(in.WindowStart, in.WindowEnd)
}

func ValidateLegacySubmission(in LegacySubmissionInput) error {
	if in.Street == "" {
		return NewValidationError("street is required")
	}
	if in.City == "" {
		return NewValidationError("city is required")
	}
	return ValidateWindowSelection(in.WindowStart, in.WindowEnd)
}

// checkResubmittable enforces the one-time-verification rule: a record that
// already carries a VERIFIED status can only be reopened by an admin
// re-verification request, never by the employee submitting again.
func checkResubmittable(v *models.AddressVerification) error {
	if v.Status == models.StatusVerified {
		return NewConflictError("address already verified; ask an administrator to request re-verification")
	}
	return nil
}

// ApplySubmission writes the declared fields of a structured inspection onto
// the record, attaches the geocoded expectation, clears any stale GPS state
// and moves the record to PENDING_VERIFICATION. Evidence references are
// merged separately because uploads may legitimately be absent on a
// resubmission that keeps earlier images.
func ApplySubmission(v *models.AddressVerification, in SubmissionInput, geo GeocodeResult) error {
	if err := checkResubmittable(v); err != nil {
		return err
	}

	v.AddressFormat = models.AddressFormatStructured
	v.FullAddress = in.FullAddress
	v.Landmark = in.Landmark
	v.City = in.City
	v.Region = in.Region
	v.SubRegion = in.SubRegion
	v.State = in.State

	v.BuildingType = in.BuildingType
	v.BuildingPurpose = in.BuildingPurpose
	v.ConstructionStatus = in.ConstructionStatus
	v.BuildingColour = in.BuildingColour
	v.HasFence = in.HasFence
	v.HasGate = in.HasGate

	v.OccupantDescription = in.OccupantDescription
	v.OccupantRelationship = in.OccupantRelationship
	v.AdditionalNotes = in.AdditionalNotes

	v.WindowStart = in.WindowStart
	v.WindowEnd = in.WindowEnd

	applyGeocode(v, geo)
	resetCapturedState(v)
	v.Status = models.StatusPendingVerification
	return nil
}

// ApplyLegacySubmission is the flat-field counterpart of ApplySubmission.
func ApplyLegacySubmission(v *models.AddressVerification, in LegacySubmissionInput, geo GeocodeResult) error {
	if err := checkResubmittable(v); err != nil {
		return err
	}

	v.AddressFormat = models.AddressFormatLegacy
	v.Street = in.Street
	v.City = in.City
	v.State = in.State
	v.Zip = in.Zip
	v.Landmark = in.Landmark
	v.WindowStart = in.WindowStart
	v.WindowEnd = in.WindowEnd

	applyGeocode(v, geo)
	resetCapturedState(v)
	v.Status = models.StatusPendingVerification
	return nil
}

func applyGeocode(v *models.AddressVerification, geo GeocodeResult) {
	v.ExpectedLat = geo.Lat
	v.ExpectedLng = geo.Lng
	v.GeocodedAddress = geo.DisplayName
	v.GeocodingFailure = geo.Failure
}

// resetCapturedState clears the GPS capture and everything derived from it.
// The group is kept all-nil or all-set together.
func resetCapturedState(v *models.AddressVerification) {
	v.CapturedLat = nil
	v.CapturedLng = nil
	v.VerifiedAt = nil
	v.DistanceKM = nil
	v.DistanceFlagged = nil
	v.RiskTier = ""
	v.TierReason = ""
	v.ReviewStatus = models.ReviewPending
	v.ReviewNotes = ""
	v.ReviewedBy = nil
	v.ReviewedAt = nil
}

// MergeEvidence overwrites the record's image references with freshly
// uploaded ones, keeping existing references for slots the upload did not
// touch.
func MergeEvidence(v *models.AddressVerification, urls EvidenceURLs) {
	if urls.FrontView != "" {
		v.FrontViewImage = urls.FrontView
	}
	if urls.StreetView != "" {
		v.StreetViewImage = urls.StreetView
	}
	if urls.GateView != "" {
		v.GateViewImage = urls.GateView
	}
	if len(urls.Additional) > 0 {
		if encoded, err := json.Marshal(urls.Additional); err == nil {
			v.AdditionalImages = datatypes.JSON(encoded)
		}
	}
}

// CheckRequiredEvidence runs after uploads complete and merges, so a
// submission with no files at all still gets a precise message about what is
// missing. Gate/fence view is only mandatory when the inspection declares a
// fence or gate.
func CheckRequiredEvidence(v *models.AddressVerification) error {
	if v.FrontViewImage == "" {
		return NewValidationError("front view image is required")
	}
	if v.StreetViewImage == "" {
		return NewValidationError("street view image is required")
	}
	if v.RequiresGateImage() && v.GateViewImage == "" {
		return NewValidationError("gate/fence view image is required when the property has a fence or gate")
	}
	return nil
}

// ApplyLocationConfirmation runs the GPS confirmation transition. The
// reporter's own wall clock decides window membership; the server clock only
// stamps VerifiedAt. When the record has no geocoded expectation the distance
// metrics stay nil and the record still verifies.
func ApplyLocationConfirmation(v *models.AddressVerification, lat, lng float64, reporterClock time.Time, thresholdKM float64, now time.Time) error {
	if v.Status != models.StatusPendingVerification && v.Status != models.StatusReverificationRequired {
		return NewPolicyViolation(fmt.Sprintf("location cannot be confirmed while the record is %s", v.Status))
	}
	if v.WindowStart == "" || v.WindowEnd == "" {
		return NewPolicyViolation("no verification window is set on this record")
	}

	inside, err := IsWithinWindow(v.WindowStart, v.WindowEnd, reporterClock)
	if err != nil {
		return NewValidationError(err.Error())
	}
	if !inside {
		return NewPolicyViolation(fmt.Sprintf("confirmation is only allowed between %s and %s local time", v.WindowStart, v.WindowEnd))
	}

	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return NewValidationError("coordinates out of range")
	}

	v.CapturedLat = &lat
	v.CapturedLng = &lng
	verifiedAt := now
	v.VerifiedAt = &verifiedAt

	if v.ExpectedLat != nil && v.ExpectedLng != nil {
		distance := RoundDistance(CalculateDistance(*v.ExpectedLat, *v.ExpectedLng, lat, lng))
		flagged := ExceedsThreshold(distance, thresholdKM)
		v.DistanceKM = &distance
		v.DistanceFlagged = &flagged
		v.RiskTier, v.TierReason = ClassifyDistance(distance)
	} else {
		v.DistanceKM = nil
		v.DistanceFlagged = nil
		v.RiskTier = ""
		v.TierReason = ""
	}

	v.Status = models.StatusVerified
	v.ReviewStatus = models.ReviewPending
	v.ReviewNotes = ""
	v.ReviewedBy = nil
	v.ReviewedAt = nil
	return nil
}

// ApplyReverificationRequest reopens a settled record for a fresh GPS
// confirmation. Declared address and evidence stay untouched; only the
// captured state resets.
func ApplyReverificationRequest(v *models.AddressVerification) error {
	if v.Status != models.StatusVerified && v.Status != models.StatusFailed {
		return NewPolicyViolation(fmt.Sprintf("re-verification cannot be requested while the record is %s", v.Status))
	}
	resetCapturedState(v)
	v.Status = models.StatusReverificationRequired
	return nil
}

// ApplyReview records the admin decision. A record is reviewable only after
// it has actually been GPS-confirmed at least once.
func ApplyReview(v *models.AddressVerification, decision, notes string, reviewerID uint, now time.Time) error {
	if v.VerifiedAt == nil {
		return NewPolicyViolation("record has not been GPS-confirmed yet and cannot be reviewed")
	}
	if decision != models.ReviewApproved && decision != models.ReviewRejected {
		return NewValidationError("decision must be APPROVED or REJECTED")
	}

	v.ReviewStatus = decision
	v.ReviewNotes = notes
	v.ReviewedBy = &reviewerID
	reviewedAt := now
	v.ReviewedAt = &reviewedAt

	if decision == models.ReviewRejected {
		v.Status = models.StatusFailed
	}
	return nil
}
