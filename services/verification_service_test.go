package services

import (
	"testing"
	"time"

	"address-verify-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }

func validSubmission() SubmissionInput {
	return SubmissionInput{
		FullAddress:         "12 Adeola Odeku Street",
		City:                "Lagos",
		Region:              "Victoria Island",
		BuildingType:        "duplex",
		BuildingPurpose:     "residential",
		ConstructionStatus:  "completed",
		OccupantDescription: "Lives with spouse and two children",
		WindowStart:         "23:00",
		WindowEnd:           "02:00",
	}
}

func geocoded(lat, lng float64) GeocodeResult {
	return GeocodeResult{Lat: &lat, Lng: &lng, DisplayName: "12 Adeola Odeku St, Lagos"}
}

func pendingRecord() *models.AddressVerification {
	return &models.AddressVerification{EmployeeID: 7, Status: models.StatusPendingAddress}
}

func TestValidateSubmissionRequiredFields(t *testing.T) {
	in := validSubmission()
	in.City = ""
	err := ValidateSubmission(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "city")

	in = validSubmission()
	in.OccupantDescription = ""
	err = ValidateSubmission(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "occupant description")
}

func TestApplySubmissionMovesToPendingVerification(t *testing.T) {
	v := pendingRecord()
	err := ApplySubmission(v, validSubmission(), geocoded(6.5244, 3.3792))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingVerification, v.Status)
	assert.Equal(t, models.AddressFormatStructured, v.AddressFormat)
	assert.Equal(t, "23:00", v.WindowStart)
	require.NotNil(t, v.ExpectedLat)
	assert.Equal(t, 6.5244, *v.ExpectedLat)
	assert.Nil(t, v.CapturedLat)
	assert.Nil(t, v.VerifiedAt)
	assert.Equal(t, models.ReviewPending, v.ReviewStatus)
}

func TestApplySubmissionGeocodingFailureIsNonFatal(t *testing.T) {
	v := pendingRecord()
	err := ApplySubmission(v, validSubmission(), GeocodeResult{Failure: "provider unreachable"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingVerification, v.Status)
	assert.Nil(t, v.ExpectedLat)
	assert.Nil(t, v.ExpectedLng)
}

func TestApplySubmissionRejectsVerifiedRecord(t *testing.T) {
	v := pendingRecord()
	v.Status = models.StatusVerified

	err := ApplySubmission(v, validSubmission(), geocoded(6.5244, 3.3792))
	require.Error(t, err)
	domainErr, ok := err.(*DomainError)
	require.True(t, ok)
	assert.Equal(t, ErrConflict, domainErr.Kind)
}

func TestApplySubmissionClearsStaleCapture(t *testing.T) {
	v := pendingRecord()
	v.Status = models.StatusReverificationRequired
	v.CapturedLat = floatPtr(6.52)
	v.CapturedLng = floatPtr(3.37)
	v.DistanceKM = floatPtr(0.4)
	v.RiskTier = models.TierReview

	require.NoError(t, ApplySubmission(v, validSubmission(), geocoded(6.5244, 3.3792)))
	assert.Nil(t, v.CapturedLat)
	assert.Nil(t, v.DistanceKM)
	assert.Empty(t, v.RiskTier)
}

func TestCheckRequiredEvidence(t *testing.T) {
	v := pendingRecord()
	v.HasGate = boolPtr(true)
	require.NoError(t, ApplySubmission(v, validSubmission(), geocoded(6.5244, 3.3792)))

	err := CheckRequiredEvidence(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "front view")

	v.FrontViewImage = "https://cdn.example.com/front.jpg"
	v.StreetViewImage = "https://cdn.example.com/street.jpg"
	err = CheckRequiredEvidence(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gate/fence view")

	v.GateViewImage = "https://cdn.example.com/gate.jpg"
	assert.NoError(t, CheckRequiredEvidence(v))
}

func TestCheckRequiredEvidenceGateOptionalWithoutFence(t *testing.T) {
	v := pendingRecord()
	in := validSubmission()
	in.HasFence = boolPtr(false)
	in.HasGate = boolPtr(false)
	require.NoError(t, ApplySubmission(v, in, geocoded(6.5244, 3.3792)))

	v.FrontViewImage = "https://cdn.example.com/front.jpg"
	v.StreetViewImage = "https://cdn.example.com/street.jpg"
	assert.NoError(t, CheckRequiredEvidence(v))
}

func confirmableRecord(t *testing.T) *models.AddressVerification {
	t.Helper()
	v := pendingRecord()
	require.NoError(t, ApplySubmission(v, validSubmission(), geocoded(6.5244, 3.3792)))
	return v
}

func TestApplyLocationConfirmationHappyPath(t *testing.T) {
	v := confirmableRecord(t)
	now := time.Now()

	// Reported position ~1.2km south of the expected coordinates.
	err := ApplyLocationConfirmation(v, 6.5136, 3.3792, clock(23, 30), 1.0, now)
	require.NoError(t, err)

	assert.Equal(t, models.StatusVerified, v.Status)
	require.NotNil(t, v.VerifiedAt)
	require.NotNil(t, v.DistanceKM)
	assert.InDelta(t, 1.2, *v.DistanceKM, 0.05)
	require.NotNil(t, v.DistanceFlagged)
	assert.True(t, *v.DistanceFlagged)
	assert.Equal(t, models.TierFlagged, v.RiskTier)
	assert.Equal(t, models.ReviewPending, v.ReviewStatus)
}

func TestApplyLocationConfirmationOutsideWindow(t *testing.T) {
	v := confirmableRecord(t)

	err := ApplyLocationConfirmation(v, 6.5244, 3.3792, clock(14, 0), 1.0, time.Now())
	require.Error(t, err)
	domainErr, ok := err.(*DomainError)
	require.True(t, ok)
	assert.Equal(t, ErrPolicy, domainErr.Kind)
	assert.Nil(t, v.CapturedLat)
	assert.Equal(t, models.StatusPendingVerification, v.Status)

	// One minute inside the boundary succeeds.
	err = ApplyLocationConfirmation(v, 6.5244, 3.3792, clock(23, 1), 1.0, time.Now())
	assert.NoError(t, err)
}

func TestApplyLocationConfirmationRejectsWrongStatus(t *testing.T) {
	v := confirmableRecord(t)
	require.NoError(t, ApplyLocationConfirmation(v, 6.5244, 3.3792, clock(23, 30), 1.0, time.Now()))

	// Already VERIFIED: a second confirmation is a policy violation.
	err := ApplyLocationConfirmation(v, 6.5244, 3.3792, clock(23, 30), 1.0, time.Now())
	require.Error(t, err)
	domainErr, ok := err.(*DomainError)
	require.True(t, ok)
	assert.Equal(t, ErrPolicy, domainErr.Kind)
}

func TestApplyLocationConfirmationWithoutExpectedCoordinates(t *testing.T) {
	v := pendingRecord()
	require.NoError(t, ApplySubmission(v, validSubmission(), GeocodeResult{Failure: "no match"}))

	err := ApplyLocationConfirmation(v, 6.5244, 3.3792, clock(23, 30), 1.0, time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.StatusVerified, v.Status)
	assert.Nil(t, v.DistanceKM)
	assert.Nil(t, v.DistanceFlagged)
	assert.Empty(t, v.RiskTier)
	require.NotNil(t, v.VerifiedAt)
}

func TestApplyLocationConfirmationAfterReverification(t *testing.T) {
	v := confirmableRecord(t)
	require.NoError(t, ApplyLocationConfirmation(v, 6.5244, 3.3792, clock(23, 30), 1.0, time.Now()))
	require.NoError(t, ApplyReverificationRequest(v))

	err := ApplyLocationConfirmation(v, 6.5244, 3.3792, clock(1, 0), 1.0, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, models.StatusVerified, v.Status)
}

func TestApplyReverificationRequestResetsOnlyGPSState(t *testing.T) {
	v := confirmableRecord(t)
	v.FrontViewImage = "https://cdn.example.com/front.jpg"
	v.StreetViewImage = "https://cdn.example.com/street.jpg"
	require.NoError(t, ApplyLocationConfirmation(v, 6.5136, 3.3792, clock(23, 30), 1.0, time.Now()))

	require.NoError(t, ApplyReverificationRequest(v))

	assert.Equal(t, models.StatusReverificationRequired, v.Status)
	assert.Nil(t, v.CapturedLat)
	assert.Nil(t, v.CapturedLng)
	assert.Nil(t, v.DistanceKM)
	assert.Nil(t, v.DistanceFlagged)
	assert.Nil(t, v.VerifiedAt)
	assert.Empty(t, v.RiskTier)

	// Declared address and evidence survive.
	assert.Equal(t, "12 Adeola Odeku Street", v.FullAddress)
	assert.Equal(t, "https://cdn.example.com/front.jpg", v.FrontViewImage)
	assert.Equal(t, "23:00", v.WindowStart)
}

func TestApplyReverificationRequestRejectsPendingRecord(t *testing.T) {
	v := confirmableRecord(t)
	err := ApplyReverificationRequest(v)
	require.Error(t, err)
	domainErr, ok := err.(*DomainError)
	require.True(t, ok)
	assert.Equal(t, ErrPolicy, domainErr.Kind)
}

func TestApplyReviewRequiresConfirmation(t *testing.T) {
	v := confirmableRecord(t)

	err := ApplyReview(v, models.ReviewApproved, "", 42, time.Now())
	require.Error(t, err)
	domainErr, ok := err.(*DomainError)
	require.True(t, ok)
	assert.Equal(t, ErrPolicy, domainErr.Kind)
}

func TestApplyReviewApprove(t *testing.T) {
	v := confirmableRecord(t)
	require.NoError(t, ApplyLocationConfirmation(v, 6.5244, 3.3792, clock(23, 30), 1.0, time.Now()))

	err := ApplyReview(v, models.ReviewApproved, "checks out", 42, time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.ReviewApproved, v.ReviewStatus)
	assert.Equal(t, "checks out", v.ReviewNotes)
	require.NotNil(t, v.ReviewedBy)
	assert.Equal(t, uint(42), *v.ReviewedBy)
	assert.NotNil(t, v.ReviewedAt)
	assert.Equal(t, models.StatusVerified, v.Status)
}

func TestApplyReviewRejectForcesFailed(t *testing.T) {
	v := confirmableRecord(t)
	require.NoError(t, ApplyLocationConfirmation(v, 6.5244, 3.3792, clock(23, 30), 1.0, time.Now()))

	err := ApplyReview(v, models.ReviewRejected, "address mismatch", 42, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, v.Status)
	assert.Equal(t, models.ReviewRejected, v.ReviewStatus)
}

func TestApplyReviewRejectsUnknownDecision(t *testing.T) {
	v := confirmableRecord(t)
	require.NoError(t, ApplyLocationConfirmation(v, 6.5244, 3.3792, clock(23, 30), 1.0, time.Now()))

	err := ApplyReview(v, "MAYBE", "", 42, time.Now())
	require.Error(t, err)
	domainErr, ok := err.(*DomainError)
	require.True(t, ok)
	assert.Equal(t, ErrValidation, domainErr.Kind)
}

func TestMergeEvidenceKeepsExistingSlots(t *testing.T) {
	v := pendingRecord()
	v.FrontViewImage = "https://cdn.example.com/front-old.jpg"
	v.StreetViewImage = "https://cdn.example.com/street-old.jpg"

	MergeEvidence(v, EvidenceURLs{FrontView: "https://cdn.example.com/front-new.jpg"})

	assert.Equal(t, "https://cdn.example.com/front-new.jpg", v.FrontViewImage)
	assert.Equal(t, "https://cdn.example.com/street-old.jpg", v.StreetViewImage)
}
