package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Verification lifecycle statuses.
const (
	StatusPendingAddress         = "PENDING_ADDRESS"
	StatusPendingVerification    = "PENDING_VERIFICATION"
	StatusVerified               = "VERIFIED"
	StatusFailed                 = "FAILED"
	StatusReverificationRequired = "REVERIFICATION_REQUIRED"
)

// Admin review statuses.
const (
	ReviewPending  = "PENDING"
	ReviewApproved = "APPROVED"
	ReviewRejected = "REJECTED"
)

// Internal risk tiers, derived from GPS distance. Admin-only; never serialized
// into employee-facing projections.
const (
	TierVerified = "VERIFIED"
	TierReview   = "REVIEW"
	TierFlagged  = "FLAGGED"
)

// Address formats. Records created before the structured inspection form
// existed carry only the flat fields.
const (
	AddressFormatStructured = "structured"
	AddressFormatLegacy     = "legacy"
)

type AddressVerification struct {
	gorm.Model
	EmployeeID uint     `json:"employeeID" gorm:"index;not null"`
	Employee   Employee `json:"employee,omitempty" gorm:"foreignKey:EmployeeID;references:ID"`

	// Which declared-address shape this record carries.
	AddressFormat string `json:"addressFormat" gorm:"type:varchar(16);default:structured"`

	// Legacy flat address fields (read-time fallback only).
	Street string `json:"street"`
	Zip    string `json:"zip"`

	// Structured declared address.
	FullAddress string `json:"fullAddress" gorm:"type:text"`
	Landmark    string `json:"landmark"`
	City        string `json:"city"`
	Region      string `json:"region"`
	SubRegion   string `json:"subRegion"`
	State       string `json:"state"`

	// Property attributes from the inspection form.
	BuildingType       string `json:"buildingType" gorm:"type:varchar(50)"`
	BuildingPurpose    string `json:"buildingPurpose" gorm:"type:varchar(50)"`
	ConstructionStatus string `json:"constructionStatus" gorm:"type:varchar(50)"`
	BuildingColour     string `json:"buildingColour" gorm:"type:varchar(50)"`
	HasFence           *bool  `json:"hasFence"`
	HasGate            *bool  `json:"hasGate"`

	// Occupancy attributes.
	OccupantDescription  string `json:"occupantDescription" gorm:"type:text"`
	OccupantRelationship string `json:"occupantRelationship"`
	AdditionalNotes      string `json:"additionalNotes" gorm:"type:text"`

	// Evidence image references.
	FrontViewImage   string         `json:"frontViewImage" gorm:"size:512"`
	StreetViewImage  string         `json:"streetViewImage" gorm:"size:512"`
	GateViewImage    string         `json:"gateViewImage" gorm:"size:512"`
	AdditionalImages datatypes.JSON `json:"additionalImages"`

	// Overnight confirmation window, "HH:MM" local wall clock. May wrap
	// past midnight (start > end).
	WindowStart string `json:"windowStart" gorm:"type:varchar(10)"`
	WindowEnd   string `json:"windowEnd" gorm:"type:varchar(10)"`

	// Geocoded expectation; nil when geocoding failed.
	ExpectedLat      *float64 `json:"expectedLat"`
	ExpectedLng      *float64 `json:"expectedLng"`
	GeocodedAddress  string   `json:"geocodedAddress" gorm:"type:text"`
	GeocodingFailure string   `json:"-" gorm:"type:text"`

	// Captured GPS state. These and VerifiedAt are nil together or set
	// together with the derived metrics below.
	CapturedLat *float64   `json:"capturedLat"`
	CapturedLng *float64   `json:"capturedLng"`
	VerifiedAt  *time.Time `json:"verifiedAt"`

	// Derived metrics. DistanceKM is rounded to 2 decimals; RiskTier and
	// TierReason are recomputed whenever the distance changes.
	DistanceKM      *float64 `json:"distanceKM"`
	DistanceFlagged *bool    `json:"distanceFlagged"`
	RiskTier        string   `json:"riskTier,omitempty" gorm:"type:varchar(20)"`
	TierReason      string   `json:"tierReason,omitempty" gorm:"type:text"`

	Status string `json:"status" gorm:"type:varchar(30);default:'PENDING_ADDRESS';index"`

	// Admin adjudication.
	ReviewStatus string     `json:"reviewStatus" gorm:"type:varchar(20);default:'PENDING';index"`
	ReviewNotes  string     `json:"reviewNotes" gorm:"type:text"`
	ReviewedBy   *uint      `json:"reviewedBy" gorm:"index"`
	ReviewedAt   *time.Time `json:"reviewedAt"`
}

// DisplayAddress resolves the declared address to a single display string,
// structured fields first, legacy flat fields second.
func (v *AddressVerification) DisplayAddress() string {
	if v.AddressFormat == AddressFormatLegacy || v.FullAddress == "" {
		parts := []string{}
		for _, p := range []string{v.Street, v.City, v.State, v.Zip} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, ", ")
	}
	parts := []string{v.FullAddress}
	for _, p := range []string{v.City, v.Region, v.State} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// RequiresGateImage reports whether the gate/fence evidence slot is mandatory
// for this record.
func (v *AddressVerification) RequiresGateImage() bool {
	return (v.HasFence != nil && *v.HasFence) || (v.HasGate != nil && *v.HasGate)
}

// Custom JSON marshaling so AdditionalImages always serializes as an array.
func (v *AddressVerification) MarshalJSON() ([]byte, error) {
	type Alias AddressVerification
	aux := &struct {
		AdditionalImages []string  `json:"additionalImages"`
		Employee         *Employee `json:"employee,omitempty"`
		*Alias
	}{
		AdditionalImages: []string{},
		Alias:            (*Alias)(v),
	}

	if v.AdditionalImages != nil {
		var images []string
		if err := json.Unmarshal(v.AdditionalImages, &images); err == nil {
			aux.AdditionalImages = images
		}
	}

	if v.Employee.ID > 0 {
		emp := v.Employee
		emp.Verifications = nil // avoid circular reference
		aux.Employee = &emp
	}

	return json.Marshal(aux)
}
