package routes

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"address-verify-server/models"
	"address-verify-server/services"
	"address-verify-server/storage"
	"address-verify-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// SubmitAddress handles the legacy flat-field address submission (JSON, no
// evidence images).
func SubmitAddress(ctx iris.Context) {
	employeeID := ctx.Values().Get("employeeID").(uint)

	var input SubmitAddressInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	legacy := services.LegacySubmissionInput{
		Street:      input.Street,
		City:        input.City,
		State:       input.State,
		Zip:         input.Zip,
		Landmark:    input.Landmark,
		WindowStart: input.WindowStart,
		WindowEnd:   input.WindowEnd,
	}
	if err := services.ValidateLegacySubmission(legacy); err != nil {
		handleDomainError(err, ctx)
		return
	}

	record, err := loadOrCreateRecord(employeeID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	geo := services.NewGeocoder().Geocode(legacy.Street + ", " + legacy.City + ", " + legacy.State)

	if err := services.ApplyLegacySubmission(record, legacy, geo); err != nil {
		handleDomainError(err, ctx)
		return
	}

	if err := persistSubmission(record); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"id":              record.ID,
		"status":          record.Status,
		"window_start":    record.WindowStart,
		"window_end":      record.WindowEnd,
		"images_uploaded": 0,
	})
}

// SubmitInspection handles the structured multipart inspection submission:
// address/property/occupancy fields plus the evidence image parts.
func SubmitInspection(ctx iris.Context) {
	employeeID := ctx.Values().Get("employeeID").(uint)

	hasFence, err := parseFormBool(ctx, "hasFence")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "hasFence must be true or false", ctx)
		return
	}
	hasGate, err := parseFormBool(ctx, "hasGate")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "hasGate must be true or false", ctx)
		return
	}

	input := services.SubmissionInput{
		FullAddress:          ctx.FormValue("fullAddress"),
		Landmark:             ctx.FormValue("landmark"),
		City:                 ctx.FormValue("city"),
		Region:               ctx.FormValue("region"),
		SubRegion:            ctx.FormValue("subRegion"),
		State:                ctx.FormValue("state"),
		BuildingType:         ctx.FormValue("buildingType"),
		BuildingPurpose:      ctx.FormValue("buildingPurpose"),
		ConstructionStatus:   ctx.FormValue("constructionStatus"),
		BuildingColour:       ctx.FormValue("buildingColour"),
		HasFence:             hasFence,
		HasGate:              hasGate,
		OccupantDescription:  ctx.FormValue("occupantDescription"),
		OccupantRelationship: ctx.FormValue("occupantRelationship"),
		AdditionalNotes:      ctx.FormValue("additionalNotes"),
		WindowStart:          ctx.FormValue("windowStart"),
		WindowEnd:            ctx.FormValue("windowEnd"),
	}

	if err := services.ValidateSubmission(input); err != nil {
		handleDomainError(err, ctx)
		return
	}

	record, loadErr := loadOrCreateRecord(employeeID)
	if loadErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	geo := services.NewGeocoder().Geocode(input.FullAddress + ", " + input.City + ", " + input.Region)

	// Run the lifecycle transition before touching object storage so a
	// conflicting or invalid submission never uploads anything.
	if err := services.ApplySubmission(record, input, geo); err != nil {
		handleDomainError(err, ctx)
		return
	}

	files := services.EvidenceFiles{
		FrontView:  formFileOptional(ctx, "frontView"),
		StreetView: formFileOptional(ctx, "streetView"),
		GateView:   formFileOptional(ctx, "gateView"),
		Additional: formFilesOptional(ctx, "additionalImages[]"),
	}

	pipeline := services.NewEvidencePipeline()
	urls, uploadErr := pipeline.Process(ctx.Request().Context(), employeeID, files)
	if uploadErr != nil {
		handleDomainError(uploadErr, ctx)
		return
	}

	services.MergeEvidence(record, urls)
	if err := services.CheckRequiredEvidence(record); err != nil {
		handleDomainError(err, ctx)
		return
	}

	if err := persistSubmission(record); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"id":              record.ID,
		"status":          record.Status,
		"window_start":    record.WindowStart,
		"window_end":      record.WindowEnd,
		"images_uploaded": countEvidence(urls),
	})
}

// ConfirmLocation runs the night-time GPS confirmation against the
// employee's active record. The reporter's own local clock decides window
// membership; the server never substitutes its own.
func ConfirmLocation(ctx iris.Context) {
	employeeID := ctx.Values().Get("employeeID").(uint)

	var input ConfirmLocationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	reporterClock, clockErr := services.ParseReporterClock(input.ReporterLocalClock)
	if clockErr != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", clockErr.Error(), ctx)
		return
	}

	var record models.AddressVerification
	result := storage.DB.Where("employee_id = ?", employeeID).Order("id DESC").Limit(1).Find(&record)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "no verification record exists for this employee", ctx)
		return
	}

	policy := services.ResolveOrgPolicy()
	threshold := policy.DistanceThresholdKM
	if input.DistanceThresholdKm != nil && *input.DistanceThresholdKm > 0 {
		threshold = *input.DistanceThresholdKm
	}

	if err := services.ApplyLocationConfirmation(&record, *input.Latitude, *input.Longitude, reporterClock, threshold, time.Now()); err != nil {
		handleDomainError(err, ctx)
		return
	}

	if err := storage.DB.Save(&record).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Employee-facing projection: the internal risk tier stays withheld.
	ctx.JSON(iris.Map{
		"id":               record.ID,
		"status":           record.Status,
		"verified_at":      record.VerifiedAt,
		"distance_km":      record.DistanceKM,
		"distance_flagged": record.DistanceFlagged,
	})
}

// GetMyVerification returns the employee-facing projection of the active
// record.
func GetMyVerification(ctx iris.Context) {
	employeeID := ctx.Values().Get("employeeID").(uint)

	var record models.AddressVerification
	result := storage.DB.Where("employee_id = ?", employeeID).Order("id DESC").Limit(1).Find(&record)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if result.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "no verification record exists for this employee", ctx)
		return
	}

	ctx.JSON(employeeProjection(&record))
}

// employeeProjection strips the admin-only fields (risk tier and reason)
// from a record before it leaves through an employee-facing endpoint.
func employeeProjection(record *models.AddressVerification) iris.Map {
	return iris.Map{
		"id":               record.ID,
		"status":           record.Status,
		"displayAddress":   record.DisplayAddress(),
		"landmark":         record.Landmark,
		"city":             record.City,
		"region":           record.Region,
		"state":            record.State,
		"buildingType":     record.BuildingType,
		"buildingPurpose":  record.BuildingPurpose,
		"hasFence":         record.HasFence,
		"hasGate":          record.HasGate,
		"frontViewImage":   record.FrontViewImage,
		"streetViewImage":  record.StreetViewImage,
		"gateViewImage":    record.GateViewImage,
		"window_start":     record.WindowStart,
		"window_end":       record.WindowEnd,
		"verified_at":      record.VerifiedAt,
		"distance_km":      record.DistanceKM,
		"distance_flagged": record.DistanceFlagged,
		"reviewStatus":     record.ReviewStatus,
	}
}

func loadOrCreateRecord(employeeID uint) (*models.AddressVerification, error) {
	var record models.AddressVerification
	result := storage.DB.Where("employee_id = ?", employeeID).Order("id DESC").Limit(1).Find(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		record = models.AddressVerification{
			EmployeeID: employeeID,
			Status:     models.StatusPendingAddress,
		}
	}
	return &record, nil
}

// persistSubmission saves the record and flips the owning employee's account
// status to active in one transaction.
func persistSubmission(record *models.AddressVerification) error {
	return storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(record).Error; err != nil {
			return err
		}
		return tx.Model(&models.Employee{}).
			Where("id = ?", record.EmployeeID).
			Update("account_status", "active").Error
	})
}

func countEvidence(urls services.EvidenceURLs) int {
	n := len(urls.Additional)
	for _, u := range []string{urls.FrontView, urls.StreetView, urls.GateView} {
		if u != "" {
			n++
		}
	}
	return n
}

// parseFormBool decodes the string-typed booleans arriving from multipart
// form fields into real booleans before they reach the domain layer. An
// absent field stays nil.
func parseFormBool(ctx iris.Context, name string) (*bool, error) {
	raw := ctx.FormValue(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func formFileOptional(ctx iris.Context, name string) *multipart.FileHeader {
	file, header, err := ctx.FormFile(name)
	if err != nil {
		return nil
	}
	file.Close()
	return header
}

func formFilesOptional(ctx iris.Context, name string) []*multipart.FileHeader {
	form := ctx.Request().MultipartForm
	if form == nil {
		return nil
	}
	if files, ok := form.File[name]; ok {
		return files
	}
	// Some clients send the batch without the bracket suffix.
	return form.File["additionalImages"]
}

// handleDomainError maps service-layer error kinds onto the HTTP surface.
func handleDomainError(err error, ctx iris.Context) {
	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		utils.CreateInternalServerError(ctx)
		return
	}

	switch domainErr.Kind {
	case services.ErrValidation:
		utils.CreateError(http.StatusBadRequest, "Validation Error", domainErr.Message, ctx)
	case services.ErrPolicy:
		utils.CreateError(http.StatusBadRequest, "Policy Violation", domainErr.Message, ctx)
	case services.ErrConflict:
		utils.CreateError(http.StatusConflict, "Conflict", domainErr.Message, ctx)
	case services.ErrNotFound:
		utils.CreateError(http.StatusNotFound, "Not Found", domainErr.Message, ctx)
	case services.ErrEvidenceUpload:
		utils.CreateError(http.StatusInternalServerError, "Evidence Upload Error", domainErr.Message, ctx)
	default:
		utils.CreateInternalServerError(ctx)
	}
}

type SubmitAddressInput struct {
	Street      string `json:"street" validate:"required,max=512"`
	City        string `json:"city" validate:"required,max=256"`
	State       string `json:"state" validate:"max=256"`
	Zip         string `json:"zip" validate:"max=32"`
	Landmark    string `json:"landmark" validate:"max=512"`
	WindowStart string `json:"windowStart" validate:"required"`
	WindowEnd   string `json:"windowEnd" validate:"required"`
}

type ConfirmLocationInput struct {
	Latitude            *float64 `json:"latitude" validate:"required,latitude"`
	Longitude           *float64 `json:"longitude" validate:"required,longitude"`
	DistanceThresholdKm *float64 `json:"distanceThresholdKm"`
	ReporterLocalClock  string   `json:"reporterLocalClock" validate:"required"`
}
