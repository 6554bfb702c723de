package routes

import (
	"net/http"
	"strings"
	"time"

	"address-verify-server/models"
	"address-verify-server/services"
	"address-verify-server/storage"
	"address-verify-server/utils"

	"github.com/kataras/iris/v12"
)

// AdminListVerifications - GET /admin/verifications?status=&review_status=&q=&page=&per_page=
func AdminListVerifications(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	status := strings.TrimSpace(ctx.URLParamDefault("status", ""))
	reviewStatus := strings.TrimSpace(ctx.URLParamDefault("review_status", ""))
	q := strings.TrimSpace(ctx.URLParamDefault("q", ""))

	query := storage.DB.Model(&models.AddressVerification{}).Preload("Employee")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if reviewStatus != "" {
		query = query.Where("review_status = ?", reviewStatus)
	}
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Joins("JOIN employees ON employees.id = address_verifications.employee_id").
			Where("lower(employees.first_name) LIKE ? OR lower(employees.last_name) LIKE ? OR lower(employees.email) LIKE ?", like, like, like)
	}

	var total int64
	query.Count(&total)
	query = query.Offset((page - 1) * perPage).Limit(perPage).Order("address_verifications.id DESC")

	var records []models.AddressVerification
	if err := query.Find(&records).Error; err != nil {
		ctx.StatusCode(http.StatusInternalServerError)
		ctx.JSON(iris.Map{"error": "server_error", "message": err.Error()})
		return
	}

	ctx.JSON(iris.Map{
		"data":  records,
		"meta":  iris.Map{"page": page, "per_page": perPage, "total": total},
		"links": iris.Map{},
	})
}

// AdminGetVerification - GET /admin/verifications/:id
// The admin projection includes the internal risk tier and its reason, which
// employee-facing endpoints never expose.
func AdminGetVerification(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithJSON(http.StatusBadRequest, iris.Map{"error": "invalid_id"})
		return
	}

	var record models.AddressVerification
	if err := storage.DB.Preload("Employee").First(&record, id).Error; err != nil {
		ctx.StopWithJSON(http.StatusNotFound, iris.Map{"error": "not_found"})
		return
	}

	ctx.JSON(iris.Map{
		"data": &record,
		"risk": iris.Map{
			"tier":   record.RiskTier,
			"reason": record.TierReason,
		},
	})
}

// AdminReviewVerification - POST /admin/verifications/:id/review
func AdminReviewVerification(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithJSON(http.StatusBadRequest, iris.Map{"error": "invalid_id"})
		return
	}

	var body struct {
		Decision string `json:"decision"`
		Notes    string `json:"notes"`
	}
	if err := ctx.ReadJSON(&body); err != nil || body.Decision == "" {
		ctx.StopWithJSON(http.StatusBadRequest, iris.Map{"error": "invalid_decision"})
		return
	}

	var record models.AddressVerification
	if err := storage.DB.First(&record, id).Error; err != nil {
		ctx.StopWithJSON(http.StatusNotFound, iris.Map{"error": "not_found"})
		return
	}

	reviewerID := ctx.Values().Get("employeeID").(uint)
	before := record

	if err := services.ApplyReview(&record, body.Decision, body.Notes, reviewerID, time.Now()); err != nil {
		handleDomainError(err, ctx)
		return
	}

	if err := storage.DB.Save(&record).Error; err != nil {
		ctx.StopWithJSON(http.StatusInternalServerError, iris.Map{"error": "server_error"})
		return
	}

	utils.Audit(ctx, "verification.review", "address_verification", record.ID, before, record)

	ctx.JSON(iris.Map{
		"id":           record.ID,
		"reviewStatus": record.ReviewStatus,
		"reviewNotes":  record.ReviewNotes,
		"reviewedAt":   record.ReviewedAt,
	})
}

// AdminRequestReverification - POST /admin/verifications/:id/reverify
// Clears the GPS capture and derived state so the employee must confirm
// again. Declared address and evidence stay as submitted.
func AdminRequestReverification(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithJSON(http.StatusBadRequest, iris.Map{"error": "invalid_id"})
		return
	}

	var record models.AddressVerification
	if err := storage.DB.First(&record, id).Error; err != nil {
		ctx.StopWithJSON(http.StatusNotFound, iris.Map{"error": "not_found"})
		return
	}

	before := record

	if err := services.ApplyReverificationRequest(&record); err != nil {
		handleDomainError(err, ctx)
		return
	}

	if err := storage.DB.Save(&record).Error; err != nil {
		ctx.StopWithJSON(http.StatusInternalServerError, iris.Map{"error": "server_error"})
		return
	}

	utils.Audit(ctx, "verification.reverify", "address_verification", record.ID, before, record)

	ctx.JSON(iris.Map{
		"id":     record.ID,
		"status": record.Status,
	})
}
