package routes

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"address-verify-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// buildTestApp creates a minimal Iris app with the verification routes and a
// JWT verifier, mirroring production wiring without a database.
func buildTestApp() *iris.Application {
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	verification := app.Party("/api/verification", accessTokenVerifierMiddleware, utils.EmployeeIDFromTokenMiddleware)
	{
		verification.Post("/inspection", SubmitInspection)
		verification.Post("/confirm-location", ConfirmLocation)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/verifications", AdminListVerifications)
	}
	if err := app.Build(); err != nil {
		panic(err)
	}
	return app
}

// signTestToken returns a signed JWT with the given role
func signTestToken(role string) string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 0)
	token, _ := signer.Sign(utils.AccessToken{ID: 1, Role: role})
	return string(token)
}

func TestAdminVerificationsRBAC(t *testing.T) {
	app := buildTestApp()

	// No token
	req := httptest.NewRequest(http.MethodGet, "/api/admin/verifications", nil)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code == http.StatusOK {
		t.Fatalf("expected non-200 without token, got %d", resp.Code)
	}

	// Employee role -> 403
	req2 := httptest.NewRequest(http.MethodGet, "/api/admin/verifications", nil)
	req2.Header.Set("Authorization", "Bearer "+signTestToken("employee"))
	resp2 := httptest.NewRecorder()
	app.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee role, got %d", resp2.Code)
	}
}

func TestConfirmLocationRejectsMalformedClock(t *testing.T) {
	app := buildTestApp()

	body := `{"latitude": 6.5244, "longitude": 3.3792, "reporterLocalClock": "around midnight"}`
	req := httptest.NewRequest(http.MethodPost, "/api/verification/confirm-location", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signTestToken("employee"))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed reporter clock, got %d", resp.Code)
	}
}

func TestConfirmLocationRejectsMissingFields(t *testing.T) {
	app := buildTestApp()

	body := `{"longitude": 3.3792, "reporterLocalClock": "23:30"}`
	req := httptest.NewRequest(http.MethodPost, "/api/verification/confirm-location", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signTestToken("employee"))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing latitude, got %d", resp.Code)
	}
}

func TestSubmitInspectionRejectsMissingRequiredFields(t *testing.T) {
	app := buildTestApp()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("fullAddress", "12 Adeola Odeku Street")
	// city intentionally missing
	writer.WriteField("region", "Victoria Island")
	writer.WriteField("buildingType", "duplex")
	writer.WriteField("buildingPurpose", "residential")
	writer.WriteField("constructionStatus", "completed")
	writer.WriteField("occupantDescription", "Lives alone")
	writer.WriteField("windowStart", "23:00")
	writer.WriteField("windowEnd", "02:00")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/verification/inspection", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+signTestToken("employee"))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing city, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "city") {
		t.Fatalf("expected error message to name the missing field, got %s", resp.Body.String())
	}
}

func TestSubmitInspectionRejectsStringBoolGarbage(t *testing.T) {
	app := buildTestApp()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("hasGate", "yes please")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/verification/inspection", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+signTestToken("employee"))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-boolean hasGate, got %d", resp.Code)
	}
}

func TestSubmitInspectionRejectsBadWindowSelection(t *testing.T) {
	app := buildTestApp()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("fullAddress", "12 Adeola Odeku Street")
	writer.WriteField("city", "Lagos")
	writer.WriteField("region", "Victoria Island")
	writer.WriteField("buildingType", "duplex")
	writer.WriteField("buildingPurpose", "residential")
	writer.WriteField("constructionStatus", "completed")
	writer.WriteField("occupantDescription", "Lives alone")
	writer.WriteField("windowStart", "12:00")
	writer.WriteField("windowEnd", "13:00")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/verification/inspection", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+signTestToken("employee"))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for off-catalogue window, got %d", resp.Code)
	}
}
